package agent

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/llm"
	"github.com/askdesk/backend/pkg/logger"
)

const toolEscalateTicket = "escalate_ticket"

// Ticket is the mock record produced by an escalation. It exists only in
// the response; nothing durable backs it.
type Ticket struct {
	TicketID     string `json:"ticket_id"`
	Status       string `json:"status"`
	AssignedTeam string `json:"assigned_team"`
	Note         string `json:"note"`
}

type escalateArgs struct {
	UserQuestion     string `json:"user_question"`
	RetrievedContext string `json:"retrieved_context"`
}

func escalateToolDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: toolEscalateTicket,
		Description: "Use this when documentation does not clearly answer the question, " +
			"is missing, or the request is risky or compliance-sensitive.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"user_question": {
					Type:        jsonschema.String,
					Description: "The question the user asked, verbatim.",
				},
				"retrieved_context": {
					Type:        jsonschema.String,
					Description: "The documentation snippets that were retrieved for the question.",
				},
			},
			Required: []string{"user_question", "retrieved_context"},
		},
	}
}

// dispatchTool executes one model-requested tool call. The set of tools is
// closed: anything but escalate_ticket is domain.ErrUnknownTool, and an
// unparsable argument payload is domain.ErrUpstreamService.
func (e *Engine) dispatchTool(call llm.ToolCall) (*Ticket, error) {
	switch call.Name {
	case toolEscalateTicket:
		var args escalateArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, fmt.Errorf("%w: malformed %s arguments: %v", domain.ErrUpstreamService, call.Name, err)
		}
		return e.escalate(args), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTool, call.Name)
	}
}

// escalate creates the mock ticket. The id is the first 8 characters of a
// v4 UUID, opaque but short enough to read back to a user.
func (e *Engine) escalate(args escalateArgs) *Ticket {
	ticket := &Ticket{
		TicketID:     uuid.New().String()[:8],
		Status:       "created",
		AssignedTeam: e.team,
		Note:         e.note,
	}

	logger.Info("Escalation ticket created",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("assigned_team", ticket.AssignedTeam),
		zap.String("question", args.UserQuestion),
	)

	return ticket
}
