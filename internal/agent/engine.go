package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/llm"
	"github.com/askdesk/backend/internal/retrieval"
	"github.com/askdesk/backend/pkg/logger"
)

// Mode tags the two terminal outcomes of a question.
type Mode string

const (
	ModeAnsweredFromDocs Mode = "answered_from_docs"
	ModeEscalated        Mode = "escalated"
)

// Decision is the outcome of one question: either an answer grounded in
// the retrieved documentation, or an escalation with the ticket attached.
// Context carries the retrieved chunk texts for transparency display.
type Decision struct {
	Mode    Mode
	Answer  string
	Ticket  *Ticket
	Context []string
}

// ChatClient is the reasoning-model boundary the engine talks to.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Retriever supplies the documentation chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Result, error)
}

// Engine runs the retrieve-and-decide pipeline. The sufficiency judgment
// is delegated wholly to the reasoning model: it is instructed to answer
// only from the provided documentation and given exactly one callable
// capability, escalate_ticket. The engine supports one escalation round
// per question; extra tool calls in the same response are ignored.
type Engine struct {
	retriever Retriever
	chat      ChatClient
	team      string
	note      string

	decisionTemperature float32
	followupTemperature float32
}

func NewEngine(retriever Retriever, chat ChatClient, team, note string) *Engine {
	return &Engine{
		retriever: retriever,
		chat:      chat,
		team:      team,
		note:      note,

		decisionTemperature: 0.2,
		followupTemperature: 0.1,
	}
}

// Answer produces exactly one Decision for the question, blocking until
// the reasoning model has decided. Questions are independent; no state is
// carried between calls.
func (e *Engine) Answer(ctx context.Context, question string) (*Decision, error) {
	results, err := e.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, 0, len(results))
	for _, res := range results {
		contexts = append(contexts, res.Text)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt(question, contexts)},
	}

	first, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages:    messages,
		Tools:       []llm.ToolDefinition{escalateToolDefinition()},
		Temperature: e.decisionTemperature,
	})
	if err != nil {
		return nil, err
	}

	if len(first.ToolCalls) > 0 {
		return e.handleEscalation(ctx, messages, first.ToolCalls, contexts)
	}

	logger.Info("Question answered from documentation",
		zap.String("question", question),
		zap.Int("chunks", len(contexts)),
	)

	return &Decision{
		Mode:    ModeAnsweredFromDocs,
		Answer:  strings.TrimSpace(first.Content),
		Context: contexts,
	}, nil
}

// handleEscalation executes the escalation side effect, then asks the
// model for a user-facing acknowledgment that carries the tool result.
func (e *Engine) handleEscalation(ctx context.Context, messages []llm.Message, calls []llm.ToolCall, contexts []string) (*Decision, error) {
	call, err := pickEscalationCall(calls)
	if err != nil {
		return nil, err
	}

	ticket, err := e.dispatchTool(call)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ticket: %w", err)
	}

	messages = append(messages,
		llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{call},
		},
		llm.Message{
			Role:       llm.RoleTool,
			Name:       toolEscalateTicket,
			ToolCallID: call.ID,
			Content:    string(payload),
		},
	)

	second, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages:    messages,
		Temperature: e.followupTemperature,
	})
	if err != nil {
		// The ticket was already created; its existence is accepted even
		// though the acknowledgment failed.
		logger.Warn("Acknowledgment call failed after ticket creation",
			zap.String("ticket_id", ticket.TicketID),
			zap.Error(err),
		)
		return nil, err
	}

	return &Decision{
		Mode:    ModeEscalated,
		Answer:  strings.TrimSpace(second.Content),
		Ticket:  ticket,
		Context: contexts,
	}, nil
}

// pickEscalationCall selects the escalation call from the model's tool
// requests, ignoring any extra calls in the same response. A response
// containing only unknown tools is an error from the closed dispatch.
func pickEscalationCall(calls []llm.ToolCall) (llm.ToolCall, error) {
	for _, call := range calls {
		if call.Name == toolEscalateTicket {
			if len(calls) > 1 {
				logger.Warn("Ignoring extra tool calls in model response",
					zap.Int("total", len(calls)),
				)
			}
			return call, nil
		}
	}
	return llm.ToolCall{}, fmt.Errorf("%w: %q", domain.ErrUnknownTool, calls[0].Name)
}
