package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/llm"
	"github.com/askdesk/backend/internal/retrieval"
)

const (
	testTeam = "Tier-2 Support"
	testNote = "Escalated because documentation was insufficient or ambiguous."
)

type fakeRetriever struct {
	results []retrieval.Result
	err     error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]retrieval.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// scriptedChat replays canned responses and records every request it saw.
type scriptedChat struct {
	responses []*llm.ChatResponse
	errs      []error
	requests  []llm.ChatRequest
}

func (s *scriptedChat) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return nil, errors.New("scripted chat exhausted")
	}
	return s.responses[i], nil
}

func chunks(texts ...string) []retrieval.Result {
	out := make([]retrieval.Result, len(texts))
	for i, t := range texts {
		sim := 0.9
		out[i] = retrieval.Result{ID: "doc.md-" + string(rune('0'+i)), Text: t, Similarity: &sim}
	}
	return out
}

func TestAnswerFromDocs(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{
			{Content: "  We offer a full refund within 30 days of purchase.  "},
		},
	}
	retriever := &fakeRetriever{results: chunks(
		"# Refunds Full refund within 30 days of purchase.",
		"# Shipping Standard shipping is free.",
	)}

	engine := NewEngine(retriever, chat, testTeam, testNote)

	decision, err := engine.Answer(context.Background(), "What is your refund policy?")
	require.NoError(t, err)

	assert.Equal(t, ModeAnsweredFromDocs, decision.Mode)
	assert.Equal(t, "We offer a full refund within 30 days of purchase.", decision.Answer)
	assert.Nil(t, decision.Ticket)
	assert.Len(t, decision.Context, 2)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]

	require.Len(t, req.Tools, 1)
	assert.Equal(t, "escalate_ticket", req.Tools[0].Name)
	assert.ElementsMatch(t, []string{"user_question", "retrieved_context"}, req.Tools[0].Parameters.Required)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "What is your refund policy?")
	assert.Contains(t, req.Messages[1].Content, "Full refund within 30 days")
}

func TestEscalation(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_1",
				Name:      "escalate_ticket",
				Arguments: `{"user_question":"What can I bring in my carry-on?","retrieved_context":"[NO MATCHING DOCUMENTATION FOUND]"}`,
			}}},
			{Content: "I could not find this in our documentation, so I've escalated your question."},
		},
	}

	engine := NewEngine(&fakeRetriever{}, chat, testTeam, testNote)

	decision, err := engine.Answer(context.Background(), "What can I bring in my carry-on?")
	require.NoError(t, err)

	assert.Equal(t, ModeEscalated, decision.Mode)
	assert.Contains(t, decision.Answer, "escalated")

	require.NotNil(t, decision.Ticket)
	assert.Len(t, decision.Ticket.TicketID, 8)
	assert.Equal(t, "created", decision.Ticket.Status)
	assert.Equal(t, testTeam, decision.Ticket.AssignedTeam)
	assert.Equal(t, testNote, decision.Ticket.Note)

	require.Len(t, chat.requests, 2)

	second := chat.requests[1]
	assert.Empty(t, second.Tools)
	require.Len(t, second.Messages, 4)
	assert.Equal(t, llm.RoleAssistant, second.Messages[2].Role)
	require.Len(t, second.Messages[2].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, second.Messages[3].Role)
	assert.Equal(t, "call_1", second.Messages[3].ToolCallID)
	assert.Contains(t, second.Messages[3].Content, decision.Ticket.TicketID)
}

func TestEmptyRetrievalUsesSentinel(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{{Content: "no docs"}},
	}
	engine := NewEngine(&fakeRetriever{}, chat, testTeam, testNote)

	_, err := engine.Answer(context.Background(), "anything")
	require.NoError(t, err)

	require.Len(t, chat.requests, 1)
	assert.Contains(t, chat.requests[0].Messages[1].Content, "[NO MATCHING DOCUMENTATION FOUND]")
}

func TestMalformedToolArgumentsIsUpstreamError(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_1",
				Name:      "escalate_ticket",
				Arguments: `{"user_question": unparsable`,
			}}},
		},
	}
	engine := NewEngine(&fakeRetriever{}, chat, testTeam, testNote)

	_, err := engine.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.True(t, domain.IsUpstreamService(err))
	assert.Len(t, chat.requests, 1)
}

func TestUnknownToolIsRejected(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_1",
				Name:      "delete_account",
				Arguments: `{}`,
			}}},
		},
	}
	engine := NewEngine(&fakeRetriever{}, chat, testTeam, testNote)

	_, err := engine.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownTool))
}

func TestExtraToolCallsAreIgnored(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "summarize", Arguments: `{}`},
				{ID: "call_2", Name: "escalate_ticket", Arguments: `{"user_question":"q","retrieved_context":"c"}`},
				{ID: "call_3", Name: "escalate_ticket", Arguments: `{"user_question":"q2","retrieved_context":"c2"}`},
			}},
			{Content: "Escalated."},
		},
	}
	engine := NewEngine(&fakeRetriever{}, chat, testTeam, testNote)

	decision, err := engine.Answer(context.Background(), "question")
	require.NoError(t, err)

	assert.Equal(t, ModeEscalated, decision.Mode)
	require.NotNil(t, decision.Ticket)

	// Exactly one escalation round: the second request carries only the
	// handled call.
	require.Len(t, chat.requests, 2)
	require.Len(t, chat.requests[1].Messages[2].ToolCalls, 1)
	assert.Equal(t, "call_2", chat.requests[1].Messages[2].ToolCalls[0].ID)
}

func TestAcknowledgmentFailureSurfacesAfterTicketCreation(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_1",
				Name:      "escalate_ticket",
				Arguments: `{"user_question":"q","retrieved_context":"c"}`,
			}}},
			nil,
		},
		errs: []error{nil, errors.New("reasoning service unavailable")},
	}
	engine := NewEngine(&fakeRetriever{}, chat, testTeam, testNote)

	_, err := engine.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.Len(t, chat.requests, 2)
}

func TestRetrievalFailurePropagates(t *testing.T) {
	wantErr := errors.New("vector store down")
	engine := NewEngine(&fakeRetriever{err: wantErr}, &scriptedChat{}, testTeam, testNote)

	_, err := engine.Answer(context.Background(), "question")
	assert.ErrorIs(t, err, wantErr)
}

func TestDecisionTemperatures(t *testing.T) {
	chat := &scriptedChat{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_1",
				Name:      "escalate_ticket",
				Arguments: `{"user_question":"q","retrieved_context":"c"}`,
			}}},
			{Content: "Escalated."},
		},
	}
	engine := NewEngine(&fakeRetriever{}, chat, testTeam, testNote)

	_, err := engine.Answer(context.Background(), "question")
	require.NoError(t, err)

	require.Len(t, chat.requests, 2)
	assert.InDelta(t, 0.2, chat.requests[0].Temperature, 1e-6)
	assert.InDelta(t, 0.1, chat.requests[1].Temperature, 1e-6)
}
