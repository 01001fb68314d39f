package llm

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdesk/backend/internal/domain"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "gpt-4.1-mini", "text-embedding-3-small", 0.2, 1024)
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))
}

func TestToOpenAITools(t *testing.T) {
	tools := toOpenAITools([]ToolDefinition{
		{
			Name:        "escalate_ticket",
			Description: "Escalate to a human team.",
			Parameters: jsonschema.Definition{
				Type:     jsonschema.Object,
				Required: []string{"user_question"},
			},
		},
	})

	require.Len(t, tools, 1)
	assert.Equal(t, openai.ToolTypeFunction, tools[0].Type)
	assert.Equal(t, "escalate_ticket", tools[0].Function.Name)
	assert.Equal(t, "Escalate to a human team.", tools[0].Function.Description)
}

func TestMessageConversionRoundTrip(t *testing.T) {
	messages := toOpenAIMessages([]Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "call_1", Name: "escalate_ticket", Arguments: `{"user_question":"q"}`},
		}},
		{Role: RoleTool, Name: "escalate_ticket", ToolCallID: "call_1", Content: `{"ticket_id":"ab12cd34"}`},
	})

	require.Len(t, messages, 3)

	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Empty(t, messages[0].ToolCalls)

	require.Len(t, messages[1].ToolCalls, 1)
	assert.Equal(t, openai.ToolTypeFunction, messages[1].ToolCalls[0].Type)
	assert.Equal(t, "escalate_ticket", messages[1].ToolCalls[0].Function.Name)

	assert.Equal(t, "call_1", messages[2].ToolCallID)
	assert.Equal(t, "escalate_ticket", messages[2].Name)
}

func TestFromOpenAIToolCalls(t *testing.T) {
	calls := fromOpenAIToolCalls([]openai.ToolCall{
		{
			ID:   "call_9",
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      "escalate_ticket",
				Arguments: `{"user_question":"q","retrieved_context":"c"}`,
			},
		},
	})

	require.Len(t, calls, 1)
	assert.Equal(t, "call_9", calls[0].ID)
	assert.Equal(t, "escalate_ticket", calls[0].Name)
	assert.Contains(t, calls[0].Arguments, "retrieved_context")

	assert.Nil(t, fromOpenAIToolCalls(nil))
}

func TestCacheKeyVariesByModelAndText(t *testing.T) {
	a, err := NewClient("key", "gpt-4.1-mini", "text-embedding-3-small", 0.2, 1024)
	require.NoError(t, err)
	b, err := NewClient("key", "gpt-4.1-mini", "text-embedding-ada-002", 0.2, 1024)
	require.NoError(t, err)

	assert.Equal(t, a.cacheKey("refund policy"), a.cacheKey("refund policy"))
	assert.NotEqual(t, a.cacheKey("refund policy"), a.cacheKey("shipping"))
	assert.NotEqual(t, a.cacheKey("refund policy"), b.cacheKey("refund policy"))
}
