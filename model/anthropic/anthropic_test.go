package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/internal/testutil"
	"github.com/hupe1980/triage/model"
)

func TestBuildMessages_ToolRoundTrip(t *testing.T) {
	contents := []core.Content{
		core.NewTextContent(core.ContentRoleUser, "disk full?"),
		testutil.ToolCall("t1", "disk_usage", "{}"),
		testutil.ToolResult("t1", "disk_usage", 95.0),
		core.NewTextContent(core.ContentRoleSystem, "ignored here"),
	}

	msgs := buildMessages(contents)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 1)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "t1", msgs[2].Content[0].OfToolResult.ToolUseID)
}

func TestExtractSystem(t *testing.T) {
	blocks := extractSystem(model.Request{
		Instructions: "You are the resolver",
		Contents:     []core.Content{core.NewTextContent(core.ContentRoleSystem, "extra")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "You are the resolver", blocks[0].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{
		model.NewFunctionDefinition("ping", "Ping a host", map[string]any{
			"type":       "object",
			"properties": map[string]any{"host": map[string]any{"type": "string"}},
			"required":   []string{"host"},
		}),
	})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "ping", tools[0].OfTool.Name)
	assert.Equal(t, []string{"host"}, tools[0].OfTool.InputSchema.Required)
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, model.FinishToolCalls, finishReason("tool_use"))
	assert.Equal(t, model.FinishLength, finishReason("max_tokens"))
	assert.Equal(t, model.FinishStop, finishReason("end_turn"))
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test"; o.Model = "claude-test" })
	assert.Equal(t, model.Info{Name: "claude-test", Provider: "anthropic", SupportsTools: true}, m.Info())
}
