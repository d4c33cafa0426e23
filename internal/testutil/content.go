package testutil

import (
	"github.com/hupe1980/triage/core"
)

// AssistantText returns assistant content with a single text part.
func AssistantText(text string) core.Content {
	return core.NewTextContent(core.ContentRoleAssistant, text)
}

// ToolCall returns assistant content requesting a single capability call.
func ToolCall(id, name, args string) core.Content {
	return core.Content{
		Role: core.ContentRoleAssistant,
		Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}},
		},
	}
}

// ToolResult returns tool content answering a capability call.
func ToolResult(id, name string, result any) core.Content {
	return core.Content{
		Role: core.ContentRoleTool,
		Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: id, Name: name, Response: result}},
		},
	}
}
