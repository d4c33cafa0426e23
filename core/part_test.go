package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContent_Accessors(t *testing.T) {
	c := Content{Role: ContentRoleAssistant, Parts: []Part{
		TextPart{Text: "checking "},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "ping"}},
		TextPart{Text: "now"},
		FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "1", Name: "ping", Response: 12}},
	}}

	assert.Equal(t, "checking now", c.Text())
	assert.Equal(t, []FunctionCall{{ID: "1", Name: "ping"}}, c.FunctionCalls())
	assert.Len(t, c.FunctionResponses(), 1)
	assert.Equal(t, "hello", NewTextContent(ContentRoleUser, "hello").Text())
}
