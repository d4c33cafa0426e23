package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/triage/core"
)

// MockStep is one scripted model turn: either content or an error.
type MockStep struct {
	Content core.Content
	Err     error
}

// MockModel is a deterministic in-memory Model useful for tests, examples
// and the offline "mock" provider.
//
// Answers are chosen in this order: the next scripted step, a canned response
// registered for the exact text of the last request content, the handler,
// and finally an echo of the input.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	script    []MockStep
	responses map[string]string
	handler   func(req Request) (core.Content, error)
	requests  []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
	return m
}

// Respond appends a scripted text answer.
func (m *MockModel) Respond(text string) *MockModel {
	return m.RespondWith(core.NewTextContent(core.ContentRoleAssistant, text))
}

// RespondWith appends scripted content.
func (m *MockModel) RespondWith(content core.Content) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, MockStep{Content: content})
	return m
}

// CallTool appends a scripted tool call request.
func (m *MockModel) CallTool(id, name, args string) *MockModel {
	return m.RespondWith(core.Content{
		Role:  core.ContentRoleAssistant,
		Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}}},
	})
}

// Fail appends a scripted backend error.
func (m *MockModel) Fail(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, MockStep{Err: err})
	return m
}

// WithHandler sets the function consulted once the script is exhausted.
func (m *MockModel) WithHandler(fn func(req Request) (core.Content, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Requests returns every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Remaining returns the number of unconsumed scripted steps.
func (m *MockModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}

func (m *MockModel) next(req Request) (core.Content, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return step.Content, step.Err
	}

	input := req.LastText()
	canned, ok := m.responses[input]
	handler := m.handler
	m.mu.Unlock()

	if ok {
		return core.NewTextContent(core.ContentRoleAssistant, canned), nil
	}
	if handler != nil {
		return handler(req)
	}
	if len(req.Contents) == 0 {
		return core.Content{}, fmt.Errorf("no contents provided")
	}

	return core.NewTextContent(core.ContentRoleAssistant, fmt.Sprintf("Mock response to: %s", input)), nil
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		content, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}

		if content.Role == "" {
			content.Role = core.ContentRoleAssistant
		}

		finish := FinishStop
		if len(content.FunctionCalls()) > 0 {
			finish = FinishToolCalls
		}

		respCh <- Response{ID: core.NewID(), Content: content, FinishReason: finish}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
