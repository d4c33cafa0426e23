package agent

import (
	"context"

	"github.com/hupe1980/triage/core"
)

// Agent is a role-scoped participant of the group chat.
//
// Act reads the visible transcript and produces exactly one message authored
// by the agent. Errors are reserved for backend failures; capability
// failures are reported to the model as facts and never surface here.
type Agent interface {
	Name() string
	Act(ctx context.Context, history core.History) (core.Message, error)
}

// FuncAgent adapts a plain function into an Agent.
type FuncAgent struct {
	name string
	fn   func(ctx context.Context, history core.History) (core.Message, error)
}

// NewFuncAgent creates an Agent from fn. Messages returned by fn are
// re-authored as name.
func NewFuncAgent(name string, fn func(ctx context.Context, history core.History) (core.Message, error)) *FuncAgent {
	return &FuncAgent{name: name, fn: fn}
}

// Name implements Agent.
func (a *FuncAgent) Name() string { return a.name }

// Act implements Agent.
func (a *FuncAgent) Act(ctx context.Context, history core.History) (core.Message, error) {
	m, err := a.fn(ctx, history)
	if err != nil {
		return core.Message{}, err
	}
	m.Role = core.RoleAgent
	m.Author = a.name
	return m, nil
}
