package groupchat

import (
	"time"

	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/strategy"
)

// EventType distinguishes the events of a run.
type EventType string

const (
	// EventMessage carries a message appended to the transcript, including
	// the user message that started the turn.
	EventMessage EventType = "message"
	// EventSelected names the agent that acts next.
	EventSelected EventType = "selected"
	// EventTerminated carries the termination decision that ended the turn.
	EventTerminated EventType = "terminated"
	// EventError carries the error that aborted the turn.
	EventError EventType = "error"
)

// Event is an observable step of a run.
type Event struct {
	Type      EventType          `json:"type"`
	RunID     string             `json:"run_id"`
	Iteration int                `json:"iteration"`
	Agent     string             `json:"agent,omitempty"`
	Message   *core.Message      `json:"message,omitempty"`
	Decision  *strategy.Decision `json:"decision,omitempty"`
	Err       error              `json:"-"`
	Timestamp time.Time          `json:"timestamp"`
}

func newEvent(t EventType, runID string, iteration int) Event {
	return Event{Type: t, RunID: runID, Iteration: iteration, Timestamp: time.Now().UTC()}
}
