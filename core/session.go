package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// State is the loop state of a troubleshooting session.
type State int

const (
	// StateAwaitingInput means the session waits for the next user line.
	StateAwaitingInput State = iota
	// StateInTurn means agents are currently exchanging messages.
	StateInTurn
	// StateTerminated means the turn ended with an approved resolution or hit
	// the iteration ceiling and the outcome has not been surfaced yet.
	StateTerminated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateInTurn:
		return "in_turn"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrTurnInProgress is returned by BeginTurn while another turn is running.
var ErrTurnInProgress = errors.New("turn already in progress")

// Session holds the transcript plus the loop counters of one troubleshooting
// conversation. It is safe for concurrent access.
//
// The mutators BeginTurn, Record, Finish and Abort are meant to be called by
// the group chat orchestrator only.
type Session struct {
	ID      string
	Created time.Time

	mu         sync.RWMutex
	transcript *Transcript
	iteration  int
	completed  bool
	state      State
}

// NewSession creates an empty session with a fresh ULID identifier.
func NewSession() *Session {
	return &Session{
		ID:         NewSessionID(),
		Created:    time.Now().UTC(),
		transcript: NewTranscript(),
		state:      StateAwaitingInput,
	}
}

// NewSessionID returns a lexically sortable unique identifier.
func NewSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Transcript returns the read-only transcript view.
func (s *Session) Transcript() History { return s.transcript }

// Iteration returns the number of agent messages appended in the current turn.
func (s *Session) Iteration() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration
}

// Completed reports whether the last turn ended with an approved resolution.
func (s *Session) Completed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed
}

// State returns the current loop state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// BeginTurn appends the user message and moves the session into StateInTurn.
// The iteration counter and completion flag are cleared. The transcript is kept.
func (s *Session) BeginTurn(user Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInTurn {
		return ErrTurnInProgress
	}
	s.transcript.Append(user)
	s.iteration = 0
	s.completed = false
	s.state = StateInTurn
	return nil
}

// Record appends an agent message and returns the new iteration count.
func (s *Session) Record(m Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Append(m)
	s.iteration++
	return s.iteration
}

// Finish ends the turn. resolved marks an approved resolution.
func (s *Session) Finish(resolved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = resolved
	s.state = StateTerminated
}

// Settle moves a terminated session back to StateAwaitingInput once the
// outcome has been surfaced. Completed keeps telling resolved from ceiling.
func (s *Session) Settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTerminated {
		s.state = StateAwaitingInput
	}
}

// Abort ends a failed turn without marking it complete. Messages appended so
// far stay in the transcript.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaitingInput
}

// Reset clears the transcript, the iteration counter and the completion flag.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Reset()
	s.iteration = 0
	s.completed = false
	s.state = StateAwaitingInput
}
