package core

import "sync"

// History is the read-only transcript view handed to agents and strategies.
type History interface {
	// Messages returns a copy of every message in append order.
	Messages() []Message
	// Last returns the most recent message, if any.
	Last() (Message, bool)
	// Window returns (a copy of) at most the n most recent messages.
	Window(n int) []Message
	// Len returns the number of messages.
	Len() int
}

// Transcript is an append-only ordered sequence of messages. Append order is
// causal order. It is safe for concurrent readers; writes are expected to
// come from a single owner (the group chat).
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

var _ History = (*Transcript)(nil)

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript { return &Transcript{} }

// Append adds m to the end of the transcript. The message is copied.
func (t *Transcript) Append(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, m.clone())
}

// Messages implements History.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneMessages(t.messages)
}

// Last implements History.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1].clone(), true
}

// Window implements History. n <= 0 yields an empty window.
func (t *Transcript) Window(n int) []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n <= 0 {
		return []Message{}
	}
	start := len(t.messages) - n
	if start < 0 {
		start = 0
	}
	return cloneMessages(t.messages[start:])
}

// Len implements History.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Reset removes all messages.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}

func cloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.clone()
	}
	return out
}
