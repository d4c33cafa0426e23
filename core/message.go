package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a transcript message.
type Role string

const (
	// RoleUser marks a message typed by the human operator.
	RoleUser Role = "user"
	// RoleAgent marks a message produced by one of the chat agents.
	RoleAgent Role = "agent"
	// RoleSystem marks a message produced by the host application.
	RoleSystem Role = "system"
)

// Verdict is the structured payload attached to a resolver message whose
// body parsed as `{"approved": bool, "solution": string}`.
type Verdict struct {
	Approved bool   `json:"approved"`
	Solution string `json:"solution"`
}

// Message is one transcript entry. After it has been appended to a
// Transcript it must be treated as immutable; the transcript only hands out
// copies.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	Payload   *Verdict  `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessage(role Role, author, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Author:    author,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a user-authored message. User messages carry no author.
func NewUserMessage(content string) Message { return newMessage(RoleUser, "", content) }

// NewAgentMessage creates a message authored by the named agent.
func NewAgentMessage(author, content string) Message {
	return newMessage(RoleAgent, author, content)
}

// NewSystemMessage creates a host-authored notice.
func NewSystemMessage(content string) Message { return newMessage(RoleSystem, "", content) }

// WithVerdict returns a copy of m carrying the given payload.
func (m Message) WithVerdict(v *Verdict) Message {
	if v != nil {
		cp := *v
		m.Payload = &cp
	} else {
		m.Payload = nil
	}
	return m
}

// Verdict returns the structured payload and whether one is attached.
func (m Message) Verdict() (Verdict, bool) {
	if m.Payload == nil {
		return Verdict{}, false
	}
	return *m.Payload, true
}

// clone deep-copies the payload pointer so callers cannot mutate transcript state.
func (m Message) clone() Message { return m.WithVerdict(m.Payload) }

// NewID generates a new unique identifier for messages.
func NewID() string { return uuid.NewString() }
