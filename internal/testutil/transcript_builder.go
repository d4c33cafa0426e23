package testutil

import (
	"github.com/hupe1980/triage/core"
)

// TranscriptBuilder provides a fluent helper for constructing transcripts in
// tests. Example:
//
//	tr := NewTranscriptBuilder().User("slow internet").Agent("Analyst", "check dns").Build()
type TranscriptBuilder struct {
	messages []core.Message
}

// NewTranscriptBuilder creates an empty builder.
func NewTranscriptBuilder() *TranscriptBuilder { return &TranscriptBuilder{} }

// User appends a user message (chainable).
func (b *TranscriptBuilder) User(text string) *TranscriptBuilder {
	b.messages = append(b.messages, core.NewUserMessage(text))
	return b
}

// Agent appends an agent message (chainable).
func (b *TranscriptBuilder) Agent(author, text string) *TranscriptBuilder {
	b.messages = append(b.messages, core.NewAgentMessage(author, text))
	return b
}

// System appends a system notice (chainable).
func (b *TranscriptBuilder) System(text string) *TranscriptBuilder {
	b.messages = append(b.messages, core.NewSystemMessage(text))
	return b
}

// Verdict appends an agent message carrying a structured verdict payload (chainable).
func (b *TranscriptBuilder) Verdict(author string, approved bool, solution string) *TranscriptBuilder {
	m := core.NewAgentMessage(author, solution).WithVerdict(&core.Verdict{Approved: approved, Solution: solution})
	b.messages = append(b.messages, m)
	return b
}

// Messages returns the collected messages.
func (b *TranscriptBuilder) Messages() []core.Message {
	return append([]core.Message(nil), b.messages...)
}

// Build returns a populated *core.Transcript.
func (b *TranscriptBuilder) Build() *core.Transcript {
	tr := core.NewTranscript()
	for _, m := range b.messages {
		tr.Append(m)
	}
	return tr
}
