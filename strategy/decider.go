package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/model"
)

// Decider turns a decision prompt plus a window of the transcript into a
// short textual outcome, such as an agent name or "approved".
type Decider interface {
	Decide(ctx context.Context, prompt string, window []core.Message) (string, error)
}

// DeciderFunc is a functional adapter to allow ordinary functions to be used as Deciders.
type DeciderFunc func(ctx context.Context, prompt string, window []core.Message) (string, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(ctx context.Context, prompt string, window []core.Message) (string, error) {
	return f(ctx, prompt, window)
}

// ModelDecider asks a language model for the outcome.
type ModelDecider struct {
	llm model.Model
}

// NewModelDecider creates a model backed Decider.
func NewModelDecider(llm model.Model) *ModelDecider {
	return &ModelDecider{llm: llm}
}

// Decide implements Decider. The answer is trimmed of whitespace.
func (d *ModelDecider) Decide(ctx context.Context, prompt string, window []core.Message) (string, error) {
	contents := make([]core.Content, 0, len(window))
	for _, m := range window {
		contents = append(contents, core.NewTextContent(core.ContentRoleUser, describe(m)))
	}
	if len(contents) == 0 {
		contents = append(contents, core.NewTextContent(core.ContentRoleUser, "(no messages)"))
	}

	resp, err := model.Collect(ctx, d.llm, model.Request{Instructions: prompt, Contents: contents})
	if err != nil {
		return "", fmt.Errorf("decider %s: %w", d.llm.Info().Name, err)
	}

	return strings.TrimSpace(resp.Content.Text()), nil
}

func describe(m core.Message) string {
	switch m.Role {
	case core.RoleAgent:
		return fmt.Sprintf("[%s] %s", m.Author, m.Content)
	case core.RoleSystem:
		return "[system] " + m.Content
	default:
		return "[user] " + m.Content
	}
}

// normalize strips decoration models like to add around a one word answer.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`*.:;!")
	return strings.TrimSpace(s)
}
