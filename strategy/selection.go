package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/internal/util"
	"github.com/hupe1980/triage/logging"
	"github.com/hupe1980/triage/tracing"
)

// Sources of a selection, reported in logs and spans.
const (
	SourceRule     = "rule"
	SourceDecider  = "decider"
	SourceFallback = "fallback"
)

// SelectionOptions configures a Selection.
type SelectionOptions struct {
	// Decider routes Analyst messages. Nil means KeywordDecider only.
	Decider Decider
	// Prompt is the decision prompt template, rendered against the roles.
	Prompt string
	Logger logging.Logger
}

// Selection chooses the next speaker.
type Selection struct {
	roles    agent.Roles
	fallback *KeywordDecider
	opts     SelectionOptions
}

// NewSelection creates a Selection over roles.
func NewSelection(roles agent.Roles, optFns ...func(o *SelectionOptions)) *Selection {
	opts := SelectionOptions{
		Prompt: DefaultSelectionPrompt,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Selection{roles: roles, fallback: NewKeywordDecider(roles), opts: opts}
}

// SelectNext returns the agent that speaks after the last message of history.
//
// Only the most recent message is considered. The result is always one of
// the roles and never the author of that message. An error is returned only
// when the decider's backend fails.
func (s *Selection) SelectNext(ctx context.Context, history core.History) (next string, err error) {
	ctx, span := tracing.StartSpan(ctx, "selection")
	defer func() {
		span.SetAttributes(tracing.StringAttr("selection.agent", next))
		tracing.End(span, err)
	}()

	last, ok := history.Last()
	if !ok {
		return s.decided(s.roles.Analyst, "", SourceRule, "empty transcript"), nil
	}

	switch {
	case last.Role == core.RoleUser:
		return s.decided(s.roles.Analyst, "", SourceRule, "user message"), nil
	case last.Role == core.RoleSystem:
		return s.decided(s.roles.Analyst, "", SourceRule, "system message"), nil
	case last.Author == s.roles.Network, last.Author == s.roles.Common:
		return s.decided(s.roles.Analyst, last.Author, SourceRule, "specialist answered"), nil
	case last.Author == s.roles.Resolver:
		return s.decided(s.roles.Analyst, last.Author, SourceRule, "resolver answered"), nil
	case last.Author != s.roles.Analyst:
		return s.decided(s.roles.Analyst, last.Author, SourceRule, "unknown author"), nil
	}

	window := history.Window(1)

	if s.opts.Decider != nil {
		prompt, err := util.RenderTemplate(s.opts.Prompt, s.roles)
		if err != nil {
			return "", fmt.Errorf("selection prompt: %w", err)
		}

		out, err := s.opts.Decider.Decide(ctx, prompt, window)
		if err != nil {
			s.opts.Logger.Error("selection.error", "last_author", last.Author, "error", err.Error())
			return "", fmt.Errorf("selection: %w", err)
		}

		if name, ok := s.match(out); ok {
			return s.decided(name, last.Author, SourceDecider, ""), nil
		}

		s.opts.Logger.Warn("selection.invalid", "last_author", last.Author, "output", out)
	}

	return s.decided(s.fallback.Route(last.Content), last.Author, SourceFallback, ""), nil
}

// match maps decider output onto one of the agents the Analyst may hand over to.
func (s *Selection) match(out string) (string, bool) {
	candidates := []string{s.roles.Network, s.roles.Common, s.roles.Resolver}

	norm := normalize(out)
	for _, c := range candidates {
		if strings.EqualFold(norm, c) {
			return c, true
		}
	}

	// Accept a sentence that names exactly one candidate.
	lower := strings.ToLower(out)
	found := ""
	for _, c := range candidates {
		if strings.Contains(lower, strings.ToLower(c)) {
			if found != "" {
				return "", false
			}
			found = c
		}
	}

	return found, found != ""
}

func (s *Selection) decided(next, lastAuthor, source, rule string) string {
	s.opts.Logger.Info("selection.decided",
		"agent", next,
		"last_author", lastAuthor,
		"source", source,
		"rule", rule,
	)
	return next
}
