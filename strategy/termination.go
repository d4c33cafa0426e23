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

// DefaultMaxIterations is the ceiling of agent messages per turn.
const DefaultMaxIterations = 10

// Reason explains a termination decision.
type Reason string

const (
	// ReasonContinue means the turn goes on.
	ReasonContinue Reason = "continue"
	// ReasonResolved means the Resolver approved a solution.
	ReasonResolved Reason = "resolved"
	// ReasonCeiling means the iteration ceiling forced the stop.
	ReasonCeiling Reason = "ceiling"
)

// Decision is the outcome of Termination.ShouldStop.
type Decision struct {
	Stop   bool   `json:"stop"`
	Reason Reason `json:"reason"`
	// Verdict is the Resolver payload the decision was based on, if any.
	Verdict *core.Verdict `json:"verdict,omitempty"`
}

// Resolved reports whether the turn ended with an approved solution.
func (d Decision) Resolved() bool { return d.Reason == ReasonResolved }

// TerminationOptions configures a Termination.
type TerminationOptions struct {
	// MaxIterations is the ceiling. Values below 1 select DefaultMaxIterations.
	MaxIterations int
	// Decider judges a Resolver message that carries no verdict payload.
	// Only the literal answer "approved" counts. Nil means continue.
	Decider Decider
	// Prompt is the decision prompt template, rendered against the roles.
	Prompt string
	Logger logging.Logger
}

// Termination decides whether a turn is over.
type Termination struct {
	roles agent.Roles
	opts  TerminationOptions
}

// NewTermination creates a Termination whose terminal authority is roles.Resolver.
func NewTermination(roles agent.Roles, optFns ...func(o *TerminationOptions)) *Termination {
	opts := TerminationOptions{
		MaxIterations: DefaultMaxIterations,
		Prompt:        DefaultTerminationPrompt,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxIterations < 1 {
		opts.MaxIterations = DefaultMaxIterations
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Termination{roles: roles, opts: opts}
}

// MaxIterations returns the ceiling.
func (t *Termination) MaxIterations() int { return t.opts.MaxIterations }

// ShouldStop evaluates history after iteration agent messages.
func (t *Termination) ShouldStop(ctx context.Context, history core.History, iteration int) (d Decision, err error) {
	ctx, span := tracing.StartSpan(ctx, "termination", tracing.IntAttr("iteration", iteration))
	defer func() {
		span.SetAttributes(tracing.StringAttr("termination.reason", string(d.Reason)))
		tracing.End(span, err)
	}()

	last, ok := history.Last()

	var verdict *core.Verdict
	if ok && last.Author == t.roles.Resolver {
		if v, has := last.Verdict(); has {
			verdict = &v
		}
	}

	if iteration >= t.opts.MaxIterations {
		t.opts.Logger.Warn("termination.ceiling", "iteration", iteration, "max", t.opts.MaxIterations)
		return Decision{Stop: true, Reason: ReasonCeiling, Verdict: verdict}, nil
	}

	if !ok || last.Role != core.RoleAgent || last.Author != t.roles.Resolver {
		return Decision{Reason: ReasonContinue}, nil
	}

	if verdict != nil {
		if verdict.Approved {
			return t.resolved(iteration, verdict), nil
		}
		t.opts.Logger.Info("termination.rejected", "iteration", iteration)
		return Decision{Reason: ReasonContinue, Verdict: verdict}, nil
	}

	if t.opts.Decider == nil {
		return Decision{Reason: ReasonContinue}, nil
	}

	prompt, err := util.RenderTemplate(t.opts.Prompt, t.roles)
	if err != nil {
		return Decision{}, fmt.Errorf("termination prompt: %w", err)
	}

	out, err := t.opts.Decider.Decide(ctx, prompt, history.Window(1))
	if err != nil {
		t.opts.Logger.Error("termination.error", "iteration", iteration, "error", err.Error())
		return Decision{}, fmt.Errorf("termination: %w", err)
	}

	if strings.EqualFold(normalize(out), "approved") {
		return t.resolved(iteration, nil), nil
	}

	return Decision{Reason: ReasonContinue}, nil
}

func (t *Termination) resolved(iteration int, v *core.Verdict) Decision {
	t.opts.Logger.Info("termination.resolved", "iteration", iteration)
	return Decision{Stop: true, Reason: ReasonResolved, Verdict: v}
}
