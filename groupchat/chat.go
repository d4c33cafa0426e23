package groupchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/logging"
	"github.com/hupe1980/triage/strategy"
	"github.com/hupe1980/triage/tracing"
)

var (
	// ErrEmptyInput is returned by Run for blank user input.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy is returned by Run while another run is in flight.
	ErrBusy = errors.New("a run is already in progress")
	// ErrUnknownAgent is returned by New when the roster and the agents do not match.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Selector picks the next speaker. *strategy.Selection implements it.
type Selector interface {
	SelectNext(ctx context.Context, history core.History) (string, error)
}

// Terminator decides whether a turn is over. *strategy.Termination implements it.
type Terminator interface {
	ShouldStop(ctx context.Context, history core.History, iteration int) (strategy.Decision, error)
}

// Options holds configuration overrides passed to New.
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	Logger          logging.Logger
}

// Chat orchestrates one troubleshooting session. Public methods are safe for
// concurrent use; at most one run is active at a time.
type Chat struct {
	session     *core.Session
	roles       agent.Roles
	agents      map[string]agent.Agent
	selection   Selector
	termination Terminator

	eventBufferSize int
	logger          logging.Logger

	mu           sync.Mutex
	runID        string
	cancel       context.CancelFunc
	done         chan struct{}
	lastDecision *strategy.Decision
}

// New wires a Chat. Every role of roles needs exactly one agent and every
// agent must belong to the roster.
func New(
	session *core.Session,
	roles agent.Roles,
	agents []agent.Agent,
	selection Selector,
	termination Terminator,
	optFns ...func(o *Options),
) (*Chat, error) {
	opts := Options{
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := roles.Validate(); err != nil {
		return nil, err
	}
	if session == nil || selection == nil || termination == nil {
		return nil, errors.New("groupchat: session, selection and termination are required")
	}

	byName := make(map[string]agent.Agent, len(agents))
	for _, a := range agents {
		if !roles.Contains(a.Name()) {
			return nil, fmt.Errorf("%w: %q is not part of the roster", ErrUnknownAgent, a.Name())
		}
		byName[a.Name()] = a
	}
	for _, name := range roles.Names() {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("%w: no agent for %q", ErrUnknownAgent, name)
		}
	}

	if opts.EventBufferSize < 1 {
		opts.EventBufferSize = 1
	}

	return &Chat{
		session:         session,
		roles:           roles,
		agents:          byName,
		selection:       selection,
		termination:     termination,
		eventBufferSize: opts.EventBufferSize,
		logger:          logging.OrNoOp(opts.Logger),
	}, nil
}

// Session returns the session the chat operates on.
func (c *Chat) Session() *core.Session { return c.session }

// Roles returns the roster.
func (c *Chat) Roles() agent.Roles { return c.roles }

// LastDecision returns the termination decision of the last completed run.
func (c *Chat) LastDecision() (strategy.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastDecision == nil {
		return strategy.Decision{}, false
	}
	return *c.lastDecision, true
}

// Run starts a turn for the user input and returns immediately. Events are
// delivered until the turn ends; then both channels are closed. At most one
// error is sent on the error channel.
func (c *Chat) Run(ctx context.Context, input string) (string, <-chan Event, <-chan error, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil, nil, ErrEmptyInput
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return "", nil, nil, ErrBusy
	}

	runID := core.NewSessionID()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	user := core.NewUserMessage(input)
	if err := c.session.BeginTurn(user); err != nil {
		c.mu.Unlock()
		cancel()
		return "", nil, nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}

	c.runID, c.cancel, c.done = runID, cancel, done
	c.lastDecision = nil
	c.mu.Unlock()

	eventsCh := make(chan Event, c.eventBufferSize)
	errorsCh := make(chan error, 1)

	go func() {
		defer func() {
			cancel()

			c.mu.Lock()
			c.runID, c.cancel, c.done = "", nil, nil
			c.mu.Unlock()

			close(done)
			close(eventsCh)
			close(errorsCh)
		}()

		if err := c.runTurn(ctx, runID, user, eventsCh); err != nil {
			errorsCh <- err
		}
	}()

	return runID, eventsCh, errorsCh, nil
}

// Result summarizes a synchronous run.
type Result struct {
	RunID    string
	Messages []core.Message // agent messages in order
	Decision strategy.Decision
	Duration time.Duration
}

// RunSync runs a turn and waits for it to end.
func (c *Chat) RunSync(ctx context.Context, input string) (Result, error) {
	start := time.Now()

	runID, events, errs, err := c.Run(ctx, input)
	if err != nil {
		return Result{}, err
	}

	res := Result{RunID: runID}
	for ev := range events {
		switch ev.Type {
		case EventMessage:
			if ev.Message.Role == core.RoleAgent {
				res.Messages = append(res.Messages, *ev.Message)
			}
		case EventTerminated:
			res.Decision = *ev.Decision
		}
	}
	res.Duration = time.Since(start)

	if err := <-errs; err != nil {
		return res, err
	}

	return res, nil
}

// ActiveRun returns the id of the run in flight.
func (c *Chat) ActiveRun() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID, c.runID != ""
}

// Cancel cancels the active run, if any. It reports whether a run was cancelled.
func (c *Chat) Cancel() bool {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Reset clears the transcript and counters regardless of state. An active
// run is cancelled and awaited first.
func (c *Chat) Reset() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.session.Reset()

	c.mu.Lock()
	c.lastDecision = nil
	c.mu.Unlock()

	c.logger.Info("chat.reset", "session_id", c.session.ID)
}

func (c *Chat) runTurn(ctx context.Context, runID string, user core.Message, eventsCh chan<- Event) (err error) {
	ctx, span := tracing.StartSpan(ctx, "chat.run",
		tracing.StringAttr("session_id", c.session.ID),
		tracing.StringAttr("run_id", runID),
	)
	defer func() { tracing.End(span, err) }()

	logger := c.logger
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithSession(c.session.ID, runID)
	}

	start := time.Now()
	logger.Info("chat.turn.start", "input_length", len(user.Content))

	emit := func(ev Event) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case eventsCh <- ev:
			return nil
		}
	}

	abort := func(iteration int, cause error) error {
		c.session.Abort()
		logTurn(logger, iteration, "aborted", time.Since(start), cause)

		ev := newEvent(EventError, runID, iteration)
		ev.Err = cause
		select {
		case eventsCh <- ev:
		default:
		}
		return cause
	}

	m := user
	if err := emit(Event{Type: EventMessage, RunID: runID, Message: &m, Timestamp: m.Timestamp}); err != nil {
		return abort(0, err)
	}

	transcript := c.session.Transcript()
	iteration := 0

	for {
		if err := ctx.Err(); err != nil {
			return abort(iteration, err)
		}

		next, err := c.step(ctx, transcript, iteration, runID, emit, logger)
		if err != nil {
			return abort(iteration, err)
		}
		iteration = next.iteration

		if next.decision.Stop {
			d := next.decision
			c.session.Finish(d.Resolved())
			defer c.session.Settle()

			c.mu.Lock()
			c.lastDecision = &d
			c.mu.Unlock()

			logTurn(logger, iteration, string(d.Reason), time.Since(start), nil)

			ev := newEvent(EventTerminated, runID, iteration)
			ev.Decision = &d
			if err := emit(ev); err != nil {
				return err
			}
			return nil
		}
	}
}

type stepResult struct {
	iteration int
	decision  strategy.Decision
}

// step runs select, act, append and shouldStop once.
func (c *Chat) step(
	ctx context.Context,
	transcript core.History,
	iteration int,
	runID string,
	emit func(Event) error,
	logger logging.Logger,
) (res stepResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "chat.turn", tracing.IntAttr("iteration", iteration+1))
	defer func() { tracing.End(span, err) }()

	name, err := c.selection.SelectNext(ctx, transcript)
	if err != nil {
		return stepResult{}, fmt.Errorf("select next agent: %w", err)
	}

	a, ok := c.agents[name]
	if !ok {
		logger.Warn("chat.unknown_agent", "agent", name, "fallback", c.roles.Analyst)
		name = c.roles.Analyst
		a = c.agents[name]
	}
	span.SetAttributes(tracing.StringAttr("agent", name))

	sel := newEvent(EventSelected, runID, iteration)
	sel.Agent = name
	if err := emit(sel); err != nil {
		return stepResult{}, err
	}

	msg, err := a.Act(ctx, transcript)
	if err != nil {
		return stepResult{}, fmt.Errorf("agent %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return stepResult{}, err
	}

	msg.Role = core.RoleAgent
	msg.Author = name
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	iteration = c.session.Record(msg)
	logger.Debug("chat.message.appended", "agent", name, "iteration", iteration, "verdict", msg.Payload != nil)

	ev := newEvent(EventMessage, runID, iteration)
	ev.Agent = name
	ev.Message = &msg
	if err := emit(ev); err != nil {
		return stepResult{}, err
	}

	d, err := c.termination.ShouldStop(ctx, transcript, iteration)
	if err != nil {
		return stepResult{}, fmt.Errorf("termination: %w", err)
	}

	return stepResult{iteration: iteration, decision: d}, nil
}

func logTurn(l logging.Logger, iterations int, reason string, dur time.Duration, err error) {
	if sl, ok := l.(*logging.StructuredLogger); ok {
		sl.LogTurn(iterations, reason, dur, err)
		return
	}
	if err != nil {
		l.Error("chat.turn.failed", "iterations", iterations, "reason", reason, "error", err.Error())
		return
	}
	l.Info("chat.turn.complete", "iterations", iterations, "reason", reason, "duration_ms", dur.Milliseconds())
}
