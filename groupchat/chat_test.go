package groupchat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/model"
	"github.com/hupe1980/triage/strategy"
	"github.com/hupe1980/triage/tool"
)

var roles = agent.DefaultRoles()

// scripted returns an agent answering with texts in order, repeating the last one.
func scripted(name string, texts ...string) agent.Agent {
	var (
		mu sync.Mutex
		i  int
	)
	return agent.NewFuncAgent(name, func(context.Context, core.History) (core.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		text := texts[i]
		if i < len(texts)-1 {
			i++
		}
		msg := core.NewAgentMessage(name, text)
		if v := agent.ParseVerdict(text); v != nil {
			msg = msg.WithVerdict(v)
		}
		return msg, nil
	})
}

// blocking returns an agent that waits for cancellation and signals when it starts.
func blocking(name string, started chan<- struct{}) agent.Agent {
	return agent.NewFuncAgent(name, func(ctx context.Context, _ core.History) (core.Message, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return core.Message{}, ctx.Err()
	})
}

func newChat(t *testing.T, agents ...agent.Agent) *Chat {
	t.Helper()
	chat, err := New(core.NewSession(), roles, agents, strategy.NewSelection(roles), strategy.NewTermination(roles))
	require.NoError(t, err)
	return chat
}

func collect(t *testing.T, events <-chan Event, errs <-chan error) ([]Event, error) {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out, <-errs
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("run did not finish")
		}
	}
}

func selectedAgents(events []Event) []string {
	var names []string
	for _, ev := range events {
		if ev.Type == EventSelected {
			names = append(names, ev.Agent)
		}
	}
	return names
}

func TestNew_Validation(t *testing.T) {
	sel, term := strategy.NewSelection(roles), strategy.NewTermination(roles)

	_, err := New(core.NewSession(), roles, []agent.Agent{scripted(roles.Analyst, "x")}, sel, term)
	assert.ErrorIs(t, err, ErrUnknownAgent)

	all := []agent.Agent{
		scripted(roles.Analyst, "x"), scripted(roles.Network, "x"),
		scripted(roles.Common, "x"), scripted(roles.Resolver, "x"), scripted("Stranger", "x"),
	}
	_, err = New(core.NewSession(), roles, all, sel, term)
	assert.ErrorIs(t, err, ErrUnknownAgent)

	bad := roles
	bad.Common = bad.Network
	_, err = New(core.NewSession(), bad, nil, sel, term)
	assert.ErrorIs(t, err, agent.ErrInvalidRoles)
}

func TestRun_EmptyInput(t *testing.T) {
	chat := newChat(t, scripted(roles.Analyst, "x"), scripted(roles.Network, "x"), scripted(roles.Common, "x"), scripted(roles.Resolver, "x"))
	_, _, _, err := chat.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 0, chat.Session().Transcript().Len())
}

// Scenario A: the analyst asks for network facts, the network agent probes,
// the analyst summarizes and the resolver approves.
func TestRun_ScenarioResolved(t *testing.T) {
	var probes []string
	var mu sync.Mutex
	probe := func(name string) tool.Tool {
		return tool.MustFunctionTool(name, name, nil, func(context.Context, map[string]any) (any, error) {
			mu.Lock()
			probes = append(probes, name)
			mu.Unlock()
			if name == "ping" {
				return int64(23), nil
			}
			return true, nil
		})
	}

	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(roles.Network, probe("ping"), probe("is_connected")))

	analystModel := model.NewMockModel("analyst", "mock").
		Respond("Please ping the streaming server and check whether the machine is connected.").
		Respond("Summary: the network is healthy, lower the stream quality.")
	networkModel := model.NewMockModel("network", "mock").
		CallTool("c1", "ping", `{"host":"video.example.com"}`).
		CallTool("c2", "is_connected", `{}`).
		Respond("ping 23ms, connected")
	resolverModel := model.NewMockModel("resolver", "mock").
		Respond(`{"approved": true, "solution": "lower the stream quality"}`)

	agents := []agent.Agent{
		agent.NewModelAgent(roles.Analyst, analystModel),
		agent.NewModelAgent(roles.Network, networkModel, func(o *agent.ModelAgentOptions) {
			o.Toolset = registry.Toolset(roles.Network)
		}),
		agent.NewModelAgent(roles.Common, model.NewMockModel("common", "mock")),
		agent.NewModelAgent(roles.Resolver, resolverModel, func(o *agent.ModelAgentOptions) { o.ParseVerdict = true }),
	}
	chat := newChat(t, agents...)

	_, events, errs, err := chat.Run(context.Background(), "my video is choppy")
	require.NoError(t, err)

	evs, err := collect(t, events, errs)
	require.NoError(t, err)

	require.NotEmpty(t, evs)
	assert.Equal(t, EventMessage, evs[0].Type)
	assert.Equal(t, core.RoleUser, evs[0].Message.Role)

	assert.Equal(t, []string{roles.Analyst, roles.Network, roles.Analyst, roles.Resolver}, selectedAgents(evs))
	assert.Equal(t, []string{"ping", "is_connected"}, probes)

	last := evs[len(evs)-1]
	require.Equal(t, EventTerminated, last.Type)
	assert.True(t, last.Decision.Stop)
	assert.Equal(t, strategy.ReasonResolved, last.Decision.Reason)
	assert.LessOrEqual(t, last.Iteration, strategy.DefaultMaxIterations)

	s := chat.Session()
	assert.Equal(t, core.StateAwaitingInput, s.State())
	assert.True(t, s.Completed())
	assert.Equal(t, 4, s.Iteration())
	assert.Equal(t, 5, s.Transcript().Len())

	d, ok := chat.LastDecision()
	require.True(t, ok)
	assert.Equal(t, "lower the stream quality", d.Verdict.Solution)
}

// Scenario B: a rejection keeps the turn going and hands back to the analyst.
func TestRun_ScenarioRejectedThenApproved(t *testing.T) {
	chat := newChat(t,
		scripted(roles.Analyst, "Summary: restart the router.", "Summary: restart the router and update the driver."),
		scripted(roles.Network, "n/a"),
		scripted(roles.Common, "n/a"),
		scripted(roles.Resolver,
			`{"approved": false, "solution": "the driver was not considered"}`,
			`{"approved": true, "solution": "restart the router and update the driver"}`),
	)

	res, err := chat.RunSync(context.Background(), "wifi drops")
	require.NoError(t, err)

	require.Len(t, res.Messages, 4)
	assert.Equal(t, roles.Resolver, res.Messages[1].Author)
	v, ok := res.Messages[1].Verdict()
	require.True(t, ok)
	assert.False(t, v.Approved)
	assert.Equal(t, roles.Analyst, res.Messages[2].Author)
	assert.Equal(t, strategy.ReasonResolved, res.Decision.Reason)
	assert.Equal(t, 4, chat.Session().Iteration())
}

// Scenario C: no approval ever; the ceiling ends the turn distinctly.
func TestRun_ScenarioCeiling(t *testing.T) {
	chat := newChat(t,
		scripted(roles.Analyst, "Summary: no idea."),
		scripted(roles.Network, "n/a"),
		scripted(roles.Common, "n/a"),
		scripted(roles.Resolver, `{"approved": false, "solution": "insufficient"}`),
	)

	res, err := chat.RunSync(context.Background(), "everything is slow")
	require.NoError(t, err)

	assert.Len(t, res.Messages, strategy.DefaultMaxIterations)
	assert.True(t, res.Decision.Stop)
	assert.Equal(t, strategy.ReasonCeiling, res.Decision.Reason)
	require.NotNil(t, res.Decision.Verdict)
	assert.False(t, res.Decision.Verdict.Approved)

	s := chat.Session()
	assert.False(t, s.Completed())
	assert.Equal(t, core.StateAwaitingInput, s.State())
	assert.Equal(t, strategy.DefaultMaxIterations, s.Iteration())

	for i := 1; i < len(res.Messages); i++ {
		assert.NotEqual(t, res.Messages[i-1].Author, res.Messages[i].Author)
	}

	// The loop is re-armable and the transcript keeps accumulating.
	_, err = chat.RunSync(context.Background(), "still slow")
	require.NoError(t, err)
	assert.Equal(t, 2*(strategy.DefaultMaxIterations+1), s.Transcript().Len())
}

func TestRun_BackendFailureAbortsTurn(t *testing.T) {
	backendErr := errors.New("503 service unavailable")
	networkModel := model.NewMockModel("network", "mock").Fail(backendErr).Respond("ping 10ms")

	chat := newChat(t,
		scripted(roles.Analyst, "Please ping the gateway.", "Summary: fine."),
		agent.NewModelAgent(roles.Network, networkModel),
		scripted(roles.Common, "n/a"),
		scripted(roles.Resolver, `{"approved": true, "solution": "fine"}`),
	)

	_, events, errs, err := chat.Run(context.Background(), "no internet")
	require.NoError(t, err)

	evs, err := collect(t, events, errs)
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
	assert.Equal(t, EventError, evs[len(evs)-1].Type)

	s := chat.Session()
	assert.Equal(t, core.StateAwaitingInput, s.State())
	assert.False(t, s.Completed())
	assert.Equal(t, 2, s.Transcript().Len()) // user + analyst
	_, ok := chat.LastDecision()
	assert.False(t, ok)

	// The session stays usable.
	res, err := chat.RunSync(context.Background(), "try again")
	require.NoError(t, err)
	assert.Equal(t, strategy.ReasonResolved, res.Decision.Reason)
}

func TestRun_BusyAndCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	chat := newChat(t,
		blocking(roles.Analyst, started),
		scripted(roles.Network, "n/a"),
		scripted(roles.Common, "n/a"),
		scripted(roles.Resolver, "n/a"),
	)

	_, events, errs, err := chat.Run(context.Background(), "hello")
	require.NoError(t, err)
	<-started

	_, _, _, err = chat.Run(context.Background(), "again")
	assert.ErrorIs(t, err, ErrBusy)

	assert.True(t, chat.Cancel())

	_, err = collect(t, events, errs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, core.StateAwaitingInput, chat.Session().State())
	assert.Equal(t, 1, chat.Session().Transcript().Len())
	assert.False(t, chat.Cancel())
}

func TestReset(t *testing.T) {
	chat := newChat(t,
		scripted(roles.Analyst, "Summary: ok."),
		scripted(roles.Network, "n/a"),
		scripted(roles.Common, "n/a"),
		scripted(roles.Resolver, `{"approved": true, "solution": "ok"}`),
	)

	_, err := chat.RunSync(context.Background(), "hi")
	require.NoError(t, err)
	require.NotZero(t, chat.Session().Transcript().Len())

	chat.Reset()

	s := chat.Session()
	assert.Equal(t, 0, s.Transcript().Len())
	assert.Equal(t, 0, s.Iteration())
	assert.Equal(t, core.StateAwaitingInput, s.State())
	_, ok := chat.LastDecision()
	assert.False(t, ok)
}

func TestReset_DuringRun(t *testing.T) {
	started := make(chan struct{}, 1)
	chat := newChat(t,
		blocking(roles.Analyst, started),
		scripted(roles.Network, "n/a"),
		scripted(roles.Common, "n/a"),
		scripted(roles.Resolver, "n/a"),
	)

	_, events, errs, err := chat.Run(context.Background(), "hello")
	require.NoError(t, err)
	<-started

	chat.Reset()

	_, err = collect(t, events, errs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, chat.Session().Transcript().Len())
	assert.Equal(t, 0, chat.Session().Iteration())
	assert.Equal(t, core.StateAwaitingInput, chat.Session().State())
}
