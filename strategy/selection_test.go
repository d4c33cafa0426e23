package strategy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/internal/testutil"
	"github.com/hupe1980/triage/model"
)

var roles = agent.DefaultRoles()

func fixedDecider(out string) Decider {
	return DeciderFunc(func(context.Context, string, []core.Message) (string, error) { return out, nil })
}

func TestSelection_EmptyTranscriptSelectsAnalyst(t *testing.T) {
	s := NewSelection(roles)
	next, err := s.SelectNext(context.Background(), core.NewTranscript())
	require.NoError(t, err)
	assert.Equal(t, roles.Analyst, next)
}

func TestSelection_Rules(t *testing.T) {
	var consulted int
	decider := DeciderFunc(func(context.Context, string, []core.Message) (string, error) {
		consulted++
		return roles.Resolver, nil
	})
	s := NewSelection(roles, func(o *SelectionOptions) { o.Decider = decider })

	tests := []struct {
		name    string
		history *core.Transcript
		want    string
	}{
		{"user", testutil.NewTranscriptBuilder().User("my video is choppy").Build(), roles.Analyst},
		{"system", testutil.NewTranscriptBuilder().System("reset").Build(), roles.Analyst},
		{"network", testutil.NewTranscriptBuilder().User("x").Agent(roles.Network, "ping 12ms").Build(), roles.Analyst},
		{"common", testutil.NewTranscriptBuilder().User("x").Agent(roles.Common, "cpu 75%").Build(), roles.Analyst},
		{"resolver", testutil.NewTranscriptBuilder().User("x").Verdict(roles.Resolver, false, "more facts").Build(), roles.Analyst},
		{"unknown", testutil.NewTranscriptBuilder().User("x").Agent("Stranger", "hello").Build(), roles.Analyst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := s.SelectNext(context.Background(), tt.history)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}

	assert.Zero(t, consulted)
}

func TestSelection_AnalystRoutedByDecider(t *testing.T) {
	var gotPrompt string
	var gotWindow []core.Message
	decider := DeciderFunc(func(_ context.Context, prompt string, window []core.Message) (string, error) {
		gotPrompt, gotWindow = prompt, window
		return " CommonAgent.\n", nil
	})
	s := NewSelection(roles, func(o *SelectionOptions) { o.Decider = decider })

	history := testutil.NewTranscriptBuilder().
		User("laptop is slow").
		Agent(roles.Analyst, "please check the network").
		Build()

	next, err := s.SelectNext(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, roles.Common, next)
	require.Len(t, gotWindow, 1)
	assert.Equal(t, roles.Analyst, gotWindow[0].Author)
	assert.Contains(t, gotPrompt, roles.Resolver)
	assert.NotContains(t, gotPrompt, "{{")
}

func TestSelection_DeciderSentence(t *testing.T) {
	s := NewSelection(roles, func(o *SelectionOptions) { o.Decider = fixedDecider("The next participant is Resolver") })
	history := testutil.NewTranscriptBuilder().Agent(roles.Analyst, "Summary: reboot").Build()

	next, err := s.SelectNext(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, roles.Resolver, next)
}

func TestSelection_InvalidDeciderOutputFallsBack(t *testing.T) {
	for _, out := range []string{"", "Analyst", "nobody", "NetworkAgent or CommonAgent"} {
		t.Run(out, func(t *testing.T) {
			s := NewSelection(roles, func(o *SelectionOptions) { o.Decider = fixedDecider(out) })
			history := testutil.NewTranscriptBuilder().
				Agent(roles.Analyst, "What is the CPU and memory usage?").
				Build()

			next, err := s.SelectNext(context.Background(), history)
			require.NoError(t, err)
			assert.Equal(t, roles.Common, next)
		})
	}
}

func TestSelection_DeciderErrorIsReturned(t *testing.T) {
	backendErr := errors.New("401 unauthorized")
	s := NewSelection(roles, func(o *SelectionOptions) {
		o.Decider = DeciderFunc(func(context.Context, string, []core.Message) (string, error) { return "", backendErr })
	})

	_, err := s.SelectNext(context.Background(), testutil.NewTranscriptBuilder().Agent(roles.Analyst, "ping?").Build())
	assert.ErrorIs(t, err, backendErr)
}

func TestSelection_ModelDecider(t *testing.T) {
	m := model.NewMockModel("selector", "mock").Respond("NetworkAgent")
	s := NewSelection(roles, func(o *SelectionOptions) { o.Decider = NewModelDecider(m) })

	history := testutil.NewTranscriptBuilder().User("x").Agent(roles.Analyst, "is DNS working?").Build()
	next, err := s.SelectNext(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, roles.Network, next)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Contents, 1)
	assert.Equal(t, "[Analyst] is DNS working?", reqs[0].Contents[0].Text())
}

func TestKeywordDecider_Route(t *testing.T) {
	d := NewKeywordDecider(roles)

	assert.Equal(t, roles.Network, d.Route("Please ping the gateway and check DNS."))
	assert.Equal(t, roles.Common, d.Route("What are the CPU and memory usage?"))
	assert.Equal(t, roles.Resolver, d.Route("Summary: the router drops packets, restart it."))
	assert.Equal(t, roles.Network, d.Route("hmm"))

	out, err := d.Decide(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, roles.Network, out)
}

// Property: a user message always selects the Analyst, and the selected
// agent never equals the author of the last message.
func TestSelection_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	authors := append(roles.Names(), "Stranger")
	outputs := []string{"", "Analyst", "NetworkAgent", "CommonAgent", "Resolver", "garbage", "resolver."}
	bodies := []string{"ping the host", "disk usage?", "Summary: done", "", "{\"approved\": true, \"solution\": \"x\"}"}

	for i := 0; i < 500; i++ {
		b := testutil.NewTranscriptBuilder()
		n := 1 + rng.Intn(6)
		for j := 0; j < n; j++ {
			switch rng.Intn(4) {
			case 0:
				b.User(bodies[rng.Intn(len(bodies))])
			default:
				b.Agent(authors[rng.Intn(len(authors))], bodies[rng.Intn(len(bodies))])
			}
		}
		history := b.Build()
		out := outputs[rng.Intn(len(outputs))]

		s := NewSelection(roles, func(o *SelectionOptions) { o.Decider = fixedDecider(out) })
		next, err := s.SelectNext(context.Background(), history)
		require.NoError(t, err)

		last, _ := history.Last()
		assert.True(t, roles.Contains(next), "selected %q", next)
		if last.Role == core.RoleUser {
			assert.Equal(t, roles.Analyst, next)
		}
		assert.NotEqual(t, last.Author, next, "decider output %q", out)
	}
}
