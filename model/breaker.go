package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/hupe1980/triage/logging"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// ErrCircuitOpen is wrapped into errors returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures" mapstructure:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// Breaker wraps a Model with circuit breaker protection. When the wrapped
// model fails repeatedly, calls fail fast without reaching the provider.
// Context cancellation does not count as a failure.
type Breaker struct {
	inner   Model
	breaker *gobreaker.CircuitBreaker[Response]
}

var _ Model = (*Breaker)(nil)

// NewBreaker wraps inner with a circuit breaker. Zero config fields use defaults.
func NewBreaker(inner Model, cfg BreakerConfig, logger logging.Logger) *Breaker {
	logger = logging.OrNoOp(logger)

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[Response](gobreaker.Settings{
		Name:        "model:" + inner.Info().Provider + "/" + inner.Info().Name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("model.breaker.state_change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{inner: inner, breaker: cb}
}

// Generate implements Model. The inner call is collected and routed
// through the breaker, so the breaker only ever emits whole responses.
func (b *Breaker) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		resp, err := b.breaker.Execute(func() (Response, error) {
			return Collect(ctx, b.inner, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				errCh <- fmt.Errorf("model %q: %w: %w", b.inner.Info().Name, ErrCircuitOpen, err)
				return
			}
			errCh <- err
			return
		}

		respCh <- resp
	}()

	return respCh, errCh
}

// Info implements Model.
func (b *Breaker) Info() Info { return b.inner.Info() }

// State returns the current circuit breaker state for monitoring.
func (b *Breaker) State() gobreaker.State { return b.breaker.State() }

// Counts returns the current circuit breaker failure/success counts.
func (b *Breaker) Counts() gobreaker.Counts { return b.breaker.Counts() }
