package config

import (
	"fmt"
	"strings"

	"github.com/hupe1980/triage/logging"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []error
}

func (v *ValidationError) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		msgs[i] = err.Error()
	}
	return "config validation failed:\n  - " + strings.Join(msgs, "\n  - ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (v *ValidationError) Unwrap() []error { return v.Errors }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool { return len(v.Errors) > 0 }

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Errorf(format, args...))
}

// Validate checks the configuration before any turn is attempted. It
// returns a *ValidationError listing every problem.
func (c *Config) Validate() error {
	ve := &ValidationError{}
	c.validateProvider(ve)
	c.validateChat(ve)
	c.validateProbe(ve)
	c.validateLog(ve)
	c.validateTracing(ve)
	if err := c.Roster.Roles.Validate(); err != nil {
		ve.Add("agents: %w", err)
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func (c *Config) validateProvider(ve *ValidationError) {
	switch c.Provider {
	case ProviderAzure:
		if c.Azure.Deployment == "" || c.Azure.Endpoint == "" || c.Azure.APIKey == "" {
			ve.Add("%w: Please set the environment variables AZURE_OPENAI_MODEL_ID, AZURE_OPENAI_ENDPOINT, and AZURE_OPENAI_API_KEY", ErrMissingCredentials)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			ve.Add("%w: Please set the environment variable OPENAI_API_KEY", ErrMissingCredentials)
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			ve.Add("%w: Please set the environment variable ANTHROPIC_API_KEY", ErrMissingCredentials)
		}
	case ProviderMock:
	default:
		ve.Add("provider %q is invalid (expected azure, openai, anthropic or mock)", c.Provider)
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		ve.Add("model.temperature must be between 0 and 2")
	}
	if c.Model.Timeout <= 0 {
		ve.Add("model.timeout must be > 0")
	}
	if c.Breaker.Enabled && c.Breaker.MaxFailures == 0 {
		ve.Add("breaker.max_failures must be > 0 when the breaker is enabled")
	}
}

func (c *Config) validateChat(ve *ValidationError) {
	if c.Chat.MaxIterations <= 0 {
		ve.Add("chat.max_iterations must be > 0")
	}
	if c.Chat.MaxToolRounds < 0 {
		ve.Add("chat.max_tool_rounds must be >= 0")
	}
	if c.Chat.ToolTimeout < 0 {
		ve.Add("chat.tool_timeout must be >= 0")
	}
	if c.Chat.HistoryMessages < 0 {
		ve.Add("chat.history_messages must be >= 0")
	}
}

func (c *Config) validateProbe(ve *ValidationError) {
	switch c.Probe.HostMetrics {
	case HostMetricsSystem, HostMetricsFixed:
	default:
		ve.Add("probe.host_metrics %q is invalid (expected system or fixed)", c.Probe.HostMetrics)
	}
	if c.Probe.RateLimit < 0 {
		ve.Add("probe.rate_limit must be >= 0")
	}
	if c.Probe.RateLimit > 0 && c.Probe.Burst <= 0 {
		ve.Add("probe.burst must be > 0 when rate limiting is enabled")
	}
	if c.Probe.PingTimeout <= 0 {
		ve.Add("probe.ping_timeout must be > 0")
	}
}

func (c *Config) validateLog(ve *ValidationError) {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		ve.Add("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		ve.Add("log.format %q is invalid (expected json or text)", c.Log.Format)
	}
	if c.Log.Output == "" {
		ve.Add("log.output must not be empty")
	}
}

func (c *Config) validateTracing(ve *ValidationError) {
	switch c.Tracing.Exporter {
	case "noop", "stdout":
	default:
		ve.Add("tracing.exporter %q is invalid (expected noop or stdout)", c.Tracing.Exporter)
	}
}
