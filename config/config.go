// Package config loads the runtime configuration: model credentials from the
// environment (optionally seeded from a .env file), TRIAGE_* knobs and the
// agent roster from agents.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider selects the model backend.
type Provider string

const (
	ProviderAzure     Provider = "azure"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderMock      Provider = "mock"
)

// Host metric sources.
const (
	HostMetricsSystem = "system"
	HostMetricsFixed  = "fixed"
)

// Config is the top-level application configuration.
type Config struct {
	Provider  Provider        `mapstructure:"provider"`
	Azure     AzureConfig     `mapstructure:"azure"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Model     ModelConfig     `mapstructure:"model"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`

	// AgentsFile is the roster file. Empty selects the embedded default.
	AgentsFile string `mapstructure:"agents_file"`
	Roster     Roster `mapstructure:"-"`
}

// AzureConfig holds the Azure OpenAI deployment.
type AzureConfig struct {
	Deployment string `mapstructure:"deployment"`
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	APIVersion string `mapstructure:"api_version"`
}

// OpenAIConfig holds the OpenAI account.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds the Anthropic account.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ModelConfig holds settings shared by all backends.
type ModelConfig struct {
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ChatConfig holds the orchestration limits.
type ChatConfig struct {
	MaxIterations   int           `mapstructure:"max_iterations"`
	MaxToolRounds   int           `mapstructure:"max_tool_rounds"`
	ToolTimeout     time.Duration `mapstructure:"tool_timeout"`
	HistoryMessages int           `mapstructure:"history_messages"`
	// ModelSelection lets the model pick the next speaker; otherwise keywords do.
	ModelSelection bool `mapstructure:"model_selection"`
}

// ProbeConfig holds the diagnostic capability settings.
type ProbeConfig struct {
	HostMetrics string `mapstructure:"host_metrics"`
	// RateLimit is the number of probe calls per second. Zero disables limiting.
	RateLimit   float64       `mapstructure:"rate_limit"`
	Burst       int           `mapstructure:"burst"`
	PingTimeout time.Duration `mapstructure:"ping_timeout"`
}

// BreakerConfig holds the circuit breaker around the model backend.
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout" or a file path.
	Output    string `mapstructure:"output"`
	AddSource bool   `mapstructure:"add_source"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// ErrMissingCredentials is returned when the selected provider lacks credentials.
var ErrMissingCredentials = errors.New("missing credentials")

// LoadOptions controls Load.
type LoadOptions struct {
	// EnvFile is an optional dotenv file. A missing file is ignored.
	EnvFile string
	// AgentsFile overrides the roster file.
	AgentsFile string
}

// envBindings maps config keys to the environment variables read for them,
// in order of precedence.
var envBindings = map[string][]string{
	"provider":           {"TRIAGE_PROVIDER"},
	"azure.deployment":   {"AZURE_OPENAI_MODEL_ID", "AZURE_OPENAI_DEPLOYMENT"},
	"azure.endpoint":     {"AZURE_OPENAI_ENDPOINT"},
	"azure.api_key":      {"AZURE_OPENAI_API_KEY"},
	"azure.api_version":  {"AZURE_OPENAI_API_VERSION"},
	"openai.api_key":     {"OPENAI_API_KEY"},
	"openai.model":       {"TRIAGE_OPENAI_MODEL", "OPENAI_MODEL"},
	"openai.base_url":    {"OPENAI_BASE_URL"},
	"anthropic.api_key":  {"ANTHROPIC_API_KEY"},
	"anthropic.model":    {"TRIAGE_ANTHROPIC_MODEL", "ANTHROPIC_MODEL"},
	"probe.host_metrics": {"TRIAGE_HOST_METRICS", "TRIAGE_PROBE_HOST_METRICS"},
	"agents_file":        {"TRIAGE_AGENTS_FILE"},
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Provider: ProviderAzure,
		Azure:    AzureConfig{APIVersion: "2024-10-21"},
		OpenAI:   OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-sonnet-20241022",
		},
		Model: ModelConfig{Temperature: 0.2, MaxTokens: 1024, Timeout: 120 * time.Second},
		Chat: ChatConfig{
			MaxIterations: 10,
			MaxToolRounds: 8,
			ToolTimeout:   45 * time.Second,
		},
		Probe: ProbeConfig{
			HostMetrics: HostMetricsSystem,
			RateLimit:   5,
			Burst:       5,
			PingTimeout: 5 * time.Second,
		},
		Breaker: BreakerConfig{Enabled: true, MaxFailures: 5, Timeout: 30 * time.Second},
		Log:     LogConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracing: TracingConfig{Exporter: "noop"},
	}
}

// Load builds the configuration from defaults, the optional dotenv file and
// the process environment, in increasing order of precedence, then loads the
// roster. It does not validate credentials; call Validate before any turn.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if opts.EnvFile != "" {
		if err := applyEnvFile(v, opts.EnvFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))

	if opts.AgentsFile != "" {
		cfg.AgentsFile = opts.AgentsFile
	}

	roster, err := LoadRoster(cfg.AgentsFile)
	if err != nil {
		return nil, err
	}
	cfg.Roster = roster

	return cfg, nil
}

// applyEnvFile reads KEY=VALUE pairs and uses them for every setting whose
// variables are not set in the process environment.
func applyEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}

	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	lookup := func(envs []string) (any, bool) {
		for _, name := range envs {
			if _, set := os.LookupEnv(name); set {
				return nil, false
			}
		}
		for _, name := range envs {
			key := strings.ToLower(name)
			if dotenv.IsSet(key) {
				return dotenv.Get(key), true
			}
		}
		return nil, false
	}

	for key, envs := range envBindings {
		if val, ok := lookup(envs); ok {
			v.SetDefault(key, val)
		}
	}

	// Remaining TRIAGE_* entries map onto nested keys, e.g. TRIAGE_CHAT_MAX_ITERATIONS.
	for _, k := range v.AllKeys() {
		if _, bound := envBindings[k]; bound {
			continue
		}
		name := "TRIAGE_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(k))
		if val, ok := lookup([]string{name}); ok {
			v.SetDefault(k, val)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("provider", string(d.Provider))
	v.SetDefault("agents_file", d.AgentsFile)

	v.SetDefault("azure.deployment", d.Azure.Deployment)
	v.SetDefault("azure.endpoint", d.Azure.Endpoint)
	v.SetDefault("azure.api_key", d.Azure.APIKey)
	v.SetDefault("azure.api_version", d.Azure.APIVersion)

	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)

	v.SetDefault("anthropic.api_key", d.Anthropic.APIKey)
	v.SetDefault("anthropic.model", d.Anthropic.Model)

	v.SetDefault("model.temperature", d.Model.Temperature)
	v.SetDefault("model.max_tokens", d.Model.MaxTokens)
	v.SetDefault("model.timeout", d.Model.Timeout)

	v.SetDefault("chat.max_iterations", d.Chat.MaxIterations)
	v.SetDefault("chat.max_tool_rounds", d.Chat.MaxToolRounds)
	v.SetDefault("chat.tool_timeout", d.Chat.ToolTimeout)
	v.SetDefault("chat.history_messages", d.Chat.HistoryMessages)
	v.SetDefault("chat.model_selection", d.Chat.ModelSelection)

	v.SetDefault("probe.host_metrics", d.Probe.HostMetrics)
	v.SetDefault("probe.rate_limit", d.Probe.RateLimit)
	v.SetDefault("probe.burst", d.Probe.Burst)
	v.SetDefault("probe.ping_timeout", d.Probe.PingTimeout)

	v.SetDefault("breaker.enabled", d.Breaker.Enabled)
	v.SetDefault("breaker.max_failures", d.Breaker.MaxFailures)
	v.SetDefault("breaker.timeout", d.Breaker.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.add_source", d.Log.AddSource)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
}
