package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/strategy"
)

var credentialVars = []string{
	"TRIAGE_PROVIDER", "AZURE_OPENAI_MODEL_ID", "AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_ENDPOINT",
	"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_API_VERSION", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	"TRIAGE_HOST_METRICS", "TRIAGE_PROBE_HOST_METRICS", "TRIAGE_CHAT_MAX_ITERATIONS", "TRIAGE_AGENTS_FILE",
}

// unsetEnv removes variables for the duration of the test.
func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsValidateWithMockProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = ProviderMock
	cfg.Roster = DefaultRoster()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingAzureCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Roster = DefaultRoster()

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), "Please set the environment variables AZURE_OPENAI_MODEL_ID, AZURE_OPENAI_ENDPOINT, and AZURE_OPENAI_API_KEY")
}

func TestValidate_ProviderCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Roster = DefaultRoster()

	cfg.Provider = ProviderOpenAI
	assert.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)
	cfg.OpenAI.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg.Provider = ProviderAnthropic
	assert.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)

	cfg.Provider = "gemini"
	assert.ErrorContains(t, cfg.Validate(), `provider "gemini" is invalid`)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Provider = ProviderMock
	cfg.Roster = DefaultRoster()
	cfg.Chat.MaxIterations = 0
	cfg.Probe.HostMetrics = "random"
	cfg.Log.Level = "loud"
	cfg.Tracing.Exporter = "jaeger"

	err := cfg.Validate()
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 4)
	assert.Contains(t, err.Error(), "chat.max_iterations must be > 0")
	assert.Contains(t, err.Error(), `probe.host_metrics "random" is invalid`)
}

func TestLoad_FromEnvironment(t *testing.T) {
	unsetEnv(t, credentialVars...)
	t.Setenv("AZURE_OPENAI_MODEL_ID", "gpt-4o")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "secret")
	t.Setenv("TRIAGE_CHAT_MAX_ITERATIONS", "12")
	t.Setenv("TRIAGE_LOG_LEVEL", "debug")
	t.Setenv("TRIAGE_BREAKER_TIMEOUT", "1m")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderAzure, cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Azure.Deployment)
	assert.Equal(t, "https://example.openai.azure.com", cfg.Azure.Endpoint)
	assert.Equal(t, "secret", cfg.Azure.APIKey)
	assert.Equal(t, "2024-10-21", cfg.Azure.APIVersion)
	assert.Equal(t, 12, cfg.Chat.MaxIterations)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.Breaker.Timeout)
	assert.Equal(t, agent.DefaultRoles(), cfg.Roster.Roles)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, credentialVars...)
	t.Setenv("AZURE_OPENAI_API_KEY", "from-process")

	path := writeFile(t, ".env", `AZURE_OPENAI_MODEL_ID=gpt-4o
AZURE_OPENAI_ENDPOINT=https://dotenv.openai.azure.com
AZURE_OPENAI_API_KEY=from-file
TRIAGE_HOST_METRICS=fixed
TRIAGE_CHAT_MAX_ITERATIONS=7
`)

	cfg, err := Load(LoadOptions{EnvFile: path})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Azure.Deployment)
	assert.Equal(t, "https://dotenv.openai.azure.com", cfg.Azure.Endpoint)
	assert.Equal(t, "from-process", cfg.Azure.APIKey)
	assert.Equal(t, HostMetricsFixed, cfg.Probe.HostMetrics)
	assert.Equal(t, 7, cfg.Chat.MaxIterations)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	unsetEnv(t, credentialVars...)
	t.Setenv("TRIAGE_PROVIDER", "MOCK")

	cfg, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, cfg.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AgentsFile(t *testing.T) {
	unsetEnv(t, credentialVars...)
	path := writeFile(t, "agents.yaml", `roles:
  analyst: Lead
  resolver: Judge
prompts:
  analyst: "You are {{.Analyst}}. Ask {{.Network}}."
`)

	cfg, err := Load(LoadOptions{AgentsFile: path})
	require.NoError(t, err)

	assert.Equal(t, "Lead", cfg.Roster.Roles.Analyst)
	assert.Equal(t, agent.DefaultNetwork, cfg.Roster.Roles.Network)
	assert.Equal(t, "Judge", cfg.Roster.Roles.Resolver)
	assert.Equal(t, "You are {{.Analyst}}. Ask {{.Network}}.", cfg.Roster.Prompts.Analyst)
	assert.Equal(t, agent.DefaultPrompts().Resolver, cfg.Roster.Prompts.Resolver)
	assert.Equal(t, strategy.DefaultSelectionPrompt, cfg.Roster.SelectionPrompt)
}

func TestRosterFromYAML_Errors(t *testing.T) {
	_, err := RosterFromYAML([]byte("roles:\n  analyst: Same\n  network: Same\n"))
	assert.ErrorIs(t, err, agent.ErrInvalidRoles)

	_, err = RosterFromYAML([]byte("unknown: true\n"))
	assert.Error(t, err)

	r, err := RosterFromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, agent.DefaultRoles(), r.Roles)

	_, err = LoadRoster(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
