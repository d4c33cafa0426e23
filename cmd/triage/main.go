// Command triage is an interactive troubleshooting chat: describe a network
// or computer problem and a team of agents diagnoses it with live probes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/triage"
	"github.com/hupe1980/triage/config"
	"github.com/hupe1980/triage/internal/console"
	"github.com/hupe1980/triage/logging"
	"github.com/hupe1980/triage/tracing"
)

type rootFlags struct {
	envFile    string
	agentsFile string
	provider   string
	logLevel   string
	logFormat  string
	logOutput  string
	summary    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Multi-agent network and host troubleshooting chat",
		Long: `triage starts a group chat between four agents:
- Analyst reads your problem, asks the specialists for facts and proposes a solution.
- NetworkAgent runs ping, connection, adapter, DNS and traceroute checks.
- CommonAgent reads CPU, memory and disk usage.
- Resolver approves the proposed solution or sends the team back to work.

Type a problem description to start a turn, RESET to clear the conversation
and EXIT to quit. Ctrl+C cancels the running turn, or quits when idle.

Credentials are read from the environment (optionally seeded from --env-file):
AZURE_OPENAI_MODEL_ID, AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY for the
default azure provider, OPENAI_API_KEY or ANTHROPIC_API_KEY otherwise.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "dotenv file seeding unset environment variables")
	cmd.Flags().StringVar(&f.agentsFile, "agents", "", "agent roster file (default: built-in roster)")
	cmd.Flags().StringVar(&f.provider, "provider", "", "model provider: azure, openai, anthropic or mock")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	cmd.Flags().StringVar(&f.logOutput, "log-output", "", "log destination: stderr, stdout or a file path")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "print a summary table after every turn")

	return cmd
}

func run(ctx context.Context, f *rootFlags, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(config.LoadOptions{EnvFile: f.envFile, AgentsFile: f.agentsFile})
	if err != nil {
		return err
	}

	if f.provider != "" {
		cfg.Provider = config.Provider(f.provider)
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if f.logOutput != "" {
		cfg.Log.Output = f.logOutput
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	w, closeLog, err := logging.OpenOutput(cfg.Log.Output)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    w,
		AddSource: cfg.Log.AddSource,
		Component: "triage",
	})

	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:  cfg.Tracing.Enabled,
		Exporter: cfg.Tracing.Exporter,
		Output:   w,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("tracing.shutdown.error", "error", err.Error())
		}
	}()

	tr, err := triage.New(cfg, func(o *triage.Options) { o.Logger = logger })
	if err != nil {
		return err
	}

	repl := console.New(tr.Chat(), in, out, func(o *console.Options) {
		o.Summary = f.summary
		o.Logger = logger
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	go func() {
		for {
			select {
			case s := <-sig:
				if s == syscall.SIGTERM || !repl.Interrupt() {
					cancel()
					return
				}
				logger.Info("console.turn.interrupted")
			case <-ctx.Done():
				return
			}
		}
	}()

	return repl.Run(ctx)
}
