// Package triage assembles the troubleshooting group chat from a loaded
// configuration: the model backend, the network and host capabilities, the
// four agents and the selection and termination strategies.
//
// Most applications interact with this package by:
//  1. Loading and validating a config.Config
//  2. Creating a Triage via New (optionally overriding the backend or probes)
//  3. Running turns asynchronously (Run) or synchronously (RunSync)
package triage

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/time/rate"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/config"
	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/groupchat"
	"github.com/hupe1980/triage/logging"
	"github.com/hupe1980/triage/model"
	"github.com/hupe1980/triage/model/anthropic"
	"github.com/hupe1980/triage/model/openai"
	"github.com/hupe1980/triage/probe/host"
	"github.com/hupe1980/triage/probe/network"
	"github.com/hupe1980/triage/strategy"
	"github.com/hupe1980/triage/tool"
)

// Options holds overrides passed to New.
type Options struct {
	// Model replaces the configured provider for every agent and decider.
	Model model.Model
	// HostSource replaces the configured host metric source.
	HostSource host.Source
	// Prober replaces the ICMP backed network prober.
	Prober *network.Prober
	// EventBufferSize sets channel buffering for run events.
	EventBufferSize int
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Triage is the assembled group chat.
type Triage struct {
	cfg      *config.Config
	backend  model.Model
	registry *tool.Registry
	chat     *groupchat.Chat
}

// New builds the group chat described by cfg. cfg must have been validated.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Triage, error) {
	opts := Options{
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)
	roles := cfg.Roster.Roles

	backend := opts.Model
	if backend == nil {
		var err error
		if backend, err = NewBackend(cfg, roles); err != nil {
			return nil, err
		}
	}
	if cfg.Breaker.Enabled {
		backend = model.NewBreaker(backend, model.BreakerConfig{
			MaxFailures: cfg.Breaker.MaxFailures,
			Timeout:     cfg.Breaker.Timeout,
		}, logger)
	}

	registry, err := newRegistry(cfg, roles, opts, logger)
	if err != nil {
		return nil, err
	}

	instructions := cfg.Roster.Prompts.Instructions(roles)
	agents := make([]agent.Agent, 0, len(roles.Names()))
	for _, name := range roles.Names() {
		agents = append(agents, agent.NewModelAgent(name, backend, func(o *agent.ModelAgentOptions) {
			o.Instruction = instructions[name]
			o.Roles = roles
			o.Toolset = registry.Toolset(name, func(t *tool.ToolsetOptions) { t.Logger = logger })
			o.MaxToolRounds = cfg.Chat.MaxToolRounds
			o.ToolTimeout = cfg.Chat.ToolTimeout
			o.MaxHistoryMessages = cfg.Chat.HistoryMessages
			o.ParseVerdict = name == roles.Resolver
			o.Logger = logger
		}))
	}

	var decider strategy.Decider
	if cfg.Chat.ModelSelection {
		decider = strategy.NewModelDecider(backend)
	}

	selection := strategy.NewSelection(roles, func(o *strategy.SelectionOptions) {
		o.Decider = decider
		o.Prompt = cfg.Roster.SelectionPrompt
		o.Logger = logger
	})
	termination := strategy.NewTermination(roles, func(o *strategy.TerminationOptions) {
		o.MaxIterations = cfg.Chat.MaxIterations
		o.Decider = decider
		o.Prompt = cfg.Roster.TerminationPrompt
		o.Logger = logger
	})

	chat, err := groupchat.New(core.NewSession(), roles, agents, selection, termination, func(o *groupchat.Options) {
		o.EventBufferSize = opts.EventBufferSize
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	logger.Info("triage.ready",
		"provider", string(cfg.Provider),
		"model", backend.Info().Name,
		"session_id", chat.Session().ID,
		"max_iterations", termination.MaxIterations(),
		"model_selection", cfg.Chat.ModelSelection,
	)

	return &Triage{cfg: cfg, backend: backend, registry: registry, chat: chat}, nil
}

// NewBackend creates the model of the configured provider.
func NewBackend(cfg *config.Config, roles agent.Roles) (model.Model, error) {
	httpClient := model.NewHTTPClient(model.HTTPConfig{RespTimeout: cfg.Model.Timeout})

	switch cfg.Provider {
	case config.ProviderAzure:
		return openai.NewAzureModel(openai.AzureConfig{
			Endpoint:   cfg.Azure.Endpoint,
			APIKey:     cfg.Azure.APIKey,
			APIVersion: cfg.Azure.APIVersion,
			Deployment: cfg.Azure.Deployment,
			HTTPClient: httpClient,
		}, func(o *openai.Options) {
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = int64(cfg.Model.MaxTokens)
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModelWithConfig(openai.ClientConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			HTTPClient: httpClient,
		}, func(o *openai.Options) {
			o.Model = cfg.OpenAI.Model
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = int64(cfg.Model.MaxTokens)
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.Anthropic.APIKey
			o.Model = anthropicsdk.Model(cfg.Anthropic.Model)
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = int64(cfg.Model.MaxTokens)
			o.HTTPClient = httpClient
		}), nil
	case config.ProviderMock:
		return NewOfflineModel(roles), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func newRegistry(cfg *config.Config, roles agent.Roles, opts Options, logger logging.Logger) (*tool.Registry, error) {
	prober := opts.Prober
	if prober == nil {
		prober = network.New(func(o *network.Options) {
			o.PingTimeout = cfg.Probe.PingTimeout
			o.Logger = logger
		})
	}

	source := opts.HostSource
	if source == nil {
		if cfg.Probe.HostMetrics == config.HostMetricsFixed {
			source = host.NewFixed()
		} else {
			source = host.NewSystem()
		}
	}

	// All probes share one limiter.
	var limiter *rate.Limiter
	if cfg.Probe.RateLimit > 0 {
		burst := cfg.Probe.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Probe.RateLimit), burst)
	}
	limited := func(tools []tool.Tool) []tool.Tool {
		out := make([]tool.Tool, len(tools))
		for i, t := range tools {
			out[i] = tool.RateLimited(t, limiter)
		}
		return out
	}

	registry := tool.NewRegistry()
	if err := registry.Register(roles.Network, limited(network.Tools(prober))...); err != nil {
		return nil, err
	}
	if err := registry.Register(roles.Common, limited(host.Tools(host.NewMetrics(source, logger)))...); err != nil {
		return nil, err
	}

	return registry, nil
}

// Chat returns the underlying group chat.
func (t *Triage) Chat() *groupchat.Chat { return t.chat }

// Model returns the backend shared by all agents.
func (t *Triage) Model() model.Model { return t.backend }

// Registry returns the capability registry.
func (t *Triage) Registry() *tool.Registry { return t.registry }

// Config returns the configuration the chat was built from.
func (t *Triage) Config() *config.Config { return t.cfg }

// Run starts a turn asynchronously returning event & error channels.
func (t *Triage) Run(ctx context.Context, input string) (string, <-chan groupchat.Event, <-chan error, error) {
	return t.chat.Run(ctx, input)
}

// RunSync runs a turn to completion.
func (t *Triage) RunSync(ctx context.Context, input string) (groupchat.Result, error) {
	return t.chat.RunSync(ctx, input)
}

// Reset discards the conversation.
func (t *Triage) Reset() { t.chat.Reset() }
