package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/logging"
	"github.com/hupe1980/triage/model"
	"github.com/hupe1980/triage/tool"
	"github.com/hupe1980/triage/tracing"
)

// Defaults for ModelAgentOptions.
const (
	DefaultMaxToolRounds = 8
	DefaultToolTimeout   = 45 * time.Second
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	// Instruction is the role prompt. It is rendered against Roles on every Act.
	Instruction Instruction
	// Roles is the template data for Instruction.
	Roles Roles
	// Toolset is the allow-listed capability set. Nil means no capabilities.
	Toolset *tool.Toolset
	// MaxToolRounds bounds the model/tool exchanges of one Act. When reached
	// the model is asked once more without tools.
	MaxToolRounds int
	// ToolTimeout bounds every capability call. Zero disables the bound.
	ToolTimeout time.Duration
	// MaxHistoryMessages limits the visible transcript to the most recent
	// messages. Zero means the full transcript.
	MaxHistoryMessages int
	// ParseVerdict attaches a Verdict payload parsed from the answer.
	ParseVerdict bool
	Logger       logging.Logger
}

// ModelAgent answers with the help of a language model and its allow-listed
// capabilities.
type ModelAgent struct {
	name  string
	llm   model.Model
	opts  ModelAgentOptions
	tools []model.ToolDefinition
}

// NewModelAgent creates a new model-based agent.
//
// Defaults: a generic instruction, no capabilities, 8 tool rounds, 45s per
// capability call, the full transcript and no verdict parsing.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:   NewInstructionFromText(fmt.Sprintf("You are %s, a helpful troubleshooting assistant.", name)),
		Roles:         DefaultRoles(),
		MaxToolRounds: DefaultMaxToolRounds,
		ToolTimeout:   DefaultToolTimeout,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.MaxToolRounds < 0 {
		opts.MaxToolRounds = 0
	}

	a := &ModelAgent{name: name, llm: llm, opts: opts}
	for _, t := range opts.Toolset.Tools() {
		a.tools = append(a.tools, model.NewFunctionDefinition(t.Name(), t.Description(), t.Parameters()))
	}

	return a
}

// Name implements Agent.
func (a *ModelAgent) Name() string { return a.name }

// Model returns the backing model.
func (a *ModelAgent) Model() model.Model { return a.llm }

// Toolset returns the agent's capability set.
func (a *ModelAgent) Toolset() *tool.Toolset { return a.opts.Toolset }

// Act implements Agent.
func (a *ModelAgent) Act(ctx context.Context, history core.History) (msg core.Message, err error) {
	ctx, span := tracing.StartSpan(ctx, "agent.act",
		tracing.StringAttr("agent", a.name),
		tracing.StringAttr("model", a.llm.Info().Name),
	)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	a.opts.Logger.Debug("agent.act.start", "agent", a.name, "history", history.Len())

	instructions, err := a.opts.Instruction.Render(ctx, a.opts.Roles)
	if err != nil {
		a.opts.Logger.Error("agent.act.error", "agent", a.name, "stage", "instruction", "error", err.Error())
		return core.Message{}, fmt.Errorf("agent %s: instruction: %w", a.name, err)
	}

	contents := a.buildContents(history)
	rounds := 0
	calls := 0

	var answer core.Content

	for {
		req := model.Request{Instructions: instructions, Contents: contents}
		if rounds < a.opts.MaxToolRounds {
			req.Tools = a.tools
		}

		callStart := time.Now()
		resp, genErr := model.Collect(ctx, a.llm, req)
		a.logModelCall(resp, time.Since(callStart), genErr)
		if genErr != nil {
			a.opts.Logger.Error("agent.act.error", "agent", a.name, "stage", "model", "round", rounds, "error", genErr.Error())
			return core.Message{}, fmt.Errorf("agent %s: model call: %w", a.name, genErr)
		}

		fnCalls := resp.Content.FunctionCalls()
		if len(fnCalls) == 0 || rounds >= a.opts.MaxToolRounds {
			if len(fnCalls) > 0 {
				a.opts.Logger.Warn("agent.tool_rounds.exhausted", "agent", a.name, "rounds", rounds, "dropped_calls", len(fnCalls))
			}
			answer = resp.Content
			break
		}

		resp.Content.Role = core.ContentRoleAssistant
		contents = append(contents, resp.Content)
		contents = append(contents, a.executeCalls(ctx, fnCalls))
		calls += len(fnCalls)
		rounds++
	}

	msg = core.NewAgentMessage(a.name, answer.Text())
	if a.opts.ParseVerdict {
		if v := ParseVerdict(msg.Content); v != nil {
			msg = msg.WithVerdict(v)
		} else {
			a.opts.Logger.Warn("agent.verdict.unparsed", "agent", a.name)
		}
	}

	a.opts.Logger.Info("agent.act.complete",
		"agent", a.name,
		"tool_rounds", rounds,
		"tool_calls", calls,
		"verdict", msg.Payload != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return msg, nil
}

func (a *ModelAgent) executeCalls(ctx context.Context, calls []core.FunctionCall) core.Content {
	out := core.Content{Role: core.ContentRoleTool}
	for _, call := range calls {
		callCtx := ctx
		cancel := func() {}
		if a.opts.ToolTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, a.opts.ToolTimeout)
		}
		resp := a.opts.Toolset.Execute(callCtx, call)
		cancel()
		out.Parts = append(out.Parts, core.FunctionResponsePart{FunctionResponse: resp})
	}
	return out
}

// buildContents converts the visible transcript into model contents. The
// agent's own messages become assistant turns; everything else is user
// content prefixed with its author so the model can tell speakers apart.
func (a *ModelAgent) buildContents(history core.History) []core.Content {
	var msgs []core.Message
	if a.opts.MaxHistoryMessages > 0 {
		msgs = history.Window(a.opts.MaxHistoryMessages)
	} else {
		msgs = history.Messages()
	}

	contents := make([]core.Content, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.Role == core.RoleAgent && m.Author == a.name:
			contents = append(contents, core.NewTextContent(core.ContentRoleAssistant, m.Content))
		case m.Role == core.RoleAgent:
			contents = append(contents, core.NewTextContent(core.ContentRoleUser, fmt.Sprintf("[%s] %s", m.Author, m.Content)))
		case m.Role == core.RoleSystem:
			contents = append(contents, core.NewTextContent(core.ContentRoleUser, "[system] "+m.Content))
		default:
			contents = append(contents, core.NewTextContent(core.ContentRoleUser, m.Content))
		}
	}
	return contents
}

func (a *ModelAgent) logModelCall(resp model.Response, dur time.Duration, err error) {
	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	if sl, ok := a.opts.Logger.(*logging.StructuredLogger); ok {
		sl.LogModelCall(a.llm.Info().Name, tokens, dur, err)
		return
	}
	if err != nil {
		a.opts.Logger.Warn("model.call.error", "agent", a.name, "model", a.llm.Info().Name, "error", err.Error())
		return
	}
	a.opts.Logger.Debug("model.call.success", "agent", a.name, "model", a.llm.Info().Name, "tokens", tokens, "duration_ms", dur.Milliseconds())
}
