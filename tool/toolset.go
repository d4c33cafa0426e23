package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/logging"
	"github.com/hupe1980/triage/tracing"
)

// DefaultCallTimeout bounds a single capability call.
const DefaultCallTimeout = 45 * time.Second

// ToolsetOptions configures a Toolset.
type ToolsetOptions struct {
	// Timeout bounds each call. Zero disables the bound.
	Timeout time.Duration
	Logger  logging.Logger
}

// Toolset is the fixed set of capabilities one agent may invoke. Calls to
// any other name fail closed with NOT_ALLOWED and never reach a tool.
type Toolset struct {
	agent string
	tools map[string]Tool
	order []Tool
	opts  ToolsetOptions
}

// NewToolset creates a toolset for agent. Later duplicates of a name are ignored.
func NewToolset(agent string, tools []Tool, optFns ...func(o *ToolsetOptions)) *Toolset {
	opts := ToolsetOptions{
		Timeout: DefaultCallTimeout,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	ts := &Toolset{agent: agent, tools: make(map[string]Tool, len(tools)), opts: opts}
	for _, t := range tools {
		if t == nil {
			continue
		}
		if _, dup := ts.tools[t.Name()]; dup {
			continue
		}
		ts.tools[t.Name()] = t
		ts.order = append(ts.order, t)
	}

	return ts
}

// Agent returns the identity this toolset belongs to.
func (ts *Toolset) Agent() string {
	if ts == nil {
		return ""
	}
	return ts.agent
}

// Tools returns the allowed capabilities in registration order.
func (ts *Toolset) Tools() []Tool {
	if ts == nil {
		return nil
	}
	return append([]Tool(nil), ts.order...)
}

// Names returns the allowed capability names.
func (ts *Toolset) Names() []string {
	if ts == nil {
		return nil
	}
	names := make([]string, len(ts.order))
	for i, t := range ts.order {
		names[i] = t.Name()
	}
	return names
}

// Allowed reports whether name is part of the toolset.
func (ts *Toolset) Allowed(name string) bool {
	if ts == nil {
		return false
	}
	_, ok := ts.tools[name]
	return ok
}

// Len returns the number of capabilities.
func (ts *Toolset) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.order)
}

// Execute runs a model requested call and always returns a response the
// model can read. Failures are reported in FunctionResponse.Error together
// with a {"error", "code"} body.
func (ts *Toolset) Execute(ctx context.Context, call core.FunctionCall) core.FunctionResponse {
	agent := ts.Agent()

	ctx, span := tracing.StartSpan(ctx, "tool.call",
		tracing.StringAttr("agent", agent),
		tracing.StringAttr("tool", call.Name),
	)

	start := time.Now()
	result, err := ts.execute(ctx, call)
	dur := time.Since(start)

	tracing.End(span, err)

	resp := core.FunctionResponse{ID: call.ID, Name: call.Name}
	if err != nil {
		resp.Error = err.Error()
		resp.Response = map[string]any{"error": err.Error(), "code": ErrorCode(err)}
		ts.logger().Warn("tool.call.error",
			"agent", agent, "tool", call.Name, "fc_id", call.ID,
			"code", ErrorCode(err), "error", err.Error(), "duration_ms", dur.Milliseconds())
		return resp
	}

	resp.Response = result
	ts.logger().Info("tool.call.success",
		"agent", agent, "tool", call.Name, "fc_id", call.ID, "duration_ms", dur.Milliseconds())

	return resp
}

func (ts *Toolset) logger() logging.Logger {
	if ts == nil {
		return logging.NoOpLogger{}
	}
	return ts.opts.Logger
}

func (ts *Toolset) execute(ctx context.Context, call core.FunctionCall) (any, error) {
	if !ts.Allowed(call.Name) {
		return nil, &ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("capability not available to agent %q", ts.Agent()),
			Code:    CodeNotAllowed,
		}
	}
	t := ts.tools[call.Name]

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return nil, &ToolError{Tool: call.Name, Message: err.Error(), Code: CodeValidation}
	}

	if ts.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ts.opts.Timeout)
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &ToolError{
					Tool:    call.Name,
					Message: fmt.Sprintf("panic: %v", r),
					Code:    CodePanic,
					Details: string(debug.Stack()),
				}}
			}
		}()

		res, err := t.Call(ctx, args)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, &ToolError{Tool: call.Name, Message: ctx.Err().Error(), Code: CodeTimeout}
	}
}

func decodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}
