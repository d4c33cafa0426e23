package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/hupe1980/triage/core"
)

type hostArgs struct {
	Host string `json:"host" description:"Host name"`
}

func echoTool(t *testing.T, name string, calls *int32) *FunctionTool {
	t.Helper()
	ft, err := NewFunctionToolFromStruct(name, "echo host", hostArgs{}, func(_ context.Context, args map[string]any) (any, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return args["host"], nil
	})
	require.NoError(t, err)
	return ft
}

// -------------------- FunctionTool --------------------

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool, err := NewFunctionTool("sum", "Add numbers", params, func(_ context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
	require.NoError(t, err)

	result, err := sumTool.Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	ft := echoTool(t, "echo", nil)

	_, err := ft.Call(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = ft.Call(context.Background(), map[string]any{"host": 42})
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	ft := MustFunctionTool("fail", "Fails", nil, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	_, err := ft.Call(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, CodeExecution, ErrorCode(err))

	custom := MustFunctionTool("custom", "Fails", nil, func(context.Context, map[string]any) (any, error) {
		return nil, NewToolError("custom", "nope", "E123")
	})
	_, err = custom.Call(context.Background(), nil)
	assert.Equal(t, "E123", ErrorCode(err))
}

func TestNewFunctionTool_InvalidSchema(t *testing.T) {
	_, err := NewFunctionTool("bad", "bad", map[string]any{"type": 12}, nil)
	assert.Error(t, err)
}

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}

// -------------------- Registry --------------------

func TestRegistry_ListForSortedAndUnknownEmpty(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("NetworkAgent", echoTool(t, "traceroute", nil), echoTool(t, "ping", nil)))

	names := []string{}
	for _, tl := range r.ListFor("NetworkAgent") {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"ping", "traceroute"}, names)
	assert.Empty(t, r.ListFor("Nobody"))

	_, ok := r.Lookup("NetworkAgent", "ping")
	assert.True(t, ok)
	_, ok = r.Lookup("CommonAgent", "ping")
	assert.False(t, ok)
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	a := echoTool(t, "ping", nil)
	require.NoError(t, r.Register("n", a))
	require.NoError(t, r.Register("n", a))
	assert.Error(t, r.Register("n", echoTool(t, "ping", nil)))
}

func TestRegistry_ToolsetIsSnapshot(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("n", echoTool(t, "ping", nil)))
	ts := r.Toolset("n")
	require.NoError(t, r.Register("n", echoTool(t, "traceroute", nil)))

	assert.Equal(t, []string{"ping"}, ts.Names())
	assert.False(t, ts.Allowed("traceroute"))
}

// -------------------- Toolset --------------------

func TestToolset_ExecuteSuccess(t *testing.T) {
	ts := NewToolset("n", []Tool{echoTool(t, "ping", nil)})

	resp := ts.Execute(context.Background(), core.FunctionCall{ID: "c1", Name: "ping", Arguments: `{"host":"example.com"}`})
	assert.Empty(t, resp.Error)
	assert.Equal(t, "c1", resp.ID)
	assert.Equal(t, "example.com", resp.Response)
}

func TestToolset_FailsClosed(t *testing.T) {
	var calls int32
	other := echoTool(t, "cpu_usage", &calls)
	ts := NewToolset("NetworkAgent", []Tool{echoTool(t, "ping", nil)})

	resp := ts.Execute(context.Background(), core.FunctionCall{Name: other.Name(), Arguments: `{"host":"x"}`})
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, CodeNotAllowed, resp.Response.(map[string]any)["code"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	var nilSet *Toolset
	resp = nilSet.Execute(context.Background(), core.FunctionCall{Name: "ping"})
	assert.Contains(t, resp.Error, CodeNotAllowed)
}

func TestToolset_BadArguments(t *testing.T) {
	ts := NewToolset("n", []Tool{echoTool(t, "ping", nil)})
	resp := ts.Execute(context.Background(), core.FunctionCall{Name: "ping", Arguments: `{not json`})
	assert.Contains(t, resp.Error, CodeValidation)
}

func TestToolset_RecoversPanics(t *testing.T) {
	boom := MustFunctionTool("boom", "panics", nil, func(context.Context, map[string]any) (any, error) {
		panic("kaboom")
	})
	ts := NewToolset("n", []Tool{boom})
	resp := ts.Execute(context.Background(), core.FunctionCall{Name: "boom"})
	assert.Contains(t, resp.Error, CodePanic)
	assert.Contains(t, resp.Error, "kaboom")
}

func TestToolset_Timeout(t *testing.T) {
	slow := MustFunctionTool("slow", "blocks", nil, func(ctx context.Context, _ map[string]any) (any, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return "late", nil
	})
	ts := NewToolset("n", []Tool{slow}, func(o *ToolsetOptions) { o.Timeout = 20 * time.Millisecond })

	start := time.Now()
	resp := ts.Execute(context.Background(), core.FunctionCall{Name: "slow"})
	assert.Contains(t, resp.Error, CodeTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

// -------------------- RateLimited --------------------

func TestRateLimited(t *testing.T) {
	var calls int32
	limited := RateLimited(echoTool(t, "ping", &calls), rate.NewLimiter(rate.Every(time.Hour), 1))

	_, err := limited.Call(context.Background(), map[string]any{"host": "a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.Call(ctx, map[string]any{"host": "b"})
	assert.Equal(t, CodeRateLimited, ErrorCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "ping", limited.Name())

	plain := echoTool(t, "dns", nil)
	assert.Same(t, plain, RateLimited(plain, nil))
}
