package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/tool"
)

type failingSource struct{}

func (failingSource) CPUPercent(context.Context) (float64, error)    { return 0, errors.New("cpu") }
func (failingSource) MemoryPercent(context.Context) (float64, error) { return 0, errors.New("mem") }
func (failingSource) DiskPercent(context.Context) (float64, error)   { return 0, errors.New("disk") }

func TestMetrics_Fixed(t *testing.T) {
	m := NewMetrics(NewFixed(), nil)
	ctx := context.Background()

	assert.Equal(t, 75.0, m.CPUUsagePercent(ctx))
	assert.Equal(t, 32.0, m.MemoryUsagePercent(ctx))
	assert.Equal(t, 95.0, m.DiskUsagePercent(ctx))
}

func TestMetrics_Sentinel(t *testing.T) {
	m := NewMetrics(failingSource{}, nil)
	ctx := context.Background()

	assert.Equal(t, Unavailable, m.CPUUsagePercent(ctx))
	assert.Equal(t, Unavailable, m.MemoryUsagePercent(ctx))
	assert.Equal(t, Unavailable, m.DiskUsagePercent(ctx))
}

func TestTools(t *testing.T) {
	ts := tool.NewToolset("CommonAgent", Tools(NewMetrics(NewFixed(), nil)))
	require.Equal(t, []string{ToolCPUUsage, ToolMemoryUsage, ToolDiskUsage}, ts.Names())

	resp := ts.Execute(context.Background(), core.FunctionCall{Name: ToolDiskUsage, Arguments: "{}"})
	require.Empty(t, resp.Error)
	assert.Equal(t, 95.0, resp.Response)

	resp = ts.Execute(context.Background(), core.FunctionCall{Name: "ping"})
	assert.Contains(t, resp.Error, tool.CodeNotAllowed)
}
