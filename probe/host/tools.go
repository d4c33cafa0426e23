package host

import (
	"context"

	"github.com/hupe1980/triage/tool"
)

// Capability names exposed to agents.
const (
	ToolCPUUsage    = "cpu_usage"
	ToolMemoryUsage = "memory_usage"
	ToolDiskUsage   = "disk_usage"
)

// Tools exposes the metrics as capabilities.
func Tools(m *Metrics) []tool.Tool {
	return []tool.Tool{
		tool.MustFunctionTool(ToolCPUUsage,
			"Returns the current CPU usage in percent. E.g. 50 indicates 50% CPU usage",
			nil,
			func(ctx context.Context, _ map[string]any) (any, error) {
				return m.CPUUsagePercent(ctx), nil
			}),
		tool.MustFunctionTool(ToolMemoryUsage,
			"Returns the current memory usage in percent",
			nil,
			func(ctx context.Context, _ map[string]any) (any, error) {
				return m.MemoryUsagePercent(ctx), nil
			}),
		tool.MustFunctionTool(ToolDiskUsage,
			"Returns the current disk usage in percent",
			nil,
			func(ctx context.Context, _ map[string]any) (any, error) {
				return m.DiskUsagePercent(ctx), nil
			}),
	}
}
