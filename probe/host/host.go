// Package host reports host resource utilization (CPU, memory, disk) to the
// common agent. Read failures yield -1 instead of an error.
package host

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/hupe1980/triage/logging"
)

// Unavailable is the metric sentinel.
const Unavailable float64 = -1

var errNoSample = errors.New("no cpu sample")

// Source reads raw utilization percentages.
type Source interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	DiskPercent(ctx context.Context) (float64, error)
}

// System reads live values through gopsutil.
type System struct {
	// Interval is the CPU sampling window. Zero compares against the last call.
	Interval time.Duration
	// Path is the mount point whose usage is reported.
	Path string
}

// NewSystem returns a System sampling CPU over 500ms and the root volume.
func NewSystem() *System {
	path := "/"
	if runtime.GOOS == "windows" {
		path = `C:\`
	}
	return &System{Interval: 500 * time.Millisecond, Path: path}
}

// CPUPercent implements Source.
func (s *System) CPUPercent(ctx context.Context) (float64, error) {
	values, err := cpu.PercentWithContext(ctx, s.Interval, false)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errNoSample
	}
	return values[0], nil
}

// MemoryPercent implements Source.
func (s *System) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// DiskPercent implements Source.
func (s *System) DiskPercent(ctx context.Context) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, s.Path)
	if err != nil {
		return 0, err
	}
	return usage.UsedPercent, nil
}

// Fixed returns constant values. The zero value is not useful; use NewFixed
// for the demo numbers.
type Fixed struct {
	CPU, Memory, Disk float64
}

// NewFixed returns the demo values: CPU 75%, memory 32%, disk 95%.
func NewFixed() Fixed { return Fixed{CPU: 75, Memory: 32, Disk: 95} }

// CPUPercent implements Source.
func (f Fixed) CPUPercent(context.Context) (float64, error) { return f.CPU, nil }

// MemoryPercent implements Source.
func (f Fixed) MemoryPercent(context.Context) (float64, error) { return f.Memory, nil }

// DiskPercent implements Source.
func (f Fixed) DiskPercent(context.Context) (float64, error) { return f.Disk, nil }

// Metrics wraps a Source with the sentinel contract.
type Metrics struct {
	source Source
	logger logging.Logger
}

// NewMetrics creates Metrics over source (System when nil).
func NewMetrics(source Source, logger logging.Logger) *Metrics {
	if source == nil {
		source = NewSystem()
	}
	return &Metrics{source: source, logger: logging.OrNoOp(logger)}
}

// CPUUsagePercent returns the current CPU usage, e.g. 50 for 50%.
func (m *Metrics) CPUUsagePercent(ctx context.Context) float64 {
	return m.read(ctx, "cpu", m.source.CPUPercent)
}

// MemoryUsagePercent returns the current memory usage in percent.
func (m *Metrics) MemoryUsagePercent(ctx context.Context) float64 {
	return m.read(ctx, "memory", m.source.MemoryPercent)
}

// DiskUsagePercent returns the current disk usage in percent.
func (m *Metrics) DiskUsagePercent(ctx context.Context) float64 {
	return m.read(ctx, "disk", m.source.DiskPercent)
}

func (m *Metrics) read(ctx context.Context, metric string, fn func(context.Context) (float64, error)) float64 {
	v, err := fn(ctx)
	if err != nil {
		m.logger.Debug("probe.host.failed", "metric", metric, "error", err.Error())
		return Unavailable
	}
	return v
}
