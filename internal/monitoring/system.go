package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

// CPUSampleInterval is how long CPU usage is sampled. Zero compares against
// the previous sample instead of blocking.
var CPUSampleInterval = time.Second

// SystemSnapshot is host and process resource usage at a point in time.
type SystemSnapshot struct {
	CPUPercent  float64
	MemPercent  float64
	MemUsedMB   float64
	MemTotalMB  float64
	Goroutines  int
	HeapAllocMB float64
	NumCPU      int
}

// ReadSystem samples system-wide CPU and memory usage plus Go runtime
// counters. Runtime counters are filled even when the host sample fails.
func ReadSystem(ctx context.Context) (SystemSnapshot, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := SystemSnapshot{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / (1 << 20),
		NumCPU:      runtime.NumCPU(),
	}

	pct, err := cpu.PercentWithContext(ctx, CPUSampleInterval, false)
	if err != nil {
		return s, eris.Wrap(err, "monitoring: sample cpu")
	}
	if len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, eris.Wrap(err, "monitoring: sample memory")
	}
	s.MemPercent = vm.UsedPercent
	s.MemUsedMB = float64(vm.Used) / (1 << 20)
	s.MemTotalMB = float64(vm.Total) / (1 << 20)
	return s, nil
}

// LogSystemMetrics logs CPU and memory usage. Sampling errors are logged,
// never returned.
func LogSystemMetrics(ctx context.Context) {
	s, err := ReadSystem(ctx)
	if err != nil {
		zap.L().Warn("system metrics unavailable", zap.Error(err))
	}
	zap.L().Info("system usage",
		zap.Float64("cpu_percent", s.CPUPercent),
		zap.Float64("mem_percent", s.MemPercent),
		zap.Float64("mem_used_mb", s.MemUsedMB),
		zap.Float64("mem_total_mb", s.MemTotalMB),
		zap.Int("goroutines", s.Goroutines),
		zap.Float64("heap_alloc_mb", s.HeapAllocMB),
		zap.Int("num_cpu", s.NumCPU),
	)
}
