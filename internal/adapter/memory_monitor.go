package adapter

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// MemoryMonitor samples process memory on a fixed interval during long
// operations. Crossing the configured threshold triggers an in-process
// reclamation attempt (forced collection plus a reduce-concurrency callback)
// without ever aborting the operation.
type MemoryMonitor struct {
	limitBytes uint64
	interval   time.Duration
	onPressure func()

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewMemoryMonitor creates a monitor with the given limit in MB. A zero or
// negative limit disables monitoring. onPressure may be nil.
func NewMemoryMonitor(limitMB int, interval time.Duration, onPressure func()) *MemoryMonitor {
	var limit uint64
	if limitMB > 0 {
		limit = uint64(limitMB) * 1024 * 1024
	}

	return &MemoryMonitor{
		limitBytes: limit,
		interval:   interval,
		onPressure: onPressure,
	}
}

// Start launches the sampling goroutine. No-op when no limit is set.
func (mon *MemoryMonitor) Start() {
	if mon.limitBytes == 0 {
		return
	}

	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.stop != nil {
		return
	}

	mon.stop = make(chan struct{})

	go mon.loop(mon.stop)
}

// Stop ends sampling. Safe to call multiple times.
func (mon *MemoryMonitor) Stop() {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	if mon.stop == nil || mon.stopped {
		return
	}

	close(mon.stop)
	mon.stopped = true
}

func (mon *MemoryMonitor) loop(stop chan struct{}) {
	ticker := time.NewTicker(mon.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			mon.sample()
		}
	}
}

func (mon *MemoryMonitor) sample() {
	var stats runtime.MemStats

	runtime.ReadMemStats(&stats)

	if stats.HeapAlloc < mon.limitBytes {
		return
	}

	slog.Warn("memory threshold crossed, reclaiming",
		"heapAllocMB", stats.HeapAlloc/1024/1024,
		"limitMB", mon.limitBytes/1024/1024)

	debug.FreeOSMemory()

	if mon.onPressure != nil {
		mon.onPressure()
	}
}
