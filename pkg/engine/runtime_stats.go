package engine

import (
	"context"
	"runtime"
	"sync"
	"time"
)

const (
	runtimeSampleIntervalDefault = 5 * time.Second
	runtimeSampleWindowDefault   = 60 * time.Second
	runtimeSampleMinInterval     = 1 * time.Second
	runtimeSampleMaxSamples      = 120
)

// RuntimeSample is one reading of process health next to the window's
// progress. Node runtimes are goroutines, so a goroutine count that keeps
// growing while KeyedNodes stays flat points at runtimes that ignore
// event.ElementAbandoned.
type RuntimeSample struct {
	Timestamp  int64  `json:"ts"`
	Goroutines int    `json:"goroutines"`
	Frames     uint64 `json:"frames"`
	KeyedNodes int    `json:"keyedNodes"`

	HeapAlloc    uint64 `json:"heapAlloc"`
	HeapInuse    uint64 `json:"heapInuse"`
	HeapSys      uint64 `json:"heapSys"`
	NumGC        uint32 `json:"numGC"`
	LastGCTime   int64  `json:"lastGCTime"`
	PauseTotalNs uint64 `json:"pauseTotalNs"`
	LastPauseNs  uint64 `json:"lastPauseNs"`
}

// RuntimeSampleBuffer keeps the samples of a sliding time window.
type RuntimeSampleBuffer struct {
	mu       sync.RWMutex
	samples  ring[RuntimeSample]
	interval time.Duration
	window   time.Duration
}

// NewRuntimeSampleBuffer sizes a buffer to hold window/interval samples.
// Intervals below one second are raised to one second and the window is
// capped at 120 samples.
func NewRuntimeSampleBuffer(window, interval time.Duration) *RuntimeSampleBuffer {
	if interval <= 0 {
		interval = runtimeSampleIntervalDefault
	}
	interval = max(interval, runtimeSampleMinInterval)
	if window <= 0 {
		window = runtimeSampleWindowDefault
	}
	n := min(max(int(window/interval), 1), runtimeSampleMaxSamples)

	return &RuntimeSampleBuffer{
		samples:  newRing[RuntimeSample](n),
		interval: interval,
		window:   time.Duration(n) * interval,
	}
}

// Interval returns the sampling interval.
func (b *RuntimeSampleBuffer) Interval() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.interval
}

// Window returns the span of time the buffer covers.
func (b *RuntimeSampleBuffer) Window() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.window
}

// Add stores a sample, evicting the oldest when full.
func (b *RuntimeSampleBuffer) Add(sample RuntimeSample) {
	b.mu.Lock()
	b.samples.push(sample)
	b.mu.Unlock()
}

// Snapshot returns the samples oldest first.
func (b *RuntimeSampleBuffer) Snapshot() []RuntimeSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples.values()
}

func readRuntimeSample(fill func(*RuntimeSample)) RuntimeSample {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	s := RuntimeSample{
		Timestamp:    time.Now().UnixMilli(),
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    stats.HeapAlloc,
		HeapInuse:    stats.HeapInuse,
		HeapSys:      stats.HeapSys,
		NumGC:        stats.NumGC,
		PauseTotalNs: stats.PauseTotalNs,
	}
	if stats.NumGC > 0 {
		s.LastPauseNs = stats.PauseNs[(stats.NumGC+255)%256]
	}
	if stats.LastGC > 0 {
		s.LastGCTime = time.Unix(0, int64(stats.LastGC)).UnixMilli()
	}
	if fill != nil {
		fill(&s)
	}
	return s
}

// sampleRuntime adds one sample immediately and then one per interval until
// ctx ends. fill, when set, fills in the window fields of each sample.
func sampleRuntime(ctx context.Context, buffer *RuntimeSampleBuffer, fill func(*RuntimeSample)) {
	buffer.Add(readRuntimeSample(fill))
	go func() {
		ticker := time.NewTicker(buffer.Interval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				buffer.Add(readRuntimeSample(fill))
			case <-ctx.Done():
				return
			}
		}
	}()
}

// sampleWindow records the window's progress into s.
func (w *Window) sampleWindow(s *RuntimeSample) {
	s.Frames = w.Frames()
	s.KeyedNodes = w.registry.Len()
}
