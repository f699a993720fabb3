package engine

import (
	"sync"
	"time"
)

const (
	frameTraceSamplesDefault   = 240
	defaultFrameTraceThreshold = 16667 * time.Microsecond
)

// FramePhaseTimings captures time spent in each frame phase (ms).
type FramePhaseTimings struct {
	DispatchMs  float64 `json:"dispatchMs"`
	LayoutMs    float64 `json:"layoutMs"`
	RenderMs    float64 `json:"renderMs"`
	CompositeMs float64 `json:"compositeMs"`
	PresentMs   float64 `json:"presentMs"`
}

// FrameCounts captures per-frame workload indicators.
type FrameCounts struct {
	Events     int `json:"events"`
	HitEntries int `json:"hitEntries"`
	Layers     int `json:"layers"`
	Focusable  int `json:"focusable"`
	KeyedNodes int `json:"keyedNodes"`
}

// FrameFlags captures contextual flags for a frame.
type FrameFlags struct {
	Aborted    bool   `json:"aborted,omitempty"`
	AbortPhase string `json:"abortPhase,omitempty"`
	Resized    bool   `json:"resized,omitempty"`
}

// FrameSample is a single frame trace sample.
type FrameSample struct {
	Index     uint64            `json:"index"`
	Timestamp int64             `json:"ts"`
	FrameMs   float64           `json:"frameMs"`
	Phases    FramePhaseTimings `json:"phases"`
	Counts    FrameCounts       `json:"counts"`
	Flags     FrameFlags        `json:"flags"`
}

// FrameTimeline is the debug server response shape.
type FrameTimeline struct {
	Samples       []FrameSample `json:"samples"`
	DroppedFrames int           `json:"droppedFrames"`
	ThresholdMs   float64       `json:"thresholdMs"`
}

// FrameTraceBuffer keeps the most recent frame samples and streams new ones
// to subscribers.
type FrameTraceBuffer struct {
	mu        sync.RWMutex
	samples   ring[FrameSample]
	dropped   int
	threshold time.Duration

	subs   map[int]chan FrameSample
	nextID int
}

// NewFrameTraceBuffer creates a new frame trace buffer.
func NewFrameTraceBuffer(capacity int, threshold time.Duration) *FrameTraceBuffer {
	if capacity <= 0 {
		capacity = frameTraceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultFrameTraceThreshold
	}
	return &FrameTraceBuffer{
		samples:   newRing[FrameSample](capacity),
		threshold: threshold,
		subs:      make(map[int]chan FrameSample),
	}
}

// Capacity returns the buffer capacity.
func (b *FrameTraceBuffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples.capacity()
}

// SetThreshold updates the dropped frame threshold.
func (b *FrameTraceBuffer) SetThreshold(threshold time.Duration) {
	if threshold <= 0 {
		threshold = defaultFrameTraceThreshold
	}
	b.mu.Lock()
	b.threshold = threshold
	b.mu.Unlock()
}

// Threshold returns the dropped frame threshold.
func (b *FrameTraceBuffer) Threshold() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threshold
}

// Add records a frame sample, updates the dropped frame count and forwards
// the sample to subscribers. Slow subscribers miss samples.
func (b *FrameTraceBuffer) Add(sample FrameSample, frameDuration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples.push(sample)
	if frameDuration > b.threshold {
		b.dropped++
	}
	for _, ch := range b.subs {
		select {
		case ch <- sample:
		default:
		}
	}
}

// Subscribe returns a channel receiving every sample added from now on and a
// function that ends the subscription.
func (b *FrameTraceBuffer) Subscribe(buffer int) (<-chan FrameSample, func()) {
	ch := make(chan FrameSample, max(buffer, 1))
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *FrameTraceBuffer) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Snapshot returns a chronological copy of samples and stats.
func (b *FrameTraceBuffer) Snapshot() FrameTimeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return FrameTimeline{
		Samples:       b.samples.values(),
		DroppedFrames: b.dropped,
		ThresholdMs:   durationToMillis(b.threshold),
	}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
