package world

import (
	"sync/atomic"
	"time"
)

// FrameMonitor publishes the duration of the last simulated frame.
type FrameMonitor struct {
	last atomic.Int64
}

// Record stores the duration of a finished frame.
func (m *FrameMonitor) Record(d time.Duration) {
	m.last.Store(int64(d))
}

// FrameTime returns the last recorded frame duration, zero before the
// first frame.
func (m *FrameMonitor) FrameTime() time.Duration {
	return time.Duration(m.last.Load())
}
