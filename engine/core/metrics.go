package core

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/loov/hrtime"
	"github.com/spaghettifunk/vesta/engine/containers"
)

const AVG_COUNT int = 30

// FrameStats keeps a rolling frame-time average and a frames-per-second
// counter refreshed once per accumulated second.
type FrameStats struct {
	samples            *containers.RingQueue[float64]
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewFrameStats() *FrameStats {
	return &FrameStats{
		samples: containers.NewRingQueue[float64](AVG_COUNT),
	}
}

// Update records one frame. It reports true when a full second has been
// accumulated and FPS was refreshed.
func (m *FrameStats) Update(frameElapsedSeconds float64) bool {
	frameMS := frameElapsedSeconds * 1000.0
	m.samples.Push(frameMS)
	if m.samples.IsFull() {
		sum := 0.0
		m.samples.Each(func(v float64) { sum += v })
		m.msAvg = sum / float64(m.samples.Len())
	}

	m.frames++
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
		return true
	}
	return false
}

func (m *FrameStats) FPS() float64 {
	return m.fps
}

func (m *FrameStats) FrameTime() float64 {
	return m.msAvg
}

// FrameLogger rate-limits messages emitted from the frame loop. Each key
// is logged at most once per interval.
type FrameLogger struct {
	logger   *log.Logger
	interval time.Duration
	now      func() time.Duration
	last     map[string]time.Duration
}

func NewFrameLogger(l *log.Logger, interval time.Duration) *FrameLogger {
	return &FrameLogger{
		logger:   l,
		interval: interval,
		now:      hrtime.Now,
		last:     make(map[string]time.Duration),
	}
}

func (fl *FrameLogger) allow(key string) bool {
	now := fl.now()
	if last, ok := fl.last[key]; ok && now-last < fl.interval {
		return false
	}
	fl.last[key] = now
	return true
}

func (fl *FrameLogger) Debug(key, msg string, args ...interface{}) bool {
	if !fl.allow(key) {
		return false
	}
	fl.logger.Helper()
	fl.logger.Debugf(msg, args...)
	return true
}

func (fl *FrameLogger) Warn(key, msg string, args ...interface{}) bool {
	if !fl.allow(key) {
		return false
	}
	fl.logger.Helper()
	fl.logger.Warnf(msg, args...)
	return true
}

func (fl *FrameLogger) Error(key, msg string, args ...interface{}) bool {
	if !fl.allow(key) {
		return false
	}
	fl.logger.Helper()
	fl.logger.Errorf(msg, args...)
	return true
}

// Reset forgets every key so the next message of each kind is logged.
func (fl *FrameLogger) Reset() {
	clear(fl.last)
}
