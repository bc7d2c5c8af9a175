package core

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameStatsFPS(t *testing.T) {
	m := NewFrameStats()

	refreshed := false
	for i := 0; i < 61; i++ {
		if m.Update(1.0 / 60.0) {
			refreshed = true
			break
		}
	}
	require.True(t, refreshed)
	assert.InDelta(t, 61, m.FPS(), 1)
	assert.InDelta(t, 1000.0/60.0, m.FrameTime(), 0.001)
}

func TestFrameLoggerThrottles(t *testing.T) {
	var buf bytes.Buffer
	fl := NewFrameLogger(newLogger(&buf), time.Second)
	clock := time.Duration(0)
	fl.now = func() time.Duration { return clock }

	assert.True(t, fl.Warn("acquire", "acquire failed: %d", 1))
	assert.False(t, fl.Warn("acquire", "acquire failed: %d", 2))
	assert.True(t, fl.Warn("present", "present failed"))

	clock += 2 * time.Second
	assert.True(t, fl.Warn("acquire", "acquire failed: %d", 3))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "acquire failed"))
	assert.NotContains(t, out, "acquire failed: 2")

	fl.Reset()
	assert.True(t, fl.Error("acquire", "again"))
}
