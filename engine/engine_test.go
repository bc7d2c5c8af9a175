package engine

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/config"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCamera(t *testing.T) {
	c := DefaultCamera(1280, 720)
	assert.Less(t, c.Proj[5], float32(0), "projection is Y flipped")

	origin := c.Proj.Mul4(c.View).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, origin.X()/origin.W(), 1e-5)
	assert.InDelta(t, 0, origin.Y()/origin.W(), 1e-5)

	square := DefaultCamera(0, 0)
	assert.InDelta(t, square.Proj[0], -square.Proj[5], 1e-5)
}

func TestEngineEvents(t *testing.T) {
	resized := [][2]uint32{}
	g := &Game{
		FnOnResize: func(w, h uint32) error {
			resized = append(resized, [2]uint32{w, h})
			return nil
		},
	}
	e, err := New(g, config.Default())
	require.NoError(t, err)
	require.Equal(t, EngineStageUninitialized, e.Stage())

	e.events.Register(core.EventApplicationQuit, e, e.onEvent)
	e.events.Register(core.EventKeyPressed, e, e.onKey)
	e.events.Register(core.EventResized, e, e.onResized)

	e.events.Fire(core.EventContext{Code: core.EventResized, Width: 0, Height: 0})
	assert.True(t, e.isSuspended)
	assert.Empty(t, resized)

	e.events.Fire(core.EventContext{Code: core.EventResized, Width: 800, Height: 600})
	assert.False(t, e.isSuspended)
	assert.Equal(t, [][2]uint32{{800, 600}}, resized)
	w, h := e.GetFramebufferSize()
	assert.Equal(t, [2]uint32{800, 600}, [2]uint32{w, h})

	e.isRunning = true
	e.input.ProcessKey(core.KeyEscape, true)
	assert.False(t, e.isRunning)
}

func TestEngineRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Window.Width = 0
	_, err := New(&Game{}, cfg)
	assert.Error(t, err)

	_, err = New(nil, config.Default())
	assert.Error(t, err)
}

func TestRunRequiresInitialize(t *testing.T) {
	e, err := New(&Game{}, config.Default())
	require.NoError(t, err)
	assert.Error(t, e.Run(context.Background()))

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutdown, e.Stage())
	assert.NoError(t, e.Shutdown())
}
