package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSystemDispatch(t *testing.T) {
	es := NewEventSystem()
	var order []string

	first, second := "first", "second"
	require.True(t, es.Register(EventResized, first, func(ctx EventContext, listener interface{}) bool {
		order = append(order, listener.(string))
		return ctx.Width == 0
	}))
	require.True(t, es.Register(EventResized, second, func(ctx EventContext, listener interface{}) bool {
		order = append(order, listener.(string))
		return true
	}))
	assert.False(t, es.Register(EventResized, first, func(EventContext, interface{}) bool { return false }), "duplicate listener")

	assert.True(t, es.Fire(EventContext{Code: EventResized, Width: 800, Height: 600}))
	assert.Equal(t, []string{"first", "second"}, order)

	order = nil
	assert.True(t, es.Fire(EventContext{Code: EventResized}))
	assert.Equal(t, []string{"first"}, order, "handled events stop propagating")

	assert.False(t, es.Fire(EventContext{Code: EventKeyPressed}))

	assert.True(t, es.Unregister(EventResized, first))
	assert.False(t, es.Unregister(EventResized, first))
	order = nil
	es.Fire(EventContext{Code: EventResized})
	assert.Equal(t, []string{"second"}, order)

	es.Shutdown()
	assert.False(t, es.Fire(EventContext{Code: EventResized}))
}

func TestInputStateKeys(t *testing.T) {
	es := NewEventSystem()
	var fired []EventContext
	record := func(ctx EventContext, _ interface{}) bool {
		fired = append(fired, ctx)
		return false
	}
	es.Register(EventKeyPressed, "test", record)
	es.Register(EventKeyReleased, "test", record)

	in := NewInputState(es)
	in.ProcessKey(KeySpace, true)
	in.ProcessKey(KeySpace, true)
	assert.True(t, in.IsKeyDown(KeySpace))
	assert.True(t, in.KeyPressed(KeySpace))
	require.Len(t, fired, 1, "repeated state is not re-fired")
	assert.Equal(t, EventContext{Code: EventKeyPressed, Key: KeySpace}, fired[0])

	in.Update()
	assert.True(t, in.WasKeyDown(KeySpace))
	assert.False(t, in.KeyPressed(KeySpace))

	in.ProcessKey(KeySpace, false)
	assert.True(t, in.IsKeyUp(KeySpace))
	require.Len(t, fired, 2)
	assert.Equal(t, EventKeyReleased, fired[1].Code)

	in.ProcessKey(KeyUnknown, true)
	assert.Len(t, fired, 2)
}

func TestInputStateMouse(t *testing.T) {
	in := NewInputState(nil)
	in.ProcessButton(ButtonLeft, true)
	in.ProcessMouseMove(10, 20)
	assert.True(t, in.IsButtonDown(ButtonLeft))
	assert.False(t, in.WasButtonDown(ButtonLeft))

	in.Update()
	in.ProcessMouseMove(15, 25)
	x, y := in.MousePosition()
	px, py := in.PreviousMousePosition()
	assert.Equal(t, [2]int32{15, 25}, [2]int32{x, y})
	assert.Equal(t, [2]int32{10, 20}, [2]int32{px, py})
	assert.False(t, in.IsButtonDown(ButtonMaxButtons))
}
