package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		in   glfw.Key
		want core.KeyCode
	}{
		{glfw.KeyA, core.KeyA},
		{glfw.KeyZ, core.KeyZ},
		{glfw.KeyM, core.KeyCode('M')},
		{glfw.Key7, core.KeyCode('7')},
		{glfw.KeyF12, core.KeyF12},
		{glfw.KeyEscape, core.KeyEscape},
		{glfw.KeyRightShift, core.KeyShift},
		{glfw.KeyKPEnter, core.KeyUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, translateKey(tt.in), "glfw key %d", tt.in)
	}
}
