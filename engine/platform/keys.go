package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/vesta/engine/core"
)

var namedKeys = map[glfw.Key]core.KeyCode{
	glfw.KeyBackspace:    core.KeyBackspace,
	glfw.KeyTab:          core.KeyTab,
	glfw.KeyEnter:        core.KeyEnter,
	glfw.KeyLeftShift:    core.KeyShift,
	glfw.KeyRightShift:   core.KeyShift,
	glfw.KeyLeftControl:  core.KeyControl,
	glfw.KeyRightControl: core.KeyControl,
	glfw.KeyPause:        core.KeyPause,
	glfw.KeyEscape:       core.KeyEscape,
	glfw.KeySpace:        core.KeySpace,
	glfw.KeyEnd:          core.KeyEnd,
	glfw.KeyHome:         core.KeyHome,
	glfw.KeyLeft:         core.KeyLeft,
	glfw.KeyUp:           core.KeyUp,
	glfw.KeyRight:        core.KeyRight,
	glfw.KeyDown:         core.KeyDown,
	glfw.KeyInsert:       core.KeyInsert,
	glfw.KeyDelete:       core.KeyDelete,
}

// translateKey maps a glfw key to the engine key table. Letters and digits
// share their ASCII values in both.
func translateKey(key glfw.Key) core.KeyCode {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KeyA + core.KeyCode(key-glfw.KeyA)
	case key >= glfw.Key0 && key <= glfw.Key9:
		return core.Key0 + core.KeyCode(key-glfw.Key0)
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KeyF1 + core.KeyCode(key-glfw.KeyF1)
	}
	if code, ok := namedKeys[key]; ok {
		return code
	}
	return core.KeyUnknown
}
