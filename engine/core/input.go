package core

type Button uint16

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
	ButtonMaxButtons
)

// Key code definitions. Values follow the virtual key table so that
// letters and digits match their ASCII codes.
type KeyCode uint16

const (
	KeyUnknown   KeyCode = 0x00
	KeyBackspace KeyCode = 0x08
	KeyTab       KeyCode = 0x09
	KeyEnter     KeyCode = 0x0D
	KeyShift     KeyCode = 0x10
	KeyControl   KeyCode = 0x11
	KeyPause     KeyCode = 0x13
	KeyEscape    KeyCode = 0x1B
	KeySpace     KeyCode = 0x20
	KeyEnd       KeyCode = 0x23
	KeyHome      KeyCode = 0x24
	KeyLeft      KeyCode = 0x25
	KeyUp        KeyCode = 0x26
	KeyRight     KeyCode = 0x27
	KeyDown      KeyCode = 0x28
	KeyInsert    KeyCode = 0x2D
	KeyDelete    KeyCode = 0x2E

	Key0 KeyCode = 0x30
	Key9 KeyCode = 0x39
	KeyA KeyCode = 0x41
	KeyZ KeyCode = 0x5A

	KeyF1  KeyCode = 0x70
	KeyF12 KeyCode = 0x7B

	KeysMaxKeys KeyCode = 0x100
)

type MouseState struct {
	X       int32
	Y       int32
	Buttons [ButtonMaxButtons]bool
}

type KeyboardState struct {
	Keys [KeysMaxKeys]bool
}

// InputState holds the current and previous keyboard and mouse states.
// Changes are forwarded to the event system as they happen.
type InputState struct {
	events *EventSystem

	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState
}

func NewInputState(events *EventSystem) *InputState {
	return &InputState{events: events}
}

// Update rolls the current state into the previous one. Call it once per
// frame after the game update.
func (is *InputState) Update() {
	is.KeyboardPrevious = is.KeyboardCurrent
	is.MousePrevious = is.MouseCurrent
}

func (is *InputState) IsKeyDown(key KeyCode) bool {
	return key < KeysMaxKeys && is.KeyboardCurrent.Keys[key]
}

func (is *InputState) IsKeyUp(key KeyCode) bool {
	return !is.IsKeyDown(key)
}

func (is *InputState) WasKeyDown(key KeyCode) bool {
	return key < KeysMaxKeys && is.KeyboardPrevious.Keys[key]
}

// KeyPressed reports a key that went down since the last Update.
func (is *InputState) KeyPressed(key KeyCode) bool {
	return is.IsKeyDown(key) && !is.WasKeyDown(key)
}

func (is *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key == KeyUnknown || key >= KeysMaxKeys {
		return
	}
	// Only handle this if the state actually changed.
	if is.KeyboardCurrent.Keys[key] == pressed {
		return
	}
	is.KeyboardCurrent.Keys[key] = pressed

	code := EventKeyReleased
	if pressed {
		code = EventKeyPressed
	}
	is.fire(EventContext{Code: code, Key: key})
}

func (is *InputState) IsButtonDown(button Button) bool {
	return button < ButtonMaxButtons && is.MouseCurrent.Buttons[button]
}

func (is *InputState) WasButtonDown(button Button) bool {
	return button < ButtonMaxButtons && is.MousePrevious.Buttons[button]
}

func (is *InputState) MousePosition() (int32, int32) {
	return is.MouseCurrent.X, is.MouseCurrent.Y
}

func (is *InputState) PreviousMousePosition() (int32, int32) {
	return is.MousePrevious.X, is.MousePrevious.Y
}

func (is *InputState) ProcessButton(button Button, pressed bool) {
	if button >= ButtonMaxButtons || is.MouseCurrent.Buttons[button] == pressed {
		return
	}
	is.MouseCurrent.Buttons[button] = pressed

	code := EventButtonReleased
	if pressed {
		code = EventButtonPressed
	}
	is.fire(EventContext{Code: code, Button: button})
}

func (is *InputState) ProcessMouseMove(x, y int32) {
	if is.MouseCurrent.X == x && is.MouseCurrent.Y == y {
		return
	}
	is.MouseCurrent.X = x
	is.MouseCurrent.Y = y
	is.fire(EventContext{Code: EventMouseMoved, X: x, Y: y})
}

func (is *InputState) ProcessMouseWheel(zDelta int8) {
	is.fire(EventContext{Code: EventMouseWheel, Scroll: zDelta})
}

func (is *InputState) fire(ctx EventContext) {
	if is.events != nil {
		is.events.Fire(ctx)
	}
}
