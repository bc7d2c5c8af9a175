package core

// System event codes. Applications should use codes from EventCodeUser on.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EventApplicationQuit EventCode = iota + 1
	// Keyboard key pressed. Context carries Key.
	EventKeyPressed
	// Keyboard key released. Context carries Key.
	EventKeyReleased
	// Mouse button pressed. Context carries Button.
	EventButtonPressed
	// Mouse button released. Context carries Button.
	EventButtonReleased
	// Mouse moved. Context carries X and Y.
	EventMouseMoved
	// Mouse wheel. Context carries Scroll.
	EventMouseWheel
	// Framebuffer resized by the OS. Context carries Width and Height.
	EventResized

	EventCodeUser EventCode = 0x100
)

// EventContext is the payload handed to listeners. Only the fields
// documented for the event code are set.
type EventContext struct {
	Code EventCode

	Key    KeyCode
	Button Button
	X, Y   int32
	Scroll int8

	Width, Height uint32
}

// FnOnEvent should return true if the event was handled, which stops it
// from reaching later listeners.
type FnOnEvent func(ctx EventContext, listener interface{}) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventSystem dispatches events synchronously on the caller's thread.
type EventSystem struct {
	registered map[EventCode][]registeredEvent
}

func NewEventSystem() *EventSystem {
	return &EventSystem{registered: make(map[EventCode][]registeredEvent)}
}

// Register listens for code. A listener may only register once per code;
// duplicates are refused and return false.
func (es *EventSystem) Register(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	for _, e := range es.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	es.registered[code] = append(es.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

// Unregister removes the listener from code. It returns false if nothing
// matched.
func (es *EventSystem) Unregister(code EventCode, listener interface{}) bool {
	events := es.registered[code]
	for i, e := range events {
		if e.listener == listener {
			es.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends ctx to every listener of ctx.Code in registration order until
// one handles it. It returns true if the event was handled.
func (es *EventSystem) Fire(ctx EventContext) bool {
	for _, e := range es.registered[ctx.Code] {
		if e.callback(ctx, e.listener) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (es *EventSystem) Shutdown() {
	clear(es.registered)
}
