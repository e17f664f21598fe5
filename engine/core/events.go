package core

import "sync"

// SystemEventCode enumerates the events the windowing layer feeds into the
// core. Application codes should start beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * u32 width  = data.U32[0];
	 * u32 height = data.U32[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x02

	// The window was asked to close.
	EVENT_CODE_WINDOW_CLOSED SystemEventCode = 0x03

	// A watched asset file changed on disk.
	/* Context usage:
	 * string path = data.Str;
	 */
	EVENT_CODE_ASSET_CHANGED SystemEventCode = 0x04

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Data struct {
		U32 [4]uint32
		F32 [4]float32
		Str string
	}
}

type FnOnEvent func(code SystemEventCode, sender interface{}, context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.Mutex
	registered map[SystemEventCode][]*registeredEvent
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return true
	}
	eventState = &eventSystemState{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
	return true
}

func EventSystemShutdown() {
	eventState = nil
}

// EventRegister subscribes callback to code. The same listener/callback
// pair is only registered once.
func EventRegister(code SystemEventCode, listener interface{}, callback FnOnEvent) bool {
	if eventState == nil {
		LogWarn("event system not initialized, dropping registration for code %d", code)
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	for _, re := range eventState.registered[code] {
		if re.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: callback,
	})
	return true
}

// EventFire dispatches the event to all subscribers in registration order.
// A callback returning true consumes the event.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	listeners := append([]*registeredEvent(nil), eventState.registered[code]...)
	eventState.mu.Unlock()

	for _, re := range listeners {
		if re.callback(code, sender, context) {
			return true
		}
	}
	return false
}
