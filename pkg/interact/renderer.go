package interact

import "fmt"

// EventKind identifies a renderer hover event.
type EventKind int

const (
	EnterNode EventKind = iota
	LeaveNode
	EnterEdge
	LeaveEdge
)

var eventNames = [...]string{"enterNode", "leaveNode", "enterEdge", "leaveEdge"}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// EventKinds lists every kind a controller subscribes to.
var EventKinds = []EventKind{EnterNode, LeaveNode, EnterEdge, LeaveEdge}

// Event is a hover event reported by a renderer. ID names the node or edge.
// Pointer is the viewport-space pointer location, or nil when the renderer
// does not track one (keyboard focus, synthetic events).
type Event struct {
	Kind    EventKind
	ID      string
	Pointer *Point
}

// Handler receives renderer events.
type Handler func(Event)

// Renderer is the rendering engine a Controller drives.
//
// Renderers deliver events on the same logical thread that calls the
// controller; the controller takes no locks.
type Renderer interface {
	// Transform returns the renderer's current graph/viewport transform.
	Transform() Transform

	// On subscribes h to events of the given kind and returns a function
	// that removes the subscription.
	On(kind EventKind, h Handler) (unsubscribe func())

	// Destroy releases the renderer's resources.
	Destroy() error
}
