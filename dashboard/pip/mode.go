package pip

import "github.com/imtaco/stream-dashboard/dashboard/events"

// Mode is the pointer interaction in progress: Idle, Dragging or Resizing.
type Mode interface {
	isMode()
	String() string
}

type Idle struct{}

// Dragging keeps the pointer offset from the container's top-left corner
// captured at pointer-down.
type Dragging struct {
	Offset events.Point
}

// Resizing keeps the container's left edge captured at pointer-down.
type Resizing struct {
	Left float64
}

func (Idle) isMode()     {}
func (Dragging) isMode() {}
func (Resizing) isMode() {}

func (Idle) String() string     { return "idle" }
func (Dragging) String() string { return "dragging" }
func (Resizing) String() string { return "resizing" }
