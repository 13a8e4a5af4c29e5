package pip

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/imtaco/stream-dashboard/dashboard/events"
	"github.com/imtaco/stream-dashboard/internal/log"
)

const (
	DefaultSize  = 298
	MinSize      = 150
	DragScale    = 1.1
	PopScale     = 1.05
	PopDuration  = 100 * time.Millisecond
	restingScale = 1.0
)

// State is a snapshot of the container. Position is nil while docked.
type State struct {
	Size     float64
	Position *events.Point
	Mode     Mode
	Scale    float64
}

func (s State) Attached() bool {
	return s.Position == nil
}

// PlaceholderVisible reports whether the dock shows the "video detached"
// affordance.
func (s State) PlaceholderVisible() bool {
	return !s.Attached()
}

// Controller is a draggable and resizable container that detaches from its
// dock on the first drag and reattaches on demand.
type Controller struct {
	mu       sync.Mutex
	bus      *events.Bus
	clock    clockwork.Clock
	size     float64
	position *events.Point
	mode     Mode
	scale    float64
	popTimer clockwork.Timer
	popGen   uint64
	// only held while dragging or resizing
	moveSub *events.Subscription
	upSub   *events.Subscription
	logger  *log.Logger
}

func New(bus *events.Bus, clock clockwork.Clock, logger *log.Logger) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		bus:    bus,
		clock:  clock,
		size:   DefaultSize,
		mode:   Idle{},
		scale:  restingScale,
		logger: logger,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pos *events.Point
	if c.position != nil {
		p := *c.position
		pos = &p
	}
	return State{
		Size:     c.size,
		Position: pos,
		Mode:     c.mode,
		Scale:    c.scale,
	}
}

// PointerDownBody starts a drag. The container detaches at its current
// top-left corner.
func (c *Controller) PointerDownBody(pointer, topLeft events.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.position == nil {
		c.logger.Debug("Detached")
	}
	pos := topLeft
	c.position = &pos
	c.mode = Dragging{Offset: events.Point{X: pointer.X - topLeft.X, Y: pointer.Y - topLeft.Y}}
	c.scale = DragScale
	c.trackLocked()
}

// PointerDownHandle starts a resize from the corner handle. It never starts
// a drag.
func (c *Controller) PointerDownHandle(containerLeft float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = Resizing{Left: containerLeft}
	c.scale = restingScale
	c.trackLocked()
}

// Click reattaches on ctrl or cmd click unless a drag is in progress.
func (c *Controller) Click(ev events.Event) {
	if !ev.Ctrl && !ev.Meta {
		return
	}
	c.mu.Lock()
	_, dragging := c.mode.(Dragging)
	c.mu.Unlock()
	if dragging {
		return
	}
	c.Reattach()
}

// ActivatePlaceholder handles the "video detached" affordance.
func (c *Controller) ActivatePlaceholder() {
	c.mu.Lock()
	attached := c.position == nil
	c.mu.Unlock()
	if attached {
		return
	}
	c.Reattach()
}

// Reattach docks the container at the default size and plays the pop
// animation.
func (c *Controller) Reattach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.size = DefaultSize
	c.position = nil
	c.mode = Idle{}
	c.untrackLocked()

	c.scale = PopScale
	if c.popTimer != nil {
		c.popTimer.Stop()
	}
	c.popGen++
	gen := c.popGen
	c.popTimer = c.clock.AfterFunc(PopDuration, func() { c.settle(gen) })
	c.logger.Debug("Reattached")
}

// Close releases the drag listeners and any pending animation.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = Idle{}
	c.untrackLocked()
	if c.popTimer != nil {
		c.popTimer.Stop()
		c.popTimer = nil
	}
	c.popGen++
	c.scale = restingScale
}

func (c *Controller) settle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.popGen {
		return
	}
	c.scale = restingScale
	c.popTimer = nil
}

func (c *Controller) onPointerMove(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := c.mode.(type) {
	case Dragging:
		pos := events.Point{
			X: max(ev.X-m.Offset.X, 0),
			Y: max(ev.Y-m.Offset.Y, 0),
		}
		c.position = &pos
	case Resizing:
		c.size = max(ev.X-m.Left, MinSize)
	}
}

func (c *Controller) onPointerUp(events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = Idle{}
	c.scale = restingScale
	c.untrackLocked()
}

func (c *Controller) trackLocked() {
	if c.moveSub == nil {
		c.moveSub = c.bus.Subscribe(events.PointerMove, c.onPointerMove)
	}
	if c.upSub == nil {
		c.upSub = c.bus.Subscribe(events.PointerUp, c.onPointerUp)
	}
}

func (c *Controller) untrackLocked() {
	c.moveSub.Release()
	c.upSub.Release()
	c.moveSub = nil
	c.upSub = nil
}
