package preview

import (
	"sync"

	"github.com/imtaco/stream-dashboard/dashboard"
	"github.com/imtaco/stream-dashboard/dashboard/events"
	"github.com/imtaco/stream-dashboard/internal/log"
)

// Lookup resolves a stream id against the currently loaded list.
type Lookup func(streamID string) (*dashboard.Stream, bool)

// CursorToggle hides (true) or restores (false) the system cursor.
type CursorToggle func(hidden bool)

// Target is the floating overlay placement. The overlay's center sits on
// the pointer, so Translate is always minus half of the size.
type Target struct {
	Visible    bool
	StreamID   string
	Width      float64
	Height     float64
	CenterX    float64
	CenterY    float64
	TranslateX float64
	TranslateY float64
}

type Controller struct {
	mu      sync.Mutex
	bus     *events.Bus
	lookup  Lookup
	cursor  CursorToggle
	held    bool
	hovered string
	pointer *events.Point
	// last visibility reported to cursor
	shown  bool
	subs   []*events.Subscription
	logger *log.Logger
}

func New(bus *events.Bus, lookup Lookup, cursor CursorToggle, logger *log.Logger) *Controller {
	if cursor == nil {
		cursor = func(bool) {}
	}
	return &Controller{
		bus:    bus,
		lookup: lookup,
		cursor: cursor,
		logger: logger,
	}
}

// Mount starts tracking the pointer and the reveal key. Mounting twice is a
// no-op.
func (c *Controller) Mount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs != nil {
		return
	}
	c.subs = []*events.Subscription{
		c.bus.Subscribe(events.PointerMove, c.onPointerMove),
		c.bus.Subscribe(events.KeyDown, c.onKeyDown),
		c.bus.Subscribe(events.KeyUp, c.onKeyUp),
	}
	c.logger.Debug("Preview mounted")
}

// Close releases the listeners and restores the cursor if the overlay was
// showing.
func (c *Controller) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	wasShown := c.shown
	c.shown = false
	c.held = false
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Release()
	}
	if wasShown {
		c.cursor(false)
	}
}

func (c *Controller) Hover(streamID string) {
	c.update(func() { c.hovered = streamID })
}

func (c *Controller) Unhover() {
	c.update(func() { c.hovered = "" })
}

// Target evaluates the overlay against the current list. A hovered stream
// that no longer resolves hides the overlay.
func (c *Controller) Target() Target {
	return c.update(func() {})
}

func (c *Controller) onPointerMove(ev events.Event) {
	p := ev.Point()
	c.update(func() { c.pointer = &p })
}

func (c *Controller) onKeyDown(ev events.Event) {
	if ev.Key != events.KeySpace || ev.Repeat {
		return
	}
	c.update(func() { c.held = true })
}

func (c *Controller) onKeyUp(ev events.Event) {
	if ev.Key != events.KeySpace {
		return
	}
	c.update(func() { c.held = false })
}

// update applies fn and reports a visibility edge to the cursor toggle
// outside the lock.
func (c *Controller) update(fn func()) Target {
	c.mu.Lock()
	fn()
	t := c.evaluate()
	edge := t.Visible != c.shown
	c.shown = t.Visible
	c.mu.Unlock()

	if edge {
		c.cursor(t.Visible)
	}
	return t
}

func (c *Controller) evaluate() Target {
	if !c.held || c.hovered == "" || c.pointer == nil || c.lookup == nil {
		return Target{}
	}
	stream, ok := c.lookup(c.hovered)
	if !ok || stream == nil {
		return Target{}
	}

	w, h := Size(stream.Width, stream.Height)
	if w == 0 || h == 0 {
		return Target{}
	}
	return Target{
		Visible:    true,
		StreamID:   stream.ID,
		Width:      w,
		Height:     h,
		CenterX:    c.pointer.X,
		CenterY:    c.pointer.Y,
		TranslateX: -w / 2,
		TranslateY: -h / 2,
	}
}
