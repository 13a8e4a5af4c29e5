package events

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

type Kind int

const (
	PointerMove Kind = iota
	PointerDown
	PointerUp
	KeyDown
	KeyUp
	Click
)

func (k Kind) String() string {
	switch k {
	case PointerMove:
		return "pointermove"
	case PointerDown:
		return "pointerdown"
	case PointerUp:
		return "pointerup"
	case KeyDown:
		return "keydown"
	case KeyUp:
		return "keyup"
	case Click:
		return "click"
	default:
		return "unknown"
	}
}

const KeySpace = " "

type Point struct {
	X, Y float64
}

// Event is a document level input event.
type Event struct {
	Kind   Kind
	X, Y   float64
	Key    string
	Repeat bool
	Ctrl   bool
	Meta   bool
}

func (e Event) Point() Point {
	return Point{X: e.X, Y: e.Y}
}

type Handler func(Event)

// Bus fans document level events out to the controllers that hold a
// subscription for that kind.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Kind]map[uint64]*Subscription
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[Kind]map[uint64]*Subscription),
	}
}

// Subscription is a scoped listener registration. Release removes it and is
// safe to call more than once.
type Subscription struct {
	bus      *Bus
	kind     Kind
	id       uint64
	handler  Handler
	released atomic.Bool
	once     sync.Once
}

func (b *Bus) Subscribe(kind Kind, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		bus:     b,
		kind:    kind,
		id:      b.nextID,
		handler: handler,
	}
	byID, ok := b.subs[kind]
	if !ok {
		byID = make(map[uint64]*Subscription)
		b.subs[kind] = byID
	}
	byID[sub.id] = sub
	return sub
}

func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.released.Store(true)

		b := s.bus
		b.mu.Lock()
		defer b.mu.Unlock()
		if byID, ok := b.subs[s.kind]; ok {
			delete(byID, s.id)
			if len(byID) == 0 {
				delete(b.subs, s.kind)
			}
		}
	})
}

// Dispatch delivers ev to every current subscriber of its kind, in
// subscription order. Handlers may subscribe or release during delivery.
func (b *Bus) Dispatch(ev Event) {
	b.mu.Lock()
	byID := b.subs[ev.Kind]
	snapshot := make([]*Subscription, 0, len(byID))
	for _, sub := range byID {
		snapshot = append(snapshot, sub)
	}
	b.mu.Unlock()

	slices.SortFunc(snapshot, func(a, b *Subscription) int { return cmp.Compare(a.id, b.id) })
	for _, sub := range snapshot {
		// released by an earlier handler of this same event
		if sub.released.Load() {
			continue
		}
		sub.handler(ev)
	}
}

func (b *Bus) Count(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[kind])
}
