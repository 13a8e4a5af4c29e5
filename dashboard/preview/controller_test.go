package preview

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/imtaco/stream-dashboard/dashboard"
	"github.com/imtaco/stream-dashboard/dashboard/events"
	"github.com/imtaco/stream-dashboard/internal/log"
)

type ControllerTestSuite struct {
	suite.Suite
	bus     *events.Bus
	streams map[string]*dashboard.Stream
	cursor  []bool
	ctrl    *Controller
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func (s *ControllerTestSuite) SetupTest() {
	s.bus = events.NewBus()
	s.streams = map[string]*dashboard.Stream{
		"cam": {ID: "cam", Width: 1280, Height: 720},
	}
	s.cursor = nil
	lookup := func(id string) (*dashboard.Stream, bool) {
		st, ok := s.streams[id]
		return st, ok
	}
	s.ctrl = New(s.bus, lookup, func(hidden bool) { s.cursor = append(s.cursor, hidden) }, log.NewTest(s.T()))
	s.ctrl.Mount()
}

func (s *ControllerTestSuite) TearDownTest() {
	s.ctrl.Close()
}

func (s *ControllerTestSuite) move(x, y float64) {
	s.bus.Dispatch(events.Event{Kind: events.PointerMove, X: x, Y: y})
}

func (s *ControllerTestSuite) press() {
	s.bus.Dispatch(events.Event{Kind: events.KeyDown, Key: events.KeySpace})
}

func (s *ControllerTestSuite) release() {
	s.bus.Dispatch(events.Event{Kind: events.KeyUp, Key: events.KeySpace})
}

func (s *ControllerTestSuite) TestHoverScenario() {
	s.ctrl.Hover("cam")
	s.press()
	s.move(500, 300)

	t := s.ctrl.Target()
	s.True(t.Visible)
	s.Equal("cam", t.StreamID)
	s.Equal(320.0, t.Width)
	s.Equal(180.0, t.Height)
	s.Equal(500.0, t.CenterX)
	s.Equal(300.0, t.CenterY)
	s.Equal(-160.0, t.TranslateX)
	s.Equal(-90.0, t.TranslateY)
	s.Equal([]bool{true}, s.cursor)
}

func (s *ControllerTestSuite) TestVisibilityTruthTable() {
	for mask := 0; mask < 8; mask++ {
		held, hovered, positioned := mask&1 != 0, mask&2 != 0, mask&4 != 0
		s.SetupTest()

		if held {
			s.press()
		}
		if hovered {
			s.ctrl.Hover("cam")
		}
		if positioned {
			s.move(10, 10)
		}

		t := s.ctrl.Target()
		s.Equal(held && hovered && positioned, t.Visible, "held=%v hovered=%v positioned=%v", held, hovered, positioned)
		if !t.Visible {
			s.Equal(Target{}, t)
		}
		s.ctrl.Close()
	}
}

func (s *ControllerTestSuite) TestPointerLastWriteWins() {
	s.ctrl.Hover("cam")
	s.press()
	s.move(1, 1)
	s.move(2, 2)
	s.move(640, 480)

	t := s.ctrl.Target()
	s.Equal(640.0, t.CenterX)
	s.Equal(480.0, t.CenterY)
}

func (s *ControllerTestSuite) TestReleaseKeyHides() {
	s.ctrl.Hover("cam")
	s.move(500, 300)
	s.press()
	s.True(s.ctrl.Target().Visible)

	s.release()
	s.False(s.ctrl.Target().Visible)
	s.Equal([]bool{true, false}, s.cursor)
}

func (s *ControllerTestSuite) TestRepeatKeyDownIgnored() {
	s.ctrl.Hover("cam")
	s.move(500, 300)
	s.bus.Dispatch(events.Event{Kind: events.KeyDown, Key: events.KeySpace, Repeat: true})
	s.False(s.ctrl.Target().Visible)

	s.press()
	s.bus.Dispatch(events.Event{Kind: events.KeyDown, Key: events.KeySpace, Repeat: true})
	s.True(s.ctrl.Target().Visible)
	s.Equal([]bool{true}, s.cursor)
}

func (s *ControllerTestSuite) TestOtherKeysIgnored() {
	s.ctrl.Hover("cam")
	s.move(500, 300)
	s.bus.Dispatch(events.Event{Kind: events.KeyDown, Key: "a"})
	s.False(s.ctrl.Target().Visible)

	s.press()
	s.bus.Dispatch(events.Event{Kind: events.KeyUp, Key: "a"})
	s.True(s.ctrl.Target().Visible)
}

func (s *ControllerTestSuite) TestDeletedStreamHides() {
	s.ctrl.Hover("cam")
	s.press()
	s.move(500, 300)
	s.True(s.ctrl.Target().Visible)

	delete(s.streams, "cam")

	s.False(s.ctrl.Target().Visible)
	s.Equal([]bool{true, false}, s.cursor)
}

func (s *ControllerTestSuite) TestUnhover() {
	s.ctrl.Hover("cam")
	s.press()
	s.move(500, 300)
	s.ctrl.Unhover()

	s.False(s.ctrl.Target().Visible)
}

func (s *ControllerTestSuite) TestMountCloseListeners() {
	s.Equal(1, s.bus.Count(events.PointerMove))
	s.Equal(1, s.bus.Count(events.KeyDown))
	s.Equal(1, s.bus.Count(events.KeyUp))

	s.ctrl.Mount()
	s.Equal(1, s.bus.Count(events.PointerMove))

	s.ctrl.Close()
	s.ctrl.Close()
	s.Equal(0, s.bus.Count(events.PointerMove))
	s.Equal(0, s.bus.Count(events.KeyDown))
	s.Equal(0, s.bus.Count(events.KeyUp))

	// remount after teardown
	s.ctrl.Mount()
	s.Equal(1, s.bus.Count(events.PointerMove))
}

func (s *ControllerTestSuite) TestCloseRestoresCursor() {
	s.ctrl.Hover("cam")
	s.press()
	s.move(500, 300)
	s.Equal([]bool{true}, s.cursor)

	s.ctrl.Close()
	s.Equal([]bool{true, false}, s.cursor)

	// no listeners, pointer events no longer reach the controller
	s.move(1, 1)
	s.Equal([]bool{true, false}, s.cursor)
}
