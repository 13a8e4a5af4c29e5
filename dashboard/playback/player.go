package playback

import (
	"context"
	"strings"
	"sync"

	"github.com/imtaco/stream-dashboard/dashboard/events"
	"github.com/imtaco/stream-dashboard/internal/constants"
	"github.com/imtaco/stream-dashboard/internal/log"
)

type View int

const (
	ViewVideo View = iota
	ViewError
)

const ErrorLabel = "Error loading stream"

// Session is one adaptive playback session bound to a surface.
type Session interface {
	Start()
	// Destroy stops all network activity before it returns.
	Destroy()
}

// SessionFactory creates a session for a manifest URL. onError is called at
// most once, when the session gives up.
type SessionFactory interface {
	New(manifestURL string, surface Surface, onError func(error)) Session
}

// Player binds one stream at a time to a surface.
type Player struct {
	// serializes stream switches so a session is torn down before the next
	// one is built
	switchMu sync.Mutex

	mu         sync.Mutex
	bus        *events.Bus
	factory    SessionFactory
	backendURL string
	opts       Options
	surface    Surface
	streamID   string
	session    Session
	gen        uint64
	failed     bool
	keySub     *events.Subscription
	logger     *log.Logger
}

// NewPlayer creates a player loading manifests from
// <backendURL>/stream/<id>.
func NewPlayer(bus *events.Bus, factory SessionFactory, backendURL string, opts Options, logger *log.Logger) *Player {
	return &Player{
		bus:        bus,
		factory:    factory,
		backendURL: strings.TrimRight(backendURL, "/"),
		opts:       opts,
		logger:     logger,
	}
}

// Mount attaches the video surface, listens for the space key and starts
// the current stream if one is set.
func (p *Player) Mount(surface Surface) {
	p.switchMu.Lock()
	defer p.switchMu.Unlock()

	p.mu.Lock()
	p.surface = surface
	if p.keySub == nil {
		p.keySub = p.bus.Subscribe(events.KeyUp, p.onKeyUp)
	}
	streamID := p.streamID
	p.mu.Unlock()

	p.restart(streamID)
}

// SetStream switches playback to streamID. The previous session is destroyed
// before the new one is constructed. An empty id only stops playback.
func (p *Player) SetStream(streamID string) {
	p.switchMu.Lock()
	defer p.switchMu.Unlock()

	p.mu.Lock()
	if streamID == p.streamID && p.session != nil {
		p.mu.Unlock()
		return
	}
	p.streamID = streamID
	p.mu.Unlock()

	p.restart(streamID)
}

func (p *Player) StreamID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamID
}

// View is ViewError after the session reported a fatal error, otherwise
// ViewVideo.
func (p *Player) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return ViewError
	}
	return ViewVideo
}

// Close releases the session and the key listener.
func (p *Player) Close() {
	p.switchMu.Lock()
	defer p.switchMu.Unlock()

	p.mu.Lock()
	sub := p.keySub
	p.keySub = nil
	p.mu.Unlock()
	sub.Release()

	p.teardown()

	p.mu.Lock()
	p.surface = nil
	p.mu.Unlock()
}

// restart requires switchMu. The session is built and started outside mu so
// a session may report an error from within Start.
func (p *Player) restart(streamID string) {
	p.teardown()

	p.mu.Lock()
	p.failed = false
	surface := p.surface
	gen := p.gen
	p.mu.Unlock()

	if streamID == "" || surface == nil {
		return
	}

	url := p.backendURL + constants.StreamRoutePrefix + streamID
	surface.Configure(p.opts)
	session := p.factory.New(url, surface, func(err error) { p.onSessionError(gen, err) })

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	session.Start()
	sessionsStarted.Add(context.Background(), 1)
	activeSessions.Add(context.Background(), 1)
	p.logger.Debug("Session started", log.String("streamId", streamID))

	if p.opts.Autoplay {
		if err := surface.Play(); err != nil {
			p.logger.Debug("Autoplay blocked", log.Error(err))
		}
	}
}

// teardown destroys the current session outside mu, so a session reporting
// an error while it shuts down cannot deadlock. Requires switchMu.
func (p *Player) teardown() {
	p.mu.Lock()
	old := p.session
	surface := p.surface
	p.session = nil
	// errors from the old session are stale from here on
	p.gen++
	p.mu.Unlock()

	if old == nil {
		return
	}
	old.Destroy()
	activeSessions.Add(context.Background(), -1)
	if surface != nil {
		surface.Reset()
	}
}

func (p *Player) onSessionError(gen uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	p.failed = true
	sessionsFailed.Add(context.Background(), 1)
	p.logger.Warn("Playback failed",
		log.String("streamId", p.streamID),
		log.Error(err))
}

// onKeyUp resumes a paused surface on space, autoplay policies may have
// blocked the first Play.
func (p *Player) onKeyUp(ev events.Event) {
	if ev.Key != events.KeySpace {
		return
	}
	p.mu.Lock()
	surface := p.surface
	p.mu.Unlock()

	if surface == nil || !surface.Paused() {
		return
	}
	if err := surface.Play(); err != nil {
		p.logger.Debug("Play failed", log.Error(err))
	}
}
