package playback

import (
	"github.com/jonboulle/clockwork"

	"github.com/imtaco/stream-dashboard/dashboard/events"
	"github.com/imtaco/stream-dashboard/internal/log"
)

// Follower plays one stream without a browser, into a bounded memory
// surface. It keeps a stream's proxy path warm and reports what it received.
type Follower struct {
	bus     *events.Bus
	player  *Player
	surface *MemorySurface
	logger  *log.Logger
}

func NewFollower(cfg *Config, clock clockwork.Clock, logger *log.Logger) *Follower {
	bus := events.NewBus()
	factory := NewHLSFactory(cfg, clock, logger.Module("HLS"))
	return &Follower{
		bus:     bus,
		player:  NewPlayer(bus, factory, cfg.BackendURL, DefaultOptions(), logger),
		surface: NewBoundedMemorySurface(cfg.BufferSegments),
		logger:  logger,
	}
}

// Follow switches to streamID, an empty id stops playback.
func (f *Follower) Follow(streamID string) {
	f.player.Mount(f.surface)
	f.player.SetStream(streamID)
	f.logger.Info("Following stream", log.String("streamId", streamID))
}

func (f *Follower) View() View {
	return f.player.View()
}

func (f *Follower) Stats() (segments int, bytes int64) {
	return f.surface.Stats()
}

// Close stops the session and waits for its network activity to end.
func (f *Follower) Close() {
	f.player.Close()
	segments, bytes := f.surface.Stats()
	f.logger.Info("Follower stopped",
		log.String("streamId", f.player.StreamID()),
		log.Int("segments", segments),
		log.Int64("bytes", bytes))
}
