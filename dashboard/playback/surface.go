package playback

import (
	"slices"
	"sync"

	"github.com/imtaco/stream-dashboard/internal/errors"
)

const ErrSurfaceDetached errors.Code = "surface detached"

// Options are the element attributes applied when a session attaches.
type Options struct {
	Autoplay bool
	Loop     bool
	Muted    bool
	Controls bool
}

func DefaultOptions() Options {
	return Options{
		Autoplay: true,
		Loop:     true,
		Muted:    true,
		Controls: false,
	}
}

// Surface is the video element a session renders into.
type Surface interface {
	Configure(opts Options)
	Append(segment []byte) error
	// Reset drops buffered media and detaches the current source.
	Reset()
	Play() error
	Paused() bool
}

// MemorySurface buffers appended segments in memory. It backs headless
// playback and tests.
type MemorySurface struct {
	mu       sync.Mutex
	opts     Options
	segments [][]byte
	// keeps only the newest limit segments, 0 keeps all
	limit    int
	appended int
	bytes    int64
	attached bool
	paused   bool
	plays    int
}

func NewMemorySurface() *MemorySurface {
	return NewBoundedMemorySurface(0)
}

func NewBoundedMemorySurface(limit int) *MemorySurface {
	return &MemorySurface{paused: true, limit: max(limit, 0)}
}

func (m *MemorySurface) Configure(opts Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
	m.attached = true
}

func (m *MemorySurface) Append(segment []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.attached {
		return errors.New(ErrSurfaceDetached, "append on detached surface")
	}
	m.segments = append(m.segments, segment)
	if m.limit > 0 && len(m.segments) > m.limit {
		m.segments = slices.Delete(m.segments, 0, len(m.segments)-m.limit)
	}
	m.appended++
	m.bytes += int64(len(segment))
	return nil
}

func (m *MemorySurface) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = nil
	m.attached = false
	m.paused = true
}

func (m *MemorySurface) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	m.plays++
	return nil
}

// Pause simulates the browser blocking autoplay or the user pausing.
func (m *MemorySurface) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *MemorySurface) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MemorySurface) Options() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

func (m *MemorySurface) Segments() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.segments))
	copy(out, m.segments)
	return out
}

// Stats reports every segment appended since creation, including dropped
// and reset ones.
func (m *MemorySurface) Stats() (segments int, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appended, m.bytes
}

func (m *MemorySurface) Plays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}
