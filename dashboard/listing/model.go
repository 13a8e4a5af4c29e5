package listing

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"

	"github.com/imtaco/stream-dashboard/dashboard"
	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
)

// Model is the stream table: the loaded streams plus the checked rows. The
// selection is always a subset of the loaded ids.
type Model struct {
	mu       sync.RWMutex
	api      dashboard.StreamAPI
	streams  []*dashboard.Stream
	selected map[string]struct{}
	logger   *log.Logger
}

func New(api dashboard.StreamAPI, logger *log.Logger) *Model {
	return &Model{
		api:      api,
		selected: make(map[string]struct{}),
		logger:   logger,
	}
}

// Load replaces the list with the registry's and drops selected ids that
// are gone. On error the current list is kept.
func (m *Model) Load(ctx context.Context) error {
	list, err := m.api.ListStreams(ctx)
	if err != nil {
		m.logger.Error("Failed to load streams", log.Error(err))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.streams = list
	loaded := make(map[string]struct{}, len(list))
	for _, st := range list {
		loaded[st.ID] = struct{}{}
	}
	for id := range m.selected {
		if _, ok := loaded[id]; !ok {
			delete(m.selected, id)
		}
	}
	return nil
}

func (m *Model) Streams() []*dashboard.Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.streams)
}

func (m *Model) Lookup(streamID string) (*dashboard.Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexLocked(streamID)
	if i < 0 {
		return nil, false
	}
	return m.streams[i], true
}

// Toggle flips the checkbox of a loaded stream. Unknown ids are ignored.
func (m *Model) Toggle(streamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(streamID) < 0 {
		return
	}
	if _, ok := m.selected[streamID]; ok {
		delete(m.selected, streamID)
		return
	}
	m.selected[streamID] = struct{}{}
}

// ToggleAll is the header checkbox: select everything when nothing is
// selected, otherwise clear.
func (m *Model) ToggleAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.selected) > 0 {
		clear(m.selected)
		return
	}
	for _, st := range m.streams {
		m.selected[st.ID] = struct{}{}
	}
}

func (m *Model) IsSelected(streamID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.selected[streamID]
	return ok
}

// Selected returns the checked ids in list order.
func (m *Model) Selected() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.selected))
	for _, st := range m.streams {
		if _, ok := m.selected[st.ID]; ok {
			out = append(out, st.ID)
		}
	}
	return out
}

// Delete asks the registry to delete streamID and, once it succeeded, drops
// the row and its selection together. A failed delete leaves the model
// untouched.
func (m *Model) Delete(ctx context.Context, streamID string) error {
	if err := m.api.DeleteStream(ctx, streamID); err != nil {
		fields := []log.Field{log.String("streamId", streamID), log.Error(err)}
		if se, ok := errors.As[*dashboard.StatusError](err); ok {
			fields = append(fields,
				log.Int("status", (*se).StatusCode),
				log.String("text", (*se).Status))
		}
		m.logger.Error("Failed to delete stream", fields...)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(streamID); i >= 0 {
		m.streams = slices.Delete(slices.Clone(m.streams), i, i+1)
	}
	delete(m.selected, streamID)
	return nil
}

// DeleteSelected deletes every checked stream and joins the failures.
func (m *Model) DeleteSelected(ctx context.Context) error {
	var errs []error
	for _, id := range m.Selected() {
		if err := m.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (m *Model) indexLocked(streamID string) int {
	return slices.IndexFunc(m.streams, func(st *dashboard.Stream) bool {
		return st.ID == streamID
	})
}
