package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/livepeer/m3u8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/imtaco/stream-dashboard/internal/constants"
	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	intotel "github.com/imtaco/stream-dashboard/internal/otel"
	"github.com/imtaco/stream-dashboard/streams"
)

const defaultPlaylistCacheSize = 256

type streamServiceImpl struct {
	store       streams.StreamStore
	ingester    streams.Ingester
	resourceDir string
	// only playlists carrying ENDLIST are cached, they never change again
	playlists *lru.Cache[string, []byte]
	reads     singleflight.Group
	// shared by playlist reads, exclusive while a stream dir is removed
	dirMu  sync.RWMutex
	tracer trace.Tracer
	logger *log.Logger
}

func NewStreamService(
	store streams.StreamStore,
	ingester streams.Ingester,
	resourceDir string,
	playlistCacheSize int,
	logger *log.Logger,
) (streams.StreamService, error) {
	if playlistCacheSize <= 0 {
		playlistCacheSize = defaultPlaylistCacheSize
	}
	cache, err := lru.New[string, []byte](playlistCacheSize)
	if err != nil {
		return nil, err
	}

	return &streamServiceImpl{
		store:       store,
		ingester:    ingester,
		resourceDir: filepath.Clean(resourceDir),
		playlists:   cache,
		tracer:      otel.Tracer("streams.service"),
		logger:      logger,
	}, nil
}

func (s *streamServiceImpl) ListStreams(ctx context.Context) ([]*streams.Stream, error) {
	return s.store.List(ctx)
}

func (s *streamServiceImpl) DeleteStream(ctx context.Context, streamID string) (err error) {
	ctx, span := intotel.StartSpan(ctx, s.tracer, "service.DeleteStream",
		attribute.String("stream.id", streamID))
	defer func() {
		intotel.RecordError(span, err)
		span.End()
	}()

	stopped, err := s.ingester.Stop(ctx, streamID)
	if err != nil {
		return errors.Wrapf(streams.ErrIngestFailed, err, "stop ingest for %s", streamID)
	}
	intotel.SetSpanAttributes(span, attribute.Bool("stream.live", stopped))

	deleted, err := s.store.Delete(ctx, streamID)
	if err != nil {
		return err
	}
	if !deleted && !stopped {
		streamNotFound.Add(ctx, 1)
		return errors.Newf(streams.ErrStreamNotFound, "stream %s not found", streamID)
	}

	if rmErr := s.removeStreamDir(streamID); rmErr != nil {
		s.logger.Error("Failed to remove stream dir",
			log.String("streamId", streamID),
			log.Error(rmErr))
		return errors.Wrapf(streams.ErrIngestFailed, rmErr, "remove stream dir %s", streamID)
	}

	streamsDeleted.Add(ctx, 1)
	s.logger.Info("Stream deleted",
		log.String("streamId", streamID),
		log.Bool("wasLive", stopped))
	return nil
}

// removeStreamDir deletes the files first and the cache entry second.
func (s *streamServiceImpl) removeStreamDir(streamID string) error {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()

	err := os.RemoveAll(s.streamDir(streamID))
	s.playlists.Remove(streamID)
	return err
}

func (s *streamServiceImpl) Upload(ctx context.Context, body io.Reader, opts streams.IngestOptions) (string, error) {
	return s.ingester.Ingest(ctx, body, opts)
}

func (s *streamServiceImpl) Playlist(ctx context.Context, streamID string) ([]byte, error) {
	if data, ok := s.playlists.Get(streamID); ok {
		playlistCacheHits.Add(ctx, 1)
		return data, nil
	}
	playlistCacheMisses.Add(ctx, 1)

	v, err, _ := s.reads.Do(streamID, func() (any, error) {
		return s.readPlaylist(streamID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *streamServiceImpl) readPlaylist(streamID string) ([]byte, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()

	path := filepath.Join(s.streamDir(streamID), constants.PlaylistFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Newf(streams.ErrPlaylistNotFound, "no playlist for stream %s", streamID)
	}
	if err != nil {
		return nil, errors.Wrapf(streams.ErrPlaylistNotFound, err, "read playlist %s", path)
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), true)
	if err != nil {
		// still being written, serve as is
		s.logger.Debug("Playlist not parseable yet",
			log.String("streamId", streamID),
			log.Error(err))
		return data, nil
	}
	if listType == m3u8.MEDIA {
		if media, ok := playlist.(*m3u8.MediaPlaylist); ok && !media.Live {
			s.playlists.Add(streamID, data)
		}
	}
	return data, nil
}

func (s *streamServiceImpl) SegmentPath(streamID, segmentID string) (string, error) {
	path := filepath.Join(s.streamDir(streamID), segmentID)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", errors.Newf(streams.ErrSegmentNotFound, "segment %s/%s not found", streamID, segmentID)
	}
	return path, nil
}

// streamDir expects streamID to be validated by the caller.
func (s *streamServiceImpl) streamDir(streamID string) string {
	return filepath.Join(s.resourceDir, streamID)
}
