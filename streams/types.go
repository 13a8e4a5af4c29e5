package streams

import (
	"context"
	"io"
	"time"

	"github.com/imtaco/stream-dashboard/internal/errors"
)

const (
	ErrStreamNotFound   errors.Code = "stream not found"
	ErrSegmentNotFound  errors.Code = "segment not found"
	ErrPlaylistNotFound errors.Code = "playlist not found"
	ErrIngestFailed     errors.Code = "ingest failed"
	ErrIngestStopped    errors.Code = "ingest stopped"
	ErrTooManyIngests   errors.Code = "too many ingests"
	ErrInvalidRecord    errors.Code = "invalid record"
)

// Stream is a registered live stream. Records are created once ingest has
// produced its first segment and removed on delete.
type Stream struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
}

type IngestOptions struct {
	Name        string
	Description string
	Width       int
	Height      int
}

// StreamService is the backend surface served over HTTP.
type StreamService interface {
	ListStreams(ctx context.Context) ([]*Stream, error)
	DeleteStream(ctx context.Context, streamID string) error
	Upload(ctx context.Context, body io.Reader, opts IngestOptions) (string, error)
	Playlist(ctx context.Context, streamID string) ([]byte, error)
	SegmentPath(streamID, segmentID string) (string, error)
}

// StreamStore keeps stream records ordered by start time, newest first.
type StreamStore interface {
	Create(ctx context.Context, stream *Stream) error
	Get(ctx context.Context, streamID string) (*Stream, error)
	List(ctx context.Context) ([]*Stream, error)
	Delete(ctx context.Context, streamID string) (bool, error)
}

// Ingester turns an uploaded media byte stream into HLS output on disk.
type Ingester interface {
	// Ingest blocks until the body is drained and the encoder exits.
	Ingest(ctx context.Context, body io.Reader, opts IngestOptions) (string, error)
	// Stop terminates a running ingest and waits for the encoder to exit.
	// It reports whether an ingest was running for streamID.
	Stop(ctx context.Context, streamID string) (bool, error)
	Close(ctx context.Context) error
}
