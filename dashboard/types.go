package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/imtaco/stream-dashboard/internal/errors"
)

const (
	ErrInvalidPayload   errors.Code = "invalid_payload"
	ErrUnexpectedStatus errors.Code = "unexpected_status"
	ErrBackend          errors.Code = "backend_unavailable"
)

// Stream is a registry record as the dashboard sees it.
type Stream struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
}

// StreamAPI is the remote stream registry.
type StreamAPI interface {
	ListStreams(ctx context.Context) ([]*Stream, error)
	DeleteStream(ctx context.Context, streamID string) error
}

// StatusError is a non-2xx answer from the registry.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s", ErrUnexpectedStatus, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", ErrUnexpectedStatus, e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
