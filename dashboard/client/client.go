package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/imtaco/stream-dashboard/dashboard"
	"github.com/imtaco/stream-dashboard/internal/constants"
	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/internal/retry"
	"github.com/imtaco/stream-dashboard/internal/validation"
)

// streamRecord is the wire shape of a registry record. Pointers tell a
// missing field apart from an empty one.
type streamRecord struct {
	ID          *string    `json:"id" validate:"required,streamid"`
	Name        *string    `json:"name" validate:"required"`
	Description *string    `json:"description" validate:"required"`
	StartTime   *time.Time `json:"startTime" validate:"required"`
	Width       *int       `json:"width" validate:"required,dimension"`
	Height      *int       `json:"height" validate:"required,dimension"`
}

type apiImpl struct {
	baseURL  string
	client   *resty.Client
	validate *validator.Validate
	retry    retry.Retry
	logger   *log.Logger
}

// New creates a registry client for the streaming backend at baseURL.
func New(baseURL string, cfg *Config, logger *log.Logger) dashboard.StreamAPI {
	if logger == nil {
		panic("logger is required")
	}
	return &apiImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: resty.New().
			SetHeader("Accept", "application/json").
			SetTimeout(cfg.Timeout),
		validate: validation.New(),
		retry: retry.New(logger, cfg.InitialBackoff, cfg.MaxBackoff, 0,
			retry.WithMaxRetries(cfg.MaxRetries)),
		logger: logger,
	}
}

// ListStreams fetches and validates the registry. Transport errors and 5xx
// are retried; anything the registry answered wrongly is not.
func (api *apiImpl) ListStreams(ctx context.Context) ([]*dashboard.Stream, error) {
	var list []*dashboard.Stream
	err := api.retry.Do(ctx, func() error {
		resp, err := api.client.R().
			SetContext(ctx).
			Get(api.baseURL + "/streams")
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return errors.Wrap(dashboard.ErrBackend, err, "list streams")
		}
		if !resp.IsSuccess() {
			statusErr := newStatusError(resp)
			if resp.StatusCode() >= http.StatusInternalServerError {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		list, err = api.decode(resp.Body())
		return retry.Permanent(err)
	})
	if err != nil {
		return nil, err
	}

	api.logger.Debug("Listed streams", log.Int("count", len(list)))
	return list, nil
}

func (api *apiImpl) DeleteStream(ctx context.Context, streamID string) error {
	resp, err := api.client.R().
		SetContext(ctx).
		Delete(api.baseURL + constants.StreamRoutePrefix + url.PathEscape(streamID))
	if err != nil {
		return errors.Wrapf(dashboard.ErrBackend, err, "delete stream %s", streamID)
	}
	if !resp.IsSuccess() {
		return newStatusError(resp)
	}
	return nil
}

func (api *apiImpl) decode(body []byte) ([]*dashboard.Stream, error) {
	var records []streamRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errors.Wrap(dashboard.ErrInvalidPayload, err, "decode streams")
	}
	if records == nil {
		return nil, errors.New(dashboard.ErrInvalidPayload, "streams payload is not an array")
	}

	list := make([]*dashboard.Stream, 0, len(records))
	for i := range records {
		rec := &records[i]
		if err := api.validate.Struct(rec); err != nil {
			return nil, errors.Wrapf(dashboard.ErrInvalidPayload, err, "stream record %d", i)
		}
		if rec.StartTime.IsZero() {
			return nil, errors.Newf(dashboard.ErrInvalidPayload, "stream record %d: zero startTime", i)
		}
		list = append(list, &dashboard.Stream{
			ID:          *rec.ID,
			Name:        *rec.Name,
			Description: *rec.Description,
			StartTime:   *rec.StartTime,
			Width:       *rec.Width,
			Height:      *rec.Height,
		})
	}
	return list, nil
}

func newStatusError(resp *resty.Response) error {
	return &dashboard.StatusError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       strings.TrimSpace(resp.String()),
	}
}
