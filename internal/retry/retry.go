package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/imtaco/stream-dashboard/internal/log"
)

type Retry interface {
	Do(ctx context.Context, operation func() error) error
}

type Option func(*retryImpl)

// WithMaxRetries bounds the number of retries after the first attempt.
func WithMaxRetries(n uint64) Option {
	return func(r *retryImpl) {
		r.maxRetries = n
	}
}

func New(logger *log.Logger, initialInterval, maxInterval, maxElapsedTime time.Duration, opts ...Option) Retry {
	r := &retryImpl{
		logger:          logger,
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
		maxElapsedTime:  maxElapsedTime,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Permanent marks err as not worth retrying. Do returns the unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

type retryImpl struct {
	logger          *log.Logger
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	maxRetries      uint64
}

func (r *retryImpl) Do(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	var policy backoff.BackOff = b
	if r.maxRetries > 0 {
		policy = backoff.WithMaxRetries(b, r.maxRetries)
	}

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := operation()
		if err != nil {
			r.logger.Warn("Retry attempt failed",
				log.Int("attempt", attempt),
				log.Error(err))
		}
		return err
	}, backoff.WithContext(policy, ctx))
}
