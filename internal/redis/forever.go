package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/imtaco/stream-dashboard/internal/log"
)

// Forever wraps go-redis client with automatic retry using exponential backoff.
// All operations retry until successful or the context is cancelled.
// redis.Nil is returned as is and never retried.
type Forever interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) error
}

type redisForeverImpl struct {
	client          redis.UniversalClient
	logger          *log.Logger
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewForever creates a new Redis utility with forever backoff retry logic.
// initialInterval: starting backoff interval (e.g., 100ms)
// maxInterval: maximum backoff interval (e.g., 10s)
func NewForever(
	client redis.UniversalClient,
	initialInterval time.Duration,
	maxInterval time.Duration,
	logger *log.Logger,
) Forever {
	if client == nil {
		panic("redis client is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if initialInterval <= 0 {
		initialInterval = 100 * time.Millisecond
	}
	if maxInterval <= 0 {
		maxInterval = 10 * time.Second
	}

	return &redisForeverImpl{
		client:          client,
		logger:          logger,
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
	}
}

// newForeverBackoff creates a new exponential backoff that retries forever.
func (r *redisForeverImpl) newForeverBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = 0 // 0 means forever
	return b
}

// retryWithBackoff tries operation once first, only creates backoff object if first attempt fails.
// This optimizes for the common case where Redis operations succeed on first try.
func (r *redisForeverImpl) retryWithBackoff(ctx context.Context, operation func() error, operationName string) error {
	// Fast path: try once without backoff overhead
	err := operation()
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}

	// First attempt failed, log and enter retry loop with backoff
	r.logger.Warn("Redis operation failed, entering retry mode",
		log.String("operation", operationName),
		log.Error(err))

	b := r.newForeverBackoff()
	attempt := 1 // First attempt already done

	return backoff.Retry(func() error {
		select {
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		default:
		}

		attempt++
		err := operation()
		if errors.Is(err, redis.Nil) {
			return backoff.Permanent(err)
		}
		if err != nil {
			r.logger.Warn("Redis operation retry failed",
				log.String("operation", operationName),
				log.Int("attempt", attempt),
				log.Error(err))
			return err
		}

		r.logger.Info("Redis operation recovered",
			log.String("operation", operationName),
			log.Int("total_attempts", attempt))
		return nil
	}, backoff.WithContext(b, ctx))
}

func (r *redisForeverImpl) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var result map[string]string
	err := r.retryWithBackoff(ctx, func() error {
		val, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		result = val
		return nil
	}, "HGetAll")
	return result, err
}

func (r *redisForeverImpl) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var result []string
	err := r.retryWithBackoff(ctx, func() error {
		val, err := r.client.ZRevRange(ctx, key, start, stop).Result()
		if err != nil {
			return err
		}
		result = val
		return nil
	}, "ZRevRange")
	return result, err
}

// TxPipelined runs fn inside MULTI/EXEC. fn may be invoked more than once.
func (r *redisForeverImpl) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) error {
	return r.retryWithBackoff(ctx, func() error {
		_, err := r.client.TxPipelined(ctx, fn)
		return err
	}, "TxPipelined")
}
