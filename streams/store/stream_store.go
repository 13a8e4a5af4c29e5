package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	intredis "github.com/imtaco/stream-dashboard/internal/redis"
	"github.com/imtaco/stream-dashboard/streams"
)

const (
	fieldID          = "id"
	fieldName        = "name"
	fieldDescription = "description"
	fieldStartTime   = "start_time"
	fieldWidth       = "width"
	fieldHeight      = "height"
)

// streamStoreImpl keeps one hash per stream plus a sorted set indexing ids by
// start time in unix milliseconds.
type streamStoreImpl struct {
	redis  intredis.Forever
	prefix string
	logger *log.Logger
}

func NewStreamStore(redis intredis.Forever, prefix string, logger *log.Logger) streams.StreamStore {
	return &streamStoreImpl{
		redis:  redis,
		prefix: prefix,
		logger: logger,
	}
}

func (ss *streamStoreImpl) indexKey() string {
	return ss.prefix + "streams"
}

func (ss *streamStoreImpl) streamKey(streamID string) string {
	return ss.prefix + "stream:" + streamID
}

func (ss *streamStoreImpl) Create(ctx context.Context, stream *streams.Stream) error {
	key := ss.streamKey(stream.ID)
	err := ss.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldID, stream.ID,
			fieldName, stream.Name,
			fieldDescription, stream.Description,
			fieldStartTime, stream.StartTime.UTC().Format(time.RFC3339Nano),
			fieldWidth, stream.Width,
			fieldHeight, stream.Height,
		)
		p.ZAdd(ctx, ss.indexKey(), redis.Z{
			Score:  float64(stream.StartTime.UnixMilli()),
			Member: stream.ID,
		})
		return nil
	})
	if err != nil {
		return errors.Wrapf(streams.ErrIngestFailed, err, "store stream %s", stream.ID)
	}

	ss.logger.Info("Stream recorded", log.String("streamId", stream.ID))
	return nil
}

func (ss *streamStoreImpl) Get(ctx context.Context, streamID string) (*streams.Stream, error) {
	fields, err := ss.redis.HGetAll(ctx, ss.streamKey(streamID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errors.Newf(streams.ErrStreamNotFound, "stream %s not found", streamID)
	}
	return decodeStream(fields)
}

func (ss *streamStoreImpl) List(ctx context.Context) ([]*streams.Stream, error) {
	ids, err := ss.redis.ZRevRange(ctx, ss.indexKey(), 0, -1)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*streams.Stream{}, nil
	}

	var cmds []*redis.MapStringStringCmd
	err = ss.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		cmds = cmds[:0]
		for _, id := range ids {
			cmds = append(cmds, p.HGetAll(ctx, ss.streamKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]*streams.Stream, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			ss.logger.Warn("Indexed stream has no record", log.String("streamId", ids[i]))
			continue
		}
		stream, err := decodeStream(fields)
		if err != nil {
			ss.logger.Warn("Skip malformed stream record",
				log.String("streamId", ids[i]),
				log.Error(err))
			continue
		}
		result = append(result, stream)
	}
	return result, nil
}

func (ss *streamStoreImpl) Delete(ctx context.Context, streamID string) (bool, error) {
	var removed, deleted *redis.IntCmd
	err := ss.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		removed = p.ZRem(ctx, ss.indexKey(), streamID)
		deleted = p.Del(ctx, ss.streamKey(streamID))
		return nil
	})
	if err != nil {
		return false, err
	}

	found := removed.Val() > 0 || deleted.Val() > 0
	if found {
		ss.logger.Info("Stream record deleted", log.String("streamId", streamID))
	}
	return found, nil
}

func decodeStream(fields map[string]string) (*streams.Stream, error) {
	startTime, err := time.Parse(time.RFC3339Nano, fields[fieldStartTime])
	if err != nil {
		return nil, errors.Wrap(streams.ErrInvalidRecord, err, "parse start time")
	}
	width, err := strconv.Atoi(fields[fieldWidth])
	if err != nil {
		return nil, errors.Wrap(streams.ErrInvalidRecord, err, "parse width")
	}
	height, err := strconv.Atoi(fields[fieldHeight])
	if err != nil {
		return nil, errors.Wrap(streams.ErrInvalidRecord, err, "parse height")
	}

	return &streams.Stream{
		ID:          fields[fieldID],
		Name:        fields[fieldName],
		Description: fields[fieldDescription],
		StartTime:   startTime,
		Width:       width,
		Height:      height,
	}, nil
}
