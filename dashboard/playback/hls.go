package playback

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
	"github.com/livepeer/m3u8"

	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/internal/retry"
)

const (
	ErrFetchFailed     errors.Code = "fetch failed"
	ErrInvalidPlaylist errors.Code = "invalid playlist"
)

// HLSFactory creates sessions that follow a media playlist over HTTP.
type HLSFactory struct {
	cfg    *Config
	client *resty.Client
	clock  clockwork.Clock
	logger *log.Logger
}

func NewHLSFactory(cfg *Config, clock clockwork.Clock, logger *log.Logger) *HLSFactory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HLSFactory{
		cfg:    cfg,
		client: resty.New().SetTimeout(cfg.RequestTimeout),
		clock:  clock,
		logger: logger,
	}
}

func (f *HLSFactory) New(manifestURL string, surface Surface, onError func(error)) Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &hlsSession{
		manifestURL: manifestURL,
		client:      f.client,
		clock:       f.clock,
		minPoll:     f.cfg.MinPollInterval,
		retry: retry.New(f.logger, f.cfg.InitialBackoff, f.cfg.MaxBackoff, 0,
			retry.WithMaxRetries(f.cfg.MaxRetries)),
		surface: surface,
		onError: onError,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  f.logger,
	}
}

type hlsSession struct {
	manifestURL string
	client      *resty.Client
	clock       clockwork.Clock
	minPoll     time.Duration
	retry       retry.Retry
	surface     Surface
	onError     func(error)

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
	// next media sequence number to append
	nextSeq uint64
	logger  *log.Logger
}

func (s *hlsSession) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
	})
}

func (s *hlsSession) Destroy() {
	s.cancel()
	if s.started.Load() {
		<-s.done
	}
}

func (s *hlsSession) run() {
	defer close(s.done)

	base, err := url.Parse(s.manifestURL)
	if err != nil {
		s.fail(errors.Wrap(ErrInvalidPlaylist, err, "parse manifest url"))
		return
	}

	for {
		playlist, err := s.fetchPlaylist()
		if err != nil {
			s.fail(err)
			return
		}

		if err := s.appendNew(base, playlist); err != nil {
			s.fail(err)
			return
		}

		if !playlist.Live {
			s.logger.Debug("Playlist ended",
				log.String("url", s.manifestURL),
				log.Int64("segments", int64(s.nextSeq)))
			return
		}

		wait := s.pollInterval(playlist)
		s.logger.Debug("Playlist still live",
			log.String("url", s.manifestURL),
			log.Float64("targetDuration", playlist.TargetDuration),
			log.String("nextPoll", wait.String()))

		select {
		case <-s.ctx.Done():
			return
		case <-s.clock.After(wait):
		}
	}
}

func (s *hlsSession) appendNew(base *url.URL, playlist *m3u8.MediaPlaylist) error {
	for i, seg := range playlist.Segments {
		if seg == nil {
			break
		}
		seq := playlist.SeqNo + uint64(i)
		if seq < s.nextSeq {
			continue
		}

		ref, err := url.Parse(seg.URI)
		if err != nil {
			return errors.Wrapf(ErrInvalidPlaylist, err, "segment uri %q", seg.URI)
		}
		data, err := s.get(base.ResolveReference(ref).String())
		if err != nil {
			return err
		}
		if err := s.surface.Append(data); err != nil {
			return err
		}

		segmentsFetched.Add(s.ctx, 1)
		segmentFetchBytes.Add(s.ctx, int64(len(data)))
		s.nextSeq = seq + 1
	}
	return nil
}

func (s *hlsSession) fetchPlaylist() (*m3u8.MediaPlaylist, error) {
	data, err := s.get(s.manifestURL)
	if err != nil {
		return nil, err
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), true)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPlaylist, err, "decode playlist")
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if listType != m3u8.MEDIA || !ok {
		return nil, errors.New(ErrInvalidPlaylist, "not a media playlist")
	}
	return media, nil
}

func (s *hlsSession) get(target string) ([]byte, error) {
	var body []byte
	err := s.retry.Do(s.ctx, func() error {
		resp, err := s.client.R().
			SetContext(s.ctx).
			Get(target)
		if err != nil {
			if s.ctx.Err() != nil {
				return retry.Permanent(s.ctx.Err())
			}
			return errors.Wrapf(ErrFetchFailed, err, "GET %s", target)
		}
		if resp.IsError() {
			err := errors.Newf(ErrFetchFailed, "GET %s: %s", target, resp.Status())
			if retryable(resp.StatusCode()) {
				return err
			}
			return retry.Permanent(err)
		}
		body = resp.Body()
		return nil
	})
	return body, err
}

func (s *hlsSession) pollInterval(playlist *m3u8.MediaPlaylist) time.Duration {
	d := time.Duration(playlist.TargetDuration * float64(time.Second))
	return max(d, s.minPoll)
}

// fail reports err unless the session is being destroyed.
func (s *hlsSession) fail(err error) {
	if s.ctx.Err() != nil {
		return
	}
	s.logger.Warn("Session failed",
		log.String("url", s.manifestURL),
		log.Error(err))
	if s.onError != nil {
		s.onError(err)
	}
}

func retryable(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}
