package ingest

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	intotel "github.com/imtaco/stream-dashboard/internal/otel"
	isync "github.com/imtaco/stream-dashboard/internal/sync"
	"github.com/imtaco/stream-dashboard/streams"
)

// managerImpl runs one ffmpeg process per upload and registers the stream
// once the first HLS segment exists.
type managerImpl struct {
	cfg       *Config
	store     streams.StreamStore
	processes *isync.Map[string, *process]
	clock     clockwork.Clock
	closed    atomic.Bool
	wg        sync.WaitGroup
	logger    *log.Logger
	tracer    trace.Tracer

	newID func() string
	// SpawnFFmpeg builds the encoder command (can be replaced for testing)
	SpawnFFmpeg func(ffmpegPath, dir string, args []string) *exec.Cmd
}

func NewManager(
	cfg *Config,
	store streams.StreamStore,
	clock clockwork.Clock,
	logger *log.Logger,
) (streams.Ingester, error) {
	if err := os.MkdirAll(cfg.ResourceDir, 0o755); err != nil {
		return nil, errors.Wrapf(streams.ErrIngestFailed, err, "create resource dir %s", cfg.ResourceDir)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &managerImpl{
		cfg:         cfg,
		store:       store,
		processes:   isync.NewMap[string, *process](),
		clock:       clock,
		logger:      logger,
		tracer:      otel.Tracer("streams.ingest"),
		newID:       uuid.NewString,
		SpawnFFmpeg: spawnFFmpeg,
	}, nil
}

func (m *managerImpl) Ingest(ctx context.Context, body io.Reader, opts streams.IngestOptions) (string, error) {
	ctx, span := m.tracer.Start(ctx, "ingest.Ingest",
		trace.WithAttributes(
			attribute.Int("video.width", opts.Width),
			attribute.Int("video.height", opts.Height),
		))
	defer span.End()

	// stream.id is high-cardinality, keep it off metrics
	attrs := metric.WithAttributes()

	if m.closed.Load() {
		return "", errors.New(streams.ErrIngestStopped, "ingest manager is closed")
	}
	streamID := m.newID()
	span.SetAttributes(attribute.String("stream.id", streamID))

	dir := filepath.Join(m.cfg.ResourceDir, streamID)
	p := &process{
		streamID:         streamID,
		dir:              dir,
		startedAt:        m.clock.Now(),
		cmd:              m.SpawnFFmpeg(m.cfg.FFmpegPath, dir, buildArgs(m.cfg, streamID)),
		body:             body,
		stopCh:           make(chan struct{}),
		abortCh:          make(chan struct{}),
		exited:           make(chan struct{}),
		clock:            m.clock,
		forceKillTimeout: m.cfg.ForceKillTimeout,
		logger:           m.logger,
	}

	// capacity check and registration happen under one lock
	running := 0
	m.processes.WithLock(func(view isync.View[string, *process]) {
		running = view.Len()
		if m.cfg.MaxConcurrent > 0 && running >= m.cfg.MaxConcurrent {
			return
		}
		view.Set(streamID, p)
		running = -1
	})
	if running >= 0 {
		err := errors.Newf(streams.ErrTooManyIngests, "%d ingests already running", running)
		intotel.RecordError(span, err)
		return "", err
	}

	m.wg.Add(1)
	defer func() {
		p.markExited()
		m.processes.Delete(streamID)
		m.wg.Done()
	}()

	if err := os.Mkdir(dir, 0o755); err != nil {
		err = errors.Wrapf(streams.ErrIngestFailed, err, "create stream dir %s", dir)
		intotel.RecordError(span, err)
		ingestsFailed.Add(ctx, 1, attrs)
		return "", err
	}

	m.logger.Info("Starting ingest",
		log.String("streamId", streamID),
		log.String("name", opts.Name),
		log.Int("width", opts.Width),
		log.Int("height", opts.Height))

	err := m.run(ctx, p, opts)

	if p.stopping() {
		ingestsStopped.Add(ctx, 1, attrs)
		m.logger.Info("Ingest stopped", log.String("streamId", streamID))
		return streamID, errors.Newf(streams.ErrIngestStopped, "stream %s stopped", streamID)
	}
	if err == nil && !p.recorded.Load() {
		err = errors.New(streams.ErrIngestFailed, "encoder produced no segments")
	}
	if err != nil {
		intotel.RecordError(span, err)
		ingestsFailed.Add(ctx, 1, attrs)
		m.logger.Error("Ingest failed", log.String("streamId", streamID), log.Error(err))
		m.cleanup(context.WithoutCancel(ctx), p)
		return "", err
	}

	m.logger.Info("Ingest finished", log.String("streamId", streamID))
	return streamID, nil
}

func (m *managerImpl) run(ctx context.Context, p *process, opts streams.IngestOptions) error {
	cmd := p.cmd

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(streams.ErrIngestFailed, err, "encoder stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(streams.ErrIngestFailed, err, "encoder stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(streams.ErrIngestFailed, err, "encoder stderr")
	}

	if p.stopping() {
		return nil
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(streams.ErrIngestFailed, err, "start encoder")
	}

	attrs := metric.WithAttributes()
	ingestsStarted.Add(ctx, 1, attrs)
	activeIngests.Add(ctx, 1, attrs)
	defer activeIngests.Add(ctx, -1, attrs)

	go p.watch()

	var g errgroup.Group
	g.Go(func() error {
		return p.pump(ctx, stdin)
	})
	g.Go(func() error {
		return p.scanStderr(stderr, func() error {
			return m.record(ctx, p, opts)
		})
	})
	g.Go(func() error {
		p.drainStdout(stdout)
		return nil
	})

	ioErr := g.Wait()
	waitErr := cmd.Wait()
	p.markExited()

	if ioErr != nil {
		return ioErr
	}
	if waitErr != nil {
		return errors.Wrap(streams.ErrIngestFailed, waitErr, "encoder exited")
	}
	return nil
}

func (m *managerImpl) record(ctx context.Context, p *process, opts streams.IngestOptions) error {
	stream := &streams.Stream{
		ID:          p.streamID,
		Name:        opts.Name,
		Description: opts.Description,
		StartTime:   p.startedAt,
		Width:       opts.Width,
		Height:      opts.Height,
	}
	if err := m.store.Create(ctx, stream); err != nil {
		return err
	}
	p.recorded.Store(true)

	firstSegmentLag.Record(ctx, m.clock.Since(p.startedAt).Milliseconds())
	m.logger.Info("First segment written, stream is live", log.String("streamId", p.streamID))
	return nil
}

func (m *managerImpl) cleanup(ctx context.Context, p *process) {
	if p.recorded.Load() {
		if _, err := m.store.Delete(ctx, p.streamID); err != nil {
			m.logger.Error("Failed to remove stream record",
				log.String("streamId", p.streamID),
				log.Error(err))
		}
	}
	if err := os.RemoveAll(p.dir); err != nil {
		m.logger.Error("Failed to remove stream dir",
			log.String("streamId", p.streamID),
			log.Error(err))
	}
}

func (m *managerImpl) Stop(ctx context.Context, streamID string) (bool, error) {
	p, ok := m.processes.Load(streamID)
	if !ok {
		return false, nil
	}

	p.requestStop()
	select {
	case <-p.exited:
		return true, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// Close stops every running ingest and waits for them to return.
func (m *managerImpl) Close(ctx context.Context) error {
	m.closed.Store(true)

	count := 0
	m.processes.Range(func(_ string, p *process) bool {
		p.requestStop()
		count++
		return true
	})
	m.logger.Info("Stopping ingests", log.Int("count", count))

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
