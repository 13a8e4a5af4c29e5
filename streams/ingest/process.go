package ingest

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"regexp"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
	"github.com/imtaco/stream-dashboard/streams"
)

var segmentOpenRegex = regexp.MustCompile(`Opening '(?:.*/)?(\d+)\.ts' for writing`)

// process tracks one encoder run for one upload.
type process struct {
	streamID  string
	dir       string
	startedAt time.Time
	cmd       *exec.Cmd
	body      io.Reader

	recorded atomic.Bool

	stopCh    chan struct{}
	stopOnce  sync.Once
	abortCh   chan struct{}
	abortOnce sync.Once
	exited    chan struct{}
	exitOnce  sync.Once

	clock            clockwork.Clock
	forceKillTimeout time.Duration
	logger           *log.Logger
}

// requestStop ends the ingest on behalf of a caller (delete, shutdown).
// The outcome is reported as stopped, not failed, and nothing is cleaned up.
func (p *process) requestStop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.closeBody()
	})
}

func (p *process) stopping() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

// abort ends the ingest because of an internal failure.
func (p *process) abort() {
	p.abortOnce.Do(func() {
		close(p.abortCh)
		p.closeBody()
	})
}

func (p *process) markExited() {
	p.exitOnce.Do(func() { close(p.exited) })
}

func (p *process) closeBody() {
	if c, ok := p.body.(io.Closer); ok {
		if err := c.Close(); err != nil {
			p.logger.Debug("Close upload body", log.String("streamId", p.streamID), log.Error(err))
		}
	}
}

// watch terminates the encoder once a stop or abort is requested.
func (p *process) watch() {
	select {
	case <-p.exited:
		return
	case <-p.stopCh:
	case <-p.abortCh:
	}
	p.terminate()
}

// terminate sends SIGTERM and force kills the encoder if it has not exited
// within forceKillTimeout.
func (p *process) terminate() {
	proc := p.cmd.Process
	if proc == nil {
		return
	}

	p.logger.Info("Stopping FFmpeg process",
		log.String("streamId", p.streamID),
		log.Int("pid", proc.Pid))

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		p.logger.Warn("Failed to send SIGTERM to FFmpeg process",
			log.String("streamId", p.streamID),
			log.Error(err))
	}

	timer := p.clock.AfterFunc(p.forceKillTimeout, func() {
		p.logger.Info("Force killing FFmpeg", log.String("streamId", p.streamID))
		if err := proc.Kill(); err != nil {
			p.logger.Error("Failed to force kill FFmpeg process",
				log.String("streamId", p.streamID),
				log.Error(err))
		}
	})
	go func() {
		<-p.exited
		timer.Stop()
	}()
}

// pump copies the upload body into the encoder. A body error after the first
// segment ends the stream normally; before it, the ingest fails.
func (p *process) pump(ctx context.Context, stdin io.WriteCloser) error {
	n, copyErr := io.Copy(stdin, p.body)
	bytesIngested.Add(ctx, n)

	if err := stdin.Close(); err != nil {
		p.logger.Debug("Close encoder stdin", log.String("streamId", p.streamID), log.Error(err))
	}

	if copyErr == nil || p.stopping() {
		return nil
	}
	if p.recorded.Load() {
		p.logger.Info("Upload ended early, finishing stream",
			log.String("streamId", p.streamID),
			log.Int64("bytes", n),
			log.Error(copyErr))
		return nil
	}

	p.abort()
	return errors.Wrap(streams.ErrIngestFailed, copyErr, "pipe upload into encoder")
}

// scanStderr watches encoder output and calls onFirstSegment once, when the
// first HLS segment is opened.
func (p *process) scanStderr(stderr io.Reader, onFirstSegment func() error) error {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var firstErr error
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		matches := segmentOpenRegex.FindStringSubmatch(line)
		if matches == nil {
			p.logger.Debug("FFmpeg stderr", log.String("streamId", p.streamID), log.String("output", line))
			continue
		}

		p.logger.Debug("HLS segment opened",
			log.String("streamId", p.streamID),
			log.String("segment", matches[1]))

		if p.recorded.Load() || firstErr != nil {
			continue
		}
		// keep draining after a failure so the encoder never blocks on a full pipe
		if err := onFirstSegment(); err != nil {
			firstErr = err
			p.abort()
		}
	}
	return firstErr
}

func (p *process) drainStdout(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			p.logger.Debug("FFmpeg stdout", log.String("streamId", p.streamID), log.String("output", line))
		}
	}
}
