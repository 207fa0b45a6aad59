// Package session runs the frame loop: it pulls frames from a Source, runs
// the pipeline on them one at a time and hands the result to a Sink.
//
// The session is the only goroutine that touches the pipeline. Overlay
// changes from other goroutines are queued and swapped in between frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-tattoo/internal/log"
	"github.com/teslashibe/go-tattoo/pkg/pipeline"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
)

// Source produces frames. The returned buffer may be reused by the next call.
// io.EOF ends the session cleanly.
type Source interface {
	Next(ctx context.Context) (*pixbuf.Buffer, error)
	Close() error
}

// ParamsFunc returns the parameters for the next frame.
type ParamsFunc func() pipeline.Params

// Sink receives every frame after processing. rep is the zero Report when
// the frame passed through untouched because no overlay is set. The frame is
// only valid for the duration of the call.
type Sink func(frame *pixbuf.Buffer, rep pipeline.Report)

// Config configures a session.
type Config struct {
	Pipeline pipeline.Config

	// Params is consulted once per frame. Nil uses the legacy defaults.
	Params ParamsFunc

	// Sink may be nil.
	Sink Sink

	// MaxSourceErrors stops the session after that many consecutive source
	// errors. Zero means 30.
	MaxSourceErrors int

	Logger *slog.Logger
}

// DefaultConfig returns a session config with pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Pipeline:        pipeline.DefaultConfig(),
		MaxSourceErrors: 30,
	}
}

// Stats is a snapshot of session counters.
type Stats struct {
	ID          string          `json:"id"`
	Started     time.Time       `json:"started"`
	Frames      uint64          `json:"frames"`
	Passthrough uint64          `json:"passthrough"`
	Failures    uint64          `json:"failures"`
	OverBudget  uint64          `json:"over_budget"`
	LastError   string          `json:"last_error,omitempty"`
	Last        pipeline.Report `json:"last"`
}

// Session owns a pipeline and drives it from a source.
type Session struct {
	id   string
	src  Source
	pipe *pipeline.Pipeline
	cfg  Config
	log  *slog.Logger

	last pipeline.Report // written by the pipeline callback, loop goroutine only

	mu        sync.Mutex
	pending   *pixbuf.Buffer
	stats     Stats
	srcErrors int
}

// New creates a session reading from src.
func New(src Source, cfg Config) (*Session, error) {
	if src == nil {
		return nil, errors.New("session: nil source")
	}
	if cfg.Params == nil {
		cfg.Params = pipeline.DefaultParams
	}
	if cfg.MaxSourceErrors <= 0 {
		cfg.MaxSourceErrors = 30
	}

	id := uuid.New().String()
	logger := cfg.Logger
	if logger == nil {
		logger = log.Component("session")
	}
	logger = logger.With("session", id)

	s := &Session{
		id:  id,
		src: src,
		cfg: cfg,
		log: logger,
	}

	pcfg := cfg.Pipeline
	if pcfg.Logger == nil {
		pcfg.Logger = logger
	}
	user := pcfg.OnFrame
	pcfg.OnFrame = func(r pipeline.Report) {
		s.last = r
		if user != nil {
			user(r)
		}
	}

	p, err := pipeline.New(pcfg)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.pipe = p
	s.stats = Stats{ID: id, Started: time.Now()}
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// SetOverlay queues o to replace the overlay before the next frame. The
// buffer is validated immediately; the stencil is built on the loop
// goroutine. The caller must not modify o afterwards.
func (s *Session) SetOverlay(o *pixbuf.Buffer) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("session: overlay: %w", err)
	}
	s.mu.Lock()
	s.pending = o
	s.mu.Unlock()
	return nil
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run processes frames until ctx is cancelled, the source reports io.EOF or
// the source fails MaxSourceErrors times in a row. It closes the source on
// return. Cancellation and EOF return nil.
func (s *Session) Run(ctx context.Context) error {
	defer s.src.Close()

	s.log.Info("session started")
	defer func() {
		st := s.Stats()
		s.log.Info("session stopped", "frames", st.Frames, "failures", st.Failures)
	}()

	for {
		if err := s.Step(ctx); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Step processes a single frame. Pipeline failures are counted and logged
// but do not stop the session; only source errors are returned, and only
// once the consecutive error limit is reached.
func (s *Session) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.applyPending()

	frame, err := s.src.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return err
		}
		return s.sourceFailed(err)
	}

	s.mu.Lock()
	s.srcErrors = 0
	s.mu.Unlock()

	err = s.pipe.Process(frame, s.cfg.Params())
	switch {
	case errors.Is(err, pipeline.ErrNoOverlay):
		s.mu.Lock()
		s.stats.Passthrough++
		s.mu.Unlock()
		s.emit(frame, pipeline.Report{})
	case err != nil:
		s.log.Warn("frame failed", "error", err)
		s.mu.Lock()
		s.stats.Failures++
		s.stats.LastError = err.Error()
		s.mu.Unlock()
	default:
		rep := s.last
		s.mu.Lock()
		s.stats.Frames++
		s.stats.Last = rep
		if rep.OverBudget {
			s.stats.OverBudget++
		}
		s.mu.Unlock()
		s.emit(frame, rep)
	}
	return nil
}

func (s *Session) emit(frame *pixbuf.Buffer, rep pipeline.Report) {
	if s.cfg.Sink != nil {
		s.cfg.Sink(frame, rep)
	}
}

func (s *Session) applyPending() {
	s.mu.Lock()
	o := s.pending
	s.pending = nil
	s.mu.Unlock()
	if o == nil {
		return
	}
	if err := s.pipe.SetOverlay(o); err != nil {
		s.log.Warn("overlay rejected", "error", err)
		s.mu.Lock()
		s.stats.Failures++
		s.stats.LastError = err.Error()
		s.mu.Unlock()
		return
	}
	s.log.Info("overlay applied", "width", o.Width, "height", o.Height)
}

func (s *Session) sourceFailed(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.srcErrors++
	s.stats.Failures++
	s.stats.LastError = err.Error()
	if s.srcErrors >= s.cfg.MaxSourceErrors {
		return fmt.Errorf("session: source failed %d times: %w", s.srcErrors, err)
	}
	s.log.Debug("source error", "error", err, "consecutive", s.srcErrors)
	return nil
}
