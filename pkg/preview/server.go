// Package preview serves the tuning UI backend: parameter and overlay
// endpoints plus live JPEG preview frames over websocket.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-tattoo/internal/log"
	"github.com/teslashibe/go-tattoo/pkg/hub"
	"github.com/teslashibe/go-tattoo/pkg/pipeline"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
	"github.com/teslashibe/go-tattoo/pkg/session"
	"github.com/teslashibe/go-tattoo/pkg/tuning"
)

// Target is the frame loop the server controls.
type Target interface {
	SetOverlay(o *pixbuf.Buffer) error
	Stats() session.Stats
}

// Config holds server settings.
type Config struct {
	Port string

	// Quality is the JPEG quality of preview frames (1-100).
	Quality int

	// FrameEvery sends one preview frame out of every FrameEvery processed.
	FrameEvery int

	// MaxOverlayBytes bounds uploaded overlay files.
	MaxOverlayBytes int

	// MaxOverlayPixels bounds the decoded size of an uploaded overlay.
	MaxOverlayPixels int
}

// DefaultConfig returns defaults for a local preview.
func DefaultConfig() Config {
	return Config{
		Port:             "8090",
		Quality:          75,
		FrameEvery:       1,
		MaxOverlayBytes:  8 * 1024 * 1024,
		MaxOverlayPixels: 4096 * 4096,
	}
}

// Server is the preview HTTP server.
type Server struct {
	app    *fiber.App
	cfg    Config
	log    *slog.Logger
	tuning *tuning.Manager
	target Target

	frameHub  *hub.Hub
	statusHub *hub.Hub

	seen    atomic.Uint64
	scratch *pixbuf.Buffer // sink goroutine only
	buf     bytes.Buffer   // sink goroutine only
}

// NewServer wires the routes. mgr supplies and stores parameters; target
// receives uploaded overlays.
func NewServer(cfg Config, mgr *tuning.Manager, target Target) *Server {
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = DefaultConfig().Quality
	}
	if cfg.FrameEvery < 1 {
		cfg.FrameEvery = 1
	}
	if cfg.MaxOverlayBytes <= 0 {
		cfg.MaxOverlayBytes = DefaultConfig().MaxOverlayBytes
	}
	if cfg.MaxOverlayPixels <= 0 {
		cfg.MaxOverlayPixels = DefaultConfig().MaxOverlayPixels
	}

	s := &Server{
		cfg:       cfg,
		log:       log.Component("preview"),
		tuning:    mgr,
		target:    target,
		frameHub:  hub.New("frames"),
		statusHub: hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Tattoo Lens",
		DisableStartupMessage: true,
		BodyLimit:             cfg.MaxOverlayBytes + 64*1024,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/params", s.handleGetParams)
	api.Put("/params", s.handlePutParams)
	api.Get("/presets", s.handlePresets)
	api.Post("/overlay", s.handleOverlay)
	api.Get("/stats", s.handleStats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("preview: listen: %w", err)
	}
	s.log.Info("preview listening", "url", "http://localhost:"+s.cfg.Port)
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.frameHub.Run(ctx)
	go s.statusHub.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.log.Warn("shutdown failed", "error", err)
		}
	}()
	return s.app.Listener(ln)
}

// Sink returns a session sink that encodes frames for websocket clients.
// Encoding is skipped while nobody is watching.
func (s *Server) Sink() session.Sink {
	return func(frame *pixbuf.Buffer, rep pipeline.Report) {
		n := s.seen.Add(1)
		if s.frameHub.ClientCount() == 0 || n%uint64(s.cfg.FrameEvery) != 0 {
			return
		}
		data, err := s.encode(frame)
		if err != nil {
			s.log.Debug("preview encode failed", "error", err)
			return
		}
		s.frameHub.BroadcastFrame(data)
	}
}

// ParamsChanged broadcasts p to status clients. Hook it to
// tuning.Manager.OnChange.
func (s *Server) ParamsChanged(p pipeline.Params) {
	if err := s.statusHub.BroadcastJSON(fiber.Map{"type": "params", "params": p}); err != nil {
		s.log.Debug("status broadcast failed", "error", err)
	}
}

// encode converts frame to RGBA in reusable scratch and JPEG-encodes it.
// The returned slice is owned by the caller.
func (s *Server) encode(frame *pixbuf.Buffer) ([]byte, error) {
	if s.scratch == nil || !s.scratch.SameSize(frame) {
		s.scratch = pixbuf.New(frame.Width, frame.Height, pixbuf.RGBA)
	}
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			r, g, b := frame.RGB(x, y)
			p := s.scratch.Pixel(x, y)
			p[0], p[1], p[2], p[3] = r, g, b, 255
		}
	}

	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, s.scratch.RGBAImage(), &jpeg.Options{Quality: s.cfg.Quality}); err != nil {
		return nil, err
	}
	return bytes.Clone(s.buf.Bytes()), nil
}
