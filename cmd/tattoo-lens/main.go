// tattoo-lens composites a tattoo overlay onto a live webcam feed and serves
// the tuning UI backend with a JPEG preview stream.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-tattoo/internal/config"
	"github.com/teslashibe/go-tattoo/internal/log"
	"github.com/teslashibe/go-tattoo/pkg/cvmat"
	"github.com/teslashibe/go-tattoo/pkg/pipeline"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
	"github.com/teslashibe/go-tattoo/pkg/preview"
	"github.com/teslashibe/go-tattoo/pkg/session"
	"github.com/teslashibe/go-tattoo/pkg/tuning"
	"golang.org/x/sync/errgroup"
)

type options struct {
	device   int
	port     string
	overlay  string
	tuning   string
	logLevel string
	width    int
	height   int
	quality  int
}

func main() {
	opts := parseFlags()
	log.Init(opts.logLevel)

	if err := run(opts); err != nil {
		log.Error("tattoo-lens failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	cam := cvmat.DefaultCameraConfig()
	opts := options{}

	flag.IntVar(&opts.device, "device", config.CameraDevice(), "Camera device index (env "+config.EnvCamera+")")
	flag.StringVar(&opts.port, "port", config.Port(), "Preview server port (env "+config.EnvPort+")")
	flag.StringVar(&opts.overlay, "overlay", config.OverlayPath(), "Overlay image path (env "+config.EnvOverlay+")")
	flag.StringVar(&opts.tuning, "tuning", config.TuningPath(), "Tuning JSON file (env "+config.EnvTuning+")")
	flag.StringVar(&opts.logLevel, "log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	flag.IntVar(&opts.width, "width", cam.Width, "Capture width")
	flag.IntVar(&opts.height, "height", cam.Height, "Capture height")
	flag.IntVar(&opts.quality, "quality", preview.DefaultConfig().Quality, "Preview JPEG quality")
	flag.Parse()
	return opts
}

func run(opts options) error {
	mgr := tuning.NewManager()
	scfg := session.DefaultConfig()

	if opts.tuning != "" {
		f, err := tuning.LoadFile(opts.tuning)
		if err != nil {
			return err
		}
		if err := f.ApplyConfig(&scfg.Pipeline); err != nil {
			return err
		}
		p, err := f.ApplyParams(mgr.Params())
		if err != nil {
			return err
		}
		if err := mgr.SetParams(p); err != nil {
			return err
		}
		log.Info("tuning loaded", "path", opts.tuning)
	}

	cam, err := cvmat.OpenCamera(cvmat.CameraConfig{Device: opts.device, Width: opts.width, Height: opts.height})
	if err != nil {
		return err
	}

	pcfg := preview.DefaultConfig()
	pcfg.Port = opts.port
	pcfg.Quality = opts.quality

	// The server needs the session and the session needs the server's sink;
	// sink is filled in before Run starts.
	var sink session.Sink
	scfg.Params = mgr.Params
	scfg.Sink = func(frame *pixbuf.Buffer, rep pipeline.Report) { sink(frame, rep) }
	sess, err := session.New(cam, scfg)
	if err != nil {
		cam.Close()
		return err
	}

	srv := preview.NewServer(pcfg, mgr, sess)
	sink = srv.Sink()
	mgr.OnChange = srv.ParamsChanged

	if opts.overlay != "" {
		o, err := cvmat.Load(opts.overlay)
		if err != nil {
			cam.Close()
			return err
		}
		if err := sess.SetOverlay(o); err != nil {
			cam.Close()
			return err
		}
	} else {
		log.Warn("no overlay set, frames pass through until one is uploaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("tattoo-lens starting", "session", sess.ID(), "device", opts.device, "port", opts.port)

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	g.Go(func() error {
		// The camera running dry ends the whole program.
		defer cancel()
		return sess.Run(ctx)
	})
	g.Go(func() error { return srv.Start(ctx) })
	return g.Wait()
}
