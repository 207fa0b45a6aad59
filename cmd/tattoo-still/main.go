// tattoo-still composites an overlay onto a single image file. It is the
// offline counterpart of tattoo-lens, handy for tuning against saved frames.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-tattoo/internal/config"
	"github.com/teslashibe/go-tattoo/internal/log"
	"github.com/teslashibe/go-tattoo/pkg/cvmat"
	"github.com/teslashibe/go-tattoo/pkg/pipeline"
	"github.com/teslashibe/go-tattoo/pkg/tuning"
)

type options struct {
	frame     string
	overlay   string
	out       string
	tuning    string
	preset    string
	colorized bool
	hue       int
	sat       int
	val       int
	outline   bool
	logLevel  string
}

func main() {
	opts := parseFlags()
	log.Init(opts.logLevel)

	if err := run(opts); err != nil {
		log.Error("tattoo-still failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	opts := options{}
	legacy := pipeline.DefaultParams().Sensitivity

	flag.StringVar(&opts.frame, "frame", "", "Input image (required)")
	flag.StringVar(&opts.overlay, "overlay", config.OverlayPath(), "Overlay image (env "+config.EnvOverlay+")")
	flag.StringVar(&opts.out, "out", "out.png", "Output image; format follows the extension")
	flag.StringVar(&opts.tuning, "tuning", config.TuningPath(), "Tuning JSON file (env "+config.EnvTuning+")")
	flag.StringVar(&opts.preset, "preset", "", "Sensitivity preset: legacy, wide, strict, everything, off")
	flag.BoolVar(&opts.colorized, "colorized", false, "Composite overlay colors instead of flat ink")
	flag.IntVar(&opts.hue, "hue", legacy.Hue, "Hue sensitivity 0-255")
	flag.IntVar(&opts.sat, "sat", legacy.Sat, "Saturation sensitivity 0-255")
	flag.IntVar(&opts.val, "val", legacy.Val, "Value sensitivity 0-255")
	flag.BoolVar(&opts.outline, "outline", false, "Draw the largest eligible region")
	flag.StringVar(&opts.logLevel, "log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	flag.Parse()
	return opts
}

func run(opts options) error {
	if opts.frame == "" || opts.overlay == "" {
		flag.Usage()
		return fmt.Errorf("-frame and -overlay are required")
	}

	cfg := pipeline.DefaultConfig()
	params := pipeline.DefaultParams().
		WithMode(opts.colorized).
		WithSensitivity(opts.hue, opts.sat, opts.val)

	if opts.tuning != "" {
		f, err := tuning.LoadFile(opts.tuning)
		if err != nil {
			return err
		}
		if err := f.ApplyConfig(&cfg); err != nil {
			return err
		}
		if params, err = f.ApplyParams(params); err != nil {
			return err
		}
	}
	if opts.preset != "" {
		var ok bool
		if params, ok = tuning.ApplyPreset(params, opts.preset); !ok {
			return fmt.Errorf("unknown preset: %s", opts.preset)
		}
	}

	var rep pipeline.Report
	cfg.OnFrame = func(r pipeline.Report) { rep = r }
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	frame, err := cvmat.Load(opts.frame)
	if err != nil {
		return err
	}
	overlay, err := cvmat.Load(opts.overlay)
	if err != nil {
		return err
	}
	if err := p.SetOverlay(overlay); err != nil {
		return err
	}
	if err := p.Process(frame, params); err != nil {
		return err
	}

	if opts.outline {
		region, ok, err := cvmat.LargestRegion(p.Mask())
		if err != nil {
			return err
		}
		if ok {
			if err := cvmat.Annotate(frame, region); err != nil {
				return err
			}
			log.Debug("largest region", "area", region.Area, "bounds", region.Bounds, "centroid", region.Centroid)
		}
	}

	if err := cvmat.Save(opts.out, frame); err != nil {
		return err
	}
	log.Info("wrote composite",
		"out", opts.out,
		"mode", rep.Mode,
		"sensitivity", rep.Sensitivity,
		"eligible", rep.Eligible,
		"written", rep.Written,
		"took", rep.Duration)
	return nil
}
