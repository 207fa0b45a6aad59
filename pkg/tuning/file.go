package tuning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teslashibe/go-tattoo/pkg/composite"
	"github.com/teslashibe/go-tattoo/pkg/pipeline"
	"github.com/teslashibe/go-tattoo/pkg/threshold"
)

// maxFileSize bounds tuning files.
const maxFileSize = 1 * 1024 * 1024

// File is the on-disk tuning document. Every field is optional; omitted
// fields keep whatever the caller already has, so partial files are safe.
// The per-frame keys match the PUT /api/params body.
type File struct {
	// Per-frame parameters
	Preset    *string `json:"preset,omitempty"`
	Colorized *bool   `json:"colorized,omitempty"`
	Hue       *int    `json:"hue,omitempty"`
	Sat       *int    `json:"sat,omitempty"`
	Val       *int    `json:"val,omitempty"`

	// Fixed pipeline configuration, read once at startup
	BlockSize     *int     `json:"block_size,omitempty"`
	Offset        *int     `json:"offset,omitempty"`
	Method        *string  `json:"method,omitempty"` // "mean" or "gaussian"
	Anchor        *string  `json:"anchor,omitempty"` // "center", "top-left" or "centroid"
	Fit           *string  `json:"fit,omitempty"`    // "stretch", "contain" or "native"
	Scale         *float64 `json:"scale,omitempty"`
	Interpolation *string  `json:"interpolation,omitempty"`
	Opacity       *int     `json:"opacity,omitempty"`
	FrameBudget   *string  `json:"frame_budget,omitempty"` // duration string like "33ms"
}

// LoadFile reads a tuning file. The path must have a .json extension and the
// file must be under 1MB.
func LoadFile(path string) (*File, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("tuning file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("tuning file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	return f, nil
}

// ApplyParams overlays the per-frame fields onto p.
func (f *File) ApplyParams(p pipeline.Params) (pipeline.Params, error) {
	if f.Preset != nil {
		var ok bool
		if p, ok = ApplyPreset(p, *f.Preset); !ok {
			return p, fmt.Errorf("unknown preset: %s", *f.Preset)
		}
	}
	if f.Colorized != nil {
		p.Colorized = *f.Colorized
	}
	if f.Hue != nil {
		p.Sensitivity.Hue = *f.Hue
	}
	if f.Sat != nil {
		p.Sensitivity.Sat = *f.Sat
	}
	if f.Val != nil {
		p.Sensitivity.Val = *f.Val
	}
	if issues := Validate(p); len(issues) > 0 {
		return p, fmt.Errorf("invalid tuning file: %v", issues)
	}
	return p, nil
}

// ApplyConfig overlays the fixed configuration fields onto cfg.
func (f *File) ApplyConfig(cfg *pipeline.Config) error {
	if f.BlockSize != nil {
		cfg.Threshold.BlockSize = *f.BlockSize
	}
	if f.Offset != nil {
		cfg.Threshold.Offset = *f.Offset
	}
	if f.Method != nil {
		m, err := threshold.ParseMethod(*f.Method)
		if err != nil {
			return err
		}
		cfg.Threshold.Method = m
	}
	if err := cfg.Threshold.Validate(); err != nil {
		return err
	}

	if f.Anchor != nil {
		a, err := composite.ParseAnchor(*f.Anchor)
		if err != nil {
			return err
		}
		cfg.Composite.Anchor = a
	}
	if f.Fit != nil {
		fit, err := composite.ParseFit(*f.Fit)
		if err != nil {
			return err
		}
		cfg.Composite.Fit = fit
	}
	if f.Scale != nil {
		if *f.Scale <= 0 {
			return fmt.Errorf("scale must be positive, got %v", *f.Scale)
		}
		cfg.Composite.Scale = *f.Scale
	}
	if f.Interpolation != nil {
		i, err := composite.ParseInterpolation(*f.Interpolation)
		if err != nil {
			return err
		}
		cfg.Composite.Interpolation = i
	}
	if f.Opacity != nil {
		if *f.Opacity < 0 || *f.Opacity > 255 {
			return fmt.Errorf("opacity must be between 0 and 255, got %d", *f.Opacity)
		}
		cfg.Composite.Opacity = uint8(*f.Opacity)
	}
	if f.FrameBudget != nil && *f.FrameBudget != "" {
		d, err := time.ParseDuration(*f.FrameBudget)
		if err != nil {
			return fmt.Errorf("invalid frame_budget '%s': %w", *f.FrameBudget, err)
		}
		cfg.FrameBudget = d
	}
	return nil
}
