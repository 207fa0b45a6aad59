// Package tuning holds the runtime-adjustable compositor parameters behind
// the UI sliders. The pipeline itself clamps whatever it is given; this
// package is the stricter front door that rejects nonsense from users and
// config files before it reaches a frame.
package tuning

import (
	"fmt"

	"github.com/teslashibe/go-tattoo/pkg/pipeline"
	"github.com/teslashibe/go-tattoo/pkg/segment"
)

// Validate checks that p is within slider range. Returns a list of problems,
// or nil if valid.
func Validate(p pipeline.Params) []string {
	var issues []string
	check := func(name string, v int) {
		if v < segment.MinSensitivity || v > segment.MaxSensitivity {
			issues = append(issues, fmt.Sprintf("%s must be between %d and %d, got %d",
				name, segment.MinSensitivity, segment.MaxSensitivity, v))
		}
	}
	check("hue", p.Sensitivity.Hue)
	check("sat", p.Sensitivity.Sat)
	check("val", p.Sensitivity.Val)
	return issues
}

// Capabilities describes the slider ranges for UI clients.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"min_sensitivity": segment.MinSensitivity,
		"max_sensitivity": segment.MaxSensitivity,
		"modes":           []string{"binary", "colorized"},
		"presets":         PresetNames(),
	}
}
