package tuning

import (
	"github.com/teslashibe/go-tattoo/pkg/pipeline"
	"github.com/teslashibe/go-tattoo/pkg/segment"
)

// Preset names for common slider positions
const (
	PresetLegacy     = "legacy"
	PresetWide       = "wide"
	PresetStrict     = "strict"
	PresetEverything = "everything"
	PresetOff        = "off"
)

// Presets returns all available sensitivity presets. Presets only carry
// sensitivities; applying one keeps the current mode.
func Presets() map[string]segment.Sensitivity {
	return map[string]segment.Sensitivity{
		PresetLegacy:     segment.LegacySensitivity,
		PresetWide:       {Hue: 60, Sat: 220, Val: 200},
		PresetStrict:     {Hue: 15, Sat: 120, Val: 90},
		PresetEverything: segment.Full(),
		PresetOff:        {},
	}
}

// PresetNames returns the preset names in display order.
func PresetNames() []string {
	return []string{
		PresetLegacy,
		PresetWide,
		PresetStrict,
		PresetEverything,
		PresetOff,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *segment.Sensitivity {
	if s, ok := Presets()[name]; ok {
		return &s
	}
	return nil
}

// ApplyPreset returns p with the named preset's sensitivities. ok is false
// for an unknown name.
func ApplyPreset(p pipeline.Params, name string) (pipeline.Params, bool) {
	s := GetPreset(name)
	if s == nil {
		return p, false
	}
	p.Sensitivity = *s
	return p, true
}
