package tuning

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teslashibe/go-tattoo/pkg/pipeline"
)

// Manager holds the current parameters and handles updates from the UI.
// It is safe for concurrent use; the frame loop reads with Params while HTTP
// handlers write.
type Manager struct {
	params pipeline.Params
	mu     sync.RWMutex

	// OnChange is called after every accepted update.
	OnChange func(p pipeline.Params)
}

// NewManager creates a manager holding the legacy defaults.
func NewManager() *Manager {
	return &Manager{params: pipeline.DefaultParams()}
}

// Params returns the current parameters.
func (m *Manager) Params() pipeline.Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}

// SetParams replaces the parameters after validation.
func (m *Manager) SetParams(p pipeline.Params) error {
	if issues := Validate(p); len(issues) > 0 {
		return fmt.Errorf("validation failed: %v", issues)
	}

	m.mu.Lock()
	m.params = p
	callback := m.OnChange
	m.mu.Unlock()

	if callback != nil {
		callback(p)
	}
	return nil
}

// UpdateParams applies a partial update. Recognised keys are "preset",
// "colorized", "hue", "sat" and "val"; unknown keys are ignored. A preset is
// applied first so the other keys can override it.
func (m *Manager) UpdateParams(update map[string]interface{}) error {
	p := m.Params()

	if name, ok := update["preset"].(string); ok {
		var found bool
		if p, found = ApplyPreset(p, name); !found {
			return fmt.Errorf("unknown preset: %s", name)
		}
	}

	for key, value := range update {
		switch key {
		case "colorized":
			if v, ok := value.(bool); ok {
				p.Colorized = v
			}
		case "hue":
			if v, ok := toInt(value); ok {
				p.Sensitivity.Hue = v
			}
		case "sat":
			if v, ok := toInt(value); ok {
				p.Sensitivity.Sat = v
			}
		case "val":
			if v, ok := toInt(value); ok {
				p.Sensitivity.Val = v
			}
		}
	}

	return m.SetParams(p)
}

// ParamsJSON returns the current parameters as a map for JSON responses.
func (m *Manager) ParamsJSON() map[string]interface{} {
	p := m.Params()
	return map[string]interface{}{
		"colorized": p.Colorized,
		"mode":      p.Mode().String(),
		"hue":       p.Sensitivity.Hue,
		"sat":       p.Sensitivity.Sat,
		"val":       p.Sensitivity.Val,
	}
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
