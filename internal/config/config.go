// Package config provides environment helpers for go-tattoo commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the host programs.
const (
	DefaultPort     = "8090"
	DefaultCamera   = 0
	DefaultLogLevel = "info"
)

// Environment variable names.
const (
	EnvPort     = "TATTOO_PORT"
	EnvCamera   = "TATTOO_CAMERA"
	EnvOverlay  = "TATTOO_OVERLAY"
	EnvTuning   = "TATTOO_TUNING"
	EnvLogLevel = "LOG_LEVEL"
)

// String returns the env var value or the fallback when unset or empty.
func String(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Int returns the env var parsed as an int, or the fallback when unset or
// not a number.
func Int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Port returns the preview server port from TATTOO_PORT.
func Port() string {
	return String(EnvPort, DefaultPort)
}

// CameraDevice returns the capture device index from TATTOO_CAMERA.
func CameraDevice() int {
	return Int(EnvCamera, DefaultCamera)
}

// OverlayPath returns the startup overlay image path from TATTOO_OVERLAY.
func OverlayPath() string {
	return os.Getenv(EnvOverlay)
}

// TuningPath returns the JSON tuning file path from TATTOO_TUNING.
func TuningPath() string {
	return os.Getenv(EnvTuning)
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel() string {
	return String(EnvLogLevel, DefaultLogLevel)
}
