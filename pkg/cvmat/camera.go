package cvmat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
	"gocv.io/x/gocv"
)

// ErrCameraClosed is returned by Next after Close.
var ErrCameraClosed = errors.New("cvmat: camera closed")

// CameraConfig holds capture settings.
type CameraConfig struct {
	Device int
	Width  int // requested capture width, 0 keeps the driver default
	Height int
}

// DefaultCameraConfig returns 640x480 on the first device.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{Device: 0, Width: 640, Height: 480}
}

// Camera reads BGR frames from a capture device.
type Camera struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	frame  gocv.Mat
	closed bool
}

// OpenCamera opens the configured device.
func OpenCamera(cfg CameraConfig) (*Camera, error) {
	vc, err := gocv.VideoCaptureDevice(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("cvmat: open camera %d: %w", cfg.Device, err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	return &Camera{cap: vc, frame: gocv.NewMat()}, nil
}

// Next grabs a frame. The returned buffer is a view over the camera's own
// Mat and is overwritten by the following call.
func (c *Camera) Next(ctx context.Context) (*pixbuf.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCameraClosed
	}
	if !c.cap.Read(&c.frame) {
		return nil, errors.New("cvmat: camera read failed")
	}
	if c.frame.Empty() {
		return nil, ErrEmptyMat
	}
	layout, ok := DefaultLayout(c.frame.Channels())
	if !ok || !layout.IsColor() {
		return nil, fmt.Errorf("cvmat: camera produced %d-channel frames", c.frame.Channels())
	}
	return View(&c.frame, layout)
}

// Close releases the device. It is safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.frame.Close()
	return c.cap.Close()
}
