package preview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	_ "image/jpeg" // overlay uploads
	_ "image/png"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-tattoo/pkg/hub"
	"github.com/teslashibe/go-tattoo/pkg/pixbuf"
	"github.com/teslashibe/go-tattoo/pkg/tuning"
)

// handleGetParams returns the current parameters
func (s *Server) handleGetParams(c *fiber.Ctx) error {
	return c.JSON(s.tuning.ParamsJSON())
}

// handlePutParams applies a partial parameter update
func (s *Server) handlePutParams(c *fiber.Ctx) error {
	var update map[string]interface{}
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON: " + err.Error(),
		})
	}
	if err := s.tuning.UpdateParams(update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.tuning.ParamsJSON())
}

// handlePresets lists the presets and slider ranges
func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets":      tuning.Presets(),
		"capabilities": tuning.Capabilities(),
	})
}

// handleOverlay decodes an uploaded PNG or JPEG and queues it as the new
// overlay. The swap happens before the next frame.
func (s *Server) handleOverlay(c *fiber.Ctx) error {
	fh, err := c.FormFile("overlay")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing overlay file",
		})
	}
	if fh.Size > int64(s.cfg.MaxOverlayBytes) {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("overlay too large: %d bytes (max %d)", fh.Size, s.cfg.MaxOverlayBytes),
		})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(s.cfg.MaxOverlayBytes)+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// Check dimensions from the header before decoding any pixels.
	ic, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": "overlay must be PNG or JPEG: " + err.Error(),
		})
	}
	if ic.Width*ic.Height > s.cfg.MaxOverlayPixels {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("overlay too large: %dx%d (max %d pixels)", ic.Width, ic.Height, s.cfg.MaxOverlayPixels),
		})
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": "overlay must be PNG or JPEG: " + err.Error(),
		})
	}

	o := pixbuf.FromImage(img, pixbuf.RGBA)
	if err := s.target.SetOverlay(o); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, pixbuf.ErrShapeMismatch) || errors.Is(err, pixbuf.ErrInvalidHandle) {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	s.log.Info("overlay uploaded", "format", format, "width", o.Width, "height", o.Height)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"format": format,
		"width":  o.Width,
		"height": o.Height,
	})
}

// handleStats returns session counters and preview client counts
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"session": s.target.Stats(),
		"preview": fiber.Map{
			"frame_clients":  s.frameHub.ClientCount(),
			"status_clients": s.statusHub.ClientCount(),
			"dropped":        s.frameHub.Dropped(),
		},
	})
}

// handleFramesWS streams JPEG preview frames
func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frameHub, c).Run()
}

// handleStatusWS streams parameter changes, starting with the current ones
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	s.ParamsChanged(s.tuning.Params())
	client.Run()
}
