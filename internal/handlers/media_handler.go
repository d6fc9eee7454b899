package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/reserveiviagens/rsv360-media-service/internal/media"
	service "github.com/reserveiviagens/rsv360-media-service/internal/services"
	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

type Handler struct {
	svc *service.MediaService
	log *zap.SugaredLogger
}

func NewHandler(svc *service.MediaService, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// POST /images (multipart field "images", up to the configured batch size)
func (h *Handler) UploadImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "no images were uploaded")
	}
	res, err := h.svc.UploadImages(c.UserContext(), form.File["images"])
	if err != nil {
		return h.uploadError(c, err, "no images were uploaded")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("%d of %d image(s) uploaded", len(res.Accepted), res.Submitted),
		"images":  res.Accepted,
	})
}

// POST /single (multipart field "image", exactly one file)
func (h *Handler) UploadSingle(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "no image was uploaded")
	}
	asset, err := h.svc.UploadImage(c.UserContext(), fh)
	if err != nil {
		return h.uploadError(c, err, "no image was uploaded")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "image uploaded",
		"image":   asset,
	})
}

// POST /videos (multipart field "videos")
func (h *Handler) UploadVideos(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "no videos were uploaded")
	}
	res, err := h.svc.UploadVideos(c.UserContext(), form.File["videos"])
	if err != nil {
		return h.uploadError(c, err, "no videos were uploaded")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("%d of %d video(s) uploaded", len(res.Accepted), res.Submitted),
		"videos":  res.Accepted,
	})
}

// GET /images
func (h *Handler) ListImages(c *fiber.Ctx) error {
	assets, err := h.svc.List(media.KindImage)
	if err != nil {
		h.log.Errorw("list images failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
	return c.JSON(fiber.Map{"success": true, "images": assets})
}

// GET /videos
func (h *Handler) ListVideos(c *fiber.Ctx) error {
	assets, err := h.svc.List(media.KindVideo)
	if err != nil {
		h.log.Errorw("list videos failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
	return c.JSON(fiber.Map{"success": true, "videos": assets})
}

// DELETE /images/:filename
func (h *Handler) DeleteImage(c *fiber.Ctx) error {
	return h.delete(c, media.KindImage, "image")
}

// DELETE /videos/:filename
func (h *Handler) DeleteVideo(c *fiber.Ctx) error {
	return h.delete(c, media.KindVideo, "video")
}

func (h *Handler) delete(c *fiber.Ctx, kind media.Kind, noun string) error {
	filename := c.Params("filename")
	err := h.svc.Delete(filename, kind)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"success": true, "message": noun + " deleted"})
	case errors.Is(err, utils.ErrBadFilename):
		return utils.JSONError(c, fiber.StatusBadRequest, "invalid filename")
	case errors.Is(err, utils.ErrFileNotFound):
		return utils.JSONError(c, fiber.StatusNotFound, noun+" not found")
	default:
		h.log.Errorw("delete failed", "filename", filename, "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// uploadError maps a request-level upload failure. Per-file failures never
// reach here; they only shrink the accepted list.
func (h *Handler) uploadError(c *fiber.Ctx, err error, emptyMsg string) error {
	switch {
	case errors.Is(err, utils.ErrNoFiles):
		return utils.JSONError(c, fiber.StatusBadRequest, emptyMsg)
	case errors.Is(err, utils.ErrTooManyFiles),
		errors.Is(err, utils.ErrFileTooLarge),
		errors.Is(err, utils.ErrUnsupportedType):
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.log.Errorw("upload failed", "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error during upload")
	}
}
