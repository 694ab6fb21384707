package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/middleware"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/service"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

// SelectImage validates the uploaded "image" file and puts it into the slot.
// A request without a file changes nothing.
func (h *WorkspaceHandler) SelectImage(c *gin.Context) {
	s := middleware.CurrentSession(c)

	slot, err := model.ParseSlot(c.Param("slot"))
	if err != nil {
		respondError(c, err, s.Workflow.State())
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			c.JSON(http.StatusOK, model.Response{
				Success: true,
				Message: "no file selected",
				Data:    s.Workflow.State(),
			})
			return
		}
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		respondError(c, model.NewValidationError("could not read the uploaded file"), s.Workflow.State())
		return
	}

	sel := &service.Selection{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Open: func() (io.ReadCloser, error) {
			return file.Open()
		},
	}

	asset, err := h.uploader.Accept(c.Request.Context(), slot, sel)
	if err != nil {
		respondError(c, err, s.Workflow.State())
		return
	}

	if err := s.Workflow.Select(c.Request.Context(), slot, asset); err != nil {
		_ = h.previews.Release(c.Request.Context(), asset.Preview)
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "image selected",
		Data:    s.Workflow.State(),
	})
}

// GetPreview serves the stored bytes of a slot's current image.
func (h *WorkspaceHandler) GetPreview(c *gin.Context) {
	s := middleware.CurrentSession(c)

	slot, err := model.ParseSlot(c.Param("slot"))
	if err != nil {
		respondError(c, err, nil)
		return
	}

	asset := s.Workflow.Asset(slot)
	if asset == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Success: false, Message: "no image in slot"})
		return
	}

	etag := `"` + asset.Digest + `"`
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	preview, err := h.previews.Get(c.Request.Context(), asset.Preview)
	if err != nil {
		if errors.Is(err, service.ErrPreviewNotFound) {
			c.JSON(http.StatusGone, model.ErrorResponse{
				Success: false,
				Message: "preview expired, please select the image again",
			})
			return
		}
		respondError(c, err, nil)
		return
	}

	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	c.Data(http.StatusOK, preview.MIMEType, preview.Data)
}
