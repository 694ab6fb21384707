package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/middleware"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/service"
)

func (h *WorkspaceHandler) scene(c *gin.Context, s *service.Session) (*model.Scene, error) {
	blend, err := service.ParseBlend(c.Query("blend"), h.cfg.Overlay.DefaultBlend)
	if err != nil {
		return nil, err
	}

	return h.renderer.Render(service.OverlayInput{
		OP1:    s.Workflow.Asset(model.SlotOP1),
		OP3:    s.Workflow.Asset(model.SlotOP3),
		Result: s.Workflow.Result(),
		Blend:  blend,
		URL: func(slot model.Slot) string {
			return previewURL(s.ID, slot)
		},
	})
}

func deferred(c *gin.Context) {
	c.JSON(http.StatusAccepted, model.Response{
		Success: true,
		Message: "waiting for image dimensions",
		Data:    gin.H{"deferred": true},
	})
}

// Overlay returns the scene for ?blend=0..100.
func (h *WorkspaceHandler) Overlay(c *gin.Context) {
	s := middleware.CurrentSession(c)

	scene, err := h.scene(c, s)
	if err != nil {
		if errors.Is(err, service.ErrDimensionsUnresolved) {
			deferred(c)
			return
		}
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "ok",
		Data:    scene,
	})
}

// OverlaySnapshot renders the scene for ?blend=0..100 as a PNG.
func (h *WorkspaceHandler) OverlaySnapshot(c *gin.Context) {
	s := middleware.CurrentSession(c)

	scene, err := h.scene(c, s)
	if err != nil {
		if errors.Is(err, service.ErrDimensionsUnresolved) {
			deferred(c)
			return
		}
		respondError(c, err, nil)
		return
	}

	png, err := h.compositor.Snapshot(c.Request.Context(), scene,
		s.Workflow.Asset(model.SlotOP1), s.Workflow.Asset(model.SlotOP3))
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
