package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/service"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

// WorkspaceHandler serves the operator workspace: sessions, image slots,
// analysis, overlay and export.
type WorkspaceHandler struct {
	cfg        *config.Config
	sessions   *service.SessionRegistry
	uploader   *service.Uploader
	previews   service.PreviewStore
	renderer   *service.OverlayRenderer
	compositor *service.Compositor
}

func NewWorkspaceHandler(
	cfg *config.Config,
	sessions *service.SessionRegistry,
	uploader *service.Uploader,
	previews service.PreviewStore,
	renderer *service.OverlayRenderer,
	compositor *service.Compositor,
) *WorkspaceHandler {
	return &WorkspaceHandler{
		cfg:        cfg,
		sessions:   sessions,
		uploader:   uploader,
		previews:   previews,
		renderer:   renderer,
		compositor: compositor,
	}
}

// Register mounts the workspace routes on g.
func (h *WorkspaceHandler) Register(g *gin.RouterGroup, sessionMW gin.HandlerFunc) {
	g.POST("/sessions", h.CreateSession)

	s := g.Group("/sessions/:id", sessionMW)
	{
		s.GET("", h.GetSession)
		s.DELETE("", h.CloseSession)
		s.POST("/images/:slot", h.SelectImage)
		s.GET("/images/:slot/preview", h.GetPreview)
		s.POST("/analysis", h.Submit)
		s.GET("/overlay", h.Overlay)
		s.GET("/overlay.png", h.OverlaySnapshot)
		s.GET("/export.csv", h.Export)
	}
}

func previewURL(session string, slot model.Slot) string {
	return fmt.Sprintf("/api/v1/sessions/%s/images/%s/preview", session, slot)
}

// respondError maps workflow errors onto HTTP statuses.
func respondError(c *gin.Context, err error, state *model.WorkflowState) {
	status := http.StatusInternalServerError
	resp := model.ErrorResponse{Success: false, Error: err.Error(), State: state}

	var wfErr *model.WorkflowError
	switch {
	case errors.As(err, &wfErr) && wfErr.Kind == model.ErrValidation:
		status = http.StatusBadRequest
		resp.Message = wfErr.Message
		resp.Kind = wfErr.Kind
	case errors.Is(err, service.ErrSubmissionInFlight):
		status = http.StatusConflict
		resp.Message = "an analysis is already running, wait for it to finish"
	case errors.Is(err, service.ErrWorkflowClosed), errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
		resp.Message = "session not found"
	case errors.Is(err, service.ErrTooManySessions):
		status = http.StatusServiceUnavailable
		resp.Message = "too many open sessions, please retry later"
	case errors.Is(err, service.ErrCompositorBusy):
		status = http.StatusServiceUnavailable
		resp.Message = err.Error()
	default:
		resp.Message = "internal error"
		utils.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, resp)
}
