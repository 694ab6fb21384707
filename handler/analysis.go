package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/middleware"
	"github.com/soumoditt-source/EcoDrone-AI/model"
)

// Submit starts an analysis. The previous result is cleared immediately.
// With ?wait=true the response is held until the request resolves.
func (h *WorkspaceHandler) Submit(c *gin.Context) {
	s := middleware.CurrentSession(c)

	if _, err := s.Workflow.Submit(); err != nil {
		respondError(c, err, s.Workflow.State())
		return
	}

	if c.Query("wait") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.Analysis.Timeout+5*time.Second)
		defer cancel()
		if err := s.Workflow.Wait(ctx); err == nil {
			c.JSON(http.StatusOK, model.Response{
				Success: true,
				Message: "analysis finished",
				Data:    s.Workflow.State(),
			})
			return
		}
	}

	c.JSON(http.StatusAccepted, model.Response{
		Success: true,
		Message: "analysis started",
		Data:    s.Workflow.State(),
	})
}
