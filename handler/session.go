package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/middleware"
	"github.com/soumoditt-source/EcoDrone-AI/model"
)

// CreateSession opens a new workspace.
func (h *WorkspaceHandler) CreateSession(c *gin.Context) {
	s, err := h.sessions.Create()
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, model.Response{
		Success: true,
		Message: "session created",
		Data:    s.Workflow.State(),
	})
}

// GetSession returns the workflow state.
func (h *WorkspaceHandler) GetSession(c *gin.Context) {
	s := middleware.CurrentSession(c)
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "ok",
		Data:    s.Workflow.State(),
	})
}

// CloseSession tears the workspace down and releases its previews.
func (h *WorkspaceHandler) CloseSession(c *gin.Context) {
	s := middleware.CurrentSession(c)
	if err := h.sessions.Close(c.Request.Context(), s.ID); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}
