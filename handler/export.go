package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/middleware"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/service"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

// Export downloads the casualties CSV of the live result, the same result
// the overlay draws.
func (h *WorkspaceHandler) Export(c *gin.Context) {
	s := middleware.CurrentSession(c)

	result := s.Workflow.Result()
	if result == nil {
		c.JSON(http.StatusConflict, model.ErrorResponse{
			Success: false,
			Message: "no analysis result to export",
			State:   s.Workflow.State(),
		})
		return
	}

	var buf bytes.Buffer
	rows, err := service.ExportCasualties(&buf, result)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	filename := service.ExportFilename(time.Now())
	utils.Logger.Info("casualties exported",
		zap.String("session", s.ID),
		zap.String("filename", filename),
		zap.Int("rows", rows))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Export-Rows", strconv.Itoa(rows))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
