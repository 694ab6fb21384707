package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/service"
)

const sessionKey = "session"

// Session resolves the :id path parameter to a live session.
func Session(registry *service.SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := registry.Get(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, model.ErrorResponse{
				Success: false,
				Message: "session not found",
				Error:   err.Error(),
			})
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

// CurrentSession returns the session stored by Session.
func CurrentSession(c *gin.Context) *service.Session {
	return c.MustGet(sessionKey).(*service.Session)
}
