package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/outreach/internal/notification/domain"
)

func (s *Server) NewSignupWebhook(c *gin.Context) {
	var payload notificationdomain.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.notificationSvc.NotifyNewSignup(c.Request.Context(), payload); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
