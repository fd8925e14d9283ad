package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	"github.com/noah-isme/hr-attendance-api/internal/service"
)

// requestMeta collects the client attributes of the request. bodyDeviceID is used when the
// device header is absent.
func (h *AuthHandler) requestMeta(c *gin.Context, bodyDeviceID string) models.RequestMeta {
	return models.RequestMeta{
		DeviceID:  service.ResolveDeviceID(c.GetHeader(h.deviceHeader), bodyDeviceID),
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
