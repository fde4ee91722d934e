package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegisterRoutes wires all API v1 routes. Ingest and catalog admin sit
// behind the API key; responder-facing routes resolve the calling
// organization from the X-Org-ID header.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, log *logrus.Logger) {
	apiKey := APIKeyAuthMiddleware(h.cfg, log)
	orgIdentity := OrgIdentityMiddleware(h.dispatch, log)

	// Detection-pipeline boundary
	api.POST("/detections", apiKey, h.ingestDetection)

	// Responder catalog (admin)
	organizations := api.Group("/organizations", apiKey)
	{
		organizations.POST("", h.registerOrganization)
		organizations.GET("", h.listOrganizations)
	}

	// Responder-facing incident views and claims
	incidents := api.Group("/incidents")
	{
		incidents.GET("/stats", apiKey, h.getStats)
		incidents.GET("", orgIdentity, h.listIncidents)
		incidents.GET("/:id", orgIdentity, h.getIncident)
		incidents.POST("/:id/tracks/:track/accept", orgIdentity, h.acceptTrack)
		incidents.POST("/:id/tracks/:track/reject", orgIdentity, h.rejectTrack)
	}

	// Notification list and read state
	notifications := api.Group("/notifications", orgIdentity)
	{
		notifications.GET("", h.listNotifications)
		notifications.POST("/read-all", h.markAllNotificationsRead)
	}

	// Health-check route
	api.GET("/system/health", h.healthCheck)
}
