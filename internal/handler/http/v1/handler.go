package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/svmurthy/accident-dispatch/internal/config"
	"github.com/svmurthy/accident-dispatch/internal/models"
	"github.com/svmurthy/accident-dispatch/internal/service"
)

type Handler struct {
	dispatch service.DispatchService
	logger   *logrus.Logger
	validate *validator.Validate
	cfg      *config.Config
}

func NewHandler(dispatch service.DispatchService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		dispatch: dispatch,
		logger:   logger,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// @Summary Ingest a detection event
// @Description Create an incident from a detection-pipeline event. Replays of the same event return the existing incident id. Requires API key.
// @Tags Detections
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param detection body IngestDetectionRequest true "Detection event"
// @Success 201 {object} IngestDetectionResponse
// @Failure 400 {object} map[string]string "Invalid request body or unknown severity"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /detections [post]
func (h *Handler) ingestDetection(c *gin.Context) {
	var input IngestDetectionRequest
	log := h.logger.WithField("method", "ingestDetection")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incidentID, err := h.dispatch.Ingest(c.Request.Context(), DTOToDetectionEvent(input))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSeverity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown severity value"})
			return
		}
		log.WithError(err).Error("Failed to ingest detection event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, IngestDetectionResponse{IncidentID: incidentID})
}

// @Summary List incidents visible to the calling organization
// @Description Incidents the organization is eligible for or a party to, newest first. Identity comes from the X-Org-ID header.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param X-Org-ID header string true "Calling organization id"
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unknown organization"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	org := callingOrg(c)

	incidents, err := h.dispatch.ListIncidentsForOrg(c.Request.Context(), org)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident with both track statuses.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param X-Org-ID header string true "Calling organization id"
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.dispatch.GetIncident(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrIncidentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
			return
		}
		log.WithError(err).Error("Failed to get incident from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// claimTrack is the shared body of the accept and reject endpoints.
func (h *Handler) claimTrack(c *gin.Context, accept bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	trackType := models.TrackType(c.Param("track"))
	if !models.ValidTrackType(trackType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track type"})
		return
	}
	org := callingOrg(c)
	log := h.logger.WithField("method", "claimTrack").WithField("id", id).WithField("track", trackType)

	if accept {
		err = h.dispatch.Accept(c.Request.Context(), id, trackType, org)
	} else {
		err = h.dispatch.Reject(c.Request.Context(), id, trackType, org)
	}

	if err == nil {
		result := "accepted"
		if !accept {
			result = "rejected"
		}
		c.JSON(http.StatusOK, ClaimResponse{Result: result})
		return
	}

	var claimed *service.AlreadyClaimedError
	switch {
	case errors.As(err, &claimed):
		// Normal outcome of losing the race, surfaced as a conflict.
		c.JSON(http.StatusConflict, ClaimResponse{Result: "already_claimed", ClaimedBy: claimed.By})
	case errors.Is(err, service.ErrIncidentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, service.ErrWrongTrackType):
		c.JSON(http.StatusForbidden, gin.H{"error": "organization cannot act on this track"})
	default:
		log.WithError(err).Error("Failed to resolve claim in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Accept a response track
// @Description Claim the track for the calling organization. The first accept wins; later attempts get 409 with the current claimant.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param X-Org-ID header string true "Calling organization id"
// @Param id path string true "Incident ID"
// @Param track path string true "Track type (medical or police)"
// @Success 200 {object} ClaimResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or track"
// @Failure 403 {object} map[string]string "Wrong organization type for track"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} ClaimResponse "Track already claimed"
// @Router /incidents/{id}/tracks/{track}/accept [post]
func (h *Handler) acceptTrack(c *gin.Context) {
	h.claimTrack(c, true)
}

// @Summary Reject a response track
// @Description Reject the track. Terminal for the whole track; races with concurrent accepts.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param X-Org-ID header string true "Calling organization id"
// @Param id path string true "Incident ID"
// @Param track path string true "Track type (medical or police)"
// @Success 200 {object} ClaimResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or track"
// @Failure 403 {object} map[string]string "Wrong organization type for track"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} ClaimResponse "Track already closed"
// @Router /incidents/{id}/tracks/{track}/reject [post]
func (h *Handler) rejectTrack(c *gin.Context) {
	h.claimTrack(c, false)
}

// @Summary Register a responder organization
// @Description Add a hospital or police unit to the catalog. Requires API key.
// @Tags Organizations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param organization body RegisterOrganizationRequest true "Organization registration"
// @Success 201 {object} OrganizationResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /organizations [post]
func (h *Handler) registerOrganization(c *gin.Context) {
	var input RegisterOrganizationRequest
	log := h.logger.WithField("method", "registerOrganization")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToOrganizationModel(input)
	if err := h.dispatch.RegisterOrganization(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to register organization in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, ModelToOrganizationResponse(model))
}

// @Summary List responder organizations
// @Description The full responder catalog. Requires API key.
// @Tags Organizations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} OrganizationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /organizations [get]
func (h *Handler) listOrganizations(c *gin.Context) {
	log := h.logger.WithField("method", "listOrganizations")

	orgs, err := h.dispatch.ListOrganizations(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list organizations from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, ModelsToOrganizationResponses(orgs))
}

// @Summary List notifications for the calling organization
// @Description The organization's notification list, newest first.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param X-Org-ID header string true "Calling organization id"
// @Success 200 {array} NotificationResponse
// @Failure 401 {object} map[string]string "Unknown organization"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications [get]
func (h *Handler) listNotifications(c *gin.Context) {
	log := h.logger.WithField("method", "listNotifications")
	org := callingOrg(c)

	notifications, err := h.dispatch.ListNotifications(c.Request.Context(), org.ID)
	if err != nil {
		log.WithError(err).Error("Failed to list notifications from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, ModelsToNotificationResponses(notifications))
}

// @Summary Mark all notifications read
// @Description Flags every notification of the calling organization as read.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param X-Org-ID header string true "Calling organization id"
// @Success 200 {object} MarkReadResponse
// @Failure 401 {object} map[string]string "Unknown organization"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/read-all [post]
func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	log := h.logger.WithField("method", "markAllNotificationsRead")
	org := callingOrg(c)

	updated, err := h.dispatch.MarkAllNotificationsRead(c.Request.Context(), org.ID)
	if err != nil {
		log.WithError(err).Error("Failed to mark notifications read in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{Updated: updated})
}

// @Summary Get dispatch statistics
// @Description Operational snapshot: pending tracks with zero eligible organizations. Requires API key.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.dispatch.GetStats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get stats from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, StatsResponse{StuckPendingTracks: stats.StuckPendingTracks})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
