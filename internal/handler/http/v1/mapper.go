package v1

import "github.com/svmurthy/accident-dispatch/internal/models"

// DTOToDetectionEvent converts the ingest DTO to the domain event.
func DTOToDetectionEvent(dto IngestDetectionRequest) models.DetectionEvent {
	return models.DetectionEvent{
		SourceSensorID: dto.SourceSensorID,
		Address:        dto.Address,
		Latitude:       dto.Latitude,
		Longitude:      dto.Longitude,
		Severity:       models.Severity(dto.Severity),
		Description:    dto.Description,
		EvidenceRef:    dto.EvidenceRef,
		DetectedAt:     dto.DetectedAt,
	}
}

func trackToResponse(t models.ResponseTrack) TrackResponse {
	return TrackResponse{
		Status:    string(t.Status),
		ClaimedBy: t.ClaimedBy,
		ClaimedAt: t.ClaimedAt,
	}
}

// ModelToIncidentResponse converts the domain model to the response DTO.
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:           model.ID,
		Address:      model.Address,
		Latitude:     model.Latitude,
		Longitude:    model.Longitude,
		Region:       model.Region,
		Severity:     string(model.Severity),
		Description:  model.Description,
		EvidenceRef:  model.EvidenceRef,
		DetectedAt:   model.DetectedAt,
		MedicalTrack: trackToResponse(model.MedicalTrack),
		PoliceTrack:  trackToResponse(model.PoliceTrack),
		CreatedAt:    model.CreatedAt,
	}
}

// ModelsToIncidentResponses converts a slice of models to response DTOs.
func ModelsToIncidentResponses(incidents []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(incidents))
	for i, incident := range incidents {
		responses[i] = ModelToIncidentResponse(incident)
	}
	return responses
}

// DTOToOrganizationModel converts the registration DTO to the domain model.
func DTOToOrganizationModel(dto RegisterOrganizationRequest) *models.Organization {
	severities := make([]models.Severity, 0, len(dto.AlertSeverities))
	for _, s := range dto.AlertSeverities {
		severities = append(severities, models.Severity(s))
	}
	alertRegion := dto.AlertRegion
	if alertRegion == "" {
		alertRegion = models.RegionAll
	}
	return &models.Organization{
		Type:   models.OrgType(dto.Type),
		Name:   dto.Name,
		Region: dto.Region,
		AlertFilter: models.AlertFilter{
			Severities: severities,
			Region:     alertRegion,
		},
	}
}

// ModelToOrganizationResponse converts the domain model to the catalog DTO.
func ModelToOrganizationResponse(model *models.Organization) *OrganizationResponse {
	severities := make([]string, 0, len(model.AlertFilter.Severities))
	for _, s := range model.AlertFilter.Severities {
		severities = append(severities, string(s))
	}
	return &OrganizationResponse{
		ID:              model.ID,
		Type:            string(model.Type),
		Name:            model.Name,
		Region:          model.Region,
		AlertSeverities: severities,
		AlertRegion:     model.AlertFilter.Region,
		CreatedAt:       model.CreatedAt,
	}
}

func ModelsToOrganizationResponses(orgs []*models.Organization) []*OrganizationResponse {
	responses := make([]*OrganizationResponse, len(orgs))
	for i, org := range orgs {
		responses[i] = ModelToOrganizationResponse(org)
	}
	return responses
}

// ModelToNotificationResponse converts the domain model to the DTO.
func ModelToNotificationResponse(model *models.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:         model.ID,
		IncidentID: model.IncidentID,
		Kind:       string(model.Kind),
		Message:    model.Message,
		IsRead:     model.IsRead,
		CreatedAt:  model.CreatedAt,
	}
}

func ModelsToNotificationResponses(notifications []*models.Notification) []*NotificationResponse {
	responses := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = ModelToNotificationResponse(n)
	}
	return responses
}
