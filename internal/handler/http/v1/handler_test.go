package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/svmurthy/accident-dispatch/internal/config"
	"github.com/svmurthy/accident-dispatch/internal/models"
	"github.com/svmurthy/accident-dispatch/internal/service"
	"github.com/svmurthy/accident-dispatch/internal/service/mocks"
)

// newTestHandler builds a Handler over a mocked dispatch service and a
// test router with the full middleware chain.
func newTestHandler(t *testing.T) (*Handler, *mocks.MockDispatchService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockDispatchService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	handler := NewHandler(mockService, logger, cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api, logger)

	return handler, mockService, router
}

func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func apiKeyHeader() map[string]string {
	return map[string]string{"X-API-Key": "test-api-key"}
}

func orgHeader(orgID uuid.UUID) map[string]string {
	return map[string]string{"X-Org-ID": orgID.String()}
}

// expectCallingOrg wires the identity middleware lookup for one request.
func expectCallingOrg(mockService *mocks.MockDispatchService, org *models.Organization) {
	mockService.EXPECT().
		GetOrganization(gomock.Any(), org.ID).
		Return(org, nil).
		Times(1)
}

func testHospital() *models.Organization {
	return &models.Organization{
		ID:     uuid.New(),
		Type:   models.OrgHospital,
		Name:   "General Hospital",
		Region: "North",
		AlertFilter: models.AlertFilter{
			Region: models.RegionAll,
		},
	}
}

func ingestBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	lat, lng := 13.05, 80.25
	reqBody := IngestDetectionRequest{
		SourceSensorID: "cam-42",
		Address:        "12 Harbour Road",
		Latitude:       &lat,
		Longitude:      &lng,
		Severity:       "critical",
		Description:    "two-vehicle collision",
		DetectedAt:     time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestIngestDetection_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().
		Ingest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event models.DetectionEvent) (uuid.UUID, error) {
			assert.Equal(t, "cam-42", event.SourceSensorID)
			assert.Equal(t, models.SeverityCritical, event.Severity)
			return incidentID, nil
		}).Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/detections", ingestBody(t), apiKeyHeader())

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp IngestDetectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.IncidentID)
}

func TestIngestDetection_MissingAPIKey(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	mockService.EXPECT().Ingest(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodPost, "/api/v1/detections", ingestBody(t))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestDetection_InvalidBody(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	mockService.EXPECT().Ingest(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodPost, "/api/v1/detections", bytes.NewBufferString("{not json"), apiKeyHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestDetection_UnknownSeverity(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		Ingest(gomock.Any(), gomock.Any()).
		Return(uuid.Nil, fmt.Errorf("service: severity %q: %w", "critical", service.ErrInvalidSeverity)).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/detections", ingestBody(t), apiKeyHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown severity value")
}

func TestGetIncident_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	incidentID := uuid.New()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(&models.Incident{
			ID:           incidentID,
			Address:      "12 Harbour Road",
			Severity:     models.SeverityCritical,
			Region:       "North",
			MedicalTrack: models.ResponseTrack{Status: models.TrackPending},
			PoliceTrack:  models.ResponseTrack{Status: models.TrackPending},
		}, nil).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+incidentID.String(), nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "pending", resp.MedicalTrack.Status)
}

func TestGetIncident_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	incidentID := uuid.New()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(nil, service.ErrIncidentNotFound).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/"+incidentID.String(), nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetIncident_InvalidID(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	expectCallingOrg(mockService, org)
	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/not-a-uuid", nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIncidents_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		ListIncidentsForOrg(gomock.Any(), org).
		Return([]*models.Incident{
			{ID: uuid.New(), Address: "12 Harbour Road", Severity: models.SeverityCritical},
			{ID: uuid.New(), Address: "3 Mill Lane", Severity: models.SeverityMinor},
		}, nil).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestAcceptTrack_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	incidentID := uuid.New()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		Accept(gomock.Any(), incidentID, models.TrackMedical, org).
		Return(nil).
		Times(1)

	url := fmt.Sprintf("/api/v1/incidents/%s/tracks/medical/accept", incidentID)
	w := makeRequest(router, http.MethodPost, url, nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ClaimResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp.Result)
}

func TestAcceptTrack_AlreadyClaimed(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	incidentID := uuid.New()
	winner := uuid.New()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		Accept(gomock.Any(), incidentID, models.TrackMedical, org).
		Return(&service.AlreadyClaimedError{By: &winner}).
		Times(1)

	url := fmt.Sprintf("/api/v1/incidents/%s/tracks/medical/accept", incidentID)
	w := makeRequest(router, http.MethodPost, url, nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp ClaimResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "already_claimed", resp.Result)
	require.NotNil(t, resp.ClaimedBy)
	assert.Equal(t, winner, *resp.ClaimedBy)
}

func TestAcceptTrack_WrongOrgType(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	incidentID := uuid.New()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		Accept(gomock.Any(), incidentID, models.TrackPolice, org).
		Return(fmt.Errorf("service: hospital organization on police track: %w", service.ErrWrongTrackType)).
		Times(1)

	url := fmt.Sprintf("/api/v1/incidents/%s/tracks/police/accept", incidentID)
	w := makeRequest(router, http.MethodPost, url, nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAcceptTrack_InvalidTrackName(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	expectCallingOrg(mockService, org)
	mockService.EXPECT().Accept(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	url := fmt.Sprintf("/api/v1/incidents/%s/tracks/fire/accept", uuid.New())
	w := makeRequest(router, http.MethodPost, url, nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectTrack_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	incidentID := uuid.New()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		Reject(gomock.Any(), incidentID, models.TrackMedical, org).
		Return(nil).
		Times(1)

	url := fmt.Sprintf("/api/v1/incidents/%s/tracks/medical/reject", incidentID)
	w := makeRequest(router, http.MethodPost, url, nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ClaimResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rejected", resp.Result)
}

func TestOrgIdentity_MissingHeader(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	mockService.EXPECT().ListIncidentsForOrg(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrgIdentity_UnknownOrganization(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	orgID := uuid.New()

	mockService.EXPECT().
		GetOrganization(gomock.Any(), orgID).
		Return(nil, service.ErrOrganizationNotFound).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", nil, orgHeader(orgID))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterOrganization_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	reqBody := RegisterOrganizationRequest{
		Type:            "hospital",
		Name:            "General Hospital",
		Region:          "North",
		AlertSeverities: []string{"critical", "major"},
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	mockService.EXPECT().
		RegisterOrganization(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, org *models.Organization) error {
			assert.Equal(t, models.OrgHospital, org.Type)
			assert.Equal(t, models.RegionAll, org.AlertFilter.Region)
			org.ID = uuid.New()
			return nil
		}).Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/organizations", bytes.NewBuffer(body), apiKeyHeader())

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp OrganizationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hospital", resp.Type)
	assert.NotEqual(t, uuid.Nil, resp.ID)
}

func TestRegisterOrganization_InvalidType(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	mockService.EXPECT().RegisterOrganization(gomock.Any(), gomock.Any()).Times(0)

	reqBody := RegisterOrganizationRequest{
		Type:   "fire-brigade",
		Name:   "Station 7",
		Region: "North",
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	w := makeRequest(router, http.MethodPost, "/api/v1/organizations", bytes.NewBuffer(body), apiKeyHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNotifications_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		ListNotifications(gomock.Any(), org.ID).
		Return([]*models.Notification{
			{ID: 2, RecipientOrgID: org.ID, IncidentID: uuid.New(), Kind: models.KindNewIncident, Message: "New critical accident reported at 12 Harbour Road"},
			{ID: 1, RecipientOrgID: org.ID, IncidentID: uuid.New(), Kind: models.KindClaimWon, Message: "You accepted the medical response", IsRead: true},
		}, nil).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/notifications", nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []NotificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "new_incident", resp[0].Kind)
	assert.False(t, resp[0].IsRead)
	assert.True(t, resp[1].IsRead)
}

func TestMarkAllNotificationsRead_SuccessHTTP(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	org := testHospital()
	expectCallingOrg(mockService, org)

	mockService.EXPECT().
		MarkAllNotificationsRead(gomock.Any(), org.ID).
		Return(int64(4), nil).
		Times(1)

	w := makeRequest(router, http.MethodPost, "/api/v1/notifications/read-all", nil, orgHeader(org.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp MarkReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.Updated)
}

func TestGetStats_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		GetStats(gomock.Any()).
		Return(&service.Stats{StuckPendingTracks: 3}, nil).
		Times(1)

	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/stats", nil, apiKeyHeader())

	assert.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.StuckPendingTracks)
}

func TestHealthCheck(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
