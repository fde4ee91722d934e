package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/svmurthy/accident-dispatch/internal/config"
	"github.com/svmurthy/accident-dispatch/internal/fanout"
	"github.com/svmurthy/accident-dispatch/internal/models"
)

// Sentinel errors surfaced to the transport layer.
var (
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrDuplicateIncident    = errors.New("incident already exists")
	ErrInvalidSeverity      = errors.New("invalid severity")
	ErrInvalidTrack         = errors.New("invalid track type")
	ErrWrongTrackType       = errors.New("organization cannot act on this track")
)

// AlreadyClaimedError is the expected outcome of losing a claim race. It
// carries the organization that won so callers can show who handled the
// incident. It is a result, not a fault.
type AlreadyClaimedError struct {
	By *uuid.UUID
}

func (e *AlreadyClaimedError) Error() string {
	if e.By != nil {
		return fmt.Sprintf("track already claimed by %s", e.By)
	}
	return "track already closed"
}

// CASResult is the outcome of the store's compare-and-set primitive.
type CASResult int

const (
	CASOk CASResult = iota
	CASConflict
	CASNotFound
)

// IncidentRepository is the contract for the incident store. The
// compare-and-set primitive is the only track mutation; everything else
// is reads.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListForOrg(ctx context.Context, org *models.Organization) ([]*models.Incident, error)
	CompareAndSetTrack(ctx context.Context, incidentID uuid.UUID, trackType models.TrackType, expected, next models.TrackStatus, actorOrgID uuid.UUID) (CASResult, error)
	ResolveRegion(ctx context.Context, lat, lng float64) (string, error)
	CountStuckTracks(ctx context.Context) (int, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// OrganizationRepository is the contract for the responder catalog.
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListByType(ctx context.Context, orgType models.OrgType) ([]*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
}

// NotificationRepository is the contract for the per-organization
// notification ledger.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Notification, error)
	MarkAllRead(ctx context.Context, orgID uuid.UUID) (int64, error)
	ListNotifiedOrgs(ctx context.Context, incidentID uuid.UUID, orgType models.OrgType) ([]uuid.UUID, error)
}

// Stats is the operational snapshot exposed by the coordinator.
type Stats struct {
	StuckPendingTracks int `json:"stuck_pending_tracks"`
}

// DispatchService is the coordinator facade: ingestion, visibility
// queries, claim arbitration and notification access.
type DispatchService interface {
	Ingest(ctx context.Context, event models.DetectionEvent) (uuid.UUID, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidentsForOrg(ctx context.Context, org *models.Organization) ([]*models.Incident, error)
	Accept(ctx context.Context, incidentID uuid.UUID, trackType models.TrackType, actor *models.Organization) error
	Reject(ctx context.Context, incidentID uuid.UUID, trackType models.TrackType, actor *models.Organization) error
	RegisterOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)
	ListNotifications(ctx context.Context, orgID uuid.UUID) ([]*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, orgID uuid.UUID) (int64, error)
	GetStats(ctx context.Context) (*Stats, error)
}

type dispatchService struct {
	incidents     IncidentRepository
	orgs          OrganizationRepository
	notifications NotificationRepository
	publisher     fanout.EventPublisher
	logger        *logrus.Logger
	cfg           *config.Config
}

func NewDispatchService(
	incidents IncidentRepository,
	orgs OrganizationRepository,
	notifications NotificationRepository,
	logger *logrus.Logger,
	cfg *config.Config,
	publisher fanout.EventPublisher,
) DispatchService {
	return &dispatchService{
		incidents:     incidents,
		orgs:          orgs,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		cfg:           cfg,
	}
}

// incidentIDNamespace seeds deterministic incident ids, so a replayed
// detection event maps to the same incident instead of a second record.
var incidentIDNamespace = uuid.MustParse("9f2c1f7e-5b0a-4d57-a4e3-6d1c82e3c9d1")

// IncidentIDFor derives the incident id for a detection event from its
// source sensor and timestamp.
func IncidentIDFor(event models.DetectionEvent) uuid.UUID {
	seed := fmt.Sprintf("%s|%s", event.SourceSensorID, event.DetectedAt.UTC().Format(time.RFC3339Nano))
	return uuid.NewSHA1(incidentIDNamespace, []byte(seed))
}

// Ingest creates an incident from a detection event, resolves the
// eligible responders and queues the new-incident fan-out. Replays of the
// same event return the existing incident id. Fan-out failure never fails
// the ingest; the transition is already durable.
func (s *dispatchService) Ingest(ctx context.Context, event models.DetectionEvent) (uuid.UUID, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "Ingest",
		"sensor":  event.SourceSensorID,
	})
	log.Info("Ingesting detection event")

	if !models.ValidSeverity(event.Severity) {
		log.WithField("severity", event.Severity).Warn("Rejected detection event with unknown severity")
		return uuid.Nil, fmt.Errorf("service: severity %q: %w", event.Severity, ErrInvalidSeverity)
	}

	incident := &models.Incident{
		ID:          IncidentIDFor(event),
		Address:     event.Address,
		Latitude:    event.Latitude,
		Longitude:   event.Longitude,
		Region:      models.RegionUnknown,
		Severity:    event.Severity,
		Description: event.Description,
		EvidenceRef: event.EvidenceRef,
		DetectedAt:  event.DetectedAt,
	}

	if event.Latitude != nil && event.Longitude != nil {
		region, err := s.incidents.ResolveRegion(ctx, *event.Latitude, *event.Longitude)
		if err != nil {
			log.WithError(err).Error("Failed to resolve incident region")
			return uuid.Nil, fmt.Errorf("service: could not resolve region: %w", err)
		}
		incident.Region = region
	}

	if err := s.incidents.Create(ctx, incident); err != nil {
		if !errors.Is(err, ErrDuplicateIncident) {
			log.WithError(err).Error("Failed to create incident in repository")
			return uuid.Nil, fmt.Errorf("service: could not create incident: %w", err)
		}
		// The event is a replay. The fan-out below runs again anyway: an
		// earlier enqueue may have been lost, and the notification
		// ledger's dedup key absorbs a second delivery.
		log.WithField("incident_id", incident.ID).Info("Detection event replayed, re-running fan-out")
	}

	hospitals, police, err := s.resolveEligible(ctx, incident)
	if err != nil {
		log.WithError(err).Error("Failed to resolve eligible organizations")
		return uuid.Nil, fmt.Errorf("service: could not resolve eligibility: %w", err)
	}

	if len(hospitals) == 0 {
		log.WithField("incident_id", incident.ID).Warn("No eligible hospitals, medical track will stay pending")
	}
	if len(police) == 0 {
		log.WithField("incident_id", incident.ID).Warn("No eligible police units, police track will stay pending")
	}

	fanoutEvent := fanout.Event{
		Type:            fanout.EventNewIncident,
		IncidentID:      incident.ID,
		Address:         incident.Address,
		Severity:        incident.Severity,
		Region:          incident.Region,
		EligibleMedical: orgIDs(hospitals),
		EligiblePolice:  orgIDs(police),
		OccurredAt:      time.Now().UTC(),
	}
	s.withPublishRetry(log, func() error {
		return s.publisher.Publish(ctx, fanoutEvent)
	})

	log.WithField("incident_id", incident.ID).Info("Incident ingested successfully")
	return incident.ID, nil
}

// withPublishRetry runs a fan-out enqueue with bounded backoff. The
// queue is the only bridge to notification delivery, so a transient
// enqueue failure is retried instead of dropped; the ledger's dedup key
// makes a double enqueue harmless.
func (s *dispatchService) withPublishRetry(log *logrus.Entry, publish func() error) {
	attempts := s.cfg.PublishMaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := s.cfg.PublishBaseDelay

	var err error
	for i := 0; i < attempts; i++ {
		if err = publish(); err == nil {
			return
		}
		if i < attempts-1 {
			log.WithError(err).Warnf("Fan-out publish failed. Retrying in %v. Retries left: %d", delay, attempts-1-i)
			time.Sleep(delay)
			delay *= 2
		}
	}
	log.WithError(err).Error("Fan-out publish failed, giving up")
}

func (s *dispatchService) resolveEligible(ctx context.Context, incident *models.Incident) (hospitals, police []*models.Organization, err error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	eligible := ResolveEligible(orgs, incident.Severity, incident.Region)
	return eligible[models.OrgHospital], eligible[models.OrgPolice], nil
}

func orgIDs(orgs []*models.Organization) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(orgs))
	for _, org := range orgs {
		ids = append(ids, org.ID)
	}
	return ids
}

// GetIncident reads an incident, cache first.
func (s *dispatchService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.incidents.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Incident cache read failed, falling back to database")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrIncidentNotFound) {
			return nil, err
		}
		log.WithError(err).Error("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	// Only settled incidents go into the cache. A snapshot with a pending
	// track could be written back after a concurrent claim already
	// invalidated the key, pinning the stale status for the whole TTL.
	if incident.Settled() {
		if err := s.incidents.SetIncidentCache(ctx, incident); err != nil {
			log.WithError(err).Warn("Failed to cache incident")
		}
	}
	return incident, nil
}

// ListIncidentsForOrg returns the incidents visible to one organization.
func (s *dispatchService) ListIncidentsForOrg(ctx context.Context, org *models.Organization) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "ListIncidentsForOrg",
		"org_id":  org.ID,
	})

	incidents, err := s.incidents.ListForOrg(ctx, org)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// RegisterOrganization adds a responder organization to the catalog.
func (s *dispatchService) RegisterOrganization(ctx context.Context, org *models.Organization) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "RegisterOrganization",
		"name":    org.Name,
	})

	if org.AlertFilter.Region == "" {
		org.AlertFilter.Region = models.RegionAll
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		log.WithError(err).Error("Failed to register organization")
		return fmt.Errorf("service: could not register organization: %w", err)
	}

	log.WithField("org_id", org.ID).Info("Organization registered successfully")
	return nil
}

func (s *dispatchService) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrganizationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: could not get organization: %w", err)
	}
	return org, nil
}

func (s *dispatchService) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not list organizations: %w", err)
	}
	return orgs, nil
}

// ListNotifications returns an organization's notification list.
func (s *dispatchService) ListNotifications(ctx context.Context, orgID uuid.UUID) ([]*models.Notification, error) {
	notifications, err := s.notifications.ListForOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("service: could not list notifications: %w", err)
	}
	return notifications, nil
}

// MarkAllNotificationsRead flags one organization's notifications as read.
func (s *dispatchService) MarkAllNotificationsRead(ctx context.Context, orgID uuid.UUID) (int64, error) {
	count, err := s.notifications.MarkAllRead(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("service: could not mark notifications read: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "MarkAllNotificationsRead",
		"org_id":  orgID,
		"count":   count,
	}).Info("Notifications marked read")
	return count, nil
}

// GetStats reports stuck pending tracks (zero eligible organizations), a
// valid state that must stay observable.
func (s *dispatchService) GetStats(ctx context.Context) (*Stats, error) {
	stuck, err := s.incidents.CountStuckTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not count stuck tracks: %w", err)
	}
	return &Stats{StuckPendingTracks: stuck}, nil
}
