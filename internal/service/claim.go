package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/svmurthy/accident-dispatch/internal/fanout"
	"github.com/svmurthy/accident-dispatch/internal/models"
)

// validateClaim checks that the actor may act on the track at all. Authz
// proper (is the caller really this organization) belongs to the calling
// layer; this only guards the track/type pairing.
func validateClaim(trackType models.TrackType, actor *models.Organization) error {
	if !models.ValidTrackType(trackType) {
		return fmt.Errorf("service: track %q: %w", trackType, ErrInvalidTrack)
	}
	if actor.Type.Track() != trackType {
		return fmt.Errorf("service: %s organization on %s track: %w", actor.Type, trackType, ErrWrongTrackType)
	}
	return nil
}

// Accept attempts the Pending→Accepted transition for one track. The
// first compare-and-set applied by the store wins; every later attempt
// gets AlreadyClaimedError carrying the current claimant. Losing the race
// is an expected result and is never logged as an error.
func (s *dispatchService) Accept(ctx context.Context, incidentID uuid.UUID, trackType models.TrackType, actor *models.Organization) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "Accept",
		"incident_id": incidentID,
		"track":       trackType,
		"org_id":      actor.ID,
	})

	if err := validateClaim(trackType, actor); err != nil {
		return err
	}

	result, err := s.incidents.CompareAndSetTrack(ctx, incidentID, trackType, models.TrackPending, models.TrackAccepted, actor.ID)
	if err != nil {
		log.WithError(err).Error("Compare-and-set failed")
		return fmt.Errorf("service: could not accept track: %w", err)
	}

	switch result {
	case CASOk:
		log.Info("Track accepted")
		s.publishOutcome(ctx, log, fanout.EventClaimOutcome, incidentID, trackType, actor)
		return nil
	case CASConflict:
		claimedBy := s.currentClaimant(ctx, incidentID, trackType)
		log.WithField("claimed_by", claimedBy).Info("Accept lost the race, track already closed")
		return &AlreadyClaimedError{By: claimedBy}
	default:
		return ErrIncidentNotFound
	}
}

// Reject attempts the Pending→Rejected transition. It races against
// concurrent accepts and rejects exactly like two accepts do: whichever
// compare-and-set lands first wins. Rejection is terminal for the whole
// track; the incident leaves every same-type pending queue.
func (s *dispatchService) Reject(ctx context.Context, incidentID uuid.UUID, trackType models.TrackType, actor *models.Organization) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "Reject",
		"incident_id": incidentID,
		"track":       trackType,
		"org_id":      actor.ID,
	})

	if err := validateClaim(trackType, actor); err != nil {
		return err
	}

	result, err := s.incidents.CompareAndSetTrack(ctx, incidentID, trackType, models.TrackPending, models.TrackRejected, actor.ID)
	if err != nil {
		log.WithError(err).Error("Compare-and-set failed")
		return fmt.Errorf("service: could not reject track: %w", err)
	}

	switch result {
	case CASOk:
		log.Info("Track rejected")
		s.publishOutcome(ctx, log, fanout.EventTrackRejected, incidentID, trackType, actor)
		return nil
	case CASConflict:
		claimedBy := s.currentClaimant(ctx, incidentID, trackType)
		log.WithField("claimed_by", claimedBy).Info("Reject lost the race, track already closed")
		return &AlreadyClaimedError{By: claimedBy}
	default:
		return ErrIncidentNotFound
	}
}

// publishOutcome fans the resolved transition out to the actor and every
// organization previously alerted about the track. Runs strictly after
// the transition committed. The whole build-and-enqueue is retried with
// backoff: a partial event (no loser list, no address) would silently
// drop the status-changed notifications, so nothing is published until
// every lookup succeeds.
func (s *dispatchService) publishOutcome(ctx context.Context, log *logrus.Entry, eventType fanout.EventType, incidentID uuid.UUID, trackType models.TrackType, actor *models.Organization) {
	s.withPublishRetry(log, func() error {
		notified, err := s.notifications.ListNotifiedOrgs(ctx, incidentID, actor.Type)
		if err != nil {
			return fmt.Errorf("resolve notified organizations: %w", err)
		}

		incident, err := s.incidents.GetByID(ctx, incidentID)
		if err != nil {
			return fmt.Errorf("load incident: %w", err)
		}

		actorID := actor.ID
		return s.publisher.Publish(ctx, fanout.Event{
			Type:         eventType,
			IncidentID:   incidentID,
			Address:      incident.Address,
			Severity:     incident.Severity,
			Region:       incident.Region,
			Track:        trackType,
			ActorOrgID:   &actorID,
			ActorOrgName: actor.Name,
			NotifiedOrgs: notified,
			OccurredAt:   time.Now().UTC(),
		})
	})
}

// currentClaimant reads who closed the track, for the conflict result.
func (s *dispatchService) currentClaimant(ctx context.Context, incidentID uuid.UUID, trackType models.TrackType) *uuid.UUID {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if !errors.Is(err, ErrIncidentNotFound) {
			s.logger.WithError(err).Warn("Failed to read current claimant after conflict")
		}
		return nil
	}
	return incident.Track(trackType).ClaimedBy
}
