package fanout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/svmurthy/accident-dispatch/internal/config"
	"github.com/svmurthy/accident-dispatch/internal/models"
)

// NotificationWriter persists per-organization notification records.
// Implementations must de-duplicate on (recipient, incident, kind) so the
// worker can redeliver events freely.
type NotificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Worker drains the event queue and materializes notifications. If a
// webhook URL is configured, each event is additionally pushed to it with
// an HMAC-SHA256 signature.
type Worker struct {
	redisClient   *redis.Client
	notifications NotificationWriter
	logger        *logrus.Logger
	cfg           *config.Config
	httpClient    *http.Client
}

func NewWorker(redisClient *redis.Client, notifications NotificationWriter, logger *logrus.Logger, cfg *config.Config) *Worker {
	return &Worker{
		redisClient:   redisClient,
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
		httpClient: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
	}
}

// Start launches the queue-draining goroutine. Events move from the
// queue into a processing list before delivery and leave it only after
// delivery ran, so a crash mid-fan-out redelivers the event on the next
// start instead of losing it. It exits when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting fan-out worker...")
	go func() {
		w.recoverInFlight(ctx)
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping fan-out worker.")
				return
			default:
				payload, err := w.redisClient.BRPopLPush(ctx, eventQueueKey, eventProcessingKey, time.Second).Result()
				if err != nil {
					if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
						continue
					}
					w.logger.WithError(err).Error("Failed to pop fan-out event from Redis")
					time.Sleep(w.cfg.PublishBaseDelay)
					continue
				}

				var event Event
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					w.logger.WithError(err).Error("Failed to unmarshal fan-out event, dropping")
					w.ack(ctx, payload)
					continue
				}

				w.processEvent(ctx, event, payload)
				w.ack(ctx, payload)
			}
		}
	}()
}

// recoverInFlight returns events a previous run left in the processing
// list to the queue.
func (w *Worker) recoverInFlight(ctx context.Context) {
	for {
		if _, err := w.redisClient.RPopLPush(ctx, eventProcessingKey, eventQueueKey).Result(); err != nil {
			if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
				w.logger.WithError(err).Error("Failed to recover in-flight fan-out events")
			}
			return
		}
		w.logger.Info("Recovered in-flight fan-out event")
	}
}

// ack removes a handled event from the processing list. Requeued copies
// already live in the queue again by the time this runs, so a crash in
// between only produces a duplicate the notification ledger absorbs.
func (w *Worker) ack(ctx context.Context, payload string) {
	if err := w.redisClient.LRem(ctx, eventProcessingKey, 1, payload).Err(); err != nil {
		w.logger.WithError(err).Error("Failed to remove fan-out event from processing list")
	}
}

func (w *Worker) processEvent(ctx context.Context, event Event, rawPayload string) {
	log := w.logger.WithFields(logrus.Fields{
		"event_type":  event.Type,
		"incident_id": event.IncidentID,
	})
	log.Debug("Processing fan-out event...")

	if err := w.deliverNotifications(ctx, event); err != nil {
		// Requeue the whole envelope; the unique key on notifications
		// makes redelivery safe for recipients already written.
		log.WithError(err).Error("Failed to deliver notifications, requeueing event")
		if pushErr := w.redisClient.LPush(ctx, eventQueueKey, rawPayload).Err(); pushErr != nil {
			log.WithError(pushErr).Error("Failed to requeue fan-out event")
		}
		time.Sleep(w.cfg.PublishBaseDelay)
		return
	}

	w.pushWebhook(ctx, event, rawPayload)
}

func (w *Worker) deliverNotifications(ctx context.Context, event Event) error {
	switch event.Type {
	case EventNewIncident:
		message := fmt.Sprintf("New %s accident reported at %s", event.Severity, event.Address)
		for _, orgID := range append(append([]uuid.UUID{}, event.EligibleMedical...), event.EligiblePolice...) {
			if err := w.write(ctx, orgID, event.IncidentID, models.KindNewIncident, message); err != nil {
				return err
			}
		}
	case EventClaimOutcome:
		won := fmt.Sprintf("You accepted the %s response for the accident at %s", event.Track, event.Address)
		lost := fmt.Sprintf("The %s response for the accident at %s is already handled by %s", event.Track, event.Address, event.ActorOrgName)
		if event.ActorOrgID != nil {
			if err := w.write(ctx, *event.ActorOrgID, event.IncidentID, models.KindClaimWon, won); err != nil {
				return err
			}
		}
		for _, orgID := range event.NotifiedOrgs {
			if event.ActorOrgID != nil && orgID == *event.ActorOrgID {
				continue
			}
			if err := w.write(ctx, orgID, event.IncidentID, models.KindStatusChanged, lost); err != nil {
				return err
			}
		}
	case EventTrackRejected:
		message := fmt.Sprintf("The %s response for the accident at %s was declined by %s", event.Track, event.Address, event.ActorOrgName)
		for _, orgID := range event.NotifiedOrgs {
			if event.ActorOrgID != nil && orgID == *event.ActorOrgID {
				continue
			}
			if err := w.write(ctx, orgID, event.IncidentID, models.KindStatusChanged, message); err != nil {
				return err
			}
		}
	default:
		w.logger.WithField("event_type", event.Type).Warn("Unknown fan-out event type, dropping")
	}
	return nil
}

func (w *Worker) write(ctx context.Context, orgID, incidentID uuid.UUID, kind models.NotificationKind, message string) error {
	return w.notifications.Create(ctx, &models.Notification{
		RecipientOrgID: orgID,
		IncidentID:     incidentID,
		Kind:           kind,
		Message:        message,
	})
}

func (w *Worker) pushWebhook(ctx context.Context, event Event, rawPayload string) {
	log := w.logger.WithFields(logrus.Fields{
		"event_type":  event.Type,
		"incident_id": event.IncidentID,
	})

	if w.cfg.WebhookURL == "" {
		log.Debug("Webhook URL is not configured. Skipping webhook push.")
		return
	}

	maxRetries := w.cfg.WebhookMaxRetries
	baseDelay := w.cfg.WebhookBaseDelay

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewBufferString(rawPayload))
		if err != nil {
			log.WithError(err).Warnf("Failed to create webhook request. Retrying in %v. Retries left: %d", baseDelay, maxRetries-1-i)
			time.Sleep(baseDelay)
			baseDelay *= 2
			continue
		}

		req.Header.Set("Content-Type", "application/json")

		if w.cfg.WebhookSecret != "" {
			signature := generateHMACSHA256(rawPayload, w.cfg.WebhookSecret)
			req.Header.Set("X-Webhook-Signature", signature)
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			log.WithError(err).Warnf("Failed to push webhook. Retrying in %v. Retries left: %d", baseDelay, maxRetries-1-i)
			time.Sleep(baseDelay)
			baseDelay *= 2
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			log.Info("Webhook pushed successfully.")
			return
		}
		log.Warnf("Webhook push failed with status code %d. Retrying in %v. Retries left: %d", resp.StatusCode, baseDelay, maxRetries-1-i)
		time.Sleep(baseDelay)
		baseDelay *= 2
	}

	log.Errorf("Failed to push webhook after %d retries.", maxRetries)
}

// generateHMACSHA256 signs the payload with the shared webhook secret.
func generateHMACSHA256(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
