package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/svmurthy/accident-dispatch/internal/config"
	"github.com/svmurthy/accident-dispatch/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type writeKey struct {
	recipient uuid.UUID
	incident  uuid.UUID
	kind      models.NotificationKind
}

// fakeWriter mimics the store's de-duplication on the
// (recipient, incident, kind) key: a duplicate write is a silent no-op.
type fakeWriter struct {
	mu      sync.Mutex
	written map[writeKey]*models.Notification
	failing bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{written: make(map[writeKey]*models.Notification)}
}

func (f *fakeWriter) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return fmt.Errorf("insert failed")
	}
	key := writeKey{recipient: n.RecipientOrgID, incident: n.IncidentID, kind: n.Kind}
	if _, ok := f.written[key]; ok {
		return nil
	}
	f.written[key] = n
	return nil
}

func (f *fakeWriter) get(recipient, incident uuid.UUID, kind models.NotificationKind) *models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written[writeKey{recipient: recipient, incident: incident, kind: kind}]
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func newTestWorker(writer NotificationWriter, cfg *config.Config) *Worker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewWorker(nil, writer, logger, cfg)
}

func TestDeliverNotifications_NewIncident(t *testing.T) {
	writer := newFakeWriter()
	worker := newTestWorker(writer, &config.Config{})

	incidentID := uuid.New()
	hospital := uuid.New()
	police := uuid.New()
	event := Event{
		Type:            EventNewIncident,
		IncidentID:      incidentID,
		Address:         "12 Harbour Road",
		Severity:        models.SeverityCritical,
		Region:          "North",
		EligibleMedical: []uuid.UUID{hospital},
		EligiblePolice:  []uuid.UUID{police},
	}

	require.NoError(t, worker.deliverNotifications(context.Background(), event))

	assert.Equal(t, 2, writer.count())
	n := writer.get(hospital, incidentID, models.KindNewIncident)
	require.NotNil(t, n)
	assert.Equal(t, "New critical accident reported at 12 Harbour Road", n.Message)
	assert.NotNil(t, writer.get(police, incidentID, models.KindNewIncident))
}

func TestDeliverNotifications_ClaimOutcome(t *testing.T) {
	writer := newFakeWriter()
	worker := newTestWorker(writer, &config.Config{})

	incidentID := uuid.New()
	winner := uuid.New()
	loser := uuid.New()
	event := Event{
		Type:         EventClaimOutcome,
		IncidentID:   incidentID,
		Address:      "12 Harbour Road",
		Track:        models.TrackMedical,
		ActorOrgID:   &winner,
		ActorOrgName: "General Hospital",
		NotifiedOrgs: []uuid.UUID{winner, loser},
	}

	require.NoError(t, worker.deliverNotifications(context.Background(), event))

	assert.Equal(t, 2, writer.count())
	won := writer.get(winner, incidentID, models.KindClaimWon)
	require.NotNil(t, won)
	assert.Equal(t, "You accepted the medical response for the accident at 12 Harbour Road", won.Message)

	lost := writer.get(loser, incidentID, models.KindStatusChanged)
	require.NotNil(t, lost)
	assert.Equal(t, "The medical response for the accident at 12 Harbour Road is already handled by General Hospital", lost.Message)

	// The winner never gets a loser notification.
	assert.Nil(t, writer.get(winner, incidentID, models.KindStatusChanged))
}

func TestDeliverNotifications_TrackRejected(t *testing.T) {
	writer := newFakeWriter()
	worker := newTestWorker(writer, &config.Config{})

	incidentID := uuid.New()
	rejecter := uuid.New()
	other := uuid.New()
	event := Event{
		Type:         EventTrackRejected,
		IncidentID:   incidentID,
		Address:      "3 Mill Lane",
		Track:        models.TrackPolice,
		ActorOrgID:   &rejecter,
		ActorOrgName: "North Precinct",
		NotifiedOrgs: []uuid.UUID{rejecter, other},
	}

	require.NoError(t, worker.deliverNotifications(context.Background(), event))

	assert.Equal(t, 1, writer.count())
	n := writer.get(other, incidentID, models.KindStatusChanged)
	require.NotNil(t, n)
	assert.Equal(t, "The police response for the accident at 3 Mill Lane was declined by North Precinct", n.Message)
}

func TestDeliverNotifications_RedeliveryIsIdempotent(t *testing.T) {
	writer := newFakeWriter()
	worker := newTestWorker(writer, &config.Config{})

	event := Event{
		Type:            EventNewIncident,
		IncidentID:      uuid.New(),
		Address:         "12 Harbour Road",
		Severity:        models.SeverityMajor,
		EligibleMedical: []uuid.UUID{uuid.New(), uuid.New()},
	}

	require.NoError(t, worker.deliverNotifications(context.Background(), event))
	require.NoError(t, worker.deliverNotifications(context.Background(), event))

	assert.Equal(t, 2, writer.count())
}

func TestDeliverNotifications_UnknownTypeIsDropped(t *testing.T) {
	writer := newFakeWriter()
	worker := newTestWorker(writer, &config.Config{})

	err := worker.deliverNotifications(context.Background(), Event{Type: EventType("telegram")})

	require.NoError(t, err)
	assert.Zero(t, writer.count())
}

func TestDeliverNotifications_WriteFailure(t *testing.T) {
	writer := newFakeWriter()
	writer.failing = true
	worker := newTestWorker(writer, &config.Config{})

	event := Event{
		Type:            EventNewIncident,
		IncidentID:      uuid.New(),
		EligibleMedical: []uuid.UUID{uuid.New()},
	}

	assert.Error(t, worker.deliverNotifications(context.Background(), event))
}

func TestPushWebhook_SignsPayload(t *testing.T) {
	var (
		mu        sync.Mutex
		signature string
		received  string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		signature = r.Header.Get("X-Webhook-Signature")
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		received = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookSecret:     "test-secret",
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	worker := newTestWorker(newFakeWriter(), cfg)
	defer worker.httpClient.CloseIdleConnections()

	payload := `{"type":"new_incident"}`
	worker.pushWebhook(context.Background(), Event{Type: EventNewIncident}, payload)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, payload, received)
	assert.Equal(t, generateHMACSHA256(payload, "test-secret"), signature)
}

func TestPushWebhook_RetriesOnServerError(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	worker := newTestWorker(newFakeWriter(), cfg)
	defer worker.httpClient.CloseIdleConnections()

	worker.pushWebhook(context.Background(), Event{Type: EventNewIncident}, "{}")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestPushWebhook_SkippedWithoutURL(t *testing.T) {
	worker := newTestWorker(newFakeWriter(), &config.Config{WebhookTimeout: time.Second})

	// Must return immediately without any HTTP activity.
	worker.pushWebhook(context.Background(), Event{Type: EventNewIncident}, "{}")
}

// newQueueWorker wires a worker to an in-process Redis so the queue
// semantics of the drain loop can be exercised end to end.
func newQueueWorker(t *testing.T, writer NotificationWriter) (*Worker, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	cfg := &config.Config{
		WebhookTimeout:   time.Second,
		PublishBaseDelay: time.Millisecond,
	}
	return NewWorker(client, writer, logger, cfg), client, mr
}

func queuePayload(t *testing.T, event Event) string {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return string(payload)
}

func TestWorker_DrainsQueueAndRemovesHandledEvent(t *testing.T) {
	writer := newFakeWriter()
	worker, client, mr := newQueueWorker(t, writer)

	hospital := uuid.New()
	incidentID := uuid.New()
	payload := queuePayload(t, Event{
		Type:            EventNewIncident,
		IncidentID:      incidentID,
		Address:         "12 Harbour Road",
		Severity:        models.SeverityCritical,
		EligibleMedical: []uuid.UUID{hospital},
	})
	require.NoError(t, client.LPush(context.Background(), eventQueueKey, payload).Err())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	require.Eventually(t, func() bool { return writer.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.NotNil(t, writer.get(hospital, incidentID, models.KindNewIncident))

	// The handled event must be gone from both lists: nothing left to
	// replay, nothing stuck in flight.
	require.Eventually(t, func() bool {
		return !mr.Exists(eventQueueKey) && !mr.Exists(eventProcessingKey)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_RedeliversEventLeftInFlight(t *testing.T) {
	writer := newFakeWriter()
	worker, client, mr := newQueueWorker(t, writer)

	hospital := uuid.New()
	incidentID := uuid.New()
	payload := queuePayload(t, Event{
		Type:            EventNewIncident,
		IncidentID:      incidentID,
		Address:         "12 Harbour Road",
		Severity:        models.SeverityMajor,
		EligibleMedical: []uuid.UUID{hospital},
	})

	// A previous run died after popping the event but before writing any
	// notification rows. The payload sits in the processing list.
	require.NoError(t, client.LPush(context.Background(), eventProcessingKey, payload).Err())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	require.Eventually(t, func() bool { return writer.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.NotNil(t, writer.get(hospital, incidentID, models.KindNewIncident))
	require.Eventually(t, func() bool {
		return !mr.Exists(eventQueueKey) && !mr.Exists(eventProcessingKey)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_DropsPoisonPayload(t *testing.T) {
	writer := newFakeWriter()
	worker, client, mr := newQueueWorker(t, writer)

	require.NoError(t, client.LPush(context.Background(), eventQueueKey, "not json").Err())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	require.Eventually(t, func() bool {
		return !mr.Exists(eventQueueKey) && !mr.Exists(eventProcessingKey)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, writer.count())
}
