package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svmurthy/accident-dispatch/internal/models"
	"github.com/svmurthy/accident-dispatch/internal/service"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) service.NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification record. Delivery is idempotent: the
// (recipient, incident, kind) unique key absorbs redelivered events, so a
// retried fan-out never produces a duplicate.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (recipient_org_id, incident_id, kind, message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (recipient_org_id, incident_id, kind) DO NOTHING;
	`
	if _, err := r.db.Exec(ctx, query, n.RecipientOrgID, n.IncidentID, n.Kind, n.Message); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListForOrg returns an organization's notifications, newest first.
func (r *NotificationRepository) ListForOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Notification, error) {
	query := `
		SELECT id, recipient_org_id, incident_id, kind, message, is_read, created_at
		FROM notifications
		WHERE recipient_org_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(&n.ID, &n.RecipientOrgID, &n.IncidentID, &n.Kind, &n.Message, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification list: %w", err)
	}
	return notifications, nil
}

// MarkAllRead flags every notification of one organization as read and
// returns the number of rows touched. Other organizations are unaffected.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, orgID uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE recipient_org_id = $1 AND is_read = FALSE;`
	cmdTag, err := r.db.Exec(ctx, query, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// ListNotifiedOrgs returns the organizations of one responder type that
// already received the new-incident notification for an incident. These
// are the parties to inform when the track's claim race resolves.
func (r *NotificationRepository) ListNotifiedOrgs(ctx context.Context, incidentID uuid.UUID, orgType models.OrgType) ([]uuid.UUID, error) {
	query := `
		SELECT n.recipient_org_id
		FROM notifications n
		JOIN responder_organizations o ON o.id = n.recipient_org_id
		WHERE n.incident_id = $1 AND n.kind = $2 AND o.type = $3;
	`
	rows, err := r.db.Query(ctx, query, incidentID, models.KindNewIncident, orgType)
	if err != nil {
		return nil, fmt.Errorf("failed to list notified orgs: %w", err)
	}
	defer rows.Close()

	orgIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notified org row: %w", err)
		}
		orgIDs = append(orgIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notified orgs: %w", err)
	}
	return orgIDs, nil
}
