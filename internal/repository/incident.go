package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/svmurthy/accident-dispatch/internal/models"
	"github.com/svmurthy/accident-dispatch/internal/service"
)

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create inserts an incident together with its two pending tracks in one
// transaction. A replayed incident id maps to service.ErrDuplicateIncident.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO incidents (id, address, location, region, severity, description, evidence_ref, detected_at)
		VALUES ($1, $2, CASE WHEN $3::float8 IS NULL THEN NULL ELSE ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography END, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at;
	`
	err = tx.QueryRow(ctx, query,
		incident.ID,
		incident.Address,
		incident.Longitude,
		incident.Latitude,
		incident.Region,
		incident.Severity,
		incident.Description,
		incident.EvidenceRef,
		incident.DetectedAt,
	).Scan(&incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return service.ErrDuplicateIncident
		}
		return fmt.Errorf("failed to create incident: %w", err)
	}

	trackQuery := `
		INSERT INTO response_tracks (incident_id, track_type, status)
		VALUES ($1, $2, 'pending'), ($1, $3, 'pending');
	`
	if _, err := tx.Exec(ctx, trackQuery, incident.ID, models.TrackMedical, models.TrackPolice); err != nil {
		return fmt.Errorf("failed to create response tracks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit incident creation: %w", err)
	}

	incident.MedicalTrack = models.ResponseTrack{Status: models.TrackPending}
	incident.PoliceTrack = models.ResponseTrack{Status: models.TrackPending}
	return nil
}

const incidentColumns = `
	i.id,
	i.address,
	ST_Y(i.location::geometry) as latitude,
	ST_X(i.location::geometry) as longitude,
	i.region,
	i.severity,
	i.description,
	i.evidence_ref,
	i.detected_at,
	i.created_at,
	i.updated_at
`

func (r *IncidentRepository) scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Address,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Region,
		&incident.Severity,
		&incident.Description,
		&incident.EvidenceRef,
		&incident.DetectedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// GetByID returns an incident with both tracks populated.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE i.id = $1;`

	incident, err := r.scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}

	if err := r.loadTracks(ctx, map[uuid.UUID]*models.Incident{incident.ID: incident}); err != nil {
		return nil, err
	}
	return incident, nil
}

// ListForOrg returns incidents the organization is eligible for (alert
// filter evaluated against severity and region) or already a party to,
// newest first.
func (r *IncidentRepository) ListForOrg(ctx context.Context, org *models.Organization) ([]*models.Incident, error) {
	severities := make([]string, 0, len(org.AlertFilter.Severities))
	for _, s := range org.AlertFilter.Severities {
		severities = append(severities, string(s))
	}

	query := `
		SELECT ` + incidentColumns + `
		FROM incidents i
		JOIN response_tracks t ON t.incident_id = i.id AND t.track_type = $1
		WHERE t.claimed_by = $2
			OR (
				($3 = 'All' OR i.region = $3)
				AND (cardinality($4::text[]) = 0 OR i.severity = ANY($4::text[]))
			)
		ORDER BY i.detected_at DESC;
	`
	rows, err := r.db.Query(ctx, query,
		org.Type.Track(),
		org.ID,
		org.AlertFilter.Region,
		severities,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents for org: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.Incident)
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := r.scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
		byID[incident.ID] = incident
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incident list: %w", err)
	}

	if err := r.loadTracks(ctx, byID); err != nil {
		return nil, err
	}
	return incidents, nil
}

func (r *IncidentRepository) loadTracks(ctx context.Context, byID map[uuid.UUID]*models.Incident) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := `
		SELECT incident_id, track_type, status, claimed_by, claimed_at
		FROM response_tracks
		WHERE incident_id = ANY($1);
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load response tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			incidentID uuid.UUID
			trackType  models.TrackType
			track      models.ResponseTrack
		)
		if err := rows.Scan(&incidentID, &trackType, &track.Status, &track.ClaimedBy, &track.ClaimedAt); err != nil {
			return fmt.Errorf("failed to scan response track row: %w", err)
		}
		if incident, ok := byID[incidentID]; ok {
			*incident.Track(trackType) = track
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating response tracks: %w", err)
	}
	return nil
}

// CompareAndSetTrack is the single mutation primitive for track state: a
// conditional UPDATE that lands only if the track still has the expected
// status. The database row is the serialization point for racing claims.
func (r *IncidentRepository) CompareAndSetTrack(
	ctx context.Context,
	incidentID uuid.UUID,
	trackType models.TrackType,
	expected, next models.TrackStatus,
	actorOrgID uuid.UUID,
) (service.CASResult, error) {
	query := `
		UPDATE response_tracks
		SET status = $4, claimed_by = $5, claimed_at = NOW()
		WHERE incident_id = $1 AND track_type = $2 AND status = $3;
	`
	cmdTag, err := r.db.Exec(ctx, query, incidentID, trackType, expected, next, actorOrgID)
	if err != nil {
		return service.CASNotFound, fmt.Errorf("failed to compare-and-set track: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		// Stale cache ages out via TTL; the transition itself is final.
		_ = r.InvalidateIncidentCache(ctx, incidentID)
		return service.CASOk, nil
	}

	// No row moved: the track either lost the race or does not exist.
	var exists bool
	checkQuery := `SELECT EXISTS (SELECT 1 FROM response_tracks WHERE incident_id = $1 AND track_type = $2);`
	if err := r.db.QueryRow(ctx, checkQuery, incidentID, trackType).Scan(&exists); err != nil {
		return service.CASNotFound, fmt.Errorf("failed to check track existence: %w", err)
	}
	if exists {
		return service.CASConflict, nil
	}
	return service.CASNotFound, nil
}

// ResolveRegion maps a coordinate to the nearest district.
func (r *IncidentRepository) ResolveRegion(ctx context.Context, lat, lng float64) (string, error) {
	query := `
		SELECT name
		FROM districts
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		LIMIT 1;
	`
	var name string
	err := r.db.QueryRow(ctx, query, lng, lat).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RegionUnknown, nil
		}
		return "", fmt.Errorf("failed to resolve region: %w", err)
	}
	return name, nil
}

// CountStuckTracks counts pending tracks that no registered organization
// is eligible for. Such tracks can never transition through normal means
// and are surfaced operationally rather than treated as errors.
func (r *IncidentRepository) CountStuckTracks(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM response_tracks t
		JOIN incidents i ON i.id = t.incident_id
		WHERE t.status = 'pending'
			AND NOT EXISTS (
				SELECT 1
				FROM responder_organizations o
				WHERE ((o.type = 'hospital' AND t.track_type = 'medical')
					OR (o.type = 'police' AND t.track_type = 'police'))
					AND (o.filter_region = 'All' OR o.filter_region = i.region)
					AND (cardinality(o.filter_severities) = 0 OR i.severity = ANY(o.filter_severities))
			);
	`
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stuck tracks: %w", err)
	}
	return count, nil
}

// GetIncidentFromCache tries to fetch an incident from Redis.
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache stores an incident in Redis.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache removes an incident from the Redis cache.
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
