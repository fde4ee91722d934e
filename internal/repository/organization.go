package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svmurthy/accident-dispatch/internal/models"
	"github.com/svmurthy/accident-dispatch/internal/service"
)

type OrganizationRepository struct {
	db *pgxpool.Pool
}

func NewOrganizationRepository(db *pgxpool.Pool) service.OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create registers a responder organization.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	severities := make([]string, 0, len(org.AlertFilter.Severities))
	for _, s := range org.AlertFilter.Severities {
		severities = append(severities, string(s))
	}

	query := `
		INSERT INTO responder_organizations (type, name, region, filter_severities, filter_region)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		org.Type,
		org.Name,
		org.Region,
		severities,
		org.AlertFilter.Region,
	).Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

const organizationColumns = `id, type, name, region, filter_severities, filter_region, created_at`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	org := &models.Organization{}
	var severities []string
	err := row.Scan(
		&org.ID,
		&org.Type,
		&org.Name,
		&org.Region,
		&severities,
		&org.AlertFilter.Region,
		&org.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, s := range severities {
		org.AlertFilter.Severities = append(org.AlertFilter.Severities, models.Severity(s))
	}
	return org, nil
}

// GetByID returns a single organization.
func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM responder_organizations WHERE id = $1;`
	org, err := scanOrganization(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization by id: %w", err)
	}
	return org, nil
}

// ListByType returns the catalog of organizations of one responder type.
func (r *OrganizationRepository) ListByType(ctx context.Context, orgType models.OrgType) ([]*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM responder_organizations WHERE type = $1 ORDER BY name;`
	return r.list(ctx, query, orgType)
}

// List returns every registered organization.
func (r *OrganizationRepository) List(ctx context.Context) ([]*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM responder_organizations ORDER BY name;`
	return r.list(ctx, query)
}

func (r *OrganizationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Organization, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*models.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization row: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization list: %w", err)
	}
	return orgs, nil
}
