package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/deskmail-io/deskmail/internal/database"
	"github.com/deskmail-io/deskmail/internal/models"
)

// OrganisationRepository handles database operations for organisations.
type OrganisationRepository struct {
	db *sql.DB
}

// NewOrganisationRepository creates a new organisation repository.
func NewOrganisationRepository(db *sql.DB) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

// Exists reports whether exactly one organisation with the given id exists.
// Inbound mail addressed to anything else has no owner and is rejected.
func (r *OrganisationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	q := database.ConvertPlaceholders("SELECT COUNT(*) FROM organisations WHERE id = $1")
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&count); err != nil {
		return false, err
	}
	return count == 1, nil
}

// GetByID returns the organisation row, or nil when it does not exist.
func (r *OrganisationRepository) GetByID(ctx context.Context, id string) (*models.Organisation, error) {
	row := r.db.QueryRowContext(ctx, database.ConvertPlaceholders(`
		SELECT id, name, owner_email, create_time
		FROM organisations
		WHERE id = $1
	`), id)
	var org models.Organisation
	if err := row.Scan(&org.ID, &org.Name, &org.OwnerEmail, &org.CreateTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}
		return nil, err
	}
	return &org, nil
}
