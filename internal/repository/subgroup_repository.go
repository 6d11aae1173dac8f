package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/deskmail-io/deskmail/internal/database"
	"github.com/deskmail-io/deskmail/internal/models"
)

// SubgroupRepository handles database operations for subgroups.
type SubgroupRepository struct {
	db *sql.DB
}

// NewSubgroupRepository creates a new subgroup repository.
func NewSubgroupRepository(db *sql.DB) *SubgroupRepository {
	return &SubgroupRepository{db: db}
}

// GetForOrg returns the subgroup with the given id if it belongs to the
// organisation, or nil. Scoping by org keeps a forged mailbox hash from
// routing a ticket into another tenant's subgroup.
func (r *SubgroupRepository) GetForOrg(ctx context.Context, id, orgID string) (*models.Subgroup, error) {
	row := r.db.QueryRowContext(ctx, database.ConvertPlaceholders(`
		SELECT id, org_id, name, description, create_time
		FROM subgroups
		WHERE id = $1 AND org_id = $2
	`), id, orgID)
	return scanSubgroup(row)
}

// ListForOrg returns all subgroups of an organisation, the classifier's
// candidate catalogue.
func (r *SubgroupRepository) ListForOrg(ctx context.Context, orgID string) ([]models.Subgroup, error) {
	rows, err := r.db.QueryContext(ctx, database.ConvertPlaceholders(`
		SELECT id, org_id, name, description, create_time
		FROM subgroups
		WHERE org_id = $1
		ORDER BY id
	`), orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subgroups []models.Subgroup
	for rows.Next() {
		var sg models.Subgroup
		var description sql.NullString
		if err := rows.Scan(&sg.ID, &sg.OrgID, &sg.Name, &description, &sg.CreateTime); err != nil {
			return nil, err
		}
		if description.Valid {
			sg.Description = &description.String
		}
		subgroups = append(subgroups, sg)
	}
	return subgroups, rows.Err()
}

func scanSubgroup(row *sql.Row) (*models.Subgroup, error) {
	var sg models.Subgroup
	var description sql.NullString
	if err := row.Scan(&sg.ID, &sg.OrgID, &sg.Name, &description, &sg.CreateTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}
		return nil, err
	}
	if description.Valid {
		sg.Description = &description.String
	}
	return &sg, nil
}
