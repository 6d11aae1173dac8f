package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deskmail-io/deskmail/internal/database"
	"github.com/deskmail-io/deskmail/internal/models"
)

// Queryer is the subset of database operations shared by *sql.DB and *sql.Tx,
// so inserts can run either standalone or inside a transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TicketRepository handles database operations for tickets.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// CreateWithFirstMessage inserts the ticket and its first message in one
// transaction. A ticket must never exist without the message that created
// it, and the message row carries the ticket id, so both inserts settle or
// neither does.
func (r *TicketRepository) CreateWithFirstMessage(ctx context.Context, ticket *models.Ticket, message *models.Message) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin ticket transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ticketID, err := insertTicket(ctx, tx, ticket)
	if err != nil {
		return 0, 0, fmt.Errorf("insert ticket: %w", err)
	}

	message.TicketID = ticketID
	messageID, err := InsertMessage(ctx, tx, message)
	if err != nil {
		return 0, 0, fmt.Errorf("insert first message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit ticket transaction: %w", err)
	}
	ticket.ID = ticketID
	message.ID = messageID
	return ticketID, messageID, nil
}

// GetByID returns the ticket row, or nil when it does not exist.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	row := r.db.QueryRowContext(ctx, database.ConvertPlaceholders(`
		SELECT id, org_id, subgroup_id, from_email, from_name, message_id, title, closed_at, create_time
		FROM tickets
		WHERE id = $1
	`), id)

	var t models.Ticket
	var subgroupID, fromName sql.NullString
	var closedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.OrgID, &subgroupID, &t.From, &fromName, &t.MessageID, &t.Title, &closedAt, &t.CreateTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}
		return nil, err
	}
	if subgroupID.Valid {
		t.SubgroupID = &subgroupID.String
	}
	if fromName.Valid {
		t.FromName = &fromName.String
	}
	if closedAt.Valid {
		t.ClosedAt = &closedAt.Time
	}
	return &t, nil
}

// Reopen clears closed_at on a ticket. A reply to a closed ticket revives it.
func (r *TicketRepository) Reopen(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, database.ConvertPlaceholders(`
		UPDATE tickets SET closed_at = NULL WHERE id = $1
	`), id)
	return err
}

func insertTicket(ctx context.Context, q Queryer, t *models.Ticket) (int64, error) {
	query, hasReturning := database.ConvertReturning(`
		INSERT INTO tickets (org_id, subgroup_id, from_email, from_name, message_id, title)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`)
	query = database.ConvertPlaceholders(query)

	args := []interface{}{
		t.OrgID, nullString(t.SubgroupID), t.From, nullString(t.FromName), t.MessageID, t.Title,
	}
	if hasReturning {
		var id int64
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
