package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deskmail-io/deskmail/internal/database"
	"github.com/deskmail-io/deskmail/internal/models"
)

// MessageRepository handles database operations for messages.
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert stores a message row and returns its generated id.
func (r *MessageRepository) Insert(ctx context.Context, m *models.Message) (int64, error) {
	id, err := InsertMessage(ctx, r.db, m)
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

// FindByMessageID returns the message whose transport message_id matches,
// scoped to the organisation. Threading headers only resolve against the
// tenant the mail was addressed to.
func (r *MessageRepository) FindByMessageID(ctx context.Context, messageID, orgID string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, database.ConvertPlaceholders(`
		SELECT id, ticket_id, org_id, subgroup_id, message_id, in_reply_to,
		       from_email, from_name, reply_to, title, text, attachments, create_time
		FROM messages
		WHERE message_id = $1 AND org_id = $2
	`), messageID, orgID)
	return scanMessage(row)
}

// UpdateAttachments replaces the attachment path list on a message row.
func (r *MessageRepository) UpdateAttachments(ctx context.Context, id int64, paths []string) error {
	encoded, err := encodeAttachments(paths)
	if err != nil {
		return fmt.Errorf("encode attachment paths: %w", err)
	}
	_, err = r.db.ExecContext(ctx, database.ConvertPlaceholders(`
		UPDATE messages SET attachments = $1 WHERE id = $2
	`), encoded, id)
	return err
}

// InsertMessage inserts a message row using the given Queryer, so the insert
// can participate in a ticket-creation transaction.
func InsertMessage(ctx context.Context, q Queryer, m *models.Message) (int64, error) {
	encoded, err := encodeAttachments(m.Attachments)
	if err != nil {
		return 0, fmt.Errorf("encode attachment paths: %w", err)
	}

	query, hasReturning := database.ConvertReturning(`
		INSERT INTO messages (ticket_id, org_id, subgroup_id, message_id, in_reply_to,
		                      from_email, from_name, reply_to, title, text, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`)
	query = database.ConvertPlaceholders(query)

	args := []interface{}{
		m.TicketID, m.OrgID, nullString(m.SubgroupID), m.MessageID, nullInt64(m.InReplyTo),
		m.FromEmail, nullString(m.FromName), m.ReplyTo, m.Title, m.Text, encoded,
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

func scanMessage(row *sql.Row) (*models.Message, error) {
	var m models.Message
	var subgroupID, fromName, attachments sql.NullString
	var inReplyTo sql.NullInt64
	err := row.Scan(&m.ID, &m.TicketID, &m.OrgID, &subgroupID, &m.MessageID, &inReplyTo,
		&m.FromEmail, &fromName, &m.ReplyTo, &m.Title, &m.Text, &attachments, &m.CreateTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil
		}
		return nil, err
	}
	if subgroupID.Valid {
		m.SubgroupID = &subgroupID.String
	}
	if fromName.Valid {
		m.FromName = &fromName.String
	}
	if inReplyTo.Valid {
		m.InReplyTo = &inReplyTo.Int64
	}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachment paths: %w", err)
		}
	}
	return &m, nil
}

func encodeAttachments(paths []string) (interface{}, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(paths)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
