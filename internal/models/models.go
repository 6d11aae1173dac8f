package models

import (
	"time"
)

// Organisation represents a tenant. Its ID doubles as the local-part of the
// organisation's inbound support address (<id>@<inbound domain>).
type Organisation struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	OwnerEmail string    `json:"owner_email" db:"owner_email"`
	CreateTime time.Time `json:"create_time" db:"create_time"`
}

// Subgroup is a routing sub-division of an organisation (a team). The
// description feeds AI classification; subgroups without one can still be
// targeted via plus-addressing.
type Subgroup struct {
	ID          string    `json:"id" db:"id"`
	OrgID       string    `json:"org_id" db:"org_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreateTime  time.Time `json:"create_time" db:"create_time"`
}

// Ticket is one customer conversation. MessageID is the transport identity of
// the first message in the thread. ClosedAt is nil while the ticket is open;
// a reply arriving on a closed ticket clears it (reopen).
type Ticket struct {
	ID         int64      `json:"id" db:"id"`
	OrgID      string     `json:"org_id" db:"org_id"`
	SubgroupID *string    `json:"subgroup_id,omitempty" db:"subgroup_id"`
	From       string     `json:"from" db:"from_email"`
	FromName   *string    `json:"from_name,omitempty" db:"from_name"`
	MessageID  string     `json:"message_id" db:"message_id"`
	Title      string     `json:"title" db:"title"`
	ClosedAt   *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreateTime time.Time  `json:"create_time" db:"create_time"`
}

// IsClosed reports whether the ticket is currently closed.
func (t *Ticket) IsClosed() bool {
	return t != nil && t.ClosedAt != nil
}

// Message is one inbound email within a ticket thread. MessageID is the
// globally unique transport identity; InReplyTo references the parent
// message's internal id, not its transport id. OrgID and SubgroupID are
// denormalized from the owning ticket for query efficiency.
type Message struct {
	ID          int64     `json:"id" db:"id"`
	TicketID    int64     `json:"ticket_id" db:"ticket_id"`
	OrgID       string    `json:"org_id" db:"org_id"`
	SubgroupID  *string   `json:"subgroup_id,omitempty" db:"subgroup_id"`
	MessageID   string    `json:"message_id" db:"message_id"`
	InReplyTo   *int64    `json:"in_reply_to,omitempty" db:"in_reply_to"`
	FromEmail   string    `json:"from_email" db:"from_email"`
	FromName    *string   `json:"from_name,omitempty" db:"from_name"`
	ReplyTo     string    `json:"reply_to" db:"reply_to"`
	Title       string    `json:"title" db:"title"`
	Text        string    `json:"text" db:"text"`
	Attachments []string  `json:"attachments,omitempty" db:"attachments"`
	CreateTime  time.Time `json:"create_time" db:"create_time"`
}
