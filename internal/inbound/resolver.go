package inbound

import (
	"context"
	"errors"
	"fmt"

	"github.com/deskmail-io/deskmail/internal/models"
)

// ErrUnknownThreadParent rejects replies whose In-Reply-To does not match any
// stored message: a reply cannot be threaded onto an unknown parent.
var ErrUnknownThreadParent = errors.New("thread parent not found")

// ThreadOutcome is the result of thread resolution. Exactly one of the two
// variants applies to an inbound message; downstream code switches on the
// concrete type and cannot confuse one for the other.
type ThreadOutcome interface {
	threadOutcome()
}

// NewTicket means no threading header was found: this message starts a new
// ticket.
type NewTicket struct{}

// Reply means the message continues an existing thread. TicketID and
// SubgroupID are carried forward from the parent message; ParentID is the
// parent's internal id and becomes this message's in_reply_to.
type Reply struct {
	TicketID   int64
	SubgroupID *string
	ParentID   int64
}

func (NewTicket) threadOutcome() {}
func (Reply) threadOutcome()     {}

type parentLookup interface {
	FindByMessageID(ctx context.Context, messageID, orgID string) (*models.Message, error)
}

// ThreadResolver decides whether an inbound message starts a new ticket or
// continues an existing one.
type ThreadResolver struct {
	messages parentLookup
}

// NewThreadResolver builds a resolver over the given message store.
func NewThreadResolver(messages parentLookup) *ThreadResolver {
	return &ThreadResolver{messages: messages}
}

// Resolve maps the extracted in-reply-to identifier to a thread outcome,
// scoped to the resolved organisation.
func (r *ThreadResolver) Resolve(ctx context.Context, orgID, inReplyTo string) (ThreadOutcome, error) {
	if inReplyTo == "" {
		return NewTicket{}, nil
	}
	parent, err := r.messages.FindByMessageID(ctx, inReplyTo, orgID)
	if err != nil {
		return nil, fmt.Errorf("look up thread parent %q: %w", inReplyTo, err)
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownThreadParent, inReplyTo)
	}
	return Reply{
		TicketID:   parent.TicketID,
		SubgroupID: parent.SubgroupID,
		ParentID:   parent.ID,
	}, nil
}
