package inbound

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/deskmail-io/deskmail/internal/classifier"
	"github.com/deskmail-io/deskmail/internal/metrics"
	"github.com/deskmail-io/deskmail/internal/models"
	"github.com/deskmail-io/deskmail/internal/storage"
	"github.com/deskmail-io/deskmail/internal/utils"
)

// ErrUnknownOrganisation rejects mail addressed to a local part that does not
// resolve to exactly one organisation. There is no mailbox to bounce to, so
// the provider sees a hard failure.
var ErrUnknownOrganisation = errors.New("organisation not found")

const untitledTicket = "Untitled"

type organisationStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type subgroupStore interface {
	GetForOrg(ctx context.Context, id, orgID string) (*models.Subgroup, error)
	ListForOrg(ctx context.Context, orgID string) ([]models.Subgroup, error)
}

type ticketStore interface {
	CreateWithFirstMessage(ctx context.Context, ticket *models.Ticket, message *models.Message) (int64, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	Reopen(ctx context.Context, id int64) error
}

type messageStore interface {
	FindByMessageID(ctx context.Context, messageID, orgID string) (*models.Message, error)
	Insert(ctx context.Context, m *models.Message) (int64, error)
	UpdateAttachments(ctx context.Context, id int64, paths []string) error
}

type subgroupClassifier interface {
	Classify(ctx context.Context, req classifier.Request) (string, bool)
}

// Result reports what the pipeline did with one inbound message.
type Result struct {
	Action          string // "new_ticket" or "reply"
	TicketID        int64
	MessageID       int64
	SubgroupID      *string
	Reopened        bool
	AttachmentPaths []string
}

// Processor runs the ingestion pipeline for one inbound webhook payload at a
// time. All collaborators are injected; the processor owns no connections.
type Processor struct {
	orgs       organisationStore
	subgroups  subgroupStore
	tickets    ticketStore
	messages   messageStore
	resolver   *ThreadResolver
	classifier subgroupClassifier
	blobs      storage.Backend
	logger     *log.Logger
	metrics    *metrics.Pipeline
}

// Option customizes the Processor.
type Option func(*Processor)

// NewProcessor builds the pipeline over the given stores.
func NewProcessor(orgs organisationStore, subgroups subgroupStore, tickets ticketStore, messages messageStore, opts ...Option) *Processor {
	p := &Processor{
		orgs:      orgs,
		subgroups: subgroups,
		tickets:   tickets,
		messages:  messages,
		resolver:  NewThreadResolver(messages),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// WithClassifier wires the AI subgroup classifier. Without one, unhinted new
// tickets stay ungrouped.
func WithClassifier(c subgroupClassifier) Option {
	return func(p *Processor) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithBlobStorage wires the attachment blob store. Without one, attachments
// are dropped.
func WithBlobStorage(b storage.Backend) Option {
	return func(p *Processor) {
		if b != nil {
			p.blobs = b
		}
	}
}

// WithLogger overrides the logger used for diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics wires the pipeline counters.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// Process runs the full pipeline for one validated inbound message. Any
// returned error means nothing user-visible was persisted for a new thread;
// advisory failures (classification, reopen, individual attachments) are
// logged and absorbed.
func (p *Processor) Process(ctx context.Context, msg *InboundMessage) (Result, error) {
	threading, err := ExtractThreading(msg.Headers)
	if err != nil {
		p.metrics.Rejected("missing_message_id")
		return Result{}, err
	}
	replyTo := threading.ReplyTo
	if replyTo == "" {
		replyTo = msg.FromFull.Email
	}

	dest, err := ParseRecipient(msg.ToFull[0].Email)
	if err != nil {
		p.metrics.Rejected("bad_recipient")
		return Result{}, err
	}
	ok, err := p.orgs.Exists(ctx, dest.OrgID)
	if err != nil {
		return Result{}, fmt.Errorf("look up organisation %q: %w", dest.OrgID, err)
	}
	if !ok {
		p.metrics.Rejected("unknown_organisation")
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOrganisation, dest.OrgID)
	}

	outcome, err := p.resolver.Resolve(ctx, dest.OrgID, threading.InReplyTo)
	if err != nil {
		p.metrics.Rejected("unknown_thread_parent")
		return Result{}, err
	}

	message := &models.Message{
		OrgID:     dest.OrgID,
		MessageID: threading.MessageID,
		FromEmail: msg.FromFull.Email,
		FromName:  optional(msg.FromFull.Name),
		ReplyTo:   replyTo,
		Title:     msg.Subject,
	}

	var res Result
	switch o := outcome.(type) {
	case Reply:
		message.Text = selectBody(msg, true)
		message.TicketID = o.TicketID
		message.SubgroupID = o.SubgroupID
		parentID := o.ParentID
		message.InReplyTo = &parentID

		res.Reopened = p.maybeReopen(ctx, o.TicketID)
		if _, err := p.messages.Insert(ctx, message); err != nil {
			return Result{}, fmt.Errorf("insert message: %w", err)
		}
		res.Action = "reply"
		res.TicketID = o.TicketID
		p.metrics.Reply()

	case NewTicket:
		message.Text = selectBody(msg, false)
		message.SubgroupID = p.resolveSubgroup(ctx, msg, dest, message.Text)

		title := msg.Subject
		if title == "" {
			title = untitledTicket
		}
		ticket := &models.Ticket{
			OrgID:      dest.OrgID,
			SubgroupID: message.SubgroupID,
			From:       msg.FromFull.Email,
			FromName:   message.FromName,
			MessageID:  threading.MessageID,
			Title:      title,
		}
		if _, _, err := p.tickets.CreateWithFirstMessage(ctx, ticket, message); err != nil {
			return Result{}, fmt.Errorf("create ticket: %w", err)
		}
		res.Action = "new_ticket"
		res.TicketID = ticket.ID
		p.metrics.TicketCreated()

	default:
		return Result{}, fmt.Errorf("unexpected thread outcome %T", outcome)
	}

	res.MessageID = message.ID
	res.SubgroupID = message.SubgroupID

	if paths := p.storeAttachments(ctx, dest.OrgID, res.TicketID, message.ID, msg.Attachments); len(paths) > 0 {
		if err := p.messages.UpdateAttachments(ctx, message.ID, paths); err != nil {
			// The blobs are stored but unreferenced; losing the paths is
			// less harmful than failing the whole message.
			p.logf("inbound: attachment path update failed for message %d: %v", message.ID, err)
		} else {
			res.AttachmentPaths = paths
		}
	}

	p.metrics.Accepted()
	return res, nil
}

// selectBody picks the stored text. Replies prefer the provider's stripped
// reply-only text; both paths fall back from raw text to tag-stripped HTML.
func selectBody(msg *InboundMessage, isReply bool) string {
	if isReply && msg.StrippedTextReply != "" {
		return msg.StrippedTextReply
	}
	if msg.TextBody != "" {
		return msg.TextBody
	}
	if msg.HtmlBody != "" {
		return utils.StripHTML(msg.HtmlBody)
	}
	return ""
}

// maybeReopen clears closed_at when the parent ticket is closed. Best-effort:
// losing the reopen is less harmful than losing the message.
func (p *Processor) maybeReopen(ctx context.Context, ticketID int64) bool {
	ticket, err := p.tickets.GetByID(ctx, ticketID)
	if err != nil {
		p.logf("inbound: ticket lookup failed for reopen check on %d: %v", ticketID, err)
		return false
	}
	if !ticket.IsClosed() {
		return false
	}
	if err := p.tickets.Reopen(ctx, ticketID); err != nil {
		p.logf("inbound: reopen failed for ticket %d: %v", ticketID, err)
		return false
	}
	p.metrics.TicketReopened()
	return true
}

// resolveSubgroup implements two-tier subgroup resolution for new tickets:
// an explicit mailbox hint wins, otherwise the AI classifier picks from the
// organisation's catalogue. Both tiers are advisory.
func (p *Processor) resolveSubgroup(ctx context.Context, msg *InboundMessage, dest Destination, body string) *string {
	for _, hint := range []string{msg.MailboxHash, dest.SubgroupHint} {
		if hint == "" {
			continue
		}
		sg, err := p.subgroups.GetForOrg(ctx, hint, dest.OrgID)
		if err != nil {
			p.logf("inbound: subgroup hint lookup failed for %q: %v", hint, err)
			continue
		}
		if sg != nil {
			return &sg.ID
		}
		p.logf("inbound: subgroup hint %q does not belong to organisation %q", hint, dest.OrgID)
	}

	if p.classifier == nil {
		return nil
	}
	subgroups, err := p.subgroups.ListForOrg(ctx, dest.OrgID)
	if err != nil {
		p.logf("inbound: subgroup catalogue fetch failed for %q: %v", dest.OrgID, err)
		p.metrics.ClassificationFailure()
		return nil
	}
	if len(subgroups) == 0 {
		return nil
	}
	id, ok := p.classifier.Classify(ctx, classifier.Request{
		Subject:   msg.Subject,
		Body:      body,
		Subgroups: subgroups,
	})
	if !ok {
		p.metrics.ClassificationFailure()
		return nil
	}
	return &id
}

// storeAttachments decodes and uploads each attachment concurrently, joining
// before returning the paths that stored successfully. A failed upload is
// logged and dropped; it never fails the message.
func (p *Processor) storeAttachments(ctx context.Context, orgID string, ticketID, messageID int64, attachments []Attachment) []string {
	if len(attachments) == 0 || p.blobs == nil {
		return nil
	}

	stored := make([]string, len(attachments))
	var wg sync.WaitGroup
	for i, att := range attachments {
		wg.Add(1)
		go func(index int, att Attachment) {
			defer wg.Done()
			path, err := p.storeAttachment(ctx, orgID, ticketID, messageID, index, att)
			if err != nil {
				p.logf("inbound: attachment %d (%s) dropped for message %d: %v", index, att.Name, messageID, err)
				p.metrics.AttachmentFailure()
				return
			}
			stored[index] = path
		}(i, att)
	}
	wg.Wait()

	paths := make([]string, 0, len(stored))
	for _, path := range stored {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

func (p *Processor) storeAttachment(ctx context.Context, orgID string, ticketID, messageID int64, index int, att Attachment) (string, error) {
	content, err := base64.StdEncoding.DecodeString(att.Content)
	if err != nil {
		return "", fmt.Errorf("decode content: %w", err)
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	blob := storage.Blob{
		Content:     content,
		ContentType: contentType,
	}
	if att.Name != "" {
		blob.Metadata = map[string]string{"filename": att.Name}
	}
	return p.blobs.Store(ctx, storage.AttachmentPath(orgID, ticketID, messageID, index), blob)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (p *Processor) logf(format string, args ...any) {
	if p == nil || p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}
