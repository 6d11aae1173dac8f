package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline holds the counters the ingestion pipeline reports into. All
// methods are nil-safe so wiring metrics stays optional in tests.
type Pipeline struct {
	accepted               prometheus.Counter
	rejected               *prometheus.CounterVec
	ticketsCreated         prometheus.Counter
	replies                prometheus.Counter
	ticketsReopened        prometheus.Counter
	classificationFailures prometheus.Counter
	attachmentFailures     prometheus.Counter
}

// NewPipeline registers the pipeline counters on the given registerer.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskmail_inbound_accepted_total",
			Help: "Inbound emails fully processed.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskmail_inbound_rejected_total",
			Help: "Inbound emails rejected, by reason.",
		}, []string{"reason"}),
		ticketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskmail_tickets_created_total",
			Help: "New tickets created from inbound email.",
		}),
		replies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskmail_replies_total",
			Help: "Inbound emails threaded onto existing tickets.",
		}),
		ticketsReopened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskmail_tickets_reopened_total",
			Help: "Closed tickets reopened by a reply.",
		}),
		classificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskmail_classification_failures_total",
			Help: "Subgroup classification attempts that yielded no subgroup.",
		}),
		attachmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskmail_attachment_failures_total",
			Help: "Attachment uploads dropped after a storage failure.",
		}),
	}
	if reg != nil {
		reg.MustRegister(p.accepted, p.rejected, p.ticketsCreated, p.replies,
			p.ticketsReopened, p.classificationFailures, p.attachmentFailures)
	}
	return p
}

// Accepted counts a fully processed inbound email.
func (p *Pipeline) Accepted() {
	if p != nil {
		p.accepted.Inc()
	}
}

// Rejected counts a rejected inbound email with the given reason label.
func (p *Pipeline) Rejected(reason string) {
	if p != nil {
		p.rejected.WithLabelValues(reason).Inc()
	}
}

// TicketCreated counts a new ticket.
func (p *Pipeline) TicketCreated() {
	if p != nil {
		p.ticketsCreated.Inc()
	}
}

// Reply counts a message threaded onto an existing ticket.
func (p *Pipeline) Reply() {
	if p != nil {
		p.replies.Inc()
	}
}

// TicketReopened counts a reopen transition.
func (p *Pipeline) TicketReopened() {
	if p != nil {
		p.ticketsReopened.Inc()
	}
}

// ClassificationFailure counts a classification attempt with no usable result.
func (p *Pipeline) ClassificationFailure() {
	if p != nil {
		p.classificationFailures.Inc()
	}
}

// AttachmentFailure counts a dropped attachment upload.
func (p *Pipeline) AttachmentFailure() {
	if p != nil {
		p.attachmentFailures.Inc()
	}
}
