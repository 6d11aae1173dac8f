package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPipeline(reg)

	p.Accepted()
	p.Accepted()
	p.Rejected("missing_message_id")
	p.TicketCreated()
	p.Reply()
	p.TicketReopened()
	p.ClassificationFailure()
	p.AttachmentFailure()

	if got := testutil.ToFloat64(p.accepted); got != 2 {
		t.Fatalf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.rejected.WithLabelValues("missing_message_id")); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.ticketsReopened); got != 1 {
		t.Fatalf("reopened = %v, want 1", got)
	}
}

func TestPipelineNilSafe(t *testing.T) {
	var p *Pipeline
	p.Accepted()
	p.Rejected("any")
	p.TicketCreated()
	p.Reply()
	p.TicketReopened()
	p.ClassificationFailure()
	p.AttachmentFailure()
}
