package inbound

import (
	"errors"
	"strings"
)

// ErrMissingMessageID rejects mail that cannot be threaded against later:
// every stored message must be individually addressable.
var ErrMissingMessageID = errors.New("mail did not have a message id")

// Threading carries the identity and threading signals extracted from the
// provider's header list.
type Threading struct {
	// MessageID is this message's transport identity, always present.
	MessageID string
	// InReplyTo is the parent's transport identity, empty for new threads.
	// In-Reply-To and References are equivalent signals; the first header
	// found wins.
	InReplyTo string
	// ReplyTo is the address replies should go to, empty when the sender
	// did not set one.
	ReplyTo string
}

// ExtractThreading scans the header list case-insensitively for message-id,
// in-reply-to/references and reply-to. A missing message-id is a hard error.
func ExtractThreading(headers []Header) (Threading, error) {
	var t Threading
	for _, h := range headers {
		value := normalizeHeaderValue(h.Value)
		if value == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(h.Name)) {
		case "message-id":
			if t.MessageID == "" {
				t.MessageID = value
			}
		case "in-reply-to", "references":
			if t.InReplyTo == "" {
				t.InReplyTo = value
			}
		case "reply-to":
			if t.ReplyTo == "" {
				t.ReplyTo = value
			}
		}
	}
	if t.MessageID == "" {
		return Threading{}, ErrMissingMessageID
	}
	return t, nil
}

// normalizeHeaderValue takes the first whitespace-delimited token and strips
// the RFC 5322 angle brackets. Some providers hand back several addresses or
// ids in one header value; the first one is the threading signal.
func normalizeHeaderValue(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Trim(fields[0], "<>"))
}
