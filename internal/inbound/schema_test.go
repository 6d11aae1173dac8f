package inbound

import (
	"strings"
	"testing"
)

const validPayload = `{
	"FromFull": {"Email": "jane@example.com", "Name": "Jane"},
	"MessageStream": "inbound",
	"ToFull": [{"Email": "acme@support.example.com"}],
	"Subject": "Refund request",
	"MailboxHash": "",
	"Headers": [{"Name": "Message-ID", "Value": "<abc@mail>"}],
	"TextBody": "I would like my money back.",
	"Attachments": []
}`

func TestParseInboundValid(t *testing.T) {
	msg, err := ParseInbound([]byte(validPayload), "support.example.com")
	if err != nil {
		t.Fatalf("ParseInbound returned error: %v", err)
	}
	if msg.FromFull.Email != "jane@example.com" {
		t.Fatalf("unexpected sender: %q", msg.FromFull.Email)
	}
	if msg.Subject != "Refund request" {
		t.Fatalf("unexpected subject: %q", msg.Subject)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Name != "Message-ID" {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}
}

func TestParseInboundMalformedJSON(t *testing.T) {
	if _, err := ParseInbound([]byte(`{"FromFull":`), "support.example.com"); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestParseInboundMissingRequiredField(t *testing.T) {
	body := strings.Replace(validPayload, `"MessageStream": "inbound",`, "", 1)
	if _, err := ParseInbound([]byte(body), "support.example.com"); err == nil {
		t.Fatal("expected error for missing MessageStream")
	}
}

func TestParseInboundWrongStream(t *testing.T) {
	body := strings.Replace(validPayload, `"inbound"`, `"outbound"`, 1)
	if _, err := ParseInbound([]byte(body), "support.example.com"); err == nil {
		t.Fatal("expected error for non-inbound stream")
	}
}

func TestParseInboundEmptyRecipients(t *testing.T) {
	body := strings.Replace(validPayload, `[{"Email": "acme@support.example.com"}]`, `[]`, 1)
	if _, err := ParseInbound([]byte(body), "support.example.com"); err == nil {
		t.Fatal("expected error for empty ToFull")
	}
}

func TestParseInboundOffDomainRecipient(t *testing.T) {
	_, err := ParseInbound([]byte(validPayload), "other-domain.example.com")
	if err == nil {
		t.Fatal("expected error for recipient outside the inbound domain")
	}
	if !strings.Contains(err.Error(), "inbound domain") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseInboundDomainCaseInsensitive(t *testing.T) {
	if _, err := ParseInbound([]byte(validPayload), "Support.Example.COM"); err != nil {
		t.Fatalf("domain matching must be case-insensitive: %v", err)
	}
}

func TestParseInboundNegativeContentLength(t *testing.T) {
	body := strings.Replace(validPayload, `"Attachments": []`,
		`"Attachments": [{"Name": "a.txt", "Content": "aGk=", "ContentType": "text/plain", "ContentLength": -1}]`, 1)
	if _, err := ParseInbound([]byte(body), "support.example.com"); err == nil {
		t.Fatal("expected error for negative ContentLength")
	}
}

func TestParseInboundNormalizesWhitespace(t *testing.T) {
	body := strings.Replace(validPayload, `"Subject": "Refund request"`, `"Subject": "  Refund request  "`, 1)
	msg, err := ParseInbound([]byte(body), "support.example.com")
	if err != nil {
		t.Fatalf("ParseInbound returned error: %v", err)
	}
	if msg.Subject != "Refund request" {
		t.Fatalf("expected trimmed subject, got %q", msg.Subject)
	}
}
