package inbound

import "testing"

func TestParseRecipient(t *testing.T) {
	dest, err := ParseRecipient("acme@support.example.com")
	if err != nil {
		t.Fatalf("ParseRecipient returned error: %v", err)
	}
	if dest.OrgID != "acme" || dest.SubgroupHint != "" {
		t.Fatalf("unexpected destination: %+v", dest)
	}
}

func TestParseRecipientPlusHint(t *testing.T) {
	dest, err := ParseRecipient("acme+billing@support.example.com")
	if err != nil {
		t.Fatalf("ParseRecipient returned error: %v", err)
	}
	if dest.OrgID != "acme" || dest.SubgroupHint != "billing" {
		t.Fatalf("unexpected destination: %+v", dest)
	}
}

func TestParseRecipientSplitsOnFirstPlus(t *testing.T) {
	dest, err := ParseRecipient("acme+billing+urgent@support.example.com")
	if err != nil {
		t.Fatalf("ParseRecipient returned error: %v", err)
	}
	if dest.OrgID != "acme" || dest.SubgroupHint != "billing+urgent" {
		t.Fatalf("unexpected destination: %+v", dest)
	}
}

func TestParseRecipientInvalid(t *testing.T) {
	for _, addr := range []string{"", "no-at-sign", "@support.example.com", "+billing@support.example.com"} {
		if _, err := ParseRecipient(addr); err == nil {
			t.Fatalf("expected error for %q", addr)
		}
	}
}
