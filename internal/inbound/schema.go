package inbound

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// inboundSchemaJSON is the structural contract for the provider's inbound
// webhook payload. Anything that fails here is rejected before any side
// effect.
const inboundSchemaJSON = `{
	"type": "object",
	"required": ["FromFull", "MessageStream", "ToFull", "Subject", "Headers", "Attachments"],
	"properties": {
		"FromFull": {
			"type": "object",
			"required": ["Email"],
			"properties": {
				"Email": {"type": "string", "format": "email"},
				"Name": {"type": "string"}
			}
		},
		"MessageStream": {"type": "string", "enum": ["inbound"]},
		"ToFull": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["Email"],
				"properties": {
					"Email": {"type": "string", "format": "email"}
				}
			}
		},
		"Subject": {"type": "string"},
		"MailboxHash": {"type": "string"},
		"Headers": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["Name", "Value"],
				"properties": {
					"Name": {"type": "string"},
					"Value": {"type": "string"}
				}
			}
		},
		"TextBody": {"type": "string"},
		"HtmlBody": {"type": "string"},
		"StrippedTextReply": {"type": "string"},
		"Attachments": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["Content", "ContentLength"],
				"properties": {
					"Content": {"type": "string"},
					"ContentLength": {"type": "integer", "minimum": 0},
					"Name": {"type": "string"},
					"ContentType": {"type": "string"}
				}
			}
		}
	}
}`

var inboundSchema = gojsonschema.NewStringLoader(inboundSchemaJSON)

// ParseInbound validates the raw webhook body against the payload schema and
// the inbound domain suffix, returning the parsed message. Validation happens
// fail-fast, before anything downstream can mutate state.
func ParseInbound(raw []byte, inboundDomain string) (*InboundMessage, error) {
	result, err := gojsonschema.Validate(inboundSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("invalid payload: %s", strings.Join(details, "; "))
	}

	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	msg.normalize()

	suffix := "@" + strings.TrimPrefix(inboundDomain, "@")
	for _, to := range msg.ToFull {
		if !strings.HasSuffix(strings.ToLower(to.Email), strings.ToLower(suffix)) {
			return nil, fmt.Errorf("recipient %q is not on inbound domain %s", to.Email, inboundDomain)
		}
	}
	return &msg, nil
}
