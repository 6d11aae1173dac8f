// Package inbound implements the webhook ingestion pipeline: payload
// validation, header extraction, destination and thread resolution, subgroup
// classification, and ticket/message/attachment persistence.
package inbound

import "strings"

// AddressFull is the provider's parsed sender address.
type AddressFull struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

// Recipient is one entry of the provider's ToFull list.
type Recipient struct {
	Email string `json:"Email"`
}

// Header is one name/value pair from the provider's normalized header list.
type Header struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Attachment is one base64-encoded attachment from the provider payload.
type Attachment struct {
	Name          string `json:"Name,omitempty"`
	Content       string `json:"Content"`
	ContentType   string `json:"ContentType,omitempty"`
	ContentLength int64  `json:"ContentLength"`
}

// InboundMessage is the provider's inbound webhook payload, reduced to the
// fields the pipeline consumes.
type InboundMessage struct {
	FromFull          AddressFull  `json:"FromFull"`
	MessageStream     string       `json:"MessageStream"`
	ToFull            []Recipient  `json:"ToFull"`
	Subject           string       `json:"Subject"`
	MailboxHash       string       `json:"MailboxHash,omitempty"`
	Headers           []Header     `json:"Headers"`
	TextBody          string       `json:"TextBody,omitempty"`
	HtmlBody          string       `json:"HtmlBody,omitempty"`
	StrippedTextReply string       `json:"StrippedTextReply,omitempty"`
	Attachments       []Attachment `json:"Attachments"`
}

// normalize trims the string fields the pipeline compares or stores, matching
// the provider contract that values may carry incidental whitespace.
func (m *InboundMessage) normalize() {
	m.FromFull.Email = strings.TrimSpace(m.FromFull.Email)
	m.FromFull.Name = strings.TrimSpace(m.FromFull.Name)
	for i := range m.ToFull {
		m.ToFull[i].Email = strings.TrimSpace(m.ToFull[i].Email)
	}
	m.Subject = strings.TrimSpace(m.Subject)
	m.MailboxHash = strings.TrimSpace(m.MailboxHash)
	m.TextBody = strings.TrimSpace(m.TextBody)
	m.HtmlBody = strings.TrimSpace(m.HtmlBody)
	m.StrippedTextReply = strings.TrimSpace(m.StrippedTextReply)
	for i := range m.Attachments {
		m.Attachments[i].Name = strings.TrimSpace(m.Attachments[i].Name)
	}
}
