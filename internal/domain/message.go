package domain

import (
	"strings"
	"time"
)

// RawMessage is one inbound notification message as delivered by the mail
// retrieval layer. It is the pipeline's source of truth and is never mutated.
type RawMessage struct {
	MessageID  string
	ThreadID   string
	Sender     string // full address, possibly "Display Name <user@host>"
	Subject    string
	BodyText   string
	Snippet    string
	ReceivedAt time.Time
}

// SenderAddress returns the bare address part of Sender.
func (m RawMessage) SenderAddress() string {
	s := m.Sender
	if i := strings.LastIndexByte(s, '<'); i >= 0 {
		s = s[i+1:]
		if j := strings.IndexByte(s, '>'); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}

// SenderDomain returns the lowercased domain of the sender address, or ""
// when no address is present.
func (m RawMessage) SenderDomain() string {
	addr := m.SenderAddress()
	i := strings.LastIndexByte(addr, '@')
	if i < 0 || i == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[i+1:])
}

// FilterResult is the relevance filter's verdict. Ephemeral, never persisted.
type FilterResult struct {
	IsRelevant bool
	Reason     FilterReason
	Confidence float64
}

// EventClassification is the classifier's verdict for one message.
type EventClassification struct {
	EventType  EventType
	Confidence float64
}

// ExtractedEntities holds the structured fields pulled from one message.
// Every field is optional; absence is a valid, common outcome. JSON tags are
// the serialized shape stored alongside each event.
type ExtractedEntities struct {
	Organization  string      `json:"organization,omitempty"`
	RoleTitle     string      `json:"role_title,omitempty"`
	RequisitionID string      `json:"requisition_id,omitempty"`
	Platform      string      `json:"platform,omitempty"`
	PortalLink    string      `json:"portal_link,omitempty"`
	KeyDates      []time.Time `json:"key_dates,omitempty"` // chronological as encountered, not deduplicated
	Location      string      `json:"location,omitempty"`
}

// ActionSuggestion is the advisor's user-facing recommendation.
type ActionSuggestion struct {
	Text         string
	FollowUpDate *time.Time
}
