package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is one timestamped occurrence, derived from exactly one message,
// affecting an Application's history. Append-only: never updated once written.
type Event struct {
	ID               uuid.UUID
	ApplicationID    uuid.UUID
	EventType        EventType
	EventTime        time.Time
	MessageID        string // unique per event
	Subject          string
	Sender           string
	Confidence       float64
	Entities         ExtractedEntities
	ActionSuggestion string
	FollowUpDate     *time.Time
}

// ProcessedMessage is the ledger entry guaranteeing at-most-once handling.
// One is written for every message reaching the orchestrator, relevant or not.
type ProcessedMessage struct {
	MessageID      string
	ThreadID       string
	ReceivedAt     time.Time
	SenderDomain   string
	Subject        string
	Classification string
	ProcessedAt    time.Time
}
