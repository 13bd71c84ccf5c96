package domain

// EventType classifies what lifecycle event a message represents.
type EventType string

const (
	EventRejection    EventType = "rejection"
	EventOffer        EventType = "offer"
	EventInterview    EventType = "interview"
	EventAssessment   EventType = "assessment"
	EventConfirmation EventType = "confirmation"
	EventUpdate       EventType = "update"
	EventOther        EventType = "other"
)

func (t EventType) String() string { return string(t) }

func (t EventType) IsValid() bool {
	switch t {
	case EventRejection, EventOffer, EventInterview, EventAssessment,
		EventConfirmation, EventUpdate, EventOther:
		return true
	}
	return false
}

// eventPriority is the total classification order: later lifecycle stages and
// negative outcomes outrank earlier/positive signals when cues co-occur.
var eventPriority = map[EventType]int{
	EventRejection:    7,
	EventOffer:        6,
	EventInterview:    5,
	EventAssessment:   4,
	EventConfirmation: 3,
	EventUpdate:       2,
	EventOther:        1,
}

// Priority returns the event type's rank in the classification order.
// Higher wins.
func (t EventType) Priority() int { return eventPriority[t] }

// Status is the lifecycle state of an Application.
type Status string

const (
	StatusApplied    Status = "applied"
	StatusInReview   Status = "in_review"
	StatusAssessment Status = "assessment"
	StatusInterview  Status = "interview"
	StatusOffer      Status = "offer"
	StatusRejected   Status = "rejected"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusApplied, StatusInReview, StatusAssessment, StatusInterview,
		StatusOffer, StatusRejected:
		return true
	}
	return false
}

// statusRank mirrors the event priority order so that a lower-priority event
// never regresses an application's status.
var statusRank = map[Status]int{
	StatusApplied:    1,
	StatusInReview:   2,
	StatusAssessment: 3,
	StatusInterview:  4,
	StatusOffer:      5,
	StatusRejected:   6,
}

// Rank returns the status position in the lifecycle order. Higher is later.
func (s Status) Rank() int { return statusRank[s] }

// ImpliedStatus maps an event type to the application status it implies.
func (t EventType) ImpliedStatus() Status {
	switch t {
	case EventRejection:
		return StatusRejected
	case EventOffer:
		return StatusOffer
	case EventInterview:
		return StatusInterview
	case EventAssessment:
		return StatusAssessment
	case EventConfirmation:
		return StatusApplied
	default:
		return StatusInReview
	}
}

// MatchMethod records how a message was resolved to an Application.
type MatchMethod string

const (
	MatchPortalLink MatchMethod = "portal_link"
	MatchFuzzy      MatchMethod = "fuzzy"
	MatchCreated    MatchMethod = "created_new"
)

func (m MatchMethod) String() string { return string(m) }

// FilterReason tags why a message was or was not considered relevant.
type FilterReason string

const (
	ReasonPlatformDomain FilterReason = "platform_domain"
	ReasonKeywords       FilterReason = "keywords"
	ReasonBoth           FilterReason = "domain_and_keywords"
	ReasonNone           FilterReason = "no_indicators"
)

// MessageState is the orchestrator's per-message state machine position.
type MessageState string

const (
	StateReceived          MessageState = "received"
	StateFiltered          MessageState = "filtered"
	StateClassified        MessageState = "classified"
	StateExtracted         MessageState = "extracted"
	StateResolved          MessageState = "resolved"
	StateAdvised           MessageState = "advised"
	StateCommitted         MessageState = "committed"
	StateSkipped           MessageState = "skipped"
	StateSkippedIrrelevant MessageState = "skipped-irrelevant"
)

// LedgerNotRelevant is the classification recorded for messages that the
// relevance filter rejected. Relevant messages record their event type.
const LedgerNotRelevant = "not_job_related"
