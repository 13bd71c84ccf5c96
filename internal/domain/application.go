package domain

import (
	"time"

	"github.com/google/uuid"
)

// Application tracks one candidate's pursuit of one role at one organization.
// Created only by the resolver when no match is found; mutated by every
// subsequently resolved event.
type Application struct {
	ID            uuid.UUID
	Organization  string
	RoleTitle     string
	Platform      *string
	SourceChannel *string
	AppliedDate   *time.Time
	FirstSeenDate time.Time
	Status        Status
	LastUpdated   time.Time
	PortalLink    *string
	Notes         *string
}

// IdentityKey returns the normalized (organization, role, platform) triple
// that uniquely identifies an application.
func (a Application) IdentityKey() (org, role, platform string) {
	org = NormalizeText(a.Organization)
	role = NormalizeText(a.RoleTitle)
	if a.Platform != nil {
		platform = NormalizeText(*a.Platform)
	}
	return org, role, platform
}

// Resolution is the resolver's decision for one message: which application
// the message belongs to, and whether it had to be created.
type Resolution struct {
	Application Application
	IsNew       bool
	MatchMethod MatchMethod
}
