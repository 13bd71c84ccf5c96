// Package resolve decides which Application a message belongs to. It reads
// existing applications and returns a decision; persisting that decision is
// the orchestrator's commit step, so repeated runs over the same inputs stay
// idempotent.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// Store is the read interface over existing applications.
type Store interface {
	// FindByPortalLink returns the application whose portal link equals the
	// given link, or domain.ErrNotFound.
	FindByPortalLink(ctx context.Context, link string) (domain.Application, error)
	// ListCandidates returns all applications ordered by last_updated
	// descending. The order is the fuzzy-match tie-break.
	ListCandidates(ctx context.Context) ([]domain.Application, error)
}

// DefaultThreshold is the joint similarity an (organization, role) pair must
// meet to count as an existing application.
const DefaultThreshold = 0.80

// Resolver matches extracted entities to existing applications.
type Resolver struct {
	store     Store
	threshold float64
}

func New(store Store, threshold float64) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Resolver{store: store, threshold: threshold}
}

// Run resolves one message. Strategies are attempted in order, first success
// wins: exact portal-link match, joint fuzzy match on organization and role,
// then creation of a new application seeded from the classification.
func (r *Resolver) Run(ctx context.Context, msg domain.RawMessage, ents domain.ExtractedEntities, cls domain.EventClassification) (domain.Resolution, error) {
	if ents.PortalLink != "" {
		app, err := r.store.FindByPortalLink(ctx, ents.PortalLink)
		switch {
		case err == nil:
			return domain.Resolution{Application: app, MatchMethod: domain.MatchPortalLink}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return domain.Resolution{}, fmt.Errorf("resolve by portal link: %w", err)
		}
	}

	if ents.Organization != "" || ents.RoleTitle != "" {
		app, found, err := r.fuzzyMatch(ctx, ents)
		if err != nil {
			return domain.Resolution{}, err
		}
		if found {
			return domain.Resolution{Application: app, MatchMethod: domain.MatchFuzzy}, nil
		}
	}

	return domain.Resolution{
		Application: newApplication(msg, ents, cls),
		IsNew:       true,
		MatchMethod: domain.MatchCreated,
	}, nil
}

func (r *Resolver) fuzzyMatch(ctx context.Context, ents domain.ExtractedEntities) (domain.Application, bool, error) {
	candidates, err := r.store.ListCandidates(ctx)
	if err != nil {
		return domain.Application{}, false, fmt.Errorf("list fuzzy candidates: %w", err)
	}

	var (
		best      domain.Application
		bestScore float64
		found     bool
	)
	for _, cand := range candidates {
		score := JointSimilarity(ents.Organization, ents.RoleTitle, cand.Organization, cand.RoleTitle)
		if score < r.threshold {
			continue
		}
		// Candidates arrive most-recently-updated first, so a strict
		// comparison makes recency the tie-break.
		if !found || score > bestScore {
			best, bestScore, found = cand, score, true
		}
	}
	return best, found, nil
}

// JointSimilarity scores an extracted (organization, role) pair against a
// stored one. Both fields contribute equally; when exactly one extracted
// field is present the score falls back to that field alone, since an absent
// field is missing evidence, not conflicting evidence. The result is rounded
// to four decimals so threshold comparisons are stable at the boundary.
func JointSimilarity(org, role, candOrg, candRole string) float64 {
	switch {
	case org == "" && role == "":
		return 0
	case role == "":
		return round4(Similarity(org, candOrg))
	case org == "":
		return round4(Similarity(role, candRole))
	}
	return round4((Similarity(org, candOrg) + Similarity(role, candRole)) / 2)
}

// Similarity is a normalized edit-distance score in [0,1]. Inputs are
// case-folded with whitespace and punctuation collapsed before comparison.
func Similarity(a, b string) float64 {
	a, b = domain.NormalizeText(a), domain.NormalizeText(b)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// newApplication builds the application a no-match message implies. The
// caller persists it; an identity-keyed upsert there keeps concurrent runs
// from creating duplicates.
func newApplication(msg domain.RawMessage, ents domain.ExtractedEntities, cls domain.EventClassification) domain.Application {
	app := domain.Application{
		ID:            uuid.New(),
		Organization:  ents.Organization,
		RoleTitle:     ents.RoleTitle,
		SourceChannel: ptr("email"),
		FirstSeenDate: msg.ReceivedAt,
		Status:        cls.EventType.ImpliedStatus(),
		LastUpdated:   msg.ReceivedAt,
	}
	if ents.Platform != "" {
		app.Platform = ptr(ents.Platform)
	}
	if ents.PortalLink != "" {
		app.PortalLink = ptr(ents.PortalLink)
	}
	if cls.EventType == domain.EventConfirmation {
		applied := msg.ReceivedAt.Truncate(24 * time.Hour)
		app.AppliedDate = &applied
	}
	return app
}

func ptr[T any](v T) *T { return &v }
