// Package filter decides whether an inbound message is about a job
// application at all.
package filter

import (
	"regexp"
	"strings"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/platform"
)

// keywords are weak single-cue signals. Two or more must appear before the
// keyword signal alone marks a message relevant.
var keywords = []string{
	"application",
	"thank you for applying",
	"unfortunately",
	"interview",
	"assessment",
	"coding challenge",
	"technical challenge",
	"offer",
	"congratulations",
	"position",
	"role",
	"candidate",
	"requisition",
	"applied to",
	"application received",
	"not moving forward",
	"next steps",
	"schedule",
	"rejected",
	"declined",
}

// phrasePatterns are stronger multi-word cues; each match counts as a keyword hit.
var phrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`application\s+(to|for|at)`),
	regexp.MustCompile(`thank\s+you\s+for\s+(applying|your\s+application)`),
	regexp.MustCompile(`interview\s+(invitation|scheduled|request)`),
	regexp.MustCompile(`coding\s+(challenge|assessment|test)`),
	regexp.MustCompile(`technical\s+(interview|assessment|challenge)`),
	regexp.MustCompile(`position\s+at`),
	regexp.MustCompile(`role\s+at`),
}

// minKeywordHits is how many keyword cues must co-occur for the keyword
// signal alone to establish relevance.
const minKeywordHits = 2

// bodyWindow bounds how much of the body participates in keyword scanning.
const bodyWindow = 500

// Filter is the relevance stage. Pure: no side effects, total over missing
// fields.
type Filter struct {
	platforms *platform.Table
}

// New creates a Filter using the given platform table for the sender-domain
// signal.
func New(platforms *platform.Table) *Filter {
	return &Filter{platforms: platforms}
}

// Run combines two independent signals: sender-domain membership in the
// platform allow-list and job keyword presence in subject/snippet/body.
// Either signal alone is sufficient; confidence is higher when both agree.
func (f *Filter) Run(msg domain.RawMessage) domain.FilterResult {
	text := combinedText(msg)

	domainScore := f.domainScore(msg.SenderDomain())
	hits := keywordHits(text)

	domainSignal := domainScore > 0
	keywordSignal := hits >= minKeywordHits

	confidence := domainScore*0.6 + float64(hits)*0.1
	if confidence > 1.0 {
		confidence = 1.0
	}

	var reason domain.FilterReason
	switch {
	case domainSignal && hits > 0:
		reason = domain.ReasonBoth
	case domainSignal:
		reason = domain.ReasonPlatformDomain
	case keywordSignal:
		reason = domain.ReasonKeywords
	default:
		reason = domain.ReasonNone
	}

	return domain.FilterResult{
		IsRelevant: domainSignal || keywordSignal,
		Reason:     reason,
		Confidence: confidence,
	}
}

func (f *Filter) domainScore(senderDomain string) float64 {
	if senderDomain == "" {
		return 0
	}
	if _, ok := f.platforms.Lookup(senderDomain); ok {
		return 1.0
	}
	if f.platforms.LooksRecruiting(senderDomain) {
		return 0.8
	}
	return 0
}

func combinedText(msg domain.RawMessage) string {
	body := msg.BodyText
	if len(body) > bodyWindow {
		body = body[:bodyWindow]
	}
	return strings.ToLower(msg.Subject + " " + msg.Snippet + " " + body)
}

func keywordHits(text string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	for _, re := range phrasePatterns {
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}
