// Package advise derives a next-action suggestion from a classified,
// resolved message. Pure lookup keyed on event type; no side effects.
package advise

import (
	"fmt"
	"time"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// Follow-up offsets from the message's received time, per event type.
// Rejections get no follow-up.
const (
	confirmationFollowUp = 7 * 24 * time.Hour
	interviewFollowUp    = 3 * 24 * time.Hour
	assessmentFollowUp   = 2 * 24 * time.Hour
	offerFollowUp        = 3 * 24 * time.Hour
	updateFollowUp       = 5 * 24 * time.Hour
	otherFollowUp        = 7 * 24 * time.Hour
)

// Advisor is the suggestion stage.
type Advisor struct{}

func New() *Advisor { return &Advisor{} }

// Run produces the suggestion for one resolved event. Follow-up dates anchor
// on the message's received time so re-processing yields the same output; an
// interview with an extracted key date anchors on that date instead.
func (a *Advisor) Run(cls domain.EventClassification, ents domain.ExtractedEntities, app domain.Application, receivedAt time.Time) domain.ActionSuggestion {
	subject := describeRole(app, ents)

	switch cls.EventType {
	case domain.EventRejection:
		return domain.ActionSuggestion{
			Text: fmt.Sprintf("No action needed for %s. Take a moment to note any feedback, then keep momentum on active applications.", subject),
		}

	case domain.EventOffer:
		return domain.ActionSuggestion{
			Text:         fmt.Sprintf("Offer received for %s. Review compensation and terms, and respond before the stated deadline.", subject),
			FollowUpDate: after(receivedAt, offerFollowUp),
		}

	case domain.EventInterview:
		s := domain.ActionSuggestion{
			Text: fmt.Sprintf("Interview scheduled for %s. Research the team and prepare questions.", subject),
		}
		if len(ents.KeyDates) > 0 {
			d := ents.KeyDates[0]
			s.FollowUpDate = &d
		} else {
			s.FollowUpDate = after(receivedAt, interviewFollowUp)
		}
		return s

	case domain.EventAssessment:
		return domain.ActionSuggestion{
			Text:         fmt.Sprintf("Assessment requested for %s. Complete it well before the deadline and track the due date.", subject),
			FollowUpDate: after(receivedAt, assessmentFollowUp),
		}

	case domain.EventConfirmation:
		return domain.ActionSuggestion{
			Text:         fmt.Sprintf("Application confirmed for %s. Follow up if there is no response within a week.", subject),
			FollowUpDate: after(receivedAt, confirmationFollowUp),
		}

	case domain.EventUpdate:
		return domain.ActionSuggestion{
			Text:         fmt.Sprintf("Status update for %s. Check the portal for details.", subject),
			FollowUpDate: after(receivedAt, updateFollowUp),
		}

	default:
		return domain.ActionSuggestion{
			Text:         fmt.Sprintf("Review the message about %s and decide whether it needs a reply.", subject),
			FollowUpDate: after(receivedAt, otherFollowUp),
		}
	}
}

// describeRole names the application for suggestion text, preferring the
// resolved application's fields over raw extraction.
func describeRole(app domain.Application, ents domain.ExtractedEntities) string {
	org := app.Organization
	if org == "" {
		org = ents.Organization
	}
	role := app.RoleTitle
	if role == "" {
		role = ents.RoleTitle
	}

	switch {
	case org != "" && role != "":
		return fmt.Sprintf("%s at %s", role, org)
	case org != "":
		return fmt.Sprintf("the application at %s", org)
	case role != "":
		return fmt.Sprintf("the %s application", role)
	default:
		return "this application"
	}
}

func after(t time.Time, d time.Duration) *time.Time {
	v := t.Add(d)
	return &v
}
