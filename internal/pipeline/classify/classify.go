// Package classify assigns a lifecycle event type to a message.
//
// Classification is an explicit ordered list of rule sets evaluated in a
// fixed total priority: rejection > offer > interview > assessment >
// confirmation > update. The first rule set with any match wins, which
// encodes the real-world rule that a message mentioning both an interview
// and "unfortunately... not moving forward" is a rejection. A message
// matching nothing is "other" with low confidence.
package classify

import (
	"regexp"
	"strings"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// cue is one pattern within a rule set. Weight reflects specificity: exact
// multi-word phrases carry more than a lone keyword.
type cue struct {
	re     *regexp.Regexp
	weight float64
}

func strong(pattern string) cue { return cue{regexp.MustCompile(pattern), 2.0} }
func weak(pattern string) cue   { return cue{regexp.MustCompile(pattern), 1.0} }

// ruleSet is the ordered classification unit: the first set that matches
// decides the event type.
type ruleSet struct {
	eventType domain.EventType
	cues      []cue
}

var rules = []ruleSet{
	{domain.EventRejection, []cue{
		strong(`not\s+(moving\s+forward|selected|chosen)`),
		strong(`will\s+not\s+be\s+(moving|proceeding)`),
		strong(`decided\s+to\s+(pursue|move\s+forward\s+with)\s+other`),
		strong(`have\s+decided\s+not\s+to`),
		strong(`regret\s+to\s+inform`),
		strong(`not\s+be\s+considered`),
		strong(`position\s+has\s+been\s+filled`),
		strong(`your\s+application\s+was\s+not\s+successful`),
		weak(`unfortunately`),
	}},
	{domain.EventOffer, []cue{
		strong(`offer\s+(of\s+employment|letter|package)`),
		strong(`pleased\s+to\s+offer`),
		strong(`extend\s+(an\s+)?offer`),
		weak(`congratulations`),
	}},
	{domain.EventInterview, []cue{
		strong(`interview\s+(invitation|scheduled|request)`),
		strong(`schedule\s+(a\s+)?(call|meeting|chat|interview)`),
		strong(`phone\s+(screen|call)`),
		strong(`available\s+for\s+(a\s+)?(call|chat)`),
		weak(`interview`),
		weak(`speak\s+with\s+you`),
		weak(`video\s+call`),
		weak(`meet\s+with`),
	}},
	{domain.EventAssessment, []cue{
		strong(`coding\s+(challenge|test|assessment)`),
		strong(`technical\s+(challenge|test|assessment)`),
		strong(`take-home\s+(challenge|assignment)`),
		strong(`complete\s+(the\s+)?(assignment|challenge|test)`),
		weak(`hackerrank`),
		weak(`codility`),
		weak(`codesignal`),
	}},
	{domain.EventConfirmation, []cue{
		strong(`thank\s+you\s+for\s+(applying|your\s+application)`),
		strong(`application\s+(received|submitted)`),
		strong(`received\s+your\s+application`),
		strong(`confirm\s+receipt`),
		weak(`we\s+have\s+received`),
	}},
	{domain.EventUpdate, []cue{
		strong(`update\s+on\s+your\s+application`),
		strong(`application\s+status`),
		weak(`status\s+update`),
		weak(`next\s+steps`),
	}},
}

// noMatchConfidence is assigned when no rule set matches at all.
const noMatchConfidence = 0.3

// bodyWindow bounds how much of the body participates in matching.
const bodyWindow = 1000

// Classifier is the event classification stage. Deterministic and pure.
type Classifier struct {
	floor float64
}

// New creates a Classifier. floor is the confidence assigned to a single
// weak keyword match; additional and more specific matches raise confidence
// toward 1.0.
func New(floor float64) *Classifier {
	return &Classifier{floor: floor}
}

// Run classifies one message from its subject, snippet, and body text.
func (c *Classifier) Run(msg domain.RawMessage) domain.EventClassification {
	body := msg.BodyText
	if len(body) > bodyWindow {
		body = body[:bodyWindow]
	}
	text := strings.ToLower(msg.Subject + " " + msg.Snippet + " " + body)

	for _, rs := range rules {
		score := 0.0
		for _, cu := range rs.cues {
			if cu.re.MatchString(text) {
				score += cu.weight
			}
		}
		if score > 0 {
			return domain.EventClassification{
				EventType:  rs.eventType,
				Confidence: c.confidence(score),
			}
		}
	}

	return domain.EventClassification{
		EventType:  domain.EventOther,
		Confidence: noMatchConfidence,
	}
}

// confidence maps a matched-cue score onto [floor, 1.0]: a single weak cue
// (weight 1) sits exactly at the floor, each further weight point adds 0.1.
func (c *Classifier) confidence(score float64) float64 {
	conf := c.floor + (score-1.0)*0.1
	if conf > 1.0 {
		return 1.0
	}
	if conf < c.floor {
		return c.floor
	}
	return conf
}
