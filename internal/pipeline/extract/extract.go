// Package extract pulls structured fields out of a message's subject, body,
// and sender. Every heuristic tolerates absence: a field that cannot be
// populated is left empty, never guessed, and extraction never fails.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
	"github.com/sthar2820/Job-Application-Tracker/internal/pipeline/platform"
)

// Extractor is the entity extraction stage. Pure and total.
type Extractor struct {
	platforms *platform.Table
}

// New creates an Extractor using the given platform table.
func New(platforms *platform.Table) *Extractor {
	return &Extractor{platforms: platforms}
}

// Run applies the extraction heuristics in order: platform, organization,
// role, requisition id, portal link, key dates, location.
func (e *Extractor) Run(msg domain.RawMessage) domain.ExtractedEntities {
	org, role := extractOrgAndRole(msg)

	if org == "" {
		org = e.orgFromSender(msg)
	}

	return domain.ExtractedEntities{
		Organization:  org,
		RoleTitle:     role,
		RequisitionID: extractRequisitionID(msg.Subject, msg.BodyText),
		Platform:      e.extractPlatform(msg),
		PortalLink:    extractPortalLink(msg.BodyText),
		KeyDates:      extractDates(msg.BodyText, msg.Snippet),
		Location:      extractLocation(msg.Subject, msg.BodyText),
	}
}

// ---------------------------------------------------------------------------
// Organization and role
// ---------------------------------------------------------------------------

// subjectTemplates capture organization and/or role from common notification
// subject shapes. Named groups "org" and "role" are both optional.
var subjectTemplates = []*regexp.Regexp{
	// "Your application to Acme Corp — Software Engineer"
	regexp.MustCompile(`(?i)^your\s+application\s+(?:to|at)\s+(?P<org>.+?)\s*(?:—|–|\s-\s)\s*(?P<role>.+)$`),
	// "Your application for Software Engineer at Acme Corp"
	regexp.MustCompile(`(?i)^your\s+application\s+for\s+(?:the\s+)?(?P<role>.+?)\s+at\s+(?P<org>.+)$`),
	// "Your application for Software Engineer"
	regexp.MustCompile(`(?i)^your\s+application\s+for\s+(?:the\s+)?(?P<role>.+)$`),
	// "Update on your Acme Corp application"
	regexp.MustCompile(`(?i)update\s+on\s+your\s+(?P<org>.+?)\s+application`),
	// "Thank you for applying to Acme Corp!"
	regexp.MustCompile(`(?i)(?:thank\s+you\s+for\s+applying\s+(?:to|at)|thank\s+you\s+for\s+your\s+application\s+to|application\s+to)\s+(?P<org>[a-z0-9\s&',.-]+?)\s*(?:$|!)`),
	// "Acme Corp — Software Engineer" / "Acme Corp - application update"
	regexp.MustCompile(`^(?P<org>[A-Za-z][A-Za-z0-9\s&',.]+?)\s+[-–—]\s+(?P<role>.+)$`),
	// "Acme Corp: Software Engineer"
	regexp.MustCompile(`^(?P<org>[A-Za-z][A-Za-z0-9\s&',.]+?):\s+(?P<role>.+)$`),
}

// orgBodyPatterns recover the organization from anchor phrases early in the body.
var orgBodyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)on\s+behalf\s+of\s+([a-z][a-z0-9\s&',.-]+?)(?:\.|,|\n)`),
	regexp.MustCompile(`(?i)position\s+at\s+([a-z][a-z0-9\s&',.-]+?)(?:\.|,|\n)`),
}

// roleBodyPatterns recover the role from anchor phrases early in the body.
var roleBodyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:applied\s+for|applying\s+for|application\s+for|position\s+of|role\s+of)\s+(?:the\s+)?([a-z][a-z0-9\s,/().&-]+?)(?:\s+position|\s+role|\s+at\s|\.|,|\n)`),
	regexp.MustCompile(`(?i)(?:position|role):\s*([a-z][a-z0-9\s,/().&-]+?)(?:\n|\.|$)`),
	regexp.MustCompile(`(?i)interest\s+in\s+(?:the\s+)?([a-z][a-z0-9\s,/().&-]+?)\s+(?:position|role)`),
}

// orgNoisePrefix rejects captures that are clearly not a company name.
var orgNoisePrefix = regexp.MustCompile(`(?i)^(your|application|thank|position|role)\b`)

// orgNoiseSuffix strips trailing boilerplate from a captured company name.
var orgNoiseSuffix = regexp.MustCompile(`(?i)\s+(application|team|careers|jobs|recruiting)$`)

// roleNoiseSuffix strips trailing boilerplate from a captured role title.
var roleNoiseSuffix = regexp.MustCompile(`(?i)\s+(application|update|position|job|role|confirmation)$`)

// roleGeneric rejects captures that are generic phrases rather than titles.
var roleGeneric = regexp.MustCompile(`(?i)^(applying|application|confirmation|update|interview scheduled|career\s+match)$`)

const bodyOrgWindow = 500
const bodyRoleWindow = 800

func extractOrgAndRole(msg domain.RawMessage) (org, role string) {
	for _, re := range subjectTemplates {
		m := re.FindStringSubmatch(msg.Subject)
		if m == nil {
			continue
		}
		candOrg, candRole := namedGroups(re, m)
		candOrg = cleanOrg(candOrg)
		candRole = cleanRole(candRole)
		if org == "" && candOrg != "" {
			org = candOrg
		}
		if role == "" && candRole != "" {
			role = candRole
		}
		if org != "" && role != "" {
			return org, role
		}
	}

	if org == "" {
		org = firstMatch(orgBodyPatterns, head(msg.BodyText, bodyOrgWindow), cleanOrg)
	}
	if role == "" {
		role = firstMatch(roleBodyPatterns, head(msg.BodyText, bodyRoleWindow), cleanRole)
		if role == "" && msg.Snippet != "" {
			role = firstMatch(roleBodyPatterns, msg.Snippet, cleanRole)
		}
	}
	return org, role
}

// orgFromSender falls back to the sender's display name, then the sender
// domain. Platform domains yield nothing: "Greenhouse" is not the employer.
func (e *Extractor) orgFromSender(msg domain.RawMessage) string {
	if name := senderDisplayName(msg.Sender); name != "" {
		return cleanOrg(name)
	}

	dom := msg.SenderDomain()
	if dom == "" {
		return ""
	}
	if _, ok := e.platforms.Lookup(dom); ok {
		return ""
	}
	label, _, _ := strings.Cut(dom, ".")
	switch label {
	case "mail", "email", "noreply", "no-reply", "support", "info", "":
		return ""
	}
	return cleanOrg(strings.NewReplacer("-", " ", "_", " ").Replace(label))
}

var (
	senderSystemish  = regexp.MustCompile(`(?i)(noreply|no-reply|donotreply|autoreply|system|notification|admin)`)
	senderPersonName = regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z][a-z]+$`)
	senderVia        = regexp.MustCompile(`(?i)\s+via\s+.+$`)
	senderJobsSuffix = regexp.MustCompile(`(?i)\s+(jobs|corporate|recruiting|careers|talent|team|hiring)$`)
	senderFromPrefix = regexp.MustCompile(`(?i)^.*?\s+from\s+`)
)

func senderDisplayName(sender string) string {
	i := strings.IndexByte(sender, '<')
	if i <= 0 {
		return ""
	}
	name := strings.Trim(strings.TrimSpace(sender[:i]), `"`)
	name = senderVia.ReplaceAllString(name, "")
	name = senderJobsSuffix.ReplaceAllString(name, "")
	if j := strings.Index(name, " @ "); j >= 0 {
		name = name[:j]
	}
	name = senderFromPrefix.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if senderSystemish.MatchString(name) || senderPersonName.MatchString(name) {
		return ""
	}
	if len(name) < 3 || len(name) >= 50 {
		return ""
	}
	return name
}

func cleanOrg(s string) string {
	s = strings.TrimSpace(s)
	s = orgNoiseSuffix.ReplaceAllString(s, "")
	s = companySuffix.ReplaceAllString(s, "")
	s = collapseSpaces(s)
	if s == "" || orgNoisePrefix.MatchString(s) {
		return ""
	}
	if len(s) < 3 || len(s) >= 100 {
		return ""
	}
	return s
}

func cleanRole(s string) string {
	s = strings.TrimSpace(s)
	s = roleNoiseSuffix.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "the "), "The "))
	s = collapseSpaces(s)
	if s == "" || roleGeneric.MatchString(s) {
		return ""
	}
	if len(s) < 4 || len(s) >= 150 {
		return ""
	}
	return s
}

var companySuffix = regexp.MustCompile(`(?i)\s+(inc\.?|llc|ltd\.?|corporation)$`)

// ---------------------------------------------------------------------------
// Requisition id
// ---------------------------------------------------------------------------

var reqIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:requisition|req|job)\s*(?:id|number)\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9-]{2,})`),
	regexp.MustCompile(`#\s*([A-Z0-9][A-Z0-9-]{4,})`),
}

const reqIDWindow = 1000

func extractRequisitionID(subject, body string) string {
	combined := subject + " " + head(body, reqIDWindow)
	for _, re := range reqIDPatterns {
		if m := re.FindStringSubmatch(combined); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Platform
// ---------------------------------------------------------------------------

var bodyPlatformMentions = []string{"greenhouse", "lever", "workday", "icims", "smartrecruiters"}

func (e *Extractor) extractPlatform(msg domain.RawMessage) string {
	if name, ok := e.platforms.Lookup(msg.SenderDomain()); ok {
		return name
	}
	bodyLower := strings.ToLower(msg.BodyText)
	for _, mention := range bodyPlatformMentions {
		if strings.Contains(bodyLower, mention) {
			return mention
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Portal link
// ---------------------------------------------------------------------------

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// portalKeywords identify application-portal path shapes.
var portalKeywords = []string{
	"greenhouse", "lever", "workday", "icims", "smartrecruiters",
	"jobs", "careers", "apply", "application", "candidate",
}

var utmParam = regexp.MustCompile(`[?&]utm_[^&]*`)

// extractPortalLink returns the first URL in the body whose shape looks like
// an application portal, with tracking parameters removed. A body whose URLs
// are all unrelated yields nothing.
func extractPortalLink(body string) string {
	for _, url := range urlPattern.FindAllString(body, -1) {
		lower := strings.ToLower(url)
		for _, kw := range portalKeywords {
			if strings.Contains(lower, kw) {
				return strings.TrimRight(utmParam.ReplaceAllString(url, ""), ".,;)")
			}
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Key dates
// ---------------------------------------------------------------------------

const months = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

// datePattern matches all recognized date shapes in one pass so the result
// preserves encounter order across shapes.
var datePattern = regexp.MustCompile(
	`(?i)\b(?:` +
		`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}` +
		`|(?:` + months + `)[a-z]*\.?\s+\d{1,2},?\s+\d{4}` +
		`|\d{1,2}\s+(?:` + months + `)[a-z]*\.?\s+\d{4}` +
		`)\b`,
)

const dateWindow = 1000

// extractDates returns all parseable dates in encounter order. Duplicates are
// kept: repetition is evidence, and later stages decide what to do with it.
func extractDates(body, snippet string) []time.Time {
	combined := head(body, dateWindow) + "\n" + snippet
	var dates []time.Time
	for _, raw := range datePattern.FindAllString(combined, -1) {
		if t, ok := parseDate(raw); ok {
			dates = append(dates, t)
		}
	}
	return dates
}

var numericDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)

	if m := numericDate.FindStringSubmatch(raw); m != nil {
		// US convention: month/day/year.
		month, day, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes Feb 30 into March; reject such inputs.
		if int(t.Month()) != month || t.Day() != day {
			return time.Time{}, false
		}
		return t, true
	}

	// Month-name forms: normalize to "Jan 2 2006" or "2 Jan 2006".
	norm := strings.NewReplacer(",", "", ".", "").Replace(raw)
	norm = collapseSpaces(norm)
	fields := strings.Fields(norm)
	if len(fields) != 3 {
		return time.Time{}, false
	}
	for i, f := range fields {
		if len(f) > 3 && !isDigits(f) {
			fields[i] = f[:3] // "September" → "Sep"
		}
	}
	norm = strings.Join(fields, " ")
	for _, layout := range []string{"Jan 2 2006", "2 Jan 2006"} {
		if t, err := time.Parse(layout, titleMonth(norm)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// titleMonth uppercases the first letter of each field so "sep 3 2026"
// satisfies time.Parse's "Jan" layout element.
func titleMonth(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if !isDigits(f) {
			fields[i] = strings.ToUpper(f[:1]) + strings.ToLower(f[1:])
		}
	}
	return strings.Join(fields, " ")
}

// ---------------------------------------------------------------------------
// Location
// ---------------------------------------------------------------------------

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:location|based in|office in):\s*([a-z][a-z\s,]+?)(?:\n|\.|\|)`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?,\s+[A-Z]{2})\b`),
}

var remotePattern = regexp.MustCompile(`(?i)\b(remote|work\s+from\s+home)\b`)

const locationWindow = 500

func extractLocation(subject, body string) string {
	combined := subject + " " + head(body, locationWindow)
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(combined); m != nil {
			loc := collapseSpaces(strings.TrimSpace(m[1]))
			if len(loc) > 0 && len(loc) < 50 {
				return loc
			}
		}
	}
	if remotePattern.MatchString(combined) {
		return "Remote"
	}
	return ""
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// namedGroups pulls the optional "org" and "role" captures out of a template match.
func namedGroups(re *regexp.Regexp, m []string) (org, role string) {
	for i, name := range re.SubexpNames() {
		if i >= len(m) {
			break
		}
		switch name {
		case "org":
			org = m[i]
		case "role":
			role = m[i]
		}
	}
	return org, role
}

// firstMatch returns the first cleaned capture of any pattern over text.
func firstMatch(patterns []*regexp.Regexp, text string, clean func(string) string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := clean(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}
