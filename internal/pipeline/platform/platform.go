// Package platform maintains the mapping from sender domains to known
// application-tracking platforms.
package platform

import "strings"

// builtin maps sender domains to platform tokens. A sender domain matches
// when it equals a key or is a subdomain of one. Tokens are lowercase and
// stable: they participate in Application identity.
var builtin = map[string]string{
	"greenhouse.io":       "greenhouse",
	"lever.co":            "lever",
	"workday.com":         "workday",
	"myworkdayjobs.com":   "workday",
	"icims.com":           "icims",
	"smartrecruiters.com": "smartrecruiters",
	"taleo.net":           "taleo",
	"successfactors.com":  "successfactors",
	"jobvite.com":         "jobvite",
	"breezy.hr":           "breezy",
	"ashbyhq.com":         "ashby",
	"jazz.co":             "jazzhr",
}

// recruitingHints are domain fragments that signal a recruiting system even
// when the exact platform is unknown.
var recruitingHints = []string{
	"greenhouse", "lever", "workday", "icims", "smartrecruiters",
	"taleo", "successfactors", "jobvite", "ashby", "jazz",
	"breezy", "applytojob", "myworkday", "recruiting",
}

// Table resolves sender domains to platforms.
type Table struct {
	domains map[string]string
}

// NewTable builds a Table from the built-in platform map plus any extra
// domain→name pairs from configuration. Extra pairs override built-ins.
func NewTable(extra map[string]string) *Table {
	domains := make(map[string]string, len(builtin)+len(extra))
	for d, n := range builtin {
		domains[d] = n
	}
	for d, n := range extra {
		domains[strings.ToLower(d)] = strings.ToLower(n)
	}
	return &Table{domains: domains}
}

// Lookup returns the platform name for a sender domain, matching exact
// domains and subdomains. ok is false for unknown domains.
func (t *Table) Lookup(domain string) (name string, ok bool) {
	domain = strings.ToLower(domain)
	if domain == "" {
		return "", false
	}
	if name, ok := t.domains[domain]; ok {
		return name, true
	}
	for d, n := range t.domains {
		if strings.HasSuffix(domain, "."+d) {
			return n, true
		}
	}
	return "", false
}

// LooksRecruiting reports whether the domain merely hints at a recruiting
// system without mapping to a known platform.
func (t *Table) LooksRecruiting(domain string) bool {
	domain = strings.ToLower(domain)
	if domain == "" {
		return false
	}
	for _, hint := range recruitingHints {
		if strings.Contains(domain, hint) {
			return true
		}
	}
	return false
}
