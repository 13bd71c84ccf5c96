package domain

import (
	"strings"
	"unicode"
)

// NormalizeText prepares text for identity comparison:
//   - converts to lowercase
//   - folds punctuation into spaces
//   - compresses runs of whitespace into one space
//   - trims leading/trailing whitespace
//
// Both the fuzzy matcher and the application identity key rely on this so
// "Software Engineer," and "software   engineer" compare equal.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := true // drops leading spaces
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			b.WriteRune(' ')
			prevSpace = true
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}
