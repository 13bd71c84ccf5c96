package mail

import (
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // register common charsets
)

const snippetLen = 200

// parseBody extracts plain text from a raw RFC 822 message body. text/plain
// parts win; an HTML-only message is tag-stripped. Malformed MIME degrades to
// whatever text could be recovered, never to an error: a message we cannot
// parse perfectly can still be classified from its subject.
func parseBody(r io.Reader) (text, snippet string) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return "", ""
	}
	if entity == nil {
		return "", ""
	}

	plain, html := collectParts(entity)
	text = plain
	if text == "" {
		text = stripHTML(html)
	}
	text = strings.TrimSpace(text)
	return text, makeSnippet(text)
}

// collectParts walks the MIME tree gathering the first text/plain and
// text/html bodies found.
func collectParts(entity *message.Entity) (plain, html string) {
	mediaType, _, err := entity.Header.ContentType()
	if err != nil {
		mediaType = "text/plain"
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			p, h := collectParts(part)
			if plain == "" {
				plain = p
			}
			if html == "" {
				html = h
			}
			if plain != "" {
				break
			}
		}
		return plain, html
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		return "", ""
	}
	switch {
	case strings.HasPrefix(mediaType, "text/plain"):
		return string(body), ""
	case strings.HasPrefix(mediaType, "text/html"):
		return "", string(body)
	}
	return "", ""
}

var (
	htmlTag        = regexp.MustCompile(`(?s)<(script|style)\b.*?</(script|style)>|<[^>]*>`)
	htmlWhitespace = regexp.MustCompile(`[ \t]+`)
	lineEdgeSpace  = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
)

var htmlEntityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// stripHTML reduces an HTML body to readable text. Block-level closing tags
// become newlines so date and location lines stay separated.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	for _, tag := range []string{"</p>", "</div>", "</li>", "</tr>", "<br>", "<br/>", "<br />"} {
		s = strings.ReplaceAll(s, tag, tag+"\n")
	}
	s = htmlTag.ReplaceAllString(s, " ")
	s = htmlEntityReplacer.Replace(s)
	s = htmlWhitespace.ReplaceAllString(s, " ")
	s = lineEdgeSpace.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// makeSnippet collapses the text head into a single preview line.
func makeSnippet(text string) string {
	fields := strings.Fields(text)
	snippet := strings.Join(fields, " ")
	if len(snippet) > snippetLen {
		snippet = snippet[:snippetLen]
	}
	return snippet
}
