package convert

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Plain-text and Markdown inputs only get validated and sanitized; no
// structural transformation happens here.

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	iframeBlockRe = regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe>`)
	selfClosingRe = regexp.MustCompile(`(?i)<(?:script|iframe)\b[^>]*/?>`)
	eventAttrRe   = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	anyTagRe      = regexp.MustCompile(`(?s)<[^>]*>`)
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips script/iframe blocks and inline event-handler attributes
// from text that may contain markup.
func Sanitize(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = iframeBlockRe.ReplaceAllString(s, "")
	s = selfClosingRe.ReplaceAllString(s, "")
	s = eventAttrRe.ReplaceAllString(s, "")
	return s
}

func convertPlainText(data []byte) (*Result, error) {
	return convertTextual(TypePlainText, "text", data)
}

func convertMarkdown(data []byte) (*Result, error) {
	return convertTextual(TypeMarkdown, "markdown", data)
}

func convertTextual(t DocumentType, name string, data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: input is not valid UTF-8", name)
	}
	content := Sanitize(string(data))
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return newResult(t, name, content), nil
}

// convertHTML strips all tags after sanitizing, keeping block boundaries as
// blank lines so downstream paragraph chunking still sees structure.
func convertHTML(data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("html: input is not valid UTF-8")
	}
	content := stripMarkup(string(data))
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("html: no textual content")
	}
	return newResult(TypeHTML, "html", content), nil
}

// stripMarkup removes tags from HTML/XHTML-ish text, converting block-level
// element ends into paragraph breaks and decoding the common entities.
func stripMarkup(s string) string {
	s = Sanitize(s)
	blockEndRe := regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|li|tr|section|article|blockquote)>|<br\s*/?>`)
	s = blockEndRe.ReplaceAllString(s, "\n\n")
	s = anyTagRe.ReplaceAllString(s, "")
	for entity, repl := range map[string]string{
		"&nbsp;": " ", "&amp;": "&", "&lt;": "<", "&gt;": ">", "&quot;": `"`, "&#39;": "'",
	} {
		s = strings.ReplaceAll(s, entity, repl)
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = multiBlankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
