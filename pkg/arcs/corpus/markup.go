package corpus

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Body tags are searched in this order; every one present is appended.
var bodyTags = []tagPair{
	{"<SUMMARY>", "</SUMMARY>"},
	{"<LEADPARA>", "</LEADPARA>"},
	{"<TEXT>", "</TEXT>"},
}

// Title tags are searched in this order; the first one found before the body
// wins.
var titleTags = []tagPair{
	{"<HEAD>", "</HEAD>"},
	{"<TITLE>", "</TITLE>"},
	{"<TTL>", "</TTL>"},
	{"<HL>", "</HL>"},
	{"<SUBJECT>", "</SUBJECT>"},
	{"<HEADLINE>", "</HEADLINE>"},
	{"<TI>", "</TI>"},
}

type tagPair struct {
	open, close string
}

var (
	markupPattern = regexp.MustCompile(`<[^>]*>`)
	entityPattern = regexp.MustCompile(`&[A-Za-z][A-Za-z0-9.]*;`)
)

// stripTags replaces every markup tag in s with a single space and decodes
// character references. SGML entities unknown to HTML (&hyph;, &blank;)
// also become a space.
func stripTags(s string) string {
	s = markupPattern.ReplaceAllString(s, " ")
	if !strings.Contains(s, "&") {
		return s
	}
	s = html.UnescapeString(s)
	return entityPattern.ReplaceAllString(s, " ")
}

// extract returns the markup-stripped, trimmed span between the first
// occurrence of tag.open and the following tag.close. Noise prefixes found
// inside the span move its start past them.
func extract(content string, tag tagPair, noisePrefixes []string) (string, bool) {
	start := strings.Index(content, tag.open)
	if start < 0 {
		return "", false
	}
	start += len(tag.open)

	end := strings.Index(content[start:], tag.close)
	if end < 0 {
		return "", false
	}
	end += start

	for _, prefix := range noisePrefixes {
		if k := strings.Index(content[start:end], prefix); k >= 0 {
			start += k + len(prefix)
		}
	}

	return strings.TrimSpace(stripTags(content[start:end])), true
}

// parseContent splits a raw record body into its text and optional title.
func parseContent(content string, noisePrefixes []string) (text, title string, hasTitle bool) {
	var b strings.Builder
	firstBody := -1

	for _, tag := range bodyTags {
		start := strings.Index(content, tag.open)
		if start < 0 {
			continue
		}
		if firstBody < 0 || start < firstBody {
			firstBody = start
		}

		spanStart := start + len(tag.open)
		spanEnd := len(content)
		if k := strings.Index(content[spanStart:], tag.close); k >= 0 {
			spanEnd = spanStart + k
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(stripTags(content[spanStart:spanEnd]))
	}

	head := content
	if firstBody >= 0 {
		head = content[:firstBody]
	}
	for _, tag := range titleTags {
		if !strings.Contains(head, tag.open) {
			continue
		}
		t, ok := extract(content, tag, noisePrefixes)
		if ok && t != "" {
			title, hasTitle = t, true
		}
		break
	}

	return b.String(), title, hasTitle
}
