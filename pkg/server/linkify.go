package server

import (
	"regexp"
	"strings"
)

// urlRe matches absolute http(s) URLs plus bare domains with a path, like
// example.com/page. Whitespace, ] and ) end a match so a URL written before
// closing punctuation does not swallow it.
var urlRe = regexp.MustCompile(`(https?://[^\s\])]+)|((?:www\.)?[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}/[^\s\])]+)`)

// linkify rewrites plain URLs in text as markdown links. Scheme-less matches
// get an https prefix in the link target while the visible text keeps the
// original form.
func linkify(text string) string {
	if text == "" {
		return text
	}

	return urlRe.ReplaceAllStringFunc(text, func(raw string) string {
		url := raw
		if !strings.HasPrefix(raw, "http") {
			url = "https://" + raw
		}
		return "[" + raw + "](" + url + ")"
	})
}
