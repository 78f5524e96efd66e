package usecase

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy = bluemonday.StrictPolicy()
	htmlPolicy = bluemonday.UGCPolicy()
)

// cleanText strips markup from free text typed by users or read from
// imported sheets. The result is plain text, not HTML.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// cleanHTML keeps formatting in campaign bodies but drops scripts,
// handlers and other active content.
func cleanHTML(s string) string {
	return strings.TrimSpace(htmlPolicy.Sanitize(s))
}
