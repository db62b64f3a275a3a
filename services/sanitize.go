package services

import (
	"html"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from free text typed into the dashboard
// (project descriptions, auditor notes) and trims surrounding space. The
// result is plain text; templates escape it on output.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// SanitizeFilename keeps the base name of an uploaded file with control
// characters and markup removed.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, base)
	base = html.UnescapeString(strictPolicy.Sanitize(base))
	if base == "" || base == "." || base == "/" {
		return "file"
	}
	return base
}
