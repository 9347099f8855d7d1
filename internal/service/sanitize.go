package service

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"counto/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()

	// "Acme <billing@acme.com>" is an address, not a tag.
	bracketedEmail = regexp.MustCompile(`<([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+)>`)
)

// SanitizeText strips markup and invalid UTF-8 from free text before it is
// stored. Entities produced by the policy are decoded again so "&" and
// quotes survive.
func SanitizeText(s string) string {
	s = bracketedEmail.ReplaceAllString(sanitizeUTF8(s), "&lt;$1&gt;")
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// sanitizeUTF8 removes invalid UTF-8 sequences from string
// This prevents PostgreSQL encoding errors when saving text
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 sequence, skip this byte
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}

func sanitizeContact(c models.Contact) models.Contact {
	return models.Contact{
		Name:      SanitizeText(c.Name),
		Email:     SanitizeText(c.Email),
		Phone:     SanitizeText(c.Phone),
		GSTNumber: SanitizeText(c.GSTNumber),
		Address:   SanitizeText(c.Address),
	}
}
