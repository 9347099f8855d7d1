package parse

import "strings"

var placeholderCategories = map[string]struct{}{
	"":                          {},
	"unknown":                   {},
	"n/a":                       {},
	"na":                        {},
	"none":                      {},
	"other":                     {},
	"miscellaneous":             {},
	"uncategorized":             {},
	"[please specify category]": {},
}

// Category returns nil for absent or placeholder categories and the trimmed
// text otherwise.
func Category(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if IsPlaceholderCategory(s) {
		return nil
	}
	return &s
}

func IsPlaceholderCategory(s string) bool {
	_, ok := placeholderCategories[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
