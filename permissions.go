package gatekit

import (
	"regexp"
	"strings"
)

// MaxSlugLength is the longest slug accepted for roles and permissions.
const MaxSlugLength = 255

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9]+(?:[-_.:][A-Za-z0-9]+)*$`)

// ValidSlug reports whether s is a well-formed role or permission slug.
//
// Examples:
//
//	ValidSlug("edit-posts")     // true
//	ValidSlug("files.read")     // true
//	ValidSlug("*")              // true, the wildcard permission
//	ValidSlug("edit posts")     // false
//	ValidSlug("-edit")          // false
func ValidSlug(s string) bool {
	if s == WildcardPermission {
		return true
	}
	if s == "" || len(s) > MaxSlugLength {
		return false
	}
	return slugPattern.MatchString(s)
}

// ParseExpression splits a pipe-separated guard expression into slugs.
// Whitespace around each token is trimmed and empty tokens are dropped.
//
//	ParseExpression("admin|editor")      // ["admin", "editor"]
//	ParseExpression(" admin | | editor") // ["admin", "editor"]
func ParseExpression(expr string) []string {
	parts := strings.Split(expr, "|")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// uniqueSlugs returns slugs in first-seen order with blanks and duplicates removed.
func uniqueSlugs(slugs []string) []string {
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
