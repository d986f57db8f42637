package undex

import "strings"

// ParseExcludes splits a space-separated exclusion string.
func ParseExcludes(s string) []string {
	return strings.Fields(s)
}

// Excluded reports whether the dotted class name equals one of prefixes or
// lies below one of them.
func Excluded(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if name == p || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}

// AddExclude appends pkg to a space-separated exclusion string.
func AddExclude(s, pkg string) string {
	return strings.TrimSpace(s + " " + pkg)
}

// RemoveExclude drops every occurrence of pkg from a space-separated
// exclusion string.
func RemoveExclude(s, pkg string) string {
	var kept []string
	for _, p := range ParseExcludes(s) {
		if p != pkg {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
