package apply

import "strings"

// MatchesFilter reports whether targetPath should be included under a
// user-supplied filter path F (spec.md §4.5.5): exact match, or
// targetPath starts with F followed by "/". A bare filename filter
// therefore matches only that exact target, never a sibling with the
// same prefix ("/config/zsh" must not match "/config/zsh-backup").
func MatchesFilter(filter, targetPath string) bool {
	if filter == targetPath {
		return true
	}
	return strings.HasPrefix(targetPath, filter+"/")
}

// MatchesAnyFilter reports whether targetPath matches at least one
// filter. An empty filters slice means "no filter", matching everything.
func MatchesAnyFilter(filters []string, targetPath string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if MatchesFilter(f, targetPath) {
			return true
		}
	}
	return false
}
