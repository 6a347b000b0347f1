// Package dedupe indexes library items by external identifier across
// sections, groups duplicate copies of the same title, and ranks each group
// into one kept copy and an ordered delete list.
package dedupe

import (
	"strings"

	"github.com/sweeparr/sweeparr/internal/media"
)

// Preference selects which duplicate copies are deleted. The names describe
// what goes away: "smallest_file" deletes the smallest copies and keeps the
// largest.
type Preference string

const (
	DeleteSmallestFile Preference = "smallest_file"
	DeleteLargestFile  Preference = "largest_file"
	DeleteNewest       Preference = "newest"
	DeleteOldest       Preference = "oldest"
)

// ValidPreference reports whether p is one of the supported preferences.
func ValidPreference(p Preference) bool {
	switch p {
	case DeleteSmallestFile, DeleteLargestFile, DeleteNewest, DeleteOldest:
		return true
	}
	return false
}

// Policy is the configurable deletion preference for duplicate groups.
//
// PreserveTerms are case-insensitive substrings matched against a facet's
// resolution label or file path. If any member of a group matches a term,
// only the matching members are eligible to be kept: preservation always
// dominates the numeric preference.
type Policy struct {
	Preference    Preference
	PreserveTerms []string
}

// Preserves reports whether any of the item's facets matches a preserve term.
func (p Policy) Preserves(it media.LibraryItem) bool {
	for _, f := range it.Facets {
		if p.PreservesFacet(f) {
			return true
		}
	}
	return false
}

// PreservesFacet reports whether the facet's label or file path matches a
// preserve term.
func (p Policy) PreservesFacet(f media.QualityFacet) bool {
	for _, term := range p.PreserveTerms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if strings.Contains(strings.ToLower(f.Label), t) ||
			strings.Contains(strings.ToLower(f.FilePath), t) {
			return true
		}
	}
	return false
}
