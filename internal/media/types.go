// Package media defines the shared data model for library items and the
// service contracts the reconciliation engine consumes. Concrete HTTP
// clients live in internal/plex and internal/arr; the engine itself only
// ever sees these types.
package media

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound reports an expected absence: a delete target that is already
// gone, or a lookup with no match. Callers treat it as a normal outcome,
// not a failure.
var ErrNotFound = errors.New("not found")

// SectionKind distinguishes movie sections from show sections.
type SectionKind string

const (
	KindMovie SectionKind = "movie"
	KindShow  SectionKind = "show"
)

// Section is one browsable collection within the media library
// (e.g. "Movies", "Kids TV").
type Section struct {
	ID    string
	Title string
	Kind  SectionKind
}

// QualityFacet describes one physical file version attached to a library
// item. An item may carry several facets when multiple copies of the same
// logical title were imported into it.
type QualityFacet struct {
	MediaID            string // version handle within the item
	ResolutionPriority int    // see ResolutionPriority
	FileSizeBytes      int64  // 0 = unknown
	Label              string // raw resolution label, e.g. "1080"
	FilePath           string
}

// LibraryItem is one media item as seen in one library section.
type LibraryItem struct {
	RatingKey   string // stable handle, scoped to one library section
	SectionID   string
	SectionKind SectionKind

	// ExternalID is the catalog id (TMDB for movies, TVDB for shows).
	// Zero until resolved; items without one are never merged with others.
	ExternalID int64

	Title     string
	Year      int
	ShowTitle string
	Season    int
	Episode   int

	AddedAt time.Time // zero = unknown
	Facets  []QualityFacet
}

// IsEpisode reports whether the item belongs to a show section.
func (it LibraryItem) IsEpisode() bool {
	return it.SectionKind == KindShow
}

// BestResolution returns the highest resolution priority among the item's
// facets. Items with no facets, or only unknown labels, rank 1.
func (it LibraryItem) BestResolution() int {
	best := 1
	for _, f := range it.Facets {
		if f.ResolutionPriority > best {
			best = f.ResolutionPriority
		}
	}
	return best
}

// BestSize returns the largest known file size among the item's facets and
// whether any size was known at all.
func (it LibraryItem) BestSize() (int64, bool) {
	var best int64
	known := false
	for _, f := range it.Facets {
		if f.FileSizeBytes > 0 {
			known = true
			if f.FileSizeBytes > best {
				best = f.FileSizeBytes
			}
		}
	}
	return best, known
}

// EpisodeKey identifies an episode by number within a show.
type EpisodeKey struct {
	Season  int
	Episode int
}

// ResolutionPriority buckets a raw resolution label into a comparable
// priority: 2160p/4K -> 4, 1080p -> 3, 720p -> 2, everything else
// (including unknown) -> 1.
func ResolutionPriority(label string) int {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return 1
	case strings.Contains(l, "4k") || strings.Contains(l, "2160"):
		return 4
	case strings.Contains(l, "1080"):
		return 3
	case strings.Contains(l, "720"):
		return 2
	default:
		return 1
	}
}
