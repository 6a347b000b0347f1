package dedupe

import (
	"math"
	"sort"

	"github.com/sweeparr/sweeparr/internal/media"
)

// Decision is the outcome of ranking one duplicate group: exactly one kept
// copy and the remaining members in original group order. Decisions are a
// pure function of (group, policy); re-running on the same snapshot always
// yields the same keep.
type Decision struct {
	Keep media.LibraryItem
	Drop []media.LibraryItem
}

// Rank orders the members of a duplicate group under the policy and returns
// the single copy to keep plus the ordered delete list.
//
// Preserve-matching members, when present, are the only candidates for
// keeping. The preference supplies the primary sort key; quality (higher
// resolution, then larger size) always breaks ties so that a storage
// preference never destroys the best copy over an indistinguishable one.
func Rank(group []media.LibraryItem, policy Policy) Decision {
	if len(group) == 0 {
		return Decision{}
	}

	pool := make([]int, 0, len(group))
	for i := range group {
		if policy.Preserves(group[i]) {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i := range group {
			pool = append(pool, i)
		}
	}

	sort.SliceStable(pool, func(a, b int) bool {
		return keepBefore(group[pool[a]], group[pool[b]], policy.Preference)
	})
	keepIdx := pool[0]

	drop := make([]media.LibraryItem, 0, len(group)-1)
	for i := range group {
		if i == keepIdx {
			continue
		}
		drop = append(drop, group[i])
	}
	return Decision{Keep: group[keepIdx], Drop: drop}
}

// keepBefore reports whether a should be kept in preference to b.
func keepBefore(a, b media.LibraryItem, pref Preference) bool {
	switch pref {
	case DeleteNewest:
		// The newest copies are deleted, so the oldest sorts first.
		at, bt := addedUnix(a), addedUnix(b)
		if at != bt {
			return at < bt
		}
	case DeleteOldest:
		at, bt := addedUnix(a), addedUnix(b)
		if at != bt {
			return at > bt
		}
	case DeleteSmallestFile:
		// The smallest copies are deleted, so the largest sorts first.
		// Unknown sizes are treated as infinitely large here, never
		// deleted on size grounds alone.
		as, bs := sizeOrMax(a), sizeOrMax(b)
		if as != bs {
			return as > bs
		}
	case DeleteLargestFile:
		as, bs := sizeOrZero(a), sizeOrZero(b)
		if as != bs {
			return as < bs
		}
	}
	return qualityBefore(a, b)
}

// qualityBefore is the tie-break: higher resolution first, then larger size.
func qualityBefore(a, b media.LibraryItem) bool {
	ar, br := a.BestResolution(), b.BestResolution()
	if ar != br {
		return ar > br
	}
	as, _ := a.BestSize()
	bs, _ := b.BestSize()
	return as > bs
}

func addedUnix(it media.LibraryItem) int64 {
	if it.AddedAt.IsZero() {
		return 0
	}
	return it.AddedAt.Unix()
}

func sizeOrMax(it media.LibraryItem) int64 {
	size, known := it.BestSize()
	if !known {
		return math.MaxInt64
	}
	return size
}

func sizeOrZero(it media.LibraryItem) int64 {
	size, known := it.BestSize()
	if !known {
		return 0
	}
	return size
}

// RankFacets applies the same ranking one level down, at file-version
// granularity within a single item: the returned keep facet survives and
// drop lists the losing versions. Facets carry no added timestamp, so the
// time preferences decide purely on the quality tie-break.
func RankFacets(facets []media.QualityFacet, policy Policy) (media.QualityFacet, []media.QualityFacet) {
	if len(facets) == 0 {
		return media.QualityFacet{}, nil
	}

	pool := make([]int, 0, len(facets))
	for i := range facets {
		if policy.PreservesFacet(facets[i]) {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i := range facets {
			pool = append(pool, i)
		}
	}

	sort.SliceStable(pool, func(a, b int) bool {
		return keepFacetBefore(facets[pool[a]], facets[pool[b]], policy.Preference)
	})
	keepIdx := pool[0]

	drop := make([]media.QualityFacet, 0, len(facets)-1)
	for i := range facets {
		if i == keepIdx {
			continue
		}
		drop = append(drop, facets[i])
	}
	return facets[keepIdx], drop
}

func keepFacetBefore(a, b media.QualityFacet, pref Preference) bool {
	switch pref {
	case DeleteSmallestFile:
		as, bs := facetSizeOr(a, math.MaxInt64), facetSizeOr(b, math.MaxInt64)
		if as != bs {
			return as > bs
		}
	case DeleteLargestFile:
		as, bs := facetSizeOr(a, 0), facetSizeOr(b, 0)
		if as != bs {
			return as < bs
		}
	}
	if a.ResolutionPriority != b.ResolutionPriority {
		return a.ResolutionPriority > b.ResolutionPriority
	}
	return a.FileSizeBytes > b.FileSizeBytes
}

func facetSizeOr(f media.QualityFacet, unknown int64) int64 {
	if f.FileSizeBytes <= 0 {
		return unknown
	}
	return f.FileSizeBytes
}
