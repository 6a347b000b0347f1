package dedupe

import (
	"fmt"
	"sort"

	"github.com/sweeparr/sweeparr/internal/media"
	"github.com/sweeparr/sweeparr/internal/titlematch"
)

// GroupKey identifies one logical title across every in-scope section.
type GroupKey string

// movieKey keys a movie by its catalog id.
func movieKey(externalID int64) GroupKey {
	return GroupKey(fmt.Sprintf("ext:%d", externalID))
}

// episodeKey keys an episode by show key plus season/episode numbers.
func episodeKey(showKey string, season, episode int) GroupKey {
	return GroupKey(fmt.Sprintf("%s/s%02de%02d", showKey, season, episode))
}

// isolatedKey gives an item with no usable dedup key a key of its own, so it
// can never be merged with anything else.
func isolatedKey(it media.LibraryItem) GroupKey {
	return GroupKey("item:" + it.SectionID + ":" + it.RatingKey)
}

// showKey derives the cross-library key for a show: the external id when
// resolved, otherwise the normalized show title. Returns false when neither
// is usable; the caller must then isolate the item rather than guess.
func showKey(it media.LibraryItem) (string, bool) {
	if it.ExternalID != 0 {
		return fmt.Sprintf("ext:%d", it.ExternalID), true
	}
	title := it.ShowTitle
	if title == "" {
		title = it.Title
	}
	if n := titlematch.Normalize(title); n != "" {
		return "title:" + n, true
	}
	return "", false
}

// Group is one duplicate set: every item across all in-scope sections
// sharing one group key.
type Group struct {
	Key   GroupKey
	Items []media.LibraryItem
}

// ExternalID returns the group's catalog id: the first non-zero id among
// its members, or 0 when none resolved.
func (g Group) ExternalID() int64 {
	for _, it := range g.Items {
		if it.ExternalID != 0 {
			return it.ExternalID
		}
	}
	return 0
}

// Title returns a display title for the group, preferring the show title
// for episode groups.
func (g Group) Title() string {
	for _, it := range g.Items {
		if it.ShowTitle != "" {
			return it.ShowTitle
		}
	}
	for _, it := range g.Items {
		if it.Title != "" {
			return it.Title
		}
	}
	return ""
}

// IsEpisode reports whether the group holds episodes of a show.
func (g Group) IsEpisode() bool {
	return len(g.Items) > 0 && g.Items[0].IsEpisode()
}

// Season and EpisodeNum identify episode groups; zero for movie groups.
func (g Group) Season() int {
	if len(g.Items) == 0 {
		return 0
	}
	return g.Items[0].Season
}

func (g Group) EpisodeNum() int {
	if len(g.Items) == 0 {
		return 0
	}
	return g.Items[0].Episode
}

// Groups returns the duplicate sets of the index in deterministic key
// order. A key qualifies when it has two or more members, or when its
// single member carries two or more file versions (so that intra-item
// version cleanup still runs on it).
func (idx *Index) Groups() []Group {
	keys := make([]string, 0, len(idx.Items))
	for key, items := range idx.Items {
		if len(items) >= 2 || (len(items) == 1 && len(items[0].Facets) >= 2) {
			keys = append(keys, string(key))
		}
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, Group{Key: GroupKey(key), Items: idx.Items[GroupKey(key)]})
	}
	return groups
}
