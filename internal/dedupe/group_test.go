package dedupe

import (
	"testing"

	"github.com/sweeparr/sweeparr/internal/media"
)

func TestGroups_DropsSingletons(t *testing.T) {
	idx := newIndex()
	idx.Items[movieKey(100)] = []media.LibraryItem{
		{RatingKey: "a", ExternalID: 100, Facets: []media.QualityFacet{{MediaID: "m1"}}},
		{RatingKey: "b", ExternalID: 100, Facets: []media.QualityFacet{{MediaID: "m2"}}},
	}
	idx.Items[movieKey(200)] = []media.LibraryItem{
		{RatingKey: "c", ExternalID: 200, Facets: []media.QualityFacet{{MediaID: "m3"}}},
	}

	groups := idx.Groups()
	if len(groups) != 1 {
		t.Fatalf("Groups() = %d groups, want 1", len(groups))
	}
	if groups[0].ExternalID() != 100 {
		t.Errorf("Groups()[0].ExternalID() = %d, want 100", groups[0].ExternalID())
	}
}

func TestGroups_KeepsSingleItemWithMultipleVersions(t *testing.T) {
	// A lone copy that carries two file versions still needs intra-item
	// cleanup, so it surfaces as a group.
	idx := newIndex()
	idx.Items[movieKey(300)] = []media.LibraryItem{
		{RatingKey: "a", ExternalID: 300, Facets: []media.QualityFacet{{MediaID: "m1"}, {MediaID: "m2"}}},
	}

	groups := idx.Groups()
	if len(groups) != 1 {
		t.Fatalf("Groups() = %d groups, want 1", len(groups))
	}
}

func TestGroups_DeterministicOrder(t *testing.T) {
	idx := newIndex()
	for _, id := range []int64{300, 100, 200} {
		idx.Items[movieKey(id)] = []media.LibraryItem{
			{RatingKey: "x", ExternalID: id},
			{RatingKey: "y", ExternalID: id},
		}
	}

	first := idx.Groups()
	for i := 0; i < 5; i++ {
		again := idx.Groups()
		for j := range first {
			if again[j].Key != first[j].Key {
				t.Fatalf("Groups() order changed between calls")
			}
		}
	}
}

func TestShowKey_PrefersExternalID(t *testing.T) {
	key, ok := showKey(media.LibraryItem{ExternalID: 42, Title: "Some Show"})
	if !ok || key != "ext:42" {
		t.Errorf("showKey() = %q, %v; want ext:42, true", key, ok)
	}
}

func TestShowKey_FallsBackToNormalizedTitle(t *testing.T) {
	key, ok := showKey(media.LibraryItem{Title: "Schitt's Creek"})
	if !ok || key != "title:schittscreek" {
		t.Errorf("showKey() = %q, %v; want title:schittscreek, true", key, ok)
	}
}

func TestShowKey_UnusableTitle(t *testing.T) {
	if _, ok := showKey(media.LibraryItem{Title: "!!!"}); ok {
		t.Error("showKey() ok = true, want false for a title with no letters or digits")
	}
}

func TestGroup_EpisodeMetadata(t *testing.T) {
	g := Group{
		Key: episodeKey("ext:42", 2, 5),
		Items: []media.LibraryItem{
			{RatingKey: "e1", SectionKind: media.KindShow, ShowTitle: "Some Show", Season: 2, Episode: 5},
			{RatingKey: "e2", SectionKind: media.KindShow, ShowTitle: "Some Show", Season: 2, Episode: 5},
		},
	}
	if !g.IsEpisode() {
		t.Error("IsEpisode() = false, want true")
	}
	if g.Season() != 2 || g.EpisodeNum() != 5 {
		t.Errorf("Season/EpisodeNum = %d/%d, want 2/5", g.Season(), g.EpisodeNum())
	}
	if g.Title() != "Some Show" {
		t.Errorf("Title() = %q, want %q", g.Title(), "Some Show")
	}
}
