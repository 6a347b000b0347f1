package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
)

// fakeLibrary serves canned sections and items; sections listed in fail
// error out to exercise per-section isolation.
type fakeLibrary struct {
	items    map[string][]media.LibraryItem // sectionID -> items
	episodes map[string][]media.LibraryItem // showRatingKey -> episodes
	fail     map[string]bool
}

var errBoom = errors.New("connection refused")

func (f *fakeLibrary) ListSections(ctx context.Context, kind media.SectionKind) ([]media.Section, error) {
	return nil, nil
}

func (f *fakeLibrary) ListItems(ctx context.Context, section media.Section) ([]media.LibraryItem, error) {
	if f.fail[section.ID] {
		return nil, errBoom
	}
	return f.items[section.ID], nil
}

func (f *fakeLibrary) GetItemDetails(ctx context.Context, ratingKey string) (*media.LibraryItem, error) {
	return nil, media.ErrNotFound
}

func (f *fakeLibrary) DeleteItem(ctx context.Context, ratingKey string) error { return nil }

func (f *fakeLibrary) DeleteVersion(ctx context.Context, ratingKey, mediaID string) error {
	return nil
}

func (f *fakeLibrary) ListEpisodes(ctx context.Context, showRatingKey string) ([]media.LibraryItem, error) {
	if f.fail[showRatingKey] {
		return nil, errBoom
	}
	return f.episodes[showRatingKey], nil
}

func TestBuildMovieIndex_MergesSectionsByExternalID(t *testing.T) {
	lib := &fakeLibrary{
		items: map[string][]media.LibraryItem{
			"1": {
				{RatingKey: "a", SectionID: "1", ExternalID: 100},
				{RatingKey: "b", SectionID: "1", ExternalID: 200},
			},
			"2": {
				{RatingKey: "c", SectionID: "2", ExternalID: 100},
			},
		},
	}
	b := NewBuilder(lib, 2, zerolog.Nop())

	idx := b.BuildMovieIndex(context.Background(), []media.Section{
		{ID: "1", Title: "Movies", Kind: media.KindMovie},
		{ID: "2", Title: "Movies 4K", Kind: media.KindMovie},
	})

	if idx.Sections != 2 || idx.Failed != 0 {
		t.Fatalf("Sections/Failed = %d/%d, want 2/0", idx.Sections, idx.Failed)
	}
	if got := len(idx.Items[movieKey(100)]); got != 2 {
		t.Errorf("items under key 100 = %d, want 2 (merged across sections)", got)
	}
	if got := len(idx.Items[movieKey(200)]); got != 1 {
		t.Errorf("items under key 200 = %d, want 1", got)
	}
}

func TestBuildMovieIndex_SectionFailureIsIsolated(t *testing.T) {
	lib := &fakeLibrary{
		items: map[string][]media.LibraryItem{
			"1": {{RatingKey: "a", SectionID: "1", ExternalID: 100}},
		},
		fail: map[string]bool{"2": true},
	}
	b := NewBuilder(lib, 0, zerolog.Nop())

	idx := b.BuildMovieIndex(context.Background(), []media.Section{
		{ID: "1", Title: "Movies", Kind: media.KindMovie},
		{ID: "2", Title: "Broken", Kind: media.KindMovie},
	})

	if idx.Sections != 1 || idx.Failed != 1 {
		t.Fatalf("Sections/Failed = %d/%d, want 1/1", idx.Sections, idx.Failed)
	}
	if len(idx.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one entry for the broken section", idx.Warnings)
	}
	if idx.Total != 1 {
		t.Errorf("Total = %d, want 1", idx.Total)
	}
}

func TestBuildMovieIndex_IsolatesItemsWithoutExternalID(t *testing.T) {
	lib := &fakeLibrary{
		items: map[string][]media.LibraryItem{
			"1": {
				{RatingKey: "a", SectionID: "1", Title: "Unmatched One"},
				{RatingKey: "b", SectionID: "1", Title: "Unmatched One"},
			},
		},
	}
	b := NewBuilder(lib, 1, zerolog.Nop())

	idx := b.BuildMovieIndex(context.Background(), []media.Section{
		{ID: "1", Title: "Movies", Kind: media.KindMovie},
	})

	// Identical titles but no external id: never merged, never duplicates.
	if len(idx.Groups()) != 0 {
		t.Errorf("Groups() = %d, want 0 for unidentified items", len(idx.Groups()))
	}
}

func TestBuildEpisodeIndex_GroupsAcrossLibraries(t *testing.T) {
	lib := &fakeLibrary{
		items: map[string][]media.LibraryItem{
			"1": {{RatingKey: "show1", SectionID: "1", SectionKind: media.KindShow, Title: "Some Show", ExternalID: 42}},
			"2": {{RatingKey: "show2", SectionID: "2", SectionKind: media.KindShow, Title: "Some  Show!"}},
		},
		episodes: map[string][]media.LibraryItem{
			"show1": {
				{RatingKey: "e1", SectionID: "1", SectionKind: media.KindShow, ShowTitle: "Some Show", Season: 1, Episode: 1},
			},
			"show2": {
				{RatingKey: "e2", SectionID: "2", SectionKind: media.KindShow, ShowTitle: "Some Show", Season: 1, Episode: 1},
			},
		},
	}
	b := NewBuilder(lib, 2, zerolog.Nop())

	idx := b.BuildEpisodeIndex(context.Background(), []media.Section{
		{ID: "1", Title: "TV", Kind: media.KindShow},
		{ID: "2", Title: "Kids TV", Kind: media.KindShow},
	})

	// show1 has an external id, show2 falls back to the normalized title,
	// so the two copies land under different keys: external id and title
	// keys never merge with each other.
	if idx.Total != 2 {
		t.Fatalf("Total = %d, want 2", idx.Total)
	}
	if got := len(idx.Items[episodeKey("ext:42", 1, 1)]); got != 1 {
		t.Errorf("episodes under ext key = %d, want 1", got)
	}
	if got := len(idx.Items[episodeKey("title:someshow", 1, 1)]); got != 1 {
		t.Errorf("episodes under title key = %d, want 1", got)
	}
}

func TestBuildEpisodeIndex_SameTitleKeyMerges(t *testing.T) {
	lib := &fakeLibrary{
		items: map[string][]media.LibraryItem{
			"1": {{RatingKey: "show1", SectionID: "1", SectionKind: media.KindShow, Title: "Some Show"}},
			"2": {{RatingKey: "show2", SectionID: "2", SectionKind: media.KindShow, Title: "some  show"}},
		},
		episodes: map[string][]media.LibraryItem{
			"show1": {{RatingKey: "e1", SectionID: "1", SectionKind: media.KindShow, Season: 1, Episode: 1}},
			"show2": {{RatingKey: "e2", SectionID: "2", SectionKind: media.KindShow, Season: 1, Episode: 1}},
		},
	}
	b := NewBuilder(lib, 2, zerolog.Nop())

	idx := b.BuildEpisodeIndex(context.Background(), []media.Section{
		{ID: "1", Title: "TV", Kind: media.KindShow},
		{ID: "2", Title: "Kids TV", Kind: media.KindShow},
	})

	if got := len(idx.Items[episodeKey("title:someshow", 1, 1)]); got != 2 {
		t.Errorf("episodes under title key = %d, want 2 (merged across sections)", got)
	}
}

func TestBuildEpisodeIndex_ShowFailureIsIsolated(t *testing.T) {
	lib := &fakeLibrary{
		items: map[string][]media.LibraryItem{
			"1": {
				{RatingKey: "good", SectionID: "1", SectionKind: media.KindShow, Title: "Good Show", ExternalID: 1},
				{RatingKey: "bad", SectionID: "1", SectionKind: media.KindShow, Title: "Bad Show", ExternalID: 2},
			},
		},
		episodes: map[string][]media.LibraryItem{
			"good": {{RatingKey: "e1", SectionID: "1", SectionKind: media.KindShow, Season: 1, Episode: 1}},
		},
		fail: map[string]bool{"bad": true},
	}
	b := NewBuilder(lib, 2, zerolog.Nop())

	idx := b.BuildEpisodeIndex(context.Background(), []media.Section{
		{ID: "1", Title: "TV", Kind: media.KindShow},
	})

	if idx.Total != 1 {
		t.Errorf("Total = %d, want 1 (bad show skipped)", idx.Total)
	}
	if len(idx.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one entry for the failing show", idx.Warnings)
	}
}

func TestBuildEpisodeIndex_CarriesShowExternalID(t *testing.T) {
	lib := &fakeLibrary{
		items: map[string][]media.LibraryItem{
			"1": {{RatingKey: "show1", SectionID: "1", SectionKind: media.KindShow, Title: "Some Show", ExternalID: 42}},
		},
		episodes: map[string][]media.LibraryItem{
			"show1": {{RatingKey: "e1", SectionID: "1", SectionKind: media.KindShow, Season: 1, Episode: 1}},
		},
	}
	b := NewBuilder(lib, 1, zerolog.Nop())

	idx := b.BuildEpisodeIndex(context.Background(), []media.Section{
		{ID: "1", Title: "TV", Kind: media.KindShow},
	})

	eps := idx.Items[episodeKey("ext:42", 1, 1)]
	if len(eps) != 1 || eps[0].ExternalID != 42 {
		t.Fatalf("episode ExternalID = %+v, want inherited 42", eps)
	}
}
