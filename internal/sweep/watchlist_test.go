package sweep

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
)

func TestMatchLibrary(t *testing.T) {
	library := []media.LibraryItem{
		{RatingKey: "a", Title: "Heat", Year: 1995},
		{RatingKey: "b", Title: "Heat", Year: 2023},
		{RatingKey: "c", Title: "The Matrix Reloaded", Year: 2003},
	}

	tests := []struct {
		name  string
		entry media.WatchlistEntry
		want  string // rating key, "" = no match
	}{
		{"exact title and year", media.WatchlistEntry{Title: "Heat", Year: 2023}, "b"},
		{"exact title unknown year", media.WatchlistEntry{Title: "heat"}, "a"},
		{"fuzzy above cutoff", media.WatchlistEntry{Title: "Matrix Reloaded"}, "c"},
		{"different title", media.WatchlistEntry{Title: "Oppenheimer", Year: 2023}, ""},
		{"year mismatch falls back to fuzzy", media.WatchlistEntry{Title: "The Matrix Reloaded", Year: 2004}, "c"},
		{"empty title", media.WatchlistEntry{Title: "!!"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchLibrary(tt.entry, library)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("matched %+v, want none", got)
			case tt.want != "" && (got == nil || got.RatingKey != tt.want):
				t.Errorf("matched %+v, want %s", got, tt.want)
			}
		})
	}
}

func TestPruneMovies_RemovalIsIdempotent(t *testing.T) {
	wl := &memWatchlist{movies: []media.WatchlistEntry{{Key: "w1", Title: "Heat", Year: 1995}}}
	library := []media.LibraryItem{{RatingKey: "a", Title: "Heat", Year: 1995}}
	p := NewWatchlistPruner(wl, nil, false, zerolog.Nop())

	c, err := p.PruneMovies(context.Background(), library)
	if err != nil {
		t.Fatalf("PruneMovies: %v", err)
	}
	if c.Removed != 1 {
		t.Fatalf("Removed = %d, want 1", c.Removed)
	}

	c, err = p.PruneMovies(context.Background(), library)
	if err != nil {
		t.Fatalf("second PruneMovies: %v", err)
	}
	if c.Removed != 0 || c.Failures != 0 {
		t.Errorf("second run counters = %+v, want all zero", c)
	}
}

func TestPruneMovies_DryRunKeepsEntries(t *testing.T) {
	wl := &memWatchlist{movies: []media.WatchlistEntry{{Key: "w1", Title: "Heat", Year: 1995}}}
	library := []media.LibraryItem{{RatingKey: "a", Title: "Heat", Year: 1995}}
	p := NewWatchlistPruner(wl, nil, true, zerolog.Nop())

	c, err := p.PruneMovies(context.Background(), library)
	if err != nil {
		t.Fatalf("PruneMovies: %v", err)
	}
	if c.WouldRemove != 1 || c.Removed != 0 {
		t.Errorf("counters = %+v, want one WouldRemove", c)
	}
	if len(wl.movies) != 1 {
		t.Errorf("dry run removed the entry")
	}
}

func TestPruneShows_NoGuardMeansNoRemovals(t *testing.T) {
	wl := &memWatchlist{shows: []media.WatchlistEntry{{Key: "w1", Title: "Dark"}}}
	p := NewWatchlistPruner(wl, nil, false, zerolog.Nop())

	c, err := p.PruneShows(context.Background(), []media.LibraryItem{{RatingKey: "s", Title: "Dark"}}, nil)
	if err != nil {
		t.Fatalf("PruneShows: %v", err)
	}
	if c.Removed != 0 || len(wl.shows) != 1 {
		t.Errorf("shows must never be removed without a completeness guard")
	}
}

func TestPruneShows_CompleteSeriesRemoved(t *testing.T) {
	wl := &memWatchlist{shows: []media.WatchlistEntry{{Key: "w1", Title: "Dark"}}}
	tracker := &memTracker{
		entries:  []media.Entry{{ID: 9, ExternalID: 42, Title: "Dark", Monitored: true}},
		episodes: map[int64][]media.Episode{9: {{ID: 901, Season: 1, Episode: 1, Monitored: true, HasFile: true}}},
	}
	p := NewWatchlistPruner(wl, NewGuard(tracker, zerolog.Nop()), false, zerolog.Nop())

	shows := []media.LibraryItem{{RatingKey: "s", Title: "Dark", ExternalID: 42}}
	have := map[int64]map[media.EpisodeKey]bool{42: {{Season: 1, Episode: 1}: true}}

	c, err := p.PruneShows(context.Background(), shows, have)
	if err != nil {
		t.Fatalf("PruneShows: %v", err)
	}
	if c.Removed != 1 || len(wl.shows) != 0 {
		t.Errorf("complete series should be pruned, counters = %+v", c)
	}
}
