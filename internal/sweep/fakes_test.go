package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeparr/sweeparr/internal/media"
)

var errBoom = errors.New("connection refused")

// memLibrary is an in-memory media.LibraryService with real delete
// semantics: deleted items disappear and later deletes hit ErrNotFound.
type memLibrary struct {
	sections     map[media.SectionKind][]media.Section
	items        map[string][]media.LibraryItem // section id -> items
	episodes     map[string][]media.LibraryItem // show rating key -> episodes
	failSections map[string]bool
	deleteErr    map[string]error // rating key -> forced error

	sectionsErr error
	deleted     []string
}

func newMemLibrary() *memLibrary {
	return &memLibrary{
		sections:     make(map[media.SectionKind][]media.Section),
		items:        make(map[string][]media.LibraryItem),
		episodes:     make(map[string][]media.LibraryItem),
		failSections: make(map[string]bool),
		deleteErr:    make(map[string]error),
	}
}

func (m *memLibrary) addSection(sec media.Section, items ...media.LibraryItem) {
	m.sections[sec.Kind] = append(m.sections[sec.Kind], sec)
	m.items[sec.ID] = append(m.items[sec.ID], items...)
}

func (m *memLibrary) ListSections(ctx context.Context, kind media.SectionKind) ([]media.Section, error) {
	if m.sectionsErr != nil {
		return nil, m.sectionsErr
	}
	return m.sections[kind], nil
}

func (m *memLibrary) ListItems(ctx context.Context, section media.Section) ([]media.LibraryItem, error) {
	if m.failSections[section.ID] {
		return nil, fmt.Errorf("section %s unavailable", section.ID)
	}
	out := make([]media.LibraryItem, len(m.items[section.ID]))
	copy(out, m.items[section.ID])
	return out, nil
}

func (m *memLibrary) GetItemDetails(ctx context.Context, ratingKey string) (*media.LibraryItem, error) {
	for _, items := range m.items {
		for i := range items {
			if items[i].RatingKey == ratingKey {
				it := items[i]
				return &it, nil
			}
		}
	}
	for _, eps := range m.episodes {
		for i := range eps {
			if eps[i].RatingKey == ratingKey {
				it := eps[i]
				return &it, nil
			}
		}
	}
	return nil, media.ErrNotFound
}

func (m *memLibrary) DeleteItem(ctx context.Context, ratingKey string) error {
	if err := m.deleteErr[ratingKey]; err != nil {
		return err
	}
	for id, items := range m.items {
		for i := range items {
			if items[i].RatingKey == ratingKey {
				m.items[id] = append(items[:i:i], items[i+1:]...)
				m.deleted = append(m.deleted, ratingKey)
				return nil
			}
		}
	}
	for key, eps := range m.episodes {
		for i := range eps {
			if eps[i].RatingKey == ratingKey {
				m.episodes[key] = append(eps[:i:i], eps[i+1:]...)
				m.deleted = append(m.deleted, ratingKey)
				return nil
			}
		}
	}
	return media.ErrNotFound
}

func (m *memLibrary) DeleteVersion(ctx context.Context, ratingKey, mediaID string) error {
	for id, items := range m.items {
		for i := range items {
			if items[i].RatingKey != ratingKey {
				continue
			}
			for j, f := range items[i].Facets {
				if f.MediaID == mediaID {
					facets := items[i].Facets
					m.items[id][i].Facets = append(facets[:j:j], facets[j+1:]...)
					m.deleted = append(m.deleted, ratingKey+"/"+mediaID)
					return nil
				}
			}
			return media.ErrNotFound
		}
	}
	return media.ErrNotFound
}

func (m *memLibrary) ListEpisodes(ctx context.Context, showRatingKey string) ([]media.LibraryItem, error) {
	out := make([]media.LibraryItem, len(m.episodes[showRatingKey]))
	copy(out, m.episodes[showRatingKey])
	return out, nil
}

// memTracker is an in-memory acquisition service covering both the movie
// and the series contracts.
type memTracker struct {
	entries  []media.Entry
	episodes map[int64][]media.Episode

	listErr          error
	unmonitored      []int64
	epUnmonitored    []int64
	seasonUnmonitors []string
}

func (m *memTracker) ListAll(ctx context.Context) ([]media.Entry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]media.Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *memTracker) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].Monitored = monitored
			if !monitored {
				m.unmonitored = append(m.unmonitored, id)
			}
			return nil
		}
	}
	return media.ErrNotFound
}

func (m *memTracker) ListEpisodesBySeriesID(ctx context.Context, seriesID int64) ([]media.Episode, error) {
	out := make([]media.Episode, len(m.episodes[seriesID]))
	copy(out, m.episodes[seriesID])
	return out, nil
}

func (m *memTracker) SetEpisodeMonitored(ctx context.Context, episodeID int64, monitored bool) error {
	for id, eps := range m.episodes {
		for i := range eps {
			if eps[i].ID == episodeID {
				m.episodes[id][i].Monitored = monitored
				if !monitored {
					m.epUnmonitored = append(m.epUnmonitored, episodeID)
				}
				return nil
			}
		}
	}
	return media.ErrNotFound
}

func (m *memTracker) SetSeasonMonitored(ctx context.Context, seriesID int64, season int, monitored bool) error {
	for i := range m.episodes[seriesID] {
		if m.episodes[seriesID][i].Season == season {
			m.episodes[seriesID][i].Monitored = monitored
		}
	}
	if !monitored {
		m.seasonUnmonitors = append(m.seasonUnmonitors, fmt.Sprintf("%d/s%d", seriesID, season))
	}
	return nil
}

// memWatchlist is an in-memory media.WatchlistService.
type memWatchlist struct {
	movies  []media.WatchlistEntry
	shows   []media.WatchlistEntry
	removed []string
}

func (m *memWatchlist) List(ctx context.Context, kind media.SectionKind) ([]media.WatchlistEntry, error) {
	if kind == media.KindShow {
		return append([]media.WatchlistEntry(nil), m.shows...), nil
	}
	return append([]media.WatchlistEntry(nil), m.movies...), nil
}

func (m *memWatchlist) Remove(ctx context.Context, key string) error {
	for i, en := range m.movies {
		if en.Key == key {
			m.movies = append(m.movies[:i:i], m.movies[i+1:]...)
			m.removed = append(m.removed, key)
			return nil
		}
	}
	for i, en := range m.shows {
		if en.Key == key {
			m.shows = append(m.shows[:i:i], m.shows[i+1:]...)
			m.removed = append(m.removed, key)
			return nil
		}
	}
	return media.ErrNotFound
}
