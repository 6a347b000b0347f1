package dedupe

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sweeparr/sweeparr/internal/media"
)

// DefaultInFlight bounds concurrent library calls during indexing.
const DefaultInFlight = 6

// Index maps group keys to every library item claiming that key. It is
// recomputed from scratch on every sweep and never persisted.
type Index struct {
	Items    map[GroupKey][]media.LibraryItem
	Sections int // sections indexed successfully
	Failed   int // sections skipped because of an error
	Total    int // items indexed
	Warnings []string
}

// Builder enumerates library sections and builds cross-library indices.
// Errors in one section never prevent indexing the others: the section
// contributes nothing and is reported as a warning.
type Builder struct {
	library media.LibraryService
	limit   int
	logger  zerolog.Logger
}

// NewBuilder creates an index builder. limit bounds concurrent library
// calls; values <= 0 fall back to DefaultInFlight.
func NewBuilder(library media.LibraryService, limit int, logger zerolog.Logger) *Builder {
	if limit <= 0 {
		limit = DefaultInFlight
	}
	return &Builder{
		library: library,
		limit:   limit,
		logger:  logger.With().Str("component", "index").Logger(),
	}
}

// BuildMovieIndex indexes movie sections keyed by external id. Items
// without a resolved id are isolated under a key of their own.
func (b *Builder) BuildMovieIndex(ctx context.Context, sections []media.Section) *Index {
	idx := newIndex()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)

	for _, section := range sections {
		g.Go(func() error {
			items, err := b.library.ListItems(gctx, section)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Warn().Err(err).
					Str("section", section.Title).
					Msg("Skipping section, listing failed")
				idx.Failed++
				idx.Warnings = append(idx.Warnings,
					fmt.Sprintf("section %q skipped: %v", section.Title, err))
				return nil
			}

			idx.Sections++
			for _, it := range items {
				key := isolatedKey(it)
				if it.ExternalID != 0 {
					key = movieKey(it.ExternalID)
				}
				idx.Items[key] = append(idx.Items[key], it)
				idx.Total++
			}
			return nil
		})
	}

	_ = g.Wait()
	b.logIndex(idx, "movie")
	return idx
}

// BuildEpisodeIndex indexes show sections at episode granularity, keyed by
// (show key, season, episode). Listing failures are isolated per section
// and per show.
func (b *Builder) BuildEpisodeIndex(ctx context.Context, sections []media.Section) *Index {
	idx := newIndex()
	var mu sync.Mutex

	type showRef struct {
		section media.Section
		show    media.LibraryItem
		key     string
	}
	var shows []showRef

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)

	for _, section := range sections {
		g.Go(func() error {
			items, err := b.library.ListItems(gctx, section)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Warn().Err(err).
					Str("section", section.Title).
					Msg("Skipping section, listing failed")
				idx.Failed++
				idx.Warnings = append(idx.Warnings,
					fmt.Sprintf("section %q skipped: %v", section.Title, err))
				return nil
			}

			idx.Sections++
			for _, show := range items {
				key, ok := showKey(show)
				if !ok {
					// No external id and no usable title: nothing safe to
					// merge on, so the show is skipped entirely.
					idx.Warnings = append(idx.Warnings,
						fmt.Sprintf("show %q in section %q has no usable key", show.RatingKey, section.Title))
					continue
				}
				shows = append(shows, showRef{section: section, show: show, key: key})
			}
			return nil
		})
	}
	_ = g.Wait()

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.limit)

	for _, ref := range shows {
		eg.Go(func() error {
			episodes, err := b.library.ListEpisodes(egctx, ref.show.RatingKey)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				title := ref.show.Title
				b.logger.Warn().Err(err).
					Str("show", title).
					Msg("Skipping show, episode listing failed")
				idx.Warnings = append(idx.Warnings,
					fmt.Sprintf("show %q skipped: %v", title, err))
				return nil
			}

			for _, ep := range episodes {
				key := isolatedKey(ep)
				if ep.Season > 0 || ep.Episode > 0 {
					key = episodeKey(ref.key, ep.Season, ep.Episode)
				}
				// Carry the show's external id down to the episode so the
				// executor can resolve the PVR series later.
				if ep.ExternalID == 0 {
					ep.ExternalID = ref.show.ExternalID
				}
				idx.Items[key] = append(idx.Items[key], ep)
				idx.Total++
			}
			return nil
		})
	}
	_ = eg.Wait()

	b.logIndex(idx, "episode")
	return idx
}

// ShowCopies returns every show item claiming the given external id across
// all listed sections, for completeness checks that must consider every
// library copy.
func (b *Builder) ShowCopies(ctx context.Context, sections []media.Section) (map[int64][]media.LibraryItem, []string) {
	copies := make(map[int64][]media.LibraryItem)
	var warnings []string
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)

	for _, section := range sections {
		g.Go(func() error {
			items, err := b.library.ListItems(gctx, section)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings,
					fmt.Sprintf("section %q skipped: %v", section.Title, err))
				return nil
			}
			for _, it := range items {
				if it.ExternalID != 0 {
					copies[it.ExternalID] = append(copies[it.ExternalID], it)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return copies, warnings
}

func newIndex() *Index {
	return &Index{Items: make(map[GroupKey][]media.LibraryItem)}
}

func (b *Builder) logIndex(idx *Index, kind string) {
	b.logger.Info().
		Str("kind", kind).
		Int("sections", idx.Sections).
		Int("failedSections", idx.Failed).
		Int("items", idx.Total).
		Int("keys", len(idx.Items)).
		Msg("Index built")
}
