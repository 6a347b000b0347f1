package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
	"github.com/sweeparr/sweeparr/internal/titlematch"
)

// watchlistCutoff is stricter than the general resolve cutoff: removing a
// watchlist entry on a wrong match silently loses user intent.
const watchlistCutoff = 0.8

// WatchlistPruner removes watchlist entries whose content is already in the
// library. Show entries are additionally gated by the completeness guard so
// a partly collected series stays on the list.
type WatchlistPruner struct {
	watchlist media.WatchlistService
	guard     *Guard
	dryRun    bool
	logger    zerolog.Logger
}

// NewWatchlistPruner creates a pruner. guard may be nil when no series
// tracker is configured; show entries are then never removed.
func NewWatchlistPruner(watchlist media.WatchlistService, guard *Guard, dryRun bool, logger zerolog.Logger) *WatchlistPruner {
	return &WatchlistPruner{
		watchlist: watchlist,
		guard:     guard,
		dryRun:    dryRun,
		logger:    logger.With().Str("component", "watchlist").Logger(),
	}
}

// PruneMovies removes watchlist movies that exist in the library.
func (p *WatchlistPruner) PruneMovies(ctx context.Context, library []media.LibraryItem) (Counters, error) {
	var c Counters
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	entries, err := p.watchlist.List(rctx, media.KindMovie)
	cancel()
	if err != nil {
		return c, fmt.Errorf("listing movie watchlist: %w", err)
	}

	for _, en := range entries {
		it := matchLibrary(en, library)
		if it == nil {
			continue
		}
		c.Add(p.remove(ctx, en, it.Title))
	}
	return c, nil
}

// PruneShows removes watchlist shows whose series the library provably
// holds in full. have maps show external id to library episode presence.
func (p *WatchlistPruner) PruneShows(ctx context.Context, shows []media.LibraryItem, have map[int64]map[media.EpisodeKey]bool) (Counters, error) {
	var c Counters
	if p.guard == nil {
		return c, nil
	}
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	entries, err := p.watchlist.List(rctx, media.KindShow)
	cancel()
	if err != nil {
		return c, fmt.Errorf("listing show watchlist: %w", err)
	}

	for _, en := range entries {
		it := matchLibrary(en, shows)
		if it == nil {
			continue
		}
		proof, err := p.guard.CheckSeriesByTitle(ctx, it.ExternalID, it.Title, have[it.ExternalID])
		if err != nil {
			p.logger.Warn().Err(err).Str("show", it.Title).Msg("Completeness check failed, keeping watchlist entry")
			c.Failures++
			continue
		}
		if !proof.Allowed {
			p.logger.Debug().
				Str("show", it.Title).
				Int("missing", len(proof.Missing)).
				Msg("Series incomplete, keeping watchlist entry")
			c.Skipped++
			continue
		}
		c.Add(p.remove(ctx, en, it.Title))
	}
	return c, nil
}

func (p *WatchlistPruner) remove(ctx context.Context, en media.WatchlistEntry, matchedTitle string) Counters {
	var c Counters
	log := p.logger.With().Str("title", en.Title).Str("match", matchedTitle).Logger()

	if p.dryRun {
		log.Info().Msg("Would remove watchlist entry")
		c.WouldRemove++
		return c
	}

	mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()
	err := p.watchlist.Remove(mctx, en.Key)
	switch {
	case err == nil:
		log.Info().Msg("Removed watchlist entry")
		c.Removed++
	case errors.Is(err, media.ErrNotFound):
		c.NotFound++
	default:
		log.Warn().Err(err).Msg("Watchlist removal failed")
		c.Failures++
	}
	return c
}

// matchLibrary finds the library item a watchlist entry refers to: exact
// year-qualified title first, then fuzzy title above watchlistCutoff.
func matchLibrary(en media.WatchlistEntry, library []media.LibraryItem) *media.LibraryItem {
	nt := titlematch.Normalize(en.Title)
	if nt == "" {
		return nil
	}

	for i := range library {
		if titlematch.Normalize(library[i].Title) != nt {
			continue
		}
		if en.Year == 0 || library[i].Year == 0 || en.Year == library[i].Year {
			return &library[i]
		}
	}

	cands := make([]titlematch.Candidate, len(library))
	for i := range library {
		cands[i] = titlematch.Candidate{ID: int64(i), Title: library[i].Title}
	}
	if m := titlematch.Resolve(en.Title, cands, watchlistCutoff); m != nil {
		return &library[m.ID]
	}
	return nil
}
