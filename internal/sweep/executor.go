package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/dedupe"
	"github.com/sweeparr/sweeparr/internal/media"
	"github.com/sweeparr/sweeparr/internal/titlematch"
)

const (
	readTimeout   = 15 * time.Second
	mutateTimeout = 60 * time.Second
)

// Executor applies ranking decisions: it deletes surplus library copies,
// trims surplus file versions from the kept copy, and unmonitors resolved
// titles in the acquisition system. Every action is idempotent; targets
// that are already gone count as NotFound, not as failures.
//
// An Executor serves a single run and is not safe for concurrent use. The
// acquisition catalog is fetched once per run and reused across groups.
type Executor struct {
	library media.LibraryService
	acq     media.AcquisitionService
	series  media.SeriesAcquisitionService
	policy  dedupe.Policy
	dryRun  bool
	logger  zerolog.Logger

	catalogLoaded bool
	catalog       []media.Entry
	catalogErr    error
	episodeCache  map[int64][]media.Episode
}

// NewExecutor creates an executor for movie groups. acq may be nil when no
// acquisition system is configured; unmonitoring is then skipped.
func NewExecutor(library media.LibraryService, acq media.AcquisitionService, policy dedupe.Policy, dryRun bool, logger zerolog.Logger) *Executor {
	return &Executor{
		library: library,
		acq:     acq,
		policy:  policy,
		dryRun:  dryRun,
		logger:  logger.With().Str("component", "executor").Logger(),
	}
}

// NewSeriesExecutor creates an executor for episode groups, with
// episode-level unmonitoring available.
func NewSeriesExecutor(library media.LibraryService, series media.SeriesAcquisitionService, policy dedupe.Policy, dryRun bool, logger zerolog.Logger) *Executor {
	e := NewExecutor(library, series, policy, dryRun, logger)
	e.series = series
	e.episodeCache = make(map[int64][]media.Episode)
	return e
}

// Apply executes one ranking decision: every Drop member is deleted, then
// the kept copy is checked for surplus file versions. Failures are counted
// and logged but never abort the remaining work of the group.
func (e *Executor) Apply(ctx context.Context, g dedupe.Group, dec dedupe.Decision) Counters {
	var c Counters
	for _, it := range dec.Drop {
		c.Add(e.deleteItem(ctx, g, it))
	}
	c.Add(e.cleanVersions(ctx, dec.Keep))
	return c
}

func (e *Executor) deleteItem(ctx context.Context, g dedupe.Group, it media.LibraryItem) Counters {
	var c Counters
	log := e.logger.With().
		Str("title", g.Title()).
		Str("ratingKey", it.RatingKey).
		Str("section", it.SectionID).
		Logger()

	if e.dryRun {
		log.Info().Msg("Would delete duplicate")
		c.WouldDelete++
		return c
	}

	mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()
	err := e.library.DeleteItem(mctx, it.RatingKey)
	switch {
	case errors.Is(err, media.ErrNotFound):
		log.Debug().Msg("Delete target already gone")
		c.NotFound++
	case err != nil:
		log.Warn().Err(err).Msg("Delete failed")
		c.Failures++
	default:
		log.Info().Msg("Deleted duplicate")
		c.Deleted++
	}
	return c
}

// cleanVersions trims surplus file versions from the kept item. The item is
// re-fetched first so decisions run against current facets, not the
// snapshot taken at index time.
func (e *Executor) cleanVersions(ctx context.Context, keep media.LibraryItem) Counters {
	var c Counters
	if len(keep.Facets) < 2 {
		return c
	}

	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	fresh, err := e.library.GetItemDetails(rctx, keep.RatingKey)
	cancel()
	switch {
	case errors.Is(err, media.ErrNotFound):
		c.NotFound++
		return c
	case err != nil:
		e.logger.Warn().Err(err).Str("ratingKey", keep.RatingKey).Msg("Re-fetch before version cleanup failed")
		c.Failures++
		return c
	}
	if len(fresh.Facets) < 2 {
		return c
	}

	_, drop := dedupe.RankFacets(fresh.Facets, e.policy)
	for _, f := range drop {
		log := e.logger.With().
			Str("title", keep.Title).
			Str("ratingKey", keep.RatingKey).
			Str("mediaID", f.MediaID).
			Str("file", f.FilePath).
			Logger()

		if e.dryRun {
			log.Info().Msg("Would delete surplus version")
			c.WouldDelete++
			continue
		}

		mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
		err := e.library.DeleteVersion(mctx, keep.RatingKey, f.MediaID)
		cancel()
		switch {
		case errors.Is(err, media.ErrNotFound):
			c.NotFound++
		case err != nil:
			log.Warn().Err(err).Msg("Version delete failed")
			c.Failures++
		default:
			log.Info().Msg("Deleted surplus version")
			c.Deleted++
		}
	}
	return c
}

// Unmonitor flips the acquisition system's monitored flag off for the
// resolved title. Titles no acquisition entry resolves for count as
// downstream not-found; already unmonitored titles are silent no-ops.
func (e *Executor) Unmonitor(ctx context.Context, externalID int64, title string, year int) Counters {
	var c Counters
	if e.acq == nil {
		return c
	}
	entries, err := e.pvrCatalog(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Acquisition catalog unavailable, skipping unmonitor")
		c.Failures++
		return c
	}

	entry := resolveEntry(entries, externalID, title, year)
	if entry == nil {
		e.logger.Debug().Str("title", title).Msg("Title not tracked by acquisition system")
		c.DownstreamNotFound++
		return c
	}
	if !entry.Monitored {
		return c
	}

	if e.dryRun {
		e.logger.Info().Str("title", entry.Title).Msg("Would unmonitor")
		c.WouldUnmonitor++
		return c
	}

	mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()
	if err := e.acq.SetMonitored(mctx, entry.ID, false); err != nil {
		e.logger.Warn().Err(err).Str("title", entry.Title).Msg("Unmonitor failed")
		c.Failures++
		return c
	}
	e.logger.Info().Str("title", entry.Title).Msg("Unmonitored")
	c.Unmonitored++
	return c
}

// UnmonitorEpisode flips the monitored flag off for a single episode of the
// resolved series.
func (e *Executor) UnmonitorEpisode(ctx context.Context, externalID int64, title string, season, episode int) Counters {
	var c Counters
	if e.series == nil {
		return c
	}
	entries, err := e.pvrCatalog(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Acquisition catalog unavailable, skipping episode unmonitor")
		c.Failures++
		return c
	}
	entry := resolveEntry(entries, externalID, title, 0)
	if entry == nil {
		e.logger.Debug().Str("show", title).Msg("Series not tracked by acquisition system")
		c.DownstreamNotFound++
		return c
	}

	eps, err := e.seriesEpisodes(ctx, entry.ID)
	if err != nil {
		e.logger.Warn().Err(err).Str("show", entry.Title).Msg("Episode listing failed, skipping unmonitor")
		c.Failures++
		return c
	}
	for _, ep := range eps {
		if ep.Season != season || ep.Episode != episode {
			continue
		}
		if !ep.Monitored {
			return c
		}
		if e.dryRun {
			e.logger.Info().
				Str("show", entry.Title).
				Int("season", season).
				Int("episode", episode).
				Msg("Would unmonitor episode")
			c.WouldUnmonitor++
			return c
		}
		mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
		err := e.series.SetEpisodeMonitored(mctx, ep.ID, false)
		cancel()
		if err != nil {
			e.logger.Warn().Err(err).Str("show", entry.Title).Msg("Episode unmonitor failed")
			c.Failures++
			return c
		}
		e.logger.Info().
			Str("show", entry.Title).
			Int("season", season).
			Int("episode", episode).
			Msg("Unmonitored episode")
		c.Unmonitored++
		return c
	}
	e.logger.Debug().
		Str("show", entry.Title).
		Int("season", season).
		Int("episode", episode).
		Msg("Episode not tracked by acquisition system")
	c.DownstreamNotFound++
	return c
}

func (e *Executor) pvrCatalog(ctx context.Context) ([]media.Entry, error) {
	if !e.catalogLoaded {
		e.catalogLoaded = true
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		defer cancel()
		e.catalog, e.catalogErr = e.acq.ListAll(rctx)
	}
	return e.catalog, e.catalogErr
}

func (e *Executor) seriesEpisodes(ctx context.Context, seriesID int64) ([]media.Episode, error) {
	if eps, ok := e.episodeCache[seriesID]; ok {
		return eps, nil
	}
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	eps, err := e.series.ListEpisodesBySeriesID(rctx, seriesID)
	if err != nil {
		return nil, err
	}
	e.episodeCache[seriesID] = eps
	return eps, nil
}

// resolveEntry matches a library title to an acquisition entry: by external
// id when one is known, otherwise by exact year-qualified title, otherwise
// by fuzzy title.
func resolveEntry(entries []media.Entry, externalID int64, title string, year int) *media.Entry {
	if externalID != 0 {
		for i := range entries {
			if entries[i].ExternalID == externalID {
				return &entries[i]
			}
		}
	}
	if title == "" {
		return nil
	}

	if year != 0 {
		nt := titlematch.Normalize(title)
		for i := range entries {
			if entries[i].Year == year && titlematch.Normalize(entries[i].Title) == nt {
				return &entries[i]
			}
		}
	}

	cands := make([]titlematch.Candidate, len(entries))
	for i := range entries {
		cands[i] = titlematch.Candidate{ID: int64(i), Title: entries[i].Title}
	}
	if m := titlematch.Resolve(title, cands, titlematch.DefaultCutoff); m != nil {
		return &entries[m.ID]
	}
	return nil
}
