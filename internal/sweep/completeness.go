package sweep

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
)

// Proof is the outcome of a completeness check. A series-level destructive
// action may proceed only when Allowed is true.
type Proof struct {
	Allowed bool
	Missing []media.EpisodeKey
}

// Guard blocks series-level actions unless the library provably holds every
// relevant episode of the series. Season 0 (specials) never counts against
// completeness. A check that cannot be performed denies the action.
type Guard struct {
	series media.SeriesAcquisitionService
	logger zerolog.Logger

	catalogLoaded bool
	catalog       []media.Entry
	catalogErr    error
}

// NewGuard creates a completeness guard backed by the given series tracker.
func NewGuard(series media.SeriesAcquisitionService, logger zerolog.Logger) *Guard {
	return &Guard{
		series: series,
		logger: logger.With().Str("component", "guard").Logger(),
	}
}

// CheckSeries verifies that every episode the tracker lists for the series
// exists in the library. have maps episode numbers to library presence.
func (g *Guard) CheckSeries(ctx context.Context, seriesID int64, have map[media.EpisodeKey]bool) (Proof, error) {
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	eps, err := g.series.ListEpisodesBySeriesID(rctx, seriesID)
	if err != nil {
		return Proof{}, fmt.Errorf("listing episodes for series %d: %w", seriesID, err)
	}
	return proofFor(eps, -1, have), nil
}

// CheckSeason is CheckSeries restricted to one season.
func (g *Guard) CheckSeason(ctx context.Context, seriesID int64, season int, have map[media.EpisodeKey]bool) (Proof, error) {
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	eps, err := g.series.ListEpisodesBySeriesID(rctx, seriesID)
	if err != nil {
		return Proof{}, fmt.Errorf("listing episodes for series %d: %w", seriesID, err)
	}
	return proofFor(eps, season, have), nil
}

// CheckSeriesByTitle resolves a library show to a tracked series and runs
// CheckSeries on it. A show the tracker does not know cannot be proven
// complete, so the action is denied without error.
func (g *Guard) CheckSeriesByTitle(ctx context.Context, externalID int64, title string, have map[media.EpisodeKey]bool) (Proof, error) {
	entries, err := g.trackerCatalog(ctx)
	if err != nil {
		return Proof{}, fmt.Errorf("loading series catalog: %w", err)
	}
	entry := resolveEntry(entries, externalID, title, 0)
	if entry == nil {
		g.logger.Debug().Str("show", title).Msg("Series not tracked, denying series-level action")
		return Proof{Allowed: false}, nil
	}
	return g.CheckSeries(ctx, entry.ID, have)
}

func (g *Guard) trackerCatalog(ctx context.Context) ([]media.Entry, error) {
	if !g.catalogLoaded {
		g.catalogLoaded = true
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		defer cancel()
		g.catalog, g.catalogErr = g.series.ListAll(rctx)
	}
	return g.catalog, g.catalogErr
}

// proofFor checks the tracker's full episode list against library presence.
// season < 0 means all seasons. Every episode the tracker knows about must
// be present, regardless of its monitored or downloaded state; only season
// 0 is exempt.
func proofFor(eps []media.Episode, season int, have map[media.EpisodeKey]bool) Proof {
	var missing []media.EpisodeKey
	for _, ep := range eps {
		if ep.Season == 0 {
			continue
		}
		if season >= 0 && ep.Season != season {
			continue
		}
		k := media.EpisodeKey{Season: ep.Season, Episode: ep.Episode}
		if !have[k] {
			missing = append(missing, k)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].Season != missing[j].Season {
			return missing[i].Season < missing[j].Season
		}
		return missing[i].Episode < missing[j].Episode
	})
	return Proof{Allowed: len(missing) == 0, Missing: missing}
}
