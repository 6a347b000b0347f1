package sweep

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
)

// MonitorConfirm unmonitors acquisition entries whose content has landed in
// the library, so they stop being candidates for re-download. Movies flip a
// single flag; shows confirm season by season and only unmonitor the series
// once every season is confirmed.
type MonitorConfirm struct {
	movies media.AcquisitionService
	shows  media.SeriesAcquisitionService
	dryRun bool
	logger zerolog.Logger
}

// NewMonitorConfirm creates a confirmer. Either service may be nil; the
// corresponding Confirm call then does nothing.
func NewMonitorConfirm(movies media.AcquisitionService, shows media.SeriesAcquisitionService, dryRun bool, logger zerolog.Logger) *MonitorConfirm {
	return &MonitorConfirm{
		movies: movies,
		shows:  shows,
		dryRun: dryRun,
		logger: logger.With().Str("component", "monitor").Logger(),
	}
}

// ConfirmMovies unmonitors every monitored movie whose external id appears
// in the library.
func (m *MonitorConfirm) ConfirmMovies(ctx context.Context, inLibrary map[int64]bool) (Counters, error) {
	var c Counters
	if m.movies == nil {
		return c, nil
	}

	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	entries, err := m.movies.ListAll(rctx)
	cancel()
	if err != nil {
		return c, fmt.Errorf("listing movies: %w", err)
	}

	for _, en := range entries {
		if !en.Monitored || en.ExternalID == 0 || !inLibrary[en.ExternalID] {
			continue
		}
		if m.dryRun {
			m.logger.Info().Str("title", en.Title).Msg("Would unmonitor downloaded movie")
			c.WouldUnmonitor++
			continue
		}
		mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
		err := m.movies.SetMonitored(mctx, en.ID, false)
		cancel()
		if err != nil {
			m.logger.Warn().Err(err).Str("title", en.Title).Msg("Unmonitor failed")
			c.Failures++
			continue
		}
		m.logger.Info().Str("title", en.Title).Msg("Unmonitored downloaded movie")
		c.Unmonitored++
	}
	return c, nil
}

// ConfirmShows walks every tracked series and unmonitors landed content at
// every granularity: individual episodes present in the library, seasons
// whose episodes all have files and exist in the library, and finally the
// series itself once every season is confirmed. have maps series external
// id to library episode presence.
func (m *MonitorConfirm) ConfirmShows(ctx context.Context, have map[int64]map[media.EpisodeKey]bool) (Counters, error) {
	var c Counters
	if m.shows == nil {
		return c, nil
	}

	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	series, err := m.shows.ListAll(rctx)
	cancel()
	if err != nil {
		return c, fmt.Errorf("listing series: %w", err)
	}

	for _, s := range series {
		haveEps := have[s.ExternalID]
		if len(haveEps) == 0 {
			continue
		}
		c.Add(m.confirmSeries(ctx, s, haveEps))
	}
	return c, nil
}

func (m *MonitorConfirm) confirmSeries(ctx context.Context, s media.Entry, have map[media.EpisodeKey]bool) Counters {
	var c Counters
	log := m.logger.With().Str("show", s.Title).Logger()

	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	eps, err := m.shows.ListEpisodesBySeriesID(rctx, s.ID)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("Episode listing failed, skipping series")
		c.Failures++
		return c
	}

	bySeason := make(map[int][]media.Episode)
	for _, ep := range eps {
		if ep.Season == 0 {
			continue
		}
		bySeason[ep.Season] = append(bySeason[ep.Season], ep)
	}
	seasons := make([]int, 0, len(bySeason))
	for season := range bySeason {
		seasons = append(seasons, season)
	}
	sort.Ints(seasons)

	allConfirmed := len(seasons) > 0
	for _, season := range seasons {
		confirmed := true
		monitoredAny := false
		for _, ep := range bySeason[season] {
			inLibrary := have[media.EpisodeKey{Season: ep.Season, Episode: ep.Episode}]
			if !ep.HasFile || !inLibrary {
				confirmed = false
			}
			if ep.Monitored {
				monitoredAny = true
				// Episodes that landed are unmonitored one by one even
				// when the rest of their season is still outstanding.
				if inLibrary {
					c.Add(m.unmonitorEpisode(ctx, log, ep))
				}
			}
		}
		if !confirmed {
			allConfirmed = false
			continue
		}
		if !monitoredAny {
			continue
		}
		if m.dryRun {
			log.Info().Int("season", season).Msg("Would unmonitor confirmed season")
			c.WouldUnmonitor++
			continue
		}
		mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
		err := m.shows.SetSeasonMonitored(mctx, s.ID, season, false)
		cancel()
		if err != nil {
			log.Warn().Err(err).Int("season", season).Msg("Season unmonitor failed")
			c.Failures++
			allConfirmed = false
			continue
		}
		log.Info().Int("season", season).Msg("Unmonitored confirmed season")
		c.Unmonitored++
	}

	if !allConfirmed || !s.Monitored {
		return c
	}
	if m.dryRun {
		log.Info().Msg("Would unmonitor fully confirmed series")
		c.WouldUnmonitor++
		return c
	}
	mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()
	if err := m.shows.SetMonitored(mctx, s.ID, false); err != nil {
		log.Warn().Err(err).Msg("Series unmonitor failed")
		c.Failures++
		return c
	}
	log.Info().Msg("Unmonitored fully confirmed series")
	c.Unmonitored++
	return c
}

func (m *MonitorConfirm) unmonitorEpisode(ctx context.Context, log zerolog.Logger, ep media.Episode) Counters {
	var c Counters
	if m.dryRun {
		log.Info().Int("season", ep.Season).Int("episode", ep.Episode).Msg("Would unmonitor downloaded episode")
		c.WouldUnmonitor++
		return c
	}
	mctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()
	if err := m.shows.SetEpisodeMonitored(mctx, ep.ID, false); err != nil {
		log.Warn().Err(err).Int("season", ep.Season).Int("episode", ep.Episode).Msg("Episode unmonitor failed")
		c.Failures++
		return c
	}
	log.Info().Int("season", ep.Season).Int("episode", ep.Episode).Msg("Unmonitored downloaded episode")
	c.Unmonitored++
	return c
}
