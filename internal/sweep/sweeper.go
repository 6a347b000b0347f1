package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/dedupe"
	"github.com/sweeparr/sweeparr/internal/media"
	"github.com/sweeparr/sweeparr/internal/titlematch"
)

// ErrNoSections reports that no library section of the requested kind could
// be indexed. It is the only condition that fails a whole sweep; individual
// section, group, and item errors degrade to warnings.
var ErrNoSections = errors.New("no library sections could be indexed")

// Sweeper runs full reconciliation passes over the library. The zero value
// is not usable; populate Library and Policy at minimum. Movies, Shows and
// Watchlist are optional; modes that need an absent service skip the
// corresponding actions.
type Sweeper struct {
	Library   media.LibraryService
	Movies    media.AcquisitionService
	Shows     media.SeriesAcquisitionService
	Watchlist media.WatchlistService

	Policy      dedupe.Policy
	DryRun      bool
	MaxInFlight int
	Logger      zerolog.Logger
}

// Options narrows a sweep. Target restricts processing to one title, given
// as an external id or a title string; empty means everything.
type Options struct {
	Target string
}

// SweepMovies deduplicates all movie sections.
func (s *Sweeper) SweepMovies(ctx context.Context, opts Options) (*Summary, error) {
	sum := newSummary("movies", opts.Target, s.DryRun)
	log := s.Logger.With().Str("component", "sweeper").Logger()

	sections, err := s.listSections(ctx, media.KindMovie)
	if err != nil {
		return sum.finish(), err
	}

	builder := dedupe.NewBuilder(s.Library, s.MaxInFlight, s.Logger)
	idx := builder.BuildMovieIndex(ctx, sections)
	if err := s.recordIndex(sum, idx); err != nil {
		return sum.finish(), err
	}

	exec := NewExecutor(s.Library, s.Movies, s.Policy, s.DryRun, s.Logger)
	for _, g := range idx.Groups() {
		if !s.matchTarget(g.ExternalID(), g.Title(), opts.Target) {
			continue
		}
		sum.Groups++
		dec := dedupe.Rank(g.Items, s.Policy)
		c := exec.Apply(ctx, g, dec)
		if c.Failures == 0 && (c.Deleted > 0 || c.WouldDelete > 0) {
			c.Add(exec.Unmonitor(ctx, g.ExternalID(), g.Title(), dec.Keep.Year))
		}
		sum.Counters.Add(c)
	}

	log.Info().
		Int("groups", sum.Groups).
		Int("deleted", sum.Deleted).
		Int("wouldDelete", sum.WouldDelete).
		Int("failures", sum.Failures).
		Msg("Movie sweep finished")
	return sum.finish(), nil
}

// SweepShows deduplicates all show sections at episode granularity. After
// the groups are processed, every affected series whose library copy is
// complete is unmonitored in the tracker.
func (s *Sweeper) SweepShows(ctx context.Context, opts Options) (*Summary, error) {
	sum := newSummary("shows", opts.Target, s.DryRun)
	log := s.Logger.With().Str("component", "sweeper").Logger()

	sections, err := s.listSections(ctx, media.KindShow)
	if err != nil {
		return sum.finish(), err
	}

	builder := dedupe.NewBuilder(s.Library, s.MaxInFlight, s.Logger)
	idx := builder.BuildEpisodeIndex(ctx, sections)
	if err := s.recordIndex(sum, idx); err != nil {
		return sum.finish(), err
	}
	have := episodePresence(idx)

	exec := NewSeriesExecutor(s.Library, s.Shows, s.Policy, s.DryRun, s.Logger)
	affected := make(map[int64]string)
	for _, g := range idx.Groups() {
		if !s.matchTarget(g.ExternalID(), g.Title(), opts.Target) {
			continue
		}
		sum.Groups++
		dec := dedupe.Rank(g.Items, s.Policy)
		c := exec.Apply(ctx, g, dec)
		if c.Failures == 0 && (c.Deleted > 0 || c.WouldDelete > 0) {
			if g.IsEpisode() {
				c.Add(exec.UnmonitorEpisode(ctx, g.ExternalID(), g.Title(), g.Season(), g.EpisodeNum()))
			}
			if id := g.ExternalID(); id != 0 {
				affected[id] = g.Title()
			}
		}
		sum.Counters.Add(c)
	}

	if s.Shows != nil && len(affected) > 0 {
		sum.Counters.Add(s.unmonitorCompleteSeries(ctx, exec, affected, have, sum))
	}

	log.Info().
		Int("groups", sum.Groups).
		Int("deleted", sum.Deleted).
		Int("wouldDelete", sum.WouldDelete).
		Int("failures", sum.Failures).
		Msg("Show sweep finished")
	return sum.finish(), nil
}

// unmonitorCompleteSeries runs the completeness guard over every series
// touched by the sweep and unmonitors the ones the library holds in full.
func (s *Sweeper) unmonitorCompleteSeries(ctx context.Context, exec *Executor, affected map[int64]string, have map[int64]map[media.EpisodeKey]bool, sum *Summary) Counters {
	var c Counters
	guard := NewGuard(s.Shows, s.Logger)

	ids := make([]int64, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		title := affected[id]
		proof, err := guard.CheckSeriesByTitle(ctx, id, title, have[id])
		if err != nil {
			sum.Warnf("completeness check for %q failed: %v", title, err)
			c.Failures++
			continue
		}
		if !proof.Allowed {
			s.Logger.Debug().
				Str("show", title).
				Int("missing", len(proof.Missing)).
				Msg("Series incomplete, keeping monitored")
			c.Skipped++
			continue
		}
		c.Add(exec.Unmonitor(ctx, id, title, 0))
	}
	return c
}

// PruneWatchlist removes watchlist entries already satisfied by the
// library.
func (s *Sweeper) PruneWatchlist(ctx context.Context) (*Summary, error) {
	sum := newSummary("watchlist", "", s.DryRun)
	if s.Watchlist == nil {
		return sum.finish(), errors.New("no watchlist service configured")
	}

	movies, warnings, err := s.listItems(ctx, media.KindMovie)
	if err != nil {
		return sum.finish(), err
	}
	sum.Warnings = append(sum.Warnings, warnings...)
	sum.Items += len(movies)

	var guard *Guard
	if s.Shows != nil {
		guard = NewGuard(s.Shows, s.Logger)
	}
	pruner := NewWatchlistPruner(s.Watchlist, guard, s.DryRun, s.Logger)

	c, err := pruner.PruneMovies(ctx, movies)
	if err != nil {
		return sum.finish(), err
	}
	sum.Counters.Add(c)

	if guard != nil {
		showSections, err := s.listSections(ctx, media.KindShow)
		if err != nil && !errors.Is(err, ErrNoSections) {
			return sum.finish(), err
		}
		if len(showSections) > 0 {
			shows, warnings, err := s.listItems(ctx, media.KindShow)
			if err != nil {
				return sum.finish(), err
			}
			sum.Warnings = append(sum.Warnings, warnings...)
			sum.Items += len(shows)

			builder := dedupe.NewBuilder(s.Library, s.MaxInFlight, s.Logger)
			idx := builder.BuildEpisodeIndex(ctx, showSections)
			sum.Warnings = append(sum.Warnings, idx.Warnings...)

			c, err := pruner.PruneShows(ctx, shows, episodePresence(idx))
			if err != nil {
				return sum.finish(), err
			}
			sum.Counters.Add(c)
		}
	}

	s.Logger.Info().
		Int("removed", sum.Removed).
		Int("wouldRemove", sum.WouldRemove).
		Int("skipped", sum.Skipped).
		Msg("Watchlist prune finished")
	return sum.finish(), nil
}

// ConfirmMonitoring unmonitors tracker entries whose content the library
// already holds.
func (s *Sweeper) ConfirmMonitoring(ctx context.Context) (*Summary, error) {
	sum := newSummary("monitor", "", s.DryRun)
	confirm := NewMonitorConfirm(s.Movies, s.Shows, s.DryRun, s.Logger)

	if s.Movies != nil {
		movies, warnings, err := s.listItems(ctx, media.KindMovie)
		if err != nil {
			return sum.finish(), err
		}
		sum.Warnings = append(sum.Warnings, warnings...)
		sum.Items += len(movies)

		inLibrary := make(map[int64]bool)
		for _, it := range movies {
			if it.ExternalID != 0 {
				inLibrary[it.ExternalID] = true
			}
		}
		c, err := confirm.ConfirmMovies(ctx, inLibrary)
		if err != nil {
			return sum.finish(), err
		}
		sum.Counters.Add(c)
	}

	if s.Shows != nil {
		showSections, err := s.listSections(ctx, media.KindShow)
		if err != nil && !errors.Is(err, ErrNoSections) {
			return sum.finish(), err
		}
		if len(showSections) > 0 {
			builder := dedupe.NewBuilder(s.Library, s.MaxInFlight, s.Logger)
			idx := builder.BuildEpisodeIndex(ctx, showSections)
			sum.Warnings = append(sum.Warnings, idx.Warnings...)
			sum.Items += idx.Total

			c, err := confirm.ConfirmShows(ctx, episodePresence(idx))
			if err != nil {
				return sum.finish(), err
			}
			sum.Counters.Add(c)
		}
	}

	s.Logger.Info().
		Int("unmonitored", sum.Unmonitored).
		Int("wouldUnmonitor", sum.WouldUnmonitor).
		Msg("Monitor confirmation finished")
	return sum.finish(), nil
}

func (s *Sweeper) listSections(ctx context.Context, kind media.SectionKind) ([]media.Section, error) {
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	sections, err := s.Library.ListSections(rctx, kind)
	if err != nil {
		return nil, fmt.Errorf("listing %s sections: %w", kind, err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no %s sections found", ErrNoSections, kind)
	}
	return sections, nil
}

// listItems flattens every item of every section of a kind. Section
// failures degrade to warnings; only a total failure is an error.
func (s *Sweeper) listItems(ctx context.Context, kind media.SectionKind) ([]media.LibraryItem, []string, error) {
	sections, err := s.listSections(ctx, kind)
	if err != nil {
		return nil, nil, err
	}

	var items []media.LibraryItem
	var warnings []string
	ok := 0
	for _, section := range sections {
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		got, err := s.Library.ListItems(rctx, section)
		cancel()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("section %q skipped: %v", section.Title, err))
			continue
		}
		ok++
		items = append(items, got...)
	}
	if ok == 0 {
		return nil, warnings, fmt.Errorf("%w: every %s section failed", ErrNoSections, kind)
	}
	return items, warnings, nil
}

// recordIndex copies index statistics into the summary and enforces the
// sweep-fatal rule.
func (s *Sweeper) recordIndex(sum *Summary, idx *dedupe.Index) error {
	sum.Sections = idx.Sections
	sum.FailedSections = idx.Failed
	sum.Items = idx.Total
	sum.Warnings = append(sum.Warnings, idx.Warnings...)
	if idx.Sections == 0 {
		return fmt.Errorf("%w: all %d sections failed", ErrNoSections, idx.Failed)
	}
	return nil
}

// matchTarget reports whether a group matches the sweep target: numeric
// targets match the external id, anything else matches the title.
func (s *Sweeper) matchTarget(externalID int64, title, target string) bool {
	if target == "" {
		return true
	}
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return externalID == id
	}
	nt := titlematch.Normalize(target)
	if nt == "" {
		return false
	}
	if titlematch.Normalize(title) == nt {
		return true
	}
	return titlematch.DiceCoefficient(nt, titlematch.Normalize(title)) >= titlematch.DefaultCutoff
}

// episodePresence maps series external id to the set of episodes the
// library holds, derived from an episode index.
func episodePresence(idx *dedupe.Index) map[int64]map[media.EpisodeKey]bool {
	have := make(map[int64]map[media.EpisodeKey]bool)
	for _, items := range idx.Items {
		for _, it := range items {
			if it.ExternalID == 0 || (it.Season == 0 && it.Episode == 0) {
				continue
			}
			eps := have[it.ExternalID]
			if eps == nil {
				eps = make(map[media.EpisodeKey]bool)
				have[it.ExternalID] = eps
			}
			eps[media.EpisodeKey{Season: it.Season, Episode: it.Episode}] = true
		}
	}
	return have
}
