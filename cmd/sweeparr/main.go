package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sweeparr/sweeparr/internal/arr"
	"github.com/sweeparr/sweeparr/internal/config"
	"github.com/sweeparr/sweeparr/internal/database"
	"github.com/sweeparr/sweeparr/internal/history"
	"github.com/sweeparr/sweeparr/internal/logger"
	"github.com/sweeparr/sweeparr/internal/media"
	"github.com/sweeparr/sweeparr/internal/plex"
	"github.com/sweeparr/sweeparr/internal/sweep"
)

func main() {
	// Local overrides for development; missing file is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	mode := flag.String("mode", "movies", "What to run: movies, shows, watchlist, monitor or all")
	target := flag.String("target", "", "Restrict the sweep to one title (external id or title)")
	dryRun := flag.Bool("dry-run", false, "Report actions without executing them")
	logPath := flag.String("log-path", "", "Directory for log files (empty: console only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   *logPath,
	})
	defer log.Close()

	if err := run(cfg, log, *mode, *target, *dryRun); err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, mode, target string, dryRun bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	library, err := plex.NewClient(plex.ClientConfig{
		URL:           cfg.Plex.URL,
		Token:         cfg.Plex.Token,
		Timeout:       cfg.Plex.Timeout,
		SkipSSLVerify: cfg.Plex.SkipSSLVerify,
		Logger:        log.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating plex client: %w", err)
	}

	var movies media.AcquisitionService
	if cfg.Radarr.Enabled() {
		radarr, err := arr.NewRadarr(arr.ClientConfig{
			URL:           cfg.Radarr.URL,
			APIKey:        cfg.Radarr.APIKey,
			Timeout:       cfg.Radarr.Timeout,
			SkipSSLVerify: cfg.Radarr.SkipSSLVerify,
			Logger:        log.Logger,
		})
		if err != nil {
			return fmt.Errorf("creating radarr client: %w", err)
		}
		movies = radarr
	}

	var shows media.SeriesAcquisitionService
	if cfg.Sonarr.Enabled() {
		sonarr, err := arr.NewSonarr(arr.ClientConfig{
			URL:           cfg.Sonarr.URL,
			APIKey:        cfg.Sonarr.APIKey,
			Timeout:       cfg.Sonarr.Timeout,
			SkipSSLVerify: cfg.Sonarr.SkipSSLVerify,
			Logger:        log.Logger,
		})
		if err != nil {
			return fmt.Errorf("creating sonarr client: %w", err)
		}
		shows = sonarr
	}

	watchlist, err := plex.NewWatchlist(plex.WatchlistConfig{
		Token:   cfg.Plex.Token,
		Timeout: cfg.Plex.Timeout,
		Logger:  log.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating watchlist client: %w", err)
	}

	sweeper := &sweep.Sweeper{
		Library:     library,
		Movies:      movies,
		Shows:       shows,
		Watchlist:   watchlist,
		Policy:      cfg.Sweep.Policy(),
		DryRun:      dryRun,
		MaxInFlight: cfg.Sweep.MaxInFlight,
		Logger:      log.Logger,
	}
	runs := history.NewService(db, log.Logger)

	log.Info().
		Str("mode", mode).
		Str("target", target).
		Bool("dryRun", dryRun).
		Str("preference", string(cfg.Sweep.Policy().Preference)).
		Msg("Starting run")

	var modes []string
	switch mode {
	case "all":
		modes = []string{"movies", "shows", "monitor", "watchlist"}
	case "movies", "shows", "watchlist", "monitor":
		modes = []string{mode}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	var failed bool
	for _, m := range modes {
		sum, err := dispatch(ctx, sweeper, m, target)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.Error().Err(err).Str("mode", m).Msg("Mode failed")
			failed = true
		}
		if sum == nil {
			continue
		}
		runID, recErr := runs.Record(ctx, sum)
		if recErr != nil {
			log.Warn().Err(recErr).Msg("Failed to record run history")
		}
		log.Info().
			Str("mode", sum.Mode).
			Str("runId", runID).
			Int("deleted", sum.Deleted).
			Int("wouldDelete", sum.WouldDelete).
			Int("unmonitored", sum.Unmonitored).
			Int("downstreamNotFound", sum.DownstreamNotFound).
			Int("removed", sum.Removed).
			Int("failures", sum.Failures).
			Int("warnings", len(sum.Warnings)).
			Msg("Run finished")
	}
	if failed {
		return errors.New("one or more modes failed")
	}
	return nil
}

func dispatch(ctx context.Context, s *sweep.Sweeper, mode, target string) (*sweep.Summary, error) {
	switch mode {
	case "movies":
		return s.SweepMovies(ctx, sweep.Options{Target: target})
	case "shows":
		return s.SweepShows(ctx, sweep.Options{Target: target})
	case "watchlist":
		return s.PruneWatchlist(ctx)
	case "monitor":
		return s.ConfirmMonitoring(ctx)
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}
