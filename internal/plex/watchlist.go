package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
)

// The watchlist lives on the Plex cloud service, not the local server.
const (
	defaultMetadataURL = "https://metadata.provider.plex.tv"
	defaultDiscoverURL = "https://discover.provider.plex.tv"
)

// Plex type codes used by the watchlist endpoint.
const (
	typeMovie = "1"
	typeShow  = "2"
)

// Watchlist is a client for the account watchlist, implementing
// media.WatchlistService.
type Watchlist struct {
	metadataURL string
	discoverURL string
	token       string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// WatchlistConfig contains configuration for creating a watchlist client.
// MetadataURL and DiscoverURL default to the public Plex endpoints.
type WatchlistConfig struct {
	Token       string
	MetadataURL string
	DiscoverURL string
	Timeout     int
	Logger      zerolog.Logger
}

// NewWatchlist creates a watchlist client.
func NewWatchlist(cfg WatchlistConfig) (*Watchlist, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("plex token is required")
	}

	metadataURL := defaultMetadataURL
	if cfg.MetadataURL != "" {
		metadataURL = strings.TrimSuffix(cfg.MetadataURL, "/")
	}
	discoverURL := defaultDiscoverURL
	if cfg.DiscoverURL != "" {
		discoverURL = strings.TrimSuffix(cfg.DiscoverURL, "/")
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &Watchlist{
		metadataURL: metadataURL,
		discoverURL: discoverURL,
		token:       cfg.Token,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      cfg.Logger.With().Str("component", "plex-watchlist").Logger(),
	}, nil
}

// List returns the watchlist entries of the requested kind.
func (w *Watchlist) List(ctx context.Context, kind media.SectionKind) ([]media.WatchlistEntry, error) {
	typeCode := typeMovie
	if kind == media.KindShow {
		typeCode = typeShow
	}
	reqURL := fmt.Sprintf("%s/library/sections/watchlist/all?type=%s", w.metadataURL, typeCode)

	var container mediaContainer
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set(tokenHeader, w.token)
			req.Header.Set("Accept", "application/json")

			resp, err := w.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				bodyBytes, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
			}
			return json.NewDecoder(resp.Body).Decode(&container)
		},
		retry.Context(ctx),
		retry.Attempts(readAttempts),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("listing watchlist: %w", err)
	}

	entries := make([]media.WatchlistEntry, 0, len(container.MediaContainer.Metadata))
	for _, md := range container.MediaContainer.Metadata {
		entries = append(entries, media.WatchlistEntry{
			Key:   md.RatingKey,
			Title: md.Title,
			Year:  md.Year,
		})
	}
	return entries, nil
}

// Remove drops one entry from the watchlist. Entries that are already gone
// report media.ErrNotFound.
func (w *Watchlist) Remove(ctx context.Context, key string) error {
	reqURL := fmt.Sprintf("%s/actions/removeFromWatchlist?ratingKey=%s", w.discoverURL, url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(tokenHeader, w.token)
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return media.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("removal failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	w.logger.Debug().Str("ratingKey", key).Msg("removed watchlist entry")
	return nil
}
