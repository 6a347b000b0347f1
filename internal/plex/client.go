// Package plex provides an HTTP client for a Plex Media Server, exposing
// it through the media.LibraryService contract.
package plex

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/media"
)

const (
	defaultTimeout = 90 * time.Second
	//nolint:gosec // header name constant, not a credential
	tokenHeader = "X-Plex-Token"

	readAttempts = 3
	retryDelay   = 2 * time.Second
)

// Client provides HTTP communication with a Plex Media Server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientConfig contains configuration for creating a Plex client.
type ClientConfig struct {
	URL           string
	Token         string
	Timeout       int
	SkipSSLVerify bool
	Logger        zerolog.Logger
}

// NewClient creates a new Plex HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("plex URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("plex token is required")
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	transport := &http.Transport{}
	if cfg.SkipSSLVerify {
		//nolint:gosec // admin-configured endpoint, TLS verification optional
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	return &Client{
		baseURL: baseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: cfg.Logger.With().
			Str("component", "plex-client").
			Str("url", baseURL).
			Logger(),
	}, nil
}

// ListSections returns the library sections of the requested kind.
func (c *Client) ListSections(ctx context.Context, kind media.SectionKind) ([]media.Section, error) {
	var container mediaContainer
	if err := c.getJSON(ctx, "/library/sections", &container); err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}

	var sections []media.Section
	for _, d := range container.MediaContainer.Directory {
		if d.Type != string(kind) {
			continue
		}
		sections = append(sections, media.Section{ID: d.Key, Title: d.Title, Kind: kind})
	}
	return sections, nil
}

// ListItems returns every item of a section.
func (c *Client) ListItems(ctx context.Context, section media.Section) ([]media.LibraryItem, error) {
	var container mediaContainer
	path := fmt.Sprintf("/library/sections/%s/all", section.ID)
	if err := c.getJSON(ctx, path, &container); err != nil {
		return nil, fmt.Errorf("listing section %s: %w", section.ID, err)
	}

	items := make([]media.LibraryItem, 0, len(container.MediaContainer.Metadata))
	for _, md := range container.MediaContainer.Metadata {
		items = append(items, itemFrom(md, section.ID, section.Kind))
	}
	return items, nil
}

// GetItemDetails re-fetches a single item with its current facets.
func (c *Client) GetItemDetails(ctx context.Context, ratingKey string) (*media.LibraryItem, error) {
	var container mediaContainer
	if err := c.getJSON(ctx, "/library/metadata/"+ratingKey, &container); err != nil {
		return nil, fmt.Errorf("fetching item %s: %w", ratingKey, err)
	}
	if len(container.MediaContainer.Metadata) == 0 {
		return nil, media.ErrNotFound
	}

	md := container.MediaContainer.Metadata[0]
	kind := media.KindMovie
	if md.Type == "show" || md.Type == "episode" {
		kind = media.KindShow
	}
	it := itemFrom(md, "", kind)
	return &it, nil
}

// DeleteItem deletes an item and its files from the server.
func (c *Client) DeleteItem(ctx context.Context, ratingKey string) error {
	return c.delete(ctx, "/library/metadata/"+ratingKey)
}

// DeleteVersion deletes a single file version of an item.
func (c *Client) DeleteVersion(ctx context.Context, ratingKey, mediaID string) error {
	return c.delete(ctx, fmt.Sprintf("/library/metadata/%s/media/%s", ratingKey, mediaID))
}

// ListEpisodes returns every episode of a show across all of its seasons.
func (c *Client) ListEpisodes(ctx context.Context, showRatingKey string) ([]media.LibraryItem, error) {
	var container mediaContainer
	path := fmt.Sprintf("/library/metadata/%s/allLeaves", showRatingKey)
	if err := c.getJSON(ctx, path, &container); err != nil {
		return nil, fmt.Errorf("listing episodes of %s: %w", showRatingKey, err)
	}

	items := make([]media.LibraryItem, 0, len(container.MediaContainer.Metadata))
	for _, md := range container.MediaContainer.Metadata {
		items = append(items, itemFrom(md, "", media.KindShow))
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Msg("executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// getJSON executes a GET with retries and decodes the JSON response. Only
// reads are retried.
func (c *Client) getJSON(ctx context.Context, path string, result interface{}) error {
	return retry.Do(
		func() error {
			resp, err := c.do(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				bodyBytes, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
			}
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(readAttempts),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Err(err).Uint("attempt", n+1).Str("path", path).Msg("request failed, retrying")
		}),
	)
}

func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return media.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
