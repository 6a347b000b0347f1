// Package arr provides HTTP clients for Radarr and Sonarr, exposing them
// through the acquisition service contracts in internal/media.
package arr

import (
	"bytes"
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
)

const (
	defaultTimeout = 90 * time.Second
	//nolint:gosec // header name constant, not a credential
	apiKeyHeader = "X-Api-Key"

	readAttempts = 3
	retryDelay   = 2 * time.Second
)

// client is the shared HTTP plumbing behind the Radarr and Sonarr clients.
type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientConfig contains configuration for creating a PVR client.
type ClientConfig struct {
	URL           string
	APIKey        string
	Timeout       int
	SkipSSLVerify bool
	Logger        zerolog.Logger
}

func newClient(cfg ClientConfig, component string) (*client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%s URL is required", component)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", component)
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	transport := &http.Transport{}
	if cfg.SkipSSLVerify {
		//nolint:gosec // admin-configured endpoint, TLS verification optional
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: cfg.Logger.With().
			Str("component", component).
			Str("url", baseURL).
			Logger(),
	}, nil
}

// do executes an HTTP request with the API key header.
func (c *client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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
// reads are retried; mutations run exactly once.
func (c *client) getJSON(ctx context.Context, path string, result interface{}) error {
	return retry.Do(
		func() error {
			resp, err := c.do(ctx, http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				bodyBytes, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
			}
			if result != nil {
				if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
					return fmt.Errorf("failed to decode response: %w", err)
				}
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

// putJSON executes a PUT with a JSON body, discarding the response.
func (c *client) putJSON(ctx context.Context, path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
