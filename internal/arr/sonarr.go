package arr

import (
	"context"
	"fmt"

	"github.com/sweeparr/sweeparr/internal/media"
)

// Sonarr is a series acquisition client implementing
// media.SeriesAcquisitionService.
type Sonarr struct {
	*client
}

// NewSonarr creates a Sonarr client.
func NewSonarr(cfg ClientConfig) (*Sonarr, error) {
	c, err := newClient(cfg, "sonarr")
	if err != nil {
		return nil, err
	}
	return &Sonarr{client: c}, nil
}

type sonarrSeries struct {
	ID        int64  `json:"id"`
	TvdbID    int64  `json:"tvdbId"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Monitored bool   `json:"monitored"`
}

type sonarrEpisode struct {
	ID            int64 `json:"id"`
	SeasonNumber  int   `json:"seasonNumber"`
	EpisodeNumber int   `json:"episodeNumber"`
	Monitored     bool  `json:"monitored"`
	HasFile       bool  `json:"hasFile"`
}

// ListAll returns every series Sonarr tracks.
func (s *Sonarr) ListAll(ctx context.Context) ([]media.Entry, error) {
	var series []sonarrSeries
	if err := s.getJSON(ctx, "/api/v3/series", &series); err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}

	entries := make([]media.Entry, 0, len(series))
	for _, sr := range series {
		entries = append(entries, media.Entry{
			ID:         sr.ID,
			ExternalID: sr.TvdbID,
			Title:      sr.Title,
			Year:       sr.Year,
			Monitored:  sr.Monitored,
		})
	}
	return entries, nil
}

// SetMonitored flips the monitored flag of one series.
func (s *Sonarr) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	path := fmt.Sprintf("/api/v3/series/%d", id)

	var series map[string]interface{}
	if err := s.getJSON(ctx, path, &series); err != nil {
		return fmt.Errorf("fetching series %d: %w", id, err)
	}
	series["monitored"] = monitored

	if err := s.putJSON(ctx, path, series); err != nil {
		return fmt.Errorf("updating series %d: %w", id, err)
	}
	return nil
}

// ListEpisodesBySeriesID returns every episode of a series.
func (s *Sonarr) ListEpisodesBySeriesID(ctx context.Context, seriesID int64) ([]media.Episode, error) {
	var eps []sonarrEpisode
	path := fmt.Sprintf("/api/v3/episode?seriesId=%d", seriesID)
	if err := s.getJSON(ctx, path, &eps); err != nil {
		return nil, fmt.Errorf("listing episodes for series %d: %w", seriesID, err)
	}

	out := make([]media.Episode, 0, len(eps))
	for _, ep := range eps {
		out = append(out, media.Episode{
			ID:        ep.ID,
			Season:    ep.SeasonNumber,
			Episode:   ep.EpisodeNumber,
			Monitored: ep.Monitored,
			HasFile:   ep.HasFile,
		})
	}
	return out, nil
}

// SetEpisodeMonitored flips the monitored flag of one episode.
func (s *Sonarr) SetEpisodeMonitored(ctx context.Context, episodeID int64, monitored bool) error {
	payload := map[string]interface{}{
		"episodeIds": []int64{episodeID},
		"monitored":  monitored,
	}
	if err := s.putJSON(ctx, "/api/v3/episode/monitor", payload); err != nil {
		return fmt.Errorf("updating episode %d: %w", episodeID, err)
	}
	return nil
}

// SetSeasonMonitored flips the monitored flag of one season by updating
// the season entry inside the series object.
func (s *Sonarr) SetSeasonMonitored(ctx context.Context, seriesID int64, season int, monitored bool) error {
	path := fmt.Sprintf("/api/v3/series/%d", seriesID)

	var series map[string]interface{}
	if err := s.getJSON(ctx, path, &series); err != nil {
		return fmt.Errorf("fetching series %d: %w", seriesID, err)
	}

	seasons, ok := series["seasons"].([]interface{})
	if !ok {
		return fmt.Errorf("series %d has no seasons array", seriesID)
	}
	found := false
	for _, raw := range seasons {
		se, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if num, ok := se["seasonNumber"].(float64); ok && int(num) == season {
			se["monitored"] = monitored
			found = true
		}
	}
	if !found {
		return fmt.Errorf("series %d has no season %d", seriesID, season)
	}

	if err := s.putJSON(ctx, path, series); err != nil {
		return fmt.Errorf("updating series %d: %w", seriesID, err)
	}
	return nil
}
