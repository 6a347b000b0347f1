package arr

import (
	"context"
	"fmt"

	"github.com/sweeparr/sweeparr/internal/media"
)

// Radarr is a movie acquisition client implementing
// media.AcquisitionService.
type Radarr struct {
	*client
}

// NewRadarr creates a Radarr client.
func NewRadarr(cfg ClientConfig) (*Radarr, error) {
	c, err := newClient(cfg, "radarr")
	if err != nil {
		return nil, err
	}
	return &Radarr{client: c}, nil
}

type radarrMovie struct {
	ID        int64  `json:"id"`
	TmdbID    int64  `json:"tmdbId"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Monitored bool   `json:"monitored"`
}

// ListAll returns every movie Radarr tracks.
func (r *Radarr) ListAll(ctx context.Context) ([]media.Entry, error) {
	var movies []radarrMovie
	if err := r.getJSON(ctx, "/api/v3/movie", &movies); err != nil {
		return nil, fmt.Errorf("listing movies: %w", err)
	}

	entries := make([]media.Entry, 0, len(movies))
	for _, m := range movies {
		entries = append(entries, media.Entry{
			ID:         m.ID,
			ExternalID: m.TmdbID,
			Title:      m.Title,
			Year:       m.Year,
			Monitored:  m.Monitored,
		})
	}
	return entries, nil
}

// SetMonitored flips the monitored flag of one movie. The full movie
// object is round-tripped so unrelated fields survive the update.
func (r *Radarr) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	path := fmt.Sprintf("/api/v3/movie/%d", id)

	var movie map[string]interface{}
	if err := r.getJSON(ctx, path, &movie); err != nil {
		return fmt.Errorf("fetching movie %d: %w", id, err)
	}
	movie["monitored"] = monitored

	if err := r.putJSON(ctx, path, movie); err != nil {
		return fmt.Errorf("updating movie %d: %w", id, err)
	}
	return nil
}
