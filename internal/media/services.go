package media

import "context"

// LibraryService is the media library the engine reconciles. Every call is
// individually cancellable; implementations return ErrNotFound for targets
// that are already gone.
type LibraryService interface {
	ListSections(ctx context.Context, kind SectionKind) ([]Section, error)
	// ListItems returns the items of a section with external ids and
	// quality facets already resolved.
	ListItems(ctx context.Context, section Section) ([]LibraryItem, error)
	// GetItemDetails re-fetches one item, including its current facets.
	GetItemDetails(ctx context.Context, ratingKey string) (*LibraryItem, error)
	DeleteItem(ctx context.Context, ratingKey string) error
	// DeleteVersion removes a single file version of an item.
	DeleteVersion(ctx context.Context, ratingKey, mediaID string) error
	// ListEpisodes returns every episode of a show item as full library
	// items (season, episode, show title and facets populated).
	ListEpisodes(ctx context.Context, showRatingKey string) ([]LibraryItem, error)
}

// Entry is one title tracked by a PVR (acquisition) system.
type Entry struct {
	ID         int64 // PVR-internal id
	ExternalID int64 // catalog id shared with the library
	Title      string
	Year       int
	Monitored  bool
}

// Episode is one episode tracked by a PVR system.
type Episode struct {
	ID        int64
	Season    int
	Episode   int
	Monitored bool
	HasFile   bool
}

// AcquisitionService is an external PVR system responsible for acquiring
// content and tracking a monitored flag per title.
type AcquisitionService interface {
	ListAll(ctx context.Context) ([]Entry, error)
	SetMonitored(ctx context.Context, id int64, monitored bool) error
}

// SeriesAcquisitionService extends AcquisitionService with per-episode and
// per-season monitoring, for PVR systems that track TV content.
type SeriesAcquisitionService interface {
	AcquisitionService
	ListEpisodesBySeriesID(ctx context.Context, seriesID int64) ([]Episode, error)
	SetEpisodeMonitored(ctx context.Context, episodeID int64, monitored bool) error
	SetSeasonMonitored(ctx context.Context, seriesID int64, season int, monitored bool) error
}

// WatchlistEntry is one item on the user's watch-request list.
type WatchlistEntry struct {
	Key   string // removal handle
	Title string
	Year  int // 0 = unknown
}

// WatchlistService manages the user's watch-request list.
type WatchlistService interface {
	List(ctx context.Context, kind SectionKind) ([]WatchlistEntry, error)
	Remove(ctx context.Context, key string) error
}
