package conversion

import (
	"context"
	"io"
	"time"

	"mediaondemand/models"
)

// ObjectStore is durable key->bytes storage with time-limited retrieval URLs.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	// List returns at most limit full keys under prefix.
	List(ctx context.Context, prefix string, limit int) ([]string, error)
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// PublicURL returns "" when the store cannot build one.
	PublicURL(key string) string
}

// JobService is the document conversion provider.
type JobService interface {
	Submit(ctx context.Context, sourceURL, filename string) (*models.ConversionJob, error)
	Poll(ctx context.Context, jobID string) (*models.ConversionJob, error)
}

type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

type EventLog interface {
	Append(ctx context.Context, event *models.ConversionEvent) error
}

// Transcoder is the video provider. Asset creation returns before the asset
// is playable.
type Transcoder interface {
	CreateAsset(ctx context.Context, sourceURL string) (*models.VideoAsset, error)
	GetAsset(ctx context.Context, assetID string) (*models.VideoAsset, error)
}

// AssetIndex remembers which asset was created for a content id and caches
// terminal asset statuses.
type AssetIndex interface {
	LookupAsset(ctx context.Context, contentID string) (string, error)
	RememberAsset(ctx context.Context, contentID, assetID string) error
	CachedStatus(ctx context.Context, assetID string) (*models.VideoAsset, error)
	CacheStatus(ctx context.Context, asset *models.VideoAsset) error
}

type SearchIndex interface {
	UpdateVideo(ctx context.Context, objectID string, asset *models.VideoAsset) error
}

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
