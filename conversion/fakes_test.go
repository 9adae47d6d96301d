package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"mediaondemand/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

type fakeJobs struct {
	submitted []string
	submitErr error
	jobID     string
	// statuses are returned in order by Poll; the last one repeats.
	statuses []models.ConversionJob
	polls    int
}

func (f *fakeJobs) Submit(_ context.Context, sourceURL, filename string) (*models.ConversionJob, error) {
	f.submitted = append(f.submitted, filename)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.ConversionJob{JobID: f.jobID, Status: models.JobPending}, nil
}

func (f *fakeJobs) Poll(_ context.Context, jobID string) (*models.ConversionJob, error) {
	idx := f.polls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.polls++
	job := f.statuses[idx]
	job.JobID = jobID
	return &job, nil
}

type fakeStore struct {
	objects   map[string]string
	uploadErr error
	signErr   error
	publicURL bool
	uploads   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]string{}}
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) List(_ context.Context, prefix string, limit int) ([]string, error) {
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) && len(keys) < limit {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *fakeStore) Upload(_ context.Context, key string, body io.Reader, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = string(data)
	s.uploads = append(s.uploads, key)
	return nil
}

func (s *fakeStore) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return "https://storage.test/sign/" + key + "?expires=" + expiry.String(), nil
}

func (s *fakeStore) PublicURL(key string) string {
	if !s.publicURL {
		return ""
	}
	return "https://storage.test/public/" + key
}

type fakeDownloader struct {
	body string
	err  error
}

func (d *fakeDownloader) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	if d.err != nil {
		return nil, d.err
	}
	return io.NopCloser(strings.NewReader(d.body)), nil
}

type fakeEvents struct {
	events []*models.ConversionEvent
	err    error
}

func (e *fakeEvents) Append(_ context.Context, event *models.ConversionEvent) error {
	e.events = append(e.events, event)
	return e.err
}

type fakeTranscoder struct {
	created   []string
	createErr error
	assets    map[string]*models.VideoAsset
	getErr    error
	gets      int
}

func (t *fakeTranscoder) CreateAsset(_ context.Context, sourceURL string) (*models.VideoAsset, error) {
	t.created = append(t.created, sourceURL)
	if t.createErr != nil {
		return nil, t.createErr
	}
	return &models.VideoAsset{ID: "asset-1", Status: "preparing", PlaybackID: "play-1"}, nil
}

func (t *fakeTranscoder) GetAsset(_ context.Context, assetID string) (*models.VideoAsset, error) {
	t.gets++
	if t.getErr != nil {
		return nil, t.getErr
	}
	asset, ok := t.assets[assetID]
	if !ok {
		return nil, errors.New("Mux 404: not found")
	}
	copied := *asset
	return &copied, nil
}

type fakeAssets struct {
	byContent map[string]string
	statuses  map[string]*models.VideoAsset
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{byContent: map[string]string{}, statuses: map[string]*models.VideoAsset{}}
}

func (a *fakeAssets) LookupAsset(_ context.Context, contentID string) (string, error) {
	return a.byContent[contentID], nil
}

func (a *fakeAssets) RememberAsset(_ context.Context, contentID, assetID string) error {
	a.byContent[contentID] = assetID
	return nil
}

func (a *fakeAssets) CachedStatus(_ context.Context, assetID string) (*models.VideoAsset, error) {
	return a.statuses[assetID], nil
}

func (a *fakeAssets) CacheStatus(_ context.Context, asset *models.VideoAsset) error {
	a.statuses[asset.ID] = asset
	return nil
}

type fakeSearch struct {
	updates map[string]*models.VideoAsset
	err     error
}

func (s *fakeSearch) UpdateVideo(_ context.Context, objectID string, asset *models.VideoAsset) error {
	if s.updates == nil {
		s.updates = map[string]*models.VideoAsset{}
	}
	s.updates[objectID] = asset
	return s.err
}

// stallingJobs accepts the job and then never answers a poll before the
// caller's context ends.
type stallingJobs struct {
	stall time.Duration
}

func (s *stallingJobs) Submit(_ context.Context, _, _ string) (*models.ConversionJob, error) {
	return &models.ConversionJob{JobID: "job-stalled", Status: models.JobPending}, nil
}

func (s *stallingJobs) Poll(ctx context.Context, _ string) (*models.ConversionJob, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("CloudConvert request failed: %w", ctx.Err())
	case <-time.After(s.stall):
		return nil, errors.New("CloudConvert request failed: Client.Timeout exceeded")
	}
}
