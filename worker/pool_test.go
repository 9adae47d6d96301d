package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string]string
	types    map[string]string
	failures map[string]int
	inFlight int
	peak     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]string{}, types: map[string]string{}, failures: map[string]int{}}
}

func (s *fakeStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	data, _ := io.ReadAll(body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if s.failures[key] > 0 {
		s.failures[key]--
		return errors.New("503 slow down")
	}
	s.objects[key] = string(data)
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://storage.test/public/" + key
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	return dir
}

func newTestPool(t *testing.T, store Store, workers, retries int) *Pool {
	t.Helper()
	pool := NewPool(store, zaptest.NewLogger(t), workers, retries)
	pool.backoff = func(int) time.Duration { return time.Millisecond }
	return pool
}

func TestVideoJobs(t *testing.T) {
	dir := writeFiles(t, "Intro Clip.MP4", "b roll.mov", "notes.txt", "teaser.webm", "old.m4v", "###.webm")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp4"), 0o755))

	jobs, err := VideoJobs(dir)
	require.NoError(t, err)
	require.Len(t, jobs, 5)

	byName := map[string]UploadJob{}
	for _, job := range jobs {
		byName[job.Filename] = job
	}
	assert.Equal(t, "videos/intro-clip.mp4", byName["Intro Clip.MP4"].Key)
	assert.Equal(t, "video/mp4", byName["Intro Clip.MP4"].ContentType)
	assert.Equal(t, "videos/b-roll.mov", byName["b roll.mov"].Key)
	assert.Equal(t, "video/quicktime", byName["b roll.mov"].ContentType)
	assert.Equal(t, "video/webm", byName["teaser.webm"].ContentType)
	assert.Equal(t, "video/x-m4v", byName["old.m4v"].ContentType)
	assert.Equal(t, "videos/video.webm", byName["###.webm"].Key, "unsluggable names fall back to the kind")
}

func TestPool_UploadsConcurrentlyInOrder(t *testing.T) {
	dir := writeFiles(t, "a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4")
	jobs, err := VideoJobs(dir)
	require.NoError(t, err)

	store := newFakeStore()
	results := newTestPool(t, store, 2, 0).Run(context.Background(), jobs)

	require.Len(t, results, 5)
	for i, res := range results {
		assert.NoError(t, res.Err)
		assert.Equal(t, jobs[i].Filename, res.Filename)
		assert.Equal(t, "https://storage.test/public/"+jobs[i].Key, res.PublicURL)
	}
	assert.Equal(t, "a.mp4", store.objects["videos/a.mp4"])
	assert.LessOrEqual(t, store.peak, 2)
}

func TestPool_RetriesThenGivesUp(t *testing.T) {
	dir := writeFiles(t, "flaky.mp4", "broken.mp4")
	jobs, err := VideoJobs(dir)
	require.NoError(t, err)

	store := newFakeStore()
	store.failures["videos/flaky.mp4"] = 2
	store.failures["videos/broken.mp4"] = 10

	results := newTestPool(t, store, 1, 2).Run(context.Background(), jobs)

	byName := map[string]UploadResult{}
	for _, res := range results {
		byName[res.Filename] = res
	}
	assert.NoError(t, byName["flaky.mp4"].Err)
	assert.Contains(t, store.objects, "videos/flaky.mp4")
	assert.Error(t, byName["broken.mp4"].Err)
	assert.Empty(t, byName["broken.mp4"].PublicURL)
	assert.Equal(t, 7, store.failures["videos/broken.mp4"], "one attempt plus two retries")
}

func TestPool_CanceledContext(t *testing.T) {
	dir := writeFiles(t, "a.mp4", "b.mp4")
	jobs, err := VideoJobs(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	pool := newTestPool(t, store, 1, 0)
	results := pool.Run(ctx, jobs)
	require.Len(t, results, 2)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 16*time.Second, retryDelay(4))
	assert.Equal(t, 30*time.Second, retryDelay(5))
}
