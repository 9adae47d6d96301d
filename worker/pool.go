package worker

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the subset of the object store the uploader needs.
type Store interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	PublicURL(key string) string
}

type UploadJob struct {
	LocalPath   string
	Filename    string
	Key         string
	ContentType string
}

// UploadResult is one manifest line. Err is set when every attempt failed.
type UploadResult struct {
	Filename    string `json:"filename"`
	StoragePath string `json:"storagePath"`
	PublicURL   string `json:"publicUrl,omitempty"`
	Err         error  `json:"-"`
}

type Pool struct {
	store      Store
	logger     *zap.Logger
	workers    int
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewPool(store Store, logger *zap.Logger, workers, maxRetries int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Pool{
		store:      store,
		logger:     logger,
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    retryDelay,
	}
}

// Run uploads every job with at most p.workers in flight. Results keep the
// order of jobs.
func (p *Pool) Run(ctx context.Context, jobs []UploadJob) []UploadResult {
	results := make([]UploadResult, len(jobs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range indexes {
				results[idx] = p.process(ctx, workerID, jobs[idx])
			}
		}(i)
	}

feed:
	for i := range jobs {
		select {
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				results[j] = UploadResult{Filename: jobs[j].Filename, StoragePath: jobs[j].Key, Err: ctx.Err()}
			}
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	return results
}

func (p *Pool) process(ctx context.Context, workerID int, job UploadJob) UploadResult {
	result := UploadResult{Filename: job.Filename, StoragePath: job.Key}
	start := time.Now()

	for attempt := 0; ; attempt++ {
		err := p.upload(ctx, job)
		if err == nil {
			result.PublicURL = p.store.PublicURL(job.Key)
			p.logger.Info("upload.success",
				zap.Int("worker_id", workerID),
				zap.String("key", job.Key),
				zap.Int("attempts", attempt+1),
				zap.Duration("duration", time.Since(start)),
			)
			return result
		}

		if attempt >= p.maxRetries {
			p.logger.Error("upload.failed",
				zap.Int("worker_id", workerID),
				zap.String("key", job.Key),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			result.Err = err
			return result
		}

		delay := p.backoff(attempt + 1)
		p.logger.Warn("upload.retry",
			zap.Int("worker_id", workerID),
			zap.String("key", job.Key),
			zap.Int("retry", attempt+1),
			zap.Int("max_retries", p.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		case <-time.After(delay):
		}
	}
}

func (p *Pool) upload(ctx context.Context, job UploadJob) error {
	f, err := os.Open(job.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", job.LocalPath, err)
	}
	defer f.Close()

	return p.store.Upload(ctx, job.Key, f, job.ContentType)
}

// retryDelay is 2^attempt seconds, capped at 30s.
func retryDelay(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
