// Package conversion turns source assets into durable artifacts: EPUB to PDF
// through a polled conversion job, and raw video into a streaming asset.
package conversion

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mediaondemand/models"
)

const (
	DefaultBudget          = 120 * time.Second
	DefaultPollInterval    = 1500 * time.Millisecond
	DefaultSignedURLExpiry = time.Hour
	// DefaultListLimit bounds the legacy-name scan to a single page.
	DefaultListLimit = 100

	pdfContentType = "application/pdf"
)

type EbookOptions struct {
	Budget          time.Duration
	PollInterval    time.Duration
	SignedURLExpiry time.Duration
	ListLimit       int
	Clock           Clock
}

func (o *EbookOptions) withDefaults() {
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.SignedURLExpiry <= 0 {
		o.SignedURLExpiry = DefaultSignedURLExpiry
	}
	if o.ListLimit <= 0 {
		o.ListLimit = DefaultListLimit
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
}

// EbookConverter produces a stored PDF for an EPUB source. A nil jobs service
// means the provider is not configured; a nil store means persistence and
// cache probes are skipped.
type EbookConverter struct {
	jobs       JobService
	store      ObjectStore
	downloader Downloader
	events     EventLog
	logger     *zap.Logger
	opts       EbookOptions
}

func NewEbookConverter(jobs JobService, store ObjectStore, downloader Downloader, events EventLog, logger *zap.Logger, opts EbookOptions) *EbookConverter {
	opts.withDefaults()
	return &EbookConverter{
		jobs:       jobs,
		store:      store,
		downloader: downloader,
		events:     events,
		logger:     logger,
		opts:       opts,
	}
}

// Convert returns a cached artifact when one exists, otherwise runs one
// conversion job to completion and persists its output. Exactly one audit
// event is appended per call.
func (c *EbookConverter) Convert(ctx context.Context, req models.ConversionRequest) (result *models.ConversionResult, err error) {
	start := c.opts.Clock.Now()
	event := &models.ConversionEvent{
		Type:        models.KindEbook,
		ContentID:   req.ContentID,
		SourceURL:   req.SourceURL,
		RequesterID: models.StringPtr(req.RequesterID),
		Metadata:    map[string]interface{}{},
	}
	defer func() {
		c.finish(ctx, event, result, err, start)
	}()

	if strings.TrimSpace(req.SourceURL) == "" {
		return nil, NewError(ErrInvalidRequest, "sourceUrl is required", nil)
	}

	c.logger.Info("convert_ebook.start",
		zap.String("source_url", req.SourceURL),
		zap.String("filename", req.Filename),
		zap.String("content_id", req.ContentID),
	)

	key := DeriveKey(models.KindEbook, req.Filename, req.ContentID)

	if cached := c.probeCache(ctx, key, req.ContentID); cached != nil {
		return cached, nil
	}

	if c.jobs == nil {
		return nil, NewError(ErrConfiguration, "Missing CLOUDCONVERT_API_KEY", nil)
	}

	job, err := c.jobs.Submit(ctx, req.SourceURL, key.Slug+".epub")
	if err != nil {
		return nil, NewError(ErrUpstreamSubmission, err.Error(), err)
	}
	if job == nil || job.JobID == "" {
		return nil, NewError(ErrUpstreamSubmission, "CloudConvert jobId missing", nil)
	}
	event.Metadata["provider_job_id"] = job.JobID

	finished, err := c.waitJob(ctx, job.JobID)
	if err != nil {
		return nil, err
	}
	if finished.ResultURL == "" {
		return nil, NewError(ErrUpstreamResultMissing, "CloudConvert export URL missing", nil)
	}

	result = &models.ConversionResult{
		ArtifactURL:   finished.ResultURL,
		ProviderJobID: models.StringPtr(job.JobID),
	}
	if url, ok := c.persist(ctx, key, finished.ResultURL); ok {
		path := key.Path()
		result.ArtifactURL = url
		result.StoragePath = &path
	}
	return result, nil
}

// probeCache looks up the derived key first and then falls back to a single
// bounded listing of the folder for objects written under older names.
func (c *EbookConverter) probeCache(ctx context.Context, key StorageKey, rawContentID string) *models.ConversionResult {
	if c.store == nil {
		return nil
	}

	path := key.Path()
	exists, err := c.store.Exists(ctx, path)
	if err != nil {
		c.logger.Warn("cache probe failed", zap.String("storage_path", path), zap.Error(err))
	}
	if exists {
		if url := c.retrievalURL(ctx, path); url != "" {
			return &models.ConversionResult{ArtifactURL: url, StoragePath: &path, Cached: true}
		}
	}

	keys, err := c.store.List(ctx, key.Folder, c.opts.ListLimit)
	if err != nil {
		c.logger.Warn("cache listing failed", zap.String("folder", key.Folder), zap.Error(err))
		return nil
	}
	for _, candidate := range keys {
		if candidate == path || !key.Matches(candidate, rawContentID) {
			continue
		}
		if url := c.retrievalURL(ctx, candidate); url != "" {
			found := candidate
			c.logger.Info("cache hit on legacy key", zap.String("storage_path", found))
			return &models.ConversionResult{ArtifactURL: url, StoragePath: &found, Cached: true}
		}
	}
	return nil
}

// waitJob polls until the job is terminal or the budget is spent. Each poll
// runs under the budget deadline, so a stalled provider call cannot push the
// loop past budget plus one poll interval.
func (c *EbookConverter) waitJob(ctx context.Context, jobID string) (*models.ConversionJob, error) {
	deadline := c.opts.Clock.Now().Add(c.opts.Budget)

	pollCtx, cancel := context.WithTimeout(ctx, c.opts.Budget)
	defer cancel()

	for c.opts.Clock.Now().Before(deadline) {
		job, err := c.jobs.Poll(pollCtx, jobID)
		if err != nil {
			if pollCtx.Err() != nil {
				return nil, NewError(ErrUpstreamTimeout, "CloudConvert timeout", err)
			}
			return nil, NewError(ErrUpstreamJob, err.Error(), err)
		}

		if job.Terminal() {
			if job.Status == models.JobFinished {
				return job, nil
			}
			message := job.ErrorMessage
			if message == "" {
				message = "CloudConvert job error"
			}
			return nil, NewError(ErrUpstreamJob, message, nil)
		}

		wait := c.opts.PollInterval
		if remaining := deadline.Sub(c.opts.Clock.Now()); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			break
		}
		if err := c.opts.Clock.Sleep(pollCtx, wait); err != nil {
			return nil, NewError(ErrUpstreamTimeout, "CloudConvert timeout", err)
		}
	}

	return nil, NewError(ErrUpstreamTimeout, "CloudConvert timeout", nil)
}

// persist copies the provider result into the store. Any failure degrades to
// the provider URL and is only logged.
func (c *EbookConverter) persist(ctx context.Context, key StorageKey, resultURL string) (string, bool) {
	path := key.Path()
	if c.store == nil || c.downloader == nil {
		c.logger.Info("persistence skipped", zap.String("reason", "storage not configured"))
		return "", false
	}

	body, err := c.downloader.Download(ctx, resultURL)
	if err != nil {
		c.logger.Warn("persistence skipped", zap.String("reason", "download failed"), zap.Error(err))
		return "", false
	}
	defer body.Close()

	if err := c.store.Upload(ctx, path, body, pdfContentType); err != nil {
		c.logger.Warn("persistence skipped", zap.String("reason", "upload failed"), zap.String("storage_path", path), zap.Error(err))
		return "", false
	}

	url := c.retrievalURL(ctx, path)
	if url == "" {
		c.logger.Warn("persistence skipped", zap.String("reason", "no retrieval url"), zap.String("storage_path", path))
		return "", false
	}
	return url, true
}

func (c *EbookConverter) retrievalURL(ctx context.Context, path string) string {
	signed, err := c.store.SignedURL(ctx, path, c.opts.SignedURLExpiry)
	if err == nil && signed != "" {
		return signed
	}
	if err != nil {
		c.logger.Debug("signed url failed, trying public url", zap.String("storage_path", path), zap.Error(err))
	}
	return c.store.PublicURL(path)
}

func (c *EbookConverter) finish(ctx context.Context, event *models.ConversionEvent, result *models.ConversionResult, err error, start time.Time) {
	duration := c.opts.Clock.Now().Sub(start)
	event.Metadata["duration_ms"] = duration.Milliseconds()

	switch {
	case err != nil:
		event.Status = models.EventError
		event.Metadata["error"] = err.Error()
		c.logger.Error("convert_ebook.error", zap.Error(err), zap.Int64("duration_ms", duration.Milliseconds()))
	case result.Cached:
		event.Status = models.EventCacheHit
		event.StoragePath = result.StoragePath
		c.logger.Info("convert_ebook.cache_hit",
			zap.Stringp("storage_path", result.StoragePath),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	default:
		event.Status = models.EventSuccess
		event.StoragePath = result.StoragePath
		event.Metadata["stored"] = result.StoragePath != nil
		c.logger.Info("convert_ebook.success",
			zap.Bool("stored", result.StoragePath != nil),
			zap.Stringp("job_id", result.ProviderJobID),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	}

	event.CreatedAt = c.opts.Clock.Now().UTC()
	appendEvent(ctx, c.events, c.logger, event)
}

// appendEvent records the audit event. Failures never reach the caller.
func appendEvent(ctx context.Context, events EventLog, logger *zap.Logger, event *models.ConversionEvent) {
	if events == nil {
		return
	}
	if err := events.Append(ctx, event); err != nil {
		logger.Warn("audit event append failed",
			zap.String("type", string(event.Type)),
			zap.String("status", string(event.Status)),
			zap.Error(err),
		)
	}
}
