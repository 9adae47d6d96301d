package conversion

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mediaondemand/models"
)

const (
	VideoStatusReady   = "ready"
	VideoStatusErrored = "errored"
)

type VideoOptions struct {
	SignedURLExpiry time.Duration
	Clock           Clock
}

// VideoConverter submits transcoding jobs without waiting for them. Callers
// observe completion through Status. Only the transcoder is required; the
// other collaborators may be nil.
type VideoConverter struct {
	transcoder Transcoder
	store      ObjectStore
	assets     AssetIndex
	search     SearchIndex
	events     EventLog
	logger     *zap.Logger
	opts       VideoOptions
}

func NewVideoConverter(transcoder Transcoder, store ObjectStore, assets AssetIndex, search SearchIndex, events EventLog, logger *zap.Logger, opts VideoOptions) *VideoConverter {
	if opts.SignedURLExpiry <= 0 {
		opts.SignedURLExpiry = DefaultSignedURLExpiry
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &VideoConverter{
		transcoder: transcoder,
		store:      store,
		assets:     assets,
		search:     search,
		events:     events,
		logger:     logger,
		opts:       opts,
	}
}

func (v *VideoConverter) Convert(ctx context.Context, req models.ConversionRequest) (result *models.VideoResult, err error) {
	start := v.opts.Clock.Now()
	event := &models.ConversionEvent{
		Type:        models.KindVideo,
		ContentID:   req.ContentID,
		SourceURL:   req.SourceURL,
		RequesterID: models.StringPtr(req.RequesterID),
		Metadata:    map[string]interface{}{},
	}
	if req.StoragePath != "" {
		event.StoragePath = models.StringPtr(req.StoragePath)
	}
	defer func() {
		v.finish(ctx, event, result, err, start)
	}()

	if v.transcoder == nil {
		return nil, NewError(ErrConfiguration, "Missing MUX_TOKEN_ID or MUX_TOKEN_SECRET", nil)
	}

	source := v.resolveSource(ctx, req)
	if source == "" {
		return nil, NewError(ErrInvalidRequest, "sourceUrl or storagePath is required", nil)
	}
	if event.SourceURL == "" {
		event.Metadata["source_type"] = "storage"
	} else {
		event.Metadata["source_type"] = "url"
	}

	v.logger.Info("convert_video.start",
		zap.String("content_id", req.ContentID),
		zap.String("storage_path", req.StoragePath),
	)

	if cached := v.existingAsset(ctx, req.ContentID); cached != nil {
		return cached, nil
	}

	asset, err := v.transcoder.CreateAsset(ctx, source)
	if err != nil {
		return nil, NewError(ErrUpstreamSubmission, err.Error(), err)
	}

	if req.ContentID != "" && v.assets != nil {
		if err := v.assets.RememberAsset(ctx, req.ContentID, asset.ID); err != nil {
			v.logger.Warn("remember asset failed", zap.String("asset_id", asset.ID), zap.Error(err))
		}
	}
	if req.ContentID != "" && asset.PlaybackID != "" && v.search != nil {
		if err := v.search.UpdateVideo(ctx, req.ContentID, asset); err != nil {
			v.logger.Warn("search index update failed", zap.String("object_id", req.ContentID), zap.Error(err))
		}
	}

	return videoResult(asset, false), nil
}

// Status reports the provider's view of an asset. Ready assets are served
// from the asset index when available.
func (v *VideoConverter) Status(ctx context.Context, assetID string) (*models.VideoStatus, error) {
	start := v.opts.Clock.Now()
	if strings.TrimSpace(assetID) == "" {
		return nil, NewError(ErrInvalidRequest, "assetId is required", nil)
	}
	if v.transcoder == nil {
		return nil, NewError(ErrConfiguration, "Missing MUX_TOKEN_ID or MUX_TOKEN_SECRET", nil)
	}

	var asset *models.VideoAsset
	if v.assets != nil {
		cached, err := v.assets.CachedStatus(ctx, assetID)
		if err != nil {
			v.logger.Warn("status cache read failed", zap.String("asset_id", assetID), zap.Error(err))
		}
		asset = cached
	}

	if asset == nil {
		fetched, err := v.transcoder.GetAsset(ctx, assetID)
		if err != nil {
			v.logger.Error("convert_video.status_error", zap.String("asset_id", assetID), zap.Error(err))
			return nil, NewError(ErrUpstreamJob, err.Error(), err)
		}
		asset = fetched
		if asset.Status == VideoStatusReady && v.assets != nil {
			if err := v.assets.CacheStatus(ctx, asset); err != nil {
				v.logger.Warn("status cache write failed", zap.String("asset_id", assetID), zap.Error(err))
			}
		}
	}

	if asset.ID == "" {
		asset.ID = assetID
	}
	v.logger.Info("convert_video.status",
		zap.String("asset_id", asset.ID),
		zap.String("status", asset.Status),
		zap.Int64("duration_ms", v.opts.Clock.Now().Sub(start).Milliseconds()),
	)

	return &models.VideoStatus{
		Status:     models.StringPtr(asset.Status),
		PlaybackID: models.StringPtr(asset.PlaybackID),
		AssetID:    models.StringPtr(asset.ID),
	}, nil
}

func (v *VideoConverter) resolveSource(ctx context.Context, req models.ConversionRequest) string {
	if req.SourceURL != "" {
		return req.SourceURL
	}
	if req.StoragePath == "" || v.store == nil {
		return ""
	}
	signed, err := v.store.SignedURL(ctx, req.StoragePath, v.opts.SignedURLExpiry)
	if err != nil {
		v.logger.Warn("signing storage path failed", zap.String("storage_path", req.StoragePath), zap.Error(err))
		return ""
	}
	return signed
}

// existingAsset returns the asset already created for contentID unless the
// provider reports it as errored.
func (v *VideoConverter) existingAsset(ctx context.Context, contentID string) *models.VideoResult {
	if contentID == "" || v.assets == nil {
		return nil
	}
	assetID, err := v.assets.LookupAsset(ctx, contentID)
	if err != nil {
		v.logger.Warn("asset lookup failed", zap.String("content_id", contentID), zap.Error(err))
		return nil
	}
	if assetID == "" {
		return nil
	}
	asset, err := v.transcoder.GetAsset(ctx, assetID)
	if err != nil {
		v.logger.Warn("existing asset unavailable", zap.String("asset_id", assetID), zap.Error(err))
		return nil
	}
	if asset.Status == VideoStatusErrored {
		return nil
	}
	if asset.ID == "" {
		asset.ID = assetID
	}
	return videoResult(asset, true)
}

func videoResult(asset *models.VideoAsset, cached bool) *models.VideoResult {
	return &models.VideoResult{
		PlaybackID: models.StringPtr(asset.PlaybackID),
		AssetID:    models.StringPtr(asset.ID),
		Status:     models.StringPtr(asset.Status),
		Cached:     cached,
	}
}

func (v *VideoConverter) finish(ctx context.Context, event *models.ConversionEvent, result *models.VideoResult, err error, start time.Time) {
	duration := v.opts.Clock.Now().Sub(start)
	event.Metadata["duration_ms"] = duration.Milliseconds()

	switch {
	case err != nil:
		event.Status = models.EventError
		event.Metadata["error"] = err.Error()
		v.logger.Error("convert_video.error", zap.Error(err), zap.Int64("duration_ms", duration.Milliseconds()))
	default:
		event.Status = models.EventSuccess
		if result.Cached {
			event.Status = models.EventCacheHit
		}
		event.Metadata["asset_id"] = result.AssetID
		event.Metadata["playback_id"] = result.PlaybackID
		event.Metadata["provider_status"] = result.Status
		v.logger.Info("convert_video.success",
			zap.String("content_id", event.ContentID),
			zap.Stringp("asset_id", result.AssetID),
			zap.Stringp("status", result.Status),
			zap.Bool("cached", result.Cached),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	}

	event.CreatedAt = v.opts.Clock.Now().UTC()
	appendEvent(ctx, v.events, v.logger, event)
}
