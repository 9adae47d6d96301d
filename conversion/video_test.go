package conversion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mediaondemand/models"
)

func newTestVideoConverter(t *testing.T, transcoder Transcoder, store ObjectStore, assets AssetIndex, search SearchIndex, events EventLog) *VideoConverter {
	t.Helper()
	return NewVideoConverter(transcoder, store, assets, search, events, zaptest.NewLogger(t), VideoOptions{Clock: newFakeClock()})
}

func TestVideoConvert_ReturnsWithoutWaiting(t *testing.T) {
	transcoder := &fakeTranscoder{}
	assets := newFakeAssets()
	search := &fakeSearch{}
	events := &fakeEvents{}
	converter := newTestVideoConverter(t, transcoder, nil, assets, search, events)

	result, err := converter.Convert(context.Background(), models.ConversionRequest{
		SourceURL: "https://cdn.test/raw.mp4",
		ContentID: "vid-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "asset-1", *result.AssetID)
	assert.Equal(t, "play-1", *result.PlaybackID)
	assert.Equal(t, "preparing", *result.Status)
	assert.False(t, result.Cached)
	assert.Equal(t, 0, transcoder.gets, "submission must not poll")

	assert.Equal(t, "asset-1", assets.byContent["vid-1"])
	require.Contains(t, search.updates, "vid-1")
	assert.Equal(t, "play-1", search.updates["vid-1"].PlaybackID)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventSuccess, events.events[0].Status)
	assert.Equal(t, models.KindVideo, events.events[0].Type)
}

func TestVideoConvert_ExistingAssetIsCacheHit(t *testing.T) {
	transcoder := &fakeTranscoder{assets: map[string]*models.VideoAsset{
		"asset-old": {ID: "asset-old", Status: "ready", PlaybackID: "play-old"},
	}}
	assets := newFakeAssets()
	assets.byContent["vid-1"] = "asset-old"
	events := &fakeEvents{}
	converter := newTestVideoConverter(t, transcoder, nil, assets, nil, events)

	result, err := converter.Convert(context.Background(), models.ConversionRequest{
		SourceURL: "https://cdn.test/raw.mp4",
		ContentID: "vid-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, "asset-old", *result.AssetID)
	assert.Empty(t, transcoder.created)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventCacheHit, events.events[0].Status)
}

func TestVideoConvert_ErroredAssetIsReplaced(t *testing.T) {
	transcoder := &fakeTranscoder{assets: map[string]*models.VideoAsset{
		"asset-old": {ID: "asset-old", Status: VideoStatusErrored},
	}}
	assets := newFakeAssets()
	assets.byContent["vid-1"] = "asset-old"
	converter := newTestVideoConverter(t, transcoder, nil, assets, nil, &fakeEvents{})

	result, err := converter.Convert(context.Background(), models.ConversionRequest{
		SourceURL: "https://cdn.test/raw.mp4",
		ContentID: "vid-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Len(t, transcoder.created, 1)
	assert.Equal(t, "asset-1", assets.byContent["vid-1"])
}

func TestVideoConvert_ResolvesStoragePath(t *testing.T) {
	transcoder := &fakeTranscoder{}
	store := newFakeStore()
	converter := newTestVideoConverter(t, transcoder, store, nil, nil, &fakeEvents{})

	_, err := converter.Convert(context.Background(), models.ConversionRequest{StoragePath: "videos/intro.mp4"})
	require.NoError(t, err)
	require.Len(t, transcoder.created, 1)
	assert.Equal(t, "https://storage.test/sign/videos/intro.mp4?expires=1h0m0s", transcoder.created[0])
}

func TestVideoConvert_InvalidAndUnconfigured(t *testing.T) {
	events := &fakeEvents{}

	converter := newTestVideoConverter(t, &fakeTranscoder{}, nil, nil, nil, events)
	_, err := converter.Convert(context.Background(), models.ConversionRequest{StoragePath: "videos/intro.mp4"})
	assert.True(t, errors.Is(err, ErrInvalidRequest), "storage path without a store cannot be resolved")

	converter = newTestVideoConverter(t, nil, nil, nil, nil, events)
	_, err = converter.Convert(context.Background(), models.ConversionRequest{SourceURL: "https://cdn.test/raw.mp4"})
	assert.True(t, errors.Is(err, ErrConfiguration))

	require.Len(t, events.events, 2)
	for _, ev := range events.events {
		assert.Equal(t, models.EventError, ev.Status)
	}
}

func TestVideoConvert_SubmissionFailureStillAudited(t *testing.T) {
	transcoder := &fakeTranscoder{createErr: errors.New("Mux 401: unauthorized")}
	events := &fakeEvents{err: errors.New("db down")}
	converter := newTestVideoConverter(t, transcoder, nil, nil, nil, events)

	_, err := converter.Convert(context.Background(), models.ConversionRequest{SourceURL: "https://cdn.test/raw.mp4"})
	assert.True(t, errors.Is(err, ErrUpstreamSubmission))
	assert.Equal(t, "Mux 401: unauthorized", err.Error())
	assert.Len(t, events.events, 1)
}

func TestVideoConvert_SearchIndexFailureIsTolerated(t *testing.T) {
	converter := newTestVideoConverter(t, &fakeTranscoder{}, nil, nil, &fakeSearch{err: errors.New("algolia down")}, &fakeEvents{})

	result, err := converter.Convert(context.Background(), models.ConversionRequest{SourceURL: "https://cdn.test/raw.mp4", ContentID: "vid-2"})
	require.NoError(t, err)
	assert.Equal(t, "asset-1", *result.AssetID)
}

func TestVideoStatus(t *testing.T) {
	transcoder := &fakeTranscoder{assets: map[string]*models.VideoAsset{
		"asset-1": {ID: "asset-1", Status: "preparing"},
		"asset-2": {ID: "asset-2", Status: VideoStatusReady, PlaybackID: "play-2"},
	}}
	assets := newFakeAssets()
	converter := newTestVideoConverter(t, transcoder, nil, assets, nil, nil)

	status, err := converter.Status(context.Background(), "asset-1")
	require.NoError(t, err)
	assert.Equal(t, "preparing", *status.Status)
	assert.Nil(t, status.PlaybackID)
	assert.NotContains(t, assets.statuses, "asset-1", "non-terminal statuses are not cached")

	status, err = converter.Status(context.Background(), "asset-2")
	require.NoError(t, err)
	assert.Equal(t, "play-2", *status.PlaybackID)
	assert.Contains(t, assets.statuses, "asset-2")

	gets := transcoder.gets
	_, err = converter.Status(context.Background(), "asset-2")
	require.NoError(t, err)
	assert.Equal(t, gets, transcoder.gets, "ready status served from cache")
}

func TestVideoStatus_Errors(t *testing.T) {
	converter := newTestVideoConverter(t, &fakeTranscoder{}, nil, nil, nil, nil)

	_, err := converter.Status(context.Background(), "")
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = converter.Status(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUpstreamJob))
}
