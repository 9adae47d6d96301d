package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"

	"mediaondemand/models"
)

// AlgoliaIndex updates catalog records in the search index.
type AlgoliaIndex struct {
	index *search.Index
	name  string
}

func NewAlgoliaIndex(appID, adminKey, indexName string) *AlgoliaIndex {
	client := search.NewClient(appID, adminKey)
	return &AlgoliaIndex{
		index: client.InitIndex(indexName),
		name:  indexName,
	}
}

type videoRecord struct {
	ObjectID      string `json:"objectID"`
	MuxPlaybackID string `json:"muxPlaybackId"`
	MuxAssetID    string `json:"muxAssetId"`
	MuxStatus     string `json:"muxStatus"`
}

func newVideoRecord(objectID string, asset *models.VideoAsset) videoRecord {
	return videoRecord{
		ObjectID:      objectID,
		MuxPlaybackID: asset.PlaybackID,
		MuxAssetID:    asset.ID,
		MuxStatus:     asset.Status,
	}
}

// UpdateVideo attaches playback fields to the catalog record, creating it if
// it does not exist yet.
func (a *AlgoliaIndex) UpdateVideo(ctx context.Context, objectID string, asset *models.VideoAsset) error {
	_, err := a.index.PartialUpdateObject(newVideoRecord(objectID, asset), opt.CreateIfNotExists(true), ctx)
	if err != nil {
		return fmt.Errorf("failed to update search record %s: %w", objectID, err)
	}
	return nil
}

func (a *AlgoliaIndex) Name() string {
	return a.name
}

// Browse calls fn for every record in the index.
func (a *AlgoliaIndex) Browse(ctx context.Context, fn func(record map[string]interface{}) error) error {
	it, err := a.index.BrowseObjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to browse index: %w", err)
	}

	for {
		var record map[string]interface{}
		if _, err := it.Next(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read index record: %w", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}
