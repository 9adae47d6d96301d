package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mediaondemand/models"
)

// MuxService creates and inspects Mux video assets.
type MuxService struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	client      *http.Client
}

func NewMuxService(baseURL, tokenID, tokenSecret string) *MuxService {
	return &MuxService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type muxAssetResponse struct {
	Data struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		CreatedAt   string `json:"created_at"`
		PlaybackIDs []struct {
			ID     string `json:"id"`
			Policy string `json:"policy"`
		} `json:"playback_ids"`
	} `json:"data"`
}

func (m *MuxService) CreateAsset(ctx context.Context, sourceURL string) (*models.VideoAsset, error) {
	payload := map[string]interface{}{
		"input":           []map[string]string{{"url": sourceURL}},
		"playback_policy": []string{"public"},
	}

	var resp muxAssetResponse
	if err := doJSON(ctx, m.client, "Mux", http.MethodPost, m.baseURL+"/video/v1/assets", payload, m.authorize, &resp); err != nil {
		return nil, err
	}
	return toVideoAsset(&resp), nil
}

func (m *MuxService) GetAsset(ctx context.Context, assetID string) (*models.VideoAsset, error) {
	var resp muxAssetResponse
	endpoint := fmt.Sprintf("%s/video/v1/assets/%s", m.baseURL, url.PathEscape(assetID))
	if err := doJSON(ctx, m.client, "Mux", http.MethodGet, endpoint, nil, m.authorize, &resp); err != nil {
		return nil, err
	}
	asset := toVideoAsset(&resp)
	if asset.ID == "" {
		asset.ID = assetID
	}
	return asset, nil
}

func (m *MuxService) authorize(req *http.Request) {
	req.SetBasicAuth(m.tokenID, m.tokenSecret)
}

func toVideoAsset(resp *muxAssetResponse) *models.VideoAsset {
	asset := &models.VideoAsset{
		ID:     resp.Data.ID,
		Status: resp.Data.Status,
	}
	if len(resp.Data.PlaybackIDs) > 0 {
		asset.PlaybackID = resp.Data.PlaybackIDs[0].ID
	}
	// created_at is unix seconds encoded as a string.
	if secs, err := strconv.ParseInt(resp.Data.CreatedAt, 10, 64); err == nil {
		asset.CreatedAt = time.Unix(secs, 0).UTC()
	}
	return asset
}
