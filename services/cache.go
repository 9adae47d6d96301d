package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mediaondemand/config"
	"mediaondemand/models"
)

const (
	assetKeyPrefix  = "video:asset:"
	statusKeyPrefix = "video:status:"
	assetTTL        = 30 * 24 * time.Hour
	statusTTL       = 10 * time.Minute
)

// AssetCache maps content ids to transcoder assets and caches ready
// statuses so client polling does not hit the provider every tick.
type AssetCache struct {
	client *redis.Client
	prefix string
}

func NewAssetCache(client *redis.Client, prefix string) *AssetCache {
	return &AssetCache{client: client, prefix: prefix}
}

func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *AssetCache) LookupAsset(ctx context.Context, contentID string) (string, error) {
	assetID, err := c.client.Get(ctx, c.key(assetKeyPrefix, contentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return assetID, err
}

func (c *AssetCache) RememberAsset(ctx context.Context, contentID, assetID string) error {
	return c.client.Set(ctx, c.key(assetKeyPrefix, contentID), assetID, assetTTL).Err()
}

func (c *AssetCache) CachedStatus(ctx context.Context, assetID string) (*models.VideoAsset, error) {
	data, err := c.client.Get(ctx, c.key(statusKeyPrefix, assetID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var asset models.VideoAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, fmt.Errorf("decode cached status: %w", err)
	}
	return &asset, nil
}

func (c *AssetCache) CacheStatus(ctx context.Context, asset *models.VideoAsset) error {
	data, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(statusKeyPrefix, asset.ID), data, statusTTL).Err()
}

func (c *AssetCache) key(kind, id string) string {
	return config.ApplyPrefix(kind+id, c.prefix)
}
