package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nba_forecasting/pipeline/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds Redis configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	// TTL applied to cached boxscore payloads
	BoxscoreTTL time.Duration
}

// RedisCache caches raw boxscore payloads keyed by game identifier.
// Completed games never change, so a cached payload lets a re-ingestion
// of the same date skip repeat provider calls. A nil *RedisCache is a
// valid no-op cache; the pipeline runs without Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().
		Str("addr", fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)).
		Msg("Redis cache connected")

	return &RedisCache{client: client, ttl: cfg.BoxscoreTTL}, nil
}

func boxscoreKey(gameID string) string {
	return "boxscore:" + gameID
}

// GetBoxscore returns the cached player lines for a game, if present.
func (c *RedisCache) GetBoxscore(ctx context.Context, gameID string) ([]models.PlayerLine, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, boxscoreKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Cache read failed")
		return nil, false
	}

	var lines []models.PlayerLine
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Cache payload corrupt, ignoring")
		return nil, false
	}

	return lines, true
}

// SetBoxscore stores the player lines for a game. Failures are logged,
// never propagated; the cache is an optimization.
func (c *RedisCache) SetBoxscore(ctx context.Context, gameID string, lines []models.PlayerLine) {
	if c == nil {
		return
	}

	data, err := json.Marshal(lines)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Failed to marshal boxscore for cache")
		return
	}

	if err := c.client.Set(ctx, boxscoreKey(gameID), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Cache write failed")
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
