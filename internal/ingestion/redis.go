package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

const (
	defaultBatchSize = 100
	redisTimeout     = 5 * time.Second
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Key       string
	BatchSize int
}

// RedisSource drains JSON event records pushed onto a Redis list by an
// external monitor.
type RedisSource struct {
	name      string
	client    *redis.Client
	key       string
	batchSize int
}

func NewRedisSource(name string, cfg RedisConfig) (*RedisSource, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisSource(name, client, cfg.Key, cfg.BatchSize), nil
}

func newRedisSource(name string, client *redis.Client, key string, batchSize int) *RedisSource {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &RedisSource{
		name:      name,
		client:    client,
		key:       key,
		batchSize: batchSize,
	}
}

func (s *RedisSource) Name() string { return s.name }

// Fetch pops up to batchSize records. Items that are not valid JSON records
// are logged and dropped.
func (s *RedisSource) Fetch(ctx context.Context) ([]models.EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	items, err := s.client.LPopCount(ctx, s.key, s.batchSize).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lpop %s: %w", s.key, err)
	}

	records := make([]models.EventRecord, 0, len(items))
	for _, item := range items {
		var rec models.EventRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			slog.Warn("dropping malformed redis record", "source", s.name, "key", s.key, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}
