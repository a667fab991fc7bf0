package ingestion

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
)

// Source is an external monitor polled by the supervisor.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.EventRecord, error)
}

// notifier is implemented by sources that can signal new records between
// polls.
type notifier interface {
	Ready() <-chan struct{}
}

// NewSource builds the source described by cfg.
func NewSource(cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case "http":
		return NewHTTPSource(cfg.Name, cfg.URL), nil
	case "rss":
		return NewRSSSource(cfg.Name, cfg.URL), nil
	case "redis":
		return NewRedisSource(cfg.Name, RedisConfig{
			Addr:      cfg.RedisAddr,
			Key:       cfg.RedisKey,
			BatchSize: cfg.BatchSize,
		})
	case "manual":
		return NewManualSource(cfg.Name, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
