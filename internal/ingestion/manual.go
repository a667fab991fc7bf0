package ingestion

import (
	"context"
	"errors"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

var ErrQueueFull = errors.New("manual source queue full")

// ManualSource is an in-process queue for records submitted through the API.
type ManualSource struct {
	name  string
	queue chan models.EventRecord
	ready chan struct{}
}

func NewManualSource(name string, capacity int) *ManualSource {
	if capacity <= 0 {
		capacity = defaultBatchSize
	}
	return &ManualSource{
		name:  name,
		queue: make(chan models.EventRecord, capacity),
		ready: make(chan struct{}, 1),
	}
}

func (s *ManualSource) Name() string { return s.name }

// Enqueue adds a record without blocking.
func (s *ManualSource) Enqueue(rec models.EventRecord) error {
	select {
	case s.queue <- rec:
	default:
		return ErrQueueFull
	}
	select {
	case s.ready <- struct{}{}:
	default:
	}
	return nil
}

func (s *ManualSource) Ready() <-chan struct{} { return s.ready }

// Fetch drains whatever is queued.
func (s *ManualSource) Fetch(ctx context.Context) ([]models.EventRecord, error) {
	var records []models.EventRecord
	for {
		select {
		case rec := <-s.queue:
			records = append(records, rec)
		default:
			return records, nil
		}
	}
}
