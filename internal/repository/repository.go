package repository

import (
	"context"
	"errors"
	"time"
)

var ErrNoSnapshot = errors.New("no snapshot stored")

// Snapshot is one stored export of the alert registry.
type Snapshot struct {
	ID         int64
	TakenAt    time.Time
	AlertCount int
	Data       []byte // JSON array produced by registry.Export
}

type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

// EventLog remembers which event records were already processed so pollers
// that re-read a feed do not raise the same alert twice.
type EventLog interface {
	MarkSeen(ctx context.Context, source, eventID string, at time.Time) (bool, error)
	ForgetEvent(ctx context.Context, source, eventID string) error
}
