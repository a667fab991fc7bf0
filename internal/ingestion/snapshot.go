package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/repository"
)

// snapshotKeep is how many snapshots the store retains.
const snapshotKeep = 48

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *repository.Snapshot) error
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

// eventPruner is implemented by stores that also hold the seen-event log.
type eventPruner interface {
	ForgetEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func (s *Supervisor) snapshotLoop(ctx context.Context) error {
	interval := s.cfg.SnapshotEvery()
	slog.Info("starting snapshot loop", "interval", interval, "path", s.cfg.Snapshot.Path)

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.TakeSnapshot(ctx); err != nil {
				slog.Error("snapshot failed", "error", err)
				s.markDegraded(unitSnapshot, err)
				continue
			}
			s.markHealthy(unitSnapshot)
		}
	}
}

// TakeSnapshot exports the registry to the snapshot file and the store.
func (s *Supervisor) TakeSnapshot(ctx context.Context) error {
	if s.registry == nil {
		return nil
	}

	data, err := s.registry.Snapshot()
	if err != nil {
		snapshotsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("export registry: %w", err)
	}

	var alerts []json.RawMessage
	if err := json.Unmarshal(data, &alerts); err != nil {
		snapshotsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("count snapshot: %w", err)
	}

	if path := s.cfg.Snapshot.Path; path != "" {
		if err := writeFileAtomic(path, data); err != nil {
			snapshotsTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	if s.store != nil {
		snap := &repository.Snapshot{
			TakenAt:    s.clock.Now().UTC(),
			AlertCount: len(alerts),
			Data:       data,
		}
		if err := s.store.SaveSnapshot(ctx, snap); err != nil {
			snapshotsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("store snapshot: %w", err)
		}
		if _, err := s.store.PruneSnapshots(ctx, snapshotKeep); err != nil {
			slog.Warn("failed to prune snapshots", "error", err)
		}
		s.pruneSeenEvents(ctx)
	}

	snapshotsTotal.WithLabelValues("ok").Inc()
	slog.Debug("snapshot taken", "alerts", len(alerts))
	return nil
}

func (s *Supervisor) pruneSeenEvents(ctx context.Context) {
	p, ok := s.store.(eventPruner)
	retention := s.cfg.SeenRetention()
	if !ok || retention <= 0 {
		return
	}

	n, err := p.ForgetEventsBefore(ctx, s.clock.Now().Add(-retention))
	if err != nil {
		slog.Warn("failed to prune seen events", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("seen events pruned", "count", n)
	}
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
