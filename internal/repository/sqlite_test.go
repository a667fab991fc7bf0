package repository

import (
	"context"
	"errors"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func TestSQLiteDB_SaveAndLatestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	if _, err := db.LatestSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	first := &Snapshot{AlertCount: 1, Data: []byte(`[{"id":"a1"}]`)}
	if err := db.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if first.ID == 0 {
		t.Error("expected snapshot id to be set")
	}

	second := &Snapshot{AlertCount: 2, Data: []byte(`[{"id":"a1"},{"id":"a2"}]`)}
	if err := db.SaveSnapshot(ctx, second); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, err := db.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("expected latest id %d, got %d", second.ID, got.ID)
	}
	if got.AlertCount != 2 {
		t.Errorf("expected 2 alerts, got %d", got.AlertCount)
	}
	if string(got.Data) != string(second.Data) {
		t.Errorf("unexpected data: %s", got.Data)
	}
}

func TestSQLiteDB_ListAndPrune(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := db.SaveSnapshot(ctx, &Snapshot{AlertCount: i, Data: []byte("[]")}); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
	}

	list, err := db.ListSnapshots(ctx, 3)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(list))
	}
	if list[0].AlertCount != 4 {
		t.Errorf("expected newest first, got count %d", list[0].AlertCount)
	}

	deleted, err := db.PruneSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("PruneSnapshots failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	list, _ = db.ListSnapshots(ctx, 10)
	if len(list) != 2 {
		t.Errorf("expected 2 remaining, got %d", len(list))
	}
}

func TestSQLiteDB_MarkSeen(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	fresh, err := db.MarkSeen(ctx, "news", "item-1", now)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if !fresh {
		t.Error("expected first sighting to be new")
	}

	fresh, err = db.MarkSeen(ctx, "news", "item-1", now)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if fresh {
		t.Error("expected repeated sighting to be known")
	}

	// same id from another source is distinct
	fresh, _ = db.MarkSeen(ctx, "funding", "item-1", now)
	if !fresh {
		t.Error("expected id from another source to be new")
	}

	removed, err := db.ForgetEventsBefore(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ForgetEventsBefore failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
}

func TestSQLiteDB_ForgetEvent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	if _, err := db.MarkSeen(ctx, "news", "item-1", now); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if err := db.ForgetEvent(ctx, "news", "item-1"); err != nil {
		t.Fatalf("ForgetEvent failed: %v", err)
	}

	fresh, err := db.MarkSeen(ctx, "news", "item-1", now)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if !fresh {
		t.Error("expected forgotten event to be new again")
	}

	// unknown markers are not an error
	if err := db.ForgetEvent(ctx, "news", "missing"); err != nil {
		t.Errorf("ForgetEvent on missing marker: %v", err)
	}
}
