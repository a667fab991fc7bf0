package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			taken_at DATETIME NOT NULL,
			alert_count INTEGER NOT NULL,
			data BLOB NOT NULL
		);

		CREATE TABLE IF NOT EXISTS seen_events (
			source TEXT NOT NULL,
			event_id TEXT NOT NULL,
			seen_at DATETIME NOT NULL,
			PRIMARY KEY (source, event_id)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
		CREATE INDEX IF NOT EXISTS idx_seen_events_seen_at ON seen_events(seen_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (taken_at, alert_count, data) VALUES (?, ?, ?)`,
		snap.TakenAt.UTC(), snap.AlertCount, snap.Data,
	)
	if err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading snapshot id: %w", err)
	}
	snap.ID = id
	return nil
}

func (s *SQLiteDB) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, taken_at, alert_count, data FROM snapshots ORDER BY id DESC LIMIT 1`,
	)

	var snap Snapshot
	if err := row.Scan(&snap.ID, &snap.TakenAt, &snap.AlertCount, &snap.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("error loading latest snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns snapshot metadata, newest first, without the data.
func (s *SQLiteDB) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, taken_at, alert_count FROM snapshots ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.TakenAt, &snap.AlertCount); err != nil {
			return nil, fmt.Errorf("error scanning snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the newest keep snapshots and deletes the rest.
func (s *SQLiteDB) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("error pruning snapshots: %w", err)
	}
	return res.RowsAffected()
}

// MarkSeen records an event and reports whether it was new.
func (s *SQLiteDB) MarkSeen(ctx context.Context, source, eventID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_events (source, event_id, seen_at) VALUES (?, ?, ?)`,
		source, eventID, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("error recording event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error recording event: %w", err)
	}
	return n == 1, nil
}

// ForgetEvent removes one seen marker so the record is processed again.
func (s *SQLiteDB) ForgetEvent(ctx context.Context, source, eventID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM seen_events WHERE source = ? AND event_id = ?`, source, eventID)
	if err != nil {
		return fmt.Errorf("error forgetting event: %w", err)
	}
	return nil
}

// ForgetEventsBefore removes seen markers older than cutoff.
func (s *SQLiteDB) ForgetEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM seen_events WHERE seen_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("error pruning events: %w", err)
	}
	return res.RowsAffected()
}
