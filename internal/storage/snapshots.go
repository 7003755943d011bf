package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
)

// ErrNotFound is returned when no snapshot matches a query.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one validated payload captured by a view load.
type Snapshot struct {
	ID        int64     `json:"id"`
	View      string    `json:"view"`
	LoadID    string    `json:"load_id"`
	Endpoint  string    `json:"endpoint"`
	FetchedAt time.Time `json:"fetched_at"`
	Payload   []byte    `json:"-"` // uncompressed
	RawSize   int       `json:"raw_size"`
	Stored    int       `json:"stored_size"` // compressed size on disk
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotStore reads and writes snapshots.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a snapshot store on db.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db.Conn()}
}

// Save compresses and stores s, setting its ID, sizes and CreatedAt.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap.View == "" {
		return fmt.Errorf("snapshot view is required")
	}

	compressed := snappy.Encode(nil, snap.Payload)
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (view, load_id, endpoint, fetched_at, payload, raw_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.View, snap.LoadID, snap.Endpoint, snap.FetchedAt.UTC(), compressed, len(snap.Payload), now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get snapshot id: %w", err)
	}

	snap.ID = id
	snap.RawSize = len(snap.Payload)
	snap.Stored = len(compressed)
	snap.CreatedAt = now
	return nil
}

// Latest returns the most recent snapshot of view with its payload.
func (s *SnapshotStore) Latest(ctx context.Context, view string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, view, load_id, endpoint, fetched_at, payload, raw_size, created_at
		FROM snapshots
		WHERE view = ?
		ORDER BY id DESC
		LIMIT 1`, view)

	var (
		snap       Snapshot
		compressed []byte
	)
	err := row.Scan(&snap.ID, &snap.View, &snap.LoadID, &snap.Endpoint, &snap.FetchedAt, &compressed, &snap.RawSize, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot %d: %w", snap.ID, err)
	}
	snap.Payload = payload
	snap.Stored = len(compressed)
	return &snap, nil
}

// List returns up to limit snapshots of view, newest first, without payloads.
// limit <= 0 returns all.
func (s *SnapshotStore) List(ctx context.Context, view string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, view, load_id, endpoint, fetched_at, raw_size, length(payload), created_at
		FROM snapshots
		WHERE view = ?
		ORDER BY id DESC
		LIMIT ?`, view, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.View, &snap.LoadID, &snap.Endpoint, &snap.FetchedAt, &snap.RawSize, &snap.Stored, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

// Prune deletes all but the newest keep snapshots of view and returns the
// number deleted. keep <= 0 deletes nothing.
func (s *SnapshotStore) Prune(ctx context.Context, view string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE view = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE view = ? ORDER BY id DESC LIMIT ?
		)`, view, view, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned snapshots: %w", err)
	}
	return n, nil
}

// Count returns the number of stored snapshots of view.
func (s *SnapshotStore) Count(ctx context.Context, view string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE view = ?`, view).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}
