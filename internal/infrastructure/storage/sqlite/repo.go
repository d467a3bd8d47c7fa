package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"whereis/internal/application/port"
	"whereis/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS positions (
  asset_id TEXT PRIMARY KEY,
  lat REAL NOT NULL,
  lon REAL NOT NULL,
  fix_time TEXT NOT NULL DEFAULT '',
  observed_ns INTEGER NOT NULL,
  fetched_ns INTEGER NOT NULL,
  stored_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_positions_stored ON positions(stored_ns);
`)
	return err
}

func (r *Repo) Get(ctx context.Context, assetID string) (domain.CacheEntry, bool, error) {
	var (
		e                             domain.CacheEntry
		observed, fetched, storedNano int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT asset_id, lat, lon, fix_time, observed_ns, fetched_ns, stored_ns
		FROM positions WHERE asset_id = ?
	`, assetID).Scan(&e.Position.AssetID, &e.Position.Latitude, &e.Position.Longitude, &e.Position.FixTime,
		&observed, &fetched, &storedNano)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	e.Position.ObservedAt = fromNanos(observed)
	e.Position.FetchedAt = fromNanos(fetched)
	e.StoredAt = fromNanos(storedNano)
	return e, true, nil
}

func (r *Repo) Put(ctx context.Context, assetID string, pos domain.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	e := domain.NewCacheEntry(pos)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions(asset_id, lat, lon, fix_time, observed_ns, fetched_ns, stored_ns)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
		lat=excluded.lat, lon=excluded.lon, fix_time=excluded.fix_time,
		observed_ns=excluded.observed_ns, fetched_ns=excluded.fetched_ns, stored_ns=excluded.stored_ns
	`, assetID, pos.Latitude, pos.Longitude, pos.FixTime,
		pos.ObservedAt.UnixNano(), pos.FetchedAt.UnixNano(), e.StoredAt.UnixNano())
	return err
}

// Count returns the number of cached assets.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n)
	return n, err
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

var _ port.PositionCache = (*Repo)(nil)
