package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"whereis/internal/application/port"
	"whereis/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  lat DOUBLE PRECISION NOT NULL,
  lon DOUBLE PRECISION NOT NULL,
  fix_time TEXT NOT NULL DEFAULT '',
  observed_at TIMESTAMPTZ NOT NULL,
  fetched_at TIMESTAMPTZ NOT NULL,
  stored_at TIMESTAMPTZ NOT NULL
);
`)
	return err
}

func (r *Repo) Get(ctx context.Context, assetID string) (domain.CacheEntry, bool, error) {
	var e domain.CacheEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT asset_id, lat, lon, fix_time, observed_at, fetched_at, stored_at
		FROM positions WHERE asset_id = $1
	`, assetID).Scan(&e.Position.AssetID, &e.Position.Latitude, &e.Position.Longitude, &e.Position.FixTime,
		&e.Position.ObservedAt, &e.Position.FetchedAt, &e.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	e.Position.ObservedAt = e.Position.ObservedAt.UTC()
	e.Position.FetchedAt = e.Position.FetchedAt.UTC()
	e.StoredAt = e.StoredAt.UTC()
	return e, true, nil
}

// Put upserts the entry. Postgres keeps microsecond precision, so timestamps
// are truncated before writing to keep repeated writes identical.
func (r *Repo) Put(ctx context.Context, assetID string, pos domain.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	e := domain.NewCacheEntry(pos)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions(asset_id, lat, lon, fix_time, observed_at, fetched_at, stored_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(asset_id) DO UPDATE SET
		lat=excluded.lat, lon=excluded.lon, fix_time=excluded.fix_time,
		observed_at=excluded.observed_at, fetched_at=excluded.fetched_at, stored_at=excluded.stored_at
	`, assetID, pos.Latitude, pos.Longitude, pos.FixTime,
		micros(pos.ObservedAt), micros(pos.FetchedAt), micros(e.StoredAt))
	return err
}

func micros(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

var _ port.PositionCache = (*Repo)(nil)
