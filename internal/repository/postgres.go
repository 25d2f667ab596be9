package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"address-mapper/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Repository stores resolved addresses in PostgreSQL/PostGIS
type Repository struct {
	db DBTX
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// AddressHash is the cache key of a free-text address: case and
// surrounding whitespace do not matter.
func AddressHash(address string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(address))))
	return hex.EncodeToString(h[:])
}

// CreateSchema creates the cache table and its spatial index
func (r *Repository) CreateSchema(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS postgis;
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address_hash CHAR(64) PRIMARY KEY,
		query TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		provider VARCHAR(64) NOT NULL,
		geom GEOGRAPHY(POINT, 4326) NOT NULL,
		cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS geocode_cache_geom_idx ON geocode_cache USING GIST (geom);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}

	return nil
}

// FindCachedLocation returns the cached location for hash, or nil when the
// address has not been resolved before
func (r *Repository) FindCachedLocation(ctx context.Context, hash string) (*models.Location, error) {
	sql := `
		SELECT
			query,
			display_name,
			provider,
			ST_Y(geom::geometry) as latitude,
			ST_X(geom::geometry) as longitude
		FROM geocode_cache
		WHERE address_hash = $1
	`

	var loc models.Location
	err := r.db.QueryRow(ctx, sql, hash).Scan(
		&loc.Query,
		&loc.DisplayName,
		&loc.Provider,
		&loc.Latitude,
		&loc.Longitude,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to query cache: %w", err)
	}

	return &loc, nil
}

// SaveLocation inserts or refreshes the cache entry for a resolved address
func (r *Repository) SaveLocation(ctx context.Context, loc *models.Location) error {
	sql := `
		INSERT INTO geocode_cache (address_hash, query, display_name, provider, geom, cached_at)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), now())
		ON CONFLICT (address_hash) DO UPDATE SET
			query = EXCLUDED.query,
			display_name = EXCLUDED.display_name,
			provider = EXCLUDED.provider,
			geom = EXCLUDED.geom,
			cached_at = now()
	`

	_, err := r.db.Exec(ctx, sql,
		AddressHash(loc.Query),
		loc.Query,
		loc.DisplayName,
		loc.Provider,
		loc.Longitude, // PostGIS takes lon, lat
		loc.Latitude,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to store location: %w", err)
	}

	return nil
}

// SeedLocations bulk loads known locations. Existing hashes make the copy
// fail, so seeding is meant for an empty cache.
func (r *Repository) SeedLocations(ctx context.Context, locations []models.Location) (int64, error) {
	n, err := r.db.CopyFrom(
		ctx,
		pgx.Identifier{"geocode_cache"},
		[]string{"address_hash", "query", "display_name", "provider", "geom"},
		pgx.CopyFromSlice(len(locations), func(i int) ([]any, error) {
			loc := locations[i]
			return []any{AddressHash(loc.Query), loc.Query, loc.DisplayName, loc.Provider, pointEWKT(loc.Longitude, loc.Latitude)}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to seed locations: %w", err)
	}

	return n, nil
}

// CountCachedLocations returns the number of cache entries
func (r *Repository) CountCachedLocations(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM geocode_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count cache entries: %w", err)
	}

	return count, nil
}

// pointEWKT renders a WGS84 point in PostGIS extended WKT (lon lat) without
// losing precision.
func pointEWKT(lon, lat float64) string {
	return "SRID=4326;POINT(" + strconv.FormatFloat(lon, 'f', -1, 64) + " " + strconv.FormatFloat(lat, 'f', -1, 64) + ")"
}
