// Package store persists extracted listings to PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/pkg/models"
)

// querier is the slice of the pgx pool API the store uses. Tests substitute
// a fake; production always runs on *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrTargetMissing is returned by Update when no row matches the requested
// listing id and owner.
var ErrTargetMissing = errors.New("no saved listing matches the given id and user")

const createAnnoncesTable = `
CREATE TABLE IF NOT EXISTS annonces (
	id SERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	adresse TEXT,
	title TEXT,
	prix NUMERIC,
	type_habitat TEXT,
	surface_habitable TEXT,
	surface_terrain TEXT,
	nbr_pieces TEXT,
	dpe TEXT,
	ges TEXT,
	description TEXT,
	image_paths TEXT[],
	screenshot_path TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	poolCfg.MaxConns = 5
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	log.Debug().Msg("Database connection established")
	return &Store{pool: pool, db: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateSchema creates the listing table when it does not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createAnnoncesTable); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Insert stores a freshly scraped listing as a new row. Only the image paths
// that were actually downloaded are stored.
func (s *Store) Insert(ctx context.Context, l *models.Listing) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO annonces (
			url, adresse, title, prix, type_habitat, surface_habitable,
			surface_terrain, nbr_pieces, dpe, ges, description,
			image_paths, screenshot_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.URL, l.Address, l.Title, l.Price, l.PropertyType, l.LivingSurface,
		l.LandSurface, l.Rooms, l.EnergyRate, l.GES, l.Description,
		l.StoredPaths(), l.ScreenshotPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}

	log.Info().Str("url", l.URL).Msg("Listing inserted")
	return nil
}

// Update refreshes an existing saved listing owned by the given user. The
// row is looked up first so a missing target is reported as ErrTargetMissing
// rather than a silent zero-row update.
func (s *Store) Update(ctx context.Context, id, userID int64, l *models.Listing) error {
	var one int
	err := s.db.QueryRow(ctx,
		`SELECT 1 FROM saved_properties WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTargetMissing
	}
	if err != nil {
		return fmt.Errorf("failed to look up saved listing: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE saved_properties SET
			url = $3,
			adresse = $4,
			title = $5,
			prix = $6,
			type_habitat = $7,
			surface_habitable = $8,
			surface_terrain = $9,
			nbr_pieces = $10,
			dpe = $11,
			ges = $12,
			description = $13,
			image_paths = $14,
			screenshot_path = $15,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2`,
		id, userID,
		l.URL, l.Address, l.Title, l.Price, l.PropertyType, l.LivingSurface,
		l.LandSurface, l.Rooms, l.EnergyRate, l.GES, l.Description,
		l.StoredPaths(), l.ScreenshotPath,
	)
	if err != nil {
		return fmt.Errorf("failed to update saved listing: %w", err)
	}

	log.Info().Int64("id", id).Int64("user_id", userID).Msg("Saved listing updated")
	return nil
}
