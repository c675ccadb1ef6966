package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/youme-word/internal/config"
	"github.com/robalobadob/youme-word/internal/game"
)

// Postgres provides PostgreSQL-backed match records
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres connects, pings and migrates.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	p := &Postgres{pool: pool, now: time.Now}
	if err := p.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// RunMigrations executes database migrations
func (p *Postgres) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS match_states (
			id          VARCHAR(64) PRIMARY KEY,
			game_code   INT NOT NULL,
			player_role VARCHAR(8) NOT NULL CHECK (player_role IN ('host', 'guest')),
			words       JSONB NOT NULL,
			row_index   INT NOT NULL DEFAULT 0,
			game_over   BOOLEAN NOT NULL DEFAULT FALSE,
			won         BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_states_game_code ON match_states(game_code)`,
		`CREATE INDEX IF NOT EXISTS idx_match_states_updated_at ON match_states(updated_at)`,
	}

	for _, migration := range migrations {
		if _, err := p.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	log.Info().Msg("postgres migrations completed")
	return nil
}

// Upsert writes the full record
func (p *Postgres) Upsert(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	words, err := json.Marshal(rec.Words)
	if err != nil {
		return fmt.Errorf("encode words: %w", err)
	}
	query := `
		INSERT INTO match_states (id, game_code, player_role, words, row_index, game_over, won, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			game_code = EXCLUDED.game_code,
			player_role = EXCLUDED.player_role,
			words = EXCLUDED.words,
			row_index = EXCLUDED.row_index,
			game_over = EXCLUDED.game_over,
			won = EXCLUDED.won,
			updated_at = EXCLUDED.updated_at
	`
	_, err = p.pool.Exec(ctx, query,
		rec.ID, rec.GameCode, string(rec.PlayerRole), string(words),
		rec.RowIndex, rec.GameOver, rec.Won, p.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting %s: %w", rec.ID, err)
	}
	return nil
}

// Get selects a single record by id
func (p *Postgres) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, game_code, player_role, words, row_index, game_over, won, updated_at
		FROM match_states WHERE id = $1
	`
	var (
		rec   Record
		role  string
		words []byte
	)
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.GameCode, &role, &words, &rec.RowIndex, &rec.GameOver, &rec.Won, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", id, err)
	}
	rec.PlayerRole = game.Role(role)
	if err := json.Unmarshal(words, &rec.Words); err != nil {
		return nil, fmt.Errorf("decoding words of %s: %w", id, err)
	}
	return &rec, nil
}

// CodeExists checks for any record with the code
func (p *Postgres) CodeExists(ctx context.Context, code int) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM match_states WHERE game_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking code %d: %w", code, err)
	}
	return exists, nil
}

// DeleteOlderThan removes records last written before cutoff
func (p *Postgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM match_states WHERE updated_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting old matches: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the database connection pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
