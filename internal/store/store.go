// internal/store/store.go
//
// Match Store: the durable record of each player's progress in a match.
// One record per (match code, player role), keyed "{code}_{role}".
//
// Backends:
//   - memory.go:   in-process map (tests, single-process play).
//   - sqlite.go:   database/sql + go-sqlite3 (server default).
//   - postgres.go: pgx connection pool.
//   - redis.go:    go-redis, JSON values plus an updated_at index.
//   - http.go:     client for the hosted match API.

package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/youme-word/internal/config"
	"github.com/robalobadob/youme-word/internal/game"
)

var (
	ErrNotFound       = errors.New("match record not found")
	ErrInvalidRecord  = errors.New("invalid match record")
	ErrCodeAllocation = errors.New("no unique match code available")
	ErrUnknownDriver  = errors.New("unknown store driver")
)

// Store defines the persistence contract for match records.
type Store interface {
	// Upsert replaces the whole record with the given id and stamps UpdatedAt.
	Upsert(ctx context.Context, rec Record) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// CodeExists reports whether any record uses the match code.
	CodeExists(ctx context.Context, code int) (bool, error)

	// DeleteOlderThan removes records last written before cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Backend is a Store that holds resources.
type Backend interface {
	Store
	io.Closer
}

// Record is the stored shape of one player's progress.
type Record struct {
	ID         string     `json:"id"`
	GameCode   int        `json:"game_code"`
	PlayerRole game.Role  `json:"player_role"`
	Words      [][]string `json:"words"` // Rows x Cols, "" = blank
	RowIndex   int        `json:"row_index"`
	GameOver   bool       `json:"game_over"`
	Won        bool       `json:"won"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MatchID builds the primary key for a seat in a match.
func MatchID(code int, role game.Role) string {
	return strconv.Itoa(code) + "_" + string(role)
}

// ParseMatchID splits a primary key into code and role.
func ParseMatchID(id string) (int, game.Role, error) {
	i := strings.LastIndexByte(id, '_')
	if i <= 0 {
		return 0, "", fmt.Errorf("%w: id %q", ErrInvalidRecord, id)
	}
	code, err := strconv.Atoi(id[:i])
	if err != nil || code < 0 {
		return 0, "", fmt.Errorf("%w: id %q", ErrInvalidRecord, id)
	}
	role, err := game.ParseRole(id[i+1:])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return code, role, nil
}

// NewRecord snapshots progress into a record for the given seat.
func NewRecord(code int, role game.Role, p game.PlayerProgress) Record {
	words := make([][]string, game.Rows)
	for r := range p.Grid {
		words[r] = append([]string(nil), p.Grid[r][:]...)
	}
	return Record{
		ID:         MatchID(code, role),
		GameCode:   code,
		PlayerRole: role,
		Words:      words,
		RowIndex:   p.Row,
		GameOver:   p.Finished,
		Won:        p.Won,
	}
}

// Progress converts the record back into engine state. Malformed grids are
// padded or truncated; the column cursor is not stored and is zero.
func (r Record) Progress() game.PlayerProgress {
	var p game.PlayerProgress
	for i := 0; i < game.Rows && i < len(r.Words); i++ {
		for j := 0; j < game.Cols && j < len(r.Words[i]); j++ {
			p.Grid[i][j] = r.Words[i][j]
		}
	}
	p.Row = r.RowIndex
	p.Finished = r.GameOver
	p.Won = r.Won
	return game.Normalize(p)
}

// Validate checks the key, role, grid shape and cursor.
func (r Record) Validate() error {
	code, role, err := ParseMatchID(r.ID)
	if err != nil {
		return err
	}
	if code != r.GameCode || role != r.PlayerRole {
		return fmt.Errorf("%w: id %q does not match game_code %d / player_role %q",
			ErrInvalidRecord, r.ID, r.GameCode, r.PlayerRole)
	}
	if len(r.Words) != game.Rows {
		return fmt.Errorf("%w: %d rows", ErrInvalidRecord, len(r.Words))
	}
	for i, row := range r.Words {
		if len(row) != game.Cols {
			return fmt.Errorf("%w: row %d has %d cells", ErrInvalidRecord, i, len(row))
		}
	}
	if r.RowIndex < 0 || r.RowIndex > game.Rows {
		return fmt.Errorf("%w: row_index %d", ErrInvalidRecord, r.RowIndex)
	}
	return nil
}

// randIntn returns a uniform value in [0, n). Replaced in tests.
var randIntn = func(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// AllocateCode picks a random match code in [0, n) that no record uses,
// trying at most attempts times. Returns ErrCodeAllocation when every
// candidate was taken; store errors abort immediately.
func AllocateCode(ctx context.Context, st Store, n, attempts int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: empty code space", ErrCodeAllocation)
	}
	for i := 0; i < attempts; i++ {
		code, err := randIntn(n)
		if err != nil {
			return 0, fmt.Errorf("random code: %w", err)
		}
		taken, err := st.CodeExists(ctx, code)
		if err != nil {
			return 0, fmt.Errorf("check code %d: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w after %d attempts", ErrCodeAllocation, attempts)
}

// Open constructs the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.Postgres)
	case "redis":
		return NewRedis(ctx, cfg.Redis)
	case "http":
		return NewHTTP(cfg.HTTP), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
