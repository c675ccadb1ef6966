// internal/matchsync/loop.go
//
// Sync loop between one client's match and the match store.
// Responsibilities:
//   - Push: write the local progress whenever it changes, skipping writes
//     whose fingerprint equals the last successful push.
//   - Pull: read the opponent's record on a fixed interval and hand it to
//     the local side.
//
// Notes:
//   - Store failures are logged and never returned to the player: a failed
//     push is retried by the next change, a failed pull by the next tick.
//   - Each pull runs in its own goroutine so a hung request only delays
//     its own tick.
//   - Stop cancels in-flight requests; results arriving after Stop are
//     dropped.

package matchsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/robalobadob/youme-word/internal/game"
	"github.com/robalobadob/youme-word/internal/store"
)

// DefaultInterval is the pull period used when none is configured.
const DefaultInterval = 2 * time.Second

// Local is the client side of the loop.
type Local interface {
	// Snapshot returns the current local progress.
	Snapshot() game.PlayerProgress
	// ApplyOpponent replaces the cached opponent progress.
	ApplyOpponent(game.PlayerProgress)
}

// Fingerprint is a digest of a stored snapshot.
type Fingerprint [blake2b.Size256]byte

// Loop pushes local progress and pulls opponent progress for one seat.
type Loop struct {
	store    store.Store
	local    Local
	code     int
	role     game.Role
	interval time.Duration
	log      zerolog.Logger

	notify chan struct{}

	pushMu     sync.Mutex // serializes pushes and guards lastPushed
	lastPushed Fingerprint
	pushed     bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// New builds a loop for the seat (code, role). It does nothing until Start.
func New(st store.Store, local Local, code int, role game.Role, interval time.Duration, logger zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		store:    st,
		local:    local,
		code:     code,
		role:     role,
		interval: interval,
		log: logger.With().
			Int("game_code", code).
			Str("player_role", string(role)).
			Logger(),
		notify: make(chan struct{}, 1),
	}
}

// Start launches the push worker and the pull ticker. The first pull
// happens immediately. Start after Stop, or a second Start, is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil || l.stopped {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(2)
	go l.pushWorker(ctx)
	go l.pullTicker(ctx)
}

// Notify signals that local progress may have changed. It never blocks;
// notifications that arrive while a push is pending are coalesced.
func (l *Loop) Notify() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Stop tears the loop down and waits for its goroutines. Safe to call
// more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

// Push writes the local snapshot unless it matches the last successful
// push. It reports whether a write happened.
func (l *Loop) Push(ctx context.Context) (bool, error) {
	l.pushMu.Lock()
	defer l.pushMu.Unlock()

	rec := store.NewRecord(l.code, l.role, l.local.Snapshot())
	fp, err := fingerprint(rec)
	if err != nil {
		return false, err
	}
	if l.pushed && fp == l.lastPushed {
		return false, nil
	}
	if err := l.store.Upsert(ctx, rec); err != nil {
		return false, err
	}
	l.lastPushed, l.pushed = fp, true
	return true, nil
}

// Pull fetches the opponent's record once. A missing record means the
// opponent has not joined yet and reports false with no error.
func (l *Loop) Pull(ctx context.Context) (bool, error) {
	rec, err := l.store.Get(ctx, store.MatchID(l.code, l.role.Opponent()))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	l.local.ApplyOpponent(rec.Progress())
	return true, nil
}

func (l *Loop) pushWorker(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.notify:
			if _, err := l.Push(ctx); err != nil && ctx.Err() == nil {
				l.log.Warn().Err(err).Msg("push progress failed")
			}
		}
	}
}

func (l *Loop) pullTicker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.spawnPull(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.spawnPull(ctx)
		}
	}
}

func (l *Loop) spawnPull(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if _, err := l.Pull(ctx); err != nil && ctx.Err() == nil {
			l.log.Warn().Err(err).Msg("pull opponent failed")
		}
	}()
}

// fingerprint digests the stored fields of a record.
func fingerprint(rec store.Record) (Fingerprint, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return Fingerprint{}, err
	}
	return blake2b.Sum256(b), nil
}
