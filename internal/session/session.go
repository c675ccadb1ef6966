// internal/session/session.go
//
// Session is the application state of one client: which screen it is on,
// the active match and the sync loop serving it. It replaces a
// process-wide store; callers own a *Session and pass it where needed.
//
// Notes:
//   - All methods are safe for concurrent use. Input and the sync loop's
//     pulls run on different goroutines and meet at s.mu.
//   - Store failures never reach the player; only code allocation and
//     join validation return errors.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/youme-word/internal/game"
	"github.com/robalobadob/youme-word/internal/matchsync"
	"github.com/robalobadob/youme-word/internal/store"
	"github.com/robalobadob/youme-word/internal/words"
)

var (
	ErrInvalidCode = errors.New("invalid match code")
	ErrNoMatch     = errors.New("no active match")
)

// Screen is the top-level view a client shows.
type Screen string

const (
	ScreenStart Screen = "start"
	ScreenGame  Screen = "game"
)

// Options tunes a Session. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration // opponent pull period
	Retention    time.Duration // age after which NewGame purges records
	CodeAttempts int           // random draws before giving up on a code
}

// Session owns one client's match.
type Session struct {
	id    string
	store store.Store
	words *words.Lists
	opts  Options
	log   zerolog.Logger

	mu     sync.Mutex
	screen Screen
	match  *game.Match
	loop   *matchsync.Loop
}

// New builds a Session on the start screen.
func New(st store.Store, lists *words.Lists, opts Options, logger zerolog.Logger) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = matchsync.DefaultInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = 10
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		store:  st,
		words:  lists,
		opts:   opts,
		log:    logger.With().Str("session_id", id).Logger(),
		screen: ScreenStart,
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// NewGame hosts a new match: purge stale records, allocate an unused code,
// write the host's empty record and start syncing.
// On ErrCodeAllocation the session stays on the start screen.
func (s *Session) NewGame(ctx context.Context) error {
	cutoff := time.Now().Add(-s.opts.Retention)
	if n, err := s.store.DeleteOlderThan(ctx, cutoff); err != nil {
		s.log.Warn().Err(err).Msg("cleanup before new game failed")
	} else if n > 0 {
		s.log.Debug().Int64("deleted", n).Msg("old matches removed")
	}

	code, err := store.AllocateCode(ctx, s.store, s.words.Len(), s.opts.CodeAttempts)
	if err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	return s.begin(ctx, code, game.RoleHost)
}

// Join takes the guest seat of match code. Codes outside the solution
// list return ErrInvalidCode and leave the session untouched.
func (s *Session) Join(ctx context.Context, code int) error {
	if code < 0 || code >= s.words.Len() {
		return fmt.Errorf("%w: %d", ErrInvalidCode, code)
	}
	return s.begin(ctx, code, game.RoleGuest)
}

func (s *Session) begin(ctx context.Context, code int, role game.Role) error {
	target, err := s.words.WordForCode(code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	m := game.NewMatch(code, target, role, s.words)
	loop := matchsync.New(s.store, link{s: s, m: m}, code, role, s.opts.PollInterval, s.log)

	s.mu.Lock()
	old := s.loop
	s.screen, s.match, s.loop = ScreenGame, m, loop
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	if role == game.RoleHost {
		// Claim the code before the guest can see it.
		if _, err := loop.Push(ctx); err != nil {
			s.log.Warn().Err(err).Int("game_code", code).Msg("initial push failed")
		}
	}
	loop.Start(context.WithoutCancel(ctx))
	loop.Notify()

	s.log.Info().Int("game_code", code).Str("player_role", string(role)).Msg("match started")
	return nil
}

// Reset leaves the match and returns to the start screen.
func (s *Session) Reset() {
	s.mu.Lock()
	loop := s.loop
	s.screen, s.match, s.loop = ScreenStart, nil, nil
	s.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
}

// Refresh pulls the opponent's record now instead of waiting for the next
// tick. It reports whether the opponent has joined.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()
	if loop == nil {
		return false, ErrNoMatch
	}
	return loop.Pull(ctx)
}

// Close releases the sync loop.
func (s *Session) Close() error {
	s.Reset()
	return nil
}

// PressLetter types a letter. Ignored once the match is decided.
func (s *Session) PressLetter(r rune) bool {
	return s.input(func(m *game.Match) bool { return m.PressLetter(r) })
}

// PressBackspace deletes the last letter. Ignored once the match is decided.
func (s *Session) PressBackspace() bool {
	return s.input(func(m *game.Match) bool { return m.PressBackspace() })
}

// PressEnter submits the active row.
func (s *Session) PressEnter() game.Submission {
	res := game.SubmissionIgnored
	s.input(func(m *game.Match) bool {
		res = m.PressEnter()
		return res.Accepted()
	})
	return res
}

// Type feeds each rune of word through PressLetter and reports how many
// were accepted.
func (s *Session) Type(word string) int {
	n := 0
	for _, r := range word {
		if s.PressLetter(r) {
			n++
		}
	}
	return n
}

func (s *Session) input(apply func(*game.Match) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.match == nil || s.match.Decided() {
		return false
	}
	if !apply(s.match) {
		return false
	}
	s.loop.Notify()
	return true
}

// link adapts a Session's current match to matchsync.Local. Pulls that
// land after the match was replaced are dropped.
type link struct {
	s *Session
	m *game.Match
}

func (k link) Snapshot() game.PlayerProgress {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	return k.m.Mine
}

func (k link) ApplyOpponent(p game.PlayerProgress) {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	if k.s.match != k.m {
		return
	}
	k.m.SyncOpponent(p)
}
