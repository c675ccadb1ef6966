package matchsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/youme-word/internal/game"
	"github.com/robalobadob/youme-word/internal/store"
)

type fakeLocal struct {
	mu       sync.Mutex
	mine     game.PlayerProgress
	opponent game.PlayerProgress
	applied  int
}

func (f *fakeLocal) Snapshot() game.PlayerProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mine
}

func (f *fakeLocal) ApplyOpponent(p game.PlayerProgress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opponent = p
	f.applied++
}

func (f *fakeLocal) set(fn func(p *game.PlayerProgress)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.mine)
}

func (f *fakeLocal) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

// countingStore wraps a memory store and counts calls.
type countingStore struct {
	*store.Memory
	upserts atomic.Int32
	gets    atomic.Int32
	failGet atomic.Bool
	failPut atomic.Bool
	block   chan struct{} // when set, Get waits on it or ctx
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: store.NewMemoryStore()}
}

func (c *countingStore) Upsert(ctx context.Context, rec store.Record) error {
	c.upserts.Add(1)
	if c.failPut.Load() {
		return errors.New("write refused")
	}
	return c.Memory.Upsert(ctx, rec)
}

func (c *countingStore) Get(ctx context.Context, id string) (*store.Record, error) {
	c.gets.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.failGet.Load() {
		return nil, errors.New("connection reset")
	}
	return c.Memory.Get(ctx, id)
}

func TestPushDeduplicatesSameSnapshot(t *testing.T) {
	ctx := context.Background()
	st := newCountingStore()
	local := &fakeLocal{}
	l := New(st, local, 7, game.RoleHost, time.Hour, zerolog.Nop())

	wrote, err := l.Push(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = l.Push(ctx)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, int32(1), st.upserts.Load(), "same snapshot twice is one write")

	local.set(func(p *game.PlayerProgress) { p.Grid[0][0] = "A"; p.Col = 1 })
	wrote, err = l.Push(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, int32(2), st.upserts.Load())

	rec, err := st.Memory.Get(ctx, "7_host")
	require.NoError(t, err)
	assert.Equal(t, "A", rec.Words[0][0])
}

func TestFailedPushIsRetriedOnNextChange(t *testing.T) {
	ctx := context.Background()
	st := newCountingStore()
	local := &fakeLocal{}
	l := New(st, local, 3, game.RoleGuest, time.Hour, zerolog.Nop())

	st.failPut.Store(true)
	_, err := l.Push(ctx)
	require.Error(t, err)

	st.failPut.Store(false)
	wrote, err := l.Push(ctx)
	require.NoError(t, err)
	assert.True(t, wrote, "a failed push does not count as pushed")
}

func TestPull(t *testing.T) {
	ctx := context.Background()
	st := newCountingStore()
	local := &fakeLocal{}
	l := New(st, local, 4, game.RoleHost, time.Hour, zerolog.Nop())

	t.Run("opponent absent", func(t *testing.T) {
		ok, err := l.Pull(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, local.appliedCount())
	})

	var opp game.PlayerProgress
	opp.Grid[0] = [game.Cols]string{"c", "r", "a", "n", "e"}
	opp.Row = 1
	require.NoError(t, st.Memory.Upsert(ctx, store.NewRecord(4, game.RoleGuest, opp)))

	t.Run("opponent present", func(t *testing.T) {
		ok, err := l.Pull(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "CRANE", local.opponent.RowWord(0))
		assert.Equal(t, 1, local.opponent.Row)
	})

	t.Run("transport failure", func(t *testing.T) {
		st.failGet.Store(true)
		defer st.failGet.Store(false)
		before := local.appliedCount()
		ok, err := l.Pull(ctx)
		assert.Error(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, local.appliedCount())
	})
}

func TestLoopPushesOnNotifyAndPollsOpponent(t *testing.T) {
	st := newCountingStore()
	local := &fakeLocal{}
	l := New(st, local, 9, game.RoleGuest, 10*time.Millisecond, zerolog.Nop())

	var host game.PlayerProgress
	host.Row = 2
	require.NoError(t, st.Memory.Upsert(context.Background(), store.NewRecord(9, game.RoleHost, host)))

	l.Start(context.Background())
	defer l.Stop()

	assert.Eventually(t, func() bool { return local.appliedCount() >= 2 }, time.Second, 5*time.Millisecond)

	local.set(func(p *game.PlayerProgress) { p.Grid[0][0] = "Z"; p.Col = 1 })
	l.Notify()
	l.Notify()
	assert.Eventually(t, func() bool { return st.upserts.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := st.Memory.Get(context.Background(), "9_guest")
	assert.NoError(t, err)
}

func TestStopDiscardsInFlightPull(t *testing.T) {
	st := newCountingStore()
	st.block = make(chan struct{})
	local := &fakeLocal{}
	require.NoError(t, st.Memory.Upsert(context.Background(), store.NewRecord(1, game.RoleGuest, game.PlayerProgress{})))

	l := New(st, local, 1, game.RoleHost, time.Hour, zerolog.Nop())
	l.Start(context.Background())
	assert.Eventually(t, func() bool { return st.gets.Load() == 1 }, time.Second, 5*time.Millisecond)

	l.Stop()
	close(st.block)
	assert.Zero(t, local.appliedCount())

	l.Stop()
	l.Start(context.Background()) // no restart after Stop
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), st.gets.Load())
}

func TestNotifyNeverBlocks(t *testing.T) {
	l := New(newCountingStore(), &fakeLocal{}, 0, game.RoleHost, 0, zerolog.Nop())
	for i := 0; i < 10; i++ {
		l.Notify()
	}
	assert.Len(t, l.notify, 1)
	assert.Equal(t, DefaultInterval, l.interval)
}
