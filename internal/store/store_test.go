package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/youme-word/internal/config"
	"github.com/robalobadob/youme-word/internal/game"
)

func TestMatchID(t *testing.T) {
	assert.Equal(t, "42_host", MatchID(42, game.RoleHost))
	assert.Equal(t, "0_guest", MatchID(0, game.RoleGuest))

	code, role, err := ParseMatchID("42_guest")
	require.NoError(t, err)
	assert.Equal(t, 42, code)
	assert.Equal(t, game.RoleGuest, role)

	for _, bad := range []string{"", "42", "_host", "x_host", "-1_host", "42_admin"} {
		_, _, err := ParseMatchID(bad)
		assert.ErrorIs(t, err, ErrInvalidRecord, bad)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	var p game.PlayerProgress
	p.Grid[0] = [game.Cols]string{"C", "R", "A", "N", "E"}
	p.Grid[1] = [game.Cols]string{"S", "L", "", "", ""}
	p.Row, p.Col = 1, 2

	rec := NewRecord(9, game.RoleHost, p)
	require.NoError(t, rec.Validate())
	assert.Equal(t, "9_host", rec.ID)
	assert.Len(t, rec.Words, game.Rows)
	assert.Equal(t, []string{"C", "R", "A", "N", "E"}, rec.Words[0])

	back := rec.Progress()
	assert.Equal(t, p.Grid, back.Grid)
	assert.Equal(t, 1, back.Row)
	assert.Equal(t, 0, back.Col, "column cursor is not stored")
}

func TestRecordProgressToleratesBadShapes(t *testing.T) {
	rec := Record{
		Words:    [][]string{{"a", "b"}, {"c", "d", "e", "f", "g", "h"}},
		RowIndex: 12,
		Won:      true,
	}
	p := rec.Progress()
	assert.Equal(t, [game.Cols]string{"A", "B", "", "", ""}, p.Grid[0])
	assert.Equal(t, [game.Cols]string{"C", "D", "E", "F", "G"}, p.Grid[1])
	assert.Equal(t, game.Rows, p.Row)
	assert.True(t, p.Finished)
}

func TestRecordValidate(t *testing.T) {
	good := NewRecord(3, game.RoleGuest, game.PlayerProgress{})
	require.NoError(t, good.Validate())

	mismatched := good
	mismatched.GameCode = 4
	assert.ErrorIs(t, mismatched.Validate(), ErrInvalidRecord)

	short := good
	short.Words = short.Words[:5]
	assert.ErrorIs(t, short.Validate(), ErrInvalidRecord)

	narrow := NewRecord(3, game.RoleGuest, game.PlayerProgress{})
	narrow.Words[2] = []string{"A"}
	assert.ErrorIs(t, narrow.Validate(), ErrInvalidRecord)

	row := good
	row.RowIndex = 7
	assert.ErrorIs(t, row.Validate(), ErrInvalidRecord)
}

// stubCodes feeds AllocateCode a fixed sequence of candidates.
func stubCodes(t *testing.T, codes ...int) {
	t.Helper()
	orig := randIntn
	i := 0
	randIntn = func(n int) (int, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
	t.Cleanup(func() { randIntn = orig })
}

type failingStore struct{ Store }

func (failingStore) CodeExists(context.Context, int) (bool, error) {
	return false, errors.New("backend down")
}

func TestAllocateCode(t *testing.T) {
	ctx := context.Background()

	t.Run("skips taken codes", func(t *testing.T) {
		st := NewMemoryStore()
		require.NoError(t, st.Upsert(ctx, NewRecord(5, game.RoleHost, game.PlayerProgress{})))
		stubCodes(t, 5, 5, 8)

		code, err := AllocateCode(ctx, st, 10, 10)
		require.NoError(t, err)
		assert.Equal(t, 8, code)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		st := NewMemoryStore()
		require.NoError(t, st.Upsert(ctx, NewRecord(1, game.RoleGuest, game.PlayerProgress{})))
		stubCodes(t, 1)

		_, err := AllocateCode(ctx, st, 10, 3)
		assert.ErrorIs(t, err, ErrCodeAllocation)
	})

	t.Run("store errors abort", func(t *testing.T) {
		stubCodes(t, 2)
		_, err := AllocateCode(ctx, failingStore{}, 10, 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCodeAllocation)
	})

	t.Run("real random codes stay in range", func(t *testing.T) {
		st := NewMemoryStore()
		for i := 0; i < 50; i++ {
			code, err := AllocateCode(ctx, st, 3, 10)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, code, 0)
			assert.Less(t, code, 3)
		}
	})

	t.Run("empty code space", func(t *testing.T) {
		_, err := AllocateCode(ctx, NewMemoryStore(), 0, 3)
		assert.ErrorIs(t, err, ErrCodeAllocation)
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpenMemory(t *testing.T) {
	b, err := Open(context.Background(), config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)
	assert.NoError(t, b.Close())
}

// clock is a settable time source shared with a backend under test.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

// testStoreContract exercises the Store contract against any backend.
// clk must already be installed as the backend's time source.
func testStoreContract(t *testing.T, st Store, clk *clock) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clk.t = base

	t.Run("get missing", func(t *testing.T) {
		_, err := st.Get(ctx, "999_host")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert then get", func(t *testing.T) {
		var p game.PlayerProgress
		p.Grid[0] = [game.Cols]string{"C", "R", "A", "N", "E"}
		p.Row = 1
		require.NoError(t, st.Upsert(ctx, NewRecord(11, game.RoleHost, p)))

		got, err := st.Get(ctx, "11_host")
		require.NoError(t, err)
		assert.Equal(t, 11, got.GameCode)
		assert.Equal(t, game.RoleHost, got.PlayerRole)
		assert.Equal(t, 1, got.RowIndex)
		assert.Equal(t, p.Grid, got.Progress().Grid)
		assert.True(t, got.UpdatedAt.Equal(base), "updated_at %v", got.UpdatedAt)
	})

	t.Run("upsert replaces the whole record", func(t *testing.T) {
		var p game.PlayerProgress
		p.Row, p.Won, p.Finished = 2, true, true
		p.Grid[1] = [game.Cols]string{"A", "L", "L", "O", "T"}
		require.NoError(t, st.Upsert(ctx, NewRecord(11, game.RoleHost, p)))

		got, err := st.Get(ctx, "11_host")
		require.NoError(t, err)
		assert.Equal(t, p.Grid, got.Progress().Grid)
		assert.True(t, got.Won)
		assert.True(t, got.GameOver)
	})

	t.Run("invalid records are refused", func(t *testing.T) {
		rec := NewRecord(12, game.RoleGuest, game.PlayerProgress{})
		rec.ID = "13_guest"
		assert.ErrorIs(t, st.Upsert(ctx, rec), ErrInvalidRecord)
	})

	t.Run("code exists", func(t *testing.T) {
		ok, err := st.CodeExists(ctx, 11)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = st.CodeExists(ctx, 12)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete older than", func(t *testing.T) {
		clk.t = base.Add(time.Hour)
		require.NoError(t, st.Upsert(ctx, NewRecord(20, game.RoleGuest, game.PlayerProgress{})))

		n, err := st.DeleteOlderThan(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = st.Get(ctx, "11_host")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = st.Get(ctx, "20_guest")
		assert.NoError(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore()
	clk := &clock{}
	st.SetClock(clk.now)
	testStoreContract(t, st, clk)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rec := NewRecord(1, game.RoleHost, game.PlayerProgress{})
	require.NoError(t, st.Upsert(ctx, rec))

	rec.Words[0][0] = "Z"
	got, err := st.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Words[0][0])

	got.Words[0][1] = "Y"
	again, _ := st.Get(ctx, rec.ID)
	assert.Equal(t, "", again.Words[0][1])
	assert.Equal(t, 1, st.Len())
}
