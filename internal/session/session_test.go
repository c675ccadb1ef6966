package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/youme-word/internal/game"
	"github.com/robalobadob/youme-word/internal/store"
	"github.com/robalobadob/youme-word/internal/words"
)

func newPair(t *testing.T) (host, guest *Session, mem *store.Memory) {
	t.Helper()
	lists, err := words.New([]string{"allot"}, []string{"llama", "crane"})
	require.NoError(t, err)
	mem = store.NewMemoryStore()
	opts := Options{PollInterval: 5 * time.Millisecond}
	host = New(mem, lists, opts, zerolog.Nop())
	guest = New(mem, lists, opts, zerolog.Nop())
	t.Cleanup(func() {
		host.Close()
		guest.Close()
	})
	return host, guest, mem
}

func joined(s *Session) func() bool {
	return func() bool { return s.View().OpponentJoined }
}

func TestStartScreen(t *testing.T) {
	host, _, _ := newPair(t)
	v := host.View()
	assert.Equal(t, ScreenStart, v.Screen)
	assert.NotEmpty(t, v.SessionID)
	assert.Equal(t, host.ID(), v.SessionID)
	assert.False(t, host.PressLetter('A'))
	assert.Equal(t, game.SubmissionIgnored, host.PressEnter())

	_, err := host.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestJoinRejectsOutOfRangeCode(t *testing.T) {
	_, guest, _ := newPair(t)
	for _, code := range []int{-1, 1, 500} {
		err := guest.Join(context.Background(), code)
		assert.ErrorIs(t, err, ErrInvalidCode, "code %d", code)
		assert.Equal(t, ScreenStart, guest.View().Screen)
	}
}

func TestNewGameClaimsCode(t *testing.T) {
	host, guest, mem := newPair(t)
	ctx := context.Background()

	require.NoError(t, host.NewGame(ctx))
	v := host.View()
	assert.Equal(t, ScreenGame, v.Screen)
	assert.Equal(t, 0, v.Code)
	assert.Equal(t, game.RoleHost, v.Role)
	assert.True(t, v.Waiting())

	_, err := mem.Get(ctx, "0_host")
	require.NoError(t, err, "host record written on create")

	// The only code is taken now.
	err = guest.NewGame(ctx)
	assert.ErrorIs(t, err, store.ErrCodeAllocation)
	assert.Equal(t, ScreenStart, guest.View().Screen)
}

func TestInputWaitsForOpponent(t *testing.T) {
	host, _, _ := newPair(t)
	require.NoError(t, host.NewGame(context.Background()))
	assert.False(t, host.PressLetter('L'))
	assert.Equal(t, game.SubmissionIgnored, host.PressEnter())
}

func TestFullMatch(t *testing.T) {
	host, guest, _ := newPair(t)
	ctx := context.Background()

	require.NoError(t, host.NewGame(ctx))
	require.NoError(t, guest.Join(ctx, host.View().Code))

	require.Eventually(t, joined(host), time.Second, 5*time.Millisecond)
	require.Eventually(t, joined(guest), time.Second, 5*time.Millisecond)

	// Host guesses LLAMA.
	assert.Equal(t, 5, host.Type("llama"))
	assert.False(t, host.PressLetter('x'), "row full")
	assert.True(t, host.PressBackspace())
	assert.True(t, host.PressLetter('a'))
	assert.Equal(t, game.SubmissionAccepted, host.PressEnter())

	hv := host.View()
	assert.Equal(t, 1, hv.Mine.Row)
	assert.Equal(t, "L", hv.MyGrid[0][0].Letter)
	assert.Equal(t, game.MarkPresent, hv.MyGrid[0][0].Mark)
	assert.Equal(t, game.MarkCorrect, hv.MyGrid[0][1].Mark)
	assert.Equal(t, game.Mark(""), hv.MyGrid[1][0].Mark, "unsubmitted rows carry no mark")
	assert.Equal(t, game.MarkCorrect, hv.Keyboard["L"])
	assert.Equal(t, game.MarkAbsent, hv.Keyboard["M"])

	// Guest's word not in the list is rejected and stays editable.
	guest.Type("aaaaa")
	assert.Equal(t, game.SubmissionNotInWordList, guest.PressEnter())
	assert.Equal(t, 5, guest.View().Mine.Col)
	for i := 0; i < 5; i++ {
		guest.PressBackspace()
	}

	// Guest sees the host's row once it is pulled.
	require.Eventually(t, func() bool { return guest.View().Opponent.Row == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, game.MarkPresent, guest.View().OppGrid[0][0].Mark)

	guest.Type("ALLOT")
	assert.Equal(t, game.SubmissionAccepted, guest.PressEnter())
	gv := guest.View()
	assert.True(t, gv.Mine.Won)
	assert.Equal(t, game.OutcomeWin, gv.Result)
	assert.Equal(t, `You won! The word was "ALLOT"`, gv.Message())
	assert.False(t, guest.PressLetter('A'), "input ignored once decided")

	require.Eventually(t, func() bool { return host.View().Result == game.OutcomeLose }, time.Second, 5*time.Millisecond)
	assert.Equal(t, `You lost. The word was "ALLOT"`, host.View().Message())
	assert.False(t, host.PressLetter('C'), "opponent won, input ignored")

	ok, err := host.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetReturnsToStart(t *testing.T) {
	host, _, _ := newPair(t)
	require.NoError(t, host.NewGame(context.Background()))
	host.Reset()

	v := host.View()
	assert.Equal(t, ScreenStart, v.Screen)
	assert.Equal(t, game.OutcomeNone, v.Result)
	assert.Empty(t, v.Message())
	host.Reset()
}
