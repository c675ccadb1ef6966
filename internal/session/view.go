package session

import (
	"github.com/robalobadob/youme-word/internal/game"
)

// Cell is one letter of a grid with its mark once the row is submitted.
type Cell struct {
	Letter string
	Mark   game.Mark // empty until the row is submitted
}

// View is a consistent copy of everything a client renders.
type View struct {
	SessionID      string
	Screen         Screen
	Code           int
	Role           game.Role
	OpponentJoined bool

	Mine     game.PlayerProgress
	Opponent game.PlayerProgress
	MyGrid   [game.Rows][game.Cols]Cell
	OppGrid  [game.Rows][game.Cols]Cell
	Keyboard map[string]game.Mark
	Result   game.Outcome

	target string
}

// Message is the end-of-match line, empty while the match is undecided.
func (v View) Message() string { return v.Result.Message(v.target) }

// Waiting reports whether the game screen is still waiting for a guest.
func (v View) Waiting() bool { return v.Screen == ScreenGame && !v.OpponentJoined }

// View snapshots the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{SessionID: s.id, Screen: s.screen}
	m := s.match
	if m == nil {
		return v
	}
	v.Code, v.Role, v.OpponentJoined = m.Code, m.Role, m.OpponentJoined
	v.Mine, v.Opponent = m.Mine, m.Opponent
	v.MyGrid = grid(m.Mine, m.RowMarks)
	v.OppGrid = grid(m.Opponent, m.OpponentRowMarks)
	v.Keyboard = m.Keyboard()
	v.Result = m.Result()
	if v.Result != game.OutcomeNone {
		v.target = m.Target
	}
	return v
}

func grid(p game.PlayerProgress, marks func(int) ([game.Cols]game.Mark, bool)) [game.Rows][game.Cols]Cell {
	var out [game.Rows][game.Cols]Cell
	for r := range p.Grid {
		mk, ok := marks(r)
		for c, letter := range p.Grid[r] {
			out[r][c].Letter = letter
			if ok {
				out[r][c].Mark = mk[c]
			}
		}
	}
	return out
}
