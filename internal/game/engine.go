// internal/game/engine.go
//
// Match engine for one client of a two-player match.
// Responsibilities:
//   - Own the local player's progress (grid, cursor, outcome).
//   - Hold a read-only mirror of the opponent's progress, replaced wholesale
//     on every sync.
//   - Apply key transitions: letter, backspace, enter.
//
// Notes:
//   - Guards that fail are no-ops reported through the return value, never
//     errors: stray input is silently ignored.
//   - A Match is not safe for concurrent use; the owner serializes access.
//   - Derived views (row marks, keyboard, result) live in views.go.
package game

import (
	"strings"
)

// Match is the state of one match as seen by one client.
type Match struct {
	Code           int            // match code shared by both players
	Target         string         // uppercase solution, derived from Code
	Role           Role           // local seat
	Mine           PlayerProgress // authoritative, mutated by local input only
	Opponent       PlayerProgress // cached copy from the last successful pull
	OpponentJoined bool           // set on the first successful pull

	dict Dictionary
}

// NewMatch constructs a match with empty grids for both players.
func NewMatch(code int, target string, role Role, dict Dictionary) *Match {
	return &Match{
		Code:   code,
		Target: strings.ToUpper(target),
		Role:   role,
		dict:   dict,
	}
}

// PressLetter writes letter into the next cell of the active row.
// Requires the opponent to have joined, the player not finished and a free
// cell. Letters outside A–Z (either case) are ignored.
// Returns true if the state changed.
func (m *Match) PressLetter(letter rune) bool {
	if !m.OpponentJoined || m.Mine.Finished || m.Mine.Col >= Cols {
		return false
	}
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	if letter < 'A' || letter > 'Z' {
		return false
	}
	m.Mine.Grid[m.Mine.Row][m.Mine.Col] = string(letter)
	m.Mine.Col++
	return true
}

// PressBackspace clears the last filled cell of the active row.
// Returns true if the state changed.
func (m *Match) PressBackspace() bool {
	if m.Mine.Finished || m.Mine.Col <= 0 {
		return false
	}
	m.Mine.Col--
	m.Mine.Grid[m.Mine.Row][m.Mine.Col] = ""
	return true
}

// PressEnter submits the active row.
//
// Validation:
//   - Opponent joined and player not finished, else SubmissionIgnored.
//   - Row full, else SubmissionIncomplete.
//   - Row in the dictionary, else SubmissionNotInWordList.
//
// State transitions on acceptance:
//   - Row equals the target → Finished = true, Won = true.
//   - Else if all Rows are used → Finished = true (loss).
func (m *Match) PressEnter() Submission {
	if !m.OpponentJoined || m.Mine.Finished {
		return SubmissionIgnored
	}
	if m.Mine.Col < Cols {
		return SubmissionIncomplete
	}
	guess := m.Mine.RowWord(m.Mine.Row)
	if m.dict == nil || !m.dict.IsValidGuess(guess) {
		return SubmissionNotInWordList
	}

	won := strings.EqualFold(guess, m.Target)
	m.Mine.Row++
	m.Mine.Col = 0
	m.Mine.Won = won
	m.Mine.Finished = won || m.Mine.Row >= Rows
	return SubmissionAccepted
}

// SyncOpponent replaces the cached opponent progress and marks the opponent
// as joined. No field of the previous cache survives.
func (m *Match) SyncOpponent(p PlayerProgress) {
	m.Opponent = Normalize(p)
	m.OpponentJoined = true
}

// Decided reports whether local input should stop: someone won, or the
// local player is out of rows.
func (m *Match) Decided() bool {
	return m.Mine.Won || m.Opponent.Won || m.Mine.Finished
}

// Normalize coerces progress received from elsewhere into a valid state:
// uppercase single-letter cells, cursors in range, won ⇒ finished.
func Normalize(p PlayerProgress) PlayerProgress {
	for r := range p.Grid {
		for c, cell := range p.Grid[r] {
			p.Grid[r][c] = normalizeCell(cell)
		}
	}
	p.Row = clamp(p.Row, 0, Rows)
	p.Col = clamp(p.Col, 0, Cols)
	if p.Row >= Rows {
		p.Col = 0
	}
	if p.Won || p.Row >= Rows {
		p.Finished = true
	}
	return p
}

// normalizeCell keeps a single ASCII letter, uppercased; anything else is blank.
func normalizeCell(s string) string {
	if len(s) != 1 {
		return ""
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return ""
	}
	return string(c)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
