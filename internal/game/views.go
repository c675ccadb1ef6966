// internal/game/views.go
//
// Derived views of a match. Pure functions of the current state,
// recomputed on demand and never stored.

package game

import (
	"fmt"
	"strings"
)

// ScoreRow implements the two‑pass scoring algorithm.
//
// Pass 1:
//   - Mark exact matches as correct.
//   - Count remaining (non‑correct) target letters.
//
// Pass 2:
//   - For each non‑correct cell: if an unconsumed occurrence of the letter
//     remains, mark present and consume it; otherwise mark absent.
//
// A guessed letter is credited at most as many times as it occurs in the target.
func ScoreRow(target string, row [Cols]string) [Cols]Mark {
	var res [Cols]Mark
	target = strings.ToUpper(target)

	// Letter frequency for the non‑correct positions (A–Z).
	var counts [26]int

	for i := 0; i < Cols; i++ {
		t := byte(0)
		if i < len(target) {
			t = target[i]
		}
		if row[i] != "" && row[i][0] == t {
			res[i] = MarkCorrect
		} else if j := idx(t); j >= 0 {
			counts[j]++
		}
	}

	for i := 0; i < Cols; i++ {
		if res[i] == MarkCorrect {
			continue
		}
		j := -1
		if row[i] != "" {
			j = idx(row[i][0])
		}
		if j >= 0 && counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		} else {
			res[i] = MarkAbsent
		}
	}
	return res
}

// idx maps an uppercase ASCII letter to 0..25, anything else to -1.
func idx(c byte) int {
	if c < 'A' || c > 'Z' {
		return -1
	}
	return int(c - 'A')
}

// RowMarks scores row i of p against the target. ok is false for rows that
// have not been submitted yet.
func RowMarks(target string, p PlayerProgress, i int) (marks [Cols]Mark, ok bool) {
	if i < 0 || i >= p.Row || i >= Rows {
		return marks, false
	}
	return ScoreRow(target, p.Grid[i]), true
}

// Keyboard aggregates letter marks over the submitted rows of p.
// A letter is correct once it matched a position in any row, present if it
// occurs in the target but never matched, absent otherwise. Marks only
// upgrade; letters never guessed are absent from the map.
func Keyboard(target string, p PlayerProgress) map[string]Mark {
	target = strings.ToUpper(target)
	out := make(map[string]Mark)
	for r := 0; r < p.Row && r < Rows; r++ {
		for c, letter := range p.Grid[r] {
			if letter == "" {
				continue
			}
			m := MarkAbsent
			switch {
			case c < len(target) && target[c] == letter[0]:
				m = MarkCorrect
			case strings.Contains(target, letter):
				m = MarkPresent
			}
			if m.rank() > out[letter].rank() {
				out[letter] = m
			}
		}
	}
	return out
}

// Resolve classifies the match for the player owning mine.
//
//   - neither finished          → none
//   - I won, opponent didn't    → win
//   - opponent won, I didn't    → lose
//   - both won                  → tie
//   - I ran out, opponent too   → both-lose
//   - I ran out, opponent plays → lose
//   - opponent ran out, I play  → none
func Resolve(mine, opponent PlayerProgress) Outcome {
	switch {
	case !mine.Finished && !opponent.Finished:
		return OutcomeNone
	case mine.Won && opponent.Won:
		return OutcomeTie
	case mine.Won:
		return OutcomeWin
	case opponent.Won:
		return OutcomeLose
	case mine.Finished && opponent.Finished:
		return OutcomeBothLose
	case mine.Finished:
		return OutcomeLose
	}
	return OutcomeNone
}

// RowMarks scores the local player's row i.
func (m *Match) RowMarks(i int) ([Cols]Mark, bool) { return RowMarks(m.Target, m.Mine, i) }

// OpponentRowMarks scores the opponent's row i.
func (m *Match) OpponentRowMarks(i int) ([Cols]Mark, bool) {
	return RowMarks(m.Target, m.Opponent, i)
}

// Keyboard aggregates the local player's letter marks.
func (m *Match) Keyboard() map[string]Mark { return Keyboard(m.Target, m.Mine) }

// Result classifies the match for the local player.
func (m *Match) Result() Outcome { return Resolve(m.Mine, m.Opponent) }

// Message is the end-of-match line shown to the player.
func (o Outcome) Message(target string) string {
	w := strings.ToUpper(target)
	switch o {
	case OutcomeWin:
		return fmt.Sprintf("You won! The word was %q", w)
	case OutcomeLose:
		return fmt.Sprintf("You lost. The word was %q", w)
	case OutcomeTie:
		return fmt.Sprintf("It's a tie. The word was %q", w)
	case OutcomeBothLose:
		return fmt.Sprintf("You both lost. The word was %q", w)
	}
	return ""
}
