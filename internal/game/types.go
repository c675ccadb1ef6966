// internal/game/types.go
//
// Core type definitions for the two-player match engine.
// Defines:
//   - Role: which seat of a match a client plays (host/guest).
//   - Mark: per-letter result of a submitted row (correct/present/absent).
//   - PlayerProgress: one player's grid, cursor and outcome.
//   - Submission: result of pressing enter.
//   - Outcome: end-of-match classification from the local player's side.

package game

import "fmt"

const (
	Rows = 6 // guesses per player
	Cols = 5 // letters per guess
)

// Role is the seat a client occupies in a match.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Opponent returns the other seat.
func (r Role) Opponent() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

// Valid reports whether r is one of the two seats.
func (r Role) Valid() bool { return r == RoleHost || r == RoleGuest }

// ParseRole converts a stored role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown player role %q", s)
	}
	return r, nil
}

// Mark represents the evaluation result for a single letter.
//   - "correct": letter is in the target at this position.
//   - "present": letter is in the target at another, unconsumed position.
//   - "absent":  no unconsumed occurrence of the letter remains.
type Mark string

const (
	MarkCorrect Mark = "correct"
	MarkPresent Mark = "present"
	MarkAbsent  Mark = "absent"
)

// rank orders marks for upgrade-only aggregation.
func (m Mark) rank() int {
	switch m {
	case MarkCorrect:
		return 3
	case MarkPresent:
		return 2
	case MarkAbsent:
		return 1
	}
	return 0
}

// PlayerProgress is one player's state in a match. It is a value type:
// copies never share the grid.
type PlayerProgress struct {
	Grid     [Rows][Cols]string // "" or one uppercase letter per cell
	Row      int                // rows submitted so far, 0..Rows
	Col      int                // next cell in the active row, 0..Cols
	Finished bool               // won or out of rows
	Won      bool               // some submitted row equals the target
}

// RowWord joins the cells of row i.
func (p PlayerProgress) RowWord(i int) string {
	if i < 0 || i >= Rows {
		return ""
	}
	var b [Cols]byte
	n := 0
	for _, c := range p.Grid[i] {
		if c != "" {
			b[n] = c[0]
			n++
		}
	}
	return string(b[:n])
}

// Submission is the outcome of PressEnter.
type Submission int

const (
	// SubmissionIgnored: opponent not joined or player already finished.
	SubmissionIgnored Submission = iota
	// SubmissionIncomplete: fewer than Cols letters in the active row.
	SubmissionIncomplete
	// SubmissionNotInWordList: full row, but not a dictionary word. The row
	// stays editable.
	SubmissionNotInWordList
	// SubmissionAccepted: row locked in, cursor moved to the next row.
	SubmissionAccepted
)

// Accepted reports whether the row was locked in. Every other value is a
// rejection that left the state unchanged.
func (s Submission) Accepted() bool { return s == SubmissionAccepted }

func (s Submission) String() string {
	switch s {
	case SubmissionIncomplete:
		return "incomplete"
	case SubmissionNotInWordList:
		return "not_in_word_list"
	case SubmissionAccepted:
		return "accepted"
	}
	return "ignored"
}

// Outcome classifies a match from the local player's point of view.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeWin      Outcome = "win"
	OutcomeLose     Outcome = "lose"
	OutcomeTie      Outcome = "tie"
	OutcomeBothLose Outcome = "both-lose"
)

// Dictionary decides whether a full row may be submitted.
type Dictionary interface {
	IsValidGuess(word string) bool
}
