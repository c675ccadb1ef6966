// internal/words/words.go
//
// Word lists for the match engine.
//
// Responsibilities:
//   - Load the solution list and the allowed guess list from files named in
//     the environment or fall back to the embedded assets.
//   - Dictionary: IsValidGuess, a case-insensitive set lookup.
//   - Solution Registry: WordForCode, the solution at a given match code.
//
// Loading behavior (Load):
//   1. AnswersFile and AllowedFile both set: answers from the first, extra
//      guesses from the second.
//   2. Only AllowedFile set: that file is used for both lists.
//   3. Neither set: the embedded assets/answers.txt and assets/allowed.txt.
//
// Constraints:
//   • Words must be 5 alphabetic letters (a–z); other lines are dropped.
//   • Lists are normalized to lowercase.
//   • Answer order is preserved: it is the match code order.

package words

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robalobadob/youme-word/assets"
)

// WordLength is the number of letters in every guess and solution.
const WordLength = 5

var (
	ErrEmptyAnswers   = errors.New("words: answers list is empty")
	ErrCodeOutOfRange = errors.New("words: match code out of range")
)

// Files names optional on-disk word lists.
type Files struct {
	AnswersFile string
	AllowedFile string
}

// Lists holds the loaded word lists. It is immutable after Load and safe
// for concurrent use.
type Lists struct {
	answers    []string            // canonical answers, match code order
	allowedSet map[string]struct{} // answers ∪ guesses
}

// Load builds Lists from files or the embedded defaults.
func Load(f Files) (*Lists, error) {
	var ansList, allowList []string
	var err error

	switch {
	case f.AnswersFile != "" && f.AllowedFile != "":
		if ansList, err = readWordFile(f.AnswersFile); err != nil {
			return nil, err
		}
		if allowList, err = readWordFile(f.AllowedFile); err != nil {
			return nil, err
		}

	case f.AnswersFile == "" && f.AllowedFile != "":
		if allowList, err = readWordFile(f.AllowedFile); err != nil {
			return nil, err
		}
		ansList = allowList

	default:
		if ansList, err = assets.AnswersList(); err != nil {
			return nil, fmt.Errorf("read embedded answers: %w", err)
		}
		if allowList, err = assets.AllowedList(); err != nil {
			return nil, fmt.Errorf("read embedded allowed: %w", err)
		}
		ansList, allowList = onlyWords(ansList), onlyWords(allowList)
	}

	return New(ansList, allowList)
}

// New builds Lists from in-memory slices. Answers are always allowed.
func New(answers, allowed []string) (*Lists, error) {
	l := &Lists{
		answers:    make([]string, 0, len(answers)),
		allowedSet: make(map[string]struct{}, len(answers)+len(allowed)),
	}
	for _, w := range answers {
		w = strings.ToLower(strings.TrimSpace(w))
		l.answers = append(l.answers, w)
		l.allowedSet[w] = struct{}{}
	}
	for _, w := range allowed {
		l.allowedSet[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	if len(l.answers) == 0 {
		return nil, ErrEmptyAnswers
	}
	return l, nil
}

// FromEnv reads WORDS_ANSWERS_FILE and WORDS_ALLOWED_FILE.
func FromEnv() Files {
	return Files{
		AnswersFile: os.Getenv("WORDS_ANSWERS_FILE"),
		AllowedFile: os.Getenv("WORDS_ALLOWED_FILE"),
	}
}

// IsValidGuess reports whether w is an allowed 5-letter guess, ignoring case.
func (l *Lists) IsValidGuess(w string) bool {
	if len(w) != WordLength {
		return false
	}
	_, ok := l.allowedSet[strings.ToLower(w)]
	return ok
}

// WordForCode returns the solution for a match code.
// Codes outside [0, Len()) are rejected rather than clamped: clamping would
// silently alias every large code to the last word.
func (l *Lists) WordForCode(code int) (string, error) {
	if code < 0 || code >= len(l.answers) {
		return "", fmt.Errorf("%w: %d not in [0,%d)", ErrCodeOutOfRange, code, len(l.answers))
	}
	return l.answers[code], nil
}

// Len is the number of solutions, i.e. the exclusive upper bound of match codes.
func (l *Lists) Len() int { return len(l.answers) }

// Stats returns counts of loaded words: (answers, allowed).
func (l *Lists) Stats() (answersCount int, allowedCount int) {
	return len(l.answers), len(l.allowedSet)
}

// readWordFile loads one word per line from a file,
// lowercases, trims, and keeps only valid 5-letter alphabetic words.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(strings.ToLower(sc.Text()))
		if len(w) == WordLength && isAlpha(w) {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// onlyWords drops anything that is not a 5-letter lowercase word.
func onlyWords(list []string) []string {
	out := list[:0]
	for _, w := range list {
		if len(w) == WordLength && isAlpha(w) {
			out = append(out, w)
		}
	}
	return out
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
