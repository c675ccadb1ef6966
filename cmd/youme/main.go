// Command youme is a line-oriented terminal client for YouMe & Word.
//
// Usage:
//
//	youme [-config file] [-driver http|memory|sqlite|postgres|redis]
//
// Commands at the prompt:
//
//	new            host a new match and print its code
//	join <code>    join a match as guest
//	<letters>      type letters into the active row
//	enter          submit the row (a 5-letter word followed by enter works too)
//	back           delete the last letter
//	(empty line)   fetch the opponent now and redraw
//	leave          return to the start screen
//	quit           exit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/youme-word/internal/config"
	"github.com/robalobadob/youme-word/internal/game"
	"github.com/robalobadob/youme-word/internal/session"
	"github.com/robalobadob/youme-word/internal/store"
	"github.com/robalobadob/youme-word/internal/words"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	driver := flag.String("driver", "", "match store driver (default http unless set by config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	switch {
	case *driver != "":
		cfg.Store.Driver = *driver
	case *configPath == "" && os.Getenv("STORE_DRIVER") == "":
		cfg.Store.Driver = "http"
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	logger := cfg.Log.Setup(os.Stderr)

	lists, err := words.Load(words.Files{
		AnswersFile: cfg.Words.AnswersFile,
		AllowedFile: cfg.Words.AllowedFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open match store")
	}
	defer st.Close()

	s := session.New(st, lists, session.Options{
		PollInterval: cfg.Sync.PollInterval,
		Retention:    cfg.Match.Retention,
		CodeAttempts: cfg.Match.CodeAttempts,
	}, logger)
	defer s.Close()

	run(ctx, s, os.Stdin, os.Stdout)
}

// run reads commands from in until quit or EOF.
func run(ctx context.Context, s *session.Session, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "YouMe & Word. Type new, join <code> or quit.")
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return
		}
		if !handle(ctx, s, strings.TrimSpace(sc.Text()), out) {
			return
		}
	}
}

// handle executes one command line and reports whether to keep going.
func handle(ctx context.Context, s *session.Session, line string, out io.Writer) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, session.ErrNoMatch) {
			fmt.Fprintln(out, "could not reach the match store, try again")
		}
		render(out, s.View())
		return true
	}

	switch cmd := fields[0]; cmd {
	case "quit", "exit":
		return false
	case "leave":
		s.Reset()
	case "new":
		if err := s.NewGame(ctx); err != nil {
			fmt.Fprintln(out, "Failed to create game. Please try again.")
			return true
		}
	case "join":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: join <code>")
			return true
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintln(out, "Please enter a valid number")
			return true
		}
		if err := s.Join(ctx, code); err != nil {
			fmt.Fprintln(out, "No such game code")
			return true
		}
	case "back":
		s.PressBackspace()
	case "enter":
		submit(s, out)
	default:
		s.Type(cmd)
		if len(cmd) == game.Cols && len(fields) == 1 {
			submit(s, out)
		}
	}
	render(out, s.View())
	return true
}

func submit(s *session.Session, out io.Writer) {
	switch s.PressEnter() {
	case game.SubmissionIncomplete:
		fmt.Fprintln(out, "Not enough letters")
	case game.SubmissionNotInWordList:
		fmt.Fprintln(out, "Not in word list")
	}
}

// render prints the current screen.
func render(out io.Writer, v session.View) {
	if v.Screen == session.ScreenStart {
		fmt.Fprintln(out, "start screen: new | join <code> | quit")
		return
	}
	fmt.Fprintf(out, "match %d (%s)\n", v.Code, v.Role)
	if v.Waiting() {
		fmt.Fprintf(out, "waiting for opponent, share code %d\n", v.Code)
	}
	fmt.Fprintln(out, "  you                  opponent")
	for r := 0; r < game.Rows; r++ {
		var b strings.Builder
		b.WriteString("  ")
		for _, c := range v.MyGrid[r] {
			b.WriteString(cell(c.Letter, c.Mark))
		}
		b.WriteString("      ")
		for _, c := range v.OppGrid[r] {
			b.WriteString(hidden(c))
		}
		fmt.Fprintln(out, b.String())
	}
	fmt.Fprintln(out, "  "+keyboard(v.Keyboard))
	if msg := v.Message(); msg != "" {
		fmt.Fprintln(out, msg)
		fmt.Fprintln(out, "type leave to play again")
	}
}

func cell(letter string, m game.Mark) string {
	if letter == "" {
		letter = "."
	}
	switch m {
	case game.MarkCorrect:
		return "[" + letter + "]"
	case game.MarkPresent:
		return "(" + letter + ")"
	}
	return " " + letter + " "
}

// hidden draws an opponent cell without revealing the letter.
func hidden(c session.Cell) string {
	if c.Letter == "" {
		return cell("", c.Mark)
	}
	return cell("#", c.Mark)
}

func keyboard(marks map[string]game.Mark) string {
	if len(marks) == 0 {
		return ""
	}
	letters := make([]string, 0, len(marks))
	for l := range marks {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	var b strings.Builder
	for _, l := range letters {
		b.WriteString(cell(l, marks[l]))
	}
	return b.String()
}
