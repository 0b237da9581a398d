package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// giftScore is the score bonus for the /gift command.
const giftScore = 5

// RunChat drives the interactive loop on stdin/stdout until EOF, /quit,
// or context cancellation.
func (a *App) RunChat(ctx context.Context) error {
	return a.runChat(ctx, os.Stdin, os.Stdout)
}

func (a *App) runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	user := a.cache.User()
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	fmt.Fprintf(out, "Hey %s. Score %d. Type /help for commands.\n", name, a.cache.Score())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := a.runCommand(out, line); quit {
				break
			}
			continue
		}

		if err := a.converse(ctx, out, line); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// converse runs one exchange against the active thread, printing
// fragments as the placeholder grows.
func (a *App) converse(ctx context.Context, out io.Writer, text string) error {
	x, err := a.engine.Begin(ctx, a.cache.ActiveThreadID(), text)
	if err != nil {
		return err
	}

	printed := 0
	for {
		if th, ok := a.cache.Thread(x.ThreadID); ok && len(th.Turns) > x.Turn.Index {
			content := th.Turns[x.Turn.Index].Content
			if len(content) > printed {
				fmt.Fprint(out, content[printed:])
				printed = len(content)
			}
		}
		select {
		case <-x.Done():
		case <-time.After(30 * time.Millisecond):
			continue
		}
		break
	}

	// Final state: fallback replies replace, not extend, the partial text.
	if th, ok := a.cache.Thread(x.ThreadID); ok && len(th.Turns) > x.Turn.Index {
		content := th.Turns[x.Turn.Index].Content
		if len(content) > printed {
			fmt.Fprint(out, content[printed:])
		} else if len(content) < printed {
			fmt.Fprintf(out, "\n%s", content)
		}
	}
	fmt.Fprintln(out)
	return nil
}

// runCommand handles slash commands. Returns true to quit.
func (a *App) runCommand(out io.Writer, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(out, `/new            start a new thread
/threads        list threads
/switch N       make thread N active
/rename TITLE   rename the active thread
/delete N       delete thread N
/facts          list remembered facts
/remember TEXT  remember a fact
/forget ID      forget a fact
/mood MOOD      set your current mood
/gift           give the companion a gift
/score          show the relationship score
/quit           leave`)

	case "/new":
		a.cache.SetActiveThread("")
		fmt.Fprintln(out, "next message starts a fresh thread")

	case "/threads":
		threads := a.cache.Threads()
		if len(threads) == 0 {
			fmt.Fprintln(out, "no threads yet")
			return false
		}
		active := a.cache.ActiveThreadID()
		for i, th := range threads {
			marker := " "
			if th.ID == active {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %2d  %s (%d turns)\n", marker, i+1, th.Title, len(th.Turns))
		}

	case "/switch":
		threads := a.cache.Threads()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(threads) {
			fmt.Fprintln(out, "usage: /switch N (see /threads)")
			return false
		}
		a.cache.SetActiveThread(threads[n-1].ID)
		fmt.Fprintf(out, "switched to %q\n", threads[n-1].Title)

	case "/rename":
		id := a.cache.ActiveThreadID()
		if id == "" || arg == "" {
			fmt.Fprintln(out, "usage: /rename TITLE (with an active thread)")
			return false
		}
		if err := a.cache.RenameThread(id, arg); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "/delete":
		threads := a.cache.Threads()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(threads) {
			fmt.Fprintln(out, "usage: /delete N (see /threads)")
			return false
		}
		if err := a.cache.DeleteThread(threads[n-1].ID); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "/facts":
		facts := a.cache.Facts()
		if len(facts) == 0 {
			fmt.Fprintln(out, "nothing remembered yet")
			return false
		}
		for _, f := range facts {
			fmt.Fprintf(out, "%s  %s\n", f.ID, f.Content)
		}

	case "/remember":
		if arg == "" {
			fmt.Fprintln(out, "usage: /remember TEXT")
			return false
		}
		if _, added := a.cache.AddFact(arg); !added {
			fmt.Fprintln(out, "already remembered")
		}

	case "/forget":
		if arg == "" {
			fmt.Fprintln(out, "usage: /forget ID (see /facts)")
			return false
		}
		if err := a.cache.DeleteFact(arg); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "/mood":
		if arg == "" {
			fmt.Fprintf(out, "mood: %s\n", a.cache.Mood())
			return false
		}
		a.cache.SetMood(arg)

	case "/gift":
		fmt.Fprintf(out, "score is now %d\n", a.cache.AddScore(giftScore))

	case "/score":
		fmt.Fprintf(out, "score: %d\n", a.cache.Score())

	default:
		fmt.Fprintf(out, "unknown command %s (try /help)\n", cmd)
	}
	return false
}
