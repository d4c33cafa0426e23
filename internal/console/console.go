// Package console is the interactive front end of the group chat. It reads
// user turns line by line and prints every message as the agents produce it.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hupe1980/triage/core"
	"github.com/hupe1980/triage/groupchat"
	"github.com/hupe1980/triage/logging"
	"github.com/hupe1980/triage/strategy"
)

// Commands recognized on a line of their own, case-insensitively.
const (
	CommandExit  = "EXIT"
	CommandReset = "RESET"
)

// Chat is the part of *groupchat.Chat the console drives.
type Chat interface {
	Run(ctx context.Context, input string) (string, <-chan groupchat.Event, <-chan error, error)
	Reset()
}

// Options configures a REPL.
type Options struct {
	// Summary prints a table of the agent turns after every run.
	Summary bool
	// Prompt is printed before every line is read.
	Prompt string
	Logger logging.Logger
}

// REPL is the read-eval-print loop over a Chat.
type REPL struct {
	chat   Chat
	in     io.Reader
	out    io.Writer
	styles styles
	opts   Options

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a REPL reading from in and printing to out.
func New(chat Chat, in io.Reader, out io.Writer, optFns ...func(o *Options)) *REPL {
	opts := Options{
		Prompt: "> ",
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &REPL{
		chat:   chat,
		in:     in,
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out)),
		opts:   opts,
	}
}

// Run reads lines until EXIT, end of input or ctx is done. Errors of single
// turns are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	r.println(r.styles.info.Render(
		fmt.Sprintf("Describe your problem. %s clears the conversation, %s quits.", CommandReset, CommandExit)))

	for {
		r.print(r.opts.Prompt)

		select {
		case <-ctx.Done():
			r.println("")
			r.println(r.styles.info.Render("Bye."))
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}

			input := strings.TrimSpace(line)
			switch {
			case input == "":
				continue
			case strings.EqualFold(input, CommandExit):
				r.println(r.styles.info.Render("Bye."))
				return nil
			case strings.EqualFold(input, CommandReset):
				r.chat.Reset()
				r.opts.Logger.Info("console.reset")
				r.println(r.styles.info.Render("Conversation cleared."))
			default:
				r.Turn(ctx, input)
			}
		}
	}
}

// Interrupt cancels the turn in flight. It reports false when the REPL is
// idle, in which case the caller usually exits.
func (r *REPL) Interrupt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// Turn runs one user turn and prints its progress.
func (r *REPL) Turn(ctx context.Context, input string) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}()

	start := time.Now()

	_, events, errs, err := r.chat.Run(ctx, input)
	if err != nil {
		r.printError(err)
		return
	}

	var (
		messages []core.Message
		decision *strategy.Decision
	)

	for ev := range events {
		switch ev.Type {
		case groupchat.EventMessage:
			if ev.Message.Role != core.RoleAgent {
				continue
			}
			messages = append(messages, *ev.Message)
			r.printMessage(*ev.Message)
		case groupchat.EventTerminated:
			decision = ev.Decision
		}
	}

	if err := <-errs; err != nil {
		if errors.Is(err, context.Canceled) {
			r.println(r.styles.info.Render("Turn cancelled."))
			return
		}
		r.printError(err)
		return
	}

	if decision == nil {
		return
	}

	r.printOutcome(*decision)
	if r.opts.Summary {
		r.printSummary(messages, *decision, time.Since(start))
	}
}

func (r *REPL) printMessage(m core.Message) {
	r.println(r.styles.author(m.Author).Render(m.Author+":") + " " + m.Content)
}

func (r *REPL) printOutcome(d strategy.Decision) {
	switch d.Reason {
	case strategy.ReasonResolved:
		solution := ""
		if d.Verdict != nil {
			solution = d.Verdict.Solution
		}
		r.println(r.styles.success.Render("Resolved: " + solution))
	case strategy.ReasonCeiling:
		r.println(r.styles.warn.Render("Stopped after the maximum number of turns without an approved solution."))
	}
}

func (r *REPL) printSummary(messages []core.Message, d strategy.Decision, dur time.Duration) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.AppendHeader(table.Row{"#", "Agent", "Verdict", "Length"})

	for i, m := range messages {
		verdict := ""
		if v, ok := m.Verdict(); ok {
			verdict = "rejected"
			if v.Approved {
				verdict = "approved"
			}
		}
		tw.AppendRow(table.Row{i + 1, m.Author, verdict, len(m.Content)})
	}

	tw.AppendFooter(table.Row{"", "Outcome", string(d.Reason), dur.Round(time.Millisecond).String()})
	tw.Render()
}

func (r *REPL) printError(err error) {
	r.println(r.styles.err.Render("Error: " + err.Error()))
}

func (r *REPL) print(s string) {
	_, _ = io.WriteString(r.out, s)
}

func (r *REPL) println(s string) {
	_, _ = io.WriteString(r.out, s+"\n")
}
