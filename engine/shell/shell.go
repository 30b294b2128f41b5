// Package shell is the interactive question loop in front of the Cypher QA
// chain.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sanjuz-cas/llm-kg-project/engine/cypherqa"
	"github.com/sanjuz-cas/llm-kg-project/pkg/fn"
	"github.com/sanjuz-cas/llm-kg-project/pkg/resilience"
)

const (
	title        = "Knowledge Graph Q&A"
	instructions = "Ask a question about the antibiotic resistance data. Type 'exit' to quit."
	prompt       = "\nYour question: "
)

// Asker answers one question. *cypherqa.Chain implements it.
type Asker interface {
	Invoke(ctx context.Context, question string) (cypherqa.Result, error)
}

// Option configures a Shell.
type Option func(*Shell)

// WithLimiter spaces consecutive questions with l.
func WithLimiter(l *resilience.Limiter) Option {
	return func(s *Shell) { s.limiter = l }
}

// WithLogger sets the logger used for failed questions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) {
		if l != nil {
			s.logger = l
		}
	}
}

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	answer   lipgloss.Style
	errorMsg lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:    r.NewStyle().Bold(true),
		answer:   r.NewStyle().Foreground(lipgloss.Color("10")),
		errorMsg: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Shell reads questions line by line and prints each answer.
type Shell struct {
	asker   Asker
	in      io.Reader
	out     io.Writer
	limiter *resilience.Limiter
	logger  *slog.Logger
	styles  styles
}

// New creates a Shell reading from in and writing to out.
func New(asker Asker, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		asker:  asker,
		in:     in,
		out:    out,
		logger: slog.Default(),
		styles: newStyles(out),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run prints the banner and answers questions until the input ends, the
// user types exit, or ctx is cancelled. A failed question is reported and
// the loop continues.
func (s *Shell) Run(ctx context.Context) error {
	ask := resilience.LimiterStage(s.limiter, fn.Lift(s.asker.Invoke))
	lines := readLines(ctx, s.in)

	fmt.Fprintln(s.out, s.styles.title.Render(title))
	fmt.Fprintln(s.out, instructions)

	for {
		fmt.Fprint(s.out, prompt)

		var (
			in input
			ok bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case in, ok = <-lines:
		}
		if !ok || strings.EqualFold(strings.TrimSpace(in.line), "exit") {
			return nil
		}
		if in.err != nil {
			s.report(in.err)
			continue
		}

		res, err := ask(ctx, in.line).Unwrap()
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(s.out)
				return nil
			}
			s.report(err)
			continue
		}
		fmt.Fprintf(s.out, "\n%s %s\n", s.styles.label.Render("> Question:"), in.line)
		fmt.Fprintf(s.out, "\n%s %s\n", s.styles.label.Render("> Answer:"), s.styles.answer.Render(res.Answer))
	}
}

func (s *Shell) report(err error) {
	s.logger.Warn("question failed", "err", err)
	fmt.Fprintln(s.out, s.styles.errorMsg.Render(fmt.Sprintf("An error occurred: %v", err)))
}

// input is one line read from the user, or the error that ended reading.
type input struct {
	line string
	err  error
}

// readLines feeds in line by line until EOF, a read error or ctx is done.
// Lines have no length limit. A read error is sent once before the channel
// is closed.
func readLines(ctx context.Context, in io.Reader) <-chan input {
	ch := make(chan input)
	go func() {
		defer close(ch)
		br := bufio.NewReader(in)
		for {
			line, err := br.ReadString('\n')
			var msg input
			switch {
			case err == nil:
				msg.line = strings.TrimRight(line, "\r\n")
			case errors.Is(err, io.EOF):
				if line == "" {
					return
				}
				msg.line = strings.TrimRight(line, "\r\n")
			default:
				msg.err = fmt.Errorf("read question: %w", err)
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
