package crawler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Confirmer decides whether the crawl may continue past its page limit.
type Confirmer interface {
	Confirm(ctx context.Context, visited, maxPages int) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, visited, maxPages int) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, visited, maxPages int) (bool, error) {
	return f(ctx, visited, maxPages)
}

// AutoConfirmer answers every prompt with its own value.
type AutoConfirmer bool

func (a AutoConfirmer) Confirm(context.Context, int, int) (bool, error) {
	return bool(a), nil
}

// PromptConfirmer asks an operator on out and reads a y/n answer from in.
// Anything other than "y" or "yes" is a no, including end of input.
// A single goroutine owns in, so Confirm may be called again after an
// earlier call was canceled.
type PromptConfirmer struct {
	in      *bufio.Reader
	out     io.Writer
	start   sync.Once
	answers chan answer
}

type answer struct {
	line string
	err  error
}

// NewPromptConfirmer returns a confirmer prompting on out and reading from in.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{
		in:      bufio.NewReader(in),
		out:     out,
		answers: make(chan answer),
	}
}

// readLines delivers one answer per line until in fails, then closes answers.
func (p *PromptConfirmer) readLines() {
	defer close(p.answers)
	for {
		line, err := p.in.ReadString('\n')
		if line != "" || err == nil {
			p.answers <- answer{line: line}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.answers <- answer{err: err}
			}
			return
		}
	}
}

func (p *PromptConfirmer) Confirm(ctx context.Context, visited, maxPages int) (bool, error) {
	p.start.Do(func() { go p.readLines() })

	if _, err := fmt.Fprintf(p.out, "Visited %d pages, reaching the limit of %d. Continue crawling? (y/n): ", visited, maxPages); err != nil {
		return false, fmt.Errorf("write prompt: %w", err)
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a, ok := <-p.answers:
		if !ok {
			return false, nil
		}
		if a.err != nil {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
