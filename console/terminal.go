package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the operator presses Ctrl+C, stdin closes
// or the context is cancelled.
var ErrInterrupted = errors.New("interrupted")

// PauseMessage is shown after every action.
const PauseMessage = "Press any key to continue..."

const ctrlC = 3

// Terminal drives the menu, prompts and pause. On a TTY it runs bubbletea
// programs; otherwise it falls back to reading whole lines.
type Terminal struct {
	in      io.Reader
	out     io.Writer
	printer *Printer
	fd      int
	tty     bool

	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewTerminal returns a Terminal reading from in and drawing on out.
func NewTerminal(in io.Reader, out io.Writer, p *Printer) *Terminal {
	t := &Terminal{in: in, out: out, printer: p, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.tty = true
	}
	return t
}

// Interactive reports whether stdin is a terminal.
func (t *Terminal) Interactive() bool {
	return t.tty
}

// Choose shows items and returns the selected option's text. In line mode the
// typed line is returned as is.
func (t *Terminal) Choose(ctx context.Context, items []MenuItem) (string, error) {
	if !t.tty {
		t.printer.Println("? " + MenuTitle)
		for _, item := range items {
			t.printer.Println("  " + item.String())
		}
		fmt.Fprint(t.out, "> ")
		return t.readLine(ctx)
	}

	final, err := t.run(ctx, newMenuModel(items))
	if err != nil {
		return "", err
	}
	m := final.(menuModel)
	if m.interrupted {
		return "", ErrInterrupted
	}
	return m.choice, nil
}

// Prompt asks for one line of free text after a "[+]" marker.
func (t *Terminal) Prompt(ctx context.Context, label string) (string, error) {
	label = t.printer.render(successStyle, "[+]") + " " + label
	if !t.tty {
		fmt.Fprint(t.out, label+" ")
		return t.readLine(ctx)
	}

	final, err := t.run(ctx, newPromptModel(label))
	if err != nil {
		return "", err
	}
	m := final.(promptModel)
	if m.interrupted {
		return "", ErrInterrupted
	}
	return m.Value(), nil
}

// Pause waits for a key on a TTY, or for a line otherwise.
func (t *Terminal) Pause(ctx context.Context) error {
	fmt.Fprintf(t.out, "%s %s", t.printer.render(errorStyle, "[!]"), PauseMessage)
	defer fmt.Fprintln(t.out)

	if !t.tty {
		_, err := t.readLine(ctx)
		return err
	}

	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(t.fd, state)

	done := make(chan lineResult, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := t.in.Read(buf)
		done <- lineResult{text: string(buf), err: err}
	}()

	select {
	case <-ctx.Done():
		return ErrInterrupted
	case r := <-done:
		if r.err != nil || r.text[0] == ctrlC {
			return ErrInterrupted
		}
		return nil
	}
}

// Clear wipes the screen.
func (t *Terminal) Clear() {
	t.printer.Clear()
}

func (t *Terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := p.Run()
	if ctx.Err() != nil {
		return nil, ErrInterrupted
	}
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return final, nil
}

// readLine returns the next input line. A single reader goroutine feeds every
// call so a cancelled read never loses input.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if t.lines == nil {
		t.lines = make(chan lineResult)
		go t.scan()
	}
	select {
	case <-ctx.Done():
		return "", ErrInterrupted
	case r, ok := <-t.lines:
		if !ok || r.err != nil {
			return "", ErrInterrupted
		}
		return r.text, nil
	}
}

func (t *Terminal) scan() {
	defer close(t.lines)
	sc := bufio.NewScanner(t.in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		t.lines <- lineResult{text: strings.TrimRight(sc.Text(), "\r")}
	}
	if err := sc.Err(); err != nil {
		t.lines <- lineResult{err: err}
	}
}
