package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pascal71/sysmanage-go/parser"
)

// stream pumps a PTY reader into a channel so reads can be bounded by a
// timer and a context.
type stream struct {
	chunks chan []byte
	done   chan struct{}
	err    error // valid once chunks is closed
}

func newStream(r io.Reader) *stream {
	s := &stream{
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go s.pump(r)
	return s
}

func (s *stream) pump(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.err = err
			return
		}
	}
}

func (s *stream) stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// closedErr describes why the stream ended. Only call after chunks closed.
func (s *stream) closedErr() error {
	if s.err == nil || s.err == io.EOF {
		return fmt.Errorf("%w: remote shell closed", ErrConnection)
	}
	return fmt.Errorf("%w: %v", ErrConnection, s.err)
}

// shell is an interactive remote shell driven by prompt detection.
type shell struct {
	stdin   io.Writer
	out     *stream
	newline string
	// quiet is how long output must pause before it counts as settled.
	quiet  time.Duration
	prompt string
}

// write sends line followed by the profile newline.
func (sh *shell) write(line string) error {
	if _, err := io.WriteString(sh.stdin, line+sh.newline); err != nil {
		return fmt.Errorf("%w: write to remote shell: %v", ErrConnection, err)
	}
	return nil
}

// drain discards output that arrived since the last read.
func (sh *shell) drain() {
	for {
		select {
		case _, ok := <-sh.out.chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// readSettled collects output until it has a non-blank line and then stays
// quiet for sh.quiet.
func (sh *shell) readSettled(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var acc strings.Builder
	var idle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return parser.CleanTerminal(acc.String()), ctx.Err()
		case <-deadline.C:
			return parser.CleanTerminal(acc.String()), fmt.Errorf("%w after %s", ErrReadTimeout, timeout)
		case <-idle:
			return parser.CleanTerminal(acc.String()), nil
		case chunk, ok := <-sh.out.chunks:
			if !ok {
				return parser.CleanTerminal(acc.String()), sh.out.closedErr()
			}
			acc.Write(chunk)
			if parser.LastLine(parser.CleanTerminal(acc.String())) != "" {
				idle = time.After(sh.quiet)
			}
		}
	}
}

// readUntil collects output until match accepts the cleaned text.
func (sh *shell) readUntil(ctx context.Context, timeout time.Duration, match func(string) bool) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var acc strings.Builder
	for {
		select {
		case <-ctx.Done():
			return parser.CleanTerminal(acc.String()), ctx.Err()
		case <-deadline.C:
			return parser.CleanTerminal(acc.String()), fmt.Errorf("%w after %s", ErrReadTimeout, timeout)
		case chunk, ok := <-sh.out.chunks:
			if !ok {
				return parser.CleanTerminal(acc.String()), sh.out.closedErr()
			}
			acc.Write(chunk)
			if text := parser.CleanTerminal(acc.String()); match(text) {
				return text, nil
			}
		}
	}
}

// findPrompt sends an empty line and returns the last line printed back.
func (sh *shell) findPrompt(ctx context.Context, timeout time.Duration) (string, error) {
	sh.drain()
	if err := sh.write(""); err != nil {
		return "", err
	}
	text, err := sh.readSettled(ctx, timeout)
	if err != nil {
		return "", err
	}
	prompt := parser.LastLine(text)
	if prompt == "" {
		return "", fmt.Errorf("%w: no prompt received", ErrReadTimeout)
	}
	return prompt, nil
}

// setBasePrompt discovers the prompt and strips terminator from it. An empty
// terminator accepts whatever prompt the host prints.
func (sh *shell) setBasePrompt(ctx context.Context, terminator string, timeout time.Duration) error {
	prompt, err := sh.findPrompt(ctx, timeout)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(prompt, terminator) {
		return fmt.Errorf("%w: prompt %q does not end with %q", ErrReadTimeout, prompt, terminator)
	}
	base := strings.TrimSpace(strings.TrimSuffix(prompt, terminator))
	if base == "" {
		return fmt.Errorf("%w: empty base prompt", ErrReadTimeout)
	}
	sh.prompt = base
	return nil
}

// run sends command and returns what the shell printed between the echoed
// command and the next prompt.
func (sh *shell) run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	sh.drain()
	if err := sh.write(command); err != nil {
		return "", err
	}
	text, err := sh.readUntil(ctx, timeout, func(text string) bool {
		i := strings.LastIndexByte(text, '\n')
		return i >= 0 && strings.Contains(text[i+1:], sh.prompt)
	})
	if err != nil {
		return "", err
	}
	return parser.StripEcho(text, command, sh.prompt), nil
}
