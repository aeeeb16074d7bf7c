package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/pascal71/sysmanage-go/client"
)

// Kind classifies a remote session failure.
type Kind int

const (
	AuthenticationFailed Kind = iota + 1
	PromptTimeout
	ConnectionTimeout
)

func (k Kind) String() string {
	switch k {
	case AuthenticationFailed:
		return "authentication failed"
	case PromptTimeout:
		return "prompt timeout"
	case ConnectionTimeout:
		return "connection timeout"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Message is the operator-facing explanation for the failure.
func (k Kind) Message() string {
	switch k {
	case AuthenticationFailed:
		return "Authentication Failed. Make sure credentials are correct."
	case PromptTimeout:
		return "Read Timed Out. Make sure the system has the default terminal."
	case ConnectionTimeout:
		return "Timed Out. Make sure the address & port is correct."
	default:
		panic(fmt.Sprintf("session: unhandled kind %d", int(k)))
	}
}

// Error is returned by EnsureConnected and Execute. Callers switch on Kind;
// the wrapped cause is kept for logs.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// classify turns a transport error into an *Error. Context errors are passed
// through untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, client.ErrAuthentication):
		return &Error{Kind: AuthenticationFailed, err: err}
	case errors.Is(err, client.ErrReadTimeout):
		return &Error{Kind: PromptTimeout, err: err}
	default:
		return &Error{Kind: ConnectionTimeout, err: err}
	}
}
