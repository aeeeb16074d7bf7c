package client

import (
	"context"
)

// Interface defines the minimal remote shell contract the session manager
// drives. Fakes implement it in tests.
type Interface interface {
	Connect(ctx context.Context) error
	RunCommand(ctx context.Context, command string) (string, error)
	Close()
}

var _ Interface = (*Client)(nil)
