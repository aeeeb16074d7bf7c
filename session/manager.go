// Package session owns the single persistent remote shell used by the
// console and turns transport failures into a closed set of error kinds.
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pascal71/sysmanage-go/client"
	"github.com/pascal71/sysmanage-go/config"
	"github.com/pascal71/sysmanage-go/parser"
)

// State of the managed session.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Factory builds a transport for the configured endpoint.
type Factory func(cfg config.Config) client.Interface

// Manager holds at most one live transport to the configured endpoint. It is
// not safe for concurrent use; the console drives it from one goroutine.
type Manager struct {
	cfg       config.Config
	factory   Factory
	logger    *slog.Logger
	onConnect func(config.Endpoint)

	conn  client.Interface
	state State
	id    string
}

// Option configures a Manager.
type Option func(*Manager)

// WithFactory replaces the SSH transport, mostly for tests.
func WithFactory(f Factory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithConnectHook registers fn to run after every successful login.
func WithConnectHook(fn func(config.Endpoint)) Option {
	return func(m *Manager) {
		m.onConnect = fn
	}
}

// NewManager returns a disconnected Manager for cfg.Endpoint.
func NewManager(cfg config.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		factory: NewSSHClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewSSHClient is the default Factory. The prompt terminator is empty because
// the remote prompt is not predictable.
func NewSSHClient(cfg config.Config) client.Interface {
	ep := cfg.Endpoint
	profile, err := client.LookupProfile(ep.DeviceType)
	if err != nil {
		// config.Validate rejects unknown device types before we get here.
		profile, _ = client.LookupProfile("linux")
	}
	return client.NewClient(ep.Addr(), ep.Username, ep.Password,
		client.WithProfile(profile),
		client.WithPromptTerminator(""),
		client.WithTimeouts(cfg.DialTimeout, cfg.ReadTimeout),
		client.WithKnownHosts(cfg.KnownHostsFile, cfg.StrictHostKey),
	)
}

// State reports whether a transport is currently held.
func (m *Manager) State() State {
	return m.state
}

// EnsureConnected logs in when there is no live session. It is a no-op when
// already connected.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	if m.state == Connected {
		return nil
	}

	conn := m.factory(m.cfg)
	if err := conn.Connect(ctx); err != nil {
		conn.Close()
		serr := classify(err)
		m.logger.ErrorContext(ctx, "Login failed", "addr", m.cfg.Endpoint.Addr(), "error", err)
		return serr
	}

	m.conn = conn
	m.state = Connected
	m.id = uuid.NewString()
	m.logger.InfoContext(ctx, "Session established", "session", m.id, "addr", m.cfg.Endpoint.Addr())
	if m.onConnect != nil {
		m.onConnect(m.cfg.Endpoint)
	}
	return nil
}

// Execute sends command verbatim and returns its formatted output. A failed
// command drops the session so the next EnsureConnected logs in again.
func (m *Manager) Execute(ctx context.Context, command string) (string, error) {
	if m.state != Connected {
		if err := m.EnsureConnected(ctx); err != nil {
			return "", err
		}
	}

	raw, err := m.conn.RunCommand(ctx, command)
	if err != nil {
		m.logger.WarnContext(ctx, "Command failed, dropping session", "session", m.id, "command", command, "error", err)
		m.drop()
		return "", classify(err)
	}
	return parser.FormatOutput(raw), nil
}

// Close releases the transport if one is held.
func (m *Manager) Close() {
	m.drop()
}

func (m *Manager) drop() {
	if m.conn != nil {
		m.conn.Close()
	}
	m.conn = nil
	m.state = Disconnected
	m.id = ""
}
