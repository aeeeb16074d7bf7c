// Package client provides an SSH interface to a persistent interactive shell
// on a remote host.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultReadTimeout = 10 * time.Second
	defaultQuiet       = 300 * time.Millisecond

	ptyWidth  = 120
	ptyHeight = 40
)

// Client drives one interactive PTY shell on a remote host.
type Client struct {
	Addr     string // host:port of the remote host
	User     string // SSH username
	Password string // SSH password

	profile          Profile
	promptTerminator string
	dialTimeout      time.Duration
	readTimeout      time.Duration
	quiet            time.Duration
	knownHosts       string
	strictHostKey    bool
	logger           *slog.Logger

	conn      *ssh.Client
	session   *ssh.Session
	agentConn net.Conn
	out       *stream
	sh        *shell
}

// Option configures a Client.
type Option func(*Client)

// WithProfile selects the device profile used for the PTY and commands.
func WithProfile(p Profile) Option {
	return func(c *Client) {
		c.profile = p
	}
}

// WithPromptTerminator sets the character the discovered prompt must end
// with. The empty string accepts any prompt.
func WithPromptTerminator(terminator string) Option {
	return func(c *Client) {
		c.promptTerminator = terminator
	}
}

// WithTimeouts sets the TCP/SSH handshake timeout and the per-command read
// timeout. Non-positive values keep the defaults.
func WithTimeouts(dial, read time.Duration) Option {
	return func(c *Client) {
		if dial > 0 {
			c.dialTimeout = dial
		}
		if read > 0 {
			c.readTimeout = read
		}
	}
}

// WithQuietPeriod sets how long the shell must stay silent before login
// output counts as complete.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.quiet = d
		}
	}
}

// WithKnownHosts verifies host keys against path when strict is true.
func WithKnownHosts(path string, strict bool) Option {
	return func(c *Client) {
		c.knownHosts = path
		c.strictHostKey = strict
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a new initialized Client instance.
func NewClient(addr, user, password string, opts ...Option) *Client {
	c := &Client{
		Addr:        addr,
		User:        user,
		Password:    password,
		profile:     profiles["linux"],
		dialTimeout: defaultDialTimeout,
		readTimeout: defaultReadTimeout,
		quiet:       defaultQuiet,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the host, logs in, starts the PTY shell and records the base
// prompt used to detect the end of each command's output.
func (c *Client) Connect(ctx context.Context) error {
	cfg, err := c.clientConfig()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	c.logger.InfoContext(ctx, "Connecting", "addr", c.Addr, "user", c.User, "device_type", c.profile.Name)
	conn, err := c.dial(ctx, cfg)
	if err != nil {
		c.Close()
		return err
	}
	c.conn = conn
	c.logger.DebugContext(ctx, "SSH connection established", "addr", c.Addr)

	if err := c.startShell(); err != nil {
		c.Close()
		return err
	}

	// Login banner and first prompt.
	if _, err := c.sh.readSettled(ctx, c.readTimeout); err != nil {
		c.Close()
		return err
	}
	if err := c.sh.setBasePrompt(ctx, c.promptTerminator, c.readTimeout); err != nil {
		c.Close()
		return err
	}
	c.logger.DebugContext(ctx, "Base prompt set", "prompt", c.sh.prompt)
	return nil
}

// RunCommand sends a command to the shell and returns its output.
func (c *Client) RunCommand(ctx context.Context, command string) (string, error) {
	if c.sh == nil {
		return "", fmt.Errorf("%w: not connected", ErrConnection)
	}
	c.logger.DebugContext(ctx, "Sending command", "command", command)
	out, err := c.sh.run(ctx, command, c.readTimeout)
	if err != nil {
		c.logger.WarnContext(ctx, "Command failed", "command", command, "error", err)
		return "", err
	}
	c.logger.DebugContext(ctx, "Command output", "command", command, "bytes", len(out))
	return out, nil
}

// Close terminates the SSH session and connection.
func (c *Client) Close() {
	if c.out != nil {
		c.out.stop()
	}
	if c.session != nil {
		c.session.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.agentConn != nil {
		c.agentConn.Close()
	}
	c.session, c.conn, c.agentConn, c.out, c.sh = nil, nil, nil, nil, nil
}

func (c *Client) startShell() error {
	sess, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("%w: SSH session failed: %v", ErrConnection, err)
	}
	c.session = sess

	stdin, err := sess.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin: %v", ErrConnection, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout: %v", ErrConnection, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	width, height := ptySize()
	if err := sess.RequestPty(c.profile.Term, height, width, modes); err != nil {
		return fmt.Errorf("%w: PTY request failed: %v", ErrConnection, err)
	}
	if err := sess.Shell(); err != nil {
		return fmt.Errorf("%w: failed to start shell: %v", ErrConnection, err)
	}

	c.out = newStream(stdout)
	c.sh = &shell{
		stdin:   stdin,
		out:     c.out,
		newline: c.profile.Newline,
		quiet:   c.quiet,
	}
	return nil
}

func (c *Client) dial(ctx context.Context, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	raw, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: SSH dial failed: %v", ErrConnection, err)
	}

	// Bound the key exchange and authentication.
	_ = raw.SetDeadline(time.Now().Add(c.dialTimeout))
	cc, chans, reqs, err := ssh.NewClientConn(raw, c.Addr, cfg)
	if err != nil {
		raw.Close()
		return nil, classifyHandshake(err)
	}
	_ = raw.SetDeadline(time.Time{})
	return ssh.NewClient(cc, chans, reqs), nil
}

// classifyHandshake maps an ssh.NewClientConn failure to a transport error.
// x/crypto/ssh reports exhausted auth methods only through the message text.
func classifyHandshake(err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: handshake timed out: %v", ErrConnection, err)
	}
	return fmt.Errorf("%w: handshake failed: %v", ErrConnection, err)
}

func (c *Client) clientConfig() (*ssh.ClientConfig, error) {
	hostKeyCB, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	auths := []ssh.AuthMethod{
		ssh.Password(c.Password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = c.Password
			}
			return answers, nil
		}),
	}

	// Try SSH agent if available
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			c.agentConn = conn
			auths = append(auths, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         c.dialTimeout,
	}, nil
}

func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if !c.strictHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := c.knownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("known_hosts file not found at %s and strict host key checking is enabled", path)
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	return cb, nil
}

// ptySize mirrors the local terminal when there is one.
func ptySize() (width, height int) {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return ptyWidth, ptyHeight
}
