package actions

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pascal71/sysmanage-go/client"
	"github.com/pascal71/sysmanage-go/console"
	"github.com/pascal71/sysmanage-go/mirror"
	"github.com/pascal71/sysmanage-go/session"
)

// ErrQuit is returned by Dispatch when the operator chose to quit.
var ErrQuit = errors.New("quit")

// Remote is the session the remote actions run on.
type Remote interface {
	EnsureConnected(ctx context.Context) error
	Execute(ctx context.Context, command string) (string, error)
}

// Saver mirrors a web page and returns the written path.
type Saver interface {
	Save(ctx context.Context, rawURL string) (string, error)
}

// UI is the interactive surface the loop drives.
type UI interface {
	Choose(ctx context.Context, items []console.MenuItem) (string, error)
	Prompt(ctx context.Context, label string) (string, error)
	Pause(ctx context.Context) error
	Clear()
}

// Dispatcher runs the action behind each menu key.
type Dispatcher struct {
	remote  Remote
	saver   Saver
	ui      UI
	out     *console.Printer
	profile client.Profile
	homeDir string
	now     func() time.Time
	localIP func() (string, error)
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithProfile selects the command syntax of the remote host.
func WithProfile(p client.Profile) Option {
	return func(d *Dispatcher) {
		d.profile = p
	}
}

// WithHomeDir sets the directory listed by KeyListHome.
func WithHomeDir(dir string) Option {
	return func(d *Dispatcher) {
		d.homeDir = dir
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithLocalIP replaces the local address lookup.
func WithLocalIP(fn func() (string, error)) Option {
	return func(d *Dispatcher) {
		d.localIP = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New returns a Dispatcher for the linux profile and /home/shashwat.
func New(remote Remote, saver Saver, ui UI, out *console.Printer, opts ...Option) *Dispatcher {
	profile, _ := client.LookupProfile("linux")
	d := &Dispatcher{
		remote:  remote,
		saver:   saver,
		ui:      ui,
		out:     out,
		profile: profile,
		homeDir: "/home/shashwat",
		now:     time.Now,
		localIP: LocalIP,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Loop shows the menu until the operator quits. It returns nil on quit and
// console.ErrInterrupted on Ctrl+C or cancellation.
func (d *Dispatcher) Loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return console.ErrInterrupted
		}
		choice, err := d.ui.Choose(ctx, MenuItems())
		if err != nil {
			return err
		}
		switch err := d.Dispatch(ctx, choice); {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			return err
		}
		if err := d.ui.Pause(ctx); err != nil {
			return err
		}
		d.ui.Clear()
	}
}

// Dispatch runs the action for the first character of selection. Only ErrQuit
// and interruption are returned; everything else is reported to the operator.
func (d *Dispatcher) Dispatch(ctx context.Context, selection string) error {
	selection = strings.TrimSpace(selection)
	r, _ := utf8.DecodeRuneInString(selection)
	if r == utf8.RuneError {
		d.out.Error("Invalid option.")
		return nil
	}
	key, err := ParseKey(string(r))
	if err != nil {
		d.logger.DebugContext(ctx, "Invalid menu selection", "selection", selection)
		d.out.Error("Invalid option.")
		return nil
	}

	d.logger.InfoContext(ctx, "Action selected", "key", string(key))
	switch key {
	case KeyDateTime:
		d.dateTime()
		return nil
	case KeyLocalIP:
		d.showLocalIP(ctx)
		return nil
	case KeyListHome:
		return d.listHome(ctx)
	case KeyBackup:
		return d.backup(ctx)
	case KeySaveWebPage:
		return d.saveWebPage(ctx)
	case KeyQuit:
		d.out.Success("Quitting...")
		return ErrQuit
	default:
		panic("actions: unhandled key " + string(key))
	}
}

func (d *Dispatcher) dateTime() {
	now := d.now()
	d.out.Success("Today is %s", d.out.Highlight(now.Format("Monday, 02 January 2006")))
	d.out.Success("Current time is %s", d.out.Highlight(now.Format("15:04:05")))
}

func (d *Dispatcher) showLocalIP(ctx context.Context) {
	ip, err := d.localIP()
	if err != nil {
		d.logger.WarnContext(ctx, "Local address lookup failed", "error", err)
		d.out.Error("Cannot create socket, check internet connection!")
		return
	}
	d.out.Success("Local IP Address: %s", d.out.Highlight(ip))
}

func (d *Dispatcher) listHome(ctx context.Context) error {
	if !d.connect(ctx) {
		return interrupted(ctx)
	}
	output, err := d.remote.Execute(ctx, d.profile.ListCommand(d.homeDir))
	if err != nil {
		d.reportSession(err)
		return interrupted(ctx)
	}
	d.out.Success("Remote Server Output:\n%s", output)
	return nil
}

func (d *Dispatcher) backup(ctx context.Context) error {
	path, err := d.ui.Prompt(ctx, "Enter full path of the file:")
	if err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		d.out.Error("A file path is required.")
		return nil
	}

	if !d.connect(ctx) {
		return interrupted(ctx)
	}
	output, err := d.remote.Execute(ctx, d.profile.BackupCommand(path))
	if err != nil {
		d.reportSession(err)
		return interrupted(ctx)
	}
	if output == "" {
		d.out.Success("Command executed!")
	} else {
		d.out.Error("Command executed but following error/output: %s", output)
	}
	return nil
}

func (d *Dispatcher) saveWebPage(ctx context.Context) error {
	rawURL, err := d.ui.Prompt(ctx, "Enter URL to save the web page:")
	if err != nil {
		return err
	}

	path, err := d.saver.Save(ctx, rawURL)
	var (
		vErr *mirror.ValidationError
		nErr *mirror.NetworkError
	)
	switch {
	case err == nil:
		d.out.Success("HTML data saved: %s", path)
	case ctx.Err() != nil:
		return console.ErrInterrupted
	case errors.As(err, &vErr):
		d.out.Error("Invalid URL. i.e https://example.com")
	case errors.As(err, &nErr) && nErr.Connect:
		d.out.Error("Cannot connect to the given URL '%s'.", nErr.URL)
	default:
		d.out.Error("An error occurred while saving the web page: %v", err)
	}
	return nil
}

// connect makes sure a session exists and reports a failure to the operator.
func (d *Dispatcher) connect(ctx context.Context) bool {
	if err := d.remote.EnsureConnected(ctx); err != nil {
		d.reportSession(err)
		return false
	}
	return true
}

func (d *Dispatcher) reportSession(err error) {
	var serr *session.Error
	if errors.As(err, &serr) {
		d.out.Error("%s", serr.Kind.Message())
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	d.out.Error("%v", err)
}

// interrupted returns console.ErrInterrupted once ctx is done, nil otherwise.
func interrupted(ctx context.Context) error {
	if ctx.Err() != nil {
		return console.ErrInterrupted
	}
	return nil
}

// LocalIP returns the address of the interface that routes to the internet.
// UDP connect sends no packets.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", errors.New("unexpected local address type")
	}
	return addr.IP.String(), nil
}
