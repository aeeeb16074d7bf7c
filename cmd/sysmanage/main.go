// Package main is the entrypoint for the sysmanage console.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pascal71/sysmanage-go/actions"
	"github.com/pascal71/sysmanage-go/client"
	"github.com/pascal71/sysmanage-go/config"
	"github.com/pascal71/sysmanage-go/console"
	"github.com/pascal71/sysmanage-go/logging"
	"github.com/pascal71/sysmanage-go/mirror"
	"github.com/pascal71/sysmanage-go/session"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(exitCode(newRootCmd().Execute()))
}

// exitCode is 0 for a normal run and for configuration errors, which have
// already been reported to the operator.
func exitCode(err error) int {
	var cfgErr *config.Error
	switch {
	case err == nil, errors.As(err, &cfgErr):
		return 0
	default:
		return 1
	}
}

type flags struct {
	configFile    string
	envFile       string
	host          string
	port          int
	user          string
	deviceType    string
	home          string
	mirrorDir     string
	readTimeout   time.Duration
	dialTimeout   time.Duration
	knownHosts    string
	strictHostKey bool
	logFile       string
	logLevel      string
	noColor       bool
}

func newRootCmd() *cobra.Command {
	var f flags
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "sysmanage",
		Short: "Interactive console for managing one remote host over SSH",
		Long: `sysmanage shows a menu of administrative actions: local date, time and
IP address, a listing of the remote home directory, a .old backup of a
remote file and a local copy of a web page.

The SSH password is read from the PASSWORD environment variable, which may
be set in a .env file.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configFile, "config", "c", "", "Config file (.toml, .yaml or .yml)")
	fl.StringVar(&f.envFile, "env-file", ".env", "File with KEY=VALUE pairs loaded into the environment")
	fl.StringVar(&f.host, "host", def.Endpoint.Host, "Remote host")
	fl.IntVarP(&f.port, "port", "p", def.Endpoint.Port, "Remote SSH port")
	fl.StringVarP(&f.user, "user", "u", def.Endpoint.Username, "Remote username")
	fl.StringVar(&f.deviceType, "device-type", def.Endpoint.DeviceType, fmt.Sprintf("Remote device type %v", client.DeviceTypes()))
	fl.StringVar(&f.home, "home", def.HomeDir, "Remote directory shown by the listing action")
	fl.StringVar(&f.mirrorDir, "mirror-dir", def.MirrorDir, "Local directory for saved web pages")
	fl.DurationVar(&f.readTimeout, "read-timeout", def.ReadTimeout, "Time to wait for the remote prompt")
	fl.DurationVar(&f.dialTimeout, "dial-timeout", def.DialTimeout, "Time to wait for the TCP connection and SSH handshake")
	fl.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	fl.BoolVar(&f.strictHostKey, "strict-host-key", false, "Verify the host key against known_hosts")
	fl.StringVar(&f.logFile, "log-file", def.LogFile, `Log file ("" disables logging)`)
	fl.StringVar(&f.logLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error, off)")
	fl.BoolVar(&f.noColor, "no-color", false, "Disable colored output")

	return cmd
}

// loadConfig resolves defaults, the optional file, changed flags and the
// password, in that order.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(f.configFile, cfg); err != nil {
			return config.Config{}, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Endpoint.Host = f.host
	}
	if changed("port") {
		cfg.Endpoint.Port = f.port
	}
	if changed("user") {
		cfg.Endpoint.Username = f.user
	}
	if changed("device-type") {
		cfg.Endpoint.DeviceType = f.deviceType
	}
	if changed("home") {
		cfg.HomeDir = f.home
	}
	if changed("mirror-dir") {
		cfg.MirrorDir = f.mirrorDir
	}
	if changed("read-timeout") {
		cfg.ReadTimeout = f.readTimeout
	}
	if changed("dial-timeout") {
		cfg.DialTimeout = f.dialTimeout
	}
	if changed("known-hosts") {
		cfg.KnownHostsFile = f.knownHosts
	}
	if changed("strict-host-key") {
		cfg.StrictHostKey = f.strictHostKey
	}
	if changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	} else {
		cfg.LogLevel = logging.LevelFromEnv(cfg.LogLevel)
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	password, err := config.ResolvePassword(os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Endpoint.Password = password
	return cfg, nil
}

func run(cmd *cobra.Command, f *flags) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	out := cmd.OutOrStdout()
	printer := console.NewPrinter(out)
	printer.SetColor(!f.noColor)

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		printer.Error("%s", err)
		return err
	}

	logger, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		printer.Error("%s", err)
		return err
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Starting sysmanage", "version", version, "addr", cfg.Endpoint.Addr(), "device_type", cfg.Endpoint.DeviceType)

	mgr := session.NewManager(cfg,
		session.WithLogger(logger.Logger),
		session.WithConnectHook(func(ep config.Endpoint) {
			printer.Success("Successfully connected to %s.", printer.Highlight(ep.Host))
		}),
	)
	defer mgr.Close()

	profile, err := client.LookupProfile(cfg.Endpoint.DeviceType)
	if err != nil {
		return err
	}

	ui := console.NewTerminal(cmd.InOrStdin(), out, printer)
	d := actions.New(mgr,
		mirror.New(cfg.MirrorDir, mirror.WithLogger(logger.Logger)),
		ui, printer,
		actions.WithProfile(profile),
		actions.WithHomeDir(cfg.HomeDir),
		actions.WithLogger(logger.Logger),
	)

	err = d.Loop(ctx)
	if errors.Is(err, console.ErrInterrupted) {
		fmt.Fprintln(out)
		printer.Notice("KeyboardInterrupt detected!")
		logger.InfoContext(ctx, "Interrupted")
		return nil
	}
	if err != nil {
		printer.Error("%s", err)
		return err
	}
	logger.InfoContext(ctx, "Quit")
	return nil
}
