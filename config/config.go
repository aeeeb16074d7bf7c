// Package config resolves the single remote endpoint and the console's
// runtime settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pascal71/sysmanage-go/client"
)

// PasswordEnv names the environment variable holding the remote password.
const PasswordEnv = "PASSWORD"

// Endpoint identifies the remote host and the account used on it.
type Endpoint struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DeviceType string
}

// Addr returns host:port.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Config is everything the console needs at startup.
type Config struct {
	Endpoint       Endpoint
	HomeDir        string
	MirrorDir      string
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	KnownHostsFile string
	StrictHostKey  bool
	LogFile        string
	LogLevel       string
}

// Default returns the built-in deployment settings.
func Default() Config {
	return Config{
		Endpoint: Endpoint{
			Host:       "172.16.29.130",
			Port:       22,
			Username:   "shashwat",
			DeviceType: "linux",
		},
		HomeDir:     "/home/shashwat",
		MirrorDir:   "Webpages_Backup",
		DialTimeout: 10 * time.Second,
		ReadTimeout: 10 * time.Second,
		LogFile:     "sysmanage.log",
		LogLevel:    "info",
	}
}

// Error reports a missing or invalid setting. It is fatal at startup.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// ErrMissingSecret is matched by errors.Is for an unset or empty password.
var ErrMissingSecret = errors.New("missing secret")

func (e *Error) Is(target error) bool {
	return target == ErrMissingSecret && e.Field == PasswordEnv
}

// fileConfig is the on-disk layout shared by the TOML and YAML loaders.
type fileConfig struct {
	Host          string  `toml:"host" yaml:"host"`
	Port          int     `toml:"port" yaml:"port"`
	Username      string  `toml:"username" yaml:"username"`
	DeviceType    string  `toml:"device_type" yaml:"device_type"`
	HomeDir       string  `toml:"home_dir" yaml:"home_dir"`
	MirrorDir     string  `toml:"mirror_dir" yaml:"mirror_dir"`
	DialTimeout   string  `toml:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout   string  `toml:"read_timeout" yaml:"read_timeout"`
	KnownHosts    string  `toml:"known_hosts" yaml:"known_hosts"`
	StrictHostKey *bool   `toml:"strict_host_key" yaml:"strict_host_key"`
	LogFile       *string `toml:"log_file" yaml:"log_file"`
	LogLevel      string  `toml:"log_level" yaml:"log_level"`
}

// LoadFile overlays the settings found in path onto cfg. The format follows
// the extension: .toml, .yaml or .yml.
func LoadFile(path string, cfg Config) (Config, error) {
	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("load config %s: unsupported format %q", path, ext)
	}
	return raw.apply(cfg)
}

func (f fileConfig) apply(cfg Config) (Config, error) {
	if f.Host != "" {
		cfg.Endpoint.Host = strings.TrimSpace(f.Host)
	}
	if f.Port != 0 {
		cfg.Endpoint.Port = f.Port
	}
	if f.Username != "" {
		cfg.Endpoint.Username = strings.TrimSpace(f.Username)
	}
	if f.DeviceType != "" {
		cfg.Endpoint.DeviceType = strings.TrimSpace(f.DeviceType)
	}
	if f.HomeDir != "" {
		cfg.HomeDir = f.HomeDir
	}
	if f.MirrorDir != "" {
		cfg.MirrorDir = f.MirrorDir
	}
	if f.DialTimeout != "" {
		d, err := time.ParseDuration(f.DialTimeout)
		if err != nil {
			return Config{}, &Error{Field: "dial_timeout", Reason: fmt.Sprintf("invalid dial_timeout %q: %v", f.DialTimeout, err)}
		}
		cfg.DialTimeout = d
	}
	if f.ReadTimeout != "" {
		d, err := time.ParseDuration(f.ReadTimeout)
		if err != nil {
			return Config{}, &Error{Field: "read_timeout", Reason: fmt.Sprintf("invalid read_timeout %q: %v", f.ReadTimeout, err)}
		}
		cfg.ReadTimeout = d
	}
	if f.KnownHosts != "" {
		cfg.KnownHostsFile = expandHome(f.KnownHosts)
	}
	if f.StrictHostKey != nil {
		cfg.StrictHostKey = *f.StrictHostKey
	}
	if f.LogFile != nil {
		cfg.LogFile = *f.LogFile
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ResolvePassword reads the password from lookup, normally os.LookupEnv.
func ResolvePassword(lookup func(string) (string, bool)) (string, error) {
	v, ok := lookup(PasswordEnv)
	if !ok {
		return "", &Error{Field: PasswordEnv, Reason: fmt.Sprintf("Environment Variable %s doesn't exist!", PasswordEnv)}
	}
	if v == "" {
		return "", &Error{Field: PasswordEnv, Reason: fmt.Sprintf("Environment Variable %s is empty!", PasswordEnv)}
	}
	return v, nil
}

// Validate checks cfg for values that can never work.
func Validate(cfg Config) error {
	ep := cfg.Endpoint
	if strings.TrimSpace(ep.Host) == "" {
		return &Error{Field: "host", Reason: "host must not be empty"}
	}
	if ep.Port < 1 || ep.Port > 65535 {
		return &Error{Field: "port", Reason: fmt.Sprintf("port %d out of range", ep.Port)}
	}
	if strings.TrimSpace(ep.Username) == "" {
		return &Error{Field: "username", Reason: "username must not be empty"}
	}
	if _, err := client.LookupProfile(ep.DeviceType); err != nil {
		return &Error{Field: "device_type", Reason: err.Error()}
	}
	if cfg.DialTimeout <= 0 || cfg.ReadTimeout <= 0 {
		return &Error{Field: "timeout", Reason: "timeouts must be positive"}
	}
	if strings.TrimSpace(cfg.HomeDir) == "" {
		return &Error{Field: "home_dir", Reason: "home_dir must not be empty"}
	}
	if strings.TrimSpace(cfg.MirrorDir) == "" {
		return &Error{Field: "mirror_dir", Reason: "mirror_dir must not be empty"}
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
