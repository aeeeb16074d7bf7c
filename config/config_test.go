package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "172.16.29.130:22", cfg.Endpoint.Addr())
	assert.Equal(t, "shashwat", cfg.Endpoint.Username)
	assert.Equal(t, "linux", cfg.Endpoint.DeviceType)
	assert.Equal(t, "/home/shashwat", cfg.HomeDir)
	assert.Equal(t, "Webpages_Backup", cfg.MirrorDir)
	assert.NoError(t, Validate(cfg))
}

func TestLoadFileTOML(t *testing.T) {
	path := writeFile(t, "sysmanage.toml", `
host = "10.0.0.5"
port = 2222
username = "ops"
read_timeout = "3s"
strict_host_key = true
known_hosts = "/etc/ssh/known_hosts"
log_file = ""
`)
	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:2222", cfg.Endpoint.Addr())
	assert.Equal(t, "ops", cfg.Endpoint.Username)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.True(t, cfg.StrictHostKey)
	assert.Equal(t, "/etc/ssh/known_hosts", cfg.KnownHostsFile)
	assert.Equal(t, "", cfg.LogFile)
	// untouched keys keep their defaults
	assert.Equal(t, "/home/shashwat", cfg.HomeDir)
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "sysmanage.yaml", `
host: box.lan
home_dir: /home/ops
mirror_dir: pages
device_type: unix
`)
	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)
	assert.Equal(t, "box.lan", cfg.Endpoint.Host)
	assert.Equal(t, 22, cfg.Endpoint.Port)
	assert.Equal(t, "/home/ops", cfg.HomeDir)
	assert.Equal(t, "pages", cfg.MirrorDir)
	assert.Equal(t, "unix", cfg.Endpoint.DeviceType)
	assert.Equal(t, "sysmanage.log", cfg.LogFile)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(writeFile(t, "c.json", "{}"), Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	_, err = LoadFile(writeFile(t, "c.toml", `read_timeout = "soon"`), Default())
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "read_timeout", cfgErr.Field)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Default())
	require.Error(t, err)
}

func TestResolvePassword(t *testing.T) {
	lookup := func(env map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}
	}

	pw, err := ResolvePassword(lookup(map[string]string{"PASSWORD": "hunter2"}))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	_, err = ResolvePassword(lookup(map[string]string{}))
	require.ErrorIs(t, err, ErrMissingSecret)
	assert.Equal(t, "Environment Variable PASSWORD doesn't exist!", err.Error())

	_, err = ResolvePassword(lookup(map[string]string{"PASSWORD": ""}))
	require.ErrorIs(t, err, ErrMissingSecret)
	assert.Equal(t, "Environment Variable PASSWORD is empty!", err.Error())
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("SYSMANAGE_TEST_KEEP", "original")
	path := writeFile(t, ".env", "SYSMANAGE_TEST_SECRET=from-file\nSYSMANAGE_TEST_KEEP=overridden\n")
	t.Cleanup(func() { os.Unsetenv("SYSMANAGE_TEST_SECRET") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SYSMANAGE_TEST_SECRET"))
	assert.Equal(t, "original", os.Getenv("SYSMANAGE_TEST_KEEP"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
	require.NoError(t, LoadDotEnv(""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"empty host", func(c *Config) { c.Endpoint.Host = " " }, "host"},
		{"port zero", func(c *Config) { c.Endpoint.Port = 0 }, "port"},
		{"port high", func(c *Config) { c.Endpoint.Port = 70000 }, "port"},
		{"empty user", func(c *Config) { c.Endpoint.Username = "" }, "username"},
		{"unknown device", func(c *Config) { c.Endpoint.DeviceType = "cisco_ios" }, "device_type"},
		{"zero timeout", func(c *Config) { c.ReadTimeout = 0 }, "timeout"},
		{"empty mirror dir", func(c *Config) { c.MirrorDir = "" }, "mirror_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(&cfg)
			err := Validate(cfg)
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.False(t, errors.Is(err, ErrMissingSecret))
		})
	}
}
