package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pascal71/sysmanage-go/config"
	"github.com/pascal71/sysmanage-go/logging"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{
		"--env-file", filepath.Join(t.TempDir(), "absent.env"),
		"--log-file", "",
		"--no-color",
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func unsetPassword(t *testing.T) {
	t.Helper()
	t.Setenv(config.PasswordEnv, "")
	require.NoError(t, os.Unsetenv(config.PasswordEnv))
}

func TestMissingPasswordStopsBeforeMenu(t *testing.T) {
	unsetPassword(t)

	out, err := execute(t, "1\n")
	require.ErrorIs(t, err, config.ErrMissingSecret)
	assert.Zero(t, exitCode(err))
	assert.Equal(t, "[-] Environment Variable PASSWORD doesn't exist!\n", out)
	assert.NotContains(t, out, "Select an Option")
}

func TestEmptyPassword(t *testing.T) {
	t.Setenv(config.PasswordEnv, "")

	out, err := execute(t, "")
	require.ErrorIs(t, err, config.ErrMissingSecret)
	assert.Zero(t, exitCode(err))
	assert.Equal(t, "[-] Environment Variable PASSWORD is empty!\n", out)
}

func TestPasswordFromEnvFile(t *testing.T) {
	unsetPassword(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PASSWORD=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(config.PasswordEnv) })

	out, err := execute(t, "Q\n", "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, "[+] Quitting...")
}

func TestInvalidFlagValue(t *testing.T) {
	t.Setenv(config.PasswordEnv, "secret")

	out, err := execute(t, "", "--device-type", "cisco_ios")
	require.Error(t, err)
	assert.Contains(t, out, `[-] unsupported device type "cisco_ios"`)
}

func TestExitCode(t *testing.T) {
	assert.Zero(t, exitCode(nil))
	assert.Zero(t, exitCode(&config.Error{Field: "port", Reason: "port 0 out of range"}))
	assert.Equal(t, 1, exitCode(errors.New("unknown log level \"loud\"")))

	t.Setenv(config.PasswordEnv, "secret")
	_, err := execute(t, "", "--log-level", "loud")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}

func TestQuitAndInterrupt(t *testing.T) {
	t.Setenv(config.PasswordEnv, "secret")

	out, err := execute(t, "1\n\nq\n")
	require.NoError(t, err)
	assert.Contains(t, out, "? Please Select an Option To Continue:")
	assert.Contains(t, out, "[+] Today is ")
	assert.Contains(t, out, "[!] Press any key to continue...")
	assert.True(t, strings.HasSuffix(out, "[+] Quitting...\n"))

	out, err = execute(t, "7\n")
	require.NoError(t, err)
	assert.Contains(t, out, "[-] Invalid option.")
	assert.Contains(t, out, "[!] KeyboardInterrupt detected!")
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv(config.PasswordEnv, "secret")
	t.Setenv(logging.EnvLogLevel, "debug")
	file := filepath.Join(t.TempDir(), "sysmanage.yaml")
	require.NoError(t, os.WriteFile(file, []byte("host: from-file\nport: 2200\nread_timeout: 4s\n"), 0o600))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", file,
		"--env-file", "",
		"--port", "2222",
	}))
	f := flagsOf(t, cmd)

	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, "from-file:2222", cfg.Endpoint.Addr())
	assert.Equal(t, 4*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "shashwat", cfg.Endpoint.Username)
	assert.Equal(t, "secret", cfg.Endpoint.Password)
	assert.Equal(t, "debug", cfg.LogLevel)
}

// flagsOf rebuilds the flag values parsed into cmd.
func flagsOf(t *testing.T, cmd *cobra.Command) *flags {
	t.Helper()
	fl := cmd.Flags()
	var f flags
	var err error
	f.configFile, err = fl.GetString("config")
	require.NoError(t, err)
	f.envFile, _ = fl.GetString("env-file")
	f.host, _ = fl.GetString("host")
	f.port, _ = fl.GetInt("port")
	f.user, _ = fl.GetString("user")
	f.deviceType, _ = fl.GetString("device-type")
	f.home, _ = fl.GetString("home")
	f.mirrorDir, _ = fl.GetString("mirror-dir")
	f.readTimeout, _ = fl.GetDuration("read-timeout")
	f.dialTimeout, _ = fl.GetDuration("dial-timeout")
	f.knownHosts, _ = fl.GetString("known-hosts")
	f.strictHostKey, _ = fl.GetBool("strict-host-key")
	f.logFile, _ = fl.GetString("log-file")
	f.logLevel, _ = fl.GetString("log-level")
	return &f
}
