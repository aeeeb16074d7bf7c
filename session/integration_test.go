//go:build integration

package session

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pascal71/sysmanage-go/client"
	"github.com/pascal71/sysmanage-go/config"
)

const (
	sshUser     = "ops"
	sshPassword = "integration-secret"
)

// execInContainer runs cmd in the container and returns its stdout.
func execInContainer(ctx context.Context, c testcontainers.Container, cmd []string) (int, string, error) {
	exitCode, reader, err := c.Exec(ctx, cmd)
	if err != nil {
		return exitCode, "", err
	}
	var stdout, stderr bytes.Buffer
	_, _ = stdcopy.StdCopy(&stdout, &stderr, reader)
	return exitCode, stdout.String(), nil
}

func startSSHContainer(t *testing.T, ctx context.Context) (testcontainers.Container, config.Config) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "lscr.io/linuxserver/openssh-server:latest",
		ExposedPorts: []string{"2222/tcp"},
		Env: map[string]string{
			"PASSWORD_ACCESS": "true",
			"USER_NAME":       sshUser,
			"USER_PASSWORD":   sshPassword,
		},
		WaitingFor: wait.ForListeningPort("2222/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "2222/tcp")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Endpoint.Host = host
	cfg.Endpoint.Port = port.Int()
	cfg.Endpoint.Username = sshUser
	cfg.Endpoint.Password = sshPassword
	cfg.HomeDir = "/config"
	cfg.ReadTimeout = 15 * time.Second
	return c, cfg
}

func TestIntegrationBackupAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Setenv("SSH_AUTH_SOCK", "")
	ctx := context.Background()
	c, cfg := startSSHContainer(t, ctx)

	code, _, err := execInContainer(ctx, c, []string{"sh", "-c", "echo payload > '/config/my notes.txt' && chown " + sshUser + " '/config/my notes.txt'"})
	require.NoError(t, err)
	require.Equal(t, 0, code)

	m := NewManager(cfg)
	t.Cleanup(m.Close)
	require.NoError(t, m.EnsureConnected(ctx))

	profile, err := client.LookupProfile(cfg.Endpoint.DeviceType)
	require.NoError(t, err)

	out, err := m.Execute(ctx, profile.ListCommand(cfg.HomeDir))
	require.NoError(t, err)
	assert.Contains(t, out, "my notes.txt")

	out, err = m.Execute(ctx, profile.BackupCommand("/config/my notes.txt"))
	require.NoError(t, err)
	assert.Empty(t, out)

	code, content, err := execInContainer(ctx, c, []string{"cat", "/config/my notes.txt.old"})
	require.NoError(t, err)
	require.Equal(t, 0, code)
	assert.Equal(t, "payload", strings.TrimSpace(content))

	out, err = m.Execute(ctx, profile.BackupCommand("/config/missing.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "No such file")
}

func TestIntegrationWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Setenv("SSH_AUTH_SOCK", "")
	ctx := context.Background()
	_, cfg := startSSHContainer(t, ctx)
	cfg.Endpoint.Password = "wrong"

	err := NewManager(cfg).EnsureConnected(ctx)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, AuthenticationFailed, serr.Kind)
}
