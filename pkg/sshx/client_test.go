package sshx

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/JayjeetAtGithub/blackswan-baseliner/internal/sshtest"
)

func newTestClient(t *testing.T) (*Client, *sshtest.Server) {
	t.Helper()

	path, pub := sshtest.WriteKey(t, t.TempDir(), "")
	server := sshtest.NewServer(t, pub)

	client, err := NewClient(context.Background(), &Config{
		Host:    server.Host,
		Port:    server.Port,
		User:    "baseliner",
		KeyFile: path,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, server
}

func TestConfigDefaults(t *testing.T) {
	config := Config{Host: "example.com"}
	config.SetDefaults()

	require.Equal(t, DefaultPort, config.Port)
	require.Equal(t, DefaultUser, config.User)
	require.Equal(t, "example.com:22", config.Address())

	config = Config{Host: "::1", Port: 2222, User: "noobjc"}
	config.SetDefaults()
	require.Equal(t, "noobjc", config.User)
	require.Equal(t, "[::1]:2222", config.Address())
}

func TestClientDo(t *testing.T) {
	client, server := newTestClient(t)
	server.Handle("ls -al", sshtest.Response{Stdout: "total 0\n", Stderr: "warning\n"})

	var stdout, stderr bytes.Buffer
	err := client.Do(context.Background(), Cmd{Cmd: "ls -al", Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)
	require.Equal(t, "total 0\n", stdout.String())
	require.Equal(t, "warning\n", stderr.String())
	require.Equal(t, []string{"ls -al"}, server.Executed())
}

func TestClientDoExitStatus(t *testing.T) {
	client, server := newTestClient(t)
	server.Handle("false", sshtest.Response{ExitStatus: 3})

	err := client.Do(context.Background(), Cmd{Cmd: "false"})

	var exitErr *ssh.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 3, exitErr.ExitStatus())
}

func TestClientDoTimeout(t *testing.T) {
	client, server := newTestClient(t)
	server.Handle("sleep 10", sshtest.Response{Stdout: "late", Delay: 10 * time.Second})
	server.Handle("true", sshtest.Response{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := client.Do(ctx, Cmd{Cmd: "sleep 10", Stdout: new(bytes.Buffer)})
	require.ErrorIs(t, err, ErrCommandTimeout)
	require.Less(t, time.Since(start), 5*time.Second)

	// The connection stays usable after a timed out command.
	require.NoError(t, client.Do(context.Background(), Cmd{Cmd: "true"}))
}

func TestClientDoNotConnected(t *testing.T) {
	var client *Client
	require.ErrorIs(t, client.Do(context.Background(), Cmd{Cmd: "true"}), ErrNotConnected)
	require.ErrorIs(t, (&Client{}).Upload("/tmp/x", strings.NewReader(""), 0), ErrNotConnected)
}

func TestNewClientAuthenticationFailure(t *testing.T) {
	_, pub := sshtest.WriteKey(t, t.TempDir(), "")
	server := sshtest.NewServer(t, pub)

	otherKey, _ := sshtest.WriteKey(t, t.TempDir(), "")
	_, err := NewClient(context.Background(), &Config{
		Host:    server.Host,
		Port:    server.Port,
		KeyFile: otherKey,
	})
	require.ErrorIs(t, err, ErrAuthentication)
	require.Equal(t, 0, server.Logins())
}

func TestNewClientTransportFailure(t *testing.T) {
	// Reserve a port and release it so nothing listens there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	path, _ := sshtest.WriteKey(t, t.TempDir(), "")
	_, err = NewClient(context.Background(), &Config{
		Host:    "127.0.0.1",
		Port:    port,
		KeyFile: path,
	}, WithTimeout(time.Second))
	require.ErrorIs(t, err, ErrTransport)
}

func TestNewClientWithSigner(t *testing.T) {
	path, pub := sshtest.WriteKey(t, t.TempDir(), "12345")
	server := sshtest.NewServer(t, pub)

	signer, err := LoadSigner(&Config{KeyFile: path, Passphrase: "12345"}, nil)
	require.NoError(t, err)

	// No key in the configuration: the preloaded signer is used.
	client, err := NewClient(context.Background(), &Config{
		Host: server.Host,
		Port: server.Port,
	}, WithSigner(signer))
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.Equal(t, 1, server.Logins())
}

func TestClientUpload(t *testing.T) {
	client, _ := newTestClient(t)

	dst := filepath.Join(t.TempDir(), "nested", "dir", "bench.sh")
	err := client.Upload(dst, strings.NewReader("#!/bin/sh\necho ok\n"), 0o750)
	require.NoError(t, err)

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\necho ok\n", string(content))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}
