package ops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JayjeetAtGithub/blackswan-baseliner/internal/sshtest"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/baseliner"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/sshx"
)

// writeFleet writes a fleet file for the servers and returns its path.
func writeFleet(t *testing.T, dir, keyFile, extra string, servers ...*sshtest.Server) string {
	t.Helper()

	content := fmt.Sprintf("defaults:\n  user: noobjc\n  key-file: %s\nmachines:\n", keyFile)
	for _, server := range servers {
		content += fmt.Sprintf("  - host: %s\n    port: %d\n", server.Host, server.Port)
	}
	content += extra

	path := filepath.Join(dir, baseliner.DefaultConfigPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	keyFile, pub := sshtest.WriteKey(t, dir, "")

	server := sshtest.NewServer(t, pub)
	server.Handle("uname -a", sshtest.Response{Stdout: "Linux\n"})

	config := writeFleet(t, dir, keyFile, "commands:\n  - uname -a\n", server)

	output := new(bytes.Buffer)
	err := Run(context.Background(), WithConfigPath(config), WithOutput(output))
	require.NoError(t, err)

	require.Equal(t, []string{"uname -a"}, server.Executed())
	require.Equal(t, "STDOUT:  Linux\n\nSTDERR:  \n", output.String())
}

func TestRunCommandsFileOverride(t *testing.T) {
	dir := t.TempDir()
	keyFile, pub := sshtest.WriteKey(t, dir, "")
	server := sshtest.NewServer(t, pub)

	commands := filepath.Join(dir, "commands.txt")
	require.NoError(t, os.WriteFile(commands, []byte("uptime\nuname -a\n"), 0o644))

	config := writeFleet(t, dir, keyFile, "commands:\n  - ls -al\n", server)

	err := Run(context.Background(),
		WithConfigPath(config),
		WithOutput(new(bytes.Buffer)),
		WithCommandsFile(commands),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"uptime", "uname -a"}, server.Executed())
}

func TestRunMissingCommandsFile(t *testing.T) {
	dir := t.TempDir()
	keyFile, pub := sshtest.WriteKey(t, dir, "")
	server := sshtest.NewServer(t, pub)

	missing := filepath.Join(dir, "nope.txt")
	config := writeFleet(t, dir, keyFile, "commands-file: "+missing+"\n", server)

	err := Run(context.Background(), WithConfigPath(config))
	require.ErrorIs(t, err, baseliner.ErrCommandFileNotFound)
	require.Contains(t, err.Error(), missing)
	require.Equal(t, 0, server.Logins())
}

func TestRunPolicyOverrides(t *testing.T) {
	dir := t.TempDir()
	keyFile, pub := sshtest.WriteKey(t, dir, "")
	server := sshtest.NewServer(t, pub)
	server.Handle("df -h", sshtest.Response{Stdout: "/\n", Stderr: "df: /proc: Permission denied\n"})

	config := writeFleet(t, dir, keyFile, "commands:\n  - df -h\n  - uptime\n", server)

	err := Run(context.Background(),
		WithConfigPath(config),
		WithOutput(new(bytes.Buffer)),
		WithStderrPolicy("fail"),
	)

	var stderrErr *baseliner.StderrError
	require.ErrorAs(t, err, &stderrErr)
	require.Equal(t, []string{"df -h"}, server.Executed())
}

func TestRunTimeoutOverride(t *testing.T) {
	dir := t.TempDir()
	keyFile, pub := sshtest.WriteKey(t, dir, "")
	server := sshtest.NewServer(t, pub)
	server.Handle("sleep 60", sshtest.Response{Delay: time.Minute})

	config := writeFleet(t, dir, keyFile, "commands:\n  - sleep 60\n", server)

	err := Run(context.Background(),
		WithConfigPath(config),
		WithOutput(new(bytes.Buffer)),
		WithTimeout(50*time.Millisecond),
	)
	require.ErrorIs(t, err, sshx.ErrCommandTimeout)
}

func TestRunInvalidPolicy(t *testing.T) {
	err := Run(context.Background(), WithFailurePolicy("retry"))
	require.ErrorContains(t, err, `unsupported failure policy "retry"`)
}

func TestRunMissingConfig(t *testing.T) {
	err := Run(context.Background(), WithConfigPath(filepath.Join(t.TempDir(), "missing.yml")))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunPassphrasePrompt(t *testing.T) {
	dir := t.TempDir()
	keyFile, pub := sshtest.WriteKey(t, dir, "12345")
	server := sshtest.NewServer(t, pub)

	config := writeFleet(t, dir, keyFile, "", server)

	var prompted []string
	prompt := func(keyPath string) (string, error) {
		prompted = append(prompted, keyPath)
		return "12345", nil
	}

	err := Ping(context.Background(), WithConfigPath(config), WithPassphrasePrompt(prompt))
	require.NoError(t, err)
	require.Equal(t, []string{keyFile}, prompted)
	require.Equal(t, 1, server.Logins())
	require.Empty(t, server.Executed())
}
