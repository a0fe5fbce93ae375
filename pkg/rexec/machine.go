package rexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/sshx"
)

var _ Runner = (*Machine)(nil)

// Machine is a runner that executes commands on a remote host via SSH.
type Machine struct {
	Logger  *zerolog.Logger
	Config  sshx.Config
	Env     map[string]string
	Timeout time.Duration

	signer ssh.Signer
	client *sshx.Client
}

// NewMachine returns a new SSH-based runner. The private key is loaded
// immediately so that key problems surface before any connection is made.
func NewMachine(config sshx.Config, options ...Option) (*Machine, error) {
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

	if config.Host == "" {
		return nil, errors.New("machine host must not be empty")
	}
	config.SetDefaults()

	signer, err := sshx.LoadSigner(&config, opts.PassphrasePrompt)
	if err != nil {
		return nil, fmt.Errorf("load key for %s: %w", config.Host, err)
	}

	return &Machine{
		Logger:  opts.Logger,
		Config:  config,
		Env:     opts.Env,
		Timeout: opts.Timeout,
		signer:  signer,
	}, nil
}

// Name returns the "user@host:port" of the machine.
func (m *Machine) Name() string {
	return m.Config.User + "@" + m.Config.Address()
}

// Connected reports whether the machine holds a live connection.
func (m *Machine) Connected() bool {
	return m.client != nil
}

// Connect establishes a connection to the SSH host.
func (m *Machine) Connect(ctx context.Context) error {
	if m.client != nil {
		return nil
	}

	client, err := sshx.NewClient(ctx, &m.Config,
		sshx.WithSigner(m.signer),
		sshx.WithLogger(m.Logger),
		sshx.WithTimeout(m.Timeout),
	)
	if err != nil {
		return err
	}
	m.client = client

	m.Logger.Debug().Msg("Connected")

	return nil
}

// Run executes a command in a new session and collects its output.
// A non-zero exit status is reported in the result, not as an error.
func (m *Machine) Run(ctx context.Context, command string, timeout time.Duration) (*Result, error) {
	if m.client == nil {
		return nil, sshx.ErrNotConnected
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	start := time.Now()
	err := m.client.Do(ctx, sshx.Cmd{
		Cmd:    command,
		Env:    m.Env,
		Stdout: &stdout,
		Stderr: &stderr,
	})

	result := &Result{
		Command:  command,
		Duration: time.Since(start),
	}

	var exitErr *ssh.ExitError
	var exitMissing *ssh.ExitMissingError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitStatus = exitErr.ExitStatus()
	case errors.As(err, &exitMissing):
		result.ExitStatus = -1
	default:
		return nil, err
	}

	result.Stdout = decode(stdout.Bytes())
	result.Stderr = decode(stderr.Bytes())

	m.Logger.Debug().
		Str("command", command).
		Int("exit_status", result.ExitStatus).
		Dur("duration", result.Duration).
		Msg("Command finished")

	return result, nil
}

// Upload copies a file to the machine.
func (m *Machine) Upload(dst string, src io.Reader, mode os.FileMode) error {
	if m.client == nil {
		return sshx.ErrNotConnected
	}

	return m.client.Upload(dst, src, mode)
}

// Disconnect closes the SSH connection. It is a no-op if
// the machine is not connected.
func (m *Machine) Disconnect() error {
	if m.client == nil {
		return nil
	}

	err := m.client.Close()
	m.client = nil

	m.Logger.Debug().Msg("Disconnected")

	return err
}

// decode interprets command output as UTF-8 text.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
