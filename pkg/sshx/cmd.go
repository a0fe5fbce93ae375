package sshx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Cmd describes a command to be executed on the remote host.
type Cmd struct {
	Cmd    string
	Env    map[string]string
	Shell  bool
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String compiles the command to be executed. Without environment
// variables and shell wrapping the command is passed on verbatim.
func (c *Cmd) String() string {
	cmd := c.Cmd

	// Note that we also need to wrap the command in a
	// shell if we want to inject environment variables.
	if c.Shell || len(c.Env) > 0 {
		cmd = "sh -c " + quote(c.Cmd)
	}

	if len(c.Env) > 0 {
		keys := make([]string, 0, len(c.Env))
		for k := range c.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		vars := make([]string, 0, len(keys))
		for _, k := range keys {
			vars = append(vars, k+"="+quote(c.Env[k]))
		}

		cmd = fmt.Sprintf("env %s %s", strings.Join(vars, " "), cmd)
	}

	return cmd
}

// quote wraps a value in single quotes for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Do runs the command in a new session on the existing connection and
// waits until it exits or the context is done. A context that ends
// first closes the session and returns ErrCommandTimeout if its
// deadline was exceeded.
func (client *Client) Do(ctx context.Context, cmd Cmd) error {
	if client == nil || client.Client == nil {
		return ErrNotConnected
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("%w: open session: %w", ErrTransport, err)
	}
	defer session.Close()

	session.Stdin = cmd.Stdin
	session.Stdout = cmd.Stdout
	session.Stderr = cmd.Stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd.String()) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = session.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %q", ErrCommandTimeout, cmd.Cmd)
		}
		return ctx.Err()
	}
}
