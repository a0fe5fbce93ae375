// Package rexec provides APIs to execute commands on remote machines.
package rexec

import (
	"context"
	"io"
	"os"
	"time"
)

// Result is the outcome of a command that ran to completion.
type Result struct {
	Command    string
	Stdout     string
	Stderr     string
	ExitStatus int
	Duration   time.Duration
}

// Runner is the interface for running commands on one
// execution environment, for example via an SSH session.
type Runner interface {
	// Name identifies the execution environment in logs.
	Name() string
	// Connect establishes a connection to the execution
	// environment.
	Connect(ctx context.Context) error
	// Run executes a single command and waits at most
	// timeout for it to finish.
	Run(ctx context.Context, command string, timeout time.Duration) (*Result, error)
	// Upload writes a file in the execution environment.
	Upload(dst string, src io.Reader, mode os.FileMode) error
	// Disconnect closes the connection to the execution
	// environment.
	Disconnect() error
}
