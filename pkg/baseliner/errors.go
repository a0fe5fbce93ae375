package baseliner

import (
	"errors"
	"fmt"
)

// ErrCommandFileNotFound is returned if a commands file does not exist.
var ErrCommandFileNotFound = errors.New("commands file not found")

// Stage names the step of a machine's run that failed.
type Stage string

const (
	StageConnect Stage = "connect"
	StageUpload  Stage = "upload"
	StageRun     Stage = "run"
)

// MachineError reports the failure of a single machine.
type MachineError struct {
	Machine string
	Stage   Stage
	Command string
	Err     error
}

func (e *MachineError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s %q: %v", e.Machine, e.Stage, e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Machine, e.Stage, e.Err)
}

func (e *MachineError) Unwrap() error {
	return e.Err
}

// StderrError is returned under StderrFail if a command wrote to stderr.
type StderrError struct {
	Stderr string
}

func (e *StderrError) Error() string {
	return fmt.Sprintf("command wrote to stderr: %q", e.Stderr)
}
