// Package baseliner runs an ordered list of commands on an ordered
// list of machines, one machine and one command at a time.
package baseliner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/rexec"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/sshx"
)

// Baseliner is the orchestrator of a baseline run.
type Baseliner struct {
	Logger    *zerolog.Logger
	Output    io.Writer
	Timeout   time.Duration
	OnStderr  StderrPolicy
	OnFailure FailurePolicy
	Files     []File

	machineOptions []rexec.Option
	runners        []rexec.Runner
	commands       []string
}

// New creates a new Baseliner.
func New(options ...Option) (*Baseliner, error) {
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

	return &Baseliner{
		Logger:         opts.Logger,
		Output:         opts.Output,
		Timeout:        opts.Timeout,
		OnStderr:       opts.OnStderr,
		OnFailure:      opts.OnFailure,
		Files:          opts.Files,
		machineOptions: opts.MachineOptions,
	}, nil
}

// Add appends a runner to the fleet and returns the new fleet size.
func (b *Baseliner) Add(runner rexec.Runner) int {
	b.runners = append(b.runners, runner)
	return len(b.runners)
}

// AddMachine creates an SSH machine and appends it to the fleet.
// It returns the new fleet size.
func (b *Baseliner) AddMachine(config sshx.Config) (int, error) {
	// Inject logger into machine.
	logger := b.Logger.With().Str("host", config.Host).Logger()

	options := append([]rexec.Option{}, b.machineOptions...)
	options = append(options, rexec.WithLogger(&logger))

	machine, err := rexec.NewMachine(config, options...)
	if err != nil {
		return len(b.runners), err
	}

	return b.Add(machine), nil
}

// Len returns the number of machines in the fleet.
func (b *Baseliner) Len() int {
	return len(b.runners)
}

// Run performs a baseline run. Every machine is connected, runs
// every command and is disconnected before the next machine starts.
func (b *Baseliner) Run(ctx context.Context) error {
	logger := b.runLogger()
	logger.Info().
		Int("machines", len(b.runners)).
		Int("commands", len(b.commands)).
		Msg("Starting baseline run")

	return b.each(ctx, &logger, func(ctx context.Context, log *zerolog.Logger, runner rexec.Runner) error {
		if err := b.stage(log, runner); err != nil {
			return err
		}

		for _, command := range b.commands {
			log.Info().Str("command", command).Msg("Running command")

			result, err := runner.Run(ctx, command, b.Timeout)
			if err != nil {
				return &MachineError{Machine: runner.Name(), Stage: StageRun, Command: command, Err: err}
			}

			b.print(result)

			if result.Stderr != "" && b.OnStderr == StderrFail {
				return &MachineError{
					Machine: runner.Name(),
					Stage:   StageRun,
					Command: command,
					Err:     &StderrError{Stderr: result.Stderr},
				}
			}
		}

		return nil
	})
}

// Ping connects to every machine and disconnects again without
// running any commands.
func (b *Baseliner) Ping(ctx context.Context) error {
	logger := b.runLogger()
	logger.Info().Int("machines", len(b.runners)).Msg("Checking connectivity")

	return b.each(ctx, &logger, func(ctx context.Context, log *zerolog.Logger, runner rexec.Runner) error {
		log.Info().Msg("Machine reachable")
		return nil
	})
}

func (b *Baseliner) runLogger() zerolog.Logger {
	return b.Logger.With().Str("run", uuid.NewString()).Logger()
}

// each connects to the machines in insertion order, calls fn and
// disconnects. The failure policy decides whether a failing machine
// ends the iteration.
func (b *Baseliner) each(ctx context.Context, logger *zerolog.Logger, fn func(context.Context, *zerolog.Logger, rexec.Runner) error) error {
	var failed int
	for _, runner := range b.runners {
		log := logger.With().Str("machine", runner.Name()).Logger()

		if err := b.visit(ctx, &log, runner, fn); err != nil {
			if b.OnFailure != FailureContinue {
				return err
			}

			log.Error().Err(err).Msg("Skipping machine")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d machines failed", failed, len(b.runners))
	}

	return nil
}

func (b *Baseliner) visit(ctx context.Context, log *zerolog.Logger, runner rexec.Runner, fn func(context.Context, *zerolog.Logger, rexec.Runner) error) error {
	log.Info().Msg("Connecting")
	if err := runner.Connect(ctx); err != nil {
		return &MachineError{Machine: runner.Name(), Stage: StageConnect, Err: err}
	}

	// The connection is released on every path.
	defer func() {
		if err := runner.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("Failed to disconnect")
			return
		}
		log.Info().Msg("Disconnected")
	}()

	return fn(ctx, log, runner)
}

// stage uploads the configured files to a machine.
func (b *Baseliner) stage(log *zerolog.Logger, runner rexec.Runner) error {
	for _, file := range b.Files {
		if err := b.upload(runner, file); err != nil {
			return &MachineError{Machine: runner.Name(), Stage: StageUpload, Err: err}
		}
		log.Info().Str("src", file.Src).Str("dst", file.Dst).Msg("Uploaded file")
	}

	return nil
}

func (b *Baseliner) upload(runner rexec.Runner, file File) error {
	mode, err := file.FileMode()
	if err != nil {
		return err
	}

	src, err := os.Open(file.Src)
	if err != nil {
		return err
	}
	defer src.Close()

	return runner.Upload(file.Dst, src, mode)
}

// print writes the output of a command to the console.
func (b *Baseliner) print(result *rexec.Result) {
	fmt.Fprintln(b.Output, "STDOUT: ", result.Stdout)
	fmt.Fprintln(b.Output, "STDERR: ", result.Stderr)
}
