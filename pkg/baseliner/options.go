package baseliner

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/rexec"
)

// DefaultTimeout is the per-command deadline.
const DefaultTimeout = time.Second * 10

// Options contains the configuration for an operation.
type Options struct {
	Logger         *zerolog.Logger
	Output         io.Writer
	Timeout        time.Duration
	OnStderr       StderrPolicy
	OnFailure      FailurePolicy
	Files          []File
	MachineOptions []rexec.Option
}

// Option applies a configuration option
// for the execution of an operation.
type Option func(options *Options) error

// Apply applies the option functions to the current set of options.
func (o *Options) Apply(options ...Option) (*Options, error) {
	for _, option := range options {
		if err := option(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// GetDefaultOptions returns the default options
// for all operations of this library.
func GetDefaultOptions() *Options {
	logger := zerolog.Nop()

	return &Options{
		Logger:    &logger,
		Output:    os.Stdout,
		Timeout:   DefaultTimeout,
		OnStderr:  StderrIgnore,
		OnFailure: FailureAbort,
	}
}

// WithLogger allows to use a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(options *Options) error {
		if logger != nil {
			options.Logger = logger
		}
		return nil
	}
}

// WithOutput sets where command output is printed.
func WithOutput(output io.Writer) Option {
	return func(options *Options) error {
		options.Output = output
		return nil
	}
}

// WithTimeout sets the per-command deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(options *Options) error {
		options.Timeout = timeout
		return nil
	}
}

// WithStderrPolicy sets how output on stderr is treated.
func WithStderrPolicy(policy StderrPolicy) Option {
	return func(options *Options) error {
		_, err := ParseStderrPolicy(string(policy))
		options.OnStderr = policy
		return err
	}
}

// WithFailurePolicy sets how a failing machine is treated.
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(options *Options) error {
		_, err := ParseFailurePolicy(string(policy))
		options.OnFailure = policy
		return err
	}
}

// WithFiles sets the files uploaded to every machine before
// the first command runs.
func WithFiles(files []File) Option {
	return func(options *Options) error {
		options.Files = files
		return nil
	}
}

// WithMachineOptions passes options to every machine
// created by AddMachine.
func WithMachineOptions(machineOptions ...rexec.Option) Option {
	return func(options *Options) error {
		options.MachineOptions = append(options.MachineOptions, machineOptions...)
		return nil
	}
}

// WithEnv injects environment variables into every command
// of the machines created by AddMachine.
func WithEnv(env map[string]string) Option {
	return func(options *Options) error {
		if len(env) > 0 {
			options.MachineOptions = append(options.MachineOptions, rexec.WithEnv(env))
		}
		return nil
	}
}
