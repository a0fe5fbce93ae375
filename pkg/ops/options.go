package ops

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/baseliner"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/sshx"
)

// Options contains the configuration for an operation.
type Options struct {
	ConfigPath       string
	Logger           *zerolog.Logger
	Output           io.Writer
	PassphrasePrompt sshx.PassphrasePrompt

	// Overrides of the fleet file. Zero values keep the file's setting.
	CommandsFile string
	Timeout      time.Duration
	OnStderr     baseliner.StderrPolicy
	OnFailure    baseliner.FailurePolicy
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
		ConfigPath: baseliner.DefaultConfigPath,
		Logger:     &logger,
		Output:     os.Stdout,
	}
}

// WithConfigPath overrides the default configuration path.
func WithConfigPath(configPath string) Option {
	return func(options *Options) error {
		options.ConfigPath = configPath
		return nil
	}
}

// WithLogger overrides the default logger.
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

// WithPassphrasePrompt sets how the passphrase of an encrypted
// key is obtained if the fleet file does not contain it.
func WithPassphrasePrompt(prompt sshx.PassphrasePrompt) Option {
	return func(options *Options) error {
		options.PassphrasePrompt = prompt
		return nil
	}
}

// WithCommandsFile overrides the command list of the fleet file.
func WithCommandsFile(path string) Option {
	return func(options *Options) error {
		options.CommandsFile = path
		return nil
	}
}

// WithTimeout overrides the per-command deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(options *Options) error {
		options.Timeout = timeout
		return nil
	}
}

// WithStderrPolicy overrides the stderr policy.
func WithStderrPolicy(policy string) Option {
	return func(options *Options) error {
		parsed, err := baseliner.ParseStderrPolicy(policy)
		options.OnStderr = parsed
		return err
	}
}

// WithFailurePolicy overrides the failure policy.
func WithFailurePolicy(policy string) Option {
	return func(options *Options) error {
		parsed, err := baseliner.ParseFailurePolicy(policy)
		options.OnFailure = parsed
		return err
	}
}
