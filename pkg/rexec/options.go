package rexec

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/sshx"
)

// Options contains the configuration for an operation.
type Options struct {
	Logger           *zerolog.Logger
	Env              map[string]string
	PassphrasePrompt sshx.PassphrasePrompt
	Timeout          time.Duration
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
		Logger:  &logger,
		Timeout: time.Second * 5,
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

// WithEnv injects environment variables into every command.
func WithEnv(env map[string]string) Option {
	return func(options *Options) error {
		options.Env = env
		return nil
	}
}

// WithPassphrasePrompt configures how the passphrase of an
// encrypted key is obtained if none is configured.
func WithPassphrasePrompt(prompt sshx.PassphrasePrompt) Option {
	return func(options *Options) error {
		options.PassphrasePrompt = prompt
		return nil
	}
}

// WithConnectTimeout sets the timeout for establishing a connection.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(options *Options) error {
		options.Timeout = timeout
		return nil
	}
}
