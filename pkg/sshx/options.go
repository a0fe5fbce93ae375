package sshx

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Options contains the configuration for an operation.
type Options struct {
	Logger           *zerolog.Logger
	Timeout          time.Duration
	Signer           ssh.Signer
	PassphrasePrompt PassphrasePrompt
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
		Timeout: time.Second * 5,
		Logger:  &logger,
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

// WithTimeout allows to set a custom timeout for
// establishing the connection and the handshake.
func WithTimeout(timeout time.Duration) Option {
	return func(options *Options) error {
		options.Timeout = timeout
		return nil
	}
}

// WithSigner uses an already loaded private key
// instead of reading it from the configuration.
func WithSigner(signer ssh.Signer) Option {
	return func(options *Options) error {
		options.Signer = signer
		return nil
	}
}

// WithPassphrasePrompt configures how a passphrase is obtained
// for an encrypted key that has no passphrase configured.
func WithPassphrasePrompt(prompt PassphrasePrompt) Option {
	return func(options *Options) error {
		options.PassphrasePrompt = prompt
		return nil
	}
}
