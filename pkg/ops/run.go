package ops

import (
	"context"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/baseliner"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/rexec"
)

// Run performs a baseline run on the fleet of the configuration file.
func Run(ctx context.Context, options ...Option) error {
	b, err := prepare(options...)
	if err != nil {
		return err
	}

	return b.Run(ctx)
}

// Ping connects to every machine of the configuration file
// without running any commands.
func Ping(ctx context.Context, options ...Option) error {
	b, err := prepare(options...)
	if err != nil {
		return err
	}

	return b.Ping(ctx)
}

// prepare loads the configuration file and builds the fleet.
func prepare(options ...Option) (*baseliner.Baseliner, error) {
	// Fetch the options for this operation.
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

	// Load the configuration file.
	config, err := baseliner.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	override(config, opts)

	if err := config.Verify(); err != nil {
		return nil, err
	}

	b, err := baseliner.New(
		baseliner.WithLogger(opts.Logger),
		baseliner.WithOutput(opts.Output),
		baseliner.WithTimeout(config.Timeout),
		baseliner.WithStderrPolicy(config.OnStderr),
		baseliner.WithFailurePolicy(config.OnFailure),
		baseliner.WithFiles(config.Files),
		baseliner.WithEnv(config.Env),
		baseliner.WithMachineOptions(rexec.WithPassphrasePrompt(opts.PassphrasePrompt)),
	)
	if err != nil {
		return nil, err
	}

	for _, machine := range config.Machines {
		if _, err := b.AddMachine(machine); err != nil {
			return nil, err
		}
	}

	if config.CommandsFile != "" {
		if err := b.LoadCommandsFromFile(config.CommandsFile); err != nil {
			return nil, err
		}
	} else {
		b.LoadCommands(config.Commands)
	}

	opts.Logger.Debug().
		Str("config", opts.ConfigPath).
		Int("machines", b.Len()).
		Msg("Loaded configuration")

	return b, nil
}

// override applies the settings given on the command line.
func override(config *baseliner.Config, opts *Options) {
	if opts.CommandsFile != "" {
		config.Commands = nil
		config.CommandsFile = opts.CommandsFile
	}
	if opts.Timeout != 0 {
		config.Timeout = opts.Timeout
	}
	if opts.OnStderr != "" {
		config.OnStderr = opts.OnStderr
	}
	if opts.OnFailure != "" {
		config.OnFailure = opts.OnFailure
	}
}
