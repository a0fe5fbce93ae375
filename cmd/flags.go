package cmd

import (
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/ops"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/sshx"
)

// bindFlags makes the flags available through viper so that
// they can also be set via environment variables.
func bindFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// operationOptions collects the options shared by all operations.
// Overrides are only passed if the user set them explicitly.
func operationOptions(args []string) []ops.Option {
	opts := []ops.Option{
		ops.WithLogger(&logger),
	}

	// Use manual override for config path if provided.
	if len(args) == 1 {
		opts = append(opts, ops.WithConfigPath(args[0]))
	}

	// Only ask for passphrases if someone can answer.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, ops.WithPassphrasePrompt(sshx.TerminalPassphrasePrompt))
	}

	if viper.IsSet("on-failure") {
		opts = append(opts, ops.WithFailurePolicy(viper.GetString("on-failure")))
	}

	return opts
}
