package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/baseliner"
)

// EnvPrefix is the prefix of the environment variables that
// may be used instead of command line flags.
const EnvPrefix = "BASELINER"

var version = "dev"
var help bool

// logger is configured before any subcommand runs.
var logger zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   baseliner.Program,
	Short: "Run a baseline of commands on a fleet of machines",
	Long: `Baseliner connects to every machine of a fleet via SSH,
one after another, and runs the same ordered list of
commands on each of them. The output of every command
is printed to the console.

Every flag may also be set through an environment
variable prefixed with "` + EnvPrefix + `_", for example
` + EnvPrefix + `_TIMEOUT=30s.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if help {
			cmd.Help()
			os.Exit(0)
		}

		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}

		logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).Level(level)

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
	Version:      version,
	SilenceUsage: true,
}

func init() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().BoolVarP(&help, "help", "h", false, "display help for command")
	rootCmd.PersistentFlags().String("log-level", zerolog.LevelInfoValue, "minimum level of log messages")
	rootCmd.PersistentFlags().String("on-failure", string(baseliner.FailureAbort), "what to do if a machine fails (abort, continue)")

	bindFlags(rootCmd.PersistentFlags(), "log-level", "on-failure")
}

// Execute starts the invocation of the command line interface.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
