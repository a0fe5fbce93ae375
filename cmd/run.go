package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/baseliner"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/ops"
)

var runCmd = &cobra.Command{
	Use:   "run [config]",
	Short: "Run the baseline on every machine",
	Long: `Run every command on every machine of the fleet.

Machines are processed in the order of the configuration
file. Each machine is connected, runs all commands in
order and is disconnected before the next one starts.
By default the first failure ends the run.

By default the command expects a "` + baseliner.DefaultConfigPath + `" config
file in the current directory. You may override this
by passing a path to the configuration file as a CLI
argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := operationOptions(args)

		if viper.IsSet("commands-file") {
			opts = append(opts, ops.WithCommandsFile(viper.GetString("commands-file")))
		}
		if viper.IsSet("timeout") {
			opts = append(opts, ops.WithTimeout(viper.GetDuration("timeout")))
		}
		if viper.IsSet("on-stderr") {
			opts = append(opts, ops.WithStderrPolicy(viper.GetString("on-stderr")))
		}

		return ops.Run(cmd.Context(), opts...)
	},
}

func init() {
	runCmd.Flags().String("commands-file", "", "file with one command per line, replaces the commands of the config")
	runCmd.Flags().Duration("timeout", baseliner.DefaultTimeout, "deadline of a single command")
	runCmd.Flags().String("on-stderr", string(baseliner.StderrIgnore), "what to do if a command writes to stderr (ignore, fail)")

	bindFlags(runCmd.Flags(), "commands-file", "timeout", "on-stderr")

	rootCmd.AddCommand(runCmd)
}
