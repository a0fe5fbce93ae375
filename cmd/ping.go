package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/baseliner"
	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/ops"
)

var pingCmd = &cobra.Command{
	Use:   "ping [config]",
	Short: "Check that every machine is reachable",
	Long: `Connect to every machine of the fleet and disconnect
again without running any commands. Use this to verify
keys and network access before a baseline run.

By default the command expects a "` + baseliner.DefaultConfigPath + `" config
file in the current directory. You may override this
by passing a path to the configuration file as a CLI
argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ops.Ping(cmd.Context(), operationOptions(args)...)
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
