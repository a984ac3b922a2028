package main

import (
	"github.com/spf13/cobra"

	"github.com/dep2p/go-cpman"
	"github.com/dep2p/go-cpman/internal/util/logger"
	"github.com/dep2p/go-cpman/pkg/lib/log"
)

var cliLogger = log.Logger("cpman/cmd")

// rootCmd 根命令
func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cpman",
		Short: "Control-plane telemetry engine",
		Long: `cpman collects CPU, memory, disk, network-interface and per-device
control-message metrics on a cluster node, keeps one day of history at a
60 second step, and answers load queries for itself and its peers.

Quick start:
  cpman config init > cpman.json   # Write the default configuration
  cpman run --config cpman.json    # Start a node
  cpman query load --node n2 --addr 10.0.0.2:7946 --metric CPU_LOAD`,
		Version:       cpman.VersionInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if level == "" {
				return nil
			}
			return logger.ApplyLevels(level)
		},
	}

	cmd.PersistentFlags().String("log-level", "", `Log levels, e.g. "messaging=debug,info" (overrides CPMAN_LOG_LEVEL)`)

	cmd.AddCommand(runCommand())
	cmd.AddCommand(queryCommand())
	cmd.AddCommand(configCommand())

	return cmd
}
