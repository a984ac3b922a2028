package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-cpman/config"
)

// ============================================================================
//                              config
// ============================================================================

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration files",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Print the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewConfig()
			if preset, _ := cmd.Flags().GetString("preset"); preset != "" {
				if err := config.ApplyPreset(cfg, preset); err != nil {
					return err
				}
			}
			data, err := cfg.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	initCmd.Flags().String("preset", "", "Apply a preset before printing")

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
