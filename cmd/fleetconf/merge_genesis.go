package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timzifer/fleetconf/genesis"
	"github.com/timzifer/fleetconf/internal/preflight"
)

func newMergeGenesisCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge-genesis <genesis_config.yml> <genesis.json>",
		Short: "Deep-merge YAML overrides into a genesis file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, genesisPath := args[0], args[1]
			if err := preflight.RequireFile("genesis config", configPath); err != nil {
				return err
			}
			if err := preflight.RequireFile("genesis", genesisPath); err != nil {
				return err
			}
			summary, err := genesis.MergeFile(configPath, genesisPath)
			if err != nil {
				return preflight.Invalid("merge genesis", err)
			}
			a.logger.Info().Str("genesis", genesisPath).Int("entries", len(summary)).Msg("genesis merged")
			fmt.Fprintf(a.stdout, "%s merged %s into %s\n", newMarks(a.stdout).ok, configPath, genesisPath)
			for _, line := range summary {
				fmt.Fprintf(a.stdout, "  %s\n", line)
			}
			return nil
		},
	}
}
