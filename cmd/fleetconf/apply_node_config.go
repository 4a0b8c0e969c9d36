package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timzifer/fleetconf/internal/preflight"
	"github.com/timzifer/fleetconf/nodeconfig"
	"github.com/timzifer/fleetconf/overrides"
)

func newApplyNodeConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply-node-config <node_config.yml> <node_dir> <node_name> <node_type>",
		Short: "Apply global, node type and node specific overrides to one node",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, nodeDir, name, role := args[0], args[1], args[2], args[3]
			if err := preflight.RequireFile("node config", configPath); err != nil {
				return err
			}
			if err := preflight.RequireDir("node dir", nodeDir); err != nil {
				return err
			}
			doc, err := overrides.LoadDocument(configPath)
			if err != nil {
				return preflight.Invalid("node config", err)
			}

			results, err := nodeconfig.Apply(nodeconfig.Options{
				Document:      doc,
				NodeDir:       nodeDir,
				Name:          name,
				Role:          role,
				InsertMissing: a.settings.Patch.InsertMissing,
				Logger:        a.logger,
				Telemetry:     a.collector(),
			})
			out := newMarks(a.stdout)
			for _, result := range results {
				if result.Skipped {
					fmt.Fprintf(a.stdout, "%s %s: not found, skipped\n", out.skip, result.Path)
					continue
				}
				fmt.Fprintf(a.stdout, "%s %s: %d applied, %d changed, %d missing\n",
					out.ok, result.Path, len(result.Report.Applied), len(result.Report.Changed), len(result.Report.Missing))
			}
			return err
		},
	}
}
