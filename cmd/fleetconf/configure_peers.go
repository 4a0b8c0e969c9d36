package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timzifer/fleetconf/chain"
	"github.com/timzifer/fleetconf/internal/preflight"
	"github.com/timzifer/fleetconf/inventory"
	"github.com/timzifer/fleetconf/overrides"
	"github.com/timzifer/fleetconf/topology"
)

func newConfigurePeersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "configure-peers <chain_binary> <base_dir> <node_config.yml> <inventory.yml>",
		Short: "Write persistent_peers into every validator and sentry config.toml",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			binary, baseDir, configPath, inventoryPath := args[0], args[1], args[2], args[3]
			if err := preflight.RequireFile("node config", configPath); err != nil {
				return err
			}
			if err := preflight.RequireFile("inventory", inventoryPath); err != nil {
				return err
			}
			if err := preflight.RequireDir("base dir", baseDir); err != nil {
				return err
			}

			laddr := ""
			if doc, err := overrides.LoadDocument(configPath); err != nil {
				a.logger.Warn().Err(err).Msg("node config unreadable, using default p2p port")
			} else if laddr, err = doc.ListenAddress(); err != nil {
				a.logger.Warn().Err(err).Msg("p2p.laddr unusable, using default p2p port")
			}
			inv, err := inventory.Load(inventoryPath)
			if err != nil {
				return preflight.Invalid("inventory", err)
			}

			outcomes, err := topology.Configure(cmd.Context(), topology.Options{
				BaseDir:       baseDir,
				Inventory:     inv,
				Identities:    chain.Binary{Path: binary, Timeout: a.settings.CollaboratorTimeout()},
				ListenAddress: laddr,
				Logger:        a.logger,
			})
			if err != nil {
				return err
			}
			out, errOut := newMarks(a.stdout), newMarks(a.stderr)
			for _, outcome := range outcomes {
				a.collector().IncPeerList(string(outcome.Node.Role), outcome.OK())
				if !outcome.OK() {
					fmt.Fprintf(a.stderr, "%s %s: %v\n", errOut.fail, outcome.Node.Name, outcome.Err)
					continue
				}
				peers := outcome.Peers
				if peers == "" {
					peers = "none"
				}
				fmt.Fprintf(a.stdout, "%s %s -> %s\n", out.ok, outcome.Node.Name, peers)
			}
			return nil
		},
	}
}
