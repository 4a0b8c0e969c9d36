package main

import (
	"github.com/spf13/cobra"

	"github.com/timzifer/fleetconf/internal/preflight"
	"github.com/timzifer/fleetconf/inventory"
)

func newParseInventoryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse-inventory <inventory.yml> [bash|json|yaml]",
		Short: "Print the validator and sentry hosts of an inventory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := inventory.FormatBash
			if len(args) == 2 {
				format = args[1]
			}
			if err := preflight.RequireFile("inventory", args[0]); err != nil {
				return err
			}
			inv, err := inventory.Load(args[0])
			if err != nil {
				return preflight.Invalid("inventory", err)
			}
			return inventory.Render(a.stdout, inv, format)
		},
	}
}
