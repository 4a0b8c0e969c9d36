package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timzifer/fleetconf/chain"
	"github.com/timzifer/fleetconf/internal/preflight"
	"github.com/timzifer/fleetconf/keyexport"
)

func newExportKeysCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export-keys <chain_binary> <master_home> <output_dir> <keyring_backend> <validator_names_json> [output_filename]",
		Short: "Export the orchestrator key of every validator",
		Args:  cobra.RangeArgs(5, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseNames(args[4])
			if err != nil {
				return preflight.Invalid("validator names", err)
			}
			fileName := ""
			if len(args) == 6 {
				fileName = args[5]
			}

			result, err := keyexport.Export(cmd.Context(), names, keyexport.Options{
				Keystore: chain.Binary{
					Path:           args[0],
					Home:           args[1],
					KeyringBackend: args[3],
					Timeout:        a.settings.CollaboratorTimeout(),
				},
				OutputDir: args[2],
				FileName:  fileName,
				Logger:    a.logger,
			})
			if err != nil {
				return err
			}
			out, errOut := newMarks(a.stdout), newMarks(a.stderr)
			for _, record := range result.Succeeded {
				a.collector().IncKeyExport(true)
				fmt.Fprintf(a.stdout, "%s %s: %s (EVM: 0x%s)\n", out.ok, record.ValidatorName, record.CosmosAddress, record.EVMAddress)
			}
			for _, failure := range result.Failed {
				a.collector().IncKeyExport(false)
				fmt.Fprintf(a.stderr, "%s %s: export failed\n", errOut.fail, failure.Validator)
			}
			fmt.Fprintf(a.stdout, "exported %d/%d orchestrator keys\n", len(result.Succeeded), result.Total)
			if len(result.Failed) > 0 {
				fmt.Fprintf(a.stderr, "failed validators: %s\n", strings.Join(result.FailedNames(), ", "))
			}
			return result.Err()
		},
	}
}

func parseNames(raw string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("want a JSON array of strings: %w", err)
	}
	if names == nil {
		return nil, fmt.Errorf("want a JSON array of strings, got %s", strings.TrimSpace(raw))
	}
	return names, nil
}
