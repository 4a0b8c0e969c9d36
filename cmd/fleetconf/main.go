package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/timzifer/fleetconf/internal/config"
	"github.com/timzifer/fleetconf/internal/logging"
	"github.com/timzifer/fleetconf/telemetry"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, logger: zerolog.Nop()}
	defer a.teardown()
	root := newRootCommand(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// app carries the state shared by all subcommands of one invocation.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	settings *config.Settings
	logger   zerolog.Logger
	metrics  *telemetry.PrometheusCollector
	cleanup  func()
}

func (a *app) collector() telemetry.Collector {
	if a.metrics == nil {
		return telemetry.Noop()
	}
	return a.metrics
}

func (a *app) setup(command string) error {
	settings, err := config.Load(os.Getenv(config.PathEnv))
	if err != nil {
		return err
	}
	logger, cleanup, err := logging.Setup(settings.Logging, logging.Options{Out: a.stderr, Command: command})
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = logger
	a.cleanup = cleanup
	if settings.Telemetry.Enabled {
		metrics, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry disabled")
		} else {
			a.metrics = metrics
		}
	}
	return nil
}

func (a *app) teardown() {
	if a.metrics != nil && a.settings != nil {
		if err := a.metrics.WriteTextfile(a.settings.Telemetry.Textfile); err != nil {
			a.logger.Warn().Err(err).Msg("metrics not written")
		}
	}
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetconf",
		Short: "Materialize validator and sentry node configuration",
		Long: `fleetconf applies layered parameter overrides to node TOML files, wires
persistent peers from a fleet inventory, merges genesis overrides and exports
orchestrator keys.

Tool settings are read from the YAML file named by FLEETCONF_CONFIG and from
FLEETCONF_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Name())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(
		newApplyNodeConfigCommand(a),
		newConfigurePeersCommand(a),
		newMergeGenesisCommand(a),
		newParseInventoryCommand(a),
		newExportKeysCommand(a),
	)
	return root
}
