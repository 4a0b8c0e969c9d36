package topology

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/timzifer/fleetconf/chain"
	"github.com/timzifer/fleetconf/inventory"
	"github.com/timzifer/fleetconf/overrides"
	"github.com/timzifer/fleetconf/tomlpatch"
)

// PeersKey is the config.toml parameter holding the peer list.
const PeersKey = overrides.Key("p2p.persistent_peers")

var (
	// ErrNoValidators is returned when the inventory lists no validator with
	// an address.
	ErrNoValidators = errors.New("inventory contains no validator nodes")
	// ErrNoIdentities is returned when no node identity could be obtained.
	ErrNoIdentities = errors.New("no node identity could be obtained")
)

// NodeHome returns the home directory of a node below the base directory.
func NodeHome(baseDir, name string) string {
	return filepath.Join(baseDir, name)
}

// ConfigPath returns the config.toml path of a node below the base directory.
func ConfigPath(baseDir, name string) string {
	return filepath.Join(NodeHome(baseDir, name), "config", "config.toml")
}

// CollectIdentities queries the identity of every named node in lexical
// order. Nodes whose query fails or returns nothing are left out; they are not
// retried.
func CollectIdentities(ctx context.Context, source chain.IdentitySource, baseDir string, names []string, logger zerolog.Logger) map[string]string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	identities := make(map[string]string, len(sorted))
	for _, name := range sorted {
		identity, err := source.NodeIdentity(ctx, NodeHome(baseDir, name))
		if err != nil {
			logger.Warn().Err(err).Str("node", name).Msg("node identity unavailable, excluded from peer lists")
			continue
		}
		if identity == "" {
			logger.Warn().Str("node", name).Msg("node identity empty, excluded from peer lists")
			continue
		}
		identities[name] = identity
	}
	return identities
}

// Options configure a peer configuration run.
type Options struct {
	BaseDir    string
	Inventory  inventory.Inventory
	Identities chain.IdentitySource
	// ListenAddress is the configured p2p.laddr used to derive the port.
	ListenAddress string
	Logger        zerolog.Logger
}

// Outcome reports what happened to one node's config.toml.
type Outcome struct {
	Assignment
	Path   string
	Report tomlpatch.Report
	Err    error
}

// OK reports whether the config file was processed. A file without a
// persistent_peers assignment is left unchanged and still counts as OK; see
// Report.Missing.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Configure resolves identities, computes every peer list and writes it into
// each node's config.toml. It fails before touching any file when the
// inventory has no validators or no identity could be obtained. A node whose
// config file cannot be patched is reported in its Outcome and the run
// continues.
func Configure(ctx context.Context, opts Options) ([]Outcome, error) {
	logger := opts.Logger.With().Str("component", "topology").Logger()
	if opts.Identities == nil {
		return nil, errors.New("identity source is required")
	}
	if len(opts.Inventory.Validators) == 0 {
		return nil, ErrNoValidators
	}

	port, warning := ResolvePort(opts.ListenAddress)
	if warning != nil {
		logger.Warn().Err(warning).Msg("p2p port fallback")
	}
	logger.Info().
		Str("port", port).
		Int("validators", len(opts.Inventory.Validators)).
		Int("sentries", len(opts.Inventory.Sentries)).
		Msg("configuring persistent peers")

	names := make([]string, 0, len(opts.Inventory.Validators)+len(opts.Inventory.Sentries))
	for _, node := range opts.Inventory.Nodes() {
		names = append(names, node.Name)
	}
	identities := CollectIdentities(ctx, opts.Identities, opts.BaseDir, names, logger)
	if len(identities) == 0 {
		return nil, ErrNoIdentities
	}

	plan := Plan(opts.Inventory, identities, port)
	outcomes := make([]Outcome, 0, len(plan))
	for _, assignment := range plan {
		path := ConfigPath(opts.BaseDir, assignment.Node.Name)
		outcome := Outcome{Assignment: assignment, Path: path}
		set := overrides.Set{PeersKey: overrides.String(assignment.Peers)}
		report, err := tomlpatch.PatchFile(path, set)
		outcome.Report = report
		switch {
		case err != nil:
			outcome.Err = fmt.Errorf("patch %s: %w", assignment.Node.Name, err)
			logger.Warn().Err(err).Str("node", assignment.Node.Name).Msg("peer list not written")
		case len(report.Missing) > 0:
			logger.Warn().Str("node", assignment.Node.Name).Str("file", path).Msg("persistent_peers assignment missing")
		default:
			logger.Debug().Str("node", assignment.Node.Name).Str("peers", assignment.Peers).Msg("peer list written")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}
