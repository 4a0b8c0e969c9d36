// Package nodeconfig applies the resolved overrides of one node to the TOML
// files in its config directory.
package nodeconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/timzifer/fleetconf/overrides"
	"github.com/timzifer/fleetconf/telemetry"
	"github.com/timzifer/fleetconf/tomlpatch"
)

// FileResult reports the patch of one target file.
type FileResult struct {
	Target string
	Path   string
	// Skipped is set when the target file does not exist.
	Skipped bool
	Report  tomlpatch.Report
}

// Options configure Apply.
type Options struct {
	Document *overrides.Document
	NodeDir  string
	Name     string
	Role     string
	// InsertMissing appends assignments for keys that are not in the file.
	InsertMissing bool
	Logger        zerolog.Logger
	Telemetry     telemetry.Collector
}

// ConfigDir returns the directory holding a node's TOML files.
func ConfigDir(nodeDir string) string {
	return filepath.Join(nodeDir, "config")
}

// Apply resolves the node's overrides and patches every target file that has
// at least one override. Missing target files are skipped.
func Apply(opts Options) ([]FileResult, error) {
	if opts.Document == nil {
		return nil, errors.New("node configuration document is required")
	}
	collector := opts.Telemetry
	if collector == nil {
		collector = telemetry.Noop()
	}
	logger := opts.Logger.With().
		Str("component", "nodeconfig").
		Str("node", opts.Name).
		Str("role", opts.Role).
		Logger()

	var patchOpts []tomlpatch.Option
	if opts.InsertMissing {
		patchOpts = append(patchOpts, tomlpatch.WithInsertMissing())
	}

	targets := opts.Document.ForNode(opts.Name, opts.Role)
	results := make([]FileResult, 0, len(targets))
	for _, target := range targets.Names() {
		set := targets[target]
		if len(set) == 0 {
			continue
		}
		file, ok := overrides.TargetFile(target)
		if !ok {
			logger.Debug().Str("target", target).Msg("namespace has no target file")
			continue
		}
		path := filepath.Join(ConfigDir(opts.NodeDir), file)
		result := FileResult{Target: target, Path: path}

		report, err := tomlpatch.PatchFile(path, set, patchOpts...)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("file", path).Msg("target file not found, skipped")
			result.Skipped = true
			results = append(results, result)
			continue
		}
		if err != nil {
			return results, fmt.Errorf("apply %s: %w", target, err)
		}
		result.Report = report
		for _, key := range report.Missing {
			if opts.InsertMissing {
				logger.Info().Str("file", path).Str("key", string(key)).Msg("override key inserted")
				continue
			}
			logger.Warn().Str("file", path).Str("key", string(key)).Msg("override key not present, ignored")
		}
		logger.Debug().
			Str("file", path).
			Int("applied", len(report.Applied)).
			Int("changed", len(report.Changed)).
			Msg("target file patched")
		collector.ObserveOverrides(target, len(report.Applied), len(report.Changed), len(report.Missing))
		results = append(results, result)
	}
	return results, nil
}
