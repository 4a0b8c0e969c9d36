// Package keyexport exports the orchestrator key of every validator into
// per-validator JSON records.
package keyexport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timzifer/fleetconf/chain"
	"github.com/timzifer/fleetconf/evm"
)

// Note is stored with every record.
const Note = "Cosmos and EVM share the same secp256k1 private key; only the address encoding differs"

// FileMode is applied to every written record.
const FileMode os.FileMode = 0o600

// Record is the exported key material of one validator.
type Record struct {
	ValidatorName    string `json:"validator_name"`
	CosmosAddress    string `json:"cosmos_address"`
	CosmosPrivateKey string `json:"cosmos_private_key"`
	EVMAddress       string `json:"evm_address"`
	EVMPrivateKey    string `json:"evm_private_key"`
	Note             string `json:"note"`
}

// KeyName returns the keyring entry holding the validator's orchestrator key.
func KeyName(validator string) string {
	return "orchestrator-" + validator
}

// FileName returns the default record file name for a validator.
func FileName(validator string) string {
	return validator + "_orchestrator_key.json"
}

// Options configure an export run.
type Options struct {
	Keystore  chain.Keystore
	Deriver   evm.Deriver
	OutputDir string
	// FileName, when set, is used for every record instead of FileName(name).
	FileName string
	Logger   zerolog.Logger
}

// Failure records why one validator could not be exported.
type Failure struct {
	Validator string
	Err       error
}

// Result summarizes an export run.
type Result struct {
	Total     int
	Succeeded []Record
	Failed    []Failure
	// Files maps validator names to the written record paths.
	Files map[string]string
}

// FailedNames returns the names of validators that could not be exported.
func (r Result) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, failure := range r.Failed {
		names = append(names, failure.Validator)
	}
	return names
}

// Err returns a joined error when any validator failed.
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, failure := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", failure.Validator, failure.Err))
	}
	return fmt.Errorf("export failed for %s: %w", strings.Join(r.FailedNames(), ", "), errors.Join(errs...))
}

// Export processes the validators in lexical order. A failure for one
// validator is recorded and never stops the others. The returned error is only
// set when the run could not start at all.
func Export(ctx context.Context, names []string, opts Options) (Result, error) {
	if opts.Keystore == nil {
		return Result{}, errors.New("keystore is required")
	}
	if opts.Deriver == nil {
		opts.Deriver = evm.Secp256k1{}
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	logger := opts.Logger.With().Str("component", "keyexport").Logger()

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	result := Result{Total: len(sorted), Files: make(map[string]string)}
	for _, name := range sorted {
		record, err := exportOne(ctx, name, opts)
		if err == nil {
			path := filepath.Join(opts.OutputDir, FileName(name))
			if opts.FileName != "" {
				path = filepath.Join(opts.OutputDir, opts.FileName)
			}
			err = writeRecord(path, record)
			if err == nil {
				result.Succeeded = append(result.Succeeded, record)
				result.Files[name] = path
				logger.Debug().Str("validator", name).Str("file", path).Msg("orchestrator key exported")
				continue
			}
		}
		logger.Error().Err(err).Str("validator", name).Msg("orchestrator key export failed")
		result.Failed = append(result.Failed, Failure{Validator: name, Err: err})
	}
	return result, nil
}

func exportOne(ctx context.Context, name string, opts Options) (Record, error) {
	key := KeyName(name)
	address, err := opts.Keystore.Address(ctx, key)
	if err != nil {
		return Record{}, fmt.Errorf("read address of %s: %w", key, err)
	}
	if address == "" {
		return Record{}, fmt.Errorf("read address of %s: %w", key, chain.ErrEmptyOutput)
	}
	secret, err := opts.Keystore.ExportSecret(ctx, key)
	if err != nil {
		return Record{}, fmt.Errorf("export secret of %s: %w", key, err)
	}
	secret = strings.TrimPrefix(strings.TrimSpace(secret), "0x")
	if secret == "" {
		return Record{}, fmt.Errorf("export secret of %s: %w", key, chain.ErrEmptyOutput)
	}
	evmAddress, err := opts.Deriver.Address(secret)
	if err != nil {
		return Record{}, fmt.Errorf("derive evm address of %s: %w", key, err)
	}
	return Record{
		ValidatorName:    name,
		CosmosAddress:    address,
		CosmosPrivateKey: secret,
		EVMAddress:       evmAddress,
		EVMPrivateKey:    secret,
		Note:             Note,
	}, nil
}

// writeRecord writes the record to a fresh FileMode file in the target
// directory and renames it over path, so the secret never lands in an existing
// file with a wider mode.
func writeRecord(path string, record Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
