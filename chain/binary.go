package chain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DefaultTimeout bounds a single binary invocation when Binary.Timeout is
// zero.
const DefaultTimeout = 30 * time.Second

// Binary runs a Cosmos SDK node binary. Home and KeyringBackend are only used
// by the keyring queries.
type Binary struct {
	Path           string
	Home           string
	KeyringBackend string
	Timeout        time.Duration
}

// NodeIdentity runs "tendermint show-node-id --home <home>".
func (b Binary) NodeIdentity(ctx context.Context, home string) (string, error) {
	return b.run(ctx, "tendermint", "show-node-id", "--home", home)
}

// Address runs "keys show <key> -a".
func (b Binary) Address(ctx context.Context, key string) (string, error) {
	return b.run(ctx, b.keyArgs("keys", "show", key, "-a")...)
}

// ExportSecret runs "keys unsafe-export-eth-key <key>".
func (b Binary) ExportSecret(ctx context.Context, key string) (string, error) {
	return b.run(ctx, b.keyArgs("keys", "unsafe-export-eth-key", key)...)
}

func (b Binary) keyArgs(args ...string) []string {
	if b.Home != "" {
		args = append(args, "--home", b.Home)
	}
	if b.KeyringBackend != "" {
		args = append(args, "--keyring-backend", b.KeyringBackend)
	}
	return args
}

func (b Binary) run(ctx context.Context, args ...string) (string, error) {
	if strings.TrimSpace(b.Path) == "" {
		return "", oops.Errorf("chain binary path is empty")
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	command := strings.Join(args[:min(2, len(args))], " ")
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", oops.Wrapf(err, "%s %s: %s", b.Path, command, msg)
		}
		return "", oops.Wrapf(err, "%s %s", b.Path, command)
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", oops.Wrapf(ErrEmptyOutput, "%s %s", b.Path, command)
	}
	return out, nil
}
