package chain

import (
	"context"
	"path/filepath"

	"github.com/samber/oops"
)

// Static serves fixed answers. Identities are keyed by the base name of the
// home directory, keys by key name.
type Static struct {
	Identities map[string]string
	Addresses  map[string]string
	Secrets    map[string]string
}

// NodeIdentity implements IdentitySource.
func (s Static) NodeIdentity(ctx context.Context, home string) (string, error) {
	return lookup(ctx, s.Identities, filepath.Base(home))
}

// Address implements Keystore.
func (s Static) Address(ctx context.Context, key string) (string, error) {
	return lookup(ctx, s.Addresses, key)
}

// ExportSecret implements Keystore.
func (s Static) ExportSecret(ctx context.Context, key string) (string, error) {
	return lookup(ctx, s.Secrets, key)
}

func lookup(ctx context.Context, m map[string]string, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, ok := m[name]
	if !ok {
		return "", oops.Wrapf(ErrUnknown, "%s", name)
	}
	if value == "" {
		return "", oops.Wrapf(ErrEmptyOutput, "%s", name)
	}
	return value, nil
}
