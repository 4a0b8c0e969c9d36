// Package chain queries a node binary for node identities and keyring
// material.
package chain

import (
	"context"
	"errors"
)

// IdentitySource reports the P2P node identity stored in a node home
// directory.
type IdentitySource interface {
	NodeIdentity(ctx context.Context, home string) (string, error)
}

// Keystore reads keys from a keyring.
type Keystore interface {
	// Address returns the account address of the named key.
	Address(ctx context.Context, key string) (string, error)
	// ExportSecret returns the hex encoded private key of the named key.
	ExportSecret(ctx context.Context, key string) (string, error)
}

var (
	// ErrEmptyOutput is returned when a query succeeds without printing a value.
	ErrEmptyOutput = errors.New("command printed no value")
	// ErrUnknown is returned by Static for entries it does not hold.
	ErrUnknown = errors.New("unknown entry")
)
