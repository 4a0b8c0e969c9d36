// Package preflight checks command inputs before anything is modified.
package preflight

import (
	"errors"
	"fmt"
	"os"
)

// ErrPrecondition marks a missing or unusable input. Commands abort before any
// mutation when it is returned.
var ErrPrecondition = errors.New("precondition failed")

// RequireFile fails unless path names an existing regular file.
func RequireFile(label, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %s", ErrPrecondition, label, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory: %s", ErrPrecondition, label, path)
	}
	return nil
}

// RequireDir fails unless path names an existing directory.
func RequireDir(label, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %s", ErrPrecondition, label, path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory: %s", ErrPrecondition, label, path)
	}
	return nil
}

// Invalid wraps an input error as a precondition failure.
func Invalid(label string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPrecondition, label, err)
}
