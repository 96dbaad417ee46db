// Package keyring provides access to the system keychain for storing the backend API token.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "drumtone"

// Entry is a named secret stored in the keychain.
type Entry string

const (
	// APIToken is the bearer token sent to the classification backend.
	APIToken Entry = "api-token"
)

// ErrNotFound is returned when the entry has never been stored.
var ErrNotFound = keyring.ErrNotFound

// DisplayName returns a human-readable name for the entry.
func (e Entry) DisplayName() string {
	switch e {
	case APIToken:
		return "API token"
	default:
		return string(e)
	}
}

// Get retrieves an entry from the system keychain.
func Get(e Entry) (string, error) {
	value, err := keyring.Get(serviceName, string(e))
	if err != nil {
		return "", fmt.Errorf("failed to get %s from keychain: %w", e.DisplayName(), err)
	}

	return value, nil
}

// Set stores an entry in the system keychain.
func Set(e Entry, value string) error {
	if value == "" {
		return fmt.Errorf("refusing to store an empty %s", e.DisplayName())
	}
	if err := keyring.Set(serviceName, string(e), value); err != nil {
		return fmt.Errorf("failed to set %s in keychain: %w", e.DisplayName(), err)
	}

	return nil
}

// Delete removes an entry. Deleting a missing entry is not an error.
func Delete(e Entry) error {
	if err := keyring.Delete(serviceName, string(e)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from keychain: %w", e.DisplayName(), err)
	}

	return nil
}

// IsSet checks if an entry exists in the keychain.
func IsSet(e Entry) bool {
	_, err := keyring.Get(serviceName, string(e))

	return err == nil
}

// Resolve returns explicit when set and otherwise falls back to the keychain.
// A missing keychain entry yields "" without error.
func Resolve(e Entry, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	value, err := Get(e)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}

	return value, err
}
