package testutil

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"

	"github.com/nhle/lnemail-client/internal/credential"
)

// NewTestTokenStore creates a TokenStore over an in-memory keyring. The
// keyring is returned so tests can inspect or seed it directly.
func NewTestTokenStore(t *testing.T, token string) (*credential.TokenStore, keyring.Keyring) {
	t.Helper()

	ring := keyring.NewArrayKeyring(nil)
	if token != "" {
		if err := ring.Set(keyring.Item{Key: credential.TokenKey, Data: []byte(token)}); err != nil {
			t.Fatalf("seeding keyring: %v", err)
		}
	}

	open := func() (keyring.Keyring, error) { return ring, nil }
	return credential.NewTokenStore(open, zerolog.Nop()), ring
}
