package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryRing(ring keyring.Keyring) OpenFunc {
	return func() (keyring.Keyring, error) { return ring, nil }
}

func TestTokenStoreRoundTrip(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	store := NewTokenStore(memoryRing(ring), zerolog.Nop())

	assert.Equal(t, "", store.Load())

	store.Save("tok-123")
	assert.Equal(t, "tok-123", store.Load())

	item, err := ring.Get(TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", string(item.Data))

	store.Clear()
	assert.Equal(t, "", store.Load())
}

func TestTokenStoreClearWhenEmpty(t *testing.T) {
	store := NewTokenStore(memoryRing(keyring.NewArrayKeyring(nil)), zerolog.Nop())
	store.Clear()
	assert.Equal(t, "", store.Load())
}

func TestTokenStoreUnavailableKeyring(t *testing.T) {
	calls := 0
	open := func() (keyring.Keyring, error) {
		calls++
		return nil, errors.New("no backend")
	}
	store := NewTokenStore(open, zerolog.Nop())

	store.Save("tok")
	assert.Equal(t, "", store.Load())
	store.Clear()

	assert.Equal(t, 1, calls, "keyring should be opened once")
}
