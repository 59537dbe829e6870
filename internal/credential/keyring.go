package credential

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
)

const (
	serviceName = "lnemail"

	// TokenKey is the keyring item holding the access token.
	TokenKey = "lnemail_access_token"
)

// OpenFunc opens the backing keyring.
type OpenFunc func() (keyring.Keyring, error)

// SystemKeyring returns an OpenFunc for the platform keyring, falling back
// to an encrypted file under fileDir.
func SystemKeyring(fileDir string) OpenFunc {
	return func() (keyring.Keyring, error) {
		ring, err := keyring.Open(keyring.Config{
			ServiceName: serviceName,
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.SecretServiceBackend,
				keyring.WinCredBackend,
				keyring.PassBackend,
				keyring.FileBackend,
			},
			FileDir:                  fileDir,
			FilePasswordFunc:         keyring.FixedStringPrompt("lnemail-file-key"),
			KeychainTrustApplication: true,
		})
		if err != nil {
			return nil, fmt.Errorf("opening keyring: %w", err)
		}
		return ring, nil
	}
}

// TokenStore persists the single access token. Storage failures are
// logged and never returned; a broken keyring means no persistence.
type TokenStore struct {
	open OpenFunc
	log  zerolog.Logger

	once sync.Once
	ring keyring.Keyring
	err  error
}

// NewTokenStore creates a store. The keyring is opened on first use.
func NewTokenStore(open OpenFunc, log zerolog.Logger) *TokenStore {
	return &TokenStore{
		open: open,
		log:  log.With().Str("component", "credential").Logger(),
	}
}

func (s *TokenStore) keyring() (keyring.Keyring, error) {
	s.once.Do(func() {
		s.ring, s.err = s.open()
		if s.err != nil {
			s.log.Warn().Err(s.err).Msg("Keyring unavailable, token will not be persisted")
		}
	})
	return s.ring, s.err
}

// Load returns the saved token, or "" when none exists or the keyring is
// inaccessible.
func (s *TokenStore) Load() string {
	ring, err := s.keyring()
	if err != nil {
		return ""
	}

	item, err := ring.Get(TokenKey)
	if err != nil {
		if !errors.Is(err, keyring.ErrKeyNotFound) {
			s.log.Warn().Err(err).Msg("Reading stored token failed")
		}
		return ""
	}
	return string(item.Data)
}

// Save persists token.
func (s *TokenStore) Save(token string) {
	ring, err := s.keyring()
	if err != nil {
		return
	}

	err = ring.Set(keyring.Item{
		Key:   TokenKey,
		Data:  []byte(token),
		Label: "LNemail access token",
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Saving token failed")
	}
}

// Clear removes the stored token. A missing token is not an error worth
// surfacing but is still logged at debug level.
func (s *TokenStore) Clear() {
	ring, err := s.keyring()
	if err != nil {
		return
	}

	if err := ring.Remove(TokenKey); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			s.log.Debug().Msg("No stored token to clear")
			return
		}
		s.log.Warn().Err(err).Msg("Clearing token failed")
	}
}
