// Package credential stores the session token in the OS keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/types"
)

// tokenKey is the keyring item holding the session token.
const tokenKey = "session_token"

// Store reads and writes the session credential. The zero value is not
// usable; create one with NewStore.
type Store struct {
	service string
	fileDir string
}

// NewStore creates a credential store backed by the OS keyring under the
// given service name. fileDir is the fallback location when no native
// keyring backend is available.
func NewStore(service, fileDir string) *Store {
	return &Store{service: service, fileDir: fileDir}
}

func (s *Store) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: s.service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  s.fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(s.service + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Token returns the stored session token. It returns types.ErrAuthMissing
// when no token is stored or the stored token is an expired JWT.
func (s *Store) Token() (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(tokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", types.ErrAuthMissing
		}
		return "", fmt.Errorf("getting session token: %w", err)
	}

	token := string(item.Data)
	if token == "" {
		return "", types.ErrAuthMissing
	}

	if TokenExpired(token) {
		log.Warn().Msg("Stored session token is expired")
		return "", types.ErrAuthMissing
	}

	return token, nil
}

// SetToken stores the session token.
func (s *Store) SetToken(token string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	if err := ring.Set(keyring.Item{Key: tokenKey, Data: []byte(token)}); err != nil {
		return fmt.Errorf("setting session token: %w", err)
	}

	log.Debug().Str("service", s.service).Msg("Session token stored")
	return nil
}

// DeleteToken removes the session token. Deleting an absent token is not an
// error.
func (s *Store) DeleteToken() error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	if err := ring.Remove(tokenKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting session token: %w", err)
	}

	log.Debug().Str("service", s.service).Msg("Session token deleted")
	return nil
}
