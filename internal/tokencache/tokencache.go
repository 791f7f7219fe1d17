// Package tokencache persists per-account session tokens between process
// invocations. One JSON file per adapter instance is the sole durable
// session state an adapter keeps.
package tokencache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoSession is returned when no reusable session token exists, either
// because the file is missing or because the stored token was stale.
var ErrNoSession = errors.New("no valid session token")

// SessionToken is the persisted session credential for one account.
type SessionToken struct {
	Owner    string    `json:"owner"`
	Token    string    `json:"token"`
	UserID   string    `json:"user_id,omitempty"`
	Expiry   time.Time `json:"expiry"`
	Platform string    `json:"platform"`
}

// Valid reports whether the token belongs to owner and has not expired.
func (t *SessionToken) Valid(owner string) bool {
	return t != nil && t.Token != "" && t.Owner == owner && time.Now().Before(t.Expiry)
}

// Store reads and writes the token file for one account.
type Store struct {
	path string
}

// NewStore returns a store backed by <cacheDir>/auth/<accountKey>.json.
func NewStore(cacheDir, accountKey string) *Store {
	return &Store{path: filepath.Join(cacheDir, "auth", accountKey+".json")}
}

// Path returns the location of the token file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored token if it is still usable by owner. A token
// with the wrong owner or a past expiry is discarded, never reused: the
// file is removed and ErrNoSession returned.
func (s *Store) Load(owner string) (*SessionToken, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading token file %s: %w", s.path, err)
	}

	var t SessionToken
	if err := json.Unmarshal(data, &t); err != nil {
		_ = os.Remove(s.path)
		return nil, fmt.Errorf("corrupt token file %s: %w", s.path, err)
	}

	if !t.Valid(owner) {
		_ = os.Remove(s.path)
		return nil, ErrNoSession
	}

	return &t, nil
}

// Save writes the token file, creating the auth directory if needed.
func (s *Store) Save(t *SessionToken) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token cache directory: %w", err)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling session token: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the token file if present.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
