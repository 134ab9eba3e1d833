package glean

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair holds a session's access and refresh tokens. The backend rotates
// both on every refresh, so they are always stored and cleared as a unit.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether no credentials are stored.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// AccessExpiresAt returns the access token's expiry from its exp claim.
// The token is decoded without signature verification; only the backend holds
// the signing key, and the claim is used purely for display and for deciding
// when a refresh is worth attempting. Returns the zero time when the token is
// absent or not a JWT.
func (p TokenPair) AccessExpiresAt() time.Time {
	if p.AccessToken == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// TokenStore persists a session's token pair. Load returns a zero pair (not
// an error) when nothing is stored.
type TokenStore interface {
	Load() (TokenPair, error)
	Save(TokenPair) error
	Clear() error
}

// MemoryTokenStore keeps tokens in process memory. Used by tests and by
// one-shot invocations that should not persist credentials.
type MemoryTokenStore struct {
	mu   sync.Mutex
	pair TokenPair
}

// Load returns the stored pair.
func (s *MemoryTokenStore) Load() (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, nil
}

// Save replaces the stored pair.
func (s *MemoryTokenStore) Save(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

// Clear discards the stored pair.
func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	return nil
}

// FileTokenStore persists tokens as a JSON file readable only by the owner.
// This is the desktop equivalent of the browser's credential storage.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore builds a store writing to path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load reads the stored pair. A missing file yields a zero pair.
func (s *FileTokenStore) Load() (TokenPair, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TokenPair{}, nil
		}
		return TokenPair{}, fmt.Errorf("read tokens: %w", err)
	}
	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("parse tokens: %w", err)
	}
	return pair, nil
}

// Save writes the pair, creating the parent directory as needed.
func (s *FileTokenStore) Save(pair TokenPair) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write tokens: %w", err)
	}
	return nil
}

// Clear removes the token file. Removing an already-missing file is not an
// error.
func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove tokens: %w", err)
	}
	return nil
}
