package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const tokensFile = "tokens.json"

var _ TokenStore = (*FileStore)(nil)

// FileStore persists the token pair as an oauth2.Token document on the
// local filesystem.
type FileStore struct {
	baseDir string

	mu sync.Mutex
}

// NewFileStore creates a new file backed token store.
// If baseDir is empty, uses ~/.polly/credentials/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".polly", "credentials")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("token store initialized")

	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the location of the tokens file.
func (s *FileStore) Path() string {
	return filepath.Join(s.baseDir, tokensFile)
}

// Save writes both tokens atomically.
func (s *FileStore) Save(access, refresh string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(newToken(access, refresh))
}

func newToken(access, refresh string) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}
	if exp, err := AccessTokenExpiry(access); err == nil {
		tok.Expiry = exp
	}
	return tok
}

func (s *FileStore) ReadAccess() (string, error) {
	tok, err := s.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (s *FileStore) ReadRefresh() (string, error) {
	tok, err := s.Token()
	if err != nil {
		return "", err
	}
	return tok.RefreshToken, nil
}

// Token returns the stored document. A document holding only one of the
// two tokens is reported as ErrTokenNotFound.
func (s *FileStore) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

// UpdateAccess stores a new access token when refresh is still the stored
// refresh token.
func (s *FileStore) UpdateAccess(refresh, access string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.read()
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return ErrTokenChanged
	case err != nil:
		return err
	case tok.RefreshToken != refresh:
		return ErrTokenChanged
	}

	return s.write(newToken(access, refresh))
}

func (s *FileStore) read() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse tokens: %w", err)
	}

	if validatePair(tok.AccessToken, tok.RefreshToken) != nil {
		return nil, ErrTokenNotFound
	}

	return &tok, nil
}

// Clear removes the tokens file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove tokens: %w", err)
	}

	log.Debug().Str("path", s.Path()).Msg("tokens cleared")

	return nil
}

// write stores the document via a temp file and rename.
func (s *FileStore) write(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	path := s.Path()
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write tokens: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	return nil
}
