package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// DefaultStoreFileName is the file name used for the persisted credential
// record inside the webshelf config directory.
const DefaultStoreFileName = "credentials.json"

// Store persists exactly one credential record.
//
// Load returns (nil, nil) when no record has been saved yet. A non-nil error
// means the record exists but could not be read or parsed; callers decide
// whether that is fatal (the Manager treats it as absent).
type Store interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
}

// FileStore stores the credential record as a JSON file at a fixed path.
// It assumes a single writing process; no cross-process locking is done.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed credential store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStorePath returns the default credential file location,
// e.g. ~/.config/webshelf/credentials.json on Linux.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user config directory: %w", err)
	}
	return filepath.Join(dir, "webshelf", DefaultStoreFileName), nil
}

// Path returns the file path this store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted credential record. A missing file is not an
// error: it returns (nil, nil).
func (s *FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("credential file %s contains no access token", s.path)
	}

	return &token, nil
}

// Save writes the credential record, replacing any previous one. The record
// is written as a whole; there are no partial-field updates.
func (s *FileStore) Save(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("cannot save nil credential")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	return nil
}
