package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// ErrTokenNotFound is returned by a TokenStore that holds no token yet
var ErrTokenNotFound = errors.New("no persisted token")

// TokenStore persists the OAuth token between runs
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
	Location() string
}

// FileTokenStore keeps the token as JSON in a 0600 file
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a file-backed store
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

// Load loads cached token from file
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("could not open token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("could not decode token file: %w", err)
	}
	return token, nil
}

// Save writes the token, replacing any prior value
func (s *FileTokenStore) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not save OAuth token: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

func (s *FileTokenStore) Location() string { return s.Path }

const (
	keyringService = "autoreply"
	keyringKey     = "gmail-oauth-token"
)

// KeyringTokenStore keeps the token in the OS keyring
type KeyringTokenStore struct {
	ring keyring.Keyring
}

// OpenKeyringTokenStore opens the platform keyring, falling back to an encrypted file under fileDir
func OpenKeyringTokenStore(fileDir string) (*KeyringTokenStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("autoreply-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewKeyringTokenStore(ring), nil
}

// NewKeyringTokenStore wraps an already opened keyring
func NewKeyringTokenStore(ring keyring.Keyring) *KeyringTokenStore {
	return &KeyringTokenStore{ring: ring}
}

func (s *KeyringTokenStore) Load() (*oauth2.Token, error) {
	item, err := s.ring.Get(keyringKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("getting token from keyring: %w", err)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(item.Data, token); err != nil {
		return nil, fmt.Errorf("could not decode keyring token: %w", err)
	}
	return token, nil
}

func (s *KeyringTokenStore) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("could not encode token: %w", err)
	}
	if err := s.ring.Set(keyring.Item{Key: keyringKey, Data: data, Label: "autoreply Gmail token"}); err != nil {
		return fmt.Errorf("setting token in keyring: %w", err)
	}
	return nil
}

func (s *KeyringTokenStore) Location() string {
	return "keyring:" + keyringService + "/" + keyringKey
}

var (
	_ TokenStore = (*FileTokenStore)(nil)
	_ TokenStore = (*KeyringTokenStore)(nil)
)
