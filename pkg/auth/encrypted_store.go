package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultVersion    = 2
	vaultSaltSize   = 16
	vaultKeySize    = 32
	vaultIterations = 200000
)

// VaultNames are the only secrets the encrypted file holds
var VaultNames = []string{SecretCatalogAPIKey, SecretServiceKey}

// ErrUnknownVaultSecret is returned for names outside VaultNames
var ErrUnknownVaultSecret = errors.New("secret file only holds " + SecretCatalogAPIKey + " and " + SecretServiceKey)

// vault is the on-disk layout. Each entry is sealed on its own with its
// name as additional data, so entries cannot be swapped between names.
type vault struct {
	Version int                   `json:"version"`
	Salt    string                `json:"salt"`
	Entries map[string]vaultEntry `json:"entries"`
}

type vaultEntry struct {
	Sealed       string `json:"sealed"`
	LastModified int64  `json:"last_modified"`
}

// EncryptedFileStore keeps the catalog API key and the token store key in a
// passphrase-protected file. The passphrase is only requested once the
// file has to be read or written.
type EncryptedFileStore struct {
	path       string
	passphrase PassphraseFunc

	mu   sync.Mutex
	salt string
	key  []byte
}

// NewEncryptedFileStore creates a store backed by path
func NewEncryptedFileStore(path string, passphrase PassphraseFunc) (*EncryptedFileStore, error) {
	if passphrase == nil {
		return nil, ErrNoPassphrase
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create secret directory: %w", err)
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func isVaultName(name string) bool {
	for _, n := range VaultNames {
		if n == name {
			return true
		}
	}
	return false
}

// Store seals secret into the file, keeping the other entry untouched
func (e *EncryptedFileStore) Store(secret *Secret) error {
	if secret == nil || secret.Name == "" {
		return ErrInvalidSecret
	}
	if !isVaultName(secret.Name) {
		return ErrUnknownVaultSecret
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.read()
	if err != nil {
		return err
	}
	if v == nil {
		v = &vault{Version: vaultVersion, Entries: make(map[string]vaultEntry)}
	}

	key, err := e.deriveKey(v)
	if err != nil {
		return err
	}
	sealed, err := seal(key, secret.Name, secret.Value)
	if err != nil {
		return err
	}
	v.Entries[secret.Name] = vaultEntry{Sealed: sealed, LastModified: toUnixNano(secret.LastModified)}

	return e.write(v)
}

// Retrieve opens one entry
func (e *EncryptedFileStore) Retrieve(name string) (*Secret, error) {
	if name == "" {
		return nil, ErrInvalidSecret
	}
	if !isVaultName(name) {
		return nil, ErrSecretNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.read()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrSecretNotFound
	}
	entry, ok := v.Entries[name]
	if !ok {
		return nil, ErrSecretNotFound
	}
	return e.open(v, name, entry)
}

// List opens every entry, sorted by name
func (e *EncryptedFileStore) List() ([]*Secret, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.read()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []*Secret{}, nil
	}

	names := make([]string, 0, len(v.Entries))
	for name := range v.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	secrets := make([]*Secret, 0, len(names))
	for _, name := range names {
		secret, err := e.open(v, name, v.Entries[name])
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}
	return secrets, nil
}

// Delete drops an entry. Deleting does not need the passphrase; the file
// is removed with its last entry.
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidSecret
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.read()
	if err != nil {
		return err
	}
	if v == nil {
		return ErrSecretNotFound
	}
	if _, ok := v.Entries[name]; !ok {
		return ErrSecretNotFound
	}

	delete(v.Entries, name)
	if len(v.Entries) == 0 {
		return os.Remove(e.path)
	}
	return e.write(v)
}

// Exists reports whether an entry is present without decrypting it
func (e *EncryptedFileStore) Exists(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.read()
	if err != nil || v == nil {
		return false
	}
	_, ok := v.Entries[name]
	return ok
}

// read returns nil without error when the file does not exist yet
func (e *EncryptedFileStore) read() (*vault, error) {
	content, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}

	var v vault
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("failed to parse secret file: %w", err)
	}
	if v.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported secret file version %d", v.Version)
	}
	if v.Entries == nil {
		v.Entries = make(map[string]vaultEntry)
	}
	return &v, nil
}

func (e *EncryptedFileStore) write(v *vault) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode secret file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace secret file: %w", err)
	}
	return nil
}

// deriveKey returns the key for v's salt, creating a salt for a new file
// and asking for the passphrase at most once per salt.
func (e *EncryptedFileStore) deriveKey(v *vault) ([]byte, error) {
	if v.Salt == "" {
		salt := make([]byte, vaultSaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		v.Salt = base64.StdEncoding.EncodeToString(salt)
	}
	if e.key != nil && e.salt == v.Salt {
		return e.key, nil
	}

	salt, err := base64.StdEncoding.DecodeString(v.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	pass, err := e.passphrase()
	if err != nil {
		return nil, err
	}

	e.key = pbkdf2.Key([]byte(pass), salt, vaultIterations, vaultKeySize, sha256.New)
	e.salt = v.Salt
	return e.key, nil
}

func (e *EncryptedFileStore) open(v *vault, name string, entry vaultEntry) (*Secret, error) {
	key, err := e.deriveKey(v)
	if err != nil {
		return nil, err
	}
	value, err := unseal(key, name, entry.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", name, err)
	}
	return &Secret{Name: name, Value: value, LastModified: fromUnixNano(entry.LastModified)}, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func seal(key []byte, name, value string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := gcm.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.StdEncoding.EncodeToString(out), nil
}

func unseal(key []byte, name, sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	plain, err := gcm.Open(nil, data[:gcm.NonceSize()], data[gcm.NonceSize():], []byte(name))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
