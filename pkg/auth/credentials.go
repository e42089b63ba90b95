package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Well-known secret names
const (
	SecretCatalogAPIKey = "catalog_api_key"
	SecretServiceKey    = "token_store_key"
)

// Secret is a named credential such as an API key or service key
type Secret struct {
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// SecretStore is the interface for storing and retrieving secrets
type SecretStore interface {
	// Store saves a secret under its name
	Store(secret *Secret) error

	// Retrieve gets a secret by name
	Retrieve(name string) (*Secret, error)

	// List returns all stored secrets
	List() ([]*Secret, error)

	// Delete removes a secret by name
	Delete(name string) error

	// Exists checks if a secret exists
	Exists(name string) bool
}

// Manager handles secret storage with fallback mechanisms
type Manager struct {
	stores []SecretStore
}

// NewManager creates a manager backed by the system keyring when available,
// an encrypted file and finally the environment. The encrypted file asks p
// for its passphrase unless IMGPROBE_PASSPHRASE is set.
func NewManager(p *Prompter) (*Manager, error) {
	var stores []SecretStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "secrets.enc"), EnvOrPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, tried in order
func NewManagerWithStores(stores ...SecretStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a secret using the first store that accepts it
func (m *Manager) Store(name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("secret name is required")
	}
	if value == "" {
		return errors.New("secret value is required")
	}

	secret := &Secret{Name: name, Value: value, LastModified: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(secret)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store secret: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets a secret from the first store that has it
func (m *Manager) Retrieve(name string) (*Secret, error) {
	for _, store := range m.stores {
		if secret, err := store.Retrieve(name); err == nil && secret != nil {
			return secret, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// Value returns the secret value for name, or "" when it is not stored anywhere
func (m *Manager) Value(name string) string {
	secret, err := m.Retrieve(name)
	if err != nil {
		return ""
	}
	return secret.Value
}

// List returns all secrets from all stores, newest version per name, sorted by name
func (m *Manager) List() ([]*Secret, error) {
	byName := make(map[string]*Secret)

	for _, store := range m.stores {
		secrets, err := store.List()
		if err != nil {
			continue
		}
		for _, secret := range secrets {
			if existing, ok := byName[secret.Name]; !ok || secret.LastModified.After(existing.LastModified) {
				byName[secret.Name] = secret
			}
		}
	}

	result := make([]*Secret, 0, len(byName))
	for _, secret := range byName {
		result = append(result, secret)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// Delete removes a secret from every store that holds it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrSecretNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete secret: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "imgprobe")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "imgprobe")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "imgprobe")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "imgprobe")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy of the secret with its value masked
func Sanitize(secret *Secret) *Secret {
	if secret == nil {
		return nil
	}

	return &Secret{
		Name:         secret.Name,
		Value:        maskString(secret.Value),
		LastModified: secret.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrSecretNotFound   = errors.New("secret not found")
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrStoreUnavailable = errors.New("secret store unavailable")
)
