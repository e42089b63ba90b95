package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore implements SecretStore over IMGPROBE_<NAME> variables.
// It is read-only.
type EnvironmentStore struct {
	// Names lists the secrets List reports on
	Names []string
}

// NewEnvironmentStore creates an environment store that knows the well-known secret names
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{Names: []string{SecretCatalogAPIKey, SecretServiceKey}}
}

// EnvVar returns the environment variable consulted for a secret name
func EnvVar(name string) string {
	return "IMGPROBE_" + strings.ToUpper(name)
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(secret *Secret) error {
	return ErrStoreUnavailable
}

// Retrieve reads the secret from its environment variable
func (e *EnvironmentStore) Retrieve(name string) (*Secret, error) {
	if name == "" {
		return nil, ErrInvalidSecret
	}

	value := os.Getenv(EnvVar(name))
	if value == "" {
		return nil, ErrSecretNotFound
	}

	return &Secret{
		Name:         name,
		Value:        value,
		LastModified: time.Time{},
	}, nil
}

// List returns the known secrets that are set in the environment
func (e *EnvironmentStore) List() ([]*Secret, error) {
	var secrets []*Secret
	for _, name := range e.Names {
		if secret, err := e.Retrieve(name); err == nil {
			secrets = append(secrets, secret)
		}
	}
	return secrets, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return name != "" && os.Getenv(EnvVar(name)) != ""
}
