package auth

import (
	"os"
	"time"
)

const (
	envAuthToken = "FOLLOWSCOPE_AUTH_TOKEN"
	envCT0       = "FOLLOWSCOPE_CT0"
	envUserID    = "FOLLOWSCOPE_USER_ID"
	envUserAgent = "FOLLOWSCOPE_USER_AGENT"
	envUsername  = "FOLLOWSCOPE_USERNAME"
)

// EnvironmentStore is a read-only CredentialStore backed by FOLLOWSCOPE_* variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from the environment. The username argument is
// ignored unless FOLLOWSCOPE_USERNAME is unset.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	authToken := os.Getenv(envAuthToken)
	ct0 := os.Getenv(envCT0)
	if authToken == "" || ct0 == "" {
		return nil, ErrCredentialsNotFound
	}

	if name := os.Getenv(envUsername); name != "" {
		username = name
	}
	if username == "" {
		username = "default"
	}

	return &Account{
		Username:     username,
		UserID:       os.Getenv(envUserID),
		AuthToken:    authToken,
		CT0:          ct0,
		UserAgent:    os.Getenv(envUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv(envAuthToken) != "" && os.Getenv(envCT0) != ""
}
