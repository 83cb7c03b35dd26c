package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// Read-only: CI and scripted runs set EXAMSCRAPER_USERNAME and
// EXAMSCRAPER_PASSWORD instead of touching the keychain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-variable credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for the environment
func (s *EnvironmentStore) Store(creds *Credentials) error {
	return ErrInvalidCredentials
}

// Retrieve gets credentials from the environment. An empty username matches
// whatever account the environment provides.
func (s *EnvironmentStore) Retrieve(username string) (*Credentials, error) {
	envUser := os.Getenv("EXAMSCRAPER_USERNAME")
	envPass := os.Getenv("EXAMSCRAPER_PASSWORD")

	if envUser == "" || envPass == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != envUser {
		return nil, ErrCredentialsNotFound
	}

	return &Credentials{
		Username:     envUser,
		Password:     envPass,
		LastModified: time.Now(),
	}, nil
}

// List returns the environment account when present
func (s *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := s.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for the environment
func (s *EnvironmentStore) Delete(username string) error {
	return ErrCredentialsNotFound
}

// Exists checks if the environment provides the given account
func (s *EnvironmentStore) Exists(username string) bool {
	creds, err := s.Retrieve(username)
	return err == nil && creds != nil
}
