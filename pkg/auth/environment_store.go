package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment
// variables. It is read-only and mainly serves CI and scripted use.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(profile *Profile) error {
	return ErrStoreUnavailable
}

// Retrieve builds a profile from environment variables.
func (e *EnvironmentStore) Retrieve(name string) (*Profile, error) {
	clientID := os.Getenv("DLPCTL_API_CLIENT_ID")
	clientSecret := os.Getenv("DLPCTL_API_CLIENT_SECRET")
	url := os.Getenv("DLPCTL_URL")

	if clientID == "" || clientSecret == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables carry no profile name.
	if name == "" {
		name = "default"
	}

	return &Profile{
		Name:         name,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		URL:          url,
		LastModified: time.Now(),
	}, nil
}

// List returns a single profile if environment variables are set.
func (e *EnvironmentStore) List() ([]*Profile, error) {
	profile, err := e.Retrieve("")
	if err != nil {
		return []*Profile{}, nil
	}
	return []*Profile{profile}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials are set.
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("DLPCTL_API_CLIENT_ID") != "" &&
		os.Getenv("DLPCTL_API_CLIENT_SECRET") != ""
}
