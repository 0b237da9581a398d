package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const credentialsFile = "credentials.json"

// Credentials is the cached login state for the sync server.
type Credentials struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

// LoadCredentials reads the cached credentials from the data directory.
func LoadCredentials(dataDir string) (*Credentials, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("app: read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("app: parse credentials: %w", err)
	}
	return &creds, nil
}

// SaveCredentials writes the credentials with private permissions.
func SaveCredentials(dataDir string, creds *Credentials) error {
	if err := ensureDataDir(dataDir); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("app: encode credentials: %w", err)
	}
	path := filepath.Join(dataDir, credentialsFile)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("app: write credentials: %w", err)
	}
	return nil
}
