package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAccessToken reports that the token record exists but carries no
// usable access token.
var ErrNoAccessToken = errors.New("access token not present in token record")

// TokenFile reads the proxy provider's access token from a persisted JSON
// record. The record is owned by the auth flow; this reader never writes it.
type TokenFile struct {
	path string
}

// NewTokenFile points the reader at the token record path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// AccessToken returns the bearer token from the record. Absence or a
// malformed record is an error for the caller to downgrade to a warning.
func (t *TokenFile) AccessToken() (string, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return "", fmt.Errorf("failed to read token record: %w", err)
	}

	var record struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("failed to parse token record: %w", err)
	}
	if strings.TrimSpace(record.Access) == "" {
		return "", ErrNoAccessToken
	}
	return record.Access, nil
}
