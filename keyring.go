package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "artha-cli"
	keyringKey     = "backend_token"
)

// TokenData holds the backend bearer token and its expiry.
type TokenData struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
}

// SaveTokenToKeyring securely stores the backend token in the OS keyring.
// A zero expiry means the token does not expire.
func SaveTokenToKeyring(accessToken string, expiry time.Time) error {
	data := TokenData{
		AccessToken: accessToken,
		Expiry:      expiry,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	if err := keyring.Set(keyringService, keyringKey, string(jsonData)); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// GetTokenFromKeyring retrieves the backend token from the OS keyring. A
// missing token is not an error; it returns nil.
func GetTokenFromKeyring() (*TokenData, error) {
	jsonData, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve token from keyring: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}
	return &data, nil
}

// DeleteTokenFromKeyring removes the backend token from the OS keyring.
func DeleteTokenFromKeyring() error {
	err := keyring.Delete(keyringService, keyringKey)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsTokenExpired checks if the token has expired.
func IsTokenExpired(data *TokenData) bool {
	if data == nil {
		return true
	}
	if data.Expiry.IsZero() {
		return false
	}
	// Add a 5-minute buffer before actual expiry
	return time.Now().After(data.Expiry.Add(-5 * time.Minute))
}

// keyringCredential returns a CredentialFunc backed by the OS keyring. It
// yields an empty token when nothing usable is stored; the backend's 401
// response then drives the login hint.
func keyringCredential() CredentialFunc {
	return func(_ context.Context) (string, error) {
		data, err := GetTokenFromKeyring()
		if err != nil {
			return "", err
		}
		if IsTokenExpired(data) {
			return "", nil
		}
		return data.AccessToken, nil
	}
}
