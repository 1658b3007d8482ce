// Package authtoken provides Verifier implementations for resolving bearer
// tokens to user identities.
package authtoken

import (
	"fmt"

	"github.com/dayli-app/dayli"
)

// Verifier resolves a bearer token to the user id it was issued to.
type Verifier interface {
	Verify(token string) (string, error)
}

// TokensConfig holds configuration for loading auth tokens.
type TokensConfig struct {
	Inline []TokenEntry `mapstructure:"inline"` // Inline token entries from config
	File   string       `mapstructure:"file"`   // Path to JSON file containing token entries
}

// NewVerifier creates a Verifier from the given configuration. Tokens are
// loaded from both inline config and file (if specified); file entries take
// precedence over inline entries on duplicates.
func NewVerifier(cfg TokensConfig) (Verifier, error) {
	tokens := make(map[string]string)

	for _, e := range cfg.Inline {
		if e.Token != "" && e.UserID != "" {
			tokens[e.Token] = e.UserID
		}
	}

	if cfg.File != "" {
		fileTokens, err := LoadTokensFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for token, userID := range fileTokens {
			tokens[token] = userID
		}
	}

	return NewMapVerifier(tokens), nil
}

// MapVerifier resolves tokens from an in-memory map. Suitable for
// configuration file-based token storage.
type MapVerifier struct {
	tokens map[string]string
}

// NewMapVerifier creates a map-based verifier from token to user id.
func NewMapVerifier(tokens map[string]string) *MapVerifier {
	return &MapVerifier{tokens: tokens}
}

// Verify returns the user id a token belongs to. The token value itself
// never appears in the returned error.
func (v *MapVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("missing token: %w", dayli.ErrUnauthorized)
	}

	userID, found := v.tokens[token]
	if !found {
		return "", fmt.Errorf("unknown token: %w", dayli.ErrUnauthorized)
	}
	return userID, nil
}
