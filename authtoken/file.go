package authtoken

import (
	"encoding/json"
	"fmt"
	"os"
)

// TokenEntry binds a bearer token to the user it was issued to.
type TokenEntry struct {
	Token  string `json:"token" mapstructure:"token"`
	UserID string `json:"user_id" mapstructure:"user_id"`
}

// LoadTokensFromFile loads auth tokens from a JSON file. The file should
// contain an array of token entries:
//
//	[
//	  {"token": "tok_2f9a...", "user_id": "u1"},
//	  {"token": "tok_81bc...", "user_id": "u2"}
//	]
//
// Returns a map of token to user id.
func LoadTokensFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read tokens file: %w", err)
	}

	var entries []TokenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse tokens file: %w", err)
	}

	tokens := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Token != "" && e.UserID != "" {
			tokens[e.Token] = e.UserID
		}
	}

	return tokens, nil
}
