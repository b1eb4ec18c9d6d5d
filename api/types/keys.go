package types

import (
	"encoding/json"
	"fmt"
	"os"
)

// Keys is the credential bundle for the official API. The file comes
// from the developer portal and holds user-context OAuth 1.0a secrets,
// so it must not be world-readable.
type Keys struct {
	ConsumerKey       string `json:"consumer_key"`
	ConsumerSecret    string `json:"consumer_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`

	// BearerToken may be present in the file but is never used: all
	// primary operations run with user auth.
	BearerToken string `json:"bearer_token,omitempty"`
}

// LoadKeys reads the credential bundle from path and discards the
// bearer token.
func LoadKeys(path string) (*Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading keys file: %w", err)
	}
	keys := &Keys{}
	if err := json.Unmarshal(data, keys); err != nil {
		return nil, fmt.Errorf("error parsing keys file %s: %w", path, err)
	}
	keys.BearerToken = ""
	return keys, nil
}
