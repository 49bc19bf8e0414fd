package models

import "time"

// CredentialType discriminates how a credential authenticates.
type CredentialType string

const (
	CredentialTypeAPIKey CredentialType = "api_key"
	CredentialTypeOAuth  CredentialType = "oauth"
)

// Credential is one user-scoped secret for a provider. Adapters never fetch
// credentials themselves; the executor looks them up by user id and hands
// each adapter only its own provider's entry.
type Credential struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Provider  string         `json:"provider" validate:"required"`
	Type      CredentialType `json:"type"     validate:"required"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// APIKey returns the stored api key for api_key credentials, or "".
func (c *Credential) APIKey() string {
	if c == nil || c.Type != CredentialTypeAPIKey {
		return ""
	}

	key, _ := c.Data["apiKey"].(string)

	return key
}

// AccessToken returns the stored token for oauth credentials, or "".
func (c *Credential) AccessToken() string {
	if c == nil || c.Type != CredentialTypeOAuth {
		return ""
	}

	token, _ := c.Data["accessToken"].(string)

	return token
}
