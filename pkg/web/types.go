// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/zynthex/zynthex/pkg/models"

// SaveWorkflowRequest is the request body for creating or replacing a
// workflow. Content carries the full node/edge graph from the editor.
type SaveWorkflowRequest struct {
	Name     string                    `json:"name"     validate:"required,min=3"`
	UserID   string                    `json:"user_id"  validate:"required"`
	Deployed bool                      `json:"deployed"`
	Content  models.WorkflowDefinition `json:"content"`
}

// SaveCredentialRequest is the request body for storing a provider
// credential. Data is the provider-specific secret material.
type SaveCredentialRequest struct {
	UserID   string         `json:"user_id"  validate:"required"`
	Provider string         `json:"provider" validate:"required"`
	Type     string         `json:"type"     validate:"required,oneof=api_key oauth"`
	Data     map[string]any `json:"data"`
}

// CredentialResponse is the redacted view of a stored credential. Secret
// material never leaves the server.
type CredentialResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
	Type     string `json:"type"`
}

func toCredentialResponse(credential *models.Credential) CredentialResponse {
	return CredentialResponse{
		ID:       credential.ID,
		UserID:   credential.UserID,
		Provider: credential.Provider,
		Type:     string(credential.Type),
	}
}
