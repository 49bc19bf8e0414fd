package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/zynthex/zynthex/pkg/models"
)

// CredentialRepository stores one JSON document per credential under
// <root>/credentials/<id>.json.
type CredentialRepository struct {
	root string
}

func NewCredentialRepository(root string) *CredentialRepository {
	return &CredentialRepository{root: root}
}

func (cr *CredentialRepository) dir() string {
	return path.Join(cr.root, "credentials")
}

func (cr *CredentialRepository) ListByUser(_ context.Context, userID string) ([]*models.Credential, error) {
	root := os.DirFS(cr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list credential files: %w", err)
	}

	credentials := make([]*models.Credential, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		body, err := os.ReadFile(filepath.Clean(path.Join(cr.dir(), file)))
		if err != nil {
			return nil, fmt.Errorf("failed to read credential %s: %w", file, err)
		}

		var credential models.Credential

		if err := json.Unmarshal(body, &credential); err != nil {
			return nil, fmt.Errorf("failed to unmarshal credential %s: %w", file, err)
		}

		if credential.UserID == userID {
			credentials = append(credentials, &credential)
		}
	}

	return credentials, nil
}

func (cr *CredentialRepository) Save(_ context.Context, credential *models.Credential) error {
	if err := os.MkdirAll(cr.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	now := time.Now().UTC()
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = now
	}

	credential.UpdatedAt = now

	data, err := json.MarshalIndent(credential, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential %s: %w", credential.ID, err)
	}

	return os.WriteFile(path.Join(cr.dir(), credential.ID+".json"), data, 0600)
}
