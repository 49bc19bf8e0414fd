package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zynthex/zynthex/pkg/models"
)

// CredentialRepository handles provider credential database operations.
type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	query := `
		SELECT id, user_id, provider, type, data, created_at, updated_at
		FROM credentials
		WHERE user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	defer func() { _ = rows.Close() }()

	credentials := make([]*models.Credential, 0)

	for rows.Next() {
		var (
			credential     models.Credential
			credentialType string
			data           []byte
		)

		err := rows.Scan(&credential.ID, &credential.UserID, &credential.Provider,
			&credentialType, &data, &credential.CreatedAt, &credential.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		credential.Type = models.CredentialType(credentialType)

		if err := json.Unmarshal(data, &credential.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal credential data: %w", err)
		}

		credentials = append(credentials, &credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return credentials, nil
}

func (r *CredentialRepository) Save(ctx context.Context, credential *models.Credential) error {
	now := time.Now().UTC()

	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = now
	}

	credential.UpdatedAt = now

	if credential.ID == "" {
		credential.ID = uuid.NewString()
	}

	data, err := json.Marshal(credential.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal credential data: %w", err)
	}

	query := `
		INSERT INTO credentials (id, user_id, provider, type, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			type = EXCLUDED.type,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		credential.ID, credential.UserID, credential.Provider,
		string(credential.Type), data, credential.CreatedAt, credential.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save credential for %s: %w", credential.Provider, err)
	}

	return nil
}
