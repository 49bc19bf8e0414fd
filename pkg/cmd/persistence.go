// Package cmd provides the shared wiring helpers used by binaries:
// persistence, event bus and cache construction from configuration values.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/zynthex/zynthex/pkg/persistence"
	"github.com/zynthex/zynthex/pkg/persistence/file"
	"github.com/zynthex/zynthex/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// postgres:// and postgresql:// URLs get the SQL backend; anything else falls
// back to the JSON file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
