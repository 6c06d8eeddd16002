package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence/file"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// postgres:// URLs open PostgreSQL; anything else is treated as a directory
// path for file persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	return parts[0]
}
