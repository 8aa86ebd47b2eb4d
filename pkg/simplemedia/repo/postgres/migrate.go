package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies every schema file in name order. The statements are
// idempotent, so running it against an up-to-date database is harmless.
func Migrate(ctx context.Context, db DBTX) error {
	files, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := fs.ReadFile(schemaFS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		slog.Info("schema applied", "file", name)
	}
	return nil
}
