package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Execer is the subset of pgx used to apply DDL
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Migrate applies every schema file in lexical order. The statements are
// idempotent, so running it on every deploy is safe.
func Migrate(ctx context.Context, conn Execer) error {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("listing schema files: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		ddl, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if _, err := conn.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("applying %s: %w", name, err)
		}
		log.Info().Str("file", name).Msg("Applied schema")
	}
	return nil
}
