package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Commands accepted by Migrator.Run.
var runnable = map[string]struct{}{
	"up":        {},
	"up-by-one": {},
	"down":      {},
	"redo":      {},
	"status":    {},
	"reset":     {},
}

// Migrator applies the SQL migrations in dir against one database.
type Migrator struct {
	db      *sql.DB
	dir     string
	dialect string
}

// New builds a Migrator. driver is the configured DB driver; anything but
// sqlite runs the postgres dialect.
func New(db *sql.DB, dir, driver string) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	dialect := "postgres"
	if strings.EqualFold(strings.TrimSpace(driver), "sqlite") {
		dialect = "sqlite3"
	}
	return &Migrator{db: db, dir: dir, dialect: dialect}, nil
}

// Run executes one goose command. goose prints status output to stdout.
func (m *Migrator) Run(ctx context.Context, command string) error {
	if _, ok := runnable[command]; !ok {
		return fmt.Errorf("unsupported migrate command %q", command)
	}
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, m.db, m.dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// ToVersion migrates up or down until the database sits at targetVersion.
func (m *Migrator) ToVersion(ctx context.Context, targetVersion string) error {
	target, err := strconv.ParseInt(strings.TrimSpace(targetVersion), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	current, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, m.db, m.dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, m.db, m.dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
