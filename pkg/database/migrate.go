package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

var gooseRunFunc = goose.RunContext // mockable

// Migrator applies the embedded goose migrations to a Postgres database.
type Migrator struct {
	db  *sql.DB
	dir string
}

// NewMigrator binds goose to the migration files in fsys under dir.
func NewMigrator(db *sql.DB, fsys fs.FS, dir string) (*Migrator, error) {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	return &Migrator{db: db, dir: dir}, nil
}

// Run executes a goose command such as up, down or status.
func (m *Migrator) Run(ctx context.Context, command string, args ...string) error {
	return gooseRunFunc(ctx, command, m.db, m.dir, args...)
}
