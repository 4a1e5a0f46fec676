package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// getMigrationsFS returns the embedded migrations rooted at the migration
// files themselves.
func getMigrationsFS() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

// MigrationsFS exposes the embedded migrations to the command line tools.
func MigrationsFS() (fs.FS, error) {
	return getMigrationsFS()
}
