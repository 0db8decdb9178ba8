package migration

import "embed"

const migrationsDir = "migrations"

// Only up migrations ship with the binary. Rollbacks are operator
// driven and run from the repo.
//
//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS
