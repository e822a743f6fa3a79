package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects every migration in this package; files register
// themselves from init and are named by their timestamped file name.
var Migrations = migrate.NewMigrations()
