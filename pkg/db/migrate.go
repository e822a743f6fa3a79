package db

import (
	"context"
	"fmt"
	"io"

	"github.com/quatton/qsys/pkg/db/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrate applies pending migrations and reports progress to out.
func Migrate(ctx context.Context, db *bun.DB, out io.Writer) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	if group.IsZero() {
		fmt.Fprintln(out, "Database is up to date")
		return nil
	}

	fmt.Fprintf(out, "Migrated to %s\n", group)
	return nil
}

// Rollback reverts the last migration group.
func Rollback(ctx context.Context, db *bun.DB, out io.Writer) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)

	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("failed to roll back: %w", err)
	}

	if group.IsZero() {
		fmt.Fprintln(out, "No groups to roll back")
		return nil
	}

	fmt.Fprintf(out, "Rolled back %s\n", group)
	return nil
}
