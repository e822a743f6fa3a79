package cmd

import (
	"context"
	"io"

	"github.com/quatton/qsys/pkg/db"
	"github.com/quatton/qsys/pkg/qapi/config"
	"github.com/quatton/qsys/pkg/qapi/services"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres migrations for STORE=postgres",
	Long: `Apply pending migrations to the database configured by DB_HOST, DB_PORT,
DB_USER, DB_PASSWORD, DB_NAME and DB_SSLMODE. Set BUNDEBUG=2 to log queries.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, db.Migrate)
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, db.Rollback)
	},
}

func withDatabase(cmd *cobra.Command, fn func(context.Context, *bun.DB, io.Writer) error) error {
	cfg, err := config.ValidateEnv()
	if err != nil {
		return err
	}

	database, err := db.New(cmd.Context(), services.DBConfig(cfg))
	if err != nil {
		return err
	}
	defer database.Close()

	return fn(cmd.Context(), database, cmd.OutOrStdout())
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(rollbackCmd)
}
