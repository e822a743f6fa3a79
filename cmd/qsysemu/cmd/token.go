package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/quatton/qsys/pkg/qapi/config"
	"github.com/quatton/qsys/pkg/qapi/services/iam"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with AUTH_SECRET",
	Long: `Issue an HS256 bearer token the emulator accepts. Put it in the client
config as 'token' (or QSYS_TOKEN) to exercise bearer authentication.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ValidateEnv()
		if err != nil {
			return err
		}
		if cfg.AuthSecret == "" {
			return errors.New("AUTH_SECRET must be set to issue tokens")
		}

		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := iam.NewIAMService(cfg.APIKey, cfg.AuthSecret).IssueToken(subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("subject", "admin", "Token subject, reported as the job user")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
