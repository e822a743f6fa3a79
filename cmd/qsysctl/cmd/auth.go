package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quatton/qsys/pkg/qsdk"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the API key used to talk to the server (login, logout, status)",
	Long: `Manage authentication against a SystemLink server.

API keys are stored in the OS keyring, one entry per base URL, and picked up
by every other qsysctl command when no apiKey is configured explicitly.

Examples:
  qsysctl auth login --api-key <KEY>
  qsysctl auth status
  qsysctl auth logout`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify an API key and store it in the keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}

		key, _ := cmd.Flags().GetString("api-key")
		if key == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading API key: %w", err)
			}
			key = strings.TrimSpace(line)
		}
		if key == "" {
			return errors.New("an API key is required")
		}

		if err := cfg.Set(qsdk.ApiKeyKey, key); err != nil {
			return err
		}
		sdk, err := qsdk.NewSdk(cfg, getLogger(cmd))
		if err != nil {
			return err
		}
		if _, err := sdk.Jobs.GetJobSummary(cmd.Context()); err != nil {
			return err
		}

		if err := qsdk.SaveAPIKey(cfg.BaseURL, key); err != nil {
			return fmt.Errorf("saving API key to keyring: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key for %s saved\n", cfg.BaseURL)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API key for the current base URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		if err := qsdk.DeleteAPIKey(cfg.BaseURL); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", cfg.BaseURL)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials would be used and whether the server accepts them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Server:  %s\n", cfg.BaseURL)

		source := "none"
		key := cfg.APIKey
		if key != "" {
			source = "config"
		} else if stored, _ := qsdk.LoadAPIKey(cfg.BaseURL); stored != "" {
			key, source = stored, "keyring"
		}
		fmt.Fprintf(out, "API key: %s (%s)\n", maskSecret(key), source)

		if cfg.Token != "" {
			if claims, err := qsdk.FromToken(cfg.Token); err == nil {
				exp := "never"
				if !claims.Expires.IsZero() {
					exp = claims.Expires.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "Token:   subject=%s expires=%s\n", claims.Subject, exp)
			} else {
				fmt.Fprintf(out, "Token:   unreadable (%v)\n", err)
			}
		}

		sdk, err := qsdk.NewSdk(cfg, getLogger(cmd))
		if err != nil {
			return err
		}
		if _, err := sdk.Jobs.GetJobSummary(cmd.Context()); err != nil {
			fmt.Fprintf(out, "Status:  %s\n", explainError(err))
			return nil
		}
		fmt.Fprintln(out, "Status:  authenticated")
		return nil
	},
}

func maskSecret(s string) string {
	if s == "" {
		return "-"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
}
