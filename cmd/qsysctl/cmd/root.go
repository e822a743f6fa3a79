package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/quatton/qsys/pkg/qlog"
	"github.com/quatton/qsys/pkg/qsdk"
	"github.com/spf13/cobra"
)

type contextKey string

const (
	configContextKey contextKey = "qsysconfig"
	loggerContextKey contextKey = "qsyslogger"
)

// Flags that override a config key when set on the command line.
var flagKeys = map[string]string{
	"base-url": qsdk.BaseUrlKey,
	"api-key":  qsdk.ApiKeyKey,
	"output":   qsdk.OutputKey,
}

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "qsysctl",
		Short: "CLI for the SystemLink systems management job service",
		Long: `qsysctl creates, lists, queries and cancels systems management jobs
on a SystemLink server (or the local qsysemu emulator).

Configuration is read from qsys.yaml or .qsys/config.yaml in the working
directory and from QSYS_* environment variables. Flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := qsdk.LoadConfig(cfgFile)
			if err != nil {
				return err
			}

			for flag, key := range flagKeys {
				f := cmd.Flags().Lookup(flag)
				if f == nil || !f.Changed {
					continue
				}
				if err := cfg.Set(key, f.Value.String()); err != nil {
					return err
				}
			}

			logger := qlog.NewQuiet()
			if verbose {
				logger = qlog.NewVerbose()
			}
			if used := cfg.ConfigFileUsed(); used != "" {
				logger.Debug("loaded config", "file", used)
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			ctx = context.WithValue(ctx, loggerContextKey, logger)
			cmd.SetContext(ctx)

			return nil
		},
	}
)

// GetConfig retrieves the Config from the command context
func GetConfig(cmd *cobra.Command) (*qsdk.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*qsdk.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

func getLogger(cmd *cobra.Command) *qlog.Logger {
	if l, ok := cmd.Context().Value(loggerContextKey).(*qlog.Logger); ok {
		return l
	}
	return qlog.NewNop()
}

// newSdk builds the job client for the current invocation.
func newSdk(cmd *cobra.Command) (*qsdk.Sdk, *qsdk.Config, error) {
	cfg, err := GetConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	sdk, err := qsdk.NewSdk(cfg, getLogger(cmd))
	if err != nil {
		return nil, nil, err
	}
	return sdk, cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, explainError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: qsys.yaml, .qsys.yaml, .qsys/config.yaml")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL of the SystemLink server (overrides config)")
	rootCmd.PersistentFlags().String("api-key", "", "API key sent as x-ni-api-key (overrides config and keyring)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and config resolution to stderr")
}
