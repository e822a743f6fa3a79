package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quatton/qsys/pkg/qapi"
	"github.com/quatton/qsys/pkg/qapi/config"
	"github.com/quatton/qsys/pkg/qapi/services"
	"github.com/quatton/qsys/pkg/qlog"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the emulator HTTP server",
	Long: `Start the emulator. Configuration comes from the environment (and a .env
file in development): PORT, STORE=memory|valkey|postgres, API_KEY,
AUTH_SECRET, VALKEY_*, DB_*.`,
	RunE: run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func newLogger(cfg *config.EnvConfig) (*qlog.Logger, error) {
	level, err := qlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return qlog.NewLogger(level, os.Stderr), nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.ValidateEnv()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	cfg.Print(func(format string, a ...any) { logger.Info(strings.TrimRight(fmt.Sprintf(format, a...), "\n")) })

	svcs, err := services.NewServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	api := qapi.NewApi(qapi.WithRequestLog())
	api.Register(svcs, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("emulator starting", "addr", srv.Addr, "store", svcs.StoreName)
	logger.Info("openapi docs", "url", cfg.BaseURL+"/docs")
	if !svcs.IAM.Enabled() {
		logger.Warn("API_KEY and AUTH_SECRET are unset; requests are not authenticated")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
