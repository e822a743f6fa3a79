package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/quatton/qsys/pkg/db"
	"github.com/quatton/qsys/pkg/jobstore"
	"github.com/quatton/qsys/pkg/qapi/config"
	"github.com/quatton/qsys/pkg/qapi/services/iam"
	"github.com/quatton/qsys/pkg/qapi/services/jobs"
	"github.com/quatton/qsys/pkg/qlog"
)

type Services struct {
	IAM       *iam.IAMService
	Jobs      *jobs.Service
	Store     jobstore.Store
	StoreName string
}

// NewServices opens the configured store and builds the services on top.
func NewServices(ctx context.Context, cfg *config.EnvConfig, logger *qlog.Logger) (*Services, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Services{
		IAM:       iam.NewIAMService(cfg.APIKey, cfg.AuthSecret),
		Jobs:      jobs.NewService(store),
		Store:     store,
		StoreName: cfg.Store,
	}, nil
}

// NewMemoryServices is an in-process service set, used by tests and by
// clients that embed the service.
func NewMemoryServices(apiKey, secret string) *Services {
	store := jobstore.NewMemoryStore()
	return &Services{
		IAM:       iam.NewIAMService(apiKey, secret),
		Jobs:      jobs.NewService(store),
		Store:     store,
		StoreName: config.StoreMemory,
	}
}

func (s *Services) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// OpenStore connects the backend named by cfg.Store.
func OpenStore(ctx context.Context, cfg *config.EnvConfig, logger *qlog.Logger) (jobstore.Store, error) {
	if logger == nil {
		logger = qlog.NewNop()
	}
	switch cfg.Store {
	case config.StoreMemory, "":
		return jobstore.NewMemoryStore(), nil

	case config.StoreValkey:
		store, err := jobstore.NewValkeyStore(jobstore.ValkeyConfig{
			Addr:     cfg.ValkeyAddr,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
			Hash:     cfg.ValkeyHash,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to valkey", "addr", cfg.ValkeyAddr, "hash", cfg.ValkeyHash)
		return store, nil

	case config.StorePostgres:
		database, err := db.New(ctx, DBConfig(cfg))
		if err != nil {
			return nil, err
		}
		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, database, logWriter{logger}); err != nil {
				database.Close()
				return nil, err
			}
		}
		return jobstore.NewPostgresStore(database), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// DBConfig extracts the postgres settings from cfg.
func DBConfig(cfg *config.EnvConfig) db.Config {
	return db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
}

// logWriter adapts migration progress output to the logger.
type logWriter struct {
	logger *qlog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(bytes.TrimRight(p, "\r\n")))
	return len(p), nil
}
