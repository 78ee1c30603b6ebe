// Package store picks the crm.Store backend named in the configuration.
package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/secrets"
	"github.com/spigell/hr-matcher/internal/store/postgres"
	"github.com/spigell/hr-matcher/internal/store/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DSNFileEnv = "HR_MATCHER_DATABASE_DSN_FILE"
)

type Config struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn" json:"-"`
	DSNFile string `mapstructure:"dsn-file"`
}

// Backend is a crm.Store that can also be loaded with fixtures and closed.
type Backend interface {
	crm.Store
	Import(ctx context.Context, ds *crm.Dataset) error
	Close() error
}

// Open connects to the configured backend and makes sure its schema exists.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn, err := secrets.Load(secrets.Source{Name: "database dsn", Value: cfg.DSN, File: cfg.DSNFile})
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	logger.Debug("opening store", zap.String("driver", driver))

	switch driver {
	case DriverSQLite:
		return sqlite.Open(ctx, dsn)
	case DriverPostgres, "postgresql", "pgx":
		pg, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return postgresBackend{pg}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

type postgresBackend struct {
	*postgres.Store
}

func (b postgresBackend) Close() error {
	b.Store.Close()
	return nil
}
