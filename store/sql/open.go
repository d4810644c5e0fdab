package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	mailboxmigrations "github.com/goliatone/go-mailbox/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// PersistenceConfig satisfies the go-persistence-bun config contract.
type PersistenceConfig struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return c.Driver
}

func (c PersistenceConfig) GetServer() string {
	return c.DSN
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	return "go-mailbox"
}

func OpenSQLite(ctx context.Context, dsn string) (*persistence.Client, error) {
	return Open(ctx, PersistenceConfig{Driver: DriverSQLite, DSN: dsn})
}

func OpenPostgres(ctx context.Context, dsn string) (*persistence.Client, error) {
	return Open(ctx, PersistenceConfig{Driver: DriverPostgres, DSN: dsn})
}

// Open connects, registers the embedded mailbox migrations for the driver's
// dialect and applies them.
func Open(ctx context.Context, cfg PersistenceConfig) (*persistence.Client, error) {
	cfg.Driver = strings.TrimSpace(strings.ToLower(cfg.Driver))
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	var (
		dialect       schema.Dialect
		migrationName string
	)
	switch cfg.Driver {
	case DriverSQLite, "sqlite":
		cfg.Driver = DriverSQLite
		dialect = sqlitedialect.New()
		migrationName = mailboxmigrations.DialectSQLite
	case DriverPostgres, "postgresql":
		cfg.Driver = DriverPostgres
		dialect = pgdialect.New()
		migrationName = mailboxmigrations.DialectPostgres
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite && strings.Contains(cfg.DSN, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	_, err = mailboxmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrationName {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, mailboxmigrations.WithValidationTargets(migrationName))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}
