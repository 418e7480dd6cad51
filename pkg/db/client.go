package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/config"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn *gorm.DB
	// keeper holds an in-memory SQLite database open while the pooled
	// connection is discarded, e.g. after a cancelled transaction.
	keeper *sql.DB
}

// New opens the configured driver, applies pool limits and routes GORM's own
// logging through logg.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, gormConfig(newGormLogger(logg, cfg.SlowQueryThreshold)))
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", dialector.Name(), err)
	}
	if err := configurePool(conn, cfg); err != nil {
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", dialector.Name()), "database connection established")
	}
	return &Client{conn: conn}, nil
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", config.DriverPostgres:
		return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// configurePool pins SQLite to one connection; it serialises writers anyway.
func configurePool(conn *gorm.DB, cfg config.DBConfig) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		return nil
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return nil
}

// OpenSQLite opens a SQLite database with the same GORM settings as New and
// no query logging. Tests and local tooling use it.
func OpenSQLite(dsn string) (*Client, error) {
	var keeper *sql.DB
	if strings.Contains(dsn, "mode=memory") {
		var err error
		if keeper, err = sql.Open("sqlite3", dsn); err != nil {
			return nil, fmt.Errorf("opening sqlite keeper: %w", err)
		}
		if err := keeper.Ping(); err != nil {
			_ = keeper.Close()
			return nil, fmt.Errorf("opening sqlite keeper: %w", err)
		}
	}
	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig(newGormLogger(nil, 0)))
	if err == nil {
		err = configurePool(conn, config.DBConfig{Driver: config.DriverSQLite})
	}
	if err != nil {
		if keeper != nil {
			_ = keeper.Close()
		}
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	return &Client{conn: conn, keeper: keeper}, nil
}

// MemoryDSN builds a named shared-cache in-memory SQLite DSN with foreign keys on.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
}

func gormConfig(l *gormLogger) *gorm.Config {
	return &gorm.Config{Logger: l, SkipDefaultTransaction: true}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Dialect returns the GORM dialector name ("postgres" or "sqlite").
func (c *Client) Dialect() string {
	return c.conn.Dialector.Name()
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	if c.keeper != nil {
		err = multierr.Append(err, c.keeper.Close())
	}
	return err
}

// WithTx runs fn in a transaction. Errors and panics roll back; panics are
// re-raised after the rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		tx.Rollback()
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return tx.Commit().Error
}
