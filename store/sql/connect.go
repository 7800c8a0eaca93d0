package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// ConnectionConfig is the slice of the persistence configuration Connect
// needs to open a database and build a client around it.
type ConnectionConfig interface {
	GetDebug() bool
	GetDriver() string
	GetServer() string
	GetPingTimeout() time.Duration
	GetOtelIdentifier() string
}

// Connect opens the database named by the configuration and builds a
// persistence client with the matching bun dialect. Postgres and sqlite3 are
// the supported drivers.
func Connect(cfg ConnectionConfig) (*persistence.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlstore: connection config is required")
	}

	driver, dialect, err := resolveDialect(cfg.GetDriver())
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", driver, err)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return client, nil
}

func resolveDialect(driver string) (string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return "postgres", pgdialect.New(), nil
	case "sqlite", "sqlite3":
		return "sqlite3", sqlitedialect.New(), nil
	default:
		return "", nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}
