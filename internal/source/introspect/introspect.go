// Package introspect reads table, column and key metadata from a live database and
// exposes it as a bridge.SchemaSource.
//
// Everything is loaded into a Snapshot up front, so a sync over a snapshot never touches
// the database. PostgreSQL is read through information_schema, SQLite through its
// pragma table functions.
package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver "postgres"
	_ "github.com/mattn/go-sqlite3"    // SQLite driver "sqlite3"
	"go.uber.org/zap"
)

// ErrUnsupportedDialect is returned for a driver or dialect that cannot be introspected
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// Dialect identifies the catalog queries to use
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectForDriver maps a database/sql driver name to its dialect
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return DialectPostgres, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: driver %q", ErrUnsupportedDialect, driver)
	}
}

// Open opens and pings a database. driver is "pgx" or "postgres" for PostgreSQL and
// "sqlite3" or "sqlite" for SQLite.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return nil, "", err
	}
	if driver == "sqlite" {
		driver = "sqlite3"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// every connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, dialect, nil
}

// Option configures an Introspector
type Option func(*Introspector)

// WithSchema sets the PostgreSQL schema to read. Defaults to "public".
func WithSchema(schema string) Option {
	return func(i *Introspector) {
		if schema != "" {
			i.schema = schema
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(i *Introspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// Introspector loads snapshots from one database
type Introspector struct {
	db      *sql.DB
	dialect Dialect
	schema  string
	logger  *zap.Logger
}

// New creates an introspector for db
func New(db *sql.DB, dialect Dialect, opts ...Option) (*Introspector, error) {
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}

	i := &Introspector{
		db:      db,
		dialect: dialect,
		schema:  "public",
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Load reads every base table of the database into a new snapshot
func (i *Introspector) Load(ctx context.Context) (*Snapshot, error) {
	var (
		tables []*Table
		err    error
	)

	switch i.dialect {
	case DialectPostgres:
		tables, err = i.loadPostgres(ctx)
	case DialectSQLite:
		tables, err = i.loadSQLite(ctx)
	}
	if err != nil {
		return nil, err
	}

	snapshot := NewSnapshot(tables)
	i.logger.Info("database introspected",
		zap.String("dialect", string(i.dialect)),
		zap.Int("tables", len(snapshot.tables)),
	)
	return snapshot, nil
}
