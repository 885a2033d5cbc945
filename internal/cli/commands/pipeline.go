package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/semlayer/semlayer/internal/annotate"
	"github.com/semlayer/semlayer/internal/bridge"
	"github.com/semlayer/semlayer/internal/cli/config"
	"github.com/semlayer/semlayer/internal/orm/schema"
	"github.com/semlayer/semlayer/internal/source/introspect"
	"github.com/semlayer/semlayer/internal/store"
)

// newLogger builds the CLI logger. Logs go to stderr so stdout stays usable for `sync --out -`.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

// openSource resolves the configured source into an in-memory SchemaSource.
// Database connections are closed before it returns.
func openSource(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (bridge.SchemaSource, error) {
	switch cfg.Kind {
	case config.SourceModels:
		registry, err := schema.LoadModelsFile(cfg.ModelsFile)
		if err != nil {
			return nil, err
		}
		stats := registry.GetStats()
		logger.Debug("loaded models",
			zap.String("file", cfg.ModelsFile),
			zap.Strings("models", registry.List()),
			zap.Int("fields", stats.TotalFields),
			zap.Int("relationships", stats.TotalRelationships),
			zap.Int("foreign_keys", stats.TotalForeignKeys),
		)
		return registry, nil

	case config.SourcePostgres, config.SourceSQLite:
		driver := cfg.Driver
		if cfg.Kind == config.SourceSQLite {
			driver = "sqlite3"
		}

		db, dialect, err := introspect.Open(ctx, driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		defer closeDB(db, logger)

		in, err := introspect.New(db, dialect, introspect.WithSchema(cfg.Schema), introspect.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return in.Load(ctx)

	default:
		return nil, fmt.Errorf("unsupported source kind: %s", cfg.Kind)
	}
}

func closeDB(db *sql.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", zap.Error(err))
	}
}

// loadCatalog reads the annotation file. No file configured means an empty catalog.
func loadCatalog(cfg config.AnnotationConfig) (*annotate.Catalog, error) {
	if cfg.File == "" {
		return annotate.NewCatalog(), nil
	}
	return annotate.LoadFile(cfg.File)
}

// newBridge wires source and annotations into a bridge whose layer carries the
// annotation file's glossary
func newBridge(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*bridge.Bridge, error) {
	source, err := openSource(ctx, cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg.Annotations)
	if err != nil {
		return nil, err
	}

	b := bridge.New(source, catalog, bridge.WithLogger(logger))
	for term, definition := range catalog.Glossary() {
		b.SemanticLayer().SetGlossaryTerm(term, definition)
	}
	return b, nil
}

func redisConfig(cfg config.RedisConfig) store.RedisConfig {
	return store.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Key:      cfg.Key,
		TTL:      cfg.TTL,
	}
}

func isStdout(path string) bool {
	return strings.TrimSpace(path) == "-"
}
