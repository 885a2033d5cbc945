package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/semlayer/semlayer/internal/cli/config"
	"github.com/semlayer/semlayer/internal/server"
	"github.com/semlayer/semlayer/internal/store"
	"github.com/semlayer/semlayer/internal/watch"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var (
		addr            string
		shutdownTimeout time.Duration
		watchFiles      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the semantic layer over HTTP",
		Long: `Serve the semantic layer over HTTP.

Routes:
  GET  /healthz              liveness and last sync time
  GET  /layer                the layer as JSON
  GET  /layer/tables/{name}  one table
  GET  /layer/glossary       the application glossary
  POST /sync                 re-extract the layer (and publish it if redis.addr is set)

With --watch the model file and annotation file are re-read whenever they change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			b, err := newBridge(ctx, cfg, logger)
			if err != nil {
				return err
			}

			opts := []server.APIOption{server.WithLogger(logger)}
			var rs *store.RedisStore
			// until the shutdown hooks are registered, error returns close redis here
			closeRedis := func() {
				if rs != nil {
					rs.Close()
				}
			}
			if cfg.Redis.Addr != "" {
				rs, err = store.NewRedisStore(ctx, redisConfig(cfg.Redis))
				if err != nil {
					return err
				}
				opts = append(opts, server.WithPublisher(rs))
			}

			api := server.NewAPI(b, opts...)
			if _, err := api.Resync(ctx); err != nil {
				closeRedis()
				return err
			}
			srvConfig := server.DefaultConfig(api.Routes())
			srvConfig.Address = cfg.Server.Addr

			srv, err := server.New(srvConfig)
			if err != nil {
				closeRedis()
				return err
			}

			shutdownConfig := server.DefaultShutdownConfig()
			shutdownConfig.Timeout = shutdownTimeout
			shutdownConfig.Logger = logger
			gs := server.NewGracefulShutdown(srv, shutdownConfig)

			if watchFiles {
				fw, err := watchInputs(ctx, cfg, api, logger)
				if err != nil {
					closeRedis()
					return err
				}
				gs.RegisterHook(func(context.Context) error {
					return fw.Stop()
				})
			}

			logger.Info("serving semantic layer",
				zap.String("addr", cfg.Server.Addr),
				zap.Int("tables", len(b.SemanticLayer().Tables)),
			)
			if rs != nil {
				gs.RegisterHook(func(context.Context) error {
					return rs.Close()
				})
			}

			if err := gs.Start(ctx); err != nil {
				// Start returns early on listen and serve failures without running the hooks
				gs.Shutdown()
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "re-extract when the model or annotation file changes")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "graceful shutdown timeout")

	return cmd
}

// watchInputs rebuilds the API's bridge whenever an input file changes
func watchInputs(ctx context.Context, cfg *config.Config, api *server.API, logger *zap.Logger) (*watch.FileWatcher, error) {
	var files []string
	if cfg.Source.Kind == config.SourceModels {
		files = append(files, cfg.Source.ModelsFile)
	}
	files = append(files, cfg.Annotations.File)

	fw, err := watch.NewFileWatcher(files, func(changed []string) error {
		logger.Info("input files changed", zap.Strings("files", changed))
		b, err := newBridge(ctx, cfg, logger)
		if err != nil {
			return err
		}
		_, err = api.Replace(ctx, b)
		return err
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := fw.Start(); err != nil {
		fw.Stop()
		return nil, err
	}
	return fw, nil
}
