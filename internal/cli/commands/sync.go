package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/semlayer/semlayer/internal/cli/ui"
	"github.com/semlayer/semlayer/internal/store"
)

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	var (
		out       string
		toRedis   bool
		redisAddr string
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Extract the semantic layer and write it out",
		Long: `Extract the semantic layer from the configured source and annotations.

The layer is written to output.path (or --out). Use --out - to print it to stdout.
With --redis the layer is also published to the configured Redis key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Output.Path = out
			}
			if redisAddr != "" {
				cfg.Redis.Addr = redisAddr
				toRedis = true
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
			layer := b.Sync()
			if len(layer.Tables) == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("no tables found in the configured source", noColor))
			}

			if isStdout(cfg.Output.Path) {
				data, err := layer.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), data)
			} else {
				if err := store.NewFileStore(cfg.Output.Path).Publish(ctx, layer); err != nil {
					return err
				}
				ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Wrote %d tables and %d relationships to %s",
					len(layer.Tables), len(layer.Relationships), cfg.Output.Path), noColor)
			}

			if !toRedis {
				return nil
			}
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("--redis requires redis.addr to be configured")
			}

			rs, err := store.NewRedisStore(ctx, redisConfig(cfg.Redis))
			if err != nil {
				return err
			}
			defer rs.Close()

			if err := rs.Publish(ctx, layer); err != nil {
				return err
			}
			logger.Info("published semantic layer", zap.String("addr", cfg.Redis.Addr), zap.String("key", rs.Key()))
			if !isStdout(cfg.Output.Path) {
				ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Published to redis key %s", rs.Key()), noColor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (- for stdout, default output.path)")
	cmd.Flags().BoolVar(&toRedis, "redis", false, "also publish the layer to Redis")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (implies --redis)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}
