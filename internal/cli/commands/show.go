package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semlayer/semlayer/internal/cli/ui"
	"github.com/semlayer/semlayer/internal/semantic"
	"github.com/semlayer/semlayer/internal/store"
)

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	var (
		table     string
		format    string
		noColor   bool
		fromRedis bool
	)

	cmd := &cobra.Command{
		Use:   "show [layer.json]",
		Short: "Display a semantic layer",
		Long: `Display a semantic layer written by sync.

Reads output.path unless a file is given, or the configured Redis key with --redis.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q (expected table or json)", format)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var s store.Store
			switch {
			case fromRedis:
				rs, err := store.NewRedisStore(cmd.Context(), redisConfig(cfg.Redis))
				if err != nil {
					return err
				}
				defer rs.Close()
				s = rs
			case len(args) == 1:
				s = store.NewFileStore(args[0])
			default:
				s = store.NewFileStore(cfg.Output.Path)
			}

			layer, err := s.Fetch(cmd.Context())
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w (run `semlayer sync` first)", err)
				}
				return err
			}

			return renderLayer(cmd, layer, table, format, noColor)
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "show a single table")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&fromRedis, "redis", false, "read the layer from Redis")

	return cmd
}

func renderLayer(cmd *cobra.Command, layer *semantic.Layer, table, format string, noColor bool) error {
	out := cmd.OutOrStdout()

	if table == "" {
		if format == "json" {
			data, err := layer.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, data)
			return nil
		}
		ui.RenderLayer(out, layer, noColor)
		return nil
	}

	t, ok := layer.Tables[table]
	if !ok {
		fmt.Fprint(cmd.ErrOrStderr(), ui.TableNotFound(table, layer.TableNames(), noColor))
		return fmt.Errorf("table %q not found", table)
	}

	if format == "json" {
		single := semantic.NewLayer()
		single.AddTable(t)
		data, err := single.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, data)
		return nil
	}

	ui.RenderTable(out, t, noColor)
	return nil
}
