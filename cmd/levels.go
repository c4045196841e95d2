package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/config"
	"github.com/sells-group/sitrep-cli/internal/levels"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Inspect or reset persisted level state",
	Long:  "Commands for viewing and clearing the last observed level per lineage.",
}

// -- levels show --

var levelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print level state as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLevels(cmd.Context(), cfg, func(st levels.Store) error {
			return showLevels(cmd.Context(), st, os.Stdout)
		})
	},
}

// -- levels reset --

var levelsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all level state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLevels(cmd.Context(), cfg, func(st levels.Store) error {
			if err := st.Reset(cmd.Context()); err != nil {
				return eris.Wrap(err, "levels reset")
			}
			zap.L().Info("level state cleared", zap.String("driver", cfg.Levels.Driver), zap.String("path", cfg.Levels.Path))
			fmt.Fprintln(os.Stderr, "Level state cleared.")
			return nil
		})
	},
}

func init() {
	levelsCmd.AddCommand(levelsShowCmd, levelsResetCmd)
	rootCmd.AddCommand(levelsCmd)
}

// withLevels opens the configured store, runs fn and closes it.
func withLevels(ctx context.Context, c *config.Config, fn func(levels.Store) error) error {
	if err := c.Validate("levels"); err != nil {
		return err
	}
	st, err := levels.Open(ctx, c.Levels)
	if err != nil {
		return eris.Wrap(err, "open level store")
	}
	defer st.Close() //nolint:errcheck
	return fn(st)
}

func showLevels(ctx context.Context, st levels.Store, w io.Writer) error {
	all, err := st.All(ctx)
	if err != nil {
		return eris.Wrap(err, "levels show")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(all)
}
