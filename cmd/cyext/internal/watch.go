package internal

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/goplus/cyext/internal/env"
	"github.com/goplus/cyext/internal/watch"
)

var (
	watchSetup    string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever Cython sources change",
	Long: `Watch runs build once, then again each time a .pyx, .pxd or .pxi file or
pyproject.toml changes, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSetup, "setup", defaultSetupFile, "Setup script next to pyproject.toml")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before rebuilding (default 300ms)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rebuild := func(ctx context.Context) error {
		proj, err := loadProject(watchSetup, "")
		if err != nil {
			return err
		}
		exts, err := proj.builder.Build(ctx, proj.exts, nil)
		if err != nil {
			return err
		}
		logger.Info("build done", "extensions", len(exts))
		return nil
	}

	ctx := cmd.Context()
	if err := rebuild(ctx); err != nil {
		logger.Error("initial build failed", "err", err)
	}

	dir, err := env.ProjectDir(watchSetup)
	if err != nil {
		return err
	}
	w, err := watch.New(watch.Config{
		Dir:      dir,
		Debounce: watchDebounce,
		Logger:   logger,
		OnChange: func(ctx context.Context, changed []string) error {
			return rebuild(ctx)
		},
	})
	if err != nil {
		return err
	}
	logger.Info("watching", "dir", dir)
	return w.Run(ctx)
}
