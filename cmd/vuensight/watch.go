package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhodav/vuensight"
	"github.com/uhodav/vuensight/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index a project and re-index on changes",
	Long:  "Indexes once, then watches the scan root and re-runs index and analysis after filesystem changes settle.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	engine, err := p.open()
	if err != nil {
		return err
	}
	defer engine.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reindex(ctx, engine, p); err != nil {
		return err
	}

	scan := p.cfg.ScanRoot(p.root)
	w, err := watch.New(scan, watch.WithExclude(p.cfg.Exclude...), watch.WithLogger(p.logger))
	if err != nil {
		return err
	}
	defer w.Close()

	p.logger.Info("watching", zap.String("dir", scan), zap.String("db", p.dbPath))
	return w.Run(ctx, func(ctx context.Context) error {
		return reindex(ctx, engine, p)
	})
}

// reindex runs one index and analysis pass and logs what changed.
func reindex(ctx context.Context, engine *vuensight.Engine, p *project) error {
	if err := engine.IndexDirectory(ctx, p.root); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	changes := engine.Changes()
	if err := engine.Analyze(ctx); err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}
	if changes.Empty() {
		p.logger.Debug("no changes")
		return nil
	}
	p.logger.Info("reindexed",
		zap.Strings("added", changes.Added),
		zap.Strings("modified", changes.Modified),
		zap.Strings("removed", changes.Removed),
		zap.Strings("declarations_changed", changes.DeclarationsChanged),
	)
	return nil
}
