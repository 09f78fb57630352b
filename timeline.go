package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/relmap/internal/config"
	"github.com/phobologic/relmap/internal/manifest"
	"github.com/phobologic/relmap/internal/model"
	"github.com/phobologic/relmap/internal/sink"
	"github.com/phobologic/relmap/internal/snapshot"
	"github.com/phobologic/relmap/internal/timeline"
)

type timelineFlags struct {
	manifest string
	dataDir  string
	out      string
	sink     string
	database string
	workers  int
	langs    string
	resume   bool
}

func newTimelineCmd(g *globals) *cobra.Command {
	f := &timelineFlags{}

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Compare every pair of consecutive releases listed in a manifest",
		Long: `Read a release manifest (CSV with repository, branch and date columns, or
YAML), order each repository's releases by date and compare every release with
the one before it. Snapshots are expected at <data-dir>/<repository>/<branch>.

The first available release of each repository is written once with no
mappings. Records go to one JSON Lines file per repository, or to a SQLite
database with --sink sqlite. With the sqlite sink, --resume skips pairs an
earlier run already wrote.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTimeline(cmd.Context(), g, f, cmd)
		},
	}

	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "release manifest (.csv, .yaml or .yml)")
	cmd.Flags().StringVarP(&f.dataDir, "data-dir", "d", "", "directory holding <repository>/<branch> snapshots")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output directory for the jsonl sink (overrides config)")
	cmd.Flags().StringVar(&f.sink, "sink", "", "record sink: jsonl or sqlite (overrides config)")
	cmd.Flags().StringVar(&f.database, "database", "", "database path for the sqlite sink (overrides config)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "repositories processed concurrently (overrides config)")
	cmd.Flags().StringVarP(&f.langs, "langs", "l", "", "comma-separated languages to include (overrides config)")
	cmd.Flags().BoolVar(&f.resume, "resume", false, "skip pairs already recorded in the sqlite database")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("data-dir")
	return cmd
}

func runTimeline(ctx context.Context, g *globals, f *timelineFlags, cmd *cobra.Command) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if err := f.apply(cfg); err != nil {
		return err
	}

	releases, err := manifest.Read(f.manifest)
	if err != nil {
		return err
	}
	timelines := manifest.Group(releases)
	log.Info("read manifest", "releases", len(releases), "repositories", len(timelines))

	out, ledger, err := openSink(ctx, cfg, f.resume)
	if err != nil {
		return err
	}

	opts := snapshotOptions(cfg, log)
	load := func(ctx context.Context, root string) (*model.Repository, error) {
		return snapshot.Load(ctx, root, opts)
	}
	driver := timeline.New(out, load, timeline.Options{
		DataDir: f.dataDir,
		Workers: cfg.Workers.Repositories,
		Ledger:  ledger,
		Logger:  log,
	})

	stats, runErr := driver.Run(ctx, timelines)
	closeErr := out.Close()
	logStats(log, stats)
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d pairs (%d records) for %d repositories\n",
		stats.Pairs, stats.Records, stats.Repositories)

	return errors.Join(runErr, closeErr)
}

// apply folds command-line overrides into cfg and validates the result.
func (f *timelineFlags) apply(cfg *config.Config) error {
	if f.out != "" {
		cfg.Output.Dir = f.out
	}
	if f.sink != "" {
		cfg.Output.Sink = f.sink
	}
	if f.database != "" {
		cfg.Output.Database = f.database
	}
	if f.workers > 0 {
		cfg.Workers.Repositories = f.workers
	}
	if err := applyLanguages(cfg, f.langs); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if f.resume && cfg.Output.Sink != config.SinkSQLite {
		return fmt.Errorf("--resume requires the %s sink", config.SinkSQLite)
	}
	return nil
}

// openSink returns the configured sink and, when resuming, the ledger backing it.
func openSink(ctx context.Context, cfg *config.Config, resume bool) (sink.Sink, sink.Ledger, error) {
	switch cfg.Output.Sink {
	case config.SinkSQLite:
		path := cfg.Output.Database
		if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
			path = filepath.Join(cfg.Output.Dir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := sink.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		if resume {
			return db, db, nil
		}
		return db, nil, nil
	default:
		s, err := sink.NewJSONL(cfg.Output.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
}

func logStats(log *slog.Logger, s timeline.Stats) {
	log.Info("timeline finished",
		"repositories", s.Repositories,
		"pairs", s.Pairs,
		"records", s.Records,
		"resumed", s.Resumed,
		"skipped", s.Skipped)
}
