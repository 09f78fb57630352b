// Package timeline walks each repository's releases in chronological order,
// compares every release with the one before it and hands the records to a sink.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/relmap/internal/manifest"
	"github.com/phobologic/relmap/internal/match"
	"github.com/phobologic/relmap/internal/model"
	"github.com/phobologic/relmap/internal/record"
	"github.com/phobologic/relmap/internal/sink"
)

// LoadFunc builds a snapshot from a release directory.
type LoadFunc func(ctx context.Context, root string) (*model.Repository, error)

// Options configures a Driver.
type Options struct {
	// DataDir holds one <repository>/<branch> directory per release.
	DataDir string
	// Workers bounds how many repositories are processed at once; zero means one.
	Workers int
	// Ledger, when set, lets the driver skip pairs a previous run finished.
	Ledger sink.Ledger
	Logger *slog.Logger
}

// Stats summarizes a run.
type Stats struct {
	Repositories int // repositories with at least one compared pair
	Pairs        int // pairs written, genesis included
	Resumed      int // pairs skipped because the ledger had them
	Skipped      int // releases or pairs skipped for missing or unreadable snapshots
	Records      int // file records written
}

// Driver runs timelines against a sink.
type Driver struct {
	sink sink.Sink
	load LoadFunc
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Driver.
func New(s sink.Sink, load LoadFunc, opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Driver{sink: s, load: load, opts: opts, log: log}
}

// Run processes every timeline. Repositories run concurrently; within one
// repository pairs are written in release order. A failing repository is
// logged and does not stop the others; all such failures are returned joined.
func (d *Driver) Run(ctx context.Context, timelines []manifest.Timeline) (Stats, error) {
	var (
		errMu sync.Mutex
		errs  []error
	)

	g := new(errgroup.Group)
	g.SetLimit(max(d.opts.Workers, 1))
	for _, tl := range timelines {
		g.Go(func() error {
			if err := d.runRepository(ctx, tl); err != nil {
				d.log.Error("repository failed", "repository", tl.Name, "error", err)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", tl.Name, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	d.mu.Lock()
	stats := d.stats
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, errors.Join(errs...)
}

// release is a manifest release whose snapshot directory exists.
type release struct {
	manifest.Release
	dir string
}

func (d *Driver) runRepository(ctx context.Context, tl manifest.Timeline) error {
	log := d.log.With("repository", tl.Name)

	repoDir := filepath.Join(d.opts.DataDir, tl.Name)
	if !isDir(repoDir) {
		log.Info("repository directory does not exist", "dir", repoDir)
		d.count(func(s *Stats) { s.Skipped += len(tl.Releases) })
		return nil
	}

	var releases []release
	for _, r := range tl.Releases {
		dir := filepath.Join(repoDir, r.Branch)
		if !isDir(dir) {
			log.Info("release directory does not exist", "dir", dir)
			d.count(func(s *Stats) { s.Skipped++ })
			continue
		}
		releases = append(releases, release{Release: r, dir: dir})
	}
	if len(releases) < 2 {
		log.Info("not enough releases to compare", "releases", len(releases))
		return nil
	}

	w := &walker{driver: d, log: log}
	compared := false
	for i := 1; i < len(releases); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		old, new := releases[i-1], releases[i]

		if i == 1 {
			if err := w.genesis(ctx, tl.Name, old); err != nil {
				return err
			}
		}
		ok, err := w.compare(ctx, tl.Name, old, new)
		if err != nil {
			return err
		}
		compared = compared || ok
	}
	if compared {
		d.count(func(s *Stats) { s.Repositories++ })
	}
	return nil
}

// walker carries the last loaded snapshot from one pair to the next, so every
// release is parsed at most once.
type walker struct {
	driver *Driver
	log    *slog.Logger

	cachedDir  string
	cachedRepo *model.Repository
}

func (w *walker) snapshot(ctx context.Context, r release) (*model.Repository, error) {
	if w.cachedRepo != nil && w.cachedDir == r.dir {
		return w.cachedRepo, nil
	}
	repo, err := w.driver.load(ctx, r.dir)
	if err != nil {
		return nil, err
	}
	w.cachedDir, w.cachedRepo = r.dir, repo
	return repo, nil
}

func (w *walker) genesis(ctx context.Context, name string, first release) error {
	p := sink.Pair{Repository: name, Branch: first.Branch}
	if done, err := w.driver.done(ctx, p); err != nil || done {
		return err
	}
	repo, err := w.snapshot(ctx, first)
	if err != nil {
		return w.driver.skip(ctx, w.log, p, err)
	}
	return w.driver.write(ctx, w.log, sink.Batch{
		Pair:    p,
		Source:  first.Source,
		Date:    first.Date,
		Records: record.Genesis(repo),
	})
}

// compare writes one pair and reports whether it was written in this run.
func (w *walker) compare(ctx context.Context, name string, old, new release) (bool, error) {
	p := sink.Pair{Repository: name, PrevBranch: old.Branch, Branch: new.Branch}
	if done, err := w.driver.done(ctx, p); err != nil || done {
		return false, err
	}

	oldRepo, err := w.snapshot(ctx, old)
	if err != nil {
		return false, w.driver.skip(ctx, w.log, p, err)
	}
	newRepo, err := w.snapshot(ctx, new)
	if err != nil {
		return false, w.driver.skip(ctx, w.log, p, err)
	}

	cmp := match.Compare(oldRepo, newRepo)
	tally := cmp.Tally()
	w.log.Info("compared releases",
		"from", old.Branch, "to", new.Branch,
		"exact", tally.Files[match.Exact], "fuzzy", tally.Files[match.Fuzzy],
		"removed", tally.Files[match.Removed], "added", tally.Files[match.Added])

	err = w.driver.write(ctx, w.log, sink.Batch{
		Pair:    p,
		Source:  new.Source,
		Date:    new.Date,
		Records: record.Assemble(cmp),
	})
	return err == nil, err
}

func (d *Driver) done(ctx context.Context, p sink.Pair) (bool, error) {
	if d.opts.Ledger == nil {
		return false, nil
	}
	done, err := d.opts.Ledger.Done(ctx, p)
	if err != nil {
		return false, err
	}
	if done {
		d.log.Debug("pair already written", "repository", p.Repository, "from", p.PrevBranch, "to", p.Branch)
		d.count(func(s *Stats) { s.Resumed++ })
	}
	return done, nil
}

// skip logs a pair whose snapshot could not be loaded. Cancellation is the
// only load failure that stops the repository.
func (d *Driver) skip(ctx context.Context, log *slog.Logger, p sink.Pair, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.Warn("skipping pair", "from", p.PrevBranch, "to", p.Branch, "error", err)
	d.count(func(s *Stats) { s.Skipped++ })
	return nil
}

func (d *Driver) write(ctx context.Context, log *slog.Logger, b sink.Batch) error {
	if err := d.sink.Write(ctx, b); err != nil {
		return fmt.Errorf("writing %s..%s: %w", b.PrevBranch, b.Branch, err)
	}
	log.Debug("wrote pair", "from", b.PrevBranch, "to", b.Branch, "records", len(b.Records))
	d.count(func(s *Stats) {
		s.Pairs++
		s.Records += len(b.Records)
	})
	return nil
}

func (d *Driver) count(f func(*Stats)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f(&d.stats)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
