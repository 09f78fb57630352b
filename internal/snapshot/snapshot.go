// Package snapshot loads a directory into an immutable repository snapshot.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/relmap/internal/discover"
	"github.com/phobologic/relmap/internal/lang"
	"github.com/phobologic/relmap/internal/model"
	"github.com/phobologic/relmap/internal/parse"
)

// Options controls discovery and parsing.
type Options struct {
	Discover discover.Options
	// Workers bounds concurrent parsing; zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Load discovers and parses every source file under root. Files that cannot be
// read or extracted are logged and left out; the remaining files keep their
// discovery order.
func Load(ctx context.Context, root string, opts Options) (*model.Repository, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	files, skipped, err := discover.Files(root, opts.Discover)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	for _, s := range skipped {
		log.Warn("skipped file over size limit", "path", s.Path, "size", s.Size, "limit", opts.Discover.MaxFileSize)
	}

	parsed, err := parseConcurrent(ctx, root, files, opts.Workers, log)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded snapshot", "root", root, "files", len(parsed), "discovered", len(files))
	return model.NewRepository(root, parsed), nil
}

// parseConcurrent extracts files on a bounded pool. Each worker owns one parser
// per language since tree-sitter parsers are not safe for concurrent use.
func parseConcurrent(ctx context.Context, root string, files []discover.FileEntry, workers int, log *slog.Logger) ([]*model.File, error) {
	if len(files) == 0 {
		return nil, nil
	}
	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	numWorkers = min(numWorkers, len(files))

	work := make(chan int, len(files))
	indexed := make([]*model.File, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parsers
			parsers := make(map[string]*sitter.Parser)
			defer func() {
				for _, p := range parsers {
					p.Close()
				}
			}()

			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				f := files[idx]
				l := lang.Languages[f.Language]
				p, ok := parsers[f.Language]
				if !ok {
					p = l.NewParser()
					parsers[f.Language] = p
				}

				source, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
				if err != nil {
					log.Warn("failed to read file", "path", f.Path, "error", err)
					continue
				}
				file, err := parse.ExtractFile(ctx, l, p, source, f.Path)
				if err != nil {
					log.Warn("excluded file", "path", f.Path, "error", err)
					continue
				}
				// Each index is written by exactly one worker.
				indexed[idx] = file
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*model.File, 0, len(files))
	for _, f := range indexed {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}
