package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONL writes one <repository>.jsonl file per repository under a directory.
// Each file is truncated the first time its repository is written in a run.
type JSONL struct {
	dir string

	mu    sync.Mutex
	files map[string]*jsonlFile
}

type jsonlFile struct {
	f *os.File
	w *bufio.Writer
}

// NewJSONL creates the output directory if needed.
func NewJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &JSONL{dir: dir, files: make(map[string]*jsonlFile)}, nil
}

// Path returns the file a repository's records go to.
func (s *JSONL) Path(repository string) string {
	return filepath.Join(s.dir, repository+".jsonl")
}

func (s *JSONL) file(repository string) (*jsonlFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jf, ok := s.files[repository]; ok {
		return jf, nil
	}
	f, err := os.Create(s.Path(repository))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", repository, err)
	}
	jf := &jsonlFile{f: f, w: bufio.NewWriter(f)}
	s.files[repository] = jf
	return jf, nil
}

// Write appends the batch's envelopes, one JSON object per line, and flushes.
func (s *JSONL) Write(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	jf, err := s.file(b.Repository)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(jf.w)
	enc.SetEscapeHTML(false)
	for _, env := range b.Envelopes() {
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("encoding %s record: %w", b.Repository, err)
		}
	}
	if err := jf.w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", b.Repository, err)
	}
	return nil
}

// Close flushes and closes every file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, jf := range s.files {
		if err := jf.w.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flushing %s: %w", name, err))
		}
		if err := jf.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	s.files = make(map[string]*jsonlFile)
	return errors.Join(errs...)
}
