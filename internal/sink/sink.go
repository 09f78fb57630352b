// Package sink persists comparison records.
package sink

import (
	"context"
	"time"

	"github.com/phobologic/relmap/internal/record"
)

// Pair identifies one comparison of a repository's timeline. PrevBranch is
// empty for the genesis records of the first release.
type Pair struct {
	Repository string
	PrevBranch string
	Branch     string
}

// Genesis reports whether p carries initial-state records.
func (p Pair) Genesis() bool { return p.PrevBranch == "" }

// Batch is everything one pair produced, written as a unit.
type Batch struct {
	Pair
	// Source is the repository as listed in the manifest.
	Source  string
	Date    time.Time
	Records []record.File
}

// Envelope is one output line: a file record tagged with the release it
// belongs to and the release it was compared against.
type Envelope struct {
	Repository string  `json:"repository"`
	Branch     string  `json:"branch"`
	Date       string  `json:"date"`
	PrevBranch *string `json:"prev_branch"`
	record.File
}

// Envelopes tags every record of b.
func (b Batch) Envelopes() []Envelope {
	var prev *string
	if !b.Genesis() {
		prev = &b.PrevBranch
	}
	out := make([]Envelope, 0, len(b.Records))
	for _, rec := range b.Records {
		out = append(out, Envelope{
			Repository: b.Source,
			Branch:     b.Branch,
			Date:       b.Date.UTC().Format(time.RFC3339),
			PrevBranch: prev,
			File:       rec,
		})
	}
	return out
}

// Sink accepts batches. Batches of one repository arrive in chronological
// order from a single goroutine; different repositories may write concurrently.
type Sink interface {
	Write(ctx context.Context, b Batch) error
	Close() error
}

// Ledger remembers which pairs were fully written, so an interrupted run can resume.
type Ledger interface {
	Done(ctx context.Context, p Pair) (bool, error)
}
