// Package match aligns the files, methods and function calls of two snapshots.
//
// Every level runs the same greedy shape: old entities, in order, are offered
// to a fixed sequence of passes, and a pass pairs an old entity with the first
// unconsumed new entity it accepts. Old entities left over are removed, new
// entities never consumed are added. The result depends only on input order,
// never on map iteration, so repeated runs produce identical pairings.
//
// This is not an optimal assignment: the first acceptable candidate wins even
// when a later one would score higher.
package match

import (
	"slices"

	"github.com/phobologic/relmap/internal/model"
	"github.com/phobologic/relmap/internal/similarity"
)

const (
	// FileNameThreshold is the base-name similarity a fuzzy file match must exceed.
	FileNameThreshold = 0.75

	// SharedMethodThreshold is the share of common method names (over the smaller
	// set) a fuzzy file match must exceed when both files define methods.
	SharedMethodThreshold = 0.50
)

// Outcome says how a pair was formed.
type Outcome string

const (
	Exact     Outcome = "exact"     // identity equality at any level
	Fuzzy     Outcome = "fuzzy"     // similar file name and shared methods
	Partial   Outcome = "partial"   // same class and method name, parameters changed
	Relocated Outcome = "relocated" // same call name and receiver, different position
	Removed   Outcome = "removed"
	Added     Outcome = "added"
)

// Pair links an old entity to its new counterpart. For Removed pairs New is nil,
// for Added pairs Old is nil.
type Pair[T any] struct {
	Old     T
	New     T
	Outcome Outcome
}

// Matched reports whether both sides are present.
func (p Pair[T]) Matched() bool {
	return p.Outcome != Removed && p.Outcome != Added
}

type pass[T any] struct {
	outcome Outcome
	accept  func(old, new T) bool
}

// order selects how passes and old entities are nested.
type order int

const (
	// entityMajor offers each old entity to every pass before moving to the next entity.
	entityMajor order = iota
	// passMajor runs each pass over all old entities before the next pass starts,
	// so an earlier pass always has priority over a later one.
	passMajor
)

// align runs the greedy passes and returns one pair per old entity, in old
// order, followed by the unconsumed new entities. consumed is indexed by
// position in new, so equal-looking entities at different positions are
// tracked separately.
func align[T any](old, new []T, ord order, passes ...pass[T]) []Pair[T] {
	consumed := make([]bool, len(new))
	done := make([]bool, len(old))
	pairs := make([]Pair[T], len(old), len(old)+len(new))

	try := func(i int, p pass[T]) {
		for j, n := range new {
			if consumed[j] || !p.accept(old[i], n) {
				continue
			}
			consumed[j], done[i] = true, true
			pairs[i] = Pair[T]{Old: old[i], New: n, Outcome: p.outcome}
			return
		}
	}

	switch ord {
	case passMajor:
		for _, p := range passes {
			for i := range old {
				if !done[i] {
					try(i, p)
				}
			}
		}
	default:
		for i := range old {
			for _, p := range passes {
				if !done[i] {
					try(i, p)
				}
			}
		}
	}

	var none T
	for i := range old {
		if !done[i] {
			pairs[i] = Pair[T]{Old: old[i], New: none, Outcome: Removed}
		}
	}
	for j, n := range new {
		if !consumed[j] {
			pairs = append(pairs, Pair[T]{Old: none, New: n, Outcome: Added})
		}
	}
	return pairs
}

// Files aligns the files of two snapshots: exact path match first, then a
// fuzzy match on similar base names with enough method names in common.
func Files(old, new []*model.File) []Pair[*model.File] {
	return align(old, new, entityMajor,
		pass[*model.File]{Exact, (*model.File).Equal},
		pass[*model.File]{Fuzzy, similarFiles},
	)
}

func similarFiles(a, b *model.File) bool {
	if similarity.Ratio(a.Name(), b.Name()) <= FileNameThreshold {
		return false
	}
	namesA, namesB := a.MethodNames(), b.MethodNames()
	if len(namesA) == 0 || len(namesB) == 0 {
		return true
	}
	if len(namesB) < len(namesA) {
		namesA, namesB = namesB, namesA
	}
	common := 0
	for name := range namesA {
		if _, ok := namesB[name]; ok {
			common++
		}
	}
	return float64(common)/float64(len(namesA)) > SharedMethodThreshold
}

// Methods aligns the methods of a matched file pair: identity first, then same
// class and name with changed parameters. All identity matches are settled
// before any partial match, so a partial match never takes a method another
// old method matches exactly. Both files must be present.
func Methods(old, new *model.File) []Pair[*model.Method] {
	if old == nil || new == nil {
		panic("match: Methods called with a removed or added file")
	}
	return align(old.Methods(), new.Methods(), passMajor,
		pass[*model.Method]{Exact, (*model.Method).Equal},
		pass[*model.Method]{Partial, (*model.Method).PartialEqual},
	)
}

// Calls aligns the calls of a matched method pair. Both sides are scanned in
// start-offset order: identical calls at identical offsets first, then calls to
// the same name on the same receiver. Both methods must be present.
func Calls(old, new *model.Method) []Pair[*model.FunctionCall] {
	if old == nil || new == nil {
		panic("match: Calls called with a removed or added method")
	}
	return align(byOffset(old.Calls()), byOffset(new.Calls()), entityMajor,
		pass[*model.FunctionCall]{Exact, (*model.FunctionCall).Equal},
		pass[*model.FunctionCall]{Relocated, (*model.FunctionCall).SameSite},
	)
}

func byOffset(calls []*model.FunctionCall) []*model.FunctionCall {
	slices.SortStableFunc(calls, func(a, b *model.FunctionCall) int {
		return a.Start() - b.Start()
	})
	return calls
}
