package match

import "github.com/phobologic/relmap/internal/model"

// Comparison is the full three-level alignment of two snapshots.
type Comparison struct {
	Old   *model.Repository
	New   *model.Repository
	Files []FileDiff
}

// FileDiff is a file pair and, when both sides exist, its method alignment.
type FileDiff struct {
	Pair[*model.File]
	Methods []MethodDiff
}

// MethodDiff is a method pair and, when both sides exist, its call alignment.
type MethodDiff struct {
	Pair[*model.Method]
	Calls []Pair[*model.FunctionCall]
}

// Compare aligns old against new top-down. Method alignment runs only for
// matched file pairs and call alignment only for matched method pairs.
func Compare(old, new *model.Repository) *Comparison {
	if old == nil || new == nil {
		panic("match: Compare called with a nil repository")
	}
	cmp := &Comparison{Old: old, New: new}
	for _, fp := range Files(old.Files(), new.Files()) {
		fd := FileDiff{Pair: fp}
		if fp.Matched() {
			for _, mp := range Methods(fp.Old, fp.New) {
				md := MethodDiff{Pair: mp}
				if mp.Matched() {
					md.Calls = Calls(mp.Old, mp.New)
				}
				fd.Methods = append(fd.Methods, md)
			}
		}
		cmp.Files = append(cmp.Files, fd)
	}
	return cmp
}

// Tally counts pair outcomes per level.
type Tally struct {
	Files   map[Outcome]int
	Methods map[Outcome]int
	Calls   map[Outcome]int
}

// Tally counts the outcomes of every pair in the comparison.
func (c *Comparison) Tally() Tally {
	t := Tally{
		Files:   make(map[Outcome]int),
		Methods: make(map[Outcome]int),
		Calls:   make(map[Outcome]int),
	}
	for _, fd := range c.Files {
		t.Files[fd.Outcome]++
		for _, md := range fd.Methods {
			t.Methods[md.Outcome]++
			for _, cp := range md.Calls {
				t.Calls[cp.Outcome]++
			}
		}
	}
	return t
}
