package match

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/relmap/internal/model"
)

func method(class, name string, params ...string) *model.Method {
	return model.NewMethod(model.MethodSpec{
		Class:   class,
		Name:    name,
		Params:  params,
		Content: fmt.Sprintf("def %s(%v):\n    pass", name, params),
	})
}

func file(path string, methods ...*model.Method) *model.File {
	return model.NewFile(path, "", methods, nil)
}

func call(context, name, expr string, start int) model.CallSite {
	return model.CallSite{
		Name:       name,
		Context:    context,
		Expression: expr,
		Start:      start,
		End:        start + len(expr),
	}
}

func withCalls(name string, calls ...model.CallSite) *model.Method {
	return model.NewMethod(model.MethodSpec{
		Name:    name,
		Content: "def " + name + "():\n" + strings.Repeat("    x = y\n", 20),
		Calls:   calls,
	})
}

func outcomes[T any](pairs []Pair[T]) []Outcome {
	out := make([]Outcome, len(pairs))
	for i, p := range pairs {
		out[i] = p.Outcome
	}
	return out
}

func TestFilesExactMatch(t *testing.T) {
	t.Parallel()

	old := []*model.File{file("a.py"), file("pkg/b.py")}
	new := []*model.File{file("pkg/b.py"), file("a.py")}

	pairs := Files(old, new)
	require.Len(t, pairs, 2)
	for _, p := range pairs {
		assert.Equal(t, Exact, p.Outcome)
		assert.Equal(t, p.Old.Path(), p.New.Path())
	}
}

func TestFilesFuzzyThreshold(t *testing.T) {
	t.Parallel()

	shared := []*model.Method{method("", "load"), method("", "save"), method("", "parse")}

	t.Run("overlapping methods", func(t *testing.T) {
		t.Parallel()
		old := []*model.File{file("util.py", shared...)}
		new := []*model.File{file("utils.py", shared[0], shared[1], method("", "other"))}

		pairs := Files(old, new)
		require.Len(t, pairs, 1)
		assert.Equal(t, Fuzzy, pairs[0].Outcome)
		assert.Equal(t, "util.py", pairs[0].Old.Path())
		assert.Equal(t, "utils.py", pairs[0].New.Path())
	})

	t.Run("disjoint methods", func(t *testing.T) {
		t.Parallel()
		old := []*model.File{file("util.py", shared...)}
		new := []*model.File{file("utils.py", method("", "x"), method("", "y"))}

		pairs := Files(old, new)
		assert.Equal(t, []Outcome{Removed, Added}, outcomes(pairs))
		assert.Nil(t, pairs[0].New)
		assert.Nil(t, pairs[1].Old)
	})

	t.Run("exactly half shared is rejected", func(t *testing.T) {
		t.Parallel()
		old := []*model.File{file("util.py", method("", "a"), method("", "b"))}
		new := []*model.File{file("utils.py", method("", "a"), method("", "c"))}

		assert.Equal(t, []Outcome{Removed, Added}, outcomes(Files(old, new)))
	})

	t.Run("method guard skipped when a side is empty", func(t *testing.T) {
		t.Parallel()
		old := []*model.File{file("util.py", shared...)}
		new := []*model.File{file("utils.py")}

		assert.Equal(t, []Outcome{Fuzzy}, outcomes(Files(old, new)))
	})

	t.Run("name ratio at threshold is rejected", func(t *testing.T) {
		t.Parallel()
		// ratio("b.py", "c.py") == 0.75, which does not exceed the threshold.
		old := []*model.File{file("b.py")}
		new := []*model.File{file("c.py")}

		assert.Equal(t, []Outcome{Removed, Added}, outcomes(Files(old, new)))
	})
}

func TestFilesFirstAcceptableCandidateWins(t *testing.T) {
	t.Parallel()

	old := []*model.File{file("reader.py")}
	// Both candidates pass the thresholds; readers.py scores higher but comes second.
	new := []*model.File{file("reader2.py"), file("readers.py")}

	pairs := Files(old, new)
	require.Len(t, pairs, 2)
	assert.Equal(t, Fuzzy, pairs[0].Outcome)
	assert.Equal(t, "reader2.py", pairs[0].New.Path())
	assert.Equal(t, Added, pairs[1].Outcome)
	assert.Equal(t, "readers.py", pairs[1].New.Path())
}

func TestFilesEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Files(nil, nil))

	only := []*model.File{file("a.py"), file("b.py")}
	assert.Equal(t, []Outcome{Removed, Removed}, outcomes(Files(only, nil)))
	assert.Equal(t, []Outcome{Added, Added}, outcomes(Files(nil, only)))
}

func TestFilesTotality(t *testing.T) {
	t.Parallel()

	old := []*model.File{
		file("a.py", method("", "f")),
		file("loader.py", method("", "load"), method("", "read")),
		file("gone.py", method("", "g")),
		file("x/y.py"),
	}
	new := []*model.File{
		file("a.py", method("", "f")),
		file("loaders.py", method("", "load"), method("", "read"), method("", "close")),
		file("fresh.py", method("", "h")),
		file("x/z.py"),
	}

	pairs := Files(old, new)
	seenOld := make(map[string]int)
	seenNew := make(map[string]int)
	for _, p := range pairs {
		if p.Old != nil {
			seenOld[p.Old.Path()]++
		}
		if p.New != nil {
			seenNew[p.New.Path()]++
		}
	}
	for _, f := range old {
		assert.Equal(t, 1, seenOld[f.Path()], "old %s", f.Path())
	}
	for _, f := range new {
		assert.Equal(t, 1, seenNew[f.Path()], "new %s", f.Path())
	}
}

func TestFilesDeterministic(t *testing.T) {
	t.Parallel()

	old := []*model.File{file("parser.py"), file("parsers.py"), file("parse.py")}
	new := []*model.File{file("parsers2.py"), file("parser2.py"), file("parse2.py")}

	first := Files(old, new)
	for range 20 {
		again := Files(old, new)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].Outcome, again[i].Outcome)
			assert.Same(t, first[i].Old, again[i].Old)
			assert.Same(t, first[i].New, again[i].New)
		}
	}
}

func TestMethodsPartialMatch(t *testing.T) {
	t.Parallel()

	old := file("m.py", method("", "foo", "a", "b"))
	new := file("m.py", method("", "foo", "a", "b", "c"))

	pairs := Methods(old, new)
	require.Len(t, pairs, 1)
	assert.Equal(t, Partial, pairs[0].Outcome)
	assert.Equal(t, []string{"a", "b", "c"}, pairs[0].New.Params())
}

func TestMethodsPartialDoesNotStealExactMatch(t *testing.T) {
	t.Parallel()

	old := file("m.py",
		method("", "foo", "a"),
		method("", "foo", "a", "b"),
	)
	new := file("m.py",
		method("", "foo", "a", "b"),
		method("", "foo", "a", "b", "c"),
	)

	pairs := Methods(old, new)
	require.Len(t, pairs, 2)

	assert.Equal(t, Partial, pairs[0].Outcome)
	assert.Equal(t, []string{"a"}, pairs[0].Old.Params())
	assert.Equal(t, []string{"a", "b", "c"}, pairs[0].New.Params())

	assert.Equal(t, Exact, pairs[1].Outcome)
	assert.Equal(t, []string{"a", "b"}, pairs[1].Old.Params())
	assert.Equal(t, []string{"a", "b"}, pairs[1].New.Params())
}

func TestMethodsPartialConsumesCandidate(t *testing.T) {
	t.Parallel()

	// Two old overloads compete for a single new method; only the first gets it.
	old := file("m.py",
		method("C", "run", "self", "x"),
		method("C", "run", "self", "y"),
	)
	new := file("m.py", method("C", "run", "self", "z"))

	assert.Equal(t, []Outcome{Partial, Removed}, outcomes(Methods(old, new)))
}

func TestMethodsClassMatters(t *testing.T) {
	t.Parallel()

	old := file("m.py", method("A", "run", "self"))
	new := file("m.py", method("B", "run", "self"))

	assert.Equal(t, []Outcome{Removed, Added}, outcomes(Methods(old, new)))
}

func TestMethodsRejectSentinel(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { Methods(file("a.py"), nil) })
	assert.Panics(t, func() { Methods(nil, file("a.py")) })
}

func TestCallsExactAndRelocated(t *testing.T) {
	t.Parallel()

	old := withCalls("f",
		call("obj", "run", "obj.run(x)", 10),
		call("", "print", "print(y)", 30),
	)
	new := withCalls("f",
		call("", "print", "print(y)", 30),
		call("obj", "run", "obj.run(x)", 50),
	)

	pairs := Calls(old, new)
	require.Len(t, pairs, 2)

	assert.Equal(t, Relocated, pairs[0].Outcome)
	assert.Equal(t, 10, pairs[0].Old.Start())
	assert.Equal(t, 50, pairs[0].New.Start())

	assert.Equal(t, Exact, pairs[1].Outcome)
	assert.Equal(t, "print(y)", pairs[1].New.Expression())
}

func TestCallsShiftedOffsetsFallThrough(t *testing.T) {
	t.Parallel()

	// Same expression, both offsets shifted by an insertion above it.
	old := withCalls("f", call("", "load", "load(p)", 12))
	new := withCalls("f", call("", "load", "load(p)", 27))

	pairs := Calls(old, new)
	require.Len(t, pairs, 1)
	assert.Equal(t, Relocated, pairs[0].Outcome)

	// Unshifted, the exact pass takes it.
	same := withCalls("f", call("", "load", "load(p)", 12))
	assert.Equal(t, []Outcome{Exact}, outcomes(Calls(old, same)))
}

func TestCallsExactBeatsEarlierRelocated(t *testing.T) {
	t.Parallel()

	old := withCalls("f", call("db", "query", "db.query(b)", 40))
	new := withCalls("f",
		call("db", "query", "db.query(a)", 5),
		call("db", "query", "db.query(b)", 40),
	)

	pairs := Calls(old, new)
	require.Len(t, pairs, 2)
	assert.Equal(t, Exact, pairs[0].Outcome)
	assert.Equal(t, 40, pairs[0].New.Start())
	assert.Equal(t, Added, pairs[1].Outcome)
	assert.Equal(t, 5, pairs[1].New.Start())
}

func TestCallsDuplicateLookingCallsTrackedByPosition(t *testing.T) {
	t.Parallel()

	old := withCalls("f",
		call("log", "info", "log.info(a)", 0),
		call("log", "info", "log.info(a)", 20),
	)
	new := withCalls("f",
		call("log", "info", "log.info(a)", 5),
		call("log", "info", "log.info(a)", 25),
		call("log", "info", "log.info(a)", 45),
	)

	pairs := Calls(old, new)
	assert.Equal(t, []Outcome{Relocated, Relocated, Added}, outcomes(pairs))
	assert.Equal(t, 5, pairs[0].New.Start())
	assert.Equal(t, 25, pairs[1].New.Start())
	assert.Equal(t, 45, pairs[2].New.Start())
}

func TestCallsSortedByOffset(t *testing.T) {
	t.Parallel()

	old := withCalls("f",
		call("", "b", "b()", 20),
		call("", "a", "a()", 10),
	)
	pairs := Calls(old, withCalls("f"))
	require.Len(t, pairs, 2)
	assert.Equal(t, 10, pairs[0].Old.Start())
	assert.Equal(t, 20, pairs[1].Old.Start())

	// The method itself keeps its extraction order.
	assert.Equal(t, 20, old.Calls()[0].Start())
}

func TestCallsEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Calls(withCalls("f"), withCalls("f")))
	assert.Equal(t, []Outcome{Added}, outcomes(Calls(withCalls("f"), withCalls("f", call("", "g", "g()", 1)))))
	assert.Panics(t, func() { Calls(nil, withCalls("f")) })
}
