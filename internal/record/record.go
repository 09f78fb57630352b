// Package record flattens a comparison into the records written to the dataset.
//
// A matched entity is described by its new version and points at the old one
// through Mapping. Removed and added entities carry the literal markers instead,
// and their children are copied verbatim without any further diffing.
package record

import (
	"github.com/phobologic/relmap/internal/match"
	"github.com/phobologic/relmap/internal/model"
	"github.com/phobologic/relmap/internal/similarity"
)

// Mapping markers for entities without a counterpart.
const (
	MappingRemoved = "removed"
	MappingAdded   = "added"
)

// Statistics scores a matched pair's defining text.
type Statistics struct {
	Ratio float64 `json:"ratio"`
	Dist  int     `json:"dist"`
}

// Call describes one function call.
type Call struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Context     *string     `json:"context"`
	Expression  string      `json:"expression"`
	StartOffset int         `json:"start_offset"`
	EndOffset   int         `json:"end_offset"`
	Lineno      int         `json:"lineno"`
	Mapping     string      `json:"mapping,omitempty"`
	Statistics  *Statistics `json:"statistics,omitempty"`
}

// Method describes one method and its calls.
type Method struct {
	ID            string      `json:"id"`
	Class         *string     `json:"class"`
	Name          string      `json:"name"`
	Params        []string    `json:"params"`
	Content       string      `json:"content"`
	Mapping       string      `json:"mapping,omitempty"`
	FunctionCalls []Call      `json:"function_calls"`
	Statistics    *Statistics `json:"statistics,omitempty"`
}

// File describes one file and its methods. Files are never scored.
type File struct {
	ID      string   `json:"id"`
	Path    string   `json:"path"`
	Mapping string   `json:"mapping,omitempty"`
	Imports []string `json:"imports"`
	Methods []Method `json:"methods"`
}

// Assemble converts every file pair of cmp into a record, in pair order.
func Assemble(cmp *match.Comparison) []File {
	out := make([]File, 0, len(cmp.Files))
	for _, fd := range cmp.Files {
		out = append(out, fileDiff(fd))
	}
	return out
}

// Genesis describes the initial state of a snapshot: every file, method and
// call with no mapping.
func Genesis(repo *model.Repository) []File {
	files := repo.Files()
	out := make([]File, 0, len(files))
	for _, f := range files {
		out = append(out, verbatimFile(f, ""))
	}
	return out
}

func fileDiff(fd match.FileDiff) File {
	switch fd.Outcome {
	case match.Removed:
		return verbatimFile(fd.Old, MappingRemoved)
	case match.Added:
		return verbatimFile(fd.New, MappingAdded)
	}
	rec := fileFields(fd.New, fd.Old.ID())
	rec.Methods = make([]Method, 0, len(fd.Methods))
	for _, md := range fd.Methods {
		rec.Methods = append(rec.Methods, methodDiff(md))
	}
	return rec
}

func methodDiff(md match.MethodDiff) Method {
	switch md.Outcome {
	case match.Removed:
		return verbatimMethod(md.Old, MappingRemoved)
	case match.Added:
		return verbatimMethod(md.New, MappingAdded)
	}
	rec := methodFields(md.New, md.Old.ID())
	rec.Statistics = score(md.Old.Content(), md.New.Content())
	rec.FunctionCalls = make([]Call, 0, len(md.Calls))
	for _, cp := range md.Calls {
		rec.FunctionCalls = append(rec.FunctionCalls, callPair(cp))
	}
	return rec
}

func callPair(cp match.Pair[*model.FunctionCall]) Call {
	switch cp.Outcome {
	case match.Removed:
		return callFields(cp.Old, MappingRemoved)
	case match.Added:
		return callFields(cp.New, MappingAdded)
	}
	rec := callFields(cp.New, cp.Old.ID())
	rec.Statistics = score(cp.Old.Expression(), cp.New.Expression())
	return rec
}

func verbatimFile(f *model.File, mapping string) File {
	rec := fileFields(f, mapping)
	methods := f.Methods()
	rec.Methods = make([]Method, 0, len(methods))
	for _, m := range methods {
		rec.Methods = append(rec.Methods, verbatimMethod(m, ""))
	}
	return rec
}

func verbatimMethod(m *model.Method, mapping string) Method {
	rec := methodFields(m, mapping)
	calls := m.Calls()
	rec.FunctionCalls = make([]Call, 0, len(calls))
	for _, fc := range calls {
		rec.FunctionCalls = append(rec.FunctionCalls, callFields(fc, ""))
	}
	return rec
}

func fileFields(f *model.File, mapping string) File {
	imports := f.Imports()
	rec := File{
		ID:      f.ID(),
		Path:    f.Path(),
		Mapping: mapping,
		Imports: make([]string, 0, len(imports)),
	}
	for _, imp := range imports {
		rec.Imports = append(rec.Imports, imp.Content)
	}
	return rec
}

func methodFields(m *model.Method, mapping string) Method {
	return Method{
		ID:      m.ID(),
		Class:   optional(m.Class()),
		Name:    m.Name(),
		Params:  m.Params(),
		Content: m.Content(),
		Mapping: mapping,
	}
}

func callFields(fc *model.FunctionCall, mapping string) Call {
	return Call{
		ID:          fc.ID(),
		Name:        fc.Name(),
		Context:     optional(fc.Context()),
		Expression:  fc.Expression(),
		StartOffset: fc.Start(),
		EndOffset:   fc.End(),
		Lineno:      fc.Line().Number,
		Mapping:     mapping,
	}
}

func score(a, b string) *Statistics {
	ratio, dist := similarity.Compare(a, b)
	return &Statistics{Ratio: ratio, Dist: dist}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
