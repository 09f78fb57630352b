package parse

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/phobologic/relmap/internal/lang"
	"github.com/phobologic/relmap/internal/model"
)

func setup(t *testing.T, langName string) func(source string) (*model.File, error) {
	t.Helper()
	l := lang.Languages[langName]
	if l == nil {
		t.Fatalf("language %q not registered", langName)
	}
	ext := l.Extensions[0]
	return func(source string) (*model.File, error) {
		p := l.NewParser()
		return ExtractFile(context.Background(), l, p, []byte(source), "pkg/test"+ext)
	}
}

func mustExtract(t *testing.T, extract func(string) (*model.File, error), source string) *model.File {
	t.Helper()
	f, err := extract(source)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	return f
}

// --- Python tests ---

func TestPythonExtractFile(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python")

	source := `import os
from pathlib import Path as P

def load(path, mode="r"):
    # open it
    with open(path, mode) as fh:
        return fh.read()

class Store:
    def save(self, key):
        """Persist key."""
        self.db.put(key, os.getpid())
`
	f := mustExtract(t, extract, source)

	if f.Path() != "pkg/test.py" || f.Name() != "test.py" {
		t.Errorf("path = %q, name = %q", f.Path(), f.Name())
	}
	if f.Content() != source {
		t.Error("content not preserved")
	}

	var imports []string
	for _, imp := range f.Imports() {
		imports = append(imports, imp.Content)
	}
	if want := []string{"import os", "from pathlib import Path as P"}; !slices.Equal(imports, want) {
		t.Errorf("imports = %q, want %q", imports, want)
	}

	methods := f.Methods()
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
	if got := methods[0].String(); got != "load(path, mode)" {
		t.Errorf("method 0 = %q", got)
	}
	if got := methods[1].String(); got != "Store.save(self, key)" {
		t.Errorf("method 1 = %q", got)
	}
}

func TestPythonExtractCalls(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python")

	source := "def f(x):\n    s = \"é\"\n    return self.db.query(g(x))\n"
	f := mustExtract(t, extract, source)
	m := f.Methods()[0]

	calls := m.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}

	outer, inner := calls[0], calls[1]
	if outer.Name() != "query" || outer.Context() != "self.db" || outer.Expression() != "self.db.query(g(x))" {
		t.Errorf("outer call = %q %q %q", outer.Name(), outer.Context(), outer.Expression())
	}
	// Offsets count characters: "é" is two bytes.
	if outer.Start() != 33 || outer.End() != 52 {
		t.Errorf("outer offsets = %d..%d, want 33..52", outer.Start(), outer.End())
	}
	if outer.Line().Number != 2 {
		t.Errorf("outer line = %d, want 2", outer.Line().Number)
	}
	if inner.Name() != "g" || inner.Context() != "" {
		t.Errorf("inner call = %q %q", inner.Name(), inner.Context())
	}
}

func TestPythonCodeLines(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python")

	source := "def f():\n    \"\"\"Doc\n    more.\n    \"\"\"\n    # c\n    return 1\n"
	m := mustExtract(t, extract, source).Methods()[0]

	if len(m.Lines()) != 6 {
		t.Errorf("lines = %d, want 6", len(m.Lines()))
	}
	var code []string
	for _, l := range m.CodeLines() {
		code = append(code, l.Text)
	}
	if want := []string{"def f():", "return 1"}; !slices.Equal(code, want) {
		t.Errorf("code lines = %q, want %q", code, want)
	}
}

func TestPythonExtractEmpty(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python")

	f := mustExtract(t, extract, "")
	if len(f.Methods()) != 0 || len(f.Imports()) != 0 {
		t.Errorf("expected empty file, got %d methods", len(f.Methods()))
	}
}

func TestExtractRejects(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python")

	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"syntax error", "def broken(:\n    pass\n", ErrSyntax},
		{"invalid utf-8", "x = '\xff\xfe'\n", ErrEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := extract(tt.source)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if f != nil {
				t.Error("expected no file on error")
			}
		})
	}
}

// --- Go tests ---

func TestGoExtractFile(t *testing.T) {
	t.Parallel()
	extract := setup(t, "go")

	source := `package main

import "fmt"

// Serve starts.
func (s *Server) Serve(addr string) error {
	fmt.Println(addr)
	return s.listen(addr)
}
`
	f := mustExtract(t, extract, source)
	methods := f.Methods()
	if len(methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(methods))
	}
	m := methods[0]
	if m.String() != "Server.Serve(addr)" {
		t.Errorf("method = %q", m.String())
	}

	var names []string
	for _, c := range m.Calls() {
		names = append(names, c.Context()+"."+c.Name())
	}
	if want := []string{"fmt.Println", "s.listen"}; !slices.Equal(names, want) {
		t.Errorf("calls = %q, want %q", names, want)
	}
	if len(f.Imports()) != 1 || f.Imports()[0].Content != `import "fmt"` {
		t.Errorf("imports = %+v", f.Imports())
	}
}

// --- Ruby tests ---

func TestRubyExtractFile(t *testing.T) {
	t.Parallel()
	extract := setup(t, "ruby")

	source := `require "json"

class Report
  def render(data)
    JSON.generate(data)
  end
end
`
	f := mustExtract(t, extract, source)
	methods := f.Methods()
	if len(methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(methods))
	}
	if methods[0].String() != "Report.render(data)" {
		t.Errorf("method = %q", methods[0].String())
	}
	calls := methods[0].Calls()
	if len(calls) != 1 || calls[0].Name() != "generate" || calls[0].Context() != "JSON" {
		t.Errorf("calls = %+v", calls)
	}
	if len(f.Imports()) != 1 || f.Imports()[0].Name != "json" {
		t.Errorf("imports = %+v", f.Imports())
	}
}
