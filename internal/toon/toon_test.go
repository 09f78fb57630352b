package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/relmap/internal/match"
	"github.com/phobologic/relmap/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"true keyword", "True", `"True"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"ratio", "0.9500", "0.9500"},
		{"comma", "a,b", `"a,b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "pkg/loader.py", "pkg/loader.py"},
		{"signature", "Loader.read(self)", "Loader.read(self)"},
		{"signature with params", "read(self, path)", `"read(self, path)"`},
		{"outcome", "relocated", "relocated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func method(name, content string, params ...string) *model.Method {
	return model.NewMethod(model.MethodSpec{Name: name, Params: params, Content: content})
}

func TestEncode(t *testing.T) {
	t.Parallel()

	old := model.NewRepository("v1", []*model.File{
		model.NewFile("a.py", "", []*model.Method{
			method("f", "def f():\n    pass"),
			method("g", "def g(x):\n    pass", "x"),
		}, nil),
		model.NewFile("gone.py", "", []*model.Method{method("h", "def h():\n    pass")}, nil),
	})
	new := model.NewRepository("v2", []*model.File{
		model.NewFile("a.py", "", []*model.Method{
			method("f", "def f():\n    pass"),
			method("g", "def g(x, y):\n    pass", "x", "y"),
		}, nil),
		model.NewFile("fresh.py", "", []*model.Method{method("k", "def k():\n    pass")}, nil),
	})

	got := Encode(match.Compare(old, new))
	lines := strings.Split(got, "\n")

	want := []string{
		"old: v1",
		"new: v2",
		"files[3]{old,new,outcome,methods,changed}:",
		"  a.py,a.py,exact,2,1",
		`  gone.py,"",removed,1,0`,
		`  "",fresh.py,added,1,0`,
		"methods[1]{file,old,new,outcome,ratio}:",
	}
	if len(lines) < len(want)+1 {
		t.Fatalf("got %d lines:\n%s", len(lines), got)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d: got %q, want %q", i, lines[i], w)
		}
	}
	if !strings.HasPrefix(lines[7], `  a.py,g(x),"g(x, y)",partial,0.`) {
		t.Errorf("line 7: got %q", lines[7])
	}

	totals := strings.Join(lines[8:], "\n")
	wantTotals := strings.Join([]string{
		"totals[3]{level,exact,fuzzy,partial,relocated,removed,added}:",
		"  files,1,0,0,0,1,1",
		"  methods,1,0,1,0,0,0",
		"  calls,0,0,0,0,0,0",
	}, "\n")
	if totals != wantTotals {
		t.Errorf("totals:\ngot:\n%s\nwant:\n%s", totals, wantTotals)
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	empty := model.NewRepository("empty", nil)
	got := Encode(match.Compare(empty, empty))

	for _, section := range []string{
		"files[0]{old,new,outcome,methods,changed}:",
		"methods[0]{file,old,new,outcome,ratio}:",
		"  files,0,0,0,0,0,0",
	} {
		if !strings.Contains(got, section) {
			t.Errorf("expected %q in:\n%s", section, got)
		}
	}
}
