package model

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// LineRecord is one physical line of a method: its 0-based index within the
// method text and the trimmed line content.
type LineRecord struct {
	Number int
	Text   string
}

// CommentStyle describes how comments look in a language, so a method's
// comment-free line view can be derived from its text.
type CommentStyle struct {
	Line  string   // single-line comment prefix
	Open  []string // block comment or docstring openers
	Close []string // closers, parallel to Open
}

// CallSite is a raw call expression found by the extractor. Offsets are
// character offsets within the enclosing method text.
type CallSite struct {
	Name       string
	Context    string
	Expression string
	Start      int
	End        int
}

// MethodSpec holds everything needed to build a Method.
type MethodSpec struct {
	Class    string
	Name     string
	Params   []string
	Content  string
	Calls    []CallSite
	Comments CommentStyle
}

// Method is a standalone function or a class method inside a File.
type Method struct {
	class   string
	name    string
	params  []string
	content string
	lines   []LineRecord
	code    []LineRecord
	calls   []*FunctionCall
}

// NewMethod builds a method, deriving its line records and attaching each call
// site to the line it starts on. Call sites with the same expression and offsets
// are kept once.
func NewMethod(spec MethodSpec) *Method {
	m := &Method{
		class:   spec.Class,
		name:    spec.Name,
		params:  slices.Clone(spec.Params),
		content: spec.Content,
	}
	if m.params == nil {
		m.params = []string{}
	}
	m.lines, m.code = splitLines(spec.Content, spec.Comments)

	starts := lineStarts(spec.Content)
	for _, cs := range spec.Calls {
		fc := &FunctionCall{
			name:       cs.Name,
			context:    cs.Context,
			expression: cs.Expression,
			start:      cs.Start,
			end:        cs.End,
		}
		if slices.ContainsFunc(m.calls, fc.Equal) {
			continue
		}
		if len(m.lines) > 0 {
			fc.line = m.lines[lineIndex(starts, cs.Start)]
		}
		m.calls = append(m.calls, fc)
	}
	return m
}

// Class returns the owning class name, or "" for a standalone function.
func (m *Method) Class() string { return m.class }

// Name returns the method name.
func (m *Method) Name() string { return m.name }

// Params returns the parameter names in declaration order.
func (m *Method) Params() []string { return slices.Clone(m.params) }

// Content returns the raw method text.
func (m *Method) Content() string { return m.content }

// Lines returns every physical line of the method.
func (m *Method) Lines() []LineRecord { return slices.Clone(m.lines) }

// CodeLines returns the lines that are neither blank nor comments.
func (m *Method) CodeLines() []LineRecord { return slices.Clone(m.code) }

// Calls returns the method's call expressions in extraction order.
func (m *Method) Calls() []*FunctionCall { return slices.Clone(m.calls) }

// ID returns the identity hash of (class, name, params).
func (m *Method) ID() string {
	return hashKey(m.class, m.name, strings.Join(m.params, " "))
}

// Equal reports identity equality: same class, name and parameter list.
func (m *Method) Equal(other *Method) bool {
	return m.PartialEqual(other) && slices.Equal(m.params, other.params)
}

// PartialEqual reports whether both methods have the same class and name,
// regardless of their parameters.
func (m *Method) PartialEqual(other *Method) bool {
	return other != nil && m.class == other.class && m.name == other.name
}

// String returns a readable signature such as "Cls.run(self, x)".
func (m *Method) String() string {
	var b strings.Builder
	if m.class != "" {
		b.WriteString(m.class)
		b.WriteByte('.')
	}
	b.WriteString(m.name)
	b.WriteByte('(')
	b.WriteString(strings.Join(m.params, ", "))
	b.WriteByte(')')
	return b.String()
}

// FunctionCall is one call expression inside a method body.
type FunctionCall struct {
	name       string
	context    string
	expression string
	start      int
	end        int
	line       LineRecord
}

// Name returns the callee name.
func (fc *FunctionCall) Name() string { return fc.name }

// Context returns the receiver expression ("obj" in obj.f(x)), or "".
func (fc *FunctionCall) Context() string { return fc.context }

// Expression returns the full call text.
func (fc *FunctionCall) Expression() string { return fc.expression }

// Start returns the character offset of the call within the method text.
func (fc *FunctionCall) Start() int { return fc.start }

// End returns the character offset just past the call.
func (fc *FunctionCall) End() int { return fc.end }

// Line returns the line the call starts on.
func (fc *FunctionCall) Line() LineRecord { return fc.line }

// ID returns the identity hash of (expression, start, end).
func (fc *FunctionCall) ID() string {
	return hashKey(fc.expression, strconv.Itoa(fc.start), strconv.Itoa(fc.end))
}

// Equal reports identity equality: same expression at the same offsets.
func (fc *FunctionCall) Equal(other *FunctionCall) bool {
	return other != nil &&
		fc.expression == other.expression &&
		fc.start == other.start &&
		fc.end == other.end
}

// SameSite reports whether both calls invoke the same name on the same
// receiver, wherever they are located.
func (fc *FunctionCall) SameSite(other *FunctionCall) bool {
	return other != nil && fc.context == other.context && fc.name == other.name
}

// splitLines returns all lines of content and the subset that carries code.
func splitLines(content string, style CommentStyle) (all, code []LineRecord) {
	if content == "" {
		return nil, nil
	}
	closer := ""
	for i, raw := range strings.Split(content, "\n") {
		rec := LineRecord{Number: i, Text: strings.TrimSpace(raw)}
		all = append(all, rec)

		if closer != "" {
			if strings.Contains(rec.Text, closer) {
				closer = ""
			}
			continue
		}
		if open, end, ok := style.blockOpen(rec.Text); ok {
			rest := rec.Text[strings.Index(rec.Text, open)+len(open):]
			if !strings.Contains(rest, end) {
				closer = end
			}
			continue
		}
		if rec.Text == "" || (style.Line != "" && strings.HasPrefix(rec.Text, style.Line)) {
			continue
		}
		code = append(code, rec)
	}
	return all, code
}

func (s CommentStyle) blockOpen(line string) (open, end string, ok bool) {
	for i, o := range s.Open {
		if i < len(s.Close) && strings.Contains(line, o) {
			return o, s.Close[i], true
		}
	}
	return "", "", false
}

// lineStarts returns the character offset at which each line of content begins.
func lineStarts(content string) []int {
	starts := []int{0}
	offset := 0
	for _, r := range content {
		offset++
		if r == '\n' {
			starts = append(starts, offset)
		}
	}
	return starts
}

func lineIndex(starts []int, offset int) int {
	i := sort.SearchInts(starts, offset+1) - 1
	return max(i, 0)
}
