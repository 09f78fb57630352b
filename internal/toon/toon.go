// Package toon renders a comparison summary in TOON (Token-Oriented Object Notation).
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/relmap/internal/match"
	"github.com/phobologic/relmap/internal/model"
	"github.com/phobologic/relmap/internal/similarity"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

var outcomeColumns = []match.Outcome{
	match.Exact, match.Fuzzy, match.Partial, match.Relocated, match.Removed, match.Added,
}

// Encode summarizes a comparison: one row per file pair, one row per method
// that did not survive unchanged, and per-level outcome totals.
func Encode(cmp *match.Comparison) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("old: %s", encodeValue(cmp.Old.Root())))
	parts = append(parts, fmt.Sprintf("new: %s", encodeValue(cmp.New.Root())))

	var fileRows, methodRows [][]string
	for _, fd := range cmp.Files {
		changed := 0
		for _, md := range fd.Methods {
			if row, ok := methodRow(fd, md); ok {
				methodRows = append(methodRows, row)
				changed++
			}
		}
		fileRows = append(fileRows, []string{
			filePath(fd.Old),
			filePath(fd.New),
			string(fd.Outcome),
			strconv.Itoa(methodCount(fd)),
			strconv.Itoa(changed),
		})
	}
	parts = append(parts, formatTabular("files", []string{"old", "new", "outcome", "methods", "changed"}, fileRows))
	parts = append(parts, formatTabular("methods", []string{"file", "old", "new", "outcome", "ratio"}, methodRows))

	tally := cmp.Tally()
	columns := []string{"level"}
	for _, o := range outcomeColumns {
		columns = append(columns, string(o))
	}
	var totalRows [][]string
	for _, level := range []struct {
		name   string
		counts map[match.Outcome]int
	}{
		{"files", tally.Files},
		{"methods", tally.Methods},
		{"calls", tally.Calls},
	} {
		row := []string{level.name}
		for _, o := range outcomeColumns {
			row = append(row, strconv.Itoa(level.counts[o]))
		}
		totalRows = append(totalRows, row)
	}
	parts = append(parts, formatTabular("totals", columns, totalRows))

	return strings.Join(parts, "\n")
}

// methodRow describes a method pair unless it matched exactly with unchanged text.
func methodRow(fd match.FileDiff, md match.MethodDiff) ([]string, bool) {
	ratio := ""
	if md.Matched() {
		if md.Outcome == match.Exact && md.Old.Content() == md.New.Content() {
			return nil, false
		}
		ratio = fmt.Sprintf("%.4f", similarity.Ratio(md.Old.Content(), md.New.Content()))
	}
	return []string{
		fd.New.Path(),
		methodSignature(md.Old),
		methodSignature(md.New),
		string(md.Outcome),
		ratio,
	}, true
}

func methodCount(fd match.FileDiff) int {
	switch {
	case fd.Matched():
		return len(fd.Methods)
	case fd.Old != nil:
		return len(fd.Old.Methods())
	default:
		return len(fd.New.Methods())
	}
}

func filePath(f *model.File) string {
	if f == nil {
		return ""
	}
	return f.Path()
}

func methodSignature(m *model.Method) string {
	if m == nil {
		return ""
	}
	return m.String()
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return quote(value)
	}
	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}
	if looksNumeric.MatchString(value) {
		return value
	}
	if needsQuoting.MatchString(value) || strings.HasPrefix(value, "-") {
		return quote(value)
	}
	return value
}

func quote(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(value) + `"`
}
