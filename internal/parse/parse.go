// Package parse extracts files, methods and calls from source using tree-sitter.
package parse

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/relmap/internal/lang"
	"github.com/phobologic/relmap/internal/model"
)

var (
	// ErrEncoding is returned for source that is not valid UTF-8.
	ErrEncoding = errors.New("source is not valid UTF-8")
	// ErrSyntax is returned for source whose syntax tree contains errors.
	ErrSyntax = errors.New("source has syntax errors")
)

// ExtractFile parses a source file and builds its entity. The parser must be
// created for l. relPath is the repo-relative path and becomes the file identity.
// Files that cannot be decoded or parsed cleanly are rejected with ErrEncoding
// or ErrSyntax so the caller can leave them out of the snapshot.
func ExtractFile(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte, relPath string) (*model.File, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%s: %w", relPath, ErrEncoding)
	}
	if len(source) == 0 {
		return model.NewFile(relPath, "", nil, nil), nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%s: %w", relPath, ErrSyntax)
	}

	defs := l.Definitions(root, source)
	methods := make([]*model.Method, 0, len(defs))
	for _, d := range defs {
		methods = append(methods, model.NewMethod(model.MethodSpec{
			Class:    d.Class,
			Name:     d.Name,
			Params:   d.Params,
			Content:  lang.NodeText(d.Node, source),
			Calls:    collectCalls(l, d.Node, source),
			Comments: l.Comments,
		}))
	}

	return model.NewFile(relPath, string(source), methods, l.Imports(root, source)), nil
}

// collectCalls walks a definition in pre-order and returns its call sites with
// character offsets relative to the start of the definition text.
func collectCalls(l *lang.Language, def *sitter.Node, source []byte) []model.CallSite {
	base := def.StartByte()
	var calls []model.CallSite

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if name, recv, ok := l.CallTarget(node, source); ok && name != "" {
			expr := lang.NodeText(node, source)
			start := utf8.RuneCount(source[base:node.StartByte()])
			calls = append(calls, model.CallSite{
				Name:       name,
				Context:    recv,
				Expression: expr,
				Start:      start,
				End:        start + utf8.RuneCountInString(expr),
			})
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(def)
	return calls
}
