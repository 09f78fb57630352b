// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and the hooks that pick definitions, imports and
// calls out of their syntax trees.
package lang

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/relmap/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Definition is a function or method found in a syntax tree.
type Definition struct {
	Class  string
	Name   string
	Params []string
	// Node spans the method text, decorators included.
	Node *sitter.Node
}

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	Comments   model.CommentStyle
	lang       *sitter.Language

	// Definitions returns the file's functions and methods in source order.
	Definitions func(root *sitter.Node, source []byte) []Definition

	// Imports returns the file's import statements in source order.
	Imports func(root *sitter.Node, source []byte) []model.Import

	// CallTarget splits a call node into callee name and receiver text.
	// ok is false when node is not a call or its callee has no usable name.
	CallTarget func(node *sitter.Node, source []byte) (name, context string, ok bool)
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// Names returns the registered language names, sorted.
func Names() []string {
	names := make([]string, 0, len(Languages))
	for name := range Languages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves language names, rejecting unknown ones.
func Lookup(names []string) ([]*Language, error) {
	out := make([]*Language, 0, len(names))
	for _, name := range names {
		l, ok := Languages[name]
		if !ok {
			return nil, fmt.Errorf("unsupported language %q (supported: %s)", name, strings.Join(Names(), ", "))
		}
		out = append(out, l)
	}
	return out, nil
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// fieldText returns the text of node's field child, or "".
func fieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return NodeText(child, source)
}

// namedChildren returns node's named children, skipping comments.
func namedChildren(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// sameNode reports whether a and b span the same source range with the same type.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
