package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/phobologic/relmap/internal/model"
)

func init() {
	Languages["ruby"] = &Language{
		Name:       "ruby",
		Extensions: []string{".rb"},
		Comments: model.CommentStyle{
			Line:  "#",
			Open:  []string{"=begin"},
			Close: []string{"=end"},
		},
		lang:        ruby.GetLanguage(),
		Definitions: rubyDefinitions,
		Imports:     rubyImports,
		CallTarget:  rubyCallTarget,
	}
}

// rubyDefinitions returns top-level methods plus the methods and singleton
// methods of classes and modules. Nested namespaces are joined with "::".
func rubyDefinitions(root *sitter.Node, source []byte) []Definition {
	var defs []Definition
	var visit func(node *sitter.Node, class string)
	visit = func(node *sitter.Node, class string) {
		for _, child := range namedChildren(node) {
			switch child.Type() {
			case "method", "singleton_method":
				defs = append(defs, Definition{
					Class:  class,
					Name:   fieldText(child, "name", source),
					Params: rubyParams(child.ChildByFieldName("parameters"), source),
					Node:   child,
				})
			case "class", "module":
				name := fieldText(child, "name", source)
				if class != "" {
					name = class + "::" + name
				}
				visit(child, name)
			case "body_statement":
				visit(child, class)
			}
		}
	}
	visit(root, "")
	return defs
}

// rubyParams returns every parameter name, splats and blocks included.
func rubyParams(params *sitter.Node, source []byte) []string {
	names := []string{}
	if params == nil {
		return names
	}
	for _, p := range namedChildren(params) {
		if p.Type() == "identifier" {
			names = append(names, NodeText(p, source))
			continue
		}
		if name := fieldText(p, "name", source); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// rubyImports treats top-level require and require_relative calls as imports.
func rubyImports(root *sitter.Node, source []byte) []model.Import {
	var imports []model.Import
	for _, node := range namedChildren(root) {
		if node.Type() != "call" && node.Type() != "method_call" {
			continue
		}
		method := fieldText(node, "method", source)
		if method != "require" && method != "require_relative" {
			continue
		}
		args := node.ChildByFieldName("arguments")
		if args == nil || args.NamedChildCount() == 0 {
			continue
		}
		target := strings.Trim(NodeText(args.NamedChild(0), source), `"'`)
		imports = append(imports, model.Import{
			Name:    target,
			Content: CollapseWhitespace(NodeText(node, source)),
		})
	}
	return imports
}

// rubyCallTarget handles foo(x), obj.foo and Mod::foo(x). Bare identifiers
// without arguments are indistinguishable from locals and are not calls.
func rubyCallTarget(node *sitter.Node, source []byte) (name, context string, ok bool) {
	if node.Type() != "call" && node.Type() != "method_call" {
		return "", "", false
	}
	method := node.ChildByFieldName("method")
	if method == nil {
		return "", "", false
	}
	return NodeText(method, source), CollapseWhitespace(fieldText(node, "receiver", source)), true
}
