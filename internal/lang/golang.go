package lang

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/relmap/internal/model"
)

func init() {
	Languages["go"] = &Language{
		Name:       "go",
		Extensions: []string{".go"},
		Comments: model.CommentStyle{
			Line:  "//",
			Open:  []string{"/*"},
			Close: []string{"*/"},
		},
		lang:        golang.GetLanguage(),
		Definitions: goDefinitions,
		Imports:     goImports,
		CallTarget:  goCallTarget,
	}
}

// goDefinitions returns top-level functions and methods. A method's class is
// its receiver type name.
func goDefinitions(root *sitter.Node, source []byte) []Definition {
	var defs []Definition
	for _, node := range namedChildren(root) {
		switch node.Type() {
		case "function_declaration":
			defs = append(defs, Definition{
				Name:   fieldText(node, "name", source),
				Params: goParams(node.ChildByFieldName("parameters"), source),
				Node:   node,
			})
		case "method_declaration":
			defs = append(defs, Definition{
				Class:  goReceiverType(node.ChildByFieldName("receiver"), source),
				Name:   fieldText(node, "name", source),
				Params: goParams(node.ChildByFieldName("parameters"), source),
				Node:   node,
			})
		}
	}
	return defs
}

// goReceiverType extracts the receiver type name, unwrapping pointer and
// generic receivers: (s *Stack[T]) yields "Stack".
func goReceiverType(receiver *sitter.Node, source []byte) string {
	if receiver == nil {
		return ""
	}
	for _, param := range namedChildren(receiver) {
		if param.Type() != "parameter_declaration" {
			continue
		}
		typ := param.ChildByFieldName("type")
		for typ != nil {
			switch typ.Type() {
			case "type_identifier":
				return NodeText(typ, source)
			case "pointer_type":
				typ = typ.NamedChild(0)
			case "generic_type":
				typ = typ.ChildByFieldName("type")
			default:
				return CollapseWhitespace(NodeText(typ, source))
			}
		}
	}
	return ""
}

// goParams returns parameter names in order; "a, b int" yields both names.
// Unnamed parameters contribute nothing.
func goParams(params *sitter.Node, source []byte) []string {
	names := []string{}
	if params == nil {
		return names
	}
	for _, decl := range namedChildren(params) {
		switch decl.Type() {
		case "parameter_declaration", "variadic_parameter_declaration":
			for _, child := range namedChildren(decl) {
				if child.Type() == "identifier" {
					names = append(names, NodeText(child, source))
				}
			}
		}
	}
	return names
}

// goImports renders each import spec as `import "path"` or `import alias "path"`.
func goImports(root *sitter.Node, source []byte) []model.Import {
	var imports []model.Import
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		switch node.Type() {
		case "import_declaration", "import_spec_list":
			for _, child := range namedChildren(node) {
				visit(child)
			}
		case "import_spec":
			raw := fieldText(node, "path", source)
			path, err := strconv.Unquote(raw)
			if err != nil {
				path = raw
			}
			imp := model.Import{Name: path, Alias: fieldText(node, "name", source)}
			imp.Content = "import " + strconv.Quote(path)
			if imp.Alias != "" {
				imp.Content = "import " + imp.Alias + " " + strconv.Quote(path)
			}
			imports = append(imports, imp)
		}
	}
	for _, node := range namedChildren(root) {
		if node.Type() == "import_declaration" {
			visit(node)
		}
	}
	return imports
}

// goCallTarget handles f(x), pkg.F(x) and recv.M(x), including generic
// instantiations such as f[T](x).
func goCallTarget(node *sitter.Node, source []byte) (name, context string, ok bool) {
	if node.Type() != "call_expression" {
		return "", "", false
	}
	fn := node.ChildByFieldName("function")
	if fn != nil && fn.Type() == "generic_type" {
		fn = fn.ChildByFieldName("type")
	}
	if fn == nil {
		return "", "", false
	}
	switch fn.Type() {
	case "identifier", "type_identifier":
		return NodeText(fn, source), "", true
	case "selector_expression":
		return fieldText(fn, "field", source), CollapseWhitespace(fieldText(fn, "operand", source)), true
	}
	return "", "", false
}
