package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/relmap/internal/model"
)

func init() {
	Languages["python"] = &Language{
		Name:       "python",
		Extensions: []string{".py"},
		Comments: model.CommentStyle{
			Line:  "#",
			Open:  []string{`"""`, `'''`},
			Close: []string{`"""`, `'''`},
		},
		lang:        python.GetLanguage(),
		Definitions: pythonDefinitions,
		Imports:     pythonImports,
		CallTarget:  pythonCallTarget,
	}
}

// pythonDefinitions returns module-level functions and the methods of
// module-level classes. Nested functions belong to their enclosing method.
func pythonDefinitions(root *sitter.Node, source []byte) []Definition {
	var defs []Definition
	for _, node := range namedChildren(root) {
		outer, def := pythonUnwrapDecorated(node)
		switch def.Type() {
		case "function_definition":
			defs = append(defs, pythonFunction(outer, def, "", source))
		case "class_definition":
			class := fieldText(def, "name", source)
			body := def.ChildByFieldName("body")
			if body == nil {
				continue
			}
			for _, member := range namedChildren(body) {
				mOuter, mDef := pythonUnwrapDecorated(member)
				if mDef.Type() == "function_definition" {
					defs = append(defs, pythonFunction(mOuter, mDef, class, source))
				}
			}
		}
	}
	return defs
}

// pythonUnwrapDecorated returns the node spanning a definition with its
// decorators, and the definition itself.
func pythonUnwrapDecorated(node *sitter.Node) (outer, def *sitter.Node) {
	if node.Type() == "decorated_definition" {
		if inner := node.ChildByFieldName("definition"); inner != nil {
			return node, inner
		}
	}
	return node, node
}

func pythonFunction(outer, def *sitter.Node, class string, source []byte) Definition {
	return Definition{
		Class:  class,
		Name:   fieldText(def, "name", source),
		Params: pythonParams(def.ChildByFieldName("parameters"), source),
		Node:   outer,
	}
}

// pythonParams returns the positional parameter names, stopping at the first
// *args, bare * or **kwargs.
func pythonParams(params *sitter.Node, source []byte) []string {
	names := []string{}
	if params == nil {
		return names
	}
	for _, p := range namedChildren(params) {
		switch p.Type() {
		case "identifier":
			names = append(names, NodeText(p, source))
		case "default_parameter", "typed_default_parameter":
			names = append(names, fieldText(p, "name", source))
		case "typed_parameter":
			first := p.NamedChild(0)
			if first == nil || first.Type() != "identifier" {
				return names
			}
			names = append(names, NodeText(first, source))
		case "positional_separator":
			continue
		default:
			// list_splat_pattern, dictionary_splat_pattern, keyword_separator
			return names
		}
	}
	return names
}

// pythonImports renders module-level imports one name at a time, as
// "import x", "import x as y", "from m import x" or "from m import x as y".
func pythonImports(root *sitter.Node, source []byte) []model.Import {
	var imports []model.Import
	for _, node := range namedChildren(root) {
		switch node.Type() {
		case "import_statement":
			for _, name := range namedChildren(node) {
				imports = append(imports, pythonImportName(name, "", source))
			}
		case "import_from_statement":
			module := node.ChildByFieldName("module_name")
			if module == nil {
				continue
			}
			from := NodeText(module, source)
			for _, name := range namedChildren(node) {
				if sameNode(name, module) {
					continue
				}
				imports = append(imports, pythonImportName(name, from, source))
			}
		}
	}
	return imports
}

func pythonImportName(node *sitter.Node, from string, source []byte) model.Import {
	imp := model.Import{Name: NodeText(node, source)}
	switch node.Type() {
	case "aliased_import":
		imp.Name = fieldText(node, "name", source)
		imp.Alias = fieldText(node, "alias", source)
	case "wildcard_import":
		imp.Name = "*"
	}
	imp.Content = "import " + imp.Name
	if from != "" {
		imp.Content = "from " + from + " " + imp.Content
	}
	if imp.Alias != "" {
		imp.Content += " as " + imp.Alias
	}
	return imp
}

// pythonCallTarget handles f(x) and obj.attr(x). Calls on other expressions,
// such as f()(x) or items[0](x), have no usable callee name.
func pythonCallTarget(node *sitter.Node, source []byte) (name, context string, ok bool) {
	if node.Type() != "call" {
		return "", "", false
	}
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return "", "", false
	}
	switch fn.Type() {
	case "identifier":
		return NodeText(fn, source), "", true
	case "attribute":
		return fieldText(fn, "attribute", source), CollapseWhitespace(fieldText(fn, "object", source)), true
	}
	return "", "", false
}
