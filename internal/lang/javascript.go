package lang

import (
	"errors"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ecmaExtractor is the shared JavaScript/TypeScript extraction core. The two
// languages differ only in grammar pointer, claimed extensions and a few
// TypeScript-only node kinds (interfaces, abstract classes).
type ecmaExtractor struct {
	name       string
	extensions []string
	language   func(path string) *sitter.Language
}

// JavaScript extracts symbols from JavaScript source code
type JavaScript struct{ ecmaExtractor }

// NewJavaScript creates a new JavaScript symbol extractor
func NewJavaScript() *JavaScript {
	return &JavaScript{ecmaExtractor{
		name:       "javascript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		language: func(string) *sitter.Language {
			return sitter.NewLanguage(tree_sitter_javascript.Language())
		},
	}}
}

// TypeScript extracts symbols from TypeScript source code
type TypeScript struct{ ecmaExtractor }

// NewTypeScript creates a new TypeScript symbol extractor
func NewTypeScript() *TypeScript {
	return &TypeScript{ecmaExtractor{
		name:       "typescript",
		extensions: []string{".ts", ".tsx"},
		language: func(path string) *sitter.Language {
			if strings.HasSuffix(path, ".tsx") {
				return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
			}
			return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		},
	}}
}

func (e *ecmaExtractor) Name() string { return e.name }

func (e *ecmaExtractor) Detect(path string) bool {
	return hasSuffixAny(path, e.extensions...)
}

func (e *ecmaExtractor) Extract(path string, content []byte) (*FileSymbols, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.language(path)); err != nil {
		return nil, err
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New("parser returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("root node is nil")
	}
	if root.HasError() {
		return nil, errors.New("syntax errors in source")
	}

	syms := &FileSymbols{}
	e.extractStatements(root, content, syms)
	return syms, nil
}

func (e *ecmaExtractor) extractStatements(node *sitter.Node, content []byte, syms *FileSymbols) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "import_statement":
			e.extractImport(child, content, syms)
		case "export_statement":
			// export function f() {} / export class C {} / export default ...
			e.extractStatements(child, content, syms)
		case "class_declaration", "abstract_class_declaration":
			e.extractClass(child, content, syms)
		case "interface_declaration":
			e.extractInterface(child, content, syms)
		case "function_declaration", "generator_function_declaration":
			syms.Functions = append(syms.Functions, e.extractFunction(child, content, false))
		case "lexical_declaration", "variable_declaration":
			e.extractVariableFunctions(child, content, syms)
		case "statement_block":
			e.extractStatements(child, content, syms)
		}
	}
}

func (e *ecmaExtractor) extractImport(node *sitter.Node, content []byte, syms *FileSymbols) {
	imp := ImportInfo{Line: NodeLine(node)}

	if src := FindChildByType(node, "string"); src != nil {
		imp.Target = strings.Trim(GetNodeText(src, content), "\"'`")
	}
	if imp.Target == "" {
		return
	}

	if clause := FindChildByType(node, "import_clause"); clause != nil {
		Traverse(clause, func(n *sitter.Node) bool {
			switch n.Kind() {
			case "import_specifier":
				if id := FindChildByType(n, "identifier"); id != nil {
					imp.Names = append(imp.Names, GetNodeText(id, content))
				}
				return false
			case "namespace_import":
				if id := FindChildByType(n, "identifier"); id != nil {
					imp.Alias = GetNodeText(id, content)
					imp.Names = append(imp.Names, "*")
				}
				return false
			case "identifier":
				// default import binds the module's default export
				imp.Names = append(imp.Names, GetNodeText(n, content))
			}
			return true
		})
	}

	syms.Imports = append(syms.Imports, imp)
}

func (e *ecmaExtractor) extractClass(node *sitter.Node, content []byte, syms *FileSymbols) {
	cls := ClassInfo{
		Range:      NodeRange(node),
		IsAbstract: node.Kind() == "abstract_class_declaration",
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "type_identifier":
			if cls.Name == "" {
				cls.Name = GetNodeText(child, content)
			}
		case "class_heritage":
			// extends Base / implements Iface — both act as bases
			Traverse(child, func(n *sitter.Node) bool {
				switch n.Kind() {
				case "identifier", "member_expression", "type_identifier":
					cls.Bases = appendUnique(cls.Bases, GetNodeText(n, content))
					return false
				}
				return true
			})
		case "class_body":
			for j := uint(0); j < child.ChildCount(); j++ {
				member := child.Child(j)
				if member == nil {
					continue
				}
				if member.Kind() == "method_definition" || member.Kind() == "abstract_method_signature" {
					fn := e.extractFunction(member, content, true)
					fn.IsAbstract = member.Kind() == "abstract_method_signature"
					cls.Methods = append(cls.Methods, fn)
				}
			}
		}
	}

	syms.Classes = append(syms.Classes, cls)
}

// extractInterface models a TypeScript interface as an abstract class whose
// method signatures are abstract methods.
func (e *ecmaExtractor) extractInterface(node *sitter.Node, content []byte, syms *FileSymbols) {
	cls := ClassInfo{
		Range:      NodeRange(node),
		IsAbstract: true,
	}

	if id := FindChildByType(node, "type_identifier"); id != nil {
		cls.Name = GetNodeText(id, content)
	}
	if heritage := FindChildByType(node, "extends_type_clause"); heritage != nil {
		for _, t := range FindChildrenByType(heritage, "type_identifier") {
			cls.Bases = append(cls.Bases, GetNodeText(t, content))
		}
	}
	if body := FindChildByType(node, "interface_body"); body != nil {
		for _, sig := range FindChildrenByType(body, "method_signature") {
			if id := FindChildByType(sig, "property_identifier"); id != nil {
				cls.Methods = append(cls.Methods, FunctionInfo{
					Name:       GetNodeText(id, content),
					Range:      NodeRange(sig),
					IsAbstract: true,
				})
			}
		}
	}

	syms.Classes = append(syms.Classes, cls)
}

// extractVariableFunctions records const/let/var bindings whose value is a
// function or arrow function.
func (e *ecmaExtractor) extractVariableFunctions(node *sitter.Node, content []byte, syms *FileSymbols) {
	for _, decl := range FindChildrenByType(node, "variable_declarator") {
		id := FindChildByType(decl, "identifier")
		if id == nil {
			continue
		}
		var valueFn *sitter.Node
		for i := uint(0); i < decl.ChildCount(); i++ {
			child := decl.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "arrow_function", "function_expression", "generator_function":
				valueFn = child
			}
		}
		if valueFn == nil {
			continue
		}
		fn := e.extractFunction(valueFn, content, false)
		fn.Name = GetNodeText(id, content)
		fn.Range = NodeRange(decl)
		syms.Functions = append(syms.Functions, fn)
	}
}

func (e *ecmaExtractor) extractFunction(node *sitter.Node, content []byte, isMethod bool) FunctionInfo {
	fn := FunctionInfo{Range: NodeRange(node)}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "identifier" || child.Kind() == "property_identifier" {
			fn.Name = GetNodeText(child, content)
			break
		}
	}

	if params := FindChildByType(node, "formal_parameters"); params != nil {
		fn.Params = e.extractParams(params, content)
	}

	if body := FindChildByType(node, "statement_block"); body != nil {
		fn.Calls = e.extractCalls(body, content)
		fn.DecisionPoints = countDecisionPoints(body, content, javascriptDecisionRules)
		if isMethod {
			fn.SelfAccess = e.extractThisAccess(body, content)
		}
	}

	return fn
}

func (e *ecmaExtractor) extractParams(params *sitter.Node, content []byte) []Param {
	var out []Param
	for i := uint(0); i < params.NamedChildCount(); i++ {
		child := params.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			out = append(out, Param{Name: GetNodeText(child, content)})
		case "required_parameter", "optional_parameter", "assignment_pattern", "rest_pattern":
			if id := FindChildByType(child, "identifier"); id != nil {
				out = append(out, Param{Name: GetNodeText(id, content)})
			}
		case "object_pattern", "array_pattern":
			out = append(out, Param{Name: "_destructured"})
		}
	}
	return out
}

func (e *ecmaExtractor) extractCalls(body *sitter.Node, content []byte) []CallSite {
	var calls []CallSite
	Traverse(body, func(n *sitter.Node) bool {
		kind := n.Kind()
		if n != body {
			switch kind {
			case "function_declaration", "function_expression", "arrow_function", "method_definition", "class_declaration":
				return false
			}
		}
		if kind != "call_expression" {
			return true
		}

		fnNode := n.Child(0)
		if fnNode == nil {
			return true
		}

		site := CallSite{
			ArgCount: countNamedArgs(FindChildByType(n, "arguments")),
			Line:     NodeLine(n),
		}

		switch fnNode.Kind() {
		case "identifier":
			site.Callee = GetNodeText(fnNode, content)
		case "member_expression":
			if fnNode.NamedChildCount() < 2 {
				return true
			}
			site.Callee = GetNodeText(fnNode.NamedChild(fnNode.NamedChildCount()-1), content)
			obj := fnNode.NamedChild(0)
			site.Receiver = GetNodeText(obj, content)
			if obj != nil && obj.Kind() == "this" {
				site.Receiver = "this"
			}
			site.IsAttribute = true
		default:
			return true
		}

		calls = append(calls, site)
		return true
	})
	return calls
}

func (e *ecmaExtractor) extractThisAccess(body *sitter.Node, content []byte) []string {
	var fields []string
	Traverse(body, func(n *sitter.Node) bool {
		if n.Kind() != "member_expression" || n.NamedChildCount() < 2 {
			return true
		}
		obj := n.NamedChild(0)
		prop := n.NamedChild(n.NamedChildCount() - 1)
		if obj != nil && prop != nil && obj.Kind() == "this" {
			fields = appendUnique(fields, GetNodeText(prop, content))
		}
		return true
	})
	sort.Strings(fields)
	return fields
}
