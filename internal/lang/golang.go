package lang

import (
	"errors"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

// Go extracts symbols from Go source code. Struct and interface types are
// modeled as classes; methods attach to their receiver's type.
type Go struct{}

// NewGo creates a new Go symbol extractor
func NewGo() *Go { return &Go{} }

func (g *Go) Name() string { return "go" }

func (g *Go) Detect(path string) bool {
	return hasSuffixAny(path, ".go")
}

func (g *Go) Extract(path string, content []byte) (*FileSymbols, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	language := sitter.NewLanguage(tree_sitter_go.Language())
	if err := parser.SetLanguage(language); err != nil {
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
	classIdx := map[string]int{} // type name → index in syms.Classes

	// First pass: imports and type declarations
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_declaration":
			g.extractImports(child, content, syms)
		case "type_declaration":
			g.extractTypes(child, content, syms, classIdx)
		}
	}

	// Second pass: functions and methods (methods may precede their type)
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_declaration":
			syms.Functions = append(syms.Functions, g.extractFunction(child, content, ""))
		case "method_declaration":
			recvType, recvName := g.receiver(child, content)
			fn := g.extractFunction(child, content, recvName)
			if recvType == "" {
				syms.Functions = append(syms.Functions, fn)
				continue
			}
			idx, ok := classIdx[recvType]
			if !ok {
				// Receiver type declared in another file of the same package;
				// record a placeholder class so the method has an owner.
				syms.Classes = append(syms.Classes, ClassInfo{Name: recvType, Range: NodeRange(child)})
				idx = len(syms.Classes) - 1
				classIdx[recvType] = idx
			}
			syms.Classes[idx].Methods = append(syms.Classes[idx].Methods, fn)
		}
	}

	return syms, nil
}

func (g *Go) extractImports(node *sitter.Node, content []byte, syms *FileSymbols) {
	Traverse(node, func(n *sitter.Node) bool {
		if n.Kind() != "import_spec" {
			return true
		}
		imp := ImportInfo{Line: NodeLine(n)}
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "interpreted_string_literal", "raw_string_literal":
				imp.Target = strings.Trim(GetNodeText(child, content), "\"`")
			case "package_identifier":
				imp.Alias = GetNodeText(child, content)
			case "dot":
				imp.Names = []string{"*"}
			}
		}
		if imp.Target != "" {
			syms.Imports = append(syms.Imports, imp)
		}
		return false
	})
}

func (g *Go) extractTypes(node *sitter.Node, content []byte, syms *FileSymbols, classIdx map[string]int) {
	for _, spec := range FindChildrenByType(node, "type_spec") {
		nameNode := FindChildByType(spec, "type_identifier")
		if nameNode == nil {
			continue
		}
		name := GetNodeText(nameNode, content)

		cls := ClassInfo{Name: name, Range: NodeRange(spec)}
		switch {
		case FindChildByType(spec, "interface_type") != nil:
			cls.IsAbstract = true
			iface := FindChildByType(spec, "interface_type")
			// Interface method elements become abstract methods.
			Traverse(iface, func(n *sitter.Node) bool {
				if n.Kind() == "method_elem" {
					if id := FindChildByType(n, "field_identifier"); id != nil {
						cls.Methods = append(cls.Methods, FunctionInfo{
							Name:       GetNodeText(id, content),
							Range:      NodeRange(n),
							IsAbstract: true,
						})
					}
					return false
				}
				return true
			})
			// Embedded interfaces act as bases.
			Traverse(iface, func(n *sitter.Node) bool {
				if n.Kind() == "type_elem" {
					cls.Bases = append(cls.Bases, GetNodeText(n, content))
					return false
				}
				return true
			})
		case FindChildByType(spec, "struct_type") != nil:
			// Embedded struct fields (anonymous fields) act as bases.
			st := FindChildByType(spec, "struct_type")
			Traverse(st, func(n *sitter.Node) bool {
				if n.Kind() == "field_declaration" {
					if FindChildByType(n, "field_identifier") == nil {
						text := GetNodeText(n, content)
						if idx := strings.IndexAny(text, " \t"); idx >= 0 {
							text = text[:idx]
						}
						cls.Bases = append(cls.Bases, strings.TrimPrefix(text, "*"))
					}
					return false
				}
				return true
			})
		default:
			// Type aliases and named basic types are not class-like.
			continue
		}

		classIdx[name] = len(syms.Classes)
		syms.Classes = append(syms.Classes, cls)
	}
}

// receiver returns the receiver type and receiver variable name of a method
// declaration, with pointers and type parameters stripped.
func (g *Go) receiver(node *sitter.Node, content []byte) (string, string) {
	recv := FindChildByType(node, "parameter_list")
	if recv == nil {
		return "", ""
	}
	decl := FindChildByType(recv, "parameter_declaration")
	if decl == nil {
		return "", ""
	}

	var recvName string
	if id := FindChildByType(decl, "identifier"); id != nil {
		recvName = GetNodeText(id, content)
	}

	typeText := GetNodeText(decl, content)
	if recvName != "" {
		typeText = strings.TrimSpace(strings.TrimPrefix(typeText, recvName))
	}
	typeText = strings.TrimPrefix(typeText, "*")
	if idx := strings.IndexByte(typeText, '['); idx >= 0 {
		typeText = typeText[:idx]
	}
	return strings.TrimSpace(typeText), recvName
}

func (g *Go) extractFunction(node *sitter.Node, content []byte, recvName string) FunctionInfo {
	fn := FunctionInfo{Range: NodeRange(node)}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "identifier" || child.Kind() == "field_identifier" {
			fn.Name = GetNodeText(child, content)
			break
		}
	}

	// The parameter list following the name (not the receiver list).
	sawName := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "identifier" || child.Kind() == "field_identifier" {
			sawName = true
			continue
		}
		if sawName && child.Kind() == "parameter_list" {
			fn.Params = g.extractParams(child, content)
			break
		}
	}

	if body := FindChildByType(node, "block"); body != nil {
		fn.Calls = g.extractCalls(body, content)
		fn.DecisionPoints = countDecisionPoints(body, content, goDecisionRules)
		if recvName != "" {
			fn.SelfAccess = g.extractReceiverAccess(body, content, recvName)
			// calls through the receiver variable are self calls
			for i := range fn.Calls {
				if fn.Calls[i].Receiver == recvName {
					fn.Calls[i].Receiver = "self"
				}
			}
		}
	}

	return fn
}

func (g *Go) extractParams(params *sitter.Node, content []byte) []Param {
	var out []Param
	for i := uint(0); i < params.NamedChildCount(); i++ {
		decl := params.NamedChild(i)
		if decl == nil {
			continue
		}
		if decl.Kind() != "parameter_declaration" && decl.Kind() != "variadic_parameter_declaration" {
			continue
		}
		ids := FindChildrenByType(decl, "identifier")
		if len(ids) == 0 {
			// Unnamed parameter: count it by its type text.
			out = append(out, Param{Name: "_"})
			continue
		}
		for _, id := range ids {
			out = append(out, Param{Name: GetNodeText(id, content)})
		}
	}
	return out
}

func (g *Go) extractCalls(body *sitter.Node, content []byte) []CallSite {
	var calls []CallSite
	Traverse(body, func(n *sitter.Node) bool {
		kind := n.Kind()
		if n != body && (kind == "function_declaration" || kind == "func_literal") {
			return false
		}
		if kind != "call_expression" {
			return true
		}

		fnNode := n.Child(0)
		if fnNode == nil {
			return true
		}

		site := CallSite{
			ArgCount: countNamedArgs(FindChildByType(n, "argument_list")),
			Line:     NodeLine(n),
		}

		switch fnNode.Kind() {
		case "identifier":
			site.Callee = GetNodeText(fnNode, content)
		case "selector_expression":
			if fnNode.NamedChildCount() < 2 {
				return true
			}
			site.Callee = GetNodeText(fnNode.NamedChild(fnNode.NamedChildCount()-1), content)
			site.Receiver = GetNodeText(fnNode.NamedChild(0), content)
			site.IsAttribute = true
		default:
			return true
		}

		calls = append(calls, site)
		return true
	})
	return calls
}

func (g *Go) extractReceiverAccess(body *sitter.Node, content []byte, recvName string) []string {
	var fields []string
	Traverse(body, func(n *sitter.Node) bool {
		if n.Kind() != "selector_expression" || n.NamedChildCount() < 2 {
			return true
		}
		obj := n.NamedChild(0)
		field := n.NamedChild(n.NamedChildCount() - 1)
		if obj != nil && field != nil && GetNodeText(obj, content) == recvName {
			fields = appendUnique(fields, GetNodeText(field, content))
		}
		return true
	})
	sort.Strings(fields)
	return fields
}
