package lang

import (
	"errors"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// Java extracts symbols from Java source code
type Java struct{}

// NewJava creates a new Java symbol extractor
func NewJava() *Java {
	return &Java{}
}

func (j *Java) Name() string { return "java" }

func (j *Java) Detect(path string) bool {
	return hasSuffixAny(path, ".java")
}

func (j *Java) Extract(path string, content []byte) (*FileSymbols, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitter.NewLanguage(tree_sitter_java.Language())); err != nil {
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
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_declaration":
			j.extractImport(child, content, syms)
		case "class_declaration":
			j.extractClass(child, content, syms, "")
		case "interface_declaration":
			j.extractInterface(child, content, syms)
		case "enum_declaration", "record_declaration":
			j.extractClass(child, content, syms, "")
		}
	}
	return syms, nil
}

func (j *Java) extractImport(node *sitter.Node, content []byte, syms *FileSymbols) {
	imp := ImportInfo{Line: NodeLine(node)}

	if scoped := FindChildByType(node, "scoped_identifier"); scoped != nil {
		imp.Target = GetNodeText(scoped, content)
	} else if id := FindChildByType(node, "identifier"); id != nil {
		imp.Target = GetNodeText(id, content)
	}
	if imp.Target == "" {
		return
	}

	if FindChildByType(node, "asterisk") != nil {
		imp.Names = []string{"*"}
	} else if dot := strings.LastIndex(imp.Target, "."); dot >= 0 {
		// import a.b.C binds C; the package path is a.b
		imp.Names = []string{imp.Target[dot+1:]}
		imp.Target = imp.Target[:dot]
	}

	syms.Imports = append(syms.Imports, imp)
}

func (j *Java) extractClass(node *sitter.Node, content []byte, syms *FileSymbols, outerName string) {
	cls := ClassInfo{
		Range:      NodeRange(node),
		IsAbstract: j.hasModifier(node, content, "abstract"),
	}

	if id := FindChildByType(node, "identifier"); id != nil {
		cls.Name = GetNodeText(id, content)
	}
	if outerName != "" {
		cls.Name = outerName + "." + cls.Name
	}

	if super := FindChildByType(node, "superclass"); super != nil {
		for i := uint(0); i < super.NamedChildCount(); i++ {
			if t := super.NamedChild(i); t != nil {
				cls.Bases = appendUnique(cls.Bases, j.typeName(t, content))
			}
		}
	}
	if ifaces := FindChildByType(node, "super_interfaces"); ifaces != nil {
		if list := FindChildByType(ifaces, "type_list"); list != nil {
			for i := uint(0); i < list.NamedChildCount(); i++ {
				if t := list.NamedChild(i); t != nil {
					cls.Bases = appendUnique(cls.Bases, j.typeName(t, content))
				}
			}
		}
	}

	body := FindChildByType(node, "class_body")
	if body == nil {
		body = FindChildByType(node, "enum_body")
	}
	idx := len(syms.Classes)
	syms.Classes = append(syms.Classes, cls)

	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		member := body.Child(i)
		if member == nil {
			continue
		}
		switch member.Kind() {
		case "method_declaration", "constructor_declaration":
			fn := j.extractMethod(member, content)
			syms.Classes[idx].Methods = append(syms.Classes[idx].Methods, fn)
			if fn.IsAbstract {
				syms.Classes[idx].IsAbstract = true
			}
		case "class_declaration", "interface_declaration", "enum_declaration":
			j.extractClass(member, content, syms, syms.Classes[idx].Name)
		}
	}
}

func (j *Java) extractInterface(node *sitter.Node, content []byte, syms *FileSymbols) {
	cls := ClassInfo{
		Range:      NodeRange(node),
		IsAbstract: true,
	}

	if id := FindChildByType(node, "identifier"); id != nil {
		cls.Name = GetNodeText(id, content)
	}
	if ext := FindChildByType(node, "extends_interfaces"); ext != nil {
		Traverse(ext, func(n *sitter.Node) bool {
			if n.Kind() == "type_identifier" {
				cls.Bases = appendUnique(cls.Bases, GetNodeText(n, content))
			}
			return true
		})
	}
	if body := FindChildByType(node, "interface_body"); body != nil {
		for _, m := range FindChildrenByType(body, "method_declaration") {
			fn := j.extractMethod(m, content)
			// a signature without a body is abstract regardless of modifiers
			if FindChildByType(m, "block") == nil {
				fn.IsAbstract = true
			}
			cls.Methods = append(cls.Methods, fn)
		}
	}

	syms.Classes = append(syms.Classes, cls)
}

func (j *Java) extractMethod(node *sitter.Node, content []byte) FunctionInfo {
	fn := FunctionInfo{
		Range:      NodeRange(node),
		IsAbstract: j.hasModifier(node, content, "abstract"),
	}

	if id := FindChildByType(node, "identifier"); id != nil {
		fn.Name = GetNodeText(id, content)
	}
	if params := FindChildByType(node, "formal_parameters"); params != nil {
		for _, p := range FindChildrenByType(params, "formal_parameter") {
			param := Param{}
			if id := FindChildByType(p, "identifier"); id != nil {
				param.Name = GetNodeText(id, content)
			}
			fn.Params = append(fn.Params, param)
		}
		for _, p := range FindChildrenByType(params, "spread_parameter") {
			if id := FindChildByType(p, "identifier"); id != nil {
				fn.Params = append(fn.Params, Param{Name: GetNodeText(id, content)})
			}
		}
	}

	if body := FindChildByType(node, "block"); body != nil {
		fn.Calls = j.extractCalls(body, content)
		fn.DecisionPoints = countDecisionPoints(body, content, javaDecisionRules)
		fn.SelfAccess = j.extractThisAccess(body, content)
	}

	return fn
}

func (j *Java) extractCalls(body *sitter.Node, content []byte) []CallSite {
	var calls []CallSite
	Traverse(body, func(n *sitter.Node) bool {
		if n != body {
			switch n.Kind() {
			case "class_declaration", "lambda_expression":
				return false
			}
		}

		switch n.Kind() {
		case "method_invocation":
			site := CallSite{
				ArgCount: countNamedArgs(FindChildByType(n, "argument_list")),
				Line:     NodeLine(n),
			}
			var ids []*sitter.Node
			for i := uint(0); i < n.ChildCount(); i++ {
				c := n.Child(i)
				if c != nil && (c.Kind() == "identifier" || c.Kind() == "field_access" || c.Kind() == "this") {
					ids = append(ids, c)
				}
			}
			if len(ids) == 0 {
				return true
			}
			site.Callee = GetNodeText(ids[len(ids)-1], content)
			if len(ids) > 1 {
				site.Receiver = GetNodeText(ids[0], content)
				site.IsAttribute = true
			}
			calls = append(calls, site)
		case "object_creation_expression":
			if t := FindChildByType(n, "type_identifier"); t != nil {
				calls = append(calls, CallSite{
					Callee:   GetNodeText(t, content),
					ArgCount: countNamedArgs(FindChildByType(n, "argument_list")),
					Line:     NodeLine(n),
				})
			}
		}
		return true
	})
	return calls
}

func (j *Java) extractThisAccess(body *sitter.Node, content []byte) []string {
	var fields []string
	Traverse(body, func(n *sitter.Node) bool {
		if n.Kind() != "field_access" || n.NamedChildCount() < 2 {
			return true
		}
		obj := n.NamedChild(0)
		field := n.NamedChild(n.NamedChildCount() - 1)
		if obj != nil && field != nil && obj.Kind() == "this" {
			fields = appendUnique(fields, GetNodeText(field, content))
		}
		return true
	})
	sort.Strings(fields)
	return fields
}

func (j *Java) hasModifier(node *sitter.Node, content []byte, modifier string) bool {
	mods := FindChildByType(node, "modifiers")
	if mods == nil {
		return false
	}
	for i := uint(0); i < mods.ChildCount(); i++ {
		c := mods.Child(i)
		if c != nil && GetNodeText(c, content) == modifier {
			return true
		}
	}
	return false
}

func (j *Java) typeName(node *sitter.Node, content []byte) string {
	// generic_type wraps the raw type_identifier; drop type arguments
	if node.Kind() == "generic_type" {
		if id := FindChildByType(node, "type_identifier"); id != nil {
			return GetNodeText(id, content)
		}
	}
	return GetNodeText(node, content)
}
