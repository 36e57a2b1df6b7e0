package lang

import (
	"errors"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// Rust extracts symbols from Rust source code
type Rust struct{}

// NewRust creates a new Rust symbol extractor
func NewRust() *Rust {
	return &Rust{}
}

func (r *Rust) Name() string { return "rust" }

func (r *Rust) Detect(path string) bool {
	return hasSuffixAny(path, ".rs")
}

func (r *Rust) Extract(path string, content []byte) (*FileSymbols, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitter.NewLanguage(tree_sitter_rust.Language())); err != nil {
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
	r.extractItems(root, content, syms)
	return syms, nil
}

func (r *Rust) extractItems(node *sitter.Node, content []byte, syms *FileSymbols) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "use_declaration":
			r.extractUse(child, content, syms)
		case "struct_item", "enum_item", "union_item":
			r.extractStruct(child, content, syms)
		case "trait_item":
			r.extractTrait(child, content, syms)
		case "impl_item":
			r.extractImpl(child, content, syms)
		case "function_item":
			syms.Functions = append(syms.Functions, r.extractFunction(child, content, ""))
		case "mod_item":
			// inline modules contribute their items at file scope
			if body := FindChildByType(child, "declaration_list"); body != nil {
				r.extractItems(body, content, syms)
			}
		}
	}
}

func (r *Rust) extractUse(node *sitter.Node, content []byte, syms *FileSymbols) {
	imp := ImportInfo{Line: NodeLine(node)}

	var walk func(n *sitter.Node, prefix string)
	walk = func(n *sitter.Node, prefix string) {
		switch n.Kind() {
		case "identifier", "crate", "self", "super":
			target := GetNodeText(n, content)
			if prefix != "" {
				target = prefix + "::" + target
			}
			if imp.Target == "" {
				imp.Target = target
			}
			imp.Names = append(imp.Names, GetNodeText(n, content))
		case "scoped_identifier":
			full := GetNodeText(n, content)
			if sep := strings.LastIndex(full, "::"); sep >= 0 {
				if imp.Target == "" {
					imp.Target = full[:sep]
				}
				imp.Names = append(imp.Names, full[sep+2:])
			} else if imp.Target == "" {
				imp.Target = full
			}
		case "use_as_clause":
			if n.NamedChildCount() >= 2 {
				walk(n.NamedChild(0), prefix)
				if alias := n.NamedChild(n.NamedChildCount() - 1); alias != nil {
					imp.Alias = GetNodeText(alias, content)
				}
			}
		case "scoped_use_list":
			base := ""
			for i := uint(0); i < n.NamedChildCount(); i++ {
				c := n.NamedChild(i)
				if c == nil {
					continue
				}
				if c.Kind() == "use_list" {
					walk(c, base)
				} else {
					base = GetNodeText(c, content)
					if imp.Target == "" {
						imp.Target = base
					}
				}
			}
		case "use_list":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if c := n.NamedChild(i); c != nil {
					walk(c, prefix)
				}
			}
		case "use_wildcard":
			if imp.Target == "" {
				if p := n.NamedChild(0); p != nil {
					imp.Target = GetNodeText(p, content)
				}
			}
			imp.Names = append(imp.Names, "*")
		}
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		if c := node.NamedChild(i); c != nil && c.Kind() != "visibility_modifier" {
			walk(c, "")
		}
	}

	if imp.Target != "" {
		syms.Imports = append(syms.Imports, imp)
	}
}

func (r *Rust) extractStruct(node *sitter.Node, content []byte, syms *FileSymbols) {
	cls := ClassInfo{Range: NodeRange(node)}
	if id := FindChildByType(node, "type_identifier"); id != nil {
		cls.Name = GetNodeText(id, content)
	}
	syms.Classes = append(syms.Classes, cls)
}

// extractTrait models a trait as an abstract class; methods without a body
// are abstract, default methods are concrete.
func (r *Rust) extractTrait(node *sitter.Node, content []byte, syms *FileSymbols) {
	cls := ClassInfo{
		Range:      NodeRange(node),
		IsAbstract: true,
	}

	if id := FindChildByType(node, "type_identifier"); id != nil {
		cls.Name = GetNodeText(id, content)
	}
	if bounds := FindChildByType(node, "trait_bounds"); bounds != nil {
		Traverse(bounds, func(n *sitter.Node) bool {
			if n.Kind() == "type_identifier" {
				cls.Bases = appendUnique(cls.Bases, GetNodeText(n, content))
			}
			return true
		})
	}

	if body := FindChildByType(node, "declaration_list"); body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			member := body.Child(i)
			if member == nil {
				continue
			}
			switch member.Kind() {
			case "function_signature_item":
				fn := r.extractFunction(member, content, cls.Name)
				fn.IsAbstract = true
				cls.Methods = append(cls.Methods, fn)
			case "function_item":
				cls.Methods = append(cls.Methods, r.extractFunction(member, content, cls.Name))
			}
		}
	}

	syms.Classes = append(syms.Classes, cls)
}

func (r *Rust) extractImpl(node *sitter.Node, content []byte, syms *FileSymbols) {
	// impl Type { .. } attaches methods to Type; impl Trait for Type records
	// Trait as a base of Type.
	var typeNames []string
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "type_identifier", "generic_type":
			name := GetNodeText(c, content)
			if c.Kind() == "generic_type" {
				if id := FindChildByType(c, "type_identifier"); id != nil {
					name = GetNodeText(id, content)
				}
			}
			typeNames = append(typeNames, name)
		case "declaration_list":
		}
	}
	if len(typeNames) == 0 {
		return
	}

	// with two type names the first is the trait and the last the type
	typeName := typeNames[len(typeNames)-1]
	var trait string
	if len(typeNames) > 1 {
		trait = typeNames[0]
	}

	idx := -1
	for i := range syms.Classes {
		if syms.Classes[i].Name == typeName {
			idx = i
			break
		}
	}
	if idx == -1 {
		syms.Classes = append(syms.Classes, ClassInfo{
			Name:  typeName,
			Range: NodeRange(node),
		})
		idx = len(syms.Classes) - 1
	}
	if trait != "" {
		syms.Classes[idx].Bases = appendUnique(syms.Classes[idx].Bases, trait)
	}

	if body := FindChildByType(node, "declaration_list"); body != nil {
		for _, fn := range FindChildrenByType(body, "function_item") {
			syms.Classes[idx].Methods = append(syms.Classes[idx].Methods, r.extractFunction(fn, content, typeName))
		}
	}
}

func (r *Rust) extractFunction(node *sitter.Node, content []byte, ownerType string) FunctionInfo {
	fn := FunctionInfo{Range: NodeRange(node)}

	if id := FindChildByType(node, "identifier"); id != nil {
		fn.Name = GetNodeText(id, content)
	}

	if params := FindChildByType(node, "parameters"); params != nil {
		for i := uint(0); i < params.NamedChildCount(); i++ {
			p := params.NamedChild(i)
			if p == nil {
				continue
			}
			switch p.Kind() {
			case "self_parameter":
				// receiver, not a counted parameter
			case "parameter":
				param := Param{}
				if pat := p.NamedChild(0); pat != nil {
					param.Name = strings.TrimPrefix(GetNodeText(pat, content), "mut ")
				}
				fn.Params = append(fn.Params, param)
			}
		}
	}

	if body := FindChildByType(node, "block"); body != nil {
		fn.Calls = r.extractCalls(body, content)
		fn.DecisionPoints = countDecisionPoints(body, content, rustDecisionRules)
		if ownerType != "" {
			fn.SelfAccess = r.extractSelfAccess(body, content)
		}
	}

	return fn
}

func (r *Rust) extractCalls(body *sitter.Node, content []byte) []CallSite {
	var calls []CallSite
	Traverse(body, func(n *sitter.Node) bool {
		if n != body {
			switch n.Kind() {
			case "function_item", "closure_expression":
				return false
			}
		}
		if n.Kind() != "call_expression" {
			return true
		}

		fnNode := n.NamedChild(0)
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
		case "field_expression":
			if fnNode.NamedChildCount() < 2 {
				return true
			}
			site.Callee = GetNodeText(fnNode.NamedChild(fnNode.NamedChildCount()-1), content)
			site.Receiver = GetNodeText(fnNode.NamedChild(0), content)
			site.IsAttribute = true
		case "scoped_identifier":
			full := GetNodeText(fnNode, content)
			if sep := strings.LastIndex(full, "::"); sep >= 0 {
				site.Callee = full[sep+2:]
				site.Receiver = full[:sep]
				site.IsAttribute = true
			} else {
				site.Callee = full
			}
		default:
			return true
		}

		calls = append(calls, site)
		return true
	})
	return calls
}

func (r *Rust) extractSelfAccess(body *sitter.Node, content []byte) []string {
	var fields []string
	Traverse(body, func(n *sitter.Node) bool {
		if n.Kind() != "field_expression" || n.NamedChildCount() < 2 {
			return true
		}
		value := n.NamedChild(0)
		field := n.NamedChild(n.NamedChildCount() - 1)
		if value != nil && field != nil && value.Kind() == "self" {
			fields = appendUnique(fields, GetNodeText(field, content))
		}
		return true
	})
	sort.Strings(fields)
	return fields
}
