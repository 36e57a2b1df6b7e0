package lang

import (
	"errors"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Python extracts symbols from Python source code
type Python struct{}

// NewPython creates a new Python symbol extractor
func NewPython() *Python { return &Python{} }

func (p *Python) Name() string { return "python" }

func (p *Python) Detect(path string) bool {
	return hasSuffixAny(path, ".py", ".pyw", ".pyi")
}

// Extract parses one Python file into a symbol table. Each call builds its own
// parser so concurrent extractions never share state.
func (p *Python) Extract(path string, content []byte) (*FileSymbols, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	language := sitter.NewLanguage(tree_sitter_python.Language())
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
	p.extractImports(root, content, syms)
	p.extractDefinitions(root, content, syms)
	return syms, nil
}

// extractImports collects import and from-import statements anywhere in the file.
func (p *Python) extractImports(root *sitter.Node, content []byte, syms *FileSymbols) {
	Traverse(root, func(node *sitter.Node) bool {
		switch node.Kind() {
		case "import_statement":
			p.extractImportStatement(node, content, syms)
		case "import_from_statement":
			p.extractImportFromStatement(node, content, syms)
		}
		return true
	})
}

// extractImportStatement handles: import module1, module2 as alias
func (p *Python) extractImportStatement(node *sitter.Node, content []byte, syms *FileSymbols) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "dotted_name", "identifier":
			syms.Imports = append(syms.Imports, ImportInfo{
				Target: GetNodeText(child, content),
				Line:   NodeLine(node),
			})
		case "aliased_import":
			if imp, ok := p.aliasedImport(child, content); ok {
				imp.Line = NodeLine(node)
				syms.Imports = append(syms.Imports, imp)
			}
		}
	}
}

// extractImportFromStatement handles: from module import a, b as c / from .rel import x / from m import *
func (p *Python) extractImportFromStatement(node *sitter.Node, content []byte, syms *FileSymbols) {
	var target string
	var names []string

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "dotted_name", "identifier":
			if target == "" {
				target = GetNodeText(child, content)
			} else {
				names = append(names, GetNodeText(child, content))
			}
		case "relative_import":
			target = GetNodeText(child, content)
		case "wildcard_import":
			names = append(names, "*")
		case "aliased_import":
			if imp, ok := p.aliasedImport(child, content); ok {
				name := imp.Target
				if imp.Alias != "" {
					name = name + " as " + imp.Alias
				}
				names = append(names, name)
			}
		}
	}

	if target != "" {
		syms.Imports = append(syms.Imports, ImportInfo{
			Target: target,
			Names:  names,
			Line:   NodeLine(node),
		})
	}
}

// aliasedImport handles: name as alias
func (p *Python) aliasedImport(node *sitter.Node, content []byte) (ImportInfo, bool) {
	var name, alias string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "identifier" || child.Kind() == "dotted_name" {
			text := GetNodeText(child, content)
			if name == "" {
				name = text
			} else {
				alias = text
			}
		}
	}
	if name == "" {
		return ImportInfo{}, false
	}
	return ImportInfo{Target: name, Alias: alias}, true
}

// extractDefinitions walks module-level statements collecting class and
// function definitions. Class bodies are handled by extractClass.
func (p *Python) extractDefinitions(node *sitter.Node, content []byte, syms *FileSymbols) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		target := child
		var decorators []string
		if child.Kind() == "decorated_definition" {
			decorators = p.decoratorNames(child, content)
			target = FindChildByType(child, "class_definition")
			if target == nil {
				target = FindChildByType(child, "function_definition")
			}
			if target == nil {
				continue
			}
		}

		switch target.Kind() {
		case "class_definition":
			p.extractClass(target, content, decorators, syms, "")
		case "function_definition":
			fn := p.extractFunction(target, content, decorators, false)
			syms.Functions = append(syms.Functions, fn)
		default:
			p.extractDefinitions(child, content, syms)
		}
	}
}

// extractClass appends the class (and any nested classes, with dotted names)
// to syms. outerName is non-empty for nested classes.
func (p *Python) extractClass(node *sitter.Node, content []byte, decorators []string, syms *FileSymbols, outerName string) {
	cls := ClassInfo{
		Decorators: decorators,
		Range:      NodeRange(node),
	}

	if nameNode := FindChildByType(node, "identifier"); nameNode != nil {
		cls.Name = GetNodeText(nameNode, content)
	}
	if outerName != "" {
		cls.Name = outerName + "." + cls.Name
	}

	// Base classes appear in the argument_list: class Foo(Base, meta.Base2):
	if args := FindChildByType(node, "argument_list"); args != nil {
		for i := uint(0); i < args.NamedChildCount(); i++ {
			arg := args.NamedChild(i)
			if arg == nil {
				continue
			}
			switch arg.Kind() {
			case "identifier", "attribute", "dotted_name":
				base := GetNodeText(arg, content)
				cls.Bases = append(cls.Bases, base)
				if base == "ABC" || base == "abc.ABC" || strings.HasSuffix(base, "Protocol") {
					cls.IsAbstract = true
				}
			case "keyword_argument":
				// metaclass=ABCMeta and friends
				if strings.Contains(GetNodeText(arg, content), "ABCMeta") {
					cls.IsAbstract = true
				}
			}
		}
	}

	if body := FindChildByType(node, "block"); body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			child := body.Child(i)
			if child == nil {
				continue
			}

			target := child
			var methodDecorators []string
			if child.Kind() == "decorated_definition" {
				methodDecorators = p.decoratorNames(child, content)
				target = FindChildByType(child, "class_definition")
				if target == nil {
					target = FindChildByType(child, "function_definition")
				}
				if target == nil {
					continue
				}
			}

			switch target.Kind() {
			case "function_definition":
				cls.Methods = append(cls.Methods, p.extractFunction(target, content, methodDecorators, true))
			case "class_definition":
				p.extractClass(target, content, methodDecorators, syms, cls.Name)
			}
		}
	}

	for _, m := range cls.Methods {
		for _, d := range m.Decorators {
			if d == "abstractmethod" || strings.HasSuffix(d, ".abstractmethod") {
				cls.IsAbstract = true
			}
		}
	}

	syms.Classes = append(syms.Classes, cls)
}

func (p *Python) extractFunction(node *sitter.Node, content []byte, decorators []string, isMethod bool) FunctionInfo {
	fn := FunctionInfo{
		Decorators: decorators,
		Range:      NodeRange(node),
	}

	if nameNode := FindChildByType(node, "identifier"); nameNode != nil {
		fn.Name = GetNodeText(nameNode, content)
	}

	var receiver string
	if params := FindChildByType(node, "parameters"); params != nil {
		fn.Params = p.extractParams(params, content)
		if isMethod && len(fn.Params) > 0 && (fn.Params[0].Name == "self" || fn.Params[0].Name == "cls") {
			receiver = fn.Params[0].Name
		}
	}

	for _, d := range decorators {
		if d == "abstractmethod" || strings.HasSuffix(d, ".abstractmethod") {
			fn.IsAbstract = true
		}
	}

	if body := FindChildByType(node, "block"); body != nil {
		fn.Calls = p.extractCalls(body, content)
		fn.DecisionPoints = countDecisionPoints(body, content, pythonDecisionRules)
		if receiver != "" {
			fn.SelfAccess = p.extractSelfAccess(body, content, receiver)
		}
	}

	return fn
}

func (p *Python) extractParams(params *sitter.Node, content []byte) []Param {
	var out []Param
	for i := uint(0); i < params.NamedChildCount(); i++ {
		child := params.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			out = append(out, Param{Name: GetNodeText(child, content)})
		case "typed_parameter", "default_parameter", "typed_default_parameter",
			"list_splat_pattern", "dictionary_splat_pattern":
			if id := FindChildByType(child, "identifier"); id != nil {
				out = append(out, Param{Name: GetNodeText(id, content)})
			}
		}
	}
	return out
}

// extractCalls records every call expression inside a function body, skipping
// nested definitions (their calls belong to the nested function).
func (p *Python) extractCalls(body *sitter.Node, content []byte) []CallSite {
	var calls []CallSite
	Traverse(body, func(n *sitter.Node) bool {
		kind := n.Kind()
		if n != body && (kind == "function_definition" || kind == "class_definition") {
			return false
		}
		if kind != "call" {
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
		case "attribute":
			// obj.method() → receiver obj, callee method (last named child)
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

// extractSelfAccess collects attribute names accessed through the receiver.
func (p *Python) extractSelfAccess(body *sitter.Node, content []byte, receiver string) []string {
	var fields []string
	Traverse(body, func(n *sitter.Node) bool {
		if n.Kind() != "attribute" || n.NamedChildCount() < 2 {
			return true
		}
		obj := n.NamedChild(0)
		attr := n.NamedChild(n.NamedChildCount() - 1)
		if obj != nil && attr != nil && GetNodeText(obj, content) == receiver {
			fields = appendUnique(fields, GetNodeText(attr, content))
		}
		return true
	})
	sort.Strings(fields)
	return fields
}

// decoratorNames collects dotted decorator names from a decorated_definition.
func (p *Python) decoratorNames(node *sitter.Node, content []byte) []string {
	var out []string
	for _, deco := range FindChildrenByType(node, "decorator") {
		text := GetNodeText(deco, content)
		text = strings.TrimPrefix(text, "@")
		// Strip call arguments: @lru_cache(maxsize=1) → lru_cache
		if idx := strings.IndexByte(text, '('); idx >= 0 {
			text = text[:idx]
		}
		out = append(out, strings.TrimSpace(text))
	}
	return out
}
