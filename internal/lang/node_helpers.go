package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// GetNodeText returns the source text covered by an AST node
func GetNodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}

	start := node.StartByte()
	end := node.EndByte()

	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}

	return string(content[start:end])
}

// NodeRange converts a node's span to a 1-based SourceRange
// (tree-sitter rows and columns are 0-based)
func NodeRange(node *sitter.Node) SourceRange {
	if node == nil {
		return SourceRange{}
	}

	start := node.StartPosition()
	end := node.EndPosition()

	return SourceRange{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}

// NodeLine returns the 1-based start line of a node
func NodeLine(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Row) + 1
}

// FindChildByType finds the first direct child node of the given type
func FindChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType finds all direct child nodes of the given type
func FindChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			out = append(out, child)
		}
	}
	return out
}

// Traverse walks the subtree rooted at node in document order. The visitor
// returns false to prune the subtree below the visited node.
func Traverse(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		Traverse(node.Child(i), visit)
	}
}

// countNamedArgs counts named children of an argument-list node, giving the
// call-site arity.
func countNamedArgs(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	return int(args.NamedChildCount())
}

// appendUnique appends s to list if not already present.
func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
