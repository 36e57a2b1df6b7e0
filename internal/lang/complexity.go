package lang

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// decisionRules fixes the cyclomatic counting rule for one language.
// Complexity is 1 + the number of independent decision points: branch and loop
// statements, case/catch clauses, conditional expressions, and short-circuit
// boolean operators inside conditions. The rule is deliberately exact and
// tested; changing a kind set changes reported complexity for every run.
type decisionRules struct {
	// branchKinds are node kinds counting as one decision point each.
	branchKinds map[string]bool
	// binaryKind is the language's binary-expression node kind, counted only
	// when its operator is a short-circuit boolean operator.
	binaryKind string
	// boolOperators are operator spellings counted inside binaryKind nodes.
	boolOperators map[string]bool
	// nestedFunctionKinds delimit inner definitions whose bodies are counted
	// separately, not against the enclosing function.
	nestedFunctionKinds map[string]bool
}

// countDecisionPoints counts decision points in the subtree rooted at body,
// skipping nested function definitions.
func countDecisionPoints(body *sitter.Node, content []byte, rules decisionRules) int {
	if body == nil {
		return 0
	}

	count := 0
	Traverse(body, func(n *sitter.Node) bool {
		if n != body && rules.nestedFunctionKinds[n.Kind()] {
			return false
		}

		kind := n.Kind()
		if rules.branchKinds[kind] {
			count++
			return true
		}
		if kind == rules.binaryKind {
			if op := binaryOperator(n, content); rules.boolOperators[op] {
				count++
			}
		}
		return true
	})
	return count
}

// binaryOperator returns the operator token text of a binary expression by
// picking the first anonymous child.
func binaryOperator(n *sitter.Node, content []byte) string {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() {
			return GetNodeText(child, content)
		}
	}
	return ""
}

var pythonDecisionRules = decisionRules{
	branchKinds: map[string]bool{
		"if_statement":           true,
		"elif_clause":            true,
		"for_statement":          true,
		"while_statement":        true,
		"except_clause":          true,
		"case_clause":            true,
		"conditional_expression": true,
	},
	binaryKind:    "boolean_operator",
	boolOperators: map[string]bool{"and": true, "or": true},
	nestedFunctionKinds: map[string]bool{
		"function_definition": true,
		"class_definition":    true,
		"lambda":              true,
	},
}

var goDecisionRules = decisionRules{
	branchKinds: map[string]bool{
		"if_statement":       true,
		"for_statement":      true,
		"expression_case":    true,
		"type_case":          true,
		"communication_case": true,
	},
	binaryKind:    "binary_expression",
	boolOperators: map[string]bool{"&&": true, "||": true},
	nestedFunctionKinds: map[string]bool{
		"function_declaration": true,
		"method_declaration":   true,
		"func_literal":         true,
	},
}

var javascriptDecisionRules = decisionRules{
	branchKinds: map[string]bool{
		"if_statement":       true,
		"for_statement":      true,
		"for_in_statement":   true,
		"while_statement":    true,
		"do_statement":       true,
		"switch_case":        true,
		"catch_clause":       true,
		"ternary_expression": true,
	},
	binaryKind:    "binary_expression",
	boolOperators: map[string]bool{"&&": true, "||": true, "??": true},
	nestedFunctionKinds: map[string]bool{
		"function_declaration": true,
		"function_expression":  true,
		"arrow_function":       true,
		"method_definition":    true,
		"class_declaration":    true,
	},
}

var javaDecisionRules = decisionRules{
	branchKinds: map[string]bool{
		"if_statement":           true,
		"for_statement":          true,
		"enhanced_for_statement": true,
		"while_statement":        true,
		"do_statement":           true,
		"switch_label":           true,
		"catch_clause":           true,
		"ternary_expression":     true,
	},
	binaryKind:    "binary_expression",
	boolOperators: map[string]bool{"&&": true, "||": true},
	nestedFunctionKinds: map[string]bool{
		"method_declaration": true,
		"class_declaration":  true,
		"lambda_expression":  true,
	},
}

var rustDecisionRules = decisionRules{
	branchKinds: map[string]bool{
		"if_expression":    true,
		"match_arm":        true,
		"while_expression": true,
		"for_expression":   true,
		"loop_expression":  true,
	},
	binaryKind:    "binary_expression",
	boolOperators: map[string]bool{"&&": true, "||": true},
	nestedFunctionKinds: map[string]bool{
		"function_item":      true,
		"closure_expression": true,
	},
}
