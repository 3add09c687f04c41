package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/duvholt/strictyield/internal/syntax"
)

var typeNodes = map[string]bool{
	"type_identifier":        true,
	"nested_type_identifier": true,
	"generic_type":           true,
	"predefined_type":        true,
	"array_type":             true,
	"tuple_type":             true,
	"union_type":             true,
	"intersection_type":      true,
	"object_type":            true,
	"literal_type":           true,
	"function_type":          true,
	"constructor_type":       true,
	"parenthesized_type":     true,
	"readonly_type":          true,
	"type_query":             true,
	"index_type_query":       true,
	"lookup_type":            true,
	"conditional_type":       true,
	"template_literal_type":  true,
	"this_type":              true,
	"existential_type":       true,
}

var literalNodes = map[string]bool{
	"number":          true,
	"string":          true,
	"template_string": true,
	"true":            true,
	"false":           true,
	"null":            true,
	"undefined":       true,
	"regex":           true,
	"array":           true,
	"object":          true,
}

// kindOf maps a tree-sitter node onto a syntax.Kind. parent is the already
// built parent (nil for the root).
func (b *builder) kindOf(tn *sitter.Node, parent *syntax.Node) syntax.Kind {
	typ := tn.Type()

	switch typ {
	case "program":
		return syntax.SourceFile
	case "statement_block":
		return syntax.Block
	case "yield_expression":
		return syntax.YieldExpression
	case "parenthesized_expression":
		return syntax.ParenthesizedExpression
	case "as_expression":
		return syntax.AsExpression
	case "member_expression":
		return syntax.PropertyAccessExpression
	case "lexical_declaration", "variable_declaration":
		// Loop initializers are declaration lists, not statements.
		if parent != nil && isLoop(parent.Type) {
			return syntax.Other
		}
		return syntax.VariableStatement
	case "binary_expression", "assignment_expression", "augmented_assignment_expression", "sequence_expression":
		return syntax.BinaryExpression
	case "call_expression":
		return syntax.CallExpression
	case "new_expression":
		return syntax.NewExpression
	case "await_expression":
		return syntax.AwaitExpression
	case "identifier", "property_identifier", "shorthand_property_identifier":
		return syntax.Identifier
	case "generator_function_declaration", "generator_function":
		return syntax.GeneratorFunction
	case "function_declaration", "function_expression", "function", "arrow_function", "method_definition":
		if typ == "function" && !tn.IsNamed() {
			return syntax.Token
		}
		return syntax.Function
	}

	if parent != nil && parent.Type == "as_expression" {
		switch {
		case typ == "as" && !tn.IsNamed():
			return syntax.AsKeyword
		case typ == "const" && !tn.IsNamed():
			return syntax.TypeReference
		}
	}

	if typeNodes[typ] {
		if typ == "predefined_type" && tn.Content(b.file.Source) == "any" {
			return syntax.AnyKeyword
		}
		return syntax.TypeReference
	}
	if literalNodes[typ] {
		return syntax.Literal
	}
	if !tn.IsNamed() {
		return syntax.Token
	}
	return syntax.Other
}

func isLoop(typ string) bool {
	switch typ {
	case "for_statement", "for_in_statement":
		return true
	}
	return false
}
