package syntax

import (
	"fmt"
	"strings"
)

// Kind is a normalized node kind. Grammar-specific node types are mapped onto
// the small set of kinds the rule needs to distinguish; everything else is
// [Other] or [Token].
type Kind int

// Node kinds.
const (
	Other Kind = iota
	Token
	SourceFile
	Block
	YieldExpression
	ParenthesizedExpression
	AsExpression
	AsKeyword
	AnyKeyword
	TypeReference
	PropertyAccessExpression
	VariableStatement
	BinaryExpression
	CallExpression
	NewExpression
	AwaitExpression
	Identifier
	Literal
	Function
	GeneratorFunction
)

var kindNames = [...]string{
	Other:                    "Other",
	Token:                    "Token",
	SourceFile:               "SourceFile",
	Block:                    "Block",
	YieldExpression:          "YieldExpression",
	ParenthesizedExpression:  "ParenthesizedExpression",
	AsExpression:             "AsExpression",
	AsKeyword:                "AsKeyword",
	AnyKeyword:               "AnyKeyword",
	TypeReference:            "TypeReference",
	PropertyAccessExpression: "PropertyAccessExpression",
	VariableStatement:        "VariableStatement",
	BinaryExpression:         "BinaryExpression",
	CallExpression:           "CallExpression",
	NewExpression:            "NewExpression",
	AwaitExpression:          "AwaitExpression",
	Identifier:               "Identifier",
	Literal:                  "Literal",
	Function:                 "Function",
	GeneratorFunction:        "GeneratorFunction",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsFunctionLike reports whether k opens a function body.
func (k Kind) IsFunctionLike() bool {
	return k == Function || k == GeneratorFunction
}

// Position is a zero-based line and column (in bytes) within a file.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Node is a node of the syntax tree. Parent is a back-reference only.
type Node struct {
	Kind     Kind
	Type     string // grammar node type, e.g. "member_expression" or "as"
	Parent   *Node
	Children []*Node

	StartByte int
	EndByte   int
	Start     Position
	End       Position

	// Fields maps grammar field names (e.g. "name", "body") to children.
	Fields map[string]*Node
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Field returns the child stored under a grammar field name, or nil.
func (n *Node) Field(name string) *Node {
	if n == nil {
		return nil
	}
	return n.Fields[name]
}

// Grandparent returns the parent of n's parent, or nil.
func (n *Node) Grandparent() *Node {
	if n == nil || n.Parent == nil {
		return nil
	}
	return n.Parent.Parent
}

// ChildOfType returns the first direct child with the given grammar type.
func (n *Node) ChildOfType(typ string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Type == typ {
			return c
		}
	}
	return nil
}

// Comment is a source comment, kept outside the tree.
type Comment struct {
	Text  string
	Start Position
	End   Position
}

// File is a parsed source file. It is immutable once built.
type File struct {
	Path      string
	Source    []byte
	Root      *Node
	Comments  []Comment
	HasErrors bool
}

// Text returns the source text spanned by n.
func (f *File) Text(n *Node) string {
	if n == nil || n.StartByte < 0 || n.EndByte > len(f.Source) || n.StartByte > n.EndByte {
		return ""
	}
	return string(f.Source[n.StartByte:n.EndByte])
}

// Line returns the text of a zero-based line without its terminator.
func (f *File) Line(line int) string {
	lines := strings.Split(string(f.Source), "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line], "\r")
}
