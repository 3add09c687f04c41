// Package parser builds syntax trees from TypeScript source with tree-sitter.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/duvholt/strictyield/internal/syntax"
)

// ErrNoTree is returned when tree-sitter produces no tree for the input.
var ErrNoTree = errors.New("parser produced no syntax tree")

// Dialect selects the grammar.
type Dialect int

const (
	TypeScript Dialect = iota
	TSX
)

// DialectFor picks the grammar from a file name: ".tsx" files use TSX.
func DialectFor(path string) Dialect {
	if strings.HasSuffix(strings.ToLower(path), ".tsx") {
		return TSX
	}
	return TypeScript
}

// ParseFile parses one file with a throwaway parser.
func ParseFile(ctx context.Context, path string, src []byte) (*syntax.File, error) {
	p := New(DialectFor(path))
	defer p.Close()
	return p.Parse(ctx, path, src)
}

// fieldNames lists the grammar fields copied onto syntax.Node.Fields.
var fieldNames = []string{
	"name", "body", "value", "type", "left", "right", "object", "property",
	"function", "arguments", "constructor", "type_arguments", "return_type",
	"parameters", "pattern", "initializer", "operator",
}

// Parser parses TypeScript files. A Parser is not safe for concurrent use;
// create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// New creates a parser for the given dialect.
func New(d Dialect) *Parser {
	p := sitter.NewParser()
	switch d {
	case TSX:
		p.SetLanguage(tsx.GetLanguage())
	default:
		p.SetLanguage(typescript.GetLanguage())
	}
	return &Parser{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// Parse parses src and converts the result into a syntax.File. Syntax errors
// inside the source do not fail the parse; they set File.HasErrors.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*syntax.File, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse %s: %w", path, ErrNoTree)
	}
	defer tree.Close()

	root := tree.RootNode()
	f := &syntax.File{
		Path:      path,
		Source:    src,
		HasErrors: root.HasError(),
	}
	b := &builder{file: f}
	f.Root = b.build(root, nil)
	return f, nil
}

type builder struct {
	file *syntax.File
}

func (b *builder) build(tn *sitter.Node, parent *syntax.Node) *syntax.Node {
	n := &syntax.Node{
		Type:      tn.Type(),
		Parent:    parent,
		StartByte: int(tn.StartByte()),
		EndByte:   int(tn.EndByte()),
		Start:     point(tn.StartPoint()),
		End:       point(tn.EndPoint()),
	}
	n.Kind = b.kindOf(tn, parent)

	count := int(tn.ChildCount())
	n.Children = make([]*syntax.Node, 0, count)
	for i := 0; i < count; i++ {
		child := tn.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "comment" {
			b.file.Comments = append(b.file.Comments, syntax.Comment{
				Text:  child.Content(b.file.Source),
				Start: point(child.StartPoint()),
				End:   point(child.EndPoint()),
			})
			continue
		}
		n.Children = append(n.Children, b.build(child, n))
	}

	// Generator methods are only recognizable once the "*" token is known.
	if n.Type == "method_definition" && n.ChildOfType("*") != nil {
		n.Kind = syntax.GeneratorFunction
	}

	for _, name := range fieldNames {
		fc := tn.ChildByFieldName(name)
		if fc == nil {
			continue
		}
		for _, c := range n.Children {
			if c.Type == fc.Type() && c.StartByte == int(fc.StartByte()) && c.EndByte == int(fc.EndByte()) {
				if n.Fields == nil {
					n.Fields = make(map[string]*syntax.Node)
				}
				n.Fields[name] = c
				break
			}
		}
	}

	return n
}

func point(p sitter.Point) syntax.Position {
	return syntax.Position{Line: int(p.Row), Column: int(p.Column)}
}
