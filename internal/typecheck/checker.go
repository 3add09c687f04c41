package typecheck

import "github.com/duvholt/strictyield/internal/syntax"

// Service is the type-query capability the yield rule consumes.
type Service interface {
	// TypeAtLocation returns the type of an expression or type node.
	TypeAtLocation(n *syntax.Node) *Type
	// TypeToString renders a type for messages.
	TypeToString(t *Type) string
	// PromisedType strips one layer of deferred-computation wrapping
	// (Promise<T> to T). It returns nil when t is not such a type.
	PromisedType(t *Type) *Type
	// Identical reports whether a and b are the same type.
	Identical(a, b *Type) bool
}

// deferredTypes are the generic names treated as deferred computations.
var deferredTypes = map[string]bool{
	"Promise":     true,
	"PromiseLike": true,
}

// Checker is a Service over the declarations of one file. Identity is
// nominal: declared types compare by declaration, aliases resolve to their
// target.
type Checker struct {
	file  *syntax.File
	types *interner

	// values holds functions, variables, parameters and classes by name;
	// typeDecls holds interfaces, classes, enums, aliases and type
	// parameters. Lookups pick the innermost declaration in scope.
	values    map[string][]*syntax.Node
	typeDecls map[string][]*syntax.Node

	// subst binds type parameter declarations while a generic signature
	// is being instantiated.
	subst map[*syntax.Node]*Type

	resolving map[*syntax.Node]bool
}

var _ Service = (*Checker)(nil)

// New indexes the declarations of f.
func New(f *syntax.File) *Checker {
	c := &Checker{
		file:      f,
		types:     newInterner(),
		values:    make(map[string][]*syntax.Node),
		typeDecls: make(map[string][]*syntax.Node),
		resolving: make(map[*syntax.Node]bool),
	}
	c.index()
	return c
}

func (c *Checker) index() {
	syntax.Inspect(c.file.Root, func(n *syntax.Node) bool {
		switch n.Type {
		case "type_alias_declaration", "interface_declaration", "enum_declaration", "type_parameter":
			c.declare(c.typeDecls, n.Field("name"), n)
		case "class_declaration", "abstract_class_declaration":
			c.declare(c.typeDecls, n.Field("name"), n)
			c.declare(c.values, n.Field("name"), n)
		case "function_declaration", "generator_function_declaration", "function_signature", "variable_declarator":
			c.declare(c.values, n.Field("name"), n)
		case "required_parameter", "optional_parameter":
			c.declare(c.values, n.Field("pattern"), n)
		}
		return true
	})
}

func (c *Checker) declare(table map[string][]*syntax.Node, name, decl *syntax.Node) {
	if name == nil {
		return
	}
	switch name.Type {
	case "identifier", "type_identifier":
		key := c.file.Text(name)
		table[key] = append(table[key], decl)
	}
}

// TypeAtLocation implements Service.
func (c *Checker) TypeAtLocation(n *syntax.Node) *Type {
	if n == nil {
		return c.types.any()
	}
	switch n.Kind {
	case syntax.TypeReference, syntax.AnyKeyword:
		return c.typeFromNode(n)
	}
	if n.Type == "type_annotation" {
		return c.typeFromNode(n)
	}
	return c.exprType(n)
}

// TypeToString implements Service.
func (c *Checker) TypeToString(t *Type) string {
	return t.String()
}

// PromisedType implements Service.
func (c *Checker) PromisedType(t *Type) *Type {
	if t == nil || t.Kind != KindGeneric || !deferredTypes[t.Name] || len(t.Args) != 1 {
		return nil
	}
	return t.Args[0]
}

// Identical implements Service.
func (c *Checker) Identical(a, b *Type) bool {
	return a == b
}

func (c *Checker) lookupValue(use *syntax.Node) *syntax.Node {
	return c.lookup(c.values, c.file.Text(use), use)
}

func (c *Checker) lookupType(name string, use *syntax.Node) *syntax.Node {
	return c.lookup(c.typeDecls, name, use)
}

// lookup finds the innermost declaration of name whose scope encloses use.
func (c *Checker) lookup(table map[string][]*syntax.Node, name string, use *syntax.Node) *syntax.Node {
	var (
		best      *syntax.Node
		bestDepth = -1
	)
	for _, decl := range table[name] {
		scope := declScope(decl)
		if !encloses(scope, use) {
			continue
		}
		if d := depth(scope); d > bestDepth {
			best, bestDepth = decl, d
		}
	}
	return best
}

func declScope(decl *syntax.Node) *syntax.Node {
	switch decl.Type {
	case "required_parameter", "optional_parameter":
		// formal_parameters -> function
		return decl.Grandparent()
	case "type_parameter":
		// type_parameters -> declaration owning them
		return decl.Grandparent()
	}
	for p := decl.Parent; p != nil; p = p.Parent {
		if p.Kind == syntax.Block || p.Kind == syntax.SourceFile || p.Kind.IsFunctionLike() {
			return p
		}
	}
	return nil
}

func encloses(scope, n *syntax.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == scope {
			return true
		}
	}
	return false
}

func depth(n *syntax.Node) int {
	d := 0
	for p := n; p != nil; p = p.Parent {
		d++
	}
	return d
}

// typeParams returns the type_parameter nodes declared by decl.
func typeParams(decl *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	if tp := decl.ChildOfType("type_parameters"); tp != nil {
		for _, ch := range tp.Children {
			if ch.Type == "type_parameter" {
				out = append(out, ch)
			}
		}
	}
	return out
}

// withSubst evaluates f with the bindings in env added to the active ones.
func (c *Checker) withSubst(env map[*syntax.Node]*Type, f func() *Type) *Type {
	if len(env) == 0 {
		return f()
	}
	saved := c.subst
	merged := make(map[*syntax.Node]*Type, len(saved)+len(env))
	for k, v := range saved {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	c.subst = merged
	defer func() { c.subst = saved }()
	return f()
}
