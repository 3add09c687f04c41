// Package typecheck answers type queries about a single parsed file.
package typecheck

import (
	"sort"
	"strconv"
	"strings"

	"github.com/duvholt/strictyield/internal/syntax"
)

// TypeKind classifies a Type.
type TypeKind int

const (
	KindAny TypeKind = iota
	KindPrimitive
	KindNamed
	KindGeneric
	KindArray
	KindUnion
	KindLiteral
)

// Type is a resolved type. Types are interned per Checker, so two types are
// identical exactly when they are the same pointer.
//
// Declared types (interfaces, classes, enums, type parameters, object type
// literals) are interned by their declaration, not their name: two
// interfaces both called R in different scopes are different types.
type Type struct {
	Kind TypeKind
	Name string
	Args []*Type

	decl *syntax.Node
	key  string
	text string
}

// String renders the type the way it would be written in source.
func (t *Type) String() string {
	if t == nil {
		return "any"
	}
	if t.text == "" {
		return render(t.Kind, t.Name, t.Args, (*Type).String)
	}
	return t.text
}

func (t *Type) identity() string {
	return t.key
}

func render(kind TypeKind, head string, args []*Type, part func(*Type) string) string {
	switch kind {
	case KindAny:
		return "any"
	case KindGeneric:
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = part(a)
		}
		return head + "<" + strings.Join(parts, ", ") + ">"
	case KindArray:
		elem := args[0]
		if elem.Kind == KindUnion {
			return "(" + part(elem) + ")[]"
		}
		return part(elem) + "[]"
	case KindUnion:
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = part(a)
		}
		return strings.Join(parts, " | ")
	default:
		return head
	}
}

// qualified makes a declared name unique per declaration.
func qualified(name string, decl *syntax.Node) string {
	if decl == nil {
		return name
	}
	return name + "@" + strconv.Itoa(decl.StartByte)
}

// interner hands out one *Type per distinct identity.
type interner struct {
	types map[string]*Type
}

func newInterner() *interner {
	return &interner{types: make(map[string]*Type)}
}

func (in *interner) intern(kind TypeKind, name string, args []*Type, decl *syntax.Node) *Type {
	key := render(kind, qualified(name, decl), args, (*Type).identity)
	if t, ok := in.types[key]; ok {
		return t
	}
	t := &Type{
		Kind: kind,
		Name: name,
		Args: args,
		decl: decl,
		key:  key,
		text: render(kind, name, args, (*Type).String),
	}
	in.types[key] = t
	return t
}

func (in *interner) any() *Type {
	return in.intern(KindAny, "any", nil, nil)
}

func (in *interner) primitive(name string) *Type {
	if name == "any" {
		return in.any()
	}
	return in.intern(KindPrimitive, name, nil, nil)
}

// named returns the type called name. decl is its declaration, or nil for
// names declared outside the file (Promise, Date, ...).
func (in *interner) named(name string, decl *syntax.Node) *Type {
	return in.intern(KindNamed, name, nil, decl)
}

func (in *interner) generic(name string, args []*Type, decl *syntax.Node) *Type {
	if len(args) == 0 {
		return in.named(name, decl)
	}
	if name == "Array" && decl == nil && len(args) == 1 {
		return in.array(args[0])
	}
	return in.intern(KindGeneric, name, args, decl)
}

func (in *interner) array(elem *Type) *Type {
	return in.intern(KindArray, "", []*Type{elem}, nil)
}

func (in *interner) union(members []*Type) *Type {
	var flat []*Type
	seen := make(map[*Type]bool)
	for _, m := range members {
		parts := []*Type{m}
		if m.Kind == KindUnion {
			parts = m.Args
		}
		for _, p := range parts {
			if !seen[p] {
				seen[p] = true
				flat = append(flat, p)
			}
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].key < flat[j].key })
	return in.intern(KindUnion, "", flat, nil)
}

// literal is a type identified by its text, such as "a" or 42.
func (in *interner) literal(text string) *Type {
	return in.intern(KindLiteral, normalizeSpace(text), nil, nil)
}

// anonymous is a type literal like { a: number }. Each occurrence in the
// source is its own type.
func (in *interner) anonymous(text string, node *syntax.Node) *Type {
	return in.intern(KindLiteral, normalizeSpace(text), nil, node)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
