package typecheck

import "github.com/duvholt/strictyield/internal/syntax"

// typeFromNode resolves a written type.
func (c *Checker) typeFromNode(n *syntax.Node) *Type {
	if n == nil {
		return c.types.any()
	}
	if n.Kind == syntax.AnyKeyword {
		return c.types.any()
	}

	switch n.Type {
	case "type_annotation", "parenthesized_type":
		return c.typeFromNode(firstOperand(n))
	case "predefined_type":
		return c.types.primitive(c.file.Text(n))
	case "type_identifier":
		return c.resolveTypeName(n, nil)
	case "nested_type_identifier":
		return c.types.named(c.file.Text(n), nil)
	case "generic_type":
		args := c.typeArgs(n.Field("type_arguments"))
		name := n.Field("name")
		if name == nil {
			name = n.Child(0)
		}
		if name != nil && name.Type == "type_identifier" {
			return c.resolveTypeName(name, args)
		}
		return c.types.generic(c.file.Text(name), args, nil)
	case "array_type":
		return c.types.array(c.typeFromNode(firstOperand(n)))
	case "union_type":
		var members []*Type
		for _, m := range operands(n) {
			members = append(members, c.typeFromNode(m))
		}
		return c.types.union(members)
	case "object_type", "function_type", "constructor_type":
		return c.types.anonymous(c.file.Text(n), n)
	}
	return c.types.literal(c.file.Text(n))
}

func (c *Checker) typeArgs(n *syntax.Node) []*Type {
	var out []*Type
	for _, a := range operands(n) {
		out = append(out, c.typeFromNode(a))
	}
	return out
}

// resolveTypeName resolves a type name at its use site. Names with no
// declaration in the file are taken as written.
func (c *Checker) resolveTypeName(name *syntax.Node, args []*Type) *Type {
	text := c.file.Text(name)
	decl := c.lookupType(text, name)
	if decl == nil {
		return c.types.generic(text, args, nil)
	}

	switch decl.Type {
	case "type_parameter":
		return c.typeParamType(decl)
	case "type_alias_declaration":
		return c.resolveAlias(decl, args)
	}
	return c.types.generic(text, args, decl)
}

func (c *Checker) resolveAlias(decl *syntax.Node, args []*Type) *Type {
	name := c.file.Text(decl.Field("name"))
	value := decl.Field("value")
	if value == nil || c.resolving[decl] {
		return c.types.named(name, decl)
	}
	c.resolving[decl] = true
	defer delete(c.resolving, decl)

	var env map[*syntax.Node]*Type
	if params := typeParams(decl); len(params) > 0 {
		env = make(map[*syntax.Node]*Type, len(params))
		for i, tp := range params {
			switch def := tp.ChildOfType("default_type"); {
			case i < len(args):
				env[tp] = args[i]
			case def != nil:
				env[tp] = c.typeFromNode(firstOperand(def))
			default:
				env[tp] = c.types.primitive("unknown")
			}
		}
	}
	return c.withSubst(env, func() *Type { return c.typeFromNode(value) })
}
