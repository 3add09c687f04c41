package typecheck

import "github.com/duvholt/strictyield/internal/syntax"

// maxHeritage bounds how many base classes or interfaces are searched.
const maxHeritage = 16

func (c *Checker) exprType(n *syntax.Node) *Type {
	if n == nil {
		return c.types.any()
	}
	switch n.Kind {
	case syntax.ParenthesizedExpression:
		if inner := firstOperand(n); inner != nil {
			return c.exprType(inner)
		}
	case syntax.AsExpression:
		if t := n.Child(2); t != nil && t.Type != "const" && (t.Kind == syntax.TypeReference || t.Kind == syntax.AnyKeyword) {
			return c.typeFromNode(t)
		}
		return c.exprType(n.Child(0))
	case syntax.Identifier:
		return c.identifierType(n)
	case syntax.CallExpression:
		return c.callType(n)
	case syntax.NewExpression:
		return c.newType(n)
	case syntax.AwaitExpression:
		t := c.exprType(n.Child(1))
		if inner := c.PromisedType(t); inner != nil {
			return inner
		}
		return t
	case syntax.PropertyAccessExpression:
		return c.propertyType(n)
	case syntax.Literal:
		return c.literalType(n)
	}

	switch n.Type {
	case "satisfies_expression":
		return c.exprType(n.Child(0))
	case "non_null_expression":
		return c.exprType(n.Child(0))
	case "this":
		return c.thisType(n)
	}
	return c.types.any()
}

func (c *Checker) literalType(n *syntax.Node) *Type {
	switch n.Type {
	case "number":
		return c.types.primitive("number")
	case "string", "template_string":
		return c.types.primitive("string")
	case "true", "false":
		return c.types.primitive("boolean")
	case "null":
		return c.types.primitive("null")
	case "undefined":
		return c.types.primitive("undefined")
	}
	return c.types.any()
}

func (c *Checker) identifierType(n *syntax.Node) *Type {
	decl := c.lookupValue(n)
	if decl == nil {
		return c.types.any()
	}
	switch decl.Type {
	case "variable_declarator":
		if ann := decl.Field("type"); ann != nil {
			return c.typeFromNode(ann)
		}
		if v := decl.Field("value"); v != nil && !c.resolving[decl] {
			c.resolving[decl] = true
			defer delete(c.resolving, decl)
			return c.exprType(v)
		}
	case "required_parameter", "optional_parameter":
		if ann := decl.Field("type"); ann != nil {
			return c.typeFromNode(ann)
		}
	}
	return c.types.any()
}

// thisType is the instance type of the class enclosing n. Arrow functions
// keep the outer this; any other function hides it.
func (c *Checker) thisType(n *syntax.Node) *Type {
	for p := n.Parent; p != nil; p = p.Parent {
		switch p.Type {
		case "class_declaration", "abstract_class_declaration", "class":
			return c.declaredType(p)
		case "function_declaration", "function_expression", "function",
			"generator_function_declaration", "generator_function":
			return c.types.any()
		}
	}
	return c.types.any()
}

// declaredType is the type a class or interface declaration introduces,
// with its own type parameters as arguments.
func (c *Checker) declaredType(decl *syntax.Node) *Type {
	name := c.file.Text(decl.Field("name"))
	if name == "" {
		name = "(anonymous class)"
	}
	var args []*Type
	for _, tp := range typeParams(decl) {
		args = append(args, c.typeParamType(tp))
	}
	return c.types.generic(name, args, decl)
}

func (c *Checker) typeParamType(tp *syntax.Node) *Type {
	if t, ok := c.subst[tp]; ok {
		return t
	}
	return c.types.named(c.file.Text(tp.Field("name")), tp)
}

func (c *Checker) callType(n *syntax.Node) *Type {
	callee := n.Field("function")
	if callee == nil {
		return c.types.any()
	}
	targs := n.Field("type_arguments")
	if targs == nil {
		targs = n.ChildOfType("type_arguments")
	}
	args := operands(n.Field("arguments"))

	switch callee.Kind {
	case syntax.Identifier:
		decl := c.lookupValue(callee)
		if decl == nil {
			return c.types.any()
		}
		fn := decl
		if decl.Type == "variable_declarator" {
			fn = decl.Field("value")
		}
		if !isCallable(fn) {
			return c.types.any()
		}
		return c.instantiate(fn, nil, targs, args)
	case syntax.PropertyAccessExpression:
		obj, prop := callee.Field("object"), callee.Field("property")
		if obj == nil || prop == nil {
			return c.types.any()
		}
		if c.isGlobalPromise(obj) {
			return c.promiseCall(c.file.Text(prop), targs, args)
		}
		recv := c.exprType(obj)
		member, owner := c.findMember(recv, c.file.Text(prop))
		if member == nil {
			return c.types.any()
		}
		return c.instantiate(member, c.receiverBindings(recv, owner), targs, args)
	}
	return c.types.any()
}

func isCallable(n *syntax.Node) bool {
	return n != nil && (n.Kind.IsFunctionLike() || n.Type == "function_signature")
}

// isGlobalPromise reports whether n names the built-in Promise object.
func (c *Checker) isGlobalPromise(n *syntax.Node) bool {
	return n.Type == "identifier" && c.file.Text(n) == "Promise" && c.lookupValue(n) == nil
}

// promiseCall types Promise.resolve(x), Promise.reject(x), Promise.all(...).
func (c *Checker) promiseCall(method string, targs *syntax.Node, args []*syntax.Node) *Type {
	if explicit := c.typeArgs(targs); len(explicit) == 1 {
		return c.types.generic("Promise", explicit, nil)
	}
	switch method {
	case "resolve":
		if len(args) == 0 {
			return c.types.generic("Promise", []*Type{c.types.primitive("void")}, nil)
		}
		t := c.exprType(args[0])
		if inner := c.PromisedType(t); inner != nil {
			t = inner
		}
		return c.types.generic("Promise", []*Type{t}, nil)
	case "reject":
		return c.types.generic("Promise", []*Type{c.types.primitive("never")}, nil)
	}
	return c.types.generic("Promise", []*Type{c.types.any()}, nil)
}

// propertyType types obj.field through the declared members of obj's type.
func (c *Checker) propertyType(n *syntax.Node) *Type {
	obj, prop := n.Field("object"), n.Field("property")
	if obj == nil || prop == nil {
		return c.types.any()
	}
	recv := c.exprType(obj)
	member, owner := c.findMember(recv, c.file.Text(prop))
	if member == nil {
		return c.types.any()
	}
	switch member.Type {
	case "public_field_definition", "property_signature":
	default:
		return c.types.any()
	}

	return c.withSubst(c.receiverBindings(recv, owner), func() *Type {
		if ann := member.Field("type"); ann != nil {
			return c.typeFromNode(ann)
		}
		if v := member.Field("value"); v != nil && !c.resolving[member] {
			c.resolving[member] = true
			defer delete(c.resolving, member)
			return c.exprType(v)
		}
		return c.types.any()
	})
}

// findMember looks name up in the body of the class or interface behind
// recv, then in its bases. owner is the declaration the member was found in.
func (c *Checker) findMember(recv *Type, name string) (member, owner *syntax.Node) {
	if recv == nil || recv.decl == nil {
		return nil, nil
	}
	seen := make(map[*syntax.Node]bool)
	queue := []*syntax.Node{recv.decl}
	for len(queue) > 0 && len(seen) < maxHeritage {
		decl := queue[0]
		queue = queue[1:]
		if seen[decl] {
			continue
		}
		seen[decl] = true

		if m := c.memberOf(decl, name); m != nil {
			return m, decl
		}
		queue = append(queue, c.bases(decl)...)
	}
	return nil, nil
}

var memberTypes = map[string]bool{
	"method_definition":         true,
	"method_signature":          true,
	"abstract_method_signature": true,
	"public_field_definition":   true,
	"property_signature":        true,
}

func (c *Checker) memberOf(decl *syntax.Node, name string) *syntax.Node {
	body := decl.Field("body")
	if body == nil {
		return nil
	}
	for _, m := range body.Children {
		if !memberTypes[m.Type] {
			continue
		}
		if key := m.Field("name"); key != nil && c.file.Text(key) == name {
			return m
		}
	}
	return nil
}

// bases returns the declarations a class extends or an interface extends.
func (c *Checker) bases(decl *syntax.Node) []*syntax.Node {
	var names []*syntax.Node
	for _, ch := range decl.Children {
		switch ch.Type {
		case "class_heritage":
			if ext := ch.ChildOfType("extends_clause"); ext != nil {
				names = append(names, operands(ext)...)
			}
		case "extends_type_clause":
			names = append(names, operands(ch)...)
		}
	}

	var out []*syntax.Node
	for _, n := range names {
		if n.Type == "generic_type" {
			n = n.Child(0)
		}
		if n == nil {
			continue
		}
		switch n.Type {
		case "identifier", "type_identifier":
			if base := c.lookupType(c.file.Text(n), n); base != nil {
				out = append(out, base)
			}
		}
	}
	return out
}

// receiverBindings binds the type parameters of owner to the arguments of
// recv, as for repo.get() on a Repo<User>.
func (c *Checker) receiverBindings(recv *Type, owner *syntax.Node) map[*syntax.Node]*Type {
	if recv == nil || owner == nil || recv.decl != owner {
		return nil
	}
	params := typeParams(owner)
	if len(params) == 0 || len(recv.Args) == 0 {
		return nil
	}
	env := make(map[*syntax.Node]*Type, len(params))
	for i, tp := range params {
		if i < len(recv.Args) {
			env[tp] = recv.Args[i]
		}
	}
	return env
}

// instantiate returns the result type of calling fn with the given
// explicit type arguments and argument expressions. Type parameters of fn
// are bound from targs, then inferred from arguments annotated with a bare
// type parameter, then from their defaults; the rest become unknown.
func (c *Checker) instantiate(fn *syntax.Node, bindings map[*syntax.Node]*Type, targs *syntax.Node, args []*syntax.Node) *Type {
	env := make(map[*syntax.Node]*Type, len(bindings))
	for k, v := range bindings {
		env[k] = v
	}

	params := typeParams(fn)
	explicit := c.typeArgs(targs)
	for i, tp := range params {
		if i < len(explicit) {
			env[tp] = explicit[i]
		}
	}
	if len(explicit) == 0 && len(params) > 0 {
		c.inferTypeArgs(fn, params, args, env)
	}
	for _, tp := range params {
		if env[tp] != nil {
			continue
		}
		if def := tp.ChildOfType("default_type"); def != nil {
			env[tp] = c.typeFromNode(firstOperand(def))
		} else {
			env[tp] = c.types.primitive("unknown")
		}
	}

	// Function-valued properties: fetch: () => Promise<User>, or
	// fetch = (): Promise<User> => ...
	if fn.Type == "public_field_definition" || fn.Type == "property_signature" {
		return c.withSubst(env, func() *Type {
			if ann := firstOperand(fn.Field("type")); ann != nil {
				if ann.Type != "function_type" {
					return c.types.any()
				}
				return c.typeFromNode(ann.Field("return_type"))
			}
			if v := fn.Field("value"); isCallable(v) {
				return c.returnType(v)
			}
			return c.types.any()
		})
	}
	return c.withSubst(env, func() *Type { return c.returnType(fn) })
}

func (c *Checker) inferTypeArgs(fn *syntax.Node, params, args []*syntax.Node, env map[*syntax.Node]*Type) {
	own := make(map[*syntax.Node]bool, len(params))
	for _, tp := range params {
		own[tp] = true
	}
	for i, p := range operands(fn.Field("parameters")) {
		if i >= len(args) {
			return
		}
		ann := firstOperand(p.Field("type"))
		if ann == nil || ann.Type != "type_identifier" {
			continue
		}
		tp := c.lookupType(c.file.Text(ann), ann)
		if tp == nil || !own[tp] || env[tp] != nil {
			continue
		}
		env[tp] = c.exprType(args[i])
	}
}

func (c *Checker) newType(n *syntax.Node) *Type {
	ctor := n.Field("constructor")
	if ctor == nil {
		ctor = n.Child(1)
	}
	if ctor == nil || ctor.Kind == syntax.Token {
		return c.types.any()
	}
	name := c.file.Text(ctor)
	targs := n.Field("type_arguments")
	if targs == nil {
		targs = n.ChildOfType("type_arguments")
	}
	args := c.typeArgs(targs)

	var decl *syntax.Node
	if ctor.Type == "identifier" {
		decl = c.lookupType(name, ctor)
		if decl != nil && decl.Type != "class_declaration" && decl.Type != "abstract_class_declaration" {
			decl = nil
		}
	}
	if decl == nil && len(args) == 0 && deferredTypes[name] {
		args = []*Type{c.types.primitive("unknown")}
	}
	return c.types.generic(name, args, decl)
}

func (c *Checker) returnType(fn *syntax.Node) *Type {
	if ann := fn.Field("return_type"); ann != nil {
		return c.typeFromNode(ann)
	}
	if fn.Kind == syntax.GeneratorFunction {
		return c.types.named("Generator", nil)
	}
	if c.resolving[fn] {
		return c.types.any()
	}
	c.resolving[fn] = true
	defer delete(c.resolving, fn)

	t := c.inferReturn(fn)
	if isAsync(fn) && c.PromisedType(t) == nil {
		t = c.types.generic("Promise", []*Type{t}, nil)
	}
	return t
}

func (c *Checker) inferReturn(fn *syntax.Node) *Type {
	body := fn.Field("body")
	if body == nil {
		return c.types.any()
	}
	if body.Kind != syntax.Block {
		return c.exprType(body)
	}

	var ret *syntax.Node
	syntax.Inspect(body, func(n *syntax.Node) bool {
		if ret != nil || (n != body && n.Kind.IsFunctionLike()) {
			return false
		}
		if n.Type == "return_statement" {
			ret = n
			return false
		}
		return true
	})
	if ret == nil {
		return c.types.primitive("void")
	}
	if v := firstOperand(ret); v != nil {
		return c.exprType(v)
	}
	return c.types.primitive("void")
}

func isAsync(fn *syntax.Node) bool {
	for _, ch := range fn.Children {
		if ch.Kind == syntax.Token && ch.Type == "async" {
			return true
		}
	}
	return false
}

// operands returns the non-token children of n.
func operands(n *syntax.Node) []*syntax.Node {
	if n == nil {
		return nil
	}
	var out []*syntax.Node
	for _, ch := range n.Children {
		if ch.Kind != syntax.Token {
			out = append(out, ch)
		}
	}
	return out
}

func firstOperand(n *syntax.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	for _, ch := range n.Children {
		if ch.Kind != syntax.Token {
			return ch
		}
	}
	return nil
}
