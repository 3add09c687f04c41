package typecheck_test

import (
	"context"
	"testing"

	"github.com/duvholt/strictyield/internal/parser"
	"github.com/duvholt/strictyield/internal/syntax"
	"github.com/duvholt/strictyield/internal/typecheck"
)

func check(t *testing.T, src string) (*syntax.File, *typecheck.Checker) {
	t.Helper()
	f, err := parser.ParseFile(context.Background(), "test.ts", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return f, typecheck.New(f)
}

// nodeOf returns the first node of grammar type typ whose text is text.
func nodeOf(t *testing.T, f *syntax.File, typ, text string) *syntax.Node {
	t.Helper()
	var found *syntax.Node
	syntax.Inspect(f.Root, func(n *syntax.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == typ && f.Text(n) == text {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("no %s node %q", typ, text)
	}
	return found
}

func TestExpressionTypes(t *testing.T) {
	t.Parallel()

	src := `
interface Data { value: number }
type Alias = Data;

function getData() {
    return new Promise<Data>(() => {});
}
async function getCount() {
    return 1;
}
function annotated(): Promise<string[]> {
    return null;
}
const fromArrow = () => new Promise<boolean>(() => {});
declare function declared(): PromiseLike<Alias>;

function* saga(param: Promise<Data>) {
    const stored = getData();
    use(getData());
    use(getCount());
    use(annotated());
    use(fromArrow());
    use(declared());
    use(Promise.resolve("x"));
    use(Promise.reject(1));
    use(new Promise(() => {}));
    use(stored);
    use(param);
    use(unknownThing);
    use(42);
}
`
	f, c := check(t, src)

	tests := []struct {
		typ, text string
		want      string
		promised  string // empty when not a deferred type
	}{
		{"call_expression", "getData()", "Promise<Data>", "Data"},
		{"call_expression", "getCount()", "Promise<number>", "number"},
		{"call_expression", "annotated()", "Promise<string[]>", "string[]"},
		{"call_expression", "fromArrow()", "Promise<boolean>", "boolean"},
		{"call_expression", "declared()", "PromiseLike<Data>", "Data"},
		{"call_expression", `Promise.resolve("x")`, "Promise<string>", "string"},
		{"call_expression", "Promise.reject(1)", "Promise<never>", "never"},
		{"new_expression", "new Promise(() => {})", "Promise<unknown>", "unknown"},
		{"identifier", "stored", "Promise<Data>", "Data"},
		{"identifier", "param", "Promise<Data>", "Data"},
		{"identifier", "unknownThing", "any", ""},
		{"number", "42", "number", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			// The last use of an identifier is the one inside the generator.
			n := nodeOf(t, f, tt.typ, tt.text)
			if tt.typ == "identifier" {
				n = lastNodeOf(f, tt.typ, tt.text)
			}
			got := c.TypeAtLocation(n)
			if s := c.TypeToString(got); s != tt.want {
				t.Errorf("TypeAtLocation(%s) = %s, want %s", tt.text, s, tt.want)
			}
			p := c.PromisedType(got)
			switch {
			case tt.promised == "" && p != nil:
				t.Errorf("PromisedType(%s) = %s, want nil", tt.text, p)
			case tt.promised != "" && (p == nil || p.String() != tt.promised):
				t.Errorf("PromisedType(%s) = %v, want %s", tt.text, p, tt.promised)
			}
		})
	}
}

func lastNodeOf(f *syntax.File, typ, text string) *syntax.Node {
	var found *syntax.Node
	syntax.Inspect(f.Root, func(n *syntax.Node) bool {
		if n.Type == typ && f.Text(n) == text {
			found = n
		}
		return true
	})
	return found
}

func TestNominalIdentity(t *testing.T) {
	t.Parallel()

	src := `
interface A { x: number }
interface B { x: number }
type AliasOfA = A;
var a1 = p as A;
var a2 = p as A;
var b = p as B;
var alias = p as AliasOfA;
var s1 = p as string;
var arr1 = p as Array<A>;
var arr2 = p as A[];
var u1 = p as A | B;
var u2 = p as B | A;
`
	f, c := check(t, src)
	typeOf := func(text string) *typecheck.Type {
		as := nodeOf(t, f, "as_expression", text)
		return c.TypeAtLocation(as.Child(2))
	}

	tests := []struct {
		a, b string
		want bool
	}{
		{"p as A", "p as A", true},
		{"p as A", "p as B", false},
		{"p as A", "p as AliasOfA", true},
		{"p as Array<A>", "p as A[]", true},
		{"p as A | B", "p as B | A", true},
		{"p as A", "p as string", false},
	}
	for _, tt := range tests {
		if got := c.Identical(typeOf(tt.a), typeOf(tt.b)); got != tt.want {
			t.Errorf("Identical(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}

	if s := c.TypeToString(typeOf("p as AliasOfA")); s != "A" {
		t.Errorf("alias renders as %s, want A", s)
	}
}

func TestPromisedTypeUnwrapsOneLayer(t *testing.T) {
	t.Parallel()

	f, c := check(t, `var x = p as Promise<Promise<number>>;`)
	outer := c.TypeAtLocation(nodeOf(t, f, "as_expression", "p as Promise<Promise<number>>").Child(2))

	inner := c.PromisedType(outer)
	if inner == nil || inner.String() != "Promise<number>" {
		t.Fatalf("PromisedType = %v, want Promise<number>", inner)
	}
	if got := c.PromisedType(inner); got == nil || got.String() != "number" {
		t.Errorf("second unwrap = %v, want number", got)
	}
	if c.PromisedType(nil) != nil {
		t.Error("PromisedType(nil) should be nil")
	}
}

func TestScopedLookup(t *testing.T) {
	t.Parallel()

	src := `
const value = new Promise<string>(() => {});
function* outer() {
    const value = new Promise<number>(() => {});
    use(value);
}
function* other() {
    use(value);
}
`
	f, c := check(t, src)

	var uses []*syntax.Node
	syntax.Inspect(f.Root, func(n *syntax.Node) bool {
		if n.Type == "identifier" && f.Text(n) == "value" && n.Parent.Type == "arguments" {
			uses = append(uses, n)
		}
		return true
	})
	if len(uses) != 2 {
		t.Fatalf("found %d uses, want 2", len(uses))
	}
	if s := c.TypeAtLocation(uses[0]).String(); s != "Promise<number>" {
		t.Errorf("shadowed value = %s, want Promise<number>", s)
	}
	if s := c.TypeAtLocation(uses[1]).String(); s != "Promise<string>" {
		t.Errorf("outer value = %s, want Promise<string>", s)
	}
}

func TestRecursiveDeclarations(t *testing.T) {
	t.Parallel()

	src := `
type Loop = Loop;
function a() { return b(); }
function b() { return a(); }
var x = p as Loop;
use(a());
`
	f, c := check(t, src)

	// Cycles resolve to something instead of recursing forever.
	if got := c.TypeAtLocation(nodeOf(t, f, "as_expression", "p as Loop").Child(2)); got == nil {
		t.Error("alias cycle resolved to nil")
	}
	if got := c.TypeAtLocation(lastNodeOf(f, "call_expression", "a()")); got.String() != "any" {
		t.Errorf("call cycle = %s, want any", got)
	}
}

func TestGeneratorCallIsNotDeferred(t *testing.T) {
	t.Parallel()

	f, c := check(t, `
function* inner() { yield 1; }
use(inner());
`)
	got := c.TypeAtLocation(nodeOf(t, f, "call_expression", "inner()"))
	if c.PromisedType(got) != nil {
		t.Errorf("generator call %s treated as deferred", got)
	}
}

func TestMemberCallTypes(t *testing.T) {
	t.Parallel()

	src := `
interface User { name: string }

class Api {
    fetch(): Promise<User> { return null; }
    count = async () => 1;
    *ticks() {}
}

interface Client {
    get(): PromiseLike<string>;
    later: () => Promise<boolean>;
    pending: Promise<number>;
}

class Base { base(): Promise<Date> { return null; } }
class Child extends Base {
    *run(client: Client) {
        use(this.base());
        use(this.missing());
        use(client.get());
        use(client.later());
        use(client.pending);
    }
}

const api = new Api();
function direct(other: Api) {
    use(api.fetch());
    use(other.fetch());
    use(api.count());
    use(api.ticks());
    use(unknownThing.fetch());
}
`
	f, c := check(t, src)

	tests := []struct {
		typ, text string
		want      string
	}{
		{"call_expression", "this.base()", "Promise<Date>"},
		{"call_expression", "this.missing()", "any"},
		{"call_expression", "client.get()", "PromiseLike<string>"},
		{"call_expression", "client.later()", "Promise<boolean>"},
		{"member_expression", "client.pending", "Promise<number>"},
		{"call_expression", "api.fetch()", "Promise<User>"},
		{"call_expression", "other.fetch()", "Promise<User>"},
		{"call_expression", "api.count()", "Promise<number>"},
		{"call_expression", "api.ticks()", "Generator"},
		{"call_expression", "unknownThing.fetch()", "any"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := c.TypeAtLocation(nodeOf(t, f, tt.typ, tt.text))
			if s := c.TypeToString(got); s != tt.want {
				t.Errorf("TypeAtLocation(%s) = %s, want %s", tt.text, s, tt.want)
			}
		})
	}
}

func TestGenericInstantiation(t *testing.T) {
	t.Parallel()

	src := `
interface User { name: string }

function get<T>(): Promise<T> { return null; }
function wrap<T>(value: T): Promise<T> { return null; }
function pair<A, B = string>(a: A): Promise<B> { return null; }
type Box<V> = Promise<V[]>;
declare function boxed(): Box<User>;

class Repo<E> {
    one(): Promise<E> { return null; }
    *all() {
        use(this.one());
    }
}

const users = new Repo<User>();
function run(user: User) {
    use(get<User>());
    use(get());
    use(wrap(user));
    use(wrap(1));
    use(pair(user));
    use(boxed());
    use(users.one());
}
`
	f, c := check(t, src)

	tests := []struct {
		typ, text string
		want      string
	}{
		{"call_expression", "get<User>()", "Promise<User>"},
		{"call_expression", "get()", "Promise<unknown>"},
		{"call_expression", "wrap(user)", "Promise<User>"},
		{"call_expression", "wrap(1)", "Promise<number>"},
		{"call_expression", "pair(user)", "Promise<string>"},
		{"call_expression", "boxed()", "Promise<User[]>"},
		{"call_expression", "users.one()", "Promise<User>"},
		{"call_expression", "this.one()", "Promise<E>"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := c.TypeAtLocation(nodeOf(t, f, tt.typ, tt.text))
			if s := c.TypeToString(got); s != tt.want {
				t.Errorf("TypeAtLocation(%s) = %s, want %s", tt.text, s, tt.want)
			}
		})
	}

	// Two instantiations with the same argument are the same type.
	a := c.TypeAtLocation(nodeOf(t, f, "call_expression", "get<User>()"))
	b := c.TypeAtLocation(nodeOf(t, f, "call_expression", "users.one()"))
	if !c.Identical(a, b) {
		t.Errorf("Identical(%s, %s) = false, want true", a, b)
	}
}

func TestDeclarationIdentity(t *testing.T) {
	t.Parallel()

	src := `
interface R { x: number }
var outer = p as R;
var shape1 = p as { a: number };
var shape2 = p as {  a:  number };
function f() {
    interface R { x: number }
    var inner = p as R;
}
`
	f, c := check(t, src)
	typeOf := func(text string) *typecheck.Type {
		return c.TypeAtLocation(nodeOf(t, f, "as_expression", text).Child(2))
	}

	outer := typeOf("p as R")
	inner := c.TypeAtLocation(lastNodeOf(f, "as_expression", "p as R").Child(2))
	if c.Identical(outer, inner) {
		t.Error("shadowing interface R is identical to the outer R")
	}
	if outer.String() != "R" || inner.String() != "R" {
		t.Errorf("renderings = %s, %s, want R, R", outer, inner)
	}

	s1, s2 := typeOf("p as { a: number }"), typeOf("p as {  a:  number }")
	if c.Identical(s1, s2) {
		t.Error("separate object types are identical")
	}
	if s1.String() != s2.String() {
		t.Errorf("object types render as %q and %q, want the same text", s1, s2)
	}
}
