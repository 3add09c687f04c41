package yieldcheck

import (
	"strings"

	"github.com/duvholt/strictyield/internal/lint"
	"github.com/duvholt/strictyield/internal/syntax"
	"github.com/duvholt/strictyield/internal/typecheck"
)

// Finding kinds. Every diagnostic the walker reports is one of these.
type FindingKind int

const (
	UnascribedConsumedResult FindingKind = iota
	SuspensionNotDeferredTyped
	AscriptionTypeMismatch
)

func (k FindingKind) String() string {
	switch k {
	case UnascribedConsumedResult:
		return "UnascribedConsumedResult"
	case SuspensionNotDeferredTyped:
		return "SuspensionNotDeferredTyped"
	case AscriptionTypeMismatch:
		return "AscriptionTypeMismatch"
	}
	return "unknown"
}

// FailureString is the message for a consumed yield without ascription.
// __EXPRESSION__ is replaced with the yield's source text.
const FailureString = "yield result should be typed if result is used: (__EXPRESSION__) as 'ResultType'"

// consumingKinds are the ancestor kinds that make a yield's result "used":
//
//	(yield i).a      property access
//	var a = yield i  variable statement
//	a.b = yield i    binary/assignment expression
var consumingKinds = map[syntax.Kind]bool{
	syntax.PropertyAccessExpression: true,
	syntax.VariableStatement:        true,
	syntax.BinaryExpression:         true,
}

// Options configures a Walker.
type Options struct {
	CheckReturnType bool
}

// Walker runs the yield checks over one file. It is not reused across files.
type Walker struct {
	pass    *lint.Pass
	types   typecheck.Service
	options Options
}

// NewWalker creates a walker reporting into pass.
func NewWalker(pass *lint.Pass, options Options) *Walker {
	return &Walker{
		pass:    pass,
		types:   pass.Types,
		options: options,
	}
}

// Walk visits every node of the file in document order. Yield expressions
// are checked and not descended into.
func (w *Walker) Walk() {
	syntax.Inspect(w.pass.File.Root, func(n *syntax.Node) bool {
		if n.Kind == syntax.YieldExpression {
			w.checkYieldExpression(n)
			return false
		}
		return true
	})
}

func (w *Walker) checkYieldExpression(node *syntax.Node) {
	if node.Grandparent() == nil || !inGenerator(node) {
		return
	}
	if !checkParentType(node) {
		return
	}
	if !w.validateAsExpression(node.Grandparent(), node) {
		w.report(UnascribedConsumedResult, node,
			strings.Replace(FailureString, "__EXPRESSION__", w.pass.File.Text(node), 1))
	}
}

// checkParentType reports whether the yield's result feeds into a consuming
// context. The search stops at the first block.
func checkParentType(node *syntax.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if consumingKinds[n.Kind] {
			return true
		}
		if n.Kind == syntax.Block || n.Parent == nil {
			return false
		}
	}
	return false
}

// inGenerator reports whether the nearest enclosing function is a generator.
func inGenerator(node *syntax.Node) bool {
	fn := syntax.EnclosingFunction(node)
	return fn != nil && fn.Kind == syntax.GeneratorFunction
}

// validateAsExpression checks that node has the shape (yield ...) as Type
// with a type other than any. When return type checking is on and the shape
// is valid, it also compares the ascribed type with the promised type.
func (w *Walker) validateAsExpression(node, yieldExpr *syntax.Node) bool {
	if !isAscription(node) {
		return false
	}
	if w.options.CheckReturnType {
		w.checkReturnType(node, yieldExpr)
	}
	return true
}

func isAscription(node *syntax.Node) bool {
	return node.ChildCount() == 3 &&
		node.Child(0).Kind == syntax.ParenthesizedExpression &&
		node.Child(1).Kind == syntax.AsKeyword &&
		node.Child(2).Kind != syntax.AnyKeyword
}

func (w *Walker) checkReturnType(asExpr, yieldExpr *syntax.Node) {
	castType := w.types.TypeAtLocation(asExpr.Child(2))

	slot := resumptionValueSlot(yieldExpr)
	if slot == nil {
		// Nothing was yielded, so there is no resumption type to compare.
		return
	}
	yieldType := w.types.TypeAtLocation(slot)
	promised := w.types.PromisedType(yieldType)

	switch {
	case promised == nil:
		w.report(SuspensionNotDeferredTyped, asExpr,
			"Yield expression does't return Promise type: "+w.pass.File.Text(yieldExpr))
	case !w.types.Identical(promised, castType):
		w.report(AscriptionTypeMismatch, asExpr,
			"yield return type '"+w.types.TypeToString(promised)+"' is not equal to "+
				"casting type '"+w.types.TypeToString(castType)+"'")
	}
}

// resumptionValueSlot returns the node whose type decides what the yield
// resumes with. This is positional: child 0 is the "yield" keyword and child
// 1 is whatever follows it (the operand, or "*" for a delegating yield).
func resumptionValueSlot(yieldExpr *syntax.Node) *syntax.Node {
	if yieldExpr.ChildCount() < 2 {
		return nil
	}
	return yieldExpr.Child(1)
}

func (w *Walker) report(kind FindingKind, node *syntax.Node, msg string) {
	w.pass.Report(lint.Diagnostic{
		Node:     node,
		Message:  msg,
		Category: kind.String(),
	})
}
