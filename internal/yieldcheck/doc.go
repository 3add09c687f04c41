// Package yieldcheck finds generator yields whose result is used without a
// concrete type ascription.
//
// # Checks
//
// The walker visits the file in document order. For every yield inside a
// generator body it asks three questions:
//
//  1. Is the result consumed? Walking up from the yield, the first
//     property access, variable statement or binary/assignment expression
//     means yes. Reaching a block or the file root first means no.
//  2. Is it ascribed? The yield's grandparent must be exactly
//     (yield expr) as T, with T other than any.
//  3. With [Options.CheckReturnType], does T match? The yielded operand must
//     be a Promise, and its payload must be identical to T.
//
// Examples:
//
//	yield fetch();                        // not consumed, ok
//	const a = yield fetch();              // UnascribedConsumedResult
//	const b = ((yield fetch()) as any).x  // UnascribedConsumedResult
//	const c = (yield fetch()) as Data;    // ok, or AscriptionTypeMismatch
//	const d = (yield 42) as number;       // SuspensionNotDeferredTyped
//
// A yield's own operand is not searched for further yields.
package yieldcheck
