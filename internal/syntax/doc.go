// Package syntax provides the immutable syntax tree the yield rule walks.
//
// # Tree Shape
//
// A [File] owns a root [Node] of kind [SourceFile]. Every node keeps its
// grammar type, a normalized [Kind], a parent back-reference and all of its
// children, named and anonymous, in source order. Tokens such as "(", "as"
// and "yield" are children too, so positional access mirrors the source:
//
//	(yield p()) as Data
//
//	AsExpression
//	├── ParenthesizedExpression   Child(0)
//	│   ├── Token "("
//	│   ├── YieldExpression
//	│   │   ├── Token "yield"     Child(0)
//	│   │   └── CallExpression    Child(1)
//	│   └── Token ")"
//	├── AsKeyword                 Child(1)
//	└── TypeReference "Data"      Child(2)
//
// Comments are not part of the tree. They are collected in [File.Comments]
// for directive scanning.
//
// # Positions
//
// [Position] lines and columns are zero-based. [Position.String] renders
// them one-based, as editors show them.
package syntax
