// Package strictyield provides the "yield" lint rule: inside generator
// functions, a yield whose result is used must be ascribed a concrete type,
// as in ((yield fetch()) as Result).field.
package strictyield

import (
	"context"
	"slices"

	"github.com/duvholt/strictyield/internal/lint"
	"github.com/duvholt/strictyield/internal/parser"
	"github.com/duvholt/strictyield/internal/syntax"
	"github.com/duvholt/strictyield/internal/typecheck"
	"github.com/duvholt/strictyield/internal/yieldcheck"
)

// RuleName is the name the rule is configured under.
const RuleName = "yield"

// CheckReturnType is the rule argument that enables comparing the ascribed
// type with the payload type of the yielded Promise.
const CheckReturnType = "check-return-type"

// Rule is the yield rule for hosts that drive lint.Rule values.
var Rule = &lint.Rule{
	Name:             RuleName,
	Doc:              "requires yield results that are used to be ascribed a concrete type",
	RequiresTypeInfo: true,
	Run:              run,
}

// ParseOptions reads the rule arguments. Unknown arguments are ignored.
func ParseOptions(args []string) yieldcheck.Options {
	return yieldcheck.Options{
		CheckReturnType: slices.Contains(args, CheckReturnType),
	}
}

func run(pass *lint.Pass) error {
	yieldcheck.NewWalker(pass, ParseOptions(pass.Args)).Walk()
	return nil
}

// Analyze runs the rule over one parsed file and returns its diagnostics in
// document order. It does not modify file.
func Analyze(file *syntax.File, types typecheck.Service, args []string) ([]lint.Diagnostic, error) {
	return lint.Run(Rule, file, types, args)
}

// AnalyzeSource parses src as TypeScript, builds a file-local type checker
// and runs the rule.
func AnalyzeSource(ctx context.Context, path string, src []byte, args []string) ([]lint.Diagnostic, error) {
	file, err := parser.ParseFile(ctx, path, src)
	if err != nil {
		return nil, err
	}
	return Analyze(file, typecheck.New(file), args)
}
