// Package linttest runs lint rules over txtar fixtures annotated with
// "// want" comments, in the manner of analysistest.
//
// A fixture is a txtar archive. An optional "args" section lists rule
// arguments one per line; every .ts/.tsx section is linted. A comment
//
//	// want "regexp" `another regexp`
//
// expects one diagnostic per pattern on the comment's line.
package linttest

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/duvholt/strictyield/internal/lint"
	"github.com/duvholt/strictyield/internal/parser"
	"github.com/duvholt/strictyield/internal/syntax"
	"github.com/duvholt/strictyield/internal/typecheck"
)

// TestData returns the absolute path of ./testdata.
func TestData() string {
	dir, err := filepath.Abs("testdata")
	if err != nil {
		panic(err)
	}
	return dir
}

// Result is what a fixture produced, per file.
type Result struct {
	Files       map[string]*syntax.File
	Diagnostics map[string][]lint.Diagnostic
}

// Run lints every fixture named in fixtures (relative to dir/src, without
// the .txtar suffix) and checks the want annotations.
func Run(t *testing.T, dir string, rule *lint.Rule, fixtures ...string) []*Result {
	t.Helper()
	var results []*Result
	for _, name := range fixtures {
		path := filepath.Join(dir, "src", name+".txtar")
		ar, err := txtar.ParseFile(path)
		if err != nil {
			t.Fatalf("load fixture %s: %v", name, err)
		}
		results = append(results, RunArchive(t, rule, ar, nil))
	}
	return results
}

// RunWithArgs is Run with rule arguments that override the fixture's own
// "args" section.
func RunWithArgs(t *testing.T, dir string, rule *lint.Rule, args []string, fixtures ...string) []*Result {
	t.Helper()
	var results []*Result
	for _, name := range fixtures {
		path := filepath.Join(dir, "src", name+".txtar")
		ar, err := txtar.ParseFile(path)
		if err != nil {
			t.Fatalf("load fixture %s: %v", name, err)
		}
		results = append(results, RunArchive(t, rule, ar, args))
	}
	return results
}

// RunArchive lints the sources of one archive. A nil args uses the
// archive's "args" section.
func RunArchive(t *testing.T, rule *lint.Rule, ar *txtar.Archive, args []string) *Result {
	t.Helper()

	if args == nil {
		args = archiveArgs(ar)
	}
	res := &Result{
		Files:       make(map[string]*syntax.File),
		Diagnostics: make(map[string][]lint.Diagnostic),
	}

	for _, f := range ar.Files {
		ext := filepath.Ext(f.Name)
		if ext != ".ts" && ext != ".tsx" {
			continue
		}
		file, err := parser.ParseFile(context.Background(), f.Name, f.Data)
		if err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
		diags, err := lint.Run(rule, file, typecheck.New(file), args)
		if err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
		res.Files[f.Name] = file
		res.Diagnostics[f.Name] = diags
		check(t, file, diags)
	}
	return res
}

func archiveArgs(ar *txtar.Archive) []string {
	for _, f := range ar.Files {
		if f.Name == "args" {
			return strings.Fields(string(f.Data))
		}
	}
	return []string{}
}

type expectation struct {
	line    int
	pattern *regexp.Regexp
	matched bool
}

// check matches diagnostics against want comments by line.
func check(t *testing.T, file *syntax.File, diags []lint.Diagnostic) {
	t.Helper()

	wants, err := expectations(file)
	if err != nil {
		t.Fatalf("%s: %v", file.Path, err)
	}

	for _, d := range diags {
		found := false
		for _, w := range wants {
			if w.matched || w.line != d.Start.Line || !w.pattern.MatchString(d.Message) {
				continue
			}
			w.matched = true
			found = true
			break
		}
		if !found {
			t.Errorf("%s:%s: unexpected diagnostic: %s", file.Path, d.Start, d.Message)
		}
	}

	for _, w := range wants {
		if !w.matched {
			t.Errorf("%s:%d: no diagnostic was reported matching %q", file.Path, w.line+1, w.pattern)
		}
	}
}

func expectations(file *syntax.File) ([]*expectation, error) {
	var out []*expectation
	for _, c := range file.Comments {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		rest, ok := strings.CutPrefix(text, "want ")
		if !ok {
			continue
		}
		patterns, err := parsePatterns(rest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", c.Start.Line+1, err)
		}
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", c.Start.Line+1, err)
			}
			out = append(out, &expectation{line: c.Start.Line, pattern: re})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].line < out[j].line })
	return out, nil
}

// parsePatterns reads a sequence of Go string literals.
func parsePatterns(s string) ([]string, error) {
	var out []string
	for {
		s = strings.TrimSpace(s)
		if s == "" {
			return out, nil
		}
		lit, err := strconv.QuotedPrefix(s)
		if err != nil {
			return nil, fmt.Errorf("bad want pattern %q: %w", s, err)
		}
		p, err := strconv.Unquote(lit)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		s = s[len(lit):]
	}
}
