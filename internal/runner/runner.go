// Package runner lints sets of files: it expands paths, parses each file,
// runs the configured rules and applies tslint:disable directives.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/duvholt/strictyield/internal/config"
	"github.com/duvholt/strictyield/internal/directives/ignore"
	"github.com/duvholt/strictyield/internal/lint"
	"github.com/duvholt/strictyield/internal/parser"
	"github.com/duvholt/strictyield/internal/typecheck"
)

// DirectiveRule is the rule name used for unused-directive diagnostics.
const DirectiveRule = "no-unused-disable"

// skipDirs are never descended into when expanding directories.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Options configures a Runner.
type Options struct {
	// Resolver picks the configuration of each file. When nil, Config
	// (or config.Default()) applies to every file.
	Resolver *config.Resolver
	Config   *config.Config
	Rules    []*lint.Rule

	// Jobs bounds the number of files linted concurrently (0 = GOMAXPROCS).
	Jobs int

	// ReportUnusedDisables adds a diagnostic for every disable-line or
	// disable-next-line directive that suppressed nothing.
	ReportUnusedDisables bool

	Logger *slog.Logger
}

// FileResult is the outcome for one file. Err is set when the file could
// not be read or parsed; Diagnostics are in report order.
type FileResult struct {
	Path        string
	Diagnostics []lint.Diagnostic
	Err         error
}

// Result is the outcome of a run, sorted by path.
type Result struct {
	Files []FileResult
}

// Diagnostics returns every diagnostic, file by file.
func (r *Result) Diagnostics() []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}
	return out
}

// Count returns the number of diagnostics with the given severity.
func (r *Result) Count(sev lint.Severity) int {
	n := 0
	for _, f := range r.Files {
		for _, d := range f.Diagnostics {
			if d.Severity == sev {
				n++
			}
		}
	}
	return n
}

// Errs returns the per-file errors.
func (r *Result) Errs() []error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Runner lints files.
type Runner struct {
	opts Options
	log  *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Resolver == nil {
		cfg := opts.Config
		if cfg == nil {
			cfg = config.Default()
		}
		opts.Resolver = config.NewResolver(cfg, nil)
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Runner{opts: opts, log: log}
}

// Expand turns file, directory and glob arguments into a sorted list of
// TypeScript files, minus the excludes of each file's configuration.
func (r *Runner) Expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) error {
		path = filepath.Clean(path)
		if seen[path] || !isTypeScript(path) {
			return nil
		}
		cfg, err := r.opts.Resolver.For(path)
		if err != nil {
			return err
		}
		if cfg.Excluded(path) {
			return nil
		}
		seen[path] = true
		files = append(files, path)
		return nil
	}

	for _, arg := range args {
		if hasMeta(arg) {
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, fmt.Errorf("expand %q: %w", arg, err)
			}
			for _, m := range matches {
				if err := add(m); err != nil {
					return nil, err
				}
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", arg, err)
		}
		if !info.IsDir() {
			if err := add(arg); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func isTypeScript(path string) bool {
	if strings.HasSuffix(path, ".d.ts") {
		return false
	}
	ext := filepath.Ext(path)
	return ext == ".ts" || ext == ".tsx"
}

// Run lints files concurrently. Each file gets its own parser, type
// checker and rule passes. The returned error is only non-nil when ctx is
// cancelled; per-file failures are recorded in FileResult.Err.
func (r *Runner) Run(ctx context.Context, files []string) (*Result, error) {
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.opts.Jobs, max(len(files), 1)))

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.lintFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.log.Debug("lint finished", "files", len(files))
	return &Result{Files: results}, nil
}

func (r *Runner) lintFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", path, err)
		return res
	}
	res.Diagnostics, res.Err = r.LintSource(ctx, path, src)
	return res
}

// LintSource lints in-memory source as if it were the file at path.
func (r *Runner) LintSource(ctx context.Context, path string, src []byte) ([]lint.Diagnostic, error) {
	cfg, err := r.opts.Resolver.For(path)
	if err != nil {
		return nil, err
	}
	file, err := parser.ParseFile(ctx, path, src)
	if err != nil {
		return nil, err
	}
	if file.HasErrors {
		r.log.Warn("file has syntax errors; results may be incomplete", "path", path)
	}

	types := typecheck.New(file)
	directives := ignore.Build(file)
	enabled := make(map[string]bool)

	var out []lint.Diagnostic
	for _, rule := range r.opts.Rules {
		rc := cfg.Rule(rule.Name)
		if !rc.Enabled {
			r.log.Debug("rule disabled", "rule", rule.Name, "path", path)
			continue
		}
		enabled[rule.Name] = true

		diags, err := lint.Run(rule, file, types, rc.Options)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, d := range diags {
			if directives.ShouldIgnore(d.Start, d.Rule) {
				r.log.Debug("diagnostic suppressed", "rule", d.Rule, "path", path, "pos", d.Start.String())
				continue
			}
			d.Severity = rc.Severity
			out = append(out, d)
		}
	}

	if r.opts.ReportUnusedDisables {
		for _, u := range directives.GetUnusedIgnores(enabled) {
			msg := "unused tslint:disable directive"
			if len(u.Rules) > 0 {
				msg = "unused tslint:disable directive for rule(s): " + strings.Join(u.Rules, ", ")
			}
			out = append(out, lint.Diagnostic{
				Message:  msg,
				Rule:     DirectiveRule,
				Severity: lint.SeverityWarning,
				Path:     path,
				Start:    u.Pos,
				End:      u.Pos,
			})
		}
	}

	r.log.Debug("linted file", "path", path, "diagnostics", len(out))
	return out, nil
}
