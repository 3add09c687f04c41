// Command strictyield lints TypeScript generators for yield results that are
// used without a type ascription.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duvholt/strictyield"
	"github.com/duvholt/strictyield/internal/config"
	"github.com/duvholt/strictyield/internal/lint"
	"github.com/duvholt/strictyield/internal/report"
	"github.com/duvholt/strictyield/internal/runner"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit statuses.
const (
	exitOK       = 0
	exitFailure  = 1
	exitFindings = 2
)

// errFindings signals that linting succeeded but reported errors.
var errFindings = errors.New("lint errors found")

type flags struct {
	config               string
	format               string
	checkReturnType      bool
	exclude              []string
	jobs                 int
	color                string
	reportUnusedDisables bool
	verbose              bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFindings):
		return exitFindings
	default:
		fmt.Fprintln(stderr, "strictyield:", err)
		return exitFailure
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "strictyield [flags] <files|dirs|globs>...",
		Short: "Require typed yield results in TypeScript generators",
		Long: `strictyield reports yield expressions inside generator functions whose
result is used without an explicit type ascription:

    const data = ((yield fetchData()) as Data).items;

With --check-return-type the ascribed type must also match the payload of
the yielded Promise.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lintCmd(cmd, args, &f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "path to tslint.json or tslint.yaml (default: nearest to each linted file)")
	fs.StringVarP(&f.format, "format", "t", "prose", "output format ("+strings.Join(report.Formats, "|")+")")
	fs.BoolVar(&f.checkReturnType, "check-return-type", false, "check that ascribed types match the yielded Promise payload")
	fs.StringSliceVarP(&f.exclude, "exclude", "e", nil, "glob of files to exclude (repeatable)")
	fs.IntVar(&f.jobs, "jobs", 0, "number of files linted in parallel (default: GOMAXPROCS)")
	fs.StringVar(&f.color, "color", "auto", "colorize output (auto|on|off)")
	fs.BoolVar(&f.reportUnusedDisables, "report-unused-disables", false, "warn about tslint:disable-line directives that suppress nothing")
	fs.BoolVar(&f.verbose, "verbose", false, "enable debug logging on stderr")

	return cmd
}

func lintCmd(cmd *cobra.Command, args []string, f *flags, stdout, stderr io.Writer) error {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if !slices.Contains(report.Formats, f.format) {
		return fmt.Errorf("unknown format %q (want %s)", f.format, strings.Join(report.Formats, "|"))
	}
	out, _ := stdout.(*os.File)
	useColor, err := report.ShouldColor(f.color, out)
	if err != nil {
		return err
	}

	fixed, err := loadConfig(f.config, logger)
	if err != nil {
		return err
	}
	resolver := config.NewResolver(fixed, func(cfg *config.Config) {
		logger.Debug("using configuration", "path", cfg.Path)
		cfg.Exclude = append(cfg.Exclude, f.exclude...)
		if f.checkReturnType {
			rc := cfg.Rule(strictyield.RuleName)
			if !slices.Contains(rc.Options, strictyield.CheckReturnType) {
				rc.Options = append(slices.Clone(rc.Options), strictyield.CheckReturnType)
			}
			cfg.Rules[strictyield.RuleName] = rc
		}
	})

	r := runner.New(runner.Options{
		Resolver:             resolver,
		Rules:                []*lint.Rule{strictyield.Rule},
		Jobs:                 f.jobs,
		ReportUnusedDisables: f.reportUnusedDisables,
		Logger:               logger,
	})

	files, err := r.Expand(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("no TypeScript files matched", "args", args)
		return nil
	}

	res, err := r.Run(cmd.Context(), files)
	if err != nil {
		return err
	}
	if err := report.Write(stdout, res.Diagnostics(), report.Options{Format: f.format, Color: useColor}); err != nil {
		return err
	}
	if errs := res.Errs(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if res.Count(lint.SeverityError) > 0 {
		return errFindings
	}
	return nil
}

// loadConfig loads the file named by --config. Without one, configuration
// is looked up per linted file and loadConfig returns nil.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if path == "" {
		return nil, nil
	}
	logger.Debug("loading configuration", "path", path)
	return config.Load(path)
}
