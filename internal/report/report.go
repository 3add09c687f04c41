// Package report formats diagnostics for humans and tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/duvholt/strictyield/internal/lint"
)

// Formats lists the accepted format names.
var Formats = []string{"prose", "verbose", "stylish", "json"}

// Options controls formatting.
type Options struct {
	Format string
	Color  bool
}

// ShouldColor decides whether to colorize output written to f.
// mode is "auto", "on" or "off"; auto honors NO_COLOR and requires f to be
// a terminal. A nil f is never a terminal.
func ShouldColor(mode string, f *os.File) (bool, error) {
	switch mode {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "", "auto":
		if f == nil || os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		return term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("unknown color mode %q (want auto|on|off)", mode)
}

// Write formats diags onto w.
func Write(w io.Writer, diags []lint.Diagnostic, opts Options) error {
	p := newPalette(opts.Color)
	switch opts.Format {
	case "", "prose":
		return writeProse(w, diags, p)
	case "verbose":
		return writeVerbose(w, diags, p)
	case "stylish":
		return writeStylish(w, diags, p)
	case "json":
		return writeJSON(w, diags)
	}
	return fmt.Errorf("unknown format %q (want %s)", opts.Format, strings.Join(Formats, "|"))
}

type palette struct {
	err  *color.Color
	warn *color.Color
	path *color.Color
	rule *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		path: color.New(color.FgCyan),
		rule: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.path, p.rule} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *palette) severity(sev lint.Severity) string {
	if sev == lint.SeverityWarning {
		return p.warn.Sprint("WARNING")
	}
	return p.err.Sprint("ERROR")
}

// writeProse: ERROR: src/saga.ts:12:5 - message
func writeProse(w io.Writer, diags []lint.Diagnostic, p *palette) error {
	for _, d := range diags {
		if _, err := fmt.Fprintf(w, "%s: %s - %s\n",
			p.severity(d.Severity), p.path.Sprintf("%s:%s", d.Path, d.Start), d.Message); err != nil {
			return err
		}
	}
	return nil
}

// writeVerbose: ERROR: (yield) src/saga.ts[12, 5]: message
func writeVerbose(w io.Writer, diags []lint.Diagnostic, p *palette) error {
	for _, d := range diags {
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.severity(d.Severity),
			p.rule.Sprintf("(%s)", d.Rule),
			p.path.Sprintf("%s[%d, %d]", d.Path, d.Start.Line+1, d.Start.Column+1),
			d.Message); err != nil {
			return err
		}
	}
	return nil
}

// writeStylish groups diagnostics under their file.
func writeStylish(w io.Writer, diags []lint.Diagnostic, p *palette) error {
	current := ""
	for i, d := range diags {
		if d.Path != current {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			current = d.Path
			if _, err := fmt.Fprintln(w, p.path.Sprint(d.Path)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:%d:%d  %s  %s\n",
			p.severity(d.Severity), d.Start.Line+1, d.Start.Column+1,
			p.rule.Sprint(d.Rule), d.Message); err != nil {
			return err
		}
	}
	return nil
}

type jsonPosition struct {
	Character int `json:"character"`
	Line      int `json:"line"`
	Position  int `json:"position"`
}

type jsonFailure struct {
	EndPosition   jsonPosition `json:"endPosition"`
	Failure       string       `json:"failure"`
	Name          string       `json:"name"`
	RuleName      string       `json:"ruleName"`
	RuleSeverity  string       `json:"ruleSeverity"`
	StartPosition jsonPosition `json:"startPosition"`
}

// writeJSON emits the TSLint JSON formatter shape. Lines and characters are
// zero-based, as TSLint reports them.
func writeJSON(w io.Writer, diags []lint.Diagnostic) error {
	out := make([]jsonFailure, 0, len(diags))
	for _, d := range diags {
		out = append(out, jsonFailure{
			EndPosition: jsonPosition{
				Character: d.End.Column,
				Line:      d.End.Line,
				Position:  d.EndOffset,
			},
			Failure:      d.Message,
			Name:         d.Path,
			RuleName:     d.Rule,
			RuleSeverity: strings.ToUpper(string(d.Severity)),
			StartPosition: jsonPosition{
				Character: d.Start.Column,
				Line:      d.Start.Line,
				Position:  d.StartOffset,
			},
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
