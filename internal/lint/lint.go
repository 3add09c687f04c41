// Package lint defines the contract between a rule and the host that runs it.
package lint

import (
	"errors"
	"fmt"

	"github.com/duvholt/strictyield/internal/syntax"
	"github.com/duvholt/strictyield/internal/typecheck"
)

// ErrNoTypeInfo is returned when a rule that requires type information is
// run without a type-query service.
var ErrNoTypeInfo = errors.New("rule requires type information")

// Severity of a reported diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityOff     Severity = "off"
)

// ParseSeverity accepts the TSLint spellings; empty means error.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "", "default", "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "off", "none":
		return SeverityOff, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rule is a single pluggable check.
type Rule struct {
	Name string
	Doc  string

	// RequiresTypeInfo rules get a non-nil Pass.Types.
	RequiresTypeInfo bool

	Run func(*Pass) error
}

// Diagnostic is one finding. Node is the location; Start and End are
// copied from it so diagnostics outlive the tree.
type Diagnostic struct {
	Node     *syntax.Node
	Message  string
	Category string // optional, rule-defined
	Rule     string
	Severity Severity

	Path        string
	Start       syntax.Position
	End         syntax.Position
	StartOffset int // byte offsets into the file
	EndOffset   int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s", d.Path, d.Start, d.Message)
}

// Pass carries everything a rule sees while checking one file.
type Pass struct {
	Rule  *Rule
	File  *syntax.File
	Types typecheck.Service
	Args  []string

	diagnostics []Diagnostic
}

// Report records d. Node and Message must be set; the rest is filled in.
func (p *Pass) Report(d Diagnostic) {
	d.Rule = p.Rule.Name
	if d.Severity == "" {
		d.Severity = SeverityError
	}
	d.Path = p.File.Path
	d.Start = d.Node.Start
	d.End = d.Node.End
	d.StartOffset = d.Node.StartByte
	d.EndOffset = d.Node.EndByte
	p.diagnostics = append(p.diagnostics, d)
}

// Run applies rule to file and returns the diagnostics in report order.
func Run(rule *Rule, file *syntax.File, types typecheck.Service, args []string) ([]Diagnostic, error) {
	if rule.RequiresTypeInfo && types == nil {
		return nil, fmt.Errorf("%s: %w", rule.Name, ErrNoTypeInfo)
	}
	pass := &Pass{
		Rule:  rule,
		File:  file,
		Types: types,
		Args:  args,
	}
	if err := rule.Run(pass); err != nil {
		return nil, fmt.Errorf("%s: %w", rule.Name, err)
	}
	return pass.diagnostics, nil
}
