// Package ignore handles tslint:disable comment directives.
package ignore

import (
	"strings"

	"github.com/duvholt/strictyield/internal/syntax"
)

// Scope says which lines a directive covers.
type Scope int

const (
	// ScopeFromHere covers everything after the directive, until a matching
	// tslint:enable (tslint:disable / tslint:enable).
	ScopeFromHere Scope = iota
	// ScopeLine covers the directive's own line (tslint:disable-line).
	ScopeLine
	// ScopeNextLine covers the line after the directive (tslint:disable-next-line).
	ScopeNextLine
)

// Entry is one parsed directive.
type Entry struct {
	Pos    syntax.Position
	Enable bool     // tslint:enable
	Scope  Scope    // only meaningful when !Enable
	Rules  []string // empty = all rules

	used map[string]bool
}

func (e *Entry) appliesTo(rule string) bool {
	if len(e.Rules) == 0 {
		return true
	}
	for _, r := range e.Rules {
		if r == rule {
			return true
		}
	}
	return false
}

// Map holds the directives of one file in source order.
type Map struct {
	entries []*Entry
}

// Build scans the comments of a file for directives.
func Build(f *syntax.File) *Map {
	m := &Map{}
	for _, c := range f.Comments {
		if e, ok := parseDirective(c.Text); ok {
			e.Pos = c.Start
			e.used = make(map[string]bool)
			m.entries = append(m.entries, e)
		}
	}
	return m
}

// Len returns the number of directives.
func (m *Map) Len() int {
	return len(m.entries)
}

// parseDirective parses a comment and reports whether it is a directive.
//
// Supported formats (line or block comments):
//   - // tslint:disable                      -> all rules, rest of file
//   - // tslint:disable:yield other-rule     -> listed rules, rest of file
//   - // tslint:enable[:rules]               -> end a disable
//   - // tslint:disable-line[:rules]         -> this line
//   - // tslint:disable-next-line[:rules]    -> next line
//   - // tslint:disable-next-line:yield - reason text
func parseDirective(text string) (*Entry, bool) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "//"):
		text = strings.TrimPrefix(text, "//")
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	default:
		return nil, false
	}
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "tslint:") {
		return nil, false
	}
	rest := strings.TrimPrefix(text, "tslint:")

	// Split the keyword from the rule list at the first ':' or whitespace.
	keyword, args := rest, ""
	if idx := strings.IndexAny(rest, ": \t"); idx >= 0 {
		keyword, args = rest[:idx], rest[idx+1:]
	}

	e := &Entry{}
	switch keyword {
	case "disable":
		e.Scope = ScopeFromHere
	case "enable":
		e.Enable = true
	case "disable-line":
		e.Scope = ScopeLine
	case "disable-next-line":
		e.Scope = ScopeNextLine
	case "enable-line", "enable-next-line":
		// Accepted by TSLint but rarely useful; treat as plain enable.
		e.Enable = true
	default:
		return nil, false
	}

	// A " - " starts a human-readable reason.
	if idx := strings.Index(args, " - "); idx >= 0 {
		args = args[:idx]
	}
	if strings.HasPrefix(strings.TrimSpace(args), "-") {
		args = ""
	}
	e.Rules = strings.Fields(args)
	return e, true
}

// ShouldIgnore reports whether a diagnostic of rule starting at pos is
// suppressed. Line-scoped directives that suppress something are marked used.
func (m *Map) ShouldIgnore(pos syntax.Position, rule string) bool {
	for _, e := range m.entries {
		if e.Enable || !e.appliesTo(rule) {
			continue
		}
		if (e.Scope == ScopeLine && e.Pos.Line == pos.Line) ||
			(e.Scope == ScopeNextLine && e.Pos.Line == pos.Line-1) {
			e.used[rule] = true
			return true
		}
	}

	disabled := false
	for _, e := range m.entries {
		if !before(e.Pos, pos) {
			break
		}
		if !e.appliesTo(rule) {
			continue
		}
		switch {
		case e.Enable:
			disabled = false
		case e.Scope == ScopeFromHere:
			disabled = true
			e.used[rule] = true
		}
	}
	return disabled
}

func before(a, b syntax.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

// UnusedIgnore is a line-scoped directive that suppressed nothing.
type UnusedIgnore struct {
	Pos   syntax.Position
	Rules []string // unused rule names (empty if the whole directive is unused)
}

// GetUnusedIgnores returns the disable-line and disable-next-line
// directives that did not suppress any diagnostic. enabled lists the rules
// that actually ran; a directive naming a rule that did not run is unused
// for that rule.
func (m *Map) GetUnusedIgnores(enabled map[string]bool) []UnusedIgnore {
	var unused []UnusedIgnore

	for _, e := range m.entries {
		if e.Enable || e.Scope == ScopeFromHere {
			continue
		}
		if len(e.Rules) == 0 {
			anyUsed := false
			for rule := range enabled {
				if e.used[rule] {
					anyUsed = true
					break
				}
			}
			if !anyUsed {
				unused = append(unused, UnusedIgnore{Pos: e.Pos})
			}
			continue
		}

		var rules []string
		for _, rule := range e.Rules {
			if !enabled[rule] || !e.used[rule] {
				rules = append(rules, rule)
			}
		}
		if len(rules) > 0 {
			unused = append(unused, UnusedIgnore{Pos: e.Pos, Rules: rules})
		}
	}

	return unused
}
