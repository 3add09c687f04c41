package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/duvholt/strictyield/internal/lint"
	"github.com/duvholt/strictyield/internal/syntax"
)

func sampleDiagnostics() []lint.Diagnostic {
	return []lint.Diagnostic{
		{
			Message:     "yield result should be typed if result is used: (yield getData()) as 'ResultType'",
			Rule:        "yield",
			Severity:    lint.SeverityError,
			Path:        "src/a.ts",
			Start:       syntax.Position{Line: 3, Column: 4},
			End:         syntax.Position{Line: 3, Column: 19},
			StartOffset: 40,
			EndOffset:   55,
		},
		{
			Message:  "yield return type 'ResultData' is not equal to casting type 'number'",
			Rule:     "yield",
			Severity: lint.SeverityWarning,
			Path:     "src/b.ts",
			Start:    syntax.Position{Line: 0, Column: 0},
			End:      syntax.Position{Line: 0, Column: 10},
		},
	}
}

func TestWriteProse(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDiagnostics(), Options{Format: "prose"}); err != nil {
		t.Fatal(err)
	}
	want := "ERROR: src/a.ts:4:5 - yield result should be typed if result is used: (yield getData()) as 'ResultType'\n" +
		"WARNING: src/b.ts:1:1 - yield return type 'ResultData' is not equal to casting type 'number'\n"
	if buf.String() != want {
		t.Errorf("prose output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDiagnostics()[:1], Options{Format: "verbose"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "ERROR: (yield) src/a.ts[4, 5]: ") {
		t.Errorf("unexpected verbose output: %q", buf.String())
	}
}

func TestWriteStylish(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDiagnostics(), Options{Format: "stylish"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"src/a.ts\n", "ERROR:4:5  yield  ", "\nsrc/b.ts\n", "WARNING:1:1  yield  "} {
		if !strings.Contains(out, want) {
			t.Errorf("stylish output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDiagnostics(), Options{Format: "json"}); err != nil {
		t.Fatal(err)
	}

	var got []jsonFailure
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("got %d failures, want 2", len(got))
	}
	first := got[0]
	if first.RuleName != "yield" || first.RuleSeverity != "ERROR" || first.Name != "src/a.ts" {
		t.Errorf("unexpected first failure: %+v", first)
	}
	if first.StartPosition != (jsonPosition{Character: 4, Line: 3, Position: 40}) {
		t.Errorf("StartPosition = %+v", first.StartPosition)
	}
	if got[1].RuleSeverity != "WARNING" {
		t.Errorf("RuleSeverity = %s, want WARNING", got[1].RuleSeverity)
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, Options{Format: "json"}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON output = %q, want []", buf.String())
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, nil, Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestShouldColor(t *testing.T) {
	if ok, err := ShouldColor("on", nil); err != nil || !ok {
		t.Errorf("ShouldColor(on) = %v, %v", ok, err)
	}
	if ok, err := ShouldColor("off", nil); err != nil || ok {
		t.Errorf("ShouldColor(off) = %v, %v", ok, err)
	}
	if ok, err := ShouldColor("auto", nil); err != nil || ok {
		t.Errorf("ShouldColor(auto, nil) = %v, %v", ok, err)
	}
	if _, err := ShouldColor("sometimes", nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}
