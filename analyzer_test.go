package strictyield_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/duvholt/strictyield"
	"github.com/duvholt/strictyield/internal/linttest"
	"github.com/duvholt/strictyield/internal/parser"
	"github.com/duvholt/strictyield/internal/typecheck"
	"github.com/duvholt/strictyield/internal/yieldcheck"
)

const baseCode = `
function getData() {
    return new Promise<ResultData>(() => {});
}

interface ResultData { result: any[] };
`

func TestVoidResult(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "void")
}

func TestPropertyAccess(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "propertyaccess")
}

func TestVariableStatement(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "variable")
}

func TestBinaryExpression(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "binary")
}

func TestCheckReturnType(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "returntype")
}

func TestWithoutCheckReturnType(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "noreturntype")
}

func TestReturnTypeInference(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "inference")
}

// Structurally identical interfaces are distinct types.
func TestNominalIdentity(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "nominal")
}

func TestMemberCalls(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "members")
}

func TestGenericCalls(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "generics")
}

// Bare statement yields stay quiet with return type checking switched on.
func TestVoidResultWithReturnTypes(t *testing.T) {
	testdata := linttest.TestData()
	linttest.RunWithArgs(t, testdata, strictyield.Rule, []string{strictyield.CheckReturnType}, "void")
}

func TestGeneratorScope(t *testing.T) {
	testdata := linttest.TestData()
	linttest.Run(t, testdata, strictyield.Rule, "scope")
}

// The shape check alone passes the fixtures written for return type checks
// once their return type diagnostics are disregarded.
func TestShapeOnlyIgnoresReturnTypes(t *testing.T) {
	src := baseCode + `
function* Test() {
    result.data = (yield getData()) as number;
    result.data = (yield number) as number;
    var u = ((yield getData()) as string).length;
}`
	diags, err := strictyield.AnalyzeSource(context.Background(), "test.ts", []byte(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestFindingCategories(t *testing.T) {
	src := baseCode + `
function* Test() {
    var a = yield getData();
    var b = (yield 1) as number;
    var c = (yield getData()) as number;
}`
	diags, err := strictyield.AnalyzeSource(context.Background(), "test.ts", []byte(src), []string{strictyield.CheckReturnType})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		yieldcheck.UnascribedConsumedResult.String(),
		yieldcheck.SuspensionNotDeferredTyped.String(),
		yieldcheck.AscriptionTypeMismatch.String(),
	}
	if len(diags) != len(want) {
		t.Fatalf("got %d diagnostics, want %d: %v", len(diags), len(want), diags)
	}
	for i, d := range diags {
		if d.Category != want[i] {
			t.Errorf("diagnostic %d category = %s, want %s", i, d.Category, want[i])
		}
		if d.Rule != strictyield.RuleName {
			t.Errorf("diagnostic %d rule = %s, want %s", i, d.Rule, strictyield.RuleName)
		}
	}

	// Shape failures are reported at the yield, type failures at the ascription.
	if !strings.HasPrefix(src[diags[0].StartOffset:], "yield getData()") {
		t.Errorf("first diagnostic not located at the yield")
	}
	if !strings.HasPrefix(src[diags[1].StartOffset:], "(yield 1) as number") {
		t.Errorf("second diagnostic not located at the ascription")
	}
}

func TestDocumentOrder(t *testing.T) {
	src := baseCode + `
function* First() {
    var a = yield getData();
    (yield getData()).result;
}

function* Second() {
    var holder = { data: null };
    holder.data = yield getData();
    var c = ((yield getData()) as any).result;
}`
	diags, err := strictyield.AnalyzeSource(context.Background(), "test.ts", []byte(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 4 {
		t.Fatalf("got %d diagnostics, want 4", len(diags))
	}
	for i := 1; i < len(diags); i++ {
		if diags[i].StartOffset <= diags[i-1].StartOffset {
			t.Errorf("diagnostic %d at offset %d is not after %d", i, diags[i].StartOffset, diags[i-1].StartOffset)
		}
	}
}

func TestIdempotent(t *testing.T) {
	src := baseCode + `
function* Test() {
    var a = yield getData();
    result.data = (yield getData()) as number;
    var b = (yield 3) as number;
}`
	file, err := parser.ParseFile(context.Background(), "test.ts", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	types := typecheck.New(file)
	args := []string{strictyield.CheckReturnType}

	first, err := strictyield.Analyze(file, types, args)
	if err != nil {
		t.Fatal(err)
	}
	second, err := strictyield.Analyze(file, types, args)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second run differs:\n%v\n%v", first, second)
	}
	if len(first) != 3 {
		t.Errorf("got %d diagnostics, want 3", len(first))
	}
}

func TestAnalyzeRequiresTypes(t *testing.T) {
	file, err := parser.ParseFile(context.Background(), "test.ts", []byte(baseCode))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := strictyield.Analyze(file, nil, nil); err == nil {
		t.Error("expected error without a type service")
	}
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"nil", nil, false},
		{"empty", []string{}, false},
		{"flag", []string{"check-return-type"}, true},
		{"flag among others", []string{"unknown", "check-return-type", "other"}, true},
		{"unknown only", []string{"check-return-types"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strictyield.ParseOptions(tt.args).CheckReturnType; got != tt.want {
				t.Errorf("ParseOptions(%v).CheckReturnType = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
