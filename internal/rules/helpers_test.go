package rules

import (
	"testing"

	"github.com/solatis/ensuregen/internal/types"
)

const builtinImport = "github.com/solatis/ensuregen/pkg/rules"

func param(name, typ string) types.Param {
	return types.Param{Name: name, Type: typ}
}

func generic(name, typ string) types.Param {
	return types.Param{Name: name, Type: typ, Generic: true}
}

// testDefs is a small catalog shaped like the built-in one.
func testDefs() []types.RuleDefinition {
	return []types.RuleDefinition{
		{Name: "IsNotEmpty", Func: "IsNotEmptyString", Import: builtinImport, NilFails: true,
			Params: []types.Param{param("value", "string")}, Message: "{TargetName} must not be empty", ErrorCode: "NotEmpty"},
		{Name: "IsNotEmpty", Func: "IsNotEmpty", Import: builtinImport,
			Params: []types.Param{generic("value", "T")}, Message: "{TargetName} must not be empty", ErrorCode: "NotEmpty"},
		{Name: "IsNotNullOrWhiteSpace", Func: "IsNotNullOrWhiteSpace", Import: builtinImport, NilFails: true,
			Params: []types.Param{param("value", "string")}, Message: "{TargetName} must not be blank", ErrorCode: "NotBlank"},
		{Name: "HasMinLength", Func: "HasMinLength", Import: builtinImport,
			Params:       []types.Param{param("value", "string"), param("min", "int")},
			Message:      "{TargetName} must be at least {MinLength} characters",
			ErrorCode:    "MinLength",
			Placeholders: map[string]string{"MinLength": "min"}},
		{Name: "IsGreaterThan", Func: "IsGreaterThanInt", Import: builtinImport,
			Params: []types.Param{param("value", "int"), param("bound", "int")}},
		{Name: "IsGreaterThan", Func: "IsGreaterThan", Import: builtinImport,
			Params: []types.Param{generic("value", "T"), generic("bound", "T")}},
		{Name: "Must", Func: "Must", Import: builtinImport, Predicate: true,
			Params: []types.Param{generic("value", "T"), param("check", "func(T) bool")}, ErrorCode: "Must"},
		{Name: "IsKnownUser", Func: "IsKnownUser", Import: "example.com/acme/lookup", Async: true,
			Params: []types.Param{param("value", "string")}},
	}
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, diags := NewCatalog(testDefs())
	if len(diags) > 0 {
		t.Fatalf("NewCatalog() diagnostics = %v, want none", diags)
	}
	return c
}

func mustPath(t *testing.T, s string) []types.PathSegment {
	t.Helper()
	p, err := ParsePath(s)
	if err != nil {
		t.Fatalf("ParsePath(%q) error = %v, want nil", s, err)
	}
	return p
}

func call(method string, args ...types.ArgumentValue) types.Invocation {
	return types.Invocation{Method: method, Args: args}
}

func lit(expr, typ string) types.ArgumentValue {
	return types.ArgumentValue{Expr: expr, Type: typ, Literal: true}
}

func chainDecl(t *testing.T, path, typ string, calls ...types.Invocation) types.ChainDecl {
	t.Helper()
	return types.ChainDecl{
		Target: types.ValidationTarget{Path: mustPath(t, path), Type: typ},
		Calls:  calls,
	}
}

func codes(diags []types.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func hasCode(diags []types.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}
