package rules

import (
	"testing"

	"github.com/solatis/ensuregen/internal/types"
)

func TestClassifyLambda(t *testing.T) {
	tests := []struct {
		name   string
		lambda types.Lambda
		want   Condition
	}{
		{
			name:   "call shape",
			lambda: types.Lambda{Param: "v", Body: "isSku(v)"},
			want:   CallCondition{Func: "isSku"},
		},
		{
			name:   "qualified call shape",
			lambda: types.Lambda{Param: "v", Body: "strings.TrimSpace(v)"},
			want:   CallCondition{Func: "strings.TrimSpace"},
		},
		{
			name:   "call that also uses the parameter elsewhere",
			lambda: types.Lambda{Param: "v", Body: "v.Check(v)"},
			want:   ExprCondition{Param: "v", Expr: "v.Check(v)"},
		},
		{
			name:   "expression shape",
			lambda: types.Lambda{Param: "v", Body: `v != "admin"`},
			want:   ExprCondition{Param: "v", Expr: `v != "admin"`},
		},
		{
			name:   "block shape",
			lambda: types.Lambda{Param: "v", Body: "n := len(v)\nreturn n > 2", Block: true},
			want:   BlockCondition{Param: "v", ParamType: "string", Body: "n := len(v)\nreturn n > 2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := classifyLambda(&tt.lambda, "string")
			if diag != nil {
				t.Fatalf("classifyLambda() diagnostic = %v, want nil", diag)
			}
			if got != tt.want {
				t.Errorf("classifyLambda() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassifyLambda_Errors(t *testing.T) {
	tests := []struct {
		name   string
		lambda types.Lambda
		code   string
	}{
		{"missing parameter", types.Lambda{Body: "v > 0"}, types.CodeMissingLambdaParam},
		{"parameter not an identifier", types.Lambda{Param: "1v", Body: "v > 0"}, types.CodeMissingLambdaParam},
		{"empty body", types.Lambda{Param: "v", Body: "  "}, types.CodeMalformedLambda},
		{"malformed expression", types.Lambda{Param: "v", Body: "v >"}, types.CodeMalformedLambda},
		{"malformed block", types.Lambda{Param: "v", Body: "return v >", Block: true}, types.CodeMalformedLambda},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diag := classifyLambda(&tt.lambda, "int")
			if diag == nil {
				t.Fatal("classifyLambda() diagnostic = nil, want one")
			}
			if diag.Code != tt.code {
				t.Errorf("classifyLambda() code = %s, want %s", diag.Code, tt.code)
			}
		})
	}
}
