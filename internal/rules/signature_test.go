package rules

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/ensuregen/internal/types"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		params []types.Param
		args   []string
		want   MatchKind
	}{
		{"exact", []types.Param{param("v", "string")}, []string{"string"}, MatchFull},
		{"pointer target", []types.Param{param("v", "string")}, []string{"*string"}, MatchFull},
		{"nullable marker", []types.Param{param("v", "int?")}, []string{"int"}, MatchFull},
		{"whitespace", []types.Param{param("v", " []string ")}, []string{"[]string"}, MatchFull},
		{"lambda", []types.Param{generic("v", "T"), param("f", "func(T) bool")}, []string{"T", "func"}, MatchFull},
		{"generic mismatch", []types.Param{generic("v", "T")}, []string{"float64"}, MatchPartial},
		{"generic then exact", []types.Param{generic("v", "T"), param("n", "int")}, []string{"string", "int"}, MatchPartial},
		{"concrete mismatch", []types.Param{param("v", "string")}, []string{"int"}, MatchNone},
		{"mismatch after generic", []types.Param{generic("v", "T"), param("n", "int")}, []string{"string", "string"}, MatchNone},
		{"arity", []types.Param{param("v", "string")}, []string{"string", "int"}, MatchNone},
		{"empty", nil, nil, MatchFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.params, tt.args); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBestMatch_LastPartialWins(t *testing.T) {
	candidates := []types.RuleDefinition{
		{Func: "First", Params: []types.Param{generic("v", "T")}},
		{Func: "Second", Params: []types.Param{generic("v", "U")}},
		{Func: "Concrete", Params: []types.Param{param("v", "int")}},
	}
	got, kind := bestMatch(candidates, []string{"string"})
	if kind != MatchPartial {
		t.Fatalf("bestMatch() kind = %v, want partial", kind)
	}
	if got.Func != "Second" {
		t.Errorf("bestMatch() = %s, want Second", got.Func)
	}
}

func TestBestMatch_None(t *testing.T) {
	candidates := []types.RuleDefinition{{Func: "A", Params: []types.Param{param("v", "int")}}}
	if _, kind := bestMatch(candidates, []string{"string"}); kind != MatchNone {
		t.Errorf("bestMatch() kind = %v, want none", kind)
	}
}

// Property-based test: a Full overload wins wherever it is declared
func TestBestMatch_PropertyFullBeatsPartial(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("full match is chosen regardless of declaration order", prop.ForAll(
		func(partials, fullAt int) bool {
			var candidates []types.RuleDefinition
			for i := 0; i < partials; i++ {
				candidates = append(candidates, types.RuleDefinition{
					Func:   "Partial",
					Params: []types.Param{generic("v", "T"), param("n", "int")},
				})
			}
			full := types.RuleDefinition{Func: "Full", Params: []types.Param{param("v", "string"), param("n", "int")}}
			at := fullAt % (partials + 1)
			candidates = append(candidates[:at], append([]types.RuleDefinition{full}, candidates[at:]...)...)

			got, kind := bestMatch(candidates, []string{"string", "int"})
			return kind == MatchFull && got.Func == "Full"
		},
		gen.IntRange(0, 8),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
