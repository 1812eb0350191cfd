package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/ensuregen/internal/types"
)

const userManifest = `
package: models
imports: [strings]
rules:
  - name: IsSku
    params:
      - {name: value, type: string}
    message: "{TargetName} must be a SKU"
validators:
  - name: UserValidator
    model: User
    onFailure: continue
    chains:
      - ensure: Name
        type: string
        onFailure: halt
        if: "u => u != \"\""
        rules:
          - IsNotNullOrWhiteSpace
          - HasMinLength: [2]
          - call: Must
            lambda: {param: v, body: "v != \"admin\""}
            message: "{TargetName} is reserved"
            code: Reserved
            severity: warning
            metadata: {field: name, weight: 3}
      - ensureEach: Tags
        type: "[]string"
        name: Tag
        rules: [IsNotEmpty]
      - ensure: Address
        type: "*Address"
        validateWith: AddressValidator
      - ensure: Shape
        type: Shape
        switch:
          - {type: "*Circle", validateWith: CircleValidator}
          - {type: "*Square", allow: true}
        otherwise: {fail: "unsupported shape"}
`

func TestParse_YAML(t *testing.T) {
	m, diags, err := Parse([]byte(userManifest), "user.yaml", FormatYAML)
	require.NoError(t, err)
	require.Empty(t, diags)

	u := m.Unit
	assert.Equal(t, "models", u.Package)
	assert.Equal(t, []string{"strings"}, u.Imports)
	require.Len(t, u.Rules, 1)
	assert.Equal(t, "IsSku", u.Rules[0].Func, "func defaults to the rule name")
	assert.Equal(t, 5, u.Rules[0].Loc.Line)

	require.Len(t, u.Validators, 1)
	v := u.Validators[0]
	assert.Equal(t, types.OnFailureContinue, v.OnFailure)
	require.Len(t, v.Chains, 4)

	name := v.Chains[0]
	assert.Equal(t, types.OnFailureHalt, name.OnFailure)
	assert.Equal(t, "string", name.Target.Type)
	require.NotNil(t, name.If)
	assert.Equal(t, "u", name.If.Param)
	assert.Equal(t, `u != ""`, name.If.Body)

	methods := make([]string, len(name.Calls))
	for i, c := range name.Calls {
		methods[i] = c.Method
	}
	assert.Equal(t, []string{"IsNotNullOrWhiteSpace", "HasMinLength", "Must",
		"WithMessage", "WithErrorCode", "WithSeverity", "WithMetadata", "WithMetadata"}, methods)
	assert.Equal(t, types.ArgumentValue{Expr: "2", Type: "int", Literal: true}, name.Calls[1].Args[0])
	assert.Equal(t, `"{TargetName} is reserved"`, name.Calls[3].Args[0].Expr)
	assert.Equal(t, `"field"`, name.Calls[6].Args[0].Expr, "metadata keys are sorted")
	assert.Equal(t, types.ArgumentValue{Expr: `"name"`, Type: "string", Literal: true}, name.Calls[6].Args[1])

	tags := v.Chains[1]
	require.Len(t, tags.Calls, 1)
	assert.Equal(t, "ForEach", tags.Calls[0].Method)
	require.NotNil(t, tags.Calls[0].Each)
	assert.Equal(t, "Tag", tags.Calls[0].Each.Target.DisplayName)
	assert.Equal(t, "IsNotEmpty", tags.Calls[0].Each.Calls[0].Method)

	addr := v.Chains[2]
	require.Len(t, addr.Calls, 1)
	assert.Equal(t, "AddressValidator", addr.Calls[0].Delegate.Validator)

	shape := v.Chains[3]
	require.Len(t, shape.Calls, 1)
	sw := shape.Calls[0]
	assert.Equal(t, "Switch", sw.Method)
	require.Len(t, sw.Branches, 2)
	assert.Equal(t, "*Circle", sw.Branches[0].Type)
	assert.Equal(t, "CircleValidator", sw.Branches[0].Behavior.Delegate.Validator)
	assert.True(t, sw.Branches[1].Behavior.Allow)
	require.NotNil(t, sw.Otherwise)
	assert.Equal(t, "unsupported shape", sw.Otherwise.Fail)
}

func TestParse_JSON(t *testing.T) {
	doc := `{
		"package": "models",
		"validators": [{
			"name": "OrderValidator",
			"model": "Order",
			"chains": [
				{"ensure": "Total", "type": "float64", "rules": [{"IsGreaterThan": 0.5}, {"IsBetween": [1, 10]}]},
				{"ensure": "Status", "type": "string", "rules": [{"IsOneOf": [["open", "closed"]]}]},
				{"ensure": "Count", "type": "int", "rules": [{"call": "IsLessThan", "args": [{"expr": "x.Max", "type": "int"}]}]}
			]
		}]
	}`
	m, diags, err := Parse([]byte(doc), "order.json", FormatJSON)
	require.NoError(t, err)
	require.Empty(t, diags)

	chains := m.Unit.Validators[0].Chains
	require.Len(t, chains, 3)
	assert.Equal(t, types.ArgumentValue{Expr: "0.5", Type: "float64", Literal: true}, chains[0].Calls[0].Args[0])
	assert.Len(t, chains[0].Calls[1].Args, 2)
	assert.Equal(t, types.ArgumentValue{Expr: `[]any{"open", "closed"}`, Type: "[]any"}, chains[1].Calls[0].Args[0])
	assert.Equal(t, types.ArgumentValue{Expr: "x.Max", Type: "int"}, chains[2].Calls[0].Args[0])
}

func TestParse_Diagnostics(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"missing package", "validators: []", types.CodeManifest},
		{"unknown key", "package: p\nbogus: 1", types.CodeManifest},
		{"bad on-failure", "package: p\nvalidators:\n  - name: V\n    model: M\n    onFailure: sometimes", types.CodeManifest},
		{"both ensure kinds", "package: p\nvalidators:\n  - name: V\n    model: M\n    chains:\n      - {ensure: A, ensureEach: B}", types.CodeManifest},
		{"bad path", "package: p\nvalidators:\n  - name: V\n    model: M\n    chains:\n      - {ensure: \"A..B\"}", types.CodeManifest},
		{"otherwise without switch", "package: p\nvalidators:\n  - name: V\n    model: M\n    chains:\n      - {ensure: A, otherwise: {allow: true}}", types.CodeManifest},
		{"two-key short form", "package: p\nvalidators:\n  - name: V\n    model: M\n    chains:\n      - {ensure: A, rules: [{X: 1, Y: 2}]}", types.CodeManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags, err := Parse([]byte(tt.doc), "m.yaml", FormatYAML)
			require.NoError(t, err)
			require.NotEmpty(t, diags)
			assert.Equal(t, tt.code, diags[0].Code)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse([]byte("- a\n- b"), "m.yaml", FormatYAML)
	assert.Error(t, err, "top level list")

	_, _, err = Parse([]byte("{"), "m.json", FormatJSON)
	assert.Error(t, err)

	_, _, err = Parse(make([]byte, types.MaxManifestSize+1), "m.yaml", FormatYAML)
	assert.ErrorIs(t, err, types.ErrManifestTooLarge)
}

func TestLambdaShorthand(t *testing.T) {
	b := &builder{file: "m.yaml"}

	l := b.lambda(&node{kind: kindScalar, value: "v => v > 0", tag: tagStr})
	assert.Equal(t, "v", l.Param)
	assert.Equal(t, "v > 0", l.Body)
	assert.False(t, l.Block)

	l = b.lambda(&node{kind: kindScalar, value: "v => { return v > 0 }", tag: tagStr})
	assert.True(t, l.Block)
	assert.Equal(t, "return v > 0", l.Body)

	l = b.lambda(&node{kind: kindScalar, value: "v > 0", tag: tagStr})
	assert.Empty(t, l.Param, "missing parameter is left for the resolver to report")
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("a/b.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatOf("b.JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = FormatOf("b.toml")
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.yaml")
	require.NoError(t, os.WriteFile(path, []byte("package: models\nsource: src\noutput: out/user_ensure.go\n"), 0o644))

	m, diags, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, filepath.Join(dir, "src"), m.Source)
	assert.Equal(t, filepath.Join(dir, "out", "user_ensure.go"), m.Output)
}
