package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solatis/ensuregen/internal/types"
)

func args(bound map[string]types.ArgumentValue) func(string) (types.ArgumentValue, bool) {
	return func(param string) (types.ArgumentValue, bool) {
		a, ok := bound[param]
		return a, ok
	}
}

func TestRenderMessage(t *testing.T) {
	minArgs := args(map[string]types.ArgumentValue{
		"min": {Expr: "2", Type: "int", Literal: true},
		"max": {Expr: "cfg.MaxLen", Type: "int"},
		"tag": {Expr: `"vip"`, Type: "string", Literal: true},
	})
	placeholders := map[string]string{"MinLength": "min", "MaxLength": "max", "Tag": "tag", "Missing": "absent"}

	tests := []struct {
		name      string
		template  string
		valueType string
		want      string
	}{
		{"plain text", "must be set", "string", `"must be set"`},
		{"empty template", "", "string", `""`},
		{"target name baked in", "{TargetName} is required", "string", `"Name is required"`},
		{"literal argument baked in", "{TargetName} needs {MinLength} characters", "string", `"Name needs 2 characters"`},
		{"string literal unquoted", "only {Tag} users", "string", `"only vip users"`},
		{"runtime argument", "at most {MaxLength}", "string", `"at most " + valid.Stringify(cfg.MaxLen)`},
		{"string value passes through", "{TargetValue} is taken", "string", `x.Name + " is taken"`},
		{"other values are stringified", "got {TargetValue}", "int", `"got " + valid.Stringify(x.Name)`},
		{"unknown placeholder kept", "{Unknown} stays", "string", `"{Unknown} stays"`},
		{"unbound parameter kept", "{Missing} stays", "string", `"{Missing} stays"`},
		{"unclosed brace", "a {b", "string", `"a {b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAssembler()
			got := a.renderMessage(messageInput{
				template:     tt.template,
				targetName:   "Name",
				value:        "x.Name",
				valueType:    tt.valueType,
				placeholders: placeholders,
				arg:          minArgs,
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderMessage_Expression(t *testing.T) {
	a := newAssembler()
	got := a.renderMessage(messageInput{
		template:     `msgs.For("name")`,
		expr:         true,
		targetName:   "Name",
		value:        "x.Age",
		valueType:    "int",
		placeholders: map[string]string{"Bound": "bound"},
		arg:          args(map[string]types.ArgumentValue{"bound": {Expr: "18", Type: "int", Literal: true}}),
	})
	want := `strings.ReplaceAll(strings.ReplaceAll(strings.ReplaceAll(msgs.For("name"), "{TargetName}", "Name"), ` +
		`"{TargetValue}", valid.Stringify(x.Age)), "{Bound}", "18")`
	assert.Equal(t, want, got)
	assert.Contains(t, a.imports, "strings")
}
