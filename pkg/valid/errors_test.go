package valid_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/ensuregen/pkg/valid"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "Name", "Name"},
		{"Address", "", "Address"},
		{"Address", "City", "Address.City"},
		{"Lines", "[2].Sku", "Lines[2].Sku"},
		{"Order.Lines[0]", "Sku", "Order.Lines[0].Sku"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, valid.Join(tt.prefix, tt.path), "Join(%q, %q)", tt.prefix, tt.path)
	}
}

func TestIndex(t *testing.T) {
	assert.Equal(t, "Tags[0]", valid.Index("Tags", 0))
	assert.Equal(t, "Lines[3][12]", valid.Index(valid.Index("Lines", 3), 12))
}

func TestErrors_WithPrefix(t *testing.T) {
	nested := valid.Errors{
		{Code: "NotBlank", Path: "City"},
		{Code: "MinLength", Path: "Lines[1]"},
	}
	got := nested.WithPrefix("Address")

	require.Len(t, got, 2)
	assert.Equal(t, "Address.City", got[0].Path)
	assert.Equal(t, "Address.Lines[1]", got[1].Path)
	assert.Equal(t, "City", nested[0].Path, "receiver must not be modified")
}

func TestErrors_Queries(t *testing.T) {
	errs := valid.Errors{
		{Code: "NotBlank", Path: "Name", Message: "Name must not be blank"},
		{Code: "MinLength", Path: "Name", Message: "too short", Severity: valid.SeverityWarning},
		{Code: "NotEmpty", Path: "Tags[0]", Message: "Tags must not be empty"},
	}

	assert.True(t, errs.Has("MinLength"))
	assert.False(t, errs.Has("Email"))
	assert.Len(t, errs.ByPath("Name"), 2)
	assert.Empty(t, errs.ByPath("Address"))
	assert.Len(t, errs.Blocking(), 2)
	assert.Equal(t, "Name: Name must not be blank; Name: too short; Tags[0]: Tags must not be empty", errs.Error())
}

func TestErrors_Err(t *testing.T) {
	var none valid.Errors
	assert.NoError(t, none.Err())

	errs := valid.Errors{{Code: "NotNull", Message: "x"}}
	err := errs.Err()
	require.Error(t, err)

	var target valid.Errors
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "NotNull", target[0].Code)
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "error", valid.SeverityError.String())
	assert.Equal(t, "warning", valid.SeverityWarning.String())
	assert.Equal(t, "info", valid.SeverityInfo.String())
	assert.Equal(t, "severity(9)", valid.Severity(9).String())
}
