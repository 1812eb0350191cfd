package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/ensuregen/internal/types"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []types.PathSegment
	}{
		{"single field", "Name", []types.PathSegment{{Key: "Name"}}},
		{"nested fields", "Address.City", []types.PathSegment{{Key: "Address"}, {Key: "City"}}},
		{"fixed index", "Lines[0].Sku", []types.PathSegment{{Key: "Lines"}, {Index: 0, IsIndex: true}, {Key: "Sku"}}},
		{"wildcard", "Lines[*].Sku", []types.PathSegment{{Key: "Lines"}, {Wildcard: true}, {Key: "Sku"}}},
		{"nested indices", "Grid[1][2]", []types.PathSegment{{Key: "Grid"}, {Index: 1, IsIndex: true}, {Index: 2, IsIndex: true}}},
		{"surrounding space", "  Name ", []types.PathSegment{{Key: "Name"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath() error = %v, want nil", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePath() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePath_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"empty", "", types.ErrEmptyPath},
		{"blank", "   ", types.ErrEmptyPath},
		{"leading index", "[0].Name", types.ErrInvalidPath},
		{"empty segment", "A..B", types.ErrInvalidPath},
		{"trailing dot", "A.", types.ErrInvalidPath},
		{"negative index", "A[-1]", types.ErrInvalidPath},
		{"unclosed index", "A[1", types.ErrInvalidPath},
		{"bad identifier", "A.1b", types.ErrInvalidPath},
		{"too deep", strings.Repeat("A.", types.MaxPathDepth) + "A", types.ErrPathTooDeep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePath(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParsePath(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestCheckTarget(t *testing.T) {
	deep := make([]types.PathSegment, types.MaxPathDepth+1)
	for i := range deep {
		deep[i] = types.PathSegment{Key: "A"}
	}
	nested := []types.PathSegment{{Key: "A"}}
	for i := 0; i <= types.MaxNestedCollections; i++ {
		nested = append(nested, types.PathSegment{Wildcard: true})
	}

	tests := []struct {
		name string
		path []types.PathSegment
		ok   bool
	}{
		{"plain", []types.PathSegment{{Key: "A"}}, true},
		{"empty", nil, false},
		{"too deep", deep, false},
		{"max collections", nested[:types.MaxNestedCollections+1], true},
		{"too many collections", nested, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := checkTarget(types.ValidationTarget{Path: tt.path}, types.Location{})
			if tt.ok && diag != nil {
				t.Errorf("checkTarget() = %v, want nil", diag)
			}
			if !tt.ok && (diag == nil || diag.Code != types.CodePathLimit) {
				t.Errorf("checkTarget() = %v, want ENS009", diag)
			}
		})
	}
}

// Property-based test: FormatPath is the inverse of ParsePath
func TestFormatPath_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("parse(format(path)) == path", prop.ForAll(
		func(kinds []int) bool {
			path := []types.PathSegment{{Key: "Root"}}
			for i, k := range kinds {
				switch k % 3 {
				case 0:
					path = append(path, types.PathSegment{Key: "F" + strings.Repeat("x", i%4)})
				case 1:
					path = append(path, types.PathSegment{Index: i, IsIndex: true})
				default:
					path = append(path, types.PathSegment{Wildcard: true})
				}
			}
			got, err := ParsePath(FormatPath(path))
			return err == nil && reflect.DeepEqual(got, path)
		},
		gen.SliceOfN(types.MaxPathDepth-1, gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}
