package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solatis/ensuregen/internal/manifest"
	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// compileManifest runs a YAML manifest through the front-end and the
// compiler against the built-in catalog. Any diagnostic fails the test.
func compileManifest(t *testing.T, src string) *rules.CompiledUnit {
	t.Helper()
	m, diags, err := manifest.Parse([]byte(src), "user.yaml", manifest.FormatYAML)
	require.NoError(t, err)
	require.Empty(t, diags, "manifest diagnostics")

	catalog, diags, err := manifest.LoadCatalog()
	require.NoError(t, err)
	require.Empty(t, diags, "catalog diagnostics")

	unit, diags := rules.Compile(&m.Unit, catalog, rules.DefaultOptions())
	require.Empty(t, diags, "compile diagnostics")
	return unit
}

// renderNamed renders the validator called name from src.
func renderNamed(t *testing.T, src, name string) Fragment {
	t.Helper()
	for _, v := range compileManifest(t, src).Validators {
		if v.Name == name {
			return RenderValidator(v)
		}
	}
	t.Fatalf("validator %s not compiled", name)
	return Fragment{}
}

func mustPath(t *testing.T, s string) []types.PathSegment {
	t.Helper()
	p, err := rules.ParsePath(s)
	require.NoError(t, err)
	return p
}
