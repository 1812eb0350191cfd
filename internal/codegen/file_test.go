package codegen

import (
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/ensuregen/internal/rules"
	builtin "github.com/solatis/ensuregen/pkg/rules"
)

func TestRenderFile(t *testing.T) {
	unit := compileManifest(t, continueManifest)
	unit.Imports = []string{"strings"}

	out, err := RenderFile(unit, FileOptions{Filename: "user_ensure.go"})
	require.NoError(t, err)

	src := string(out)
	assert.True(t, strings.HasPrefix(src, Header+"\n"), "missing generated-code header:\n%s", src)
	assert.Contains(t, src, "// source: user.yaml\n")

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "user_ensure.go", out, parser.ParseComments)
	require.NoError(t, err, "generated source does not parse:\n%s", src)
	assert.Equal(t, "models", f.Name.Name)

	var paths []string
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		require.NoError(t, err)
		paths = append(paths, p)
	}
	assert.Equal(t, []string{builtin.ImportPath, ValidPath, "strings"}, paths)
	assert.Len(t, f.Decls, 2, "import block and one method")
}

func TestRenderFile_AliasedImport(t *testing.T) {
	src := `
package: models
rules:
  - name: IsSku
    func: Sku
    import: example.com/acme/catalog/v2
    package: skus
    params:
      - {name: value, type: string}
validators:
  - name: LineValidator
    model: Line
    chains:
      - ensure: Sku
        type: string
        rules: [IsSku]
`
	out, err := RenderFile(compileManifest(t, src), FileOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `skus "example.com/acme/catalog/v2"`)
	assert.Contains(t, string(out), "!skus.Sku(x.Sku)")
}

func TestRenderFile_NoPackage(t *testing.T) {
	_, err := RenderFile(&rules.CompiledUnit{File: "user.yaml"}, FileOptions{})
	assert.Error(t, err)
}

func TestRenderFile_NoValidators(t *testing.T) {
	out, err := RenderFile(&rules.CompiledUnit{Package: "models"}, FileOptions{})
	require.NoError(t, err)
	assert.Equal(t, Header+"\n\npackage models\n", string(out))
}
