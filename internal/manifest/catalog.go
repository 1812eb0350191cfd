package manifest

import (
	"fmt"
	"os"

	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
	builtin "github.com/solatis/ensuregen/pkg/rules"
)

// BuiltinFile is the location reported for built-in rule declarations.
const BuiltinFile = "builtin:catalog.yaml"

// ParseCatalog decodes a catalog file: an optional file-wide import and
// package qualifier plus a list of rule declarations.
func ParseCatalog(data []byte, file string, format Format) ([]types.RuleDefinition, []types.Diagnostic, error) {
	root, err := decode(data, format)
	if err != nil {
		return nil, nil, fmt.Errorf("decode catalog %s: %w", file, err)
	}
	if root.kind != kindMap {
		return nil, nil, fmt.Errorf("decode catalog %s: top level must be a mapping, got %s", file, root.kind)
	}
	b := &builder{file: file}
	b.checkKeys(root, "import", "package", "rules")
	importPath, pkg := root.get("import").str(), root.get("package").str()

	var defs []types.RuleDefinition
	for _, r := range b.seq(root.get("rules"), "rules") {
		if def, ok := b.ruleDef(r, importPath, pkg); ok {
			defs = append(defs, def)
		}
	}
	return defs, b.diags, nil
}

// BuiltinDefinitions returns the declarations of the built-in rule package.
func BuiltinDefinitions() ([]types.RuleDefinition, error) {
	defs, diags, err := ParseCatalog(builtin.CatalogYAML, BuiltinFile, FormatYAML)
	if err != nil {
		return nil, err
	}
	if len(diags) > 0 {
		return nil, fmt.Errorf("built-in catalog: %s", diags[0])
	}
	return defs, nil
}

// LoadCatalog builds the external catalog: the built-in rules followed by
// the declarations of every file in paths, in order.
func LoadCatalog(paths ...string) (*rules.Catalog, []types.Diagnostic, error) {
	defs, err := BuiltinDefinitions()
	if err != nil {
		return nil, nil, err
	}
	var diags []types.Diagnostic
	for _, path := range paths {
		format, err := FormatOf(path)
		if err != nil {
			return nil, nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read catalog: %w", err)
		}
		fileDefs, fileDiags, err := ParseCatalog(data, path, format)
		if err != nil {
			return nil, nil, err
		}
		defs = append(defs, fileDefs...)
		diags = append(diags, fileDiags...)
	}
	catalog, admission := rules.NewCatalog(defs)
	return catalog, append(diags, admission...), nil
}
