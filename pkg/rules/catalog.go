package rules

import _ "embed"

// ImportPath is the import path generated code uses for this package.
const ImportPath = "github.com/solatis/ensuregen/pkg/rules"

// CatalogYAML is the built-in rule catalog describing this package.
//
//go:embed catalog.yaml
var CatalogYAML []byte
