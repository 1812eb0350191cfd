package manifest

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	gotypes "go/types"
	"os"
	"path/filepath"
	"strings"

	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Go source scanning.
 *
 * Chains may omit their target type; it is then read from the struct
 * declarations of the package the code is generated into. Only syntax is
 * used (go/parser, no type checking), so field types are the expressions as
 * written: "string", "*Address", "[]Line". Generated files are skipped so a
 * stale output never feeds back into its own generation.
 */

// Package is the declarations of one scanned Go package.
type Package struct {
	Name    string
	Types   map[string]bool              // every declared type name
	Structs map[string]map[string]string // struct -> field -> type expression
}

// ScanSource parses the non-test, non-generated Go files in dir.
func ScanSource(dir string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	pkg := &Package{Types: make(map[string]bool), Structs: make(map[string]map[string]string)}
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		if ast.IsGenerated(f) {
			continue
		}
		if pkg.Name == "" {
			pkg.Name = f.Name.Name
		}
		pkg.collect(f)
	}
	return pkg, nil
}

func (p *Package) collect(f *ast.File) {
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			p.Types[ts.Name.Name] = true
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			fields := make(map[string]string)
			for _, field := range st.Fields.List {
				typ := gotypes.ExprString(field.Type)
				if len(field.Names) == 0 {
					// embedded: the field is named after its type
					fields[embeddedName(typ)] = typ
					continue
				}
				for _, n := range field.Names {
					fields[n.Name] = typ
				}
			}
			p.Structs[ts.Name.Name] = fields
		}
	}
}

func embeddedName(typ string) string {
	typ = strings.TrimPrefix(typ, "*")
	if i := strings.IndexByte(typ, '['); i >= 0 {
		typ = typ[:i]
	}
	return typ[strings.LastIndex(typ, ".")+1:]
}

// FieldType returns the type expression reached by path from model.
func (p *Package) FieldType(model string, path []types.PathSegment) (string, bool) {
	typ := model
	for _, seg := range path {
		switch {
		case seg.Wildcard, seg.IsIndex:
			elem, ok := types.ElementType(typ)
			if !ok {
				return "", false
			}
			typ = elem
		default:
			fields, ok := p.Structs[strings.TrimPrefix(strings.TrimSpace(typ), "*")]
			if !ok {
				return "", false
			}
			if typ, ok = fields[seg.Key]; !ok {
				return "", false
			}
		}
	}
	return typ, true
}

// Annotate fills missing chain target types from pkg and checks that every
// validator and model type is declared. Undeclared types are ENS020.
func Annotate(unit *types.Unit, pkg *Package) []types.Diagnostic {
	var diags []types.Diagnostic
	for i := range unit.Validators {
		v := &unit.Validators[i]
		if v.Name != "" && !pkg.Types[v.Name] {
			d := types.Errorf(types.CodeStructural, v.Loc,
				"validator type %q is not declared in package %s", v.Name, pkg.Name)
			d.Validator = v.Name
			diags = append(diags, d)
		}
		if _, ok := pkg.Structs[v.Model]; v.Model != "" && !ok {
			d := types.Errorf(types.CodeStructural, v.Loc,
				"model %q of validator %q is not a struct in package %s", v.Model, v.Name, pkg.Name)
			d.Validator = v.Name
			diags = append(diags, d)
			continue
		}
		for j := range v.Chains {
			c := &v.Chains[j]
			if c.Target.Type != "" {
				continue
			}
			typ, ok := pkg.FieldType(v.Model, c.Target.Path)
			if !ok {
				d := types.Errorf(types.CodeManifest, c.Loc, "cannot find the type of %s.%s; declare it with type:",
					v.Model, rules.FormatPath(c.Target.Path))
				d.Validator = v.Name
				diags = append(diags, d)
				continue
			}
			c.Target.Type = typ
		}
	}
	return diags
}

// RequireTypes reports chains without a target type. Used when no source
// package is scanned.
func RequireTypes(unit *types.Unit) []types.Diagnostic {
	var diags []types.Diagnostic
	for _, v := range unit.Validators {
		for _, c := range v.Chains {
			if c.Target.Type == "" {
				d := types.Errorf(types.CodeManifest, c.Loc, "chain %s has no type and no source package is scanned",
					rules.FormatPath(c.Target.Path))
				d.Validator = v.Name
				diags = append(diags, d)
			}
		}
	}
	return diags
}
