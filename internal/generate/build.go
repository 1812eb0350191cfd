// Package generate runs manifests through the compiler and writes the
// generated Go files.
//
// Build is the in-memory pipeline shared by the generate command and the
// compile service: annotate types, compile, render. Generator adds the file
// system around it: output paths, a worker pool, atomic writes and the
// generation cache.
package generate

import (
	"fmt"

	"github.com/solatis/ensuregen/internal/codegen"
	"github.com/solatis/ensuregen/internal/manifest"
	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// BuildOptions configures one Build.
type BuildOptions struct {
	OnFailure  types.OnFailure
	FixImports bool
	// Filename is the path the source will be written to.
	Filename string
	// Package is the scanned model package; nil requires every chain to
	// declare its type.
	Package *manifest.Package
}

// Output is the product of building one manifest.
// Source is nil whenever Diagnostics holds an error.
type Output struct {
	Unit        *rules.CompiledUnit
	Source      []byte
	Diagnostics []types.Diagnostic
}

// Failed reports whether the build produced error diagnostics.
func (o Output) Failed() bool {
	return types.HasErrors(o.Diagnostics)
}

// Build compiles m against catalog and renders the result.
// Compiler problems are diagnostics; the error is reserved for failures
// to produce source from a unit that compiled cleanly.
func Build(m *manifest.Manifest, catalog *rules.Catalog, opts BuildOptions) (Output, error) {
	var out Output
	if opts.Package != nil {
		out.Diagnostics = manifest.Annotate(&m.Unit, opts.Package)
	} else {
		out.Diagnostics = manifest.RequireTypes(&m.Unit)
	}
	if out.Failed() {
		return out, nil
	}

	compileOpts := rules.DefaultOptions()
	compileOpts.DefaultOnFailure = opts.OnFailure
	unit, diags := rules.Compile(&m.Unit, catalog, compileOpts)
	out.Unit = unit
	out.Diagnostics = append(out.Diagnostics, diags...)
	if out.Failed() {
		return out, nil
	}

	src, err := codegen.RenderFile(unit, codegen.FileOptions{
		Filename:   opts.Filename,
		FixImports: opts.FixImports,
	})
	if err != nil {
		d := types.Errorf(types.CodeInternal, types.Location{File: m.Unit.File}, "render: %v", err)
		out.Diagnostics = append(out.Diagnostics, d)
		return out, fmt.Errorf("render %s: %w", m.Unit.File, err)
	}
	out.Source = src
	return out, nil
}

// FailureSites counts the failure sites of every validator in u.
func FailureSites(u *rules.CompiledUnit) int {
	if u == nil {
		return 0
	}
	n := 0
	for _, v := range u.Validators {
		n += v.RuleCount()
	}
	return n
}
