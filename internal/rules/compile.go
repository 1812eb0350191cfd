// internal/rules/compile.go
package rules

import (
	"go/token"

	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Unit compilation.
 *
 * Compiles a types.Unit into a CompiledUnit: validators with fully resolved
 * chain trees, ready for internal/codegen.
 *
 * Compilation workflow:
 *   1. Structural checks per validator (name, model, duplicates); a failing
 *      validator is dropped whole
 *   2. Pass (a): draft every chain against the external catalog
 *   3. Admit the unit's own rule declarations in an isolated pass and merge
 *      them over the external catalog
 *   4. Pass (b): settle pending invocations against the merged catalog
 *   5. Build chain trees, preserving declaration order everywhere
 *
 * Resolution failures suppress only the failing invocation; its siblings
 * are still compiled. Every problem is returned as a Diagnostic, and any
 * error diagnostic means the unit must not be emitted as valid output.
 *
 * Compile holds no state between calls and never mutates its inputs, so
 * separate units may be compiled concurrently against one catalog.
 */

// Compile resolves and builds every validator in unit.
func Compile(unit *types.Unit, external *Catalog, opts Options) (*CompiledUnit, []types.Diagnostic) {
	if opts.DefaultOnFailure == types.OnFailureInherit {
		opts.DefaultOnFailure = types.OnFailureContinue
	}
	out := &CompiledUnit{
		File:    unit.File,
		Package: unit.Package,
		Imports: unit.Imports,
	}

	var diags []types.Diagnostic
	r := newResolver(unit, opts)

	type validatorDraft struct {
		decl   *types.ValidatorDecl
		chains []*draftChain
	}

	// Pass (a)
	seen := make(map[string]bool, len(unit.Validators))
	var drafts []validatorDraft
	for i := range unit.Validators {
		v := &unit.Validators[i]
		if structural := checkValidator(v, seen); len(structural) > 0 {
			diags = append(diags, structural...)
			continue
		}
		vd := validatorDraft{decl: v}
		for _, decl := range v.Chains {
			if decl.Target.Wildcards() > 0 {
				d := types.Errorf(types.CodePathLimit, decl.Loc,
					"target %q: wildcard segments are only valid inside ForEach", FormatPath(decl.Target.Path))
				diags = append(diags, tag([]types.Diagnostic{d}, v.Name)...)
				continue
			}
			d, chainDiags := r.draft(decl, decl.Target, v, external, false)
			diags = append(diags, tag(chainDiags, v.Name)...)
			if d != nil {
				vd.chains = append(vd.chains, d)
			}
		}
		drafts = append(drafts, vd)
	}

	// Same-unit declarations, admitted without looking at any call site
	localDefs := make([]types.RuleDefinition, len(unit.Rules))
	for i, def := range unit.Rules {
		def.Local = true
		if def.Loc.File == "" {
			def.Loc.File = unit.File
		}
		localDefs[i] = def
	}
	local, localDiags := NewCatalog(localDefs)
	diags = append(diags, localDiags...)
	merged := external.Merge(local)

	// Pass (b) and tree building
	for _, vd := range drafts {
		validator := &Validator{
			Name:      vd.decl.Name,
			Model:     vd.decl.Model,
			Async:     vd.decl.Async,
			OnFailure: vd.decl.OnFailure.Resolve(opts.DefaultOnFailure),
			Loc:       vd.decl.Loc,
		}
		for _, d := range vd.chains {
			settled, settleDiags := r.settle(d, merged)
			diags = append(diags, tag(settleDiags, validator.Name)...)
			chain, buildDiags := buildChain(settled)
			diags = append(diags, tag(buildDiags, validator.Name)...)
			if len(chain.Steps) > 0 {
				validator.Chains = append(validator.Chains, chain)
			}
		}
		out.Validators = append(out.Validators, validator)
	}

	return out, diags
}

// checkValidator reports structural problems that make v unusable.
func checkValidator(v *types.ValidatorDecl, seen map[string]bool) []types.Diagnostic {
	var diags []types.Diagnostic
	structural := func(format string, args ...any) {
		d := types.Errorf(types.CodeStructural, v.Loc, format, args...)
		d.Validator = v.Name
		diags = append(diags, d)
	}
	switch {
	case v.Name == "":
		structural("validator declaration has no name")
	case !token.IsIdentifier(v.Name):
		structural("validator name %q is not a Go identifier", v.Name)
	case seen[v.Name]:
		structural("validator %q is declared more than once", v.Name)
	}
	if v.Model == "" {
		structural("validator %q does not name its model type", v.Name)
	} else if !token.IsIdentifier(v.Model) {
		structural("model type %q of validator %q is not a Go identifier", v.Model, v.Name)
	}
	seen[v.Name] = true
	return diags
}

// tag attributes diagnostics to a validator.
func tag(diags []types.Diagnostic, validator string) []types.Diagnostic {
	for i := range diags {
		if diags[i].Validator == "" {
			diags[i].Validator = validator
		}
	}
	return diags
}
