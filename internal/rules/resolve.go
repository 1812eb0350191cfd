// internal/rules/resolve.go
package rules

import (
	"strconv"
	"strings"

	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Invocation resolution.
 *
 * A chain arrives as a flat list of invocations. Resolution runs in two
 * passes over the whole unit:
 *
 *   (a) draft: group each rule call with the modifiers that follow it and
 *       resolve it against the external catalog. A call naming a rule the
 *       unit declares itself cannot be checked yet; it becomes a pending
 *       entry, and so does every call after it in the same chain.
 *   (b) settle: once the unit's own declarations are admitted, every
 *       pending entry is resolved against the merged catalog.
 *
 * Both passes go through resolveCall, so a rule resolved late is identical
 * to one resolved early except for its Mode field. Pending entries are
 * replaced by new values; drafts are never patched in place.
 */

// Names is the read-only table of well-known method names.
type Names struct {
	ForEach         string
	ValidateWith    string
	Switch          string
	WithMessage     string
	WithMessageExpr string
	WithErrorCode   string
	WithTargetName  string
	WithSeverity    string
	WithMetadata    string
	If              string
}

// DefaultNames returns the method names manifests use.
func DefaultNames() Names {
	return Names{
		ForEach:         "ForEach",
		ValidateWith:    "ValidateWith",
		Switch:          "Switch",
		WithMessage:     "WithMessage",
		WithMessageExpr: "WithMessageExpr",
		WithErrorCode:   "WithErrorCode",
		WithTargetName:  "WithTargetName",
		WithSeverity:    "WithSeverity",
		WithMetadata:    "WithMetadata",
		If:              "If",
	}
}

func (n Names) isModifier(method string) bool {
	switch method {
	case n.WithMessage, n.WithMessageExpr, n.WithErrorCode, n.WithTargetName,
		n.WithSeverity, n.WithMetadata, n.If:
		return true
	}
	return false
}

func (n Names) isStructural(method string) bool {
	return method == n.ForEach || method == n.ValidateWith || method == n.Switch
}

// Options configures a compilation.
type Options struct {
	Names            Names
	DefaultOnFailure types.OnFailure
}

// DefaultOptions returns Continue as the default mode and the default names.
func DefaultOptions() Options {
	return Options{Names: DefaultNames(), DefaultOnFailure: types.OnFailureContinue}
}

// callGroup is one rule (or structural) call plus its trailing modifiers.
type callGroup struct {
	call types.Invocation
	mods []types.Invocation
}

// groupCalls attaches each modifier to the call before it.
func groupCalls(calls []types.Invocation, names Names) ([]callGroup, []types.Diagnostic) {
	var groups []callGroup
	var diags []types.Diagnostic
	for _, c := range calls {
		if names.isModifier(c.Method) {
			if len(groups) == 0 {
				diags = append(diags, types.Errorf(types.CodeOrphanModifier, c.Loc,
					"modifier %q must follow a rule invocation", c.Method))
				continue
			}
			last := &groups[len(groups)-1]
			last.mods = append(last.mods, c)
			continue
		}
		groups = append(groups, callGroup{call: c})
	}
	return groups, diags
}

// env is what a rule call is resolved against besides the catalog.
type env struct {
	target    types.ValidationTarget
	validator *types.ValidatorDecl
}

func (e env) paramType(scope types.LambdaScope) string {
	if scope == types.ScopeModel {
		return "*" + e.validator.Model
	}
	return e.target.Type
}

// resolution is the state of one rule invocation between the two passes.
type resolution interface {
	isResolution()
}

type resolved struct{ rule ResolvedRule }
type pending struct {
	group callGroup
	env   env
}
type unresolved struct{}

func (resolved) isResolution()   {}
func (pending) isResolution()    {}
func (unresolved) isResolution() {}

// draftChain is a chain between pass (a) and chain building.
type draftChain struct {
	decl   types.ChainDecl
	target types.ValidationTarget
	guard  *Guard
	steps  []draftStep
	// weak is set once any call in the chain, or in a nested item chain, was deferred.
	weak   bool
}

type draftStep interface {
	isDraftStep()
}

type draftRule struct{ res resolution }
type draftEach struct{ item *draftChain }
type draftStructural struct{ step Step }

func (draftRule) isDraftStep()       {}
func (draftEach) isDraftStep()       {}
func (draftStructural) isDraftStep() {}

// resolver holds per-unit lookup tables. It is not shared across units.
type resolver struct {
	opts       Options
	localNames map[string]bool
	validators map[string]*types.ValidatorDecl
}

func newResolver(unit *types.Unit, opts Options) *resolver {
	r := &resolver{
		opts:       opts,
		localNames: make(map[string]bool, len(unit.Rules)),
		validators: make(map[string]*types.ValidatorDecl, len(unit.Validators)),
	}
	for _, def := range unit.Rules {
		r.localNames[def.Name] = true
	}
	for i := range unit.Validators {
		r.validators[unit.Validators[i].Name] = &unit.Validators[i]
	}
	return r
}

// draft runs pass (a) over one chain. weak forces every rule call pending.
// Returns nil when the chain's target is unusable.
func (r *resolver) draft(decl types.ChainDecl, target types.ValidationTarget, v *types.ValidatorDecl, catalog *Catalog, weak bool) (*draftChain, []types.Diagnostic) {
	if diag := checkTarget(target, decl.Loc); diag != nil {
		return nil, []types.Diagnostic{*diag}
	}
	e := env{target: target, validator: v}
	d := &draftChain{decl: decl, target: target}
	var diags []types.Diagnostic

	if decl.If != nil {
		cond, diag := classifyLambda(decl.If, e.paramType(decl.If.Scope))
		if diag != nil {
			diags = append(diags, *diag)
		} else {
			d.guard = &Guard{Cond: cond, Scope: decl.If.Scope}
		}
	}

	groups, groupDiags := groupCalls(decl.Calls, r.opts.Names)
	diags = append(diags, groupDiags...)

	names := r.opts.Names
	for _, g := range groups {
		if names.isStructural(g.call.Method) {
			for _, m := range g.mods {
				diags = append(diags, types.Errorf(types.CodeOrphanModifier, m.Loc,
					"modifier %q cannot follow %s", m.Method, g.call.Method))
			}
		}
		switch g.call.Method {
		case names.ForEach:
			item, itemDiags := r.draftEach(g.call, target, v, catalog, weak)
			diags = append(diags, itemDiags...)
			if item != nil {
				d.steps = append(d.steps, draftEach{item: item})
				weak = weak || item.weak
			}
		case names.ValidateWith:
			step, diag := r.delegateStep(g.call, v)
			if diag != nil {
				diags = append(diags, *diag)
				continue
			}
			d.steps = append(d.steps, draftStructural{step: step})
		case names.Switch:
			step, switchDiags := r.switchStep(g.call, v)
			diags = append(diags, switchDiags...)
			if step != nil {
				d.steps = append(d.steps, draftStructural{step: step})
			}
		default:
			if weak || r.localNames[g.call.Method] {
				weak = true
				d.steps = append(d.steps, draftRule{res: pending{group: g, env: e}})
				continue
			}
			rule, ruleDiags := resolveCall(catalog, g, e, ModeRich, names)
			if len(ruleDiags) > 0 {
				diags = append(diags, ruleDiags...)
				d.steps = append(d.steps, draftRule{res: unresolved{}})
				continue
			}
			d.steps = append(d.steps, draftRule{res: resolved{rule: rule}})
		}
	}
	d.weak = weak
	return d, diags
}

func (r *resolver) draftEach(call types.Invocation, target types.ValidationTarget, v *types.ValidatorDecl, catalog *Catalog, weak bool) (*draftChain, []types.Diagnostic) {
	if call.Each == nil {
		return nil, []types.Diagnostic{types.Errorf(types.CodeBadModifierArg, call.Loc,
			"%s needs an item chain", call.Method)}
	}
	elem, err := target.Element()
	if err != nil {
		return nil, []types.Diagnostic{types.Errorf(types.CodeNotCollection, call.Loc,
			"%s target %q has type %q: %v", call.Method, target.Name(), target.Type, err)}
	}
	if call.Each.Target.DisplayName != "" {
		elem.DisplayName = call.Each.Target.DisplayName
	}
	return r.draft(*call.Each, elem, v, catalog, weak)
}

// settle runs pass (b): every pending entry is resolved against catalog.
func (r *resolver) settle(d *draftChain, catalog *Catalog) (*draftChain, []types.Diagnostic) {
	out := &draftChain{decl: d.decl, target: d.target, guard: d.guard, steps: make([]draftStep, 0, len(d.steps))}
	var diags []types.Diagnostic
	for _, s := range d.steps {
		switch s := s.(type) {
		case draftRule:
			p, ok := s.res.(pending)
			if !ok {
				out.steps = append(out.steps, s)
				continue
			}
			rule, ruleDiags := resolveCall(catalog, p.group, p.env, ModeWeak, r.opts.Names)
			if len(ruleDiags) > 0 {
				diags = append(diags, ruleDiags...)
				out.steps = append(out.steps, draftRule{res: unresolved{}})
				continue
			}
			out.steps = append(out.steps, draftRule{res: resolved{rule: rule}})
		case draftEach:
			item, itemDiags := r.settle(s.item, catalog)
			diags = append(diags, itemDiags...)
			out.steps = append(out.steps, draftEach{item: item})
		default:
			out.steps = append(out.steps, s)
		}
	}
	return out, diags
}

// resolveCall binds one rule call to a single definition and folds its modifiers.
func resolveCall(catalog *Catalog, g callGroup, e env, mode ResolveMode, names Names) (ResolvedRule, []types.Diagnostic) {
	call := g.call
	candidates := catalog.Lookup(call.Method)
	if len(candidates) == 0 {
		return ResolvedRule{}, []types.Diagnostic{types.Errorf(types.CodeUnknownRule, call.Loc,
			"unknown rule %q", call.Method)}
	}

	candidates = lambdaShaped(candidates, call.Lambda != nil)
	if len(candidates) == 0 {
		format := "rule %q takes no lambda"
		if call.Lambda == nil {
			format = "rule %q needs a predicate lambda"
		}
		return ResolvedRule{}, []types.Diagnostic{types.Errorf(types.CodeUnknownRule, call.Loc, format, call.Method)}
	}

	argTypes := make([]string, 0, len(call.Args)+2)
	argTypes = append(argTypes, e.target.Type)
	for _, a := range call.Args {
		argTypes = append(argTypes, a.Type)
	}
	if call.Lambda != nil {
		argTypes = append(argTypes, "func")
	}

	best, kind := bestMatch(candidates, argTypes)
	if kind == MatchNone {
		return ResolvedRule{}, []types.Diagnostic{types.Errorf(types.CodeUnknownRule, call.Loc,
			"no overload of %q accepts (%s)", call.Method, strings.Join(argTypes, ", "))}
	}
	def := best
	if def.Async && !e.validator.Async {
		return ResolvedRule{}, []types.Diagnostic{types.Errorf(types.CodeAsyncInSync, call.Loc,
			"async rule %q used by sync validator %q", call.Method, e.validator.Name)}
	}

	rule := ResolvedRule{
		Mode:         mode,
		Method:       call.Method,
		Def:          &def,
		Predicate:    BlankCondition{},
		Placeholders: def.Placeholders,
		Loc:          call.Loc,
	}

	explicit := def.Params[1:]
	if def.Predicate {
		explicit = def.Params[1 : len(def.Params)-1]
		cond, diag := classifyLambda(call.Lambda, e.target.Type)
		if diag != nil {
			return ResolvedRule{}, []types.Diagnostic{*diag}
		}
		rule.Predicate = cond
	}
	if len(explicit) != len(call.Args) {
		return ResolvedRule{}, []types.Diagnostic{types.Errorf(types.CodeUnknownRule, call.Loc,
			"rule %q takes %d arguments, got %d", call.Method, len(explicit), len(call.Args))}
	}
	for i, p := range explicit {
		rule.Args = append(rule.Args, BoundArg{Param: p, Value: call.Args[i]})
	}

	var diags []types.Diagnostic
	for _, m := range g.mods {
		if diag := foldModifier(&rule, m, e, names); diag != nil {
			diags = append(diags, *diag)
		}
	}
	if len(diags) > 0 {
		return ResolvedRule{}, diags
	}

	rule.Message = def.Message
	if rule.Message == "" {
		rule.Message = "{TargetName} is invalid"
	}
	if rule.Overrides.HasMessage {
		rule.Message = rule.Overrides.Message
		rule.MessageExpr = rule.Overrides.MessageExpr
	}
	rule.Code = def.ErrorCode
	if rule.Code == "" {
		rule.Code = def.Qualified()
	}
	if rule.Overrides.ErrorCode != "" {
		rule.Code = rule.Overrides.ErrorCode
	}
	return rule, nil
}

// lambdaShaped keeps the candidates whose predicate slot agrees with the call.
func lambdaShaped(candidates []types.RuleDefinition, lambda bool) []types.RuleDefinition {
	out := make([]types.RuleDefinition, 0, len(candidates))
	for _, def := range candidates {
		if def.Predicate == lambda {
			out = append(out, def)
		}
	}
	return out
}

// foldModifier applies one modifier to rule.
func foldModifier(rule *ResolvedRule, m types.Invocation, e env, names Names) *types.Diagnostic {
	bad := func(format string, args ...any) *types.Diagnostic {
		d := types.Errorf(types.CodeBadModifierArg, m.Loc, format, args...)
		return &d
	}
	ov := &rule.Overrides

	switch m.Method {
	case names.If:
		if m.Lambda == nil {
			return bad("%s needs a lambda", m.Method)
		}
		cond, diag := classifyLambda(m.Lambda, e.paramType(m.Lambda.Scope))
		if diag != nil {
			return diag
		}
		rule.If = &Guard{Cond: cond, Scope: m.Lambda.Scope}
		return nil
	case names.WithMetadata:
		if len(m.Args) != 2 {
			return bad("%s takes a key and a value", m.Method)
		}
		key, ok := literalText(m.Args[0])
		if !ok {
			return bad("%s key must be a literal", m.Method)
		}
		ov.Metadata = append(ov.Metadata, MetadataEntry{Key: key, Value: m.Args[1]})
		return nil
	}

	if len(m.Args) != 1 {
		return bad("%s takes exactly one argument", m.Method)
	}
	arg := m.Args[0]
	switch m.Method {
	case names.WithMessage:
		ov.HasMessage = true
		if text, ok := literalText(arg); ok {
			ov.Message, ov.MessageExpr = text, false
		} else {
			ov.Message, ov.MessageExpr = arg.Expr, true
		}
	case names.WithMessageExpr:
		ov.HasMessage = true
		ov.Message, ov.MessageExpr = arg.Expr, true
	case names.WithErrorCode:
		text, ok := literalText(arg)
		if !ok {
			return bad("%s must be a literal", m.Method)
		}
		ov.ErrorCode = text
	case names.WithTargetName:
		text, ok := literalText(arg)
		if !ok {
			return bad("%s must be a literal", m.Method)
		}
		ov.TargetName = text
	case names.WithSeverity:
		text, ok := literalText(arg)
		if !ok {
			return bad("%s must be a literal", m.Method)
		}
		sev, err := types.ParseSeverity(text)
		if err != nil {
			return bad("%v", err)
		}
		ov.Severity, ov.HasSeverity = sev, true
	}
	return nil
}

// literalText returns the text of a literal argument, unquoting string literals.
func literalText(a types.ArgumentValue) (string, bool) {
	if !a.Literal {
		return "", false
	}
	if s, err := strconv.Unquote(a.Expr); err == nil {
		return s, true
	}
	return a.Expr, true
}

func (r *resolver) delegateStep(call types.Invocation, v *types.ValidatorDecl) (Step, *types.Diagnostic) {
	b, diag := r.delegateBehavior(call.Delegate, call.Loc, call.Method, v)
	if diag != nil {
		return nil, diag
	}
	return &DelegateStep{Validator: b.Validator, Async: b.Async, Loc: call.Loc}, nil
}

func (r *resolver) delegateBehavior(d *types.DelegateDecl, loc types.Location, method string, v *types.ValidatorDecl) (DelegateBehavior, *types.Diagnostic) {
	if d == nil || d.Validator == "" {
		diag := types.Errorf(types.CodeBadModifierArg, loc, "%s needs a validator name", method)
		return DelegateBehavior{}, &diag
	}
	async := d.Async
	if other, ok := r.validators[d.Validator]; ok {
		async = other.Async
	}
	if async && !v.Async {
		diag := types.Errorf(types.CodeAsyncInSync, loc,
			"async validator %q used by sync validator %q", d.Validator, v.Name)
		return DelegateBehavior{}, &diag
	}
	return DelegateBehavior{Validator: d.Validator, Async: async}, nil
}

func (r *resolver) behavior(b types.BehaviorDecl, loc types.Location, v *types.ValidatorDecl) (Behavior, *types.Diagnostic) {
	switch {
	case b.Delegate != nil:
		return r.delegateBehavior(b.Delegate, loc, r.opts.Names.Switch, v)
	case b.Allow:
		return AllowBehavior{}, nil
	case b.Fail != "":
		code := b.Code
		if code == "" {
			code = "UnsupportedType"
		}
		return FailBehavior{Message: b.Fail, Code: code}, nil
	}
	diag := types.Errorf(types.CodeBadModifierArg, loc, "branch needs validateWith, allow or fail")
	return nil, &diag
}

func (r *resolver) switchStep(call types.Invocation, v *types.ValidatorDecl) (Step, []types.Diagnostic) {
	if len(call.Branches) == 0 {
		return nil, []types.Diagnostic{types.Errorf(types.CodeBadModifierArg, call.Loc,
			"%s needs at least one branch", call.Method)}
	}
	step := &SwitchStep{Loc: call.Loc}
	var diags []types.Diagnostic
	seen := make(map[string]bool, len(call.Branches))
	for _, b := range call.Branches {
		key := strings.Join(strings.Fields(b.Type), "")
		if key == "" {
			diags = append(diags, types.Errorf(types.CodeBadModifierArg, b.Loc, "branch has no type"))
			continue
		}
		if seen[key] {
			diags = append(diags, types.Errorf(types.CodeDuplicateBranch, b.Loc,
				"type %q already has a branch", b.Type))
			continue
		}
		seen[key] = true
		behavior, diag := r.behavior(b.Behavior, b.Loc, v)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		step.Branches = append(step.Branches, Branch{Type: strings.TrimSpace(b.Type), Behavior: behavior})
	}
	if call.Otherwise != nil {
		behavior, diag := r.behavior(*call.Otherwise, call.Loc, v)
		if call.Otherwise.Delegate != nil {
			d := types.Errorf(types.CodeBadModifierArg, call.Loc, "otherwise branch cannot delegate; it has no narrowed type")
			diag = &d
		}
		if diag != nil {
			diags = append(diags, *diag)
		} else {
			step.Otherwise = behavior
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return step, nil
}
