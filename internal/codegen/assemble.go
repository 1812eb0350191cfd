// Package codegen assembles compiled validators into Go source.
//
// The assembler is a pure function of its input: it never reports
// diagnostics and never consults a catalog. Anything it cannot render is an
// internal invariant violation and panics.
package codegen

/*
 * Code assembly.
 *
 * One method per validator:
 *
 *   func (V) Validate(x *Model) valid.Errors {
 *       var errs valid.Errors
 *       <hoisted local predicate funcs>
 *       <chains in declaration order>
 *       return errs
 *   }
 *
 * Every failure site lazily allocates the error list, sized to the number
 * of failure sites not yet passed, then appends. The count comes from a
 * cursor shared by all contexts forked inside one validator.
 *
 * On-failure modes:
 *   - Continue: each rule guard is its own if statement
 *   - Halt, leaf rules only: an if / else if ladder
 *   - Halt, anything else: the region is wrapped in a block followed by a
 *     haltN label and failures goto it; item scopes that inherit Halt jump
 *     to their parent's label
 */

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// ValidPath is the import path of the runtime package generated code calls.
const ValidPath = "github.com/solatis/ensuregen/pkg/valid"

// assembler renders one validator.
type assembler struct {
	cur     *cursor
	hoisted writer
	imports map[string]string // path -> explicit name ("" for default)
}

func newAssembler() *assembler {
	return &assembler{imports: make(map[string]string)}
}

func (a *assembler) use(path, name string) {
	if _, ok := a.imports[path]; !ok || name != "" {
		a.imports[path] = name
	}
}

// Fragment is one rendered validator plus the imports it needs.
type Fragment struct {
	Name    string
	Source  string
	Imports map[string]string
}

// RenderValidator renders v as an unformatted Go method declaration.
func RenderValidator(v *rules.Validator) Fragment {
	a := newAssembler()
	a.cur = &cursor{remaining: v.RuleCount()}
	a.use(ValidPath, "")
	if v.Async {
		a.use("context", "")
	}

	ctx := chainContext{
		cur:   a.cur,
		mode:  v.OnFailure,
		async: v.Async,
		model: v.Model,
	}

	var body writer
	body.indent = 1
	for _, c := range v.Chains {
		a.renderChain(&body, ctx, c)
	}

	var w writer
	if v.Async {
		w.P("// Validate checks a ", v.Model, " against the ", v.Name, " rules.")
		w.P("// A rule error aborts validation and is returned as is.")
		w.P("func (", v.Name, ") Validate(ctx context.Context, ", root, " *", v.Model, ") (valid.Errors, error) {")
	} else {
		w.P("// Validate checks a ", v.Model, " against the ", v.Name, " rules.")
		w.P("func (", v.Name, ") Validate(", root, " *", v.Model, ") valid.Errors {")
	}
	w.In()
	w.P("var errs valid.Errors")
	w.buf.WriteString(indentBlock(a.hoisted.String(), 1))
	w.Out()
	w.buf.WriteString(body.String())
	w.In()
	if v.Async {
		w.P("return errs, nil")
	} else {
		w.P("return errs")
	}
	w.Out()
	w.P("}")

	if a.cur.remaining != 0 {
		panic(fmt.Sprintf("codegen: %s rendered %d failure sites too few", v.Name, a.cur.remaining))
	}
	return Fragment{Name: v.Name, Source: w.String(), Imports: a.imports}
}

func indentBlock(block string, n int) string {
	if block == "" {
		return ""
	}
	prefix := strings.Repeat("\t", n)
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// renderChain renders one chain in ctx's scope.
func (a *assembler) renderChain(w *writer, parent chainContext, c *rules.Chain) {
	acc := accessor(c.Target.Path, parent.idx)
	mode := c.OnFailure.Resolve(parent.mode)

	ctx := parent
	ctx.mode = mode
	ctx.ladder = ladderAlways
	var region *haltRegion
	switch {
	case mode == types.OnFailureHalt && c.OnFailure == types.OnFailureInherit && parent.halt != nil:
		// failures leave the enclosing region
	case mode == types.OnFailureHalt && pureLadder(c, ctx):
		ctx.halt = nil
		ctx.ladder = ladderBegin
	case mode == types.OnFailureHalt:
		region = &haltRegion{label: fmt.Sprintf("halt%d", a.cur.next())}
		ctx.halt = region
	default:
		ctx.halt = nil
	}

	block := c.If != nil || region != nil
	if c.If != nil {
		w.P("if ", a.guardExpr(c.If, acc), " {")
		w.In()
	} else if region != nil {
		w.P("{")
		w.In()
	}

	for _, s := range c.Steps {
		a.renderStep(w, &ctx, c, acc, s)
	}
	if ctx.ladder == ladderElse {
		w.P("}")
	}

	if block {
		w.Out()
		w.P("}")
	}
	if region != nil && region.used {
		w.P(region.label, ":")
	}
}

// pureLadder reports whether a halting chain can be written as one
// if / else if ladder: leaf rules only, each a single guard.
func pureLadder(c *rules.Chain, ctx chainContext) bool {
	for _, s := range c.Steps {
		rs, ok := s.(*rules.RuleStep)
		if !ok {
			return false
		}
		r := rs.Rule
		if r.Def.Async && !r.Def.Predicate && (r.If != nil || needsDeref(r.Def, c.Target.Type)) {
			return false
		}
	}
	return true
}

// needsDeref reports whether the value must be dereferenced for def's target parameter.
func needsDeref(def *types.RuleDefinition, targetType string) bool {
	if def.Predicate {
		return false
	}
	p := def.Params[0]
	return isPointerType(targetType) && !isPointerType(p.Type) && !p.Generic
}

func isPointerType(t string) bool {
	t = strings.TrimSpace(t)
	return strings.HasPrefix(t, "*")
}

func (a *assembler) renderStep(w *writer, ctx *chainContext, c *rules.Chain, acc string, s rules.Step) {
	switch s := s.(type) {
	case *rules.RuleStep:
		a.renderRule(w, ctx, c.Target, acc, s.Rule)
	case *rules.EachStep:
		iv := fmt.Sprintf("i%d", len(ctx.idx)+1)
		w.P("for ", iv, " := range ", acc, " {")
		w.In()
		a.renderChain(w, ctx.withIndex(iv), s.Item)
		w.Out()
		w.P("}")
	case *rules.DelegateStep:
		a.renderDelegateTarget(w, ctx, c.Target, acc, s.Validator, s.Async)
	case *rules.SwitchStep:
		a.renderSwitch(w, ctx, c.Target, acc, s)
	default:
		panic(fmt.Sprintf("codegen: unknown step %T", s))
	}
}

// renderRule renders one rule's failure guard and error.
func (a *assembler) renderRule(w *writer, ctx *chainContext, target types.ValidationTarget, acc string, r rules.ResolvedRule) {
	def := r.Def
	if def == nil {
		panic(fmt.Sprintf("codegen: rule %q reached the assembler without a definition", r.Method))
	}
	if def.Import != "" && !def.Predicate {
		name := ""
		if def.Package != "" && def.Package != def.Import[strings.LastIndex(def.Import, "/")+1:] {
			name = def.Package
		}
		a.use(def.Import, name)
	}

	n := a.cur.take()
	deref := needsDeref(def, target.Type)
	value := acc
	if deref {
		value = "*" + acc
	}
	ifExpr := ""
	if r.If != nil {
		ifExpr = a.guardExpr(r.If, acc)
	}
	emit := func() { a.appendRuleError(w, ctx, n, r, target, acc) }

	if !def.Async || def.Predicate {
		fail := "!" + a.checkExpr(r, value)
		if deref && def.NilFails {
			fail = "(" + acc + " == nil || " + fail + ")"
		} else if deref {
			fail = acc + " != nil && " + fail
		}
		if ifExpr != "" {
			fail = ifExpr + " && " + fail
		}
		ctx.openGuard(w, fail)
		w.In()
		emit()
		w.Out()
		ctx.closeGuard(w)
		return
	}

	ok := fmt.Sprintf("ok%d", a.cur.next())
	call := a.checkExpr(r, value)
	if ctx.ladder != ladderAlways {
		ctx.openGuard(w, ok+", err := "+call+"; err != nil")
		w.In()
		w.P("return nil, err")
		w.Out()
		w.P("} else if !", ok, " {")
		w.In()
		emit()
		w.Out()
		return
	}

	outer := ifExpr
	if deref && !def.NilFails {
		outer = joinAnd(outer, acc+" != nil")
	}
	if outer != "" {
		w.P("if ", outer, " {")
		w.In()
	}
	if deref && def.NilFails {
		w.P("if ", acc, " == nil {")
		w.In()
		emit()
		w.Out()
		w.P("} else if ", ok, ", err := ", call, "; err != nil {")
	} else {
		w.P("if ", ok, ", err := ", call, "; err != nil {")
	}
	w.In()
	w.P("return nil, err")
	w.Out()
	w.P("} else if !", ok, " {")
	w.In()
	emit()
	w.Out()
	w.P("}")
	if outer != "" {
		w.Out()
		w.P("}")
	}
}

func joinAnd(a, b string) string {
	if a == "" {
		return b
	}
	return a + " && " + b
}

// checkExpr renders the expression that holds when the rule passes.
func (a *assembler) checkExpr(r rules.ResolvedRule, value string) string {
	if r.Def.Predicate {
		return a.renderCondition(r.Predicate, value)
	}
	args := make([]string, 0, len(r.Args)+2)
	if r.Def.Async {
		args = append(args, "ctx")
	}
	args = append(args, value)
	for _, b := range r.Args {
		args = append(args, b.Value.Expr)
	}
	return r.Def.Qualified() + "(" + strings.Join(args, ", ") + ")"
}

// errorFields is one valid.Error literal.
type errorFields struct {
	code       string
	message    string // Go expression
	targetName string
	path       string // Go expression
	value      string
	severity   types.Severity
	metadata   []rules.MetadataEntry
}

// appendError writes the allocation, the append and the halting jump.
func (a *assembler) appendError(w *writer, ctx *chainContext, n int, f errorFields) {
	w.P("if errs == nil {")
	w.In()
	w.P("errs = make(valid.Errors, 0, ", n, ")")
	w.Out()
	w.P("}")
	w.P("errs = append(errs, valid.Error{")
	w.In()
	w.P("Code: ", strconv.Quote(f.code), ",")
	w.P("Message: ", f.message, ",")
	w.P("TargetName: ", strconv.Quote(f.targetName), ",")
	w.P("Path: ", f.path, ",")
	w.P("AttemptedValue: ", f.value, ",")
	switch f.severity {
	case types.SeverityWarning:
		w.P("Severity: valid.SeverityWarning,")
	case types.SeverityInfo:
		w.P("Severity: valid.SeverityInfo,")
	}
	if len(f.metadata) > 0 {
		w.P("Metadata: map[string]any{")
		w.In()
		for _, m := range f.metadata {
			w.P(strconv.Quote(m.Key), ": ", m.Value.Expr, ",")
		}
		w.Out()
		w.P("},")
	}
	w.Out()
	w.P("})")
	if ctx.halt != nil {
		w.P("goto ", ctx.halt.jump())
	}
}

func (a *assembler) appendRuleError(w *writer, ctx *chainContext, n int, r rules.ResolvedRule, target types.ValidationTarget, acc string) {
	name := target.Name()
	if r.Overrides.TargetName != "" {
		name = r.Overrides.TargetName
	}
	a.appendError(w, ctx, n, errorFields{
		code:       r.Code,
		message:    a.renderMessage(ruleMessage(r, name, acc, target.Type)),
		targetName: name,
		path:       pathExpr(target.Path, ctx.idx),
		value:      acc,
		severity:   r.Overrides.Severity,
		metadata:   r.Overrides.Metadata,
	})
}

// renderDelegateTarget hands the chain target to another validator.
// Pointer targets are nil-guarded; values are passed by address.
func (a *assembler) renderDelegateTarget(w *writer, ctx *chainContext, target types.ValidationTarget, acc, validator string, async bool) {
	if isPointerType(target.Type) {
		w.P("if ", acc, " != nil {")
		w.In()
		a.renderDelegate(w, ctx, validator, async, acc, pathExpr(target.Path, ctx.idx))
		w.Out()
		w.P("}")
		return
	}
	a.renderDelegate(w, ctx, validator, async, "&"+acc, pathExpr(target.Path, ctx.idx))
}

// renderDelegate calls validator on arg and merges its errors under path.
func (a *assembler) renderDelegate(w *writer, ctx *chainContext, validator string, async bool, arg, path string) {
	n := a.cur.take()
	if async {
		w.P("if nested, err := (", validator, "{}).Validate(ctx, ", arg, "); err != nil {")
		w.In()
		w.P("return nil, err")
		w.Out()
		w.P("} else if len(nested) > 0 {")
	} else {
		w.P("if nested := (", validator, "{}).Validate(", arg, "); len(nested) > 0 {")
	}
	w.In()
	w.P("if errs == nil {")
	w.In()
	if n > 1 {
		w.P("errs = make(valid.Errors, 0, len(nested)+", n-1, ")")
	} else {
		w.P("errs = make(valid.Errors, 0, len(nested))")
	}
	w.Out()
	w.P("}")
	w.P("errs = append(errs, nested.WithPrefix(", path, ")...)")
	if ctx.halt != nil {
		w.P("goto ", ctx.halt.jump())
	}
	w.Out()
	w.P("}")
}

// renderSwitch dispatches on the dynamic type of acc, branches in order.
func (a *assembler) renderSwitch(w *writer, ctx *chainContext, target types.ValidationTarget, acc string, s *rules.SwitchStep) {
	bind := false
	for _, b := range s.Branches {
		if _, ok := b.Behavior.(rules.DelegateBehavior); ok {
			bind = true
		}
	}
	v := ""
	if bind {
		v = fmt.Sprintf("v%d", a.cur.next())
		w.P("switch ", v, " := ", acc, ".(type) {")
	} else {
		w.P("switch ", acc, ".(type) {")
	}
	for _, b := range s.Branches {
		w.P("case ", b.Type, ":")
		w.In()
		a.renderBehavior(w, ctx, target, acc, v, b.Type, b.Behavior)
		w.Out()
	}
	if s.Otherwise != nil {
		w.P("default:")
		w.In()
		a.renderBehavior(w, ctx, target, acc, "", "", s.Otherwise)
		w.Out()
	}
	w.P("}")
}

func (a *assembler) renderBehavior(w *writer, ctx *chainContext, target types.ValidationTarget, acc, v, typ string, b rules.Behavior) {
	switch b := b.(type) {
	case rules.AllowBehavior:
	case rules.DelegateBehavior:
		if v == "" {
			panic(fmt.Sprintf("codegen: delegation to %s outside a typed branch", b.Validator))
		}
		path := pathExpr(target.Path, ctx.idx)
		if isPointerType(typ) {
			w.P("if ", v, " != nil {")
			w.In()
			a.renderDelegate(w, ctx, b.Validator, b.Async, v, path)
			w.Out()
			w.P("}")
			return
		}
		a.renderDelegate(w, ctx, b.Validator, b.Async, "&"+v, path)
	case rules.FailBehavior:
		name := target.Name()
		a.appendError(w, ctx, a.cur.take(), errorFields{
			code: b.Code,
			message: a.renderMessage(messageInput{
				template:   b.Message,
				targetName: name,
				value:      acc,
				valueType:  target.Type,
				arg:        func(string) (types.ArgumentValue, bool) { return types.ArgumentValue{}, false },
			}),
			targetName: name,
			path:       pathExpr(target.Path, ctx.idx),
			value:      acc,
		})
	default:
		panic(fmt.Sprintf("codegen: unknown branch behavior %T", b))
	}
}
