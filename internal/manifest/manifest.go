// Package manifest decodes validator manifests into compilation units.
//
// A manifest is YAML or JSON. It declares the generated package, extra
// imports, same-unit rule declarations and validators with their chains.
// Decoding never resolves rules: it only produces types.Unit, reporting
// shape problems as ENS011 diagnostics.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// Format is a manifest encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, path)
	}
}

// ParseFormat converts a format name ("yaml", "json").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, s)
	}
}

// Manifest is a decoded manifest.
type Manifest struct {
	Unit types.Unit
	// Source is the directory of the Go package holding the model types,
	// relative paths resolved against the manifest. Empty disables scanning.
	Source string
	// Output overrides the generated file path.
	Output string
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, []types.Diagnostic, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if info.Size() > types.MaxManifestSize {
		return nil, nil, fmt.Errorf("%w: %s is %d bytes", types.ErrManifestTooLarge, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	m, diags, err := Parse(data, path, format)
	if err != nil {
		return nil, nil, err
	}
	dir := filepath.Dir(path)
	if m.Source != "" && !filepath.IsAbs(m.Source) {
		m.Source = filepath.Join(dir, m.Source)
	}
	if m.Output != "" && !filepath.IsAbs(m.Output) {
		m.Output = filepath.Join(dir, m.Output)
	}
	return m, diags, nil
}

// Parse decodes a manifest. file is used for locations only.
// The error is non-nil only when the document cannot be read at all.
func Parse(data []byte, file string, format Format) (*Manifest, []types.Diagnostic, error) {
	if len(data) > types.MaxManifestSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", types.ErrManifestTooLarge, len(data))
	}
	root, err := decode(data, format)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", file, err)
	}
	if root.kind != kindMap {
		return nil, nil, fmt.Errorf("decode %s: top level must be a mapping, got %s", file, root.kind)
	}

	b := &builder{file: file}
	m := &Manifest{
		Unit: types.Unit{
			File:    file,
			Package: root.get("package").str(),
		},
		Source: root.get("source").str(),
		Output: root.get("output").str(),
	}
	b.checkKeys(root, "package", "imports", "source", "output", "rules", "validators")
	if m.Unit.Package == "" {
		b.errorf(root, "manifest must name the generated package")
	}
	for _, imp := range b.seq(root.get("imports"), "imports") {
		m.Unit.Imports = append(m.Unit.Imports, imp.str())
	}
	for _, r := range b.seq(root.get("rules"), "rules") {
		if def, ok := b.ruleDef(r, "", ""); ok {
			m.Unit.Rules = append(m.Unit.Rules, def)
		}
	}
	for _, v := range b.seq(root.get("validators"), "validators") {
		m.Unit.Validators = append(m.Unit.Validators, b.validator(v))
	}
	return m, b.diags, nil
}

func decode(data []byte, format Format) (*node, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	default:
		return nil, types.ErrUnsupportedFormat
	}
}

// builder walks a document tree and collects diagnostics.
type builder struct {
	file  string
	diags []types.Diagnostic
}

func (b *builder) errorf(n *node, format string, args ...any) {
	b.diags = append(b.diags, types.Errorf(types.CodeManifest, n.loc(b.file), format, args...))
}

func (b *builder) checkKeys(n *node, allowed ...string) {
	if n == nil || n.kind != kindMap {
		return
	}
	for _, k := range n.keys {
		found := false
		for _, a := range allowed {
			if k.value == a {
				found = true
				break
			}
		}
		if !found {
			b.errorf(k, "unknown key %q", k.value)
		}
	}
}

// seq returns the items of a list; a missing node is an empty list.
func (b *builder) seq(n *node, what string) []*node {
	if n == nil || n.kind == kindNull {
		return nil
	}
	if n.kind != kindSeq {
		b.errorf(n, "%s must be a list, got %s", what, n.kind)
		return nil
	}
	return n.items
}

func (b *builder) onFailure(n *node) types.OnFailure {
	if n == nil {
		return types.OnFailureInherit
	}
	mode, err := types.ParseOnFailure(n.str())
	if err != nil {
		b.errorf(n, "%v", err)
	}
	return mode
}

// ruleDef decodes one rule declaration. importPath and pkg are file-level defaults.
func (b *builder) ruleDef(n *node, importPath, pkg string) (types.RuleDefinition, bool) {
	if n.kind != kindMap {
		b.errorf(n, "rule declaration must be a mapping, got %s", n.kind)
		return types.RuleDefinition{}, false
	}
	b.checkKeys(n, "name", "func", "import", "package", "params", "message", "code",
		"placeholders", "async", "predicate", "nilFails")
	def := types.RuleDefinition{
		Name:      n.get("name").str(),
		Func:      n.get("func").str(),
		Import:    importPath,
		Package:   pkg,
		Message:   n.get("message").str(),
		ErrorCode: n.get("code").str(),
		Async:     n.get("async").isTrue(),
		Predicate: n.get("predicate").isTrue(),
		NilFails:  n.get("nilFails").isTrue(),
		Loc:       n.loc(b.file),
	}
	if def.Func == "" {
		def.Func = def.Name
	}
	if imp := n.get("import"); imp != nil {
		def.Import = imp.str()
	}
	if p := n.get("package"); p != nil {
		def.Package = p.str()
	}
	for _, p := range b.seq(n.get("params"), "params") {
		if p.kind != kindMap {
			b.errorf(p, "parameter must be a mapping with name and type")
			continue
		}
		b.checkKeys(p, "name", "type", "generic", "target")
		def.Params = append(def.Params, types.Param{
			Name:    p.get("name").str(),
			Type:    p.get("type").str(),
			Generic: p.get("generic").isTrue(),
			Target:  p.get("target").isTrue(),
		})
	}
	if ph := n.get("placeholders"); ph != nil {
		if ph.kind != kindMap {
			b.errorf(ph, "placeholders must map tokens to parameter names")
		} else {
			def.Placeholders = make(map[string]string, len(ph.keys))
			for i, k := range ph.keys {
				def.Placeholders[k.value] = ph.vals[i].str()
			}
		}
	}
	return def, true
}

func (b *builder) validator(n *node) types.ValidatorDecl {
	v := types.ValidatorDecl{Loc: n.loc(b.file)}
	if n.kind != kindMap {
		b.errorf(n, "validator must be a mapping, got %s", n.kind)
		return v
	}
	b.checkKeys(n, "name", "model", "async", "onFailure", "chains")
	v.Name = n.get("name").str()
	v.Model = n.get("model").str()
	v.Async = n.get("async").isTrue()
	v.OnFailure = b.onFailure(n.get("onFailure"))
	for _, c := range b.seq(n.get("chains"), "chains") {
		if chain, ok := b.chain(c); ok {
			v.Chains = append(v.Chains, chain)
		}
	}
	return v
}

// chainKeys are the keys a chain body may carry besides its target.
var chainKeys = []string{"type", "name", "onFailure", "if", "rules", "validateWith", "switch", "otherwise"}

// chain decodes one ensure or ensureEach entry.
func (b *builder) chain(n *node) (types.ChainDecl, bool) {
	if n.kind != kindMap {
		b.errorf(n, "chain must be a mapping, got %s", n.kind)
		return types.ChainDecl{}, false
	}
	b.checkKeys(n, append([]string{"ensure", "ensureEach"}, chainKeys...)...)

	ensure, each := n.get("ensure"), n.get("ensureEach")
	pathNode := ensure
	switch {
	case ensure != nil && each != nil:
		b.errorf(n, "chain has both ensure and ensureEach")
		return types.ChainDecl{}, false
	case ensure == nil && each == nil:
		b.errorf(n, "chain needs ensure or ensureEach")
		return types.ChainDecl{}, false
	case each != nil:
		pathNode = each
	}

	path, err := rules.ParsePath(pathNode.str())
	if err != nil {
		if errors.Is(err, types.ErrPathTooDeep) {
			b.diags = append(b.diags, types.Errorf(types.CodePathLimit, pathNode.loc(b.file), "%v", err))
		} else {
			b.errorf(pathNode, "target %q: %v", pathNode.str(), err)
		}
		return types.ChainDecl{}, false
	}
	target := types.ValidationTarget{Path: path, Type: n.get("type").str()}

	body := b.chainBody(n)
	if ensure != nil {
		body.Target = types.ValidationTarget{Path: target.Path, Type: target.Type, DisplayName: body.Target.DisplayName}
		return body, true
	}
	// ensureEach: the body applies to every element
	decl := types.ChainDecl{
		Target: target,
		Calls: []types.Invocation{{
			Method: "ForEach",
			Each:   &body,
			Loc:    n.loc(b.file),
		}},
		Loc: n.loc(b.file),
	}
	return decl, true
}

// chainBody decodes the keys shared by top-level chains and forEach items.
// Only the DisplayName of the returned target is set.
func (b *builder) chainBody(n *node) types.ChainDecl {
	decl := types.ChainDecl{
		Target:    types.ValidationTarget{DisplayName: n.get("name").str()},
		OnFailure: b.onFailure(n.get("onFailure")),
		Loc:       n.loc(b.file),
	}
	if l := n.get("if"); l != nil {
		decl.If = b.lambda(l)
	}
	for _, r := range b.seq(n.get("rules"), "rules") {
		decl.Calls = append(decl.Calls, b.invocations(r)...)
	}
	if d := n.get("validateWith"); d != nil {
		decl.Calls = append(decl.Calls, b.delegate(d))
	}
	if s := n.get("switch"); s != nil {
		decl.Calls = append(decl.Calls, b.switchCall(s, n.get("otherwise")))
	} else if o := n.get("otherwise"); o != nil {
		b.errorf(o, "otherwise needs a switch")
	}
	return decl
}

// invocationKeys are the keys of the long rule form.
var invocationKeys = []string{"call", "args", "lambda", "if", "message", "messageExpr",
	"code", "name", "severity", "metadata"}

// invocations decodes one entry of a rules list. The long form expands
// into the rule call followed by its modifiers.
func (b *builder) invocations(n *node) []types.Invocation {
	loc := n.loc(b.file)
	switch n.kind {
	case kindScalar:
		return []types.Invocation{{Method: n.value, Loc: loc}}
	case kindMap:
	default:
		b.errorf(n, "rule entry must be a name or a mapping, got %s", n.kind)
		return nil
	}

	switch {
	case n.get("call") != nil:
		return b.longForm(n)
	case n.get("forEach") != nil:
		b.checkKeys(n, "forEach")
		item := n.get("forEach")
		if item.kind != kindMap {
			b.errorf(item, "forEach must be a mapping")
			return nil
		}
		b.checkKeys(item, chainKeys...)
		body := b.chainBody(item)
		return []types.Invocation{{Method: "ForEach", Each: &body, Loc: loc}}
	case n.get("validateWith") != nil:
		b.checkKeys(n, "validateWith")
		return []types.Invocation{b.delegate(n.get("validateWith"))}
	case n.get("switch") != nil:
		b.checkKeys(n, "switch", "otherwise")
		return []types.Invocation{b.switchCall(n.get("switch"), n.get("otherwise"))}
	}

	// short form: {Name: args}
	if len(n.keys) != 1 {
		b.errorf(n, "short rule form takes exactly one key, got %d", len(n.keys))
		return nil
	}
	return []types.Invocation{{
		Method: n.keys[0].value,
		Args:   b.args(n.vals[0]),
		Loc:    n.keys[0].loc(b.file),
	}}
}

func (b *builder) longForm(n *node) []types.Invocation {
	b.checkKeys(n, invocationKeys...)
	loc := n.loc(b.file)
	call := types.Invocation{Method: n.get("call").str(), Loc: loc}
	if a := n.get("args"); a != nil {
		call.Args = b.args(a)
	}
	if l := n.get("lambda"); l != nil {
		call.Lambda = b.lambda(l)
	}
	out := []types.Invocation{call}

	mod := func(method string, args ...types.ArgumentValue) {
		out = append(out, types.Invocation{Method: method, Args: args, Loc: loc})
	}
	if l := n.get("if"); l != nil {
		out = append(out, types.Invocation{Method: "If", Lambda: b.lambda(l), Loc: loc})
	}
	if m := n.get("message"); m != nil {
		mod("WithMessage", literal(m.str()))
	}
	if m := n.get("messageExpr"); m != nil {
		mod("WithMessageExpr", types.ArgumentValue{Expr: m.str(), Type: "string"})
	}
	if c := n.get("code"); c != nil {
		mod("WithErrorCode", literal(c.str()))
	}
	if t := n.get("name"); t != nil {
		mod("WithTargetName", literal(t.str()))
	}
	if s := n.get("severity"); s != nil {
		mod("WithSeverity", literal(s.str()))
	}
	if md := n.get("metadata"); md != nil {
		if md.kind != kindMap {
			b.errorf(md, "metadata must be a mapping")
		} else {
			idx := make([]int, len(md.keys))
			for i := range idx {
				idx[i] = i
			}
			sort.SliceStable(idx, func(i, j int) bool { return md.keys[idx[i]].value < md.keys[idx[j]].value })
			for _, i := range idx {
				mod("WithMetadata", literal(md.keys[i].value), b.arg(md.vals[i]))
			}
		}
	}
	return out
}

// literal is a string literal argument.
func literal(s string) types.ArgumentValue {
	return types.ArgumentValue{Expr: strconv.Quote(s), Type: "string", Literal: true}
}

// args decodes an argument list. A scalar is a single argument.
func (b *builder) args(n *node) []types.ArgumentValue {
	switch n.kind {
	case kindNull:
		return nil
	case kindSeq:
		out := make([]types.ArgumentValue, 0, len(n.items))
		for _, item := range n.items {
			out = append(out, b.arg(item))
		}
		return out
	default:
		return []types.ArgumentValue{b.arg(n)}
	}
}

// arg decodes one argument. Scalars are literals typed by their tag;
// {expr, type} is Go source evaluated at runtime; a list becomes []any.
func (b *builder) arg(n *node) types.ArgumentValue {
	switch n.kind {
	case kindScalar:
		switch n.tag {
		case tagInt:
			return types.ArgumentValue{Expr: n.value, Type: "int", Literal: true}
		case tagFloat:
			return types.ArgumentValue{Expr: n.value, Type: "float64", Literal: true}
		case tagBool:
			return types.ArgumentValue{Expr: strings.ToLower(n.value), Type: "bool", Literal: true}
		default:
			return literal(n.value)
		}
	case kindMap:
		b.checkKeys(n, "expr", "type")
		expr, typ := n.get("expr").str(), n.get("type").str()
		if expr == "" || typ == "" {
			b.errorf(n, "expression argument needs expr and type")
		}
		return types.ArgumentValue{Expr: expr, Type: typ}
	case kindSeq:
		elems := make([]string, 0, len(n.items))
		for _, item := range n.items {
			elems = append(elems, b.arg(item).Expr)
		}
		return types.ArgumentValue{Expr: "[]any{" + strings.Join(elems, ", ") + "}", Type: "[]any"}
	default:
		return types.ArgumentValue{Expr: "nil", Type: "any", Literal: true}
	}
}

// lambda decodes {param, body, block, scope} or the "p => body" shorthand.
// A shorthand body wrapped in braces is a block.
func (b *builder) lambda(n *node) *types.Lambda {
	l := &types.Lambda{Loc: n.loc(b.file)}
	switch n.kind {
	case kindScalar:
		param, body, ok := strings.Cut(n.value, "=>")
		if !ok {
			// no parameter: the resolver reports ENS003
			l.Body = strings.TrimSpace(n.value)
			return l
		}
		l.Param = strings.TrimSpace(param)
		l.Body = strings.TrimSpace(body)
		if strings.HasPrefix(l.Body, "{") && strings.HasSuffix(l.Body, "}") {
			l.Block = true
			l.Body = strings.TrimSpace(l.Body[1 : len(l.Body)-1])
		}
	case kindMap:
		b.checkKeys(n, "param", "body", "block", "scope")
		l.Param = n.get("param").str()
		l.Body = n.get("body").str()
		l.Block = n.get("block").isTrue()
		switch scope := n.get("scope").str(); scope {
		case "", "target":
		case "model":
			l.Scope = types.ScopeModel
		default:
			b.errorf(n, "unknown lambda scope %q", scope)
		}
	default:
		b.errorf(n, "lambda must be \"param => body\" or a mapping")
	}
	return l
}

// delegate decodes "Name" or {validator, async}.
func (b *builder) delegate(n *node) types.Invocation {
	inv := types.Invocation{Method: "ValidateWith", Loc: n.loc(b.file)}
	d := b.delegateDecl(n)
	inv.Delegate = &d
	return inv
}

func (b *builder) delegateDecl(n *node) types.DelegateDecl {
	if n.kind == kindMap {
		b.checkKeys(n, "validator", "async")
		return types.DelegateDecl{Validator: n.get("validator").str(), Async: n.get("async").isTrue()}
	}
	return types.DelegateDecl{Validator: n.str()}
}

func (b *builder) switchCall(branches, otherwise *node) types.Invocation {
	inv := types.Invocation{Method: "Switch", Loc: branches.loc(b.file)}
	for _, br := range b.seq(branches, "switch") {
		if br.kind != kindMap {
			b.errorf(br, "switch branch must be a mapping")
			continue
		}
		b.checkKeys(br, "type", "validateWith", "allow", "fail", "code")
		inv.Branches = append(inv.Branches, types.BranchDecl{
			Type:     br.get("type").str(),
			Behavior: b.behavior(br),
			Loc:      br.loc(b.file),
		})
	}
	if otherwise != nil {
		if otherwise.kind != kindMap {
			b.errorf(otherwise, "otherwise must be a mapping")
		} else {
			b.checkKeys(otherwise, "validateWith", "allow", "fail", "code")
			bh := b.behavior(otherwise)
			inv.Otherwise = &bh
		}
	}
	return inv
}

func (b *builder) behavior(n *node) types.BehaviorDecl {
	var bh types.BehaviorDecl
	if d := n.get("validateWith"); d != nil {
		decl := b.delegateDecl(d)
		bh.Delegate = &decl
	}
	bh.Allow = n.get("allow").isTrue()
	bh.Fail = n.get("fail").str()
	bh.Code = n.get("code").str()
	return bh
}
