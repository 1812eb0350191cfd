// internal/types/rules.go
package types

import "strings"

/*
 * Declaration types consumed by internal/rules.
 *
 * A Unit is one manifest: same-unit rule declarations plus validator
 * declarations. Each validator holds ordered chain declarations, each chain
 * a flat list of invocations exactly as written (rule calls interleaved with
 * their modifiers). Grouping, resolution and tree building happen in
 * internal/rules; nothing here is resolved.
 *
 * Key types:
 *   - RuleDefinition: one catalog entry (a Go function plus its parameters)
 *   - Invocation: one call in a chain (rule, modifier or structural built-in)
 *   - ValidationTarget: the value a chain validates, addressed by PathSegments
 *   - ArgumentValue: an argument's source text, static type and literal flag
 */

// PathSegment represents one component of a target path.
// Key for struct fields, Index for fixed indices, Wildcard for "every element".
type PathSegment struct {
	Key      string // struct field (mutually exclusive with Index/Wildcard)
	Index    int    // fixed index (mutually exclusive with Key/Wildcard)
	IsIndex  bool   // disambiguates Index=0 from unset
	Wildcard bool   // true = every element of the enclosing collection
}

// ValidationTarget is the value a chain validates.
type ValidationTarget struct {
	Path        []PathSegment
	Type        string // Go type expression, e.g. "string", "*Address", "[]Line"
	DisplayName string // overrides the last key segment in messages
}

// Name returns the display name: DisplayName, else the last field key.
func (t ValidationTarget) Name() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	for i := len(t.Path) - 1; i >= 0; i-- {
		if t.Path[i].Key != "" {
			return t.Path[i].Key
		}
	}
	return ""
}

// Wildcards counts wildcard segments (nested collection scopes).
func (t ValidationTarget) Wildcards() int {
	n := 0
	for _, seg := range t.Path {
		if seg.Wildcard {
			n++
		}
	}
	return n
}

// Element returns the target addressing every element of t.
// The element type is derived from a slice or array type expression.
func (t ValidationTarget) Element() (ValidationTarget, error) {
	elem, ok := ElementType(t.Type)
	if !ok {
		return ValidationTarget{}, ErrNotCollection
	}
	path := make([]PathSegment, len(t.Path), len(t.Path)+1)
	copy(path, t.Path)
	return ValidationTarget{
		Path:        append(path, PathSegment{Wildcard: true}),
		Type:        elem,
		DisplayName: t.DisplayName,
	}, nil
}

// ElementType returns T for "[]T" and "[N]T".
func ElementType(typ string) (string, bool) {
	typ = strings.TrimSpace(typ)
	if !strings.HasPrefix(typ, "[") {
		return "", false
	}
	end := strings.Index(typ, "]")
	if end < 0 || end == len(typ)-1 {
		return "", false
	}
	return strings.TrimSpace(typ[end+1:]), true
}

// Param is one rule parameter. The target parameter receives the validated value.
type Param struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Generic bool   `json:"generic,omitempty" yaml:"generic,omitempty"`
	Target  bool   `json:"target,omitempty" yaml:"target,omitempty"`
}

// RuleDefinition is one catalog entry: a rule name bound to a Go function.
// Several definitions may share a Name (overloads).
type RuleDefinition struct {
	Name         string            // invocation name, e.g. "HasMinLength"
	Func         string            // Go function identifier
	Import       string            // import path; empty for the generated package itself
	Package      string            // qualifier; defaults to the last element of Import
	Params       []Param           // first (or Target-flagged) parameter is the validated value
	Message      string            // default message template
	ErrorCode    string            // default error code
	Placeholders map[string]string // placeholder token -> parameter name
	Async        bool              // func(ctx, value, args...) (bool, error)
	Predicate    bool              // check is the trailing lambda (Must)
	NilFails     bool              // a nil pointer target fails instead of skipping
	Local        bool              // declared by the unit being compiled
	Loc          Location
}

// Qualifier returns the package qualifier used in generated calls, or "".
func (d RuleDefinition) Qualifier() string {
	if d.Package != "" {
		return d.Package
	}
	if d.Import == "" {
		return ""
	}
	return d.Import[strings.LastIndex(d.Import, "/")+1:]
}

// Qualified returns the callable name, e.g. "rules.HasMinLength".
func (d RuleDefinition) Qualified() string {
	if q := d.Qualifier(); q != "" {
		return q + "." + d.Func
	}
	return d.Func
}

// ArgumentValue is one invocation argument.
// Literal arguments can be baked into messages at generation time.
type ArgumentValue struct {
	Expr    string // Go source text
	Type    string // static type of Expr
	Literal bool
}

// LambdaScope selects what a lambda parameter binds to.
type LambdaScope int

const (
	ScopeTarget LambdaScope = iota // the chain's validated value
	ScopeModel                     // the validated model (*Model)
)

// Lambda is a trailing predicate body: either one boolean expression or,
// with Block set, a statement list that returns bool.
type Lambda struct {
	Param string
	Body  string
	Block bool
	Scope LambdaScope
	Loc   Location
}

// DelegateDecl names another validator that validates the target.
type DelegateDecl struct {
	Validator string
	Async     bool
}

// BehaviorDecl is what a polymorphic branch does. Exactly one field applies.
type BehaviorDecl struct {
	Delegate *DelegateDecl
	Allow    bool
	Fail     string // message for the synthetic error
	Code     string
}

// BranchDecl is one polymorphic branch keyed by a dynamic type.
type BranchDecl struct {
	Type     string
	Behavior BehaviorDecl
	Loc      Location
}

// Invocation is one call in a chain as written.
// Structural built-ins carry their payload in Each, Delegate or Branches.
type Invocation struct {
	Method    string
	Args      []ArgumentValue
	Lambda    *Lambda
	Each      *ChainDecl
	Delegate  *DelegateDecl
	Branches  []BranchDecl
	Otherwise *BehaviorDecl
	Loc       Location
}

// ChainDecl is one Ensure declaration: a target and its invocations.
type ChainDecl struct {
	Target    ValidationTarget
	OnFailure OnFailure
	If        *Lambda
	Calls     []Invocation
	Loc       Location
}

// ValidatorDecl binds a model type to its ordered chains.
type ValidatorDecl struct {
	Name      string
	Model     string
	Async     bool
	OnFailure OnFailure
	Chains    []ChainDecl
	Loc       Location
}

// Unit is one compilation unit (one manifest, one generated file).
type Unit struct {
	File       string
	Package    string
	Imports    []string
	Rules      []RuleDefinition
	Validators []ValidatorDecl
}
