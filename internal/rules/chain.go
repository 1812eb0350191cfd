// internal/rules/chain.go
package rules

import (
	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Compiled chain tree.
 *
 * A Validator owns its Chains in declaration order. A Chain owns Steps in
 * invocation order; nothing is ever reordered. Steps are a closed set of
 * variants dispatched with type switches:
 *
 *   - *RuleStep:     one resolved rule invocation (a leaf failure site)
 *   - *EachStep:     iterate the target and run an item chain per element
 *   - *DelegateStep: hand the target to another validator
 *   - *SwitchStep:   dispatch on the dynamic type of the target
 *
 * RuleCount counts leaf failure sites. The assembler pre-sizes the error
 * list from it, so every variant must agree with what the assembler emits:
 * one site per rule, per delegation and per failing branch behaviour.
 */

// ResolveMode records which pass produced a ResolvedRule.
// Generated code never depends on it.
type ResolveMode int

const (
	ModeRich ResolveMode = iota // resolved against the external catalog in pass (a)
	ModeWeak                    // deferred to pass (b)
)

// BoundArg is an explicit argument bound to its parameter.
type BoundArg struct {
	Param types.Param
	Value types.ArgumentValue
}

// MetadataEntry is one WithMetadata pair.
type MetadataEntry struct {
	Key   string
	Value types.ArgumentValue
}

// Overrides holds what modifiers folded into a rule.
type Overrides struct {
	Message     string
	MessageExpr bool
	HasMessage  bool
	ErrorCode   string
	TargetName  string
	Severity    types.Severity
	HasSeverity bool
	Metadata    []MetadataEntry
}

// ResolvedRule is a rule invocation bound to exactly one definition.
type ResolvedRule struct {
	Mode      ResolveMode
	Method    string
	Def       *types.RuleDefinition
	Args      []BoundArg // explicit arguments; excludes the target and the predicate lambda
	Overrides Overrides
	If        *Guard    // rule-level condition
	Predicate Condition // BlankCondition unless Def.Predicate

	Message      string // effective template
	MessageExpr  bool   // Message is a Go expression rather than literal text
	Code         string // effective error code
	Placeholders map[string]string
	Loc          types.Location
}

// Arg returns the argument bound to the named parameter.
func (r ResolvedRule) Arg(param string) (types.ArgumentValue, bool) {
	for _, a := range r.Args {
		if a.Param.Name == param {
			return a.Value, true
		}
	}
	return types.ArgumentValue{}, false
}

// Step is one element of a chain.
type Step interface {
	sites() int
	isStep()
}

// RuleStep applies one rule.
type RuleStep struct {
	Rule ResolvedRule
}

// EachStep runs Item once per element of the enclosing chain's target.
type EachStep struct {
	Item *Chain
}

// DelegateStep validates the target with another validator.
type DelegateStep struct {
	Validator string
	Async     bool
	Loc       types.Location
}

// SwitchStep dispatches on the dynamic type of the target.
// First matching branch wins; Otherwise may be nil.
type SwitchStep struct {
	Branches  []Branch
	Otherwise Behavior
	Loc       types.Location
}

// Branch is one type-keyed arm of a SwitchStep.
type Branch struct {
	Type     string
	Behavior Behavior
}

// Behavior is what a branch does once selected.
type Behavior interface {
	sites() int
	isBehavior()
}

// DelegateBehavior validates the narrowed value with another validator.
type DelegateBehavior struct {
	Validator string
	Async     bool
}

// AllowBehavior accepts the value.
type AllowBehavior struct{}

// FailBehavior appends one synthetic error.
type FailBehavior struct {
	Message string
	Code    string
}

func (*RuleStep) isStep()     {}
func (*EachStep) isStep()     {}
func (*DelegateStep) isStep() {}
func (*SwitchStep) isStep()   {}

func (*RuleStep) sites() int     { return 1 }
func (s *EachStep) sites() int   { return s.Item.RuleCount() }
func (*DelegateStep) sites() int { return 1 }
func (s *SwitchStep) sites() int {
	n := 0
	for _, b := range s.Branches {
		n += b.Behavior.sites()
	}
	if s.Otherwise != nil {
		n += s.Otherwise.sites()
	}
	return n
}

func (DelegateBehavior) isBehavior() {}
func (AllowBehavior) isBehavior()    {}
func (FailBehavior) isBehavior()     {}

func (DelegateBehavior) sites() int { return 1 }
func (AllowBehavior) sites() int    { return 0 }
func (FailBehavior) sites() int     { return 1 }

// Chain is one Ensure declaration (or an item scope) bound to its target.
type Chain struct {
	Target    types.ValidationTarget
	OnFailure types.OnFailure // may be Inherit; resolved by the assembler
	If        *Guard
	Steps     []Step
	Loc       types.Location
}

// RuleCount counts the chain's leaf failure sites.
func (c *Chain) RuleCount() int {
	n := 0
	for _, s := range c.Steps {
		n += s.sites()
	}
	return n
}

// Validator binds a model type to its chains.
type Validator struct {
	Name      string
	Model     string
	Async     bool
	OnFailure types.OnFailure // never Inherit
	Chains    []*Chain
	Loc       types.Location
}

// RuleCount counts failure sites across all chains.
func (v *Validator) RuleCount() int {
	n := 0
	for _, c := range v.Chains {
		n += c.RuleCount()
	}
	return n
}

// Definitions returns every rule definition referenced by v, in traversal order.
func (v *Validator) Definitions() []*types.RuleDefinition {
	var defs []*types.RuleDefinition
	var walk func(c *Chain)
	walk = func(c *Chain) {
		for _, s := range c.Steps {
			switch s := s.(type) {
			case *RuleStep:
				defs = append(defs, s.Rule.Def)
			case *EachStep:
				walk(s.Item)
			}
		}
	}
	for _, c := range v.Chains {
		walk(c)
	}
	return defs
}

// CompiledUnit is the compiled form of one manifest.
type CompiledUnit struct {
	File       string
	Package    string
	Imports    []string
	Validators []*Validator
}

// buildChain converts a settled draft into a Chain. Unresolved invocations
// were diagnosed earlier and are skipped; a pending one here is an internal error.
func buildChain(d *draftChain) (*Chain, []types.Diagnostic) {
	chain := &Chain{
		Target:    d.target,
		OnFailure: d.decl.OnFailure,
		If:        d.guard,
		Loc:       d.decl.Loc,
	}
	var diags []types.Diagnostic
	for _, s := range d.steps {
		switch s := s.(type) {
		case draftRule:
			switch r := s.res.(type) {
			case resolved:
				chain.Steps = append(chain.Steps, &RuleStep{Rule: r.rule})
			case pending:
				diags = append(diags, types.Errorf(types.CodeInternal, r.group.call.Loc,
					"invocation %q still pending after the second resolution pass", r.group.call.Method))
			case unresolved:
			}
		case draftEach:
			item, itemDiags := buildChain(s.item)
			diags = append(diags, itemDiags...)
			if len(item.Steps) == 0 {
				continue
			}
			chain.Steps = append(chain.Steps, &EachStep{Item: item})
		case draftStructural:
			chain.Steps = append(chain.Steps, s.step)
		}
	}
	return chain, diags
}
