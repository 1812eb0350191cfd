// internal/rules/signature.go
package rules

import (
	"strings"

	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Signature matching for overload resolution.
 *
 * Compares a definition's parameter types with the static types at a call
 * site. The argument list always starts with the target type, followed by
 * the explicit arguments and, for predicate rules, the lambda ("func").
 *
 * Types are compared after normalization: surrounding whitespace, a leading
 * pointer marker and a trailing nullable marker are ignored, so "T", "*T"
 * and "T?" are equivalent.
 *
 * A mismatch on a generic parameter degrades the match to Partial and
 * scanning continues; a mismatch on any other parameter is None at once.
 */

// MatchKind grades how well a definition fits a call site.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchPartial
	MatchFull
)

func (k MatchKind) String() string {
	switch k {
	case MatchFull:
		return "full"
	case MatchPartial:
		return "partial"
	default:
		return "none"
	}
}

// Match grades params against argTypes.
func Match(params []types.Param, argTypes []string) MatchKind {
	if len(params) != len(argTypes) {
		return MatchNone
	}
	kind := MatchFull
	for i, p := range params {
		if normalizeType(p.Type) == normalizeType(argTypes[i]) {
			continue
		}
		if !p.Generic {
			return MatchNone
		}
		kind = MatchPartial
	}
	return kind
}

// normalizeType strips whitespace, one leading '*' and one trailing '?'.
// Every func type collapses to "func": lambdas carry no static signature.
func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "?")
	t = strings.TrimPrefix(t, "*")
	t = strings.TrimSpace(t)
	if strings.HasPrefix(t, "func") {
		return "func"
	}
	return t
}

// bestMatch picks the overload for argTypes. A Full match wins immediately;
// otherwise the last Partial in declaration order is kept.
func bestMatch(candidates []types.RuleDefinition, argTypes []string) (types.RuleDefinition, MatchKind) {
	var best types.RuleDefinition
	bestKind := MatchNone
	for _, c := range candidates {
		switch Match(c.Params, argTypes) {
		case MatchFull:
			return c, MatchFull
		case MatchPartial:
			best, bestKind = c, MatchPartial
		}
	}
	return best, bestKind
}
