// Package types provides domain models shared across ensuregen components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library so the manifest front-end, the compiler and the service
// layer can all share them. ID utilities in ids.go import uuid but are
// isolated from the compiler packages.
package types

import (
	"fmt"
	"strings"
)

// OnFailure controls evaluation of a chain after one of its rules fails.
// Inherit defers to the enclosing scope (validator default, parent chain).
type OnFailure int

const (
	OnFailureInherit OnFailure = iota
	OnFailureContinue
	OnFailureHalt
)

// ParseOnFailure converts a manifest string to OnFailure.
// Empty and "inherit" both map to OnFailureInherit.
func ParseOnFailure(s string) (OnFailure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inherit":
		return OnFailureInherit, nil
	case "continue":
		return OnFailureContinue, nil
	case "halt", "stop":
		return OnFailureHalt, nil
	default:
		return OnFailureInherit, fmt.Errorf("%w: %q", ErrUnknownOnFailure, s)
	}
}

func (m OnFailure) String() string {
	switch m {
	case OnFailureContinue:
		return "continue"
	case OnFailureHalt:
		return "halt"
	default:
		return "inherit"
	}
}

// Resolve returns m unless it is Inherit, in which case parent is returned.
func (m OnFailure) Resolve(parent OnFailure) OnFailure {
	if m == OnFailureInherit {
		return parent
	}
	return m
}

// Severity grades both generated validation errors and compiler diagnostics.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// ParseSeverity converts a manifest string to Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	default:
		return SeverityError, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "error"
	}
}

// Location points at a declaration in a manifest.
// Line and Column are 1-based; zero means unknown.
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<manifest>"
	}
	if l.Line == 0 {
		return file
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// Diagnostic codes. Codes are stable; tooling may match on them.
const (
	CodeUnknownRule        = "ENS001"
	CodeMalformedLambda    = "ENS002"
	CodeMissingLambdaParam = "ENS003"
	CodeOrphanModifier     = "ENS004"
	CodeAsyncInSync        = "ENS005"
	CodeBadModifierArg     = "ENS006"
	CodeNotCollection      = "ENS007"
	CodeDuplicateBranch    = "ENS008"
	CodePathLimit          = "ENS009"
	CodeInvalidRule        = "ENS010"
	CodeManifest           = "ENS011"
	CodeStructural         = "ENS020"
	CodeInternal           = "ENS099"
)

// Diagnostic is a compile-time report attached to a source location.
// Validator is empty for diagnostics that concern rule declarations.
type Diagnostic struct {
	Code      string   `json:"code"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Loc       Location `json:"location"`
	Validator string   `json:"validator,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Loc, d.Code, d.Severity, d.Message)
}

// Errorf builds an error-severity diagnostic.
func Errorf(code string, loc Location, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Loc:      loc,
	}
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Compile-time limits enforced on manifests.
const (
	// MaxPathDepth bounds target accessor depth (x.a.b.c...).
	MaxPathDepth = 16

	// MaxNestedCollections bounds nested EnsureEach scopes; each one adds a loop and an index variable.
	MaxNestedCollections = 4

	// MaxManifestSize bounds manifests accepted by the compile service.
	MaxManifestSize = 4 * 1024 * 1024
)
