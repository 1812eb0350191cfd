// Package valid is the runtime support imported by generated validators.
//
// Generated Validate methods return Errors: nil when the model is valid,
// otherwise one Error per failed rule in declaration order.
package valid

import (
	"strconv"
	"strings"
)

// Severity grades a failure. The zero value is SeverityError.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// Error is one failed rule.
type Error struct {
	Code           string         `json:"code"`
	Message        string         `json:"message"`
	TargetName     string         `json:"targetName"`
	Path           string         `json:"path"` // e.g. "Lines[2].Sku"
	AttemptedValue any            `json:"attemptedValue,omitempty"`
	Severity       Severity       `json:"severity,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (e Error) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Errors is the result of one Validate call.
type Errors []Error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Err returns es as an error, or nil when es is empty.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// WithPrefix returns a copy of es with every path placed under prefix.
// Used when a nested validator's result is merged into its parent's.
func (es Errors) WithPrefix(prefix string) Errors {
	out := make(Errors, len(es))
	for i, e := range es {
		e.Path = Join(prefix, e.Path)
		out[i] = e
	}
	return out
}

// Has reports whether any error carries code.
func (es Errors) Has(code string) bool {
	for _, e := range es {
		if e.Code == code {
			return true
		}
	}
	return false
}

// ByPath returns the errors reported at exactly path.
func (es Errors) ByPath(path string) Errors {
	var out Errors
	for _, e := range es {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// Blocking returns the errors with SeverityError.
func (es Errors) Blocking() Errors {
	var out Errors
	for _, e := range es {
		if e.Severity == SeverityError {
			out = append(out, e)
		}
	}
	return out
}

// Index extends path with an element index: Index("Lines", 2) is "Lines[2]".
func Index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// Join places path under prefix. Index paths attach without a dot.
func Join(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	case strings.HasPrefix(path, "["):
		return prefix + path
	default:
		return prefix + "." + path
	}
}
