// Package rules holds the built-in rule functions and their catalog.
//
// Every function returns true when the value is valid. Functions taking
// the value as any accept pointers and dereference them; a nil value
// passes every rule except the null and emptiness checks, so optional
// fields are only constrained when present.
package rules

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// indirect follows pointers and interfaces. ok is false for nil.
func indirect(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}

// IsNotNull reports whether v is not nil.
func IsNotNull(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// IsNull reports whether v is nil.
func IsNull(v any) bool {
	return !IsNotNull(v)
}

// IsNotEmpty reports whether v is neither nil nor its type's empty value.
// Strings, slices, maps and arrays are empty at length zero.
func IsNotEmpty(v any) bool {
	rv, ok := indirect(v)
	if !ok {
		return false
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	}
	return !rv.IsZero()
}

// IsNotEmptyString is the string-typed IsNotEmpty.
func IsNotEmptyString(s string) bool {
	return s != ""
}

// IsEmpty is the negation of IsNotEmpty.
func IsEmpty(v any) bool {
	return !IsNotEmpty(v)
}

// IsNotNullOrWhiteSpace reports whether s has a non-space rune.
// Declared nilFails: a nil *string fails.
func IsNotNullOrWhiteSpace(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) >= 0
}

// HasMinLength reports whether s has at least min runes.
func HasMinLength(s string, min int) bool {
	return utf8.RuneCountInString(s) >= min
}

// HasMaxLength reports whether s has at most max runes.
func HasMaxLength(s string, max int) bool {
	return utf8.RuneCountInString(s) <= max
}

// HasLengthBetween reports whether s has min..max runes, inclusive.
func HasLengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

// HasMinCount reports whether the collection v has at least min elements.
func HasMinCount(v any, min int) bool {
	n, ok := count(v)
	return !ok || n >= min
}

// HasMaxCount reports whether the collection v has at most max elements.
func HasMaxCount(v any, max int) bool {
	n, ok := count(v)
	return !ok || n <= max
}

func count(v any) (int, bool) {
	rv, ok := indirect(v)
	if !ok {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len(), true
	}
	return 0, false
}

// Must is the predicate rule: check decides. Generated code inlines the
// check instead of calling Must.
func Must[T any](v T, check func(T) bool) bool {
	return check(v)
}
