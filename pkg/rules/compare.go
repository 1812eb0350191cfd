package rules

import (
	"cmp"
	"reflect"
)

/*
 * Comparison rules.
 *
 * Numeric comparison accepts any integer or float kind (including named
 * types) on either side. Two integers compare exactly, signed against
 * unsigned included; a float on either side compares as float64. A value
 * that is not a number makes ordering rules fail; nil makes them pass.
 *
 * Equality: numbers compare numerically so IsEqualTo(int64(3), 3) holds;
 * everything else uses reflect.DeepEqual on the dereferenced values.
 */

// IsGreaterThan reports whether v > bound.
func IsGreaterThan(v, bound any) bool {
	c, ok := compareNumeric(v, bound)
	return c.passes(ok, func(n int) bool { return n > 0 })
}

// IsGreaterThanInt is the int overload of IsGreaterThan.
func IsGreaterThanInt(v, bound int) bool {
	return v > bound
}

// IsGreaterThanOrEqualTo reports whether v >= bound.
func IsGreaterThanOrEqualTo(v, bound any) bool {
	c, ok := compareNumeric(v, bound)
	return c.passes(ok, func(n int) bool { return n >= 0 })
}

// IsLessThan reports whether v < bound.
func IsLessThan(v, bound any) bool {
	c, ok := compareNumeric(v, bound)
	return c.passes(ok, func(n int) bool { return n < 0 })
}

// IsLessThanOrEqualTo reports whether v <= bound.
func IsLessThanOrEqualTo(v, bound any) bool {
	c, ok := compareNumeric(v, bound)
	return c.passes(ok, func(n int) bool { return n <= 0 })
}

// IsBetween reports whether lo <= v <= hi.
func IsBetween(v, lo, hi any) bool {
	return IsGreaterThanOrEqualTo(v, lo) && IsLessThanOrEqualTo(v, hi)
}

// IsEqualTo reports whether v equals want.
func IsEqualTo(v, want any) bool {
	return equal(v, want)
}

// IsNotEqualTo reports whether v differs from want.
func IsNotEqualTo(v, want any) bool {
	return !equal(v, want)
}

// IsOneOf reports whether v equals one of options. A nil v passes.
func IsOneOf(v any, options []any) bool {
	if _, ok := indirect(v); !ok {
		return true
	}
	for _, o := range options {
		if equal(v, o) {
			return true
		}
	}
	return false
}

// comparison is a three-way result; nilValue marks a nil left operand.
type comparison struct {
	n        int
	nilValue bool
}

func (c comparison) passes(ok bool, pred func(int) bool) bool {
	if c.nilValue {
		return true
	}
	return ok && pred(c.n)
}

func compareNumeric(a, b any) (comparison, bool) {
	if _, ok := indirect(a); !ok {
		return comparison{nilValue: true}, true
	}
	na, oka := toNumber(a)
	nb, okb := toNumber(b)
	if !oka || !okb {
		return comparison{}, false
	}
	return comparison{n: na.compare(nb)}, true
}

func equal(a, b any) bool {
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return na.compare(nb) == 0
		}
	}
	ra, oka := indirect(a)
	rb, okb := indirect(b)
	if !oka || !okb {
		return oka == okb
	}
	return reflect.DeepEqual(ra.Interface(), rb.Interface())
}

type numberKind int

const (
	signed numberKind = iota
	unsigned
	floating
)

// number keeps integers exact; only a float operand forces float64.
type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func (n number) float() float64 {
	switch n.kind {
	case signed:
		return float64(n.i)
	case unsigned:
		return float64(n.u)
	default:
		return n.f
	}
}

func (n number) compare(o number) int {
	switch {
	case n.kind == signed && o.kind == signed:
		return cmp.Compare(n.i, o.i)
	case n.kind == unsigned && o.kind == unsigned:
		return cmp.Compare(n.u, o.u)
	case n.kind == signed && o.kind == unsigned:
		if n.i < 0 {
			return -1
		}
		return cmp.Compare(uint64(n.i), o.u)
	case n.kind == unsigned && o.kind == signed:
		return -o.compare(n)
	default:
		return cmp.Compare(n.float(), o.float())
	}
}

// toNumber reads any integer or float kind, including named types.
func toNumber(v any) (number, bool) {
	rv, ok := indirect(v)
	if !ok {
		return number{}, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: signed, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: unsigned, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: floating, f: rv.Float()}, true
	default:
		return number{}, false
	}
}
