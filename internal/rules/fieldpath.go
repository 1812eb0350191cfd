// internal/rules/fieldpath.go
package rules

import (
	"go/token"
	"strconv"
	"strings"

	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Target path parsing and limits.
 *
 * Manifests address targets with dotted field paths: "Name",
 * "Address.City", "Lines[0].Sku", "Lines[*].Sku". ParsePath turns them into
 * PathSegments; FormatPath is its inverse. checkTarget enforces
 * MaxPathDepth (16) and MaxNestedCollections (4) at compile time so the
 * generated code never nests more loops than the limit allows.
 *
 * Wildcard segments are produced by EnsureEach/ForEach scopes. ParsePath
 * accepts "[*]" so paths round-trip, but a top-level chain target may not
 * contain one: there is no loop to bind it.
 */

// ParsePath parses a dotted target path.
func ParsePath(s string) ([]types.PathSegment, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, types.ErrEmptyPath
	}

	var path []types.PathSegment
	for _, part := range strings.Split(s, ".") {
		key := part
		rest := ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			key, rest = part[:i], part[i:]
		}
		if key != "" {
			if !token.IsIdentifier(key) {
				return nil, types.ErrInvalidPath
			}
			path = append(path, types.PathSegment{Key: key})
		} else if len(path) == 0 {
			// a path cannot start with an index
			return nil, types.ErrInvalidPath
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, types.ErrInvalidPath
			}
			inner := rest[1:end]
			rest = rest[end+1:]
			if inner == "*" {
				path = append(path, types.PathSegment{Wildcard: true})
				continue
			}
			idx, err := strconv.Atoi(inner)
			if err != nil || idx < 0 {
				return nil, types.ErrInvalidPath
			}
			path = append(path, types.PathSegment{Index: idx, IsIndex: true})
		}
		if key == "" && part == "" {
			return nil, types.ErrInvalidPath
		}
	}

	if len(path) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	return path, nil
}

// FormatPath renders path in ParsePath syntax.
func FormatPath(path []types.PathSegment) string {
	var b strings.Builder
	for _, seg := range path {
		switch {
		case seg.Wildcard:
			b.WriteString("[*]")
		case seg.IsIndex:
			b.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

// checkTarget enforces path limits on a chain target.
func checkTarget(target types.ValidationTarget, loc types.Location) *types.Diagnostic {
	var err error
	switch {
	case len(target.Path) == 0:
		err = types.ErrEmptyPath
	case len(target.Path) > types.MaxPathDepth:
		err = types.ErrPathTooDeep
	case target.Wildcards() > types.MaxNestedCollections:
		err = types.ErrTooManyCollections
	}
	if err == nil {
		return nil
	}
	d := types.Errorf(types.CodePathLimit, loc, "target %q: %v", FormatPath(target.Path), err)
	return &d
}
