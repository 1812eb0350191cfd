// internal/rules/catalog.go
package rules

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Rule catalog.
 *
 * Maps a rule name to its overloads in declaration order. A catalog is
 * immutable once built: Merge returns a new catalog, so one snapshot can be
 * shared by concurrent compilations.
 *
 * Admission: a declaration enters the catalog only if it names a Go
 * function, declares at least one parameter, keeps the validated value as
 * the first parameter and gives every parameter a unique name and a type.
 * Predicate rules must end with a func parameter. Rejected declarations
 * produce ENS010 and are left out; resolution then reports ENS001 at every
 * call site that needed them.
 */

// Catalog is an immutable name -> overloads table.
type Catalog struct {
	byName map[string][]types.RuleDefinition
	size   int
}

// NewCatalog admits defs and reports every rejected declaration.
func NewCatalog(defs []types.RuleDefinition) (*Catalog, []types.Diagnostic) {
	c := &Catalog{byName: make(map[string][]types.RuleDefinition)}
	var diags []types.Diagnostic
	for _, def := range defs {
		if reason := admissionError(def); reason != "" {
			diags = append(diags, types.Errorf(types.CodeInvalidRule, def.Loc, "%s", reason))
			continue
		}
		c.byName[def.Name] = append(c.byName[def.Name], def)
		c.size++
	}
	return c, diags
}

// admissionError returns why def cannot enter a catalog, or "".
func admissionError(def types.RuleDefinition) string {
	if def.Name == "" {
		return "rule declaration has no name"
	}
	if def.Func == "" {
		return fmt.Sprintf("rule %q does not name a Go function", def.Name)
	}
	if len(def.Params) == 0 {
		return fmt.Sprintf("rule %q declares no parameters; the first parameter must be the validated value", def.Name)
	}
	seen := make(map[string]bool, len(def.Params))
	for i, p := range def.Params {
		if p.Name == "" || p.Type == "" {
			return fmt.Sprintf("parameter %d of rule %q needs a name and a type", i+1, def.Name)
		}
		if seen[p.Name] {
			return fmt.Sprintf("rule %q declares parameter %q twice", def.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Target && i > 0 {
			return fmt.Sprintf("rule %q marks parameter %q as target; the target must be the first parameter", def.Name, p.Name)
		}
	}
	if def.Predicate {
		last := def.Params[len(def.Params)-1]
		if len(def.Params) < 2 || !strings.HasPrefix(strings.TrimSpace(last.Type), "func") {
			return fmt.Sprintf("predicate rule %q must end with a func parameter", def.Name)
		}
		if def.Async {
			return fmt.Sprintf("predicate rule %q cannot be async", def.Name)
		}
	}
	return ""
}

// Lookup returns the overloads registered under name, in declaration order.
func (c *Catalog) Lookup(name string) []types.RuleDefinition {
	if c == nil {
		return nil
	}
	return c.byName[name]
}

// Has reports whether any overload is registered under name.
func (c *Catalog) Has(name string) bool {
	return len(c.Lookup(name)) > 0
}

// Len returns the number of admitted definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return c.size
}

// Names returns the registered rule names, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a catalog holding c's overloads followed by other's.
// Neither receiver nor argument is modified.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	merged := &Catalog{byName: make(map[string][]types.RuleDefinition)}
	for _, src := range []*Catalog{c, other} {
		if src == nil {
			continue
		}
		for name, defs := range src.byName {
			merged.byName[name] = append(merged.byName[name], defs...)
			merged.size += len(defs)
		}
	}
	return merged
}

// Fingerprint is a content hash of the catalog, stable across runs.
// Used to invalidate generation caches when a catalog file changes.
func (c *Catalog) Fingerprint() string {
	h := sha256.New()
	for _, name := range c.Names() {
		for _, def := range c.byName[name] {
			def.Loc = types.Location{}
			b, err := json.Marshal(def)
			if err != nil {
				// RuleDefinition holds only strings, bools and maps of strings
				panic(fmt.Sprintf("rules: fingerprint %s: %v", name, err))
			}
			h.Write(b)
			h.Write([]byte{'\n'})
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
