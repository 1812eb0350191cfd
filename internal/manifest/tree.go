package manifest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Format-neutral document tree.
 *
 * YAML and JSON manifests are first decoded into the same node tree so one
 * walker builds the Unit. YAML nodes keep their line and column; JSON has
 * no positions (go-json does not report them) and its object keys are
 * visited in sorted order.
 */

type kind int

const (
	kindNull kind = iota
	kindScalar
	kindSeq
	kindMap
)

func (k kind) String() string {
	switch k {
	case kindScalar:
		return "scalar"
	case kindSeq:
		return "list"
	case kindMap:
		return "mapping"
	default:
		return "null"
	}
}

// Scalar tags, as resolved by the decoder.
const (
	tagStr   = "!!str"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagBool  = "!!bool"
)

type node struct {
	kind  kind
	value string
	tag   string
	items []*node // kindSeq
	keys  []*node // kindMap, parallel to vals
	vals  []*node
	line  int
	col   int
}

// get returns the value under key, or nil.
func (n *node) get(key string) *node {
	if n == nil || n.kind != kindMap {
		return nil
	}
	for i, k := range n.keys {
		if k.value == key {
			return n.vals[i]
		}
	}
	return nil
}

func (n *node) str() string {
	if n == nil || n.kind != kindScalar {
		return ""
	}
	return n.value
}

func (n *node) isTrue() bool {
	return n != nil && n.kind == kindScalar && n.tag == tagBool && strings.EqualFold(n.value, "true")
}

func (n *node) loc(file string) types.Location {
	if n == nil {
		return types.Location{File: file}
	}
	return types.Location{File: file, Line: n.line, Column: n.col}
}

func decodeYAML(data []byte) (*node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return &node{kind: kindNull}, nil
	}
	return fromYAML(&doc), nil
}

func fromYAML(y *yaml.Node) *node {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &node{kind: kindNull, line: y.Line, col: y.Column}
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.SequenceNode:
		n := &node{kind: kindSeq, line: y.Line, col: y.Column}
		for _, c := range y.Content {
			n.items = append(n.items, fromYAML(c))
		}
		return n
	case yaml.MappingNode:
		n := &node{kind: kindMap, line: y.Line, col: y.Column}
		for i := 0; i+1 < len(y.Content); i += 2 {
			n.keys = append(n.keys, fromYAML(y.Content[i]))
			n.vals = append(n.vals, fromYAML(y.Content[i+1]))
		}
		return n
	default:
		tag := y.ShortTag()
		if tag == "!!null" {
			return &node{kind: kindNull, line: y.Line, col: y.Column}
		}
		return &node{kind: kindScalar, value: y.Value, tag: tag, line: y.Line, col: y.Column}
	}
}

func decodeJSON(data []byte) (*node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return fromJSON(v)
}

func fromJSON(v any) (*node, error) {
	switch x := v.(type) {
	case nil:
		return &node{kind: kindNull}, nil
	case string:
		return &node{kind: kindScalar, value: x, tag: tagStr}, nil
	case bool:
		return &node{kind: kindScalar, value: fmt.Sprint(x), tag: tagBool}, nil
	case json.Number:
		tag := tagInt
		if strings.ContainsAny(x.String(), ".eE") {
			tag = tagFloat
		}
		return &node{kind: kindScalar, value: x.String(), tag: tag}, nil
	case []any:
		n := &node{kind: kindSeq}
		for _, item := range x {
			c, err := fromJSON(item)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, c)
		}
		return n, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &node{kind: kindMap}
		for _, k := range keys {
			c, err := fromJSON(x[k])
			if err != nil {
				return nil, err
			}
			n.keys = append(n.keys, &node{kind: kindScalar, value: k, tag: tagStr})
			n.vals = append(n.vals, c)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value %T", v)
	}
}
