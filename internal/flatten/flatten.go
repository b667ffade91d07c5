package flatten

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultSeparator joins path segments.
const DefaultSeparator = "."

const mergeTag = "!!merge"

// Option configures flattening.
type Option func(*flattener)

// WithSeparator overrides the path separator. An empty separator is ignored.
func WithSeparator(sep string) Option {
	return func(f *flattener) {
		if sep != "" {
			f.sep = sep
		}
	}
}

type flattener struct {
	sep string
}

func newFlattener(opts []Option) *flattener {
	f := &flattener{sep: DefaultSeparator}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Node flattens a parsed YAML document in document order. Every mapping or
// sequence is stored decoded at its own path and then descended into, so
// both "list" and "list.0" are present. A root sequence is keyed by index.
// A nil, empty or scalar root yields an empty Map.
func Node(root *yaml.Node, opts ...Option) (*Map, error) {
	f := newFlattener(opts)
	out := NewMap()
	if root == nil {
		return out, nil
	}
	if err := f.node("", root, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Value flattens plain Go values as produced by a YAML decoder
// (map[string]any, map[any]any, []any). Map keys are visited in sorted order.
func Value(v any, opts ...Option) *Map {
	f := newFlattener(opts)
	out := NewMap()
	f.valueChildren("", v, out)
	return out
}

func (f *flattener) join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + f.sep + key
}

func (f *flattener) node(prefix string, n *yaml.Node, out *Map) error {
	n = deref(n)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		if hasMergeKey(n) {
			var v any
			if err := n.Decode(&v); err != nil {
				return fmt.Errorf("decode %q: %w", prefix, err)
			}
			f.valueChildren(prefix, v, out)
			return nil
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := keyString(n.Content[i])
			if err != nil {
				return err
			}
			if err := f.entry(f.join(prefix, key), n.Content[i+1], out); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		for i, child := range n.Content {
			if err := f.entry(f.join(prefix, strconv.Itoa(i)), child, out); err != nil {
				return err
			}
		}
	}

	return nil
}

func (f *flattener) entry(path string, child *yaml.Node, out *Map) error {
	var v any
	if err := child.Decode(&v); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	out.Set(path, v)

	if isComposite(deref(child)) {
		return f.node(path, child, out)
	}
	return nil
}

func (f *flattener) valueChildren(prefix string, v any, out *Map) {
	switch typed := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			f.valueEntry(f.join(prefix, k), typed[k], out)
		}

	case map[any]any:
		keys := make([]string, 0, len(typed))
		byKey := make(map[string]any, len(typed))
		for k, child := range typed {
			s := fmt.Sprint(k)
			keys = append(keys, s)
			byKey[s] = child
		}
		sort.Strings(keys)
		for _, k := range keys {
			f.valueEntry(f.join(prefix, k), byKey[k], out)
		}

	case []any:
		for i, child := range typed {
			f.valueEntry(f.join(prefix, strconv.Itoa(i)), child, out)
		}
	}
}

func (f *flattener) valueEntry(path string, v any, out *Map) {
	out.Set(path, v)
	switch v.(type) {
	case map[string]any, map[any]any, []any:
		f.valueChildren(path, v, out)
	}
}

// StringKeys returns v with every map[any]any (a YAML mapping with
// non-string keys) rewritten as map[string]any, so the tree can be JSON
// encoded. Other values are shared, not copied.
func StringKeys(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, child := range typed {
			out[k] = StringKeys(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, child := range typed {
			out[fmt.Sprint(k)] = StringKeys(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = StringKeys(child)
		}
		return out
	default:
		return v
	}
}

// deref unwraps document and alias nodes.
func deref(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func isComposite(n *yaml.Node) bool {
	return n != nil && (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode)
}

func hasMergeKey(n *yaml.Node) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; k.Kind == yaml.ScalarNode && (k.Tag == mergeTag || (k.Tag == "" && k.Value == "<<")) {
			return true
		}
	}
	return false
}

func keyString(k *yaml.Node) (string, error) {
	k = deref(k)
	if k == nil {
		return "", nil
	}
	if k.Kind == yaml.ScalarNode {
		return k.Value, nil
	}
	var v any
	if err := k.Decode(&v); err != nil {
		return "", fmt.Errorf("decode mapping key: %w", err)
	}
	return fmt.Sprint(v), nil
}
