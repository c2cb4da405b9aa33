package xmltree

import (
	"bytes"
	"encoding/json"
)

// TextKey holds an element's own text when it also carries attributes or children.
const TextKey = "text"

// Node is a flattened XML element: a Scalar, a *Map or a List.
type Node interface {
	node()
}

// Scalar is a leaf element collapsed to its trimmed text.
type Scalar string

// List holds the values of a tag that appeared more than once under the same parent.
type List []Node

// Map is an insertion-ordered mapping of tag (or attribute) names to nodes.
type Map struct {
	keys   []string
	values map[string]Node
}

func (Scalar) node() {}
func (List) node()   {}
func (*Map) node()   {}

// NewMap returns an empty mapping.
func NewMap() *Map {
	return &Map{values: make(map[string]Node)}
}

// Add inserts n under key. A key seen before is promoted to a List and n is appended to it.
func (m *Map) Add(key string, n Node) {
	existing, ok := m.values[key]
	if !ok {
		m.keys = append(m.keys, key)
		m.values[key] = n
		return
	}
	if list, isList := existing.(List); isList {
		m.values[key] = append(list, n)
		return
	}
	m.values[key] = List{existing, n}
}

func (m *Map) Get(key string) (Node, bool) {
	if m == nil {
		return nil, false
	}
	n, ok := m.values[key]
	return n, ok
}

// Keys returns the keys in document order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Scalar returns the text stored under key if that value is a Scalar.
func (m *Map) Scalar(key string) (string, bool) {
	n, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := n.(Scalar)
	return string(s), ok
}

// Child returns the mapping stored under key if that value is a *Map.
func (m *Map) Child(key string) (*Map, bool) {
	n, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	c, ok := n.(*Map)
	return c, ok
}

// Items normalizes the value under key to a slice: absent yields nil, a List yields its
// elements and anything else yields a one-element slice.
func (m *Map) Items(key string) []Node {
	n, ok := m.Get(key)
	if !ok {
		return nil
	}
	if list, isList := n.(List); isList {
		return list
	}
	return []Node{n}
}

// MarshalJSON writes the mapping as a JSON object in key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
