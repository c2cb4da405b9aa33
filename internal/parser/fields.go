package parser

import (
	"strconv"
	"strings"

	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"go.uber.org/multierr"
)

// fields reads typed values out of one flattened element. Absent keys yield the zero value;
// conversion failures are accumulated in err and also yield the zero value.
type fields struct {
	m    *xmltree.Map
	path string
	err  error
}

func newFields(m *xmltree.Map, path string) *fields {
	return &fields{m: m, path: path}
}

func (f *fields) at(key string) string {
	if f.path == "" {
		return key
	}
	return f.path + "." + key
}

func (f *fields) fail(err error) {
	f.err = multierr.Append(f.err, err)
}

func (f *fields) has(key string) bool {
	_, ok := f.m.Get(key)
	return ok
}

// text returns the text under key. An element that also carried attributes contributes
// its text value; an empty element counts as empty text.
func (f *fields) text(key string) (string, bool) {
	n, ok := f.m.Get(key)
	if !ok {
		return "", false
	}
	switch v := n.(type) {
	case xmltree.Scalar:
		return string(v), true
	case *xmltree.Map:
		if s, ok := v.Scalar(xmltree.TextKey); ok {
			return s, true
		}
		if v.Len() == 0 {
			return "", true
		}
	}
	f.fail(&SchemaMismatchError{Path: f.at(key), Want: "text", Got: kind(n)})
	return "", false
}

func (f *fields) str(key string) string {
	return f.strOr(key, "")
}

func (f *fields) strOr(key, def string) string {
	if s, ok := f.text(key); ok {
		return s
	}
	return def
}

// boolean is true only for a case-insensitive "true".
func (f *fields) boolean(key string) bool {
	s, _ := f.text(key)
	return strings.EqualFold(s, "true")
}

func (f *fields) integer(key string) int {
	s, ok := f.text(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f.fail(&CoercionError{Field: f.at(key), Value: s, Cause: err})
		return 0
	}
	return n
}

// child returns a reader over the nested element key. An absent key yields a reader with
// no values.
func (f *fields) child(key string) *fields {
	n, ok := f.m.Get(key)
	if !ok {
		return &fields{path: f.at(key)}
	}
	m, isMap := n.(*xmltree.Map)
	if !isMap {
		f.fail(&SchemaMismatchError{Path: f.at(key), Want: "element", Got: kind(n)})
		return &fields{path: f.at(key)}
	}
	return &fields{m: m, path: f.at(key)}
}

// absorb merges the errors of a nested reader.
func (f *fields) absorb(c *fields) {
	if c.err != nil {
		f.fail(c.err)
	}
}

func kind(n xmltree.Node) string {
	switch n.(type) {
	case xmltree.Scalar:
		return "text"
	case xmltree.List:
		return "repeated element"
	case *xmltree.Map:
		return "element"
	}
	return "nothing"
}
