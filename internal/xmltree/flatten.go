package xmltree

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// ErrNoRoot is returned by Parse when the document has no root element.
var ErrNoRoot = errors.New("xml document has no root element")

// Parse reads a complete XML document and returns a mapping whose only key is the root
// element's tag, holding the flattened root.
func Parse(data []byte) (*Map, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	out := NewMap()
	out.Add(root.Tag, Flatten(root))
	return out, nil
}

// Flatten converts an element into a Node.
//
// A leaf with text and no attributes collapses to a Scalar. Otherwise the element becomes a
// *Map seeded with its attributes; its text, if any, goes under TextKey and every child is
// added under its tag, repeated tags being promoted to a List in document order. An
// attribute named TextKey is dropped when the element has text of its own, so TextKey
// always holds a single Scalar.
func Flatten(el *etree.Element) Node {
	text := strings.TrimSpace(el.Text())
	result := NewMap()
	for _, a := range el.Attr {
		if isNamespaceDecl(a) || (text != "" && a.Key == TextKey) {
			continue
		}
		result.Add(a.Key, Scalar(a.Value))
	}

	children := el.ChildElements()
	if text != "" {
		if len(children) == 0 && result.Len() == 0 {
			return Scalar(text)
		}
		result.Add(TextKey, Scalar(text))
	}

	for _, child := range children {
		result.Add(child.Tag, Flatten(child))
	}
	return result
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}
