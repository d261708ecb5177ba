// Package xmltree provides a generic XML node tree used by the field
// extractor, the schema validator and the compliance enforcer. Nodes keep
// their source line/column so validation diagnostics can point at the
// offending element.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// XSINamespace is the XML-Schema-instance namespace URI.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Attr is a single attribute on a Node.
type Attr struct {
	Name  xml.Name
	Value string
}

// Node is one element in a parsed XML document.
type Node struct {
	Name     xml.Name
	Attrs    []Attr
	Children []*Node
	Text     string
	Line     int
	Col      int
}

// Parse decodes an XML document into a Node tree rooted at the document
// element. It fails on any well-formedness error.
func Parse(data []byte) (*Node, error) {
	lines := lineIndex(data)
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var root *Node
	var stack []*Node

	for {
		offset := decoder.InputOffset()
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line, col := position(lines, offset)
			node := &Node{
				Name: t.Name,
				Line: line,
				Col:  col,
			}
			for _, a := range t.Attr {
				node.Attrs = append(node.Attrs, Attr{Name: a.Name, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("parse XML: multiple document elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parse XML: unexpected end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text != "" {
				stack[len(stack)-1].Text += text
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("parse XML: no document element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("parse XML: unclosed element %s", stack[len(stack)-1].Name.Local)
	}
	return root, nil
}

// Child returns the first direct child with the given local name, or nil.
func (n *Node) Child(local string) *Node {
	for _, c := range n.Children {
		if c.Name.Local == local {
			return c
		}
	}
	return nil
}

// ChildText returns the text of the first direct child with the given local
// name, or the empty string when the child is absent.
func (n *Node) ChildText(local string) string {
	if c := n.Child(local); c != nil {
		return c.Text
	}
	return ""
}

// Find descends through the tree following the given local names and returns
// the node at the end of the path, or nil if any segment is missing.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, seg := range path {
		cur = cur.Child(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// FindAll descends to the parent of the last path segment and returns every
// direct child matching it, in document order.
func (n *Node) FindAll(path ...string) []*Node {
	if len(path) == 0 {
		return nil
	}
	parent := n.Find(path[:len(path)-1]...)
	if parent == nil {
		return nil
	}
	last := path[len(path)-1]
	var out []*Node
	for _, c := range parent.Children {
		if c.Name.Local == last {
			out = append(out, c)
		}
	}
	return out
}

// FindText is Find followed by Text, defaulting to the empty string.
func (n *Node) FindText(path ...string) string {
	if node := n.Find(path...); node != nil {
		return node.Text
	}
	return ""
}

// Attr returns the value of the attribute with the given local name,
// regardless of namespace, or the empty string.
func (n *Node) Attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether an attribute with the given local name is present.
func (n *Node) HasAttr(local string) bool {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return true
		}
	}
	return false
}

// SetAttr adds the attribute if absent, otherwise overwrites its value.
func (n *Node) SetAttr(name xml.Name, value string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// NewElement creates an element node with optional text content.
func NewElement(local, text string) *Node {
	return &Node{Name: xml.Name{Local: local}, Text: text}
}

// AddChild appends a child element and returns it, for chained building.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// AddText appends a child element carrying only text.
func (n *Node) AddText(local, text string) *Node {
	return n.AddChild(NewElement(local, text))
}

// InsertChildAt inserts a child at the given index, clamped to the child list.
func (n *Node) InsertChildAt(index int, child *Node) {
	if index < 0 {
		index = 0
	}
	if index > len(n.Children) {
		index = len(n.Children)
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[index+1:], n.Children[index:])
	n.Children[index] = child
}

// Serialize renders the tree as a standalone XML document with an XML
// declaration and stable two-space indentation. Serializing a tree, parsing
// it back and serializing again yields identical bytes.
func (n *Node) Serialize() string {
	var b strings.Builder
	b.WriteString(xml.Header)
	n.write(&b, 0)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (n *Node) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(n.Name.Local)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(attrName(a.Name))
		b.WriteString(`="`)
		b.WriteString(escape(a.Value))
		b.WriteByte('"')
	}

	switch {
	case len(n.Children) == 0 && n.Text == "":
		b.WriteString("/>\n")
	case len(n.Children) == 0:
		b.WriteByte('>')
		b.WriteString(escape(n.Text))
		b.WriteString("</")
		b.WriteString(n.Name.Local)
		b.WriteString(">\n")
	default:
		b.WriteString(">\n")
		if n.Text != "" {
			b.WriteString(strings.Repeat("  ", depth+1))
			b.WriteString(escape(n.Text))
			b.WriteByte('\n')
		}
		for _, c := range n.Children {
			c.write(b, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("</")
		b.WriteString(n.Name.Local)
		b.WriteString(">\n")
	}
}

// attrName renders an attribute name back to its prefixed form. The decoder
// resolves prefixes to namespace URIs, so the known ones are mapped back.
func attrName(name xml.Name) string {
	switch name.Space {
	case "":
		return name.Local
	case "xmlns":
		return "xmlns:" + name.Local
	case XSINamespace:
		return "xsi:" + name.Local
	default:
		return name.Local
	}
}

func escape(s string) string {
	var b bytes.Buffer
	// EscapeText only fails on writer errors, which bytes.Buffer never returns.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// lineIndex returns the byte offset of the start of every line.
func lineIndex(data []byte) []int {
	offsets := []int{0}
	for i, c := range data {
		if c == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// position converts a byte offset to a 1-based line and column.
func position(lines []int, offset int64) (line, col int) {
	i := sort.Search(len(lines), func(i int) bool {
		return int64(lines[i]) > offset
	}) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, int(offset) - lines[i] + 1
}
