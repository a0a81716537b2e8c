package usage

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/uhodav/vuensight/internal/runtime"
)

// templateSentinel replaces every literal "template" before parsing so
// nested <template> blocks are read as ordinary elements.
const templateSentinel = "temp-tag"

// Attribute is one attribute of a start tag, spelled as written.
type Attribute struct {
	Name     string
	Value    string
	HasValue bool
}

// Element is one start tag of a Fragment. Elements synthesized by the
// textual fallback of Locate have no attributes and no inner markup.
type Element struct {
	tag            string
	attrs          []Attribute
	inner          string
	defaultContent bool
	synthetic      bool
}

// Tag returns the tag name as written.
func (e *Element) Tag() string { return e.tag }

// Attrs returns the attributes in source order.
func (e *Element) Attrs() []Attribute { return e.attrs }

// Inner returns the raw markup between the start and end tag.
func (e *Element) Inner() string { return e.inner }

// Synthetic reports whether the element is a text-scan placeholder.
func (e *Element) Synthetic() bool { return e.synthetic }

// Attr looks up an attribute by name. Names compare case-insensitively,
// as HTML attribute names do.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether an attribute named name is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// hasDirective reports whether name is present alone or followed by
// modifiers ("@click" matches "@click.stop").
func (e *Element) hasDirective(name string) bool {
	for _, a := range e.attrs {
		if len(a.Name) < len(name) || !strings.EqualFold(a.Name[:len(name)], name) {
			continue
		}
		if len(a.Name) == len(name) || a.Name[len(name)] == '.' {
			return true
		}
	}
	return false
}

func (e *Element) anyAttr(match func(Attribute) bool) bool {
	for _, a := range e.attrs {
		if match(a) {
			return true
		}
	}
	return false
}

// Fragment is a parsed, queryable template. It holds no parser state.
type Fragment struct {
	raw      string
	elements []*Element
}

// Raw returns the markup as given to Normalize, before the sentinel rewrite.
func (f *Fragment) Raw() string { return f.raw }

// Elements returns every element in document order.
func (f *Fragment) Elements() []*Element { return f.elements }

// Normalize rewrites the "template" sentinel and parses raw into a Fragment.
// Malformed markup never fails: tree-sitter error recovery yields a partial
// tree and every start tag it still recognizes becomes an Element.
func Normalize(raw string) *Fragment {
	f := &Fragment{raw: raw}
	if raw == "" {
		return f
	}
	src := []byte(strings.ReplaceAll(raw, "template", templateSentinel))
	tree, err := runtime.Parse(context.Background(), "html", src)
	if err != nil {
		return f
	}
	defer tree.Close()

	f.collect(tree.RootNode(), src)
	return f
}

func (f *Fragment) collect(node *sitter.Node, src []byte) {
	switch node.Type() {
	case "start_tag", "self_closing_tag":
		f.elements = append(f.elements, newElement(node, src))
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		f.collect(node.NamedChild(i), src)
	}
}

func newElement(tag *sitter.Node, src []byte) *Element {
	el := newElementHead(tag, src)

	parent := tag.Parent()
	if tag.Type() != "start_tag" || parent == nil || parent.Type() != "element" {
		return el
	}
	end := parent.EndByte()
	for i := 1; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		switch child.Type() {
		case "end_tag":
			end = child.StartByte()
		case "text":
			if strings.TrimSpace(child.Content(src)) != "" {
				el.defaultContent = true
			}
		case "comment":
		default:
			if !isNamedSlotBlock(child, src) {
				el.defaultContent = true
			}
		}
	}
	if end >= tag.EndByte() {
		el.inner = string(src[tag.EndByte():end])
	}
	return el
}

// isNamedSlotBlock reports whether node is a <template #name> block, which
// fills a named slot rather than the default one.
func isNamedSlotBlock(node *sitter.Node, src []byte) bool {
	if node.Type() != "element" || node.NamedChildCount() == 0 {
		return false
	}
	el := newElementHead(node.NamedChild(0), src)
	if !strings.EqualFold(el.tag, templateSentinel) {
		return false
	}
	return el.anyAttr(func(a Attribute) bool {
		name := strings.ToLower(a.Name)
		return strings.HasPrefix(name, "#") || strings.HasPrefix(name, "v-slot") || name == "slot"
	})
}

// newElementHead reads only the tag name and attributes of a start tag.
func newElementHead(tag *sitter.Node, src []byte) *Element {
	el := &Element{}
	for i := 0; i < int(tag.NamedChildCount()); i++ {
		child := tag.NamedChild(i)
		switch child.Type() {
		case "tag_name":
			el.tag = child.Content(src)
		case "attribute":
			el.attrs = append(el.attrs, newAttribute(child, src))
		}
	}
	return el
}

func newAttribute(node *sitter.Node, src []byte) Attribute {
	var a Attribute
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "attribute_name":
			a.Name = child.Content(src)
		case "attribute_value":
			a.Value = child.Content(src)
			a.HasValue = true
		case "quoted_attribute_value":
			a.HasValue = true
			if child.NamedChildCount() > 0 {
				a.Value = child.NamedChild(0).Content(src)
			}
		}
	}
	return a
}
