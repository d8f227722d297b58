package ml_parser

import "ng2c-go/packages/compiler/src/util"

// Node is a node of the markup tree. The set of implementations is closed:
// Element, Attribute and Text.
type Node interface {
	SourceSpan() *util.ParseSourceSpan
	Visit(visitor Visitor, context any) any
	htmlNode()
}

// Visitor has one method per Node variant. Adding a variant to the tree
// adds a method here, so every visitor fails to compile until it handles it.
type Visitor interface {
	VisitElement(element *Element, context any) any
	VisitAttribute(attribute *Attribute, context any) any
	VisitText(text *Text, context any) any
}

var (
	_ Node = (*Element)(nil)
	_ Node = (*Attribute)(nil)
	_ Node = (*Text)(nil)
)

// Text is character data, including decoded CDATA.
type Text struct {
	Value string
	Span  *util.ParseSourceSpan
}

// NewText creates a new Text node
func NewText(value string, span *util.ParseSourceSpan) *Text {
	return &Text{Value: value, Span: span}
}

func (t *Text) SourceSpan() *util.ParseSourceSpan { return t.Span }
func (t *Text) Visit(visitor Visitor, context any) any {
	return visitor.VisitText(t, context)
}
func (*Text) htmlNode() {}

// Attribute is a name="value" pair. Value is "" when absent.
type Attribute struct {
	Name  string
	Value string
	Span  *util.ParseSourceSpan
}

// NewAttribute creates a new Attribute node
func NewAttribute(name, value string, span *util.ParseSourceSpan) *Attribute {
	return &Attribute{Name: name, Value: value, Span: span}
}

func (a *Attribute) SourceSpan() *util.ParseSourceSpan { return a.Span }
func (a *Attribute) Visit(visitor Visitor, context any) any {
	return visitor.VisitAttribute(a, context)
}
func (*Attribute) htmlNode() {}

// Element is a tag with its attributes and children. Name is namespace
// qualified ("@svg:path") when the element lives in a foreign namespace.
// Span covers the start tag.
type Element struct {
	Name            string
	Attrs           []*Attribute
	Children        []Node
	Span            *util.ParseSourceSpan
	StartSourceSpan *util.ParseSourceSpan
	EndSourceSpan   *util.ParseSourceSpan
}

// NewElement creates a new Element node
func NewElement(name string, attrs []*Attribute, children []Node, span, startSpan, endSpan *util.ParseSourceSpan) *Element {
	return &Element{
		Name:            name,
		Attrs:           attrs,
		Children:        children,
		Span:            span,
		StartSourceSpan: startSpan,
		EndSourceSpan:   endSpan,
	}
}

func (e *Element) SourceSpan() *util.ParseSourceSpan { return e.Span }
func (e *Element) Visit(visitor Visitor, context any) any {
	return visitor.VisitElement(e, context)
}
func (*Element) htmlNode() {}

// VisitAll visits nodes in order and collects the non-nil results.
func VisitAll(visitor Visitor, nodes []Node, context any) []any {
	var result []any
	for _, node := range nodes {
		if r := node.Visit(visitor, context); r != nil {
			result = append(result, r)
		}
	}
	return result
}

// VisitAttributes is VisitAll for an attribute list.
func VisitAttributes(visitor Visitor, attrs []*Attribute, context any) []any {
	var result []any
	for _, attr := range attrs {
		if r := attr.Visit(visitor, context); r != nil {
			result = append(result, r)
		}
	}
	return result
}
