package template_parser

import (
	"ng2c-go/packages/compiler/src/expression_parser"
	"ng2c-go/packages/compiler/src/util"
)

// NoContentIndex marks a node that is not projected into any ng-content
// slot of its parent component.
const NoContentIndex = -1

// TemplateAst is a node of the semantic template tree. The set of node
// types is closed; every variant is dispatched through TemplateAstVisitor.
type TemplateAst interface {
	SourceSpan() *util.ParseSourceSpan
	Visit(visitor TemplateAstVisitor, context any) any
	templateNode()
}

// TemplateAstVisitor has one method per TemplateAst variant.
type TemplateAstVisitor interface {
	VisitNgContent(ast *NgContentAst, context any) any
	VisitEmbeddedTemplate(ast *EmbeddedTemplateAst, context any) any
	VisitElement(ast *ElementAst, context any) any
	VisitVariable(ast *VariableAst, context any) any
	VisitEvent(ast *BoundEventAst, context any) any
	VisitElementProperty(ast *BoundElementPropertyAst, context any) any
	VisitAttr(ast *AttrAst, context any) any
	VisitBoundText(ast *BoundTextAst, context any) any
	VisitText(ast *TextAst, context any) any
	VisitDirective(ast *DirectiveAst, context any) any
	VisitDirectiveProperty(ast *BoundDirectivePropertyAst, context any) any
}

var (
	_ TemplateAst = (*TextAst)(nil)
	_ TemplateAst = (*BoundTextAst)(nil)
	_ TemplateAst = (*AttrAst)(nil)
	_ TemplateAst = (*BoundElementPropertyAst)(nil)
	_ TemplateAst = (*BoundEventAst)(nil)
	_ TemplateAst = (*VariableAst)(nil)
	_ TemplateAst = (*ElementAst)(nil)
	_ TemplateAst = (*EmbeddedTemplateAst)(nil)
	_ TemplateAst = (*BoundDirectivePropertyAst)(nil)
	_ TemplateAst = (*DirectiveAst)(nil)
	_ TemplateAst = (*NgContentAst)(nil)

	_ TemplateAstVisitor = (*TemplateAstTransformer)(nil)
)

// TextAst is static text.
type TextAst struct {
	Value          string
	NgContentIndex int
	Span           *util.ParseSourceSpan
}

// BoundTextAst is text containing {{ }} interpolation.
type BoundTextAst struct {
	Value          expression_parser.AST
	NgContentIndex int
	Span           *util.ParseSourceSpan
}

// AttrAst is a plain attribute.
type AttrAst struct {
	Name  string
	Value string
	Span  *util.ParseSourceSpan
}

// PropertyBindingType is the kind of element binding.
type PropertyBindingType int

const (
	// PropertyBindingTypeProperty binds a DOM property: [prop].
	PropertyBindingTypeProperty PropertyBindingType = iota
	// PropertyBindingTypeAttribute binds an attribute: [attr.name].
	PropertyBindingTypeAttribute
	// PropertyBindingTypeClass toggles a class: [class.name].
	PropertyBindingTypeClass
	// PropertyBindingTypeStyle sets a style: [style.name.unit].
	PropertyBindingTypeStyle
)

func (t PropertyBindingType) String() string {
	switch t {
	case PropertyBindingTypeAttribute:
		return "Attribute"
	case PropertyBindingTypeClass:
		return "Class"
	case PropertyBindingTypeStyle:
		return "Style"
	}
	return "Property"
}

// BoundElementPropertyAst is a binding to an element property, attribute,
// class or style. Unit is only set for styles such as [style.width.px].
type BoundElementPropertyAst struct {
	Name  string
	Type  PropertyBindingType
	Value expression_parser.AST
	Unit  string
	Span  *util.ParseSourceSpan
}

// BoundEventAst is an event listener. Target is "window", "document" or
// "body" for (target:event) bindings and empty otherwise.
type BoundEventAst struct {
	Name    string
	Target  string
	Handler expression_parser.AST
	Span    *util.ParseSourceSpan
}

// FullName returns "target:name", or just the name without a target.
func (e *BoundEventAst) FullName() string {
	if e.Target != "" {
		return e.Target + ":" + e.Name
	}
	return e.Name
}

// VariableAst declares a template local: #name or #name="exportAs".
type VariableAst struct {
	Name  string
	Value string
	Span  *util.ParseSourceSpan
}

// ElementAst is an element with its resolved bindings and directives.
type ElementAst struct {
	Name           string
	Attrs          []*AttrAst
	Inputs         []*BoundElementPropertyAst
	Outputs        []*BoundEventAst
	ExportAsVars   []*VariableAst
	Directives     []*DirectiveAst
	Children       []TemplateAst
	NgContentIndex int
	Span           *util.ParseSourceSpan
}

// IsBound reports whether anything on the element needs a runtime binding.
func (e *ElementAst) IsBound() bool {
	return len(e.Inputs) > 0 || len(e.Outputs) > 0 || len(e.ExportAsVars) > 0 || len(e.Directives) > 0
}

// GetComponent returns the component hosted by this element, or nil.
func (e *ElementAst) GetComponent() *CompileDirectiveMetadata {
	if len(e.Directives) > 0 && e.Directives[0].Directive.IsComponent {
		return e.Directives[0].Directive
	}
	return nil
}

// EmbeddedTemplateAst is a <template> element or an element carrying a
// template / *directive attribute.
type EmbeddedTemplateAst struct {
	Attrs          []*AttrAst
	Outputs        []*BoundEventAst
	Vars           []*VariableAst
	Directives     []*DirectiveAst
	Children       []TemplateAst
	NgContentIndex int
	Span           *util.ParseSourceSpan
}

// BoundDirectivePropertyAst binds an expression to a directive input.
// TemplateName is the name used in the template, DirectiveName the
// property on the directive.
type BoundDirectivePropertyAst struct {
	DirectiveName string
	TemplateName  string
	Value         expression_parser.AST
	Span          *util.ParseSourceSpan
}

// DirectiveAst is a directive matched on an element.
type DirectiveAst struct {
	Directive      *CompileDirectiveMetadata
	Inputs         []*BoundDirectivePropertyAst
	HostProperties []*BoundElementPropertyAst
	HostEvents     []*BoundEventAst
	ExportAsVars   []*VariableAst
	Span           *util.ParseSourceSpan
}

// NgContentAst is a projection slot. Index counts ng-content elements in
// document order.
type NgContentAst struct {
	Index          int
	NgContentIndex int
	Span           *util.ParseSourceSpan
}

func (a *TextAst) SourceSpan() *util.ParseSourceSpan                   { return a.Span }
func (a *BoundTextAst) SourceSpan() *util.ParseSourceSpan              { return a.Span }
func (a *AttrAst) SourceSpan() *util.ParseSourceSpan                   { return a.Span }
func (a *BoundElementPropertyAst) SourceSpan() *util.ParseSourceSpan   { return a.Span }
func (a *BoundEventAst) SourceSpan() *util.ParseSourceSpan             { return a.Span }
func (a *VariableAst) SourceSpan() *util.ParseSourceSpan               { return a.Span }
func (a *ElementAst) SourceSpan() *util.ParseSourceSpan                { return a.Span }
func (a *EmbeddedTemplateAst) SourceSpan() *util.ParseSourceSpan       { return a.Span }
func (a *BoundDirectivePropertyAst) SourceSpan() *util.ParseSourceSpan { return a.Span }
func (a *DirectiveAst) SourceSpan() *util.ParseSourceSpan              { return a.Span }
func (a *NgContentAst) SourceSpan() *util.ParseSourceSpan              { return a.Span }

func (a *TextAst) Visit(v TemplateAstVisitor, ctx any) any      { return v.VisitText(a, ctx) }
func (a *BoundTextAst) Visit(v TemplateAstVisitor, ctx any) any { return v.VisitBoundText(a, ctx) }
func (a *AttrAst) Visit(v TemplateAstVisitor, ctx any) any      { return v.VisitAttr(a, ctx) }
func (a *BoundElementPropertyAst) Visit(v TemplateAstVisitor, ctx any) any {
	return v.VisitElementProperty(a, ctx)
}
func (a *BoundEventAst) Visit(v TemplateAstVisitor, ctx any) any { return v.VisitEvent(a, ctx) }
func (a *VariableAst) Visit(v TemplateAstVisitor, ctx any) any   { return v.VisitVariable(a, ctx) }
func (a *ElementAst) Visit(v TemplateAstVisitor, ctx any) any    { return v.VisitElement(a, ctx) }
func (a *EmbeddedTemplateAst) Visit(v TemplateAstVisitor, ctx any) any {
	return v.VisitEmbeddedTemplate(a, ctx)
}
func (a *BoundDirectivePropertyAst) Visit(v TemplateAstVisitor, ctx any) any {
	return v.VisitDirectiveProperty(a, ctx)
}
func (a *DirectiveAst) Visit(v TemplateAstVisitor, ctx any) any { return v.VisitDirective(a, ctx) }
func (a *NgContentAst) Visit(v TemplateAstVisitor, ctx any) any { return v.VisitNgContent(a, ctx) }

func (*TextAst) templateNode()                   {}
func (*BoundTextAst) templateNode()              {}
func (*AttrAst) templateNode()                   {}
func (*BoundElementPropertyAst) templateNode()   {}
func (*BoundEventAst) templateNode()             {}
func (*VariableAst) templateNode()               {}
func (*ElementAst) templateNode()                {}
func (*EmbeddedTemplateAst) templateNode()       {}
func (*BoundDirectivePropertyAst) templateNode() {}
func (*DirectiveAst) templateNode()              {}
func (*NgContentAst) templateNode()              {}

// TemplateVisitAll visits asts in order and collects the non-nil results.
func TemplateVisitAll[T TemplateAst](visitor TemplateAstVisitor, asts []T, context any) []any {
	var result []any
	for _, ast := range asts {
		if r := ast.Visit(visitor, context); r != nil {
			result = append(result, r)
		}
	}
	return result
}

// TemplateAstTransformer returns every node unchanged. Embed it in a
// transform and override the methods for the nodes to rewrite.
type TemplateAstTransformer struct{}

func (TemplateAstTransformer) VisitNgContent(ast *NgContentAst, _ any) any { return ast }
func (TemplateAstTransformer) VisitEmbeddedTemplate(ast *EmbeddedTemplateAst, _ any) any {
	return ast
}
func (TemplateAstTransformer) VisitElement(ast *ElementAst, _ any) any   { return ast }
func (TemplateAstTransformer) VisitVariable(ast *VariableAst, _ any) any { return ast }
func (TemplateAstTransformer) VisitEvent(ast *BoundEventAst, _ any) any  { return ast }
func (TemplateAstTransformer) VisitElementProperty(ast *BoundElementPropertyAst, _ any) any {
	return ast
}
func (TemplateAstTransformer) VisitAttr(ast *AttrAst, _ any) any           { return ast }
func (TemplateAstTransformer) VisitBoundText(ast *BoundTextAst, _ any) any { return ast }
func (TemplateAstTransformer) VisitText(ast *TextAst, _ any) any           { return ast }
func (TemplateAstTransformer) VisitDirective(ast *DirectiveAst, _ any) any { return ast }
func (TemplateAstTransformer) VisitDirectiveProperty(ast *BoundDirectivePropertyAst, _ any) any {
	return ast
}

// applyTransform rewrites nodes bottom-up: the children of elements and
// embedded templates are transformed before their parent is handed to the
// transform. A transform that returns nil removes the node.
func applyTransform(transform TemplateAstVisitor, nodes []TemplateAst) []TemplateAst {
	out := make([]TemplateAst, 0, len(nodes))
	for _, node := range nodes {
		switch n := node.(type) {
		case *ElementAst:
			n.Children = applyTransform(transform, n.Children)
		case *EmbeddedTemplateAst:
			n.Children = applyTransform(transform, n.Children)
		}
		if r, ok := node.Visit(transform, nil).(TemplateAst); ok && r != nil {
			out = append(out, r)
		}
	}
	return out
}
