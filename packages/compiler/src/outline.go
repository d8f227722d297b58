package compiler

import (
	"strconv"

	"ng2c-go/packages/compiler/src/expression_parser"
	"ng2c-go/packages/compiler/src/ml_parser"
	tp "ng2c-go/packages/compiler/src/template_parser"
	"ng2c-go/packages/compiler/src/util"
)

// Outline is a printable view of a markup or template node. The ng2c
// command renders it as YAML.
type Outline struct {
	Kind     string            `yaml:"kind"`
	Name     string            `yaml:"name,omitempty"`
	Value    string            `yaml:"value,omitempty"`
	Location string            `yaml:"at,omitempty"`
	Props    map[string]string `yaml:"props,omitempty"`
	Children []*Outline        `yaml:"children,omitempty"`
}

// OutlineHtml outlines a markup forest.
func OutlineHtml(nodes []ml_parser.Node) []*Outline {
	return collect(ml_parser.VisitAll(htmlOutliner{}, nodes, nil))
}

type htmlOutliner struct{}

func (o htmlOutliner) VisitElement(element *ml_parser.Element, _ any) any {
	out := &Outline{Kind: "Element", Name: element.Name, Location: location(element.Span)}
	out.Children = append(out.Children, collect(ml_parser.VisitAttributes(o, element.Attrs, nil))...)
	out.Children = append(out.Children, collect(ml_parser.VisitAll(o, element.Children, nil))...)
	return out
}

func (htmlOutliner) VisitAttribute(attr *ml_parser.Attribute, _ any) any {
	return &Outline{Kind: "Attribute", Name: attr.Name, Value: attr.Value, Location: location(attr.Span)}
}

func (htmlOutliner) VisitText(text *ml_parser.Text, _ any) any {
	return &Outline{Kind: "Text", Value: text.Value, Location: location(text.Span)}
}

// OutlineTemplate outlines a parsed template.
func OutlineTemplate(asts []tp.TemplateAst) []*Outline {
	return collect(tp.TemplateVisitAll(templateOutliner{}, asts, nil))
}

type templateOutliner struct{}

var _ tp.TemplateAstVisitor = templateOutliner{}

func (o templateOutliner) VisitNgContent(ast *tp.NgContentAst, _ any) any {
	return &Outline{Kind: "NgContent", Location: location(ast.Span), Props: map[string]string{
		"index":          strconv.Itoa(ast.Index),
		"ngContentIndex": strconv.Itoa(ast.NgContentIndex),
	}}
}

func (o templateOutliner) VisitEmbeddedTemplate(ast *tp.EmbeddedTemplateAst, _ any) any {
	out := &Outline{Kind: "EmbeddedTemplate", Location: location(ast.Span)}
	out.Children = append(out.Children, outlineAll(o, ast.Attrs)...)
	out.Children = append(out.Children, outlineAll(o, ast.Outputs)...)
	out.Children = append(out.Children, outlineAll(o, ast.Vars)...)
	out.Children = append(out.Children, outlineAll(o, ast.Directives)...)
	out.Children = append(out.Children, outlineAll(o, ast.Children)...)
	return out
}

func (o templateOutliner) VisitElement(ast *tp.ElementAst, _ any) any {
	out := &Outline{Kind: "Element", Name: ast.Name, Location: location(ast.Span)}
	out.Children = append(out.Children, outlineAll(o, ast.Attrs)...)
	out.Children = append(out.Children, outlineAll(o, ast.Inputs)...)
	out.Children = append(out.Children, outlineAll(o, ast.Outputs)...)
	out.Children = append(out.Children, outlineAll(o, ast.ExportAsVars)...)
	out.Children = append(out.Children, outlineAll(o, ast.Directives)...)
	out.Children = append(out.Children, outlineAll(o, ast.Children)...)
	return out
}

func (templateOutliner) VisitVariable(ast *tp.VariableAst, _ any) any {
	return &Outline{Kind: "Variable", Name: ast.Name, Value: ast.Value, Location: location(ast.Span)}
}

func (templateOutliner) VisitEvent(ast *tp.BoundEventAst, _ any) any {
	return &Outline{Kind: "Event", Name: ast.FullName(), Value: expression_parser.Unparse(ast.Handler), Location: location(ast.Span)}
}

func (templateOutliner) VisitElementProperty(ast *tp.BoundElementPropertyAst, _ any) any {
	out := &Outline{
		Kind:     "ElementProperty",
		Name:     ast.Name,
		Value:    expression_parser.Unparse(ast.Value),
		Location: location(ast.Span),
		Props:    map[string]string{"type": ast.Type.String()},
	}
	if ast.Unit != "" {
		out.Props["unit"] = ast.Unit
	}
	return out
}

func (templateOutliner) VisitAttr(ast *tp.AttrAst, _ any) any {
	return &Outline{Kind: "Attr", Name: ast.Name, Value: ast.Value, Location: location(ast.Span)}
}

func (templateOutliner) VisitBoundText(ast *tp.BoundTextAst, _ any) any {
	return &Outline{Kind: "BoundText", Value: expression_parser.Unparse(ast.Value), Location: location(ast.Span)}
}

func (templateOutliner) VisitText(ast *tp.TextAst, _ any) any {
	return &Outline{Kind: "Text", Value: ast.Value, Location: location(ast.Span)}
}

func (o templateOutliner) VisitDirective(ast *tp.DirectiveAst, _ any) any {
	out := &Outline{Kind: "Directive", Name: ast.Directive.Type.Name, Location: location(ast.Span)}
	out.Children = append(out.Children, outlineAll(o, ast.Inputs)...)
	out.Children = append(out.Children, outlineAll(o, ast.HostProperties)...)
	out.Children = append(out.Children, outlineAll(o, ast.HostEvents)...)
	out.Children = append(out.Children, outlineAll(o, ast.ExportAsVars)...)
	return out
}

func (templateOutliner) VisitDirectiveProperty(ast *tp.BoundDirectivePropertyAst, _ any) any {
	return &Outline{Kind: "DirectiveProperty", Name: ast.DirectiveName, Value: expression_parser.Unparse(ast.Value), Location: location(ast.Span)}
}

func outlineAll[T tp.TemplateAst](o templateOutliner, asts []T) []*Outline {
	return collect(tp.TemplateVisitAll(o, asts, nil))
}

func collect(results []any) []*Outline {
	out := make([]*Outline, 0, len(results))
	for _, r := range results {
		if o, ok := r.(*Outline); ok {
			out = append(out, o)
		}
	}
	return out
}

// location is the one based line:col of span's start.
func location(span *util.ParseSourceSpan) string {
	if span == nil || span.Start == nil {
		return ""
	}
	return strconv.Itoa(span.Start.Line+1) + ":" + strconv.Itoa(span.Start.Col+1)
}
