package template_parser

import (
	"regexp"
	"sort"
	"strings"

	"ng2c-go/packages/compiler/src/css"
	"ng2c-go/packages/compiler/src/expression_parser"
	"ng2c-go/packages/compiler/src/ml_parser"
	"ng2c-go/packages/compiler/src/schema"
	"ng2c-go/packages/compiler/src/util"
)

const (
	templateElement    = "template"
	templateAttr       = "template"
	templateAttrPrefix = "*"
	classAttr          = "class"
)

var (
	textCssSelector = css.MustParseCssSelector("*")[0]
	classSplitter   = regexp.MustCompile(`\s+`)
)

// TemplateParseError aggregates every problem found in a template.
type TemplateParseError struct {
	Errors []*util.ParseError
}

func (e *TemplateParseError) Error() string {
	return "Template parse errors:\n" + util.JoinParseErrors(e.Errors)
}

// TemplateParser converts markup into a TemplateAst forest.
type TemplateParser struct {
	exprParser     *expression_parser.Parser
	schemaRegistry schema.ElementSchemaRegistry
	htmlParser     *ml_parser.HtmlParser
	transforms     []TemplateAstVisitor
}

// NewTemplateParser creates a parser. The transforms run over every
// successfully parsed template, in order.
func NewTemplateParser(
	exprParser *expression_parser.Parser,
	schemaRegistry schema.ElementSchemaRegistry,
	htmlParser *ml_parser.HtmlParser,
	transforms ...TemplateAstVisitor,
) *TemplateParser {
	return &TemplateParser{
		exprParser:     exprParser,
		schemaRegistry: schemaRegistry,
		htmlParser:     htmlParser,
		transforms:     transforms,
	}
}

// Parse parses template markup. templateURL names the template in
// diagnostics, usually the component name.
func (p *TemplateParser) Parse(
	template string,
	directives []*CompileDirectiveMetadata,
	pipes []*CompilePipeMetadata,
	templateURL string,
) ([]TemplateAst, error) {
	return p.ParseTree(p.htmlParser.Parse(template, templateURL), directives, pipes)
}

// ParseTree resolves an already parsed markup tree. Markup errors of tree
// are reported along with the template errors.
func (p *TemplateParser) ParseTree(
	tree *ml_parser.ParseTreeResult,
	directives []*CompileDirectiveMetadata,
	pipes []*CompilePipeMetadata,
) ([]TemplateAst, error) {
	visitor := newTemplateParseVisitor(directives, pipes, p.exprParser, p.schemaRegistry)
	result := visitor.visitAll(visitor, tree.RootNodes, emptyElementContext)

	errs := append(tree.ParseErrors(), visitor.Errors...)
	if len(errs) > 0 {
		return nil, &TemplateParseError{Errors: errs}
	}
	for _, transform := range p.transforms {
		result = applyTransform(transform, result)
	}
	return result, nil
}

// SplitClasses splits a class attribute value on whitespace.
func SplitClasses(classAttrValue string) []string {
	trimmed := strings.TrimSpace(classAttrValue)
	if trimmed == "" {
		return []string{""}
	}
	return classSplitter.Split(trimmed, -1)
}

type templateParseVisitor struct {
	*BindingParser
	selectorMatcher  *css.SelectorMatcher[*CompileDirectiveMetadata]
	directivesIndex  map[*CompileDirectiveMetadata]int
	ngContentCount   int
	nonBindableNodes *nonBindableVisitor
}

func newTemplateParseVisitor(
	directives []*CompileDirectiveMetadata,
	pipes []*CompilePipeMetadata,
	exprParser *expression_parser.Parser,
	schemaRegistry schema.ElementSchemaRegistry,
) *templateParseVisitor {
	v := &templateParseVisitor{
		BindingParser:    NewBindingParser(exprParser, schemaRegistry, pipes),
		selectorMatcher:  css.NewSelectorMatcher[*CompileDirectiveMetadata](),
		directivesIndex:  make(map[*CompileDirectiveMetadata]int, len(directives)),
		nonBindableNodes: &nonBindableVisitor{},
	}
	for i, directive := range directives {
		selector, err := css.ParseCssSelector(directive.Selector)
		if err != nil {
			v.reportError(err.Error(), nil)
			continue
		}
		v.selectorMatcher.AddSelectables(selector, directive)
		v.directivesIndex[directive] = i
	}
	return v
}

// visitAll visits nodes with visitor and drops the nodes it suppresses.
func (v *templateParseVisitor) visitAll(visitor ml_parser.Visitor, nodes []ml_parser.Node, context *elementContext) []TemplateAst {
	var out []TemplateAst
	for _, node := range nodes {
		if r, ok := node.Visit(visitor, context).(TemplateAst); ok && r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (v *templateParseVisitor) VisitText(text *ml_parser.Text, context any) any {
	parent := context.(*elementContext)
	ngContentIndex := parent.findNgContentIndex(textCssSelector)
	if expr := v.ParseInterpolation(text.Value, text.Span); expr != nil {
		return &BoundTextAst{Value: expr, NgContentIndex: ngContentIndex, Span: text.Span}
	}
	return &TextAst{Value: text.Value, NgContentIndex: ngContentIndex, Span: text.Span}
}

func (v *templateParseVisitor) VisitAttribute(attr *ml_parser.Attribute, _ any) any {
	return &AttrAst{Name: attr.Name, Value: attr.Value, Span: attr.Span}
}

func (v *templateParseVisitor) VisitElement(element *ml_parser.Element, context any) any {
	parent := context.(*elementContext)
	nodeName := element.Name
	preparsed := PreparseElement(element)
	switch {
	case preparsed.Type == PreparsedElementScript, preparsed.Type == PreparsedElementStyle:
		// scripts are never compiled; styles are handled by the style compiler
		return nil
	case preparsed.Type == PreparsedElementStylesheet && css.IsStyleUrlResolvable(preparsed.HrefAttr):
		return nil
	}

	var (
		matchable   matchableAttrs
		props       []*boundProperty
		vars        []*VariableAst
		events      []*BoundEventAst
		attrs       []*AttrAst
		tplMatch    matchableAttrs
		tplProps    []*boundProperty
		tplVars     []*VariableAst
		hasTemplate bool
	)
	for _, attr := range element.Attrs {
		hasBinding := v.parseAttr(attr, &matchable, &props, &events, &vars)
		hasTemplateBinding := v.parseInlineTemplateBinding(attr, &tplMatch, &tplProps, &tplVars)
		if !hasBinding && !hasTemplateBinding {
			attrs = append(attrs, v.VisitAttribute(attr, nil).(*AttrAst))
			matchable.add(attr.Name, attr.Value)
		}
		if hasTemplateBinding {
			hasTemplate = true
		}
	}

	_, lcElName := ml_parser.SplitNsName(strings.ToLower(nodeName))
	isTemplateElement := lcElName == templateElement
	elementCssSelector := css.CreateElementCssSelector(nodeName, matchable)
	exportAsCandidates := vars
	if isTemplateElement {
		exportAsCandidates = nil
	}
	directives := v.createDirectiveAsts(nodeName, v.parseDirectives(elementCssSelector), props, exportAsCandidates, element.Span)
	elementProps := v.createElementPropertyAsts(nodeName, props, directives)

	childVisitor := ml_parser.Visitor(v)
	if preparsed.NonBindable {
		childVisitor = v.nonBindableNodes
	}
	children := v.visitAll(childVisitor, element.Children, newElementContext(isTemplateElement, directives))

	projectionSelector := elementCssSelector
	if preparsed.ProjectAs != "" {
		if sels, err := css.ParseCssSelector(preparsed.ProjectAs); err == nil && len(sels) > 0 {
			projectionSelector = sels[0]
		}
	}
	ngContentIndex := NoContentIndex
	if !hasTemplate {
		ngContentIndex = parent.findNgContentIndex(projectionSelector)
	}

	var parsed TemplateAst
	switch {
	case preparsed.Type == PreparsedElementNgContent:
		if len(element.Children) > 0 {
			v.reportError("<ng-content> element cannot have content. <ng-content> must be immediately followed by </ng-content>", element.Span)
		}
		parsed = &NgContentAst{Index: v.ngContentCount, NgContentIndex: ngContentIndex, Span: element.Span}
		v.ngContentCount++
	case isTemplateElement:
		v.assertAllEventsPublishedByDirectives(directives, events)
		v.assertNoComponentsNorElementBindingsOnTemplate(directives, elementProps, element.Span)
		parsed = &EmbeddedTemplateAst{
			Attrs:          attrs,
			Outputs:        events,
			Vars:           vars,
			Directives:     directives,
			Children:       children,
			NgContentIndex: ngContentIndex,
			Span:           element.Span,
		}
	default:
		v.assertOnlyOneComponent(directives, element.Span)
		var exportAsVars []*VariableAst
		for _, varAst := range vars {
			if varAst.Value == "" {
				exportAsVars = append(exportAsVars, varAst)
			}
		}
		parsed = &ElementAst{
			Name:           nodeName,
			Attrs:          attrs,
			Inputs:         elementProps,
			Outputs:        events,
			ExportAsVars:   exportAsVars,
			Directives:     directives,
			Children:       children,
			NgContentIndex: ngContentIndex,
			Span:           element.Span,
		}
	}

	if hasTemplate {
		templateCssSelector := css.CreateElementCssSelector(templateElement, tplMatch)
		templateDirectives := v.createDirectiveAsts(nodeName, v.parseDirectives(templateCssSelector), tplProps, nil, element.Span)
		templateElementProps := v.createElementPropertyAsts(nodeName, tplProps, templateDirectives)
		v.assertNoComponentsNorElementBindingsOnTemplate(templateDirectives, templateElementProps, element.Span)
		parsed = &EmbeddedTemplateAst{
			Vars:           tplVars,
			Directives:     templateDirectives,
			Children:       []TemplateAst{parsed},
			NgContentIndex: parent.findNgContentIndex(projectionSelector),
			Span:           element.Span,
		}
	}
	return parsed
}

// parseAttr resolves one attribute. It reports whether the attribute was
// a binding; plain attributes are still recorded as literal properties.
func (v *templateParseVisitor) parseAttr(attr *ml_parser.Attribute, targetMatchableAttrs *matchableAttrs,
	targetProps *[]*boundProperty, targetEvents *[]*BoundEventAst, targetVars *[]*VariableAst) bool {
	attrName := normalizeAttributeName(attr.Name)
	attrValue := attr.Value
	span := attr.Span

	hasBinding := false
	if parts := bindNameRegexp.FindStringSubmatch(attrName); parts != nil {
		hasBinding = true
		switch {
		case parts[bindGroupBind] != "":
			v.parseProperty(parts[bindGroupName], attrValue, span, targetMatchableAttrs, targetProps)
		case parts[bindGroupVar] != "":
			v.parseVariable(parts[bindGroupName], attrValue, span, targetVars)
		case parts[bindGroupOn] != "":
			v.parseEvent(parts[bindGroupName], attrValue, span, targetMatchableAttrs, targetEvents)
		case parts[bindGroupBindon] != "":
			v.parseProperty(parts[bindGroupName], attrValue, span, targetMatchableAttrs, targetProps)
			v.parseAssignmentEvent(parts[bindGroupName], attrValue, span, targetMatchableAttrs, targetEvents)
		case parts[bindGroupBananaBox] != "":
			v.parseProperty(parts[bindGroupBananaBox], attrValue, span, targetMatchableAttrs, targetProps)
			v.parseAssignmentEvent(parts[bindGroupBananaBox], attrValue, span, targetMatchableAttrs, targetEvents)
		case parts[bindGroupProperty] != "":
			v.parseProperty(parts[bindGroupProperty], attrValue, span, targetMatchableAttrs, targetProps)
		case parts[bindGroupEvent] != "":
			v.parseEvent(parts[bindGroupEvent], attrValue, span, targetMatchableAttrs, targetEvents)
		}
	} else {
		hasBinding = v.parsePropertyInterpolation(attrName, attrValue, span, targetMatchableAttrs, targetProps)
	}
	if !hasBinding {
		v.parseLiteralAttr(attrName, &attrValue, span, targetProps)
	}
	return hasBinding
}

func normalizeAttributeName(attrName string) string {
	if strings.HasPrefix(strings.ToLower(attrName), "data-") {
		return attrName[len("data-"):]
	}
	return attrName
}

// parseInlineTemplateBinding handles template="..." and *name="..."
// attributes, reporting whether attr was one of them.
func (v *templateParseVisitor) parseInlineTemplateBinding(attr *ml_parser.Attribute, targetMatchableAttrs *matchableAttrs,
	targetProps *[]*boundProperty, targetVars *[]*VariableAst) bool {
	var source string
	switch {
	case attr.Name == templateAttr:
		source = attr.Value
	case strings.HasPrefix(attr.Name, templateAttrPrefix):
		source = attr.Name[len(templateAttrPrefix):]
		if attr.Value != "" {
			source += " " + attr.Value
		}
	default:
		return false
	}

	for _, binding := range v.ParseTemplateBindings(source, attr.Span) {
		switch {
		case binding.KeyIsVar:
			*targetVars = append(*targetVars, &VariableAst{Name: binding.Key, Value: binding.Name, Span: attr.Span})
			targetMatchableAttrs.add(binding.Key, binding.Name)
		case binding.Expression != nil:
			v.parsePropertyAst(binding.Key, binding.Expression, attr.Span, targetMatchableAttrs, targetProps)
		default:
			targetMatchableAttrs.add(binding.Key, "")
			v.parseLiteralAttr(binding.Key, nil, attr.Span, targetProps)
		}
	}
	return true
}

// parseDirectives matches directives against selector. Components come
// first, the rest keep the order in which they were declared.
func (v *templateParseVisitor) parseDirectives(selector *css.CssSelector) []*CompileDirectiveMetadata {
	var directives []*CompileDirectiveMetadata
	v.selectorMatcher.Match(selector, func(_ *css.CssSelector, directive *CompileDirectiveMetadata) {
		directives = append(directives, directive)
	})
	sort.SliceStable(directives, func(i, j int) bool {
		a, b := directives[i], directives[j]
		if a.IsComponent != b.IsComponent {
			return a.IsComponent
		}
		return v.directivesIndex[a] < v.directivesIndex[b]
	})
	return directives
}

func (v *templateParseVisitor) createDirectiveAsts(elementName string, directives []*CompileDirectiveMetadata,
	props []*boundProperty, possibleExportAsVars []*VariableAst, sourceSpan *util.ParseSourceSpan) []*DirectiveAst {
	matchedVariables := map[string]bool{}
	directiveAsts := make([]*DirectiveAst, 0, len(directives))
	for _, directive := range directives {
		dirAst := &DirectiveAst{
			Directive:      directive,
			Inputs:         createDirectivePropertyAsts(directive.Inputs, props),
			HostProperties: v.createDirectiveHostPropertyAsts(elementName, directive.HostProperties, sourceSpan),
			HostEvents:     v.createDirectiveHostEventAsts(directive.HostListeners, sourceSpan),
			Span:           sourceSpan,
		}
		for _, varAst := range possibleExportAsVars {
			if (varAst.Value == "" && directive.IsComponent) || (directive.ExportAs != "" && directive.ExportAs == varAst.Value) {
				dirAst.ExportAsVars = append(dirAst.ExportAsVars, varAst)
				matchedVariables[varAst.Name] = true
			}
		}
		directiveAsts = append(directiveAsts, dirAst)
	}
	for _, varAst := range possibleExportAsVars {
		if varAst.Value != "" && !matchedVariables[varAst.Name] {
			v.reportError(`There is no directive with "exportAs" set to "`+varAst.Value+`"`, varAst.Span)
		}
	}
	return directiveAsts
}

// createDirectivePropertyAsts binds directive inputs. A bound [a] wins
// over a plain a="..." on the same element.
func createDirectivePropertyAsts(inputs []BindingAlias, boundProps []*boundProperty) []*BoundDirectivePropertyAst {
	if len(inputs) == 0 {
		return nil
	}
	byName := map[string]*boundProperty{}
	for _, prop := range boundProps {
		if prev, ok := byName[prop.name]; !ok || prev.isLiteral {
			byName[prop.name] = prop
		}
	}
	var out []*BoundDirectivePropertyAst
	for _, input := range inputs {
		if prop, ok := byName[input.TemplateName]; ok {
			out = append(out, &BoundDirectivePropertyAst{
				DirectiveName: input.DirectiveProp,
				TemplateName:  prop.name,
				Value:         prop.expression,
				Span:          prop.span,
			})
		}
	}
	return out
}

// createElementPropertyAsts turns every bound property that no directive
// claimed into an element binding.
func (v *templateParseVisitor) createElementPropertyAsts(elementName string, props []*boundProperty,
	directives []*DirectiveAst) []*BoundElementPropertyAst {
	claimed := map[string]bool{}
	for _, directive := range directives {
		for _, input := range directive.Inputs {
			claimed[input.TemplateName] = true
		}
	}
	var out []*BoundElementPropertyAst
	for _, prop := range props {
		if !prop.isLiteral && !claimed[prop.name] {
			out = append(out, v.createElementPropertyAst(elementName, prop.name, prop.expression, prop.span))
		}
	}
	return out
}

func componentTypeNames(directives []*DirectiveAst) []string {
	var names []string
	for _, directive := range directives {
		if directive.Directive.IsComponent {
			names = append(names, directive.Directive.Type.Name)
		}
	}
	return names
}

func (v *templateParseVisitor) assertOnlyOneComponent(directives []*DirectiveAst, sourceSpan *util.ParseSourceSpan) {
	if names := componentTypeNames(directives); len(names) > 1 {
		v.reportError("More than one component: "+strings.Join(names, ","), sourceSpan)
	}
}

func (v *templateParseVisitor) assertNoComponentsNorElementBindingsOnTemplate(directives []*DirectiveAst,
	elementProps []*BoundElementPropertyAst, sourceSpan *util.ParseSourceSpan) {
	if names := componentTypeNames(directives); len(names) > 0 {
		v.reportError("Components on an embedded template: "+strings.Join(names, ","), sourceSpan)
	}
	for _, prop := range elementProps {
		v.reportError("Property binding "+prop.Name+" not used by any directive on an embedded template", sourceSpan)
	}
}

func (v *templateParseVisitor) assertAllEventsPublishedByDirectives(directives []*DirectiveAst, events []*BoundEventAst) {
	emitted := map[string]bool{}
	for _, directive := range directives {
		for _, output := range directive.Directive.Outputs {
			emitted[output.TemplateName] = true
		}
	}
	for _, event := range events {
		if event.Target != "" || !emitted[event.Name] {
			v.reportError("Event binding "+event.FullName()+" not emitted by any directive on an embedded template", event.Span)
		}
	}
}

// nonBindableVisitor handles the subtree of an ngNonBindable element:
// text stays literal and attributes are not interpreted.
type nonBindableVisitor struct{}

func (n *nonBindableVisitor) VisitElement(element *ml_parser.Element, context any) any {
	parent := context.(*elementContext)
	preparsed := PreparseElement(element)
	switch preparsed.Type {
	case PreparsedElementScript, PreparsedElementStyle, PreparsedElementStylesheet:
		return nil
	}

	var attrNameAndValues []string
	attrs := make([]*AttrAst, 0, len(element.Attrs))
	for _, attr := range element.Attrs {
		attrNameAndValues = append(attrNameAndValues, attr.Name, attr.Value)
		attrs = append(attrs, n.VisitAttribute(attr, nil).(*AttrAst))
	}
	selector := css.CreateElementCssSelector(element.Name, attrNameAndValues)
	var children []TemplateAst
	for _, child := range element.Children {
		if r, ok := child.Visit(n, emptyElementContext).(TemplateAst); ok && r != nil {
			children = append(children, r)
		}
	}
	return &ElementAst{
		Name:           element.Name,
		Attrs:          attrs,
		Children:       children,
		NgContentIndex: parent.findNgContentIndex(selector),
		Span:           element.Span,
	}
}

func (n *nonBindableVisitor) VisitAttribute(attr *ml_parser.Attribute, _ any) any {
	return &AttrAst{Name: attr.Name, Value: attr.Value, Span: attr.Span}
}

func (n *nonBindableVisitor) VisitText(text *ml_parser.Text, context any) any {
	parent := context.(*elementContext)
	return &TextAst{Value: text.Value, NgContentIndex: parent.findNgContentIndex(textCssSelector), Span: text.Span}
}

// elementContext is what children need from their parent: whether it is
// a template and how to project into the component it hosts.
type elementContext struct {
	isTemplateElement      bool
	ngContentIndexMatcher  *css.SelectorMatcher[int]
	wildcardNgContentIndex int
}

var emptyElementContext = &elementContext{
	isTemplateElement:      true,
	ngContentIndexMatcher:  css.NewSelectorMatcher[int](),
	wildcardNgContentIndex: NoContentIndex,
}

func newElementContext(isTemplateElement bool, directives []*DirectiveAst) *elementContext {
	ctx := &elementContext{
		isTemplateElement:      isTemplateElement,
		ngContentIndexMatcher:  css.NewSelectorMatcher[int](),
		wildcardNgContentIndex: NoContentIndex,
	}
	if len(directives) > 0 && directives[0].Directive.IsComponent {
		for i, selector := range directives[0].Directive.NgContentSelectors() {
			if selector == "*" {
				ctx.wildcardNgContentIndex = i
				continue
			}
			if sels, err := css.ParseCssSelector(selector); err == nil {
				ctx.ngContentIndexMatcher.AddSelectables(sels, i)
			}
		}
	}
	return ctx
}

// findNgContentIndex returns the first slot whose selector matches, then
// the wildcard slot, then NoContentIndex.
func (c *elementContext) findNgContentIndex(selector *css.CssSelector) int {
	var indices []int
	c.ngContentIndexMatcher.Match(selector, func(_ *css.CssSelector, index int) {
		indices = append(indices, index)
	})
	sort.Ints(indices)
	if c.wildcardNgContentIndex != NoContentIndex {
		indices = append(indices, c.wildcardNgContentIndex)
	}
	if len(indices) > 0 {
		return indices[0]
	}
	return NoContentIndex
}
