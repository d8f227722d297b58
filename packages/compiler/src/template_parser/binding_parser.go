package template_parser

import (
	"regexp"
	"strings"

	"ng2c-go/packages/compiler/src/expression_parser"
	"ng2c-go/packages/compiler/src/schema"
	"ng2c-go/packages/compiler/src/util"
)

const (
	propertyPartsSeparator = "."
	attributePrefix        = "attr"
	classPrefix            = "class"
	stylePrefix            = "style"
)

// bindNameRegexp groups:
//
//	1 "bind-"  2 "var-" or "#"  3 "on-"  4 "bindon-"  5 name after a prefix
//	6 [(name)]  7 [name]  8 (name)
var bindNameRegexp = regexp.MustCompile(
	`^(?:(?:(?:(bind-)|(var-|#)|(on-)|(bindon-))(.+))|\[\(([^\)]+)\)\]|\[([^\]]+)\]|\(([^\)]+)\))$`)

const (
	bindGroupBind = iota + 1
	bindGroupVar
	bindGroupOn
	bindGroupBindon
	bindGroupName
	bindGroupBananaBox
	bindGroupProperty
	bindGroupEvent
)

// boundProperty is an element attribute that is either bound to an
// element property or, if a directive declares it, to a directive input.
// Literal properties come from plain attributes.
type boundProperty struct {
	name       string
	expression *expression_parser.ASTWithSource
	isLiteral  bool
	span       *util.ParseSourceSpan
}

// matchableAttrs collects name/value pairs for selector matching.
type matchableAttrs []string

func (m *matchableAttrs) add(name, value string) {
	*m = append(*m, name, value)
}

// BindingParser parses the expressions found in attribute values, text
// and directive host maps, and reports every problem as a ParseError.
type BindingParser struct {
	exprParser     *expression_parser.Parser
	schemaRegistry schema.ElementSchemaRegistry
	pipesByName    map[string]*CompilePipeMetadata
	Errors         []*util.ParseError
}

// NewBindingParser creates a BindingParser that accepts the given pipes.
func NewBindingParser(
	exprParser *expression_parser.Parser,
	schemaRegistry schema.ElementSchemaRegistry,
	pipes []*CompilePipeMetadata,
) *BindingParser {
	byName := make(map[string]*CompilePipeMetadata, len(pipes))
	for _, pipe := range pipes {
		byName[pipe.Name] = pipe
	}
	return &BindingParser{
		exprParser:     exprParser,
		schemaRegistry: schemaRegistry,
		pipesByName:    byName,
	}
}

func (bp *BindingParser) reportError(message string, sourceSpan *util.ParseSourceSpan) {
	bp.Errors = append(bp.Errors, util.NewParseError(sourceSpan, message))
}

// ParseInterpolation returns nil when value has no {{ }}.
func (bp *BindingParser) ParseInterpolation(value string, sourceSpan *util.ParseSourceSpan) *expression_parser.ASTWithSource {
	sourceInfo := sourceSpan.Start.String()
	ast, err := bp.exprParser.ParseInterpolation(value, sourceInfo)
	if err != nil {
		bp.reportError(err.Error(), sourceSpan)
		return bp.exprParser.WrapLiteralPrimitive("ERROR", sourceInfo)
	}
	bp.checkPipes(ast, sourceSpan)
	return ast
}

// ParseAction parses an event handler.
func (bp *BindingParser) ParseAction(value string, sourceSpan *util.ParseSourceSpan) *expression_parser.ASTWithSource {
	sourceInfo := sourceSpan.Start.String()
	ast, err := bp.exprParser.ParseAction(value, sourceInfo)
	if err != nil {
		bp.reportError(err.Error(), sourceSpan)
		return bp.exprParser.WrapLiteralPrimitive("ERROR", sourceInfo)
	}
	bp.checkPipes(ast, sourceSpan)
	return ast
}

// ParseBinding parses a property binding.
func (bp *BindingParser) ParseBinding(value string, sourceSpan *util.ParseSourceSpan) *expression_parser.ASTWithSource {
	sourceInfo := sourceSpan.Start.String()
	ast, err := bp.exprParser.ParseBinding(value, sourceInfo)
	if err != nil {
		bp.reportError(err.Error(), sourceSpan)
		return bp.exprParser.WrapLiteralPrimitive("ERROR", sourceInfo)
	}
	bp.checkPipes(ast, sourceSpan)
	return ast
}

// ParseTemplateBindings parses the microsyntax of a template attribute.
func (bp *BindingParser) ParseTemplateBindings(value string, sourceSpan *util.ParseSourceSpan) []*expression_parser.TemplateBinding {
	sourceInfo := sourceSpan.Start.String()
	bindings, err := bp.exprParser.ParseTemplateBindings(value, sourceInfo)
	if err != nil {
		bp.reportError(err.Error(), sourceSpan)
		return nil
	}
	for _, binding := range bindings {
		if binding.Expression != nil {
			bp.checkPipes(binding.Expression, sourceSpan)
		}
	}
	return bindings
}

func (bp *BindingParser) checkPipes(ast *expression_parser.ASTWithSource, sourceSpan *util.ParseSourceSpan) {
	if ast == nil {
		return
	}
	collector := newPipeCollector()
	ast.Visit(collector, nil)
	for _, name := range collector.pipes {
		if _, ok := bp.pipesByName[name]; !ok {
			bp.reportError("The pipe '"+name+"' could not be found", sourceSpan)
		}
	}
}

func (bp *BindingParser) parseVariable(identifier, value string, sourceSpan *util.ParseSourceSpan, targetVars *[]*VariableAst) {
	if strings.Contains(identifier, "-") {
		bp.reportError(`"-" is not allowed in variable names`, sourceSpan)
	}
	*targetVars = append(*targetVars, &VariableAst{Name: identifier, Value: value, Span: sourceSpan})
}

func (bp *BindingParser) parseProperty(name, expression string, sourceSpan *util.ParseSourceSpan,
	targetMatchableAttrs *matchableAttrs, targetProps *[]*boundProperty) {
	bp.parsePropertyAst(name, bp.ParseBinding(expression, sourceSpan), sourceSpan, targetMatchableAttrs, targetProps)
}

func (bp *BindingParser) parsePropertyInterpolation(name, value string, sourceSpan *util.ParseSourceSpan,
	targetMatchableAttrs *matchableAttrs, targetProps *[]*boundProperty) bool {
	expr := bp.ParseInterpolation(value, sourceSpan)
	if expr == nil {
		return false
	}
	bp.parsePropertyAst(name, expr, sourceSpan, targetMatchableAttrs, targetProps)
	return true
}

func (bp *BindingParser) parsePropertyAst(name string, ast *expression_parser.ASTWithSource, sourceSpan *util.ParseSourceSpan,
	targetMatchableAttrs *matchableAttrs, targetProps *[]*boundProperty) {
	targetMatchableAttrs.add(name, ast.Source)
	*targetProps = append(*targetProps, &boundProperty{name: name, expression: ast, span: sourceSpan})
}

// parseAssignmentEvent adds the nameChange listener of a two-way binding.
func (bp *BindingParser) parseAssignmentEvent(name, expression string, sourceSpan *util.ParseSourceSpan,
	targetMatchableAttrs *matchableAttrs, targetEvents *[]*BoundEventAst) {
	bp.parseEvent(name+"Change", expression+"=$event", sourceSpan, targetMatchableAttrs, targetEvents)
}

func (bp *BindingParser) parseEvent(name, expression string, sourceSpan *util.ParseSourceSpan,
	targetMatchableAttrs *matchableAttrs, targetEvents *[]*BoundEventAst) {
	// long format: 'target: eventName'
	parts := util.SplitAtColon(name, []string{"", name})
	ast := bp.ParseAction(expression, sourceSpan)
	targetMatchableAttrs.add(name, ast.Source)
	*targetEvents = append(*targetEvents, &BoundEventAst{
		Name:    parts[1],
		Target:  parts[0],
		Handler: ast,
		Span:    sourceSpan,
	})
}

// parseLiteralAttr records a plain attribute in case a directive declares
// it as an input. A nil value stands for a microsyntax key without an
// expression.
func (bp *BindingParser) parseLiteralAttr(name string, value *string, sourceSpan *util.ParseSourceSpan, targetProps *[]*boundProperty) {
	var expr *expression_parser.ASTWithSource
	if value != nil {
		expr = bp.exprParser.WrapLiteralPrimitive(*value, "")
	} else {
		expr = &expression_parser.ASTWithSource{AST: &expression_parser.LiteralPrimitive{}}
	}
	*targetProps = append(*targetProps, &boundProperty{name: name, expression: expr, isLiteral: true, span: sourceSpan})
}

// createElementPropertyAst resolves name into a property, attribute,
// class or style binding on elementName.
func (bp *BindingParser) createElementPropertyAst(elementName, name string, ast expression_parser.AST,
	sourceSpan *util.ParseSourceSpan) *BoundElementPropertyAst {
	prop := &BoundElementPropertyAst{Value: ast, Span: sourceSpan}
	parts := strings.Split(name, propertyPartsSeparator)
	if len(parts) == 1 {
		prop.Name = bp.schemaRegistry.GetMappedPropName(parts[0])
		prop.Type = PropertyBindingTypeProperty
		if !bp.schemaRegistry.HasProperty(elementName, prop.Name) {
			bp.reportError("Can't bind to '"+prop.Name+"' since it isn't a known native property", sourceSpan)
		}
		return prop
	}

	prop.Name = parts[1]
	switch parts[0] {
	case attributePrefix:
		prop.Type = PropertyBindingTypeAttribute
	case classPrefix:
		prop.Type = PropertyBindingTypeClass
	case stylePrefix:
		prop.Type = PropertyBindingTypeStyle
		if len(parts) > 2 {
			prop.Unit = parts[2]
		}
	default:
		bp.reportError("Invalid property name '"+name+"'", sourceSpan)
	}
	return prop
}

func (bp *BindingParser) createDirectiveHostPropertyAsts(elementName string, hostProps []HostBinding,
	sourceSpan *util.ParseSourceSpan) []*BoundElementPropertyAst {
	var out []*BoundElementPropertyAst
	for _, hp := range hostProps {
		exprAst := bp.ParseBinding(hp.Value, sourceSpan)
		out = append(out, bp.createElementPropertyAst(elementName, hp.Name, exprAst, sourceSpan))
	}
	return out
}

func (bp *BindingParser) createDirectiveHostEventAsts(hostListeners []HostBinding, sourceSpan *util.ParseSourceSpan) []*BoundEventAst {
	var out []*BoundEventAst
	var ignored matchableAttrs
	for _, hl := range hostListeners {
		bp.parseEvent(hl.Name, hl.Value, sourceSpan, &ignored, &out)
	}
	return out
}

// pipeCollector gathers the distinct pipe names used in an expression.
type pipeCollector struct {
	expression_parser.RecursiveAstVisitor
	seen  map[string]bool
	pipes []string
}

func newPipeCollector() *pipeCollector {
	c := &pipeCollector{seen: map[string]bool{}}
	c.Self = c
	return c
}

func (c *pipeCollector) VisitPipe(ast *expression_parser.BindingPipe, context any) any {
	if !c.seen[ast.Name] {
		c.seen[ast.Name] = true
		c.pipes = append(c.pipes, ast.Name)
	}
	ast.Exp.Visit(c, context)
	c.VisitAll(ast.Args, context)
	return nil
}
