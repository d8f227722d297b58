package view_compiler

import (
	"slices"
	"strconv"

	cd "ng2c-go/packages/compiler/src/change_detection"
	"ng2c-go/packages/compiler/src/expression_parser"
	tp "ng2c-go/packages/compiler/src/template_parser"
)

// CreateChangeDetectorDefinitions builds the detector definitions of a
// component template. The first definition is the component view; every
// embedded template adds one more, in document order. Definition ids are
// "<ComponentName>_<index>".
func CreateChangeDetectorDefinitions(
	componentType *tp.CompileTypeMetadata,
	componentStrategy cd.ChangeDetectionStrategy,
	genConfig cd.ChangeDetectorGenConfig,
	parsedTemplate []tp.TemplateAst,
) []*cd.ChangeDetectorDefinition {
	var visitors []*protoViewVisitor
	root := newProtoViewVisitor(&visitors, componentStrategy)
	tp.TemplateVisitAll(root, parsedTemplate, nil)
	return createChangeDefinitions(visitors, componentType, genConfig)
}

// protoViewVisitor collects the records of one view. Nested templates get
// their own visitor, registered in allVisitors when first seen.
type protoViewVisitor struct {
	allVisitors *[]*protoViewVisitor
	strategy    cd.ChangeDetectionStrategy

	boundTextCount    int
	boundElementCount int
	variableNames     []string
	bindingRecords    []*cd.BindingRecord
	eventRecords      []*cd.BindingRecord
	directiveRecords  []*cd.DirectiveRecord
}

var _ tp.TemplateAstVisitor = (*protoViewVisitor)(nil)

func newProtoViewVisitor(allVisitors *[]*protoViewVisitor, strategy cd.ChangeDetectionStrategy) *protoViewVisitor {
	v := &protoViewVisitor{allVisitors: allVisitors, strategy: strategy}
	*allVisitors = append(*allVisitors, v)
	return v
}

func (v *protoViewVisitor) currentElementIndex() int { return v.boundElementCount - 1 }

func (v *protoViewVisitor) VisitEmbeddedTemplate(ast *tp.EmbeddedTemplateAst, _ any) any {
	v.boundElementCount++
	tp.TemplateVisitAll(v, ast.Outputs, nil)
	for i, directive := range ast.Directives {
		directive.Visit(v, i)
	}

	child := newProtoViewVisitor(v.allVisitors, cd.Default)
	// Template variables are locals of the embedded view.
	tp.TemplateVisitAll(child, ast.Vars, nil)
	tp.TemplateVisitAll(child, ast.Children, nil)
	return nil
}

func (v *protoViewVisitor) VisitElement(ast *tp.ElementAst, _ any) any {
	v.boundElementCount++
	tp.TemplateVisitAll(v, ast.Inputs, nil)
	tp.TemplateVisitAll(v, ast.Outputs, nil)
	tp.TemplateVisitAll(v, ast.ExportAsVars, nil)
	for i, directive := range ast.Directives {
		directive.Visit(v, i)
	}
	tp.TemplateVisitAll(v, ast.Children, nil)
	return nil
}

func (v *protoViewVisitor) VisitNgContent(*tp.NgContentAst, any) any { return nil }

// VisitVariable declares a local. A #ref on a component element is seen
// both on the element and on the component, so names are kept unique.
func (v *protoViewVisitor) VisitVariable(ast *tp.VariableAst, _ any) any {
	if !slices.Contains(v.variableNames, ast.Name) {
		v.variableNames = append(v.variableNames, ast.Name)
	}
	return nil
}

// VisitEvent adds an element event, or a host event when context is the
// directive the listener belongs to.
func (v *protoViewVisitor) VisitEvent(ast *tp.BoundEventAst, context any) any {
	handler := withSource(ast.Handler)
	if directiveRecord, ok := context.(*cd.DirectiveRecord); ok {
		v.eventRecords = append(v.eventRecords, cd.CreateForHostEvent(handler, ast.FullName(), directiveRecord))
	} else {
		v.eventRecords = append(v.eventRecords, cd.CreateForEvent(handler, ast.FullName(), v.currentElementIndex()))
	}
	return nil
}

// VisitElementProperty adds an element binding, or a host binding when
// context is the directive declaring it.
func (v *protoViewVisitor) VisitElementProperty(ast *tp.BoundElementPropertyAst, context any) any {
	value := withSource(ast.Value)
	directiveRecord, isHost := context.(*cd.DirectiveRecord)
	var record *cd.BindingRecord
	if isHost {
		index := directiveRecord.DirectiveIndex
		switch ast.Type {
		case tp.PropertyBindingTypeAttribute:
			record = cd.CreateForHostAttribute(index, value, ast.Name)
		case tp.PropertyBindingTypeClass:
			record = cd.CreateForHostClass(index, value, ast.Name)
		case tp.PropertyBindingTypeStyle:
			record = cd.CreateForHostStyle(index, value, ast.Name, ast.Unit)
		default:
			record = cd.CreateForHostProperty(index, value, ast.Name)
		}
	} else {
		index := v.currentElementIndex()
		switch ast.Type {
		case tp.PropertyBindingTypeAttribute:
			record = cd.CreateForElementAttribute(value, index, ast.Name)
		case tp.PropertyBindingTypeClass:
			record = cd.CreateForElementClass(value, index, ast.Name)
		case tp.PropertyBindingTypeStyle:
			record = cd.CreateForElementStyle(value, index, ast.Name, ast.Unit)
		default:
			record = cd.CreateForElementProperty(value, index, ast.Name)
		}
	}
	v.bindingRecords = append(v.bindingRecords, record)
	return nil
}

func (v *protoViewVisitor) VisitAttr(*tp.AttrAst, any) any { return nil }

func (v *protoViewVisitor) VisitBoundText(ast *tp.BoundTextAst, _ any) any {
	index := v.boundTextCount
	v.boundTextCount++
	v.bindingRecords = append(v.bindingRecords, cd.CreateForTextNode(withSource(ast.Value), index))
	return nil
}

func (v *protoViewVisitor) VisitText(*tp.TextAst, any) any { return nil }

// VisitDirective is called with the directive's position on its element
// as context. Input bindings come before the OnChanges, OnInit and
// DoCheck records so that hooks observe the updated inputs.
func (v *protoViewVisitor) VisitDirective(ast *tp.DirectiveAst, context any) any {
	position, _ := context.(int)
	meta := ast.Directive
	directiveRecord := &cd.DirectiveRecord{
		DirectiveIndex:          cd.DirectiveIndex{ElementIndex: v.currentElementIndex(), DirectiveIndex: position},
		CallOnChanges:           meta.HasLifecycleHook(cd.HookOnChanges),
		CallDoCheck:             meta.HasLifecycleHook(cd.HookDoCheck),
		CallOnInit:              meta.HasLifecycleHook(cd.HookOnInit),
		CallAfterContentInit:    meta.HasLifecycleHook(cd.HookAfterContentInit),
		CallAfterContentChecked: meta.HasLifecycleHook(cd.HookAfterContentChecked),
		CallAfterViewInit:       meta.HasLifecycleHook(cd.HookAfterViewInit),
		CallAfterViewChecked:    meta.HasLifecycleHook(cd.HookAfterViewChecked),
		CallOnDestroy:           meta.HasLifecycleHook(cd.HookOnDestroy),
		ChangeDetection:         meta.ChangeDetection,
	}
	v.directiveRecords = append(v.directiveRecords, directiveRecord)

	tp.TemplateVisitAll(v, ast.Inputs, directiveRecord)
	if directiveRecord.CallOnChanges {
		v.bindingRecords = append(v.bindingRecords, cd.CreateDirectiveOnChanges(directiveRecord))
	}
	if directiveRecord.CallOnInit {
		v.bindingRecords = append(v.bindingRecords, cd.CreateDirectiveOnInit(directiveRecord))
	}
	if directiveRecord.CallDoCheck {
		v.bindingRecords = append(v.bindingRecords, cd.CreateDirectiveDoCheck(directiveRecord))
	}
	tp.TemplateVisitAll(v, ast.HostProperties, directiveRecord)
	tp.TemplateVisitAll(v, ast.HostEvents, directiveRecord)
	tp.TemplateVisitAll(v, ast.ExportAsVars, nil)
	return nil
}

func (v *protoViewVisitor) VisitDirectiveProperty(ast *tp.BoundDirectivePropertyAst, context any) any {
	directiveRecord := context.(*cd.DirectiveRecord)
	v.bindingRecords = append(v.bindingRecords,
		cd.CreateForDirective(withSource(ast.Value), ast.DirectiveName, nil, directiveRecord))
	return nil
}

func createChangeDefinitions(
	visitors []*protoViewVisitor,
	componentType *tp.CompileTypeMetadata,
	genConfig cd.ChangeDetectorGenConfig,
) []*cd.ChangeDetectorDefinition {
	defs := make([]*cd.ChangeDetectorDefinition, 0, len(visitors))
	for i, v := range visitors {
		defs = append(defs, &cd.ChangeDetectorDefinition{
			ID:               componentType.Name + "_" + strconv.Itoa(i),
			Strategy:         v.strategy,
			VariableNames:    v.variableNames,
			BindingRecords:   v.bindingRecords,
			EventRecords:     v.eventRecords,
			DirectiveRecords: v.directiveRecords,
			GenConfig:        genConfig,
		})
	}
	return defs
}

// withSource recovers the source carrying wrapper the template parser
// stores for every expression.
func withSource(ast expression_parser.AST) *expression_parser.ASTWithSource {
	if ws, ok := ast.(*expression_parser.ASTWithSource); ok {
		return ws
	}
	return &expression_parser.ASTWithSource{AST: ast}
}
