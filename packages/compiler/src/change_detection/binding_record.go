package change_detection

import (
	"strconv"

	"ng2c-go/packages/compiler/src/expression_parser"
)

// BindingTargetMode tells the dispatcher what kind of target a binding
// updates.
type BindingTargetMode string

const (
	TargetDirectiveLifecycle BindingTargetMode = "directiveLifecycle"
	TargetBinding            BindingTargetMode = "native"
	TargetDirectiveProperty  BindingTargetMode = "directive"
	TargetElementProperty    BindingTargetMode = "elementProperty"
	TargetElementAttribute   BindingTargetMode = "elementAttribute"
	TargetElementClass       BindingTargetMode = "elementClass"
	TargetElementStyle       BindingTargetMode = "elementStyle"
	TargetTextNode           BindingTargetMode = "textNode"
	TargetEvent              BindingTargetMode = "event"
	TargetHostEvent          BindingTargetMode = "hostEvent"
)

// BindingTarget is where the value of a binding ends up. Debug is the
// expression text and its location, used in error messages.
type BindingTarget struct {
	Mode         BindingTargetMode
	ElementIndex int
	Name         string
	Unit         string
	Debug        string
}

func (t *BindingTarget) IsDirective() bool       { return t.Mode == TargetDirectiveProperty }
func (t *BindingTarget) IsElementProperty() bool { return t.Mode == TargetElementProperty }
func (t *BindingTarget) IsElementAttribute() bool {
	return t.Mode == TargetElementAttribute
}
func (t *BindingTarget) IsElementClass() bool { return t.Mode == TargetElementClass }
func (t *BindingTarget) IsElementStyle() bool { return t.Mode == TargetElementStyle }
func (t *BindingTarget) IsTextNode() bool     { return t.Mode == TargetTextNode }

// DirectiveIndex locates a directive: the element it sits on and its
// position among that element's directives.
type DirectiveIndex struct {
	ElementIndex   int
	DirectiveIndex int
}

// Name is a stable identifier, e.g. "directive_1_0".
func (d DirectiveIndex) Name() string {
	return "directive_" + strconv.Itoa(d.ElementIndex) + "_" + strconv.Itoa(d.DirectiveIndex)
}

// DirectiveRecord lists the hooks a directive implements and how it is
// change detected.
type DirectiveRecord struct {
	DirectiveIndex          DirectiveIndex
	CallOnChanges           bool
	CallDoCheck             bool
	CallOnInit              bool
	CallAfterContentInit    bool
	CallAfterContentChecked bool
	CallAfterViewInit       bool
	CallAfterViewChecked    bool
	CallOnDestroy           bool
	ChangeDetection         ChangeDetectionStrategy
}

// IsDefaultChangeDetection reports whether the directive's own view is
// checked on every pass.
func (d *DirectiveRecord) IsDefaultChangeDetection() bool {
	return IsDefaultChangeDetectionStrategy(d.ChangeDetection)
}

// BindingMode says how a BindingRecord is evaluated.
type BindingMode int

const (
	BindingModeBinding BindingMode = iota
	BindingModeDirectiveLifecycle
	BindingModeEvent
)

// Setter writes a directive input. When nil the input is written by
// name through reflection.
type Setter func(directive, value any) error

// BindingRecord is one unit of work of a change detector: an expression
// evaluated against the context (or a directive, for host bindings) and
// the target its value is written to.
type BindingRecord struct {
	Mode   BindingMode
	Target *BindingTarget
	// ImplicitReceiver is nil for the component context, or the
	// directive that host bindings and host events read from.
	ImplicitReceiver *DirectiveIndex
	AST              *expression_parser.ASTWithSource
	PropertyName     string
	Setter           Setter
	LifecycleEvent   LifecycleHook
	DirectiveRecord  *DirectiveRecord
}

func (b *BindingRecord) IsDirectiveLifecycle() bool {
	return b.Mode == BindingModeDirectiveLifecycle
}

// CallOnChanges reports whether a change of this binding is collected
// for the directive's NgOnChanges.
func (b *BindingRecord) CallOnChanges() bool {
	return b.DirectiveRecord != nil && b.DirectiveRecord.CallOnChanges
}

// IsDefaultChangeDetection is true for element bindings and for inputs
// of directives that are checked on every pass.
func (b *BindingRecord) IsDefaultChangeDetection() bool {
	return b.DirectiveRecord == nil || b.DirectiveRecord.IsDefaultChangeDetection()
}

func debugString(ast *expression_parser.ASTWithSource) string {
	if ast == nil {
		return ""
	}
	return ast.String()
}

func CreateDirectiveDoCheck(directiveRecord *DirectiveRecord) *BindingRecord {
	return lifecycleRecord(HookDoCheck, directiveRecord)
}

func CreateDirectiveOnInit(directiveRecord *DirectiveRecord) *BindingRecord {
	return lifecycleRecord(HookOnInit, directiveRecord)
}

func CreateDirectiveOnChanges(directiveRecord *DirectiveRecord) *BindingRecord {
	return lifecycleRecord(HookOnChanges, directiveRecord)
}

func lifecycleRecord(hook LifecycleHook, directiveRecord *DirectiveRecord) *BindingRecord {
	return &BindingRecord{
		Mode:            BindingModeDirectiveLifecycle,
		Target:          &BindingTarget{Mode: TargetDirectiveLifecycle, ElementIndex: directiveRecord.DirectiveIndex.ElementIndex},
		LifecycleEvent:  hook,
		DirectiveRecord: directiveRecord,
	}
}

// CreateForDirective binds ast to the input propertyName of a directive.
func CreateForDirective(ast *expression_parser.ASTWithSource, propertyName string, setter Setter,
	directiveRecord *DirectiveRecord) *BindingRecord {
	target := &BindingTarget{
		Mode:         TargetDirectiveProperty,
		ElementIndex: directiveRecord.DirectiveIndex.ElementIndex,
		Name:         propertyName,
		Debug:        debugString(ast),
	}
	return &BindingRecord{
		Mode:            BindingModeBinding,
		Target:          target,
		AST:             ast,
		PropertyName:    propertyName,
		Setter:          setter,
		DirectiveRecord: directiveRecord,
	}
}

func CreateForElementProperty(ast *expression_parser.ASTWithSource, elementIndex int, propertyName string) *BindingRecord {
	return elementRecord(TargetElementProperty, ast, elementIndex, propertyName, "", nil)
}

func CreateForElementAttribute(ast *expression_parser.ASTWithSource, elementIndex int, attributeName string) *BindingRecord {
	return elementRecord(TargetElementAttribute, ast, elementIndex, attributeName, "", nil)
}

func CreateForElementClass(ast *expression_parser.ASTWithSource, elementIndex int, className string) *BindingRecord {
	return elementRecord(TargetElementClass, ast, elementIndex, className, "", nil)
}

func CreateForElementStyle(ast *expression_parser.ASTWithSource, elementIndex int, styleName, unit string) *BindingRecord {
	return elementRecord(TargetElementStyle, ast, elementIndex, styleName, unit, nil)
}

// CreateForHostProperty binds a host property; the expression is read
// from the directive rather than the component.
func CreateForHostProperty(directiveIndex DirectiveIndex, ast *expression_parser.ASTWithSource, propertyName string) *BindingRecord {
	return elementRecord(TargetElementProperty, ast, directiveIndex.ElementIndex, propertyName, "", &directiveIndex)
}

func CreateForHostAttribute(directiveIndex DirectiveIndex, ast *expression_parser.ASTWithSource, attributeName string) *BindingRecord {
	return elementRecord(TargetElementAttribute, ast, directiveIndex.ElementIndex, attributeName, "", &directiveIndex)
}

func CreateForHostClass(directiveIndex DirectiveIndex, ast *expression_parser.ASTWithSource, className string) *BindingRecord {
	return elementRecord(TargetElementClass, ast, directiveIndex.ElementIndex, className, "", &directiveIndex)
}

func CreateForHostStyle(directiveIndex DirectiveIndex, ast *expression_parser.ASTWithSource, styleName, unit string) *BindingRecord {
	return elementRecord(TargetElementStyle, ast, directiveIndex.ElementIndex, styleName, unit, &directiveIndex)
}

func CreateForTextNode(ast *expression_parser.ASTWithSource, elementIndex int) *BindingRecord {
	return elementRecord(TargetTextNode, ast, elementIndex, "", "", nil)
}

func elementRecord(mode BindingTargetMode, ast *expression_parser.ASTWithSource, elementIndex int,
	name, unit string, receiver *DirectiveIndex) *BindingRecord {
	return &BindingRecord{
		Mode: BindingModeBinding,
		Target: &BindingTarget{
			Mode:         mode,
			ElementIndex: elementIndex,
			Name:         name,
			Unit:         unit,
			Debug:        debugString(ast),
		},
		ImplicitReceiver: receiver,
		AST:              ast,
	}
}

// CreateForEvent binds an event handler on an element.
func CreateForEvent(ast *expression_parser.ASTWithSource, eventName string, elementIndex int) *BindingRecord {
	return &BindingRecord{
		Mode:   BindingModeEvent,
		Target: &BindingTarget{Mode: TargetEvent, ElementIndex: elementIndex, Name: eventName, Debug: debugString(ast)},
		AST:    ast,
	}
}

// CreateForHostEvent binds a host listener; the handler runs against the
// directive.
func CreateForHostEvent(ast *expression_parser.ASTWithSource, eventName string, directiveRecord *DirectiveRecord) *BindingRecord {
	directiveIndex := directiveRecord.DirectiveIndex
	return &BindingRecord{
		Mode: BindingModeEvent,
		Target: &BindingTarget{
			Mode:         TargetHostEvent,
			ElementIndex: directiveIndex.ElementIndex,
			Name:         eventName,
			Debug:        debugString(ast),
		},
		ImplicitReceiver: &directiveIndex,
		AST:              ast,
		DirectiveRecord:  directiveRecord,
	}
}
