package change_detection

import (
	"errors"
	"slices"
	"time"
)

// ChangeDetector dirty checks the bindings of one view instance. It is
// created dehydrated by ProtoChangeDetector.Instantiate and must be
// hydrated with a context before it can run.
type ChangeDetector struct {
	proto  *ProtoChangeDetector
	arena  *Arena
	handle Handle
	owner  Handle

	contentChildren []Handle
	viewChildren    []Handle

	id        string
	strategy  ChangeDetectionStrategy
	genConfig ChangeDetectorGenConfig
	mode      ChangeDetectionStrategy
	state     ChangeDetectorState

	hydrated   bool
	context    any
	locals     *Locals
	dispatcher ChangeDispatcher
	pipes      Pipes

	values     []any
	changes    []bool
	localPipes []*SelectedPipe

	propertyBindingIndex int
}

func (cd *ChangeDetector) ID() string                        { return cd.id }
func (cd *ChangeDetector) Handle() Handle                    { return cd.handle }
func (cd *ChangeDetector) Arena() *Arena                     { return cd.arena }
func (cd *ChangeDetector) Mode() ChangeDetectionStrategy     { return cd.mode }
func (cd *ChangeDetector) SetMode(m ChangeDetectionStrategy) { cd.mode = m }
func (cd *ChangeDetector) State() ChangeDetectorState        { return cd.state }
func (cd *ChangeDetector) Strategy() ChangeDetectionStrategy { return cd.strategy }
func (cd *ChangeDetector) Hydrated() bool                    { return cd.hydrated }
func (cd *ChangeDetector) Proto() *ProtoChangeDetector       { return cd.proto }
func (cd *ChangeDetector) Ref() *ChangeDetectorRef           { return &ChangeDetectorRef{cd: cd} }
func (cd *ChangeDetector) ContentChildren() []*ChangeDetector {
	return cd.arena.resolve(cd.contentChildren)
}
func (cd *ChangeDetector) ViewChildren() []*ChangeDetector { return cd.arena.resolve(cd.viewChildren) }

// Owner returns the detector cd was added to, or nil.
func (cd *ChangeDetector) Owner() *ChangeDetector { return cd.arena.Get(cd.owner) }

// Hydrate binds cd to a context. locals, dispatcher and pipes may be nil.
func (cd *ChangeDetector) Hydrate(context any, locals *Locals, dispatcher ChangeDispatcher, pipes Pipes) {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	cd.mode = modeForStrategy(cd.strategy)
	cd.state = NeverChecked
	cd.context = context
	cd.locals = locals
	cd.dispatcher = dispatcher
	cd.pipes = pipes
	cd.values[0] = context
	cd.hydrated = true
}

// Dehydrate releases the context. Pipes implementing PipeOnDestroy and
// directives flagged CallOnDestroy are destroyed first.
func (cd *ChangeDetector) Dehydrate() {
	if !cd.hydrated {
		return
	}
	for i, p := range cd.localPipes {
		if p == nil {
			continue
		}
		if d, ok := p.Pipe.(PipeOnDestroy); ok {
			d.NgOnDestroy()
		}
		cd.localPipes[i] = nil
	}
	for _, dir := range cd.proto.definition.DirectiveRecords {
		if !dir.CallOnDestroy {
			continue
		}
		if d, ok := cd.dispatcher.GetDirectiveFor(dir.DirectiveIndex).(OnDestroy); ok {
			d.NgOnDestroy()
		}
	}
	cd.resetValues()
	cd.context = nil
	cd.locals = nil
	cd.dispatcher = nil
	cd.pipes = nil
	cd.mode = ModeNone
	cd.hydrated = false
}

func (cd *ChangeDetector) resetValues() {
	for i := range cd.values {
		cd.values[i] = UninitializedValue
		cd.changes[i] = false
	}
	cd.propertyBindingIndex = 0
}

// DestroyRecursive notifies the dispatcher and dehydrates cd and every
// detector below it.
func (cd *ChangeDetector) DestroyRecursive() {
	if cd.hydrated {
		cd.dispatcher.NotifyOnDestroy()
	}
	cd.Dehydrate()
	for _, child := range cd.ContentChildren() {
		child.DestroyRecursive()
	}
	for _, child := range cd.ViewChildren() {
		child.DestroyRecursive()
	}
}

func (cd *ChangeDetector) AddContentChild(child *ChangeDetector) error {
	return cd.addChild(&cd.contentChildren, child)
}

func (cd *ChangeDetector) AddViewChild(child *ChangeDetector) error {
	return cd.addChild(&cd.viewChildren, child)
}

func (cd *ChangeDetector) RemoveContentChild(child *ChangeDetector) {
	cd.removeChild(&cd.contentChildren, child)
}

func (cd *ChangeDetector) RemoveViewChild(child *ChangeDetector) {
	cd.removeChild(&cd.viewChildren, child)
}

// Remove detaches cd from its owner.
func (cd *ChangeDetector) Remove() {
	owner := cd.Owner()
	if owner == nil {
		return
	}
	owner.RemoveContentChild(cd)
	owner.RemoveViewChild(cd)
	cd.owner = NoHandle
}

func (cd *ChangeDetector) addChild(list *[]Handle, child *ChangeDetector) error {
	if child.arena != cd.arena {
		return ErrForeignDetector
	}
	*list = append(*list, child.handle)
	child.owner = cd.handle
	return nil
}

func (cd *ChangeDetector) removeChild(list *[]Handle, child *ChangeDetector) {
	if i := slices.Index(*list, child.handle); i >= 0 && child.arena == cd.arena {
		*list = slices.Delete(*list, i, i+1)
		if child.owner == cd.handle {
			child.owner = NoHandle
		}
	}
}

// MarkAsCheckOnce schedules cd for the next pass.
func (cd *ChangeDetector) MarkAsCheckOnce() { cd.mode = CheckOnce }

// MarkPathToRootAsCheckOnce schedules cd and its owners for the next
// pass. The walk stops at the first detached detector.
func (cd *ChangeDetector) MarkPathToRootAsCheckOnce() {
	for c := cd; c != nil && c.mode != Detached; c = c.Owner() {
		if c.mode == Checked {
			c.mode = CheckOnce
		}
	}
}

// DetectChanges runs a pass over cd and the detectors below it.
func (cd *ChangeDetector) DetectChanges() error { return cd.runTopLevel(false) }

// CheckNoChanges runs a verification pass: it fails with an
// ExpressionChangedAfterItHasBeenCheckedError when any binding value
// differs from the last pass, and calls no hooks.
func (cd *ChangeDetector) CheckNoChanges() error { return cd.runTopLevel(true) }

func (cd *ChangeDetector) runTopLevel(throwOnChange bool) error {
	a := cd.arena
	if a.running {
		return ErrReentrantDetection
	}
	a.running = true
	defer func() { a.running = false }()

	start := time.Now()
	err := cd.runDetectChanges(throwOnChange)
	if a.observer != nil {
		a.observer.ObserveDetection(cd.id, throwOnChange, time.Since(start), err)
	}
	return err
}

func (cd *ChangeDetector) runDetectChanges(throwOnChange bool) error {
	if !cd.hydrated {
		return &DehydratedError{ID: cd.id}
	}
	if cd.mode == Detached || cd.mode == Checked || cd.state == Errored {
		return nil
	}
	if err := cd.detectChangesInRecords(throwOnChange); err != nil {
		return err
	}
	for _, child := range cd.ContentChildren() {
		if err := child.runDetectChanges(throwOnChange); err != nil {
			return err
		}
	}
	if !throwOnChange {
		if err := cd.runHooks(cd.afterContentLifecycleCallbacks); err != nil {
			return err
		}
	}
	for _, child := range cd.ViewChildren() {
		if err := child.runDetectChanges(throwOnChange); err != nil {
			return err
		}
	}
	if !throwOnChange {
		if err := cd.runHooks(cd.afterViewLifecycleCallbacks); err != nil {
			return err
		}
	}
	if !throwOnChange {
		if cd.mode == CheckOnce {
			cd.mode = Checked
		}
		cd.state = CheckedBefore
	}
	return nil
}

func (cd *ChangeDetector) detectChangesInRecords(throwOnChange bool) error {
	err := protect(func() error { return cd.detectChangesInRecordsInternal(throwOnChange) })
	if err == nil {
		return nil
	}
	var changed *ExpressionChangedAfterItHasBeenCheckedError
	if !errors.As(err, &changed) {
		cd.state = Errored
	}
	return cd.wrapError(err)
}

func (cd *ChangeDetector) detectChangesInRecordsInternal(throwOnChange bool) error {
	protos := cd.proto.records
	var changes map[string]*SimpleChange
	isChanged := false
	for i := 0; i < len(protos); i++ {
		proto := protos[i]
		br := proto.BindingRecord
		if cd.firstInBinding(proto) {
			cd.propertyBindingIndex = proto.PropertyBindingIndex
		}

		switch {
		case proto.IsLifecycleRecord():
			if !throwOnChange {
				if err := cd.callLifecycle(br, changes); err != nil {
					return err
				}
			}
		case proto.IsSkipRecord():
			i += computeSkip(i, proto, cd.values)
			continue
		default:
			change, err := cd.check(proto, throwOnChange)
			if err != nil {
				return err
			}
			if change != nil {
				if err := cd.updateDirectiveOrElement(change, br); err != nil {
					return err
				}
				isChanged = true
				changes = addChange(br, change, changes)
			}
		}

		if proto.LastInDirective {
			changes = nil
			if isChanged && !br.IsDefaultChangeDetection() {
				if detector := cd.dispatcher.GetDetectorFor(br.DirectiveRecord.DirectiveIndex); detector != nil {
					detector.MarkAsCheckOnce()
				}
			}
			isChanged = false
		}
	}
	return nil
}

func (cd *ChangeDetector) callLifecycle(br *BindingRecord, changes map[string]*SimpleChange) error {
	dir := cd.dispatcher.GetDirectiveFor(br.DirectiveRecord.DirectiveIndex)
	switch br.LifecycleEvent {
	case HookDoCheck:
		if d, ok := dir.(DoCheck); ok {
			return d.NgDoCheck()
		}
	case HookOnInit:
		if d, ok := dir.(OnInit); ok && cd.state == NeverChecked {
			return d.NgOnInit()
		}
	case HookOnChanges:
		if d, ok := dir.(OnChanges); ok && changes != nil {
			return d.NgOnChanges(changes)
		}
	}
	return nil
}

func addChange(br *BindingRecord, change *SimpleChange, changes map[string]*SimpleChange) map[string]*SimpleChange {
	if !br.CallOnChanges() {
		return changes
	}
	if changes == nil {
		changes = map[string]*SimpleChange{}
	}
	changes[br.PropertyName] = change
	return changes
}

func (cd *ChangeDetector) firstInBinding(r *ProtoRecord) bool {
	return r.SelfIndex == 1 || cd.proto.records[r.SelfIndex-2].BindingRecord != r.BindingRecord
}

func (cd *ChangeDetector) currentBinding() *BindingTarget {
	targets := cd.proto.propertyTargets
	if cd.propertyBindingIndex < 0 || cd.propertyBindingIndex >= len(targets) {
		return nil
	}
	return targets[cd.propertyBindingIndex]
}

func (cd *ChangeDetector) updateDirectiveOrElement(change *SimpleChange, br *BindingRecord) error {
	target := cd.currentBinding()
	if br.DirectiveRecord == nil || br.Target.Mode != TargetDirectiveProperty {
		cd.dispatcher.NotifyOnBinding(target, change.CurrentValue)
		if obs := cd.arena.observer; obs != nil {
			obs.ObserveBinding(cd.id, target)
		}
	} else {
		dir := cd.dispatcher.GetDirectiveFor(br.DirectiveRecord.DirectiveIndex)
		var err error
		if br.Setter != nil {
			err = br.Setter(dir, change.CurrentValue)
		} else {
			err = SetProperty(dir, br.PropertyName, change.CurrentValue)
		}
		if err != nil {
			return err
		}
	}
	if cd.genConfig.LogBindingUpdate {
		cd.dispatcher.LogBindingUpdate(target, change.CurrentValue)
	}
	return nil
}

func (cd *ChangeDetector) check(proto *ProtoRecord, throwOnChange bool) (*SimpleChange, error) {
	if proto.IsPipeRecord() {
		return cd.pipeCheck(proto, throwOnChange)
	}
	return cd.referenceCheck(proto, throwOnChange)
}

func (cd *ChangeDetector) referenceCheck(proto *ProtoRecord, throwOnChange bool) (*SimpleChange, error) {
	self := proto.SelfIndex
	if proto.IsPureFunction() && cd.values[self] != UninitializedValue && !cd.argsChanged(proto) {
		cd.changes[self] = false
		return nil, nil
	}
	curr, err := cd.calculateCurrValue(proto, cd.values, cd.locals)
	if err != nil {
		return nil, err
	}
	if !proto.ShouldBeChecked() {
		cd.values[self] = curr
		cd.changes[self] = true
		return nil, nil
	}
	return cd.compare(proto, curr, throwOnChange)
}

func (cd *ChangeDetector) pipeCheck(proto *ProtoRecord, throwOnChange bool) (*SimpleChange, error) {
	self := proto.SelfIndex
	selected, err := cd.pipeFor(proto)
	if err != nil {
		return nil, err
	}
	if selected.Pure && cd.values[self] != UninitializedValue && !cd.argsOrContextChanged(proto) {
		cd.changes[self] = false
		return nil, nil
	}
	context, err := cd.readContext(proto, cd.values)
	if err != nil {
		return nil, err
	}
	curr, err := selected.Pipe.Transform(context, cd.readArgs(proto, cd.values))
	if err != nil {
		return nil, err
	}
	return cd.compare(proto, curr, throwOnChange)
}

// compare stores curr and reports a change of the last record of a
// binding. CheckNoChanges fails before anything is written.
func (cd *ChangeDetector) compare(proto *ProtoRecord, curr any, throwOnChange bool) (*SimpleChange, error) {
	self := proto.SelfIndex
	prev := cd.values[self]
	if LooseEqual(prev, curr) {
		cd.changes[self] = false
		return nil, nil
	}
	curr = unwrapValue(curr)
	if proto.LastInBinding {
		change := &SimpleChange{PreviousValue: prev, CurrentValue: curr}
		if throwOnChange {
			expression := ""
			if target := cd.currentBinding(); target != nil {
				expression = target.Debug
			}
			return nil, &ExpressionChangedAfterItHasBeenCheckedError{
				Expression:    expression,
				PreviousValue: prev,
				CurrentValue:  curr,
			}
		}
		cd.values[self] = curr
		cd.changes[self] = true
		return change, nil
	}
	cd.values[self] = curr
	cd.changes[self] = true
	return nil, nil
}

func (cd *ChangeDetector) pipeFor(proto *ProtoRecord) (*SelectedPipe, error) {
	if p := cd.localPipes[proto.SelfIndex]; p != nil {
		return p, nil
	}
	if cd.pipes == nil {
		return nil, &PipeNotFoundError{Name: proto.Name}
	}
	p, err := cd.pipes.Get(proto.Name)
	if err != nil {
		return nil, err
	}
	cd.localPipes[proto.SelfIndex] = p
	return p, nil
}

func (cd *ChangeDetector) argsChanged(proto *ProtoRecord) bool {
	for _, arg := range proto.Args {
		if cd.changes[arg] {
			return true
		}
	}
	return false
}

func (cd *ChangeDetector) argsOrContextChanged(proto *ProtoRecord) bool {
	return cd.argsChanged(proto) || (proto.ContextIndex > 0 && cd.changes[proto.ContextIndex])
}

func (cd *ChangeDetector) readContext(proto *ProtoRecord, values []any) (any, error) {
	if proto.ContextIndex == -1 {
		return cd.dispatcher.GetDirectiveFor(*proto.DirectiveIndex), nil
	}
	return values[proto.ContextIndex], nil
}

func (cd *ChangeDetector) readArgs(proto *ProtoRecord, values []any) []any {
	args := make([]any, len(proto.Args))
	for i, a := range proto.Args {
		args[i] = values[a]
	}
	return args
}

func (cd *ChangeDetector) calculateCurrValue(proto *ProtoRecord, values []any, locals *Locals) (any, error) {
	switch proto.Mode {
	case RecordConst:
		return proto.Value, nil
	case RecordLocal:
		if locals == nil {
			return nil, errors.New("Cannot find '" + proto.Name + "'")
		}
		return locals.Get(proto.Name)
	case RecordPrimitiveOp, RecordInterpolate, RecordCollectionLiteral:
		return proto.Fn(cd.readArgs(proto, values))
	case RecordChain:
		args := cd.readArgs(proto, values)
		if len(args) == 0 {
			return nil, nil
		}
		return args[len(args)-1], nil
	}

	context, err := cd.readContext(proto, values)
	if err != nil {
		return nil, err
	}
	switch proto.Mode {
	case RecordSelf:
		return context, nil
	case RecordPropertyRead:
		return GetProperty(context, proto.Name)
	case RecordSafeProperty:
		if isNil(context) {
			return nil, nil
		}
		return GetProperty(context, proto.Name)
	case RecordPropertyWrite:
		value := values[proto.Args[0]]
		return value, SetProperty(context, proto.Name, value)
	case RecordKeyedWrite:
		value := values[proto.Args[1]]
		return value, KeyedWrite(context, values[proto.Args[0]], value)
	case RecordKeyedRead:
		return KeyedRead(context, values[proto.Args[0]])
	case RecordInvokeMethod:
		return InvokeMethod(context, proto.Name, cd.readArgs(proto, values))
	case RecordSafeMethodInvoke:
		if isNil(context) {
			return nil, nil
		}
		return InvokeMethod(context, proto.Name, cd.readArgs(proto, values))
	case RecordInvokeClosure:
		return InvokeClosure(context, cd.readArgs(proto, values))
	}
	return nil, errors.New("Unknown operation " + proto.Mode.String())
}

func (cd *ChangeDetector) runHooks(hooks func() error) error {
	if err := protect(hooks); err != nil {
		cd.state = Errored
		return &ChangeDetectionError{OriginalErr: err}
	}
	return nil
}

func (cd *ChangeDetector) afterContentLifecycleCallbacks() error {
	dirs := cd.proto.definition.DirectiveRecords
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		instance := cd.dispatcher.GetDirectiveFor(dir.DirectiveIndex)
		if d, ok := instance.(AfterContentInit); ok && dir.CallAfterContentInit && cd.state == NeverChecked {
			if err := d.NgAfterContentInit(); err != nil {
				return err
			}
		}
		if d, ok := instance.(AfterContentChecked); ok && dir.CallAfterContentChecked {
			if err := d.NgAfterContentChecked(); err != nil {
				return err
			}
		}
	}
	cd.dispatcher.NotifyAfterContentChecked()
	return nil
}

func (cd *ChangeDetector) afterViewLifecycleCallbacks() error {
	dirs := cd.proto.definition.DirectiveRecords
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		instance := cd.dispatcher.GetDirectiveFor(dir.DirectiveIndex)
		if d, ok := instance.(AfterViewInit); ok && dir.CallAfterViewInit && cd.state == NeverChecked {
			if err := d.NgAfterViewInit(); err != nil {
				return err
			}
		}
		if d, ok := instance.(AfterViewChecked); ok && dir.CallAfterViewChecked {
			if err := d.NgAfterViewChecked(); err != nil {
				return err
			}
		}
	}
	cd.dispatcher.NotifyAfterViewChecked()
	return nil
}

// wrapError attaches the failing binding and, when the dispatcher can
// provide one, its debug context.
func (cd *ChangeDetector) wrapError(err error) error {
	target := cd.currentBinding()
	if target == nil {
		return &ChangeDetectionError{OriginalErr: err}
	}
	ctx, ctxErr := cd.debugContext(target.ElementIndex, nil)
	if ctxErr != nil {
		return &ChangeDetectionError{OriginalErr: err}
	}
	if ctx != nil {
		ctx.Expression = target.Debug
	}
	return &ChangeDetectionError{Location: target.Debug, OriginalErr: err, Context: ctx}
}

func (cd *ChangeDetector) debugContext(elementIndex int, dirIndex *DirectiveIndex) (ctx *DebugContext, err error) {
	if !cd.genConfig.GenDebugInfo {
		return nil, nil
	}
	err = protect(func() error {
		var e error
		ctx, e = cd.dispatcher.GetDebugContext(elementIndex, dirIndex)
		return e
	})
	return ctx, err
}

// HandleEvent runs the handlers bound to eventName on the element at
// elementIndex. It returns false when a handler evaluated to false,
// asking the caller to prevent the default action.
func (cd *ChangeDetector) HandleEvent(eventName string, elementIndex int, event any) (bool, error) {
	if !cd.hydrated {
		return false, &DehydratedError{ID: cd.id}
	}
	locals := NewLocals(cd.locals, map[string]any{eventVariable: event})
	preventDefault := false
	for _, eb := range cd.proto.eventBindings {
		if eb.EventName != eventName || eb.ElementIndex != elementIndex {
			continue
		}
		var res any
		err := protect(func() error {
			var e error
			res, e = cd.processEventBinding(eb, locals)
			return e
		})
		if err != nil {
			ctx, ctxErr := cd.debugContext(elementIndex, eb.DirectiveIndex)
			if ctxErr != nil {
				ctx = nil
			}
			return false, &EventEvaluationError{EventName: eventName, OriginalErr: err, Context: ctx}
		}
		if b, ok := res.(bool); ok && !b {
			preventDefault = true
		}
	}
	cd.MarkPathToRootAsCheckOnce()
	return !preventDefault, nil
}

func (cd *ChangeDetector) processEventBinding(eb *EventBinding, locals *Locals) (any, error) {
	values := make([]any, len(eb.Records)+1)
	values[0] = cd.values[0]
	for i := 0; i < len(eb.Records); i++ {
		proto := eb.Records[i]
		if proto.IsSkipRecord() {
			i += computeSkip(i, proto, values)
			continue
		}
		curr, err := cd.calculateCurrValue(proto, values, locals)
		if err != nil {
			return nil, err
		}
		if proto.LastInBinding {
			cd.markPathAsCheckOnce(proto.BindingRecord)
			return curr, nil
		}
		values[proto.SelfIndex] = curr
	}
	return nil, errors.New("Cannot be reached")
}

// computeSkip is how many records follow the skip record at i before
// the one at FixedArgs[0], or 0 when the skip does not apply.
func computeSkip(i int, proto *ProtoRecord, values []any) int {
	skip := proto.FixedArgs[0] - i - 1
	switch proto.Mode {
	case RecordSkipRecords:
		return skip
	case RecordSkipRecordsIf:
		if IsTruthy(values[proto.ContextIndex]) {
			return skip
		}
	case RecordSkipRecordsIfNot:
		if !IsTruthy(values[proto.ContextIndex]) {
			return skip
		}
	}
	return 0
}

// markPathAsCheckOnce schedules the view of an OnPush directive whose
// host event fired.
func (cd *ChangeDetector) markPathAsCheckOnce(br *BindingRecord) {
	if br.IsDefaultChangeDetection() {
		return
	}
	if detector := cd.dispatcher.GetDetectorFor(br.DirectiveRecord.DirectiveIndex); detector != nil {
		detector.MarkPathToRootAsCheckOnce()
	}
}

// protect turns a panic inside fn into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn()
}
