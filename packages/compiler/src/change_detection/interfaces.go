package change_detection

import "time"

// ChangeDispatcher is implemented by the view that owns a detector. It
// receives binding updates and resolves directive indexes into the
// directive instances and child detectors they stand for.
type ChangeDispatcher interface {
	NotifyOnBinding(target *BindingTarget, value any)
	LogBindingUpdate(target *BindingTarget, value any)
	NotifyAfterContentChecked()
	NotifyAfterViewChecked()
	NotifyOnDestroy()
	GetDebugContext(elementIndex int, directiveIndex *DirectiveIndex) (*DebugContext, error)
	GetDirectiveFor(index DirectiveIndex) any
	GetDetectorFor(index DirectiveIndex) *ChangeDetector
}

// DebugContext is what the view knows about the element a failing
// binding belongs to.
type DebugContext struct {
	Element          any
	ComponentElement any
	Context          any
	Locals           map[string]any
	Injector         any
	Expression       string
}

// Lifecycle hooks. A directive implements the ones it wants; the
// DirectiveRecord flags decide which of them the detector calls.
type (
	OnChanges interface {
		NgOnChanges(changes map[string]*SimpleChange) error
	}
	OnInit interface {
		NgOnInit() error
	}
	DoCheck interface {
		NgDoCheck() error
	}
	AfterContentInit interface {
		NgAfterContentInit() error
	}
	AfterContentChecked interface {
		NgAfterContentChecked() error
	}
	AfterViewInit interface {
		NgAfterViewInit() error
	}
	AfterViewChecked interface {
		NgAfterViewChecked() error
	}
	OnDestroy interface {
		NgOnDestroy()
	}
)

// Observer is told about every detection pass and dispatched binding.
// The metrics collector implements it.
type Observer interface {
	ObserveDetection(id string, checkNoChanges bool, elapsed time.Duration, err error)
	ObserveBinding(id string, target *BindingTarget)
}

type noopDispatcher struct{}

func (noopDispatcher) NotifyOnBinding(*BindingTarget, any)  {}
func (noopDispatcher) LogBindingUpdate(*BindingTarget, any) {}
func (noopDispatcher) NotifyAfterContentChecked()           {}
func (noopDispatcher) NotifyAfterViewChecked()              {}
func (noopDispatcher) NotifyOnDestroy()                     {}
func (noopDispatcher) GetDebugContext(int, *DirectiveIndex) (*DebugContext, error) {
	return nil, nil
}
func (noopDispatcher) GetDirectiveFor(DirectiveIndex) any            { return nil }
func (noopDispatcher) GetDetectorFor(DirectiveIndex) *ChangeDetector { return nil }
