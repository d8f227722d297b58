package change_detection

// ChangeDetectorState records how the last detection pass ended.
type ChangeDetectorState int

const (
	// NeverChecked means the detector has not completed a pass since it
	// was hydrated.
	NeverChecked ChangeDetectorState = iota
	// CheckedBefore means at least one pass completed.
	CheckedBefore
	// Errored means a pass failed; the detector is not checked again
	// until it is rehydrated.
	Errored
)

// ChangeDetectionStrategy selects how a detector decides whether to run.
// It doubles as the runtime mode of a hydrated detector.
type ChangeDetectionStrategy int

const (
	// ModeNone is the mode of a dehydrated detector.
	ModeNone ChangeDetectionStrategy = iota
	// CheckOnce runs the next pass and then switches to Checked.
	CheckOnce
	// Checked skips the detector until it is marked CheckOnce.
	Checked
	// CheckAlways runs every pass.
	CheckAlways
	// Detached skips the detector and its subtree until reattached.
	Detached
	// OnPush hydrates into CheckOnce.
	OnPush
	// Default hydrates into CheckAlways.
	Default
)

var strategyNames = map[ChangeDetectionStrategy]string{
	ModeNone:    "None",
	CheckOnce:   "CheckOnce",
	Checked:     "Checked",
	CheckAlways: "CheckAlways",
	Detached:    "Detached",
	OnPush:      "OnPush",
	Default:     "Default",
}

func (s ChangeDetectionStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseChangeDetectionStrategy maps a strategy name back to its value.
func ParseChangeDetectionStrategy(name string) (ChangeDetectionStrategy, bool) {
	for s, n := range strategyNames {
		if n == name {
			return s, true
		}
	}
	return ModeNone, false
}

// IsDefaultChangeDetectionStrategy reports whether s checks on every pass.
func IsDefaultChangeDetectionStrategy(s ChangeDetectionStrategy) bool {
	return s == ModeNone || s == Default
}

// modeForStrategy is the mode a detector enters when hydrated.
func modeForStrategy(s ChangeDetectionStrategy) ChangeDetectionStrategy {
	if s == OnPush {
		return CheckOnce
	}
	return CheckAlways
}

// LifecycleHook names a directive hook the view compiler wires into a
// DirectiveRecord.
type LifecycleHook int

const (
	HookOnInit LifecycleHook = iota
	HookOnDestroy
	HookDoCheck
	HookOnChanges
	HookAfterContentInit
	HookAfterContentChecked
	HookAfterViewInit
	HookAfterViewChecked
)

var hookNames = [...]string{
	"OnInit", "OnDestroy", "DoCheck", "OnChanges",
	"AfterContentInit", "AfterContentChecked", "AfterViewInit", "AfterViewChecked",
}

func (h LifecycleHook) String() string {
	if int(h) < len(hookNames) {
		return hookNames[h]
	}
	return "Unknown"
}

// ParseLifecycleHook maps a hook name such as "OnInit" to its value.
func ParseLifecycleHook(name string) (LifecycleHook, bool) {
	for i, n := range hookNames {
		if n == name {
			return LifecycleHook(i), true
		}
	}
	return 0, false
}
