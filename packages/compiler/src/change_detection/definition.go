package change_detection

// ChangeDetectorGenConfig toggles the debugging support compiled into
// detectors.
type ChangeDetectorGenConfig struct {
	// GenDebugInfo attaches a debug context from the dispatcher to
	// detection errors.
	GenDebugInfo bool
	// LogBindingUpdate reports every dispatched value through
	// ChangeDispatcher.LogBindingUpdate.
	LogBindingUpdate bool
}

// ChangeDetectorDefinition is everything needed to build a
// ProtoChangeDetector for one view.
type ChangeDetectorDefinition struct {
	ID               string
	Strategy         ChangeDetectionStrategy
	VariableNames    []string
	BindingRecords   []*BindingRecord
	EventRecords     []*BindingRecord
	DirectiveRecords []*DirectiveRecord
	GenConfig        ChangeDetectorGenConfig
}
