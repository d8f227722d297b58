package change_detection

import "slices"

// eventVariable is the local holding the event object inside handlers.
const eventVariable = "$event"

// ProtoChangeDetector is the compiled, instance independent form of a
// ChangeDetectorDefinition.
type ProtoChangeDetector struct {
	definition      *ChangeDetectorDefinition
	records         []*ProtoRecord
	eventBindings   []*EventBinding
	propertyTargets []*BindingTarget
}

// NewProtoChangeDetector flattens the bindings and event handlers of def.
func NewProtoChangeDetector(def *ChangeDetectorDefinition) (*ProtoChangeDetector, error) {
	p := &ProtoChangeDetector{definition: def}

	builder := &protoRecordBuilder{}
	for i, record := range def.BindingRecords {
		if err := builder.add(record, def.VariableNames, i); err != nil {
			return nil, err
		}
	}
	p.records = builder.records

	eventVariables := append(slices.Clone(def.VariableNames), eventVariable)
	for i, record := range def.EventRecords {
		records, err := convertAst(nil, record, eventVariables, i)
		if err != nil {
			return nil, err
		}
		if n := len(records); n > 0 {
			records[n-1].LastInBinding = true
		}
		p.eventBindings = append(p.eventBindings, &EventBinding{
			EventName:      record.Target.Name,
			ElementIndex:   record.Target.ElementIndex,
			DirectiveIndex: record.ImplicitReceiver,
			Records:        records,
		})
	}

	for _, record := range def.BindingRecords {
		p.propertyTargets = append(p.propertyTargets, record.Target)
	}
	return p, nil
}

// Definition returns the definition p was compiled from.
func (p *ProtoChangeDetector) Definition() *ChangeDetectorDefinition { return p.definition }

// Records returns the flattened binding records.
func (p *ProtoChangeDetector) Records() []*ProtoRecord { return p.records }

// EventBindings returns the flattened event handlers.
func (p *ProtoChangeDetector) EventBindings() []*EventBinding { return p.eventBindings }

// Instantiate creates a dehydrated detector in arena. A nil arena gets a
// fresh one.
func (p *ProtoChangeDetector) Instantiate(arena *Arena) *ChangeDetector {
	if arena == nil {
		arena = NewArena()
	}
	cd := &ChangeDetector{
		proto:      p,
		id:         p.definition.ID,
		strategy:   p.definition.Strategy,
		genConfig:  p.definition.GenConfig,
		values:     make([]any, len(p.records)+1),
		changes:    make([]bool, len(p.records)+1),
		localPipes: make([]*SelectedPipe, len(p.records)+1),
		mode:       ModeNone,
	}
	cd.resetValues()
	arena.register(cd)
	return cd
}
