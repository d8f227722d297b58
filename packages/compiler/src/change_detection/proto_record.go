package change_detection

// RecordType is the operation a ProtoRecord performs.
type RecordType int

const (
	RecordSelf RecordType = iota
	RecordConst
	RecordPrimitiveOp
	RecordPropertyRead
	RecordPropertyWrite
	RecordLocal
	RecordInvokeMethod
	RecordInvokeClosure
	RecordKeyedRead
	RecordKeyedWrite
	RecordPipe
	RecordInterpolate
	RecordSafeProperty
	RecordCollectionLiteral
	RecordSafeMethodInvoke
	RecordDirectiveLifecycle
	RecordChain
	// RecordSkipRecordsIf jumps to FixedArgs[0] when its context is truthy.
	RecordSkipRecordsIf
	// RecordSkipRecordsIfNot jumps to FixedArgs[0] when its context is falsy.
	RecordSkipRecordsIfNot
	// RecordSkipRecords always jumps to FixedArgs[0].
	RecordSkipRecords
)

var recordTypeNames = [...]string{
	"Self", "Const", "PrimitiveOp", "PropertyRead", "PropertyWrite", "Local",
	"InvokeMethod", "InvokeClosure", "KeyedRead", "KeyedWrite", "Pipe",
	"Interpolate", "SafeProperty", "CollectionLiteral", "SafeMethodInvoke",
	"DirectiveLifecycle", "Chain", "SkipRecordsIf", "SkipRecordsIfNot", "SkipRecords",
}

func (t RecordType) String() string {
	if int(t) < len(recordTypeNames) {
		return recordTypeNames[t]
	}
	return "Unknown"
}

// ProtoRecord is one step of a flattened binding expression. Values are
// addressed by SelfIndex: slot 0 holds the context and record i writes
// slot i+1. Args and ContextIndex refer to those slots.
type ProtoRecord struct {
	Mode RecordType
	Name string
	// Fn computes PrimitiveOp, Interpolate and CollectionLiteral records.
	Fn pureFunc
	// Value is the constant of a Const record.
	Value     any
	Args      []int
	FixedArgs []int
	// ContextIndex is -1 when the context is the directive at
	// DirectiveIndex.
	ContextIndex   int
	DirectiveIndex *DirectiveIndex
	SelfIndex      int
	BindingRecord  *BindingRecord

	LastInBinding          bool
	LastInDirective        bool
	ArgumentToPureFunction bool
	ReferencedBySelf       bool
	// PropertyBindingIndex is the position of the binding in the
	// definition, used to find its BindingTarget.
	PropertyBindingIndex int
}

func (r *ProtoRecord) IsPureFunction() bool {
	return r.Mode == RecordInterpolate || r.Mode == RecordCollectionLiteral
}

func (r *ProtoRecord) IsUsedByOtherRecord() bool {
	return !r.LastInBinding || r.ReferencedBySelf
}

func (r *ProtoRecord) ShouldBeChecked() bool {
	return r.ArgumentToPureFunction || r.LastInBinding || r.IsPureFunction() || r.IsPipeRecord()
}

func (r *ProtoRecord) IsPipeRecord() bool { return r.Mode == RecordPipe }

func (r *ProtoRecord) IsConditionalSkipRecord() bool {
	return r.Mode == RecordSkipRecordsIfNot || r.Mode == RecordSkipRecordsIf
}

func (r *ProtoRecord) IsUnconditionalSkipRecord() bool { return r.Mode == RecordSkipRecords }

func (r *ProtoRecord) IsSkipRecord() bool {
	return r.IsConditionalSkipRecord() || r.IsUnconditionalSkipRecord()
}

func (r *ProtoRecord) IsLifecycleRecord() bool { return r.Mode == RecordDirectiveLifecycle }

// EventBinding is the flattened handler of one event on one element.
type EventBinding struct {
	EventName      string
	ElementIndex   int
	DirectiveIndex *DirectiveIndex
	Records        []*ProtoRecord
}
