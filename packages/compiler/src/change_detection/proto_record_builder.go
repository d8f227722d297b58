package change_detection

import (
	"fmt"
	"slices"

	ep "ng2c-go/packages/compiler/src/expression_parser"
)

// protoRecordBuilder flattens the binding records of a definition into
// one list of ProtoRecords.
type protoRecordBuilder struct {
	records []*ProtoRecord
}

func (b *protoRecordBuilder) add(record *BindingRecord, variableNames []string, bindingIndex int) error {
	var oldLast *ProtoRecord
	if n := len(b.records); n > 0 {
		oldLast = b.records[n-1]
		if oldLast.BindingRecord.DirectiveRecord == record.DirectiveRecord {
			oldLast.LastInDirective = false
		}
	}
	before := len(b.records)
	if record.IsDirectiveLifecycle() {
		b.records = append(b.records, &ProtoRecord{
			Mode:                 RecordDirectiveLifecycle,
			Name:                 record.LifecycleEvent.String(),
			ContextIndex:         -1,
			SelfIndex:            len(b.records) + 1,
			BindingRecord:        record,
			PropertyBindingIndex: bindingIndex,
		})
	} else {
		records, err := convertAst(b.records, record, variableNames, bindingIndex)
		if err != nil {
			return err
		}
		b.records = records
	}
	if n := len(b.records); n > 0 && b.records[n-1] != oldLast {
		newLast := b.records[n-1]
		newLast.LastInBinding = true
		newLast.LastInDirective = true
		b.setArgumentToPureFunction(before)
	}
	return nil
}

func (b *protoRecordBuilder) setArgumentToPureFunction(start int) {
	for _, rec := range b.records[start:] {
		if rec.IsPureFunction() || rec.IsPipeRecord() {
			for _, arg := range rec.Args {
				b.records[arg-1].ArgumentToPureFunction = true
			}
		}
		if rec.IsPipeRecord() && rec.ContextIndex > 0 {
			b.records[rec.ContextIndex-1].ArgumentToPureFunction = true
		}
	}
}

// astConverter appends the records of one expression. Each Visit method
// returns the SelfIndex of the record holding the node's value; the
// implicit receiver evaluates to 0 or to a *DirectiveIndex.
type astConverter struct {
	records       []*ProtoRecord
	bindingRecord *BindingRecord
	variableNames []string
	bindingIndex  int
	err           error
}

func convertAst(records []*ProtoRecord, bindingRecord *BindingRecord, variableNames []string,
	bindingIndex int) ([]*ProtoRecord, error) {
	c := &astConverter{
		records:       records,
		bindingRecord: bindingRecord,
		variableNames: variableNames,
		bindingIndex:  bindingIndex,
	}
	bindingRecord.AST.Visit(c, nil)
	return c.records, c.err
}

func (c *astConverter) addRecord(mode RecordType, name string, fn pureFunc, value any, args, fixedArgs []int,
	context any) int {
	selfIndex := len(c.records) + 1
	rec := &ProtoRecord{
		Mode:                 mode,
		Name:                 name,
		Fn:                   fn,
		Value:                value,
		Args:                 args,
		FixedArgs:            fixedArgs,
		SelfIndex:            selfIndex,
		BindingRecord:        c.bindingRecord,
		PropertyBindingIndex: c.bindingIndex,
	}
	switch ctx := context.(type) {
	case *DirectiveIndex:
		rec.ContextIndex = -1
		rec.DirectiveIndex = ctx
	case int:
		rec.ContextIndex = ctx
	}
	c.records = append(c.records, rec)
	return selfIndex
}

func (c *astConverter) visit(ast ep.AST) any {
	return ast.Visit(c, nil)
}

func (c *astConverter) visitAll(asts []ep.AST) []int {
	out := make([]int, len(asts))
	for i, a := range asts {
		out[i] = c.visit(a).(int)
	}
	return out
}

func (c *astConverter) isVariable(name string, receiver ep.AST) bool {
	_, implicit := receiver.(*ep.ImplicitReceiver)
	return implicit && slices.Contains(c.variableNames, name)
}

func (c *astConverter) VisitEmptyExpr(*ep.EmptyExpr, any) any {
	return c.addRecord(RecordConst, "literal", nil, nil, nil, nil, 0)
}

func (c *astConverter) VisitImplicitReceiver(*ep.ImplicitReceiver, any) any {
	if c.bindingRecord.ImplicitReceiver != nil {
		return c.bindingRecord.ImplicitReceiver
	}
	return 0
}

func (c *astConverter) VisitInterpolation(ast *ep.Interpolation, _ any) any {
	args := c.visitAll(ast.Expressions)
	return c.addRecord(RecordInterpolate, "interpolate", interpolationFn(ast.Strings), nil, args, nil, 0)
}

func (c *astConverter) VisitLiteralPrimitive(ast *ep.LiteralPrimitive, _ any) any {
	return c.addRecord(RecordConst, "literal", nil, ast.Value, nil, nil, 0)
}

func (c *astConverter) VisitPropertyRead(ast *ep.PropertyRead, _ any) any {
	receiver := c.visit(ast.Receiver)
	if c.isVariable(ast.Name, ast.Receiver) {
		return c.addRecord(RecordLocal, ast.Name, nil, nil, nil, nil, receiver)
	}
	return c.addRecord(RecordPropertyRead, ast.Name, nil, nil, nil, nil, receiver)
}

func (c *astConverter) VisitPropertyWrite(ast *ep.PropertyWrite, _ any) any {
	if c.isVariable(ast.Name, ast.Receiver) {
		if c.err == nil {
			c.err = fmt.Errorf("Cannot reassign a variable binding %s", ast.Name)
		}
		return 0
	}
	receiver := c.visit(ast.Receiver)
	value := c.visit(ast.Value).(int)
	return c.addRecord(RecordPropertyWrite, ast.Name, nil, nil, []int{value}, nil, receiver)
}

func (c *astConverter) VisitKeyedWrite(ast *ep.KeyedWrite, _ any) any {
	obj := c.visit(ast.Obj)
	key := c.visit(ast.Key).(int)
	value := c.visit(ast.Value).(int)
	return c.addRecord(RecordKeyedWrite, "", nil, nil, []int{key, value}, nil, obj)
}

func (c *astConverter) VisitSafePropertyRead(ast *ep.SafePropertyRead, _ any) any {
	receiver := c.visit(ast.Receiver)
	return c.addRecord(RecordSafeProperty, ast.Name, nil, nil, nil, nil, receiver)
}

func (c *astConverter) VisitMethodCall(ast *ep.MethodCall, _ any) any {
	receiver := c.visit(ast.Receiver)
	args := c.visitAll(ast.Args)
	if c.isVariable(ast.Name, ast.Receiver) {
		target := c.addRecord(RecordLocal, ast.Name, nil, nil, nil, nil, receiver)
		return c.addRecord(RecordInvokeClosure, "closure", nil, nil, args, nil, target)
	}
	return c.addRecord(RecordInvokeMethod, ast.Name, nil, nil, args, nil, receiver)
}

func (c *astConverter) VisitSafeMethodCall(ast *ep.SafeMethodCall, _ any) any {
	receiver := c.visit(ast.Receiver)
	args := c.visitAll(ast.Args)
	return c.addRecord(RecordSafeMethodInvoke, ast.Name, nil, nil, args, nil, receiver)
}

func (c *astConverter) VisitFunctionCall(ast *ep.FunctionCall, _ any) any {
	target := c.visit(ast.Target)
	args := c.visitAll(ast.Args)
	return c.addRecord(RecordInvokeClosure, "closure", nil, nil, args, nil, target)
}

func (c *astConverter) VisitLiteralArray(ast *ep.LiteralArray, _ any) any {
	args := c.visitAll(ast.Expressions)
	return c.addRecord(RecordCollectionLiteral, fmt.Sprintf("arrayFn%d", len(args)), arrayFn, nil, args, nil, 0)
}

func (c *astConverter) VisitLiteralMap(ast *ep.LiteralMap, _ any) any {
	args := c.visitAll(ast.Values)
	return c.addRecord(RecordCollectionLiteral, fmt.Sprintf("mapFn%v", ast.Keys), mapFn(ast.Keys), nil, args, nil, 0)
}

func (c *astConverter) VisitBinary(ast *ep.Binary, _ any) any {
	left := c.visit(ast.Left).(int)
	switch ast.Operation {
	case "&&":
		branchEnd := []int{0}
		c.addRecord(RecordSkipRecordsIfNot, "SkipRecordsIfNot", nil, nil, nil, branchEnd, left)
		right := c.visit(ast.Right).(int)
		branchEnd[0] = right
		return c.addRecord(RecordPrimitiveOp, "cond", condFn, nil, []int{left, right, left}, nil, 0)
	case "||":
		branchEnd := []int{0}
		c.addRecord(RecordSkipRecordsIf, "SkipRecordsIf", nil, nil, nil, branchEnd, left)
		right := c.visit(ast.Right).(int)
		branchEnd[0] = right
		return c.addRecord(RecordPrimitiveOp, "cond", condFn, nil, []int{left, left, right}, nil, 0)
	}
	right := c.visit(ast.Right).(int)
	op, ok := binaryOperations[ast.Operation]
	if !ok {
		if c.err == nil {
			c.err = fmt.Errorf("Unsupported operation %s", ast.Operation)
		}
		return right
	}
	return c.addRecord(RecordPrimitiveOp, op.name, op.fn, nil, []int{left, right}, nil, 0)
}

func (c *astConverter) VisitPrefixNot(ast *ep.PrefixNot, _ any) any {
	exp := c.visit(ast.Expression).(int)
	return c.addRecord(RecordPrimitiveOp, "operation_negate", negateFn, nil, []int{exp}, nil, 0)
}

func (c *astConverter) VisitConditional(ast *ep.Conditional, _ any) any {
	condition := c.visit(ast.Condition).(int)
	startOfFalse := c.addRecord(RecordSkipRecordsIfNot, "SkipRecordsIfNot", nil, nil, nil, nil, condition)
	whenTrue := c.visit(ast.TrueExp).(int)
	skip := c.addRecord(RecordSkipRecords, "SkipRecords", nil, nil, nil, nil, 0)
	whenFalse := c.visit(ast.FalseExp).(int)
	c.records[startOfFalse-1].FixedArgs = []int{skip}
	c.records[skip-1].FixedArgs = []int{len(c.records)}
	return c.addRecord(RecordPrimitiveOp, "cond", condFn, nil, []int{condition, whenTrue, whenFalse}, nil, 0)
}

func (c *astConverter) VisitPipe(ast *ep.BindingPipe, _ any) any {
	value := c.visit(ast.Exp)
	args := c.visitAll(ast.Args)
	return c.addRecord(RecordPipe, ast.Name, nil, nil, args, nil, value)
}

func (c *astConverter) VisitKeyedRead(ast *ep.KeyedRead, _ any) any {
	obj := c.visit(ast.Obj)
	key := c.visit(ast.Key).(int)
	return c.addRecord(RecordKeyedRead, "keyedAccess", nil, nil, []int{key}, nil, obj)
}

func (c *astConverter) VisitChain(ast *ep.Chain, _ any) any {
	args := c.visitAll(ast.Expressions)
	return c.addRecord(RecordChain, "chain", nil, nil, args, nil, 0)
}

var _ ep.AstVisitor = (*astConverter)(nil)
