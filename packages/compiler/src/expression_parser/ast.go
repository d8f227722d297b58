package expression_parser

// AST is a parsed binding or action expression. The set of node types is
// closed; every node is dispatched through AstVisitor.
type AST interface {
	Visit(visitor AstVisitor, context any) any
	exprNode()
}

// AstVisitor has one method per AST node type.
type AstVisitor interface {
	VisitEmptyExpr(ast *EmptyExpr, context any) any
	VisitImplicitReceiver(ast *ImplicitReceiver, context any) any
	VisitChain(ast *Chain, context any) any
	VisitConditional(ast *Conditional, context any) any
	VisitPropertyRead(ast *PropertyRead, context any) any
	VisitPropertyWrite(ast *PropertyWrite, context any) any
	VisitSafePropertyRead(ast *SafePropertyRead, context any) any
	VisitKeyedRead(ast *KeyedRead, context any) any
	VisitKeyedWrite(ast *KeyedWrite, context any) any
	VisitPipe(ast *BindingPipe, context any) any
	VisitLiteralPrimitive(ast *LiteralPrimitive, context any) any
	VisitLiteralArray(ast *LiteralArray, context any) any
	VisitLiteralMap(ast *LiteralMap, context any) any
	VisitInterpolation(ast *Interpolation, context any) any
	VisitBinary(ast *Binary, context any) any
	VisitPrefixNot(ast *PrefixNot, context any) any
	VisitMethodCall(ast *MethodCall, context any) any
	VisitSafeMethodCall(ast *SafeMethodCall, context any) any
	VisitFunctionCall(ast *FunctionCall, context any) any
}

var (
	_ AST = (*EmptyExpr)(nil)
	_ AST = (*ImplicitReceiver)(nil)
	_ AST = (*Chain)(nil)
	_ AST = (*Conditional)(nil)
	_ AST = (*PropertyRead)(nil)
	_ AST = (*PropertyWrite)(nil)
	_ AST = (*SafePropertyRead)(nil)
	_ AST = (*KeyedRead)(nil)
	_ AST = (*KeyedWrite)(nil)
	_ AST = (*BindingPipe)(nil)
	_ AST = (*LiteralPrimitive)(nil)
	_ AST = (*LiteralArray)(nil)
	_ AST = (*LiteralMap)(nil)
	_ AST = (*Interpolation)(nil)
	_ AST = (*Binary)(nil)
	_ AST = (*PrefixNot)(nil)
	_ AST = (*MethodCall)(nil)
	_ AST = (*SafeMethodCall)(nil)
	_ AST = (*FunctionCall)(nil)
	_ AST = (*ASTWithSource)(nil)

	_ AstVisitor = (*RecursiveAstVisitor)(nil)
)

type EmptyExpr struct{}

type ImplicitReceiver struct{}

// Chain is a sequence of expressions separated by ";" (actions only).
type Chain struct {
	Expressions []AST
}

type Conditional struct {
	Condition AST
	TrueExp   AST
	FalseExp  AST
}

type PropertyRead struct {
	Receiver AST
	Name     string
}

type PropertyWrite struct {
	Receiver AST
	Name     string
	Value    AST
}

// SafePropertyRead is receiver?.name.
type SafePropertyRead struct {
	Receiver AST
	Name     string
}

type KeyedRead struct {
	Obj AST
	Key AST
}

type KeyedWrite struct {
	Obj   AST
	Key   AST
	Value AST
}

// BindingPipe is exp | name:arg1:arg2.
type BindingPipe struct {
	Exp  AST
	Name string
	Args []AST
}

// LiteralPrimitive holds nil, a bool, a string, an int or a float64.
type LiteralPrimitive struct {
	Value any
}

type LiteralArray struct {
	Expressions []AST
}

type LiteralMap struct {
	Keys   []string
	Values []AST
}

// Interpolation alternates Strings and Expressions:
// len(Strings) == len(Expressions)+1.
type Interpolation struct {
	Strings     []string
	Expressions []AST
}

type Binary struct {
	Operation string
	Left      AST
	Right     AST
}

type PrefixNot struct {
	Expression AST
}

type MethodCall struct {
	Receiver AST
	Name     string
	Args     []AST
}

type SafeMethodCall struct {
	Receiver AST
	Name     string
	Args     []AST
}

type FunctionCall struct {
	Target AST
	Args   []AST
}

// ASTWithSource pairs an AST with the text it was parsed from and a
// description of where that text lives.
type ASTWithSource struct {
	AST      AST
	Source   string
	Location string
}

func (*EmptyExpr) exprNode()        {}
func (*ImplicitReceiver) exprNode() {}
func (*Chain) exprNode()            {}
func (*Conditional) exprNode()      {}
func (*PropertyRead) exprNode()     {}
func (*PropertyWrite) exprNode()    {}
func (*SafePropertyRead) exprNode() {}
func (*KeyedRead) exprNode()        {}
func (*KeyedWrite) exprNode()       {}
func (*BindingPipe) exprNode()      {}
func (*LiteralPrimitive) exprNode() {}
func (*LiteralArray) exprNode()     {}
func (*LiteralMap) exprNode()       {}
func (*Interpolation) exprNode()    {}
func (*Binary) exprNode()           {}
func (*PrefixNot) exprNode()        {}
func (*MethodCall) exprNode()       {}
func (*SafeMethodCall) exprNode()   {}
func (*FunctionCall) exprNode()     {}
func (*ASTWithSource) exprNode()    {}

func (a *EmptyExpr) Visit(v AstVisitor, ctx any) any        { return v.VisitEmptyExpr(a, ctx) }
func (a *ImplicitReceiver) Visit(v AstVisitor, ctx any) any { return v.VisitImplicitReceiver(a, ctx) }
func (a *Chain) Visit(v AstVisitor, ctx any) any            { return v.VisitChain(a, ctx) }
func (a *Conditional) Visit(v AstVisitor, ctx any) any      { return v.VisitConditional(a, ctx) }
func (a *PropertyRead) Visit(v AstVisitor, ctx any) any     { return v.VisitPropertyRead(a, ctx) }
func (a *PropertyWrite) Visit(v AstVisitor, ctx any) any    { return v.VisitPropertyWrite(a, ctx) }
func (a *SafePropertyRead) Visit(v AstVisitor, ctx any) any { return v.VisitSafePropertyRead(a, ctx) }
func (a *KeyedRead) Visit(v AstVisitor, ctx any) any        { return v.VisitKeyedRead(a, ctx) }
func (a *KeyedWrite) Visit(v AstVisitor, ctx any) any       { return v.VisitKeyedWrite(a, ctx) }
func (a *BindingPipe) Visit(v AstVisitor, ctx any) any      { return v.VisitPipe(a, ctx) }
func (a *LiteralPrimitive) Visit(v AstVisitor, ctx any) any { return v.VisitLiteralPrimitive(a, ctx) }
func (a *LiteralArray) Visit(v AstVisitor, ctx any) any     { return v.VisitLiteralArray(a, ctx) }
func (a *LiteralMap) Visit(v AstVisitor, ctx any) any       { return v.VisitLiteralMap(a, ctx) }
func (a *Interpolation) Visit(v AstVisitor, ctx any) any    { return v.VisitInterpolation(a, ctx) }
func (a *Binary) Visit(v AstVisitor, ctx any) any           { return v.VisitBinary(a, ctx) }
func (a *PrefixNot) Visit(v AstVisitor, ctx any) any        { return v.VisitPrefixNot(a, ctx) }
func (a *MethodCall) Visit(v AstVisitor, ctx any) any       { return v.VisitMethodCall(a, ctx) }
func (a *SafeMethodCall) Visit(v AstVisitor, ctx any) any   { return v.VisitSafeMethodCall(a, ctx) }
func (a *FunctionCall) Visit(v AstVisitor, ctx any) any     { return v.VisitFunctionCall(a, ctx) }

// Visit forwards to the wrapped AST.
func (a *ASTWithSource) Visit(v AstVisitor, ctx any) any { return a.AST.Visit(v, ctx) }

func (a *ASTWithSource) String() string {
	return a.Source + " in " + a.Location
}

// TemplateBinding is one entry of a structural directive's microsyntax.
// KeyIsVar bindings declare a local Name; the others bind Expression to
// the input Key.
type TemplateBinding struct {
	Key        string
	KeyIsVar   bool
	Name       string
	Expression *ASTWithSource
}

// RecursiveAstVisitor walks every node. Embed it and override the methods
// of interest; Self must point at the embedding visitor so that children
// are dispatched to the overrides.
type RecursiveAstVisitor struct {
	Self AstVisitor
}

func (r *RecursiveAstVisitor) self() AstVisitor {
	if r.Self != nil {
		return r.Self
	}
	return r
}

// VisitAll visits each AST in order.
func (r *RecursiveAstVisitor) VisitAll(asts []AST, ctx any) any {
	for _, a := range asts {
		a.Visit(r.self(), ctx)
	}
	return nil
}

func (r *RecursiveAstVisitor) VisitEmptyExpr(*EmptyExpr, any) any               { return nil }
func (r *RecursiveAstVisitor) VisitImplicitReceiver(*ImplicitReceiver, any) any { return nil }
func (r *RecursiveAstVisitor) VisitLiteralPrimitive(*LiteralPrimitive, any) any { return nil }

func (r *RecursiveAstVisitor) VisitChain(a *Chain, ctx any) any {
	return r.VisitAll(a.Expressions, ctx)
}

func (r *RecursiveAstVisitor) VisitConditional(a *Conditional, ctx any) any {
	a.Condition.Visit(r.self(), ctx)
	a.TrueExp.Visit(r.self(), ctx)
	a.FalseExp.Visit(r.self(), ctx)
	return nil
}

func (r *RecursiveAstVisitor) VisitPropertyRead(a *PropertyRead, ctx any) any {
	return a.Receiver.Visit(r.self(), ctx)
}

func (r *RecursiveAstVisitor) VisitPropertyWrite(a *PropertyWrite, ctx any) any {
	a.Receiver.Visit(r.self(), ctx)
	return a.Value.Visit(r.self(), ctx)
}

func (r *RecursiveAstVisitor) VisitSafePropertyRead(a *SafePropertyRead, ctx any) any {
	return a.Receiver.Visit(r.self(), ctx)
}

func (r *RecursiveAstVisitor) VisitKeyedRead(a *KeyedRead, ctx any) any {
	a.Obj.Visit(r.self(), ctx)
	return a.Key.Visit(r.self(), ctx)
}

func (r *RecursiveAstVisitor) VisitKeyedWrite(a *KeyedWrite, ctx any) any {
	a.Obj.Visit(r.self(), ctx)
	a.Key.Visit(r.self(), ctx)
	return a.Value.Visit(r.self(), ctx)
}

func (r *RecursiveAstVisitor) VisitPipe(a *BindingPipe, ctx any) any {
	a.Exp.Visit(r.self(), ctx)
	return r.VisitAll(a.Args, ctx)
}

func (r *RecursiveAstVisitor) VisitLiteralArray(a *LiteralArray, ctx any) any {
	return r.VisitAll(a.Expressions, ctx)
}

func (r *RecursiveAstVisitor) VisitLiteralMap(a *LiteralMap, ctx any) any {
	return r.VisitAll(a.Values, ctx)
}

func (r *RecursiveAstVisitor) VisitInterpolation(a *Interpolation, ctx any) any {
	return r.VisitAll(a.Expressions, ctx)
}

func (r *RecursiveAstVisitor) VisitBinary(a *Binary, ctx any) any {
	a.Left.Visit(r.self(), ctx)
	return a.Right.Visit(r.self(), ctx)
}

func (r *RecursiveAstVisitor) VisitPrefixNot(a *PrefixNot, ctx any) any {
	return a.Expression.Visit(r.self(), ctx)
}

func (r *RecursiveAstVisitor) VisitMethodCall(a *MethodCall, ctx any) any {
	a.Receiver.Visit(r.self(), ctx)
	return r.VisitAll(a.Args, ctx)
}

func (r *RecursiveAstVisitor) VisitSafeMethodCall(a *SafeMethodCall, ctx any) any {
	a.Receiver.Visit(r.self(), ctx)
	return r.VisitAll(a.Args, ctx)
}

func (r *RecursiveAstVisitor) VisitFunctionCall(a *FunctionCall, ctx any) any {
	a.Target.Visit(r.self(), ctx)
	return r.VisitAll(a.Args, ctx)
}
