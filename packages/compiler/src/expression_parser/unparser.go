package expression_parser

import (
	"fmt"
	"strings"
)

// Unparse renders an AST back to canonical expression text. Pipes are
// parenthesized and interpolations are written as "{{ expr }}".
func Unparse(ast AST) string {
	u := &unparser{}
	ast.Visit(u, nil)
	return u.b.String()
}

type unparser struct {
	b strings.Builder
}

var _ AstVisitor = (*unparser)(nil)

func (u *unparser) visit(ast AST) {
	ast.Visit(u, nil)
}

func (u *unparser) visitList(asts []AST, sep string) {
	for i, a := range asts {
		if i > 0 {
			u.b.WriteString(sep)
		}
		u.visit(a)
	}
}

func (u *unparser) member(receiver AST, name string) {
	u.visit(receiver)
	if _, implicit := receiver.(*ImplicitReceiver); !implicit {
		u.b.WriteString(".")
	}
	u.b.WriteString(name)
}

func (u *unparser) VisitEmptyExpr(*EmptyExpr, any) any               { return nil }
func (u *unparser) VisitImplicitReceiver(*ImplicitReceiver, any) any { return nil }

func (u *unparser) VisitChain(a *Chain, _ any) any {
	u.visitList(a.Expressions, "; ")
	return nil
}

func (u *unparser) VisitConditional(a *Conditional, _ any) any {
	u.visit(a.Condition)
	u.b.WriteString(" ? ")
	u.visit(a.TrueExp)
	u.b.WriteString(" : ")
	u.visit(a.FalseExp)
	return nil
}

func (u *unparser) VisitPropertyRead(a *PropertyRead, _ any) any {
	u.member(a.Receiver, a.Name)
	return nil
}

func (u *unparser) VisitPropertyWrite(a *PropertyWrite, _ any) any {
	u.member(a.Receiver, a.Name)
	u.b.WriteString(" = ")
	u.visit(a.Value)
	return nil
}

func (u *unparser) VisitSafePropertyRead(a *SafePropertyRead, _ any) any {
	u.visit(a.Receiver)
	u.b.WriteString("?." + a.Name)
	return nil
}

func (u *unparser) VisitKeyedRead(a *KeyedRead, _ any) any {
	u.visit(a.Obj)
	u.b.WriteString("[")
	u.visit(a.Key)
	u.b.WriteString("]")
	return nil
}

func (u *unparser) VisitKeyedWrite(a *KeyedWrite, _ any) any {
	u.visit(a.Obj)
	u.b.WriteString("[")
	u.visit(a.Key)
	u.b.WriteString("] = ")
	u.visit(a.Value)
	return nil
}

func (u *unparser) VisitPipe(a *BindingPipe, _ any) any {
	u.b.WriteString("(")
	u.visit(a.Exp)
	u.b.WriteString(" | " + a.Name)
	for _, arg := range a.Args {
		u.b.WriteString(":")
		u.visit(arg)
	}
	u.b.WriteString(")")
	return nil
}

func (u *unparser) VisitLiteralPrimitive(a *LiteralPrimitive, _ any) any {
	switch v := a.Value.(type) {
	case nil:
		u.b.WriteString("null")
	case string:
		u.b.WriteString(`"` + strings.ReplaceAll(v, `"`, `\"`) + `"`)
	default:
		fmt.Fprint(&u.b, v)
	}
	return nil
}

func (u *unparser) VisitLiteralArray(a *LiteralArray, _ any) any {
	u.b.WriteString("[")
	u.visitList(a.Expressions, ", ")
	u.b.WriteString("]")
	return nil
}

func (u *unparser) VisitLiteralMap(a *LiteralMap, _ any) any {
	u.b.WriteString("{")
	for i, key := range a.Keys {
		if i > 0 {
			u.b.WriteString(", ")
		}
		u.b.WriteString(key + ": ")
		u.visit(a.Values[i])
	}
	u.b.WriteString("}")
	return nil
}

func (u *unparser) VisitInterpolation(a *Interpolation, _ any) any {
	for i, s := range a.Strings {
		u.b.WriteString(s)
		if i < len(a.Expressions) {
			u.b.WriteString("{{ ")
			u.visit(a.Expressions[i])
			u.b.WriteString(" }}")
		}
	}
	return nil
}

func (u *unparser) VisitBinary(a *Binary, _ any) any {
	u.visit(a.Left)
	u.b.WriteString(" " + a.Operation + " ")
	u.visit(a.Right)
	return nil
}

func (u *unparser) VisitPrefixNot(a *PrefixNot, _ any) any {
	u.b.WriteString("!")
	u.visit(a.Expression)
	return nil
}

func (u *unparser) VisitMethodCall(a *MethodCall, _ any) any {
	u.member(a.Receiver, a.Name)
	u.b.WriteString("(")
	u.visitList(a.Args, ", ")
	u.b.WriteString(")")
	return nil
}

func (u *unparser) VisitSafeMethodCall(a *SafeMethodCall, _ any) any {
	u.visit(a.Receiver)
	u.b.WriteString("?." + a.Name + "(")
	u.visitList(a.Args, ", ")
	u.b.WriteString(")")
	return nil
}

func (u *unparser) VisitFunctionCall(a *FunctionCall, _ any) any {
	u.visit(a.Target)
	u.b.WriteString("(")
	u.visitList(a.Args, ", ")
	u.b.WriteString(")")
	return nil
}
