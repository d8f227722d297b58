package expression_parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"ng2c-go/packages/compiler/src/core"
)

var interpolationRegexp = regexp.MustCompile(`\{\{([\s\S]*?)\}\}`)

// ParseException is a parser diagnostic. Its message names the column of
// the offending token and the location of the whole expression.
type ParseException struct {
	Message     string
	Input       string
	ErrLocation string
	CtxLocation string
}

func (e *ParseException) Error() string {
	return fmt.Sprintf("Parser Error: %s %s [%s] in %s", e.Message, e.ErrLocation, e.Input, e.CtxLocation)
}

// Parser turns expression source into ASTs. The zero value is not usable;
// use NewParser.
type Parser struct {
	lexer *Lexer
}

// NewParser creates a new Parser
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// ParseAction parses an event handler: chains and assignments are
// allowed, pipes are not.
func (p *Parser) ParseAction(input, location string) (*ASTWithSource, error) {
	if err := p.checkNoInterpolation(input, location); err != nil {
		return nil, err
	}
	ast, err := p.parse(input, location, stripComments(input), true, (*parseAST).parseChain)
	if err != nil {
		return nil, err
	}
	return &ASTWithSource{AST: ast, Source: input, Location: location}, nil
}

// ParseBinding parses a property binding: pipes are allowed, chains and
// assignments are not.
func (p *Parser) ParseBinding(input, location string) (*ASTWithSource, error) {
	ast, err := p.parseBindingAST(input, location)
	if err != nil {
		return nil, err
	}
	return &ASTWithSource{AST: ast, Source: input, Location: location}, nil
}

// ParseSimpleBinding parses a host binding, which may only read fields
// and constants.
func (p *Parser) ParseSimpleBinding(input, location string) (*ASTWithSource, error) {
	ast, err := p.parseBindingAST(input, location)
	if err != nil {
		return nil, err
	}
	if !IsSimpleExpression(ast) {
		return nil, &ParseException{
			Message:     "Host binding expression can only contain field access and constants",
			Input:       input,
			ErrLocation: "at column 0 in",
			CtxLocation: location,
		}
	}
	return &ASTWithSource{AST: ast, Source: input, Location: location}, nil
}

func (p *Parser) parseBindingAST(input, location string) (AST, error) {
	if err := p.checkNoInterpolation(input, location); err != nil {
		return nil, err
	}
	return p.parse(input, location, stripComments(input), false, (*parseAST).parseChain)
}

// ParseTemplateBindings parses microsyntax such as
// "ngFor #item of items; #i=index".
func (p *Parser) ParseTemplateBindings(input, location string) ([]*TemplateBinding, error) {
	tokens, err := p.lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	var bindings []*TemplateBinding
	err = runParser(func() {
		bindings = newParseAST(input, location, tokens, false).parseTemplateBindings()
	})
	return bindings, err
}

// ParseInterpolation parses text containing {{ }} expressions. It returns
// nil, nil when the text has no interpolation.
func (p *Parser) ParseInterpolation(input, location string) (*ASTWithSource, error) {
	strs, exprs, err := p.SplitInterpolation(input, location)
	if err != nil || strs == nil {
		return nil, err
	}
	asts := make([]AST, 0, len(exprs))
	for _, expr := range exprs {
		ast, err := p.parse(input, location, stripComments(expr), false, (*parseAST).parseChain)
		if err != nil {
			return nil, err
		}
		asts = append(asts, ast)
	}
	return &ASTWithSource{
		AST:      &Interpolation{Strings: strs, Expressions: asts},
		Source:   input,
		Location: location,
	}, nil
}

// SplitInterpolation separates literal text from {{ }} expression text.
// It returns nil slices when there is no interpolation.
func (p *Parser) SplitInterpolation(input, location string) (strs, exprs []string, err error) {
	parts := splitInterpolationParts(input)
	if len(parts) <= 1 {
		return nil, nil, nil
	}
	for i, part := range parts {
		switch {
		case i%2 == 0:
			strs = append(strs, part)
		case strings.TrimSpace(part) != "":
			exprs = append(exprs, part)
		default:
			return nil, nil, &ParseException{
				Message:     "Blank expressions are not allowed in interpolated strings",
				Input:       input,
				ErrLocation: fmt.Sprintf("at column %d in", interpolationErrorColumn(parts, i)),
				CtxLocation: location,
			}
		}
	}
	return strs, exprs, nil
}

// WrapLiteralPrimitive wraps a constant string as an expression.
func (p *Parser) WrapLiteralPrimitive(input, location string) *ASTWithSource {
	return &ASTWithSource{AST: &LiteralPrimitive{Value: input}, Source: input, Location: location}
}

func (p *Parser) parse(input, location, text string, parseAction bool, rule func(*parseAST) AST) (AST, error) {
	tokens, err := p.lexer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	var ast AST
	err = runParser(func() {
		ast = rule(newParseAST(input, location, tokens, parseAction))
	})
	return ast, err
}

func (p *Parser) checkNoInterpolation(input, location string) error {
	parts := splitInterpolationParts(input)
	if len(parts) > 1 {
		return &ParseException{
			Message:     "Got interpolation ({{}}) where expression was expected",
			Input:       input,
			ErrLocation: fmt.Sprintf("at column %d in", interpolationErrorColumn(parts, 1)),
			CtxLocation: location,
		}
	}
	return nil
}

// splitInterpolationParts alternates text and the inside of each {{ }}.
func splitInterpolationParts(input string) []string {
	matches := interpolationRegexp.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return []string{input}
	}
	parts := make([]string, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		parts = append(parts, input[last:m[0]], input[m[2]:m[3]])
		last = m[1]
	}
	return append(parts, input[last:])
}

func interpolationErrorColumn(parts []string, partIndex int) int {
	column := 0
	for j := 0; j < partIndex; j++ {
		if j%2 == 0 {
			column += len(parts[j])
		} else {
			column += len(parts[j]) + 4
		}
	}
	return column
}

// stripComments drops a trailing // comment that is not inside a string.
func stripComments(input string) string {
	var quote rune
	prev := rune(0)
	for i, c := range input {
		switch {
		case quote == 0 && c == '/' && prev == '/':
			return strings.TrimSpace(input[:i-1])
		case quote == c:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		}
		prev = c
	}
	return input
}

func runParser(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*ParseException)
			if !ok {
				panic(r)
			}
			err = pe
		}
	}()
	fn()
	return nil
}

type parseAST struct {
	input       string
	location    string
	tokens      []*Token
	parseAction bool
	index       int
}

func newParseAST(input, location string, tokens []*Token, parseAction bool) *parseAST {
	return &parseAST{input: input, location: location, tokens: tokens, parseAction: parseAction}
}

func (p *parseAST) peek(offset int) *Token {
	i := p.index + offset
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	return EOF
}

func (p *parseAST) next() *Token { return p.peek(0) }

func (p *parseAST) inputIndex() int {
	if p.index < len(p.tokens) {
		return p.next().Index
	}
	return len(p.input)
}

func (p *parseAST) advance() { p.index++ }

func (p *parseAST) optionalCharacter(code rune) bool {
	if p.next().IsCharacter(code) {
		p.advance()
		return true
	}
	return false
}

func (p *parseAST) expectCharacter(code rune) {
	if !p.optionalCharacter(code) {
		p.error(fmt.Sprintf("Missing expected %c", code))
	}
}

func (p *parseAST) optionalOperator(op string) bool {
	if p.next().IsOperator(op) {
		p.advance()
		return true
	}
	return false
}

func (p *parseAST) expectOperator(op string) {
	if !p.optionalOperator(op) {
		p.error("Missing expected operator " + op)
	}
}

func (p *parseAST) optionalKeywordVar() bool {
	if p.next().IsKeywordVar() {
		p.advance()
		return true
	}
	return false
}

func (p *parseAST) expectIdentifierOrKeyword() string {
	n := p.next()
	if !n.IsIdentifier() && !n.IsKeyword() {
		p.error(fmt.Sprintf("Unexpected token %s, expected identifier or keyword", n))
	}
	p.advance()
	return n.String()
}

func (p *parseAST) expectIdentifierOrKeywordOrString() string {
	n := p.next()
	if !n.IsIdentifier() && !n.IsKeyword() && !n.IsString() {
		p.error(fmt.Sprintf("Unexpected token %s, expected identifier, keyword, or string", n))
	}
	p.advance()
	return n.String()
}

func (p *parseAST) parseChain() AST {
	var exprs []AST
	for p.index < len(p.tokens) {
		exprs = append(exprs, p.parsePipe())
		if p.optionalCharacter(core.CharSEMICOLON) {
			if !p.parseAction {
				p.error("Binding expression cannot contain chained expression")
			}
			for p.optionalCharacter(core.CharSEMICOLON) {
			}
		} else if p.index < len(p.tokens) {
			p.error(fmt.Sprintf("Unexpected token '%s'", p.next()))
		}
	}
	switch len(exprs) {
	case 0:
		return &EmptyExpr{}
	case 1:
		return exprs[0]
	}
	return &Chain{Expressions: exprs}
}

func (p *parseAST) parsePipe() AST {
	result := p.parseExpression()
	if p.optionalOperator("|") {
		if p.parseAction {
			p.error("Cannot have a pipe in an action expression")
		}
		for {
			name := p.expectIdentifierOrKeyword()
			var args []AST
			for p.optionalCharacter(core.CharCOLON) {
				args = append(args, p.parseExpression())
			}
			result = &BindingPipe{Exp: result, Name: name, Args: args}
			if !p.optionalOperator("|") {
				break
			}
		}
	}
	return result
}

func (p *parseAST) parseExpression() AST {
	return p.parseConditional()
}

func (p *parseAST) parseConditional() AST {
	start := p.inputIndex()
	result := p.parseLogicalOr()
	if !p.optionalOperator("?") {
		return result
	}
	yes := p.parsePipe()
	if !p.optionalCharacter(core.CharCOLON) {
		end := p.inputIndex()
		p.error(fmt.Sprintf("Conditional expression %s requires all 3 expressions", p.input[start:end]))
	}
	no := p.parsePipe()
	return &Conditional{Condition: result, TrueExp: yes, FalseExp: no}
}

func (p *parseAST) parseLogicalOr() AST {
	result := p.parseLogicalAnd()
	for p.optionalOperator("||") {
		result = &Binary{Operation: "||", Left: result, Right: p.parseLogicalAnd()}
	}
	return result
}

func (p *parseAST) parseLogicalAnd() AST {
	result := p.parseEquality()
	for p.optionalOperator("&&") {
		result = &Binary{Operation: "&&", Left: result, Right: p.parseEquality()}
	}
	return result
}

func (p *parseAST) parseBinaryLevel(operators []string, operand func() AST) AST {
	result := operand()
outer:
	for {
		for _, op := range operators {
			if p.optionalOperator(op) {
				result = &Binary{Operation: op, Left: result, Right: operand()}
				continue outer
			}
		}
		return result
	}
}

func (p *parseAST) parseEquality() AST {
	return p.parseBinaryLevel([]string{"==", "===", "!=", "!=="}, p.parseRelational)
}

func (p *parseAST) parseRelational() AST {
	return p.parseBinaryLevel([]string{"<", ">", "<=", ">="}, p.parseAdditive)
}

func (p *parseAST) parseAdditive() AST {
	return p.parseBinaryLevel([]string{"+", "-"}, p.parseMultiplicative)
}

func (p *parseAST) parseMultiplicative() AST {
	return p.parseBinaryLevel([]string{"*", "%", "/"}, p.parsePrefix)
}

func (p *parseAST) parsePrefix() AST {
	switch {
	case p.optionalOperator("+"):
		return p.parsePrefix()
	case p.optionalOperator("-"):
		return &Binary{Operation: "-", Left: &LiteralPrimitive{Value: 0}, Right: p.parsePrefix()}
	case p.optionalOperator("!"):
		return &PrefixNot{Expression: p.parsePrefix()}
	}
	return p.parseCallChain()
}

func (p *parseAST) parseCallChain() AST {
	result := p.parsePrimary()
	for {
		switch {
		case p.optionalCharacter(core.CharPERIOD):
			result = p.parseAccessMemberOrMethodCall(result, false)
		case p.optionalOperator("?."):
			result = p.parseAccessMemberOrMethodCall(result, true)
		case p.optionalCharacter(core.CharLBRACKET):
			key := p.parsePipe()
			p.expectCharacter(core.CharRBRACKET)
			if p.optionalOperator("=") {
				result = &KeyedWrite{Obj: result, Key: key, Value: p.parseConditional()}
			} else {
				result = &KeyedRead{Obj: result, Key: key}
			}
		case p.optionalCharacter(core.CharLPAREN):
			args := p.parseCallArguments()
			p.expectCharacter(core.CharRPAREN)
			result = &FunctionCall{Target: result, Args: args}
		default:
			return result
		}
	}
}

func (p *parseAST) parsePrimary() AST {
	n := p.next()
	switch {
	case p.optionalCharacter(core.CharLPAREN):
		result := p.parsePipe()
		p.expectCharacter(core.CharRPAREN)
		return result
	case n.IsKeywordNull(), n.IsKeywordUndefined():
		p.advance()
		return &LiteralPrimitive{Value: nil}
	case n.IsKeywordTrue():
		p.advance()
		return &LiteralPrimitive{Value: true}
	case n.IsKeywordFalse():
		p.advance()
		return &LiteralPrimitive{Value: false}
	case p.optionalCharacter(core.CharLBRACKET):
		elements := p.parseExpressionList(core.CharRBRACKET)
		p.expectCharacter(core.CharRBRACKET)
		return &LiteralArray{Expressions: elements}
	case n.IsCharacter(core.CharLBRACE):
		return p.parseLiteralMap()
	case n.IsIdentifier():
		return p.parseAccessMemberOrMethodCall(&ImplicitReceiver{}, false)
	case n.IsNumber():
		p.advance()
		return &LiteralPrimitive{Value: n.ToNumber()}
	case n.IsString():
		p.advance()
		return &LiteralPrimitive{Value: n.String()}
	case p.index >= len(p.tokens):
		p.error("Unexpected end of expression: " + p.input)
	default:
		p.error(fmt.Sprintf("Unexpected token %s", n))
	}
	return nil
}

func (p *parseAST) parseExpressionList(terminator rune) []AST {
	var result []AST
	if !p.next().IsCharacter(terminator) {
		for {
			result = append(result, p.parsePipe())
			if !p.optionalCharacter(core.CharCOMMA) {
				break
			}
		}
	}
	return result
}

func (p *parseAST) parseLiteralMap() AST {
	m := &LiteralMap{}
	p.expectCharacter(core.CharLBRACE)
	if !p.optionalCharacter(core.CharRBRACE) {
		for {
			m.Keys = append(m.Keys, p.expectIdentifierOrKeywordOrString())
			p.expectCharacter(core.CharCOLON)
			m.Values = append(m.Values, p.parsePipe())
			if !p.optionalCharacter(core.CharCOMMA) {
				break
			}
		}
		p.expectCharacter(core.CharRBRACE)
	}
	return m
}

func (p *parseAST) parseAccessMemberOrMethodCall(receiver AST, isSafe bool) AST {
	id := p.expectIdentifierOrKeyword()

	if p.optionalCharacter(core.CharLPAREN) {
		args := p.parseCallArguments()
		p.expectCharacter(core.CharRPAREN)
		if isSafe {
			return &SafeMethodCall{Receiver: receiver, Name: id, Args: args}
		}
		return &MethodCall{Receiver: receiver, Name: id, Args: args}
	}

	if isSafe {
		if p.optionalOperator("=") {
			p.error("The '?.' operator cannot be used in the assignment")
		}
		return &SafePropertyRead{Receiver: receiver, Name: id}
	}
	if p.optionalOperator("=") {
		if !p.parseAction {
			p.error("Bindings cannot contain assignments")
		}
		return &PropertyWrite{Receiver: receiver, Name: id, Value: p.parseConditional()}
	}
	return &PropertyRead{Receiver: receiver, Name: id}
}

func (p *parseAST) parseCallArguments() []AST {
	if p.next().IsCharacter(core.CharRPAREN) {
		return nil
	}
	var args []AST
	for {
		args = append(args, p.parsePipe())
		if !p.optionalCharacter(core.CharCOMMA) {
			return args
		}
	}
}

// expectTemplateBindingKey reads a possibly dashed key such as "a-b".
func (p *parseAST) expectTemplateBindingKey() string {
	var b strings.Builder
	for {
		b.WriteString(p.expectIdentifierOrKeywordOrString())
		if !p.optionalOperator("-") {
			return b.String()
		}
		b.WriteString("-")
	}
}

func (p *parseAST) atVarDeclaration() bool {
	n := p.next()
	return n.IsKeywordVar() || n.IsKeywordLet() || n.IsOperator("#")
}

func (p *parseAST) parseTemplateBindings() []*TemplateBinding {
	var bindings []*TemplateBinding
	prefix := ""
	for p.index < len(p.tokens) {
		keyIsVar := p.atVarDeclaration()
		if keyIsVar {
			p.advance()
		}
		key := p.expectTemplateBindingKey()
		if !keyIsVar {
			if prefix == "" {
				prefix = key
			} else {
				key = prefix + upperFirst(key)
			}
		}
		p.optionalCharacter(core.CharCOLON)

		binding := &TemplateBinding{Key: key, KeyIsVar: keyIsVar}
		if keyIsVar {
			if p.optionalOperator("=") {
				binding.Name = p.expectTemplateBindingKey()
			} else {
				binding.Name = "$implicit"
			}
		} else if p.next() != EOF && !p.atVarDeclaration() {
			start := p.inputIndex()
			ast := p.parsePipe()
			source := p.input[start:p.inputIndex()]
			binding.Expression = &ASTWithSource{AST: ast, Source: source, Location: p.location}
		}
		bindings = append(bindings, binding)
		if !p.optionalCharacter(core.CharSEMICOLON) {
			p.optionalCharacter(core.CharCOMMA)
		}
	}
	return bindings
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (p *parseAST) error(message string) {
	location := "at the end of the expression"
	if p.index < len(p.tokens) {
		location = fmt.Sprintf("at column %d in", p.tokens[p.index].Index+1)
	}
	panic(&ParseException{Message: message, Input: p.input, ErrLocation: location, CtxLocation: p.location})
}

// IsSimpleExpression reports whether ast only reads fields and constants.
func IsSimpleExpression(ast AST) bool {
	c := &simpleExpressionChecker{simple: true}
	c.Self = c
	ast.Visit(c, nil)
	return c.simple
}

type simpleExpressionChecker struct {
	RecursiveAstVisitor
	simple bool
}

func (c *simpleExpressionChecker) fail() any {
	c.simple = false
	return nil
}

func (c *simpleExpressionChecker) VisitPropertyRead(*PropertyRead, any) any { return nil }
func (c *simpleExpressionChecker) VisitChain(*Chain, any) any               { return c.fail() }
func (c *simpleExpressionChecker) VisitConditional(*Conditional, any) any   { return c.fail() }
func (c *simpleExpressionChecker) VisitPropertyWrite(*PropertyWrite, any) any {
	return c.fail()
}
func (c *simpleExpressionChecker) VisitSafePropertyRead(*SafePropertyRead, any) any {
	return c.fail()
}
func (c *simpleExpressionChecker) VisitKeyedRead(*KeyedRead, any) any         { return c.fail() }
func (c *simpleExpressionChecker) VisitKeyedWrite(*KeyedWrite, any) any       { return c.fail() }
func (c *simpleExpressionChecker) VisitPipe(*BindingPipe, any) any            { return c.fail() }
func (c *simpleExpressionChecker) VisitInterpolation(*Interpolation, any) any { return c.fail() }
func (c *simpleExpressionChecker) VisitBinary(*Binary, any) any               { return c.fail() }
func (c *simpleExpressionChecker) VisitPrefixNot(*PrefixNot, any) any         { return c.fail() }
func (c *simpleExpressionChecker) VisitMethodCall(*MethodCall, any) any       { return c.fail() }
func (c *simpleExpressionChecker) VisitSafeMethodCall(*SafeMethodCall, any) any {
	return c.fail()
}
func (c *simpleExpressionChecker) VisitFunctionCall(*FunctionCall, any) any { return c.fail() }
