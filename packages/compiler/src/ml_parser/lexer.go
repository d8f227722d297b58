package ml_parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"ng2c-go/packages/compiler/src/core"
	"ng2c-go/packages/compiler/src/util"
)

// controlFlowError unwinds the tokenizer back to the main loop. It never
// escapes Tokenize.
type controlFlowError struct {
	err *TokenError
}

func unexpectedCharacterErrorMsg(ch rune) string {
	if ch == core.CharEOF {
		return `Unexpected character "EOF"`
	}
	return fmt.Sprintf(`Unexpected character "%c"`, ch)
}

func unknownEntityErrorMsg(entity string) string {
	return fmt.Sprintf(`Unknown entity "%s" - use the "&#<decimal>;" or  "&#x<hex>;" syntax`, entity)
}

// Tokenize splits markup into tokens. Malformed input never stops the
// tokenizer; problems are reported in TokenizeResult.Errors.
func Tokenize(content, url string, getTagDefinition func(string) TagDefinition) *TokenizeResult {
	if getTagDefinition == nil {
		getTagDefinition = GetHtmlTagDefinition
	}
	return NewTokenizer(util.NewParseSourceFile(content, url), getTagDefinition).Tokenize()
}

type cursorState struct {
	peek   rune
	index  int
	line   int
	column int
}

// Tokenizer is a single-use markup tokenizer over one source file.
type Tokenizer struct {
	file             *util.ParseSourceFile
	input            string
	getTagDefinition func(string) TagDefinition

	cursorState
	peekWidth int

	currentTokenStart *util.ParseLocation
	currentTokenType  TokenType
	tokens            []*Token
	errors            []*TokenError
}

// NewTokenizer creates a new Tokenizer
func NewTokenizer(file *util.ParseSourceFile, getTagDefinition func(string) TagDefinition) *Tokenizer {
	t := &Tokenizer{
		file:             file,
		input:            file.Content,
		getTagDefinition: getTagDefinition,
	}
	t.index = -1
	t.peekWidth = 1
	t.advance()
	return t
}

// Tokenize runs the tokenizer to the end of input.
func (t *Tokenizer) Tokenize() *TokenizeResult {
	for t.peek != core.CharEOF {
		t.step()
	}
	t.beginToken(TokenTypeEOF, nil)
	t.endToken(nil, nil)
	return &TokenizeResult{Tokens: mergeTextTokens(t.tokens), Errors: t.errors}
}

func (t *Tokenizer) step() {
	defer t.handleError()
	start := t.location()
	switch {
	case t.attemptCharCode(core.CharLT):
		switch {
		case t.attemptCharCode(core.CharBANG):
			switch {
			case t.attemptCharCode(core.CharLBRACKET):
				t.consumeCdata(start)
			case t.attemptCharCode(core.CharMINUS):
				t.consumeComment(start)
			default:
				t.consumeDocType(start)
			}
		case t.attemptCharCode(core.CharSLASH):
			t.consumeTagClose(start)
		default:
			t.consumeTagOpen(start)
		}
	default:
		t.consumeText()
	}
}

func (t *Tokenizer) handleError() {
	r := recover()
	if r == nil {
		return
	}
	if cf, ok := r.(*controlFlowError); ok {
		t.errors = append(t.errors, cf.err)
		return
	}
	panic(r)
}

func (t *Tokenizer) location() *util.ParseLocation {
	return util.NewParseLocation(t.file, t.index, t.line, t.column)
}

func (t *Tokenizer) span(start, end *util.ParseLocation) *util.ParseSourceSpan {
	if start == nil {
		start = t.location()
	}
	if end == nil {
		end = t.location()
	}
	return util.NewParseSourceSpan(start, end)
}

func (t *Tokenizer) beginToken(tokenType TokenType, start *util.ParseLocation) {
	if start == nil {
		start = t.location()
	}
	t.currentTokenStart = start
	t.currentTokenType = tokenType
}

func (t *Tokenizer) endToken(parts []string, end *util.ParseLocation) *Token {
	if end == nil {
		end = t.location()
	}
	if parts == nil {
		parts = []string{}
	}
	token := NewToken(t.currentTokenType, parts, util.NewParseSourceSpan(t.currentTokenStart, end))
	t.tokens = append(t.tokens, token)
	t.currentTokenStart = nil
	return token
}

func (t *Tokenizer) createError(msg string, span *util.ParseSourceSpan) *controlFlowError {
	err := NewTokenError(msg, t.currentTokenType, span)
	t.currentTokenStart = nil
	return &controlFlowError{err: err}
}

func (t *Tokenizer) advance() {
	if t.index >= len(t.input) {
		panic(t.createError(unexpectedCharacterErrorMsg(core.CharEOF), t.span(nil, nil)))
	}
	if t.index >= 0 {
		if t.peek == core.CharLF {
			t.line++
			t.column = 0
		} else if t.peek != core.CharCR {
			t.column++
		}
		t.index += t.peekWidth
	} else {
		t.index = 0
	}
	if t.index >= len(t.input) {
		t.peek = core.CharEOF
		t.peekWidth = 0
		return
	}
	r, width := utf8.DecodeRuneInString(t.input[t.index:])
	t.peek = r
	t.peekWidth = width
}

func (t *Tokenizer) savePosition() (cursorState, int, int) {
	return t.cursorState, t.peekWidth, len(t.tokens)
}

func (t *Tokenizer) restorePosition(state cursorState, width, nbTokens int) {
	t.cursorState = state
	t.peekWidth = width
	if nbTokens < len(t.tokens) {
		t.tokens = t.tokens[:nbTokens]
	}
}

func (t *Tokenizer) attemptCharCode(ch rune) bool {
	if t.peek == ch {
		t.advance()
		return true
	}
	return false
}

func (t *Tokenizer) attemptCharCodeCaseInsensitive(ch rune) bool {
	if compareCharCodeCaseInsensitive(t.peek, ch) {
		t.advance()
		return true
	}
	return false
}

func (t *Tokenizer) requireCharCode(ch rune) {
	loc := t.location()
	if !t.attemptCharCode(ch) {
		panic(t.createError(unexpectedCharacterErrorMsg(t.peek), t.span(loc, loc)))
	}
}

func (t *Tokenizer) attemptStr(chars string) bool {
	state, width, n := t.savePosition()
	for _, ch := range chars {
		if !t.attemptCharCode(ch) {
			t.restorePosition(state, width, n)
			return false
		}
	}
	return true
}

func (t *Tokenizer) attemptStrCaseInsensitive(chars string) bool {
	state, width, n := t.savePosition()
	for _, ch := range chars {
		if !t.attemptCharCodeCaseInsensitive(ch) {
			t.restorePosition(state, width, n)
			return false
		}
	}
	return true
}

func (t *Tokenizer) requireStr(chars string) {
	loc := t.location()
	if !t.attemptStr(chars) {
		panic(t.createError(unexpectedCharacterErrorMsg(t.peek), t.span(loc, nil)))
	}
}

func (t *Tokenizer) attemptCharCodeUntilFn(predicate func(rune) bool) {
	for !predicate(t.peek) {
		t.advance()
	}
}

func (t *Tokenizer) requireCharCodeUntilFn(predicate func(rune) bool, length int) {
	start := t.location()
	t.attemptCharCodeUntilFn(predicate)
	if t.index-start.Offset < length {
		panic(t.createError(unexpectedCharacterErrorMsg(t.peek), t.span(start, start)))
	}
}

func (t *Tokenizer) attemptUntilChar(ch rune) {
	for t.peek != ch {
		t.advance()
	}
}

func (t *Tokenizer) readChar(decodeEntities bool) string {
	if decodeEntities && t.peek == core.CharAMPERSAND {
		return t.decodeEntity()
	}
	index := t.index
	t.advance()
	return t.input[index:t.index]
}

func (t *Tokenizer) decodeEntity() string {
	start := t.location()
	t.advance()
	if t.attemptCharCode(core.CharHASH) {
		isHex := t.attemptCharCode('x') || t.attemptCharCode('X')
		numberStart := t.index
		t.attemptCharCodeUntilFn(isDigitEntityEnd)
		if t.peek != core.CharSEMICOLON {
			panic(t.createError(unexpectedCharacterErrorMsg(t.peek), t.span(nil, nil)))
		}
		t.advance()
		strNum := t.input[numberStart : t.index-1]
		base := 10
		if isHex {
			base = 16
		}
		code, err := strconv.ParseInt(strNum, base, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			entity := t.input[start.Offset+1 : t.index-1]
			panic(t.createError(unknownEntityErrorMsg(entity), t.span(start, nil)))
		}
		return string(rune(code))
	}

	state, width, n := t.savePosition()
	t.attemptCharCodeUntilFn(isNamedEntityEnd)
	if t.peek != core.CharSEMICOLON {
		t.restorePosition(state, width, n)
		return "&"
	}
	t.advance()
	name := t.input[start.Offset+1 : t.index-1]
	raw := "&" + name + ";"
	decoded := html.UnescapeString(raw)
	if decoded == raw {
		panic(t.createError(unknownEntityErrorMsg(name), t.span(start, nil)))
	}
	return decoded
}

func (t *Tokenizer) consumeRawText(decodeEntities bool, firstCharOfEnd rune, attemptEndRest func() bool) *Token {
	var tagCloseStart *util.ParseLocation
	textStart := t.location()
	tokenType := TokenTypeRawText
	if decodeEntities {
		tokenType = TokenTypeEscapableRawText
	}
	t.beginToken(tokenType, textStart)
	var parts strings.Builder
	for {
		tagCloseStart = t.location()
		if t.attemptCharCode(firstCharOfEnd) && attemptEndRest() {
			break
		}
		if t.index > tagCloseStart.Offset {
			parts.WriteString(t.input[tagCloseStart.Offset:t.index])
		}
		for t.peek != firstCharOfEnd {
			parts.WriteString(t.readChar(decodeEntities))
		}
	}
	return t.endToken([]string{processCarriageReturns(parts.String())}, tagCloseStart)
}

func (t *Tokenizer) consumeComment(start *util.ParseLocation) {
	t.beginToken(TokenTypeCommentStart, start)
	t.requireCharCode(core.CharMINUS)
	t.endToken(nil, nil)
	textToken := t.consumeRawText(false, core.CharMINUS, func() bool { return t.attemptStr("->") })
	t.beginToken(TokenTypeCommentEnd, textToken.SourceSpan.End)
	t.endToken(nil, nil)
}

func (t *Tokenizer) consumeCdata(start *util.ParseLocation) {
	t.beginToken(TokenTypeCdataStart, start)
	t.requireStr("CDATA[")
	t.endToken(nil, nil)
	textToken := t.consumeRawText(false, core.CharRBRACKET, func() bool { return t.attemptStr("]>") })
	t.beginToken(TokenTypeCdataEnd, textToken.SourceSpan.End)
	t.endToken(nil, nil)
}

func (t *Tokenizer) consumeDocType(start *util.ParseLocation) {
	t.beginToken(TokenTypeDocType, start)
	t.attemptUntilChar(core.CharGT)
	t.advance()
	t.endToken([]string{t.input[start.Offset+2 : t.index-1]}, nil)
}

func (t *Tokenizer) consumePrefixAndName() []string {
	nameOrPrefixStart := t.index
	prefix := ""
	for t.peek != core.CharCOLON && !isPrefixEnd(t.peek) {
		t.advance()
	}
	nameStart := nameOrPrefixStart
	if t.peek == core.CharCOLON {
		t.advance()
		prefix = t.input[nameOrPrefixStart : t.index-1]
		nameStart = t.index
	}
	minLength := 0
	if t.index == nameStart {
		minLength = 1
	}
	t.requireCharCodeUntilFn(isNameEnd, minLength)
	return []string{prefix, t.input[nameStart:t.index]}
}

func (t *Tokenizer) consumeTagOpen(start *util.ParseLocation) {
	state, width, n := t.savePosition()
	lowercaseTagName, ok := t.tryConsumeTagOpen(start)
	if !ok {
		// An invalid start tag is treated as a literal "<".
		t.restorePosition(state, width, n)
		t.beginToken(TokenTypeText, start)
		t.endToken([]string{"<"}, nil)
		return
	}

	switch t.getTagDefinition(lowercaseTagName).ContentType() {
	case TagContentTypeRawText:
		t.consumeRawTextWithTagClose(lowercaseTagName, false)
	case TagContentTypeEscapableRawText:
		t.consumeRawTextWithTagClose(lowercaseTagName, true)
	}
}

func (t *Tokenizer) tryConsumeTagOpen(start *util.ParseLocation) (lowercaseTagName string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, isFlow := r.(*controlFlowError); !isFlow {
				panic(r)
			}
			ok = false
		}
	}()
	if !core.IsAsciiLetter(t.peek) {
		panic(t.createError(unexpectedCharacterErrorMsg(t.peek), t.span(nil, nil)))
	}
	nameStart := t.index
	t.consumeTagOpenStart(start)
	lowercaseTagName = strings.ToLower(t.input[nameStart:t.index])
	t.attemptCharCodeUntilFn(isNotWhitespace)
	for t.peek != core.CharSLASH && t.peek != core.CharGT {
		t.consumeAttributeName()
		t.attemptCharCodeUntilFn(isNotWhitespace)
		if t.attemptCharCode(core.CharEQ) {
			t.attemptCharCodeUntilFn(isNotWhitespace)
			t.consumeAttributeValue()
		}
		t.attemptCharCodeUntilFn(isNotWhitespace)
	}
	t.consumeTagOpenEnd()
	return lowercaseTagName, true
}

func (t *Tokenizer) consumeRawTextWithTagClose(lowercaseTagName string, decodeEntities bool) {
	textToken := t.consumeRawText(decodeEntities, core.CharLT, func() bool {
		if !t.attemptCharCode(core.CharSLASH) {
			return false
		}
		t.attemptCharCodeUntilFn(isNotWhitespace)
		if !t.attemptStrCaseInsensitive(lowercaseTagName) {
			return false
		}
		t.attemptCharCodeUntilFn(isNotWhitespace)
		return t.attemptCharCode(core.CharGT)
	})
	t.beginToken(TokenTypeTagClose, textToken.SourceSpan.End)
	t.endToken([]string{"", lowercaseTagName}, nil)
}

func (t *Tokenizer) consumeTagOpenStart(start *util.ParseLocation) {
	t.beginToken(TokenTypeTagOpenStart, start)
	parts := t.consumePrefixAndName()
	t.endToken(parts, nil)
}

func (t *Tokenizer) consumeAttributeName() {
	t.beginToken(TokenTypeAttrName, nil)
	parts := t.consumePrefixAndName()
	t.endToken(parts, nil)
}

func (t *Tokenizer) consumeAttributeValue() {
	t.beginToken(TokenTypeAttrValue, nil)
	var value string
	if t.peek == core.CharSQ || t.peek == core.CharDQ {
		quoteChar := t.peek
		t.advance()
		var parts strings.Builder
		for t.peek != quoteChar {
			parts.WriteString(t.readChar(true))
		}
		value = parts.String()
		t.advance()
	} else {
		valueStart := t.index
		t.requireCharCodeUntilFn(isNameEnd, 1)
		value = t.input[valueStart:t.index]
	}
	t.endToken([]string{processCarriageReturns(value)}, nil)
}

func (t *Tokenizer) consumeTagOpenEnd() {
	tokenType := TokenTypeTagOpenEnd
	if t.attemptCharCode(core.CharSLASH) {
		tokenType = TokenTypeTagOpenEndVoid
	}
	t.beginToken(tokenType, nil)
	t.requireCharCode(core.CharGT)
	t.endToken(nil, nil)
}

func (t *Tokenizer) consumeTagClose(start *util.ParseLocation) {
	t.beginToken(TokenTypeTagClose, start)
	t.attemptCharCodeUntilFn(isNotWhitespace)
	parts := t.consumePrefixAndName()
	t.attemptCharCodeUntilFn(isNotWhitespace)
	t.requireCharCode(core.CharGT)
	t.endToken(parts, nil)
}

func (t *Tokenizer) consumeText() {
	start := t.location()
	t.beginToken(TokenTypeText, start)
	var parts strings.Builder
	parts.WriteString(t.readChar(true))
	for !isTextEnd(t.peek) {
		parts.WriteString(t.readChar(true))
	}
	t.endToken([]string{processCarriageReturns(parts.String())}, nil)
}

func processCarriageReturns(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

func isNotWhitespace(code rune) bool {
	return !core.IsWhitespace(code) || code == core.CharEOF
}

func isNameEnd(code rune) bool {
	return core.IsWhitespace(code) || code == core.CharGT || code == core.CharSLASH ||
		code == core.CharSQ || code == core.CharDQ || code == core.CharEQ || code == core.CharEOF
}

func isPrefixEnd(code rune) bool {
	return (code < 'a' || 'z' < code) && (code < 'A' || 'Z' < code) && (code < '0' || code > '9')
}

func isDigitEntityEnd(code rune) bool {
	return code == core.CharSEMICOLON || code == core.CharEOF || !core.IsAsciiHexDigit(code)
}

func isNamedEntityEnd(code rune) bool {
	return code == core.CharSEMICOLON || code == core.CharEOF || !core.IsAsciiLetter(code)
}

func isTextEnd(code rune) bool {
	return code == core.CharLT || code == core.CharEOF
}

func compareCharCodeCaseInsensitive(code1, code2 rune) bool {
	return toUpperCaseCharCode(code1) == toUpperCaseCharCode(code2)
}

func toUpperCaseCharCode(code rune) rune {
	if code >= 'a' && code <= 'z' {
		return code - 'a' + 'A'
	}
	return code
}

func mergeTextTokens(srcTokens []*Token) []*Token {
	dstTokens := make([]*Token, 0, len(srcTokens))
	var last *Token
	for _, token := range srcTokens {
		if last != nil && last.Type == TokenTypeText && token.Type == TokenTypeText {
			last.Parts[0] += token.Parts[0]
			last.SourceSpan.End = token.SourceSpan.End
			continue
		}
		last = token
		dstTokens = append(dstTokens, token)
	}
	return dstTokens
}
