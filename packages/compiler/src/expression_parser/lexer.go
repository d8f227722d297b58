package expression_parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"ng2c-go/packages/compiler/src/core"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenTypeCharacter TokenType = iota
	TokenTypeIdentifier
	TokenTypeKeyword
	TokenTypeString
	TokenTypeOperator
	TokenTypeNumber
)

var keywords = map[string]bool{
	"var":       true,
	"let":       true,
	"null":      true,
	"undefined": true,
	"true":      true,
	"false":     true,
	"if":        true,
	"else":      true,
}

// Token is one lexeme of an expression. Index is the byte offset of its
// first character.
type Token struct {
	Index    int
	Type     TokenType
	NumValue any // int or float64 for numbers, the rune for characters
	StrValue string
}

// IsCharacter checks if the token is the character code
func (t *Token) IsCharacter(code rune) bool {
	return t.Type == TokenTypeCharacter && t.NumValue == code
}

func (t *Token) IsNumber() bool     { return t.Type == TokenTypeNumber }
func (t *Token) IsString() bool     { return t.Type == TokenTypeString }
func (t *Token) IsIdentifier() bool { return t.Type == TokenTypeIdentifier }
func (t *Token) IsKeyword() bool    { return t.Type == TokenTypeKeyword }

// IsOperator checks if the token is the given operator
func (t *Token) IsOperator(operator string) bool {
	return t.Type == TokenTypeOperator && t.StrValue == operator
}

func (t *Token) isKeyword(kw string) bool {
	return t.Type == TokenTypeKeyword && t.StrValue == kw
}

func (t *Token) IsKeywordVar() bool       { return t.isKeyword("var") }
func (t *Token) IsKeywordLet() bool       { return t.isKeyword("let") }
func (t *Token) IsKeywordNull() bool      { return t.isKeyword("null") }
func (t *Token) IsKeywordUndefined() bool { return t.isKeyword("undefined") }
func (t *Token) IsKeywordTrue() bool      { return t.isKeyword("true") }
func (t *Token) IsKeywordFalse() bool     { return t.isKeyword("false") }

// ToNumber returns the numeric value of a number token, or -1.
func (t *Token) ToNumber() any {
	if t.Type == TokenTypeNumber {
		return t.NumValue
	}
	return -1
}

func (t *Token) String() string {
	switch t.Type {
	case TokenTypeCharacter, TokenTypeIdentifier, TokenTypeKeyword, TokenTypeOperator, TokenTypeString:
		return t.StrValue
	case TokenTypeNumber:
		return fmt.Sprint(t.NumValue)
	}
	return ""
}

// EOF is returned when peeking past the last token.
var EOF = &Token{Index: -1, Type: TokenTypeCharacter, NumValue: rune(0)}

// LexerError reports a character the expression lexer could not accept.
type LexerError struct {
	Message  string
	Position int
	Input    string
}

func (e *LexerError) Error() string {
	return fmt.Sprintf("Lexer Error: %s at column %d in expression [%s]", e.Message, e.Position, e.Input)
}

// Lexer splits expression source into Tokens.
type Lexer struct{}

// NewLexer creates a new Lexer
func NewLexer() *Lexer {
	return &Lexer{}
}

// Tokenize scans text completely. The first unreadable character stops
// the scan with a *LexerError.
func (l *Lexer) Tokenize(text string) (tokens []*Token, err error) {
	s := &scanner{input: text}
	s.decode()
	defer func() {
		if r := recover(); r != nil {
			lexErr, ok := r.(*LexerError)
			if !ok {
				panic(r)
			}
			tokens, err = nil, lexErr
		}
	}()
	for tok := s.scanToken(); tok != nil; tok = s.scanToken() {
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// scanner positions are byte offsets; peek is the rune starting there.
type scanner struct {
	input string
	peek  rune
	index int
	width int
}

func (s *scanner) advance() {
	s.index += s.width
	s.decode()
}

func (s *scanner) decode() {
	if s.index >= len(s.input) {
		s.peek, s.width = core.CharEOF, 0
		return
	}
	s.peek, s.width = utf8.DecodeRuneInString(s.input[s.index:])
}

func (s *scanner) scanToken() *Token {
	for s.index < len(s.input) && s.peek <= core.CharSPACE {
		s.advance()
	}
	if s.index >= len(s.input) {
		return nil
	}

	peek, start := s.peek, s.index
	if isIdentifierStart(peek) {
		return s.scanIdentifier()
	}
	if core.IsDigit(peek) {
		return s.scanNumber(start)
	}

	switch peek {
	case core.CharPERIOD:
		s.advance()
		if core.IsDigit(s.peek) {
			return s.scanNumber(start)
		}
		return newCharacterToken(start, core.CharPERIOD)
	case core.CharLPAREN, core.CharRPAREN, core.CharLBRACE, core.CharRBRACE,
		core.CharLBRACKET, core.CharRBRACKET, core.CharCOMMA, core.CharCOLON, core.CharSEMICOLON:
		s.advance()
		return newCharacterToken(start, peek)
	case core.CharSQ, core.CharDQ:
		return s.scanString()
	case core.CharHASH, core.CharPLUS, core.CharMINUS, core.CharSTAR, core.CharSLASH, core.CharPERCENT, core.CharCARET:
		s.advance()
		return newOperatorToken(start, string(peek))
	case core.CharQUESTION:
		return s.scanComplexOperator(start, "?", core.CharPERIOD, ".", 0)
	case core.CharLT, core.CharGT:
		return s.scanComplexOperator(start, string(peek), core.CharEQ, "=", 0)
	case core.CharBANG, core.CharEQ:
		return s.scanComplexOperator(start, string(peek), core.CharEQ, "=", core.CharEQ)
	case core.CharAMPERSAND:
		return s.scanComplexOperator(start, "&", core.CharAMPERSAND, "&", 0)
	case core.CharBAR:
		return s.scanComplexOperator(start, "|", core.CharBAR, "|", 0)
	case core.CharNBSP:
		for core.IsWhitespace(s.peek) {
			s.advance()
		}
		return s.scanToken()
	}

	s.error(fmt.Sprintf("Unexpected character [%c]", peek), 0)
	return nil
}

// scanComplexOperator scans one, one+two, or one+two+three.
func (s *scanner) scanComplexOperator(start int, one string, twoCode rune, two string, threeCode rune) *Token {
	s.advance()
	str := one
	if s.peek == twoCode {
		s.advance()
		str += two
	}
	if threeCode != 0 && s.peek == threeCode {
		s.advance()
		str += string(threeCode)
	}
	return newOperatorToken(start, str)
}

func (s *scanner) scanIdentifier() *Token {
	start := s.index
	s.advance()
	for isIdentifierPart(s.peek) {
		s.advance()
	}
	str := s.input[start:s.index]
	if keywords[str] {
		return &Token{Index: start, Type: TokenTypeKeyword, StrValue: str}
	}
	return &Token{Index: start, Type: TokenTypeIdentifier, StrValue: str}
}

func (s *scanner) scanNumber(start int) *Token {
	simple := s.index == start
	s.advance()
	for {
		if core.IsDigit(s.peek) {
			// keep going
		} else if s.peek == core.CharPERIOD {
			simple = false
		} else if isExponentStart(s.peek) {
			s.advance()
			if isExponentSign(s.peek) {
				s.advance()
			}
			if !core.IsDigit(s.peek) {
				s.error("Invalid exponent", -1)
			}
			simple = false
		} else {
			break
		}
		s.advance()
	}
	str := s.input[start:s.index]
	tok := &Token{Index: start, Type: TokenTypeNumber, StrValue: str}
	if simple {
		if n, err := strconv.Atoi(str); err == nil {
			tok.NumValue = n
			return tok
		}
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		s.error("Invalid number ["+str+"]", 0)
	}
	tok.NumValue = f
	return tok
}

func (s *scanner) scanString() *Token {
	start := s.index
	quote := s.peek
	s.advance()

	var buf strings.Builder
	marker := s.index
	for s.peek != quote {
		switch {
		case s.peek == core.CharBACKSLASH:
			buf.WriteString(s.input[marker:s.index])
			s.advance()
			if s.peek == core.CharLowerU {
				if s.index+5 > len(s.input) {
					s.error("Invalid unicode escape [\\u"+s.input[s.index+1:]+"]", 0)
				}
				hex := s.input[s.index+1 : s.index+5]
				code, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					s.error("Invalid unicode escape [\\u"+hex+"]", 0)
				}
				for i := 0; i < 5; i++ {
					s.advance()
				}
				buf.WriteRune(rune(code))
			} else {
				buf.WriteRune(unescape(s.peek))
				s.advance()
			}
			marker = s.index
		case s.peek == core.CharEOF && s.index >= len(s.input):
			s.error("Unterminated quote", 0)
		default:
			s.advance()
		}
	}
	buf.WriteString(s.input[marker:s.index])
	s.advance()
	return &Token{Index: start, Type: TokenTypeString, StrValue: buf.String()}
}

func (s *scanner) error(message string, offset int) {
	panic(&LexerError{Message: message, Position: s.index + offset, Input: s.input})
}

func newCharacterToken(index int, code rune) *Token {
	return &Token{Index: index, Type: TokenTypeCharacter, NumValue: code, StrValue: string(code)}
}

func newOperatorToken(index int, op string) *Token {
	return &Token{Index: index, Type: TokenTypeOperator, StrValue: op}
}

func isIdentifierStart(code rune) bool {
	return core.IsAsciiLetter(code) || code == core.CharUnderscore || code == core.CharDollar
}

func isIdentifierPart(code rune) bool {
	return isIdentifierStart(code) || core.IsDigit(code)
}

// IsIdentifier reports whether input is a single identifier token.
func IsIdentifier(input string) bool {
	if input == "" {
		return false
	}
	for i, c := range input {
		if i == 0 && !isIdentifierStart(c) || !isIdentifierPart(c) {
			return false
		}
	}
	return true
}

func isExponentStart(code rune) bool {
	return code == core.CharLowerE || code == core.CharE
}

func isExponentSign(code rune) bool {
	return code == core.CharMINUS || code == core.CharPLUS
}

func unescape(code rune) rune {
	switch code {
	case core.CharLowerN:
		return core.CharLF
	case core.CharLowerF:
		return core.CharFF
	case core.CharLowerR:
		return core.CharCR
	case core.CharLowerT:
		return core.CharTAB
	case core.CharLowerV:
		return core.CharVTAB
	}
	return code
}
