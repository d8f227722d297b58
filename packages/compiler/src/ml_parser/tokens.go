package ml_parser

import "ng2c-go/packages/compiler/src/util"

// TokenType is the kind of a markup token.
type TokenType int

const (
	TokenTypeTagOpenStart TokenType = iota
	TokenTypeTagOpenEnd
	TokenTypeTagOpenEndVoid
	TokenTypeTagClose
	TokenTypeText
	TokenTypeEscapableRawText
	TokenTypeRawText
	TokenTypeCommentStart
	TokenTypeCommentEnd
	TokenTypeCdataStart
	TokenTypeCdataEnd
	TokenTypeAttrName
	TokenTypeAttrValue
	TokenTypeDocType
	TokenTypeEOF
)

var tokenTypeNames = [...]string{
	"TAG_OPEN_START", "TAG_OPEN_END", "TAG_OPEN_END_VOID", "TAG_CLOSE",
	"TEXT", "ESCAPABLE_RAW_TEXT", "RAW_TEXT", "COMMENT_START", "COMMENT_END",
	"CDATA_START", "CDATA_END", "ATTR_NAME", "ATTR_VALUE", "DOC_TYPE", "EOF",
}

func (t TokenType) String() string {
	if int(t) >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "UNKNOWN"
}

// Token is one lexical unit of markup. Tag and attribute name tokens carry
// [prefix, name] parts; text-like tokens carry a single decoded part.
type Token struct {
	Type       TokenType
	Parts      []string
	SourceSpan *util.ParseSourceSpan
}

// NewToken creates a new Token
func NewToken(tokenType TokenType, parts []string, sourceSpan *util.ParseSourceSpan) *Token {
	return &Token{Type: tokenType, Parts: parts, SourceSpan: sourceSpan}
}

// TokenError is a tokenizer diagnostic tagged with the token being built
// when it occurred.
type TokenError struct {
	*util.ParseError
	TokenType TokenType
}

// NewTokenError creates a new TokenError
func NewTokenError(msg string, tokenType TokenType, span *util.ParseSourceSpan) *TokenError {
	return &TokenError{ParseError: util.NewParseError(span, msg), TokenType: tokenType}
}

// TokenizeResult holds the token stream and any errors found on the way.
type TokenizeResult struct {
	Tokens []*Token
	Errors []*TokenError
}
