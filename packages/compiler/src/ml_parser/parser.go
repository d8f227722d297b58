package ml_parser

import (
	"fmt"

	"ng2c-go/packages/compiler/src/util"
)

// TreeError is a structural diagnostic about an element.
type TreeError struct {
	*util.ParseError
	ElementName string
}

// NewTreeError creates a new TreeError
func NewTreeError(elementName string, span *util.ParseSourceSpan, msg string) *TreeError {
	return &TreeError{ParseError: util.NewParseError(span, msg), ElementName: elementName}
}

// ParseTreeResult is the markup forest plus every tokenizer and tree error.
// Errors holds *TokenError and *TreeError values in the order found.
type ParseTreeResult struct {
	RootNodes []Node
	Errors    []error
}

// ParseErrors returns the located diagnostics behind Errors.
func (r *ParseTreeResult) ParseErrors() []*util.ParseError {
	out := make([]*util.ParseError, 0, len(r.Errors))
	for _, err := range r.Errors {
		switch e := err.(type) {
		case *TokenError:
			out = append(out, e.ParseError)
		case *TreeError:
			out = append(out, e.ParseError)
		}
	}
	return out
}

// HtmlParser turns markup into a tree of Elements, Attributes and Texts.
type HtmlParser struct {
	getTagDefinition func(string) TagDefinition
}

// NewHtmlParser creates a parser using the HTML tag definitions.
func NewHtmlParser() *HtmlParser {
	return &HtmlParser{getTagDefinition: GetHtmlTagDefinition}
}

// Parse tokenizes and tree-builds source. url names the template in
// diagnostics, usually the component name.
func (p *HtmlParser) Parse(source, url string) *ParseTreeResult {
	tokenized := Tokenize(source, url, p.getTagDefinition)
	tree := newTreeBuilder(tokenized.Tokens, p.getTagDefinition).build()
	errs := make([]error, 0, len(tokenized.Errors)+len(tree.Errors))
	for _, e := range tokenized.Errors {
		errs = append(errs, e)
	}
	errs = append(errs, tree.Errors...)
	return &ParseTreeResult{RootNodes: tree.RootNodes, Errors: errs}
}

type treeBuilder struct {
	tokens           []*Token
	index            int
	peek             *Token
	getTagDefinition func(string) TagDefinition

	rootNodes    []Node
	errors       []error
	elementStack []*Element
}

func newTreeBuilder(tokens []*Token, getTagDefinition func(string) TagDefinition) *treeBuilder {
	b := &treeBuilder{tokens: tokens, index: -1, getTagDefinition: getTagDefinition}
	b.advance()
	return b
}

func (b *treeBuilder) build() *ParseTreeResult {
	for b.peek.Type != TokenTypeEOF {
		switch b.peek.Type {
		case TokenTypeTagOpenStart:
			b.consumeStartTag(b.advance())
		case TokenTypeTagClose:
			b.consumeEndTag(b.advance())
		case TokenTypeCdataStart:
			b.closeVoidElement()
			b.consumeCdata(b.advance())
		case TokenTypeCommentStart:
			b.closeVoidElement()
			b.consumeComment(b.advance())
		case TokenTypeText, TokenTypeRawText, TokenTypeEscapableRawText:
			b.closeVoidElement()
			b.consumeText(b.advance())
		default:
			// Doctype and stray tokens are dropped.
			b.advance()
		}
	}
	return &ParseTreeResult{RootNodes: b.rootNodes, Errors: b.errors}
}

func (b *treeBuilder) advance() *Token {
	prev := b.peek
	if b.index < len(b.tokens)-1 {
		b.index++
	}
	b.peek = b.tokens[b.index]
	return prev
}

func (b *treeBuilder) advanceIf(tokenType TokenType) *Token {
	if b.peek.Type == tokenType {
		return b.advance()
	}
	return nil
}

func (b *treeBuilder) consumeCdata(*Token) {
	if b.peek.Type == TokenTypeRawText {
		b.consumeText(b.advance())
	}
	b.advanceIf(TokenTypeCdataEnd)
}

func (b *treeBuilder) consumeComment(*Token) {
	b.advanceIf(TokenTypeRawText)
	b.advanceIf(TokenTypeCommentEnd)
}

func (b *treeBuilder) consumeText(token *Token) {
	text := token.Parts[0]
	if len(text) > 0 && text[0] == '\n' {
		parent := b.parentElement()
		if parent != nil && len(parent.Children) == 0 && b.getTagDefinition(parent.Name).IgnoreFirstLf() {
			text = text[1:]
		}
	}
	if len(text) > 0 {
		b.addToParent(NewText(text, token.SourceSpan))
	}
}

func (b *treeBuilder) closeVoidElement() {
	if len(b.elementStack) == 0 {
		return
	}
	el := b.elementStack[len(b.elementStack)-1]
	if b.getTagDefinition(el.Name).IsVoid() {
		b.elementStack = b.elementStack[:len(b.elementStack)-1]
	}
}

func (b *treeBuilder) consumeStartTag(startTag *Token) {
	prefix, name := startTag.Parts[0], startTag.Parts[1]
	var attrs []*Attribute
	for b.peek.Type == TokenTypeAttrName {
		attrs = append(attrs, b.consumeAttr(b.advance()))
	}
	fullName := b.elementFullName(prefix, name, b.parentElement())
	selfClosing := false
	// A tokenizer error may have swallowed the end of the start tag.
	switch b.peek.Type {
	case TokenTypeTagOpenEndVoid:
		b.advance()
		selfClosing = true
		if GetNsPrefix(fullName) == "" && !b.getTagDefinition(fullName).IsVoid() {
			b.errors = append(b.errors, NewTreeError(fullName, startTag.SourceSpan,
				fmt.Sprintf(`Only void and foreign elements can be self closed "%s"`, name)))
		}
	case TokenTypeTagOpenEnd:
		b.advance()
	}
	end := b.peek.SourceSpan.Start
	span := util.NewParseSourceSpan(startTag.SourceSpan.Start, end)
	el := NewElement(fullName, attrs, nil, span, span, nil)
	b.pushElement(el)
	if selfClosing {
		b.popElement(fullName)
		el.EndSourceSpan = span
	}
}

func (b *treeBuilder) pushElement(el *Element) {
	if len(b.elementStack) > 0 {
		parentEl := b.elementStack[len(b.elementStack)-1]
		if b.getTagDefinition(parentEl.Name).IsClosedByChild(el.Name) {
			b.elementStack = b.elementStack[:len(b.elementStack)-1]
		}
	}

	tagDef := b.getTagDefinition(el.Name)
	parentName := ""
	if parentEl := b.parentElement(); parentEl != nil {
		parentName = parentEl.Name
	}
	if tagDef.RequireExtraParent(parentName) {
		newParent := NewElement(tagDef.ParentToAdd(), nil, []Node{el}, el.Span, el.StartSourceSpan, el.EndSourceSpan)
		b.addToParent(newParent)
		b.elementStack = append(b.elementStack, newParent, el)
		return
	}
	b.addToParent(el)
	b.elementStack = append(b.elementStack, el)
}

func (b *treeBuilder) consumeEndTag(endTag *Token) {
	fullName := b.elementFullName(endTag.Parts[0], endTag.Parts[1], b.parentElement())
	if parent := b.parentElement(); parent != nil {
		parent.EndSourceSpan = endTag.SourceSpan
	}

	if b.getTagDefinition(fullName).IsVoid() {
		b.errors = append(b.errors, NewTreeError(fullName, endTag.SourceSpan,
			fmt.Sprintf(`Void elements do not have end tags "%s"`, endTag.Parts[1])))
	} else if !b.popElement(fullName) {
		b.errors = append(b.errors, NewTreeError(fullName, endTag.SourceSpan,
			fmt.Sprintf(`Unexpected closing tag "%s"`, endTag.Parts[1])))
	}
}

// popElement closes fullName and everything above it, but only when every
// element in between may be closed implicitly.
func (b *treeBuilder) popElement(fullName string) bool {
	for i := len(b.elementStack) - 1; i >= 0; i-- {
		el := b.elementStack[i]
		if el.Name == fullName {
			b.elementStack = b.elementStack[:i]
			return true
		}
		if !b.getTagDefinition(el.Name).ClosedByParent() {
			return false
		}
	}
	return false
}

func (b *treeBuilder) consumeAttr(attrName *Token) *Attribute {
	fullName := MergeNsAndName(attrName.Parts[0], attrName.Parts[1])
	end := attrName.SourceSpan.End
	value := ""
	if b.peek.Type == TokenTypeAttrValue {
		valueToken := b.advance()
		value = valueToken.Parts[0]
		end = valueToken.SourceSpan.End
	}
	return NewAttribute(fullName, value, util.NewParseSourceSpan(attrName.SourceSpan.Start, end))
}

func (b *treeBuilder) parentElement() *Element {
	if len(b.elementStack) == 0 {
		return nil
	}
	return b.elementStack[len(b.elementStack)-1]
}

func (b *treeBuilder) addToParent(node Node) {
	if parent := b.parentElement(); parent != nil {
		parent.Children = append(parent.Children, node)
		return
	}
	b.rootNodes = append(b.rootNodes, node)
}

func (b *treeBuilder) elementFullName(prefix, localName string, parent *Element) string {
	if prefix == "" {
		prefix = b.getTagDefinition(localName).ImplicitNamespacePrefix()
		if prefix == "" && parent != nil {
			prefix = GetNsPrefix(parent.Name)
		}
	}
	return MergeNsAndName(prefix, localName)
}
