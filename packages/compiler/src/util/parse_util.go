package util

import (
	"fmt"
	"strings"
)

const (
	contextMaxChars = 100
	contextMaxLines = 3
)

// ParseSourceFile is a named piece of source text, usually a template.
type ParseSourceFile struct {
	Content string
	URL     string
}

// NewParseSourceFile creates a new ParseSourceFile
func NewParseSourceFile(content, url string) *ParseSourceFile {
	return &ParseSourceFile{Content: content, URL: url}
}

// ParseLocation points at a byte offset inside a ParseSourceFile.
// Line and Col are zero based; Col counts characters, not bytes.
type ParseLocation struct {
	File   *ParseSourceFile
	Offset int
	Line   int
	Col    int
}

// NewParseLocation creates a new ParseLocation
func NewParseLocation(file *ParseSourceFile, offset, line, col int) *ParseLocation {
	return &ParseLocation{File: file, Offset: offset, Line: line, Col: col}
}

// String formats the location as url@line:col.
func (p *ParseLocation) String() string {
	if p.Offset < 0 {
		return p.File.URL
	}
	return fmt.Sprintf("%s@%d:%d", p.File.URL, p.Line, p.Col)
}

// Context is the source text surrounding a location.
type Context struct {
	Before string
	After  string
}

// GetContext returns up to maxChars characters (and at most maxLines lines)
// of source on each side of the location.
func (p *ParseLocation) GetContext(maxChars, maxLines int) *Context {
	content := p.File.Content
	if p.Offset < 0 || len(content) == 0 {
		return nil
	}
	startOffset := p.Offset
	if startOffset > len(content)-1 {
		startOffset = len(content) - 1
	}
	endOffset := startOffset

	ctxChars, ctxLines := 0, 0
	for ctxChars < maxChars && startOffset > 0 {
		startOffset--
		ctxChars++
		if content[startOffset] == '\n' {
			ctxLines++
			if ctxLines == maxLines {
				break
			}
		}
	}

	ctxChars, ctxLines = 0, 0
	for ctxChars < maxChars && endOffset < len(content)-1 {
		endOffset++
		ctxChars++
		if content[endOffset] == '\n' {
			ctxLines++
			if ctxLines == maxLines {
				break
			}
		}
	}

	at := p.Offset
	if at > len(content) {
		at = len(content)
	}
	return &Context{
		Before: content[startOffset:at],
		After:  content[at : endOffset+1],
	}
}

// ParseSourceSpan is a half open range [Start, End) of a source file.
type ParseSourceSpan struct {
	Start *ParseLocation
	End   *ParseLocation
}

// NewParseSourceSpan creates a new ParseSourceSpan
func NewParseSourceSpan(start, end *ParseLocation) *ParseSourceSpan {
	return &ParseSourceSpan{Start: start, End: end}
}

// String returns the source text covered by the span.
func (p *ParseSourceSpan) String() string {
	content := p.Start.File.Content
	end := p.End.Offset
	if end > len(content) {
		end = len(content)
	}
	if p.Start.Offset < 0 || p.Start.Offset > end {
		return ""
	}
	return content[p.Start.Offset:end]
}

// ParseErrorLevel is the severity of a ParseError.
type ParseErrorLevel int

const (
	ParseErrorLevelWarning ParseErrorLevel = iota
	ParseErrorLevelError
)

// ParseError is a located diagnostic. Parsers collect these instead of
// failing on the first problem.
type ParseError struct {
	Span  *ParseSourceSpan
	Msg   string
	Level ParseErrorLevel
}

// NewParseError creates a new ParseError
func NewParseError(span *ParseSourceSpan, msg string) *ParseError {
	return &ParseError{Span: span, Msg: msg, Level: ParseErrorLevelError}
}

// NewParseWarning creates a warning level ParseError
func NewParseWarning(span *ParseSourceSpan, msg string) *ParseError {
	return &ParseError{Span: span, Msg: msg, Level: ParseErrorLevelWarning}
}

// Error implements the error interface
func (p *ParseError) Error() string {
	return p.String()
}

// ContextualMessage returns the message followed by the surrounding
// source with an inline marker at the error position.
func (p *ParseError) ContextualMessage() string {
	if p.Span == nil || p.Span.Start == nil {
		return p.Msg
	}
	ctx := p.Span.Start.GetContext(contextMaxChars, contextMaxLines)
	if ctx == nil {
		return p.Msg
	}
	level := "ERROR"
	if p.Level == ParseErrorLevelWarning {
		level = "WARNING"
	}
	return fmt.Sprintf(`%s ("%s[%s ->]%s")`, p.Msg, ctx.Before, level, ctx.After)
}

// String returns `message ("context"): url@line:col`.
func (p *ParseError) String() string {
	if p.Span == nil || p.Span.Start == nil {
		return p.Msg
	}
	return fmt.Sprintf("%s: %s", p.ContextualMessage(), p.Span.Start)
}

// JoinParseErrors renders errors one per line.
func JoinParseErrors(errs []*ParseError) string {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// HasErrors reports whether any of the given diagnostics is an error
// rather than a warning.
func HasErrors(errs []*ParseError) bool {
	for _, e := range errs {
		if e.Level == ParseErrorLevelError {
			return true
		}
	}
	return false
}
