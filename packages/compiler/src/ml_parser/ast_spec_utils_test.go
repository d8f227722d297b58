package ml_parser_test

import (
	"fmt"
	"testing"

	"ng2c-go/packages/compiler/src/ml_parser"
	"ng2c-go/packages/compiler/src/util"
)

func humanizeDom(t *testing.T, result *ml_parser.ParseTreeResult) []any {
	t.Helper()
	return humanize(t, result, false)
}

func humanizeDomSourceSpans(t *testing.T, result *ml_parser.ParseTreeResult) []any {
	t.Helper()
	return humanize(t, result, true)
}

func humanize(t *testing.T, result *ml_parser.ParseTreeResult, includeSourceSpan bool) []any {
	t.Helper()
	if len(result.Errors) > 0 {
		t.Fatalf("Unexpected parse errors:\n%s", util.JoinParseErrors(result.ParseErrors()))
	}
	h := &humanizer{includeSourceSpan: includeSourceSpan}
	ml_parser.VisitAll(h, result.RootNodes, nil)
	return h.result
}

func humanizeLineColumn(location *util.ParseLocation) string {
	return fmt.Sprintf("%d:%d", location.Line, location.Col)
}

func humanizeErrors(errs []error) [][]any {
	out := [][]any{}
	for _, err := range errs {
		switch e := err.(type) {
		case *ml_parser.TreeError:
			out = append(out, []any{e.ElementName, e.Msg, humanizeLineColumn(e.Span.Start)})
		case *ml_parser.TokenError:
			out = append(out, []any{e.TokenType, e.Msg, humanizeLineColumn(e.Span.Start)})
		}
	}
	return out
}

type humanizer struct {
	result            []any
	elDepth           int
	includeSourceSpan bool
}

func (h *humanizer) VisitElement(el *ml_parser.Element, _ any) any {
	h.result = append(h.result, h.appendContext(el, []any{"Element", el.Name, h.elDepth}))
	h.elDepth++
	ml_parser.VisitAttributes(h, el.Attrs, nil)
	ml_parser.VisitAll(h, el.Children, nil)
	h.elDepth--
	return nil
}

func (h *humanizer) VisitAttribute(attr *ml_parser.Attribute, _ any) any {
	h.result = append(h.result, h.appendContext(attr, []any{"Attr", attr.Name, attr.Value}))
	return nil
}

func (h *humanizer) VisitText(text *ml_parser.Text, _ any) any {
	h.result = append(h.result, h.appendContext(text, []any{"Text", text.Value, h.elDepth}))
	return nil
}

func (h *humanizer) appendContext(node ml_parser.Node, input []any) []any {
	if !h.includeSourceSpan {
		return input
	}
	return append(input, node.SourceSpan().String())
}
