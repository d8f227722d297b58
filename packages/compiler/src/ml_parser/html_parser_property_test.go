package ml_parser_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ng2c-go/packages/compiler/src/ml_parser"
)

// TestHtmlParserProperties checks structural invariants over generated markup.
func TestHtmlParserProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	parser := ml_parser.NewHtmlParser()

	// Property: nested well-formed markup keeps element and attribute order.
	properties.Property("depth-first order matches source order", prop.ForAll(
		func(names []string) bool {
			var open, closing strings.Builder
			for i, name := range names {
				fmt.Fprintf(&open, `<%s k%d="v%d">`, name, i, i)
			}
			for i := len(names) - 1; i >= 0; i-- {
				fmt.Fprintf(&closing, "</%s>", names[i])
			}
			result := parser.Parse(open.String()+closing.String(), "Gen")
			if len(result.Errors) != 0 {
				return false
			}
			h := &humanizer{}
			ml_parser.VisitAll(h, result.RootNodes, nil)
			if len(h.result) != 2*len(names) {
				return false
			}
			for i, name := range names {
				el, attr := h.result[2*i].([]any), h.result[2*i+1].([]any)
				if el[1] != name || el[2] != i {
					return false
				}
				if attr[1] != fmt.Sprintf("k%d", i) || attr[2] != fmt.Sprintf("v%d", i) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, gen.OneConstOf("div", "span", "section", "em", "my-cmp")),
	))

	// Property: closing a void element always yields exactly one error and
	// the void element never has children.
	properties.Property("void end tags are rejected once", prop.ForAll(
		func(tag string) bool {
			result := parser.Parse(fmt.Sprintf("<div><%s>text</%s></div>", tag, tag), "Gen")
			if len(result.Errors) != 1 {
				return false
			}
			treeErr, ok := result.Errors[0].(*ml_parser.TreeError)
			if !ok || treeErr.Msg != fmt.Sprintf(`Void elements do not have end tags "%s"`, tag) {
				return false
			}
			div := result.RootNodes[0].(*ml_parser.Element)
			for _, child := range div.Children {
				if el, ok := child.(*ml_parser.Element); ok && len(el.Children) != 0 {
					return false
				}
			}
			return true
		},
		gen.OneConstOf("area", "br", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr"),
	))

	properties.TestingRun(t)
}
