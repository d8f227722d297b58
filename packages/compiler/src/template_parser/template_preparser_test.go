package template_parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ng2c-go/packages/compiler/src/ml_parser"
	tp "ng2c-go/packages/compiler/src/template_parser"
)

func preparse(t *testing.T, html string) *tp.PreparsedElement {
	t.Helper()
	result := ml_parser.NewHtmlParser().Parse(html, "TestComp")
	require.Empty(t, result.ParseErrors())
	require.NotEmpty(t, result.RootNodes)
	element, ok := result.RootNodes[0].(*ml_parser.Element)
	require.True(t, ok)
	return tp.PreparseElement(element)
}

func TestPreparseElement(t *testing.T) {
	t.Run("should detect script elements", func(t *testing.T) {
		assert.Equal(t, tp.PreparsedElementScript, preparse(t, "<script></script>").Type)
	})

	t.Run("should detect style elements", func(t *testing.T) {
		assert.Equal(t, tp.PreparsedElementStyle, preparse(t, "<style></style>").Type)
	})

	t.Run("should detect stylesheet elements", func(t *testing.T) {
		p := preparse(t, `<link rel="stylesheet" href="a.css">`)
		assert.Equal(t, tp.PreparsedElementStylesheet, p.Type)
		assert.Equal(t, "a.css", p.HrefAttr)
	})

	t.Run("should not treat other links as stylesheets", func(t *testing.T) {
		assert.Equal(t, tp.PreparsedElementOther, preparse(t, `<link rel="icon">`).Type)
	})

	t.Run("should detect ng-content elements and default the selector to *", func(t *testing.T) {
		p := preparse(t, "<ng-content></ng-content>")
		assert.Equal(t, tp.PreparsedElementNgContent, p.Type)
		assert.Equal(t, "*", p.SelectAttr)
	})

	t.Run("should read the select attribute case insensitively", func(t *testing.T) {
		assert.Equal(t, "a[b]", preparse(t, `<ng-content SELECT="a[b]"></ng-content>`).SelectAttr)
	})

	t.Run("should detect ngNonBindable and ngProjectAs", func(t *testing.T) {
		p := preparse(t, `<div ngNonBindable ngProjectAs="b"></div>`)
		assert.True(t, p.NonBindable)
		assert.Equal(t, "b", p.ProjectAs)
	})
}
