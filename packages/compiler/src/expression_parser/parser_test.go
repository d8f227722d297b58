package expression_parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ep "ng2c-go/packages/compiler/src/expression_parser"
)

func newParser() *ep.Parser {
	return ep.NewParser(ep.NewLexer())
}

func TestParser(t *testing.T) {
	parser := newParser()

	checkBinding := func(t *testing.T, input, expected string) {
		t.Helper()
		ast, err := parser.ParseBinding(input, "location")
		require.NoError(t, err)
		assert.Equal(t, expected, ep.Unparse(ast))
	}
	checkAction := func(t *testing.T, input, expected string) {
		t.Helper()
		ast, err := parser.ParseAction(input, "location")
		require.NoError(t, err)
		assert.Equal(t, expected, ep.Unparse(ast))
	}

	t.Run("parseAction", func(t *testing.T) {
		t.Run("should parse numbers", func(t *testing.T) {
			checkAction(t, "1", "1")
			checkAction(t, "1.5", "1.5")
		})

		t.Run("should parse strings", func(t *testing.T) {
			checkAction(t, "'a'", `"a"`)
			checkAction(t, `"a"`, `"a"`)
			checkAction(t, `'\'quoted\''`, `"'quoted'"`)
		})

		t.Run("should parse null", func(t *testing.T) {
			checkAction(t, "null", "null")
		})

		t.Run("should parse unary - expressions", func(t *testing.T) {
			checkAction(t, "-1", "0 - 1")
			checkAction(t, "+1", "1")
		})

		t.Run("should parse unary ! expressions", func(t *testing.T) {
			checkAction(t, "!true", "!true")
			checkAction(t, "!!true", "!!true")
		})

		t.Run("should parse multiplicative, additive and comparison expressions", func(t *testing.T) {
			checkAction(t, "3*4/2%5", "3 * 4 / 2 % 5")
			checkAction(t, "3 + 6 - 2", "3 + 6 - 2")
			checkAction(t, "2 < 3 == 1 >= 0", "2 < 3 == 1 >= 0")
			checkAction(t, "a === b && c !== d || e", "a === b && c !== d || e")
		})

		t.Run("should parse grouped expressions", func(t *testing.T) {
			checkAction(t, "(1 + 2) * 3", "1 + 2 * 3")
		})

		t.Run("should parse an empty string", func(t *testing.T) {
			checkAction(t, "", "")
		})

		t.Run("should parse literal arrays and maps", func(t *testing.T) {
			checkAction(t, "[1][0]", "[1][0]")
			checkAction(t, "[[1]][0][0]", "[[1]][0][0]")
			checkAction(t, "[]", "[]")
			checkAction(t, "{}", "{}")
			checkAction(t, "{a: 1, 'b': 2}['b']", `{a: 1, b: 2}["b"]`)
		})

		t.Run("should parse member access and method calls", func(t *testing.T) {
			checkAction(t, "a", "a")
			checkAction(t, "a.a", "a.a")
			checkAction(t, "fn()", "fn()")
			checkAction(t, "add(1, 2)", "add(1, 2)")
			checkAction(t, "a.add(1, 2)", "a.add(1, 2)")
			checkAction(t, "fn()(1, 2)", "fn()(1, 2)")
		})

		t.Run("should parse safe navigation", func(t *testing.T) {
			checkAction(t, "a?.a", "a?.a")
			checkAction(t, "a.a?.a", "a.a?.a")
			checkAction(t, "a?.b(1)", "a?.b(1)")
		})

		t.Run("should parse conditional expressions", func(t *testing.T) {
			checkAction(t, "7 == 3 + 4 ? 10 : 20", "7 == 3 + 4 ? 10 : 20")
			checkAction(t, "false ? 10 : 20", "false ? 10 : 20")
		})

		t.Run("should parse assignments and chains", func(t *testing.T) {
			checkAction(t, "a = 12", "a = 12")
			checkAction(t, "a.a.a = 123", "a.a.a = 123")
			checkAction(t, "a[0] = 200", "a[0] = 200")
			checkAction(t, "a = 1; b = 2", "a = 1; b = 2")
			checkAction(t, "a(); b();;", "a(); b()")
		})

		t.Run("should store the source in the result", func(t *testing.T) {
			ast, err := parser.ParseAction("someExpr", "location")
			require.NoError(t, err)
			assert.Equal(t, "someExpr", ast.Source)
			assert.Equal(t, "location", ast.Location)
		})

		t.Run("should report an error for pipes", func(t *testing.T) {
			_, err := parser.ParseAction("a | b", "location")
			assert.EqualError(t, err, "Parser Error: Cannot have a pipe in an action expression at column 5 in [a | b] in location")
		})

		t.Run("should report a missing closing paren", func(t *testing.T) {
			_, err := parser.ParseAction("(a", "location")
			assert.EqualError(t, err, "Parser Error: Missing expected ) at the end of the expression [(a] in location")
		})

		t.Run("should report an incomplete conditional", func(t *testing.T) {
			_, err := parser.ParseAction("true ? 1", "location")
			assert.EqualError(t, err, "Parser Error: Conditional expression true ? 1 requires all 3 expressions at the end of the expression [true ? 1] in location")
		})

		t.Run("should report a safe navigation assignment", func(t *testing.T) {
			_, err := parser.ParseAction("a?.a = 1", "location")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "The '?.' operator cannot be used in the assignment")
		})

		t.Run("should report lexer errors", func(t *testing.T) {
			_, err := parser.ParseAction("a @ b", "location")
			assert.EqualError(t, err, "Lexer Error: Unexpected character [@] at column 2 in expression [a @ b]")

			_, err = parser.ParseAction("'abc", "location")
			assert.EqualError(t, err, "Lexer Error: Unterminated quote at column 4 in expression ['abc]")
		})

		t.Run("should ignore comments", func(t *testing.T) {
			checkAction(t, "a // comment", "a")
			checkAction(t, `"a//b" // comment`, `"a//b"`)
		})
	})

	t.Run("parseBinding", func(t *testing.T) {
		t.Run("should parse pipes", func(t *testing.T) {
			checkBinding(t, "a(b | c)", "a((b | c))")
			checkBinding(t, "a.b(c.d(e) | f)", "a.b((c.d(e) | f))")
			checkBinding(t, "[1, 2, 3] | a", "([1, 2, 3] | a)")
			checkBinding(t, "{a: 1} | b", "({a: 1} | b)")
			checkBinding(t, "a[b] | c", "(a[b] | c)")
			checkBinding(t, "a?.b | c", "(a?.b | c)")
			checkBinding(t, "true | a", "(true | a)")
			checkBinding(t, "a | b:c | d", "((a | b:c) | d)")
			checkBinding(t, "a | b:(c | d)", "(a | b:(c | d))")
		})

		t.Run("should only allow identifier or keyword as formatter names", func(t *testing.T) {
			_, err := parser.ParseBinding(`"Foo"|(`, "location")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "identifier or keyword")

			_, err = parser.ParseBinding(`"Foo"|1234`, "location")
			assert.Contains(t, err.Error(), "identifier or keyword")
		})

		t.Run("should report chain expressions", func(t *testing.T) {
			_, err := parser.ParseBinding("1;2", "location")
			assert.EqualError(t, err, "Parser Error: Binding expression cannot contain chained expression at column 3 in [1;2] in location")
		})

		t.Run("should report assignments", func(t *testing.T) {
			_, err := parser.ParseBinding("a = 2", "location")
			assert.EqualError(t, err, "Parser Error: Bindings cannot contain assignments at column 5 in [a = 2] in location")
		})

		t.Run("should report unexpected tokens", func(t *testing.T) {
			_, err := parser.ParseBinding("a b", "location")
			assert.EqualError(t, err, "Parser Error: Unexpected token 'b' at column 3 in [a b] in location")
		})

		t.Run("should report interpolation in binding", func(t *testing.T) {
			_, err := parser.ParseBinding("{{a.b}}", "location")
			assert.EqualError(t, err, "Parser Error: Got interpolation ({{}}) where expression was expected at column 0 in [{{a.b}}] in location")
		})
	})

	t.Run("parseSimpleBinding", func(t *testing.T) {
		t.Run("should parse a field access", func(t *testing.T) {
			ast, err := parser.ParseSimpleBinding("name", "location")
			require.NoError(t, err)
			assert.Equal(t, "name", ep.Unparse(ast))
		})

		t.Run("should parse a constant", func(t *testing.T) {
			ast, err := parser.ParseSimpleBinding("[1, 2]", "location")
			require.NoError(t, err)
			assert.Equal(t, "[1, 2]", ep.Unparse(ast))
		})

		t.Run("should report when encountering pipes or function calls", func(t *testing.T) {
			for _, input := range []string{"a | pipe", "a()", "a + b"} {
				_, err := parser.ParseSimpleBinding(input, "location")
				require.Error(t, err, input)
				assert.Contains(t, err.Error(), "Host binding expression can only contain field access and constants")
			}
		})
	})

	t.Run("parseInterpolation", func(t *testing.T) {
		t.Run("should return nil if no interpolation", func(t *testing.T) {
			ast, err := parser.ParseInterpolation("nothing", "location")
			require.NoError(t, err)
			assert.Nil(t, ast)
		})

		t.Run("should parse no prefix/suffix interpolation", func(t *testing.T) {
			ast, err := parser.ParseInterpolation("{{a}}", "location")
			require.NoError(t, err)
			interp := ast.AST.(*ep.Interpolation)
			assert.Equal(t, []string{"", ""}, interp.Strings)
			require.Len(t, interp.Expressions, 1)
			assert.Equal(t, "a", ep.Unparse(interp.Expressions[0]))
		})

		t.Run("should parse prefix/suffix with multiple interpolation", func(t *testing.T) {
			ast, err := parser.ParseInterpolation("before {{ a }} middle {{ b }} after", "location")
			require.NoError(t, err)
			assert.Equal(t, "before {{ a }} middle {{ b }} after", ep.Unparse(ast))
		})

		t.Run("should report blank expressions", func(t *testing.T) {
			_, err := parser.ParseInterpolation("a {{}} b", "location")
			assert.EqualError(t, err, "Parser Error: Blank expressions are not allowed in interpolated strings at column 2 in [a {{}} b] in location")
		})

		t.Run("should support comments inside interpolations", func(t *testing.T) {
			ast, err := parser.ParseInterpolation("{{a // comment}}", "location")
			require.NoError(t, err)
			assert.Equal(t, "{{ a }}", ep.Unparse(ast))
		})
	})

	t.Run("wrapLiteralPrimitive", func(t *testing.T) {
		t.Run("should wrap a literal primitive", func(t *testing.T) {
			assert.Equal(t, `"foo"`, ep.Unparse(parser.WrapLiteralPrimitive("foo", "location")))
		})
	})
}

func TestParseTemplateBindings(t *testing.T) {
	parser := newParser()

	type kv struct {
		Key      string
		KeyIsVar bool
		Name     string
		Expr     string
	}
	humanize := func(bindings []*ep.TemplateBinding) []kv {
		out := []kv{}
		for _, b := range bindings {
			item := kv{Key: b.Key, KeyIsVar: b.KeyIsVar, Name: b.Name}
			if b.Expression != nil {
				item.Expr = b.Expression.Source
			}
			out = append(out, item)
		}
		return out
	}
	check := func(t *testing.T, input string, expected []kv) {
		t.Helper()
		bindings, err := parser.ParseTemplateBindings(input, "location")
		require.NoError(t, err)
		if diff := cmp.Diff(expected, humanize(bindings)); diff != "" {
			t.Errorf("ParseTemplateBindings(%q) mismatch (-want +got):\n%s", input, diff)
		}
	}

	t.Run("should parse an empty string", func(t *testing.T) {
		check(t, "", []kv{})
	})

	t.Run("should parse a string without a value", func(t *testing.T) {
		check(t, "a", []kv{{Key: "a"}})
	})

	t.Run("should only allow identifier, string, or keyword including dashes as keys", func(t *testing.T) {
		check(t, "a:'b'", []kv{{Key: "a", Expr: "'b'"}})
		check(t, "'a':'b'", []kv{{Key: "a", Expr: "'b'"}})
		check(t, "\"a\":'b'", []kv{{Key: "a", Expr: "'b'"}})
		check(t, "a-b:'c'", []kv{{Key: "a-b", Expr: "'c'"}})

		_, err := parser.ParseTemplateBindings("(:0", "location")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected identifier, keyword, or string")
	})

	t.Run("should detect expressions as value", func(t *testing.T) {
		check(t, "a:b", []kv{{Key: "a", Expr: "b"}})
		check(t, "a:1+1", []kv{{Key: "a", Expr: "1+1"}})
	})

	t.Run("should detect names as value", func(t *testing.T) {
		check(t, "a:#b", []kv{{Key: "a"}, {Key: "b", KeyIsVar: true, Name: "$implicit"}})
	})

	t.Run("should allow space and colon as separators", func(t *testing.T) {
		check(t, "a:b", []kv{{Key: "a", Expr: "b"}})
		check(t, "a b", []kv{{Key: "a", Expr: "b"}})
	})

	t.Run("should allow multiple pairs", func(t *testing.T) {
		check(t, "a 1 b 2", []kv{{Key: "a", Expr: "1 "}, {Key: "aB", Expr: "2"}})
	})

	t.Run("should support var/# syntax", func(t *testing.T) {
		check(t, "var i", []kv{{Key: "i", KeyIsVar: true, Name: "$implicit"}})
		check(t, "#i", []kv{{Key: "i", KeyIsVar: true, Name: "$implicit"}})
		check(t, "let i", []kv{{Key: "i", KeyIsVar: true, Name: "$implicit"}})
		check(t, "var a; var b", []kv{
			{Key: "a", KeyIsVar: true, Name: "$implicit"},
			{Key: "b", KeyIsVar: true, Name: "$implicit"},
		})
		check(t, "var a=b", []kv{{Key: "a", KeyIsVar: true, Name: "b"}})
	})

	t.Run("should parse ngFor microsyntax", func(t *testing.T) {
		check(t, "ngFor #item of items; #i=index", []kv{
			{Key: "ngFor"},
			{Key: "item", KeyIsVar: true, Name: "$implicit"},
			{Key: "ngForOf", Expr: "items"},
			{Key: "i", KeyIsVar: true, Name: "index"},
		})
	})

	t.Run("should parse pipes", func(t *testing.T) {
		bindings, err := parser.ParseTemplateBindings("key value|pipe", "location")
		require.NoError(t, err)
		require.Len(t, bindings, 1)
		assert.IsType(t, &ep.BindingPipe{}, bindings[0].Expression.AST)
	})
}
