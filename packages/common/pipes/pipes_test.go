package pipes_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ng2c-go/packages/common/pipes"
	cd "ng2c-go/packages/compiler/src/change_detection"
	ep "ng2c-go/packages/compiler/src/expression_parser"
)

func TestCasePipes(t *testing.T) {
	t.Run("should change case", func(t *testing.T) {
		v, err := (&pipes.UpperCasePipe{}).Transform("héllo", nil)
		require.NoError(t, err)
		assert.Equal(t, "HÉLLO", v)

		v, err = (&pipes.LowerCasePipe{}).Transform("FOO", nil)
		require.NoError(t, err)
		assert.Equal(t, "foo", v)
	})

	t.Run("should pass nil through", func(t *testing.T) {
		v, err := (&pipes.UpperCasePipe{}).Transform(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("should reject non strings", func(t *testing.T) {
		_, err := (&pipes.LowerCasePipe{}).Transform(3, nil)
		var argErr *pipes.InvalidPipeArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "lowercase", argErr.Pipe)
	})
}

func TestJsonPipe(t *testing.T) {
	v, err := (&pipes.JsonPipe{}).Transform(map[string]any{"a": []any{1, "b"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    \"b\"\n  ]\n}", v)
}

func TestSlicePipe(t *testing.T) {
	slice := &pipes.SlicePipe{}
	for _, tc := range []struct {
		name  string
		value any
		args  []any
		want  any
	}{
		{"string start", "abcdef", []any{2.0}, "cdef"},
		{"string range", "abcdef", []any{1.0, 3.0}, "bc"},
		{"negative start", "abcdef", []any{-2.0}, "ef"},
		{"negative end", []any{1, 2, 3, 4}, []any{0.0, -1.0}, []any{1, 2, 3}},
		{"out of range", []int{1, 2}, []any{5.0}, []any{}},
		{"end before start", []any{1, 2, 3}, []any{2.0, 1.0}, []any{}},
		{"nil value", nil, []any{1.0}, nil},
	} {
		t.Run("should handle "+tc.name, func(t *testing.T) {
			got, err := slice.Transform(tc.value, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("should reject maps", func(t *testing.T) {
		_, err := slice.Transform(map[string]int{}, []any{0.0})
		assert.Error(t, err)
	})

	t.Run("should never return more elements than the input", func(t *testing.T) {
		properties := gopter.NewProperties(gopter.DefaultTestParameters())
		properties.Property("length bound", prop.ForAll(func(s string, start, end int) bool {
			got, err := slice.Transform(s, []any{start, end})
			return err == nil && len([]rune(got.(string))) <= len([]rune(s))
		}, gen.AnyString(), gen.IntRange(-20, 20), gen.IntRange(-20, 20)))
		properties.TestingRun(t)
	})
}

type page struct {
	Title string
	Tags  []any
}

func TestRegistryInDetector(t *testing.T) {
	parser := ep.NewParser(ep.NewLexer())
	ast, err := parser.ParseBinding("title | uppercase", "location")
	require.NoError(t, err)
	tagsAst, err := parser.ParseBinding("tags | slice:0:2", "location")
	require.NoError(t, err)
	proto, err := cd.NewProtoChangeDetector(&cd.ChangeDetectorDefinition{
		ID:       "Page_0",
		Strategy: cd.Default,
		BindingRecords: []*cd.BindingRecord{
			cd.CreateForElementProperty(ast, 0, "title"),
			cd.CreateForElementProperty(tagsAst, 0, "tags"),
		},
	})
	require.NoError(t, err)

	dispatcher := &recorder{}
	detector := proto.Instantiate(nil)
	detector.Hydrate(&page{Title: "home", Tags: []any{"a", "b", "c"}}, nil, dispatcher, pipes.Registry())
	require.NoError(t, detector.DetectChanges())
	assert.Equal(t, map[string]any{"title": "HOME", "tags": []any{"a", "b"}}, dispatcher.values)
}

type recorder struct {
	values map[string]any
}

func (r *recorder) NotifyOnBinding(target *cd.BindingTarget, value any) {
	if r.values == nil {
		r.values = map[string]any{}
	}
	r.values[target.Name] = value
}
func (r *recorder) LogBindingUpdate(*cd.BindingTarget, any) {}
func (r *recorder) NotifyAfterContentChecked()              {}
func (r *recorder) NotifyAfterViewChecked()                 {}
func (r *recorder) NotifyOnDestroy()                        {}
func (r *recorder) GetDebugContext(int, *cd.DirectiveIndex) (*cd.DebugContext, error) {
	return nil, nil
}
func (r *recorder) GetDirectiveFor(cd.DirectiveIndex) any               { return nil }
func (r *recorder) GetDetectorFor(cd.DirectiveIndex) *cd.ChangeDetector { return nil }
