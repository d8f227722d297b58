package change_detection_test

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cd "ng2c-go/packages/compiler/src/change_detection"
	ep "ng2c-go/packages/compiler/src/expression_parser"
)

const location = "location"

var parser = ep.NewParser(ep.NewLexer())

func binding(t *testing.T, expression string) *ep.ASTWithSource {
	t.Helper()
	ast, err := parser.ParseBinding(expression, location)
	require.NoError(t, err)
	return ast
}

func action(t *testing.T, expression string) *ep.ASTWithSource {
	t.Helper()
	ast, err := parser.ParseAction(expression, location)
	require.NoError(t, err)
	return ast
}

func interpolation(t *testing.T, expression string) *ep.ASTWithSource {
	t.Helper()
	ast, err := parser.ParseInterpolation(expression, location)
	require.NoError(t, err)
	require.NotNil(t, ast)
	return ast
}

type Address struct {
	city            string
	cityGetterCalls int
}

func (a *Address) City() string {
	a.cityGetterCalls++
	return a.city
}

func (a *Address) ToString() string { return "address " + a.city }

type Person struct {
	Name    string
	Age     any
	Address *Address
}

func (p *Person) SayHi(m string) string { return "Hi, " + m }

type TestData struct {
	A any
	B any
}

type testDirective struct {
	A, B any

	name    string
	log     *[]string
	changes map[string]*cd.SimpleChange
	initErr error

	doCheckCalls, onInitCalls, afterContentInitCalls int
	afterContentCheckedCalls, afterViewInitCalls     int
	afterViewCheckedCalls                            int
	destroyed                                        bool
}

func (d *testDirective) record(hook string) {
	if d.log != nil {
		*d.log = append(*d.log, d.name+"."+hook)
	}
}

func (d *testDirective) NgOnChanges(changes map[string]*cd.SimpleChange) error {
	d.changes = changes
	d.record("onChanges")
	return nil
}

func (d *testDirective) NgDoCheck() error {
	d.doCheckCalls++
	d.record("doCheck")
	return nil
}

func (d *testDirective) NgOnInit() error {
	d.onInitCalls++
	d.record("onInit")
	return d.initErr
}

func (d *testDirective) NgAfterContentInit() error {
	d.afterContentInitCalls++
	d.record("afterContentInit")
	return nil
}

func (d *testDirective) NgAfterContentChecked() error {
	d.afterContentCheckedCalls++
	d.record("afterContentChecked")
	return nil
}

func (d *testDirective) NgAfterViewInit() error {
	d.afterViewInitCalls++
	d.record("afterViewInit")
	return nil
}

func (d *testDirective) NgAfterViewChecked() error {
	d.afterViewCheckedCalls++
	d.record("afterViewChecked")
	return nil
}

func (d *testDirective) NgOnDestroy() { d.destroyed = true }

type testDispatcher struct {
	log      []string
	debugLog []string

	directives map[cd.DirectiveIndex]any
	detectors  map[cd.DirectiveIndex]*cd.ChangeDetector

	afterContentCheckedCalled bool
	afterViewCheckedCalled    bool
	destroyCalled             bool
	debugContextErr           error
}

func newTestDispatcher() *testDispatcher {
	return &testDispatcher{
		directives: map[cd.DirectiveIndex]any{},
		detectors:  map[cd.DirectiveIndex]*cd.ChangeDetector{},
	}
}

func (d *testDispatcher) NotifyOnBinding(target *cd.BindingTarget, value any) {
	d.log = append(d.log, target.Name+"="+cd.DisplayString(value))
}

func (d *testDispatcher) LogBindingUpdate(target *cd.BindingTarget, value any) {
	d.debugLog = append(d.debugLog, target.Name+"="+cd.DisplayString(value))
}

func (d *testDispatcher) NotifyAfterContentChecked() { d.afterContentCheckedCalled = true }
func (d *testDispatcher) NotifyAfterViewChecked()    { d.afterViewCheckedCalled = true }
func (d *testDispatcher) NotifyOnDestroy()           { d.destroyCalled = true }

func (d *testDispatcher) GetDebugContext(elementIndex int, _ *cd.DirectiveIndex) (*cd.DebugContext, error) {
	if d.debugContextErr != nil {
		return nil, d.debugContextErr
	}
	return &cd.DebugContext{Element: elementIndex, Context: "debug"}, nil
}

func (d *testDispatcher) GetDirectiveFor(index cd.DirectiveIndex) any { return d.directives[index] }

func (d *testDispatcher) GetDetectorFor(index cd.DirectiveIndex) *cd.ChangeDetector {
	return d.detectors[index]
}

func (d *testDispatcher) clear() {
	d.log = nil
	d.debugLog = nil
	d.afterContentCheckedCalled = false
	d.afterViewCheckedCalled = false
}

func definition(bindings []*cd.BindingRecord, dirs ...*cd.DirectiveRecord) *cd.ChangeDetectorDefinition {
	return &cd.ChangeDetectorDefinition{
		ID:               "test",
		Strategy:         cd.Default,
		BindingRecords:   bindings,
		DirectiveRecords: dirs,
		GenConfig:        cd.ChangeDetectorGenConfig{GenDebugInfo: true},
	}
}

func propertyDefinition(ast *ep.ASTWithSource, variableNames ...string) *cd.ChangeDetectorDefinition {
	def := definition([]*cd.BindingRecord{cd.CreateForElementProperty(ast, 0, "propName")})
	def.VariableNames = variableNames
	return def
}

func instantiate(t *testing.T, def *cd.ChangeDetectorDefinition, arena *cd.Arena) *cd.ChangeDetector {
	t.Helper()
	proto, err := cd.NewProtoChangeDetector(def)
	require.NoError(t, err)
	return proto.Instantiate(arena)
}

func bindSimpleValue(t *testing.T, expression string, context any) []string {
	t.Helper()
	dispatcher := newTestDispatcher()
	detector := instantiate(t, propertyDefinition(binding(t, expression)), nil)
	detector.Hydrate(context, nil, dispatcher, nil)
	require.NoError(t, detector.DetectChanges())
	return dispatcher.log
}

func TestChangeDetectorExpressions(t *testing.T) {
	t.Run("should support literals", func(t *testing.T) {
		for expr, want := range map[string]string{
			"10":        "propName=10",
			"'str'":     "propName=str",
			`"str"`:     "propName=str",
			"null":      "propName=null",
			"true":      "propName=true",
			"1.5":       "propName=1.5",
			`"a\n\nb"`:  "propName=a\n\nb",
			"'a' + 'b'": "propName=ab",
		} {
			assert.Equal(t, []string{want}, bindSimpleValue(t, expr, nil), expr)
		}
	})

	t.Run("should support arithmetic operations", func(t *testing.T) {
		for expr, want := range map[string]string{
			"10 + 2":  "propName=12",
			"10 - 2":  "propName=8",
			"10 * 2":  "propName=20",
			"10 / 2":  "propName=5",
			"11 % 2":  "propName=1",
			"1 / 4":   "propName=0.25",
			"'a' + 1": "propName=a1",
		} {
			assert.Equal(t, []string{want}, bindSimpleValue(t, expr, nil), expr)
		}
	})

	t.Run("should support comparison operations", func(t *testing.T) {
		for expr, want := range map[string]string{
			"1 == 1":     "propName=true",
			"1 != 1":     "propName=false",
			"1 == true":  "propName=true",
			"1 === 1":    "propName=true",
			"1 !== 1":    "propName=false",
			"1 === true": "propName=false",
			"1 < 2":      "propName=true",
			"2 < 1":      "propName=false",
			"2 > 1":      "propName=true",
			"2 <= 2":     "propName=true",
			"2 >= 3":     "propName=false",
		} {
			assert.Equal(t, []string{want}, bindSimpleValue(t, expr, nil), expr)
		}
	})

	t.Run("should support logical operations", func(t *testing.T) {
		for expr, want := range map[string]string{
			"true && true":   "propName=true",
			"true && false":  "propName=false",
			"true || false":  "propName=true",
			"false || false": "propName=false",
			"!true":          "propName=false",
			"!!true":         "propName=true",
		} {
			assert.Equal(t, []string{want}, bindSimpleValue(t, expr, nil), expr)
		}
	})

	t.Run("should support conditionals", func(t *testing.T) {
		assert.Equal(t, []string{"propName=1"}, bindSimpleValue(t, "1 < 2 ? 1 : 2", nil))
		assert.Equal(t, []string{"propName=2"}, bindSimpleValue(t, "1 > 2 ? 1 : 2", nil))
	})

	t.Run("should short-circuit logical operations", func(t *testing.T) {
		for _, tc := range []struct {
			expr  string
			calls int
		}{
			{"true || address.city", 0},
			{"false && address.city", 0},
			{"true && address.city", 1},
			{"false || address.city", 1},
			{"true ? 'x' : address.city", 0},
			{"false ? 'x' : address.city", 1},
		} {
			address := &Address{city: "Grenoble"}
			bindSimpleValue(t, tc.expr, &Person{Name: "Victor", Address: address})
			assert.Equal(t, tc.calls, address.cityGetterCalls, tc.expr)
		}
	})

	t.Run("should support safe navigation", func(t *testing.T) {
		assert.Equal(t, []string{"propName=null"}, bindSimpleValue(t, "address?.city", &Person{}))
		assert.Equal(t, []string{"propName=Grenoble"},
			bindSimpleValue(t, "address?.city", &Person{Address: &Address{city: "Grenoble"}}))
		assert.Equal(t, []string{"propName=null"}, bindSimpleValue(t, "address?.toString()", &Person{}))
		assert.Equal(t, []string{"propName=address Grenoble"},
			bindSimpleValue(t, "address?.toString()", &Person{Address: &Address{city: "Grenoble"}}))
	})

	t.Run("should support method calls", func(t *testing.T) {
		assert.Equal(t, []string{"propName=Hi, Jim"}, bindSimpleValue(t, "sayHi('Jim')", &Person{}))
		assert.Equal(t, []string{"propName=address Lyon"},
			bindSimpleValue(t, "address.toString()", &Person{Address: &Address{city: "Lyon"}}))
	})

	t.Run("should support function calls", func(t *testing.T) {
		td := &TestData{A: func() func(int) int { return func(x int) int { return x } }}
		assert.Equal(t, []string{"propName=99"}, bindSimpleValue(t, "a()(99)", td))
	})

	t.Run("should support literal arrays and maps", func(t *testing.T) {
		assert.Equal(t, []string{"propName=[1 2]"}, bindSimpleValue(t, "[1, 2]", nil))
		assert.Equal(t, []string{"propName=[1 2]"}, bindSimpleValue(t, "[1, a]", &TestData{A: 2}))
		assert.Equal(t, []string{"propName=map[z:1]"}, bindSimpleValue(t, "{'z': 1}", nil))
		assert.Equal(t, []string{"propName=map[z:1]"}, bindSimpleValue(t, "{z: a}", &TestData{A: 1}))
	})

	t.Run("should support keyed access", func(t *testing.T) {
		assert.Equal(t, []string{"propName=foo"}, bindSimpleValue(t, `["foo", "bar"][0]`, nil))
		assert.Equal(t, []string{"propName=bar"}, bindSimpleValue(t, `{"foo": "bar"}["foo"]`, nil))
		assert.Equal(t, []string{"propName=2"}, bindSimpleValue(t, "a[1]", &TestData{A: []int{1, 2}}))
	})

	t.Run("should support interpolation", func(t *testing.T) {
		for _, tc := range []struct {
			value any
			want  string
		}{
			{"value", "propName=BvalueA"},
			{nil, "propName=BA"},
			{1, "propName=B1A"},
		} {
			dispatcher := newTestDispatcher()
			detector := instantiate(t, propertyDefinition(interpolation(t, "B{{a}}A")), nil)
			detector.Hydrate(&TestData{A: tc.value}, nil, dispatcher, nil)
			require.NoError(t, detector.DetectChanges())
			assert.Equal(t, []string{tc.want}, dispatcher.log)
		}
	})
}

func TestChangeDetectorWatching(t *testing.T) {
	t.Run("should do simple watching", func(t *testing.T) {
		person := &Person{Name: "misko"}
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "name")), nil)
		detector.Hydrate(person, nil, dispatcher, nil)

		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=misko"}, dispatcher.log)

		dispatcher.clear()
		require.NoError(t, detector.DetectChanges())
		assert.Empty(t, dispatcher.log)

		person.Name = "Misko"
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=Misko"}, dispatcher.log)
	})

	t.Run("should treat NaN as unchanged", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "age")), nil)
		detector.Hydrate(&Person{Age: math.NaN()}, nil, dispatcher, nil)

		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=NaN"}, dispatcher.log)
		dispatcher.clear()
		require.NoError(t, detector.DetectChanges())
		assert.Empty(t, dispatcher.log)
	})

	t.Run("should not recompute a literal array whose arguments did not change", func(t *testing.T) {
		td := &TestData{A: 1}
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "[a]")), nil)
		detector.Hydrate(td, nil, dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		dispatcher.clear()

		require.NoError(t, detector.DetectChanges())
		assert.Empty(t, dispatcher.log)

		td.A = 2
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=[2]"}, dispatcher.log)
	})

	t.Run("should treat a struct holding a slice as unchanged", func(t *testing.T) {
		td := &TestData{A: itemBox{Items: []int{1}}}
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "a")), nil)
		detector.Hydrate(td, nil, dispatcher, nil)

		require.NoError(t, detector.DetectChanges())
		require.Len(t, dispatcher.log, 1)
		dispatcher.clear()

		require.NoError(t, detector.DetectChanges())
		assert.Empty(t, dispatcher.log)
		require.NoError(t, detector.CheckNoChanges())

		td.A = itemBox{Items: []int{1}, Label: "x"}
		require.NoError(t, detector.DetectChanges())
		assert.Len(t, dispatcher.log, 1)
	})

	t.Run("should read locals", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "key"), "key"), nil)
		detector.Hydrate(nil, cd.NewLocals(nil, map[string]any{"key": "value"}), dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=value"}, dispatcher.log)
	})

	t.Run("should invoke a function from locals", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "key()"), "key"), nil)
		locals := cd.NewLocals(nil, map[string]any{"key": func() string { return "value" }})
		detector.Hydrate(nil, locals, dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=value"}, dispatcher.log)
	})

	t.Run("should read nested locals", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "key"), "key"), nil)
		parent := cd.NewLocals(nil, map[string]any{"key": "value"})
		detector.Hydrate(nil, cd.NewLocals(parent, nil), dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=value"}, dispatcher.log)
	})

	t.Run("should fall back to the context for names that are not variables", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "name"), "key"), nil)
		detector.Hydrate(&Person{Name: "bob"}, cd.NewLocals(nil, map[string]any{"key": "value"}), dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob"}, dispatcher.log)
	})
}

type countingPipe struct{ state int }

func (p *countingPipe) Transform(value any, _ []any) (any, error) {
	s := fmt.Sprintf("%v state:%d", value, p.state)
	p.state++
	return s, nil
}

type multiArgPipe struct{}

func (multiArgPipe) Transform(value any, args []any) (any, error) {
	third := any("default")
	if len(args) > 2 {
		third = args[2]
	}
	return fmt.Sprintf("%v %v %v %v", value, args[0], args[1], third), nil
}

type wrappedPipe struct{}

func (wrappedPipe) Transform(value any, _ []any) (any, error) { return cd.Wrap(value), nil }

type pipeWithOnDestroy struct{ destroyed bool }

func (p *pipeWithOnDestroy) Transform(value any, _ []any) (any, error) { return value, nil }
func (p *pipeWithOnDestroy) NgOnDestroy()                              { p.destroyed = true }

func TestChangeDetectorPipes(t *testing.T) {
	hydrate := func(t *testing.T, expr string, context any, pipes cd.Pipes) (*cd.ChangeDetector, *testDispatcher) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, expr)), nil)
		detector.Hydrate(context, nil, dispatcher, pipes)
		return detector, dispatcher
	}

	t.Run("should support pipes", func(t *testing.T) {
		pipes := cd.NewPipeRegistry(cd.PipeProvider{Name: "countingPipe", Factory: func() cd.PipeTransform { return &countingPipe{} }})
		detector, dispatcher := hydrate(t, "name | countingPipe", &Person{Name: "bob"}, pipes)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob state:0"}, dispatcher.log)
	})

	t.Run("should call impure pipes on every pass", func(t *testing.T) {
		pipes := cd.NewPipeRegistry(cd.PipeProvider{Name: "countingPipe", Factory: func() cd.PipeTransform { return &countingPipe{} }})
		detector, dispatcher := hydrate(t, "name | countingPipe", &Person{Name: "bob"}, pipes)
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob state:0", "propName=bob state:1"}, dispatcher.log)
	})

	t.Run("should not call pure pipes when the input did not change", func(t *testing.T) {
		pipes := cd.NewPipeRegistry(cd.PipeProvider{Name: "countingPipe", Pure: true,
			Factory: func() cd.PipeTransform { return &countingPipe{} }})
		person := &Person{Name: "bob"}
		detector, dispatcher := hydrate(t, "name | countingPipe", person, pipes)
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob state:0"}, dispatcher.log)

		person.Name = "tom"
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob state:0", "propName=tom state:1"}, dispatcher.log)
	})

	t.Run("should support pipes with arguments", func(t *testing.T) {
		pipes := cd.NewPipeRegistry(cd.PipeProvider{Name: "multiArgPipe", Factory: func() cd.PipeTransform { return multiArgPipe{} }})
		person := &Person{Name: "bob", Address: &Address{city: "Grenoble"}}
		detector, dispatcher := hydrate(t, "name | multiArgPipe:'one':address.city", person, pipes)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob one Grenoble default"}, dispatcher.log)
	})

	t.Run("should unwrap wrapped values", func(t *testing.T) {
		pipes := cd.NewPipeRegistry(cd.PipeProvider{Name: "pipe", Factory: func() cd.PipeTransform { return wrappedPipe{} }})
		detector, dispatcher := hydrate(t, "name | pipe", &Person{Name: "bob"}, pipes)
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob", "propName=bob"}, dispatcher.log)
	})

	t.Run("should fail on an unknown pipe", func(t *testing.T) {
		detector, _ := hydrate(t, "name | unknown", &Person{Name: "bob"}, cd.NewPipeRegistry())
		err := detector.DetectChanges()
		var notFound *cd.PipeNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "unknown", notFound.Name)
	})

	t.Run("should destroy pipes on dehydration", func(t *testing.T) {
		instance := &pipeWithOnDestroy{}
		pipes := cd.NewPipeRegistry(cd.PipeProvider{Name: "pipe", Factory: func() cd.PipeTransform { return instance }})
		detector, _ := hydrate(t, "name | pipe", &Person{Name: "bob"}, pipes)
		require.NoError(t, detector.DetectChanges())
		detector.Dehydrate()
		assert.True(t, instance.destroyed)
	})
}

func TestChangeDetectorDirectives(t *testing.T) {
	index1 := cd.DirectiveIndex{ElementIndex: 0, DirectiveIndex: 0}
	index2 := cd.DirectiveIndex{ElementIndex: 0, DirectiveIndex: 1}

	setup := func(t *testing.T, def *cd.ChangeDetectorDefinition, dirs map[cd.DirectiveIndex]any) (*cd.ChangeDetector, *testDispatcher) {
		dispatcher := newTestDispatcher()
		dispatcher.directives = dirs
		detector := instantiate(t, def, nil)
		detector.Hydrate(&TestData{}, nil, dispatcher, nil)
		return detector, dispatcher
	}

	t.Run("should update directive inputs", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1}
		def := definition([]*cd.BindingRecord{cd.CreateForDirective(binding(t, "42"), "a", nil, rec)}, rec)
		def.GenConfig.LogBindingUpdate = true
		directive := &testDirective{}
		detector, dispatcher := setup(t, def, map[cd.DirectiveIndex]any{index1: directive})
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, 42, directive.A)
		assert.Empty(t, dispatcher.log)
		assert.Equal(t, []string{"a=42"}, dispatcher.debugLog)
	})

	t.Run("should use the setter of a binding", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1}
		setter := func(dir, value any) error {
			dir.(*testDirective).B = value
			return nil
		}
		def := definition([]*cd.BindingRecord{cd.CreateForDirective(binding(t, "'x'"), "a", setter, rec)}, rec)
		directive := &testDirective{}
		detector, _ := setup(t, def, map[cd.DirectiveIndex]any{index1: directive})
		require.NoError(t, detector.DetectChanges())
		assert.Nil(t, directive.A)
		assert.Equal(t, "x", directive.B)
	})

	t.Run("should read host properties from the directive", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1}
		def := definition([]*cd.BindingRecord{cd.CreateForHostProperty(index1, binding(t, "a"), "hostProp")}, rec)
		detector, dispatcher := setup(t, def, map[cd.DirectiveIndex]any{index1: &testDirective{A: 42}})
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"hostProp=42"}, dispatcher.log)
	})

	t.Run("should log element updates when enabled", func(t *testing.T) {
		def := propertyDefinition(binding(t, "name"))
		def.GenConfig.LogBindingUpdate = true
		dispatcher := newTestDispatcher()
		detector := instantiate(t, def, nil)
		detector.Hydrate(&Person{Name: "bob"}, nil, dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=bob"}, dispatcher.debugLog)
	})

	t.Run("should group changes per directive for NgOnChanges", func(t *testing.T) {
		rec1 := &cd.DirectiveRecord{DirectiveIndex: index1, CallOnChanges: true}
		rec2 := &cd.DirectiveRecord{DirectiveIndex: index2, CallOnChanges: true}
		def := definition([]*cd.BindingRecord{
			cd.CreateForDirective(binding(t, "1"), "a", nil, rec1),
			cd.CreateForDirective(binding(t, "2"), "b", nil, rec1),
			cd.CreateDirectiveOnChanges(rec1),
			cd.CreateForDirective(binding(t, "3"), "a", nil, rec2),
			cd.CreateDirectiveOnChanges(rec2),
		}, rec1, rec2)
		dir1, dir2 := &testDirective{}, &testDirective{}
		detector, _ := setup(t, def, map[cd.DirectiveIndex]any{index1: dir1, index2: dir2})
		require.NoError(t, detector.DetectChanges())

		currentValues := func(changes map[string]*cd.SimpleChange) map[string]any {
			out := map[string]any{}
			for k, c := range changes {
				out[k] = c.CurrentValue
				assert.True(t, c.IsFirstChange())
			}
			return out
		}
		assert.Empty(t, cmp.Diff(map[string]any{"a": 1, "b": 2}, currentValues(dir1.changes)))
		assert.Empty(t, cmp.Diff(map[string]any{"a": 3}, currentValues(dir2.changes)))

		dir1.changes = nil
		require.NoError(t, detector.DetectChanges())
		assert.Nil(t, dir1.changes)
	})

	t.Run("should call NgDoCheck on every pass but not when checking for no changes", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1, CallDoCheck: true}
		directive := &testDirective{}
		detector, _ := setup(t, definition([]*cd.BindingRecord{cd.CreateDirectiveDoCheck(rec)}, rec),
			map[cd.DirectiveIndex]any{index1: directive})
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, 2, directive.doCheckCalls)
		require.NoError(t, detector.CheckNoChanges())
		assert.Equal(t, 2, directive.doCheckCalls)
	})

	t.Run("should call NgOnInit only once", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1, CallOnInit: true}
		directive := &testDirective{}
		detector, _ := setup(t, definition([]*cd.BindingRecord{cd.CreateDirectiveOnInit(rec)}, rec),
			map[cd.DirectiveIndex]any{index1: directive})
		require.NoError(t, detector.CheckNoChanges())
		assert.Equal(t, 0, directive.onInitCalls)
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, 1, directive.onInitCalls)
	})

	t.Run("should not call NgOnInit again after it failed", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1, CallOnInit: true}
		directive := &testDirective{initErr: errors.New("boom")}
		detector, _ := setup(t, definition([]*cd.BindingRecord{cd.CreateDirectiveOnInit(rec)}, rec),
			map[cd.DirectiveIndex]any{index1: directive})

		err := detector.DetectChanges()
		require.Error(t, err)
		assert.ErrorContains(t, err, "boom")
		assert.Equal(t, cd.Errored, detector.State())

		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, 1, directive.onInitCalls)
	})

	t.Run("should call content and view hooks", func(t *testing.T) {
		rec := &cd.DirectiveRecord{
			DirectiveIndex:          index1,
			CallAfterContentInit:    true,
			CallAfterContentChecked: true,
			CallAfterViewInit:       true,
			CallAfterViewChecked:    true,
		}
		directive := &testDirective{}
		detector, dispatcher := setup(t, definition(nil, rec), map[cd.DirectiveIndex]any{index1: directive})

		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, 1, directive.afterContentInitCalls)
		assert.Equal(t, 2, directive.afterContentCheckedCalls)
		assert.Equal(t, 1, directive.afterViewInitCalls)
		assert.Equal(t, 2, directive.afterViewCheckedCalls)
		assert.True(t, dispatcher.afterContentCheckedCalled)
		assert.True(t, dispatcher.afterViewCheckedCalled)

		dispatcher.clear()
		require.NoError(t, detector.CheckNoChanges())
		assert.Equal(t, 2, directive.afterContentCheckedCalls)
		assert.Equal(t, 2, directive.afterViewCheckedCalls)
		assert.False(t, dispatcher.afterContentCheckedCalled)
		assert.False(t, dispatcher.afterViewCheckedCalled)
	})

	t.Run("should call hooks of children before their parents", func(t *testing.T) {
		var log []string
		rec1 := &cd.DirectiveRecord{DirectiveIndex: index1, CallAfterContentChecked: true, CallAfterViewChecked: true}
		rec2 := &cd.DirectiveRecord{DirectiveIndex: index2, CallAfterContentChecked: true, CallAfterViewChecked: true}
		detector, _ := setup(t, definition(nil, rec1, rec2), map[cd.DirectiveIndex]any{
			index1: &testDirective{name: "dir1", log: &log},
			index2: &testDirective{name: "dir2", log: &log},
		})
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{
			"dir2.afterContentChecked", "dir1.afterContentChecked",
			"dir2.afterViewChecked", "dir1.afterViewChecked",
		}, log)
	})

	t.Run("should call hooks in order", func(t *testing.T) {
		var log []string
		rec := &cd.DirectiveRecord{
			DirectiveIndex:          index1,
			CallOnChanges:           true,
			CallOnInit:              true,
			CallDoCheck:             true,
			CallAfterContentInit:    true,
			CallAfterContentChecked: true,
			CallAfterViewInit:       true,
			CallAfterViewChecked:    true,
		}
		def := definition([]*cd.BindingRecord{
			cd.CreateForDirective(binding(t, "1"), "a", nil, rec),
			cd.CreateDirectiveOnChanges(rec),
			cd.CreateDirectiveOnInit(rec),
			cd.CreateDirectiveDoCheck(rec),
		}, rec)
		detector, _ := setup(t, def, map[cd.DirectiveIndex]any{index1: &testDirective{name: "dir", log: &log}})
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{
			"dir.onChanges", "dir.onInit", "dir.doCheck",
			"dir.afterContentInit", "dir.afterContentChecked",
			"dir.afterViewInit", "dir.afterViewChecked",
		}, log)
	})

	t.Run("should mark OnPush detectors as CheckOnce after an input changed", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1, ChangeDetection: cd.OnPush}
		td := &TestData{A: 1}
		def := definition([]*cd.BindingRecord{cd.CreateForDirective(binding(t, "a"), "a", nil, rec)}, rec)
		dispatcher := newTestDispatcher()
		dispatcher.directives[index1] = &testDirective{}
		detector := instantiate(t, def, nil)
		child := instantiate(t, definition(nil), detector.Arena())
		child.Hydrate(nil, nil, nil, nil)
		child.SetMode(cd.Checked)
		dispatcher.detectors[index1] = child
		detector.Hydrate(td, nil, dispatcher, nil)

		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, cd.CheckOnce, child.Mode())

		child.SetMode(cd.Checked)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, cd.Checked, child.Mode())

		td.A = 2
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, cd.CheckOnce, child.Mode())
	})

	t.Run("should call NgOnDestroy on dehydration", func(t *testing.T) {
		rec := &cd.DirectiveRecord{DirectiveIndex: index1, CallOnDestroy: true}
		directive := &testDirective{}
		detector, _ := setup(t, definition(nil, rec), map[cd.DirectiveIndex]any{index1: directive})
		detector.Dehydrate()
		assert.True(t, directive.destroyed)
	})
}

type reentrant struct {
	detector *cd.ChangeDetector
	err      error
}

func (r *reentrant) Run() int {
	r.err = r.detector.DetectChanges()
	return 1
}

func TestChangeDetectorErrors(t *testing.T) {
	t.Run("should wrap errors with the binding location and debug context", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "invalidFn(1)")), nil)
		detector.Hydrate(&Person{}, nil, dispatcher, nil)

		err := detector.DetectChanges()
		var cdErr *cd.ChangeDetectionError
		require.ErrorAs(t, err, &cdErr)
		assert.Equal(t, "invalidFn(1) in location", cdErr.Location)
		require.NotNil(t, cdErr.Context)
		assert.Equal(t, "debug", cdErr.Context.Context)
		assert.Equal(t, "invalidFn(1) in location", cdErr.Context.Expression)
		assert.Contains(t, err.Error(), "[invalidFn(1) in location]")
	})

	t.Run("should drop the location when the debug context fails", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		dispatcher.debugContextErr = errors.New("no context")
		detector := instantiate(t, propertyDefinition(binding(t, "invalidFn(1)")), nil)
		detector.Hydrate(&Person{}, nil, dispatcher, nil)

		var cdErr *cd.ChangeDetectionError
		require.ErrorAs(t, detector.DetectChanges(), &cdErr)
		assert.Empty(t, cdErr.Location)
		assert.Nil(t, cdErr.Context)
	})

	t.Run("should not run again after an error until rehydrated", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "invalidFn(1)")), nil)
		detector.Hydrate(&Person{}, nil, dispatcher, nil)
		require.Error(t, detector.DetectChanges())
		assert.NoError(t, detector.DetectChanges())

		detector.Dehydrate()
		detector.Hydrate(&Person{}, nil, dispatcher, nil)
		assert.Equal(t, cd.NeverChecked, detector.State())
		assert.Error(t, detector.DetectChanges())
	})

	t.Run("should fail when used dehydrated", func(t *testing.T) {
		detector := instantiate(t, propertyDefinition(binding(t, "a")), nil)
		err := detector.DetectChanges()
		var dehydrated *cd.DehydratedError
		require.ErrorAs(t, err, &dehydrated)
		assert.ErrorContains(t, err, "Attempt to use a dehydrated detector")

		_, err = detector.HandleEvent("event", 0, nil)
		assert.ErrorAs(t, err, &dehydrated)
	})

	t.Run("should fail when used dehydrated whatever the mode", func(t *testing.T) {
		for _, mode := range []cd.ChangeDetectionStrategy{cd.OnPush, cd.Detached} {
			def := propertyDefinition(binding(t, "a"))
			def.Strategy = cd.OnPush
			detector := instantiate(t, def, nil)
			detector.Hydrate(&TestData{A: 1}, nil, newTestDispatcher(), nil)
			require.NoError(t, detector.DetectChanges(), mode.String())
			if mode == cd.Detached {
				detector.SetMode(cd.Detached)
			}

			detector.Dehydrate()
			assert.Equal(t, cd.ModeNone, detector.Mode(), mode.String())
			var dehydrated *cd.DehydratedError
			assert.ErrorAs(t, detector.DetectChanges(), &dehydrated, mode.String())

			detector.SetMode(mode)
			assert.ErrorAs(t, detector.DetectChanges(), &dehydrated, mode.String())
			assert.ErrorAs(t, detector.CheckNoChanges(), &dehydrated, mode.String())
		}
	})

	t.Run("should report an expression that changed after it was checked", func(t *testing.T) {
		td := &TestData{A: 1}
		detector := instantiate(t, propertyDefinition(binding(t, "a")), nil)
		detector.Hydrate(td, nil, newTestDispatcher(), nil)
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.CheckNoChanges())

		td.A = 2
		err := detector.CheckNoChanges()
		var changed *cd.ExpressionChangedAfterItHasBeenCheckedError
		require.ErrorAs(t, err, &changed)
		assert.Regexp(t, `Expression 'a in location' has changed after it was checked`, err.Error())
		assert.Equal(t, 1, changed.PreviousValue)
		assert.Equal(t, 2, changed.CurrentValue)

		assert.NotEqual(t, cd.Errored, detector.State())
		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.CheckNoChanges())
	})

	t.Run("should refuse reentrant detection", func(t *testing.T) {
		r := &reentrant{}
		detector := instantiate(t, propertyDefinition(binding(t, "run()")), nil)
		r.detector = detector
		detector.Hydrate(r, nil, newTestDispatcher(), nil)
		require.NoError(t, detector.DetectChanges())
		assert.ErrorIs(t, r.err, cd.ErrReentrantDetection)
	})

	t.Run("should recover panics of bound methods", func(t *testing.T) {
		detector := instantiate(t, propertyDefinition(binding(t, "a()")), nil)
		detector.Hydrate(&TestData{A: func() int { panic("kaboom") }}, nil, newTestDispatcher(), nil)
		assert.ErrorContains(t, detector.DetectChanges(), "kaboom")
	})

	t.Run("should reject assignments to variables", func(t *testing.T) {
		def := definition(nil)
		def.VariableNames = []string{"local"}
		def.EventRecords = []*cd.BindingRecord{cd.CreateForEvent(action(t, "local=1"), "event", 0)}
		_, err := cd.NewProtoChangeDetector(def)
		assert.ErrorContains(t, err, "Cannot reassign a variable binding local")
	})
}

func TestChangeDetectorTree(t *testing.T) {
	newDetector := func(t *testing.T, arena *cd.Arena, mode cd.ChangeDetectionStrategy) *cd.ChangeDetector {
		detector := instantiate(t, definition(nil), arena)
		detector.Hydrate(nil, nil, nil, nil)
		detector.SetMode(mode)
		return detector
	}

	t.Run("should check content and view children", func(t *testing.T) {
		arena := cd.NewArena()
		parent := instantiate(t, propertyDefinition(binding(t, "a")), arena)
		content := instantiate(t, propertyDefinition(binding(t, "a")), arena)
		view := instantiate(t, propertyDefinition(binding(t, "a")), arena)
		require.NoError(t, parent.AddContentChild(content))
		require.NoError(t, parent.AddViewChild(view))

		var log []string
		parentDispatcher, contentDispatcher, viewDispatcher := newTestDispatcher(), newTestDispatcher(), newTestDispatcher()
		parent.Hydrate(&TestData{A: "parent"}, nil, parentDispatcher, nil)
		content.Hydrate(&TestData{A: "content"}, nil, contentDispatcher, nil)
		view.Hydrate(&TestData{A: "view"}, nil, viewDispatcher, nil)

		require.NoError(t, parent.DetectChanges())
		log = append(append(append(log, parentDispatcher.log...), contentDispatcher.log...), viewDispatcher.log...)
		assert.Equal(t, []string{"propName=parent", "propName=content", "propName=view"}, log)
		assert.Same(t, parent, content.Owner())
		assert.Same(t, parent, view.Owner())
	})

	t.Run("should not check removed children", func(t *testing.T) {
		arena := cd.NewArena()
		parent := newDetector(t, arena, cd.CheckAlways)
		child := instantiate(t, propertyDefinition(binding(t, "a")), arena)
		require.NoError(t, parent.AddViewChild(child))
		dispatcher := newTestDispatcher()
		child.Hydrate(&TestData{A: 1}, nil, dispatcher, nil)

		child.Remove()
		assert.Nil(t, child.Owner())
		assert.Empty(t, parent.ViewChildren())
		require.NoError(t, parent.DetectChanges())
		assert.Empty(t, dispatcher.log)
	})

	t.Run("should refuse children of another arena", func(t *testing.T) {
		parent := newDetector(t, cd.NewArena(), cd.CheckAlways)
		child := newDetector(t, cd.NewArena(), cd.CheckAlways)
		assert.ErrorIs(t, parent.AddContentChild(child), cd.ErrForeignDetector)
	})

	t.Run("should set the mode from the strategy on hydration", func(t *testing.T) {
		detector := instantiate(t, definition(nil), nil)
		assert.Equal(t, cd.ModeNone, detector.Mode())
		detector.Hydrate(nil, nil, nil, nil)
		assert.Equal(t, cd.CheckAlways, detector.Mode())

		def := definition(nil)
		def.Strategy = cd.OnPush
		onPush := instantiate(t, def, nil)
		onPush.Hydrate(nil, nil, nil, nil)
		assert.Equal(t, cd.CheckOnce, onPush.Mode())
	})

	t.Run("should skip detached and checked detectors", func(t *testing.T) {
		for _, mode := range []cd.ChangeDetectionStrategy{cd.Detached, cd.Checked} {
			dispatcher := newTestDispatcher()
			detector := instantiate(t, propertyDefinition(binding(t, "a")), nil)
			detector.Hydrate(&TestData{A: 1}, nil, dispatcher, nil)
			detector.SetMode(mode)
			require.NoError(t, detector.DetectChanges())
			assert.Empty(t, dispatcher.log, mode.String())
		}
	})

	t.Run("should change CheckOnce to Checked after a pass", func(t *testing.T) {
		detector := newDetector(t, nil, cd.CheckOnce)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, cd.Checked, detector.Mode())

		always := newDetector(t, nil, cd.CheckAlways)
		require.NoError(t, always.DetectChanges())
		assert.Equal(t, cd.CheckAlways, always.Mode())
	})

	t.Run("should keep CheckOnce when only checking for no changes", func(t *testing.T) {
		td := &TestData{A: 1}
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "a")), nil)
		detector.Hydrate(td, nil, dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		dispatcher.clear()

		detector.MarkAsCheckOnce()
		require.NoError(t, detector.CheckNoChanges())
		assert.Equal(t, cd.CheckOnce, detector.Mode())

		td.A = 2
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=2"}, dispatcher.log)
		assert.Equal(t, cd.Checked, detector.Mode())
	})

	t.Run("should mark the path to the root as CheckOnce", func(t *testing.T) {
		arena := cd.NewArena()
		root := newDetector(t, arena, cd.CheckAlways)
		disabled := newDetector(t, arena, cd.Detached)
		parent := newDetector(t, arena, cd.Checked)
		child := newDetector(t, arena, cd.Checked)
		require.NoError(t, root.AddContentChild(disabled))
		require.NoError(t, disabled.AddContentChild(parent))
		require.NoError(t, parent.AddContentChild(child))

		child.MarkPathToRootAsCheckOnce()
		assert.Equal(t, cd.CheckAlways, root.Mode())
		assert.Equal(t, cd.Detached, disabled.Mode())
		assert.Equal(t, cd.CheckOnce, parent.Mode())
		assert.Equal(t, cd.CheckOnce, child.Mode())
	})

	t.Run("should destroy recursively", func(t *testing.T) {
		arena := cd.NewArena()
		rec := &cd.DirectiveRecord{DirectiveIndex: cd.DirectiveIndex{}, CallOnDestroy: true}
		parent := instantiate(t, definition(nil), arena)
		child := instantiate(t, definition(nil, rec), arena)
		require.NoError(t, parent.AddViewChild(child))

		parentDispatcher, childDispatcher := newTestDispatcher(), newTestDispatcher()
		directive := &testDirective{}
		childDispatcher.directives[cd.DirectiveIndex{}] = directive
		parent.Hydrate(nil, nil, parentDispatcher, nil)
		child.Hydrate(nil, nil, childDispatcher, nil)

		parent.DestroyRecursive()
		assert.True(t, parentDispatcher.destroyCalled)
		assert.True(t, childDispatcher.destroyCalled)
		assert.True(t, directive.destroyed)
		assert.False(t, parent.Hydrated())
		assert.False(t, child.Hydrated())
	})

	t.Run("should rehydrate", func(t *testing.T) {
		dispatcher := newTestDispatcher()
		detector := instantiate(t, propertyDefinition(binding(t, "a")), nil)
		detector.Hydrate(&TestData{A: 1}, nil, dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		detector.Dehydrate()
		detector.Hydrate(&TestData{A: 1}, nil, dispatcher, nil)
		require.NoError(t, detector.DetectChanges())
		assert.Equal(t, []string{"propName=1", "propName=1"}, dispatcher.log)
	})
}

func TestChangeDetectorEvents(t *testing.T) {
	eventDetector := func(t *testing.T, handler string, context any) *cd.ChangeDetector {
		def := definition(nil)
		def.EventRecords = []*cd.BindingRecord{cd.CreateForEvent(action(t, handler), "event", 0)}
		detector := instantiate(t, def, nil)
		detector.Hydrate(context, nil, newTestDispatcher(), nil)
		return detector
	}

	t.Run("should update the context with the event", func(t *testing.T) {
		td := &TestData{}
		ok, err := eventDetector(t, "a=$event", td).HandleEvent("event", 0, "EVENT")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "EVENT", td.A)
	})

	t.Run("should support chained assignments", func(t *testing.T) {
		td := &TestData{}
		_, err := eventDetector(t, "b=a=$event", td).HandleEvent("event", 0, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, td.A)
		assert.Equal(t, 5, td.B)
	})

	t.Run("should ignore other events and elements", func(t *testing.T) {
		td := &TestData{}
		detector := eventDetector(t, "a=$event", td)
		_, err := detector.HandleEvent("other", 0, 1)
		require.NoError(t, err)
		_, err = detector.HandleEvent("event", 1, 1)
		require.NoError(t, err)
		assert.Nil(t, td.A)
	})

	t.Run("should prevent the default action only on false", func(t *testing.T) {
		for handler, want := range map[string]bool{"false": false, "true": true, "0": true, "null": true} {
			ok, err := eventDetector(t, handler, &TestData{}).HandleEvent("event", 0, nil)
			require.NoError(t, err)
			assert.Equal(t, want, ok, handler)
		}
	})

	t.Run("should support short-circuiting", func(t *testing.T) {
		td := &TestData{A: 0}
		_, err := eventDetector(t, "true ? a = a + 1 : a = a + 1", td).HandleEvent("event", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, td.A)
	})

	t.Run("should support chains", func(t *testing.T) {
		td := &TestData{A: 0}
		_, err := eventDetector(t, "a=a+1; a=a+1;", td).HandleEvent("event", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, td.A)
	})

	t.Run("should wrap handler errors", func(t *testing.T) {
		_, err := eventDetector(t, "invalidFn()", &Person{}).HandleEvent("event", 0, nil)
		var evErr *cd.EventEvaluationError
		require.ErrorAs(t, err, &evErr)
		assert.Equal(t, "event", evErr.EventName)
		assert.ErrorContains(t, err, `Error during evaluation of "event"`)
		require.NotNil(t, evErr.Context)
	})

	t.Run("should mark the path to the root as CheckOnce", func(t *testing.T) {
		arena := cd.NewArena()
		parent := instantiate(t, definition(nil), arena)
		parent.Hydrate(nil, nil, nil, nil)
		parent.SetMode(cd.Checked)

		def := definition(nil)
		def.EventRecords = []*cd.BindingRecord{cd.CreateForEvent(action(t, "a=1"), "event", 0)}
		child := instantiate(t, def, arena)
		require.NoError(t, parent.AddViewChild(child))
		child.Hydrate(&TestData{}, nil, nil, nil)
		child.SetMode(cd.Checked)

		_, err := child.HandleEvent("event", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, cd.CheckOnce, child.Mode())
		assert.Equal(t, cd.CheckOnce, parent.Mode())
	})

	t.Run("should run host listeners against the directive and mark OnPush views", func(t *testing.T) {
		index := cd.DirectiveIndex{ElementIndex: 0, DirectiveIndex: 0}
		rec := &cd.DirectiveRecord{DirectiveIndex: index, ChangeDetection: cd.OnPush}
		def := definition(nil, rec)
		def.EventRecords = []*cd.BindingRecord{cd.CreateForHostEvent(action(t, "a=$event"), "click", rec)}

		arena := cd.NewArena()
		detector := instantiate(t, def, arena)
		componentView := instantiate(t, definition(nil), arena)
		componentView.Hydrate(nil, nil, nil, nil)
		componentView.SetMode(cd.Checked)

		directive := &testDirective{}
		dispatcher := newTestDispatcher()
		dispatcher.directives[index] = directive
		dispatcher.detectors[index] = componentView
		detector.Hydrate(&TestData{}, nil, dispatcher, nil)

		_, err := detector.HandleEvent("click", 0, "clicked")
		require.NoError(t, err)
		assert.Equal(t, "clicked", directive.A)
		assert.Equal(t, cd.CheckOnce, componentView.Mode())
	})
}

type recordingObserver struct {
	detections []bool
	bindings   []string
	errs       []error
}

func (o *recordingObserver) ObserveDetection(_ string, checkNoChanges bool, _ time.Duration, err error) {
	o.detections = append(o.detections, checkNoChanges)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObserveBinding(_ string, target *cd.BindingTarget) {
	o.bindings = append(o.bindings, target.Name)
}

func TestArena(t *testing.T) {
	t.Run("should report passes and bindings to the observer", func(t *testing.T) {
		observer := &recordingObserver{}
		arena := cd.NewArena(cd.WithObserver(observer))
		detector := instantiate(t, propertyDefinition(binding(t, "a")), arena)
		detector.Hydrate(&TestData{A: 1}, nil, nil, nil)

		require.NoError(t, detector.DetectChanges())
		require.NoError(t, detector.CheckNoChanges())
		assert.Equal(t, []bool{false, true}, observer.detections)
		assert.Equal(t, []string{"propName"}, observer.bindings)
		assert.Equal(t, []error{nil, nil}, observer.errs)
	})

	t.Run("should hand out handles in creation order", func(t *testing.T) {
		arena := cd.NewArena()
		first := instantiate(t, definition(nil), arena)
		second := instantiate(t, definition(nil), arena)
		assert.Equal(t, 2, arena.Len())
		assert.Same(t, first, arena.Get(first.Handle()))
		assert.Same(t, second, arena.Get(second.Handle()))
		assert.Nil(t, arena.Get(cd.NoHandle))
	})
}

func TestChangeDetectorRef(t *testing.T) {
	t.Run("should check for changes only in dev mode", func(t *testing.T) {
		for _, devMode := range []bool{false, true} {
			td := &TestData{A: 1}
			detector := instantiate(t, propertyDefinition(binding(t, "a")), cd.NewArena(cd.WithDevMode(devMode)))
			detector.Hydrate(td, nil, nil, nil)
			ref := detector.Ref()
			require.NoError(t, ref.DetectChanges())
			td.A = 2
			err := ref.CheckNoChanges()
			if devMode {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		}
	})

	t.Run("should detach and reattach", func(t *testing.T) {
		arena := cd.NewArena()
		parent := instantiate(t, definition(nil), arena)
		parent.Hydrate(nil, nil, nil, nil)
		parent.SetMode(cd.Checked)
		child := instantiate(t, definition(nil), arena)
		child.Hydrate(nil, nil, nil, nil)
		require.NoError(t, parent.AddViewChild(child))

		ref := child.Ref()
		ref.Detach()
		assert.Equal(t, cd.Detached, child.Mode())
		ref.Reattach()
		assert.Equal(t, cd.CheckAlways, child.Mode())
		assert.Equal(t, cd.CheckOnce, parent.Mode())
	})

	t.Run("should mark for check", func(t *testing.T) {
		detector := instantiate(t, definition(nil), nil)
		detector.Hydrate(nil, nil, nil, nil)
		detector.SetMode(cd.Checked)
		detector.Ref().MarkForCheck()
		assert.Equal(t, cd.CheckOnce, detector.Mode())
	})
}
