// Package pipes holds the common pipes every template can use.
package pipes

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ng2c-go/packages/compiler/src/change_detection"
)

// InvalidPipeArgumentError is returned when a pipe gets a value of a type
// it cannot transform.
type InvalidPipeArgumentError struct {
	Pipe  string
	Value any
}

func (e *InvalidPipeArgumentError) Error() string {
	return fmt.Sprintf("Invalid argument '%v' for pipe '%s'", e.Value, e.Pipe)
}

// Providers returns the common pipe providers.
func Providers() []change_detection.PipeProvider {
	return []change_detection.PipeProvider{
		{Name: "uppercase", Pure: true, Factory: func() change_detection.PipeTransform { return &UpperCasePipe{} }},
		{Name: "lowercase", Pure: true, Factory: func() change_detection.PipeTransform { return &LowerCasePipe{} }},
		{Name: "json", Pure: false, Factory: func() change_detection.PipeTransform { return &JsonPipe{} }},
		{Name: "slice", Pure: false, Factory: func() change_detection.PipeTransform { return &SlicePipe{} }},
	}
}

// Registry returns a registry of the common pipes followed by extra, so
// extra providers can replace a common pipe by name.
func Registry(extra ...change_detection.PipeProvider) *change_detection.PipeRegistry {
	return change_detection.NewPipeRegistry(append(Providers(), extra...)...)
}

// UpperCasePipe transforms a string to upper case. nil stays nil.
type UpperCasePipe struct{}

func (*UpperCasePipe) Transform(value any, _ []any) (any, error) {
	return mapString("uppercase", value, cases.Upper(language.Und))
}

// LowerCasePipe transforms a string to lower case. nil stays nil.
type LowerCasePipe struct{}

func (*LowerCasePipe) Transform(value any, _ []any) (any, error) {
	return mapString("lowercase", value, cases.Lower(language.Und))
}

func mapString(pipe string, value any, caser cases.Caser) (any, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, &InvalidPipeArgumentError{Pipe: pipe, Value: value}
	}
	return caser.String(s), nil
}

// JsonPipe renders its input as indented JSON. It is impure: the same
// object may have been mutated since the last pass.
type JsonPipe struct{}

func (*JsonPipe) Transform(value any, _ []any) (any, error) {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, err
	}
	return string(out), nil
}

// SlicePipe returns the part of a string or list between start and the
// optional end. Negative offsets count from the end. Lists are copied, so
// the pipe is impure to pick up mutations of its input.
type SlicePipe struct{}

func (*SlicePipe) Transform(value any, args []any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("slice pipe requires a start argument")
	}
	start, err := toIndex(args[0])
	if err != nil {
		return nil, err
	}
	var end *int
	if len(args) > 1 && args[1] != nil {
		e, err := toIndex(args[1])
		if err != nil {
			return nil, err
		}
		end = &e
	}

	if s, ok := value.(string); ok {
		runes := []rune(s)
		from, to := bounds(len(runes), start, end)
		return string(runes[from:to]), nil
	}

	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, &InvalidPipeArgumentError{Pipe: "slice", Value: value}
	}
	from, to := bounds(v.Len(), start, end)
	out := make([]any, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, v.Index(i).Interface())
	}
	return out, nil
}

// bounds clamps start and end the way Array.prototype.slice does.
func bounds(length, start int, end *int) (int, int) {
	clamp := func(i int) int {
		if i < 0 {
			i += length
		}
		return max(0, min(i, length))
	}
	from, to := clamp(start), length
	if end != nil {
		to = clamp(*end)
	}
	if to < from {
		to = from
	}
	return from, to
}

func toIndex(arg any) (int, error) {
	switch n := arg.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("slice pipe index %v is not an integer", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("slice pipe index %v is not a number", arg)
}
