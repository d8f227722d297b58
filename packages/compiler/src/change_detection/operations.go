package change_detection

import (
	"fmt"
	"math"
	"strings"
)

// pureFunc computes the value of a PrimitiveOp, Interpolate or
// CollectionLiteral record from the values of its arguments.
type pureFunc func(args []any) (any, error)

// IsTruthy is the truthiness used by conditions, "!", "&&" and "||".
func IsTruthy(v any) bool {
	if isNil(v) {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

func condFn(args []any) (any, error) {
	if IsTruthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

func negateFn(args []any) (any, error) {
	return !IsTruthy(args[0]), nil
}

var binaryOperations = map[string]struct {
	name string
	fn   pureFunc
}{
	"+":   {"operation_add", binary(add)},
	"-":   {"operation_subtract", binary(arithmetic("-"))},
	"*":   {"operation_multiply", binary(arithmetic("*"))},
	"/":   {"operation_divide", binary(arithmetic("/"))},
	"%":   {"operation_remainder", binary(arithmetic("%"))},
	"==":  {"operation_equals", binary(func(a, b any) (any, error) { return looseEquals(a, b), nil })},
	"!=":  {"operation_not_equals", binary(func(a, b any) (any, error) { return !looseEquals(a, b), nil })},
	"===": {"operation_identical", binary(func(a, b any) (any, error) { return strictEquals(a, b), nil })},
	"!==": {"operation_not_identical", binary(func(a, b any) (any, error) { return !strictEquals(a, b), nil })},
	"<":   {"operation_less_then", binary(compare(func(c int) bool { return c < 0 }))},
	">":   {"operation_greater_then", binary(compare(func(c int) bool { return c > 0 }))},
	"<=":  {"operation_less_or_equals_then", binary(compare(func(c int) bool { return c <= 0 }))},
	">=":  {"operation_greater_or_equals_then", binary(compare(func(c int) bool { return c >= 0 }))},
}

func binary(fn func(a, b any) (any, error)) pureFunc {
	return func(args []any) (any, error) { return fn(args[0], args[1]) }
}

func add(a, b any) (any, error) {
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr || bStr {
		return DisplayString(a) + DisplayString(b), nil
	}
	return arithmetic("+")(a, b)
}

func arithmetic(op string) func(a, b any) (any, error) {
	return func(a, b any) (any, error) {
		fa, okA := numeric(a)
		fb, okB := numeric(b)
		if !okA || !okB {
			return nil, fmt.Errorf("Unsupported operand types for %s: %T and %T", op, a, b)
		}
		ia, intA := toInt(a)
		ib, intB := toInt(b)
		if intA && intB && op != "/" {
			switch op {
			case "+":
				return int(ia + ib), nil
			case "-":
				return int(ia - ib), nil
			case "*":
				return int(ia * ib), nil
			case "%":
				if ib == 0 {
					return math.NaN(), nil
				}
				return int(ia % ib), nil
			}
		}
		switch op {
		case "+":
			return fa + fb, nil
		case "-":
			return fa - fb, nil
		case "*":
			return fa * fb, nil
		case "/":
			return fa / fb, nil
		default:
			return math.Mod(fa, fb), nil
		}
	}
}

// numeric converts numbers, booleans and nil for arithmetic.
func numeric(v any) (float64, bool) {
	if isNil(v) {
		return 0, true
	}
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return toFloat(v)
}

// looseEquals is "==": booleans compare with numbers by value.
func looseEquals(a, b any) bool {
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if aBool != bBool {
		fa, okA := numeric(a)
		fb, okB := numeric(b)
		return okA && okB && !isNil(a) && !isNil(b) && fa == fb
	}
	return strictEquals(a, b)
}

// strictEquals is "===". Unlike LooseIdentical, NaN is not equal to
// itself.
func strictEquals(a, b any) bool {
	if f, ok := toFloat(a); ok && math.IsNaN(f) {
		return false
	}
	return LooseIdentical(a, b)
}

func compare(accept func(int) bool) func(a, b any) (any, error) {
	return func(a, b any) (any, error) {
		if sa, ok := a.(string); ok {
			if sb, ok := b.(string); ok {
				return accept(strings.Compare(sa, sb)), nil
			}
		}
		fa, okA := numeric(a)
		fb, okB := numeric(b)
		if !okA || !okB {
			return nil, fmt.Errorf("Cannot compare %T with %T", a, b)
		}
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return false, nil
		}
		switch {
		case fa < fb:
			return accept(-1), nil
		case fa > fb:
			return accept(1), nil
		}
		return accept(0), nil
	}
}

// interpolationFn joins strings and argument values; nil renders as an
// empty string.
func interpolationFn(strs []string) pureFunc {
	return func(args []any) (any, error) {
		var sb strings.Builder
		for i, s := range strs {
			sb.WriteString(s)
			if i < len(args) && !isNil(args[i]) {
				sb.WriteString(DisplayString(args[i]))
			}
		}
		return sb.String(), nil
	}
}

func arrayFn(args []any) (any, error) {
	out := make([]any, len(args))
	copy(out, args)
	return out, nil
}

func mapFn(keys []string) pureFunc {
	return func(args []any) (any, error) {
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k] = args[i]
		}
		return out, nil
	}
}
