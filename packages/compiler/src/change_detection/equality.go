package change_detection

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

type uninitializedValue struct{}

func (uninitializedValue) String() string { return "CD_INIT_VALUE" }

// UninitializedValue is the previous value of a binding that has never
// been checked. It differs from every other value, nil included.
var UninitializedValue any = uninitializedValue{}

// SimpleChange is one input change handed to NgOnChanges.
type SimpleChange struct {
	PreviousValue any
	CurrentValue  any
}

// IsFirstChange reports whether the input had no value before.
func (c *SimpleChange) IsFirstChange() bool {
	return c.PreviousValue == UninitializedValue
}

// LooseIdentical compares two values the way bindings are dirty checked:
// NaN equals NaN, numbers compare by value whatever their kind, strings
// by content, structs field by field, and everything else by identity.
func LooseIdentical(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return false
		}
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		if ia, ok := toInt(a); ok {
			if ib, ok := toInt(b); ok {
				return ia == ib
			}
		}
		return fa == fb
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Struct:
		return identicalStructs(a, b, va, vb)
	}
	if !va.Type().Comparable() {
		return false
	}
	equal, ok := safeEqual(a, b)
	return ok && equal
}

// identicalStructs compares struct values field by field with
// LooseIdentical, so a struct holding a slice equals a copy of itself.
// Unexported fields cannot be read through reflection and fall back to
// reflect.DeepEqual on the whole value.
func identicalStructs(a, b any, va, vb reflect.Value) bool {
	if va.Type().Comparable() {
		if equal, ok := safeEqual(a, b); ok {
			return equal
		}
	}
	for i := 0; i < va.NumField(); i++ {
		fa, fb := va.Field(i), vb.Field(i)
		if !fa.CanInterface() {
			return reflect.DeepEqual(a, b)
		}
		if !LooseIdentical(fa.Interface(), fb.Interface()) {
			return false
		}
	}
	return true
}

// safeEqual is a == b for values whose type is comparable but may hold
// an uncomparable dynamic value in an interface field. ok is false when
// the comparison panicked.
func safeEqual(a, b any) (equal, ok bool) {
	defer func() {
		if recover() != nil {
			equal, ok = false, false
		}
	}()
	return a == b, true
}

// LooseEqual is LooseIdentical extended with a one level structural
// comparison of slices, arrays and maps. A nil collection never equals
// an empty one.
func LooseEqual(a, b any) bool {
	if LooseIdentical(a, b) {
		return true
	}
	if isNil(a) || isNil(b) {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isList(va) && isList(vb):
		if va.Kind() == reflect.Slice && vb.Kind() == reflect.Slice && va.IsNil() != vb.IsNil() {
			return false
		}
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !LooseIdentical(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case va.Kind() == reflect.Map && vb.Kind() == reflect.Map:
		if va.IsNil() != vb.IsNil() || va.Len() != vb.Len() || va.Type().Key() != vb.Type().Key() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() || !LooseIdentical(iter.Value().Interface(), other.Interface()) {
				return false
			}
		}
		return true
	}
	return false
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil() && rv.Kind() != reflect.Slice && rv.Kind() != reflect.Map
	}
	return false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

// DisplayString renders a value the way templates and diagnostics show
// it: nil is "null", NaN is "NaN", whole floats have no fraction.
func DisplayString(v any) string {
	if isNil(v) {
		return "null"
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
