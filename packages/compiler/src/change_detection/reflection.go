package change_detection

import (
	"errors"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// exportedName upper-cases the first letter so template names such as
// "city" find the Go field or method City.
func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// findMethod looks up name on obj or, for addressable values, on a
// pointer to it.
func findMethod(obj reflect.Value, name string) reflect.Value {
	for _, n := range []string{name, exportedName(name)} {
		if m := obj.MethodByName(n); m.IsValid() {
			return m
		}
	}
	return reflect.Value{}
}

func findField(obj reflect.Value, name string) reflect.Value {
	if obj.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	for _, n := range []string{name, exportedName(name)} {
		if sf, ok := obj.Type().FieldByName(n); ok && sf.IsExported() {
			return obj.FieldByIndex(sf.Index)
		}
	}
	return reflect.Value{}
}

// GetProperty reads name from obj. Struct fields match by exact or
// capitalised name, then a method of that name taking no arguments is
// called as a getter; map entries match by key; "length" is the length
// of strings, slices, arrays and maps.
func GetProperty(obj any, name string) (any, error) {
	if isNil(obj) {
		return nil, fmt.Errorf("Cannot read property '%s' of null", name)
	}
	if m, ok := obj.(map[string]any); ok {
		return m[name], nil
	}
	raw := reflect.ValueOf(obj)
	if method := findMethod(raw, name); method.IsValid() && method.Type().NumIn() == 0 {
		return callResults(method.Call(nil))
	}
	v := indirect(raw)
	if !v.IsValid() {
		return nil, fmt.Errorf("Cannot read property '%s' of null", name)
	}
	switch v.Kind() {
	case reflect.Struct:
		if f := findField(v, name); f.IsValid() {
			return f.Interface(), nil
		}
	case reflect.Map:
		key, err := convertArg(reflect.ValueOf(name), v.Type().Key())
		if err == nil {
			if e := v.MapIndex(key); e.IsValid() {
				return e.Interface(), nil
			}
			if name != "length" {
				return nil, nil
			}
		}
	}
	if name == "length" {
		switch v.Kind() {
		case reflect.String:
			return utf8.RuneCountInString(v.String()), nil
		case reflect.Slice, reflect.Array, reflect.Map:
			return v.Len(), nil
		}
	}
	return nil, fmt.Errorf("Property '%s' does not exist on %T", name, obj)
}

// SetProperty writes value into field name of a struct pointer or into a
// map entry.
func SetProperty(obj any, name string, value any) error {
	if isNil(obj) {
		return fmt.Errorf("Cannot set property '%s' of null", name)
	}
	raw := reflect.ValueOf(obj)
	if setter := findMethod(raw, "Set"+exportedName(name)); setter.IsValid() && setter.Type().NumIn() == 1 {
		arg, err := convertArg(reflect.ValueOf(value), setter.Type().In(0))
		if err != nil {
			return err
		}
		_, err = callResults(setter.Call([]reflect.Value{arg}))
		return err
	}
	v := indirect(raw)
	if !v.IsValid() {
		return fmt.Errorf("Cannot set property '%s' of null", name)
	}
	switch v.Kind() {
	case reflect.Struct:
		f := findField(v, name)
		if !f.IsValid() {
			return fmt.Errorf("Property '%s' does not exist on %T", name, obj)
		}
		if !f.CanSet() {
			return fmt.Errorf("Property '%s' of %T is not settable", name, obj)
		}
		converted, err := convertArg(reflect.ValueOf(value), f.Type())
		if err != nil {
			return err
		}
		f.Set(converted)
		return nil
	case reflect.Map:
		return setMapEntry(v, name, value)
	}
	return fmt.Errorf("Cannot set property '%s' on %T", name, obj)
}

func setMapEntry(m reflect.Value, key, value any) error {
	if m.IsNil() {
		return errors.New("Cannot assign to an entry of a nil map")
	}
	k, err := convertArg(reflect.ValueOf(key), m.Type().Key())
	if err != nil {
		return err
	}
	val, err := convertArg(reflect.ValueOf(value), m.Type().Elem())
	if err != nil {
		return err
	}
	m.SetMapIndex(k, val)
	return nil
}

// InvokeMethod calls method name of obj. A struct field or map entry
// holding a function is called the same way.
func InvokeMethod(obj any, name string, args []any) (any, error) {
	if isNil(obj) {
		return nil, fmt.Errorf("Cannot call method '%s' of null", name)
	}
	raw := reflect.ValueOf(obj)
	if method := findMethod(raw, name); method.IsValid() {
		return call(method, args)
	}
	fn, err := GetProperty(obj, name)
	if err != nil {
		return nil, fmt.Errorf("Method '%s' does not exist on %T", name, obj)
	}
	return InvokeClosure(fn, args)
}

// InvokeClosure calls fn, which must be a Go function value.
func InvokeClosure(fn any, args []any) (any, error) {
	if isNil(fn) {
		return nil, errors.New("Cannot call a null function")
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T is not a function", fn)
	}
	return call(v, args)
}

func call(fn reflect.Value, args []any) (result any, err error) {
	t := fn.Type()
	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		var paramType reflect.Type
		switch {
		case t.IsVariadic() && i >= t.NumIn()-1:
			paramType = t.In(t.NumIn() - 1).Elem()
		case i < t.NumIn():
			paramType = t.In(i)
		default:
			return nil, fmt.Errorf("Too many arguments: expected %d, got %d", t.NumIn(), len(args))
		}
		converted, err := convertArg(reflect.ValueOf(arg), paramType)
		if err != nil {
			return nil, err
		}
		in = append(in, converted)
	}
	minArgs := t.NumIn()
	if t.IsVariadic() {
		minArgs--
	}
	for len(in) < minArgs {
		in = append(in, reflect.Zero(t.In(len(in))))
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, panicError(r)
		}
	}()
	return callResults(fn.Call(in))
}

// callResults maps Go return values onto a single value: a trailing
// error is returned as the error.
func callResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			return nil, out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// convertArg adapts v to t: nil becomes the zero value and numbers are
// converted between kinds.
func convertArg(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumberKind(v.Kind()) && isNumberKind(t.Kind()) {
		return v.Convert(t), nil
	}
	if v.Kind() == reflect.String && t.Kind() == reflect.String {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("Cannot use %s as %s", v.Type(), t)
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// KeyedRead is obj[key] for slices, arrays, strings and maps.
func KeyedRead(obj, key any) (any, error) {
	if isNil(obj) {
		return nil, fmt.Errorf("Cannot read key '%v' of null", key)
	}
	v := indirect(reflect.ValueOf(obj))
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, err := listIndex(key, v.Len())
		if err != nil {
			return nil, err
		}
		if i < 0 {
			return nil, nil
		}
		if v.Kind() == reflect.String {
			return string(v.String()[i]), nil
		}
		return v.Index(i).Interface(), nil
	case reflect.Map:
		k, err := convertArg(reflect.ValueOf(key), v.Type().Key())
		if err != nil {
			return nil, err
		}
		if e := v.MapIndex(k); e.IsValid() {
			return e.Interface(), nil
		}
		return nil, nil
	}
	if name, ok := key.(string); ok {
		return GetProperty(obj, name)
	}
	return nil, fmt.Errorf("Cannot read key '%v' of %T", key, obj)
}

// KeyedWrite is obj[key] = value for slices, arrays behind pointers and
// maps.
func KeyedWrite(obj, key, value any) error {
	if isNil(obj) {
		return fmt.Errorf("Cannot set key '%v' of null", key)
	}
	v := indirect(reflect.ValueOf(obj))
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		i, err := listIndex(key, v.Len())
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("Index %v out of range", key)
		}
		elem := v.Index(i)
		if !elem.CanSet() {
			return fmt.Errorf("Cannot assign to an element of %T", obj)
		}
		converted, err := convertArg(reflect.ValueOf(value), elem.Type())
		if err != nil {
			return err
		}
		elem.Set(converted)
		return nil
	case reflect.Map:
		return setMapEntry(v, key, value)
	}
	if name, ok := key.(string); ok {
		return SetProperty(obj, name, value)
	}
	return fmt.Errorf("Cannot set key '%v' of %T", key, obj)
}

// listIndex returns -1 for an index past the end.
func listIndex(key any, length int) (int, error) {
	i, ok := toInt(key)
	if !ok {
		f, isFloat := toFloat(key)
		if !isFloat || f != float64(int64(f)) {
			return 0, fmt.Errorf("Invalid index '%v'", key)
		}
		i = int64(f)
	}
	if i < 0 || i >= int64(length) {
		return -1, nil
	}
	return int(i), nil
}
