package assert

import "reflect"

// NotNil panics when value is nil. A nil pointer, map, slice, chan or func stored
// in an interface counts as nil too.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		if v.IsNil() {
			panic("expected value to be not nil")
		}
	}
}
