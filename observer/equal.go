package observer

import (
	"math"
	"reflect"
)

// same reports whether two values are the same for change detection:
// identity for containers, pointers, maps, slices and funcs, == for
// comparable values, and NaN is the same as NaN.
func same(a, b any) (ok bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	if ta.Comparable() {
		defer func() {
			// structs holding uncomparable values in interface fields
			if recover() != nil {
				ok = false
			}
		}()
		return a == b || (isNaN(a) && isNaN(b))
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	default:
		return false
	}
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	default:
		return false
	}
}

// isContainer reports whether v is something the core can observe.
func isContainer(v any) bool {
	switch c := v.(type) {
	case *Object:
		return c != nil
	case *Array:
		return c != nil
	default:
		return false
	}
}
