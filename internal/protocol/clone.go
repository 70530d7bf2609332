package protocol

import "reflect"

// Clone returns a deep copy of a JSON-shaped value.
//
// Maps, slices, arrays, pointers and struct fields are copied recursively so
// that no mutable reference is shared between v and the result. Scalars are
// returned as-is. Unexported struct fields are copied shallowly since they
// cannot be set through reflection; payloads are expected to be plain data.
func Clone(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	}
	return cloneValue(reflect.ValueOf(v)).Interface()
}

// CloneMap deep-copies a string-keyed map. A nil map stays nil.
func CloneMap(m map[string]any) map[string]any {
	return cloneMap(m)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, elem := range m {
		out[k] = Clone(elem)
	}
	return out
}

// CloneFacts deep-copies a fact slice, preserving nil.
func CloneFacts(facts []Fact) []Fact {
	if facts == nil {
		return nil
	}
	out := make([]Fact, len(facts))
	for i, f := range facts {
		out[i] = Fact{Tag: f.Tag, Payload: Clone(f.Payload)}
	}
	return out
}

// Clone returns an independent deep copy of the state.
func (s State) Clone() State {
	return State{
		Context:         Clone(s.Context),
		Facts:           CloneFacts(s.Facts),
		Meta:            cloneMap(s.Meta),
		ProtocolVersion: s.ProtocolVersion,
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneValue(v.Elem()))
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if !out.Field(i).CanSet() {
				continue
			}
			out.Field(i).Set(cloneValue(v.Field(i)))
		}
		return out

	default:
		return v
	}
}
