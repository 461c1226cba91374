// Package merge implements the shallow field-wise overwrite used for table
// state snapshots, plus the deep clone that keeps cached values detached from
// caller-owned memory.
package merge

import "reflect"

// Overwrite returns a new value built from base where every present field of
// patch replaces the matching field of base. A field is present when it is a
// non-nil pointer, map, slice or interface, or any non-zero value of another
// kind. Fields absent from patch keep base's value. Neither argument is
// mutated and the result shares no mutable memory with them.
//
// Non-struct values are treated as a single field: a present patch wins.
func Overwrite[T any](base, patch T) T {
	merged := overwriteValue(reflect.ValueOf(base), reflect.ValueOf(patch))
	return asType[T](merged)
}

// Clone deep-copies v.
func Clone[T any](v T) T {
	return asType[T](cloneValue(reflect.ValueOf(v)))
}

// PresentFields lists the exported struct fields of v that are present.
// It returns nil for non-struct values.
func PresentFields(v any) []reflect.StructField {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	var fields []reflect.StructField
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		if Present(rv.Field(i)) {
			fields = append(fields, field)
		}
	}
	return fields
}

// Present reports whether v carries an explicit value.
func Present(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return !v.IsNil()
	default:
		return !v.IsZero()
	}
}

func overwriteValue(base, patch reflect.Value) reflect.Value {
	if !patch.IsValid() {
		return cloneValue(base)
	}
	if patch.Kind() != reflect.Struct {
		if Present(patch) {
			return cloneValue(patch)
		}
		return cloneValue(base)
	}

	result := reflect.New(patch.Type()).Elem()
	var baseStruct reflect.Value
	if base.IsValid() && base.Type() == patch.Type() {
		baseStruct = base
	}
	for i := 0; i < patch.NumField(); i++ {
		field := result.Field(i)
		if !field.CanSet() {
			continue
		}
		strong := patch.Field(i)
		if Present(strong) {
			field.Set(cloneValue(strong))
			continue
		}
		if baseStruct.IsValid() {
			field.Set(cloneValue(baseStruct.Field(i)))
		}
	}
	return result
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		wrapped := reflect.New(v.Type()).Elem()
		wrapped.Set(elem)
		return wrapped
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}

func asType[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	if out, ok := v.Interface().(T); ok {
		return out
	}
	return zero
}
