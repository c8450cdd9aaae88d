package goserdes

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldPath returns the query path of the field of T that selector addresses,
// with each segment resolved by ResolveStructKey. Nested struct fields give a
// dotted path usable as a Query key or inside Where expressions:
//
//	goserdes.FieldPath(func(c *Customer) *string { return &c.Address.City }) // "address.city"
//
// Only fields reached without pointer hops can be addressed. FieldPath panics
// when selector returns anything else.
func FieldPath[T, F any](selector func(*T) *F) string {
	var zero T
	p := selector(&zero)
	if p == nil {
		panic("goserdes.FieldPath: selector returned nil")
	}
	root := reflect.ValueOf(&zero).Elem()
	if root.Kind() != reflect.Struct {
		panic(fmt.Sprintf("goserdes.FieldPath: %s is not a struct", root.Type()))
	}
	keys, ok := fieldKeys(root, reflect.ValueOf(p).Pointer(), reflect.TypeFor[F]())
	if !ok {
		panic(fmt.Sprintf("goserdes.FieldPath: selector does not address a field of %s", root.Type()))
	}
	return strings.Join(keys, ".")
}

// fieldKeys searches v for the field stored at addr with type ft. A struct and
// its first field share an address, so the type decides between them.
func fieldKeys(v reflect.Value, addr uintptr, ft reflect.Type) ([]string, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := ResolveStructKey(sf)
		if name == "" || name == "-" {
			continue
		}
		fv := v.Field(i)
		if fv.Addr().Pointer() == addr && sf.Type == ft {
			return []string{name}, true
		}
		if fv.Kind() == reflect.Struct {
			if rest, ok := fieldKeys(fv, addr, ft); ok {
				return append([]string{name}, rest...), true
			}
		}
	}
	return nil, false
}
