package dsl

import (
	"context"
	"fmt"
	"math"
	"reflect"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/i18n"
)

// Builder is satisfied by Object() and by the step returned from Field, so a
// declaration can be passed to Bind whichever call it ends with.
type Builder interface {
	Build() (goserdes.Schema[map[string]any], error)
}

// Bind builds the object schema and binds it to struct type T. Declared
// fields are matched to struct fields by goserdes.StructKeys.
func Bind[T any](b Builder) (goserdes.Schema[T], error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	os, ok := s.(*objectSchema)
	if !ok {
		return nil, fmt.Errorf("dsl: Bind needs an object schema, got %T", s)
	}
	return newTypedObjectSchema[T](os)
}

// MustBind is like Bind but panics on error.
func MustBind[T any](b Builder) goserdes.Schema[T] {
	s, err := Bind[T](b)
	if err != nil {
		panic(err)
	}
	return s
}

// typedObjectSchema projects the mapping produced by an objectSchema onto the
// struct T.
type typedObjectSchema[T any] struct {
	inner      *objectSchema
	t          reflect.Type
	fieldByKey map[string]int // DSL key -> struct field index
}

func newTypedObjectSchema[T any](os *objectSchema) (goserdes.Schema[T], error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("dsl: Bind[T] requires a struct type, got %s", rt)
	}
	idxByName := goserdes.StructKeys(rt)
	fm := make(map[string]int, len(os.fields))
	for k := range os.fields {
		i, ok := idxByName[k]
		if !ok {
			return nil, fmt.Errorf("dsl: field %q has no counterpart in %s", k, rt)
		}
		fm[k] = i
	}
	return &typedObjectSchema[T]{inner: os, t: rt, fieldByKey: fm}, nil
}

func (s *typedObjectSchema[T]) DeclaresField(name string) bool { return s.inner.DeclaresField(name) }

// Parse accepts either a mapping or an already built T (or *T). Typed values
// are re-validated rather than copied.
func (s *typedObjectSchema[T]) Parse(ctx context.Context, v any) (T, error) {
	var zero T
	switch tv := v.(type) {
	case T:
		if err := s.ValidateValue(ctx, tv); err != nil {
			return zero, err
		}
		return tv, nil
	case *T:
		if tv == nil {
			return zero, invalidType("expected object")
		}
		if err := s.ValidateValue(ctx, *tv); err != nil {
			return zero, err
		}
		return *tv, nil
	}
	m, err := s.inner.Parse(ctx, v)
	if err != nil {
		return zero, err
	}
	rv := reflect.New(s.t).Elem()
	var iss goserdes.Issues
	for _, key := range s.inner.knownKeys() {
		val, ok := m[key]
		if !ok || val == nil {
			continue
		}
		if err := assign(rv.Field(s.fieldByKey[key]), val); err != nil {
			iss = goserdes.AppendIssues(iss, goserdes.Issue{
				Path:    "/" + key,
				Code:    goserdes.CodeInvalidType,
				Message: i18n.T(goserdes.CodeInvalidType, nil),
				Hint:    err.Error(),
			})
		}
	}
	if len(iss) > 0 {
		return zero, iss
	}
	return rv.Interface().(T), nil
}

// assign stores val into fv, converting between related types and taking the
// address for pointer fields.
func assign(fv reflect.Value, val any) error {
	vv := reflect.ValueOf(val)
	ft := fv.Type()
	switch {
	case vv.Type().AssignableTo(ft):
		fv.Set(vv)
	case ft.Kind() == reflect.Pointer && vv.Type().AssignableTo(ft.Elem()):
		p := reflect.New(ft.Elem())
		p.Elem().Set(vv)
		fv.Set(p)
	case isNumeric(vv.Kind()) && isNumeric(ft.Kind()):
		cv, err := convertNumber(vv, ft)
		if err != nil {
			return err
		}
		fv.Set(cv)
	case vv.Type().ConvertibleTo(ft) && vv.Kind() != reflect.String && ft.Kind() != reflect.String:
		fv.Set(vv.Convert(ft))
	case vv.Kind() == reflect.String && ft.Kind() == reflect.String:
		fv.SetString(vv.String())
	default:
		return fmt.Errorf("cannot store %s in %s", vv.Type(), ft)
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// convertNumber converts vv to ft and fails when the value does not survive:
// fractions or out-of-range values stored in integers, negative values stored
// in unsigned integers, and floats too large for float32.
func convertNumber(vv reflect.Value, ft reflect.Type) (reflect.Value, error) {
	lossy := fmt.Errorf("%v does not fit in %s", vv.Interface(), ft)
	switch k := ft.Kind(); {
	case k >= reflect.Float32:
		cv := vv.Convert(ft)
		if vv.CanFloat() && cv.OverflowFloat(vv.Float()) {
			return reflect.Value{}, lossy
		}
		return cv, nil
	case k >= reflect.Uint:
		if (vv.CanInt() && vv.Int() < 0) || (vv.CanFloat() && !(vv.Float() >= 0 && vv.Float() < 0x1p64)) {
			return reflect.Value{}, lossy
		}
	default:
		if (vv.CanUint() && vv.Uint() > math.MaxInt64) || (vv.CanFloat() && !(vv.Float() >= -0x1p63 && vv.Float() < 0x1p63)) {
			return reflect.Value{}, lossy
		}
	}
	if vv.CanFloat() && vv.Float() != math.Trunc(vv.Float()) {
		return reflect.Value{}, lossy
	}
	cv := vv.Convert(ft)
	if !cv.Convert(vv.Type()).Equal(vv) {
		return reflect.Value{}, lossy
	}
	return cv, nil
}

// ValidateValue checks a typed T by viewing its bound fields in their plain
// form (see goserdes.ToPlain). Nil pointers, slices and maps count as absent.
func (s *typedObjectSchema[T]) ValidateValue(ctx context.Context, v T) error {
	rv := reflect.ValueOf(v)
	m := make(map[string]any, len(s.fieldByKey))
	for key, idx := range s.fieldByKey {
		fv := rv.Field(idx)
		switch fv.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			if fv.IsNil() {
				continue
			}
		}
		m[key] = goserdes.ToPlain(fv.Interface())
	}
	return s.inner.ValidateValue(ctx, m)
}
