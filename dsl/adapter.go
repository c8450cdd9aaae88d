package dsl

import (
	"context"
	"math"
	"reflect"
	"strconv"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/i18n"
)

// AnyAdapter adapts Schema[T] to an any-typed wrapper so fields of different
// types can live in one object builder. It keeps the original schema for
// integrations that need it.
type AnyAdapter struct {
	parse         func(context.Context, any) (any, error)
	validateValue func(context.Context, any) error
	applyDefault  func(context.Context) (any, error)
	orig          any
}

// SchemaOf adapts s for use in Field.
func SchemaOf[T any](s goserdes.Schema[T]) AnyAdapter {
	return AnyAdapter{
		parse: func(ctx context.Context, v any) (any, error) { return s.Parse(ctx, v) },
		validateValue: func(ctx context.Context, v any) error {
			if tv, ok := v.(T); ok {
				return s.ValidateValue(ctx, tv)
			}
			// Values of a related Go type (int vs int64, a struct field of a
			// named string type) are checked by parsing them.
			_, err := s.Parse(ctx, v)
			return err
		},
		orig: s,
	}
}

// Orig returns the schema this adapter was built from.
func (ad AnyAdapter) Orig() any { return ad.orig }

// Nullable accepts nil for both parse and validate. Parsing nil yields nil.
func Nullable(ad AnyAdapter) AnyAdapter {
	prevParse := ad.parse
	prevValidate := ad.validateValue
	out := ad
	out.parse = func(ctx context.Context, v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		if prevParse == nil {
			return v, nil
		}
		return prevParse(ctx, v)
	}
	out.validateValue = func(ctx context.Context, v any) error {
		if isNil(v) {
			return nil
		}
		if prevValidate == nil {
			return nil
		}
		return prevValidate(ctx, v)
	}
	return out
}

// Nullable enables fluent chaining: dsl.StringOf[T]().Nullable()
func (ad AnyAdapter) Nullable() AnyAdapter { return Nullable(ad) }

// Min sets an inclusive numeric minimum. Non-numeric values pass this guard;
// type errors are reported by the wrapped schema.
func (ad AnyAdapter) Min(n float64) AnyAdapter {
	return ad.guard(func(v any) error { return minCheck(v, n) })
}

// Max sets an inclusive numeric maximum.
func (ad AnyAdapter) Max(n float64) AnyAdapter {
	return ad.guard(func(v any) error { return maxCheck(v, n) })
}

func (ad AnyAdapter) guard(check func(any) error) AnyAdapter {
	prevParse := ad.parse
	prevValidate := ad.validateValue
	out := ad
	out.parse = func(ctx context.Context, v any) (any, error) {
		val := v
		if prevParse != nil {
			var err error
			if val, err = prevParse(ctx, v); err != nil {
				return nil, err
			}
		}
		if err := check(val); err != nil {
			return nil, err
		}
		return val, nil
	}
	out.validateValue = func(ctx context.Context, v any) error {
		if prevValidate != nil {
			if err := prevValidate(ctx, v); err != nil {
				return err
			}
		}
		return check(v)
	}
	return out
}

func minCheck(v any, n float64) error {
	f, ok := toFloat(v)
	if !ok || f >= n {
		return nil
	}
	return goserdes.Issues{boundIssue(goserdes.CodeTooSmall, "min", n, v)}
}

func maxCheck(v any, n float64) error {
	f, ok := toFloat(v)
	if !ok || f <= n {
		return nil
	}
	return goserdes.Issues{boundIssue(goserdes.CodeTooBig, "max", n, v)}
}

func boundIssue(code, param string, bound float64, got any) goserdes.Issue {
	b := strconv.FormatFloat(bound, 'g', -1, 64)
	return goserdes.Issue{
		Path:    "/",
		Code:    code,
		Message: i18n.T(code, map[string]string{param: b}),
		Params:  map[string]any{param: b, "got": got},
	}
}

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f, !math.IsNaN(f)
	}
	return 0, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Schema exposes the adapter as a Schema[any], for example as the element
// schema of an array whose element type is only known at run time.
func (ad AnyAdapter) Schema() goserdes.Schema[any] { return adapterSchema{ad} }

type adapterSchema struct{ ad AnyAdapter }

func (s adapterSchema) Parse(ctx context.Context, v any) (any, error) {
	if s.ad.parse == nil {
		return v, nil
	}
	return s.ad.parse(ctx, v)
}

func (s adapterSchema) ValidateValue(ctx context.Context, v any) error {
	if s.ad.validateValue == nil {
		return nil
	}
	return s.ad.validateValue(ctx, v)
}
