package dsl

import (
	"context"
	"time"

	goserdes "github.com/reoring/goserdes"
)

// Integer is the set of signed integer types IntOf can project to.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// StringOf returns a string field adapter producing T.
func StringOf[T ~string]() AnyAdapter {
	return project[string, T](String(), func(s string) T { return T(s) }, func(t T) string { return string(t) })
}

// BoolOf returns a boolean field adapter producing T.
func BoolOf[T ~bool]() AnyAdapter {
	return project[bool, T](Bool(), func(b bool) T { return T(b) }, func(t T) bool { return bool(t) })
}

// IntOf returns an integer field adapter producing T. Chain Min/Max for
// bounds: dsl.IntOf[int]().Min(18).Max(100).
func IntOf[T Integer]() AnyAdapter {
	return project[int64, T](Int(), func(n int64) T { return T(n) }, func(t T) int64 { return int64(t) })
}

// FloatOf returns a number field adapter producing T.
func FloatOf[T ~float32 | ~float64]() AnyAdapter {
	return project[float64, T](Float(), func(f float64) T { return T(f) }, func(t T) float64 { return float64(t) })
}

// TimeOf returns a date-time field adapter producing time.Time.
func TimeOf() AnyAdapter { return SchemaOf[time.Time](Time()) }

// Any returns an adapter that accepts every value unchanged.
func Any() AnyAdapter {
	return AnyAdapter{
		parse:         func(_ context.Context, v any) (any, error) { return v, nil },
		validateValue: func(context.Context, any) error { return nil },
	}
}

// project adapts a wire schema W to a field producing T, for example int64 to
// a named int type.
func project[W, T any](wire goserdes.Schema[W], to func(W) T, from func(T) W) AnyAdapter {
	return AnyAdapter{
		parse: func(ctx context.Context, v any) (any, error) {
			if t, ok := v.(T); ok {
				v = from(t)
			}
			w, err := wire.Parse(ctx, v)
			if err != nil {
				return nil, err
			}
			return to(w), nil
		},
		validateValue: func(ctx context.Context, v any) error {
			if t, ok := v.(T); ok {
				return wire.ValidateValue(ctx, from(t))
			}
			_, err := wire.Parse(ctx, v)
			return err
		},
		orig: wire,
	}
}
