package goserdes

import "context"

// Schema is the contract every record schema satisfies: turning loosely typed
// loader output into T, and re-checking an already typed T.
type Schema[T any] interface {
	// Parse checks loader output and builds a T from it. Failures are
	// reported as Issues.
	Parse(ctx context.Context, v any) (T, error)
	// ValidateValue re-checks a T built elsewhere, for example by hand.
	ValidateValue(ctx context.Context, v T) error
}

// Normalizer is implemented by schemas that rewrite a value after their own
// checks, such as trimming or canonical casing.
type Normalizer[T any] interface {
	Normalize(ctx context.Context, v T) (T, error)
}

// Refiner is implemented by schemas with rules spanning several fields.
type Refiner[T any] interface {
	Refine(ctx context.Context, v T) error
}

// Finish runs the optional tail of a parse on v: s's Normalize hook, then its
// Refine hook. Schemas call it once their own checks have passed.
func Finish[T any](ctx context.Context, s Schema[T], v T) (T, error) {
	if n, ok := s.(Normalizer[T]); ok {
		var err error
		if v, err = n.Normalize(ctx, v); err != nil {
			return v, err
		}
	}
	if r, ok := s.(Refiner[T]); ok {
		if err := r.Refine(ctx, v); err != nil {
			return v, err
		}
	}
	return v, nil
}

// FieldDeclarer is implemented by object schemas that can say whether a key
// is one of their declared fields.
type FieldDeclarer interface {
	DeclaresField(name string) bool
}

// UnknownPolicy decides what an object schema does with keys it does not
// declare.
type UnknownPolicy int

const (
	UnknownStrict      UnknownPolicy = iota // unknown_key issue per key
	UnknownStrip                            // dropped silently
	UnknownPassthrough                      // collected under a target field
)

type contextKey int

const _ctxKeyFailFast contextKey = iota

// WithFailFast makes schemas parsing under ctx return at the first issue
// instead of collecting all of them.
func WithFailFast(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyFailFast, enabled)
}

// IsFailFast reports whether WithFailFast is in effect for ctx.
func IsFailFast(ctx context.Context) bool {
	b, _ := ctx.Value(_ctxKeyFailFast).(bool)
	return b
}
