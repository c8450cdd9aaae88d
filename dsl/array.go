package dsl

import (
	"context"
	"strconv"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/i18n"
)

// ArrayBuilder exposes chaining methods for array schemas while implementing Schema[[]E].
type ArrayBuilder[E any] interface {
	goserdes.Schema[[]E]
	Min(n int) ArrayBuilder[E]
	Max(n int) ArrayBuilder[E]
}

// Array returns an array schema with the given element schema.
func Array[E any](elem goserdes.Schema[E]) ArrayBuilder[E] {
	return &ArraySchema[E]{elem: elem, minLen: -1, maxLen: -1}
}

type ArraySchema[E any] struct {
	elem   goserdes.Schema[E]
	minLen int
	maxLen int
}

// ArrayOf adapts Array[E] for use in Field.
// Example: Field("tags", dsl.ArrayOf[string](dsl.String()))
func ArrayOf[E any](elem goserdes.Schema[E]) AnyAdapter {
	return SchemaOf[[]E](Array(elem))
}

// ArrayOfSchema adapts a configured array builder for use in Field.
// Example: Field("tags", dsl.ArrayOfSchema(dsl.Array[string](dsl.String()).Min(1)))
func ArrayOfSchema[E any](ab ArrayBuilder[E]) AnyAdapter { return SchemaOf[[]E](ab) }

// OneToMany declares a non-empty sequence of nested records. Elements may be
// given as mappings, which are parsed with elem, or as already built E
// values, which are re-validated. A single Go element type keeps the
// sequence homogeneous.
func OneToMany[E any](elem goserdes.Schema[E]) AnyAdapter {
	return ArrayOfSchema(Array(elem).Min(1))
}

// Min sets the minimum length.
func (a *ArraySchema[E]) Min(n int) ArrayBuilder[E] { a.minLen = n; return a }

// Max sets the maximum length.
func (a *ArraySchema[E]) Max(n int) ArrayBuilder[E] { a.maxLen = n; return a }

func (a *ArraySchema[E]) Parse(ctx context.Context, v any) ([]E, error) {
	var res []E
	switch src := v.(type) {
	case []any:
		res = make([]E, 0, len(src))
		var iss goserdes.Issues
		for i, raw := range src {
			ev, err := a.elem.Parse(ctx, raw)
			if err != nil {
				iss = goserdes.AppendIssues(iss, issuesFromErr("/"+strconv.Itoa(i), err)...)
				if goserdes.IsFailFast(ctx) {
					return nil, iss
				}
				continue
			}
			res = append(res, ev)
		}
		if len(iss) > 0 {
			return nil, iss
		}
	case []E:
		res = src
		for i, e := range src {
			if err := a.elem.ValidateValue(ctx, e); err != nil {
				return nil, issuesFromErr("/"+strconv.Itoa(i), err)
			}
		}
	default:
		return nil, goserdes.Issues{{Path: "/", Code: goserdes.CodeInvalidType, Message: i18n.T(goserdes.CodeInvalidType, nil), Hint: "expected array"}}
	}
	if err := a.checkLen(len(res)); err != nil {
		return nil, err
	}
	nn, err := goserdes.Finish[[]E](ctx, a, res)
	if err != nil {
		return nil, err
	}
	return nn, nil
}

func (a *ArraySchema[E]) ValidateValue(ctx context.Context, v []E) error {
	if err := a.checkLen(len(v)); err != nil {
		return err
	}
	for i, e := range v {
		if err := a.elem.ValidateValue(ctx, e); err != nil {
			return issuesFromErr("/"+strconv.Itoa(i), err)
		}
	}
	return nil
}

func (a *ArraySchema[E]) checkLen(n int) error {
	if a.minLen >= 0 && n < a.minLen {
		return goserdes.Issues{{
			Path:    "/",
			Code:    goserdes.CodeTooShort,
			Message: i18n.T(goserdes.CodeTooShort, nil),
			Hint:    "minimum items " + strconv.Itoa(a.minLen),
			Params:  map[string]any{"minItems": a.minLen, "got": n},
		}}
	}
	if a.maxLen >= 0 && n > a.maxLen {
		return goserdes.Issues{{
			Path:    "/",
			Code:    goserdes.CodeTooLong,
			Message: i18n.T(goserdes.CodeTooLong, nil),
			Hint:    "maximum items " + strconv.Itoa(a.maxLen),
			Params:  map[string]any{"maxItems": a.maxLen, "got": n},
		}}
	}
	return nil
}
