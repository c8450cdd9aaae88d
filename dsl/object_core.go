package dsl

import (
	"context"
	"sort"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/i18n"
)

type objectSchema struct {
	fields        map[string]AnyAdapter
	required      map[string]struct{}
	unknownPolicy goserdes.UnknownPolicy
	unknownTarget string
	refines       []objRefine
	sortedKeys    []string
}

var _ goserdes.Schema[map[string]any] = (*objectSchema)(nil)

// knownKeys returns the declared field names in ascending order so issues come
// out in a stable order. Build fills the cache before the schema is shared.
func (o *objectSchema) knownKeys() []string {
	if o.sortedKeys != nil {
		return o.sortedKeys
	}
	ks := make([]string, 0, len(o.fields))
	for k := range o.fields {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	o.sortedKeys = ks
	return ks
}

func (o *objectSchema) DeclaresField(name string) bool {
	_, ok := o.fields[name]
	return ok
}

// issuesFromErr converts an error into Issues under path, wrapping anything
// that is not already Issues as a parse_error.
func issuesFromErr(path string, err error) goserdes.Issues {
	if err == nil {
		return nil
	}
	if iss, ok := goserdes.AsIssues(err); ok {
		return iss.Rebase(path)
	}
	return goserdes.Issues{{Path: path, Code: goserdes.CodeParseError, Message: err.Error(), Cause: err}}
}

func requiredIssue(k string) goserdes.Issue {
	return goserdes.Issue{Path: "/" + k, Code: goserdes.CodeRequired, Message: i18n.T(goserdes.CodeRequired, nil)}
}

func invalidType(hint string) goserdes.Issues {
	return goserdes.Issues{{Path: "/", Code: goserdes.CodeInvalidType, Message: i18n.T(goserdes.CodeInvalidType, nil), Hint: hint}}
}

func (o *objectSchema) collectKnown(ctx context.Context, src map[string]any) (map[string]any, goserdes.Issues) {
	out := make(map[string]any, len(src))
	var iss goserdes.Issues
	for _, k := range o.knownKeys() {
		ad := o.fields[k]
		var (
			val any
			err error
		)
		switch raw, exists := src[k]; {
		case exists:
			if ad.parse == nil {
				val = raw
			} else {
				val, err = ad.parse(ctx, raw)
			}
		case ad.applyDefault != nil:
			val, err = ad.applyDefault(ctx)
		default:
			if _, req := o.required[k]; req {
				iss = goserdes.AppendIssues(iss, requiredIssue(k))
				if goserdes.IsFailFast(ctx) {
					return out, iss
				}
			}
			continue
		}
		if err != nil {
			iss = goserdes.AppendIssues(iss, issuesFromErr("/"+k, err)...)
			if goserdes.IsFailFast(ctx) {
				return out, iss
			}
			continue
		}
		out[k] = val
	}
	return out, iss
}

// collectUnknown applies the unknown-key policy, writing passthrough keys into
// out.
func (o *objectSchema) collectUnknown(src, out map[string]any) goserdes.Issues {
	var uks []string
	for k := range src {
		if _, known := o.fields[k]; !known {
			uks = append(uks, k)
		}
	}
	sort.Strings(uks)
	var iss goserdes.Issues
	for _, k := range uks {
		switch o.unknownPolicy {
		case goserdes.UnknownStrict:
			iss = goserdes.AppendIssues(iss, goserdes.Issue{Path: "/" + k, Code: goserdes.CodeUnknownKey, Message: i18n.T(goserdes.CodeUnknownKey, nil)})
		case goserdes.UnknownPassthrough:
			extra, _ := out[o.unknownTarget].(map[string]any)
			if extra == nil {
				extra = map[string]any{}
			}
			extra[k] = src[k]
			out[o.unknownTarget] = extra
		}
	}
	return iss
}

func (o *objectSchema) Parse(ctx context.Context, v any) (map[string]any, error) {
	src, ok := v.(map[string]any)
	if !ok {
		return nil, invalidType("expected object")
	}
	out, iss := o.collectKnown(ctx, src)
	if goserdes.IsFailFast(ctx) && len(iss) > 0 {
		return nil, iss
	}
	if more := o.collectUnknown(src, out); len(more) > 0 {
		iss = goserdes.AppendIssues(iss, more...)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	nn, err := goserdes.Finish[map[string]any](ctx, o, out)
	if err != nil {
		return nil, err
	}
	return nn, nil
}

// ValidateValue re-checks an already parsed mapping: declared fields against
// their adapters, required fields for presence and unknown keys per policy.
func (o *objectSchema) ValidateValue(ctx context.Context, v map[string]any) error {
	var iss goserdes.Issues
	for _, k := range o.knownKeys() {
		val, ok := v[k]
		if !ok {
			if _, req := o.required[k]; req {
				iss = goserdes.AppendIssues(iss, requiredIssue(k))
			}
			continue
		}
		if ad := o.fields[k]; ad.validateValue != nil {
			if err := ad.validateValue(ctx, val); err != nil {
				iss = goserdes.AppendIssues(iss, issuesFromErr("/"+k, err)...)
			}
		}
		if goserdes.IsFailFast(ctx) && len(iss) > 0 {
			return iss
		}
	}
	if o.unknownPolicy == goserdes.UnknownStrict {
		iss = goserdes.AppendIssues(iss, o.collectUnknown(v, nil)...)
	}
	if len(iss) > 0 {
		return iss
	}
	return o.Refine(ctx, v)
}

// Refine runs the object-level rules in declaration order.
func (o *objectSchema) Refine(ctx context.Context, m map[string]any) error {
	for _, r := range o.refines {
		err := r.fn(ctx, m)
		if err == nil {
			continue
		}
		if iss, ok := goserdes.AsIssues(err); ok {
			return iss
		}
		return goserdes.Issues{{
			Path:    "/",
			Code:    goserdes.CodeBusinessRule,
			Message: err.Error(),
			Hint:    r.name,
			Cause:   err,
		}}
	}
	return nil
}
