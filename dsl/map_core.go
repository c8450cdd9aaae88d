package dsl

import (
	"context"
	"sort"

	goserdes "github.com/reoring/goserdes"
)

// MapAny accepts any mapping and keeps it as it is.
func MapAny() goserdes.Schema[map[string]any] { return mapAnySchema{} }

type mapAnySchema struct{}

func (mapAnySchema) Parse(_ context.Context, v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	return nil, invalidType("expected object")
}

func (mapAnySchema) ValidateValue(context.Context, map[string]any) error { return nil }

// Map returns a schema for mappings whose values all satisfy elem.
func Map[V any](elem goserdes.Schema[V]) goserdes.Schema[map[string]V] {
	return mapSchema[V]{val: elem}
}

// MapOf adapts Map(elem) for use in Field. Without an element schema the
// mapping is accepted as it is.
func MapOf[V any](elem goserdes.Schema[V]) AnyAdapter {
	if elem == nil {
		return SchemaOf(MapAny())
	}
	return SchemaOf(Map(elem))
}

type mapSchema[V any] struct{ val goserdes.Schema[V] }

func (m mapSchema[V]) Parse(ctx context.Context, v any) (map[string]V, error) {
	src, ok := v.(map[string]any)
	if !ok {
		if typed, ok := v.(map[string]V); ok {
			return typed, m.ValidateValue(ctx, typed)
		}
		return nil, invalidType("expected object")
	}
	out := make(map[string]V, len(src))
	var iss goserdes.Issues
	for _, k := range sortedKeys(src) {
		pv, err := m.val.Parse(ctx, src[k])
		if err != nil {
			iss = goserdes.AppendIssues(iss, issuesFromErr("/"+k, err)...)
			if goserdes.IsFailFast(ctx) {
				break
			}
			continue
		}
		out[k] = pv
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

func (m mapSchema[V]) ValidateValue(ctx context.Context, v map[string]V) error {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := m.val.ValidateValue(ctx, v[k]); err != nil {
			return issuesFromErr("/"+k, err)
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
