package dsl_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	goserdes "github.com/reoring/goserdes"
	g "github.com/reoring/goserdes/dsl"
)

type Level int

func TestAdapters_NamedTypes(t *testing.T) {
	ctx := context.Background()
	s := g.Object().
		Field("email", g.StringOf[Email]()).
		Field("level", g.IntOf[Level]().Min(1).Max(3)).
		Field("since", g.TimeOf()).
		MustBuild()

	got, err := s.Parse(ctx, map[string]any{"email": "a@example.com", "level": 2, "since": "2024-03-01"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["email"] != Email("a@example.com") || got["level"] != Level(2) {
		t.Fatalf("unexpected values: %#v", got)
	}
	if _, ok := got["since"].(time.Time); !ok {
		t.Fatalf("since should be a time.Time, got %T", got["since"])
	}

	if err := s.ValidateValue(ctx, map[string]any{"email": Email("a@example.com"), "level": Level(3)}); err != nil {
		t.Fatalf("typed values should validate: %v", err)
	}
	err = s.ValidateValue(ctx, map[string]any{"level": Level(4)})
	if got := paths(t, err); !reflect.DeepEqual(got, []string{"too_big /level"}) {
		t.Fatalf("issues = %v", got)
	}
}

func TestAdapters_Nullable(t *testing.T) {
	ctx := context.Background()
	s := g.Object().
		Field("note", g.StringOf[string]().Nullable()).Required().
		Field("age", g.Nullable(g.IntOf[int]().Min(18))).
		MustBuild()

	got, err := s.Parse(ctx, map[string]any{"note": nil, "age": nil})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, ok := got["note"]; !ok || v != nil {
		t.Fatalf("explicit null should be kept, got %#v", got)
	}
	if _, err := s.Parse(ctx, map[string]any{"note": nil, "age": 10}); err == nil {
		t.Fatalf("non-null values are still checked")
	}
	if _, err := s.Parse(ctx, map[string]any{"age": nil}); err == nil {
		t.Fatalf("nullable does not make a field optional")
	}
	if err := s.ValidateValue(ctx, map[string]any{"note": (*string)(nil)}); err != nil {
		t.Fatalf("nil pointers are null: %v", err)
	}
}

func TestAdapters_MinMaxFloat(t *testing.T) {
	ctx := context.Background()
	s := g.Object().Field("price", g.FloatOf[float64]().Min(0).Max(9.99)).MustBuild()
	if _, err := s.Parse(ctx, map[string]any{"price": 9.99}); err != nil {
		t.Fatalf("bounds are inclusive: %v", err)
	}
	_, err := s.Parse(ctx, map[string]any{"price": -1})
	iss, _ := goserdes.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != goserdes.CodeTooSmall || iss[0].Params["min"] != "0" {
		t.Fatalf("unexpected issues: %+v", iss)
	}
	if _, err := s.Parse(ctx, map[string]any{"price": "cheap"}); firstCode(t, err) != goserdes.CodeInvalidType {
		t.Fatalf("type errors come from the wrapped schema, got %v", err)
	}
}

func TestArray(t *testing.T) {
	ctx := context.Background()
	a := g.Array[int64](g.Int()).Min(1).Max(2)

	got, err := a.Parse(ctx, []any{1, 2.0})
	if err != nil || !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("got %v, %v", got, err)
	}
	if got, err := a.Parse(ctx, []int64{7}); err != nil || !reflect.DeepEqual(got, []int64{7}) {
		t.Fatalf("typed slices are accepted: %v, %v", got, err)
	}
	_, err = a.Parse(ctx, []any{1, "x", "y"})
	if got := paths(t, err); !reflect.DeepEqual(got, []string{"invalid_type /1", "invalid_type /2"}) {
		t.Fatalf("issues = %v", got)
	}
	_, err = a.Parse(goserdes.WithFailFast(ctx, true), []any{1, "x", "y"})
	if got := paths(t, err); !reflect.DeepEqual(got, []string{"invalid_type /1"}) {
		t.Fatalf("fail-fast issues = %v", got)
	}
	if _, err := a.Parse(ctx, []any{1, 2, 3}); firstCode(t, err) != goserdes.CodeTooLong {
		t.Fatalf("expected too_long, got %v", err)
	}
	if _, err := a.Parse(ctx, "1,2"); firstCode(t, err) != goserdes.CodeInvalidType {
		t.Fatalf("expected invalid_type, got %v", err)
	}
	if err := a.ValidateValue(ctx, nil); firstCode(t, err) != goserdes.CodeTooShort {
		t.Fatalf("expected too_short, got %v", err)
	}
}

func TestMap(t *testing.T) {
	ctx := context.Background()
	s := g.Object().
		Field("limits", g.MapOf[int64](g.Int().Min(0))).
		Field("labels", g.MapOf[any](nil)).
		MustBuild()

	got, err := s.Parse(ctx, map[string]any{
		"limits": map[string]any{"cpu": 2, "mem": int64(512)},
		"labels": map[string]any{"team": "infra", "tier": 1},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !reflect.DeepEqual(got["limits"], map[string]int64{"cpu": 2, "mem": 512}) {
		t.Fatalf("limits = %#v", got["limits"])
	}

	_, err = s.Parse(ctx, map[string]any{"limits": map[string]any{"b": -1, "a": "x"}, "labels": []any{}})
	want := []string{"invalid_type /labels", "invalid_type /limits/a", "too_small /limits/b"}
	if got := paths(t, err); !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}
}

func TestAny(t *testing.T) {
	s := g.Object().Field("payload", g.Any()).Required().MustBuild()
	in := map[string]any{"payload": []any{1, map[string]any{"x": nil}}}
	got, err := s.Parse(context.Background(), in)
	if err != nil || !reflect.DeepEqual(got, in) {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestAdapter_Schema(t *testing.T) {
	ctx := context.Background()
	elem := g.StringOf[string]().Nullable().Schema()
	a := g.Array(elem).Max(2)
	got, err := a.Parse(ctx, []any{"a", nil})
	if err != nil || !reflect.DeepEqual(got, []any{"a", nil}) {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := a.Parse(ctx, []any{1}); err == nil {
		t.Fatalf("expected element type error")
	}
	if _, ok := g.SchemaOf[string](g.String()).Orig().(*g.StringSchema); !ok {
		t.Fatalf("Orig should return the wrapped schema")
	}
}
