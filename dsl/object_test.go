package dsl_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	goserdes "github.com/reoring/goserdes"
	g "github.com/reoring/goserdes/dsl"
)

func paths(t *testing.T, err error) []string {
	t.Helper()
	iss, ok := goserdes.AsIssues(err)
	if !ok {
		t.Fatalf("expected Issues, got %v", err)
	}
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Code + " " + it.Path
	}
	return out
}

func TestObject_RequiredAndDefaults(t *testing.T) {
	ctx := context.Background()
	s := g.Object().
		Field("name", g.StringOf[string]()).Required().
		Field("send_ads", g.BoolOf[bool]()).Default(false).
		Field("note", g.StringOf[string]()).
		MustBuild()

	got, err := s.Parse(ctx, map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := map[string]any{"name": "Alice", "send_ads": false}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	_, err = s.Parse(ctx, map[string]any{"note": 1})
	if got, want := paths(t, err), []string{"required /name", "invalid_type /note"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}

	if _, err := s.Parse(ctx, []any{"Alice"}); err == nil {
		t.Fatalf("expected invalid_type for a list")
	}
}

func TestObject_InvalidDefault(t *testing.T) {
	s := g.Object().Field("age", g.IntOf[int]()).Default("old").MustBuild()
	_, err := s.Parse(context.Background(), map[string]any{})
	if got := paths(t, err); !reflect.DeepEqual(got, []string{"invalid_type /age"}) {
		t.Fatalf("issues = %v", got)
	}
}

func TestObject_UnknownPolicies(t *testing.T) {
	ctx := context.Background()
	in := map[string]any{"name": "Alice", "zeta": 1, "alpha": true}

	strict := g.Object().Field("name", g.StringOf[string]()).MustBuild()
	_, err := strict.Parse(ctx, in)
	if got, want := paths(t, err), []string{"unknown_key /alpha", "unknown_key /zeta"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}

	strip := g.Object().Field("name", g.StringOf[string]()).UnknownStrip().MustBuild()
	got, err := strip.Parse(ctx, in)
	if err != nil || !reflect.DeepEqual(got, map[string]any{"name": "Alice"}) {
		t.Fatalf("strip: got %v, %v", got, err)
	}

	pass := g.Object().Field("name", g.StringOf[string]()).UnknownPassthrough("extra").MustBuild()
	got, err = pass.Parse(ctx, in)
	want := map[string]any{"name": "Alice", "extra": map[string]any{"zeta": 1, "alpha": true}}
	if err != nil || !reflect.DeepEqual(got, want) {
		t.Fatalf("passthrough: got %v, %v", got, err)
	}
}

func TestObject_BuildErrors(t *testing.T) {
	if _, err := g.Object().Field("a", g.Any()).Require("b").Build(); err == nil {
		t.Fatalf("expected error for undeclared required field")
	}
	if _, err := g.Object().Field("a", g.Any()).UnknownPassthrough("a").Build(); err == nil {
		t.Fatalf("expected error for colliding passthrough target")
	}
	if _, err := g.Object().UnknownPassthrough("").Build(); err == nil {
		t.Fatalf("expected error for empty passthrough target")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustBuild should panic")
		}
	}()
	g.Object().Require("missing").MustBuild()
}

func TestObject_FailFast(t *testing.T) {
	s := g.Object().
		Field("a", g.StringOf[string]()).Required().
		Field("b", g.StringOf[string]()).Required().
		Field("c", g.StringOf[string]()).Required().
		MustBuild()

	_, err := s.Parse(context.Background(), map[string]any{"zzz": 1})
	if got := paths(t, err); len(got) != 4 {
		t.Fatalf("collect mode should report all issues, got %v", got)
	}
	_, err = s.Parse(goserdes.WithFailFast(context.Background(), true), map[string]any{"zzz": 1})
	if got := paths(t, err); !reflect.DeepEqual(got, []string{"required /a"}) {
		t.Fatalf("fail-fast should stop at the first issue, got %v", got)
	}
}

func TestObject_Refine(t *testing.T) {
	ctx := context.Background()
	errMismatch := errors.New("password mismatch")
	s := g.Object().
		Field("password", g.StringOf[string]()).
		Field("confirm", g.StringOf[string]()).
		Require("password", "confirm").
		Refine("password==confirm", func(_ context.Context, m map[string]any) error {
			if m["password"] != m["confirm"] {
				return errMismatch
			}
			return nil
		}).
		Refine("length", func(_ context.Context, m map[string]any) error {
			if len(m["password"].(string)) < 4 {
				return goserdes.Issues{{Path: "/password", Code: goserdes.CodeTooShort, Message: "too short"}}
			}
			return nil
		}).
		MustBuild()

	if _, err := s.Parse(ctx, map[string]any{"password": "secret", "confirm": "secret"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	_, err := s.Parse(ctx, map[string]any{"password": "secret", "confirm": "other"})
	iss, ok := goserdes.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("expected one issue, got %v", err)
	}
	if iss[0].Code != goserdes.CodeBusinessRule || iss[0].Hint != "password==confirm" || !errors.Is(iss[0].Cause, errMismatch) {
		t.Fatalf("unexpected issue: %+v", iss[0])
	}

	_, err = s.Parse(ctx, map[string]any{"password": "abc", "confirm": "abc"})
	if got := paths(t, err); !reflect.DeepEqual(got, []string{"too_short /password"}) {
		t.Fatalf("issues = %v", got)
	}
}

func TestObject_ValidateValue(t *testing.T) {
	ctx := context.Background()
	s := g.Object().
		Field("name", g.StringOf[string]()).Required().
		Field("age", g.IntOf[int]().Min(18)).
		MustBuild()

	if err := s.ValidateValue(ctx, map[string]any{"name": "Alice", "age": 30}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := s.ValidateValue(ctx, map[string]any{"age": 10, "x": 1})
	if got, want := paths(t, err), []string{"too_small /age", "required /name", "unknown_key /x"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}
}

func TestObject_NestedIssuePaths(t *testing.T) {
	address := g.Object().
		Field("city", g.StringOf[string]()).Required().
		MustBuild()
	s := g.Object().
		Field("address", g.SchemaOf(address)).Required().
		Field("tags", g.ArrayOf[string](g.String().Min(1))).
		MustBuild()

	_, err := s.Parse(context.Background(), map[string]any{
		"address": map[string]any{"city": 1},
		"tags":    []any{"a", ""},
	})
	if got, want := paths(t, err), []string{"invalid_type /address/city", "too_short /tags/1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}
}
