package dsl

import (
	"context"
	"fmt"

	goserdes "github.com/reoring/goserdes"
)

type objectBuilder struct {
	fields        map[string]AnyAdapter
	required      map[string]struct{}
	unknownPolicy goserdes.UnknownPolicy
	unknownTarget string
	refines       []objRefine
}

type objRefine struct {
	name string
	fn   func(context.Context, map[string]any) error
}

type fieldStep struct {
	b    *objectBuilder
	name string
}

// Object creates a new object builder. Unknown keys are rejected unless
// UnknownStrip or UnknownPassthrough is chosen.
func Object() *objectBuilder {
	return &objectBuilder{
		fields:        map[string]AnyAdapter{},
		required:      map[string]struct{}{},
		unknownPolicy: goserdes.UnknownStrict,
	}
}

// Field registers a field with its adapter. Registering a name twice replaces
// the adapter.
func (b *objectBuilder) Field(name string, ad AnyAdapter) *fieldStep {
	b.fields[name] = ad
	return &fieldStep{b: b, name: name}
}

// Required marks the field as required and returns the builder.
func (f *fieldStep) Required() *objectBuilder {
	f.b.required[f.name] = struct{}{}
	return f.b
}

// Optional marks the field as optional (default) and returns the builder.
func (f *fieldStep) Optional() *objectBuilder {
	delete(f.b.required, f.name)
	return f.b
}

// Default sets the value used when the field is absent. It is parsed through
// the field's own schema, so an invalid default surfaces as an issue.
func (f *fieldStep) Default(v any) *objectBuilder {
	ad := f.b.fields[f.name]
	parse := ad.parse
	ad.applyDefault = func(ctx context.Context) (any, error) {
		if parse == nil {
			return v, nil
		}
		return parse(ctx, v)
	}
	f.b.fields[f.name] = ad
	return f.b
}

func (f *fieldStep) Field(name string, ad AnyAdapter) *fieldStep { return f.b.Field(name, ad) }
func (f *fieldStep) UnknownStrict() *objectBuilder               { return f.b.UnknownStrict() }
func (f *fieldStep) UnknownStrip() *objectBuilder                { return f.b.UnknownStrip() }
func (f *fieldStep) UnknownPassthrough(target string) *objectBuilder {
	return f.b.UnknownPassthrough(target)
}
func (f *fieldStep) Refine(name string, fn func(ctx context.Context, m map[string]any) error) *objectBuilder {
	return f.b.Refine(name, fn)
}
func (f *fieldStep) Require(names ...string) *objectBuilder          { return f.b.Require(names...) }
func (f *fieldStep) Build() (goserdes.Schema[map[string]any], error) { return f.b.Build() }
func (f *fieldStep) MustBuild() goserdes.Schema[map[string]any]      { return f.b.MustBuild() }

// Require marks several fields as required at once.
func (b *objectBuilder) Require(names ...string) *objectBuilder {
	for _, n := range names {
		b.required[n] = struct{}{}
	}
	return b
}

func (b *objectBuilder) UnknownStrict() *objectBuilder {
	b.unknownPolicy = goserdes.UnknownStrict
	b.unknownTarget = ""
	return b
}

func (b *objectBuilder) UnknownStrip() *objectBuilder {
	b.unknownPolicy = goserdes.UnknownStrip
	b.unknownTarget = ""
	return b
}

// UnknownPassthrough collects unknown keys into a map stored under target.
func (b *objectBuilder) UnknownPassthrough(target string) *objectBuilder {
	b.unknownPolicy = goserdes.UnknownPassthrough
	b.unknownTarget = target
	return b
}

// Refine adds a cross-field rule run after every field parsed. A plain error
// becomes a business_rule issue carrying name as hint; returned Issues are
// kept as they are.
func (b *objectBuilder) Refine(name string, fn func(ctx context.Context, m map[string]any) error) *objectBuilder {
	b.refines = append(b.refines, objRefine{name: name, fn: fn})
	return b
}

// Build validates the declaration and returns the object schema.
func (b *objectBuilder) Build() (goserdes.Schema[map[string]any], error) {
	for name := range b.required {
		if _, ok := b.fields[name]; !ok {
			return nil, fmt.Errorf("dsl: required field %q is not declared", name)
		}
	}
	if b.unknownPolicy == goserdes.UnknownPassthrough {
		if b.unknownTarget == "" {
			return nil, fmt.Errorf("dsl: passthrough target must not be empty")
		}
		if _, ok := b.fields[b.unknownTarget]; ok {
			return nil, fmt.Errorf("dsl: passthrough target %q collides with a declared field", b.unknownTarget)
		}
	}
	s := &objectSchema{
		fields:        make(map[string]AnyAdapter, len(b.fields)),
		required:      make(map[string]struct{}, len(b.required)),
		unknownPolicy: b.unknownPolicy,
		unknownTarget: b.unknownTarget,
		refines:       append([]objRefine(nil), b.refines...),
	}
	for k, v := range b.fields {
		s.fields[k] = v
	}
	for k := range b.required {
		s.required[k] = struct{}{}
	}
	s.knownKeys()
	return s, nil
}

// MustBuild is Build that panics on a malformed declaration.
func (b *objectBuilder) MustBuild() goserdes.Schema[map[string]any] {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
