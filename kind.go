package goserdes

import (
	"context"
	"fmt"
	"slices"

	"github.com/reoring/goserdes/render"
)

// PrepareFunc rewrites loaded data before validation. It runs with access to
// the store so relationships can be resolved against records created earlier,
// for example replacing category names with the matching product records.
type PrepareFunc func(ctx context.Context, store *Store, data map[string]any) (map[string]any, error)

// Descriptor is the type-erased view of a Kind used by the catalog, the store
// and the engine.
type Descriptor interface {
	Name() string
	// Directive is the document keyword whose value holds records of this kind.
	Directive() string
	KeyFields() []string
	ErrOnDuplicate() bool
	IsAbstract() bool
	IsRenderable() bool
	TemplateName() string
	// DeclaresField reports whether documents of this kind carry name as one
	// of their own fields.
	DeclaresField(name string) bool
	// CreateRecord validates data, builds a record and saves it into store.
	// The returned record is the one held by the store, which is an earlier
	// record when data was a silently ignored duplicate.
	CreateRecord(ctx context.Context, store *Store, data map[string]any) (*Record, error)
}

// KindOption configures a Kind.
type KindOption func(*kindSpec)

type kindSpec struct {
	directive      string
	key            []string
	errOnDuplicate bool
	abstract       bool
	renderable     bool
	template       string
	prepare        PrepareFunc
}

// WithKey declares the identity fields (dotted paths allowed).
func WithKey(fields ...string) KindOption {
	return func(s *kindSpec) { s.key = append(s.key[:0:0], fields...) }
}

// WithDirective associates the kind with a document keyword.
func WithDirective(keyword string) KindOption {
	return func(s *kindSpec) { s.directive = keyword }
}

// ErrOnDuplicate makes Save fail with ErrDuplicate instead of keeping the
// first record silently.
func ErrOnDuplicate() KindOption {
	return func(s *kindSpec) { s.errOnDuplicate = true }
}

// Abstract marks a kind that only serves as a base and cannot build records.
func Abstract() KindOption {
	return func(s *kindSpec) { s.abstract = true }
}

// Renderable enables template rendering with a name derived from the kind name.
func Renderable() KindOption {
	return func(s *kindSpec) { s.renderable = true }
}

// WithTemplate enables template rendering with an explicit template name.
func WithTemplate(name string) KindOption {
	return func(s *kindSpec) {
		s.renderable = true
		s.template = name
	}
}

// WithPrepare installs a hook run on every mapping before validation.
func WithPrepare(fn PrepareFunc) KindOption {
	return func(s *kindSpec) { s.prepare = fn }
}

// Kind declares a record type: its schema, identity, directive and duplicate
// policy.
type Kind[T any] struct {
	name   string
	schema Schema[T]
	spec   kindSpec
}

var _ Descriptor = (*Kind[struct{}])(nil)

// NewKind declares a record kind named name whose values are produced by
// schema. A nil schema yields an abstract kind.
func NewKind[T any](name string, schema Schema[T], opts ...KindOption) *Kind[T] {
	k := &Kind[T]{name: name, schema: schema}
	for _, o := range opts {
		o(&k.spec)
	}
	if schema == nil {
		k.spec.abstract = true
	}
	return k
}

func (k *Kind[T]) Name() string         { return k.name }
func (k *Kind[T]) Directive() string    { return k.spec.directive }
func (k *Kind[T]) KeyFields() []string  { return slices.Clone(k.spec.key) }
func (k *Kind[T]) ErrOnDuplicate() bool { return k.spec.errOnDuplicate }
func (k *Kind[T]) IsAbstract() bool     { return k.spec.abstract }
func (k *Kind[T]) IsRenderable() bool   { return k.spec.renderable }
func (k *Kind[T]) Schema() Schema[T]    { return k.schema }

// DeclaresField asks the schema when it implements FieldDeclarer. Other
// schemas see every key, so the answer is true for them.
func (k *Kind[T]) DeclaresField(name string) bool {
	if fd, ok := k.schema.(FieldDeclarer); ok {
		return fd.DeclaresField(name)
	}
	return k.schema != nil
}

// TemplateName returns the explicit template name, or the name derived from
// the kind name (ProductModel -> product). It is empty for non-renderable kinds.
func (k *Kind[T]) TemplateName() string {
	if !k.spec.renderable {
		return ""
	}
	if k.spec.template != "" {
		return k.spec.template
	}
	return render.TemplateName(k.name)
}

// CreateRecord implements Descriptor.
func (k *Kind[T]) CreateRecord(ctx context.Context, store *Store, data map[string]any) (*Record, error) {
	if k.spec.abstract {
		return nil, fmt.Errorf("%w: %s", ErrAbstractKind, k.name)
	}
	if k.spec.prepare != nil {
		prepared, err := k.spec.prepare(ctx, store, data)
		if err != nil {
			return nil, fmt.Errorf("%s: prepare: %w", k.name, err)
		}
		data = prepared
	}
	v, err := k.schema.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.name, err)
	}
	rec, err := NewRecord(k, v)
	if err != nil {
		return nil, err
	}
	return store.Save(rec)
}

// Create builds, validates and registers one record and returns its value.
func (k *Kind[T]) Create(ctx context.Context, store *Store, data map[string]any) (T, error) {
	rec, err := k.CreateRecord(ctx, store, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return k.typed(rec)
}

// CreateFromLoaded builds records from loader output: one record for a
// mapping, one per element for a list.
func (k *Kind[T]) CreateFromLoaded(ctx context.Context, store *Store, data any) ([]T, error) {
	recs, err := CreateFromLoaded(ctx, k, store, data)
	if err != nil {
		return nil, err
	}
	return k.typedAll(recs)
}

// Filter returns the records of this kind matching every query field. It
// fails with ErrKindMismatch when the store holds records of another type
// under this kind's name.
func (k *Kind[T]) Filter(store *Store, q Query) ([]T, error) {
	return k.typedAll(store.Filter(k.name, q))
}

// Get returns the single record matching q.
func (k *Kind[T]) Get(store *Store, q Query) (T, error) {
	rec, err := store.Get(k.name, q)
	if err != nil {
		var zero T
		return zero, err
	}
	return k.typed(rec)
}

// All returns every record of this kind in identity order. Errors as Filter.
func (k *Kind[T]) All(store *Store) ([]T, error) {
	return k.typedAll(store.All(k.name))
}

// Where returns the records for which expression evaluates to true.
func (k *Kind[T]) Where(store *Store, expression string) ([]T, error) {
	recs, err := store.Where(k.name, expression)
	if err != nil {
		return nil, err
	}
	return k.typedAll(recs)
}

func (k *Kind[T]) typed(rec *Record) (T, error) {
	v, ok := As[T](rec)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s holds %T", ErrKindMismatch, rec, rec.Value())
	}
	return v, nil
}

func (k *Kind[T]) typedAll(recs []*Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := k.typed(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// CreateFromLoaded builds records of kind d from loader output: a mapping
// yields one record and a list yields one record per element. Element issues
// are reported with their list index.
func CreateFromLoaded(ctx context.Context, d Descriptor, store *Store, data any) ([]*Record, error) {
	switch x := data.(type) {
	case map[string]any:
		rec, err := d.CreateRecord(ctx, store, x)
		if err != nil {
			return nil, err
		}
		return []*Record{rec}, nil
	case []any:
		out := make([]*Record, 0, len(x))
		for i, el := range x {
			m, ok := el.(map[string]any)
			if !ok {
				return out, fmt.Errorf("%w: %s element %d is %T", ErrInvalidData, d.Name(), i, el)
			}
			rec, err := d.CreateRecord(ctx, store, m)
			if err != nil {
				if iss, ok := AsIssues(err); ok {
					return out, fmt.Errorf("%s: %w", d.Name(), iss.Rebase(fmt.Sprintf("/%d", i)))
				}
				return out, err
			}
			out = append(out, rec)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s got %T", ErrInvalidData, d.Name(), data)
	}
}
