package goserdes

import (
	"fmt"
	"strings"
)

// Record is a validated, immutable value registered in a Store. It carries the
// typed value produced by its kind's schema together with the plain form used
// for queries, identity and re-serialization.
type Record struct {
	kind   Descriptor
	value  any
	fields map[string]any
	key    Key
}

// NewRecord wraps a validated value of kind d. The identity tuple is read from
// the plain form of value.
func NewRecord(d Descriptor, value any) (*Record, error) {
	fields, ok := ToPlain(value).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s value %T is not an object", ErrInvalidData, d.Name(), value)
	}
	key := make(Key, 0, len(d.KeyFields()))
	for _, f := range d.KeyFields() {
		v, ok := lookupPath(fields, f)
		if !ok {
			return nil, fmt.Errorf("%w: %s record has no %q", ErrMissingKey, d.Name(), f)
		}
		key = append(key, v)
	}
	return &Record{kind: d, value: value, fields: fields, key: key}, nil
}

func (r *Record) Kind() Descriptor { return r.kind }

// Value returns the typed value; use As for a typed view.
func (r *Record) Value() any { return r.value }

// Key returns the identity tuple.
func (r *Record) Key() Key { return r.key }

// Fields returns a copy of the plain form.
func (r *Record) Fields() map[string]any { return clonePlain(r.fields).(map[string]any) }

// Lookup returns the plain value at a dotted path such as "address.city".
func (r *Record) Lookup(path string) (any, bool) { return lookupPath(r.fields, path) }

func (r *Record) String() string {
	return r.kind.Name() + r.key.String()
}

// As returns the typed value held by r.
func As[T any](r *Record) (T, bool) {
	if r == nil {
		var zero T
		return zero, false
	}
	v, ok := r.value.(T)
	return v, ok
}

func lookupPath(m map[string]any, path string) (any, bool) {
	if v, ok := m[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	child, ok := m[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return lookupPath(child, rest)
}
