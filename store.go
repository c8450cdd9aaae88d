package goserdes

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"
)

// partition is the sorted, deduplicating collection of one kind's records.
type partition struct {
	kind Descriptor
	tree *btree.BTreeG[*Record]
}

const partitionDegree = 16

func newPartition(kind Descriptor) *partition {
	return &partition{
		kind: kind,
		tree: btree.NewG(partitionDegree, func(a, b *Record) bool { return a.key.Compare(b.key) < 0 }),
	}
}

func (p *partition) records() []*Record {
	out := make([]*Record, 0, p.tree.Len())
	p.tree.Ascend(func(r *Record) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Store holds records partitioned by kind name, each partition ordered by
// identity key. The partitions are only reachable through Store methods.
// A Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	parts map[string]*partition
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{parts: map[string]*partition{}}
}

// Save inserts rec into its kind's partition. When a record with the same
// identity already exists, Save fails with ErrDuplicate if the kind opted in
// and otherwise keeps the existing record and returns it.
func (s *Store) Save(rec *Record) (*Record, error) {
	if rec == nil {
		return nil, errors.New("goserdes: nil record")
	}
	name := rec.kind.Name()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parts[name]
	if !ok {
		p = newPartition(rec.kind)
		s.parts[name] = p
	}
	if prev, found := p.tree.Get(rec); found {
		if rec.kind.ErrOnDuplicate() {
			return nil, fmt.Errorf("%w: %s duplicates not allowed; another %s has fields %v associated with values %v",
				ErrDuplicate, name, name, rec.kind.KeyFields(), rec.key)
		}
		return prev, nil
	}
	p.tree.ReplaceOrInsert(rec)
	return rec, nil
}

// Find returns the record of kind with identity key.
func (s *Store) Find(kind string, key Key) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[kind]
	if !ok {
		return nil, false
	}
	return p.tree.Get(&Record{key: key})
}

// Filter returns, in identity order, the records of kind matching every field
// of q. An empty query matches everything.
func (s *Store) Filter(kind string, q Query) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[kind]
	if !ok {
		return nil
	}
	var out []*Record
	p.tree.Ascend(func(r *Record) bool {
		if q.Matches(r) {
			out = append(out, r)
		}
		return true
	})
	return out
}

// Get returns the only record of kind matching q. It fails with ErrNotFound
// when nothing matches and ErrAmbiguous when several records do.
func (s *Store) Get(kind string, q Query) (*Record, error) {
	found := s.Filter(kind, q)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: no %s matching %v", ErrNotFound, kind, q)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %d %s records match %v", ErrAmbiguous, len(found), kind, q)
	}
}

// Where returns the records of kind for which expression evaluates to true.
// See CompileWhere for the expression language.
func (s *Store) Where(kind, expression string) ([]*Record, error) {
	pred, err := CompileWhere(expression)
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, r := range s.All(kind) {
		ok, err := pred.Match(r)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, r.key, err)
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// All returns every record of kind in identity order.
func (s *Store) All(kind string) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[kind]
	if !ok {
		return nil
	}
	return p.records()
}

// Len returns the number of records of kind.
func (s *Store) Len(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.parts[kind]; ok {
		return p.tree.Len()
	}
	return 0
}

// Kinds returns the names of every non-empty partition, sorted.
func (s *Store) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.parts))
	for name, p := range s.parts {
		if p.tree.Len() > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AsMapping returns kind name -> list of record field mappings for every
// partition, ready to hand to a dumper.
func (s *Store) AsMapping() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.parts))
	for name, p := range s.parts {
		if p.tree.Len() == 0 {
			continue
		}
		out[name] = recordsToList(p.records())
	}
	return out
}

// Reset drops every record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts = map[string]*partition{}
}

func recordsToList(recs []*Record) []any {
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r.Fields()
	}
	return out
}
