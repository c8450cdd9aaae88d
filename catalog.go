package goserdes

import (
	"fmt"
	"sync"
)

// Catalog is the registration table of record kinds. Kinds are listed in
// registration order, which is also the order directives are processed in.
type Catalog struct {
	mu    sync.RWMutex
	kinds map[string]Descriptor
	order []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{kinds: map[string]Descriptor{}}
}

// Default is the process-wide catalog used by Register and by engines built
// without WithCatalog.
var Default = NewCatalog()

// Register adds kinds to the Default catalog.
func Register(kinds ...Descriptor) error { return Default.Register(kinds...) }

// MustRegister is like Register but panics on error.
func MustRegister(kinds ...Descriptor) { Default.MustRegister(kinds...) }

// Register adds kinds to c. A kind name may be registered once, a directive
// may be claimed by one kind only, and concrete kinds must declare identity
// fields. Nothing is registered when any kind is rejected.
func (c *Catalog) Register(kinds ...Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	claimed := map[string]string{}
	for _, name := range c.order {
		if d := c.kinds[name].Directive(); d != "" {
			claimed[d] = name
		}
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		name := k.Name()
		if _, exists := c.kinds[name]; exists || seen[name] {
			return fmt.Errorf("%w: %s", ErrKindExists, name)
		}
		seen[name] = true
		if !k.IsAbstract() && len(k.KeyFields()) == 0 {
			return fmt.Errorf("%w: %s declares no key fields", ErrMissingKey, name)
		}
		if d := k.Directive(); d != "" {
			if owner, taken := claimed[d]; taken {
				return fmt.Errorf("%w: %q is used by %s and %s", ErrDirectiveConflict, d, owner, name)
			}
			claimed[d] = name
		}
	}
	for _, k := range kinds {
		c.kinds[k.Name()] = k
		c.order = append(c.order, k.Name())
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(kinds ...Descriptor) {
	if err := c.Register(kinds...); err != nil {
		panic(err)
	}
}

// Lookup returns the kind registered under name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.kinds[name]
	return d, ok
}

// Kinds returns every registered kind in registration order.
func (c *Catalog) Kinds() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Descriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.kinds[name])
	}
	return out
}

// Len returns the number of registered kinds.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Directives resolves the current keyword table. The returned map is a
// snapshot: kinds registered afterwards appear only in later snapshots.
func (c *Catalog) Directives() DirectiveMap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := DirectiveMap{byKeyword: map[string]Descriptor{}}
	for _, name := range c.order {
		k := c.kinds[name]
		d := k.Directive()
		if d == "" || k.IsAbstract() {
			continue
		}
		m.byKeyword[d] = k
		m.keywords = append(m.keywords, d)
	}
	return m
}
