package goserdes

import "slices"

// DirectiveMap maps document keywords to the kinds that build records from
// them. The zero value resolves nothing.
type DirectiveMap struct {
	byKeyword map[string]Descriptor
	keywords  []string
}

// Resolve returns the kind bound to keyword.
func (m DirectiveMap) Resolve(keyword string) (Descriptor, bool) {
	d, ok := m.byKeyword[keyword]
	return d, ok
}

// Keywords returns the keywords in catalog registration order.
func (m DirectiveMap) Keywords() []string { return slices.Clone(m.keywords) }

func (m DirectiveMap) Len() int { return len(m.keywords) }
