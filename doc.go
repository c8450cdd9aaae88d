// Package goserdes turns documents written in JSON, YAML, TOML or INI into
// validated records, and back again.
//
// A Kind couples a Schema with record metadata: the fields that form the
// record key, the directive keyword its documents are filed under and the
// duplicate policy. Kinds are registered in a Catalog; records are kept per
// kind in a Store, ordered by key. An Engine ties these together with the
// format registry and the template renderer:
//
//	c := goserdes.NewCatalog()
//	c.MustRegister(products, customers)
//	eng := goserdes.New(goserdes.WithCatalog(c))
//	sum, err := eng.GenerateFromFile(ctx, "shop.yaml")
//	bob, err := customers.Get(eng.Store(), goserdes.Query{"name": "Bob"})
//
// Validation failures are reported as Issues, each carrying a JSON Pointer
// into the source document. Schemas are usually built with package dsl or
// declared in YAML through package manifest.
package goserdes
