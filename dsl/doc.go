// Package dsl builds record schemas for goserdes kinds.
//
// An object schema is declared field by field and either used as a mapping
// schema or bound to a struct:
//
//	customer := dsl.MustBind[Customer](dsl.Object().
//	    Field("email", dsl.SchemaOf[string](dsl.String().Email())).Required().
//	    Field("name", dsl.StringOf[string]()).Required().
//	    Field("age", dsl.IntOf[int]().Min(18).Max(100)).Required().
//	    Field("send_ads", dsl.BoolOf[bool]()).Default(false).
//	    Field("flagged_interests", dsl.OneToMany(product)).Required())
//
// Unknown keys are rejected unless UnknownStrip or UnknownPassthrough is set.
// Scalars are strict: "18" is not an integer and 1 is not a string unless a
// builder opts into CoerceFromString.
//
// Errors are goserdes.Issues with JSON Pointer paths relative to the parsed
// value (for example /flagged_interests/0/prod_id); callers embedding a
// schema rebase them with Issues.Rebase.
package dsl
