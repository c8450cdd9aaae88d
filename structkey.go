package goserdes

import (
	"reflect"
	"strings"
)

// ResolveStructKey returns the document key of a struct field. The first of
// these wins: the name= option of a goserdes tag, the name part of a json tag,
// the Go field name. "-" means the field is not part of the document.
//
//	Email string `goserdes:"name=mail"`  // "mail"
//	Email string `json:"email,omitempty"` // "email"
//	Email string `json:",omitempty"`      // "Email"
func ResolveStructKey(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("goserdes"); ok {
		for opt := range strings.SplitSeq(tag, ",") {
			if name, ok := strings.CutPrefix(strings.TrimSpace(opt), "name="); ok {
				return name
			}
		}
	}
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return sf.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}

// StructKeys maps the document keys of t's exported fields to their field
// indexes. Fields resolving to "-" are left out.
func StructKeys(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if name := ResolveStructKey(sf); name != "" && name != "-" {
			out[name] = i
		}
	}
	return out
}
