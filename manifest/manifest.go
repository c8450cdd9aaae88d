// Package manifest declares record kinds in YAML so documents can be loaded
// without Go code for every kind.
//
//	kinds:
//	  - name: ProductModel
//	    directive: products
//	    key: [prod_id]
//	    errOnDuplicate: true
//	    fields:
//	      prod_id: {type: string, required: true}
//	      price: {type: number, min: 0}
//
// A stream may hold several YAML documents; their kinds are concatenated.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/dsl"
)

// ErrInvalid reports a manifest that cannot be compiled into kinds.
var ErrInvalid = errors.New("manifest: invalid declaration")

// Manifest is a parsed kinds file.
type Manifest struct {
	Kinds []KindSpec `yaml:"kinds"`
}

// KindSpec declares one kind.
type KindSpec struct {
	Name           string   `yaml:"name"`
	Directive      string   `yaml:"directive"`
	Key            []string `yaml:"key"`
	ErrOnDuplicate bool     `yaml:"errOnDuplicate"`
	Abstract       bool     `yaml:"abstract"`
	Renderable     bool     `yaml:"renderable"`
	Template       string   `yaml:"template"`
	// Extends names an earlier kind whose fields and key are inherited.
	Extends string `yaml:"extends"`
	// Unknown is the unknown-key policy: strict (default), strip or
	// passthrough.
	Unknown     string               `yaml:"unknown"`
	Passthrough string               `yaml:"passthroughTarget"`
	Fields      map[string]FieldSpec `yaml:"fields"`
}

// FieldSpec declares one field.
type FieldSpec struct {
	Type      string               `yaml:"type"`
	Required  bool                 `yaml:"required"`
	Nullable  bool                 `yaml:"nullable"`
	Default   any                  `yaml:"default"`
	Coerce    bool                 `yaml:"coerce"`
	Min       *float64             `yaml:"min"`
	Max       *float64             `yaml:"max"`
	MinLength *int                 `yaml:"minLength"`
	MaxLength *int                 `yaml:"maxLength"`
	Pattern   string               `yaml:"pattern"`
	Format    string               `yaml:"format"`
	Enum      []string             `yaml:"enum"`
	Items     *FieldSpec           `yaml:"items"`
	MinItems  *int                 `yaml:"minItems"`
	MaxItems  *int                 `yaml:"maxItems"`
	Fields    map[string]FieldSpec `yaml:"fields"`
	Unknown   string               `yaml:"unknown"`
}

// Load parses every YAML document in r. Unknown manifest keys are errors.
func Load(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	out := &Manifest{}
	for {
		var doc Manifest
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("manifest: %w", err)
		}
		out.Kinds = append(out.Kinds, doc.Kinds...)
	}
	return out, nil
}

// LoadFile parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Compile compiles the declarations into kinds over map[string]any values, in
// declaration order.
func (m *Manifest) Compile() ([]goserdes.Descriptor, error) {
	byName := make(map[string]KindSpec, len(m.Kinds))
	out := make([]goserdes.Descriptor, 0, len(m.Kinds))
	for _, ks := range m.Kinds {
		if ks.Name == "" {
			return nil, fmt.Errorf("%w: kind without name", ErrInvalid)
		}
		if _, dup := byName[ks.Name]; dup {
			return nil, fmt.Errorf("%w: kind %s declared twice", ErrInvalid, ks.Name)
		}
		if ks.Extends != "" {
			base, ok := byName[ks.Extends]
			if !ok {
				return nil, fmt.Errorf("%w: %s extends undeclared kind %s", ErrInvalid, ks.Name, ks.Extends)
			}
			ks = inherit(base, ks)
		}
		byName[ks.Name] = ks
		k, err := compileKind(ks)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, ks.Name, err)
		}
		out = append(out, k)
	}
	return out, nil
}

// Register compiles the manifest and registers every kind in c.
func (m *Manifest) Register(c *goserdes.Catalog) error {
	kinds, err := m.Compile()
	if err != nil {
		return err
	}
	return c.Register(kinds...)
}

// inherit merges base into ks. Fields declared by ks win. Key, unknown
// policy and passthrough target come from base when ks leaves them empty.
// Directive, duplicate policy and flags are never inherited.
func inherit(base, ks KindSpec) KindSpec {
	fields := make(map[string]FieldSpec, len(base.Fields)+len(ks.Fields))
	for k, f := range base.Fields {
		fields[k] = f
	}
	for k, f := range ks.Fields {
		fields[k] = f
	}
	ks.Fields = fields
	if len(ks.Key) == 0 {
		ks.Key = base.Key
	}
	if ks.Unknown == "" {
		ks.Unknown = base.Unknown
	}
	if ks.Passthrough == "" {
		ks.Passthrough = base.Passthrough
	}
	return ks
}

func compileKind(ks KindSpec) (goserdes.Descriptor, error) {
	var opts []goserdes.KindOption
	if len(ks.Key) > 0 {
		opts = append(opts, goserdes.WithKey(ks.Key...))
	}
	if ks.Directive != "" {
		opts = append(opts, goserdes.WithDirective(ks.Directive))
	}
	if ks.ErrOnDuplicate {
		opts = append(opts, goserdes.ErrOnDuplicate())
	}
	if ks.Abstract {
		return goserdes.NewKind[map[string]any](ks.Name, nil, append(opts, goserdes.Abstract())...), nil
	}
	switch {
	case ks.Template != "":
		opts = append(opts, goserdes.WithTemplate(ks.Template))
	case ks.Renderable:
		opts = append(opts, goserdes.Renderable())
	}
	schema, err := objectSchema(ks.Fields, ks.Unknown, ks.Passthrough)
	if err != nil {
		return nil, err
	}
	return goserdes.NewKind(ks.Name, schema, opts...), nil
}

func objectSchema(fields map[string]FieldSpec, unknown, target string) (goserdes.Schema[map[string]any], error) {
	b := dsl.Object()
	switch unknown {
	case "", "strict":
	case "strip":
		b.UnknownStrip()
	case "passthrough":
		if target == "" {
			target = "extra"
		}
		b.UnknownPassthrough(target)
	default:
		return nil, fmt.Errorf("unknown policy %q", unknown)
	}
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		f := fields[n]
		ad, err := adapterFor(f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", n, err)
		}
		step := b.Field(n, ad)
		if f.Default != nil {
			step.Default(f.Default)
		}
		if f.Required {
			step.Required()
		}
	}
	return b.Build()
}

// adapterFor maps a field declaration onto the dsl builders.
func adapterFor(f FieldSpec) (dsl.AnyAdapter, error) {
	ad, err := baseAdapter(f)
	if err != nil {
		return dsl.AnyAdapter{}, err
	}
	if f.Nullable {
		ad = ad.Nullable()
	}
	return ad, nil
}

func baseAdapter(f FieldSpec) (dsl.AnyAdapter, error) {
	switch f.Type {
	case "string":
		if f.Format == "date-time" {
			return dsl.TimeOf(), nil
		}
		s := dsl.String()
		if f.MinLength != nil {
			s.Min(*f.MinLength)
		}
		if f.MaxLength != nil {
			s.Max(*f.MaxLength)
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				return dsl.AnyAdapter{}, fmt.Errorf("pattern: %w", err)
			}
			s.Pattern(f.Pattern)
		}
		switch f.Format {
		case "":
		case "email":
			s.Email()
		default:
			return dsl.AnyAdapter{}, fmt.Errorf("unsupported string format %q", f.Format)
		}
		if len(f.Enum) > 0 {
			s.OneOf(f.Enum...)
		}
		return dsl.SchemaOf[string](s), nil
	case "integer":
		s := dsl.Int()
		if f.Min != nil {
			s.Min(int64(*f.Min))
		}
		if f.Max != nil {
			s.Max(int64(*f.Max))
		}
		if f.Coerce {
			s.CoerceFromString()
		}
		return dsl.SchemaOf[int64](s), nil
	case "number":
		s := dsl.Float()
		if f.Min != nil {
			s.Min(*f.Min)
		}
		if f.Max != nil {
			s.Max(*f.Max)
		}
		if f.Coerce {
			s.CoerceFromString()
		}
		return dsl.SchemaOf[float64](s), nil
	case "boolean":
		s := dsl.Bool()
		if f.Coerce {
			s.CoerceFromString()
		}
		return dsl.SchemaOf[bool](s), nil
	case "date-time":
		return dsl.TimeOf(), nil
	case "array":
		elem := dsl.Any()
		if f.Items != nil {
			var err error
			if elem, err = adapterFor(*f.Items); err != nil {
				return dsl.AnyAdapter{}, fmt.Errorf("items: %w", err)
			}
		}
		a := dsl.Array(elem.Schema())
		if f.MinItems != nil {
			a = a.Min(*f.MinItems)
		}
		if f.MaxItems != nil {
			a = a.Max(*f.MaxItems)
		}
		return dsl.ArrayOfSchema(a), nil
	case "object":
		if len(f.Fields) == 0 {
			return dsl.MapOf[any](nil), nil
		}
		s, err := objectSchema(f.Fields, f.Unknown, "")
		if err != nil {
			return dsl.AnyAdapter{}, err
		}
		return dsl.SchemaOf(s), nil
	case "any", "":
		return dsl.Any(), nil
	default:
		return dsl.AnyAdapter{}, fmt.Errorf("unsupported type %q", f.Type)
	}
}
