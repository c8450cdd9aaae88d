package goserdes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/reoring/goserdes/format"
	"github.com/reoring/goserdes/internal/textdiff"
	"github.com/reoring/goserdes/render"
)

// Engine ties a catalog of kinds, a record store, the format registry and a
// template renderer together. It is the explicit context every load,
// generate, convert and render operation runs against.
type Engine struct {
	catalog  *Catalog
	store    *Store
	formats  *format.Registry
	renderer *render.Renderer
	logger   *slog.Logger

	mu sync.Mutex
	// single holds the top-level keywords last generated from one mapping
	// rather than a list.
	single map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog sets the kinds the engine resolves directives against.
func WithCatalog(c *Catalog) Option { return func(e *Engine) { e.catalog = c } }

// WithStore sets the store records are saved into.
func WithStore(s *Store) Option { return func(e *Engine) { e.store = s } }

// WithFormats sets the codec registry.
func WithFormats(r *format.Registry) Option { return func(e *Engine) { e.formats = r } }

// WithRenderer sets the template renderer.
func WithRenderer(r *render.Renderer) Option { return func(e *Engine) { e.renderer = r } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// DefaultTemplatesDir is where the default renderer looks for templates.
const DefaultTemplatesDir = "templates"

// New returns an Engine. Without options it uses the Default catalog, a new
// store, the Default format registry and templates from DefaultTemplatesDir.
func New(opts ...Option) *Engine {
	e := &Engine{
		catalog:  Default,
		store:    NewStore(),
		formats:  format.Default,
		renderer: render.NewDir(DefaultTemplatesDir),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		single:   map[string]bool{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Catalog() *Catalog          { return e.catalog }
func (e *Engine) Store() *Store              { return e.store }
func (e *Engine) Formats() *format.Registry  { return e.formats }
func (e *Engine) Renderer() *render.Renderer { return e.renderer }

// LoadFile parses the file at path into a plain mapping, choosing the loader
// from the file extension.
func (e *Engine) LoadFile(ctx context.Context, path string) (map[string]any, error) {
	doc, err := e.formats.LoadFile(path)
	if err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "document loaded", "path", path, "keys", len(doc))
	return doc, nil
}

// Load parses a document of the named format.
func (e *Engine) Load(ctx context.Context, r io.Reader, formatName string) (map[string]any, error) {
	doc, err := e.formats.Load(r, formatName)
	if err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "document loaded", "format", formatName, "keys", len(doc))
	return doc, nil
}

// KindSummary counts the records one generate call produced for a kind.
type KindSummary struct {
	Loaded int // mappings turned into records
	Added  int // records that were new to the store
}

// Summary reports what a generate call did, by kind name.
type Summary map[string]KindSummary

// Total returns the number of records added to the store.
func (s Summary) Total() int {
	n := 0
	for _, k := range s {
		n += k.Added
	}
	return n
}

// GenerateFromMapping builds records for every top-level keyword of doc that
// is a directive of a registered kind. Keywords are processed in catalog
// registration order. Elements of list values are scanned for nested
// directives first, so records they depend on exist before the outer records
// are created. A nested section the outer kind declares as a field is also
// handed to the outer kind; undeclared ones are dropped from the element.
// Other keywords are ignored.
func (e *Engine) GenerateFromMapping(ctx context.Context, doc map[string]any) (Summary, error) {
	dm := e.catalog.Directives()
	sum := Summary{}
	if err := e.generate(ctx, dm, doc, "", sum); err != nil {
		return sum, err
	}
	return sum, nil
}

func (e *Engine) generate(ctx context.Context, dm DirectiveMap, doc map[string]any, base string, sum Summary) error {
	if e.logger.Enabled(ctx, slog.LevelDebug) {
		for k := range doc {
			if _, ok := dm.Resolve(k); !ok {
				e.logger.DebugContext(ctx, "keyword ignored", "keyword", k, "at", base)
			}
		}
	}
	for _, kw := range dm.Keywords() {
		val, ok := doc[kw]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		kind, _ := dm.Resolve(kw)
		at := base + "/" + kw
		if base == "" {
			_, isMap := val.(map[string]any)
			e.mu.Lock()
			e.single[kw] = isMap
			e.mu.Unlock()
		}
		if list, ok := val.([]any); ok {
			cleaned := make([]any, len(list))
			for i, el := range list {
				cleaned[i] = el
				m, ok := el.(map[string]any)
				if !ok {
					continue
				}
				if err := e.generate(ctx, dm, m, fmt.Sprintf("%s/%d", at, i), sum); err != nil {
					return err
				}
				cleaned[i] = withoutDirectives(dm, kind, m)
			}
			val = cleaned
		}
		before := e.store.Len(kind.Name())
		recs, err := CreateFromLoaded(ctx, kind, e.store, val)
		if err != nil {
			if iss, ok := AsIssues(err); ok {
				return fmt.Errorf("%s: %w", kind.Name(), iss.Rebase(at))
			}
			return fmt.Errorf("%s: %w", at, err)
		}
		added := e.store.Len(kind.Name()) - before
		ks := sum[kind.Name()]
		ks.Loaded += len(recs)
		ks.Added += added
		sum[kind.Name()] = ks
		e.logger.DebugContext(ctx, "directive resolved",
			"keyword", kw, "kind", kind.Name(), "at", at, "loaded", len(recs), "added", added)
	}
	return nil
}

// withoutDirectives returns m minus the nested directive sections already
// turned into records that outer does not declare as fields, or m itself when
// there are none. A declared section stays so outer can parse it as well.
func withoutDirectives(dm DirectiveMap, outer Descriptor, m map[string]any) map[string]any {
	var out map[string]any
	for k := range m {
		if _, ok := dm.Resolve(k); !ok || outer.DeclaresField(k) {
			continue
		}
		if out == nil {
			out = maps.Clone(m)
		}
		delete(out, k)
	}
	if out == nil {
		return m
	}
	return out
}

// GenerateFromFile loads path, applies patches to the loaded mapping and
// generates records from it.
func (e *Engine) GenerateFromFile(ctx context.Context, path string, patches ...Patch) (Summary, error) {
	doc, err := e.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc, err = ApplyPatches(doc, patches...); err != nil {
		return nil, err
	}
	sum, err := e.GenerateFromMapping(ctx, doc)
	if err != nil {
		return sum, fmt.Errorf("%s: %w", path, err)
	}
	e.logger.InfoContext(ctx, "records generated", "path", path, "added", sum.Total())
	return sum, nil
}

// ConvertOpt controls ConvertFile.
type ConvertOpt struct {
	// DstFile is the output path. Empty means the source path with the
	// destination format as extension.
	DstFile string
	// DryRun returns the converted text without writing any file.
	DryRun bool
}

// ConvertFile loads src as a plain mapping, without building records, and
// serializes it to dstFormat. The converted text is returned and, unless
// opt.DryRun is set, written to the destination file. Documents the
// destination format cannot represent fail with *format.DumperError and
// leave no file behind.
func (e *Engine) ConvertFile(ctx context.Context, src, dstFormat string, opt ConvertOpt) (string, error) {
	doc, err := e.LoadFile(ctx, src)
	if err != nil {
		return "", err
	}
	if _, err := e.formats.Dumper(dstFormat); err != nil {
		return "", err
	}
	dst := ""
	if !opt.DryRun {
		dst = opt.DstFile
		if dst == "" {
			dst = ConvertDestination(src, dstFormat)
		}
	}
	text, err := e.formats.DumpFile(dstFormat, doc, dst)
	if err != nil {
		return "", err
	}
	if dst != "" {
		e.logger.InfoContext(ctx, "file converted", "src", src, "dst", dst, "format", dstFormat)
	}
	return text, nil
}

// ConvertDestination is the default output path of ConvertFile: src with its
// extension replaced by the format name.
func ConvertDestination(src, dstFormat string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "." + strings.TrimPrefix(strings.ToLower(dstFormat), ".")
}

// Dump serializes the whole store (kind name -> records) in the named format.
func (e *Engine) Dump(formatName string) (string, error) {
	return e.formats.DumpString(formatName, e.store.AsMapping())
}

// Document returns the store contents keyed by directive keyword, the shape
// GenerateFromMapping consumes. Kinds without a directive are left out. A
// keyword last generated from a single mapping is written back as a mapping
// while its kind holds exactly one record, which keeps INI sections and YAML
// objects in their loaded shape.
func (e *Engine) Document() map[string]any {
	dm := e.catalog.Directives()
	e.mu.Lock()
	single := maps.Clone(e.single)
	e.mu.Unlock()
	out := map[string]any{}
	for _, kw := range dm.Keywords() {
		kind, _ := dm.Resolve(kw)
		recs := e.store.All(kind.Name())
		switch {
		case len(recs) == 0:
		case len(recs) == 1 && single[kw]:
			out[kw] = recs[0].Fields()
		default:
			out[kw] = recordsToList(recs)
		}
	}
	return out
}

// Render renders rec with its kind's template. Keys of extra are added to
// the record fields and take precedence over them.
func (e *Engine) Render(ctx context.Context, rec *Record, extra map[string]any) (string, error) {
	kind := rec.Kind()
	if !kind.IsRenderable() {
		return "", fmt.Errorf("%w: %s", ErrNotRenderable, kind.Name())
	}
	if e.renderer == nil {
		return "", fmt.Errorf("%w: %s: no renderer configured", ErrNotRenderable, kind.Name())
	}
	data := rec.Fields()
	for k, v := range extra {
		data[k] = v
	}
	out, err := e.renderer.Render(kind.TemplateName(), data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", rec, err)
	}
	e.logger.DebugContext(ctx, "record rendered", "record", rec.String(), "template", kind.TemplateName())
	return out, nil
}

// RoundTripReport is the outcome of RoundTrip.
type RoundTripReport struct {
	Format string
	Equal  bool
	// Diff is a line diff between the canonical JSON forms of the original
	// directive sections and the re-serialized ones; empty when Equal.
	Diff string
}

// RoundTrip generates records from path, serializes Document in the file's
// own format, reloads that text and compares it with the directive sections
// of the original. Lists are compared as sets since the store orders records
// by identity.
func (e *Engine) RoundTrip(ctx context.Context, path string) (RoundTripReport, error) {
	name, err := e.formats.FormatOf(path)
	if err != nil {
		return RoundTripReport{}, err
	}
	doc, err := e.LoadFile(ctx, path)
	if err != nil {
		return RoundTripReport{}, err
	}
	if _, err := e.GenerateFromMapping(ctx, doc); err != nil {
		return RoundTripReport{}, err
	}
	text, err := e.formats.DumpString(name, e.Document())
	if err != nil {
		return RoundTripReport{}, err
	}
	reloaded, err := e.formats.Load(strings.NewReader(text), name)
	if err != nil {
		return RoundTripReport{}, err
	}

	dm := e.catalog.Directives()
	want := map[string]any{}
	for _, kw := range dm.Keywords() {
		if v, ok := doc[kw]; ok {
			want[kw] = v
		}
	}
	a, err := canonicalJSON(want)
	if err != nil {
		return RoundTripReport{}, err
	}
	b, err := canonicalJSON(reloaded)
	if err != nil {
		return RoundTripReport{}, err
	}
	rep := RoundTripReport{Format: name, Equal: a == b}
	if !rep.Equal {
		rep.Diff = textdiff.Lines(a, b)
	}
	return rep, nil
}

// canonicalJSON renders v with sorted keys and every list sorted by the
// JSON text of its elements.
func canonicalJSON(v any) (string, error) {
	c, err := canonicalize(v)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func canonicalize(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			c, err := canonicalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		type item struct {
			key string
			val any
		}
		items := make([]item, len(x))
		for i, e := range x {
			c, err := canonicalize(e)
			if err != nil {
				return nil, err
			}
			b, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			items[i] = item{key: string(b), val: c}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].key < items[j].key })
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = it.val
		}
		return out, nil
	default:
		return v, nil
	}
}
