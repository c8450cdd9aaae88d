// Package format converts text documents to and from plain mappings.
//
// A plain mapping is map[string]any whose values are nil, bool, int64,
// float64, string, time.Time, []any or nested plain mappings. Every codec
// normalizes its decoder output into that shape so documents loaded from
// different formats compare equal.
//
// Codecs register into a Registry under a name and one or more file
// extensions. The built-in codecs (json, yaml/yml, toml, ini) register into
// Default from their init functions.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrLoaderNotFound is returned when no codec can load a format.
	ErrLoaderNotFound = errors.New("format: loader not found")
	// ErrDumperNotFound is returned when no codec can dump a format.
	ErrDumperNotFound = errors.New("format: dumper not found")
	// ErrUnsupportedFormat is returned when a file extension maps to no codec.
	ErrUnsupportedFormat = errors.New("format: unsupported file format")
	// ErrNotMapping is returned when a document's root is not a mapping.
	ErrNotMapping = errors.New("format: document root is not a mapping")
)

// DumperError reports a document the destination format cannot represent, or
// any other failure while dumping.
type DumperError struct {
	Format string
	Err    error
}

func (e *DumperError) Error() string { return fmt.Sprintf("format: dump %s: %v", e.Format, e.Err) }
func (e *DumperError) Unwrap() error { return e.Err }

// LoadFunc parses a document into a plain mapping.
type LoadFunc func(r io.Reader) (map[string]any, error)

// DumpFunc serializes a plain mapping.
type DumpFunc func(w io.Writer, data map[string]any) error

// Codec binds a format name and its file extensions to a loader and a dumper.
// Either function may be nil for load-only or dump-only formats.
type Codec struct {
	Name       string
	Extensions []string // without the leading dot; Name is always accepted
	Load       LoadFunc
	Dump       DumpFunc
}

// Registry resolves format names and file extensions to codecs.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	alias  map[string]string
}

// NewRegistry returns a registry holding codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: map[string]Codec{}, alias: map[string]string{}}
	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Default holds the built-in codecs.
var Default = NewRegistry()

// Register adds or replaces a codec. Replacing a built-in codec is how
// callers plug in their own loader or dumper for a format.
func (r *Registry) Register(c Codec) error {
	name := normalizeName(c.Name)
	if name == "" {
		return errors.New("format: codec name is empty")
	}
	if c.Load == nil && c.Dump == nil {
		return fmt.Errorf("format: codec %s has neither loader nor dumper", name)
	}
	c.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[name] = c
	r.alias[name] = name
	for _, ext := range c.Extensions {
		r.alias[normalizeName(ext)] = name
	}
	return nil
}

// Lookup returns the codec registered under a name or extension.
func (r *Registry) Lookup(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.alias[normalizeName(name)]
	if !ok {
		return Codec{}, false
	}
	c, ok := r.codecs[canonical]
	return c, ok
}

// Loader returns the load function for a format name or extension.
func (r *Registry) Loader(name string) (LoadFunc, error) {
	c, ok := r.Lookup(name)
	if !ok || c.Load == nil {
		return nil, fmt.Errorf("%w: %q", ErrLoaderNotFound, name)
	}
	return c.Load, nil
}

// Dumper returns the dump function for a format name or extension.
func (r *Registry) Dumper(name string) (DumpFunc, error) {
	c, ok := r.Lookup(name)
	if !ok || c.Dump == nil {
		return nil, fmt.Errorf("%w: %q", ErrDumperNotFound, name)
	}
	return c.Dump, nil
}

// FormatOf infers the format of path from its extension. The extension is
// returned as written (yml stays yml) so it can name an output file.
func (r *Registry) FormatOf(path string) (string, error) {
	ext := normalizeName(filepath.Ext(path))
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	if _, ok := r.Lookup(ext); !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(r.Formats(), ", "))
	}
	return ext, nil
}

// Formats lists every accepted name and extension, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.alias))
	for a := range r.alias {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Codecs lists the registered codecs sorted by name.
func (r *Registry) Codecs() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Codec, 0, len(r.codecs))
	for _, c := range r.codecs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load parses a document of the given format.
func (r *Registry) Load(rd io.Reader, name string) (map[string]any, error) {
	load, err := r.Loader(name)
	if err != nil {
		return nil, err
	}
	return load(rd)
}

// LoadFile parses the file at path, choosing the loader from its extension.
// An unrecognized extension matches both ErrLoaderNotFound and
// ErrUnsupportedFormat.
func (r *Registry) LoadFile(path string) (map[string]any, error) {
	name, err := r.FormatOf(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoaderNotFound, err)
	}
	load, err := r.Loader(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("format: load %s: %w", path, err)
	}
	return doc, nil
}

// Dump writes data in the given format. Dumper failures are returned as
// *DumperError.
func (r *Registry) Dump(w io.Writer, name string, data map[string]any) error {
	dump, err := r.Dumper(name)
	if err != nil {
		return err
	}
	if err := dump(w, data); err != nil {
		return &DumperError{Format: normalizeName(name), Err: err}
	}
	return nil
}

// DumpString returns data serialized in the given format.
func (r *Registry) DumpString(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := r.Dump(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DumpFile serializes data, writes it to path when path is not empty, and
// returns the text. Nothing is written when dumping fails.
func (r *Registry) DumpFile(name string, data map[string]any, path string) (string, error) {
	text, err := r.DumpString(name, data)
	if err != nil {
		return "", err
	}
	if path != "" {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return "", err
		}
	}
	return text, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
}

func mustRegister(c Codec) {
	if err := Default.Register(c); err != nil {
		panic(err)
	}
}
