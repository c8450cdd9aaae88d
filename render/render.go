// Package render renders records through text/template files.
//
// Templates are looked up by name in an fs.FS, with a fixed file extension
// appended (".tmpl" unless WithExtension says otherwise). The sprig function
// library is available in every template.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ErrTemplateNotFound is returned when no template file exists for a name.
var ErrTemplateNotFound = errors.New("render: template not found")

// DefaultExtension is appended to template names to find their files.
const DefaultExtension = ".tmpl"

// Renderer loads, caches and executes templates.
type Renderer struct {
	fsys  fs.FS
	ext   string
	funcs template.FuncMap

	mu    sync.Mutex
	cache map[string]*template.Template
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithExtension sets the file extension appended to template names.
func WithExtension(ext string) Option {
	return func(r *Renderer) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.ext = ext
	}
}

// WithFuncs adds template functions; they override sprig functions of the
// same name.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Renderer) {
		for k, v := range funcs {
			r.funcs[k] = v
		}
	}
}

// New returns a Renderer reading templates from fsys.
func New(fsys fs.FS, opts ...Option) *Renderer {
	r := &Renderer{
		fsys:  fsys,
		ext:   DefaultExtension,
		funcs: sprig.TxtFuncMap(),
		cache: map[string]*template.Template{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewDir returns a Renderer reading templates from a directory.
func NewDir(dir string, opts ...Option) *Renderer {
	return New(os.DirFS(dir), opts...)
}

// Lookup returns the parsed template for name, loading it on first use.
func (r *Renderer) Lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.cache[name]; ok {
		return t, nil
	}
	file := name + r.ext
	src, err := fs.ReadFile(r.fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, file)
		}
		return nil, err
	}
	t, err := template.New(file).Funcs(r.funcs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("render: parse %s: %w", file, err)
	}
	r.cache[name] = t
	return t, nil
}

// Execute writes the template name rendered with data to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	t, err := r.Lookup(name)
	if err != nil {
		return err
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("render: execute %s: %w", t.Name(), err)
	}
	return nil
}

// Render returns the template name rendered with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Execute(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var capitalized = regexp.MustCompile(`[A-Z][^A-Z]*`)

// TemplateName derives a template name from a kind name: the name is split
// on capital letters, the first "Model" part is dropped and the rest is joined
// with underscores in lower case.
//
//	ProductModel         -> product
//	ModelYetAnotherClass -> yet_another_class
//	MyClass              -> my_class
//
// Names without capitals are used lower-cased as they are.
func TemplateName(kind string) string {
	parts := capitalized.FindAllString(kind, -1)
	for i, p := range parts {
		if p == "Model" {
			parts = append(parts[:i], parts[i+1:]...)
			break
		}
	}
	if len(parts) == 0 {
		return strings.ToLower(kind)
	}
	return strings.ToLower(strings.Join(parts, "_"))
}
