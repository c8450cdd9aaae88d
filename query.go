package goserdes

import (
	"fmt"
	"path"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Query selects records by field equality. Keys are field names or dotted
// paths into nested objects. Numbers match by value whatever their Go type,
// and a nil value matches a field that is absent.
type Query map[string]any

// Matches reports whether every query field equals the record's field.
func (q Query) Matches(r *Record) bool {
	for p, want := range q {
		got, ok := r.Lookup(p)
		if !ok {
			if want == nil {
				continue
			}
			return false
		}
		if !valuesEqual(got, ToPlain(want)) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if na, ok := asNumber(a); ok {
		nb, ok := asNumber(b)
		return ok && na.compare(nb) == 0
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !valuesEqual(v, w) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

// Predicate is a compiled Where expression.
type Predicate struct {
	source  string
	program *vm.Program
}

// CompileWhere compiles a boolean expression over record fields, for example
// `age >= 30 && send_ads` or `like(email, "*@example.com")`. Fields are
// variables; nested objects are reached with dots (`address?.city`). Besides
// the expr-lang builtins two helpers exist: has(v) reports a non-nil value and
// like(s, pattern) matches a shell glob.
func CompileWhere(expression string) (*Predicate, error) {
	program, err := expr.Compile(expression, whereOptions()...)
	if err != nil {
		return nil, fmt.Errorf("goserdes: compile where %q: %w", expression, err)
	}
	return &Predicate{source: expression, program: program}, nil
}

func (p *Predicate) String() string { return p.source }

// Match evaluates the predicate against r's fields.
func (p *Predicate) Match(r *Record) (bool, error) {
	out, err := expr.Run(p.program, r.Fields())
	if err != nil {
		return false, err
	}
	b, _ := out.(bool)
	return b, nil
}

func whereOptions() []expr.Option {
	return []expr.Option{
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
		expr.Function("has", func(params ...any) (any, error) {
			return params[0] != nil, nil
		}, new(func(any) bool)),
		expr.Function("like", func(params ...any) (any, error) {
			s, _ := params[0].(string)
			pattern, _ := params[1].(string)
			return path.Match(pattern, s)
		}, new(func(string, string) bool)),
	}
}
