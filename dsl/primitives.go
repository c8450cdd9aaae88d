package dsl

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	goserdes "github.com/reoring/goserdes"
	"github.com/reoring/goserdes/i18n"
)

func issue(code, hint string, data map[string]string, got any) goserdes.Issues {
	it := goserdes.Issue{Path: "/", Code: code, Message: i18n.T(code, data), Hint: hint}
	if len(data) > 0 || got != nil {
		it.Params = map[string]any{}
		for k, v := range data {
			it.Params[k] = v
		}
		if got != nil {
			it.Params["got"] = got
		}
	}
	return goserdes.Issues{it}
}

// StringSchema accepts strings only; numbers are not converted.
type StringSchema struct {
	minLen, maxLen int
	pattern        *regexp.Regexp
	email          bool
	enum           []string
}

// String returns a string schema without constraints.
func String() *StringSchema { return &StringSchema{minLen: -1, maxLen: -1} }

// Min sets the minimum length in runes.
func (s *StringSchema) Min(n int) *StringSchema { s.minLen = n; return s }

// Max sets the maximum length in runes.
func (s *StringSchema) Max(n int) *StringSchema { s.maxLen = n; return s }

// Pattern requires a match of the regular expression re. It panics if re does
// not compile.
func (s *StringSchema) Pattern(re string) *StringSchema {
	s.pattern = regexp.MustCompile(re)
	return s
}

// Email requires a bare RFC 5322 address such as "a@example.com".
func (s *StringSchema) Email() *StringSchema { s.email = true; return s }

// OneOf restricts the value to the given set.
func (s *StringSchema) OneOf(values ...string) *StringSchema {
	s.enum = append([]string(nil), values...)
	return s
}

func (s *StringSchema) Parse(ctx context.Context, v any) (string, error) {
	str, ok := v.(string)
	if !ok {
		return "", issue(goserdes.CodeInvalidType, "expected string", nil, nil)
	}
	if err := s.ValidateValue(ctx, str); err != nil {
		return "", err
	}
	return str, nil
}

func (s *StringSchema) ValidateValue(_ context.Context, v string) error {
	n := utf8.RuneCountInString(v)
	if s.minLen >= 0 && n < s.minLen {
		return issue(goserdes.CodeTooShort, fmt.Sprintf("minimum length %d", s.minLen), nil, n)
	}
	if s.maxLen >= 0 && n > s.maxLen {
		return issue(goserdes.CodeTooLong, fmt.Sprintf("maximum length %d", s.maxLen), nil, n)
	}
	if s.pattern != nil && !s.pattern.MatchString(v) {
		return issue(goserdes.CodePattern, "", map[string]string{"pattern": s.pattern.String()}, v)
	}
	if s.email && !isEmail(v) {
		return issue(goserdes.CodeInvalidFormat, "", map[string]string{"format": "email"}, v)
	}
	if len(s.enum) > 0 && !slices.Contains(s.enum, v) {
		return issue(goserdes.CodeInvalidEnum, "", map[string]string{"values": strings.Join(s.enum, ", ")}, v)
	}
	return nil
}

func isEmail(v string) bool {
	a, err := mail.ParseAddress(v)
	if err != nil || a.Name != "" || a.Address != v {
		return false
	}
	_, domain, _ := strings.Cut(v, "@")
	return strings.Contains(domain, ".")
}

// BoolSchema accepts booleans, and strings such as "true" or "0" when
// CoerceFromString is set.
type BoolSchema struct{ coerce bool }

func Bool() *BoolSchema { return &BoolSchema{} }

// CoerceFromString accepts the strings strconv.ParseBool understands. Useful
// for INI documents, where every value is a string.
func (s *BoolSchema) CoerceFromString() *BoolSchema { s.coerce = true; return s }

func (s *BoolSchema) Parse(_ context.Context, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		if s.coerce {
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		}
	}
	return false, issue(goserdes.CodeInvalidType, "expected boolean", nil, nil)
}

func (s *BoolSchema) ValidateValue(context.Context, bool) error { return nil }

// IntSchema accepts integers. Floats with no fractional part are accepted as
// well since YAML and TOML may spell 18 as 18.0; strings only with
// CoerceFromString.
type IntSchema struct {
	min, max *int64
	coerce   bool
}

func Int() *IntSchema { return &IntSchema{} }

func (s *IntSchema) Min(n int64) *IntSchema       { s.min = &n; return s }
func (s *IntSchema) Max(n int64) *IntSchema       { s.max = &n; return s }
func (s *IntSchema) CoerceFromString() *IntSchema { s.coerce = true; return s }

func (s *IntSchema) Parse(ctx context.Context, v any) (int64, error) {
	n, ok := toInt64(v, s.coerce)
	if !ok {
		return 0, issue(goserdes.CodeInvalidType, "expected integer", nil, nil)
	}
	if err := s.ValidateValue(ctx, n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *IntSchema) ValidateValue(_ context.Context, v int64) error {
	if s.min != nil && v < *s.min {
		return issue(goserdes.CodeTooSmall, "", map[string]string{"min": strconv.FormatInt(*s.min, 10)}, v)
	}
	if s.max != nil && v > *s.max {
		return issue(goserdes.CodeTooBig, "", map[string]string{"max": strconv.FormatInt(*s.max, 10)}, v)
	}
	return nil
}

func toInt64(v any, coerce bool) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case string:
		if !coerce {
			return 0, false
		}
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case nil, bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		return int64(u), u <= math.MaxInt64
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// FloatSchema accepts any number; strings only with CoerceFromString.
type FloatSchema struct {
	min, max *float64
	coerce   bool
}

func Float() *FloatSchema { return &FloatSchema{} }

func (s *FloatSchema) Min(n float64) *FloatSchema     { s.min = &n; return s }
func (s *FloatSchema) Max(n float64) *FloatSchema     { s.max = &n; return s }
func (s *FloatSchema) CoerceFromString() *FloatSchema { s.coerce = true; return s }

func (s *FloatSchema) Parse(ctx context.Context, v any) (float64, error) {
	var (
		f  float64
		ok bool
	)
	switch x := v.(type) {
	case json.Number:
		var err error
		f, err = x.Float64()
		ok = err == nil
	case string:
		if s.coerce {
			var err error
			f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
			ok = err == nil
		}
	default:
		f, ok = toFloat(v)
	}
	if !ok {
		return 0, issue(goserdes.CodeInvalidType, "expected number", nil, nil)
	}
	if err := s.ValidateValue(ctx, f); err != nil {
		return 0, err
	}
	return f, nil
}

func (s *FloatSchema) ValidateValue(_ context.Context, v float64) error {
	if math.IsNaN(v) {
		return issue(goserdes.CodeInvalidType, "NaN is not a number", nil, nil)
	}
	if s.min != nil && v < *s.min {
		return issue(goserdes.CodeTooSmall, "", map[string]string{"min": strconv.FormatFloat(*s.min, 'g', -1, 64)}, v)
	}
	if s.max != nil && v > *s.max {
		return issue(goserdes.CodeTooBig, "", map[string]string{"max": strconv.FormatFloat(*s.max, 'g', -1, 64)}, v)
	}
	return nil
}

// TimeSchema accepts time.Time values and RFC 3339 strings. Date-only strings
// ("2006-01-02") parse as midnight UTC.
type TimeSchema struct{}

func Time() TimeSchema { return TimeSchema{} }

func (TimeSchema) Parse(_ context.Context, v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		if t, err := parseTime(x); err == nil {
			return t, nil
		}
		return time.Time{}, issue(goserdes.CodeInvalidFormat, "RFC 3339", map[string]string{"format": "date-time"}, x)
	}
	return time.Time{}, issue(goserdes.CodeInvalidType, "expected date-time", nil, nil)
}

func (TimeSchema) ValidateValue(context.Context, time.Time) error { return nil }

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

var (
	_ goserdes.Schema[string]    = (*StringSchema)(nil)
	_ goserdes.Schema[bool]      = (*BoolSchema)(nil)
	_ goserdes.Schema[int64]     = (*IntSchema)(nil)
	_ goserdes.Schema[float64]   = (*FloatSchema)(nil)
	_ goserdes.Schema[time.Time] = TimeSchema{}
)
