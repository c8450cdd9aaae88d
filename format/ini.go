package format

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

// INI is the INI codec. Documents are mappings of sections to mappings of
// string values. Keys of the DEFAULT section are inherited by every other
// section and keys are case-insensitive. Only such flat documents can be
// dumped; anything nested fails with a DumperError.
var INI = Codec{Name: "ini", Extensions: []string{"cfg"}, Load: loadINI, Dump: dumpINI}

func init() { mustRegister(INI) }

func loadINI(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, data)
	if err != nil {
		return nil, err
	}
	defaults := map[string]any{}
	for _, k := range cfg.Section(ini.DefaultSection).Keys() {
		defaults[k.Name()] = k.String()
	}
	out := map[string]any{}
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		m := make(map[string]any, len(defaults)+len(sec.Keys()))
		for k, v := range defaults {
			m[k] = v
		}
		for _, k := range sec.Keys() {
			m[k.Name()] = k.String()
		}
		out[sec.Name()] = m
	}
	return out, nil
}

func dumpINI(w io.Writer, data map[string]any) error {
	cfg := ini.Empty()
	for _, name := range sortedKeys(data) {
		body, ok := data[name].(map[string]any)
		if !ok {
			return fmt.Errorf("section %q: %s cannot be represented as an INI section", name, describe(data[name]))
		}
		var sec *ini.Section
		if name == ini.DefaultSection {
			sec = cfg.Section(ini.DefaultSection)
		} else {
			var err error
			if sec, err = cfg.NewSection(name); err != nil {
				return err
			}
		}
		for _, key := range sortedKeys(body) {
			text, err := iniScalar(body[key])
			if err != nil {
				return fmt.Errorf("section %q key %q: %w", name, key, err)
			}
			if _, err := sec.NewKey(key, text); err != nil {
				return err
			}
		}
	}
	_, err := cfg.WriteTo(w)
	return err
}

func iniScalar(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	default:
		return "", fmt.Errorf("%s cannot be represented as an INI value", describe(v))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describe(v any) string {
	switch v.(type) {
	case map[string]any:
		return "a nested mapping"
	case []any:
		return "a list"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("a %T", v)
	}
}

// rejectNulls fails on null values, which TOML has no syntax for.
func rejectNulls(path string, v any) error {
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("%s: null cannot be represented", path)
	case map[string]any:
		for _, k := range sortedKeys(x) {
			p := k
			if path != "" {
				p = path + "." + k
			}
			if err := rejectNulls(p, x[k]); err != nil {
				return err
			}
		}
	case []any:
		for i, e := range x {
			if err := rejectNulls(fmt.Sprintf("%s[%d]", path, i), e); err != nil {
				return err
			}
		}
	}
	return nil
}
