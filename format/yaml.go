package format

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// YAML is the YAML codec, also reachable as "yml".
var YAML = Codec{Name: "yaml", Extensions: []string{"yml"}, Load: loadYAML, Dump: dumpYAML}

func init() { mustRegister(YAML) }

func loadYAML(r io.Reader) (map[string]any, error) {
	var v any
	if err := yaml.NewDecoder(r).Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return asDocument(v)
}

func dumpYAML(w io.Writer, data map[string]any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
