package format

import (
	"io"

	"github.com/pelletier/go-toml/v2"
)

// TOML is the TOML codec. Local dates and times load as strings.
var TOML = Codec{Name: "toml", Load: loadTOML, Dump: dumpTOML}

func init() { mustRegister(TOML) }

func loadTOML(r io.Reader) (map[string]any, error) {
	var v map[string]any
	if err := toml.NewDecoder(r).Decode(&v); err != nil {
		return nil, err
	}
	return asDocument(v)
}

func dumpTOML(w io.Writer, data map[string]any) error {
	if err := rejectNulls("", data); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(data)
}
