package format

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-json"
)

// JSON is the JSON codec. Numbers are decoded exactly: integers become int64.
// Documents repeating an object key are rejected with *DuplicateKeyError.
var JSON = Codec{Name: "json", Load: loadJSON, Dump: dumpJSON}

func init() { mustRegister(JSON) }

func loadJSON(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := checkDuplicateKeys(data); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return asDocument(v)
}

func dumpJSON(w io.Writer, data map[string]any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
