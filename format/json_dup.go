package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// DuplicateKeyError reports an object key that occurs twice in a JSON
// document. YAML and TOML decoders reject such documents on their own; the
// JSON decoder would silently keep the last value.
type DuplicateKeyError struct {
	Path string // JSON Pointer of the object holding the key
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q in object %s", e.Key, e.Path)
}

type dupFrame struct {
	object       bool
	keys         map[string]struct{}
	expectingKey bool
	key          string
	index        int
	segment      string
}

// enter accounts for a value starting inside f and returns its pointer
// segment.
func (f *dupFrame) enter() string {
	if f == nil {
		return ""
	}
	if f.object {
		f.expectingKey = true
		return pointerEscaper.Replace(f.key)
	}
	seg := strconv.Itoa(f.index)
	f.index++
	return seg
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func framePointer(stack []*dupFrame) string {
	if len(stack) <= 1 {
		return "/"
	}
	var sb strings.Builder
	for _, f := range stack[1:] {
		sb.WriteByte('/')
		sb.WriteString(f.segment)
	}
	return sb.String()
}

// checkDuplicateKeys walks the token stream of data and fails on the first
// repeated object key.
func checkDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []*dupFrame
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		var top *dupFrame
		if n := len(stack); n > 0 {
			top = stack[n-1]
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				f := &dupFrame{object: v == '{', expectingKey: v == '{', segment: top.enter()}
				if f.object {
					f.keys = map[string]struct{}{}
				}
				stack = append(stack, f)
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		case string:
			if top != nil && top.object && top.expectingKey {
				if _, dup := top.keys[v]; dup {
					return &DuplicateKeyError{Path: framePointer(stack), Key: v}
				}
				top.keys[v] = struct{}{}
				top.key = v
				top.expectingKey = false
				continue
			}
			top.enter()
		default:
			top.enter()
		}
	}
}
