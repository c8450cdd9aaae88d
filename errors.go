package goserdes

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeUnknownKey    = "unknown_key"
	CodeDuplicateKey  = "duplicate_key"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodePattern       = "pattern"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidFormat = "invalid_format"
	CodeParseError    = "parse_error"
	CodeBusinessRule  = "business_rule"

	CodeDependencyUnavailable = "dependency_unavailable"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /customers/2/age).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, format names, etc.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"min":18, "got":12}).
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Rebase prefixes every issue path with base (a JSON Pointer such as
// "/customers/3").
func (iss Issues) Rebase(base string) Issues {
	if base == "" || base == "/" {
		return iss
	}
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		switch {
		case it.Path == "" || it.Path == "/":
			it.Path = base
		case it.Path[0] == '/':
			it.Path = base + it.Path
		default:
			it.Path = base + "/" + it.Path
		}
		out = append(out, it)
	}
	return out
}

// Record lifecycle and lookup errors. Callers match them with errors.Is.
var (
	// ErrAbstractKind is returned when records of an abstract kind are built.
	ErrAbstractKind = errors.New("goserdes: abstract kind cannot be instantiated")
	// ErrDuplicate is returned by Save when a kind rejects duplicate identities.
	ErrDuplicate = errors.New("goserdes: duplicate record")
	// ErrNotFound is returned by Get when nothing matches.
	ErrNotFound = errors.New("goserdes: record not found")
	// ErrAmbiguous is returned by Get when more than one record matches.
	ErrAmbiguous = errors.New("goserdes: more than one record matched")
	// ErrMissingKey reports a kind without identity fields or a record lacking one.
	ErrMissingKey = errors.New("goserdes: missing identity field")
	// ErrInvalidData is returned when directive data is neither a mapping nor a list.
	ErrInvalidData = errors.New("goserdes: data must be a mapping or a list of mappings")
	// ErrKindExists is returned when a kind name is registered twice.
	ErrKindExists = errors.New("goserdes: kind already registered")
	// ErrDirectiveConflict is returned when two kinds claim the same directive.
	ErrDirectiveConflict = errors.New("goserdes: directive already claimed")
	// ErrUnknownKind is returned for lookups of unregistered kind names.
	ErrUnknownKind = errors.New("goserdes: unknown kind")
	// ErrNotRenderable is returned by Render for kinds without a template.
	ErrNotRenderable = errors.New("goserdes: kind is not renderable")
	// ErrKindMismatch is returned when a record is handed to the wrong typed kind.
	ErrKindMismatch = errors.New("goserdes: record belongs to another kind")
)
