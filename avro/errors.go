package avro

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedReference is wrapped by SyntaxError when a name reference is
// still unknown after the whole document has been parsed.
var ErrUnresolvedReference = errors.New("unresolved type reference")

// ErrTooDeep is wrapped by SyntaxError when a document nests deeper than MaxDepth.
var ErrTooDeep = errors.New("schema nested too deeply")

// ErrDuplicateKey is wrapped by SyntaxError when a JSON object repeats a key.
var ErrDuplicateKey = errors.New("duplicate key")

// SyntaxError reports text that does not conform to the schema grammar.
type SyntaxError struct {
	Path   string // JSON Pointer inside the document (for example: /fields/2/type); empty when unknown.
	Line   int    // 1-based; 0 when unknown.
	Column int    // 1-based; 0 when unknown.
	Msg    string
	Err    error // Optional: underlying error.
}

func (e *SyntaxError) Error() string {
	b := &strings.Builder{}
	b.WriteString("avro: ")
	b.WriteString(e.Msg)
	if e.Line > 0 {
		fmt.Fprintf(b, " at %d:%d", e.Line, e.Column)
	}
	if e.Path != "" {
		fmt.Fprintf(b, " at %s", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func syntaxErrorf(path string, format string, a ...any) *SyntaxError {
	return &SyntaxError{Path: path, Msg: fmt.Sprintf(format, a...)}
}
