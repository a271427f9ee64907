package avro

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
)

// MaxDepth bounds the nesting of arrays and objects in a schema document.
const MaxDepth = 1000

// jsonDecoder builds JSON-like values (map[string]any, []any, string, bool,
// int64, float64, nil) from a go-json token stream, rejecting duplicate keys.
// The location is kept as a token stack and only formatted for errors.
type jsonDecoder struct {
	dec             *j.Decoder
	allowDuplicates bool
	stack           []string
}

// decodeJSON decodes exactly one JSON document from text.
func decodeJSON(text string, allowDuplicates bool) (any, error) {
	dec := j.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	d := &jsonDecoder{dec: dec, allowDuplicates: allowDuplicates}

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SyntaxError{Msg: "empty schema document"}
		}
		return nil, &SyntaxError{Msg: "invalid JSON", Err: err}
	}
	v, err := d.value(tok)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, &SyntaxError{Msg: "invalid JSON", Err: err}
		}
		return nil, &SyntaxError{Msg: "unexpected data after the schema"}
	}
	return v, nil
}

// path formats the current location as a JSON Pointer.
func (d *jsonDecoder) path() string {
	var b strings.Builder
	for _, tok := range d.stack {
		b.WriteString(pointer("", tok))
	}
	return b.String()
}

func (d *jsonDecoder) errorf(format string, a ...any) error {
	return syntaxErrorf(d.path(), format, a...)
}

func (d *jsonDecoder) next() (any, error) {
	tok, err := d.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, d.errorf("unexpected end of document")
		}
		return nil, &SyntaxError{Path: d.path(), Msg: "invalid JSON", Err: err}
	}
	return tok, nil
}

func (d *jsonDecoder) value(tok any) (any, error) {
	switch v := tok.(type) {
	case j.Delim:
		if v == '{' || v == '[' {
			if len(d.stack) >= MaxDepth {
				return nil, &SyntaxError{Path: d.path(), Msg: fmt.Sprintf("nesting deeper than %d levels", MaxDepth), Err: ErrTooDeep}
			}
		}
		switch v {
		case '{':
			return d.object()
		case '[':
			return d.array()
		}
		return nil, d.errorf("unexpected %q", rune(v))
	case string:
		return v, nil
	case bool:
		return v, nil
	case nil:
		return nil, nil
	case j.Number:
		return parseNumber(string(v), d.path)
	case float64:
		return v, nil
	}
	return nil, d.errorf("unexpected token %v", tok)
}

// enter runs fn with tok pushed on the location stack.
func (d *jsonDecoder) enter(tok string, fn func() (any, error)) (any, error) {
	d.stack = append(d.stack, tok)
	defer func() { d.stack = d.stack[:len(d.stack)-1] }()
	return fn()
}

func (d *jsonDecoder) object() (map[string]any, error) {
	m := make(map[string]any)
	for {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(j.Delim); ok && delim == '}' {
			return m, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, d.errorf("expected object key, got %v", tok)
		}
		if _, dup := m[key]; dup && !d.allowDuplicates {
			return nil, &SyntaxError{Path: d.path(), Msg: fmt.Sprintf("key %q repeated", key), Err: ErrDuplicateKey}
		}
		vt, err := d.next()
		if err != nil {
			return nil, err
		}
		v, err := d.enter(key, func() (any, error) { return d.value(vt) })
		if err != nil {
			return nil, err
		}
		m[key] = v
	}
}

func (d *jsonDecoder) array() ([]any, error) {
	arr := []any{}
	for i := 0; ; i++ {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(j.Delim); ok && delim == ']' {
			return arr, nil
		}
		v, err := d.enter(strconv.Itoa(i), func() (any, error) { return d.value(tok) })
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

// parseNumber keeps integral numbers as int64 and everything else as float64.
func parseNumber(s string, path func() string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &SyntaxError{Path: path(), Msg: fmt.Sprintf("invalid number %q", s), Err: err}
	}
	return f, nil
}

// pointer appends one RFC 6901 reference token to a JSON Pointer.
func pointer(base, token string) string {
	esc := strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
	return base + "/" + esc
}
