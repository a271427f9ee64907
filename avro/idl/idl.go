// Package idl parses the Avro IDL notation. Declarations are translated into
// the JSON-like values the avro package already understands, so both
// notations share one set of naming, reference and default rules.
package idl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/reoring/schemacheck/avro"
)

// Parse parses an IDL document. The root schema is the type named by a
// `schema` declaration, or the last declared named type when there is none.
func Parse(text string) (avro.Schema, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &avro.SyntaxError{Msg: "empty schema document"}
	}
	if err := checkDepth(text); err != nil {
		return nil, err
	}
	file, err := idlParser.ParseString("", text)
	if err != nil {
		return nil, grammarError(err)
	}
	return build(file)
}

// checkDepth rejects documents whose brackets nest deeper than avro.MaxDepth
// before the recursive grammar sees them. Lexing errors are left to the parser.
func checkDepth(text string) error {
	lex, err := idlLexer.LexString("", text)
	if err != nil {
		return nil
	}
	depth := 0
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return nil
		}
		switch tok.Value {
		case "{", "[", "(", "<":
			if depth++; depth > avro.MaxDepth {
				return &avro.SyntaxError{
					Line:   tok.Pos.Line,
					Column: tok.Pos.Column,
					Msg:    fmt.Sprintf("nesting deeper than %d levels", avro.MaxDepth),
					Err:    avro.ErrTooDeep,
				}
			}
		case "}", "]", ")", ">":
			depth--
		}
	}
}

func grammarError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &avro.SyntaxError{Line: pos.Line, Column: pos.Column, Msg: perr.Message()}
	}
	return &avro.SyntaxError{Msg: "invalid IDL", Err: err}
}

type builder struct {
	ns string
}

func build(file *idlFile) (avro.Schema, error) {
	b := &builder{}
	if file.Namespace != nil {
		b.ns = unquoteIdent(*file.Namespace)
	}
	named := make([]any, 0, len(file.Decls))
	last := ""
	for _, d := range file.Decls {
		def, full, err := b.decl(d)
		if err != nil {
			return nil, err
		}
		named = append(named, def)
		last = full
	}
	var root any
	switch {
	case file.Main != nil:
		v, err := b.typ(file.Main, nil)
		if err != nil {
			return nil, err
		}
		root = v
	case last != "":
		root = last
	default:
		return nil, &avro.SyntaxError{Msg: "no schema or named type declared"}
	}
	return avro.ParseValues(root, named, avro.ParseOpt{Namespace: b.ns})
}

// decl returns the JSON form of a named declaration and its full name.
func (b *builder) decl(d *idlDecl) (map[string]any, string, error) {
	m := map[string]any{}
	var name string
	switch {
	case d.Body.Record != nil:
		r := d.Body.Record
		name = unquoteIdent(r.Name)
		fields := make([]any, 0, len(r.Fields))
		for _, f := range r.Fields {
			fv, err := b.field(f)
			if err != nil {
				return nil, "", err
			}
			fields = append(fields, fv)
		}
		m["type"] = r.Kind
		m["fields"] = fields
	case d.Body.Enum != nil:
		e := d.Body.Enum
		name = unquoteIdent(e.Name)
		symbols := make([]any, len(e.Symbols))
		for i, s := range e.Symbols {
			symbols[i] = unquoteIdent(s)
		}
		m["type"] = "enum"
		m["symbols"] = symbols
		if e.Default != nil {
			m["default"] = unquoteIdent(*e.Default)
		}
	case d.Body.Fixed != nil:
		name = unquoteIdent(d.Body.Fixed.Name)
		m["type"] = "fixed"
		m["size"] = int64(d.Body.Fixed.Size)
	}
	m["name"] = name
	if err := annotate(m, d.Annotations); err != nil {
		return nil, "", err
	}
	return m, fullName(name, m["namespace"], b.ns), nil
}

func fullName(name string, declared any, fileNs string) string {
	if strings.Contains(name, ".") {
		return name
	}
	ns := fileNs
	if s, ok := declared.(string); ok {
		ns = s
	}
	if ns == "" {
		return name
	}
	return ns + "." + name
}

func (b *builder) field(f *idlField) (map[string]any, error) {
	t, err := b.typ(f.Type, f.Default)
	if err != nil {
		return nil, err
	}
	m := map[string]any{"name": unquoteIdent(f.Name), "type": t}
	if f.Default != nil {
		v, err := value(f.Default)
		if err != nil {
			return nil, err
		}
		m["default"] = v
	}
	if err := annotate(m, f.Annotations); err != nil {
		return nil, err
	}
	return m, nil
}

// typ translates a type reference. def is the default of the enclosing field,
// which decides where null goes in an optional type.
func (b *builder) typ(t *idlType, def *idlValue) (any, error) {
	var out any
	switch body := t.Body; {
	case body.Array != nil:
		items, err := b.typ(body.Array, nil)
		if err != nil {
			return nil, err
		}
		out = map[string]any{"type": "array", "items": items}
	case body.Map != nil:
		values, err := b.typ(body.Map, nil)
		if err != nil {
			return nil, err
		}
		out = map[string]any{"type": "map", "values": values}
	case body.Union != nil:
		members := make([]any, 0, len(body.Union))
		for _, u := range body.Union {
			mv, err := b.typ(u, nil)
			if err != nil {
				return nil, err
			}
			members = append(members, mv)
		}
		out = members
	case body.Decimal != nil:
		out = map[string]any{
			"type":        "bytes",
			"logicalType": "decimal",
			"precision":   int64(body.Decimal.Precision),
			"scale":       int64(body.Decimal.Scale),
		}
	default:
		out = builtin(body.Name)
	}

	if len(t.Annotations) > 0 {
		if _, isUnion := out.([]any); !isUnion {
			m, ok := out.(map[string]any)
			if !ok {
				m = map[string]any{"type": out}
			}
			if err := annotate(m, t.Annotations); err != nil {
				return nil, err
			}
			out = m
		}
	}

	if t.Optional {
		if def != nil && !def.Null {
			return []any{out, "null"}, nil
		}
		return []any{"null", out}, nil
	}
	return out, nil
}

// builtin expands the IDL shorthand type names.
func builtin(name string) any {
	switch name {
	case "date":
		return map[string]any{"type": "int", "logicalType": "date"}
	case "time_ms":
		return map[string]any{"type": "int", "logicalType": "time-millis"}
	case "timestamp_ms":
		return map[string]any{"type": "long", "logicalType": "timestamp-millis"}
	case "local_timestamp_ms":
		return map[string]any{"type": "long", "logicalType": "local-timestamp-millis"}
	case "uuid":
		return map[string]any{"type": "string", "logicalType": "uuid"}
	}
	return unquoteIdent(name)
}

func annotate(m map[string]any, anns []*idlAnnotation) error {
	for _, a := range anns {
		v, err := value(a.Value)
		if err != nil {
			return err
		}
		m[strings.TrimPrefix(a.Name, "@")] = v
	}
	return nil
}

func value(v *idlValue) (any, error) {
	switch {
	case v.String != nil:
		return *v.String, nil
	case v.Number != nil:
		if n, err := strconv.ParseInt(*v.Number, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(*v.Number, 64)
		if err != nil {
			return nil, &avro.SyntaxError{Msg: "invalid number " + *v.Number, Err: err}
		}
		return f, nil
	case v.Bool != nil:
		return *v.Bool == "true", nil
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Items))
		for _, it := range v.Array.Items {
			iv, err := value(it)
			if err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
		return out, nil
	case v.Object != nil:
		out := make(map[string]any, len(v.Object.Members))
		for _, mem := range v.Object.Members {
			mv, err := value(mem.Value)
			if err != nil {
				return nil, err
			}
			out[mem.Key] = mv
		}
		return out, nil
	}
	return nil, nil
}

// unquoteIdent strips the backticks that let identifiers reuse keywords.
func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}
