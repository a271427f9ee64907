package avro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseOpt bundles parsing options. The zero value is the strict default.
type ParseOpt struct {
	// AllowDuplicateKeys accepts JSON objects that repeat a key (last wins).
	AllowDuplicateKeys bool
	// SkipDefaultValidation accepts field defaults that do not match the field type.
	SkipDefaultValidation bool
	// Namespace is the enclosing namespace for the root schema.
	Namespace string
}

// Parse parses an Avro schema in its JSON form.
func Parse(text string, opts ...ParseOpt) (Schema, error) {
	opt := pickOpt(opts)
	if strings.TrimSpace(text) == "" {
		return nil, &SyntaxError{Msg: "empty schema document"}
	}
	v, err := decodeJSON(text, opt.AllowDuplicateKeys)
	if err != nil {
		return nil, err
	}
	return ParseValues(v, nil, opt)
}

// ParseValues parses an already decoded JSON-like schema value. named holds
// additional named type definitions that the root (and each other) may
// reference regardless of order. When the root is a bare reference, the
// referenced named type is returned.
func ParseValues(root any, named []any, opts ...ParseOpt) (Schema, error) {
	opt := pickOpt(opts)
	p := &parser{opt: opt, names: map[string]NamedSchema{}}
	for i, def := range named {
		path := pointer("/$defs", strconv.Itoa(i))
		s, err := p.parse(def, opt.Namespace, path)
		if err != nil {
			return nil, err
		}
		if _, ok := s.(NamedSchema); !ok {
			return nil, syntaxErrorf(path, "definition is not a named type: %s", s.Kind())
		}
	}
	s, err := p.parse(root, opt.Namespace, "")
	if err != nil {
		return nil, err
	}
	if err := p.resolve(); err != nil {
		return nil, err
	}
	if !opt.SkipDefaultValidation {
		if err := p.checkDefaults(); err != nil {
			return nil, err
		}
	}
	return Deref(s), nil
}

func pickOpt(opts []ParseOpt) ParseOpt {
	if len(opts) > 0 {
		return opts[0]
	}
	return ParseOpt{}
}

type pendingRef struct {
	ref      *Ref
	fallback string // null-namespace candidate for a plain name, tried second
	path     string
}

type pendingDefault struct {
	field *Field
	path  string
}

// parser holds the name table for one document. It is discarded after use.
type parser struct {
	opt      ParseOpt
	names    map[string]NamedSchema
	refs     []pendingRef
	defaults []pendingDefault
	depth    int
}

func (p *parser) parse(v any, ns, path string) (Schema, error) {
	if p.depth >= MaxDepth {
		return nil, &SyntaxError{Path: path, Msg: fmt.Sprintf("nesting deeper than %d levels", MaxDepth), Err: ErrTooDeep}
	}
	p.depth++
	defer func() { p.depth-- }()
	switch t := v.(type) {
	case string:
		return p.parseName(t, ns, path)
	case []any:
		return p.parseUnion(t, ns, path)
	case map[string]any:
		return p.parseObject(t, ns, path)
	case nil:
		return nil, syntaxErrorf(path, "schema must be a string, object or array, got null")
	default:
		return nil, syntaxErrorf(path, "schema must be a string, object or array, got %T", v)
	}
}

// parseName handles a primitive type name or a reference to a named type.
func (p *parser) parseName(name, ns, path string) (Schema, error) {
	if k, ok := primitiveKinds[name]; ok {
		return &Primitive{Type: k}, nil
	}
	if !validFullName(name) {
		return nil, syntaxErrorf(path, "invalid type name %q", name)
	}
	pr := pendingRef{ref: &Ref{name: qualify(name, ns)}, path: path}
	if pr.ref.name != name {
		pr.fallback = name
	}
	p.refs = append(p.refs, pr)
	return pr.ref, nil
}

func (p *parser) parseObject(m map[string]any, ns, path string) (Schema, error) {
	raw, ok := m["type"]
	if !ok {
		return nil, syntaxErrorf(path, `missing "type"`)
	}
	t, ok := raw.(string)
	if !ok {
		return nil, syntaxErrorf(pointer(path, "type"), `"type" must be a string, got %T`, raw)
	}
	switch t {
	case "record", "error":
		return p.parseRecord(m, ns, path, t == "error")
	case "enum":
		return p.parseEnum(m, ns, path)
	case "fixed":
		return p.parseFixed(m, ns, path)
	case "array":
		items, ok := m["items"]
		if !ok {
			return nil, syntaxErrorf(path, `array without "items"`)
		}
		s, err := p.parse(items, ns, pointer(path, "items"))
		if err != nil {
			return nil, err
		}
		return &Array{Items: s}, nil
	case "map":
		values, ok := m["values"]
		if !ok {
			return nil, syntaxErrorf(path, `map without "values"`)
		}
		s, err := p.parse(values, ns, pointer(path, "values"))
		if err != nil {
			return nil, err
		}
		return &Map{Values: s}, nil
	}
	if k, ok := primitiveKinds[t]; ok {
		return p.parsePrimitive(k, m, path)
	}
	// {"type": "com.acme.Name"} refers to a named type.
	return p.parseName(t, ns, pointer(path, "type"))
}

func (p *parser) parsePrimitive(k Kind, m map[string]any, path string) (Schema, error) {
	prim := &Primitive{Type: k}
	lt, prec, scale, err := logicalAttrs(m, path)
	if err != nil {
		return nil, err
	}
	prim.LogicalType, prim.Precision, prim.Scale = lt, prec, scale
	return prim, nil
}

func (p *parser) parseRecord(m map[string]any, ns, path string, isError bool) (Schema, error) {
	name, err := p.declare(m, ns, path)
	if err != nil {
		return nil, err
	}
	rec := &Record{Name: name, IsError: isError}
	if rec.Doc, err = optString(m, "doc", path); err != nil {
		return nil, err
	}
	if rec.Aliases, err = aliases(m, path); err != nil {
		return nil, err
	}
	if err := p.register(rec, path); err != nil {
		return nil, err
	}

	raw, ok := m["fields"]
	if !ok {
		return nil, syntaxErrorf(path, "record %q without \"fields\"", name.Full())
	}
	fields, ok := raw.([]any)
	if !ok {
		return nil, syntaxErrorf(pointer(path, "fields"), `"fields" must be an array, got %T`, raw)
	}
	seen := make(map[string]struct{}, len(fields))
	for i, fr := range fields {
		fpath := pointer(pointer(path, "fields"), strconv.Itoa(i))
		f, err := p.parseField(fr, name.Namespace, fpath)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[f.Name]; dup {
			return nil, syntaxErrorf(fpath, "record %q repeats field %q", name.Full(), f.Name)
		}
		seen[f.Name] = struct{}{}
		rec.Fields = append(rec.Fields, f)
	}
	return rec, nil
}

func (p *parser) parseField(raw any, ns, path string) (*Field, error) {
	fm, ok := raw.(map[string]any)
	if !ok {
		return nil, syntaxErrorf(path, "field must be an object, got %T", raw)
	}
	name, _ := fm["name"].(string)
	if !validName(name) {
		return nil, syntaxErrorf(path, "invalid field name %q", name)
	}
	rawType, ok := fm["type"]
	if !ok {
		return nil, syntaxErrorf(path, "field %q without \"type\"", name)
	}
	typ, err := p.parse(rawType, ns, pointer(path, "type"))
	if err != nil {
		return nil, err
	}
	f := &Field{Name: name, Type: typ}
	if f.Doc, err = optString(fm, "doc", path); err != nil {
		return nil, err
	}
	if f.Order, err = optString(fm, "order", path); err != nil {
		return nil, err
	}
	switch f.Order {
	case "", "ascending", "descending", "ignore":
	default:
		return nil, syntaxErrorf(pointer(path, "order"), "invalid order %q", f.Order)
	}
	if f.Aliases, err = aliases(fm, path); err != nil {
		return nil, err
	}
	if dv, ok := fm["default"]; ok {
		f.Default, f.HasDefault = dv, true
		p.defaults = append(p.defaults, pendingDefault{field: f, path: pointer(path, "default")})
	}
	return f, nil
}

func (p *parser) parseEnum(m map[string]any, ns, path string) (Schema, error) {
	name, err := p.declare(m, ns, path)
	if err != nil {
		return nil, err
	}
	e := &Enum{Name: name}
	if e.Doc, err = optString(m, "doc", path); err != nil {
		return nil, err
	}
	if e.Aliases, err = aliases(m, path); err != nil {
		return nil, err
	}
	raw, ok := m["symbols"].([]any)
	if !ok {
		return nil, syntaxErrorf(path, "enum %q without a \"symbols\" array", name.Full())
	}
	seen := make(map[string]struct{}, len(raw))
	for i, sr := range raw {
		sym, _ := sr.(string)
		if !validName(sym) {
			return nil, syntaxErrorf(pointer(pointer(path, "symbols"), strconv.Itoa(i)), "invalid enum symbol %v", sr)
		}
		if _, dup := seen[sym]; dup {
			return nil, syntaxErrorf(path, "enum %q repeats symbol %q", name.Full(), sym)
		}
		seen[sym] = struct{}{}
		e.Symbols = append(e.Symbols, sym)
	}
	if e.Default, err = optString(m, "default", path); err != nil {
		return nil, err
	}
	if _, ok := seen[e.Default]; e.Default != "" && !ok {
		return nil, syntaxErrorf(pointer(path, "default"), "enum default %q is not a symbol of %q", e.Default, name.Full())
	}
	if err := p.register(e, path); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) parseFixed(m map[string]any, ns, path string) (Schema, error) {
	name, err := p.declare(m, ns, path)
	if err != nil {
		return nil, err
	}
	f := &Fixed{Name: name}
	if f.Aliases, err = aliases(m, path); err != nil {
		return nil, err
	}
	size, ok := intValue(m["size"])
	if !ok || size < 0 || size > math.MaxInt32 {
		return nil, syntaxErrorf(path, "fixed %q needs a non-negative integer \"size\"", name.Full())
	}
	f.Size = int(size)
	if f.LogicalType, f.Precision, f.Scale, err = logicalAttrs(m, path); err != nil {
		return nil, err
	}
	if err := p.register(f, path); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *parser) parseUnion(members []any, ns, path string) (Schema, error) {
	if len(members) == 0 {
		return nil, syntaxErrorf(path, "union without members")
	}
	u := &Union{Types: make([]Schema, 0, len(members))}
	seen := make(map[string]struct{}, len(members))
	for i, raw := range members {
		mpath := pointer(path, strconv.Itoa(i))
		s, err := p.parse(raw, ns, mpath)
		if err != nil {
			return nil, err
		}
		if s.Kind() == KindUnion {
			return nil, syntaxErrorf(mpath, "unions may not immediately contain other unions")
		}
		key := memberKey(s)
		if _, dup := seen[key]; dup {
			return nil, syntaxErrorf(mpath, "union repeats type %q", key)
		}
		seen[key] = struct{}{}
		u.Types = append(u.Types, s)
	}
	return u, nil
}

// memberKey identifies a union member: the full name for named types and the
// kind for everything else.
func memberKey(s Schema) string {
	switch t := s.(type) {
	case *Ref:
		return t.name
	case NamedSchema:
		return t.FullName()
	}
	return s.Kind().String()
}

// declare reads name/namespace of a named type.
func (p *parser) declare(m map[string]any, ns, path string) (Name, error) {
	raw, ok := m["name"].(string)
	if !ok || raw == "" {
		return Name{}, syntaxErrorf(path, `named type without "name"`)
	}
	if v, ok := m["namespace"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return Name{}, syntaxErrorf(pointer(path, "namespace"), `"namespace" must be a string, got %T`, v)
		}
		ns = s
	}
	n, err := splitName(raw, ns)
	if err != nil {
		return Name{}, &SyntaxError{Path: path, Msg: "bad named type", Err: err}
	}
	if _, prim := primitiveKinds[n.Full()]; prim {
		return Name{}, syntaxErrorf(path, "cannot redefine primitive type %q", n.Full())
	}
	return n, nil
}

func (p *parser) register(s NamedSchema, path string) error {
	full := s.FullName()
	if _, dup := p.names[full]; dup {
		return syntaxErrorf(path, "type %q is already defined", full)
	}
	p.names[full] = s
	return nil
}

// resolve binds every reference to its named type once the document is
// complete. A plain name is looked up in the enclosing namespace first and
// then in the null namespace.
func (p *parser) resolve() error {
	for _, pr := range p.refs {
		t, ok := p.names[pr.ref.name]
		if !ok && pr.fallback != "" {
			if t, ok = p.names[pr.fallback]; ok {
				pr.ref.name = pr.fallback
			}
		}
		if !ok {
			return &SyntaxError{Path: pr.path, Msg: fmt.Sprintf("type %q is not defined", pr.ref.name), Err: ErrUnresolvedReference}
		}
		pr.ref.target = t
	}
	return nil
}

func (p *parser) checkDefaults() error {
	for _, pd := range p.defaults {
		if !validDefault(pd.field.Type, pd.field.Default) {
			return syntaxErrorf(pd.path, "invalid default for field %q of type %s", pd.field.Name, TypeName(pd.field.Type))
		}
	}
	return nil
}

func optString(m map[string]any, key, path string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", syntaxErrorf(pointer(path, key), "%q must be a string, got %T", key, v)
	}
	return s, nil
}

func aliases(m map[string]any, path string) ([]string, error) {
	v, ok := m["aliases"]
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, syntaxErrorf(pointer(path, "aliases"), `"aliases" must be an array, got %T`, v)
	}
	out := make([]string, 0, len(arr))
	for _, a := range arr {
		s, _ := a.(string)
		if !validFullName(s) {
			return nil, syntaxErrorf(pointer(path, "aliases"), "invalid alias %v", a)
		}
		out = append(out, s)
	}
	return out, nil
}

// logicalAttrs reads logicalType and the decimal attributes. Missing or
// malformed precision/scale stay zero; the converter decides whether the
// logical type is usable.
func logicalAttrs(m map[string]any, path string) (string, int, int, error) {
	lt, err := optString(m, "logicalType", path)
	if err != nil {
		return "", 0, 0, err
	}
	prec, _ := intValue(m["precision"])
	scale, _ := intValue(m["scale"])
	return lt, int(prec), int(scale), nil
}

// intValue accepts int64 and integral float64 values.
func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), true
		}
	}
	return 0, false
}
