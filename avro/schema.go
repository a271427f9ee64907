// Package avro parses Avro schema documents into a closed, read-only graph of
// schema nodes. Named types (record, enum, fixed) are registered in a name
// table while parsing; references to them become *Ref nodes that are resolved
// once the whole document has been read, so forward and self references are
// both legal.
package avro

// Kind identifies a schema node type.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBytes
	KindString
	KindRecord
	KindEnum
	KindArray
	KindMap
	KindUnion
	KindFixed
	KindRef
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBoolean: "boolean",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBytes:   "bytes",
	KindString:  "string",
	KindRecord:  "record",
	KindEnum:    "enum",
	KindArray:   "array",
	KindMap:     "map",
	KindUnion:   "union",
	KindFixed:   "fixed",
	KindRef:     "ref",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsPrimitive reports whether k is one of the eight primitive kinds.
func (k Kind) IsPrimitive() bool { return k >= KindNull && k <= KindString }

// primitiveKinds maps primitive type names to their kinds.
var primitiveKinds = map[string]Kind{
	"null":    KindNull,
	"boolean": KindBoolean,
	"int":     KindInt,
	"long":    KindLong,
	"float":   KindFloat,
	"double":  KindDouble,
	"bytes":   KindBytes,
	"string":  KindString,
}

// PrimitiveKind returns the kind for a primitive type name.
func PrimitiveKind(name string) (Kind, bool) {
	k, ok := primitiveKinds[name]
	return k, ok
}

// Schema is the root node interface. The set of implementations is closed:
// *Primitive, *Record, *Enum, *Array, *Map, *Union, *Fixed and *Ref.
type Schema interface {
	Kind() Kind
	sealed()
}

// NamedSchema is implemented by the named types: *Record, *Enum and *Fixed.
type NamedSchema interface {
	Schema
	FullName() string
}

// Name is a possibly namespaced Avro name.
type Name struct {
	Name      string
	Namespace string
}

// Full returns the dotted full name.
func (n Name) Full() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

// Primitive represents null/boolean/int/long/float/double/bytes/string,
// optionally refined by a logical type.
type Primitive struct {
	Type        Kind
	LogicalType string // empty when absent
	Precision   int    // decimal only
	Scale       int    // decimal only
}

func (p *Primitive) Kind() Kind { return p.Type }
func (*Primitive) sealed()      {}

// Record represents a record (or error) with ordered fields.
type Record struct {
	Name    Name
	Doc     string
	Aliases []string
	Fields  []*Field
	IsError bool
}

func (r *Record) Kind() Kind       { return KindRecord }
func (*Record) sealed()            {}
func (r *Record) FullName() string { return r.Name.Full() }

// Field returns the field with the given name.
func (r *Record) Field(name string) (*Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Field is a named record member.
type Field struct {
	Name       string
	Type       Schema
	Doc        string
	Default    any // JSON-like value: nil, bool, int64, float64, string, []any, map[string]any
	HasDefault bool
	Order      string // "ascending" (default), "descending" or "ignore"
	Aliases    []string
}

// Enum represents an enumeration with ordered symbols.
type Enum struct {
	Name    Name
	Doc     string
	Aliases []string
	Symbols []string
	Default string // empty when absent
}

func (e *Enum) Kind() Kind       { return KindEnum }
func (*Enum) sealed()            {}
func (e *Enum) FullName() string { return e.Name.Full() }

// Array represents an array of items.
type Array struct {
	Items Schema
}

func (a *Array) Kind() Kind { return KindArray }
func (*Array) sealed()      {}

// Map represents a string-keyed map.
type Map struct {
	Values Schema
}

func (m *Map) Kind() Kind { return KindMap }
func (*Map) sealed()      {}

// Union represents an ordered list of member types.
type Union struct {
	Types []Schema
}

func (u *Union) Kind() Kind { return KindUnion }
func (*Union) sealed()      {}

// NullIndex returns the index of the null member, or -1.
func (u *Union) NullIndex() int {
	for i, t := range u.Types {
		if t.Kind() == KindNull {
			return i
		}
	}
	return -1
}

// Fixed represents a named, fixed-length byte sequence.
type Fixed struct {
	Name        Name
	Aliases     []string
	Size        int
	LogicalType string
	Precision   int
	Scale       int
}

func (f *Fixed) Kind() Kind       { return KindFixed }
func (*Fixed) sealed()            {}
func (f *Fixed) FullName() string { return f.Name.Full() }

// Ref is a by-name reference to a named type defined elsewhere in the same
// document (possibly an enclosing one).
type Ref struct {
	name   string
	target NamedSchema
}

func (r *Ref) Kind() Kind { return KindRef }
func (*Ref) sealed()      {}

// Name returns the full name the reference resolved to.
func (r *Ref) Name() string { return r.name }

// Target returns the referenced named type.
func (r *Ref) Target() NamedSchema { return r.target }

// Deref follows a reference to its target; other nodes are returned as is.
func Deref(s Schema) Schema {
	if r, ok := s.(*Ref); ok && r.target != nil {
		return r.target
	}
	return s
}

// TypeName returns the full name for named types (also through a reference)
// and the kind name for everything else.
func TypeName(s Schema) string {
	if n, ok := Deref(s).(NamedSchema); ok {
		return n.FullName()
	}
	return s.Kind().String()
}
