// Package structtype defines the structured type model the processing engine
// type-checks pipelines against. Types are plain values; two types are equal
// when reflect.DeepEqual says so.
package structtype

import (
	"strconv"
	"strings"
)

// Kind identifies a structured type.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindLong
	KindFloat
	KindDouble
	KindBinary
	KindString
	KindDate
	KindTimestamp
	KindTimestampNTZ
	KindDecimal
	KindFixedBinary
	KindEnum
	KindNullable
	KindStruct
	KindList
	KindMap
	KindChoice
	KindRef
)

// DataType is the root interface. The set of implementations is closed:
// Scalar, *Decimal, *FixedBinary, *Enum, *Nullable, *Struct, *List, *Map,
// *Choice and *Ref.
type DataType interface {
	Kind() Kind
	String() string
	sealed()
}

// Scalar is a type without parameters.
type Scalar struct {
	K Kind
}

func (s Scalar) Kind() Kind { return s.K }
func (Scalar) sealed()      {}

func (s Scalar) String() string {
	switch s.K {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "int"
	case KindLong:
		return "bigint"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBinary:
		return "binary"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampNTZ:
		return "timestamp_ntz"
	}
	return "unknown"
}

var (
	Null         DataType = Scalar{K: KindNull}
	Boolean      DataType = Scalar{K: KindBoolean}
	Integer      DataType = Scalar{K: KindInteger}
	Long         DataType = Scalar{K: KindLong}
	Float        DataType = Scalar{K: KindFloat}
	Double       DataType = Scalar{K: KindDouble}
	Binary       DataType = Scalar{K: KindBinary}
	String       DataType = Scalar{K: KindString}
	Date         DataType = Scalar{K: KindDate}
	Timestamp    DataType = Scalar{K: KindTimestamp}
	TimestampNTZ DataType = Scalar{K: KindTimestampNTZ}
)

// Decimal is a fixed-point number.
type Decimal struct {
	Precision int
	Scale     int
}

func (*Decimal) Kind() Kind { return KindDecimal }
func (*Decimal) sealed()    {}
func (d *Decimal) String() string {
	return "decimal(" + strconv.Itoa(d.Precision) + "," + strconv.Itoa(d.Scale) + ")"
}

// FixedBinary is a byte sequence of a declared length.
type FixedBinary struct {
	Name string
	Size int
}

func (*FixedBinary) Kind() Kind { return KindFixedBinary }
func (*FixedBinary) sealed()    {}
func (f *FixedBinary) String() string {
	return "fixed(" + strconv.Itoa(f.Size) + ")"
}

// Enum is a string-backed choice constrained to Symbols, in declared order.
type Enum struct {
	Name    string
	Symbols []string
}

func (*Enum) Kind() Kind { return KindEnum }
func (*Enum) sealed()    {}
func (e *Enum) String() string {
	return "enum<" + strings.Join(e.Symbols, ",") + ">"
}

// Nullable admits null in addition to Elem.
type Nullable struct {
	Elem DataType
}

func (*Nullable) Kind() Kind       { return KindNullable }
func (*Nullable) sealed()          {}
func (n *Nullable) String() string { return n.Elem.String() + "?" }

// Struct is a named aggregate with ordered fields. Field order is positional
// downstream and must be preserved.
type Struct struct {
	Name   string
	Fields []Field
}

// Field is a named struct member.
type Field struct {
	Name       string
	Type       DataType
	Doc        string
	Default    any
	HasDefault bool
}

func (*Struct) Kind() Kind { return KindStruct }
func (*Struct) sealed()    {}

func (s *Struct) String() string {
	b := &strings.Builder{}
	b.WriteString("struct<")
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type.String())
	}
	b.WriteByte('>')
	return b.String()
}

// FieldNames returns the field names in declared order.
func (s *Struct) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a field by name.
func (s *Struct) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// List is an ordered collection.
type List struct {
	Elem DataType
}

func (*List) Kind() Kind       { return KindList }
func (*List) sealed()          {}
func (l *List) String() string { return "array<" + l.Elem.String() + ">" }

// Map is an associative map with string keys.
type Map struct {
	Value DataType
}

func (*Map) Kind() Kind       { return KindMap }
func (*Map) sealed()          {}
func (m *Map) String() string { return "map<string," + m.Value.String() + ">" }

// Choice is a tagged choice between variants, in declared order.
type Choice struct {
	Variants []Variant
}

// Variant is one alternative of a Choice.
type Variant struct {
	Tag  string
	Type DataType
}

func (*Choice) Kind() Kind { return KindChoice }
func (*Choice) sealed()    {}

func (c *Choice) String() string {
	b := &strings.Builder{}
	b.WriteString("choice<")
	for i, v := range c.Variants {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.Tag)
		b.WriteByte(':')
		b.WriteString(v.Type.String())
	}
	b.WriteByte('>')
	return b.String()
}

// Tags returns the variant tags in declared order.
func (c *Choice) Tags() []string {
	out := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		out[i] = v.Tag
	}
	return out
}

// Ref marks a recursive occurrence of the named struct that encloses it.
type Ref struct {
	Name string
}

func (*Ref) Kind() Kind       { return KindRef }
func (*Ref) sealed()          {}
func (r *Ref) String() string { return "ref<" + r.Name + ">" }
