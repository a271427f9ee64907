// Package avroconv converts parsed Avro schemas into the engine's structured
// types. Conversion is a pure function of its input: the schema graph is only
// read, and no state survives a call.
package avroconv

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/reoring/schemacheck/avro"
	"github.com/reoring/schemacheck/structtype"
)

var (
	// ErrUnsupportedLogicalType is wrapped when a logical type has no mapping
	// or its parameters are unusable.
	ErrUnsupportedLogicalType = errors.New("unsupported logical type")
	// ErrRecursiveType is wrapped when a record reaches itself under RecursionError.
	ErrRecursiveType = errors.New("recursive type")
	// ErrUnsupportedSchema is wrapped for nodes that have no structured type at all.
	ErrUnsupportedSchema = errors.New("unsupported schema node")
)

// DefaultMaxDecimalPrecision is the widest decimal the engine stores.
const DefaultMaxDecimalPrecision = 38

// RecursionPolicy decides what happens when a record refers to itself,
// directly or through other types.
type RecursionPolicy int

const (
	RecursionError     RecursionPolicy = iota // Fail with ErrRecursiveType.
	RecursionReference                        // Emit a *structtype.Ref marker.
)

// Options controls conversion.
type Options struct {
	Recursion           RecursionPolicy
	MaxDecimalPrecision int // 0 selects DefaultMaxDecimalPrecision.
}

// ConversionError names the schema construct that could not be converted and
// its dotted path inside the schema (for example: com.acme.User.contact[1].at).
type ConversionError struct {
	Path      string
	Construct string
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("avroconv: cannot convert %s at %s: %v", e.Construct, e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Convert maps s (any node kind, not only records) to a structured type.
func Convert(s avro.Schema, opts ...Options) (structtype.DataType, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.MaxDecimalPrecision <= 0 {
		opt.MaxDecimalPrecision = DefaultMaxDecimalPrecision
	}
	if s == nil {
		return nil, &ConversionError{Construct: "nil schema", Err: ErrUnsupportedSchema}
	}
	c := &converter{opt: opt, active: map[string]bool{}, done: map[string]*structtype.Struct{}}
	return c.convert(s, schemaPath(avro.TypeName(s)))
}

// schemaPath is a dotted location inside a schema.
type schemaPath string

func (p schemaPath) field(name string) schemaPath { return p + "." + schemaPath(name) }
func (p schemaPath) index(i int) schemaPath {
	return p + "[" + schemaPath(strconv.Itoa(i)) + "]"
}

// converter carries the active-conversion stack (full names of the records
// currently being converted) and the records already converted in this call.
// A record is only reused when its conversion emitted no recursion marker,
// since a marker depends on which records were active at the time.
type converter struct {
	opt    Options
	active map[string]bool
	done   map[string]*structtype.Struct
	marks  int
}

func (c *converter) convert(s avro.Schema, p schemaPath) (structtype.DataType, error) {
	switch t := s.(type) {
	case *avro.Ref:
		target := t.Target()
		if target == nil {
			return nil, &ConversionError{Path: string(p), Construct: "reference " + t.Name(), Err: ErrUnsupportedSchema}
		}
		return c.convert(target, p)
	case *avro.Primitive:
		return c.primitive(t, p)
	case *avro.Record:
		return c.record(t, p)
	case *avro.Enum:
		return &structtype.Enum{Name: t.FullName(), Symbols: append([]string(nil), t.Symbols...)}, nil
	case *avro.Array:
		elem, err := c.convert(t.Items, p.field("items"))
		if err != nil {
			return nil, err
		}
		return &structtype.List{Elem: elem}, nil
	case *avro.Map:
		val, err := c.convert(t.Values, p.field("values"))
		if err != nil {
			return nil, err
		}
		return &structtype.Map{Value: val}, nil
	case *avro.Union:
		return c.union(t, p)
	case *avro.Fixed:
		return c.fixed(t, p)
	}
	return nil, &ConversionError{Path: string(p), Construct: s.Kind().String(), Err: ErrUnsupportedSchema}
}

func (c *converter) record(r *avro.Record, p schemaPath) (structtype.DataType, error) {
	name := r.FullName()
	if st, ok := c.done[name]; ok {
		return st, nil
	}
	if c.active[name] {
		if c.opt.Recursion == RecursionReference {
			c.marks++
			return &structtype.Ref{Name: name}, nil
		}
		return nil, &ConversionError{Path: string(p), Construct: "record " + name, Err: ErrRecursiveType}
	}
	c.active[name] = true
	defer delete(c.active, name)
	marks := c.marks

	st := &structtype.Struct{Name: name, Fields: make([]structtype.Field, 0, len(r.Fields))}
	for _, f := range r.Fields {
		ft, err := c.convert(f.Type, p.field(f.Name))
		if err != nil {
			return nil, err
		}
		st.Fields = append(st.Fields, structtype.Field{
			Name:       f.Name,
			Type:       ft,
			Doc:        f.Doc,
			Default:    f.Default,
			HasDefault: f.HasDefault,
		})
	}
	if c.marks == marks {
		c.done[name] = st
	}
	return st, nil
}

// union maps {null, X} to a nullable X, single members to themselves and
// everything else to a tagged choice in member order.
func (c *converter) union(u *avro.Union, p schemaPath) (structtype.DataType, error) {
	n := len(u.Types)
	if n == 1 {
		return c.convert(u.Types[0], p.index(0))
	}
	if nullIdx := u.NullIndex(); n == 2 && nullIdx >= 0 {
		other := 1 - nullIdx
		elem, err := c.convert(u.Types[other], p.index(other))
		if err != nil {
			return nil, err
		}
		return &structtype.Nullable{Elem: elem}, nil
	}
	ch := &structtype.Choice{Variants: make([]structtype.Variant, 0, n)}
	for i, m := range u.Types {
		dt, err := c.convert(m, p.index(i))
		if err != nil {
			return nil, err
		}
		ch.Variants = append(ch.Variants, structtype.Variant{Tag: avro.TypeName(m), Type: dt})
	}
	return ch, nil
}

var scalars = map[avro.Kind]structtype.DataType{
	avro.KindNull:    structtype.Null,
	avro.KindBoolean: structtype.Boolean,
	avro.KindInt:     structtype.Integer,
	avro.KindLong:    structtype.Long,
	avro.KindFloat:   structtype.Float,
	avro.KindDouble:  structtype.Double,
	avro.KindBytes:   structtype.Binary,
	avro.KindString:  structtype.String,
}

func (c *converter) primitive(prim *avro.Primitive, p schemaPath) (structtype.DataType, error) {
	base, ok := scalars[prim.Type]
	if !ok {
		return nil, &ConversionError{Path: string(p), Construct: prim.Type.String(), Err: ErrUnsupportedSchema}
	}
	switch lt := prim.LogicalType; {
	case lt == "":
		return base, nil
	case lt == "date" && prim.Type == avro.KindInt:
		return structtype.Date, nil
	case (lt == "timestamp-millis" || lt == "timestamp-micros") && prim.Type == avro.KindLong:
		return structtype.Timestamp, nil
	case (lt == "local-timestamp-millis" || lt == "local-timestamp-micros") && prim.Type == avro.KindLong:
		return structtype.TimestampNTZ, nil
	case lt == "decimal" && prim.Type == avro.KindBytes:
		return c.decimal(prim.Precision, prim.Scale, -1, p)
	case lt == "uuid" && prim.Type == avro.KindString:
		return structtype.String, nil
	}
	return nil, &ConversionError{
		Path:      string(p),
		Construct: fmt.Sprintf("%s with logicalType %q", prim.Type, prim.LogicalType),
		Err:       ErrUnsupportedLogicalType,
	}
}

func (c *converter) fixed(f *avro.Fixed, p schemaPath) (structtype.DataType, error) {
	switch f.LogicalType {
	case "":
		return &structtype.FixedBinary{Name: f.FullName(), Size: f.Size}, nil
	case "decimal":
		return c.decimal(f.Precision, f.Scale, f.Size, p)
	}
	return nil, &ConversionError{
		Path:      string(p),
		Construct: fmt.Sprintf("fixed %s with logicalType %q", f.FullName(), f.LogicalType),
		Err:       ErrUnsupportedLogicalType,
	}
}

// decimal validates precision and scale; size is the fixed length in bytes,
// or -1 for variable-length bytes.
func (c *converter) decimal(precision, scale, size int, p schemaPath) (structtype.DataType, error) {
	construct := fmt.Sprintf("decimal(%d,%d)", precision, scale)
	fail := func(format string, a ...any) error {
		return &ConversionError{
			Path:      string(p),
			Construct: construct,
			Err:       fmt.Errorf("%w: "+format, append([]any{ErrUnsupportedLogicalType}, a...)...),
		}
	}
	switch {
	case precision <= 0 || precision > c.opt.MaxDecimalPrecision:
		return nil, fail("precision must be in 1..%d", c.opt.MaxDecimalPrecision)
	case scale < 0 || scale > precision:
		return nil, fail("scale must be in 0..%d", precision)
	case size >= 0 && precision > maxPrecisionForSize(size):
		return nil, fail("fixed(%d) holds at most %d digits", size, maxPrecisionForSize(size))
	}
	return &structtype.Decimal{Precision: precision, Scale: scale}, nil
}

// maxPrecisionForSize is the number of base-10 digits a signed two's
// complement value of size bytes can always hold.
func maxPrecisionForSize(size int) int {
	switch {
	case size <= 0:
		return 0
	case size >= 128:
		return math.MaxInt32
	}
	return int(math.Floor(math.Log10(math.Pow(2, float64(8*size-1)) - 1)))
}
