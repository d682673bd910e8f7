package wire

import (
	"github.com/shopspring/decimal"

	"github.com/tracmeta/metacore/internal/svcerr"
)

// AttrType enumerates the seven primitive attribute types of spec.md §3/§4.1.
type AttrType int

const (
	AttrUnspecified AttrType = iota
	AttrBoolean
	AttrInteger
	AttrFloat
	AttrDecimal
	AttrString
	AttrDate
	AttrDateTime
)

func (t AttrType) String() string {
	switch t {
	case AttrBoolean:
		return "BOOLEAN"
	case AttrInteger:
		return "INTEGER"
	case AttrFloat:
		return "FLOAT"
	case AttrDecimal:
		return "DECIMAL"
	case AttrString:
		return "STRING"
	case AttrDate:
		return "DATE"
	case AttrDateTime:
		return "DATETIME"
	default:
		return "UNSPECIFIED"
	}
}

// Ordered reports whether LT/LE/GT/GE are meaningful for this type
// (spec.md §4.7: "only on ordered types").
func (t AttrType) Ordered() bool {
	switch t {
	case AttrInteger, AttrFloat, AttrDecimal, AttrDate, AttrDateTime:
		return true
	default:
		return false
	}
}

// Value is a single typed attribute value, or a homogeneous multi-valued
// array of one of the seven primitive types (spec.md §4.1: "Arrays carry a
// single primitive element type; empty arrays are illegal").
type Value struct {
	Type AttrType

	// Exactly one of the scalar fields below is meaningful, selected by
	// Type, when Array is false.
	Bool     bool
	Int      int64
	Float    float64
	Decimal  decimal.Decimal
	Str      string
	Date     Timestamp // full timestamp; time-of-day is kept, not truncated
	DateTime Timestamp

	Array    bool
	Elements []Value // when Array is true; each element has the same Type and Array=false
}

// NewBool, NewInt, NewFloat, NewDecimal, NewString, NewDate, NewDateTime
// construct single-valued attribute values of their respective type.
func NewBool(v bool) Value         { return Value{Type: AttrBoolean, Bool: v} }
func NewInt(v int64) Value         { return Value{Type: AttrInteger, Int: v} }
func NewFloat(v float64) Value     { return Value{Type: AttrFloat, Float: v} }
func NewDecimal(v decimal.Decimal) Value { return Value{Type: AttrDecimal, Decimal: v} }
func NewString(v string) Value     { return Value{Type: AttrString, Str: v} }
func NewDate(v Timestamp) Value    { return Value{Type: AttrDate, Date: v} }
func NewDateTime(v Timestamp) Value { return Value{Type: AttrDateTime, DateTime: v} }

// NewArray constructs a multi-valued attribute of elemType. An empty slice
// is rejected per §4.1 ("empty arrays are illegal"), and a mismatched
// element type or a nested array element is rejected as InputValidation.
func NewArray(elemType AttrType, elements []Value) (Value, error) {
	if len(elements) == 0 {
		return Value{}, svcerr.New(svcerr.KindInputValidation, "wire.NewArray", "empty arrays are not permitted")
	}
	for i, e := range elements {
		if e.Array {
			return Value{}, svcerr.New(svcerr.KindInputValidation, "wire.NewArray", "array elements cannot themselves be arrays")
		}
		if e.Type != elemType {
			return Value{}, svcerr.New(svcerr.KindInputValidation, "wire.NewArray", "array element at index has the wrong type")
		}
		_ = i
	}
	cp := make([]Value, len(elements))
	copy(cp, elements)
	return Value{Type: elemType, Array: true, Elements: cp}, nil
}

// Columns is the set of typed storage columns a TagAttribute row carries
// (spec.md §6's persisted schema: v_bool, v_int, v_float, v_decimal, v_str,
// v_date, v_datetime). Exactly one is populated per row, selected by Type.
type Columns struct {
	Bool     *bool
	Int      *int64
	Float    *float64
	Decimal  *string // exact textual representation, per §4.1
	Str      *string
	Date     *string
	DateTime *string
}

// ToColumns encodes a single (non-array) Value to its typed storage columns.
func ToColumns(v Value) (Columns, error) {
	if v.Array {
		return Columns{}, svcerr.New(svcerr.KindInternal, "wire.ToColumns", "cannot encode an array value as a single row; encode each element")
	}
	var c Columns
	switch v.Type {
	case AttrBoolean:
		b := v.Bool
		c.Bool = &b
	case AttrInteger:
		i := v.Int
		c.Int = &i
	case AttrFloat:
		f := v.Float
		c.Float = &f
	case AttrDecimal:
		s := v.Decimal.String()
		c.Decimal = &s
	case AttrString:
		s := v.Str
		c.Str = &s
	case AttrDate:
		s := v.Date.Format()
		c.Date = &s
	case AttrDateTime:
		s := v.DateTime.Format()
		c.DateTime = &s
	default:
		return Columns{}, svcerr.New(svcerr.KindInputValidation, "wire.ToColumns", "unspecified attribute type")
	}
	return c, nil
}

// FromColumns decodes storage columns back into a Value of the declared
// attrType. Numeric coercion is forbidden: a column populated for a type
// other than attrType fails with DataCorruption (spec.md §4.1).
func FromColumns(attrType AttrType, c Columns) (Value, error) {
	const op = "wire.FromColumns"
	switch attrType {
	case AttrBoolean:
		if c.Bool == nil {
			return Value{}, svcerr.New(svcerr.KindDataCorruption, op, "expected a BOOLEAN column to be populated")
		}
		return NewBool(*c.Bool), nil
	case AttrInteger:
		if c.Int == nil {
			return Value{}, svcerr.New(svcerr.KindDataCorruption, op, "expected an INTEGER column to be populated")
		}
		return NewInt(*c.Int), nil
	case AttrFloat:
		if c.Float == nil {
			return Value{}, svcerr.New(svcerr.KindDataCorruption, op, "expected a FLOAT column to be populated")
		}
		return NewFloat(*c.Float), nil
	case AttrDecimal:
		if c.Decimal == nil {
			return Value{}, svcerr.New(svcerr.KindDataCorruption, op, "expected a DECIMAL column to be populated")
		}
		d, err := decimal.NewFromString(*c.Decimal)
		if err != nil {
			return Value{}, svcerr.Wrap(svcerr.KindDataCorruption, op, "stored decimal text is not a valid number", err)
		}
		return NewDecimal(d), nil
	case AttrString:
		if c.Str == nil {
			return Value{}, svcerr.New(svcerr.KindDataCorruption, op, "expected a STRING column to be populated")
		}
		return NewString(*c.Str), nil
	case AttrDate:
		if c.Date == nil {
			return Value{}, svcerr.New(svcerr.KindDataCorruption, op, "expected a DATE column to be populated")
		}
		t, err := ParseTimestamp(*c.Date)
		if err != nil {
			return Value{}, svcerr.Wrap(svcerr.KindDataCorruption, op, "stored date text is not parseable", err)
		}
		return NewDate(t), nil
	case AttrDateTime:
		if c.DateTime == nil {
			return Value{}, svcerr.New(svcerr.KindDataCorruption, op, "expected a DATETIME column to be populated")
		}
		t, err := ParseTimestamp(*c.DateTime)
		if err != nil {
			return Value{}, svcerr.Wrap(svcerr.KindDataCorruption, op, "stored datetime text is not parseable", err)
		}
		return NewDateTime(t), nil
	default:
		return Value{}, svcerr.New(svcerr.KindInternal, op, "unspecified attribute type in storage row")
	}
}

// Equal reports whether two Values represent the same type and content.
// Array values are equal when their elements are equal in order.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type || v.Array != other.Array {
		return false
	}
	if v.Array {
		if len(v.Elements) != len(other.Elements) {
			return false
		}
		for i := range v.Elements {
			if !v.Elements[i].Equal(other.Elements[i]) {
				return false
			}
		}
		return true
	}
	switch v.Type {
	case AttrBoolean:
		return v.Bool == other.Bool
	case AttrInteger:
		return v.Int == other.Int
	case AttrFloat:
		return v.Float == other.Float
	case AttrDecimal:
		return v.Decimal.Equal(other.Decimal)
	case AttrString:
		return v.Str == other.Str
	case AttrDate:
		return v.Date.UTC.Equal(other.Date.UTC)
	case AttrDateTime:
		return v.DateTime.UTC.Equal(other.DateTime.UTC)
	default:
		return false
	}
}
