package stratum

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueType identifies which variant a Value holds.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInteger
	TypeReal
	TypeText
	TypeBlob
)

func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeText:
		return "text"
	case TypeBlob:
		return "blob"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Value is a database scalar: null, 64-bit integer, 64-bit float, UTF-8
// text, or a byte blob. The zero Value is Null.
type Value struct {
	typ ValueType
	i   int64
	f   float64
	s   string
	b   []byte
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Integer returns an integer Value.
func Integer(i int64) Value { return Value{typ: TypeInteger, i: i} }

// Real returns a floating-point Value.
func Real(f float64) Value { return Value{typ: TypeReal, f: f} }

// Text returns a text Value.
func Text(s string) Value { return Value{typ: TypeText, s: s} }

// Blob returns a blob Value. The byte slice is not copied.
func Blob(b []byte) Value { return Value{typ: TypeBlob, b: b} }

// ValueOf converts a native Go scalar into a Value.
//
// Booleans map to Integer 0/1, integer types to Integer, floats to Real,
// strings to Text, byte slices to Blob, time.Time to RFC 3339 Text and nil
// to Null. A uint64 above math.MaxInt64 is rejected rather than truncated.
func ValueOf(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		if v {
			return Integer(1), nil
		}
		return Integer(0), nil
	case int:
		return Integer(int64(v)), nil
	case int8:
		return Integer(int64(v)), nil
	case int16:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case int64:
		return Integer(v), nil
	case uint:
		return ValueOf(uint64(v))
	case uint8:
		return Integer(int64(v)), nil
	case uint16:
		return Integer(int64(v)), nil
	case uint32:
		return Integer(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, TypeMismatchError("uint64 %d overflows a 64-bit signed integer", v)
		}
		return Integer(int64(v)), nil
	case float32:
		return Real(float64(v)), nil
	case float64:
		return Real(v), nil
	case string:
		return Text(v), nil
	case []byte:
		return Blob(v), nil
	case time.Time:
		return Text(v.UTC().Format(time.RFC3339Nano)), nil
	default:
		return Value{}, TypeMismatchError("unsupported parameter type %T", v)
	}
}

// Type returns the variant the Value holds.
func (v Value) Type() ValueType { return v.typ }

// IsNull reports whether the Value is null.
func (v Value) IsNull() bool { return v.typ == TypeNull }

// Int64 returns the Value as a 64-bit signed integer.
//
// Real values convert only when integral; Text values convert when their
// content parses as a base-10 integer. Anything lossy fails.
func (v Value) Int64() (int64, error) {
	switch v.typ {
	case TypeInteger:
		return v.i, nil
	case TypeReal:
		if v.f != math.Trunc(v.f) || v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return 0, TypeMismatchError("real %v is not representable as an integer", v.f)
		}
		return int64(v.f), nil
	case TypeText:
		i, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0, TypeMismatchError("text %q is not an integer", v.s)
		}
		return i, nil
	default:
		return 0, TypeMismatchError("cannot read %s value as integer", v.typ)
	}
}

// Float64 returns the Value as a 64-bit float. Integer values widen.
func (v Value) Float64() (float64, error) {
	switch v.typ {
	case TypeInteger:
		return float64(v.i), nil
	case TypeReal:
		return v.f, nil
	case TypeText:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, TypeMismatchError("text %q is not a number", v.s)
		}
		return f, nil
	default:
		return 0, TypeMismatchError("cannot read %s value as float", v.typ)
	}
}

// Bool returns the Value as a boolean. Only Integer 0 and 1 convert.
func (v Value) Bool() (bool, error) {
	if v.typ != TypeInteger || (v.i != 0 && v.i != 1) {
		return false, TypeMismatchError("cannot read %s value as bool", v.typ)
	}
	return v.i == 1, nil
}

// Text returns the Value as a string. Blob bytes are not interpreted as
// text; numeric values format themselves.
func (v Value) Text() (string, error) {
	switch v.typ {
	case TypeText:
		return v.s, nil
	case TypeInteger:
		return strconv.FormatInt(v.i, 10), nil
	case TypeReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	default:
		return "", TypeMismatchError("cannot read %s value as text", v.typ)
	}
}

// Bytes returns the Value as a byte slice. Text converts to its UTF-8
// bytes; other variants fail.
func (v Value) Bytes() ([]byte, error) {
	switch v.typ {
	case TypeBlob:
		return v.b, nil
	case TypeText:
		return []byte(v.s), nil
	default:
		return nil, TypeMismatchError("cannot read %s value as bytes", v.typ)
	}
}

// Native returns the Go-native representation of the Value: nil, int64,
// float64, string or []byte.
func (v Value) Native() any {
	switch v.typ {
	case TypeInteger:
		return v.i
	case TypeReal:
		return v.f
	case TypeText:
		return v.s
	case TypeBlob:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two Values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeInteger:
		return v.i == o.i
	case TypeReal:
		return v.f == o.f
	case TypeText:
		return v.s == o.s
	case TypeBlob:
		return string(v.b) == string(o.b)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "NULL"
	case TypeInteger:
		return strconv.FormatInt(v.i, 10)
	case TypeReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeText:
		return v.s
	case TypeBlob:
		return fmt.Sprintf("x'%x'", v.b)
	default:
		return "?"
	}
}
