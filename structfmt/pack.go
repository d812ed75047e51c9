package structfmt

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/x448/float16"
)

var (
	ErrValueType  = errors.New("structfmt: wrong value type")
	ErrValueRange = errors.New("structfmt: value out of range")
)

// ValueError reports a value that cannot be packed into a field.
type ValueError struct {
	Type  byte
	Value any
	Err   error // ErrValueType or ErrValueRange
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("structfmt: cannot pack %v (%T) as %q: %v", e.Value, e.Value, e.Type, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

func isSigned(t byte) bool {
	switch t {
	case 'b', 'h', 'i', 'l', 'q', 'n':
		return true
	}
	return false
}

func isInteger(t byte) bool {
	switch t {
	case 'b', 'B', 'h', 'H', 'i', 'I', 'l', 'L', 'q', 'Q', 'n', 'N', 'P':
		return true
	}
	return false
}

// Pack appends the encoding of v as field f to dst.
// Padding fields ignore v.
func Pack(dst []byte, o Order, f Field, v any) ([]byte, error) {
	bo := o.ByteOrder()
	fail := func(err error) ([]byte, error) {
		return dst, &ValueError{Type: f.Type, Value: v, Err: err}
	}

	switch {
	case f.Type == 'x':
		return append(dst, make([]byte, f.Size)...), nil

	case f.Size == 0 && !IsLengthed(f.Type):
		return dst, nil

	case isInteger(f.Type):
		bits := f.Size * 8
		var u uint64
		if isSigned(f.Type) {
			n, err := toInt(v)
			if err != nil {
				return fail(err)
			}
			if bits < 64 && (n < -(int64(1)<<(bits-1)) || n > int64(1)<<(bits-1)-1) {
				return fail(ErrValueRange)
			}
			u = uint64(n)
		} else {
			n, err := toUint(v)
			if err != nil {
				return fail(err)
			}
			if bits < 64 && n > uint64(1)<<bits-1 {
				return fail(ErrValueRange)
			}
			u = n
		}
		switch f.Size {
		case 1:
			return append(dst, byte(u)), nil
		case 2:
			return bo.AppendUint16(dst, uint16(u)), nil
		case 4:
			return bo.AppendUint32(dst, uint32(u)), nil
		default:
			return bo.AppendUint64(dst, u), nil
		}

	case f.Type == 'c':
		switch c := v.(type) {
		case byte:
			return append(dst, c), nil
		case []byte:
			if len(c) != 1 {
				return fail(ErrValueRange)
			}
			return append(dst, c[0]), nil
		case string:
			if len(c) != 1 {
				return fail(ErrValueRange)
			}
			return append(dst, c[0]), nil
		}
		return fail(ErrValueType)

	case f.Type == '?':
		b, ok := v.(bool)
		if !ok {
			return fail(ErrValueType)
		}
		if b {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil

	case f.Type == 'e' || f.Type == 'f' || f.Type == 'd':
		x, err := toFloat(v)
		if err != nil {
			return fail(err)
		}
		switch f.Type {
		case 'e':
			h := float16.Fromfloat32(float32(x))
			if h.IsInf(0) && !math.IsInf(x, 0) {
				return fail(ErrValueRange)
			}
			return bo.AppendUint16(dst, h.Bits()), nil
		case 'f':
			if !math.IsInf(x, 0) && !math.IsNaN(x) && math.Abs(x) > math.MaxFloat32 {
				return fail(ErrValueRange)
			}
			return bo.AppendUint32(dst, math.Float32bits(float32(x))), nil
		default:
			return bo.AppendUint64(dst, math.Float64bits(x)), nil
		}

	case f.Type == 's' || f.Type == 'p':
		var raw []byte
		switch b := v.(type) {
		case []byte:
			raw = b
		case string:
			raw = []byte(b)
		default:
			return fail(ErrValueType)
		}
		out := make([]byte, f.Size)
		if f.Type == 's' {
			copy(out, raw)
			return append(dst, out...), nil
		}
		if f.Size == 0 {
			return dst, nil
		}
		n := min(len(raw), f.Size-1, 255)
		out[0] = byte(n)
		copy(out[1:], raw[:n])
		return append(dst, out...), nil
	}
	return fail(ErrValueType)
}

// Unpack decodes field f from b, which must be exactly f.Size bytes.
// Padding fields yield nil.
func Unpack(o Order, f Field, b []byte) (any, error) {
	if len(b) != f.Size {
		return nil, fmt.Errorf("structfmt: field %q needs %d bytes, got %d", f.Type, f.Size, len(b))
	}
	bo := o.ByteOrder()

	switch {
	case f.Type == 'x':
		return nil, nil
	case f.Size == 0 && !IsLengthed(f.Type):
		return nil, nil
	}

	switch f.Type {
	case 'b':
		return int8(b[0]), nil
	case 'B':
		return b[0], nil
	case 'c':
		return b[0], nil
	case '?':
		return b[0] != 0, nil
	case 'h':
		return int16(bo.Uint16(b)), nil
	case 'H':
		return bo.Uint16(b), nil
	case 'e':
		return float16.Frombits(bo.Uint16(b)).Float32(), nil
	case 'f':
		return math.Float32frombits(bo.Uint32(b)), nil
	case 'd':
		return math.Float64frombits(bo.Uint64(b)), nil
	case 's':
		return append([]byte{}, b...), nil
	case 'p':
		if f.Size == 0 {
			return []byte{}, nil
		}
		n := min(int(b[0]), f.Size-1)
		return append([]byte{}, b[1:1+n]...), nil
	}

	// remaining integer types, width depends on mode
	signed := isSigned(f.Type)
	switch f.Size {
	case 4:
		if signed {
			return int32(bo.Uint32(b)), nil
		}
		return bo.Uint32(b), nil
	case 8:
		if signed {
			return int64(bo.Uint64(b)), nil
		}
		return bo.Uint64(b), nil
	}
	return nil, fmt.Errorf("structfmt: cannot unpack %q of %d bytes", f.Type, f.Size)
}

func toInt(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, ErrValueRange
		}
		return int64(u), nil
	}
	return 0, ErrValueType
}

func toUint(v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < 0 {
			return 0, ErrValueRange
		}
		return uint64(n), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	}
	return 0, ErrValueType
}

func toFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, ErrValueType
}
