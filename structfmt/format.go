// Package structfmt parses compact struct-layout format strings into the
// ordered byte widths of their fields, and packs/unpacks single fields.
//
// A format is an optional byte-order marker followed by `[count]type`
// tokens separated by optional spaces:
//
//	"<4s2H"  -> little-endian, one 4-byte string field, two uint16 fields
//	"!IQ"    -> network order, uint32 then uint64
//
// For the lengthed type characters 's' (raw bytes), 'p' (Pascal string) and
// 'x' (padding) the count scales a single field. For every other type the
// count repeats the field, so "2H" is two fields while "2s" is one.
package structfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Order is a byte-order/alignment marker.
type Order byte

const (
	Native         Order = '@' // native sizes and byte order
	NativeStandard Order = '=' // native byte order, standard sizes
	Little         Order = '<'
	Big            Order = '>'
	Network        Order = '!'
)

// DefaultOrder applies when a format carries no marker.
const DefaultOrder = Little

// maxFields bounds the expansion of repeated counts ("100000000i").
const maxFields = 1 << 16

// maxWidth bounds a single field and the whole layout, in bytes.
const maxWidth = math.MaxInt32

var ErrInvalidFormat = errors.New("structfmt: invalid format")

// FormatError reports why a format string could not be parsed.
type FormatError struct {
	Format string
	Pos    int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("structfmt: invalid format %q at %d: %s", e.Format, e.Pos, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }

// IsOrder reports whether c is one of the recognized markers.
func IsOrder(c byte) bool {
	switch Order(c) {
	case Native, NativeStandard, Little, Big, Network:
		return true
	}
	return false
}

// ByteOrder is what fields are packed and unpacked with.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// ByteOrder returns the byte order of the marker.
func (o Order) ByteOrder() ByteOrder {
	switch o {
	case Little:
		return binary.LittleEndian
	case Big, Network:
		return binary.BigEndian
	default:
		return binary.NativeEndian
	}
}

func (o Order) String() string { return string(rune(o)) }

// IsLengthed reports whether the count of type t scales one field.
func IsLengthed(t byte) bool {
	return t == 's' || t == 'p' || t == 'x'
}

var standardSizes = map[byte]int{
	'x': 1, 'c': 1, 'b': 1, 'B': 1, '?': 1,
	'h': 2, 'H': 2, 'e': 2,
	'i': 4, 'I': 4, 'l': 4, 'L': 4, 'f': 4,
	'q': 8, 'Q': 8, 'd': 8,
	's': 1, 'p': 1,
}

// native C long / size_t / pointer width of the running platform
const nativeWord = strconv.IntSize / 8

func unitSize(o Order, t byte) (int, bool) {
	if o == Native {
		switch t {
		case 'l', 'L', 'n', 'N', 'P':
			return nativeWord, true
		}
	}
	n, ok := standardSizes[t]
	return n, ok
}

// Field is one parsed field of a layout.
type Field struct {
	Type  byte
	Count int // repeat count for lengthed types, 1 otherwise (0 for "0<type>")
	Size  int // byte width
}

// Values reports how many Go values the field consumes when packing.
func (f Field) Values() int {
	if f.Type == 'x' {
		return 0
	}
	if f.Count == 0 && !IsLengthed(f.Type) {
		return 0
	}
	return 1
}

// Layout is a parsed format.
type Layout struct {
	Order  Order
	Fields []Field
}

// Sizes returns the width of every field in order.
func (l Layout) Sizes() []int {
	out := make([]int, len(l.Fields))
	for i, f := range l.Fields {
		out[i] = f.Size
	}
	return out
}

// Size is the total byte width.
func (l Layout) Size() int {
	n := 0
	for _, f := range l.Fields {
		n += f.Size
	}
	return n
}

// Values is the number of Go values a pack of the layout consumes.
func (l Layout) Values() int {
	n := 0
	for _, f := range l.Fields {
		n += f.Values()
	}
	return n
}

// String renders the layout back into a normalized format string.
func (l Layout) String() string {
	var b strings.Builder
	b.WriteByte(byte(l.Order))
	for _, f := range l.Fields {
		if f.Count != 1 || IsLengthed(f.Type) {
			b.WriteString(strconv.Itoa(f.Count))
		}
		b.WriteByte(f.Type)
	}
	return b.String()
}

// Sizes is shorthand for Parse(format).Sizes().
func Sizes(format string) ([]int, error) {
	l, err := Parse(format)
	if err != nil {
		return nil, err
	}
	return l.Sizes(), nil
}

// Parse scans format left to right into a Layout.
func Parse(format string) (Layout, error) {
	l := Layout{Order: DefaultOrder}
	i, total := 0, 0
	if format != "" && IsOrder(format[0]) {
		l.Order = Order(format[0])
		i = 1
	}

	for i < len(format) {
		c := format[i]
		if c == ' ' {
			i++
			continue
		}
		if IsOrder(c) {
			return Layout{}, &FormatError{Format: format, Pos: i, Reason: "byte order marker must be first"}
		}

		start := i
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		count := 1
		if i > start {
			n, err := strconv.Atoi(format[start:i])
			if err != nil {
				return Layout{}, &FormatError{Format: format, Pos: start, Reason: "count out of range"}
			}
			count = n
		}
		if i == len(format) {
			return Layout{}, &FormatError{Format: format, Pos: start, Reason: "count without type"}
		}

		t := format[i]
		unit, ok := unitSize(l.Order, t)
		if !ok {
			reason := fmt.Sprintf("bad type char %q", t)
			if t == 'n' || t == 'N' || t == 'P' {
				reason = fmt.Sprintf("type char %q requires native mode", t)
			}
			return Layout{}, &FormatError{Format: format, Pos: i, Reason: reason}
		}

		if unit > 0 && count > maxWidth/unit {
			return Layout{}, &FormatError{Format: format, Pos: start, Reason: "field too wide"}
		}
		total += count * unit
		if total > maxWidth {
			return Layout{}, &FormatError{Format: format, Pos: start, Reason: "layout too wide"}
		}
		if count == 0 || IsLengthed(t) {
			l.Fields = append(l.Fields, Field{Type: t, Count: count, Size: count * unit})
		} else {
			if len(l.Fields)+count > maxFields {
				return Layout{}, &FormatError{Format: format, Pos: start, Reason: "too many fields"}
			}
			for range count {
				l.Fields = append(l.Fields, Field{Type: t, Count: 1, Size: unit})
			}
		}
		i++
	}
	return l, nil
}
