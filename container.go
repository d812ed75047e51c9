package containers

import (
	"reflect"
	"strconv"
	"strings"
)

// Kind tags the closed set of container variants.
type Kind uint8

const (
	KindFixedStruct Kind = iota + 1
	KindInteger
	KindLengthPrefixedString
	KindTerminatedString
	KindArray
	KindLengthPrefixedArray
	KindRow
	KindOrderedDictionary
	KindCustom
)

var kindNames = [...]string{
	KindFixedStruct:          "fixed_struct",
	KindInteger:              "integer",
	KindLengthPrefixedString: "length_prefixed_string",
	KindTerminatedString:     "terminated_string",
	KindArray:                "array",
	KindLengthPrefixedArray:  "length_prefixed_array",
	KindRow:                  "row",
	KindOrderedDictionary:    "ordered_dictionary",
	KindCustom:               "custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Contract is the codec contract every container honors.
//
// Decode with entire=true asserts data is exactly one encoded instance.
// With entire=false data may carry trailing bytes of a sibling value;
// only the container's own prefix is consumed and its length is reported
// in Result.DataSize.
type Contract interface {
	Fixed() bool
	// DataSize is the encoded length, known only for fixed containers.
	DataSize() (int, bool)
	Encode(v any) (Result, error)
	Decode(data []byte, entire bool) (Result, error)
}

// Container is a Contract tagged with its variant.
type Container interface {
	Contract
	Kind() Kind
}

// Result is produced by every Encode and Decode call.
// DataSize == len(Data) and SubSize.Sum() == DataSize.
type Result struct {
	Value    any
	Data     []byte
	DataSize int
	SubSize  SubSize
}

// SubSize is the recursive breakdown of an encoded length: a leaf holds
// a width, a node holds one subtree per field or element.
type SubSize struct {
	width    int
	children []SubSize
	node     bool
}

func Leaf(width int) SubSize { return SubSize{width: width} }

func Node(children ...SubSize) SubSize {
	return SubSize{children: children, node: true}
}

func (s SubSize) IsLeaf() bool { return !s.node }

// Width is the leaf width; zero for nodes.
func (s SubSize) Width() int { return s.width }

func (s SubSize) Children() []SubSize { return s.children }

// Sum adds up every leaf.
func (s SubSize) Sum() int {
	if !s.node {
		return s.width
	}
	n := 0
	for _, c := range s.children {
		n += c.Sum()
	}
	return n
}

// String renders the tree as nested tuples, e.g. "(4, (2, 2))".
func (s SubSize) String() string {
	if !s.node {
		return strconv.Itoa(s.width)
	}
	parts := make([]string, len(s.children))
	for i, c := range s.children {
		parts[i] = c.String()
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Equal compares two trees structurally.
func (s SubSize) Equal(o SubSize) bool {
	if s.node != o.node {
		return false
	}
	if !s.node {
		return s.width == o.width
	}
	if len(s.children) != len(o.children) {
		return false
	}
	for i := range s.children {
		if !s.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// Tuple is the decoded sequence of a fixed combinator. Callers should
// treat it as read-only; variable combinators decode to []any instead.
type Tuple []any

// Validate rejects a nil container.
func Validate(c Contract) error {
	if c == nil {
		return invalidType("container", c, "non-nil container")
	}
	rv := reflect.ValueOf(c)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return invalidType("container", c, "non-nil container")
	}
	return nil
}

// seq presents items as Tuple for fixed containers and []any otherwise.
func seq(fixed bool, items []any) any {
	if fixed {
		return Tuple(items)
	}
	return items
}

// asSlice accepts []any, Tuple or any Go slice/array.
func asSlice(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case Tuple:
		return s, nil
	case nil:
		return nil, invalidType("value", v, "sequence")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return nil, invalidType("value", v, "sequence")
}

// trim applies the fixed-size rule shared by fixed containers: an entire
// buffer must match exactly, a prefix buffer is cut to size.
func trim(c Contract, data []byte, entire bool) ([]byte, error) {
	n, ok := c.DataSize()
	if !ok {
		return data, nil
	}
	if entire && len(data) != n {
		return nil, sizeMismatch("data", n, len(data))
	}
	if len(data) < n {
		return nil, sizeMismatch("data", n, len(data))
	}
	return data[:n], nil
}

func join(results []Result) ([]byte, []SubSize) {
	size := 0
	for _, r := range results {
		size += r.DataSize
	}
	data := make([]byte, 0, size)
	subs := make([]SubSize, len(results))
	for i, r := range results {
		data = append(data, r.Data...)
		subs[i] = r.SubSize
	}
	return data, subs
}
