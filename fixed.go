package containers

import (
	"errors"

	"github.com/unkn0wn-root/containers/structfmt"
)

// FixedStruct packs a tuple of values with a struct-layout format.
// Formats without a marker are little-endian with no padding.
type FixedStruct struct {
	layout structfmt.Layout
	sub    SubSize
	size   int
}

var _ Container = (*FixedStruct)(nil)

func NewFixedStruct(format string) (*FixedStruct, error) {
	l, err := structfmt.Parse(format)
	if err != nil {
		return nil, err
	}
	widths := l.Sizes()
	leaves := make([]SubSize, len(widths))
	for i, w := range widths {
		leaves[i] = Leaf(w)
	}
	return &FixedStruct{layout: l, sub: Node(leaves...), size: l.Size()}, nil
}

func (c *FixedStruct) Kind() Kind               { return KindFixedStruct }
func (c *FixedStruct) Fixed() bool              { return true }
func (c *FixedStruct) DataSize() (int, bool)    { return c.size, true }
func (c *FixedStruct) Format() string           { return c.layout.String() }
func (c *FixedStruct) Layout() structfmt.Layout { return c.layout }

// Encode takes one value per non-padding field.
func (c *FixedStruct) Encode(v any) (Result, error) {
	values, err := asSlice(v)
	if err != nil {
		return Result{}, err
	}
	if want := c.layout.Values(); len(values) != want {
		return Result{}, sizeMismatch("value", want, len(values))
	}
	data := make([]byte, 0, c.size)
	canon := make([]any, 0, len(values))
	i := 0
	for _, f := range c.layout.Fields {
		var fv any
		if f.Values() == 1 {
			fv = values[i]
			i++
		}
		start := len(data)
		data, err = structfmt.Pack(data, c.layout.Order, f, fv)
		if err != nil {
			return Result{}, packError(err)
		}
		if f.Values() == 1 {
			// store what Decode would yield
			u, err := structfmt.Unpack(c.layout.Order, f, data[start:])
			if err != nil {
				return Result{}, err
			}
			canon = append(canon, u)
		}
	}
	return Result{Value: Tuple(canon), Data: data, DataSize: len(data), SubSize: c.sub}, nil
}

func (c *FixedStruct) Decode(data []byte, entire bool) (Result, error) {
	data, err := trim(c, data, entire)
	if err != nil {
		return Result{}, err
	}
	values := make([]any, 0, c.layout.Values())
	off := 0
	for _, f := range c.layout.Fields {
		b := data[off : off+f.Size]
		off += f.Size
		if f.Values() == 0 {
			continue
		}
		v, err := structfmt.Unpack(c.layout.Order, f, b)
		if err != nil {
			return Result{}, err
		}
		values = append(values, v)
	}
	return Result{Value: Tuple(values), Data: data, DataSize: len(data), SubSize: c.sub}, nil
}

func packError(err error) error {
	var ve *structfmt.ValueError
	if !errors.As(err, &ve) {
		return err
	}
	sentinel := ErrInvalidValue
	if errors.Is(ve.Err, structfmt.ErrValueType) {
		sentinel = ErrInvalidType
	}
	return &ParamError{Param: "value", Value: ve.Value, Want: "field " + string(ve.Type), Err: sentinel, Cause: ve}
}

var integerFormats = map[int][2]byte{
	1: {'B', 'b'},
	2: {'H', 'h'},
	4: {'I', 'i'},
	8: {'Q', 'q'},
}

// Integer is a single fixed-width integer field.
// Values decode as int64 when signed and uint64 otherwise.
type Integer struct {
	fs     *FixedStruct
	width  int
	signed bool
}

var _ Container = (*Integer)(nil)

type IntegerOption func(*integerConfig)

type integerConfig struct {
	order structfmt.Order
}

// WithByteOrder selects the marker the integer is packed with.
func WithByteOrder(o structfmt.Order) IntegerOption {
	return func(c *integerConfig) { c.order = o }
}

func NewInteger(width int, signed bool, opts ...IntegerOption) (*Integer, error) {
	chars, ok := integerFormats[width]
	if !ok {
		return nil, invalidValue("size", width, "1, 2, 4 or 8")
	}
	cfg := integerConfig{order: structfmt.DefaultOrder}
	for _, o := range opts {
		o(&cfg)
	}
	if !structfmt.IsOrder(byte(cfg.order)) {
		return nil, invalidValue("order", string(rune(cfg.order)), "one of @=<>!")
	}
	t := chars[0]
	if signed {
		t = chars[1]
	}
	fs, err := NewFixedStruct(string([]byte{byte(cfg.order), t}))
	if err != nil {
		return nil, err
	}
	fs.sub = Leaf(width)
	return &Integer{fs: fs, width: width, signed: signed}, nil
}

// MustInteger is like NewInteger but panics on error.
// Handy for package-level variables in tests/examples.
func MustInteger(width int, signed bool, opts ...IntegerOption) *Integer {
	c, err := NewInteger(width, signed, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Integer) Kind() Kind            { return KindInteger }
func (c *Integer) Fixed() bool           { return true }
func (c *Integer) DataSize() (int, bool) { return c.width, true }
func (c *Integer) Width() int            { return c.width }
func (c *Integer) Signed() bool          { return c.signed }
func (c *Integer) Format() string        { return c.fs.Format() }

func (c *Integer) Encode(v any) (Result, error) {
	r, err := c.fs.Encode([]any{v})
	if err != nil {
		return Result{}, err
	}
	return c.norm(r), nil
}

func (c *Integer) Decode(data []byte, entire bool) (Result, error) {
	r, err := c.fs.Decode(data, entire)
	if err != nil {
		return Result{}, err
	}
	return c.norm(r), nil
}

func (c *Integer) norm(r Result) Result {
	v := r.Value.(Tuple)[0]
	if c.signed {
		switch n := v.(type) {
		case int8:
			r.Value = int64(n)
		case int16:
			r.Value = int64(n)
		case int32:
			r.Value = int64(n)
		case int64:
			r.Value = n
		}
	} else {
		switch n := v.(type) {
		case uint8:
			r.Value = uint64(n)
		case uint16:
			r.Value = uint64(n)
		case uint32:
			r.Value = uint64(n)
		case uint64:
			r.Value = n
		}
	}
	return r
}

// count reads a non-negative integer value produced by Integer.Decode.
func count(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		if n < 0 || int64(int(n)) != n {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > uint64(^uint(0)>>1) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
