package containers

import "strconv"

// Array repeats one element container, either a fixed number of times
// or for as long as the buffer lasts.
type Array struct {
	elem Container
	n    int // 0 = open
}

var _ Container = (*Array)(nil)

// NewArray builds an open array: every element in the buffer is decoded.
func NewArray(elem Container) (*Array, error) {
	if err := Validate(elem); err != nil {
		return nil, err
	}
	return &Array{elem: elem}, nil
}

// NewFixedArray builds an array of exactly n elements; it is fixed-size
// when elem is.
func NewFixedArray(elem Container, n int) (*Array, error) {
	if err := Validate(elem); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, invalidValue("n", n, ">= 1")
	}
	return &Array{elem: elem, n: n}, nil
}

func (c *Array) Kind() Kind      { return KindArray }
func (c *Array) Elem() Container { return c.elem }

// Len is the element count, when set at construction.
func (c *Array) Len() (int, bool) { return c.n, c.n > 0 }

func (c *Array) Fixed() bool {
	return c.n > 0 && c.elem.Fixed()
}

func (c *Array) DataSize() (int, bool) {
	if !c.Fixed() {
		return 0, false
	}
	es, _ := c.elem.DataSize()
	return c.n * es, true
}

func (c *Array) Encode(v any) (Result, error) {
	values, err := asSlice(v)
	if err != nil {
		return Result{}, err
	}
	if c.n > 0 && len(values) != c.n {
		return Result{}, sizeMismatch("value", c.n, len(values))
	}
	return encodeElems(c.elem, values, c.Fixed())
}

func (c *Array) Decode(data []byte, entire bool) (Result, error) {
	data, err := trim(c, data, entire)
	if err != nil {
		return Result{}, err
	}
	var results []Result
	if c.elem.Fixed() {
		results, err = decodeChunks(c.elem, data, c.n)
	} else {
		results, err = decodeWalk(c.elem, data, c.n, c.n > 0, entire)
	}
	if err != nil {
		return Result{}, err
	}
	if c.n > 0 && len(results) != c.n {
		return Result{}, sizeMismatch("data", c.n, len(results))
	}
	return collect(results, c.Fixed()), nil
}

func encodeElems(elem Container, values []any, fixed bool) (Result, error) {
	results := make([]Result, len(values))
	for i, v := range values {
		r, err := elem.Encode(v)
		if err != nil {
			return Result{}, err
		}
		results[i] = r
	}
	return collect(results, fixed), nil
}

func collect(results []Result, fixed bool) Result {
	data, subs := join(results)
	values := make([]any, len(results))
	for i, r := range results {
		values[i] = r.Value
	}
	return Result{Value: seq(fixed, values), Data: data, DataSize: len(data), SubSize: Node(subs...)}
}

// decodeChunks splits data into equal element-width chunks and decodes
// each one as an entire buffer. want > 0 bounds the element count for
// zero-width elements.
func decodeChunks(elem Container, data []byte, want int) ([]Result, error) {
	es, _ := elem.DataSize()
	if es == 0 {
		if len(data) != 0 {
			return nil, sizeMismatch("data", 0, len(data))
		}
		results := make([]Result, want)
		for i := range results {
			r, err := elem.Decode(nil, true)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}
	if len(data)%es != 0 {
		return nil, sizeMismatch("data", "multiple of "+strconv.Itoa(es), len(data))
	}
	results := make([]Result, 0, len(data)/es)
	for off := 0; off < len(data); off += es {
		r, err := elem.Decode(data[off:off+es], true)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// decodeWalk decodes variable-size elements one after another, stopping
// after want elements when bounded, or when data runs out.
func decodeWalk(elem Container, data []byte, want int, bounded, entire bool) ([]Result, error) {
	results := []Result{}
	off := 0
	for off < len(data) {
		if bounded && len(results) == want {
			break
		}
		r, err := elem.Decode(data[off:], false)
		if err != nil {
			return nil, err
		}
		if r.DataSize == 0 {
			// an element consuming nothing would never advance
			return nil, sizeMismatch("data", "non-empty element", 0)
		}
		results = append(results, r)
		off += r.DataSize
	}
	if entire && off != len(data) {
		return nil, sizeMismatch("data", off, len(data))
	}
	return results, nil
}

// maxZeroWidth bounds a decoded count of zero-width elements, which no
// buffer length can bound.
const maxZeroWidth = 1 << 16

// LengthPrefixedArray is an array whose element count is encoded in front
// of the elements.
type LengthPrefixedArray struct {
	elem   Container
	countC *Integer
}

var _ Container = (*LengthPrefixedArray)(nil)

type ArrayOption func(*LengthPrefixedArray) error

// WithCountCodec sets the integer container of the count prefix
// (default 4-byte unsigned little-endian).
func WithCountCodec(cc Container) ArrayOption {
	return func(a *LengthPrefixedArray) error {
		ic, ok := cc.(*Integer)
		if !ok || ic == nil {
			return invalidType("sizec", cc, "*Integer")
		}
		a.countC = ic
		return nil
	}
}

func NewLengthPrefixedArray(elem Container, opts ...ArrayOption) (*LengthPrefixedArray, error) {
	if err := Validate(elem); err != nil {
		return nil, err
	}
	a := &LengthPrefixedArray{elem: elem}
	for _, o := range opts {
		if err := o(a); err != nil {
			return nil, err
		}
	}
	if a.countC == nil {
		a.countC = MustInteger(4, false)
	}
	return a, nil
}

func (c *LengthPrefixedArray) Kind() Kind            { return KindLengthPrefixedArray }
func (c *LengthPrefixedArray) Fixed() bool           { return false }
func (c *LengthPrefixedArray) DataSize() (int, bool) { return 0, false }
func (c *LengthPrefixedArray) Elem() Container       { return c.elem }
func (c *LengthPrefixedArray) CountCodec() *Integer  { return c.countC }

func (c *LengthPrefixedArray) Encode(v any) (Result, error) {
	values, err := asSlice(v)
	if err != nil {
		return Result{}, err
	}
	cr, err := c.countC.Encode(len(values))
	if err != nil {
		return Result{}, err
	}
	er, err := encodeElems(c.elem, values, false)
	if err != nil {
		return Result{}, err
	}
	return c.result(cr, er), nil
}

func (c *LengthPrefixedArray) Decode(data []byte, entire bool) (Result, error) {
	cr, err := c.countC.Decode(data, false)
	if err != nil {
		return Result{}, err
	}
	n, ok := count(cr.Value)
	if !ok {
		return Result{}, invalidValue("count", cr.Value, "non-negative count")
	}
	edata := data[cr.DataSize:]

	var results []Result
	if c.elem.Fixed() {
		es, _ := c.elem.DataSize()
		if es == 0 && n > maxZeroWidth {
			return Result{}, invalidValue("count", n, "<= "+strconv.Itoa(maxZeroWidth)+" for zero-width elements")
		}
		if es > 0 && n > len(edata)/es {
			return Result{}, sizeMismatch("data", "minimum "+strconv.Itoa(cr.DataSize+n*es), len(data))
		}
		size := n * es
		if entire && size != len(edata) {
			return Result{}, sizeMismatch("data", cr.DataSize+size, len(data))
		}
		results, err = decodeChunks(c.elem, edata[:size], n)
	} else {
		if n > len(edata) {
			// every variable element takes at least one byte
			return Result{}, sizeMismatch("data", "minimum "+strconv.Itoa(cr.DataSize+n), len(data))
		}
		results, err = decodeWalk(c.elem, edata, n, true, false)
		if err == nil && len(results) != n {
			err = sizeMismatch("data", n, len(results))
		}
		if err == nil && entire {
			used := 0
			for _, r := range results {
				used += r.DataSize
			}
			if used != len(edata) {
				err = sizeMismatch("data", cr.DataSize+used, len(data))
			}
		}
	}
	if err != nil {
		return Result{}, err
	}
	return c.result(cr, collect(results, false)), nil
}

func (c *LengthPrefixedArray) result(cr, er Result) Result {
	data := make([]byte, 0, cr.DataSize+er.DataSize)
	data = append(data, cr.Data...)
	data = append(data, er.Data...)
	return Result{
		Value:    er.Value,
		Data:     data,
		DataSize: len(data),
		SubSize:  Node(Leaf(cr.DataSize), er.SubSize),
	}
}
