package containers

// Row is a heterogeneous tuple: element i is encoded with elems[i].
type Row struct {
	elems []Container
	n     int // 0 = natural arity
	size  int
	fixed bool
}

var _ Container = (*Row)(nil)

// NewRow builds a row with natural arity. Such a row is never fixed-size,
// even if every element is; use NewFixedRow for that.
func NewRow(elems ...Container) (*Row, error) {
	if len(elems) == 0 {
		return nil, &MissingArgumentError{Min: 1}
	}
	for _, e := range elems {
		if err := Validate(e); err != nil {
			return nil, err
		}
	}
	r := &Row{elems: append([]Container(nil), elems...)}
	for _, e := range elems {
		es, ok := e.DataSize()
		if !ok {
			return r, nil
		}
		r.size += es
	}
	return r, nil
}

// NewFixedRow builds a row whose arity n is stated explicitly; it must
// equal len(elems). The row is fixed-size when every element is.
func NewFixedRow(n int, elems ...Container) (*Row, error) {
	r, err := NewRow(elems...)
	if err != nil {
		return nil, err
	}
	if n != len(elems) {
		return nil, invalidValue("n", n, "element count")
	}
	r.n = n
	r.fixed = true
	for _, e := range elems {
		r.fixed = r.fixed && e.Fixed()
	}
	return r, nil
}

func (c *Row) Kind() Kind  { return KindRow }
func (c *Row) Fixed() bool { return c.fixed }
func (c *Row) Arity() int  { return len(c.elems) }
func (c *Row) Elems() []Container {
	return append([]Container(nil), c.elems...)
}

func (c *Row) DataSize() (int, bool) {
	if !c.fixed {
		return 0, false
	}
	return c.size, true
}

func (c *Row) Encode(v any) (Result, error) {
	values, err := asSlice(v)
	if err != nil {
		return Result{}, err
	}
	if len(values) != len(c.elems) {
		return Result{}, sizeMismatch("value", len(c.elems), len(values))
	}
	results := make([]Result, len(values))
	for i, ev := range values {
		results[i], err = c.elems[i].Encode(ev)
		if err != nil {
			return Result{}, err
		}
	}
	return collect(results, c.fixed), nil
}

func (c *Row) Decode(data []byte, entire bool) (Result, error) {
	data, err := trim(c, data, entire)
	if err != nil {
		return Result{}, err
	}
	results := make([]Result, len(c.elems))
	off := 0
	for i, e := range c.elems {
		results[i], err = e.Decode(data[off:], false)
		if err != nil {
			return Result{}, err
		}
		off += results[i].DataSize
	}
	if entire && off != len(data) {
		return Result{}, sizeMismatch("data", off, len(data))
	}
	return collect(results, c.fixed), nil
}
