package containers

// Custom adapts a user implementation of Contract into a Container.
type Custom struct {
	impl Contract
}

var _ Container = (*Custom)(nil)

func NewCustom(impl Contract) (*Custom, error) {
	if err := Validate(impl); err != nil {
		return nil, err
	}
	if c, ok := impl.(*Custom); ok {
		return c, nil
	}
	return &Custom{impl: impl}, nil
}

func (c *Custom) Kind() Kind                   { return KindCustom }
func (c *Custom) Fixed() bool                  { return c.impl.Fixed() }
func (c *Custom) DataSize() (int, bool)        { return c.impl.DataSize() }
func (c *Custom) Contract() Contract           { return c.impl }
func (c *Custom) Encode(v any) (Result, error) { return c.impl.Encode(v) }

func (c *Custom) Decode(data []byte, entire bool) (Result, error) {
	return c.impl.Decode(data, entire)
}
