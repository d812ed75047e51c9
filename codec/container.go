package codec

import (
	"fmt"

	"github.com/unkn0wn-root/containers"
)

// Container adapts a container to Codec[V]. Decode requires the whole
// buffer to be one encoded value and the decoded value to be a V:
// use string for string containers, containers.Tuple or []any for
// sequences, *containers.OrderedMap for dictionaries, or any.
type Container[V any] struct {
	C containers.Container
}

var _ Codec[any] = Container[any]{}

func (c Container[V]) Encode(v V) ([]byte, error) {
	r, err := c.C.Encode(v)
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

func (c Container[V]) Decode(b []byte) (V, error) {
	var zero V
	r, err := c.C.Decode(b, true)
	if err != nil {
		return zero, err
	}
	v, ok := r.Value.(V)
	if !ok {
		return zero, &containers.ParamError{
			Param: "value",
			Value: r.Value,
			Want:  fmt.Sprintf("%T", zero),
			Err:   containers.ErrInvalidType,
		}
	}
	return v, nil
}
