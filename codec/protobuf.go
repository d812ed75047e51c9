package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf serializes proto messages. Construct with NewProtobuf.
type Protobuf[T proto.Message] struct {
	new           func() T // e.g. func() *mypb.User { return &mypb.User{} }
	deterministic bool
}

// NewProtobuf takes a constructor for empty messages. Deterministic
// marshaling orders map entries so equal messages encode equally.
func NewProtobuf[T proto.Message](ctor func() T, deterministic bool) Protobuf[T] {
	return Protobuf[T]{new: ctor, deterministic: deterministic}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: c.deterministic}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, errors.New("codec: protobuf codec has no message constructor")
	}
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
