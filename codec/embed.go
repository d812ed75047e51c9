package codec

import (
	"fmt"

	"github.com/unkn0wn-root/containers"
)

type embedConfig struct {
	lengthC *containers.Integer
}

type EmbedOption func(*embedConfig)

// WithLength sets the integer container of the length prefix
// (default 4-byte unsigned little-endian).
func WithLength(lc *containers.Integer) EmbedOption {
	return func(c *embedConfig) {
		if lc != nil {
			c.lengthC = lc
		}
	}
}

// Embed wraps a Codec[V] as a variable-size container: the codec's bytes
// are written behind a length prefix, so the payload can sit inside rows,
// arrays and dictionaries like any other element. Decoded values are V.
func Embed[V any](c Codec[V], opts ...EmbedOption) (*containers.Custom, error) {
	if c == nil {
		return nil, &containers.ParamError{Param: "codec", Value: c, Want: "non-nil codec", Err: containers.ErrInvalidType}
	}
	cfg := embedConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.lengthC == nil {
		cfg.lengthC = containers.MustInteger(4, false)
	}
	return containers.NewCustom(&embedded[V]{codec: c, lengthC: cfg.lengthC})
}

type embedded[V any] struct {
	codec   Codec[V]
	lengthC *containers.Integer
}

func (e *embedded[V]) Fixed() bool           { return false }
func (e *embedded[V]) DataSize() (int, bool) { return 0, false }

func (e *embedded[V]) Encode(v any) (containers.Result, error) {
	tv, ok := v.(V)
	if !ok {
		var zero V
		return containers.Result{}, &containers.ParamError{
			Param: "value",
			Value: v,
			Want:  fmt.Sprintf("%T", zero),
			Err:   containers.ErrInvalidType,
		}
	}
	payload, err := e.codec.Encode(tv)
	if err != nil {
		return containers.Result{}, fmt.Errorf("codec: embed encode: %w", err)
	}
	lr, err := e.lengthC.Encode(len(payload))
	if err != nil {
		return containers.Result{}, err
	}
	data := make([]byte, 0, lr.DataSize+len(payload))
	data = append(data, lr.Data...)
	data = append(data, payload...)
	return containers.Result{
		Value:    tv,
		Data:     data,
		DataSize: len(data),
		SubSize:  containers.Node(containers.Leaf(lr.DataSize), containers.Leaf(len(payload))),
	}, nil
}

func (e *embedded[V]) Decode(data []byte, entire bool) (containers.Result, error) {
	lr, err := e.lengthC.Decode(data, false)
	if err != nil {
		return containers.Result{}, err
	}
	n, ok := payloadLen(lr.Value)
	if !ok {
		return containers.Result{}, &containers.ParamError{
			Param: "length",
			Value: lr.Value,
			Want:  "non-negative length",
			Err:   containers.ErrInvalidValue,
		}
	}
	if n > len(data)-lr.DataSize {
		return containers.Result{}, &containers.SizeMismatchError{Param: "data", Want: fmt.Sprint("minimum ", uint64(lr.DataSize)+uint64(n)), Got: len(data)}
	}
	total := lr.DataSize + n
	if entire && len(data) != total {
		return containers.Result{}, &containers.SizeMismatchError{Param: "data", Want: fmt.Sprint(total), Got: len(data)}
	}
	v, err := e.codec.Decode(data[lr.DataSize:total])
	if err != nil {
		return containers.Result{}, fmt.Errorf("codec: embed decode: %w", err)
	}
	return containers.Result{
		Value:    v,
		Data:     data[:total],
		DataSize: total,
		SubSize:  containers.Node(containers.Leaf(lr.DataSize), containers.Leaf(n)),
	}, nil
}

func payloadLen(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		if n < 0 || n > int64(^uint(0)>>1) {
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
