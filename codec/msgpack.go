package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack serializes values with vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Be mindful of struct tag differences vs JSON; use `msgpack:"fieldName"`
// tags if you need explicit control.
type Msgpack[V any] struct {
	// SortMapKeys makes map encoding deterministic.
	SortMapKeys bool
	// UseJSONTag falls back to `json` tags when a field has no msgpack tag.
	UseJSONTag bool
}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (c Msgpack[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(c.SortMapKeys)
	if c.UseJSONTag {
		enc.SetCustomStructTag("json")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	if c.UseJSONTag {
		dec.SetCustomStructTag("json")
	}
	err := dec.Decode(&v)
	return v, err
}
