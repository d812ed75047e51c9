package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// JSON serializes values with encoding/json. The zero value is ready to use.
type JSON[V any] struct {
	// Strict rejects unknown object fields on Decode.
	Strict bool
}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

// Decode fails when b holds more than one JSON document.
func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(b))
	if c.Strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return v, errors.New("codec: trailing data after JSON value")
	}
	return v, nil
}
