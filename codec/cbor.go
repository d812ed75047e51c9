package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions configures NewCBOR.
type CBOROptions struct {
	// Deterministic selects RFC 8949 core deterministic encoding, so equal
	// values always produce equal bytes. Otherwise preferred unsorted
	// encoding is used.
	Deterministic bool
	// MaxNestedLevels bounds decode nesting (0 = library default).
	MaxNestedLevels int
	// MaxArrayElements and MaxMapPairs bound decoded collection sizes
	// (0 = library default).
	MaxArrayElements int
	MaxMapPairs      int
	// StrictFields rejects map keys with no matching struct field.
	StrictFields bool
}

// CBOR serializes values with fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
// Time values are encoded as RFC3339Nano.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](o CBOROptions) (CBOR[V], error) {
	var eo cbor.EncOptions
	if o.Deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	do := cbor.DecOptions{
		MaxNestedLevels:  o.MaxNestedLevels,
		MaxArrayElements: o.MaxArrayElements,
		MaxMapPairs:      o.MaxMapPairs,
	}
	if o.StrictFields {
		do.ExtraReturnErrors = cbor.ExtraDecErrorUnknownField
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
// Handy for package-level variables in tests/examples.
func MustCBOR[V any](o CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](o)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Decode fails when b holds anything after the first CBOR item.
func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
