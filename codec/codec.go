// Package codec bridges typed Go values and containers.
//
// Codec[V] is the byte-level serializer interface used by the store.
// Container[V] turns any container into a Codec[V]; Embed goes the other
// way and nests a Codec[V] payload inside container layouts behind a
// length prefix.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
