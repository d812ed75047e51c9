// Package wire frames store entries. Frames are described with containers:
//
//	record: magic(4) | ver(1) | kind(1=record) | gen(u64) | vlen(u32) | payload(vlen)
//	batch:  magic(4) | ver(1) | kind(2=batch)  | n(u32) |
//	        { keyLen(u16) | key | gen(u64) | vlen(u32) | payload } * n
//
// All integers are big-endian.
package wire

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/containers"
	"github.com/unkn0wn-root/containers/codec"
)

const (
	version     byte = 1
	kindRecord  byte = 1
	kindBatch   byte = 2
	maxKeyBytes      = 0xFFFF
)

var (
	ErrCorrupt = errors.New("containers: corrupt entry")
	magic4     = []byte("CONT")
)

var (
	// magic, version, kind, gen, payload length
	recordHeader = mustFixed("!4sBBQI")
	// magic, version, kind
	batchHeader = mustFixed("!4sBB")
	batchBody   = mustBatchBody()
)

func mustFixed(format string) *containers.FixedStruct {
	c, err := containers.NewFixedStruct(format)
	if err != nil {
		panic(err)
	}
	return c
}

func mustBatchBody() *containers.LengthPrefixedArray {
	be := containers.WithByteOrder('!')
	key, err := codec.Embed[string](codec.String{}, codec.WithLength(containers.MustInteger(2, false, be)))
	if err != nil {
		panic(err)
	}
	payload, err := codec.Embed[[]byte](codec.Bytes{}, codec.WithLength(containers.MustInteger(4, false, be)))
	if err != nil {
		panic(err)
	}
	row, err := containers.NewRow(key, containers.MustInteger(8, false, be), payload)
	if err != nil {
		panic(err)
	}
	arr, err := containers.NewLengthPrefixedArray(row, containers.WithCountCodec(containers.MustInteger(4, false, be)))
	if err != nil {
		panic(err)
	}
	return arr
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrCorrupt, err)
}

func checkHeader(v containers.Tuple, kind byte) bool {
	m, _ := v[0].([]byte)
	ver, _ := v[1].(uint8)
	k, _ := v[2].(uint8)
	return bytes.Equal(m, magic4) && ver == version && k == kind
}

func EncodeRecord(gen uint64, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > 0xFFFFFFFF {
		return nil, fmt.Errorf("containers: payload too large for frame: %d", len(payload))
	}
	h, err := recordHeader.Encode([]any{magic4, version, kindRecord, gen, len(payload)})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, h.DataSize+len(payload))
	out = append(out, h.Data...)
	return append(out, payload...), nil
}

// DecodeRecord returns the generation and a payload aliasing b.
// Trailing bytes after the payload are rejected.
func DecodeRecord(b []byte) (gen uint64, payload []byte, err error) {
	h, err := recordHeader.Decode(b, false)
	if err != nil {
		return 0, nil, corrupt(err)
	}
	v := h.Value.(containers.Tuple)
	if !checkHeader(v, kindRecord) {
		return 0, nil, ErrCorrupt
	}
	vlen := int(v[4].(uint32))
	rest := b[h.DataSize:]
	if vlen != len(rest) {
		return 0, nil, ErrCorrupt
	}
	return v[3].(uint64), rest, nil
}

type BatchItem struct {
	Key     string
	Gen     uint64
	Payload []byte
}

func EncodeBatch(items []BatchItem) ([]byte, error) {
	rows := make([]any, len(items))
	for i, it := range items {
		if l := len(it.Key); l == 0 || l > maxKeyBytes {
			return nil, fmt.Errorf("containers: invalid key length %d in batch", l)
		}
		rows[i] = []any{it.Key, it.Gen, it.Payload}
	}
	h, err := batchHeader.Encode([]any{magic4, version, kindBatch})
	if err != nil {
		return nil, err
	}
	body, err := batchBody.Encode(rows)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, h.DataSize+body.DataSize)
	out = append(out, h.Data...)
	return append(out, body.Data...), nil
}

func DecodeBatch(b []byte) ([]BatchItem, error) {
	h, err := batchHeader.Decode(b, false)
	if err != nil {
		return nil, corrupt(err)
	}
	if !checkHeader(h.Value.(containers.Tuple), kindBatch) {
		return nil, ErrCorrupt
	}
	body, err := batchBody.Decode(b[h.DataSize:], true)
	if err != nil {
		return nil, corrupt(err)
	}
	rows := body.Value.([]any)
	items := make([]BatchItem, len(rows))
	for i, r := range rows {
		f := r.([]any)
		key := f[0].(string)
		if key == "" {
			return nil, ErrCorrupt
		}
		items[i] = BatchItem{Key: key, Gen: f[1].(uint64), Payload: f[2].([]byte)}
	}
	return items, nil
}
