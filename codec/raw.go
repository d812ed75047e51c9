package codec

import "github.com/unkn0wn-root/containers/internal/textenc"

// Bytes is an identity codec for []byte values.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String converts between string and []byte with no validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }

// Text is a codec for Go strings in a named text encoding; the zero value
// uses utf-8. Unknown encodings fail on every call.
type Text struct {
	Encoding string
}

func (c Text) lookup() textenc.Text {
	if c.Encoding == "" {
		return textenc.Lookup(textenc.Default)
	}
	return textenc.Lookup(c.Encoding)
}

func (c Text) Encode(s string) ([]byte, error) { return c.lookup().Encode(s) }
func (c Text) Decode(b []byte) (string, error) { return c.lookup().Decode(b) }
