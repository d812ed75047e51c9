package containers

import (
	"bytes"

	"github.com/unkn0wn-root/containers/internal/textenc"
)

type StringOption func(*stringConfig) error

type stringConfig struct {
	encoding   string
	lengthC    *Integer
	terminator []byte
}

// WithEncoding names the text encoding (default "utf-8"). Unknown names
// are reported by the first Encode or Decode, not by the constructor.
func WithEncoding(name string) StringOption {
	return func(c *stringConfig) error {
		c.encoding = name
		return nil
	}
}

// WithLengthCodec sets the integer container of the length prefix.
func WithLengthCodec(lc Container) StringOption {
	return func(c *stringConfig) error {
		ic, ok := lc.(*Integer)
		if !ok || ic == nil {
			return invalidType("sizec", lc, "*Integer")
		}
		c.lengthC = ic
		return nil
	}
}

// WithTerminator sets the byte sequence closing a TerminatedString.
func WithTerminator(stop []byte) StringOption {
	return func(c *stringConfig) error {
		if stop == nil {
			return invalidType("stop", stop, "[]byte")
		}
		if len(stop) == 0 {
			return invalidValue("stop", stop, "non-empty")
		}
		c.terminator = append([]byte{}, stop...)
		return nil
	}
}

func newStringConfig(opts []StringOption) (stringConfig, error) {
	cfg := stringConfig{encoding: textenc.Default}
	for _, o := range opts {
		if err := o(&cfg); err != nil {
			return stringConfig{}, err
		}
	}
	return cfg, nil
}

func textError(t textenc.Text, err error) error {
	return &ParamError{Param: "encoding", Value: t.Name(), Err: ErrInvalidValue, Cause: err}
}

// LengthPrefixedString is text preceded by its encoded byte length.
type LengthPrefixedString struct {
	text    textenc.Text
	lengthC *Integer
}

var _ Container = (*LengthPrefixedString)(nil)

// NewLengthPrefixedString defaults to a 4-byte unsigned little-endian
// length and utf-8 text.
func NewLengthPrefixedString(opts ...StringOption) (*LengthPrefixedString, error) {
	cfg, err := newStringConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.terminator != nil {
		return nil, invalidValue("stop", cfg.terminator, "no terminator on a length-prefixed string")
	}
	if cfg.lengthC == nil {
		cfg.lengthC = MustInteger(4, false)
	}
	return &LengthPrefixedString{text: textenc.Lookup(cfg.encoding), lengthC: cfg.lengthC}, nil
}

func (c *LengthPrefixedString) Kind() Kind            { return KindLengthPrefixedString }
func (c *LengthPrefixedString) Fixed() bool           { return false }
func (c *LengthPrefixedString) DataSize() (int, bool) { return 0, false }
func (c *LengthPrefixedString) Encoding() string      { return c.text.Name() }
func (c *LengthPrefixedString) LengthCodec() *Integer { return c.lengthC }

func (c *LengthPrefixedString) Encode(v any) (Result, error) {
	s, ok := v.(string)
	if !ok {
		return Result{}, invalidType("value", v, "string")
	}
	raw, err := c.text.Encode(s)
	if err != nil {
		return Result{}, textError(c.text, err)
	}
	lr, err := c.lengthC.Encode(len(raw))
	if err != nil {
		return Result{}, err
	}
	data := make([]byte, 0, lr.DataSize+len(raw))
	data = append(data, lr.Data...)
	data = append(data, raw...)
	return Result{
		Value:    s,
		Data:     data,
		DataSize: len(data),
		SubSize:  Node(Leaf(lr.DataSize), Leaf(len(raw))),
	}, nil
}

func (c *LengthPrefixedString) Decode(data []byte, entire bool) (Result, error) {
	lr, err := c.lengthC.Decode(data, false)
	if err != nil {
		return Result{}, err
	}
	n, ok := count(lr.Value)
	if !ok {
		return Result{}, invalidValue("length", lr.Value, "non-negative length")
	}
	total := lr.DataSize + n
	if total < lr.DataSize || (entire && len(data) != total) || len(data) < total {
		return Result{}, sizeMismatch("data", total, len(data))
	}
	data = data[:total]
	s, err := c.text.Decode(data[lr.DataSize:])
	if err != nil {
		return Result{}, textError(c.text, err)
	}
	return Result{
		Value:    s,
		Data:     data,
		DataSize: total,
		SubSize:  Node(Leaf(lr.DataSize), Leaf(n)),
	}, nil
}

// TerminatedString is text closed by a terminator byte sequence.
type TerminatedString struct {
	text textenc.Text
	stop []byte
}

var _ Container = (*TerminatedString)(nil)

// NewTerminatedString defaults to a single zero byte terminator and
// utf-8 text.
func NewTerminatedString(opts ...StringOption) (*TerminatedString, error) {
	cfg, err := newStringConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.lengthC != nil {
		return nil, invalidValue("sizec", cfg.lengthC, "no length codec on a terminated string")
	}
	if cfg.terminator == nil {
		cfg.terminator = []byte{0}
	}
	return &TerminatedString{text: textenc.Lookup(cfg.encoding), stop: cfg.terminator}, nil
}

func (c *TerminatedString) Kind() Kind            { return KindTerminatedString }
func (c *TerminatedString) Fixed() bool           { return false }
func (c *TerminatedString) DataSize() (int, bool) { return 0, false }
func (c *TerminatedString) Encoding() string      { return c.text.Name() }

// Terminator returns a copy of the closing sequence.
func (c *TerminatedString) Terminator() []byte { return append([]byte{}, c.stop...) }

func (c *TerminatedString) Encode(v any) (Result, error) {
	s, ok := v.(string)
	if !ok {
		return Result{}, invalidType("value", v, "string")
	}
	raw, err := c.text.Encode(s)
	if err != nil {
		return Result{}, textError(c.text, err)
	}
	data := make([]byte, 0, len(raw)+len(c.stop))
	data = append(data, raw...)
	data = append(data, c.stop...)
	return Result{
		Value:    s,
		Data:     data,
		DataSize: len(data),
		SubSize:  Node(Leaf(len(raw)), Leaf(len(c.stop))),
	}, nil
}

// Decode with entire=false stops at the shortest prefix that ends with
// the terminator. With entire=true the whole buffer must end with it and
// everything before that final terminator is text.
func (c *TerminatedString) Decode(data []byte, entire bool) (Result, error) {
	if entire {
		if !bytes.HasSuffix(data, c.stop) {
			return Result{}, &NotTerminatedError{Terminator: c.Terminator()}
		}
	} else {
		end := -1
		for l := len(c.stop); l <= len(data); l++ {
			if bytes.HasSuffix(data[:l], c.stop) {
				end = l
				break
			}
		}
		if end < 0 {
			return Result{}, &NotTerminatedError{Terminator: c.Terminator()}
		}
		data = data[:end]
	}
	textLen := len(data) - len(c.stop)
	s, err := c.text.Decode(data[:textLen])
	if err != nil {
		return Result{}, textError(c.text, err)
	}
	return Result{
		Value:    s,
		Data:     data,
		DataSize: len(data),
		SubSize:  Node(Leaf(textLen), Leaf(len(c.stop))),
	}, nil
}
