// Package textenc resolves free-form text encoding names ("utf-8",
// "latin-1", "utf-16") to golang.org/x/text encodings.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

const Default = "utf-8"

var (
	ErrUnknown     = errors.New("textenc: unknown encoding")
	ErrInvalidText = errors.New("textenc: text not valid in encoding")
)

// common spellings that are not IANA names
var aliases = map[string]string{
	"utf8":    "utf-8",
	"latin-1": "iso-8859-1",
	"latin1":  "iso-8859-1",
	"l1":      "iso-8859-1",
	"ascii":   "us-ascii",
	"utf16":   "utf-16",
	"cp1252":  "windows-1252",
}

// Text converts between Go strings and encoded bytes.
// A Text with an unresolvable name reports the failure on every call.
// Decode is strict: input the encoding cannot represent is ErrInvalidText,
// never silently replaced.
type Text struct {
	name string
	enc  encoding.Encoding // nil for utf-8
	err  error
}

// Lookup never fails; resolution errors surface on Encode/Decode.
func Lookup(name string) Text {
	t := Text{name: name}
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if a, ok := aliases[key]; ok {
		key = a
	}
	if key == "utf-8" {
		return t
	}
	if key == "" {
		t.err = fmt.Errorf("%w: empty name", ErrUnknown)
		return t
	}
	if e, err := ianaindex.IANA.Encoding(key); err == nil && e != nil {
		t.enc = e
		return t
	}
	if e, err := htmlindex.Get(key); err == nil && e != nil {
		t.enc = e
		return t
	}
	t.err = fmt.Errorf("%w: %q", ErrUnknown, name)
	return t
}

func (t Text) Name() string { return t.name }

// Err is the resolution error, if any.
func (t Text) Err() error { return t.err }

func (t Text) Encode(s string) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.enc == nil {
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidText, t.name)
		}
		return []byte(s), nil
	}
	b, err := t.enc.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidText, t.name, err)
	}
	return []byte(b), nil
}

func (t Text) Decode(b []byte) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	if t.enc == nil {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: %s", ErrInvalidText, t.name)
		}
		return string(b), nil
	}
	s, err := t.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidText, t.name, err)
	}
	if n := bytes.Count(s, replacement); n > 0 && t.encodedReplacements(b) < n {
		return "", fmt.Errorf("%w: %s: undecodable bytes", ErrInvalidText, t.name)
	}
	return string(s), nil
}

var replacement = []byte(string(utf8.RuneError))

// encodedReplacements counts U+FFFD characters actually present in b.
// x/text decoders substitute U+FFFD for invalid input instead of failing,
// so any replacement beyond this count marks undecodable bytes.
func (t Text) encodedReplacements(b []byte) int {
	// encode behind a prefix so a leading BOM is not part of the result
	pre, err := t.enc.NewEncoder().String("a")
	if err != nil {
		return 0
	}
	full, err := t.enc.NewEncoder().String("a" + string(utf8.RuneError))
	if err != nil || len(full) <= len(pre) {
		return 0
	}
	return bytes.Count(b, []byte(full[len(pre):]))
}
