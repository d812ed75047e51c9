package textenc

import (
	"bytes"
	"errors"
	"testing"
)

func TestUTF8RoundTrip(t *testing.T) {
	for _, name := range []string{"utf-8", "UTF8", " utf_8 "} {
		tx := Lookup(name)
		if tx.Err() != nil {
			t.Fatalf("Lookup(%q): %v", name, tx.Err())
		}
		b, err := tx.Encode("héllo")
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(b, []byte("héllo")) {
			t.Fatalf("utf-8 bytes = %x", b)
		}
		s, err := tx.Decode(b)
		if err != nil || s != "héllo" {
			t.Fatalf("Decode = %q, %v", s, err)
		}
	}
}

func TestLatin1(t *testing.T) {
	tx := Lookup("latin-1")
	b, err := tx.Encode("é")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0xE9}) {
		t.Fatalf("latin-1 bytes = %x", b)
	}
	s, err := tx.Decode(b)
	if err != nil || s != "é" {
		t.Fatalf("Decode = %q, %v", s, err)
	}
}

func TestUnknownFailsOnUse(t *testing.T) {
	tx := Lookup("no-such-charset")
	if !errors.Is(tx.Err(), ErrUnknown) {
		t.Fatalf("Err() = %v", tx.Err())
	}
	if _, err := tx.Encode("x"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("Encode err = %v", err)
	}
	if _, err := tx.Decode([]byte("x")); !errors.Is(err, ErrUnknown) {
		t.Fatalf("Decode err = %v", err)
	}
}

func TestInvalidUTF8(t *testing.T) {
	tx := Lookup("utf-8")
	if _, err := tx.Decode([]byte{0xff, 0xfe}); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("Decode err = %v", err)
	}
	if _, err := tx.Encode(string([]byte{0xff})); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("Encode err = %v", err)
	}
}

func TestUTF16InvalidIsError(t *testing.T) {
	tx := Lookup("utf-16be")
	if tx.Err() != nil {
		t.Fatalf("Lookup: %v", tx.Err())
	}
	for _, b := range [][]byte{
		{0x00, 0x41, 0x00},       // odd length
		{0xD8, 0x00, 0x00, 0x41}, // unpaired surrogate
	} {
		if _, err := tx.Decode(b); !errors.Is(err, ErrInvalidText) {
			t.Fatalf("Decode(%x) err = %v", b, err)
		}
	}
	// an encoded U+FFFD is ordinary text
	s, err := tx.Decode([]byte{0x00, 0x41, 0xFF, 0xFD})
	if err != nil || s != "A\uFFFD" {
		t.Fatalf("Decode = %q, %v", s, err)
	}
}
