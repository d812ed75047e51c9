package genstore

import "testing"

func TestParseGen(t *testing.T) {
	cases := []struct {
		in      any
		want    uint64
		wantErr bool
	}{
		{nil, 0, false},
		{"7", 7, false},
		{[]byte("42"), 42, false},
		{int64(3), 3, false},
		{int64(-1), 0, true},
		{"x", 0, true},
		{uint8(9), 9, false},
	}
	for _, tc := range cases {
		got, err := parseGen(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("parseGen(%#v) = %d, %v", tc.in, got, err)
		}
	}
}
