// File: internal/jsonpatch/pointer_test.go
// Brief: Pointer escaping edge cases and decode round-trips.

package jsonpatch

import (
	"reflect"
	"testing"
)

func TestEncodePointer(t *testing.T) {
	cases := []struct {
		name   string
		tokens []any
		want   string
	}{
		{"empty is root", nil, "/"},
		{"plain keys", []any{"spec", "replicas"}, "/spec/replicas"},
		{"index tokens", []any{"spec", "ports", 0, "port"}, "/spec/ports/0/port"},
		{"slash in key", []any{"metadata", "labels", "a/b"}, "/metadata/labels/a~1b"},
		{"tilde in key", []any{"metadata", "annotations", "x~y"}, "/metadata/annotations/x~0y"},
		{"tilde and slash together", []any{"a~b/c"}, "/a~0b~1c"},
		{"tilde before slash stays unescaped once", []any{"~/"}, "/~0~1"},
		{"already escaped looking key", []any{"~1"}, "/~01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EncodePointer(tc.tokens); got != tc.want {
				t.Fatalf("EncodePointer(%v) = %q, want %q", tc.tokens, got, tc.want)
			}
		})
	}
}

func TestDecodePointerRoundTrip(t *testing.T) {
	tokens := []any{"metadata", "labels", "a~b/c", "x~0y", "plain"}
	decoded, err := DecodePointer(EncodePointer(tokens))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"metadata", "labels", "a~b/c", "x~0y", "plain"}
	if !reflect.DeepEqual(decoded, want) {
		t.Fatalf("round trip mismatch: got %v, want %v", decoded, want)
	}
}

func TestDecodePointerRejectsRelative(t *testing.T) {
	if _, err := DecodePointer("spec/replicas"); err == nil {
		t.Fatal("expected error for pointer without leading slash")
	}
	if _, err := DecodePointer(""); err == nil {
		t.Fatal("expected error for empty pointer")
	}
}
