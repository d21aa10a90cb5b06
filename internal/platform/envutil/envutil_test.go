package envutil

import "testing"

func TestTypedLookups(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "12")
	t.Setenv("ENVUTIL_BAD_INT", "twelve")
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	t.Setenv("ENVUTIL_BOOL", "yes")
	t.Setenv("ENVUTIL_STRING", "  warehouse  ")

	if got := Int("ENVUTIL_INT", 1); got != 12 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if got := Int64("ENVUTIL_INT", 1); got != 12 {
		t.Fatalf("Int64: got %d", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: got %v", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool: expected true")
	}
	if Bool("ENVUTIL_MISSING", false) {
		t.Fatalf("Bool default: expected false")
	}
	if got := String("ENVUTIL_STRING", "x"); got != "warehouse" {
		t.Fatalf("String: got %q", got)
	}
	if got := String("ENVUTIL_MISSING", "x"); got != "x" {
		t.Fatalf("String default: got %q", got)
	}
}
