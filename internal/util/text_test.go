package util

import "testing"

func TestEscapeSingleQuotes(t *testing.T) {
	got := EscapeSingleQuotes(`{"name":"o'brien"}`)
	if got != `{"name":"o\'brien"}` {
		t.Fatalf("got %q", got)
	}
	if UnescapeSingleQuotes(got) != `{"name":"o'brien"}` {
		t.Fatalf("round trip failed: %q", UnescapeSingleQuotes(got))
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]any{"b": 1, "a": 2, "c": nil}
	keys := SortedKeys(m)
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("got %v", keys)
	}
}

func TestToString(t *testing.T) {
	if ToString([]byte("x")) != "x" {
		t.Fatalf("bytes not converted")
	}
	if ToString(42) != "42" {
		t.Fatalf("int not converted")
	}
}
