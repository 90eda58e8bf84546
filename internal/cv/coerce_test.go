package cv

import (
	"reflect"
	"testing"
)

func TestCoerceBullets(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"字符串列表", []string{"Led X", "Shipped Y"}, "• Led X\n• Shipped Y"},
		{"any 列表", []any{"Led X", "Shipped Y"}, "• Led X\n• Shipped Y"},
		{"空列表", []any{}, ""},
		{"已是展示串原样通过", "• Led X\n• Shipped Y", "• Led X\n• Shipped Y"},
		{"普通字符串", "五年后端经验", "五年后端经验"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CoerceBullets(tc.in); got != tc.want {
				t.Fatalf("CoerceBullets(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCoerceCommaList(t *testing.T) {
	if got := CoerceCommaList([]any{"Python", "Go", "Rust"}); got != "Python, Go, Rust" {
		t.Fatalf("got %q", got)
	}
	if got := CoerceCommaList("Python, Go, Rust"); got != "Python, Go, Rust" {
		t.Fatalf("string passthrough broken: %q", got)
	}
}

func TestSplitCommaListRoundTrip(t *testing.T) {
	joined := CoerceCommaList([]any{"Python", "Go", "Rust"})
	got := SplitCommaList(joined)
	want := []string{"Python", "Go", "Rust"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip = %v, want %v", got, want)
	}
}

func TestSplitCommaListDropsBlanks(t *testing.T) {
	got := SplitCommaList(" Python ,, Go ,  ")
	want := []string{"Python", "Go"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEnsureHash(t *testing.T) {
	cases := map[string]string{
		"2c3e50":   "#2c3e50",
		"#2c3e50":  "#2c3e50",
		"##2c3e50": "#2c3e50",
		"":         "",
	}
	for in, want := range cases {
		if got := EnsureHash(in); got != want {
			t.Errorf("EnsureHash(%q) = %q, want %q", in, got, want)
		}
	}
}
