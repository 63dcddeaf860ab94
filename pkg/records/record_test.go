package records

import "testing"

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	r := Record{"a": "1", "b": nil}
	c := r.Clone()
	c["a"] = "2"

	if r["a"] != "1" {
		t.Fatalf("clone mutated original: %v", r["a"])
	}
	if _, ok := c["b"]; !ok {
		t.Fatalf("clone lost nil-valued key")
	}
}

func TestHas(t *testing.T) {
	t.Parallel()

	r := Record{"s": "x", "empty": "", "nil": nil, "n": int64(3)}

	cases := []struct {
		key  string
		want bool
	}{
		{"s", true},
		{"n", true},
		{"empty", false},
		{"nil", false},
		{"absent", false},
	}
	for _, tc := range cases {
		if got := r.Has(tc.key); got != tc.want {
			t.Errorf("Has(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	r := Record{"s": "x", "n": int64(3)}
	if got := r.String("s"); got != "x" {
		t.Fatalf("String(s) = %q", got)
	}
	if got := r.String("n"); got != "" {
		t.Fatalf("String(n) = %q, want empty for non-string", got)
	}
	if got := r.String("absent"); got != "" {
		t.Fatalf("String(absent) = %q", got)
	}
}
