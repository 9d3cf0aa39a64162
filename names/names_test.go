package names

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"API.Example.COM", "api.example.com"},
		{"*.mail.example.com", "mail.example.com"},
		{"  www.example.com.  ", "www.example.com"},
		{"example.com.", "example.com"},
		{"*.", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Clean(tc.in); got != tc.want {
			t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanNeverEmitsWildcardOrUppercase(t *testing.T) {
	inputs := []string{"*.Foo.Example.COM", "*.BAR.example.com.", "MiXeD.Example.Com"}
	for _, in := range inputs {
		got := Clean(in)
		if strings.HasPrefix(got, "*.") {
			t.Fatalf("Clean(%q) kept wildcard marker: %q", in, got)
		}
		if got != strings.ToLower(got) {
			t.Fatalf("Clean(%q) not lowercase: %q", in, got)
		}
		if strings.HasSuffix(got, ".") {
			t.Fatalf("Clean(%q) kept trailing dot: %q", in, got)
		}
	}
}

func TestInScope(t *testing.T) {
	cases := []struct {
		domain string
		name   string
		want   bool
	}{
		{"example.com", "api.example.com", true},
		{"example.com", "a.b.example.com", true},
		{"example.com", "example.com", false},
		{"example.com", "Example.COM.", false},
		{"example.com", "notexample.com", false},
		{"example.com", "example.org", false},
		{"example.com", "mail.google.com", false},
		{"example.com", "", false},
	}

	for _, tc := range cases {
		if got := InScope(tc.domain, tc.name); got != tc.want {
			t.Fatalf("InScope(%q, %q) = %v, want %v", tc.domain, tc.name, got, tc.want)
		}
	}
}

func TestRandomLabelIsUnpredictable(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		label := RandomLabel()
		if len(label) != 16 {
			t.Fatalf("unexpected label length: %q", label)
		}
		if _, dup := seen[label]; dup {
			t.Fatalf("duplicate label generated: %q", label)
		}
		seen[label] = struct{}{}
	}
}
