package glob

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"a.py", "a.py", true},
		{"a.py", "b.py", false},
		{"*.py", "a.py", true},
		{"*.py", "a.go", false},
		{"*.py", "dir/a.py", false},
		{"src/*.py", "src/a.py", true},
		{"src/*.py", "src/sub/a.py", false},
		{"src/*/util.go", "src/net/util.go", true},
		{"?.go", "a.go", true},
		{"?.go", "ab.go", false},
		{"[a-c].go", "b.go", true},
		{"[a-c].go", "d.go", false},
		{"[^a-c].go", "d.go", true},
		{"internal/*.go", "internal/http.go", true},
		{"internal/*.go", "pkg/http.go", false},
		{"\\*.go", "*.go", true},
		{"\\*.go", "a.go", false},
		{"*", "anything", true},
		{"*", "a/b", false},
	}
	for _, tt := range tests {
		got, err := Match(tt.pattern, tt.path)
		if err != nil {
			t.Errorf("Match(%q, %q) error: %v", tt.pattern, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestQuoteMeta(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/a.py", "src/a.py"},
		{"src/weird[1].py", `src/weird\[1\].py`},
		{"a*.go", `a\*.go`},
		{"who?.go", `who\?.go`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := QuoteMeta(tt.in); got != tt.want {
			t.Errorf("QuoteMeta(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	// Quoted patterns match exactly their source string and nothing else.
	for _, s := range []string{"src/weird[1].py", "a*.go", "who?.go"} {
		ok, err := Match(QuoteMeta(s), s)
		if err != nil {
			t.Errorf("Match(QuoteMeta(%q)) error: %v", s, err)
		}
		if !ok {
			t.Errorf("QuoteMeta(%q) does not match its own source", s)
		}
	}
	if ok, _ := Match(QuoteMeta("weird[1].py"), "weird1.py"); ok {
		t.Error("quoted class still matched as a class")
	}
}

func TestMatchBadPattern(t *testing.T) {
	if _, err := Match("[unclosed", "x"); err == nil {
		t.Fatal("expected error for unclosed class")
	}
	if _, err := Match("trailing\\", "x"); err == nil {
		t.Fatal("expected error for trailing escape")
	}
}

func TestPatternsOverlap(t *testing.T) {
	tests := []struct {
		a, b    string
		overlap bool
	}{
		{"*.go", "*.go", true},
		{"*.go", "*.rs", false},
		{"foo.go", "foo.go", true},
		{"foo.go", "bar.go", false},
		{"*.go", "main.go", true},
		{"internal/*.go", "internal/http.go", true},
		{"internal/*.go", "pkg/*.go", false},
		{"src/[a-z]*.go", "src/main.go", true},
		{"src/[A-Z]*.go", "src/main.go", false},
	}
	for _, tt := range tests {
		got, err := PatternsOverlap(tt.a, tt.b)
		if err != nil {
			t.Errorf("PatternsOverlap(%q, %q) error: %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.overlap {
			t.Errorf("PatternsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.overlap)
		}
	}
}

func TestValidateComplexity(t *testing.T) {
	if err := ValidateComplexity("internal/http/*.go"); err != nil {
		t.Fatalf("normal pattern rejected: %v", err)
	}

	complex := "?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?/?"
	if err := ValidateComplexity(complex); err == nil {
		t.Fatal("expected complexity error for pattern with many wildcards")
	}
}
