package errors

import (
	"strings"
	"testing"
)

func TestNewFromCatalog(t *testing.T) {
	err := New("PARSE-0001", map[string]any{"Expected": "')'", "Got": ";"})

	if err.Class != ClassParse {
		t.Errorf("expected class %s, got %s", ClassParse, err.Class)
	}
	if err.Code != "PARSE-0001" {
		t.Errorf("expected code PARSE-0001, got %s", err.Code)
	}
	if err.Message != "expected ')', got ';'" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("NOPE-9999", map[string]any{"message": "something odd"})
	if err.Message != "something odd" {
		t.Errorf("expected fallback message, got %q", err.Message)
	}

	err = New("NOPE-9999", nil)
	if err.Message != "NOPE-9999" {
		t.Errorf("expected code as message, got %q", err.Message)
	}
}

func TestNewWithPosition(t *testing.T) {
	err := NewWithPosition("UNDEF-0001", 3, 7, map[string]any{"Name": "y"})

	if err.Line != 3 || err.Column != 7 {
		t.Errorf("expected 3:7, got %d:%d", err.Line, err.Column)
	}
	if err.Message != "unknown variable: y" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestStringFormat(t *testing.T) {
	err := NewWithPosition("ARITY-0001", 2, 5,
		map[string]any{"Function": "f", "Got": 1, "Want": 2})

	got := err.String()
	want := "line 2, column 5: wrong number of arguments to 'f'. got=1, want=2"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	withFile := err.WithFile("lib.k").String()
	if !strings.HasPrefix(withFile, "lib.k: ") {
		t.Errorf("expected file prefix, got %q", withFile)
	}
}

func TestWithFileDoesNotMutate(t *testing.T) {
	err := New("REDEF-0001", map[string]any{"Name": "f"})
	copied := err.WithFile("lib.k")

	if err.File != "" {
		t.Errorf("original mutated: %q", err.File)
	}
	if copied.File != "lib.k" {
		t.Errorf("expected copy to carry the file, got %q", copied.File)
	}
}

func TestPrettyString(t *testing.T) {
	err := NewWithPosition("PARSE-0005", 1, 3, nil)

	pretty := err.PrettyString()
	if !strings.HasPrefix(pretty, "Parse error") {
		t.Errorf("expected Parse error header, got %q", pretty)
	}
	if !strings.Contains(pretty, "line 1, column 3") {
		t.Errorf("expected position, got %q", pretty)
	}
	if !strings.Contains(pretty, "hint: remove the stray comma") {
		t.Errorf("expected hint line, got %q", pretty)
	}

	compile := New("UNDEF-0002", map[string]any{"Name": "g"}).PrettyString()
	if !strings.HasPrefix(compile, "Compile error") {
		t.Errorf("expected Compile error header, got %q", compile)
	}
}

func TestIsParseError(t *testing.T) {
	tests := []struct {
		code     string
		expected bool
	}{
		{"LEX-0001", true},
		{"PARSE-0003", true},
		{"UNDEF-0001", false},
		{"ARITY-0001", false},
		{"REDEF-0001", false},
	}

	for _, tt := range tests {
		if got := New(tt.code, nil).IsParseError(); got != tt.expected {
			t.Errorf("%s: expected IsParseError=%v, got %v", tt.code, tt.expected, got)
		}
	}
}

func TestErrorInterface(t *testing.T) {
	var err error = New("LEX-0001", map[string]any{"Literal": "1.2.3"})
	if !strings.Contains(err.Error(), "1.2.3") {
		t.Errorf("Error() should render the template, got %q", err.Error())
	}
}

func TestCatalogTemplatesRender(t *testing.T) {
	// Every catalog entry must render without leaving raw placeholders
	// when given its named fields.
	data := map[string]any{
		"Literal": "x", "Expected": "x", "Got": "x", "Operator": "x",
		"Name": "x", "Function": "x", "Want": 1,
	}

	for code := range ErrorCatalog {
		err := New(code, data)
		if strings.Contains(err.Message, "{{") {
			t.Errorf("%s: template did not render: %q", code, err.Message)
		}
		for _, hint := range err.Hints {
			if strings.Contains(hint, "{{") {
				t.Errorf("%s: hint did not render: %q", code, hint)
			}
		}
	}
}
