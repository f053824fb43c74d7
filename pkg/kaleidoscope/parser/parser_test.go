package parser

import (
	"strings"
	"testing"

	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/ast"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/lexer"
)

func parseSingleExpr(t *testing.T, input string) ast.Expr {
	t.Helper()

	p := New(lexer.New(input))
	unit, err := p.Next()
	if err != nil {
		t.Fatalf("input %q: unexpected error: %s", input, err)
	}

	expr, ok := unit.(ast.Expr)
	if !ok {
		t.Fatalf("input %q: expected an expression unit, got %T", input, unit)
	}
	return expr
}

// exprString renders the tree with explicit grouping so tests can assert
// its exact shape.
func exprString(t *testing.T, input string) string {
	t.Helper()
	return parseSingleExpr(t, input).String()
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a+b*c", "(a + (b * c))"},
		{"a*b+c", "((a * b) + c)"},
		{"a<b+c", "(a < (b + c))"},
		{"a+b<c*d", "((a + b) < (c * d))"},
		{"a*b*c+d", "(((a * b) * c) + d)"},
	}

	for _, tt := range tests {
		if got := exprString(t, tt.input); got != tt.expected {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestLeftAssociativity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a-b-c", "((a - b) - c)"},
		{"a+b+c+d", "(((a + b) + c) + d)"},
		{"a+b-c", "((a + b) - c)"},
	}

	for _, tt := range tests {
		if got := exprString(t, tt.input); got != tt.expected {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(a+b)*c", "((a + b) * c)"},
		{"a*(b+c)", "(a * (b + c))"},
		{"((a))", "a"},
	}

	for _, tt := range tests {
		if got := exprString(t, tt.input); got != tt.expected {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestCallExpressions(t *testing.T) {
	expr := parseSingleExpr(t, "f(a,b)")
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected *ast.CallExpr, got %T", expr)
	}
	if call.Callee != "f" {
		t.Errorf("expected callee %q, got %q", "f", call.Callee)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
	for i, name := range []string{"a", "b"} {
		v, ok := call.Args[i].(*ast.VariableExpr)
		if !ok || v.Name != name {
			t.Errorf("arg %d: expected variable %q, got %s", i, name, call.Args[i].String())
		}
	}
}

func TestEmptyCall(t *testing.T) {
	expr := parseSingleExpr(t, "f()")
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected *ast.CallExpr, got %T", expr)
	}
	if len(call.Args) != 0 {
		t.Errorf("expected no args, got %d", len(call.Args))
	}
}

func TestIdentifierDisambiguation(t *testing.T) {
	// An identifier not followed by '(' is a variable reference.
	expr := parseSingleExpr(t, "f + 1")
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected *ast.BinaryExpr, got %T", expr)
	}
	if _, ok := bin.Left.(*ast.VariableExpr); !ok {
		t.Errorf("expected variable on the left, got %T", bin.Left)
	}
}

func TestNumberLiteral(t *testing.T) {
	expr := parseSingleExpr(t, "3.5")
	num, ok := expr.(*ast.NumberLiteral)
	if !ok {
		t.Fatalf("expected *ast.NumberLiteral, got %T", expr)
	}
	if num.Value != 3.5 {
		t.Errorf("expected 3.5, got %v", num.Value)
	}
}

func TestDefinitionEndToEnd(t *testing.T) {
	p := New(lexer.New("def test(x) (1+2+x)*(x+(1+2))"))
	unit, err := p.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	fn, ok := unit.(*ast.Function)
	if !ok {
		t.Fatalf("expected *ast.Function, got %T", unit)
	}
	if fn.Proto.Name != "test" {
		t.Errorf("expected name %q, got %q", "test", fn.Proto.Name)
	}
	if len(fn.Proto.Params) != 1 || fn.Proto.Params[0] != "x" {
		t.Errorf("expected params [x], got %v", fn.Proto.Params)
	}

	expected := "(((1 + 2) + x) * (x + (1 + 2)))"
	if got := fn.Body.String(); got != expected {
		t.Errorf("body: expected %s, got %s", expected, got)
	}
}

func TestExtern(t *testing.T) {
	p := New(lexer.New("extern atan2(y x)"))
	unit, err := p.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	proto, ok := unit.(*ast.Prototype)
	if !ok {
		t.Fatalf("expected *ast.Prototype, got %T", unit)
	}
	if proto.Name != "atan2" {
		t.Errorf("expected name %q, got %q", "atan2", proto.Name)
	}
	if len(proto.Params) != 2 || proto.Params[0] != "y" || proto.Params[1] != "x" {
		t.Errorf("expected params [y x], got %v", proto.Params)
	}
}

func TestTopLevelLoop(t *testing.T) {
	input := `
# a definition, an extern, a stray semicolon, and two expressions
def f(x) x+1
extern sin(a);
;
f(1)
2*3
`
	program := New(lexer.New(input)).ParseProgram()

	if len(program.Units) != 4 {
		t.Fatalf("expected 4 units, got %d", len(program.Units))
	}
	if _, ok := program.Units[0].(*ast.Function); !ok {
		t.Errorf("unit 0: expected *ast.Function, got %T", program.Units[0])
	}
	if _, ok := program.Units[1].(*ast.Prototype); !ok {
		t.Errorf("unit 1: expected *ast.Prototype, got %T", program.Units[1])
	}
	if _, ok := program.Units[2].(*ast.CallExpr); !ok {
		t.Errorf("unit 2: expected *ast.CallExpr, got %T", program.Units[2])
	}
	if _, ok := program.Units[3].(*ast.BinaryExpr); !ok {
		t.Errorf("unit 3: expected *ast.BinaryExpr, got %T", program.Units[3])
	}
}

func TestCommentsDoNotChangeAST(t *testing.T) {
	plain := New(lexer.New("def f(x) x*2")).ParseProgram()
	noisy := New(lexer.New("def # c1\n f # c2\n(x) # c3\n x*2 # c4")).ParseProgram()

	if plain.String() != noisy.String() {
		t.Errorf("ASTs differ:\n%s\nvs\n%s", plain.String(), noisy.String())
	}
}

func TestMissingClosingParen(t *testing.T) {
	tests := []struct {
		input       string
		wantMessage string
	}{
		{"(1+2", "expected ')'"},
		{"f(1,2", "expected ')' to close the argument list"},
		{"def f(x y 1+1", "expected ')' to close the parameter list"},
	}

	for _, tt := range tests {
		_, err := New(lexer.New(tt.input)).Next()
		if err == nil {
			t.Fatalf("input %q: expected an error", tt.input)
		}
		if !strings.Contains(err.Message, tt.wantMessage) {
			t.Errorf("input %q: expected message containing %q, got %q",
				tt.input, tt.wantMessage, err.Message)
		}
	}
}

func TestExpectedTokenErrorNamesBoth(t *testing.T) {
	_, err := New(lexer.New("(1+2;")).Next()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Message, "expected ')'") || !strings.Contains(err.Message, "';'") {
		t.Errorf("error should name expected and found tokens, got %q", err.Message)
	}
	if err.Code != "PARSE-0001" {
		t.Errorf("expected code PARSE-0001, got %s", err.Code)
	}
}

func TestStrayCommasRejected(t *testing.T) {
	for _, input := range []string{"f(,1)", "f(1,,2)"} {
		_, err := New(lexer.New(input)).Next()
		if err == nil {
			t.Fatalf("input %q: expected an error", input)
		}
		if err.Code != "PARSE-0005" {
			t.Errorf("input %q: expected code PARSE-0005, got %s (%s)", input, err.Code, err.Message)
		}
	}
}

func TestDuplicateParameterRejected(t *testing.T) {
	_, err := New(lexer.New("def f(x x) x")).Next()
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Code != "PARSE-0004" {
		t.Errorf("expected code PARSE-0004, got %s (%s)", err.Code, err.Message)
	}
}

func TestMalformedNumberLiteral(t *testing.T) {
	_, err := New(lexer.New("1.2.3")).Next()
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Code != "LEX-0001" {
		t.Errorf("expected code LEX-0001, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "1.2.3") {
		t.Errorf("error should name the bad run, got %q", err.Message)
	}
}

func TestRecoveryAtNextSemicolon(t *testing.T) {
	// The first unit is broken; the units after the ';' still parse.
	p := New(lexer.New("def f(x x+1; 2*3; 4+5"))

	_, err := p.Next()
	if err == nil {
		t.Fatal("expected an error for the broken definition")
	}

	unit, err := p.Next()
	if err != nil {
		t.Fatalf("expected recovery, got error: %s", err)
	}
	if unit == nil || unit.String() != "(2 * 3)" {
		t.Fatalf("expected (2 * 3) after recovery, got %v", unit)
	}

	unit, err = p.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if unit == nil || unit.String() != "(4 + 5)" {
		t.Fatalf("expected (4 + 5), got %v", unit)
	}

	if len(p.Errors()) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(p.Errors()))
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := New(lexer.New("def f(x)\n  x +")).Next()
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Line != 2 {
		t.Errorf("expected error on line 2, got line %d", err.Line)
	}
}

func TestInjectedPrecedenceTable(t *testing.T) {
	table := DefaultPrecedence()
	table['/'] = 40
	table['%'] = 40

	p := NewWithPrecedence(lexer.New("a+b/c%d"), table)
	unit, err := p.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := "(a + ((b / c) % d))"
	if got := unit.String(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestUnknownOperatorEndsExpression(t *testing.T) {
	// '/' is not in the default table, so the expression stops after 'a'
	// and '/' begins a new (failing) unit.
	p := New(lexer.New("a/b"))

	unit, err := p.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if unit.String() != "a" {
		t.Errorf("expected unit 'a', got %s", unit.String())
	}

	_, err = p.Next()
	if err == nil {
		t.Fatal("expected an error for the dangling '/'")
	}
}

func TestPrecedenceTableIsCopied(t *testing.T) {
	table := DefaultPrecedence()
	p := NewWithPrecedence(lexer.New("a*b+c"), table)

	// Mutating the caller's table after construction must not affect
	// parsing.
	table['*'] = 1
	delete(table, '+')

	unit, err := p.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := unit.String(); got != "((a * b) + c)" {
		t.Errorf("expected ((a * b) + c), got %s", got)
	}
}

func TestEmptyBuffer(t *testing.T) {
	for _, input := range []string{"", "   \n\t", "# only a comment", ";;;"} {
		p := New(lexer.New(input))
		unit, err := p.Next()
		if err != nil {
			t.Errorf("input %q: unexpected error: %s", input, err)
		}
		if unit != nil {
			t.Errorf("input %q: expected no units, got %s", input, unit.String())
		}
	}
}
