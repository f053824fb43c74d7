// Package eval is the reference code-generation backend. It implements the
// ast.Visitor contract as a tree-walking evaluator over float64 values:
// a 'def' unit installs a function, an 'extern' unit binds a prototype to a
// native builtin, and an anonymous function executes immediately and yields
// its double result.
//
// The backend owns every semantic check the parser defers: unknown
// variables, unknown callees, arity mismatches, and redefinition.
package eval

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/ast"
	kerrors "github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/errors"
)

// builtin is a native implementation an extern prototype can bind to.
type builtin func(b *Backend, args []float64) float64

// builtins holds the native functions available to extern declarations,
// following the Kaleidoscope tradition of exposing libm plus the two
// tutorial I/O helpers.
var builtins = map[string]builtin{
	"sin":   func(_ *Backend, a []float64) float64 { return math.Sin(a[0]) },
	"cos":   func(_ *Backend, a []float64) float64 { return math.Cos(a[0]) },
	"tan":   func(_ *Backend, a []float64) float64 { return math.Tan(a[0]) },
	"exp":   func(_ *Backend, a []float64) float64 { return math.Exp(a[0]) },
	"log":   func(_ *Backend, a []float64) float64 { return math.Log(a[0]) },
	"sqrt":  func(_ *Backend, a []float64) float64 { return math.Sqrt(a[0]) },
	"floor": func(_ *Backend, a []float64) float64 { return math.Floor(a[0]) },
	"ceil":  func(_ *Backend, a []float64) float64 { return math.Ceil(a[0]) },
	"fabs":  func(_ *Backend, a []float64) float64 { return math.Abs(a[0]) },
	"pow":   func(_ *Backend, a []float64) float64 { return math.Pow(a[0], a[1]) },

	// putchard prints the character for the given code and returns 0.
	"putchard": func(b *Backend, a []float64) float64 {
		fmt.Fprintf(b.out, "%c", rune(a[0]))
		return 0
	},
	// printd prints a double followed by a newline and returns 0.
	"printd": func(b *Backend, a []float64) float64 {
		fmt.Fprintf(b.out, "%g\n", a[0])
		return 0
	},
}

// builtinArity records how many arguments each native builtin consumes, so
// an extern declaration with the wrong parameter count is rejected up front.
var builtinArity = map[string]int{
	"sin": 1, "cos": 1, "tan": 1, "exp": 1, "log": 1, "sqrt": 1,
	"floor": 1, "ceil": 1, "fabs": 1, "pow": 2, "putchard": 1, "printd": 1,
}

// Backend holds the compiled session state: defined functions, declared
// externs, and the name table of the function currently being evaluated.
// It is not safe for concurrent use.
type Backend struct {
	functions map[string]*ast.Function
	externs   map[string]*ast.Prototype
	locals    map[string]float64 // reset at the start of each function's evaluation
	out       io.Writer          // destination for putchard/printd
}

// New creates a backend writing builtin output to stdout.
func New() *Backend {
	return NewWithOutput(os.Stdout)
}

// NewWithOutput creates a backend writing builtin output to w.
func NewWithOutput(w io.Writer) *Backend {
	return &Backend{
		functions: make(map[string]*ast.Function),
		externs:   make(map[string]*ast.Prototype),
		out:       w,
	}
}

// Functions returns the names of every defined function and declared
// extern, for REPL completion and :funcs.
func (b *Backend) Functions() []string {
	names := make([]string, 0, len(b.functions)+len(b.externs))
	for name := range b.functions {
		names = append(names, name)
	}
	for name := range b.externs {
		names = append(names, name)
	}
	return names
}

// Reset discards every defined function and declared extern.
func (b *Backend) Reset() {
	b.functions = make(map[string]*ast.Function)
	b.externs = make(map[string]*ast.Prototype)
}

// VisitNumber yields the literal's value.
func (b *Backend) VisitNumber(nl *ast.NumberLiteral) (ast.Value, error) {
	return nl.Value, nil
}

// VisitVariable resolves a name against the current function's name table.
func (b *Backend) VisitVariable(ve *ast.VariableExpr) (ast.Value, error) {
	if val, ok := b.locals[ve.Name]; ok {
		return val, nil
	}
	return nil, kerrors.NewWithPosition("UNDEF-0001",
		ve.Token.Line, ve.Token.Column,
		map[string]any{"Name": ve.Name})
}

// VisitBinary evaluates both operands, left first, then applies the
// operator. Comparison yields 1.0 or 0.0; the value domain is all doubles.
func (b *Backend) VisitBinary(be *ast.BinaryExpr) (ast.Value, error) {
	lhs, err := b.evalExpr(be.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := b.evalExpr(be.Right)
	if err != nil {
		return nil, err
	}

	switch be.Op {
	case '+':
		return lhs + rhs, nil
	case '-':
		return lhs - rhs, nil
	case '*':
		return lhs * rhs, nil
	case '/':
		// Only reachable when '/' is added through configuration.
		return lhs / rhs, nil
	case '<':
		if lhs < rhs {
			return 1.0, nil
		}
		return 0.0, nil
	case '>':
		if lhs > rhs {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		// Reachable only when a configured operator has no backend
		// implementation; the parser already vetted the character.
		return nil, kerrors.NewWithPosition("PARSE-0003",
			be.Token.Line, be.Token.Column,
			map[string]any{"Operator": string(be.Op)})
	}
}

// VisitCall resolves the callee, checks arity, evaluates the arguments in
// the caller's scope, then runs the callee with a fresh name table.
func (b *Backend) VisitCall(ce *ast.CallExpr) (ast.Value, error) {
	params, err := b.calleeParams(ce)
	if err != nil {
		return nil, err
	}

	if len(ce.Args) != len(params) {
		return nil, kerrors.NewWithPosition("ARITY-0001",
			ce.Token.Line, ce.Token.Column,
			map[string]any{"Function": ce.Callee, "Got": len(ce.Args), "Want": len(params)})
	}

	args := make([]float64, len(ce.Args))
	for i, arg := range ce.Args {
		val, err := b.evalExpr(arg)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	if fn, ok := b.functions[ce.Callee]; ok {
		return b.invoke(fn, args)
	}

	return builtins[ce.Callee](b, args), nil
}

// calleeParams returns the parameter names of the function or extern the
// call resolves to.
func (b *Backend) calleeParams(ce *ast.CallExpr) ([]string, error) {
	if fn, ok := b.functions[ce.Callee]; ok {
		return fn.Proto.Params, nil
	}
	if proto, ok := b.externs[ce.Callee]; ok {
		if _, ok := builtins[ce.Callee]; !ok {
			// Declared but nothing native to link it against.
			return nil, kerrors.NewWithPosition("UNDEF-0002",
				ce.Token.Line, ce.Token.Column,
				map[string]any{"Name": ce.Callee})
		}
		return proto.Params, nil
	}
	return nil, kerrors.NewWithPosition("UNDEF-0002",
		ce.Token.Line, ce.Token.Column,
		map[string]any{"Name": ce.Callee})
}

// invoke runs a defined function with a name table holding only its
// parameters, restoring the caller's table afterwards.
func (b *Backend) invoke(fn *ast.Function, args []float64) (ast.Value, error) {
	saved := b.locals

	b.locals = make(map[string]float64, len(args))
	for i, name := range fn.Proto.Params {
		b.locals[name] = args[i]
	}

	val, err := b.evalExpr(fn.Body)
	b.locals = saved
	if err != nil {
		return nil, err
	}
	return val, nil
}

// VisitPrototype declares an extern. The native binding is looked up at
// call time, so declaring an unknown extern succeeds and only calling it
// fails.
func (b *Backend) VisitPrototype(proto *ast.Prototype) (ast.Value, error) {
	if _, exists := b.functions[proto.Name]; exists {
		return nil, kerrors.NewWithPosition("REDEF-0001",
			proto.Token.Line, proto.Token.Column,
			map[string]any{"Name": proto.Name})
	}
	if want, ok := builtinArity[proto.Name]; ok && len(proto.Params) != want {
		return nil, kerrors.NewWithPosition("ARITY-0001",
			proto.Token.Line, proto.Token.Column,
			map[string]any{"Function": proto.Name, "Got": len(proto.Params), "Want": want})
	}
	b.externs[proto.Name] = proto
	return proto, nil
}

// VisitFunction compiles a definition, or runs it immediately if it is an
// anonymous wrapper around a top-level expression.
func (b *Backend) VisitFunction(fn *ast.Function) (ast.Value, error) {
	if fn.IsAnonymous() {
		b.locals = make(map[string]float64)
		val, err := b.evalExpr(fn.Body)
		if err != nil {
			return nil, err
		}
		return val, nil
	}

	if _, exists := b.functions[fn.Proto.Name]; exists {
		return nil, kerrors.NewWithPosition("REDEF-0001",
			fn.Proto.Token.Line, fn.Proto.Token.Column,
			map[string]any{"Name": fn.Proto.Name})
	}
	if _, exists := b.externs[fn.Proto.Name]; exists {
		return nil, kerrors.NewWithPosition("REDEF-0001",
			fn.Proto.Token.Line, fn.Proto.Token.Column,
			map[string]any{"Name": fn.Proto.Name})
	}

	// Install before validating so the body may recurse into itself.
	b.functions[fn.Proto.Name] = fn

	scope := make(map[string]bool, len(fn.Proto.Params))
	for _, name := range fn.Proto.Params {
		scope[name] = true
	}
	if err := b.validate(fn.Body, scope); err != nil {
		delete(b.functions, fn.Proto.Name)
		return nil, err
	}

	return fn, nil
}

// validate checks a function body at definition time: every variable must
// be a parameter and every callee must exist with matching arity. Runtime
// holds no surprises after this.
func (b *Backend) validate(expr ast.Expr, scope map[string]bool) *kerrors.Error {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return nil

	case *ast.VariableExpr:
		if !scope[e.Name] {
			return kerrors.NewWithPosition("UNDEF-0001",
				e.Token.Line, e.Token.Column,
				map[string]any{"Name": e.Name})
		}
		return nil

	case *ast.BinaryExpr:
		if err := b.validate(e.Left, scope); err != nil {
			return err
		}
		return b.validate(e.Right, scope)

	case *ast.CallExpr:
		var want int
		if fn, ok := b.functions[e.Callee]; ok {
			want = len(fn.Proto.Params)
		} else if proto, ok := b.externs[e.Callee]; ok {
			want = len(proto.Params)
		} else {
			return kerrors.NewWithPosition("UNDEF-0002",
				e.Token.Line, e.Token.Column,
				map[string]any{"Name": e.Callee})
		}
		if len(e.Args) != want {
			return kerrors.NewWithPosition("ARITY-0001",
				e.Token.Line, e.Token.Column,
				map[string]any{"Function": e.Callee, "Got": len(e.Args), "Want": want})
		}
		for _, arg := range e.Args {
			if err := b.validate(arg, scope); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

// evalExpr dispatches through Accept and narrows the opaque handle back to
// the backend's float64 value domain.
func (b *Backend) evalExpr(expr ast.Expr) (float64, *kerrors.Error) {
	val, err := expr.Accept(b)
	if err != nil {
		return 0, err.(*kerrors.Error)
	}
	return val.(float64), nil
}
