// Package ast defines the abstract syntax tree produced by the parser.
//
// The tree is passive data: nodes are immutable once built, each parent
// exclusively owns its children, and the only behavior a node carries is
// dispatching itself to a code-generation backend through the Visitor
// contract.
package ast

import (
	"bytes"
	"strings"

	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Expr represents expression nodes
type Expr interface {
	Node
	exprNode()
	Accept(v Visitor) (Value, error)
}

// Value is the opaque handle a backend returns for a visited node. Its
// concrete type is owned entirely by the backend.
type Value any

// Visitor is the contract a code-generation backend exposes: one operation
// per node variant. The backend receives the node and visits children
// itself through Accept, so subtrees are compiled before the node that
// contains them.
type Visitor interface {
	VisitNumber(*NumberLiteral) (Value, error)
	VisitVariable(*VariableExpr) (Value, error)
	VisitBinary(*BinaryExpr) (Value, error)
	VisitCall(*CallExpr) (Value, error)
	VisitPrototype(*Prototype) (Value, error)
	VisitFunction(*Function) (Value, error)
}

// Program represents all top-level units parsed from one source buffer, in
// source order. A unit is a *Function (def), a *Prototype (extern), or a
// bare Expr.
type Program struct {
	Units []Node
}

func (p *Program) TokenLiteral() string {
	if len(p.Units) > 0 {
		return p.Units[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer

	for i, u := range p.Units {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(u.String())
	}

	return out.String()
}

// NumberLiteral represents numeric literals like 1 or 3.14
type NumberLiteral struct {
	Token lexer.Token // the lexer.NUMBER token
	Value float64
}

func (nl *NumberLiteral) exprNode()            {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) String() string       { return nl.Token.Literal }

func (nl *NumberLiteral) Accept(v Visitor) (Value, error) { return v.VisitNumber(nl) }

// VariableExpr represents a reference to a named value
type VariableExpr struct {
	Token lexer.Token // the lexer.IDENT token
	Name  string
}

func (ve *VariableExpr) exprNode()            {}
func (ve *VariableExpr) TokenLiteral() string { return ve.Token.Literal }
func (ve *VariableExpr) String() string       { return ve.Name }

func (ve *VariableExpr) Accept(v Visitor) (Value, error) { return v.VisitVariable(ve) }

// BinaryExpr represents a binary-operator expression. Op is always a
// character present in the parser's precedence table at construction time.
type BinaryExpr struct {
	Token lexer.Token // the operator SYMBOL token
	Op    byte
	Left  Expr
	Right Expr
}

func (be *BinaryExpr) exprNode()            {}
func (be *BinaryExpr) TokenLiteral() string { return be.Token.Literal }
func (be *BinaryExpr) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(be.Left.String())
	out.WriteString(" ")
	out.WriteByte(be.Op)
	out.WriteString(" ")
	out.WriteString(be.Right.String())
	out.WriteString(")")

	return out.String()
}

func (be *BinaryExpr) Accept(v Visitor) (Value, error) { return v.VisitBinary(be) }

// CallExpr represents a function call
type CallExpr struct {
	Token  lexer.Token // the callee's IDENT token
	Callee string
	Args   []Expr
}

func (ce *CallExpr) exprNode()            {}
func (ce *CallExpr) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpr) String() string {
	var out bytes.Buffer

	args := make([]string, len(ce.Args))
	for i, a := range ce.Args {
		args[i] = a.String()
	}

	out.WriteString(ce.Callee)
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}

func (ce *CallExpr) Accept(v Visitor) (Value, error) { return v.VisitCall(ce) }

// Prototype represents a function signature: its name and parameter names.
// A bare extern declaration is a Prototype unit on its own.
type Prototype struct {
	Token  lexer.Token // the name's IDENT token
	Name   string
	Params []string
}

func (pt *Prototype) TokenLiteral() string { return pt.Token.Literal }
func (pt *Prototype) String() string {
	var out bytes.Buffer

	out.WriteString(pt.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(pt.Params, " "))
	out.WriteString(")")

	return out.String()
}

// Accept dispatches the prototype to the backend.
func (pt *Prototype) Accept(v Visitor) (Value, error) { return v.VisitPrototype(pt) }

// Function represents a function definition: a prototype and a body
// expression. Top-level bare expressions are wrapped by the driver into an
// anonymous Function with an empty name and no parameters.
type Function struct {
	Proto *Prototype
	Body  Expr
}

func (f *Function) TokenLiteral() string { return f.Proto.TokenLiteral() }
func (f *Function) String() string {
	var out bytes.Buffer

	out.WriteString("def ")
	out.WriteString(f.Proto.String())
	out.WriteString(" ")
	out.WriteString(f.Body.String())

	return out.String()
}

// Accept dispatches the function to the backend.
func (f *Function) Accept(v Visitor) (Value, error) { return v.VisitFunction(f) }

// IsAnonymous reports whether this is a driver-synthesized wrapper around a
// top-level expression.
func (f *Function) IsAnonymous() bool {
	return f.Proto.Name == ""
}

// NewAnonymous wraps a bare top-level expression in a zero-parameter
// function so the backend can compile and run it.
func NewAnonymous(body Expr) *Function {
	return &Function{
		Proto: &Prototype{Name: "", Params: []string{}},
		Body:  body,
	}
}
