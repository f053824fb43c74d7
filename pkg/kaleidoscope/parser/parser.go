// Package parser builds the AST from the token stream.
//
// The grammar is recursive descent with precedence climbing for binary
// operators:
//
//	top        := (definition | extern | expression | ';')*
//	definition := 'def' prototype expression
//	extern     := 'extern' prototype
//	prototype  := IDENT '(' IDENT* ')'
//	expression := primary binoprhs
//	primary    := IDENT ['(' (expression (',' expression)*)? ')']
//	            | NUMBER
//	            | '(' expression ')'
//
// The parser holds exactly one token of lookahead, advanced by a single
// operation. Every parse operation returns an explicit error instead of
// aborting, and a failed top-level unit resynchronizes to the next ';' so
// the units after it still parse.
package parser

import (
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/ast"
	kerrors "github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/errors"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/lexer"
)

// PrecedenceTable maps binary-operator characters to binding power; a
// higher value binds tighter. All operators are left-associative.
type PrecedenceTable map[byte]int

// DefaultPrecedence returns the standard operator table.
func DefaultPrecedence() PrecedenceTable {
	return PrecedenceTable{
		'<': 10,
		'+': 20,
		'-': 20,
		'*': 40, // highest
	}
}

// Parser represents the parser. It owns the lexer and a single
// current-token lookahead buffer, and is not safe for concurrent use;
// construct one Parser per source buffer.
type Parser struct {
	l *lexer.Lexer

	curToken   lexer.Token
	precedence PrecedenceTable

	errs []*kerrors.Error
}

// New creates a parser with the default operator table.
func New(l *lexer.Lexer) *Parser {
	return NewWithPrecedence(l, DefaultPrecedence())
}

// NewWithPrecedence creates a parser with an injected operator table. The
// table is copied so later mutation by the caller cannot affect parsing.
func NewWithPrecedence(l *lexer.Lexer, table PrecedenceTable) *Parser {
	precedence := make(PrecedenceTable, len(table))
	for op, prec := range table {
		precedence[op] = prec
	}

	p := &Parser{
		l:          l,
		precedence: precedence,
	}
	p.nextToken()
	return p
}

// Errors returns every error recorded so far, one per failed unit.
func (p *Parser) Errors() []*kerrors.Error {
	return p.errs
}

// nextToken advances the single lookahead token
func (p *Parser) nextToken() {
	p.curToken = p.l.NextToken()
}

// ParseProgram parses every top-level unit in the buffer. Units that fail
// are skipped (their errors are available via Errors); units after a
// failure still parse.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for {
		unit, err := p.Next()
		if err != nil {
			continue
		}
		if unit == nil {
			break
		}
		program.Units = append(program.Units, unit)
	}

	return program
}

// Next parses and returns the next top-level unit: a *ast.Function for a
// definition, a *ast.Prototype for an extern, or an ast.Expr for a bare
// expression. Bare ';' tokens are skipped. At end of input it returns
// (nil, nil). On a parse failure it records the error, skips ahead to the
// next ';', and returns it; the caller decides whether to continue.
func (p *Parser) Next() (ast.Node, *kerrors.Error) {
	for {
		switch {
		case p.curToken.Type == lexer.EOF:
			return nil, nil

		case p.curToken.Symbol(';'):
			p.nextToken()
			continue

		case p.curToken.Type == lexer.DEF:
			fn, err := p.parseDefinition()
			if err != nil {
				return nil, p.fail(err)
			}
			return fn, nil

		case p.curToken.Type == lexer.EXTERN:
			proto, err := p.parseExtern()
			if err != nil {
				return nil, p.fail(err)
			}
			return proto, nil

		default:
			expr, err := p.parseExpression()
			if err != nil {
				return nil, p.fail(err)
			}
			return expr, nil
		}
	}
}

// fail records the error and resynchronizes to the token after the next
// ';' (or end of input), abandoning the rest of the current unit.
func (p *Parser) fail(err *kerrors.Error) *kerrors.Error {
	p.errs = append(p.errs, err)

	for p.curToken.Type != lexer.EOF && !p.curToken.Symbol(';') {
		p.nextToken()
	}
	if p.curToken.Symbol(';') {
		p.nextToken()
	}

	return err
}

// parseDefinition parses: 'def' prototype expression
func (p *Parser) parseDefinition() (*ast.Function, *kerrors.Error) {
	p.nextToken() // consume 'def'

	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	return &ast.Function{Proto: proto, Body: body}, nil
}

// parseExtern parses: 'extern' prototype
func (p *Parser) parseExtern() (*ast.Prototype, *kerrors.Error) {
	p.nextToken() // consume 'extern'

	return p.parsePrototype()
}

// parsePrototype parses: IDENT '(' IDENT* ')'
// Parameters are space-separated, per the Kaleidoscope grammar.
func (p *Parser) parsePrototype() (*ast.Prototype, *kerrors.Error) {
	if p.curToken.Type != lexer.IDENT {
		return nil, p.expectedError("a function name")
	}
	tok := p.curToken
	p.nextToken()

	if !p.curToken.Symbol('(') {
		return nil, p.expectedError("'(' after function name")
	}
	p.nextToken()

	params := []string{}
	seen := make(map[string]bool)
	for p.curToken.Type == lexer.IDENT {
		name := p.curToken.Literal
		if seen[name] {
			return nil, kerrors.NewWithPosition("PARSE-0004",
				p.curToken.Line, p.curToken.Column,
				map[string]any{"Name": name, "Function": tok.Literal})
		}
		seen[name] = true
		params = append(params, name)
		p.nextToken()
	}

	if !p.curToken.Symbol(')') {
		return nil, p.expectedError("')' to close the parameter list")
	}
	p.nextToken()

	return &ast.Prototype{Token: tok, Name: tok.Literal, Params: params}, nil
}

// parseExpression parses: primary binoprhs
func (p *Parser) parseExpression() (ast.Expr, *kerrors.Error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	return p.parseBinOpRHS(lhs, 0)
}

// parseBinOpRHS implements precedence climbing. It absorbs operator/primary
// pairs into lhs as long as the operator binds at least as tightly as
// minPrec. When the operator after an rhs binds tighter than the one just
// consumed, the rhs is extended recursively first, which yields left
// associativity for equal-precedence chains and right nesting for
// tighter-binding trailing operators with one token of lookahead.
func (p *Parser) parseBinOpRHS(lhs ast.Expr, minPrec int) (ast.Expr, *kerrors.Error) {
	for {
		op, prec, ok := p.curOperator()
		if !ok || prec < minPrec {
			return lhs, nil
		}

		opTok := p.curToken
		p.nextToken()

		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		if _, nextPrec, nextOk := p.curOperator(); nextOk && prec < nextPrec {
			rhs, err = p.parseBinOpRHS(rhs, prec+1)
			if err != nil {
				return nil, err
			}
		}

		lhs = &ast.BinaryExpr{Token: opTok, Op: op, Left: lhs, Right: rhs}
	}
}

// curOperator returns the current token's operator character and its
// precedence, or ok=false if the current token is not in the table.
func (p *Parser) curOperator() (op byte, prec int, ok bool) {
	if p.curToken.Type != lexer.SYMBOL || len(p.curToken.Literal) != 1 {
		return 0, -1, false
	}

	op = p.curToken.Literal[0]
	prec, ok = p.precedence[op]
	if !ok {
		return 0, -1, false
	}
	return op, prec, true
}

// parsePrimary parses: IDENT [call args] | NUMBER | '(' expression ')'
func (p *Parser) parsePrimary() (ast.Expr, *kerrors.Error) {
	switch {
	case p.curToken.Type == lexer.IDENT:
		return p.parseIdentifierExpr()

	case p.curToken.Type == lexer.NUMBER:
		expr := &ast.NumberLiteral{Token: p.curToken, Value: p.curToken.Value}
		p.nextToken()
		return expr, nil

	case p.curToken.Symbol('('):
		return p.parseParenExpr()

	case p.curToken.Type == lexer.ILLEGAL:
		err := kerrors.NewWithPosition("LEX-0001",
			p.curToken.Line, p.curToken.Column,
			map[string]any{"Literal": p.curToken.Literal})
		p.nextToken()
		return nil, err

	default:
		return nil, p.expectedError("an expression")
	}
}

// parseIdentifierExpr disambiguates with one token of lookahead: an
// identifier immediately followed by '(' is a call, otherwise a variable
// reference.
func (p *Parser) parseIdentifierExpr() (ast.Expr, *kerrors.Error) {
	tok := p.curToken
	p.nextToken()

	if !p.curToken.Symbol('(') {
		return &ast.VariableExpr{Token: tok, Name: tok.Literal}, nil
	}
	p.nextToken() // consume '('

	args := []ast.Expr{}
	if !p.curToken.Symbol(')') {
		for {
			// A comma with no argument before it is rejected rather than
			// silently skipped.
			if p.curToken.Symbol(',') {
				return nil, kerrors.NewWithPosition("PARSE-0005",
					p.curToken.Line, p.curToken.Column, nil)
			}

			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if !p.curToken.Symbol(',') {
				break
			}
			p.nextToken() // consume ','
		}
	}

	if !p.curToken.Symbol(')') {
		return nil, p.expectedError("')' to close the argument list")
	}
	p.nextToken()

	return &ast.CallExpr{Token: tok, Callee: tok.Literal, Args: args}, nil
}

// parseParenExpr parses: '(' expression ')'
func (p *Parser) parseParenExpr() (ast.Expr, *kerrors.Error) {
	p.nextToken() // consume '('

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if !p.curToken.Symbol(')') {
		return nil, p.expectedError("')'")
	}
	p.nextToken()

	return expr, nil
}

// expectedError builds a PARSE-0001 error naming the offending token and
// the expected token class, positioned at the current token.
func (p *Parser) expectedError(expected string) *kerrors.Error {
	got := p.curToken.Literal
	if p.curToken.Type == lexer.EOF {
		got = "end of input"
	}

	return kerrors.NewWithPosition("PARSE-0001",
		p.curToken.Line, p.curToken.Column,
		map[string]any{"Expected": expected, "Got": got})
}
