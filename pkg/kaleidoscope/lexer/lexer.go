package lexer

import (
	"fmt"
	"strconv"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota // malformed number run such as 1.2.3
	EOF

	// Keywords
	DEF    // def
	EXTERN // extern

	// Primary tokens
	IDENT  // fib, x, y, ...
	NUMBER // 1, 3.14, .5

	// Any other single character: operators, parens, commas, semicolons
	SYMBOL
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Value   float64 // parsed value, set for NUMBER tokens only
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// Symbol reports whether the token is the single-character symbol ch.
func (t Token) Symbol(ch byte) bool {
	return t.Type == SYMBOL && len(t.Literal) == 1 && t.Literal[0] == ch
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case DEF:
		return "DEF"
	case EXTERN:
		return "EXTERN"
	case IDENT:
		return "IDENT"
	case NUMBER:
		return "NUMBER"
	case SYMBOL:
		return "SYMBOL"
	default:
		return "UNKNOWN"
	}
}

// Keywords map for identifying language keywords
var keywords = map[string]TokenType{
	"def":    DEF,
	"extern": EXTERN,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Lexer represents the lexical analyzer. It is constructed once per source
// buffer and scans forward only; consuming a token advances the internal
// cursor irreversibly.
type Lexer struct {
	filename string
	input    string
	position int  // current position in input (points to current char)
	ch       byte // current char under examination (0 at end of input)
	line     int  // current line number
	column   int  // current column number
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "<input>")
}

// NewWithFilename creates a new lexer instance with a specific filename
func NewWithFilename(input string, filename string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		position: -1,
		line:     1,
		column:   0,
	}
	l.readChar()
	return l
}

// Filename returns the name the lexer was constructed with.
func (l *Lexer) Filename() string {
	return l.filename
}

// readChar reads the next character and advances position.
// The language is ASCII-only, so a byte cursor is sufficient.
func (l *Lexer) readChar() {
	if l.position+1 >= len(l.input) {
		l.ch = 0 // NUL represents end of input
		l.position = len(l.input)
		return
	}

	l.position++
	l.ch = l.input[l.position]

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// NextToken scans the input and returns the next token.
// At end of input it returns an EOF token, and keeps returning it.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	switch {
	case l.ch == 0:
		return Token{Type: EOF, Literal: "", Line: l.line, Column: l.column}

	case isLetter(l.ch):
		line, column := l.line, l.column
		ident := l.readIdentifier()
		return Token{Type: LookupIdent(ident), Literal: ident, Line: line, Column: column}

	case isDigit(l.ch) || l.ch == '.':
		line, column := l.line, l.column
		run := l.readNumber()
		value, err := strconv.ParseFloat(run, 64)
		if err != nil {
			// Malformed run like "1.2.3": surface it as ILLEGAL so the
			// parser can fail the current unit instead of the process.
			return Token{Type: ILLEGAL, Literal: run, Line: line, Column: column}
		}
		return Token{Type: NUMBER, Literal: run, Value: value, Line: line, Column: column}

	default:
		// Any other byte is a symbol; no validity check here. The parser
		// decides which symbols mean anything.
		tok := Token{Type: SYMBOL, Literal: string(l.ch), Line: l.line, Column: l.column}
		l.readChar()
		return tok
	}
}

// skipWhitespaceAndComments advances past ASCII whitespace and '#' line
// comments. Comments never surface as tokens.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' ||
			l.ch == '\v' || l.ch == '\f':
			l.readChar()
		case l.ch == '#':
			for l.ch != 0 && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readIdentifier reads the maximal alphanumeric run starting at the
// current (alphabetic) character.
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads the maximal run of digits and dots.
func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[start:l.position]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
