// Package errors provides structured error types for the Kaleidoscope
// frontend.
//
// This package defines Error, a unified error type shared by the parser and
// the code-generation backend, with position metadata for display and
// programmatic handling.
package errors

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassLex       ErrorClass = "lex"       // Malformed literals
	ClassParse     ErrorClass = "parse"     // Grammar violations
	ClassUndefined ErrorClass = "undefined" // Unknown variable/function
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassRedefined ErrorClass = "redefined" // Function defined twice
)

// Error represents any failure from lexing, parsing, or code generation.
type Error struct {
	Class   ErrorClass     // Error category
	Code    string         // Error code (e.g., "PARSE-0001")
	Message string         // Human-readable message
	Hints   []string       // Suggestions for fixing
	Line    int            // 1-based line (0 if unknown)
	Column  int            // 1-based column (0 if unknown)
	File    string         // File path (if known)
	Data    map[string]any // Template variables
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *Error) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d, column %d: ", e.Line, e.Column)
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *Error) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassLex, ClassParse:
		sb.WriteString("Parse error")
	default:
		sb.WriteString("Compile error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&sb, "\n  at: line %d, column %d", e.Line, e.Column)
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		fmt.Fprintf(&sb, ": line %d, column %d\n  ", e.Line, e.Column)
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// WithFile returns a copy of the error with the file path set.
func (e *Error) WithFile(file string) *Error {
	copy := *e
	copy.File = file
	return &copy
}

// IsParseError returns true if this error came from the lexer or parser.
func (e *Error) IsParseError() bool {
	return e.Class == ClassLex || e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Lex errors (LEX-0xxx)
	"LEX-0001": {
		Class:    ClassLex,
		Template: "invalid number literal: {{.Literal}}",
	},

	// Parse errors (PARSE-0xxx)
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Got}}', expected {{.Expected}}",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unknown binary operator '{{.Operator}}'",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "duplicate parameter '{{.Name}}' in prototype '{{.Function}}'",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "expected an argument before ','",
		Hints:    []string{"remove the stray comma"},
	},

	// Code generation errors
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "unknown variable: {{.Name}}",
	},
	"UNDEF-0002": {
		Class:    ClassUndefined,
		Template: "unknown function: {{.Name}}",
	},
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "wrong number of arguments to '{{.Function}}'. got={{.Got}}, want={{.Want}}",
	},
	"REDEF-0001": {
		Class:    ClassRedefined,
		Template: "function '{{.Name}}' is already defined",
	},
}

// New creates an Error from the catalog.
// If the code is not found, creates a generic error with the code as message.
func New(code string, data map[string]any) *Error {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &Error{
			Class:   ClassParse,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &Error{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates an Error with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *Error {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}
