// Package repl implements the interactive read-compile-run loop.
package repl

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/ColdOrange/kaleidoscope/config"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/ast"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/eval"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/lexer"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/parser"
)

const CONTINUATION_PROMPT = "...... "

const LOGO = `
█▄▀ ▄▀█ █░░ █▀▀ █ █▀▄ █▀█ █▀ █▀▀ █▀█ █▀█ █▀▀
█░█ █▀█ █▄▄ ██▄ █ █▄▀ █▄█ ▄█ █▄▄ █▄█ █▀▀ ██▄`

// Keywords and extern builtins for tab completion; defined function names
// are added as the session grows.
var completionWords = []string{
	"def", "extern",
	"sin", "cos", "tan", "exp", "log", "sqrt", "floor", "ceil", "fabs", "pow",
	"putchard", "printd",
}

// Start runs the REPL with line editing, history, and tab completion.
func Start(out io.Writer, cfg *config.Config, version string) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	backend := eval.NewWithOutput(out)
	table := cfg.PrecedenceTable()

	line.SetCompleter(func(line string) []string {
		return filterCompletions(line, backend.Functions())
	})

	// Load command history from file
	historyFile := cfg.REPL.HistoryFile
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history on exit
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := cfg.REPL.Prompt
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C - clear any buffered input and return to main prompt
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		// Handle REPL commands (start with :)
		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			handleReplCommand(trimmed, backend, out)
			continue
		}

		// Skip empty lines when no input buffered
		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		if trimmed != "" {
			line.AppendHistory(fullInput)
		}

		runUnits(fullInput, table, backend, out)

		inputBuffer.Reset()
	}
}

// runUnits parses and runs every top-level unit in the buffer. A failed
// unit is reported and the rest of the buffer still runs, so one bad unit
// never loses the session.
func runUnits(input string, table parser.PrecedenceTable, backend *eval.Backend, out io.Writer) {
	p := parser.NewWithPrecedence(lexer.New(input), table)

	for {
		unit, perr := p.Next()
		if perr != nil {
			fmt.Fprintln(out, perr.PrettyString())
			continue
		}
		if unit == nil {
			return
		}

		switch node := unit.(type) {
		case *ast.Function:
			if _, err := node.Accept(backend); err != nil {
				printCompileError(out, err)
				continue
			}
			fmt.Fprintf(out, "Defined %s\n", node.Proto.String())

		case *ast.Prototype:
			if _, err := node.Accept(backend); err != nil {
				printCompileError(out, err)
				continue
			}
			fmt.Fprintf(out, "Declared extern %s\n", node.String())

		case ast.Expr:
			// A bare expression becomes an anonymous zero-parameter
			// function, runs immediately, and reports its double result.
			anon := ast.NewAnonymous(node)
			val, err := anon.Accept(backend)
			if err != nil {
				printCompileError(out, err)
				continue
			}
			fmt.Fprintf(out, "= %g\n", val.(float64))
		}
	}
}

// handleReplCommand handles REPL meta-commands that start with ':'
func handleReplCommand(cmd string, backend *eval.Backend, out io.Writer) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :funcs          List defined functions and externs")
		fmt.Fprintln(out, "  :clear          Forget all defined functions")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")

	case ":funcs":
		names := backend.Functions()
		if len(names) == 0 {
			fmt.Fprintln(out, "(no functions defined)")
			return
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}

	case ":clear":
		backend.Reset()
		fmt.Fprintln(out, "Session cleared")

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// filterCompletions returns completion suggestions based on current input
func filterCompletions(line string, defined []string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	// Don't complete if line ends with whitespace
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	words := strings.Fields(line)
	lastWord := words[len(words)-1]

	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, word)
		}
	}
	for _, word := range defined {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, word)
		}
	}
	return matches
}

// needsMoreInput checks if the input has unclosed parentheses, or a 'def'
// or 'extern' keyword with nothing after it yet.
func needsMoreInput(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	if trimmed == "def" || trimmed == "extern" {
		return true
	}

	parenCount := 0
	inComment := false
	for i := 0; i < len(input); i++ {
		switch {
		case inComment:
			if input[i] == '\n' {
				inComment = false
			}
		case input[i] == '#':
			inComment = true
		case input[i] == '(':
			parenCount++
		case input[i] == ')':
			parenCount--
		}
	}

	return parenCount > 0
}

// printCompileError prints a backend error from compiling or running a unit
func printCompileError(out io.Writer, err error) {
	type pretty interface{ PrettyString() string }
	if p, ok := err.(pretty); ok {
		fmt.Fprintln(out, p.PrettyString())
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}
