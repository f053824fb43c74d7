package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ColdOrange/kaleidoscope/config"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/ast"
	kerrors "github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/errors"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/eval"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/lexer"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/parser"
	"github.com/ColdOrange/kaleidoscope/pkg/kaleidoscope/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.3.0"

var (
	// Display flags
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	// Evaluation flags
	evalFlag     = flag.String("e", "", "Evaluate code string")
	evalLongFlag = flag.String("eval", "", "Evaluate code string")
	checkFlag    = flag.Bool("check", false, "Check syntax without executing")
	watchFlag    = flag.Bool("watch", false, "Re-check files whenever they change")

	// Configuration
	configFlag = flag.String("config", "", "Path to a kalc.yaml config file")
)

func main() {
	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag || *versionLongFlag {
		fmt.Printf("kalc version %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	switch {
	case evalCode != "":
		// Inline evaluation mode
		os.Exit(executeSource(evalCode, "<eval>", cfg, os.Stdout, os.Stderr))
	case *watchFlag:
		files := flag.Args()
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --watch requires at least one file")
			os.Exit(2)
		}
		if err := watchFiles(files, cfg, os.Stdout, os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	case *checkFlag:
		files := flag.Args()
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --check requires at least one file")
			os.Exit(2)
		}
		os.Exit(checkFiles(files, cfg, os.Stderr))
	case len(flag.Args()) > 0:
		// File execution mode
		filename := flag.Args()[0]
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file '%s': %v\n", filename, err)
			os.Exit(1)
		}
		os.Exit(executeSource(string(content), filename, cfg, os.Stdout, os.Stderr))
	default:
		// REPL mode
		repl.Start(os.Stdout, cfg, Version)
	}
}

func printHelp() {
	fmt.Printf(`kalc - Kaleidoscope language interpreter version %s

Usage:
  kalc [options] [file]
  kalc -e "code"
  kalc --check <file>...
  kalc --watch <file>...

Display Options:
  -h, --help            Show this help message
  -V, --version         Show version information

Evaluation Options:
  -e, --eval <code>     Evaluate a code string
  --check               Check syntax without executing
  --watch               Watch files and re-check on every change
  --config <path>       Load settings from a kalc.yaml file

Examples:
  kalc                            Start interactive REPL
  kalc examples/mandel.k          Execute a Kaleidoscope source file
  kalc -e "def f(x) x*2; f(21)"   Evaluate inline code (outputs: 42)
  kalc --check lib.k              Check syntax without executing
  kalc --watch lib.k              Re-check lib.k on every save
`, Version)
}

// executeSource parses and runs one source buffer: definitions and externs
// are compiled, bare expressions run immediately and print their double
// result. Returns the process exit code.
func executeSource(source, filename string, cfg *config.Config, stdout, stderr io.Writer) int {
	backend := eval.NewWithOutput(stdout)
	p := parser.NewWithPrecedence(lexer.NewWithFilename(source, filename), cfg.PrecedenceTable())

	failed := false
	for {
		unit, perr := p.Next()
		if perr != nil {
			printError(stderr, filename, source, perr)
			failed = true
			continue
		}
		if unit == nil {
			break
		}

		switch node := unit.(type) {
		case *ast.Function, *ast.Prototype:
			if _, err := acceptUnit(node, backend); err != nil {
				printError(stderr, filename, source, err)
				failed = true
			}
		case ast.Expr:
			val, err := ast.NewAnonymous(node).Accept(backend)
			if err != nil {
				printError(stderr, filename, source, err.(*kerrors.Error))
				failed = true
				continue
			}
			fmt.Fprintf(stdout, "%g\n", val.(float64))
		}
	}

	if failed {
		return 1
	}
	return 0
}

// acceptUnit dispatches a non-expression unit to the backend.
func acceptUnit(unit ast.Node, backend *eval.Backend) (ast.Value, *kerrors.Error) {
	switch node := unit.(type) {
	case *ast.Function:
		val, err := node.Accept(backend)
		if err != nil {
			return nil, err.(*kerrors.Error)
		}
		return val, nil
	case *ast.Prototype:
		val, err := node.Accept(backend)
		if err != nil {
			return nil, err.(*kerrors.Error)
		}
		return val, nil
	}
	return nil, nil
}

// checkFiles checks the syntax of one or more files without executing them
func checkFiles(files []string, cfg *config.Config, stderr io.Writer) int {
	hasErrors := false

	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
			return 2 // File error
		}

		if !checkSource(string(content), filename, cfg, stderr) {
			hasErrors = true
		}
	}

	if hasErrors {
		return 1 // Syntax errors
	}
	return 0
}

// checkSource parses one buffer and reports every unit's error. Returns
// true when the buffer is clean.
func checkSource(source, filename string, cfg *config.Config, stderr io.Writer) bool {
	p := parser.NewWithPrecedence(lexer.NewWithFilename(source, filename), cfg.PrecedenceTable())
	p.ParseProgram()

	errs := p.Errors()
	for _, perr := range errs {
		printError(stderr, filename, source, perr)
	}
	return len(errs) == 0
}

// printError prints a structured error with source context
func printError(stderr io.Writer, filename, source string, err *kerrors.Error) {
	fmt.Fprintln(stderr, err.WithFile(filename).PrettyString())
	printSourceContext(stderr, strings.Split(source, "\n"), err.Line, err.Column)
}

// printSourceContext prints the offending source line and a caret pointer
func printSourceContext(stderr io.Writer, lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := lines[lineNum-1]

	// Count the columns trimmed from the left so the caret still lines up
	trimCount := 0
	for i := 0; i < len(sourceLine); i++ {
		if sourceLine[i] == ' ' {
			trimCount++
		} else if sourceLine[i] == '\t' {
			trimCount += 8
		} else {
			break
		}
	}

	trimmedLine := strings.TrimLeft(sourceLine, " \t")
	fmt.Fprintf(stderr, "    %s\n", trimmedLine)

	if colNum > 0 {
		visualCol := 0
		for i := 0; i < colNum-1 && i < len(sourceLine); i++ {
			if sourceLine[i] == '\t' {
				visualCol += 8
			} else {
				visualCol++
			}
		}

		adjustedCol := max(visualCol-trimCount, 0)
		fmt.Fprintf(stderr, "    %s^\n", strings.Repeat(" ", adjustedCol))
	}
}
