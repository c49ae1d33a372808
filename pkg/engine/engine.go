// Package engine evaluates macro files that configure a detector build.
// It wraps zygomys in a sandboxed environment; each builtin overrides part
// of a config.Config, and the result of a run is the overridden copy.
package engine

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/drcal/pkg/config"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs macro source against a copy of base and returns the
// resulting configuration. base itself is never modified.
//
// Return semantics:
//   - On success: returns config + nil errors + nil error
//   - On parse/eval failure: returns zero config + eval errors + nil error
//   - On fatal failure (timeout, panic): returns zero config + nil + error
func (e *Engine) Evaluate(source string, base config.Config) (config.Config, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		cfg, evalErrs, err := e.evaluate(source, base)
		ch <- evalResult{cfg: cfg, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// EvaluateFile reads a macro file and evaluates it against base.
func (e *Engine) EvaluateFile(path string, base config.Config) (config.Config, []EvalError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("engine: read %s: %w", path, err)
	}
	return e.Evaluate(string(data), base)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string, base config.Config) (config.Config, []EvalError, error) {
	// Empty source is a valid program that changes nothing.
	if strings.TrimSpace(source) == "" {
		return base, nil, nil
	}
	if ee := checkParens(source); ee != nil {
		return config.Config{}, []EvalError{*ee}, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	cfg := base
	registerBuiltins(env, &cfg)

	// Load and compile the source string into bytecode.
	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return config.Config{}, parseZygomysError(err), nil
	}

	// Execute the compiled bytecode.
	_, err = env.Run()
	if err != nil {
		return config.Config{}, parseZygomysError(err), nil
	}

	return cfg, nil, nil
}

// checkParens reports the first unbalanced parenthesis with its line,
// ignoring strings and comments.
func checkParens(source string) *EvalError {
	var open []int // line of each unclosed (
	line := 1
	b := []byte(source)
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\n':
			line++
		case '"':
			for i++; i < len(b) && b[i] != '"'; i++ {
				if b[i] == '\\' {
					i++
				} else if b[i] == '\n' {
					line++
				}
			}
		case ';':
			for i < len(b) && b[i] != '\n' {
				i++
			}
			i--
		case '(':
			open = append(open, line)
		case ')':
			if len(open) == 0 {
				return &EvalError{Line: line, Message: "unexpected )"}
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return &EvalError{Line: open[len(open)-1], Message: "unclosed ("}
	}
	return nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?is)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
