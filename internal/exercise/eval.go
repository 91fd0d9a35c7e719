// Package exercise resolves arithmetic templates in exercise descriptions.
// A description like "Hold for [PULLREPS*2] seconds" is rendered against a
// variable table built from the workout categories; a token that fails to
// parse or references an unknown variable is left in the text verbatim.
package exercise

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// evaluator is a small recursive-descent parser over one bracket expression.
//
//	expr   := term (('+' | '-') term)*
//	term   := unary (('*' | '/') unary)*
//	unary  := '-' unary | primary
//	primary:= number | variable | '(' expr ')'
type evaluator struct {
	src  string
	pos  int
	vars map[string]float64
}

// Eval evaluates a single expression against the variable table. Variable
// names are matched case-insensitively against upper-cased keys.
func Eval(expr string, vars map[string]float64) (float64, error) {
	e := &evaluator{src: expr, vars: vars}
	v, err := e.parseExpr()
	if err != nil {
		return 0, err
	}
	e.skipSpace()
	if e.pos != len(e.src) {
		return 0, fmt.Errorf("unexpected %q at offset %d", e.src[e.pos], e.pos)
	}
	return v, nil
}

func (e *evaluator) parseExpr() (float64, error) {
	left, err := e.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		e.skipSpace()
		switch e.peek() {
		case '+':
			e.pos++
			right, err := e.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			e.pos++
			right, err := e.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (e *evaluator) parseTerm() (float64, error) {
	left, err := e.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		e.skipSpace()
		switch e.peek() {
		case '*':
			e.pos++
			right, err := e.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			e.pos++
			right, err := e.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (e *evaluator) parseUnary() (float64, error) {
	e.skipSpace()
	if e.peek() == '-' {
		e.pos++
		v, err := e.parseUnary()
		return -v, err
	}
	return e.parsePrimary()
}

func (e *evaluator) parsePrimary() (float64, error) {
	e.skipSpace()
	switch c := e.peek(); {
	case c == '(':
		e.pos++
		v, err := e.parseExpr()
		if err != nil {
			return 0, err
		}
		e.skipSpace()
		if e.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		e.pos++
		return v, nil
	case c >= '0' && c <= '9' || c == '.':
		return e.parseNumber()
	case isIdentStart(c):
		return e.parseVariable()
	case c == 0:
		return 0, fmt.Errorf("unexpected end of expression")
	default:
		return 0, fmt.Errorf("unexpected %q at offset %d", c, e.pos)
	}
}

func (e *evaluator) parseNumber() (float64, error) {
	start := e.pos
	for e.pos < len(e.src) && (e.src[e.pos] >= '0' && e.src[e.pos] <= '9' || e.src[e.pos] == '.') {
		e.pos++
	}
	v, err := strconv.ParseFloat(e.src[start:e.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", e.src[start:e.pos])
	}
	return v, nil
}

func (e *evaluator) parseVariable() (float64, error) {
	start := e.pos
	for e.pos < len(e.src) && isIdentRune(rune(e.src[e.pos])) {
		e.pos++
	}
	name := strings.ToUpper(e.src[start:e.pos])
	v, ok := e.vars[name]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", name)
	}
	return v, nil
}

func (e *evaluator) peek() byte {
	if e.pos >= len(e.src) {
		return 0
	}
	return e.src[e.pos]
}

func (e *evaluator) skipSpace() {
	for e.pos < len(e.src) && e.src[e.pos] == ' ' {
		e.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Round converts an evaluated value to the displayed integer.
func Round(v float64) int {
	return int(math.Round(v))
}
