// This file is part of Cellforge.
//
// Cellforge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellforge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellforge.  If not, see <https://www.gnu.org/licenses/>.

package expression

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinal errors returned by Compile() and Evaluate().
var (
	ErrSyntax       = errors.New("syntax error")
	ErrIdentifier   = errors.New("unknown identifier")
	ErrDivideByZero = errors.New("division by zero")
	ErrMemory       = errors.New("memory read failed")
)

// Functions resolves identifiers and reads memory on behalf of an expression.
type Functions interface {
	// the value of a register or the address of a symbol
	Lookup(name string) (uint64, bool)

	// read a 32bit word from memory
	ReadMemory(addr uint32) (uint32, error)
}

// Postfix is a compiled expression.
type Postfix []token

func (p Postfix) String() string {
	s := make([]string, len(p))
	for i, t := range p {
		s[i] = t.String()
	}
	return strings.Join(s, " ")
}

// Compile converts an infix expression to postfix. Every identifier in the
// expression must be known to funcs.
func Compile(text string, funcs Functions) (Postfix, error) {
	toks, err := tokenise(text)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	var out Postfix
	var stack []token

	// true if the next token should be an operand. unary operators are only
	// possible in this state
	expectOperand := true

	pop := func() token {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return t
	}

	for _, t := range toks {
		switch t.kind {
		case tokNumber, tokIdent:
			if !expectOperand {
				return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
			}
			if t.kind == tokIdent {
				if _, ok := funcs.Lookup(t.text); !ok {
					return nil, fmt.Errorf("%w: %s", ErrIdentifier, t.text)
				}
			}
			out = append(out, t)
			expectOperand = false

		case tokOpenParen, tokOpenBracket:
			if !expectOperand {
				return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
			}
			stack = append(stack, t)

		case tokCloseParen, tokCloseBracket:
			if expectOperand {
				return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
			}

			open := tokOpenParen
			if t.kind == tokCloseBracket {
				open = tokOpenBracket
			}

			for {
				if len(stack) == 0 {
					return nil, fmt.Errorf("%w: unbalanced %q", ErrSyntax, t.text)
				}
				s := pop()
				if s.kind == open {
					break
				}
				if s.kind != tokOperator {
					return nil, fmt.Errorf("%w: mismatched %q", ErrSyntax, t.text)
				}
				out = append(out, s)
			}

			if t.kind == tokCloseBracket {
				out = append(out, token{kind: tokOperator, op: opMemory})
			}

		case tokOperator:
			if expectOperand {
				switch t.op {
				case opSub:
					t.op = opNeg
				case opAdd:
					// unary plus has no effect
					continue
				case opNot, opInvert:
				default:
					return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
				}
				stack = append(stack, t)
				continue
			}

			if t.op.unary() {
				return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
			}

			// binary operators are left associative
			for len(stack) > 0 {
				s := stack[len(stack)-1]
				if s.kind != tokOperator || s.op.precedence() < t.op.precedence() {
					break
				}
				out = append(out, pop())
			}
			stack = append(stack, t)
			expectOperand = true
		}
	}

	if expectOperand {
		return nil, fmt.Errorf("%w: incomplete expression", ErrSyntax)
	}

	for len(stack) > 0 {
		s := pop()
		if s.kind != tokOperator {
			return nil, fmt.Errorf("%w: unbalanced %q", ErrSyntax, s.text)
		}
		out = append(out, s)
	}

	return out, nil
}

// Evaluate a compiled expression.
func Evaluate(p Postfix, funcs Functions) (uint64, error) {
	var stack []uint64

	pop := func() (uint64, error) {
		if len(stack) == 0 {
			return 0, fmt.Errorf("%w: stack underflow", ErrSyntax)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	for _, t := range p {
		switch t.kind {
		case tokNumber:
			stack = append(stack, t.value)

		case tokIdent:
			v, ok := funcs.Lookup(t.text)
			if !ok {
				return 0, fmt.Errorf("%w: %s", ErrIdentifier, t.text)
			}
			stack = append(stack, v)

		case tokOperator:
			a, err := pop()
			if err != nil {
				return 0, err
			}

			switch {
			case t.op == opMemory:
				v, err := funcs.ReadMemory(uint32(a))
				if err != nil {
					return 0, fmt.Errorf("%w: %#08x: %w", ErrMemory, uint32(a), err)
				}
				stack = append(stack, uint64(v))

			case t.op.unary():
				stack = append(stack, t.op.applyUnary(a))

			default:
				b := a
				a, err = pop()
				if err != nil {
					return 0, err
				}
				v, err := t.op.apply(a, b)
				if err != nil {
					return 0, err
				}
				stack = append(stack, v)
			}

		default:
			return 0, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
		}
	}

	if len(stack) != 1 {
		return 0, fmt.Errorf("%w: malformed expression", ErrSyntax)
	}
	return stack[0], nil
}

// Condition is a compiled expression and the text it was compiled from.
type Condition struct {
	Text    string
	postfix Postfix
}

// NewCondition compiles the text into a Condition.
func NewCondition(text string, funcs Functions) (*Condition, error) {
	p, err := Compile(text, funcs)
	if err != nil {
		return nil, err
	}
	return &Condition{Text: strings.TrimSpace(text), postfix: p}, nil
}

// Evaluate returns true if the condition evaluates to a non-zero value.
func (c *Condition) Evaluate(funcs Functions) (bool, error) {
	v, err := Evaluate(c.postfix, funcs)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (c *Condition) String() string {
	return c.Text
}
