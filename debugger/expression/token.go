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
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOperator
	tokOpenParen
	tokCloseParen
	tokOpenBracket
	tokCloseBracket
)

type token struct {
	kind  tokenKind
	text  string
	value uint64
	op    operator
}

func (t token) String() string {
	switch t.kind {
	case tokNumber:
		return fmt.Sprintf("%#x", t.value)
	case tokOperator:
		return t.op.String()
	}
	return t.text
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// operators ordered so that two character operators are matched first
var operatorText = []struct {
	text string
	op   operator
}{
	{"<<", opShl}, {">>", opShr}, {"<=", opLessEqual}, {">=", opGreaterEqual},
	{"==", opEqual}, {"!=", opNotEqual}, {"&&", opLogicalAnd}, {"||", opLogicalOr},
	{"*", opMul}, {"/", opDiv}, {"%", opMod}, {"+", opAdd}, {"-", opSub},
	{"<", opLess}, {">", opGreater}, {"&", opAnd}, {"^", opXor}, {"|", opOr},
	{"!", opNot}, {"~", opInvert},
}

func tokenise(text string) ([]token, error) {
	var toks []token

	i := 0
	for i < len(text) {
		c := text[i]

		switch {
		case c == ' ' || c == '\t':
			i++

		case c == '(':
			toks = append(toks, token{kind: tokOpenParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokCloseParen, text: ")"})
			i++
		case c == '[':
			toks = append(toks, token{kind: tokOpenBracket, text: "["})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokCloseBracket, text: "]"})
			i++

		case c >= '0' && c <= '9' || c == '$':
			j := i + 1
			for j < len(text) && isAlnum(text[j]) {
				j++
			}
			s := text[i:j]

			var v uint64
			var err error
			switch {
			case s[0] == '$':
				v, err = strconv.ParseUint(s[1:], 16, 64)
			case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
				v, err = strconv.ParseUint(s[2:], 16, 64)
			default:
				v, err = strconv.ParseUint(s, 10, 64)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: invalid number %q", ErrSyntax, s)
			}

			toks = append(toks, token{kind: tokNumber, text: s, value: v})
			i = j

		case isIdentStart(c):
			j := i + 1
			for j < len(text) && isIdent(text[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: text[i:j]})
			i = j

		default:
			matched := false
			for _, o := range operatorText {
				if strings.HasPrefix(text[i:], o.text) {
					toks = append(toks, token{kind: tokOperator, text: o.text, op: o.op})
					i += len(o.text)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("%w: unexpected character %q", ErrSyntax, c)
			}
		}
	}

	return toks, nil
}
