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

type operator int

const (
	opNone operator = iota

	// unary
	opNeg
	opNot
	opInvert

	// binary
	opMul
	opDiv
	opMod
	opAdd
	opSub
	opShl
	opShr
	opLess
	opLessEqual
	opGreater
	opGreaterEqual
	opEqual
	opNotEqual
	opAnd
	opXor
	opOr
	opLogicalAnd
	opLogicalOr

	// memory read of the value on the stack
	opMemory
)

func (op operator) String() string {
	switch op {
	case opNeg:
		return "neg"
	case opNot:
		return "!"
	case opInvert:
		return "~"
	case opMul:
		return "*"
	case opDiv:
		return "/"
	case opMod:
		return "%"
	case opAdd:
		return "+"
	case opSub:
		return "-"
	case opShl:
		return "<<"
	case opShr:
		return ">>"
	case opLess:
		return "<"
	case opLessEqual:
		return "<="
	case opGreater:
		return ">"
	case opGreaterEqual:
		return ">="
	case opEqual:
		return "=="
	case opNotEqual:
		return "!="
	case opAnd:
		return "&"
	case opXor:
		return "^"
	case opOr:
		return "|"
	case opLogicalAnd:
		return "&&"
	case opLogicalOr:
		return "||"
	case opMemory:
		return "[]"
	}
	return "?"
}

func (op operator) unary() bool {
	return op == opNeg || op == opNot || op == opInvert
}

func (op operator) precedence() int {
	switch op {
	case opNeg, opNot, opInvert:
		return 12
	case opMul, opDiv, opMod:
		return 11
	case opAdd, opSub:
		return 10
	case opShl, opShr:
		return 9
	case opLess, opLessEqual, opGreater, opGreaterEqual:
		return 8
	case opEqual, opNotEqual:
		return 7
	case opAnd:
		return 6
	case opXor:
		return 5
	case opOr:
		return 4
	case opLogicalAnd:
		return 3
	case opLogicalOr:
		return 2
	}
	return 0
}

func boolean(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (op operator) apply(a uint64, b uint64) (uint64, error) {
	switch op {
	case opMul:
		return a * b, nil
	case opDiv:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	case opMod:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a % b, nil
	case opAdd:
		return a + b, nil
	case opSub:
		return a - b, nil
	case opShl:
		return a << (b & 63), nil
	case opShr:
		return a >> (b & 63), nil
	case opLess:
		return boolean(a < b), nil
	case opLessEqual:
		return boolean(a <= b), nil
	case opGreater:
		return boolean(a > b), nil
	case opGreaterEqual:
		return boolean(a >= b), nil
	case opEqual:
		return boolean(a == b), nil
	case opNotEqual:
		return boolean(a != b), nil
	case opAnd:
		return a & b, nil
	case opXor:
		return a ^ b, nil
	case opOr:
		return a | b, nil
	case opLogicalAnd:
		return boolean(a != 0 && b != 0), nil
	case opLogicalOr:
		return boolean(a != 0 || b != 0), nil
	}
	return 0, ErrSyntax
}

func (op operator) applyUnary(a uint64) uint64 {
	switch op {
	case opNeg:
		return -a
	case opNot:
		return boolean(a == 0)
	case opInvert:
		return ^a
	}
	return a
}
