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

package expression_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cellforge/cellforge/debugger/expression"
	"github.com/cellforge/cellforge/test"
)

type funcs struct {
	regs map[string]uint64
	mem  map[uint32]uint32
}

func (f funcs) Lookup(name string) (uint64, bool) {
	v, ok := f.regs[name]
	return v, ok
}

func (f funcs) ReadMemory(addr uint32) (uint32, error) {
	v, ok := f.mem[addr]
	if !ok {
		return 0, fmt.Errorf("no memory at %#x", addr)
	}
	return v, nil
}

func newFuncs() funcs {
	return funcs{
		regs: map[string]uint64{
			"r3": 5,
			"r4": 0x1000,
			"pc": 0x80001234,
		},
		mem: map[uint32]uint32{
			0x1000: 0xdeadbeef,
			0x1004: 0x1000,
		},
	}
}

func eval(t *testing.T, text string) uint64 {
	t.Helper()
	f := newFuncs()
	p, err := expression.Compile(text, f)
	test.DemandSuccess(t, err, text)
	v, err := expression.Evaluate(p, f)
	test.DemandSuccess(t, err, text)
	return v
}

func TestArithmetic(t *testing.T) {
	test.ExpectEquality(t, eval(t, "1 + 2 * 3"), uint64(7))
	test.ExpectEquality(t, eval(t, "(1 + 2) * 3"), uint64(9))
	test.ExpectEquality(t, eval(t, "10 - 4 - 3"), uint64(3))
	test.ExpectEquality(t, eval(t, "100 / 10 / 5"), uint64(2))
	test.ExpectEquality(t, eval(t, "17 % 5"), uint64(2))
	test.ExpectEquality(t, eval(t, "1 << 4 | 1"), uint64(0x11))
	test.ExpectEquality(t, eval(t, "0xff & 0x0f ^ 0x01"), uint64(0x0e))
	test.ExpectEquality(t, eval(t, "$10"), uint64(16))
	test.ExpectEquality(t, eval(t, "-1"), ^uint64(0))
	test.ExpectEquality(t, eval(t, "2 * -3 + 7"), uint64(1))
	test.ExpectEquality(t, eval(t, "~0 >> 60"), uint64(0xf))
	test.ExpectEquality(t, eval(t, "+5"), uint64(5))
}

func TestLogic(t *testing.T) {
	test.ExpectEquality(t, eval(t, "r3 == 5"), uint64(1))
	test.ExpectEquality(t, eval(t, "r3 != 5"), uint64(0))
	test.ExpectEquality(t, eval(t, "r3 > 4 && r3 < 6"), uint64(1))
	test.ExpectEquality(t, eval(t, "r3 >= 6 || r3 <= 4"), uint64(0))
	test.ExpectEquality(t, eval(t, "!r3"), uint64(0))
	test.ExpectEquality(t, eval(t, "!!r3"), uint64(1))
	test.ExpectEquality(t, eval(t, "1 + 1 == 2"), uint64(1))
}

func TestMemory(t *testing.T) {
	test.ExpectEquality(t, eval(t, "[r4]"), uint64(0xdeadbeef))
	test.ExpectEquality(t, eval(t, "[[r4 + 4]]"), uint64(0xdeadbeef))
	test.ExpectEquality(t, eval(t, "([0x1000] & 0xffff) == 0xbeef"), uint64(1))
}

func TestCompileErrors(t *testing.T) {
	f := newFuncs()

	for _, s := range []string{"", "1 +", "(1", "1)", "[1", "1 2", "* 2", "0x", "12ab", "1 @ 2", "[1)", "!"} {
		_, err := expression.Compile(s, f)
		test.ExpectSuccess(t, errors.Is(err, expression.ErrSyntax), s)
	}

	_, err := expression.Compile("r99 == 1", f)
	test.ExpectSuccess(t, errors.Is(err, expression.ErrIdentifier))
}

func TestEvaluateErrors(t *testing.T) {
	f := newFuncs()

	p, err := expression.Compile("r3 / (r3 - 5)", f)
	test.DemandSuccess(t, err)
	_, err = expression.Evaluate(p, f)
	test.ExpectSuccess(t, errors.Is(err, expression.ErrDivideByZero))

	p, err = expression.Compile("[0x2000]", f)
	test.DemandSuccess(t, err)
	_, err = expression.Evaluate(p, f)
	test.ExpectSuccess(t, errors.Is(err, expression.ErrMemory))

	// identifier that disappears after compilation
	p, err = expression.Compile("r3", f)
	test.DemandSuccess(t, err)
	delete(f.regs, "r3")
	_, err = expression.Evaluate(p, f)
	test.ExpectSuccess(t, errors.Is(err, expression.ErrIdentifier))
}

func TestCondition(t *testing.T) {
	f := newFuncs()

	c, err := expression.NewCondition(" r3 == 5 ", f)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.String(), "r3 == 5")

	ok, err := c.Evaluate(f)
	test.ExpectSuccess(t, err)
	test.ExpectSuccess(t, ok)

	f.regs["r3"] = 6
	ok, err = c.Evaluate(f)
	test.ExpectSuccess(t, err)
	test.ExpectFailure(t, ok)
}
