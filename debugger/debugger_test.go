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

package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cellforge/cellforge/debugger"
	"github.com/cellforge/cellforge/debugger/breakpoints"
	"github.com/cellforge/cellforge/debugger/govern"
	"github.com/cellforge/cellforge/debugger/terminal/plainterm"
	"github.com/cellforge/cellforge/disassembly/ppc"
	"github.com/cellforge/cellforge/disassembly/symbols"
	"github.com/cellforge/cellforge/hardware"
	"github.com/cellforge/cellforge/test"
)

type invalidator struct {
	count int
}

func (inv *invalidator) Invalidate(start uint32, end uint32) int {
	inv.count++
	return 0
}

func newDebugger(t *testing.T) (*debugger.Debugger, *hardware.Machine, *invalidator) {
	t.Helper()

	m := hardware.NewMachine(0x10000, 0)
	test.DemandSuccess(t, m.Mem.LoadWords(0x1000,
		ppc.Addi(3, 0, 5),
		ppc.Bl(0x0c),
		ppc.Beq(-8),
		ppc.Blr,
		ppc.Nop,
		ppc.Blr,
	))
	test.DemandSuccess(t, m.Mem.Load(0x2000, []byte{0xde, 0xad, 0xbe, 0xef}))

	sym := symbols.NewSymbols()
	sym.AddFunction(0x1000, 0x10, "main")
	sym.AddFunction(0x1010, 0x08, "sub")
	sym.AddData(0x2000, 4, "counter")

	inv := &invalidator{}
	dbg, err := debugger.NewDebugger(debugger.Config{
		Target:      m,
		Decoder:     ppc.NewDecoder(),
		Symbols:     sym,
		Invalidator: inv,
	})
	test.DemandSuccess(t, err)

	return dbg, m, inv
}

func TestNewDebugger(t *testing.T) {
	_, err := debugger.NewDebugger(debugger.Config{})
	test.ExpectFailure(t, err)

	dbg, _, _ := newDebugger(t)
	state, sub := dbg.State()
	test.ExpectEquality(t, state, govern.Paused)
	test.ExpectEquality(t, sub, govern.Normal)
}

func TestNextAddresses(t *testing.T) {
	dbg, m, _ := newDebugger(t)
	m.Regs.LR = 0x1237

	expect := func(pc uint32, over bool, addrs ...uint32) {
		t.Helper()
		next, err := dbg.NextAddresses(pc, over)
		test.DemandSuccess(t, err)
		test.DemandEquality(t, len(next), len(addrs), pc)
		for i := range addrs {
			test.ExpectEquality(t, next[i], addrs[i], pc)
		}
	}

	// straight line code
	expect(0x1000, false, 0x1004)

	// call
	expect(0x1004, false, 0x1010)
	expect(0x1004, true, 0x1008)

	// conditional branch
	expect(0x1008, false, 0x1000, 0x100c)

	// return through the link register
	expect(0x100c, false, 0x1234)
}

func TestStepOver(t *testing.T) {
	dbg, m, _ := newDebugger(t)
	m.SetPC(0x1004)

	addrs, err := dbg.StepOver()
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(addrs), 1)
	test.ExpectEquality(t, addrs[0], 0x1008)
	test.ExpectSuccess(t, dbg.Engine.IsTempBreakPoint(0x1008))
	test.ExpectFailure(t, m.IsPaused())

	state, _ := dbg.State()
	test.ExpectEquality(t, state, govern.Stepping)

	// stepping again while running fails
	_, err = dbg.StepOver()
	test.ExpectEquality(t, err, debugger.ErrNotPaused)

	test.ExpectFailure(t, dbg.OnFetch(0x1010))
	test.ExpectFailure(t, dbg.OnFetch(0x1014))
	test.ExpectSuccess(t, dbg.OnFetch(0x1008))
	test.ExpectSuccess(t, m.IsPaused())
	test.ExpectFailure(t, dbg.Engine.IsTempBreakPoint(0x1008))

	state, sub := dbg.State()
	test.ExpectEquality(t, state, govern.Paused)
	test.ExpectEquality(t, sub, govern.Normal)
}

func TestStepOntoBreakpoint(t *testing.T) {
	dbg, m, _ := newDebugger(t)
	m.SetPC(0x1004)

	dbg.Engine.AddBreakPoint(0x1008, false)
	_, err := dbg.StepOver()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(dbg.Engine.BreakPoints()), 2)

	test.ExpectSuccess(t, dbg.OnFetch(0x1008))
	bps := dbg.Engine.BreakPoints()
	test.DemandEquality(t, len(bps), 1)
	test.ExpectFailure(t, bps[0].Temporary)
	test.ExpectSuccess(t, bps[0].Enabled)

	_, sub := dbg.State()
	test.ExpectEquality(t, sub, govern.PausedAtBreakpoint)
}

func TestResumeFromBreakpoint(t *testing.T) {
	dbg, m, _ := newDebugger(t)
	m.SetPC(0x1000)

	dbg.Engine.AddBreakPoint(0x1000, false)
	dbg.Resume()

	// the breakpoint at the PC has already been seen
	test.ExpectFailure(t, dbg.OnFetch(0x1000))
	test.ExpectSuccess(t, dbg.OnFetch(0x1000))

	_, sub := dbg.State()
	test.ExpectEquality(t, sub, govern.PausedAtBreakpoint)

	// pausing clears temporary breakpoints
	dbg.Engine.AddBreakPoint(0x100c, true)
	dbg.Pause()
	test.ExpectFailure(t, dbg.Engine.IsTempBreakPoint(0x100c))
	_, sub = dbg.State()
	test.ExpectEquality(t, sub, govern.PausedByUser)
}

func TestParseBreak(t *testing.T) {
	dbg, m, inv := newDebugger(t)

	addr, err := dbg.ParseBreak("0x1008 if r3 == 5")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, addr, 0x1008)
	test.ExpectInequality(t, dbg.Engine.BreakPointCondition(0x1008), nil)
	test.ExpectEquality(t, inv.count, 2)

	dbg.Resume()
	test.ExpectFailure(t, dbg.OnFetch(0x1008))
	m.Regs.GPR[3] = 5
	test.ExpectSuccess(t, dbg.OnFetch(0x1008))

	addr, err = dbg.ParseBreak("sub")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, addr, 0x1010)

	// nothing is added if the condition is invalid
	_, err = dbg.ParseBreak("0x100c if nosuch == 1")
	test.ExpectFailure(t, err)
	defined, _ := dbg.Engine.IsBreakPointDefined(0x100c)
	test.ExpectFailure(t, defined)

	_, err = dbg.ParseBreak("0x100c if")
	test.ExpectFailure(t, err)

	_, err = dbg.ParseBreak("nosuch")
	test.ExpectFailure(t, err)

	_, err = dbg.ParseBreak("")
	test.ExpectFailure(t, err)

	test.ExpectEquality(t, len(dbg.Engine.BreakPoints()), 2)
}

func TestParseWatch(t *testing.T) {
	dbg, _, _ := newDebugger(t)

	mc, err := dbg.ParseWatch("write 0x2000 0x10 break")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, mc.Start, 0x2000)
	test.ExpectEquality(t, mc.End, 0x2010)
	test.ExpectEquality(t, mc.Cond, breakpoints.CondWrite)
	test.ExpectEquality(t, mc.Result, breakpoints.ResultBreak)

	// combined with the existing watch
	mc, err = dbg.ParseWatch("READ $2000 16 log")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, mc.Cond, breakpoints.CondReadWrite)
	test.ExpectEquality(t, mc.Result, breakpoints.ResultLogAndBreak)

	mc, err = dbg.ParseWatch("change counter")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, mc.Start, 0x2000)
	test.ExpectEquality(t, mc.End, 0x2000)
	test.ExpectEquality(t, mc.Cond, breakpoints.CondWrite|breakpoints.CondWriteOnChange)

	_, err = dbg.ParseWatch("write")
	test.ExpectFailure(t, err)
	_, err = dbg.ParseWatch("peek 0x2000")
	test.ExpectFailure(t, err)
	_, err = dbg.ParseWatch("write 0x2000 0x10 0x20")
	test.ExpectFailure(t, err)
	_, err = dbg.ParseWatch("write 0xfffffff0 0x20")
	test.ExpectFailure(t, err)

	test.ExpectEquality(t, len(dbg.Engine.MemChecks()), 2)
}

func TestOnAccess(t *testing.T) {
	dbg, m, _ := newDebugger(t)

	_, err := dbg.ParseWatch("change counter 4")
	test.DemandSuccess(t, err)
	dbg.Resume()

	// same value written
	test.ExpectFailure(t, dbg.OnAccess(0x2000, true, 4, 0x1000))
	test.DemandSuccess(t, m.Mem.Write32(0x2000, 0xdeadbeef))
	test.ExpectFailure(t, dbg.OnInstructionEnd(nil))

	// different value
	test.ExpectFailure(t, dbg.OnAccess(0x2000, true, 4, 0x1004))
	test.DemandSuccess(t, m.Mem.Write32(0x2000, 0x00000001))
	test.ExpectSuccess(t, dbg.OnInstructionEnd(nil))
	test.ExpectSuccess(t, m.IsPaused())

	state, sub := dbg.State()
	test.ExpectEquality(t, state, govern.Paused)
	test.ExpectEquality(t, sub, govern.PausedAtMemCheck)

	h, ok := dbg.Engine.LastHalt()
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, h.PC, 0x1004)
}

func TestMemoryCondition(t *testing.T) {
	dbg, _, _ := newDebugger(t)

	_, err := dbg.ParseBreak("main if [counter] == 0xdeadbeef")
	test.DemandSuccess(t, err)
	dbg.Resume()
	test.ExpectSuccess(t, dbg.OnFetch(0x1000))
}

func TestCommandLoop(t *testing.T) {
	dbg, m, _ := newDebugger(t)

	script := []string{
		"goto main",
		"break main",
		"watch write counter 4",
		"list",
		"disasm main 4",
		"mem counter 4",
		"bogus",
		"break",
		"step into",
		"help watch",
		"quit",
		"regs",
	}

	out := &bytes.Buffer{}
	term := &plainterm.PlainTerminal{
		Input:  strings.NewReader(strings.Join(script, "\n")),
		Output: out,
	}
	test.DemandSuccess(t, dbg.Start(term))

	s := out.String()
	test.ExpectSuccess(t, strings.Contains(s, "breakpoint added at 0x001000"))
	test.ExpectSuccess(t, strings.Contains(s, "watch: 0x002000-0x002004 write break (0 hits)"))
	test.ExpectSuccess(t, strings.Contains(s, "> 00001000 <main>"))
	test.ExpectSuccess(t, strings.Contains(s, "0x002000  de ad be ef"))
	test.ExpectSuccess(t, strings.Contains(s, "* unrecognised command (BOGUS)"))
	test.ExpectSuccess(t, strings.Contains(s, "* missing string argument for BREAK"))
	test.ExpectSuccess(t, strings.Contains(s, "stepping to 0x001004"))
	test.ExpectSuccess(t, strings.Contains(s, "usage: WATCH [READ|WRITE|CHANGE|ACCESS] %S (%V) (LOG|BREAK|BOTH)"))

	// commands after quit are not run
	test.ExpectFailure(t, strings.Contains(s, "lr  "))

	test.ExpectEquality(t, m.GetPC(), 0x1000)
}

func TestCommandLoopEndOfInput(t *testing.T) {
	dbg, _, _ := newDebugger(t)

	out := &bytes.Buffer{}
	term := &plainterm.PlainTerminal{
		Input:  strings.NewReader("regs\n"),
		Output: out,
	}
	test.DemandSuccess(t, dbg.Start(term))
	test.ExpectSuccess(t, strings.Contains(out.String(), "lr  "))
}
