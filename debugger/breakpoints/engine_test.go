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

package breakpoints_test

import (
	"testing"

	"github.com/cellforge/cellforge/assert"
	"github.com/cellforge/cellforge/debugger/breakpoints"
	"github.com/cellforge/cellforge/debugger/expression"
	"github.com/cellforge/cellforge/debugger/govern"
	"github.com/cellforge/cellforge/hardware"
	"github.com/cellforge/cellforge/test"
)

// guest records calls to Pause() and Resume()
type guest struct {
	*hardware.Machine
	pauses  int
	resumes int
}

func (g *guest) Pause() {
	g.pauses++
	g.Machine.Pause()
}

func (g *guest) Resume() {
	g.resumes++
	g.Machine.Resume()
}

type invalidator struct {
	ranges [][2]uint32
}

func (inv *invalidator) Invalidate(start uint32, end uint32) int {
	inv.ranges = append(inv.ranges, [2]uint32{start, end})
	return 1
}

// funcs resolves identifiers using the machine registers
type funcs struct {
	m *hardware.Machine
}

func (f funcs) Lookup(name string) (uint64, bool) {
	return f.m.Register(name)
}

func (f funcs) ReadMemory(addr uint32) (uint32, error) {
	return f.m.Read32(addr)
}

func newEngine(t *testing.T, mask uint32) (*breakpoints.Engine, *guest, *invalidator) {
	t.Helper()
	g := &guest{Machine: hardware.NewMachine(0x10000, 0)}
	inv := &invalidator{}
	e := breakpoints.NewEngine(breakpoints.Config{
		Mask:        mask,
		Target:      g,
		Functions:   funcs{m: g.Machine},
		Invalidator: inv,
	})
	return e, g, inv
}

func TestBreakPointDedup(t *testing.T) {
	e, _, _ := newEngine(t, 0)

	e.AddBreakPoint(0x1000, false)
	e.AddBreakPoint(0x1000, false)
	test.ExpectEquality(t, len(e.BreakPoints()), 1)

	// adding a disabled breakpoint again enables it
	e.ChangeBreakPoint(0x1000, false)
	test.ExpectFailure(t, e.IsAddressBreakPoint(0x1000))
	e.AddBreakPoint(0x1000, false)
	test.ExpectSuccess(t, e.IsAddressBreakPoint(0x1000))
	test.ExpectEquality(t, len(e.BreakPoints()), 1)

	// temporary and permanent breakpoints coexist
	e.AddBreakPoint(0x1000, true)
	test.ExpectEquality(t, len(e.BreakPoints()), 2)
	test.ExpectSuccess(t, e.IsTempBreakPoint(0x1000))

	e.RemoveTempBreakPoint(0x1000)
	test.ExpectEquality(t, len(e.BreakPoints()), 1)
	test.ExpectFailure(t, e.IsTempBreakPoint(0x1000))
	test.ExpectSuccess(t, e.IsAddressBreakPoint(0x1000))

	// removing by address removes both kinds
	e.AddBreakPoint(0x1000, true)
	e.RemoveBreakPoint(0x1000)
	test.ExpectEquality(t, len(e.BreakPoints()), 0)
	test.ExpectFailure(t, e.IsAddressBreakPoint(0x1000))
}

func TestClearTemporary(t *testing.T) {
	e, _, _ := newEngine(t, 0)

	e.AddBreakPoint(0x1000, false)
	e.AddBreakPoint(0x1000, true)
	e.AddBreakPoint(0x2000, true)
	e.ClearTemporaryBreakPoints()

	bps := e.BreakPoints()
	test.DemandEquality(t, len(bps), 1)
	test.ExpectEquality(t, bps[0].Address, 0x1000)
	test.ExpectFailure(t, bps[0].Temporary)
	test.ExpectSuccess(t, bps[0].Enabled)
	test.ExpectFailure(t, e.IsTempBreakPoint(0x2000))
}

func TestMemCheckMerge(t *testing.T) {
	e, _, _ := newEngine(t, 0)

	e.AddMemCheck(0x1000, 0x1010, breakpoints.CondRead, breakpoints.ResultLog)
	e.AddMemCheck(0x1000, 0x1010, breakpoints.CondWrite, breakpoints.ResultBreak)

	mcs := e.MemChecks()
	test.DemandEquality(t, len(mcs), 1)
	test.ExpectEquality(t, mcs[0].Cond, breakpoints.CondReadWrite)
	test.ExpectEquality(t, mcs[0].Result, breakpoints.ResultLogAndBreak)

	e.AddMemCheck(0x1000, 0x1008, breakpoints.CondRead, breakpoints.ResultLog)
	test.ExpectEquality(t, len(e.MemChecks()), 2)

	e.RemoveMemCheck(0x1000, 0x1010)
	mcs = e.MemChecks()
	test.DemandEquality(t, len(mcs), 1)
	test.ExpectEquality(t, mcs[0].End, 0x1008)

	e.ClearAllMemChecks()
	test.ExpectEquality(t, len(e.MemChecks()), 0)
}

func TestQuery(t *testing.T) {
	e, _, _ := newEngine(t, 0x1fffffff)

	e.AddMemCheck(0x2000, 0x2010, breakpoints.CondWrite, breakpoints.ResultLog)
	e.AddMemCheck(0x3000, 0x3000, breakpoints.CondRead, breakpoints.ResultLog)

	_, ok := e.Query(0x1ffc, 4)
	test.ExpectFailure(t, ok, "access ending at start")
	_, ok = e.Query(0x1ffe, 4)
	test.ExpectSuccess(t, ok, "access straddling start")
	_, ok = e.Query(0x200f, 1)
	test.ExpectSuccess(t, ok, "last byte")
	_, ok = e.Query(0x2010, 4)
	test.ExpectFailure(t, ok, "access at end")

	// mirrored address
	mc, ok := e.Query(0xa0002004, 4)
	test.ExpectSuccess(t, ok, "mirror")
	test.ExpectEquality(t, mc.Start, 0x2000)

	// zero length checks match the exact address only
	_, ok = e.Query(0x3000, 4)
	test.ExpectSuccess(t, ok)
	_, ok = e.Query(0x2ffe, 4)
	test.ExpectFailure(t, ok)
}

func TestQueryAtMirrorBoundary(t *testing.T) {
	e, _, _ := newEngine(t, 0x1fffffff)

	// the end of the range masks to zero
	e.AddMemCheck(0x1ffffff0, 0x20000000, breakpoints.CondWrite, breakpoints.ResultLog)

	mc, ok := e.Query(0x1ffffff8, 4)
	test.ExpectSuccess(t, ok, "inside range")
	test.ExpectEquality(t, mc.Start, 0x1ffffff0)
	_, ok = e.Query(0x1ffffff0, 1)
	test.ExpectSuccess(t, ok, "first byte")
	_, ok = e.Query(0x1fffffff, 1)
	test.ExpectSuccess(t, ok, "last byte")
	_, ok = e.Query(0xbffffffc, 4)
	test.ExpectSuccess(t, ok, "mirror of last word")
	_, ok = e.Query(0x1fffffe0, 8)
	test.ExpectFailure(t, ok, "before range")
	_, ok = e.Query(0x00000000, 4)
	test.ExpectFailure(t, ok, "wrapped start of memory")
}

func TestExecCheck(t *testing.T) {
	e, g, _ := newEngine(t, 0)
	g.Resume()

	e.AddMemCheck(0x2000, 0x2010, breakpoints.CondWrite, breakpoints.ResultLog)
	test.ExpectFailure(t, e.ExecCheck(0x2000, false, 4, 0x400), "read of write check")
	test.ExpectFailure(t, e.ExecCheck(0x2000, true, 4, 0x400), "log only")

	mcs := e.MemChecks()
	test.ExpectEquality(t, mcs[0].NumHits, 1)
	test.ExpectEquality(t, mcs[0].LastPC, 0x400)

	e.AddMemCheck(0x2000, 0x2010, breakpoints.CondWrite, breakpoints.ResultBreak)
	test.ExpectSuccess(t, e.ExecCheck(0x2008, true, 4, 0x404))
	test.ExpectSuccess(t, g.IsPaused())

	h, ok := e.LastHalt()
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, h.Reason, govern.PausedAtMemCheck)
	test.ExpectEquality(t, h.Address, 0x2008)
}

func TestWriteOnChange(t *testing.T) {
	e, _, _ := newEngine(t, 0)

	e.AddMemCheck(0x2000, 0x2010, breakpoints.CondWrite|breakpoints.CondWriteOnChange, breakpoints.ResultBreak)

	test.ExpectFailure(t, e.JitBefore(0x2004, true, 4, 0x500))
	test.ExpectEquality(t, e.Pending(), 1)
	test.ExpectEquality(t, e.MemChecks()[0].NumHits, 0)

	changed := func(tok breakpoints.WatchToken) bool {
		test.ExpectEquality(t, tok.Address, 0x2004)
		test.ExpectEquality(t, tok.PC, 0x500)
		return true
	}
	test.ExpectSuccess(t, e.JitCleanup(changed))
	test.ExpectEquality(t, e.Pending(), 0)
	test.ExpectEquality(t, e.MemChecks()[0].NumHits, 1)

	unchanged := func(tok breakpoints.WatchToken) bool {
		return false
	}
	e.JitBefore(0x2004, true, 4, 0x500)
	test.ExpectFailure(t, e.JitCleanup(unchanged))
	test.ExpectEquality(t, e.MemChecks()[0].NumHits, 1)

	// reads are not deferred and do not match a write check
	test.ExpectFailure(t, e.JitBefore(0x2004, false, 4, 0x500))
	test.ExpectEquality(t, e.Pending(), 0)
}

func TestWriteOnChangePreImage(t *testing.T) {
	e, g, _ := newEngine(t, 0)
	test.DemandSuccess(t, g.Mem.Write32(0x2004, 0x12345678))

	e.AddMemCheck(0x2000, 0x2010, breakpoints.CondWrite|breakpoints.CondWriteOnChange, breakpoints.ResultLog)

	// same value written
	e.JitBefore(0x2004, true, 4, 0x500)
	test.DemandSuccess(t, g.Mem.Write32(0x2004, 0x12345678))
	e.JitCleanup(nil)
	test.ExpectEquality(t, e.MemChecks()[0].NumHits, 0)

	// different value written
	e.JitBefore(0x2004, true, 4, 0x504)
	test.DemandSuccess(t, g.Mem.Write32(0x2004, 0xcafef00d))
	e.JitCleanup(nil)
	test.ExpectEquality(t, e.MemChecks()[0].NumHits, 1)
	test.ExpectEquality(t, e.MemChecks()[0].LastPC, 0x504)
}

func TestCheckFetch(t *testing.T) {
	e, g, _ := newEngine(t, 0)
	g.Resume()

	e.AddBreakPoint(0x1000, false)
	test.ExpectFailure(t, e.CheckFetch(0x0ffc))
	test.ExpectSuccess(t, e.CheckFetch(0x1000))
	test.ExpectSuccess(t, g.IsPaused())

	h, ok := e.LastHalt()
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, h.Reason, govern.PausedAtBreakpoint)
	test.ExpectEquality(t, h.PC, 0x1000)

	// skip first is consumed by the next fetch
	e.SkipFirst(0x1000)
	test.ExpectFailure(t, e.CheckFetch(0x1000))
	test.ExpectSuccess(t, e.CheckFetch(0x1000))

	// inspecting the skip does not consume it
	e.SkipFirst(0x1000)
	test.ExpectFailure(t, e.CheckSkipFirst(0x1004))
	test.ExpectSuccess(t, e.CheckSkipFirst(0x1000))
	test.ExpectSuccess(t, e.CheckSkipFirst(0x1000))
	test.ExpectFailure(t, e.CheckFetch(0x1000))
	test.ExpectFailure(t, e.CheckSkipFirst(0x1000))

	// a fetch elsewhere consumes the skip
	e.SkipFirst(0x1000)
	test.ExpectFailure(t, e.CheckFetch(0x0ffc))
	test.ExpectFailure(t, e.CheckSkipFirst(0x1000))
	test.ExpectSuccess(t, e.CheckFetch(0x1000))

	// disabled breakpoints do not halt
	e.ChangeBreakPoint(0x1000, false)
	test.ExpectFailure(t, e.CheckFetch(0x1000))
}

func TestConditions(t *testing.T) {
	e, g, _ := newEngine(t, 0)
	fn := funcs{m: g.Machine}

	cond, err := expression.NewCondition("r3 == 5", fn)
	test.DemandSuccess(t, err)

	e.AddBreakPoint(0x1000, false)
	e.ChangeBreakPointAddCond(0x1000, cond)
	test.ExpectEquality(t, e.BreakPointCondition(0x1000), cond)

	test.ExpectFailure(t, e.CheckFetch(0x1000))
	g.Regs.GPR[3] = 5
	test.ExpectSuccess(t, e.CheckFetch(0x1000))

	// a condition that fails to evaluate does not halt
	cond, err = expression.NewCondition("r3 / r4", fn)
	test.DemandSuccess(t, err)
	e.ChangeBreakPointAddCond(0x1000, cond)
	test.ExpectFailure(t, e.CheckFetch(0x1000))

	e.ChangeBreakPointRemoveCond(0x1000)
	test.ExpectEquality(t, e.BreakPointCondition(0x1000), nil)
	test.ExpectSuccess(t, e.CheckFetch(0x1000))
}

func TestUpdate(t *testing.T) {
	e, g, inv := newEngine(t, 0)

	// guest is paused. no need to pause or resume
	e.AddBreakPoint(0x1000, false)
	test.ExpectEquality(t, g.pauses, 0)
	test.ExpectEquality(t, g.resumes, 0)
	test.DemandEquality(t, len(inv.ranges), 1)
	test.ExpectEquality(t, inv.ranges[0], [2]uint32{0x1000, 0x1004})

	// guest is running. paused for the duration and resumed afterwards
	g.Resume()
	g.resumes = 0
	e.AddBreakPoint(0x2000, false)
	test.ExpectEquality(t, g.pauses, 1)
	test.ExpectEquality(t, g.resumes, 1)
	test.ExpectFailure(t, g.IsPaused())
	test.ExpectEquality(t, e.Updates(), 2)

	e.ClearAllBreakPoints()
	test.ExpectEquality(t, len(e.BreakPoints()), 0)
	test.ExpectEquality(t, inv.ranges[len(inv.ranges)-1], [2]uint32{0, 0xffffffff})
}

func TestOwnership(t *testing.T) {
	var owner assert.Owner
	e := breakpoints.NewEngine(breakpoints.Config{Owner: &owner})

	owner.Claim()
	e.AddBreakPoint(0x1000, false)

	done := make(chan any)
	go func() {
		defer func() { done <- recover() }()
		e.AddBreakPoint(0x2000, false)
	}()
	test.ExpectInequality(t, <-done, nil)
	test.ExpectEquality(t, len(e.BreakPoints()), 1)
}
