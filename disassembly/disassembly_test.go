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

package disassembly_test

import (
	"testing"

	"github.com/cellforge/cellforge/disassembly"
	"github.com/cellforge/cellforge/disassembly/ppc"
	"github.com/cellforge/cellforge/disassembly/symbols"
	"github.com/cellforge/cellforge/hardware"
	"github.com/cellforge/cellforge/test"
)

func newGuest(t *testing.T) (*hardware.Machine, *symbols.Symbols) {
	t.Helper()

	m := hardware.NewMachine(0x10000, 0)
	sym := symbols.NewSymbols()

	// function with two macro candidates and a branch into the middle of a
	// third candidate
	test.DemandSuccess(t, m.Mem.LoadWords(0x1000,
		ppc.Lis(3, 0x1234),
		ppc.Addi(3, 3, 0x10),
		ppc.Lis(4, -0x8000),
		ppc.Lwz(5, -4, 4),
		ppc.Beq(-0x10),
		ppc.Lis(6, 1),
		ppc.Addi(6, 6, 1),
		ppc.B(-4),
	))
	sym.AddFunction(0x1000, 0x20, "main")

	// function with overlapping branches
	test.DemandSuccess(t, m.Mem.LoadWords(0x1100,
		ppc.B(0x10),
		ppc.B(0x8),
		ppc.Nop,
		ppc.Nop,
		ppc.B(0x4),
		ppc.Blr,
	))
	sym.AddFunction(0x1100, 0x18, "lanes")

	test.DemandSuccess(t, m.Mem.Load(0x2000, []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}))
	sym.AddData(0x2000, 6, "table")

	return m, sym
}

func TestFunctionEntry(t *testing.T) {
	m, sym := newGuest(t)
	dsm := disassembly.NewManager(m, ppc.NewDecoder(), sym)
	dsm.Analyze(0x1000, 0x20)

	e, ok := dsm.EntryAt(0x1010)
	test.DemandSuccess(t, ok)
	test.DemandEquality(t, e.Kind(), disassembly.EntryFunction)

	fn := e.(*disassembly.FunctionEntry)
	ents := fn.Entries()
	test.DemandEquality(t, len(ents), 3)
	test.ExpectEquality(t, ents[0].Kind(), disassembly.EntryMacro)
	test.ExpectEquality(t, ents[1].Kind(), disassembly.EntryMacro)
	test.ExpectEquality(t, ents[2].Kind(), disassembly.EntryOpcodes)

	// lis r6/addi r6 are not fused because of the branch to the addi
	test.ExpectEquality(t, ents[2].NumLines(), 4)
	test.ExpectEquality(t, fn.NumLines(), 6)

	l, ok := dsm.GetLine(0x1000)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, l.Label, "main")
	test.ExpectEquality(t, l.Mnemonic, "li32")
	test.ExpectEquality(t, l.Params, "r3,0x12340010")
	test.ExpectEquality(t, l.TotalSize, uint32(8))

	l, _ = dsm.GetLine(0x100c)
	test.ExpectEquality(t, l.Address, uint32(0x1008))
	test.ExpectEquality(t, l.Mnemonic, "lwz")
	test.ExpectEquality(t, l.Params, "r5,0x7ffffffc")

	l, _ = dsm.GetLine(0x1010)
	test.ExpectEquality(t, l.Kind, disassembly.LineOpcode)
	test.ExpectSuccess(t, l.Branch.Conditional)
	test.ExpectEquality(t, l.Branch.Target, uint32(0x1000))
}

func TestBranchLanes(t *testing.T) {
	m, sym := newGuest(t)
	dsm := disassembly.NewManager(m, ppc.NewDecoder(), sym)
	dsm.Analyze(0x1100, 0x18)

	lines := dsm.GetBranchLines(0x1100, 0x18)
	test.DemandEquality(t, len(lines), 3)

	test.ExpectEquality(t, lines[0], disassembly.BranchLine{First: 0x1100, Second: 0x1110, Direction: disassembly.BranchDown, Lane: 0})
	test.ExpectEquality(t, lines[1], disassembly.BranchLine{First: 0x1104, Second: 0x110c, Direction: disassembly.BranchDown, Lane: 1})

	// lane 1 is free again but lane 0 is still occupied at 0x1110
	test.ExpectEquality(t, lines[2], disassembly.BranchLine{First: 0x1110, Second: 0x1114, Direction: disassembly.BranchDown, Lane: 1})

	// a window that sees only part of the first two lines
	lines = dsm.GetBranchLines(0x1108, 4)
	test.ExpectEquality(t, len(lines), 2)

	lines = dsm.GetBranchLines(0x1114, 4)
	test.DemandEquality(t, len(lines), 1)
	test.ExpectEquality(t, lines[0].First, uint32(0x1110))

	// upward branches in the first function
	dsm.Analyze(0x1000, 0x20)
	lines = dsm.GetBranchLines(0x1000, 0x20)
	test.DemandEquality(t, len(lines), 2)
	test.ExpectEquality(t, lines[0].Direction, disassembly.BranchUp)
	test.ExpectEquality(t, lines[0].Lane, 0)
	test.ExpectEquality(t, lines[1].Lane, 0)
}

func TestTiling(t *testing.T) {
	m, sym := newGuest(t)

	// misaligned symbol extent
	sym.AddData(0x2010, 0x13, "misaligned")

	dsm := disassembly.NewManager(m, ppc.NewDecoder(), sym)

	const start = 0x0f00
	const end = 0x2100
	dsm.Analyze(start, end-start)

	ents := dsm.Entries()
	test.DemandSuccess(t, len(ents) > 0)
	test.ExpectEquality(t, ents[0].Address(), uint32(start))

	for i := 1; i < len(ents); i++ {
		prev := ents[i-1]
		test.ExpectEquality(t, prev.Address()+prev.TotalSize(), ents[i].Address(), i)
	}
	last := ents[len(ents)-1]
	test.ExpectSuccess(t, last.Address()+last.TotalSize() >= end)

	// filler entry after the misaligned data
	e, ok := dsm.EntryAt(0x2023)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, e.Kind(), disassembly.EntryData)
	test.ExpectEquality(t, e.Address(), uint32(0x2023))
	test.ExpectEquality(t, e.TotalSize(), uint32(1))

	// walking lines visits every entry without gaps
	addr := uint32(start)
	for addr < end {
		l, ok := dsm.GetLine(addr)
		test.DemandSuccess(t, ok)
		test.DemandEquality(t, l.Address, addr)
		test.DemandSuccess(t, l.TotalSize > 0)
		addr += l.TotalSize
	}

	// no new entries were needed by the walk
	test.ExpectEquality(t, len(dsm.Entries()), len(ents))
}

func TestDataLines(t *testing.T) {
	m, sym := newGuest(t)
	dsm := disassembly.NewManager(m, ppc.NewDecoder(), sym)

	l, ok := dsm.GetLine(0x2000)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, l.Label, "table")
	test.ExpectEquality(t, l.Mnemonic, ".word")
	test.ExpectEquality(t, l.Params, "0xdeadbeef")
	test.ExpectEquality(t, l.TotalSize, uint32(4))

	l, _ = dsm.GetLine(0x2005)
	test.ExpectEquality(t, l.Address, uint32(0x2004))
	test.ExpectEquality(t, l.Mnemonic, ".byte")
	test.ExpectEquality(t, l.Params, "0x01,0x02")
	test.ExpectEquality(t, l.TotalSize, uint32(2))
}

func TestNavigation(t *testing.T) {
	m, sym := newGuest(t)
	dsm := disassembly.NewManager(m, ppc.NewDecoder(), sym)

	test.ExpectEquality(t, dsm.GetStartAddress(0x100a), uint32(0x1008))
	test.ExpectEquality(t, dsm.GetNthNextAddress(0x1000, 0), uint32(0x1000))
	test.ExpectEquality(t, dsm.GetNthNextAddress(0x1000, 1), uint32(0x1008))
	test.ExpectEquality(t, dsm.GetNthNextAddress(0x1000, 2), uint32(0x1010))
	test.ExpectEquality(t, dsm.GetNthNextAddress(0x1000, 6), uint32(0x1020))
	test.ExpectEquality(t, dsm.GetNthNextAddress(0x1000, 7), uint32(0x1024))

	test.ExpectEquality(t, dsm.GetNthPreviousAddress(0x1010, 2), uint32(0x1000))
	test.ExpectEquality(t, dsm.GetNthPreviousAddress(0x1010, 3), uint32(0x0ffc))
	test.ExpectEquality(t, dsm.GetNthPreviousAddress(0x1010, 4), uint32(0x0ff8))
	test.ExpectEquality(t, dsm.GetNthPreviousAddress(0x0008, 10), uint32(0))

	// round trip
	a := dsm.GetNthNextAddress(0x0f00, 100)
	test.ExpectEquality(t, dsm.GetNthPreviousAddress(a, 100), uint32(0x0f00))
}

func TestRecheck(t *testing.T) {
	m, sym := newGuest(t)
	dsm := disassembly.NewManager(m, ppc.NewDecoder(), sym)
	dsm.Analyze(0x1000, 0x20)

	e, ok := dsm.EntryAt(0x1000)
	test.DemandSuccess(t, ok)
	fn := e.(*disassembly.FunctionEntry)
	first := fn.Entries()[0]
	hash := fn.Hash()

	// nothing has changed
	test.ExpectEquality(t, dsm.Recheck(0x1000, 0x20), 0)
	e2, _ := dsm.EntryAt(0x1000)
	test.ExpectSuccess(t, e2 == e)
	test.ExpectSuccess(t, fn.Entries()[0] == first)
	test.ExpectEquality(t, fn.Hash(), hash)

	// self-modifying code replaces the addi of the first macro
	test.DemandSuccess(t, m.Mem.Write32(0x1004, ppc.Nop))
	test.ExpectEquality(t, dsm.Recheck(0x1000, 0x20), 1)
	test.ExpectInequality(t, fn.Hash(), hash)

	ents := fn.Entries()
	test.DemandEquality(t, len(ents), 3)
	test.ExpectEquality(t, ents[0].Kind(), disassembly.EntryOpcodes)
	test.ExpectEquality(t, ents[0].NumLines(), 2)
	test.ExpectEquality(t, ents[1].Kind(), disassembly.EntryMacro)

	l, _ := dsm.GetLine(0x1004)
	test.ExpectEquality(t, l.Mnemonic, "nop")

	// changes outside of the range are not noticed
	test.DemandSuccess(t, m.Mem.Write32(0x1100, ppc.Nop))
	test.ExpectEquality(t, dsm.Recheck(0x1000, 0x20), 0)
}

func TestClear(t *testing.T) {
	m, sym := newGuest(t)
	dsm := disassembly.NewManager(m, ppc.NewDecoder(), sym)
	dsm.Analyze(0x1000, 0x200)
	test.ExpectSuccess(t, len(dsm.Entries()) > 0)
	dsm.Clear()
	test.ExpectEquality(t, len(dsm.Entries()), 0)
}

func TestNoSymbols(t *testing.T) {
	m, _ := newGuest(t)
	dsm := disassembly.NewManager(m, ppc.NewDecoder(), nil)

	l, ok := dsm.GetLine(0x1002)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, l.Address, uint32(0x1000))
	test.ExpectEquality(t, l.Kind, disassembly.LineOpcode)
	test.ExpectEquality(t, l.Label, "")

	// analysis starts on a word boundary
	dsm.Analyze(0x3001, 0x10)
	e, ok := dsm.EntryAt(0x3001)
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, e.Kind(), disassembly.EntryOpcodes)
	test.ExpectEquality(t, e.Address(), uint32(0x3000))
}
