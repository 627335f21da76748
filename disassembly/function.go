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

package disassembly

import (
	"sort"
)

// FunctionEntry covers a function. The function is divided into sub-entries,
// each of which is an OpcodeRun, MacroEntry, DataEntry or CommentEntry.
type FunctionEntry struct {
	src  *source
	addr uint32
	size uint32
	hash uint64

	entries       []Entry
	lineAddresses []uint32
	branchLines   []BranchLine
}

func newFunctionEntry(src *source, addr uint32, size uint32) *FunctionEntry {
	fn := &FunctionEntry{src: src, addr: addr, size: size}
	fn.load()
	return fn
}

func (fn *FunctionEntry) Kind() EntryKind   { return EntryFunction }
func (fn *FunctionEntry) Address() uint32   { return fn.addr }
func (fn *FunctionEntry) TotalSize() uint32 { return fn.size }
func (fn *FunctionEntry) NumLines() int     { return len(fn.lineAddresses) }
func (fn *FunctionEntry) Hash() uint64      { return fn.hash }

// Entries returns the sub-entries of the function in address order. The
// returned slice must not be modified.
func (fn *FunctionEntry) Entries() []Entry {
	return fn.entries
}

// BranchLines returns every branch within the function.
func (fn *FunctionEntry) BranchLines() []BranchLine {
	return fn.branchLines
}

func (fn *FunctionEntry) LineNum(addr uint32) int {
	n := sort.Search(len(fn.lineAddresses), func(i int) bool {
		return fn.lineAddresses[i] > addr
	})
	return max(n-1, 0)
}

func (fn *FunctionEntry) LineAddress(n int) uint32 {
	if n < 0 || n >= len(fn.lineAddresses) {
		return fn.addr
	}
	return fn.lineAddresses[n]
}

func (fn *FunctionEntry) entryAt(addr uint32) Entry {
	n := sort.Search(len(fn.entries), func(i int) bool {
		return fn.entries[i].Address() > addr
	})
	return fn.entries[max(n-1, 0)]
}

func (fn *FunctionEntry) Line(addr uint32) Line {
	if len(fn.entries) == 0 {
		return Line{Kind: LineComment, Address: fn.addr, TotalSize: fn.size}
	}
	return fn.entryAt(addr).Line(addr)
}

func (fn *FunctionEntry) recheck() bool {
	if fn.src.hash(fn.addr, fn.size) == fn.hash {
		return false
	}
	fn.load()
	return true
}

func (fn *FunctionEntry) add(e Entry) {
	fn.entries = append(fn.entries, e)
	for n := range e.NumLines() {
		fn.lineAddresses = append(fn.lineAddresses, e.LineAddress(n))
	}
}

// load decodes the function in two passes. the first pass finds the branches
// within the function and the second pass divides the function into entries.
func (fn *FunctionEntry) load() {
	fn.entries = nil
	fn.lineAddresses = nil
	fn.branchLines = nil
	fn.hash = fn.src.hash(fn.addr, fn.size)

	end := fn.addr + fn.size

	// branch targets within the function. a macro is never formed across an
	// address in this set
	targets := make(map[uint32]bool)

	for a := (fn.addr + 3) &^ 3; a >= fn.addr && a < end && end-a >= 4; a += 4 {
		ins := fn.src.decode(a)
		if !ins.Branch.IsBranch || !ins.Branch.HasTarget {
			continue
		}

		t := ins.Branch.Target
		if t < fn.addr || t >= end || t == a {
			continue
		}
		targets[t] = true

		l := BranchLine{First: a, Second: t, Direction: BranchDown}
		if t < a {
			l = BranchLine{First: t, Second: a, Direction: BranchUp}
		}
		fn.branchLines = append(fn.branchLines, l)
	}

	assignLanes(fn.branchLines)

	var run *OpcodeRun
	flush := func() {
		if run != nil {
			run.hash = fn.src.hash(run.addr, run.TotalSize())
			fn.add(run)
			run = nil
		}
	}

	a := fn.addr
	for a < end {
		if a != fn.addr {
			if sz, ok := fn.src.dataAt(a); ok {
				flush()
				sz = min(sz, end-a)
				fn.add(newDataEntry(fn.src, a, sz))
				a += sz
				continue
			}
		}

		if a%4 != 0 {
			flush()
			sz := min(4-a%4, end-a)
			fn.add(newCommentEntry(fn.src, a, sz, ".align 4"))
			a += sz
			continue
		}

		// trailing bytes too short for an instruction
		if end-a < 4 {
			flush()
			fn.add(newDataEntry(fn.src, a, end-a))
			break
		}

		ins := fn.src.decode(a)
		if ins.Fusion.Kind == FusionLoadUpper && end-a >= 8 && !targets[a+4] {
			if _, ok := fn.src.dataAt(a + 4); !ok {
				if m, ok := fuse(fn.src, a, ins, fn.src.decode(a+4)); ok {
					flush()
					fn.add(m)
					a += 8
					continue
				}
			}
		}

		if run == nil {
			run = &OpcodeRun{src: fn.src, addr: a}
		}
		run.num++
		a += 4
	}

	flush()
}
