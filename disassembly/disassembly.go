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
	"sync"

	"github.com/cellforge/cellforge/debugger/dbgmem"
	"github.com/cellforge/cellforge/logger"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// Manager maintains the disassembly entries for guest memory.
type Manager struct {
	src *source

	// Entry values keyed by start address
	entries *redblacktree.Tree

	// critical sectioning
	crit sync.Mutex
}

// NewManager is the preferred method of initialisation for the Manager type.
// The symbols argument can be nil.
func NewManager(mem dbgmem.Target, dec Decoder, sym SymbolMap) *Manager {
	if sym == nil {
		sym = noSymbols{}
	}
	return &Manager{
		src: &source{
			mem: mem,
			dec: dec,
			sym: sym,
		},
		entries: redblacktree.NewWith(utils.UInt32Comparator),
	}
}

// find the entry that covers the address.
func (dsm *Manager) find(addr uint32) (Entry, bool) {
	n, ok := dsm.entries.Floor(addr)
	if !ok {
		return nil, false
	}
	e := n.Value.(Entry)
	if covers(e, addr) {
		return e, true
	}
	return nil, false
}

// start address of the first entry after the address.
func (dsm *Manager) nextEntry(addr uint32) (uint32, bool) {
	n, ok := dsm.entries.Ceiling(addr)
	if !ok {
		return 0, false
	}
	return n.Key.(uint32), true
}

// the address at which a new entry starting at addr must end: the next symbol
// or the next entry, whichever comes first.
func (dsm *Manager) boundary(addr uint32) (uint32, bool) {
	b, ok := dsm.nextEntry(addr)
	if s, sok := dsm.src.sym.NextSymbolAddress(addr); sok && (!ok || s < b) {
		return s, true
	}
	return b, ok
}

func (dsm *Manager) insert(e Entry) {
	dsm.entries.Put(e.Address(), e)
}

// Analyze creates entries for the range of memory. Addresses already covered
// by an entry are not analysed again.
func (dsm *Manager) Analyze(addr uint32, size uint32) {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()
	dsm.analyze(addr, size)
}

func (dsm *Manager) analyze(addr uint32, size uint32) {
	end := rangeEnd(addr, size)
	addr &^= 3

	for addr < end {
		if e, ok := dsm.find(addr); ok {
			next := e.Address() + e.TotalSize()
			if next <= addr {
				return
			}
			addr = next
			continue
		}

		// an address inside a symbol is analysed from the start of the symbol
		// unless part of the symbol is already covered by another entry
		if s, ok := dsm.src.sym.Containing(addr); ok && s < addr {
			n, ok := dsm.entries.Floor(addr)
			if !ok {
				addr = s
			} else if e := n.Value.(Entry); e.Address()+e.TotalSize() <= s {
				addr = s
			}
		}

		// functions and data symbols are sized according to the symbol and
		// are only truncated if they would overlap an existing entry
		if sz, ok := dsm.src.sym.FunctionAt(addr); ok && sz > 0 {
			sz = dsm.truncate(addr, sz)
			dsm.insert(newFunctionEntry(dsm.src, addr, sz))
			addr += sz
			continue
		}

		if sz, ok := dsm.src.sym.DataAt(addr); ok && sz > 0 {
			sz = dsm.truncate(addr, sz)
			dsm.insert(newDataEntry(dsm.src, addr, sz))
			addr += sz
			continue
		}

		b, bok := dsm.boundary(addr)

		// misaligned addresses are filled with data up to the next word
		if addr%4 != 0 {
			stop := (addr + 3) &^ 3
			if bok && b < stop {
				stop = b
			}
			dsm.insert(newDataEntry(dsm.src, addr, stop-addr))
			addr = stop
			continue
		}

		stop := end
		if bok && b < stop {
			stop = b
		}

		num := int((stop - addr) / 4)
		if num == 0 {
			if bok && b-addr < 4 {
				dsm.insert(newDataEntry(dsm.src, addr, b-addr))
				addr = b
				continue
			}
			num = 1
		}

		r := newOpcodeRun(dsm.src, addr, num)
		dsm.insert(r)
		addr += r.TotalSize()
		if addr == 0 {
			return
		}
	}
}

// truncate size so that an entry starting at addr does not overlap the entry
// that follows it.
func (dsm *Manager) truncate(addr uint32, size uint32) uint32 {
	size = rangeEnd(addr, size) - addr
	if b, ok := dsm.nextEntry(addr); ok && b-addr < size {
		logger.Logf(logger.Allow, "disassembly", "symbol at %#08x truncated by entry at %#08x", addr, b)
		return b - addr
	}
	return size
}

// amount of memory analysed when an address is not covered by an entry.
const analyzeWindow = 0x400

// the entry covering the address, analysing memory if necessary.
func (dsm *Manager) cover(addr uint32) (Entry, bool) {
	if e, ok := dsm.find(addr); ok {
		return e, true
	}
	dsm.analyze(addr, analyzeWindow)
	return dsm.find(addr)
}

// EntryAt returns the top-level entry covering the address. Memory is not
// analysed if there is no entry.
func (dsm *Manager) EntryAt(addr uint32) (Entry, bool) {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()
	return dsm.find(addr)
}

// GetLine returns the line of disassembly containing the address.
func (dsm *Manager) GetLine(addr uint32) (Line, bool) {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()

	e, ok := dsm.cover(addr)
	if !ok {
		return Line{}, false
	}

	l := e.Line(addr)
	if s, ok := dsm.src.sym.Label(l.Address); ok {
		l.Label = s
	}
	return l, true
}

// GetStartAddress returns the start address of the line containing the
// address.
func (dsm *Manager) GetStartAddress(addr uint32) uint32 {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()

	e, ok := dsm.cover(addr)
	if !ok {
		return addr
	}
	return e.LineAddress(e.LineNum(addr))
}

// GetNthNextAddress returns the start address of the line n lines after the
// line containing the address.
func (dsm *Manager) GetNthNextAddress(addr uint32, n int) uint32 {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()

	for {
		e, ok := dsm.cover(addr)
		if !ok {
			return addr
		}

		ln := e.LineNum(addr)
		remaining := e.NumLines() - 1 - ln
		if n <= remaining {
			return e.LineAddress(ln + n)
		}
		n -= remaining + 1

		next := e.Address() + e.TotalSize()
		if next <= e.Address() {
			return e.LineAddress(e.NumLines() - 1)
		}
		addr = next
	}
}

// amount of memory analysed before an address when scrolling backwards.
const previousWindow = 0x100

// GetNthPreviousAddress returns the start address of the line n lines
// before the line containing the address.
func (dsm *Manager) GetNthPreviousAddress(addr uint32, n int) uint32 {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()

	for {
		if _, ok := dsm.find(addr); !ok {
			start := uint32(0)
			if addr > previousWindow {
				start = (addr - previousWindow) &^ 3
			}
			dsm.analyze(start, addr-start+4)
		}

		e, ok := dsm.find(addr)
		if !ok {
			return addr
		}

		ln := e.LineNum(addr)
		if n <= ln {
			return e.LineAddress(ln - n)
		}
		n -= ln + 1

		if e.Address() == 0 {
			return 0
		}

		// the last line of the preceding entry
		addr = e.Address() - 1
	}
}

// overlapping returns the entries that overlap the range in address order.
func (dsm *Manager) overlapping(start uint32, end uint32) []Entry {
	var ents []Entry

	k := start
	if e, ok := dsm.find(start); ok {
		ents = append(ents, e)
		k = e.Address() + e.TotalSize()
		if k <= e.Address() {
			return ents
		}
	}

	for k < end {
		n, ok := dsm.entries.Ceiling(k)
		if !ok {
			break
		}
		e := n.Value.(Entry)
		if e.Address() >= end {
			break
		}
		ents = append(ents, e)

		next := e.Address() + e.TotalSize()
		if next <= e.Address() {
			break
		}
		k = next
	}

	return ents
}

// GetBranchLines returns the branch lines that are visible in the range of
// memory. A line is visible if any part of it is in the range.
func (dsm *Manager) GetBranchLines(start uint32, size uint32) []BranchLine {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()

	end := rangeEnd(start, size)

	var lines []BranchLine
	for _, e := range dsm.overlapping(start, end) {
		fn, ok := e.(*FunctionEntry)
		if !ok {
			continue
		}
		for _, l := range fn.branchLines {
			if l.First < end && l.Second >= start {
				lines = append(lines, l)
			}
		}
	}
	return lines
}

// Recheck compares the bytes covered by each entry in the range with the
// bytes when the entry was built. Entries that have changed are rebuilt.
// Returns the number of rebuilt entries.
func (dsm *Manager) Recheck(start uint32, size uint32) int {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()

	var n int
	for _, e := range dsm.overlapping(start, rangeEnd(start, size)) {
		if e.recheck() {
			n++
		}
	}
	if n > 0 {
		logger.Logf(logger.Allow, "disassembly", "rebuilt %d entries after memory change", n)
	}
	return n
}

// Clear removes all entries.
func (dsm *Manager) Clear() {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()
	dsm.entries.Clear()
}

// Entries returns every top-level entry in address order.
func (dsm *Manager) Entries() []Entry {
	dsm.crit.Lock()
	defer dsm.crit.Unlock()

	ents := make([]Entry, 0, dsm.entries.Size())
	for _, v := range dsm.entries.Values() {
		ents = append(ents, v.(Entry))
	}
	return ents
}

// Label returns the symbol at the address.
func (dsm *Manager) Label(addr uint32) (string, bool) {
	return dsm.src.sym.Label(addr)
}
