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
	"fmt"
	"strings"
)

// EntryKind identifies the type of an Entry.
type EntryKind int

// List of valid EntryKind values.
const (
	EntryFunction EntryKind = iota
	EntryOpcodes
	EntryMacro
	EntryData
	EntryComment
)

func (k EntryKind) String() string {
	switch k {
	case EntryFunction:
		return "function"
	case EntryOpcodes:
		return "opcodes"
	case EntryMacro:
		return "macro"
	case EntryData:
		return "data"
	case EntryComment:
		return "comment"
	}
	return "unknown"
}

// Entry covers a range of addresses in guest memory. Implementations are
// FunctionEntry, OpcodeRun, MacroEntry, DataEntry and CommentEntry.
type Entry interface {
	Kind() EntryKind
	Address() uint32
	TotalSize() uint32

	// number of lines in the entry
	NumLines() int

	// the line that contains the address
	LineNum(addr uint32) int

	// start address of the line
	LineAddress(n int) uint32

	// the line that contains the address
	Line(addr uint32) Line

	// hash of the covered bytes when the entry was last built
	Hash() uint64

	// rebuild the entry if the covered bytes have changed. returns true if the
	// entry was rebuilt
	recheck() bool
}

func covers(e Entry, addr uint32) bool {
	return addr >= e.Address() && addr-e.Address() < e.TotalSize()
}

// LineKind identifies what a Line represents.
type LineKind int

// List of valid LineKind values.
const (
	LineOpcode LineKind = iota
	LineMacro
	LineData
	LineComment
)

// Line is a single line of disassembly.
type Line struct {
	Kind      LineKind
	Address   uint32
	TotalSize uint32

	// symbol at the address. empty if there is no symbol
	Label string

	Mnemonic string
	Params   string

	// branch information for opcode lines
	Branch BranchInfo
}

func (l Line) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%08x", l.Address))
	if l.Label != "" {
		s.WriteString(fmt.Sprintf(" <%s>", l.Label))
	}
	s.WriteString(" ")
	s.WriteString(l.Mnemonic)
	if l.Params != "" {
		s.WriteString(" ")
		s.WriteString(l.Params)
	}
	return s.String()
}

// OpcodeRun is a sequence of instructions with no special presentation.
type OpcodeRun struct {
	src  *source
	addr uint32
	num  int
	hash uint64
}

func newOpcodeRun(src *source, addr uint32, num int) *OpcodeRun {
	r := &OpcodeRun{src: src, addr: addr, num: num}
	r.hash = src.hash(addr, r.TotalSize())
	return r
}

func (r *OpcodeRun) Kind() EntryKind   { return EntryOpcodes }
func (r *OpcodeRun) Address() uint32   { return r.addr }
func (r *OpcodeRun) TotalSize() uint32 { return uint32(r.num) * 4 }
func (r *OpcodeRun) NumLines() int     { return r.num }
func (r *OpcodeRun) Hash() uint64      { return r.hash }

func (r *OpcodeRun) LineNum(addr uint32) int {
	return int((addr - r.addr) / 4)
}

func (r *OpcodeRun) LineAddress(n int) uint32 {
	return r.addr + uint32(n)*4
}

func (r *OpcodeRun) Line(addr uint32) Line {
	a := r.LineAddress(r.LineNum(addr))
	ins := r.src.decode(a)
	return Line{
		Kind:      LineOpcode,
		Address:   a,
		TotalSize: 4,
		Mnemonic:  ins.Mnemonic,
		Params:    ins.Params,
		Branch:    ins.Branch,
	}
}

// lines are decoded on demand so there is nothing to rebuild other than the
// hash itself
func (r *OpcodeRun) recheck() bool {
	h := r.src.hash(r.addr, r.TotalSize())
	if h == r.hash {
		return false
	}
	r.hash = h
	return true
}

// MacroKind identifies the type of a MacroEntry.
type MacroKind int

// List of valid MacroKind values.
const (
	// load of a 32bit immediate into a register
	MacroLoadImmediate MacroKind = iota

	// memory access at an absolute address
	MacroMemory
)

// MacroEntry is a pair of instructions presented as a single operation.
type MacroEntry struct {
	src  *source
	addr uint32
	hash uint64

	MacroKind MacroKind

	// the mnemonic of the second instruction for memory macros
	Mnemonic string

	// register loaded with the immediate, or the register loaded or stored
	Register int

	// the immediate value or the absolute memory address
	Value uint32

	// width of the memory access
	AccessSize int
}

// fuse the two instructions into a macro if the second instruction uses the
// register loaded by the first.
func fuse(src *source, addr uint32, upper Instruction, next Instruction) (*MacroEntry, bool) {
	if upper.Fusion.Kind != FusionLoadUpper {
		return nil, false
	}
	if next.Fusion.RS != upper.Fusion.RT {
		return nil, false
	}

	hi := uint32(upper.Fusion.Imm) << 16
	m := &MacroEntry{
		src:      src,
		addr:     addr,
		Register: next.Fusion.RT,
	}

	switch next.Fusion.Kind {
	case FusionAddImmediate:
		m.MacroKind = MacroLoadImmediate
		m.Value = hi + uint32(next.Fusion.Imm)
	case FusionOrImmediate:
		m.MacroKind = MacroLoadImmediate
		m.Value = hi | uint32(uint16(next.Fusion.Imm))
	case FusionLoad, FusionStore:
		m.MacroKind = MacroMemory
		m.Mnemonic = next.Mnemonic
		m.Value = hi + uint32(next.Fusion.Imm)
		m.AccessSize = next.Fusion.AccessSize
	default:
		return nil, false
	}

	m.hash = src.hash(addr, 8)
	return m, true
}

func (m *MacroEntry) Kind() EntryKind        { return EntryMacro }
func (m *MacroEntry) Address() uint32        { return m.addr }
func (m *MacroEntry) TotalSize() uint32      { return 8 }
func (m *MacroEntry) NumLines() int          { return 1 }
func (m *MacroEntry) LineNum(uint32) int     { return 0 }
func (m *MacroEntry) LineAddress(int) uint32 { return m.addr }
func (m *MacroEntry) Hash() uint64           { return m.hash }

func (m *MacroEntry) Line(uint32) Line {
	l := Line{
		Kind:      LineMacro,
		Address:   m.addr,
		TotalSize: 8,
		Params:    fmt.Sprintf("r%d,%#x", m.Register, m.Value),
	}
	switch m.MacroKind {
	case MacroLoadImmediate:
		l.Mnemonic = "li32"
	case MacroMemory:
		l.Mnemonic = m.Mnemonic
	}
	return l
}

// macros only exist inside functions and are rebuilt with the function
func (m *MacroEntry) recheck() bool {
	return m.src.hash(m.addr, 8) != m.hash
}

// DataEntry is a range of memory that does not contain instructions.
type DataEntry struct {
	src  *source
	addr uint32
	size uint32
	hash uint64
}

func newDataEntry(src *source, addr uint32, size uint32) *DataEntry {
	d := &DataEntry{src: src, addr: addr, size: size}
	d.hash = src.hash(addr, size)
	return d
}

func (d *DataEntry) Kind() EntryKind   { return EntryData }
func (d *DataEntry) Address() uint32   { return d.addr }
func (d *DataEntry) TotalSize() uint32 { return d.size }
func (d *DataEntry) Hash() uint64      { return d.hash }

// four bytes per line
func (d *DataEntry) NumLines() int {
	return int((d.size + 3) / 4)
}

func (d *DataEntry) LineNum(addr uint32) int {
	return int((addr - d.addr) / 4)
}

func (d *DataEntry) LineAddress(n int) uint32 {
	return d.addr + uint32(n)*4
}

func (d *DataEntry) Line(addr uint32) Line {
	a := d.LineAddress(d.LineNum(addr))
	sz := min(4, d.addr+d.size-a)
	b := d.src.read(a, sz)

	l := Line{
		Kind:      LineData,
		Address:   a,
		TotalSize: sz,
	}
	if sz == 4 && a%4 == 0 {
		l.Mnemonic = ".word"
		l.Params = fmt.Sprintf("0x%02x%02x%02x%02x", b[0], b[1], b[2], b[3])
	} else {
		l.Mnemonic = ".byte"
		l.Params = formatBytes(b)
	}
	return l
}

func (d *DataEntry) recheck() bool {
	h := d.src.hash(d.addr, d.size)
	if h == d.hash {
		return false
	}
	d.hash = h
	return true
}

// CommentEntry is a range of memory shown as a single line of commentary.
type CommentEntry struct {
	src  *source
	addr uint32
	size uint32
	hash uint64
	text string
}

func newCommentEntry(src *source, addr uint32, size uint32, text string) *CommentEntry {
	return &CommentEntry{
		src:  src,
		addr: addr,
		size: size,
		text: text,
		hash: src.hash(addr, size),
	}
}

func (c *CommentEntry) Kind() EntryKind        { return EntryComment }
func (c *CommentEntry) Address() uint32        { return c.addr }
func (c *CommentEntry) TotalSize() uint32      { return c.size }
func (c *CommentEntry) NumLines() int          { return 1 }
func (c *CommentEntry) LineNum(uint32) int     { return 0 }
func (c *CommentEntry) LineAddress(int) uint32 { return c.addr }
func (c *CommentEntry) Hash() uint64           { return c.hash }

func (c *CommentEntry) Line(uint32) Line {
	return Line{
		Kind:      LineComment,
		Address:   c.addr,
		TotalSize: c.size,
		Mnemonic:  c.text,
	}
}

func (c *CommentEntry) recheck() bool {
	return c.src.hash(c.addr, c.size) != c.hash
}
