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

	"github.com/cellforge/cellforge/debugger/dbgmem"
	"github.com/cespare/xxhash/v2"
)

// source of bytes and symbols shared by the manager and its entries.
type source struct {
	mem dbgmem.Target
	dec Decoder
	sym SymbolMap
}

// read bytes from guest memory. unreadable bytes are returned as zero.
func (src *source) read(addr uint32, size uint32) []byte {
	b := make([]byte, size)
	for i := range b {
		a := addr + uint32(i)
		if !src.mem.IsValidAddress(a) {
			continue
		}
		v, err := src.mem.Read8(a)
		if err != nil {
			continue
		}
		b[i] = v
	}
	return b
}

// hash of the bytes in the range.
func (src *source) hash(addr uint32, size uint32) uint64 {
	return xxhash.Sum64(src.read(addr, size))
}

func (src *source) decode(addr uint32) Instruction {
	if !src.mem.IsValidAddress(addr) {
		return invalidInstruction("??")
	}
	w, err := src.mem.Read32(addr)
	if err != nil {
		return invalidInstruction("??")
	}
	ins := src.dec.Decode(addr, w)
	if ins.Size == 0 {
		ins.Size = 4
	}
	return ins
}

func invalidInstruction(mnemonic string) Instruction {
	return Instruction{Size: 4, Mnemonic: mnemonic}
}

// the extent of the data symbol at the address.
func (src *source) dataAt(addr uint32) (uint32, bool) {
	return src.sym.DataAt(addr)
}

func formatBytes(b []byte) string {
	s := make([]byte, 0, len(b)*6)
	for i, v := range b {
		if i > 0 {
			s = append(s, ',')
		}
		s = fmt.Appendf(s, "0x%02x", v)
	}
	return string(s)
}

// end address of a range. ranges that would wrap are truncated at the top of
// the address space.
func rangeEnd(addr uint32, size uint32) uint32 {
	end := addr + size
	if end < addr {
		return 0xffffffff
	}
	return end
}
