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

package dbgmem

// Target is the capability interface of the guest machine being debugged.
//
// Read and write functions do not trigger any side effects in the guest. Values
// are returned in the guest's byte order already converted to host values.
type Target interface {
	Read8(addr uint32) (uint8, error)
	Read16(addr uint32) (uint16, error)
	Read32(addr uint32) (uint32, error)
	Read64(addr uint32) (uint64, error)
	Read128(addr uint32) ([16]byte, error)
	Write8(addr uint32, v uint8) error

	IsValidAddress(addr uint32) bool

	// single line disassembly of the instruction at the address
	Disassemble(addr uint32) string

	// the address of the next instruction to be executed
	GetPC() uint32

	// Pause() does not return until the guest CPU has stopped
	Pause()
	Resume()
	IsPaused() bool
}

// Registers is implemented by targets that can report register values by name.
type Registers interface {
	Register(name string) (uint64, bool)
}

// ReadSized reads a value of one, two, four or eight bytes.
func ReadSized(t Target, addr uint32, size int) (uint64, error) {
	switch size {
	case 1:
		v, err := t.Read8(addr)
		return uint64(v), err
	case 2:
		v, err := t.Read16(addr)
		return uint64(v), err
	case 4:
		v, err := t.Read32(addr)
		return uint64(v), err
	case 8:
		return t.Read64(addr)
	}

	// other sizes are read as bytes and combined in big-endian order, most
	// significant byte first
	var v uint64
	for i := range min(size, 8) {
		b, err := t.Read8(addr + uint32(i))
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}
