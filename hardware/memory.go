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

package hardware

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrAddress is returned when an address is not in RAM.
var ErrAddress = errors.New("address error")

// Memory is big-endian RAM. Addresses are masked with the mirror mask before
// access so that the same RAM appears at more than one address.
type Memory struct {
	ram  []uint8
	mask uint32
}

// NewMemory is the preferred method of initialisation for the Memory type.
// A mask of zero means there is no mirroring.
func NewMemory(size uint32, mask uint32) *Memory {
	if mask == 0 {
		mask = 0xffffffff
	}
	return &Memory{
		ram:  make([]uint8, size),
		mask: mask,
	}
}

// Size of RAM in bytes.
func (mem *Memory) Size() uint32 {
	return uint32(len(mem.ram))
}

// Mask returns the mirror mask.
func (mem *Memory) Mask() uint32 {
	return mem.mask
}

func (mem *Memory) slice(addr uint32, size uint32) ([]uint8, error) {
	a := addr & mem.mask
	if uint64(a)+uint64(size) > uint64(len(mem.ram)) {
		return nil, fmt.Errorf("%w: %#08x", ErrAddress, addr)
	}
	return mem.ram[a : a+size], nil
}

// IsValidAddress returns true if the address is in RAM.
func (mem *Memory) IsValidAddress(addr uint32) bool {
	return addr&mem.mask < uint32(len(mem.ram))
}

// Read8 implements the dbgmem.Target interface.
func (mem *Memory) Read8(addr uint32) (uint8, error) {
	b, err := mem.slice(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Read16 implements the dbgmem.Target interface.
func (mem *Memory) Read16(addr uint32) (uint16, error) {
	b, err := mem.slice(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Read32 implements the dbgmem.Target interface.
func (mem *Memory) Read32(addr uint32) (uint32, error) {
	b, err := mem.slice(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Read64 implements the dbgmem.Target interface.
func (mem *Memory) Read64(addr uint32) (uint64, error) {
	b, err := mem.slice(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Read128 implements the dbgmem.Target interface.
func (mem *Memory) Read128(addr uint32) ([16]byte, error) {
	var v [16]byte
	b, err := mem.slice(addr, 16)
	if err != nil {
		return v, err
	}
	copy(v[:], b)
	return v, nil
}

// Write8 implements the dbgmem.Target interface.
func (mem *Memory) Write8(addr uint32, v uint8) error {
	b, err := mem.slice(addr, 1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

// Write32 writes a big-endian word.
func (mem *Memory) Write32(addr uint32, v uint32) error {
	b, err := mem.slice(addr, 4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

// Load copies data into RAM at the address.
func (mem *Memory) Load(addr uint32, data []byte) error {
	b, err := mem.slice(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// LoadWords writes a sequence of big-endian words into RAM at the address.
func (mem *Memory) LoadWords(addr uint32, words ...uint32) error {
	for i, w := range words {
		if err := mem.Write32(addr+uint32(i)*4, w); err != nil {
			return err
		}
	}
	return nil
}
