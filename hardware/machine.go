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
	"fmt"
	"os"
	"sync"

	"github.com/cellforge/cellforge/debugger/dbgmem"
	"github.com/cellforge/cellforge/disassembly"
	"github.com/cellforge/cellforge/disassembly/ppc"
)

// DefaultRAMSize is the amount of RAM in a machine created by NewMachine().
const DefaultRAMSize = 32 << 20

// DefaultMirrorMask maps the uncached mirror of RAM at 0x20000000 onto the
// cached addresses.
const DefaultMirrorMask = 0x1fffffff

// Machine is a guest machine.
type Machine struct {
	Mem  *Memory
	Regs Registers

	dec disassembly.Decoder

	crit   sync.Mutex
	pc     uint32
	paused bool
}

// NewMachine is the preferred method of initialisation for the Machine type.
// The machine starts paused.
func NewMachine(ramSize uint32, mask uint32) *Machine {
	return &Machine{
		Mem:    NewMemory(ramSize, mask),
		dec:    ppc.NewDecoder(),
		paused: true,
	}
}

var _ dbgmem.Target = (*Machine)(nil)

// LoadImage copies a raw binary image into RAM at the base address and sets
// the program counter to the base address.
func (m *Machine) LoadImage(pth string, base uint32) error {
	b, err := os.ReadFile(pth)
	if err != nil {
		return fmt.Errorf("hardware: %w", err)
	}
	if err := m.Mem.Load(base, b); err != nil {
		return fmt.Errorf("hardware: %s: %w", pth, err)
	}
	m.SetPC(base)
	return nil
}

// Read8 implements the dbgmem.Target interface.
func (m *Machine) Read8(addr uint32) (uint8, error) { return m.Mem.Read8(addr) }

// Read16 implements the dbgmem.Target interface.
func (m *Machine) Read16(addr uint32) (uint16, error) { return m.Mem.Read16(addr) }

// Read32 implements the dbgmem.Target interface.
func (m *Machine) Read32(addr uint32) (uint32, error) { return m.Mem.Read32(addr) }

// Read64 implements the dbgmem.Target interface.
func (m *Machine) Read64(addr uint32) (uint64, error) { return m.Mem.Read64(addr) }

// Read128 implements the dbgmem.Target interface.
func (m *Machine) Read128(addr uint32) ([16]byte, error) { return m.Mem.Read128(addr) }

// Write8 implements the dbgmem.Target interface.
func (m *Machine) Write8(addr uint32, v uint8) error { return m.Mem.Write8(addr, v) }

// IsValidAddress implements the dbgmem.Target interface.
func (m *Machine) IsValidAddress(addr uint32) bool { return m.Mem.IsValidAddress(addr) }

// Disassemble implements the dbgmem.Target interface.
func (m *Machine) Disassemble(addr uint32) string {
	w, err := m.Mem.Read32(addr)
	if err != nil {
		return "??"
	}
	return m.dec.Decode(addr, w).String()
}

// Register implements the dbgmem.Registers interface. The program counter is
// available as "pc".
func (m *Machine) Register(name string) (uint64, bool) {
	if name == "pc" || name == "PC" {
		return uint64(m.GetPC()), true
	}
	return m.Regs.Register(name)
}

// GetPC implements the dbgmem.Target interface.
func (m *Machine) GetPC() uint32 {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.pc
}

// SetPC moves the program counter.
func (m *Machine) SetPC(pc uint32) {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.pc = pc
}

// Pause implements the dbgmem.Target interface.
func (m *Machine) Pause() {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.paused = true
}

// Resume implements the dbgmem.Target interface.
func (m *Machine) Resume() {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.paused = false
}

// IsPaused implements the dbgmem.Target interface.
func (m *Machine) IsPaused() bool {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.paused
}

// String returns the contents of the register file.
func (m *Machine) String() string {
	return m.Regs.String()
}
