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

package hardware_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cellforge/cellforge/disassembly/ppc"
	"github.com/cellforge/cellforge/hardware"
	"github.com/cellforge/cellforge/test"
)

func TestMemory(t *testing.T) {
	mem := hardware.NewMemory(0x100, 0xff)

	test.DemandSuccess(t, mem.Write32(0x10, 0x01020304))

	v8, err := mem.Read8(0x11)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v8, uint8(0x02))

	v16, _ := mem.Read16(0x12)
	test.ExpectEquality(t, v16, uint16(0x0304))

	v64, _ := mem.Read64(0x10)
	test.ExpectEquality(t, v64, uint64(0x0102030400000000))

	// mirror
	v32, _ := mem.Read32(0x110)
	test.ExpectEquality(t, v32, uint32(0x01020304))

	v128, _ := mem.Read128(0x10)
	test.ExpectEquality(t, v128[3], uint8(0x04))

	// access crossing the end of RAM
	_, err = mem.Read32(0xfe)
	test.ExpectSuccess(t, errors.Is(err, hardware.ErrAddress))
}

func TestMemoryBounds(t *testing.T) {
	mem := hardware.NewMemory(0x100, 0)
	test.ExpectSuccess(t, mem.IsValidAddress(0xff))
	test.ExpectFailure(t, mem.IsValidAddress(0x100))
	test.ExpectFailure(t, mem.Write8(0x100, 1))
}

func TestRegisters(t *testing.T) {
	m := hardware.NewMachine(0x100, 0)

	test.ExpectSuccess(t, m.Regs.SetRegister("r3", 5))
	test.ExpectSuccess(t, m.Regs.SetRegister("LR", 0x1000))
	test.ExpectSuccess(t, m.Regs.SetRegister("cr", 0x20000000))
	test.ExpectFailure(t, m.Regs.SetRegister("r32", 0))

	v, ok := m.Register("R3")
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, v, uint64(5))

	v, _ = m.Register("lr")
	test.ExpectEquality(t, v, uint64(0x1000))

	v, _ = m.Register("cr")
	test.ExpectEquality(t, v, uint64(0x20000000))

	m.SetPC(0x40)
	v, _ = m.Register("pc")
	test.ExpectEquality(t, v, uint64(0x40))

	_, ok = m.Register("f0")
	test.ExpectFailure(t, ok)
}

func TestMachine(t *testing.T) {
	m := hardware.NewMachine(0x1000, 0)
	test.ExpectSuccess(t, m.IsPaused())
	m.Resume()
	test.ExpectFailure(t, m.IsPaused())
	m.Pause()
	test.ExpectSuccess(t, m.IsPaused())

	test.DemandSuccess(t, m.Mem.LoadWords(0x100, ppc.Nop))
	test.ExpectEquality(t, m.Disassemble(0x100), "nop")
	test.ExpectEquality(t, m.Disassemble(0x2000), "??")
}

func TestLoadImage(t *testing.T) {
	pth := filepath.Join(t.TempDir(), "image.bin")
	test.DemandSuccess(t, os.WriteFile(pth, []byte{0x60, 0, 0, 0}, 0o644))

	m := hardware.NewMachine(0x1000, 0)
	test.DemandSuccess(t, m.LoadImage(pth, 0x200))
	test.ExpectEquality(t, m.GetPC(), uint32(0x200))

	w, _ := m.Read32(0x200)
	test.ExpectEquality(t, w, ppc.Nop)

	// image too large for RAM
	test.ExpectFailure(t, m.LoadImage(pth, 0xffe))
}
