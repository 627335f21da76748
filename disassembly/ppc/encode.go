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

package ppc

// Nop is the preferred no-op instruction (ori r0,r0,0).
const Nop uint32 = 0x60000000

// Blr returns to the address in the link register.
const Blr uint32 = 0x4e800020

// Trap unconditionally (tw 31,r0,r0).
const Trap uint32 = 0x7fe00008

func dForm(op uint32, rt int, ra int, imm uint16) uint32 {
	return op<<26 | uint32(rt&0x1f)<<21 | uint32(ra&0x1f)<<16 | uint32(imm)
}

// Lis encodes lis rt,imm.
func Lis(rt int, imm int16) uint32 {
	return dForm(opADDIS, rt, 0, uint16(imm))
}

// Addi encodes addi rt,ra,imm. An ra of zero encodes li.
func Addi(rt int, ra int, imm int16) uint32 {
	return dForm(opADDI, rt, ra, uint16(imm))
}

// Ori encodes ori ra,rs,imm.
func Ori(ra int, rs int, imm uint16) uint32 {
	return dForm(opORI, rs, ra, imm)
}

// Lwz encodes lwz rt,d(ra).
func Lwz(rt int, d int16, ra int) uint32 {
	return dForm(opLWZ, rt, ra, uint16(d))
}

// Lbz encodes lbz rt,d(ra).
func Lbz(rt int, d int16, ra int) uint32 {
	return dForm(opLBZ, rt, ra, uint16(d))
}

// Stw encodes stw rs,d(ra).
func Stw(rs int, d int16, ra int) uint32 {
	return dForm(opSTW, rs, ra, uint16(d))
}

// Stb encodes stb rs,d(ra).
func Stb(rs int, d int16, ra int) uint32 {
	return dForm(opSTB, rs, ra, uint16(d))
}

// B encodes a relative branch. The displacement is in bytes.
func B(disp int32) uint32 {
	return opB<<26 | uint32(disp)&0x03fffffc
}

// Bl encodes a relative branch that sets the link register.
func Bl(disp int32) uint32 {
	return B(disp) | 0x1
}

// Bc encodes a relative conditional branch.
func Bc(bo int, bi int, disp int16) uint32 {
	return opBC<<26 | uint32(bo&0x1f)<<21 | uint32(bi&0x1f)<<16 | uint32(uint16(disp))&0xfffc
}

// Beq encodes a branch if the equal bit of cr0 is set.
func Beq(disp int16) uint32 {
	return Bc(12, 2, disp)
}
