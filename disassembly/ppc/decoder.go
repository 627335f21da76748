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

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cellforge/cellforge/disassembly"
	"golang.org/x/arch/ppc64/ppc64asm"
)

// primary opcodes
const (
	opBC    = 16
	opB     = 18
	opXL    = 19
	opADDI  = 14
	opADDIS = 15
	opORI   = 24
	opLWZ   = 32
	opLBZ   = 34
	opSTW   = 36
	opSTB   = 38
	opLHZ   = 40
	opLHA   = 42
	opSTH   = 44
)

// extended opcodes of the XL form
const (
	xoBCLR  = 16
	xoBCCTR = 528
)

// Decoder implements the disassembly.Decoder interface.
type Decoder struct{}

// NewDecoder is the preferred method of initialisation for the Decoder type.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode implements the disassembly.Decoder interface.
func (dec *Decoder) Decode(addr uint32, word uint32) disassembly.Instruction {
	ins := disassembly.Instruction{Size: 4}

	var b [4]byte
	binary.BigEndian.PutUint32(b[:], word)

	inst, err := ppc64asm.Decode(b[:], binary.BigEndian)
	if err != nil || inst.Op == 0 || inst.Len != 4 {
		ins.Mnemonic = ".long"
		ins.Params = fmt.Sprintf("0x%08x", word)
		return ins
	}

	ins.Valid = true
	ins.Mnemonic, ins.Params, _ = strings.Cut(ppc64asm.GNUSyntax(inst, uint64(addr)), " ")
	ins.Branch = branchInfo(addr, word)
	ins.Fusion = fusionInfo(word)

	return ins
}

// branch conditions that ignore both the condition register and the counter
func always(bo uint32) bool {
	return bo&0x14 == 0x14
}

func branchInfo(addr uint32, word uint32) disassembly.BranchInfo {
	var br disassembly.BranchInfo

	absolute := word&0x2 == 0x2
	br.Link = word&0x1 == 0x1

	switch word >> 26 {
	case opB:
		br.IsBranch = true
		br.HasTarget = true
		disp := uint32(int32(word<<6)>>6) &^ 0x3
		if absolute {
			br.Target = disp
		} else {
			br.Target = addr + disp
		}
	case opBC:
		br.IsBranch = true
		br.HasTarget = true
		br.Conditional = !always(word >> 21 & 0x1f)
		disp := uint32(int32(int16(word & 0xfffc)))
		if absolute {
			br.Target = disp
		} else {
			br.Target = addr + disp
		}
	case opXL:
		switch word >> 1 & 0x3ff {
		case xoBCLR:
			br.IsBranch = true
			br.Conditional = !always(word >> 21 & 0x1f)
			br.Register = "lr"
		case xoBCCTR:
			br.IsBranch = true
			br.Conditional = !always(word >> 21 & 0x1f)
			br.Register = "ctr"
		default:
			br.Link = false
		}
	default:
		br.Link = false
	}

	return br
}

func fusionInfo(word uint32) disassembly.FusionInfo {
	rt := int(word >> 21 & 0x1f)
	ra := int(word >> 16 & 0x1f)
	imm := int32(int16(word & 0xffff))

	memory := func(kind disassembly.FusionKind, size int) disassembly.FusionInfo {
		return disassembly.FusionInfo{Kind: kind, RT: rt, RS: ra, Imm: imm, AccessSize: size}
	}

	switch word >> 26 {
	case opADDIS:
		// only lis. addis with a source register is not a load
		if ra == 0 {
			return disassembly.FusionInfo{Kind: disassembly.FusionLoadUpper, RT: rt, Imm: imm}
		}
	case opADDI:
		// addi with r0 as the source register is li and does not read r0
		if ra != 0 {
			return disassembly.FusionInfo{Kind: disassembly.FusionAddImmediate, RT: rt, RS: ra, Imm: imm}
		}
	case opORI:
		// the destination of ori is the second register field
		return disassembly.FusionInfo{Kind: disassembly.FusionOrImmediate, RT: ra, RS: rt, Imm: int32(word & 0xffff)}
	case opLWZ:
		return memory(disassembly.FusionLoad, 4)
	case opLHZ, opLHA:
		return memory(disassembly.FusionLoad, 2)
	case opLBZ:
		return memory(disassembly.FusionLoad, 1)
	case opSTW:
		return memory(disassembly.FusionStore, 4)
	case opSTH:
		return memory(disassembly.FusionStore, 2)
	case opSTB:
		return memory(disassembly.FusionStore, 1)
	}

	return disassembly.FusionInfo{}
}
