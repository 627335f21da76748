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

package ppc_test

import (
	"testing"

	"github.com/cellforge/cellforge/disassembly"
	"github.com/cellforge/cellforge/disassembly/ppc"
	"github.com/cellforge/cellforge/test"
)

func TestInvalid(t *testing.T) {
	dec := ppc.NewDecoder()

	ins := dec.Decode(0x1000, 0)
	test.ExpectFailure(t, ins.Valid)
	test.ExpectEquality(t, ins.Size, uint32(4))
	test.ExpectEquality(t, ins.String(), ".long 0x00000000")
}

func TestMnemonics(t *testing.T) {
	dec := ppc.NewDecoder()

	ins := dec.Decode(0x1000, ppc.Nop)
	test.ExpectSuccess(t, ins.Valid)
	test.ExpectEquality(t, ins.Mnemonic, "nop")
	test.ExpectFailure(t, ins.Branch.IsBranch)

	ins = dec.Decode(0x1000, ppc.Lwz(4, 8, 3))
	test.ExpectSuccess(t, ins.Valid)
	test.ExpectEquality(t, ins.Mnemonic, "lwz")
}

func TestBranches(t *testing.T) {
	dec := ppc.NewDecoder()

	ins := dec.Decode(0x1000, ppc.B(0x20))
	test.ExpectSuccess(t, ins.Branch.IsBranch)
	test.ExpectSuccess(t, ins.Branch.HasTarget)
	test.ExpectFailure(t, ins.Branch.Conditional)
	test.ExpectFailure(t, ins.Branch.Link)
	test.ExpectEquality(t, ins.Branch.Target, uint32(0x1020))

	ins = dec.Decode(0x1000, ppc.B(-0x10))
	test.ExpectEquality(t, ins.Branch.Target, uint32(0xff0))

	ins = dec.Decode(0x1000, ppc.Bl(0x100))
	test.ExpectSuccess(t, ins.Branch.Link)
	test.ExpectEquality(t, ins.Branch.Target, uint32(0x1100))

	ins = dec.Decode(0x1000, ppc.Beq(-8))
	test.ExpectSuccess(t, ins.Branch.IsBranch)
	test.ExpectSuccess(t, ins.Branch.Conditional)
	test.ExpectEquality(t, ins.Branch.Target, uint32(0xff8))

	// bc with BO of 20 is unconditional
	ins = dec.Decode(0x1000, ppc.Bc(20, 0, 0x10))
	test.ExpectFailure(t, ins.Branch.Conditional)

	ins = dec.Decode(0x1000, ppc.Blr)
	test.ExpectSuccess(t, ins.Branch.IsBranch)
	test.ExpectFailure(t, ins.Branch.HasTarget)
	test.ExpectFailure(t, ins.Branch.Conditional)
	test.ExpectFailure(t, ins.Branch.Link)
	test.ExpectEquality(t, ins.Branch.Register, "lr")
}

func TestFusion(t *testing.T) {
	dec := ppc.NewDecoder()

	ins := dec.Decode(0, ppc.Lis(3, 0x1234))
	test.ExpectEquality(t, ins.Fusion.Kind, disassembly.FusionLoadUpper)
	test.ExpectEquality(t, ins.Fusion.RT, 3)
	test.ExpectEquality(t, ins.Fusion.Imm, int32(0x1234))

	ins = dec.Decode(0, ppc.Addi(3, 3, -4))
	test.ExpectEquality(t, ins.Fusion.Kind, disassembly.FusionAddImmediate)
	test.ExpectEquality(t, ins.Fusion.RS, 3)
	test.ExpectEquality(t, ins.Fusion.Imm, int32(-4))

	// li does not read a register
	ins = dec.Decode(0, ppc.Addi(3, 0, 1))
	test.ExpectEquality(t, ins.Fusion.Kind, disassembly.FusionNone)

	ins = dec.Decode(0, ppc.Ori(5, 3, 0xffff))
	test.ExpectEquality(t, ins.Fusion.Kind, disassembly.FusionOrImmediate)
	test.ExpectEquality(t, ins.Fusion.RT, 5)
	test.ExpectEquality(t, ins.Fusion.RS, 3)
	test.ExpectEquality(t, ins.Fusion.Imm, int32(0xffff))

	ins = dec.Decode(0, ppc.Lbz(4, -1, 3))
	test.ExpectEquality(t, ins.Fusion.Kind, disassembly.FusionLoad)
	test.ExpectEquality(t, ins.Fusion.RT, 4)
	test.ExpectEquality(t, ins.Fusion.RS, 3)
	test.ExpectEquality(t, ins.Fusion.Imm, int32(-1))
	test.ExpectEquality(t, ins.Fusion.AccessSize, 1)

	ins = dec.Decode(0, ppc.Stw(6, 0x10, 3))
	test.ExpectEquality(t, ins.Fusion.Kind, disassembly.FusionStore)
	test.ExpectEquality(t, ins.Fusion.AccessSize, 4)
}
