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

// FusionKind identifies instructions that can be combined with a neighbour
// into a macro instruction.
type FusionKind int

// List of valid FusionKind values.
const (
	FusionNone FusionKind = iota

	// loads a 16bit immediate into the upper half of a register
	FusionLoadUpper

	// register plus immediate
	FusionAddImmediate

	// register or'd with immediate
	FusionOrImmediate

	// load from memory at register plus displacement
	FusionLoad

	// store to memory at register plus displacement
	FusionStore
)

// FusionInfo describes the operands of an instruction for the purposes of
// macro fusion.
type FusionInfo struct {
	Kind FusionKind

	// RT is the register written by the instruction. for stores it is the
	// register being stored
	RT int

	// RS is the source register of an immediate operation or the base
	// register of a memory access
	RS int

	Imm int32

	// width of memory access in bytes
	AccessSize int
}

// BranchInfo describes the control flow of an instruction.
type BranchInfo struct {
	IsBranch    bool
	Conditional bool
	Link        bool

	// branches through a register have no static target. Register names the
	// register holding the target
	HasTarget bool
	Target    uint32
	Register  string
}

// Instruction is a single decoded instruction.
type Instruction struct {
	Size     uint32
	Mnemonic string
	Params   string
	Valid    bool

	Branch BranchInfo
	Fusion FusionInfo
}

func (ins Instruction) String() string {
	if ins.Params == "" {
		return ins.Mnemonic
	}
	return ins.Mnemonic + " " + ins.Params
}

// Decoder implementations decode a single instruction word found at the
// specified address. Undecodable words should be returned with Valid set to
// false and a mnemonic that represents the raw data.
type Decoder interface {
	Decode(addr uint32, word uint32) Instruction
}

// SymbolMap implementations provide the symbols of the guest program. Function
// and data symbols have an extent.
type SymbolMap interface {
	FunctionAt(addr uint32) (uint32, bool)
	DataAt(addr uint32) (uint32, bool)

	// the address of the first function or data symbol after the address
	NextSymbolAddress(addr uint32) (uint32, bool)

	Label(addr uint32) (string, bool)

	// the start address of the function or data symbol whose extent includes
	// the address
	Containing(addr uint32) (uint32, bool)
}

type noSymbols struct{}

func (noSymbols) FunctionAt(uint32) (uint32, bool)        { return 0, false }
func (noSymbols) DataAt(uint32) (uint32, bool)            { return 0, false }
func (noSymbols) NextSymbolAddress(uint32) (uint32, bool) { return 0, false }
func (noSymbols) Label(uint32) (string, bool)             { return "", false }
func (noSymbols) Containing(uint32) (uint32, bool)        { return 0, false }
