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

// Package disassembly presents the memory of the guest machine as lines of
// disassembly. It is used by the debugger to show the code around the program
// counter and to scroll through memory.
//
// The address space is described by Entries. An Entry covers a range of
// addresses and knows how to split that range into lines. The Manager keeps
// entries in an ordered map keyed by start address and creates them lazily as
// addresses are requested. No two entries overlap.
//
// Entries are created from the symbols of the guest program when available.
// A function symbol produces a FunctionEntry, which groups the instructions of
// the function into runs of opcodes, fused macro instructions, embedded data
// and alignment comments. It also records the branches within the function
// so that they can be drawn as lines beside the disassembly. Memory not
// covered by a symbol is shown as a run of opcodes.
//
// Guest code can modify itself. Every entry stores a hash of the bytes it
// covers and Recheck() rebuilds only those entries whose bytes have changed.
//
// Instruction decoding is done by a Decoder. The ppc sub-package provides a
// decoder for PowerPC guests.
package disassembly
