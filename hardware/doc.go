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

// Package hardware is a minimal guest machine used by the command line tools
// and by tests. It has big-endian RAM, a register file and a program counter
// but does not execute instructions.
//
// The Machine type satisfies the dbgmem.Target interface and so can be
// examined by the debugger. The program counter can be moved with SetPC(),
// which is how the command line debugger simulates the progress of a guest
// CPU.
package hardware
