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

// Package debugger is the debugging frontend for the guest. It brings
// together the breakpoint engine, the disassembly manager and the symbol
// table and exposes them through a command line.
//
// Initialisation of the debugger is done with the NewDebugger() function
//
//	dbg, err := debugger.NewDebugger(debugger.Config{
//		Target:      machine,
//		Decoder:     ppc.NewDecoder(),
//		Invalidator: blockCache,
//	})
//
// The guest must call OnFetch() before executing each instruction and, for
// instrumented memory accesses, OnAccess() and OnInstructionEnd(). These
// return true if the guest has been halted.
//
// Stepping is implemented with temporary breakpoints placed at every address
// the current instruction can pass control to. The temporary breakpoints are
// removed when the guest next halts for any reason.
//
// Interaction with the debugger is through the Terminal interface (see
// terminal package). The Start() function runs the input loop until the user
// quits.
package debugger
