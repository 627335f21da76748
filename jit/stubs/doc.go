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

// Package stubs generates callable placeholder functions for symbols that
// could not be resolved when linking JIT generated code.
//
// Each stub is a small trampoline that loads the address of its own embedded,
// NUL terminated copy of the symbol name into the first argument register of
// the host calling convention and then jumps to a reporting function. The
// reporting function never returns so a call to a missing symbol is always a
// diagnosable failure.
//
// One Table exists per process and is passed to every compiler. Stubs are
// never freed and the same name always resolves to the same stub.
package stubs
