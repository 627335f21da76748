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

// Package dbgmem sits between the debugger and the guest machine. The debugger
// never accesses guest memory except through the Target interface defined
// here, so the debugger does not depend on any particular guest ISA or memory
// layout.
//
// The other key type is the AddressInfo type, which provides every detail
// about a memory address that you could want. DbgMem.GetAddressInfo() is the
// basic way you create an AddressInfo type. The address can be a number, a
// string representation of a number or a symbol, in which case the symbols
// table is consulted.
//
// Peek() and Poke() will return sentinal errors (PeekError and PokeError
// respectively) if the address is not valid for the target.
package dbgmem
