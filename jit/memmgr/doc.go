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

// Package memmgr contains the memory managers used by the JIT compiler to
// place generated code and data.
//
// Reserved is the self-contained manager used by the main compiler. It
// reserves three fixed size blocks (code, data and read-only data) and bump
// allocates from them, committing pages as the cursor of each block advances.
// Addresses are never reused. Closing the manager decommits the blocks but
// the address space remains reserved.
//
// Delegate is used by auxiliary compilers. It forwards allocation to an Arena
// that is shared with the main runtime. SharedArena is an Arena built on a
// Reserved manager.
//
// Both managers resolve symbols with a Resolver: the static link table first,
// then the cement callback and finally the stub table.
package memmgr
