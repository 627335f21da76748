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

// Package jit is the facade of the JIT compiler. A Compiler owns the memory
// manager that generated code is placed in, the target machine description
// and the table of symbol mappings.
//
// A Compiler is created in the Active state with New(). Modules are added with
// Add() or AddUncached(), and previously cached objects with AddObject().
// Finalize() resolves every pending relocation after which Get() returns the
// address of a symbol. Release() drops everything and puts the compiler in
// the Destroying state. No other method can be called after Release().
//
// A compiler created with a link table is a main compiler. It uses the
// self-contained memory manager and registers listeners. A compiler created
// without a link table is an auxiliary compiler. It allocates from a shared
// arena and only registers listeners when asked to observe.
//
// Unrecoverable conditions are returned as errors recognised by
// fault.IsFatal().
package jit
