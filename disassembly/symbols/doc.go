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

// Package symbols keeps track of the symbols of the guest program being
// debugged. There are three kinds of symbol: functions and data objects, both
// of which have an extent, and labels, which mark a single address.
//
// The Symbols type satisfies the SymbolMap interface of the disassembly
// package. Symbols can be added individually or read from a symbol file with
// ReadSymbolsFile(). The file format is the output of "nm -S" run on an ELF
// image of the guest program:
//
//	00010000 00000040 T main
//	00020000 00000100 D table
//	00010020 t loop
//
// Lines without a size are added as labels. Lines beginning with '#' are
// ignored.
package symbols
