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

// Package ppc decodes instructions for 32bit big-endian PowerPC guests. Text
// is produced by golang.org/x/arch/ppc64/ppc64asm in GNU syntax. Branch and
// fusion information is taken directly from the instruction fields.
//
// The package also contains encoders for the small number of instructions the
// debugger needs to write into guest memory.
package ppc
